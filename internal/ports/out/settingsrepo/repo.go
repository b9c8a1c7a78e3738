package settingsrepo

import (
	"context"
	"errors"

	"github.com/eastbay-carpool/tokenbot/internal/domain"
)

// ErrNotFound indicates no settings record exists for the organization.
var ErrNotFound = errors.New("settings not found")

// Repository provides access to the per-organization settings record.
// Lazy default initialization lives at the application layer: Get returns
// ErrNotFound on first access and the caller persists the defaults.
type Repository interface {
	Get(ctx context.Context, org domain.OrgID) (domain.Settings, error)

	// Put creates or replaces the organization's settings record.
	Put(ctx context.Context, s domain.Settings) error
}
