package idempotency

import (
	"context"
	"time"

	"github.com/eastbay-carpool/tokenbot/internal/domain"
)

// Fingerprint identifies one slash-command delivery uniquely. The chat
// platform retries a delivery with the same trigger id when we miss its
// response deadline; the body hash guards against trigger id reuse.
type Fingerprint struct {
	Org       domain.OrgID
	User      domain.MemberName
	TriggerID string
	BodyHash  string
}

// Record is the stored response we can replay for a duplicate delivery.
type Record struct {
	StatusCode  int
	ContentType string
	Body        []byte
	CreatedAt   time.Time
}

// Store persists idempotency records for replaying safe responses on retries.
type Store interface {
	Get(ctx context.Context, fp Fingerprint) (Record, bool, error)
	Put(ctx context.Context, fp Fingerprint, rec Record) error
}
