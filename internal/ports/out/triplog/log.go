package triplog

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/eastbay-carpool/tokenbot/internal/domain"
)

// Entry is the audit record of one settled trip.
type Entry struct {
	TripID     string
	Org        domain.OrgID
	ReportedBy domain.MemberName
	Driver     domain.MemberName
	Passengers []domain.MemberName

	// Deltas holds the signed per-participant adjustments that were applied.
	Deltas map[domain.MemberName]decimal.Decimal

	CreatedAt time.Time
}

// Log appends settled trips for auditing. Appends happen after the ledger
// commit; a failed append must not undo the settlement.
type Log interface {
	Append(ctx context.Context, e Entry) error
}
