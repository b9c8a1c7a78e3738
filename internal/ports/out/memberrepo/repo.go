package memberrepo

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/eastbay-carpool/tokenbot/internal/domain"
)

// Delta is one member's balance adjustment within a settlement.
type Delta struct {
	Name   domain.MemberName
	Amount decimal.Decimal
}

// BalanceChange reports the outcome of an applied adjustment.
type BalanceChange struct {
	Name       domain.MemberName
	Delta      decimal.Decimal
	NewBalance decimal.Decimal
}

// Repository provides access to persisted members and their balances.
//
// Balance arithmetic happens on the storage side: AdjustBalance must be an
// atomic increment with no client read-modify-write, and AdjustAll must
// apply every delta in a single transaction (all or nothing).
type Repository interface {
	Create(ctx context.Context, m domain.Member) error

	Get(ctx context.Context, org domain.OrgID, name domain.MemberName) (domain.Member, error)

	// List returns every member of the organization. Ordering is not
	// specified; callers sort for display.
	List(ctx context.Context, org domain.OrgID) ([]domain.Member, error)

	AdjustBalance(ctx context.Context, org domain.OrgID, name domain.MemberName, delta decimal.Decimal) (decimal.Decimal, error)

	AdjustAll(ctx context.Context, org domain.OrgID, deltas []Delta) ([]BalanceChange, error)

	// AppendAlias persists a new alias on the member record as one write.
	AppendAlias(ctx context.Context, org domain.OrgID, name domain.MemberName, alias string) error
}
