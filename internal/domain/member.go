package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Member is the domain representation of a carpooler.
type Member struct {
	Org  OrgID
	Name MemberName

	// Balance is the member's token balance. It may go negative.
	Balance decimal.Decimal

	// Aliases are alternate names registered for this member, in
	// registration order. The alias registry derives its index from them.
	Aliases []string

	CreatedAt time.Time
	UpdatedAt time.Time
}
