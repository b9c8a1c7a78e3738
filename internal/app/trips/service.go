// Package trips settles shared trips: a zero-sum token transfer from
// passengers to the driver.
package trips

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/eastbay-carpool/tokenbot/internal/app/aliases"
	"github.com/eastbay-carpool/tokenbot/internal/domain"
	clockport "github.com/eastbay-carpool/tokenbot/internal/ports/out/clock"
	"github.com/eastbay-carpool/tokenbot/internal/ports/out/memberrepo"
	"github.com/eastbay-carpool/tokenbot/internal/ports/out/triplog"
)

// Mode selects how participant adjustments are applied.
type Mode string

const (
	// ModeAtomic applies every participant delta in one storage transaction.
	ModeAtomic Mode = "atomic"
	// ModeLegacy applies independent per-member atomic increments. A
	// concurrent reader can observe a partially-applied trip; kept for
	// compatibility with stores that lack multi-key transactions.
	ModeLegacy Mode = "legacy"
)

type Service struct {
	members memberrepo.Repository
	aliases *aliases.Registry
	journal triplog.Log
	clk     clockport.Clock
	mode    Mode

	newTripID func() string
}

func NewService(members memberrepo.Repository, reg *aliases.Registry, journal triplog.Log, clk clockport.Clock, mode Mode) *Service {
	if mode == "" {
		mode = ModeAtomic
	}
	return &Service{
		members:   members,
		aliases:   reg,
		journal:   journal,
		clk:       clk,
		mode:      mode,
		newTripID: uuid.NewString,
	}
}

// Input is one reported trip before resolution. Driver and Passengers are
// raw user tokens (aliases and pronouns allowed).
type Input struct {
	Org        domain.OrgID
	Caller     domain.MemberName
	Driver     string
	Passengers []string
}

// Change is one member's settlement outcome. Non-participants appear with a
// zero delta.
type Change struct {
	Name       domain.MemberName
	Delta      decimal.Decimal
	NewBalance decimal.Decimal
}

// Result reports a settled trip.
type Result struct {
	TripID     string
	Driver     domain.MemberName
	Passengers []domain.MemberName

	// Changes covers every member of the organization, sorted by
	// resulting balance ascending.
	Changes []Change

	// JournalErr is a non-fatal audit append failure; the settlement
	// itself has committed.
	JournalErr error
}

// Settle validates and applies one trip. The driver receives
// share × passengers and each passenger pays one share, where
// share = tripCost / participants, so deltas always sum to zero.
func (s *Service) Settle(ctx context.Context, in Input, tripCost decimal.Decimal) (Result, error) {
	if len(in.Passengers) == 0 {
		return Result{}, &Error{
			Code:    ErrCodeNoPassengers,
			Message: "usage: <user>|I drove <user> <user> ...",
		}
	}

	driver, err := s.aliases.Resolve(ctx, in.Org, in.Caller, in.Driver, aliases.Subject)
	if err != nil {
		return Result{}, err
	}
	passengers, err := s.aliases.ResolveAll(ctx, in.Org, in.Caller, in.Passengers, aliases.Object)
	if err != nil {
		return Result{}, err
	}

	members, err := s.members.List(ctx, in.Org)
	if err != nil {
		return Result{}, err
	}
	byName := make(map[domain.MemberName]domain.Member, len(members))
	for _, m := range members {
		byName[m.Name] = m
	}

	if _, ok := byName[driver]; !ok {
		return Result{}, &Error{
			Code:    ErrCodeNotAMember,
			Message: fmt.Sprintf("Driver %s is not a member", driver),
		}
	}
	involved := map[domain.MemberName]struct{}{driver: {}}
	for _, p := range passengers {
		if _, ok := byName[p]; !ok {
			return Result{}, &Error{
				Code:    ErrCodeNotAMember,
				Message: fmt.Sprintf("Passenger %s is not a member", p),
			}
		}
		if _, dup := involved[p]; dup {
			return Result{}, &Error{
				Code:    ErrCodeDuplicateParticipant,
				Message: fmt.Sprintf("Member %s is mentioned twice", p),
			}
		}
		involved[p] = struct{}{}
	}

	share := tripCost.Div(decimal.NewFromInt(int64(len(involved))))
	deltas := []memberrepo.Delta{
		{Name: driver, Amount: share.Mul(decimal.NewFromInt(int64(len(passengers))))},
	}
	for _, p := range passengers {
		deltas = append(deltas, memberrepo.Delta{Name: p, Amount: share.Neg()})
	}

	applied, err := s.apply(ctx, in.Org, deltas)
	if err != nil {
		return Result{}, err
	}

	res := Result{
		TripID:     s.newTripID(),
		Driver:     driver,
		Passengers: passengers,
		Changes:    buildChanges(members, applied),
	}

	entry := triplog.Entry{
		TripID:     res.TripID,
		Org:        in.Org,
		ReportedBy: in.Caller,
		Driver:     driver,
		Passengers: passengers,
		Deltas:     make(map[domain.MemberName]decimal.Decimal, len(applied)),
		CreatedAt:  s.clk.Now(),
	}
	for _, c := range applied {
		entry.Deltas[c.Name] = c.Delta
	}
	// The ledger has committed; an audit append failure must not undo it.
	res.JournalErr = s.journal.Append(ctx, entry)

	return res, nil
}

func (s *Service) apply(ctx context.Context, org domain.OrgID, deltas []memberrepo.Delta) ([]memberrepo.BalanceChange, error) {
	if s.mode == ModeLegacy {
		out := make([]memberrepo.BalanceChange, 0, len(deltas))
		for _, d := range deltas {
			nb, err := s.members.AdjustBalance(ctx, org, d.Name, d.Amount)
			if err != nil {
				return nil, err
			}
			out = append(out, memberrepo.BalanceChange{Name: d.Name, Delta: d.Amount, NewBalance: nb})
		}
		return out, nil
	}
	return s.members.AdjustAll(ctx, org, deltas)
}

func buildChanges(members []domain.Member, applied []memberrepo.BalanceChange) []Change {
	newBalances := make(map[domain.MemberName]memberrepo.BalanceChange, len(applied))
	for _, c := range applied {
		newBalances[c.Name] = c
	}
	out := make([]Change, 0, len(members))
	for _, m := range members {
		if c, ok := newBalances[m.Name]; ok {
			out = append(out, Change{Name: m.Name, Delta: c.Delta, NewBalance: c.NewBalance})
			continue
		}
		out = append(out, Change{Name: m.Name, Delta: decimal.Zero, NewBalance: m.Balance})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].NewBalance.Equal(out[j].NewBalance) {
			return out[i].NewBalance.LessThan(out[j].NewBalance)
		}
		return strings.ToLower(string(out[i].Name)) < strings.ToLower(string(out[j].Name))
	})
	return out
}
