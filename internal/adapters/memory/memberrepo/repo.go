package memberrepo

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/eastbay-carpool/tokenbot/internal/domain"
	"github.com/eastbay-carpool/tokenbot/internal/ports/out/memberrepo"
)

// Repo is an in-memory implementation of memberrepo.Repository.
// It is safe for concurrent use; each adjustment runs under the write lock,
// so per-member increments are linearizable and AdjustAll is one critical
// section.
type Repo struct {
	mu   sync.RWMutex
	orgs map[domain.OrgID]map[domain.MemberName]domain.Member
}

func NewRepo() *Repo {
	return &Repo{
		orgs: make(map[domain.OrgID]map[domain.MemberName]domain.Member),
	}
}

func (r *Repo) Create(ctx context.Context, m domain.Member) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	members := r.orgs[m.Org]
	if members == nil {
		members = make(map[domain.MemberName]domain.Member)
		r.orgs[m.Org] = members
	}
	if _, ok := members[m.Name]; ok {
		return memberrepo.ErrAlreadyExists
	}
	members[m.Name] = cloneMember(m)
	return nil
}

func (r *Repo) Get(ctx context.Context, org domain.OrgID, name domain.MemberName) (domain.Member, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.orgs[org][name]
	if !ok {
		return domain.Member{}, memberrepo.ErrNotFound
	}
	return cloneMember(m), nil
}

func (r *Repo) List(ctx context.Context, org domain.OrgID) ([]domain.Member, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Member, 0, len(r.orgs[org]))
	for _, m := range r.orgs[org] {
		out = append(out, cloneMember(m))
	}
	return out, nil
}

func (r *Repo) AdjustBalance(ctx context.Context, org domain.OrgID, name domain.MemberName, delta decimal.Decimal) (decimal.Decimal, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.adjustLocked(org, name, delta)
}

func (r *Repo) AdjustAll(ctx context.Context, org domain.OrgID, deltas []memberrepo.Delta) ([]memberrepo.BalanceChange, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	// Validate first so a missing member leaves every balance untouched.
	for _, d := range deltas {
		if _, ok := r.orgs[org][d.Name]; !ok {
			return nil, memberrepo.ErrNotFound
		}
	}
	out := make([]memberrepo.BalanceChange, 0, len(deltas))
	for _, d := range deltas {
		nb, err := r.adjustLocked(org, d.Name, d.Amount)
		if err != nil {
			return nil, err
		}
		out = append(out, memberrepo.BalanceChange{Name: d.Name, Delta: d.Amount, NewBalance: nb})
	}
	return out, nil
}

func (r *Repo) AppendAlias(ctx context.Context, org domain.OrgID, name domain.MemberName, alias string) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.orgs[org][name]
	if !ok {
		return memberrepo.ErrNotFound
	}
	m.Aliases = append(append([]string(nil), m.Aliases...), alias)
	r.orgs[org][name] = m
	return nil
}

func (r *Repo) adjustLocked(org domain.OrgID, name domain.MemberName, delta decimal.Decimal) (decimal.Decimal, error) {
	m, ok := r.orgs[org][name]
	if !ok {
		return decimal.Decimal{}, memberrepo.ErrNotFound
	}
	m.Balance = m.Balance.Add(delta)
	r.orgs[org][name] = m
	return m.Balance, nil
}

func cloneMember(m domain.Member) domain.Member {
	out := m
	out.Aliases = append([]string(nil), m.Aliases...)
	return out
}
