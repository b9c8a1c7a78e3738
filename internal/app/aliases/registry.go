// Package aliases resolves user tokens (aliases, pronouns, canonical names)
// against an organization's member registry.
package aliases

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/eastbay-carpool/tokenbot/internal/domain"
	clockport "github.com/eastbay-carpool/tokenbot/internal/ports/out/clock"
	"github.com/eastbay-carpool/tokenbot/internal/ports/out/memberrepo"
)

// Position distinguishes pronoun substitution: in subject position "i"
// resolves to the caller, in object position "me" does.
type Position int

const (
	Subject Position = iota
	Object
)

// Registry maintains a per-organization index from lowercased alias to
// canonical member name. The index is a derived, rebuildable cache over the
// stored member records: entries expire after ttl and are reloaded by a full
// organization scan, and writers invalidate explicitly. ttl=0 reloads on
// every use.
type Registry struct {
	repo memberrepo.Repository
	clk  clockport.Clock
	ttl  time.Duration

	mu   sync.Mutex
	orgs map[domain.OrgID]*orgIndex
}

// orgIndex is immutable once published: readers keep using a snapshot
// after r.mu is released, so writers must replace the index rather than
// mutate byAlias in place.
type orgIndex struct {
	byAlias  map[string]domain.MemberName
	loadedAt time.Time
}

func NewRegistry(repo memberrepo.Repository, clk clockport.Clock, ttl time.Duration) *Registry {
	return &Registry{
		repo: repo,
		clk:  clk,
		ttl:  ttl,
		orgs: make(map[domain.OrgID]*orgIndex),
	}
}

// Resolve maps one token to a canonical member name. Unknown tokens come
// back as-is (lowercased, "@" stripped) so the caller can report a
// non-member by name. Resolving an already-canonical name returns itself.
func (r *Registry) Resolve(ctx context.Context, org domain.OrgID, caller domain.MemberName, token string, pos Position) (domain.MemberName, error) {
	idx, err := r.index(ctx, org)
	if err != nil {
		return "", err
	}
	return resolveOne(idx, caller, token, pos), nil
}

// ResolveAll applies Resolve per token, preserving order without
// deduplication. The connective "and" is dropped when three or more tokens
// are present.
func (r *Registry) ResolveAll(ctx context.Context, org domain.OrgID, caller domain.MemberName, tokens []string, pos Position) ([]domain.MemberName, error) {
	idx, err := r.index(ctx, org)
	if err != nil {
		return nil, err
	}
	out := make([]domain.MemberName, 0, len(tokens))
	for _, tok := range tokens {
		if domain.NormalizeAlias(tok) == "and" && len(tokens) > 2 {
			continue
		}
		out = append(out, resolveOne(idx, caller, tok, pos))
	}
	return out, nil
}

// Register binds a new alias to member. member must already be canonical.
// The stored member record is updated first; the index follows.
func (r *Registry) Register(ctx context.Context, org domain.OrgID, member domain.MemberName, alias string, reserved map[string]struct{}) error {
	lalias := domain.NormalizeAlias(alias)
	if lalias == "" {
		return &Error{Code: ErrCodeReservedWord, Message: "alias must be non-empty"}
	}
	if _, ok := reserved[lalias]; ok {
		return &Error{
			Code:    ErrCodeReservedWord,
			Message: fmt.Sprintf("Alias %q is a reserved word", alias),
		}
	}

	idx, err := r.index(ctx, org)
	if err != nil {
		return err
	}
	if owner, ok := idx.byAlias[lalias]; ok {
		return &Error{
			Code:    ErrCodeAliasConflict,
			Message: fmt.Sprintf("Alias %q already exists for %s", alias, owner),
		}
	}

	if err := r.repo.AppendAlias(ctx, org, member, alias); err != nil {
		return err
	}

	r.mu.Lock()
	if cur, ok := r.orgs[org]; ok {
		next := make(map[string]domain.MemberName, len(cur.byAlias)+1)
		for k, v := range cur.byAlias {
			next[k] = v
		}
		next[lalias] = member
		r.orgs[org] = &orgIndex{byAlias: next, loadedAt: cur.loadedAt}
	}
	r.mu.Unlock()
	return nil
}

// Invalidate drops the organization's cached index. Called after membership
// changes so the next resolution reloads from storage.
func (r *Registry) Invalidate(org domain.OrgID) {
	r.mu.Lock()
	delete(r.orgs, org)
	r.mu.Unlock()
}

func (r *Registry) index(ctx context.Context, org domain.OrgID) (*orgIndex, error) {
	now := r.clk.Now()

	r.mu.Lock()
	if idx, ok := r.orgs[org]; ok && r.ttl > 0 && now.Sub(idx.loadedAt) < r.ttl {
		r.mu.Unlock()
		return idx, nil
	}
	r.mu.Unlock()

	members, err := r.repo.List(ctx, org)
	if err != nil {
		return nil, fmt.Errorf("load alias index: %w", err)
	}
	idx := &orgIndex{
		byAlias:  make(map[string]domain.MemberName, len(members)*2),
		loadedAt: now,
	}
	for _, m := range members {
		idx.byAlias[domain.NormalizeAlias(string(m.Name))] = m.Name
		for _, a := range m.Aliases {
			idx.byAlias[domain.NormalizeAlias(a)] = m.Name
		}
	}

	r.mu.Lock()
	r.orgs[org] = idx
	r.mu.Unlock()
	return idx, nil
}

func resolveOne(idx *orgIndex, caller domain.MemberName, token string, pos Position) domain.MemberName {
	t := domain.NormalizeAlias(token)
	if name, ok := idx.byAlias[t]; ok {
		return name
	}
	if (pos == Object && t == "me") || (pos == Subject && t == "i") {
		return caller
	}
	return domain.MemberName(t) // not a member
}
