package settingsrepo

import (
	"context"
	"sync"

	"github.com/eastbay-carpool/tokenbot/internal/domain"
	"github.com/eastbay-carpool/tokenbot/internal/ports/out/settingsrepo"
)

// Repo is an in-memory implementation of settingsrepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	mu sync.RWMutex
	m  map[domain.OrgID]domain.Settings
}

func NewRepo() *Repo {
	return &Repo{m: make(map[domain.OrgID]domain.Settings)}
}

func (r *Repo) Get(ctx context.Context, org domain.OrgID) (domain.Settings, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.m[org]
	if !ok {
		return domain.Settings{}, settingsrepo.ErrNotFound
	}
	return s, nil
}

func (r *Repo) Put(ctx context.Context, s domain.Settings) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m[s.Org] = s
	return nil
}
