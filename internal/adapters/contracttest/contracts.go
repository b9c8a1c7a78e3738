package contracttest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/eastbay-carpool/tokenbot/internal/domain"
	idempotencyport "github.com/eastbay-carpool/tokenbot/internal/ports/out/idempotency"
	memberrepoport "github.com/eastbay-carpool/tokenbot/internal/ports/out/memberrepo"
	settingsrepoport "github.com/eastbay-carpool/tokenbot/internal/ports/out/settingsrepo"
)

type CleanupFunc = func()

type MemberRepoFactory func(t *testing.T) (memberrepoport.Repository, CleanupFunc)
type SettingsRepoFactory func(t *testing.T) (settingsrepoport.Repository, CleanupFunc)
type IdemStoreFactory func(t *testing.T) (idempotencyport.Store, CleanupFunc)

func RunMemberRepo(t *testing.T, newRepo MemberRepoFactory) {
	t.Helper()
	ctx := context.Background()

	repo, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	now := time.Unix(1000, 0).UTC()
	org := domain.OrgID("T0001")
	if err := repo.Create(ctx, domain.Member{
		Org:       org,
		Name:      "alice",
		Balance:   decimal.NewFromInt(24),
		CreatedAt: now,
		UpdatedAt: now,
	}); err != nil {
		t.Fatalf("Create alice: %v", err)
	}
	if _, err := repo.Get(ctx, org, "alice"); err != nil {
		t.Fatalf("Get: %v", err)
	}

	// Name uniqueness within the organization.
	if err := repo.Create(ctx, domain.Member{
		Org:       org,
		Name:      "alice",
		Balance:   decimal.Zero,
		CreatedAt: now,
		UpdatedAt: now,
	}); !errors.Is(err, memberrepoport.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	// The same name is free in a different organization.
	if err := repo.Create(ctx, domain.Member{
		Org:       domain.OrgID("T0002"),
		Name:      "alice",
		Balance:   decimal.Zero,
		CreatedAt: now,
		UpdatedAt: now,
	}); err != nil {
		t.Fatalf("Create in other org: %v", err)
	}

	// Atomic single-member increment.
	nb, err := repo.AdjustBalance(ctx, org, "alice", decimal.NewFromInt(-4))
	if err != nil {
		t.Fatalf("AdjustBalance: %v", err)
	}
	if !nb.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("balance = %s, want 20", nb)
	}
	if _, err := repo.AdjustBalance(ctx, org, "nobody", decimal.NewFromInt(1)); !errors.Is(err, memberrepoport.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	// AdjustAll is all or nothing: a single unknown name leaves every
	// balance untouched.
	if err := repo.Create(ctx, domain.Member{
		Org:       org,
		Name:      "bob",
		Balance:   decimal.NewFromInt(24),
		CreatedAt: now,
		UpdatedAt: now,
	}); err != nil {
		t.Fatalf("Create bob: %v", err)
	}
	_, err = repo.AdjustAll(ctx, org, []memberrepoport.Delta{
		{Name: "alice", Amount: decimal.NewFromInt(8)},
		{Name: "ghost", Amount: decimal.NewFromInt(-8)},
	})
	if !errors.Is(err, memberrepoport.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	got, err := repo.Get(ctx, org, "alice")
	if err != nil {
		t.Fatalf("Get after failed AdjustAll: %v", err)
	}
	if !got.Balance.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("balance changed by failed AdjustAll: %s", got.Balance)
	}

	// Deltas arrive in no particular order; adapters may reorder them.
	changes, err := repo.AdjustAll(ctx, org, []memberrepoport.Delta{
		{Name: "bob", Amount: decimal.NewFromInt(-4)},
		{Name: "alice", Amount: decimal.NewFromInt(4)},
	})
	if err != nil {
		t.Fatalf("AdjustAll: %v", err)
	}
	if len(changes) != 2 {
		t.Fatalf("got %d changes, want 2", len(changes))
	}
	byName := map[domain.MemberName]memberrepoport.BalanceChange{}
	for _, c := range changes {
		byName[c.Name] = c
	}
	if !byName["alice"].NewBalance.Equal(decimal.NewFromInt(24)) {
		t.Fatalf("alice balance = %s, want 24", byName["alice"].NewBalance)
	}
	if !byName["bob"].NewBalance.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("bob balance = %s, want 20", byName["bob"].NewBalance)
	}

	// Alias append is a single write and preserves order.
	if err := repo.AppendAlias(ctx, org, "alice", "al"); err != nil {
		t.Fatalf("AppendAlias: %v", err)
	}
	if err := repo.AppendAlias(ctx, org, "alice", "ally"); err != nil {
		t.Fatalf("AppendAlias second: %v", err)
	}
	if err := repo.AppendAlias(ctx, org, "nobody", "x"); !errors.Is(err, memberrepoport.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	got, err = repo.Get(ctx, org, "alice")
	if err != nil {
		t.Fatalf("Get after AppendAlias: %v", err)
	}
	if len(got.Aliases) != 2 || got.Aliases[0] != "al" || got.Aliases[1] != "ally" {
		t.Fatalf("unexpected aliases: %#v", got.Aliases)
	}

	// List scopes to the organization.
	ms, err := repo.List(ctx, org)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(ms) != 2 {
		t.Fatalf("got %d members, want 2", len(ms))
	}
}

func RunSettingsRepo(t *testing.T, newRepo SettingsRepoFactory) {
	t.Helper()
	ctx := context.Background()

	repo, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	org := domain.OrgID("T1000")
	if _, err := repo.Get(ctx, org); !errors.Is(err, settingsrepoport.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	st := domain.DefaultSettings(org)
	if err := repo.Put(ctx, st); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := repo.Get(ctx, org)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.LogChannelName != "logbook" || !got.TripCost.Equal(decimal.NewFromInt(12)) {
		t.Fatalf("unexpected settings: %+v", got)
	}

	// Put replaces the whole record.
	st.TripCost = decimal.NewFromInt(15)
	st.BotAPIToken = "xoxb-secret"
	if err := repo.Put(ctx, st); err != nil {
		t.Fatalf("Put replace: %v", err)
	}
	got, err = repo.Get(ctx, org)
	if err != nil {
		t.Fatalf("Get after replace: %v", err)
	}
	if !got.TripCost.Equal(decimal.NewFromInt(15)) || got.BotAPIToken != "xoxb-secret" {
		t.Fatalf("unexpected settings after replace: %+v", got)
	}
}

func RunIdempotencyStore(t *testing.T, newStore IdemStoreFactory) {
	t.Helper()
	ctx := context.Background()

	store, cleanup := newStore(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	fp := idempotencyport.Fingerprint{
		Org:       domain.OrgID("T0001"),
		User:      "alice",
		TriggerID: "trig-1",
		BodyHash:  "abc123",
	}
	if _, ok, err := store.Get(ctx, fp); err != nil || ok {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}

	rec := idempotencyport.Record{
		StatusCode:  200,
		ContentType: "application/json",
		Body:        []byte(`{"text":"ok"}`),
		CreatedAt:   time.Unix(123, 0).UTC(),
	}
	if err := store.Put(ctx, fp, rec); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok, err := store.Get(ctx, fp)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatalf("expected ok=true")
	}
	if got.StatusCode != 200 || got.ContentType != "application/json" || string(got.Body) != `{"text":"ok"}` {
		t.Fatalf("unexpected record: %+v", got)
	}

	// First-writer-wins: a second Put for the same delivery does not
	// clobber the stored response.
	rec2 := rec
	rec2.Body = []byte(`{"text":"later"}`)
	if err := store.Put(ctx, fp, rec2); err != nil {
		t.Fatalf("Put duplicate: %v", err)
	}
	got, ok, err = store.Get(ctx, fp)
	if err != nil || !ok {
		t.Fatalf("Get after duplicate Put: ok=%v err=%v", ok, err)
	}
	if string(got.Body) != `{"text":"ok"}` {
		t.Fatalf("duplicate Put clobbered record: %q", string(got.Body))
	}

	// A different body hash is a different delivery.
	fp2 := fp
	fp2.BodyHash = "def456"
	if _, ok, err := store.Get(ctx, fp2); err != nil || ok {
		t.Fatalf("expected miss for other hash, got ok=%v err=%v", ok, err)
	}
}
