package aliases

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	memclock "github.com/eastbay-carpool/tokenbot/internal/adapters/memory/clock"
	memmemberrepo "github.com/eastbay-carpool/tokenbot/internal/adapters/memory/memberrepo"
	"github.com/eastbay-carpool/tokenbot/internal/domain"
)

const testOrg = domain.OrgID("T0001")

func seedMember(t *testing.T, repo *memmemberrepo.Repo, name domain.MemberName, aliases ...string) {
	t.Helper()
	now := time.Unix(100, 0).UTC()
	if err := repo.Create(context.Background(), domain.Member{
		Org:       testOrg,
		Name:      name,
		Balance:   decimal.NewFromInt(24),
		Aliases:   aliases,
		CreatedAt: now,
		UpdatedAt: now,
	}); err != nil {
		t.Fatalf("seed %s: %v", name, err)
	}
}

func TestRegistry_Resolve(t *testing.T) {
	t.Parallel()

	repo := memmemberrepo.NewRepo()
	clk := memclock.NewManualClock(time.Unix(100, 0).UTC())
	reg := NewRegistry(repo, clk, time.Minute)

	seedMember(t, repo, "bob", "bobby")
	seedMember(t, repo, "alice")

	cases := []struct {
		token string
		pos   Position
		want  domain.MemberName
	}{
		{"bob", Object, "bob"},
		{"@BOB", Object, "bob"},
		{"Bobby", Object, "bob"},
		{"alice", Subject, "alice"},
		{"me", Object, "carol"},
		{"I", Subject, "carol"},
		{"i", Object, "i"},
		{"me", Subject, "me"},
		{"stranger", Object, "stranger"},
	}
	for _, tc := range cases {
		got, err := reg.Resolve(context.Background(), testOrg, "carol", tc.token, tc.pos)
		if err != nil {
			t.Fatalf("Resolve(%q): %v", tc.token, err)
		}
		if got != tc.want {
			t.Fatalf("Resolve(%q) = %q, want %q", tc.token, got, tc.want)
		}
	}
}

func TestRegistry_ResolveAll_DropsConnective(t *testing.T) {
	t.Parallel()

	repo := memmemberrepo.NewRepo()
	clk := memclock.NewManualClock(time.Unix(100, 0).UTC())
	reg := NewRegistry(repo, clk, time.Minute)

	seedMember(t, repo, "bob")
	seedMember(t, repo, "carol")

	got, err := reg.ResolveAll(context.Background(), testOrg, "alice", []string{"bob", "and", "carol"}, Object)
	if err != nil {
		t.Fatalf("ResolveAll: %v", err)
	}
	if len(got) != 2 || got[0] != "bob" || got[1] != "carol" {
		t.Fatalf("got %v, want [bob carol]", got)
	}

	// With exactly two tokens "and" is treated as a name.
	got, err = reg.ResolveAll(context.Background(), testOrg, "alice", []string{"bob", "and"}, Object)
	if err != nil {
		t.Fatalf("ResolveAll: %v", err)
	}
	if len(got) != 2 || got[1] != "and" {
		t.Fatalf("got %v, want [bob and]", got)
	}
}

func TestRegistry_Register(t *testing.T) {
	t.Parallel()

	repo := memmemberrepo.NewRepo()
	clk := memclock.NewManualClock(time.Unix(100, 0).UTC())
	reg := NewRegistry(repo, clk, time.Minute)
	reserved := map[string]struct{}{"give": {}, "and": {}}

	seedMember(t, repo, "bob")
	seedMember(t, repo, "alice")

	if err := reg.Register(context.Background(), testOrg, "bob", "@Bobby", reserved); err != nil {
		t.Fatalf("Register: %v", err)
	}
	got, err := reg.Resolve(context.Background(), testOrg, "alice", "bobby", Object)
	if err != nil || got != "bob" {
		t.Fatalf("Resolve after Register = %q err=%v", got, err)
	}

	// The stored record carries the alias too.
	m, err := repo.Get(context.Background(), testOrg, "bob")
	if err != nil || len(m.Aliases) != 1 || m.Aliases[0] != "@Bobby" {
		t.Fatalf("stored aliases = %#v err=%v", m.Aliases, err)
	}

	ae := (*Error)(nil)

	// Conflict with another member's canonical name.
	err = reg.Register(context.Background(), testOrg, "bob", "Alice", reserved)
	if !errors.As(err, &ae) || ae.Code != ErrCodeAliasConflict {
		t.Fatalf("err=%v, want ALIAS_CONFLICT", err)
	}

	// Conflict with an existing alias, any case.
	err = reg.Register(context.Background(), testOrg, "alice", "BOBBY", reserved)
	if !errors.As(err, &ae) || ae.Code != ErrCodeAliasConflict {
		t.Fatalf("err=%v, want ALIAS_CONFLICT", err)
	}

	// Reserved words are rejected.
	err = reg.Register(context.Background(), testOrg, "bob", "give", reserved)
	if !errors.As(err, &ae) || ae.Code != ErrCodeReservedWord {
		t.Fatalf("err=%v, want RESERVED_WORD", err)
	}
}

func TestRegistry_TTLReload(t *testing.T) {
	t.Parallel()

	repo := memmemberrepo.NewRepo()
	clk := memclock.NewManualClock(time.Unix(100, 0).UTC())
	reg := NewRegistry(repo, clk, time.Minute)

	seedMember(t, repo, "bob")
	if _, err := reg.Resolve(context.Background(), testOrg, "bob", "bob", Object); err != nil {
		t.Fatalf("warm index: %v", err)
	}

	// A member added behind the cache's back is invisible until expiry.
	seedMember(t, repo, "carol")
	got, err := reg.Resolve(context.Background(), testOrg, "bob", "Carol", Object)
	if err != nil || got != "carol" {
		t.Fatalf("Resolve = %q err=%v", got, err)
	}
	// "carol" resolved only by fallthrough; an alias for her does not.
	seedMember(t, repo, "dave", "davey")
	if got, _ := reg.Resolve(context.Background(), testOrg, "bob", "davey", Object); got != "davey" {
		t.Fatalf("stale index resolved %q", got)
	}

	clk.Advance(2 * time.Minute)
	if got, _ := reg.Resolve(context.Background(), testOrg, "bob", "davey", Object); got != "dave" {
		t.Fatalf("expired index resolved %q, want dave", got)
	}
}

func TestRegistry_Invalidate(t *testing.T) {
	t.Parallel()

	repo := memmemberrepo.NewRepo()
	clk := memclock.NewManualClock(time.Unix(100, 0).UTC())
	reg := NewRegistry(repo, clk, time.Hour)

	seedMember(t, repo, "bob")
	if _, err := reg.Resolve(context.Background(), testOrg, "bob", "bob", Object); err != nil {
		t.Fatalf("warm index: %v", err)
	}

	seedMember(t, repo, "erin", "e")
	if got, _ := reg.Resolve(context.Background(), testOrg, "bob", "e", Object); got != "e" {
		t.Fatalf("stale index resolved %q", got)
	}
	reg.Invalidate(testOrg)
	if got, _ := reg.Resolve(context.Background(), testOrg, "bob", "e", Object); got != "erin" {
		t.Fatalf("reloaded index resolved %q, want erin", got)
	}
}

func TestRegistry_ConcurrentResolveAndRegister(t *testing.T) {
	t.Parallel()

	repo := memmemberrepo.NewRepo()
	clk := memclock.NewManualClock(time.Unix(100, 0).UTC())
	reg := NewRegistry(repo, clk, time.Hour)
	reserved := map[string]struct{}{"give": {}}

	seedMember(t, repo, "bob")
	if _, err := reg.Resolve(context.Background(), testOrg, "bob", "bob", Object); err != nil {
		t.Fatalf("warm index: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				got, err := reg.Resolve(context.Background(), testOrg, "bob", "bob", Object)
				if err != nil || got != "bob" {
					t.Errorf("Resolve = %q err=%v", got, err)
					return
				}
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for j := 0; j < 500; j++ {
			alias := fmt.Sprintf("bobby-%d", j)
			if err := reg.Register(context.Background(), testOrg, "bob", alias, reserved); err != nil {
				t.Errorf("Register(%q): %v", alias, err)
				return
			}
		}
	}()
	wg.Wait()

	got, err := reg.Resolve(context.Background(), testOrg, "bob", "bobby-499", Object)
	if err != nil || got != "bob" {
		t.Fatalf("Resolve after registrations = %q err=%v", got, err)
	}
}

func TestRegistry_ZeroTTLReloadsEveryUse(t *testing.T) {
	t.Parallel()

	repo := memmemberrepo.NewRepo()
	clk := memclock.NewManualClock(time.Unix(100, 0).UTC())
	reg := NewRegistry(repo, clk, 0)

	seedMember(t, repo, "bob")
	if _, err := reg.Resolve(context.Background(), testOrg, "bob", "bob", Object); err != nil {
		t.Fatalf("warm index: %v", err)
	}
	seedMember(t, repo, "frank", "f")
	if got, _ := reg.Resolve(context.Background(), testOrg, "bob", "f", Object); got != "frank" {
		t.Fatalf("Resolve = %q, want frank", got)
	}
}
