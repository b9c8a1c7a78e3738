package idempotency

import (
	"testing"

	"github.com/eastbay-carpool/tokenbot/internal/adapters/contracttest"
	idempotencyport "github.com/eastbay-carpool/tokenbot/internal/ports/out/idempotency"
)

func TestContract_IdempotencyStore(t *testing.T) {
	contracttest.RunIdempotencyStore(t, func(t *testing.T) (idempotencyport.Store, func()) {
		t.Helper()
		return NewStore(), nil
	})
}
