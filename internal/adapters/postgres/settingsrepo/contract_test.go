package settingsrepo

import (
	"testing"

	"github.com/eastbay-carpool/tokenbot/internal/adapters/contracttest"
	"github.com/eastbay-carpool/tokenbot/internal/adapters/postgres/testutil"
	settingsrepoport "github.com/eastbay-carpool/tokenbot/internal/ports/out/settingsrepo"
)

func TestContract_PostgresSettingsRepo(t *testing.T) {
	pool := testutil.OpenMigratedPool(t)

	contracttest.RunSettingsRepo(t, func(t *testing.T) (settingsrepoport.Repository, func()) {
		t.Helper()
		return NewRepo(pool), nil
	})
}
