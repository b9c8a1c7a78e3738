package memberrepo

import (
	"testing"

	"github.com/eastbay-carpool/tokenbot/internal/adapters/contracttest"
	"github.com/eastbay-carpool/tokenbot/internal/adapters/postgres/testutil"
	memberrepoport "github.com/eastbay-carpool/tokenbot/internal/ports/out/memberrepo"
)

func TestContract_PostgresMemberRepo(t *testing.T) {
	pool := testutil.OpenMigratedPool(t)

	contracttest.RunMemberRepo(t, func(t *testing.T) (memberrepoport.Repository, func()) {
		t.Helper()
		return NewRepo(pool), nil
	})
}
