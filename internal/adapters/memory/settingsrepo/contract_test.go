package settingsrepo

import (
	"testing"

	"github.com/eastbay-carpool/tokenbot/internal/adapters/contracttest"
	settingsrepoport "github.com/eastbay-carpool/tokenbot/internal/ports/out/settingsrepo"
)

func TestContract_SettingsRepo(t *testing.T) {
	contracttest.RunSettingsRepo(t, func(t *testing.T) (settingsrepoport.Repository, func()) {
		t.Helper()
		return NewRepo(), nil
	})
}
