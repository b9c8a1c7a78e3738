package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/eastbay-carpool/tokenbot/internal/adapters/httpapi"
	memidempotency "github.com/eastbay-carpool/tokenbot/internal/adapters/memory/idempotency"
	memmemberrepo "github.com/eastbay-carpool/tokenbot/internal/adapters/memory/memberrepo"
	memsettingsrepo "github.com/eastbay-carpool/tokenbot/internal/adapters/memory/settingsrepo"
	memtriplog "github.com/eastbay-carpool/tokenbot/internal/adapters/memory/triplog"
	postgres "github.com/eastbay-carpool/tokenbot/internal/adapters/postgres"
	pgidempotency "github.com/eastbay-carpool/tokenbot/internal/adapters/postgres/idempotency"
	pgmemberrepo "github.com/eastbay-carpool/tokenbot/internal/adapters/postgres/memberrepo"
	pgsettingsrepo "github.com/eastbay-carpool/tokenbot/internal/adapters/postgres/settingsrepo"
	pgtriplog "github.com/eastbay-carpool/tokenbot/internal/adapters/postgres/triplog"
	slacknotifier "github.com/eastbay-carpool/tokenbot/internal/adapters/slack"
	"github.com/eastbay-carpool/tokenbot/internal/app/aliases"
	"github.com/eastbay-carpool/tokenbot/internal/app/commands"
	"github.com/eastbay-carpool/tokenbot/internal/app/trips"
	platformclock "github.com/eastbay-carpool/tokenbot/internal/platform/clock"
	"github.com/eastbay-carpool/tokenbot/internal/platform/config"
	idempotencyport "github.com/eastbay-carpool/tokenbot/internal/ports/out/idempotency"
	memberrepoport "github.com/eastbay-carpool/tokenbot/internal/ports/out/memberrepo"
	settingsrepoport "github.com/eastbay-carpool/tokenbot/internal/ports/out/settingsrepo"
	triplogport "github.com/eastbay-carpool/tokenbot/internal/ports/out/triplog"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	clk := platformclock.NewSystemClock()

	var (
		memberRepo   memberrepoport.Repository
		settingsRepo settingsrepoport.Repository
		idemStore    idempotencyport.Store
		tripLog      triplogport.Log
		cleanup      func()
	)

	switch cfg.StorageBackend {
	case "postgres":
		pool, err := postgres.NewPool(context.Background(), cfg.DatabaseURL, postgres.PoolOptions{})
		if err != nil {
			log.Fatalf("invalid postgres config: %v", err)
		}
		cleanup = pool.Close

		memberRepo = pgmemberrepo.NewRepo(pool)
		settingsRepo = pgsettingsrepo.NewRepo(pool)
		idemStore = pgidempotency.NewStore(pool)
		tripLog = pgtriplog.NewLog(pool)
	default:
		memberRepo = memmemberrepo.NewRepo()
		settingsRepo = memsettingsrepo.NewRepo()
		idemStore = memidempotency.NewStore()
		tripLog = memtriplog.NewLog()
	}

	if cleanup != nil {
		defer cleanup()
	}

	registry := aliases.NewRegistry(memberRepo, clk, cfg.AliasCacheTTL)
	tripSvc := trips.NewService(memberRepo, registry, tripLog, clk, trips.Mode(cfg.SettlementMode))
	notify := slacknotifier.NewNotifier(cfg.SlackBotToken)
	cmdSvc := commands.NewService(memberRepo, settingsRepo, registry, tripSvc, notify, clk)

	if cfg.SlackSigningSecret == "" {
		log.Printf("SLACK_SIGNING_SECRET is empty; request verification disabled")
	}
	slash := httpapi.NewSlashHandler(cmdSvc, idemStore, clk, cfg.SlackSigningSecret, cfg.CommandTimeout)
	handler := httpapi.NewRouter(slash)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("api listening on :%s (storage=%s, settlement=%s)", cfg.Port, cfg.StorageBackend, cfg.SettlementMode)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
