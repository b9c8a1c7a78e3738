package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the process configuration, loaded from the environment.
type Config struct {
	Port string `env:"PORT" envDefault:"8080"`

	// StorageBackend selects the repository adapters: "memory" or "postgres".
	StorageBackend string `env:"STORAGE_BACKEND" envDefault:"memory"`
	DatabaseURL    string `env:"DATABASE_URL"`

	// SlackSigningSecret verifies inbound slash-command requests.
	SlackSigningSecret string `env:"SLACK_SIGNING_SECRET"`
	// SlackBotToken is the default credential for log-channel posts; a
	// per-organization bot_api_token setting overrides it.
	SlackBotToken string `env:"SLACK_BOT_TOKEN"`

	// AliasCacheTTL bounds staleness of the per-organization alias index.
	// Zero reloads the index on every request.
	AliasCacheTTL time.Duration `env:"ALIAS_CACHE_TTL" envDefault:"30s"`

	// SettlementMode is "atomic" (all participant deltas in one storage
	// transaction) or "legacy" (independent per-member increments).
	SettlementMode string `env:"SETTLEMENT_MODE" envDefault:"atomic"`

	// CommandTimeout bounds one command's storage and notifier round trips.
	// The chat platform expects a response within 3 seconds.
	CommandTimeout time.Duration `env:"COMMAND_TIMEOUT" envDefault:"2500ms"`
}

// Load parses configuration from environment variables.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	switch cfg.SettlementMode {
	case "atomic", "legacy":
	default:
		return Config{}, fmt.Errorf("invalid SETTLEMENT_MODE %q", cfg.SettlementMode)
	}
	return cfg, nil
}
