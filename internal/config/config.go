// Package config loads runtime configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the resolved runtime configuration.
type Config struct {
	ListenAddr  string `env:"GATEKEEPER_LISTEN_ADDR" envDefault:":9000"`
	FrontendURL string `env:"GATEKEEPER_FRONTEND_URL" envDefault:"http://localhost:3000"`

	DatabaseURL string `env:"GATEKEEPER_DATABASE_URL,required"`
	RedisURL    string `env:"GATEKEEPER_REDIS_URL" envDefault:"redis://localhost:6379/0"`

	AccessTokenSecret  string `env:"GATEKEEPER_ACCESS_TOKEN_SECRET,required"`
	RefreshTokenSecret string `env:"GATEKEEPER_REFRESH_TOKEN_SECRET,required"`

	AccessTokenTTL  time.Duration `env:"GATEKEEPER_ACCESS_TOKEN_TTL" envDefault:"24h"`
	RefreshTokenTTL time.Duration `env:"GATEKEEPER_REFRESH_TOKEN_TTL" envDefault:"720h"`

	ChainID int `env:"GATEKEEPER_CHAIN_ID" envDefault:"11155111"`

	// HashConcurrency bounds concurrent bcrypt work; 0 means GOMAXPROCS.
	HashConcurrency int `env:"GATEKEEPER_HASH_CONCURRENCY" envDefault:"0"`

	// StorePresentedRefreshToken keeps parity with the legacy backend's
	// refresh behavior. See service.Options.
	StorePresentedRefreshToken bool `env:"GATEKEEPER_STORE_PRESENTED_REFRESH_TOKEN" envDefault:"false"`
}

// Load parses the environment into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
