// Copyright (c) 2026 Tsundoku. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values. A local '.env' file is
read first when present (joho/godotenv) so a single-machine install needs no shell setup.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (Store, Redis, Throttle policy) via constructors.
  - Zero Hidden State: No global variables are used to store config.
*/
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// # Configuration Schema

// Config holds all runtime configuration for the Tsundoku API server and CLI.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// Library document and cover cache locations
	DataFile  string `env:"DATA_FILE"  envDefault:"./data/library.json"`
	CoversDir string `env:"COVERS_DIR" envDefault:"./public/book-covers"`

	// Session signing and bootstrap credential
	SessionSecret   string        `env:"SESSION_SECRET,required,notEmpty"`
	SessionTTL      time.Duration `env:"SESSION_TTL"      envDefault:"24h"`
	DefaultPassword string        `env:"DEFAULT_PASSWORD" envDefault:"admin123"`

	// External catalogs
	ComicVineAPIKey   string        `env:"COMIC_VINE_API_KEY"`
	ImageFetchTimeout time.Duration `env:"IMAGE_FETCH_TIMEOUT" envDefault:"30s"`

	// Optional search cache (Redis). Empty disables caching.
	RedisURL       string        `env:"REDIS_URL"`
	SearchCacheTTL time.Duration `env:"SEARCH_CACHE_TTL" envDefault:"15m"`

	// Login throttling policy
	LoginMaxAttempts int             `env:"LOGIN_MAX_ATTEMPTS" envDefault:"5"`
	LoginLockout     time.Duration   `env:"LOGIN_LOCKOUT"      envDefault:"15m"`
	LoginWindow      time.Duration   `env:"LOGIN_WINDOW"       envDefault:"60m"`
	LoginDelays      []time.Duration `env:"LOGIN_DELAYS"       envDefault:"0s,1s,2s,5s,10s" envSeparator:","`

	// Cross-Origin Resource Sharing
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`
}

// # Configuration Loading

// Load reads an optional .env file and parses environment variables into a [Config] struct.
func Load() (*Config, error) {

	// Variables already present in the environment win over the .env file.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: failed to read .env file: %w", err)
	}

	cfg := &Config{}

	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate rejects settings that would make the throttle or the fetcher misbehave.
func (c *Config) validate() error {
	if c.LoginMaxAttempts < 1 {
		return fmt.Errorf("config: LOGIN_MAX_ATTEMPTS must be at least 1")
	}
	if len(c.LoginDelays) == 0 {
		return fmt.Errorf("config: LOGIN_DELAYS must not be empty")
	}
	for i := 1; i < len(c.LoginDelays); i++ {
		if c.LoginDelays[i] < c.LoginDelays[i-1] {
			return fmt.Errorf("config: LOGIN_DELAYS must be non-decreasing")
		}
	}
	if c.ImageFetchTimeout <= 0 {
		return fmt.Errorf("config: IMAGE_FETCH_TIMEOUT must be positive")
	}
	return nil
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
