// Package config loads application configuration from the environment.
package config

import (
	"time"

	"github.com/joeshaw/envdecode"
)

// Config holds all runtime settings. Values are read once at startup and
// treated as immutable.
type Config struct {
	// Storage
	StorageDir    string `env:"AGROSENSE_STORAGE_DIR"`
	RedisAddr     string `env:"AGROSENSE_REDIS_ADDR"`
	RedisPassword string `env:"AGROSENSE_REDIS_PASSWORD"`
	RedisDB       int    `env:"AGROSENSE_REDIS_DB,default=0"`

	// Backing data store
	DatabaseDSN string `env:"AGROSENSE_DATABASE_DSN"`

	// Auth
	SignKey     string        `env:"AGROSENSE_SIGN_KEY"`
	AccessTTL   time.Duration `env:"AGROSENSE_ACCESS_TTL,default=24h"`
	IdleTimeout time.Duration `env:"AGROSENSE_IDLE_TIMEOUT,default=30m"`
	LoginWindow time.Duration `env:"AGROSENSE_LOGIN_WINDOW,default=5m"`
	LoginMax    int           `env:"AGROSENSE_LOGIN_MAX_FAILS,default=5"`

	// Cache
	StaleTime    time.Duration `env:"AGROSENSE_CACHE_STALE_TIME,default=5m"`
	FetchTimeout time.Duration `env:"AGROSENSE_FETCH_TIMEOUT,default=10s"`
	FetchRetries int           `env:"AGROSENSE_FETCH_RETRIES,default=3"`
	CacheMaxIdle time.Duration `env:"AGROSENSE_CACHE_MAX_IDLE,default=30m"`
}

// Load decodes the configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil {
		// StrictDecode would fail on structs with no required fields set;
		// all fields here carry defaults or are optional.
		if err != envdecode.ErrNoTargetFieldsAreSet {
			return nil, err
		}
	}
	return &cfg, nil
}
