// Package config loads the service configuration from environment variables.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	Environment string
	ListenAddr  string

	// DatabaseURL is the postgres DSN. When empty outside production the
	// service falls back to the in-memory stores.
	DatabaseURL string

	// RedisAddr enables the rate limiter and display-name cache when set.
	RedisAddr string

	// NATSURL enables transfer event publishing when set.
	NATSURL string

	// AuditDBPath enables the sqlite audit chain when set.
	AuditDBPath string

	JWTSecret string
	TokenTTL  time.Duration

	MaxBodyBytes          int64
	RateLimitCapacity     int
	RateLimitRefillPerSec int
}

// Load reads configuration from the environment and validates it.
func Load() (*Config, error) {
	cfg := &Config{
		Environment:           getenv("APP_ENV", "development"),
		ListenAddr:            getenv("LISTEN_ADDR", ":8080"),
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		RedisAddr:             os.Getenv("REDIS_ADDR"),
		NATSURL:               os.Getenv("NATS_URL"),
		AuditDBPath:           os.Getenv("AUDIT_DB"),
		JWTSecret:             os.Getenv("JWT_SECRET"),
		TokenTTL:              getenvDuration("TOKEN_TTL", 24*time.Hour),
		MaxBodyBytes:          int64(getenvInt("MAX_BODY_BYTES", 1<<20)),
		RateLimitCapacity:     getenvInt("RATE_LIMIT_CAPACITY", 20),
		RateLimitRefillPerSec: getenvInt("RATE_LIMIT_REFILL_PER_SEC", 10),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is complete for its environment.
func (c *Config) Validate() error {
	var missing []string

	if c.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}

	// The in-memory fallback store is for development only.
	if c.Environment == "production" || c.Environment == "staging" {
		if c.DatabaseURL == "" {
			missing = append(missing, "DATABASE_URL")
		}
	}

	if len(missing) > 0 {
		return errors.New("missing required environment variables: " + strings.Join(missing, ", "))
	}
	return nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getenvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
