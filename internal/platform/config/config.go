// Package config loads daemon configuration from the environment so main
// stays lean. Parsing goes through caarlos0/env struct tags.
package config

import (
	"time"

	"github.com/caarlos0/env/v11"

	dErrors "vericred/pkg/domain-errors"
)

// Config captures process-level configuration for the sync daemon.
type Config struct {
	Addr     string `env:"VERICRED_ADDR" envDefault:":8080"`
	LogLevel string `env:"VERICRED_LOG_LEVEL" envDefault:"info"`

	// RedisURL switches the credential cache and rate limit buckets to a
	// shared Redis instance when set; empty keeps everything in memory.
	RedisURL string `env:"VERICRED_REDIS_URL"`

	// ChainBaseURL is the chain gateway the sync engine reconciles against.
	ChainBaseURL string        `env:"VERICRED_CHAIN_URL" envDefault:"http://localhost:8545"`
	ChainTimeout time.Duration `env:"VERICRED_CHAIN_TIMEOUT" envDefault:"15s"`

	Sync      SyncConfig      `envPrefix:"VERICRED_SYNC_"`
	RateLimit RateLimitConfig `envPrefix:"VERICRED_RATELIMIT_"`
}

// SyncConfig tunes the auto-sync scheduler.
type SyncConfig struct {
	Interval     time.Duration `env:"INTERVAL" envDefault:"5m"`
	OnStartup    bool          `env:"ON_STARTUP" envDefault:"true"`
	WiFiOnly     bool          `env:"WIFI_ONLY" envDefault:"false"`
	MaxRetries   int           `env:"MAX_RETRIES" envDefault:"3"`
	RetryBackoff float64       `env:"RETRY_BACKOFF" envDefault:"2"`
}

// RateLimitConfig tunes the default verification-path tiers.
type RateLimitConfig struct {
	GlobalPerMinute   int           `env:"GLOBAL_PER_MINUTE" envDefault:"600"`
	VerifierPerMinute int           `env:"VERIFIER_PER_MINUTE" envDefault:"120"`
	DIDPerMinute      int           `env:"DID_PER_MINUTE" envDefault:"30"`
	BurstFactor       float64       `env:"BURST_FACTOR" envDefault:"1.5"`
	CleanupInterval   time.Duration `env:"CLEANUP_INTERVAL" envDefault:"1m"`
}

// FromEnv builds a Config from environment variables.
func FromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, dErrors.Wrap(err, dErrors.CodeConfiguration, "parse environment")
	}
	return cfg, nil
}
