package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// minSessionSecretLength is the shortest accepted HS256 session key.
const minSessionSecretLength = 32

type Config struct {
	Port      string `env:"PORT,       default=8080"`
	Env       string `env:"ENV,        default=development"`
	LogLevel  string `env:"LOG_LEVEL,  default=info"`
	LogPretty bool   `env:"LOG_PRETTY, default=false"`

	// CORSOrigins lists the browser origins allowed to call the gateway with credentials.
	CORSOrigins []string `env:"CORS_ORIGINS"`

	Auth      AuthConfig
	Session   SessionConfig
	Federated FederatedConfig
	Lockout   LockoutConfig
	RateLimit RateLimitConfig

	Mongo MongoConfig
	Redis RedisConfig
}

type AuthConfig struct {
	// Mode is "live" or "mock"; empty picks mock in development.
	Mode                string   `env:"AUTH_MODE"`
	PublicHost          string   `env:"PUBLIC_HOST"`
	PreviewHostSuffixes []string `env:"PREVIEW_HOST_SUFFIXES, default=.preview.verdantmart.app"`
}

type SessionConfig struct {
	Secret        string        `env:"SESSION_SECRET"`
	IdleTimeout   time.Duration `env:"SESSION_IDLE_TIMEOUT, default=30m"`
	SweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL, default=1m"`
	SecureCookie  bool          `env:"SESSION_SECURE_COOKIE, default=true"`
	// MaxSessions caps mounted sessions; the least recently seen is evicted.
	MaxSessions int `env:"SESSION_MAX, default=10000"`
	// MintPerMinute caps new sessions per client IP; zero disables it.
	MintPerMinute int `env:"SESSION_MINT_PER_MINUTE, default=60"`
}

type FederatedConfig struct {
	Provider string `env:"FEDERATED_PROVIDER, default=google"`
	Secret   string `env:"FEDERATED_SECRET"`
	Issuer   string `env:"FEDERATED_ISSUER"`
}

type LockoutConfig struct {
	WarnAfter   int           `env:"LOCKOUT_WARN_AFTER,   default=3"`
	MaxAttempts int           `env:"LOCKOUT_MAX_ATTEMPTS, default=5"`
	Duration    time.Duration `env:"LOCKOUT_DURATION,     default=15m"`
}

type RateLimitConfig struct {
	// AuthPerMinute caps credential submissions per client IP; zero disables it.
	AuthPerMinute int `env:"RATELIMIT_AUTH_PER_MINUTE, default=30"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=verdantmart"`
}

type RedisConfig struct {
	Addr     string        `env:"REDIS_ADDR,      default=localhost:6379"`
	Password string        `env:"REDIS_PASSWORD"`
	DB       int           `env:"REDIS_DB,        default=0"`
	PoolSize int           `env:"REDIS_POOL_SIZE, default=10"`
	Timeout  time.Duration `env:"REDIS_TIMEOUT,   default=5s"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	return LoadWith(ctx, envconfig.OsLookuper())
}

// LoadWith reads configuration from lookuper.
func LoadWith(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: lookuper}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the settings the live backend cannot run without.
// Mock mode tolerates a missing session secret.
func (c *Config) Validate(mock bool) error {
	var errs []error
	if !mock && len(c.Session.Secret) < minSessionSecretLength {
		errs = append(errs, fmt.Errorf("SESSION_SECRET must be at least %d characters", minSessionSecretLength))
	}
	if c.Session.IdleTimeout <= 0 {
		errs = append(errs, errors.New("SESSION_IDLE_TIMEOUT must be positive"))
	}
	if c.Lockout.MaxAttempts <= 0 {
		errs = append(errs, errors.New("LOCKOUT_MAX_ATTEMPTS must be positive"))
	}
	if c.Session.MaxSessions <= 0 {
		errs = append(errs, errors.New("SESSION_MAX must be positive"))
	}
	if c.Session.MintPerMinute < 0 {
		errs = append(errs, errors.New("SESSION_MINT_PER_MINUTE must not be negative"))
	}
	if c.RateLimit.AuthPerMinute < 0 {
		errs = append(errs, errors.New("RATELIMIT_AUTH_PER_MINUTE must not be negative"))
	}
	return errors.Join(errs...)
}
