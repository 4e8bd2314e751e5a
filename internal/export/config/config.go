package config

import (
	"fmt"
	"strings"
	"time"

	apperrors "verified-export/internal/shared/errors"

	"github.com/caarlos0/env/v6"
)

// RedisConfig holds the optional Redis connection used to publish export events.
type RedisConfig struct {
	// Addr is host:port of the Redis server. Empty disables event publishing.
	Addr     string `env:"REDIS_ADDR" json:"addr"`
	Password string `env:"REDIS_PASSWORD" json:"-"`
	Database int    `env:"REDIS_DB" envDefault:"0" json:"database"`
	// Stream is the Redis stream export events are appended to.
	Stream string `env:"EXPORT_EVENTS_STREAM" envDefault:"verified-export:events" json:"stream"`
	// Timeout bounds each event publish, dialing included.
	Timeout time.Duration `env:"EXPORT_EVENTS_TIMEOUT" envDefault:"500ms" json:"timeout"`
}

// Enabled reports whether events should be published.
func (c RedisConfig) Enabled() bool {
	return c.Addr != ""
}

// Config holds all configuration for the export command.
type Config struct {
	// MongoDBURI carries hosts, credentials and options. Never log it.
	MongoDBURI   string `env:"MONGODB_URI" json:"-"`
	DatabaseName string `env:"DATABASE_NAME" envDefault:"attendance" json:"database_name"`

	OutputDir       string        `env:"EXPORT_OUTPUT_DIR" envDefault:"." json:"output_dir"`
	ConnectTimeout  time.Duration `env:"EXPORT_CONNECT_TIMEOUT" envDefault:"30s" json:"connect_timeout"`
	ContinueOnError bool          `env:"EXPORT_CONTINUE_ON_ERROR" envDefault:"false" json:"continue_on_error"`
	AtomicWrites    bool          `env:"EXPORT_ATOMIC_WRITES" envDefault:"true" json:"atomic_writes"`

	Redis RedisConfig `json:"redis"`
}

// invalidDatabaseNameChars are rejected by MongoDB in database names.
const invalidDatabaseNameChars = "/\\. \"$"

// LoadConfig loads configuration from environment variables and applies defaults.
// It does not validate; call Validate once flag overrides are applied.
func LoadConfig() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, apperrors.NewConfigError("failed to load export configuration from environment").WithCause(err)
	}

	if err := env.Parse(&cfg.Redis); err != nil {
		return nil, apperrors.NewConfigError("failed to load redis configuration from environment").WithCause(err)
	}

	return cfg, nil
}

// DefaultConfig returns a Config with default values and no connection target.
func DefaultConfig() *Config {
	return &Config{
		DatabaseName:   "attendance",
		OutputDir:      ".",
		ConnectTimeout: 30 * time.Second,
		AtomicWrites:   true,
		Redis: RedisConfig{
			Stream:  "verified-export:events",
			Timeout: 500 * time.Millisecond,
		},
	}
}

// Validate checks that the configuration can drive an export run.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.MongoDBURI) == "" {
		return apperrors.NewConfigError("MONGODB_URI environment variable or --uri flag is not set").WithCause(apperrors.ErrMissingURI)
	}
	if c.DatabaseName == "" {
		return apperrors.NewConfigError("database name cannot be empty").WithCause(apperrors.ErrInvalidDatabaseName)
	}
	if strings.ContainsAny(c.DatabaseName, invalidDatabaseNameChars) {
		return apperrors.NewConfigError(fmt.Sprintf("database name %q contains invalid characters", c.DatabaseName)).
			WithCause(apperrors.ErrInvalidDatabaseName)
	}
	if c.ConnectTimeout <= 0 {
		return apperrors.NewConfigError("connect timeout must be positive")
	}
	if c.OutputDir == "" {
		c.OutputDir = "."
	}
	if c.Redis.Enabled() && c.Redis.Stream == "" {
		return apperrors.NewConfigError("events stream name cannot be empty when REDIS_ADDR is set")
	}
	if c.Redis.Enabled() && c.Redis.Timeout <= 0 {
		return apperrors.NewConfigError("events timeout must be positive when REDIS_ADDR is set")
	}
	return nil
}
