package config

import (
	"errors"
	"fmt"

	"github.com/vietddude/fetcher/internal/infra/fetch/retry"
	"github.com/vietddude/fetcher/internal/infra/fetch/transport"
	redisclient "github.com/vietddude/fetcher/internal/infra/redis"
	"github.com/vietddude/fetcher/internal/infra/storage/postgres"
)

// ErrInvalidConfig is returned when a loaded configuration fails validation.
var ErrInvalidConfig = errors.New("invalid config")

// Journal backends.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Upstream server modes.
const (
	ModeDirect = "direct"
	ModeProxy  = "proxy"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Retry     retry.Config       `yaml:"retry"`
	Transport transport.Config   `yaml:"transport"`
	Logging   LoggingConfig      `yaml:"logging"`
	Journal   JournalConfig      `yaml:"journal"`
	Redis     redisclient.Config `yaml:"redis"`
	Database  postgres.Config    `yaml:"database"`
	Server    ServerConfig       `yaml:"server"`
}

// ServerConfig holds settings for the flaky upstream server.
type ServerConfig struct {
	Port int    `yaml:"port"`
	Mode string `yaml:"mode"` // direct, proxy
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// JournalConfig selects where failed fetches are recorded.
type JournalConfig struct {
	Backend string `yaml:"backend"` // memory, redis, postgres
}

// Default returns the configuration used when no file is present.
func Default() *AppConfig {
	cfg := &AppConfig{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry.MaxAttempts = retry.DefaultConfig.MaxAttempts
	}
	if cfg.Retry.InitialDelay == 0 {
		cfg.Retry.InitialDelay = retry.DefaultConfig.InitialDelay
	}
	if cfg.Retry.Multiplier == 0 {
		cfg.Retry.Multiplier = retry.DefaultConfig.Multiplier
	}

	if cfg.Transport.Timeout == 0 {
		cfg.Transport.Timeout = transport.DefaultConfig.Timeout
	}
	if cfg.Transport.MaxBodyBytes == 0 {
		cfg.Transport.MaxBodyBytes = transport.DefaultConfig.MaxBodyBytes
	}
	if cfg.Transport.UserAgent == "" {
		cfg.Transport.UserAgent = transport.DefaultConfig.UserAgent
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Journal.Backend == "" {
		cfg.Journal.Backend = BackendMemory
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = ModeDirect
	}
}

// Validate checks the configuration for values the application cannot run with.
func (c *AppConfig) Validate() error {
	if err := c.Retry.Validate(); err != nil {
		return fmt.Errorf("%w: retry: %v", ErrInvalidConfig, err)
	}
	if c.Transport.Timeout < 0 {
		return fmt.Errorf("%w: transport: timeout must not be negative", ErrInvalidConfig)
	}

	switch c.Journal.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Redis.URL == "" {
			return fmt.Errorf("%w: journal backend redis requires redis.url", ErrInvalidConfig)
		}
	case BackendPostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("%w: journal backend postgres requires database.url", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown journal backend %q", ErrInvalidConfig, c.Journal.Backend)
	}

	switch c.Server.Mode {
	case ModeDirect, ModeProxy:
	default:
		return fmt.Errorf("%w: unknown server mode %q", ErrInvalidConfig, c.Server.Mode)
	}
	return nil
}
