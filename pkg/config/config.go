// Package config loads runtime configuration from YAML files. Values may
// reference environment variables with ${VAR} syntax, which keeps credentials
// out of checked-in config files; a .env file in the working directory is
// loaded first when present.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/cecil-the-coder/ai-runtime-kit/pkg/types"
)

// Config is the complete runtime configuration
type Config struct {
	Provider  ProviderConfig  `yaml:"provider"`
	Retry     RetryConfig     `yaml:"retry,omitempty"`
	RateLimit RateLimitConfig `yaml:"rate_limit,omitempty"`
	Logging   LoggingConfig   `yaml:"logging,omitempty"`
}

// ProviderConfig selects and authenticates the provider
type ProviderConfig struct {
	// ID is the provider identifier ("openai", "deepseek", ...). It also
	// drives structured-output strategy selection.
	ID string `yaml:"id"`

	// APIKey is the credential, usually "${SOME_ENV_VAR}"
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default endpoint
	BaseURL string `yaml:"base_url,omitempty"`

	// DefaultModel is used when a call does not name a model
	DefaultModel string `yaml:"default_model,omitempty"`
}

// RetryConfig configures the retry layer
type RetryConfig struct {
	Enabled      bool          `yaml:"enabled"`
	MaxRetries   int           `yaml:"max_retries,omitempty"`
	InitialDelay time.Duration `yaml:"initial_delay,omitempty"`
	MaxDelay     time.Duration `yaml:"max_delay,omitempty"`
}

// RateLimitConfig configures the client-side rate limit layer
type RateLimitConfig struct {
	Enabled           bool    `yaml:"enabled"`
	RequestsPerSecond float64 `yaml:"requests_per_second,omitempty"`
	Burst             int     `yaml:"burst,omitempty"`
}

// LoggingConfig configures the logging layer
type LoggingConfig struct {
	Enabled bool   `yaml:"enabled"`
	Level   string `yaml:"level,omitempty"`
}

// Load reads and parses a YAML config file. A .env file alongside the
// process is applied to the environment first, then ${VAR} references in
// credential and endpoint fields are expanded.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, types.NewConfigurationError(fmt.Sprintf("failed to read config file: %v", err)).WithOriginalErr(err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, types.NewConfigurationError(fmt.Sprintf("failed to parse config file: %v", err)).WithOriginalErr(err)
	}

	cfg.Provider.APIKey = os.ExpandEnv(cfg.Provider.APIKey)
	cfg.Provider.BaseURL = os.ExpandEnv(cfg.Provider.BaseURL)
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Retry.Enabled {
		if c.Retry.MaxRetries == 0 {
			c.Retry.MaxRetries = 3
		}
		if c.Retry.InitialDelay == 0 {
			c.Retry.InitialDelay = 100 * time.Millisecond
		}
		if c.Retry.MaxDelay == 0 {
			c.Retry.MaxDelay = 10 * time.Second
		}
	}
	if c.RateLimit.Enabled {
		if c.RateLimit.RequestsPerSecond == 0 {
			c.RateLimit.RequestsPerSecond = 1
		}
		if c.RateLimit.Burst == 0 {
			c.RateLimit.Burst = 1
		}
	}
	if c.Logging.Enabled && c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Validate checks the configuration for construction-time mistakes
func (c *Config) Validate() error {
	if c.Provider.ID == "" {
		return types.NewConfigurationError("provider.id is required")
	}
	if c.Provider.APIKey == "" && c.Provider.BaseURL == "" {
		return types.NewConfigurationError("provider.api_key or provider.base_url is required")
	}
	if c.Retry.MaxRetries < 0 {
		return types.NewConfigurationError("retry.max_retries must not be negative")
	}
	if c.RateLimit.Enabled && c.RateLimit.RequestsPerSecond < 0 {
		return types.NewConfigurationError("rate_limit.requests_per_second must not be negative")
	}
	return nil
}

// LogLevel maps the configured level name onto a slog level, defaulting to
// info for unknown names
func (c *Config) LogLevel() slog.Level {
	switch c.Logging.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
