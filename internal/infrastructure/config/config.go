package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server       ServerConfig
	StateStorage StateStorageConfig
	Engine       EngineConfig
	Logging      LogConfig
	RateLimit    RateLimitConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"3000"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
}

// StateStorageConfig holds session state persistence configuration.
type StateStorageConfig struct {
	Enabled    bool   `envconfig:"STATE_STORAGE_ENABLED" default:"false"`
	ValkeyHost string `envconfig:"STATE_STORAGE_VALKEY_HOST" default:"localhost"`
	ValkeyPort int    `envconfig:"STATE_STORAGE_VALKEY_PORT" default:"6379"`
	TTLSeconds int    `envconfig:"STATE_STORAGE_TTL" default:"1800"`
}

// TTL returns the configured session state TTL as a duration.
func (c StateStorageConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// Addr returns the Valkey address in host:port form.
func (c StateStorageConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.ValkeyHost, c.ValkeyPort)
}

// EngineConfig holds render engine configuration.
type EngineConfig struct {
	ChromiumPath string `envconfig:"CHROMIUM_PATH" default:""`
	Headless     bool   `envconfig:"ENGINE_HEADLESS" default:"true"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"false"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "3000",
			Host: "0.0.0.0",
		},
		StateStorage: StateStorageConfig{
			Enabled:    false,
			ValkeyHost: "localhost",
			ValkeyPort: 6379,
			TTLSeconds: 1800,
		},
		Engine: EngineConfig{
			Headless: true,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           false,
		},
	}
}
