// Package server provides configuration helpers that define runtime defaults,
// file and environment loading, and validation for the chatrelay service.
package server

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	yaml "go.yaml.in/yaml/v3"

	"github.com/Tyrowin/chatrelay/internal/history"
)

// RateLimitConfig defines the parameters for per-connection message rate limiting.
type RateLimitConfig struct {
	Burst          int           `envconfig:"BURST" yaml:"burst" validate:"gt=0"`
	RefillInterval time.Duration `envconfig:"REFILL_INTERVAL" yaml:"refill_interval" validate:"gt=0"`
}

// Config holds the server configuration settings including security controls.
type Config struct {
	Host            string          `envconfig:"HOST" yaml:"host"`
	Port            string          `envconfig:"PORT" yaml:"port" validate:"required,numeric"`
	AllowedOrigins  []string        `envconfig:"ALLOWED_ORIGINS" yaml:"allowed_origins"`
	MaxMessageSize  int64           `envconfig:"MAX_MESSAGE_SIZE" yaml:"max_message_size" validate:"gt=0"`
	SendBufferSize  int             `envconfig:"SEND_BUFFER_SIZE" yaml:"send_buffer_size" validate:"gt=0"`
	HistorySize     int             `envconfig:"HISTORY_SIZE" yaml:"history_size" validate:"gt=0"`
	RateLimit       RateLimitConfig `envconfig:"RATE_LIMIT" yaml:"rate_limit"`
	LogLevel        string          `envconfig:"LOG_LEVEL" yaml:"log_level"`
	LogFormat       string          `envconfig:"LOG_FORMAT" yaml:"log_format" validate:"oneof=console json"`
	StatsSchedule   string          `envconfig:"STATS_SCHEDULE" yaml:"stats_schedule"`
	ShutdownTimeout time.Duration   `envconfig:"SHUTDOWN_TIMEOUT" yaml:"shutdown_timeout" validate:"gt=0"`
}

const (
	defaultPort            = "5000"
	defaultMaxMessageSize  = 4096
	defaultSendBufferSize  = 256
	defaultRateLimitBurst  = 5
	defaultShutdownTimeout = 10 * time.Second
)

var validate = validator.New()

// DefaultConfig returns a Config populated with default values for all settings.
func DefaultConfig() Config {
	return Config{
		Port: defaultPort,
		AllowedOrigins: []string{
			"http://localhost:3000",
			"http://localhost:5000",
		},
		MaxMessageSize: defaultMaxMessageSize,
		SendBufferSize: defaultSendBufferSize,
		HistorySize:    history.DefaultCapacity,
		RateLimit: RateLimitConfig{
			Burst:          defaultRateLimitBurst,
			RefillInterval: time.Second,
		},
		LogLevel:        "info",
		LogFormat:       "console",
		StatsSchedule:   "@every 1m",
		ShutdownTimeout: defaultShutdownTimeout,
	}
}

// LoadConfig layers the configuration sources: defaults, a .env file in the
// working directory (loaded into the process environment), the optional YAML
// file at path (or $CONFIG_FILE), the environment, and finally the
// overrides. The result is sanitized and validated.
func LoadConfig(path string, overrides ...func(*Config)) (Config, error) {
	cfg := DefaultConfig()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, fmt.Errorf("config from environment: %w", err)
	}

	for _, override := range overrides {
		override(&cfg)
	}

	cfg = Sanitize(cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Sanitize replaces missing or out-of-range values with their defaults.
func Sanitize(cfg Config) Config {
	defaults := DefaultConfig()

	cfg.Port = strings.TrimPrefix(strings.TrimSpace(cfg.Port), ":")
	if cfg.Port == "" {
		cfg.Port = defaults.Port
	}

	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = defaults.MaxMessageSize
	}

	if cfg.SendBufferSize <= 0 {
		cfg.SendBufferSize = defaults.SendBufferSize
	}

	if cfg.HistorySize <= 0 {
		cfg.HistorySize = defaults.HistorySize
	}

	if cfg.RateLimit.Burst <= 0 {
		cfg.RateLimit.Burst = defaults.RateLimit.Burst
	}

	if cfg.RateLimit.RefillInterval <= 0 {
		cfg.RateLimit.RefillInterval = defaults.RateLimit.RefillInterval
	}

	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaults.ShutdownTimeout
	}

	cfg.LogFormat = strings.ToLower(strings.TrimSpace(cfg.LogFormat))
	if cfg.LogFormat == "" {
		cfg.LogFormat = defaults.LogFormat
	}

	cfg.AllowedOrigins = append([]string(nil), cfg.AllowedOrigins...)
	for i := range cfg.AllowedOrigins {
		cfg.AllowedOrigins[i] = strings.TrimSpace(cfg.AllowedOrigins[i])
	}

	return cfg
}

// Validate reports settings the server cannot run with.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Addr returns the listen address.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}
