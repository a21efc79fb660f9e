// Package config loads CLI configuration from the environment.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/Mindburn-Labs/nostrevent/pkg/observability"
)

// Config holds the nostrevent CLI configuration.
type Config struct {
	LogLevel string `env:"NOSTREVENT_LOG_LEVEL" envDefault:"INFO"`

	// SecretKey is the hex private key used by sign. It is removed from the
	// process environment once read.
	SecretKey string `env:"NOSTREVENT_SECRET_KEY,unset"`

	VerifyConcurrency int `env:"NOSTREVENT_VERIFY_CONCURRENCY" envDefault:"0"`

	OTelEnabled     bool          `env:"NOSTREVENT_OTEL_ENABLED" envDefault:"false"`
	OTelEndpoint    string        `env:"NOSTREVENT_OTEL_ENDPOINT" envDefault:"localhost:4317"`
	OTelInsecure    bool          `env:"NOSTREVENT_OTEL_INSECURE" envDefault:"false"`
	OTelSampleRate  float64       `env:"NOSTREVENT_OTEL_SAMPLE_RATE" envDefault:"1.0"`
	OTelEnvironment string        `env:"NOSTREVENT_OTEL_ENVIRONMENT" envDefault:"development"`
	OTelExportEvery time.Duration `env:"NOSTREVENT_OTEL_EXPORT_INTERVAL" envDefault:"15s"`
}

// Load parses the environment into a Config.
func Load() (*Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return nil, err
	}
	if _, err := cfg.SlogLevel(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// SlogLevel maps LogLevel (DEBUG, INFO, WARN, ERROR; any case) to a slog
// level.
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("parse env: NOSTREVENT_LOG_LEVEL: %w", err)
	}
	return level, nil
}

// Observability returns the telemetry settings.
func (c *Config) Observability(version string) *observability.Config {
	oc := observability.DefaultConfig()
	oc.Enabled = c.OTelEnabled
	oc.OTLPEndpoint = c.OTelEndpoint
	oc.Insecure = c.OTelInsecure
	oc.SampleRate = c.OTelSampleRate
	oc.Environment = c.OTelEnvironment
	oc.ExportInterval = c.OTelExportEvery
	if version != "" {
		oc.ServiceVersion = version
	}
	return oc
}

// LogValue implements slog.LogValuer. The secret key is never included.
func (c *Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("log_level", c.LogLevel),
		slog.Bool("secret_key_set", c.SecretKey != ""),
		slog.Int("verify_concurrency", c.VerifyConcurrency),
		slog.Bool("otel_enabled", c.OTelEnabled),
		slog.String("otel_endpoint", c.OTelEndpoint),
	)
}
