// Package config loads runtime settings from an optional YAML file overlaid by
// UNIVERSE_-prefixed environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "UNIVERSE_"

// Generator backends.
const (
	BackendOffline = "offline"
	BackendGRPC    = "grpc"
	BackendGenAI   = "genai"
)

// #region types

// Config is the full runtime configuration.
type Config struct {
	DBPath    string          `yaml:"db_path" env:"DB_PATH"`
	LogLevel  string          `yaml:"log_level" env:"LOG_LEVEL"`
	Generator GeneratorConfig `yaml:"generator" envPrefix:"GENERATOR_"`
	Tracing   TracingConfig   `yaml:"tracing" envPrefix:"TRACING_"`
}

// GeneratorConfig selects and tunes the content generator.
type GeneratorConfig struct {
	Backend     string        `yaml:"backend" env:"BACKEND"`
	Addr        string        `yaml:"addr" env:"ADDR"`
	Model       string        `yaml:"model" env:"MODEL"`
	APIKey      string        `yaml:"api_key" env:"API_KEY"`
	Timeout     time.Duration `yaml:"timeout" env:"TIMEOUT"`
	MaxAttempts int           `yaml:"max_attempts" env:"MAX_ATTEMPTS"`
}

// TracingConfig controls OpenTelemetry export.
type TracingConfig struct {
	Enabled     bool   `yaml:"enabled" env:"ENABLED"`
	Endpoint    string `yaml:"endpoint" env:"ENDPOINT"`
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
}

// #endregion types

// #region defaults

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		DBPath:   "universe.db",
		LogLevel: "info",
		Generator: GeneratorConfig{
			Backend:     BackendOffline,
			Addr:        "localhost:50051",
			Timeout:     30 * time.Second,
			MaxAttempts: 1,
		},
		Tracing: TracingConfig{
			ServiceName: "adaptive-universe",
		},
	}
}

// #endregion defaults

// #region load

// Load reads path (skipped when empty), overlays the environment, and
// validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
	}

	if err := ParseEnv(&cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return &cfg, nil
}

// ParseEnv overlays UNIVERSE_ environment variables onto target. Unset
// variables leave existing values alone.
func ParseEnv(target any) error {
	if err := env.ParseWithOptions(target, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// #endregion load

// #region validate

// Validate checks that cfg is usable.
func Validate(cfg *Config) error {
	if strings.TrimSpace(cfg.DBPath) == "" {
		return fmt.Errorf("db_path is required")
	}
	switch strings.ToLower(cfg.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unsupported log_level: %q", cfg.LogLevel)
	}

	g := cfg.Generator
	switch g.Backend {
	case BackendOffline:
	case BackendGRPC:
		if strings.TrimSpace(g.Addr) == "" {
			return fmt.Errorf("generator.addr is required for the grpc backend")
		}
	case BackendGenAI:
		if strings.TrimSpace(g.APIKey) == "" {
			return fmt.Errorf("generator.api_key is required for the genai backend")
		}
	default:
		return fmt.Errorf("unsupported generator.backend: %q", g.Backend)
	}
	if g.MaxAttempts < 1 {
		return fmt.Errorf("generator.max_attempts must be at least 1")
	}
	if g.Timeout < 0 {
		return fmt.Errorf("generator.timeout must not be negative")
	}

	if cfg.Tracing.Enabled && strings.TrimSpace(cfg.Tracing.Endpoint) == "" {
		return fmt.Errorf("tracing.endpoint is required when tracing is enabled")
	}
	return nil
}

// #endregion validate
