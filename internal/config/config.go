// Package config loads service and CLI settings from defaults, an optional
// TOML or YAML file and the environment, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds every tunable of the calculator service.
type Config struct {
	HTTPAddr        string        `toml:"http_addr" yaml:"http_addr"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout" yaml:"shutdown_timeout"`

	Log       LogConfig       `toml:"log" yaml:"log"`
	Telemetry TelemetryConfig `toml:"telemetry" yaml:"telemetry"`
	Calc      CalcConfig      `toml:"calculator" yaml:"calculator"`
}

// LogConfig selects the zap configuration.
type LogConfig struct {
	Level       string `toml:"level" yaml:"level"`
	Development bool   `toml:"development" yaml:"development"`
}

// TelemetryConfig toggles the OTLP exporters.
type TelemetryConfig struct {
	ServiceName string `toml:"service_name" yaml:"service_name"`
	Tracing     bool   `toml:"tracing" yaml:"tracing"`
	OTLPMetrics bool   `toml:"otlp_metrics" yaml:"otlp_metrics"`
	OTLPLogs    bool   `toml:"otlp_logs" yaml:"otlp_logs"`
}

// CalcConfig configures the calculator engine and session store.
type CalcConfig struct {
	Functions       bool `toml:"functions" yaml:"functions"`
	StrictNonFinite bool `toml:"strict_non_finite" yaml:"strict_non_finite"`
	MaxSessions     int  `toml:"max_sessions" yaml:"max_sessions"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		HTTPAddr:        ":8080",
		ShutdownTimeout: 5 * time.Second,
		Log: LogConfig{
			Level: "info",
		},
		Telemetry: TelemetryConfig{
			ServiceName: "pocket-calculator",
			Tracing:     true,
			OTLPMetrics: true,
		},
		Calc: CalcConfig{
			Functions:   true,
			MaxSessions: 1024,
		},
	}
}

// Load builds the configuration. path may be empty, in which case CALC_CONFIG
// is consulted; a missing file is not an error.
func Load(path string) (Config, error) {
	if err := LoadDotEnv(); err != nil {
		return Config{}, err
	}

	cfg := Default()

	if path == "" {
		path = os.Getenv("CALC_CONFIG")
	}
	if path != "" {
		if err := LoadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := ApplyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadDotEnv loads environment variables from .env when present.
// Existing process environment variables are not overridden.
func LoadDotEnv() error {
	err := godotenv.Load()
	if err == nil {
		return nil
	}

	if errors.Is(err, os.ErrNotExist) {
		return nil
	}

	return fmt.Errorf("load .env: %w", err)
}

// LoadFile decodes the file at path over cfg. The format follows the file
// extension: .toml, .yaml or .yml.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return fmt.Errorf("decode toml config %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("decode yaml config %s: %w", path, err)
		}
	default:
		return fmt.Errorf("config %s: unsupported extension %q", path, ext)
	}
	return nil
}

// ApplyEnv overrides cfg with the environment variables found by lookup.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	boolean := func(key string, dst *bool) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parse %s: %w", key, err)
		}
		*dst = b
		return nil
	}

	str("HTTP_ADDR", &cfg.HTTPAddr)
	str("LOG_LEVEL", &cfg.Log.Level)
	str("OTEL_SERVICE_NAME", &cfg.Telemetry.ServiceName)

	for key, dst := range map[string]*bool{
		"LOG_DEVELOPMENT":        &cfg.Log.Development,
		"TRACING_ENABLED":        &cfg.Telemetry.Tracing,
		"OTLP_METRICS_ENABLED":   &cfg.Telemetry.OTLPMetrics,
		"OTLP_LOGS_ENABLED":      &cfg.Telemetry.OTLPLogs,
		"CALC_FUNCTIONS":         &cfg.Calc.Functions,
		"CALC_STRICT_NON_FINITE": &cfg.Calc.StrictNonFinite,
	} {
		if err := boolean(key, dst); err != nil {
			return err
		}
	}

	if v, ok := lookup("MAX_SESSIONS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse MAX_SESSIONS: %w", err)
		}
		cfg.Calc.MaxSessions = n
	}

	if v, ok := lookup("SHUTDOWN_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse SHUTDOWN_TIMEOUT: %w", err)
		}
		cfg.ShutdownTimeout = d
	}

	return nil
}

// Validate rejects settings the service cannot start with.
func (c Config) Validate() error {
	if c.HTTPAddr == "" {
		return errors.New("http address is empty")
	}
	if c.Calc.MaxSessions < 1 {
		return fmt.Errorf("max sessions must be positive, got %d", c.Calc.MaxSessions)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown timeout must be positive, got %s", c.ShutdownTimeout)
	}
	if c.Telemetry.ServiceName == "" {
		return errors.New("service name is empty")
	}
	return nil
}
