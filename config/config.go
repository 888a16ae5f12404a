// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Tracking TrackingConfig `yaml:"tracking"`
	Sessions SessionConfig  `yaml:"sessions"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// DatabaseConfig configures the database.
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // "sqlite" (postgres reserved for later)
	DSN    string `yaml:"dsn"`
}

// TrackingConfig configures ingestion behavior.
type TrackingConfig struct {
	// DefaultBodyLimitBytes is used when a tenant has no explicit
	// body_size_limit_bytes.
	DefaultBodyLimitBytes int `yaml:"default_body_limit_bytes"`
	// MaxBatchSize caps the events accepted per batch call.
	MaxBatchSize int `yaml:"max_batch_size"`
}

// SessionConfig configures dashboard sessions.
type SessionConfig struct {
	TTL time.Duration `yaml:"ttl"`
	// PurgeInterval is how often expired sessions are swept.
	PurgeInterval time.Duration `yaml:"purge_interval"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "console"
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"` // Enable /metrics endpoint
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(&cfg)

	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadFromEnv creates configuration entirely from environment variables.
// This is useful for Docker deployments where no config file is needed.
//
// Environment variables:
//
//	PATHTRACKER_DATABASE_DSN         - Database path (default: pathtracker.db)
//	PATHTRACKER_SERVER_HOST          - Server host (default: 0.0.0.0)
//	PATHTRACKER_SERVER_PORT          - Server port (default: 8080)
//	PATHTRACKER_LOG_LEVEL            - Log level: debug, info, warn, error (default: info)
//	PATHTRACKER_LOG_FORMAT           - Log format: json or console (default: json)
//	PATHTRACKER_METRICS_ENABLED      - Enable /metrics endpoint (default: true)
//	PATHTRACKER_SESSION_TTL          - Dashboard session lifetime (default: 24h)
func LoadFromEnv() (*Config, error) {
	var cfg Config

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadWithFallback tries to load from file, falls back to environment
// variables. All settings have workable defaults, so a missing file is
// not an error.
func LoadWithFallback(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return LoadFromEnv()
}

// applyEnvOverrides applies PATHTRACKER_* environment variables to the
// config. Environment variables always override file-based configuration.
func applyEnvOverrides(cfg *Config) {
	// Server configuration
	if v := os.Getenv("PATHTRACKER_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("PATHTRACKER_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("PATHTRACKER_SERVER_READ_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.ReadTimeout = d
		}
	}
	if v := os.Getenv("PATHTRACKER_SERVER_WRITE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.WriteTimeout = d
		}
	}

	// Database configuration
	if v := os.Getenv("PATHTRACKER_DATABASE_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("PATHTRACKER_DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}

	// Tracking configuration
	if v := os.Getenv("PATHTRACKER_TRACKING_BODY_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Tracking.DefaultBodyLimitBytes = n
		}
	}
	if v := os.Getenv("PATHTRACKER_TRACKING_MAX_BATCH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Tracking.MaxBatchSize = n
		}
	}

	// Session configuration
	if v := os.Getenv("PATHTRACKER_SESSION_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Sessions.TTL = d
		}
	}

	// Logging configuration
	if v := os.Getenv("PATHTRACKER_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("PATHTRACKER_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	// Metrics configuration
	if v := os.Getenv("PATHTRACKER_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}
}

// parseBool parses a boolean from common string values.
func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

func setDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 60 * time.Second
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.DSN == "" {
		cfg.Database.DSN = "pathtracker.db"
	}

	if cfg.Tracking.DefaultBodyLimitBytes == 0 {
		cfg.Tracking.DefaultBodyLimitBytes = 10240
	}
	if cfg.Tracking.MaxBatchSize == 0 {
		cfg.Tracking.MaxBatchSize = 100
	}

	if cfg.Sessions.TTL == 0 {
		cfg.Sessions.TTL = 24 * time.Hour
	}
	if cfg.Sessions.PurgeInterval == 0 {
		cfg.Sessions.PurgeInterval = time.Hour
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

func validate(cfg *Config) error {
	if cfg.Database.Driver != "sqlite" {
		return fmt.Errorf("database.driver must be 'sqlite', got %q", cfg.Database.Driver)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}

	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("logging.format must be 'json' or 'console', got %q", cfg.Logging.Format)
	}

	if cfg.Tracking.MaxBatchSize < 1 {
		return fmt.Errorf("tracking.max_batch_size must be positive")
	}

	return nil
}
