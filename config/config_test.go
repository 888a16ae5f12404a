package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pathtracker/pathtracker/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pathtracker.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, "")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Host = %q, want 0.0.0.0", cfg.Server.Host)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("Driver = %q, want sqlite", cfg.Database.Driver)
	}
	if cfg.Database.DSN != "pathtracker.db" {
		t.Errorf("DSN = %q, want pathtracker.db", cfg.Database.DSN)
	}
	if cfg.Tracking.DefaultBodyLimitBytes != 10240 {
		t.Errorf("DefaultBodyLimitBytes = %d, want 10240", cfg.Tracking.DefaultBodyLimitBytes)
	}
	if cfg.Tracking.MaxBatchSize != 100 {
		t.Errorf("MaxBatchSize = %d, want 100", cfg.Tracking.MaxBatchSize)
	}
	if cfg.Sessions.TTL != 24*time.Hour {
		t.Errorf("TTL = %v, want 24h", cfg.Sessions.TTL)
	}
	if cfg.Sessions.PurgeInterval != time.Hour {
		t.Errorf("PurgeInterval = %v, want 1h", cfg.Sessions.PurgeInterval)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %q/%q, want info/json", cfg.Logging.Level, cfg.Logging.Format)
	}
}

func TestLoad_FileValues(t *testing.T) {
	path := writeConfig(t, `
server:
  host: "127.0.0.1"
  port: 9090
  read_timeout: 10s
database:
  dsn: "/var/lib/pathtracker/data.db"
tracking:
  default_body_limit_bytes: 4096
sessions:
  ttl: 1h
logging:
  level: debug
  format: console
metrics:
  enabled: true
`)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9090 {
		t.Errorf("Server = %s:%d", cfg.Server.Host, cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 10*time.Second {
		t.Errorf("ReadTimeout = %v, want 10s", cfg.Server.ReadTimeout)
	}
	if cfg.Database.DSN != "/var/lib/pathtracker/data.db" {
		t.Errorf("DSN = %q", cfg.Database.DSN)
	}
	if cfg.Tracking.DefaultBodyLimitBytes != 4096 {
		t.Errorf("DefaultBodyLimitBytes = %d, want 4096", cfg.Tracking.DefaultBodyLimitBytes)
	}
	if cfg.Sessions.TTL != time.Hour {
		t.Errorf("TTL = %v, want 1h", cfg.Sessions.TTL)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "console" {
		t.Errorf("Logging = %q/%q", cfg.Logging.Level, cfg.Logging.Format)
	}
	if !cfg.Metrics.Enabled {
		t.Error("Metrics.Enabled = false, want true")
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("TEST_PT_DSN", "expanded.db")
	path := writeConfig(t, "database:\n  dsn: ${TEST_PT_DSN}\n")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Database.DSN != "expanded.db" {
		t.Errorf("DSN = %q, want expanded.db", cfg.Database.DSN)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("PATHTRACKER_SERVER_PORT", "7070")
	t.Setenv("PATHTRACKER_LOG_LEVEL", "warn")
	path := writeConfig(t, "server:\n  port: 9090\nlogging:\n  level: debug\n")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("Port = %d, want env override 7070", cfg.Server.Port)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Level = %q, want env override warn", cfg.Logging.Level)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "server: [not a map\n")

	if _, err := config.Load(path); err == nil {
		t.Fatal("Load() must fail on malformed YAML")
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantMsg string
	}{
		{
			name:    "unsupported driver",
			content: "database:\n  driver: postgres\n",
			wantMsg: "database.driver",
		},
		{
			name:    "bad log level",
			content: "logging:\n  level: verbose\n",
			wantMsg: "logging.level",
		},
		{
			name:    "bad log format",
			content: "logging:\n  format: xml\n",
			wantMsg: "logging.format",
		},
		{
			name:    "negative batch size",
			content: "tracking:\n  max_batch_size: -5\n",
			wantMsg: "max_batch_size",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.content)
			_, err := config.Load(path)
			if err == nil {
				t.Fatal("Load() must fail")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error = %v, want mention of %q", err, tt.wantMsg)
			}
		})
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PATHTRACKER_DATABASE_DSN", "env-only.db")
	t.Setenv("PATHTRACKER_METRICS_ENABLED", "yes")
	t.Setenv("PATHTRACKER_SESSION_TTL", "90m")

	cfg, err := config.LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v", err)
	}
	if cfg.Database.DSN != "env-only.db" {
		t.Errorf("DSN = %q, want env-only.db", cfg.Database.DSN)
	}
	if !cfg.Metrics.Enabled {
		t.Error("Metrics.Enabled = false, want true")
	}
	if cfg.Sessions.TTL != 90*time.Minute {
		t.Errorf("TTL = %v, want 90m", cfg.Sessions.TTL)
	}
}

func TestLoadWithFallback_MissingFile(t *testing.T) {
	cfg, err := config.LoadWithFallback(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadWithFallback() error = %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Port = %d, want default 8080", cfg.Server.Port)
	}
}

func TestLoadWithFallback_ExistingFile(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 6060\n")

	cfg, err := config.LoadWithFallback(path)
	if err != nil {
		t.Fatalf("LoadWithFallback() error = %v", err)
	}
	if cfg.Server.Port != 6060 {
		t.Errorf("Port = %d, want 6060", cfg.Server.Port)
	}
}
