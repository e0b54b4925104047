// ABOUTME: Tests for configuration loading and parsing
// ABOUTME: Covers YAML and TOML loading, env var expansion, env overrides, durations and validation

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	configPath := writeConfig(t, "config.yaml", `
server:
  http_addr: "0.0.0.0:8080"
  timezone: "UTC"

database:
  path: "./test.db"

session:
  cookie_name: "circle"
  secret: "`+testSecret+`"
  duration: "24h"
  sweep_interval: "10m"
  rotate_on_auth: false
  secure_cookies: true

auth:
  min_password_length: 12
  login_burst: 3
  login_refill: "30s"

logging:
  level: "debug"
  format: "json"

metrics:
  enabled: true
  path: "/metrics"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.HTTPAddr != "0.0.0.0:8080" {
		t.Errorf("Server.HTTPAddr = %q, want %q", cfg.Server.HTTPAddr, "0.0.0.0:8080")
	}
	if cfg.Location() != time.UTC {
		t.Errorf("Location() = %v, want UTC", cfg.Location())
	}
	if cfg.Database.Path != "./test.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "./test.db")
	}
	if cfg.Session.CookieName != "circle" {
		t.Errorf("Session.CookieName = %q, want %q", cfg.Session.CookieName, "circle")
	}
	if cfg.Session.Duration != 24*time.Hour {
		t.Errorf("Session.Duration = %v, want 24h", cfg.Session.Duration)
	}
	if cfg.Session.SweepInterval != 10*time.Minute {
		t.Errorf("Session.SweepInterval = %v, want 10m", cfg.Session.SweepInterval)
	}
	if cfg.Session.Rotate() {
		t.Error("Session.Rotate() = true, want false")
	}
	if !cfg.Session.SecureCookies {
		t.Error("Session.SecureCookies = false, want true")
	}
	if cfg.Session.Backend != BackendSQLite {
		t.Errorf("Session.Backend = %q, want default %q", cfg.Session.Backend, BackendSQLite)
	}
	if cfg.Auth.MinPasswordLength != 12 {
		t.Errorf("Auth.MinPasswordLength = %d, want 12", cfg.Auth.MinPasswordLength)
	}
	if cfg.Auth.LoginBurst != 3 || cfg.Auth.LoginRefill != 30*time.Second {
		t.Errorf("Auth login limits = %d/%v, want 3/30s", cfg.Auth.LoginBurst, cfg.Auth.LoginRefill)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v, want debug/json", cfg.Logging)
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Path != "/metrics" {
		t.Errorf("Metrics = %+v, want enabled at /metrics", cfg.Metrics)
	}
}

func TestLoad_Defaults(t *testing.T) {
	configPath := writeConfig(t, "config.yaml", `
session:
  secret: "`+testSecret+`"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.HTTPAddr != "localhost:3500" {
		t.Errorf("Server.HTTPAddr = %q, want localhost:3500", cfg.Server.HTTPAddr)
	}
	if cfg.Session.Duration != 7*24*time.Hour {
		t.Errorf("Session.Duration = %v, want 168h", cfg.Session.Duration)
	}
	if !cfg.Session.Rotate() {
		t.Error("Session.Rotate() = false, want true by default")
	}
	if cfg.Auth.MinPasswordLength != 8 {
		t.Errorf("Auth.MinPasswordLength = %d, want 8", cfg.Auth.MinPasswordLength)
	}
	if cfg.Location() != time.Local {
		t.Errorf("Location() = %v, want Local", cfg.Location())
	}
}

func TestLoad_TOML(t *testing.T) {
	configPath := writeConfig(t, "config.toml", `
[server]
http_addr = "127.0.0.1:9000"

[session]
secret = "`+testSecret+`"
backend = "redis"
duration = "2h"

[redis]
addr = "redis.internal:6379"
db = 2
prefix = "circle"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.HTTPAddr != "127.0.0.1:9000" {
		t.Errorf("Server.HTTPAddr = %q, want 127.0.0.1:9000", cfg.Server.HTTPAddr)
	}
	if cfg.Session.Backend != BackendRedis {
		t.Errorf("Session.Backend = %q, want redis", cfg.Session.Backend)
	}
	if cfg.Session.Duration != 2*time.Hour {
		t.Errorf("Session.Duration = %v, want 2h", cfg.Session.Duration)
	}
	if cfg.Redis.Addr != "redis.internal:6379" || cfg.Redis.DB != 2 || cfg.Redis.Prefix != "circle" {
		t.Errorf("Redis = %+v", cfg.Redis)
	}
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	t.Setenv("TEST_CIRCLE_SECRET", testSecret)
	t.Setenv("TEST_CIRCLE_DB", "/data/circle.db")

	configPath := writeConfig(t, "config.yaml", `
database:
  path: "${TEST_CIRCLE_DB}"
session:
  secret: "${TEST_CIRCLE_SECRET}"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Session.Secret != testSecret {
		t.Errorf("Session.Secret = %q, want expanded value", cfg.Session.Secret)
	}
	if cfg.Database.Path != "/data/circle.db" {
		t.Errorf("Database.Path = %q, want /data/circle.db", cfg.Database.Path)
	}
}

func TestLoad_EnvVarExpansion_UnsetVar(t *testing.T) {
	configPath := writeConfig(t, "config.yaml", `
session:
  secret: "${TEST_CIRCLE_UNSET_SECRET}"
`)

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("Load() expected error for empty secret, got nil")
	}
	if !strings.Contains(err.Error(), "session.secret") {
		t.Errorf("error = %v, want mention of session.secret", err)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("POKERCIRCLE_SERVER_HTTP_ADDR", "0.0.0.0:4000")
	t.Setenv("POKERCIRCLE_SESSION_DURATION", "36h")
	t.Setenv("POKERCIRCLE_AUTH_LOGIN_BURST", "10")
	t.Setenv("POKERCIRCLE_METRICS_ENABLED", "true")

	configPath := writeConfig(t, "config.yaml", `
server:
  http_addr: "localhost:3500"
session:
  secret: "`+testSecret+`"
  duration: "1h"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.HTTPAddr != "0.0.0.0:4000" {
		t.Errorf("Server.HTTPAddr = %q, want env override", cfg.Server.HTTPAddr)
	}
	if cfg.Session.Duration != 36*time.Hour {
		t.Errorf("Session.Duration = %v, want 36h", cfg.Session.Duration)
	}
	if cfg.Auth.LoginBurst != 10 {
		t.Errorf("Auth.LoginBurst = %d, want 10", cfg.Auth.LoginBurst)
	}
	if !cfg.Metrics.Enabled {
		t.Error("Metrics.Enabled = false, want true")
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("POKERCIRCLE_SESSION_SECRET", testSecret)
	t.Setenv("POKERCIRCLE_DATABASE_PATH", "/tmp/env.db")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv() error = %v", err)
	}
	if cfg.Database.Path != "/tmp/env.db" {
		t.Errorf("Database.Path = %q, want /tmp/env.db", cfg.Database.Path)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := writeConfig(t, "config.yaml", "server:\n  http_addr: [unclosed\n")

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	configPath := writeConfig(t, "config.yaml", `
session:
  secret: "`+testSecret+`"
  duration: "a week"
`)

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("Load() expected error for invalid duration, got nil")
	}
	if !strings.Contains(err.Error(), "session.duration") {
		t.Errorf("error = %v, want mention of session.duration", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"short secret", func(c *Config) { c.Session.Secret = "short" }, "session.secret"},
		{"no http addr", func(c *Config) { c.Server.HTTPAddr = "" }, "server.http_addr"},
		{"tailscale without hostname", func(c *Config) { c.Tailscale.Enabled = true }, "tailscale.hostname"},
		{"tailscale replaces http addr", func(c *Config) {
			c.Server.HTTPAddr = ""
			c.Tailscale.Enabled = true
			c.Tailscale.Hostname = "circle"
		}, ""},
		{"bad timezone", func(c *Config) { c.Server.Timezone = "Mars/Olympus" }, "server.timezone"},
		{"no database", func(c *Config) { c.Database.Path = "" }, "database.path"},
		{"unknown backend", func(c *Config) { c.Session.Backend = "memcached" }, "session.backend"},
		{"redis without addr", func(c *Config) {
			c.Session.Backend = BackendRedis
			c.Redis.Addr = ""
		}, "redis.addr"},
		{"zero duration", func(c *Config) { c.Session.Duration = 0 }, "session.duration"},
		{"zero password length", func(c *Config) { c.Auth.MinPasswordLength = 0 }, "auth.min_password_length"},
		{"negative burst", func(c *Config) { c.Auth.LoginBurst = -1 }, "auth.login_burst"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"relative metrics path", func(c *Config) {
			c.Metrics.Enabled = true
			c.Metrics.Path = "metrics"
		}, "metrics.path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Session.Secret = testSecret
			if err := parseDurations(cfg); err != nil {
				t.Fatalf("parseDurations() error = %v", err)
			}
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}
