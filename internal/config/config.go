// ABOUTME: Configuration loading and parsing for pokercircle
// ABOUTME: Supports YAML or TOML files with ${VAR} expansion, POKERCIRCLE_ env overrides and duration parsing

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. POKERCIRCLE_SESSION_SECRET.
const EnvPrefix = "POKERCIRCLE_"

// MinSecretLength is the minimum length of session.secret in bytes.
const MinSecretLength = 32

// Session backends.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Config represents the complete pokercircle configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" toml:"server" envPrefix:"SERVER_"`
	Tailscale TailscaleConfig `yaml:"tailscale" toml:"tailscale" envPrefix:"TAILSCALE_"`
	Database  DatabaseConfig  `yaml:"database" toml:"database" envPrefix:"DATABASE_"`
	Session   SessionConfig   `yaml:"session" toml:"session" envPrefix:"SESSION_"`
	Redis     RedisConfig     `yaml:"redis" toml:"redis" envPrefix:"REDIS_"`
	Auth      AuthConfig      `yaml:"auth" toml:"auth" envPrefix:"AUTH_"`
	Logging   LoggingConfig   `yaml:"logging" toml:"logging" envPrefix:"LOGGING_"`
	Metrics   MetricsConfig   `yaml:"metrics" toml:"metrics" envPrefix:"METRICS_"`
}

// ServerConfig holds the listen address
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr" toml:"http_addr" env:"HTTP_ADDR"`
	// Timezone names the location used for log dates and month windows. Empty means local time.
	Timezone string `yaml:"timezone" toml:"timezone" env:"TIMEZONE"`
}

// TailscaleConfig holds Tailscale tsnet configuration
type TailscaleConfig struct {
	Enabled   bool   `yaml:"enabled" toml:"enabled" env:"ENABLED"`
	Hostname  string `yaml:"hostname" toml:"hostname" env:"HOSTNAME"`
	AuthKey   string `yaml:"auth_key" toml:"auth_key" env:"AUTH_KEY"`
	StateDir  string `yaml:"state_dir" toml:"state_dir" env:"STATE_DIR"`
	Ephemeral bool   `yaml:"ephemeral" toml:"ephemeral" env:"EPHEMERAL"`
	HTTPS     bool   `yaml:"https" toml:"https" env:"HTTPS"` // Serve HTTPS with Tailscale certs on :443
	Funnel    bool   `yaml:"funnel" toml:"funnel" env:"FUNNEL"` // Enable public Funnel (implies HTTPS)
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path string `yaml:"path" toml:"path" env:"PATH"`
}

// SessionConfig holds session cookie and storage configuration
type SessionConfig struct {
	CookieName string `yaml:"cookie_name" toml:"cookie_name" env:"COOKIE_NAME"`
	Secret     string `yaml:"secret" toml:"secret" env:"SECRET"`
	Backend    string `yaml:"backend" toml:"backend" env:"BACKEND"`
	// RotateOnAuth defaults to true when unset. It has no environment override.
	RotateOnAuth  *bool `yaml:"rotate_on_auth" toml:"rotate_on_auth"`
	SecureCookies bool  `yaml:"secure_cookies" toml:"secure_cookies" env:"SECURE_COOKIES"`

	Duration      time.Duration `yaml:"-" toml:"-"`
	SweepInterval time.Duration `yaml:"-" toml:"-"`

	// Raw string values for unmarshaling
	DurationRaw      string `yaml:"duration" toml:"duration" env:"DURATION"`
	SweepIntervalRaw string `yaml:"sweep_interval" toml:"sweep_interval" env:"SWEEP_INTERVAL"`
}

// Rotate reports whether session IDs are replaced on login and logout.
func (s SessionConfig) Rotate() bool {
	return s.RotateOnAuth == nil || *s.RotateOnAuth
}

// RedisConfig holds the Redis session backend connection
type RedisConfig struct {
	Addr     string `yaml:"addr" toml:"addr" env:"ADDR"`
	Password string `yaml:"password" toml:"password" env:"PASSWORD"`
	DB       int    `yaml:"db" toml:"db" env:"DB"`
	Prefix   string `yaml:"prefix" toml:"prefix" env:"PREFIX"`
}

// AuthConfig holds password policy and login throttling
type AuthConfig struct {
	MinPasswordLength int `yaml:"min_password_length" toml:"min_password_length" env:"MIN_PASSWORD_LENGTH"`
	// LoginBurst is the number of failed logins allowed per member number before throttling. 0 disables.
	LoginBurst int `yaml:"login_burst" toml:"login_burst" env:"LOGIN_BURST"`

	LoginRefill    time.Duration `yaml:"-" toml:"-"`
	LoginRefillRaw string        `yaml:"login_refill" toml:"login_refill" env:"LOGIN_REFILL"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level" env:"LEVEL"`
	Format string `yaml:"format" toml:"format" env:"FORMAT"`
}

// MetricsConfig holds metrics endpoint configuration
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled" env:"ENABLED"`
	Path    string `yaml:"path" toml:"path" env:"PATH"`
}

// Default returns a configuration with every optional field filled in.
func Default() *Config {
	return &Config{
		Server:   ServerConfig{HTTPAddr: "localhost:3500"},
		Database: DatabaseConfig{Path: "./pokercircle.db"},
		Session: SessionConfig{
			Backend:          BackendSQLite,
			DurationRaw:      "168h",
			SweepIntervalRaw: "1h",
		},
		Redis: RedisConfig{Addr: "localhost:6379", Prefix: "pokercircle"},
		Auth: AuthConfig{
			MinPasswordLength: 8,
			LoginBurst:        5,
			LoginRefillRaw:    "1m",
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Metrics: MetricsConfig{Path: "/metrics"},
	}
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Files ending in .toml are parsed as TOML, anything else as YAML.
// Environment variables in the format ${VAR_NAME} are expanded, then
// POKERCIRCLE_* variables override file values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw content
	expandedData := expandEnvVars(string(data))

	cfg := Default()
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(expandedData, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else {
		if err := yaml.Unmarshal([]byte(expandedData), cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	return finish(cfg)
}

// FromEnv builds a configuration from defaults and POKERCIRCLE_* variables only.
func FromEnv() (*Config, error) {
	return finish(Default())
}

func finish(cfg *Config) (*Config, error) {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}

	// Parse duration fields
	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	// The server address is required unless Tailscale is enabled
	if !c.Tailscale.Enabled && c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required (or enable tailscale)")
	}

	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		return fmt.Errorf("tailscale.hostname is required when tailscale is enabled")
	}

	if c.Server.Timezone != "" {
		if _, err := time.LoadLocation(c.Server.Timezone); err != nil {
			return fmt.Errorf("server.timezone %q: %w", c.Server.Timezone, err)
		}
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if len(c.Session.Secret) < MinSecretLength {
		return fmt.Errorf("session.secret must be at least %d bytes", MinSecretLength)
	}

	switch c.Session.Backend {
	case BackendSQLite:
	case BackendRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis.addr is required when session.backend is redis")
		}
	default:
		return fmt.Errorf("session.backend must be %q or %q, got %q", BackendSQLite, BackendRedis, c.Session.Backend)
	}

	if c.Session.Duration <= 0 {
		return fmt.Errorf("session.duration must be positive")
	}

	if c.Auth.MinPasswordLength < 1 {
		return fmt.Errorf("auth.min_password_length must be at least 1")
	}
	if c.Auth.LoginBurst < 0 {
		return fmt.Errorf("auth.login_burst cannot be negative")
	}

	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with /")
	}

	return nil
}

// Location returns the configured timezone, or time.Local when unset.
func (c *Config) Location() *time.Location {
	if c.Server.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Server.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	fields := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"session.duration", cfg.Session.DurationRaw, &cfg.Session.Duration},
		{"session.sweep_interval", cfg.Session.SweepIntervalRaw, &cfg.Session.SweepInterval},
		{"auth.login_refill", cfg.Auth.LoginRefillRaw, &cfg.Auth.LoginRefill},
	}

	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		d, err := time.ParseDuration(f.raw)
		if err != nil {
			return fmt.Errorf("parsing %s %q: %w", f.name, f.raw, err)
		}
		*f.dst = d
	}

	return nil
}
