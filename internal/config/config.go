// Package config provides centralized configuration management for the
// datacheck service and CLI. Settings come from environment variables (a
// .env file is loaded by the commands first) with defaults, and are validated
// on startup to fail fast on misconfiguration.
package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Check    CheckConfig
	Redis    RedisConfig
	Database DatabaseConfig
	Rate     RateLimitConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `env:"SERVER_HOST" envDefault:"0.0.0.0"`
	Port int    `env:"SERVER_PORT" envDefault:"8080"`

	ReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"60s"`
	IdleTimeout  time.Duration `env:"SERVER_IDLE_TIMEOUT" envDefault:"60s"`

	// ShutdownTimeout bounds the graceful shutdown, including waiting for
	// running checks to finish.
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// RequestTimeout is the middleware timeout for requests.
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" envDefault:"60s"`

	// TrustedProxies are the CIDRs whose X-Real-IP and X-Forwarded-For
	// headers are believed.
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// APIKeys guard the endpoints that start runs. Empty disables the check.
	APIKeys []string `env:"API_KEYS"`
}

// CheckConfig holds validation run settings.
type CheckConfig struct {
	// Policy is the default failure policy: terminate or collect.
	Policy string `env:"CHECK_POLICY" envDefault:"terminate"`

	// MaxViolations caps the violations kept by the collect policy (0 keeps all).
	MaxViolations int `env:"CHECK_MAX_VIOLATIONS" envDefault:"1000"`

	MaxConcurrent int           `env:"CHECK_MAX_CONCURRENT" envDefault:"2"`
	MaxWaitTime   time.Duration `env:"CHECK_MAX_WAIT_TIME" envDefault:"5s"`
	Timeout       time.Duration `env:"CHECK_TIMEOUT" envDefault:"1h"`

	// DataRoot confines the directories the service may check.
	DataRoot string `env:"CHECK_DATA_ROOT" envDefault:"."`

	// SchemaFiles are extra dataset documents registered at startup.
	SchemaFiles []string `env:"CHECK_SCHEMA_FILES"`

	// RefBackend selects where reference sets live: memory or redis.
	RefBackend string `env:"CHECK_REF_BACKEND" envDefault:"memory"`

	// HistorySize is how many reports are kept in memory when no database
	// or Redis report cache is configured.
	HistorySize int `env:"CHECK_HISTORY_SIZE" envDefault:"100"`
}

// RedisConfig holds Redis settings. Redis is optional; it backs reference
// sets when RefBackend is redis and caches reports whenever URL is set.
type RedisConfig struct {
	URL            string        `env:"REDIS_URL"`
	RetryAttempts  int           `env:"REDIS_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval  time.Duration `env:"REDIS_RETRY_INTERVAL" envDefault:"2s"`
	ConnectTimeout time.Duration `env:"REDIS_CONNECT_TIMEOUT" envDefault:"30s"`
	KeyTTL         time.Duration `env:"REDIS_KEY_TTL" envDefault:"24h"`
	ReportTTL      time.Duration `env:"REDIS_REPORT_TTL" envDefault:"168h"`
	ReportKeep     int           `env:"REDIS_REPORT_KEEP" envDefault:"500"`
}

// DatabaseConfig holds PostgreSQL settings. The database is optional; when
// URL is set, every report is stored there.
type DatabaseConfig struct {
	// URL also accepts DB_URL for compatibility.
	URL string `env:"DATABASE_URL"`

	MaxConns        int           `env:"DB_MAX_CONNS" envDefault:"10"`
	MinConns        int           `env:"DB_MIN_CONNS" envDefault:"0"`
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"1h"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"30m"`
	RetryAttempts   int           `env:"DB_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval   time.Duration `env:"DB_RETRY_INTERVAL" envDefault:"5s"`
	MigrationsTable string        `env:"DB_MIGRATIONS_TABLE" envDefault:"datacheck_migrations"`
}

// RateLimitConfig holds per-IP rate limiting settings.
type RateLimitConfig struct {
	Enabled           bool `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	RequestsPerMinute int  `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" envDefault:"100"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string `env:"LOG_LEVEL" envDefault:"info"`

	// Format is the log format: text or json.
	Format string `env:"LOG_FORMAT" envDefault:"text"`
}

// Load reads configuration from environment variables, applies defaults and
// validates the result.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}
	if cfg.Database.URL == "" {
		cfg.Database.URL = os.Getenv("DB_URL")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string

	// Server
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT (%d) must be 1-65535", c.Server.Port))
	}
	if c.Server.ReadTimeout < 0 {
		errs = append(errs, "SERVER_READ_TIMEOUT must be non-negative")
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, "SERVER_SHUTDOWN_TIMEOUT must be positive")
	}

	// Check
	switch strings.ToLower(c.Check.Policy) {
	case "terminate", "collect":
	default:
		errs = append(errs, fmt.Sprintf("CHECK_POLICY (%q) must be one of: terminate, collect", c.Check.Policy))
	}
	if c.Check.MaxViolations < 0 {
		errs = append(errs, "CHECK_MAX_VIOLATIONS must be non-negative")
	}
	if c.Check.MaxConcurrent <= 0 {
		errs = append(errs, "CHECK_MAX_CONCURRENT must be positive")
	}
	if c.Check.MaxWaitTime <= 0 {
		errs = append(errs, "CHECK_MAX_WAIT_TIME must be positive")
	}
	if c.Check.Timeout <= 0 {
		errs = append(errs, "CHECK_TIMEOUT must be positive")
	}
	if c.Check.DataRoot == "" {
		errs = append(errs, "CHECK_DATA_ROOT is required")
	}
	switch strings.ToLower(c.Check.RefBackend) {
	case "memory":
	case "redis":
		if c.Redis.URL == "" {
			errs = append(errs, "CHECK_REF_BACKEND is redis but REDIS_URL is empty")
		}
	default:
		errs = append(errs, fmt.Sprintf("CHECK_REF_BACKEND (%q) must be one of: memory, redis", c.Check.RefBackend))
	}

	// Database
	if c.Database.URL != "" {
		if c.Database.MaxConns <= 0 {
			errs = append(errs, "DB_MAX_CONNS must be positive")
		}
		if c.Database.MinConns < 0 {
			errs = append(errs, "DB_MIN_CONNS must be non-negative")
		}
		if c.Database.MaxConns < c.Database.MinConns {
			errs = append(errs, fmt.Sprintf("DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)",
				c.Database.MaxConns, c.Database.MinConns))
		}
	}

	// Rate limit
	if c.Rate.Enabled && c.Rate.RequestsPerMinute <= 0 {
		errs = append(errs, "RATE_LIMIT_REQUESTS_PER_MINUTE must be positive when rate limiting is enabled")
	}

	// Logging
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}
	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// String returns a safe string representation of the config for logging.
// Connection URLs are masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	fmt.Fprintf(&b, "Server: {Host: %q, Port: %d, APIKeys: %d}, ", c.Server.Host, c.Server.Port, len(c.Server.APIKeys))
	fmt.Fprintf(&b, "Check: {Policy: %q, MaxViolations: %d, MaxConcurrent: %d, DataRoot: %q, RefBackend: %q}, ",
		c.Check.Policy, c.Check.MaxViolations, c.Check.MaxConcurrent, c.Check.DataRoot, c.Check.RefBackend)
	fmt.Fprintf(&b, "Redis: {URL: %s}, ", mask(c.Redis.URL))
	fmt.Fprintf(&b, "Database: {URL: %s, MaxConns: %d, MinConns: %d}, ",
		mask(c.Database.URL), c.Database.MaxConns, c.Database.MinConns)
	fmt.Fprintf(&b, "Rate: {Enabled: %v, RequestsPerMinute: %d}, ", c.Rate.Enabled, c.Rate.RequestsPerMinute)
	fmt.Fprintf(&b, "Logging: {Level: %q, Format: %q}", c.Logging.Level, c.Logging.Format)
	b.WriteString("}")
	return b.String()
}

// mask hides everything but the host of a connection URL.
func mask(raw string) string {
	if raw == "" {
		return "[UNSET]"
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "[MASKED]"
	}
	return u.Scheme + "://[MASKED]@" + u.Host
}
