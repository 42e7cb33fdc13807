// Package config loads runtime configuration from the environment, an
// optional .env file and an optional YAML rules file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"

	"github.com/R3E-Network/todo_service/internal/app/rules"
	"github.com/R3E-Network/todo_service/pkg/logger"
)

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Host            string        `env:"HOST,default=0.0.0.0"`
	Port            int           `env:"PORT,default=8080"`
	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT,default=15s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT,default=15s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT,default=10s"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// DatabaseConfig controls the Postgres pool. An empty URL selects the
// in-memory store.
type DatabaseConfig struct {
	Driver          string        `env:"DATABASE_DRIVER,default=postgres"`
	URL             string        `env:"DATABASE_URL"`
	MaxOpenConns    int           `env:"DATABASE_MAX_OPEN_CONNS,default=10"`
	MaxIdleConns    int           `env:"DATABASE_MAX_IDLE_CONNS,default=5"`
	ConnMaxLifetime time.Duration `env:"DATABASE_CONN_MAX_LIFETIME,default=30m"`
	Migrate         bool          `env:"DATABASE_MIGRATE,default=true"`
}

// Enabled reports whether a database connection was configured.
func (d DatabaseConfig) Enabled() bool { return strings.TrimSpace(d.URL) != "" }

// SecurityConfig holds the request-edge knobs.
type SecurityConfig struct {
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS,default=*"`
	RateLimitRPS       int    `env:"RATE_LIMIT_RPS,default=50"`
	RateLimitBurst     int    `env:"RATE_LIMIT_BURST,default=100"`
}

// AllowedOrigins splits the comma-separated origin list.
func (s SecurityConfig) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(s.CORSAllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// AuditConfig controls the request audit trail.
type AuditConfig struct {
	Path string `env:"AUDIT_LOG_PATH"`
	Max  int    `env:"AUDIT_LOG_MAX,default=300"`
}

// Config is the complete runtime configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Logging  logger.LoggingConfig
	Security SecurityConfig
	Audit    AuditConfig

	RulesFile            string `env:"RULES_FILE"`
	HousekeepingSchedule string `env:"HOUSEKEEPING_SCHEDULE,default=@every 10m"`

	// Rules is populated from RulesFile, or the defaults when unset.
	Rules rules.Policy
}

// Load reads .env (when present), decodes the environment and loads the
// rules file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv decodes the current environment without touching .env.
func FromEnv() (*Config, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("decode environment: %w", err)
	}

	policy := rules.DefaultPolicy()
	if path := strings.TrimSpace(cfg.RulesFile); path != "" {
		loaded, err := LoadPolicy(path)
		if err != nil {
			return nil, err
		}
		policy = loaded
	}
	cfg.Rules = policy.Normalize()

	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize trims strings and fills zero values left by a partial decode.
func (c *Config) Normalize() {
	c.Server.Host = strings.TrimSpace(c.Server.Host)
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	if c.Database.Driver == "" {
		c.Database.Driver = "postgres"
	}
	c.Database.URL = strings.TrimSpace(c.Database.URL)
	if c.Audit.Max <= 0 {
		c.Audit.Max = 300
	}
	c.HousekeepingSchedule = strings.TrimSpace(c.HousekeepingSchedule)
}

// Validate rejects values the runtime cannot start with.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("PORT %d out of range", c.Server.Port)
	}
	if c.Database.Driver != "postgres" {
		return fmt.Errorf("DATABASE_DRIVER %q not supported", c.Database.Driver)
	}
	if c.Database.MaxOpenConns < 0 || c.Database.MaxIdleConns < 0 {
		return errors.New("database pool sizes must not be negative")
	}
	if c.Security.RateLimitRPS < 0 || c.Security.RateLimitBurst < 0 {
		return errors.New("rate limit values must not be negative")
	}
	return nil
}
