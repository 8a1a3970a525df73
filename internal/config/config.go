// Package config manages environment variables.
//
// It reads variables from the process environment (and a `.env` file
// when present), loads them into structured Go types and validates
// that required values are present so they can be reused across the
// application runtime.
//
// Responsibilities:
//   - Load environment variables (optionally from a `.env` file).
//   - Map env vars into a structured Go config (structs).
//   - Validate required values so the app fails fast on bad/missing config.
//   - Provide defaults for optional blocks (membership rules, observability).
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	// Side-effect import: loads a `.env` file into the process env, if one exists,
	// before any env var is read.
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

/*
	Env vars are read with the MEMBERSHIPS_ prefix. After the prefix is
	trimmed and the key lowercased, "." is the nesting delimiter:

		MEMBERSHIPS_DATABASE.HOST        -> database.host     -> Config.Database.Host
		MEMBERSHIPS_MEMBERSHIP.TIMEZONE  -> membership.timezone

	Underscores are part of the key name (read_timeout, ssl_mode, ...).
*/

// EnvPrefix is the prefix every configuration env var must carry.
const EnvPrefix = "MEMBERSHIPS_"

// ServiceName tags logs and traces emitted by this service.
const ServiceName = "memberships"

// Config is the root configuration object for the application.
//
// Observability and Membership are pointers because they are optional.
// When missing, defaults are injected by LoadConfig.
type Config struct {
	Primary       Primary              `koanf:"primary" validate:"required"`
	Server        ServerConfig         `koanf:"server" validate:"required"`
	Database      DatabaseConfig       `koanf:"database" validate:"required"`
	Redis         RedisConfig          `koanf:"redis" validate:"required"`
	Auth          AuthConfig           `koanf:"auth" validate:"required"`
	RateLimit     RateLimitConfig      `koanf:"rate_limit"`
	Integration   IntegrationConfig    `koanf:"integration"`
	Membership    *MembershipConfig    `koanf:"membership"`
	Observability *ObservabilityConfig `koanf:"observability"`
}

// Primary holds top-level information about the runtime environment.
type Primary struct {
	Env string `koanf:"env" validate:"required"`
}

// ServerConfig groups settings for the HTTP server runtime.
// Timeouts are expressed in seconds.
type ServerConfig struct {
	Port               string   `koanf:"port" validate:"required"`
	ReadTimeout        int      `koanf:"read_timeout" validate:"required"`
	WriteTimeout       int      `koanf:"write_timeout" validate:"required"`
	IdleTimeout        int      `koanf:"idle_timeout" validate:"required"`
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins" validate:"required"`
}

// DatabaseConfig contains PostgreSQL connection parameters and pool tuning.
type DatabaseConfig struct {
	Host            string `koanf:"host" validate:"required"`
	Port            int    `koanf:"port" validate:"required"`
	User            string `koanf:"user" validate:"required"`
	Password        string `koanf:"password" validate:"required"`
	Name            string `koanf:"name" validate:"required"`
	SSLMode         string `koanf:"ssl_mode" validate:"required"`
	MaxOpenConns    int    `koanf:"max_open_conns" validate:"required"`
	MaxIdleConns    int    `koanf:"max_idle_conns" validate:"required"`
	ConnMaxLifetime int    `koanf:"conn_max_lifetime" validate:"required"`
	ConnMaxIdleTime int    `koanf:"conn_max_idle_time" validate:"required"`
}

// RedisConfig contains Redis connection details.
// Address is "host:port".
type RedisConfig struct {
	Address string `koanf:"address" validate:"required"`
}

// AuthConfig stores authentication-related settings.
//
// WebhookSecret is the shared secret payment providers send when
// reporting a payment. SessionTTL is the lifetime of a login session.
type AuthConfig struct {
	WebhookSecret string        `koanf:"webhook_secret" validate:"required"`
	SessionTTL    time.Duration `koanf:"session_ttl"`
	SecureCookies *bool         `koanf:"secure_cookies"`
}

// Secure reports whether cookies carry the Secure flag. ApplyDefaults turns
// it on everywhere except local.
func (a AuthConfig) Secure() bool {
	return a.SecureCookies != nil && *a.SecureCookies
}

// RateLimitConfig bounds how often one client may call the public status
// lookup.
type RateLimitConfig struct {
	StatusRequests int           `koanf:"status_requests"`
	StatusWindow   time.Duration `koanf:"status_window"`
}

// IntegrationConfig holds credentials for third-party providers.
// PublicURL is the address members use to reach the site; emails link to it.
type IntegrationConfig struct {
	ResendAPIKey string `koanf:"resend_api_key"`
	EmailFrom    string `koanf:"email_from"`
	PublicURL    string `koanf:"public_url"`
}

// DSN builds the postgres URL for the configured database.
func (c DatabaseConfig) DSN() string {
	return buildDSN(c)
}

// LoadConfig loads configuration from environment variables, unmarshals it
// into the Config structs, validates it and applies defaults.
//
// Behavior summary:
//   - Loads env vars with prefix MEMBERSHIPS_
//   - Unmarshals into Config
//   - Validates required config blocks/fields
//   - Sets default membership + observability blocks if missing
//   - Overrides observability service name + environment
func LoadConfig() (*Config, error) {
	k := koanf.New(".")

	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("could not load env variables: %w", err)
	}

	mainConfig := &Config{}
	if err := k.Unmarshal("", mainConfig); err != nil {
		return nil, fmt.Errorf("could not unmarshal main config: %w", err)
	}

	if err := validator.New().Struct(mainConfig); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	mainConfig.ApplyDefaults()

	if err := mainConfig.Membership.Validate(); err != nil {
		return nil, fmt.Errorf("invalid membership config: %w", err)
	}

	if err := mainConfig.Observability.Validate(); err != nil {
		return nil, fmt.Errorf("invalid observability config: %w", err)
	}

	return mainConfig, nil
}

// ApplyDefaults fills every optional block that was not provided.
func (c *Config) ApplyDefaults() {
	if c.Membership == nil {
		c.Membership = DefaultMembershipConfig()
	} else {
		c.Membership.fillDefaults()
	}

	if c.Observability == nil {
		c.Observability = DefaultObservabilityConfig()
	}

	// Service name and environment are not user-configurable.
	c.Observability.ServiceName = ServiceName
	c.Observability.Environment = c.Primary.Env

	if c.Auth.SecureCookies == nil {
		secure := !c.IsLocal()
		c.Auth.SecureCookies = &secure
	}

	if c.Auth.SessionTTL <= 0 {
		c.Auth.SessionTTL = 7 * 24 * time.Hour
	}

	if c.RateLimit.StatusRequests <= 0 {
		c.RateLimit.StatusRequests = 30
	}
	if c.RateLimit.StatusWindow <= 0 {
		c.RateLimit.StatusWindow = time.Minute
	}

	if c.Integration.EmailFrom == "" {
		c.Integration.EmailFrom = "Associação <onboarding@resend.dev>"
	}
	if c.Integration.PublicURL == "" {
		c.Integration.PublicURL = "http://localhost:" + c.Server.Port
	}
	c.Integration.PublicURL = strings.TrimRight(c.Integration.PublicURL, "/")
}

// IsLocal reports whether the app runs in the local development environment.
func (c *Config) IsLocal() bool {
	return c.Primary.Env == "local"
}
