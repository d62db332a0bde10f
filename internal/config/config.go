// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabaseURL is the Postgres DSN for the directory/access tables.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// AuthURL is the base URL of the hosted auth service (GoTrue-compatible API).
	AuthURL string `mapstructure:"AUTH_URL"`
	// AuthAPIKey is the API key sent with every auth service request.
	AuthAPIKey string `mapstructure:"AUTH_API_KEY"`
	// AuthJWTSecret is the HS256 secret used to read claims from access tokens issued by the auth service.
	AuthJWTSecret string `mapstructure:"AUTH_JWT_SECRET"`
	// AuthRefreshToken is the refresh token that seeds the initial session.
	AuthRefreshToken string `mapstructure:"AUTH_REFRESH_TOKEN"`
	// SessionPollInterval is how often the auth client polls for session changes (e.g. "30s").
	SessionPollInterval string `mapstructure:"SESSION_POLL_INTERVAL"`
	// BootstrapAdminEmails is a comma-separated list of addresses that are granted
	// the admin role when they sign in without an existing access record.
	BootstrapAdminEmails string `mapstructure:"BOOTSTRAP_ADMIN_EMAILS"`
	// BootstrapAdminName is the full name given to an employee record synthesized
	// for a bootstrap admin on first sign-in.
	BootstrapAdminName string `mapstructure:"BOOTSTRAP_ADMIN_NAME"`
	// DefaultRole is the role shown before resolution completes and assigned when
	// no role can be determined. Must be "member" or "admin".
	DefaultRole string `mapstructure:"DEFAULT_ROLE"`
	// OTLPEndpoint is the OTLP gRPC endpoint for traces (e.g. localhost:4317). Empty disables export.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// OTLPInsecure forces plaintext OTLP export even for https endpoints.
	OTLPInsecure bool `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("AUTH_URL", "")
	v.SetDefault("AUTH_API_KEY", "")
	v.SetDefault("AUTH_JWT_SECRET", "")
	v.SetDefault("AUTH_REFRESH_TOKEN", "")
	v.SetDefault("SESSION_POLL_INTERVAL", "30s")
	v.SetDefault("BOOTSTRAP_ADMIN_EMAILS", "")
	v.SetDefault("BOOTSTRAP_ADMIN_NAME", "System Administrator")
	v.SetDefault("DEFAULT_ROLE", "member")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("APP_ENV", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}

	switch cfg.DefaultRole {
	case "member", "admin":
	default:
		return nil, errors.New(`config: DEFAULT_ROLE must be "member" or "admin"`)
	}

	return &cfg, nil
}

// PollInterval parses SessionPollInterval as a time.Duration. Returns 30s if unset or invalid.
func (c *Config) PollInterval() time.Duration {
	d, err := time.ParseDuration(c.SessionPollInterval)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// BootstrapAdminList returns the bootstrap admin addresses from the comma-separated
// config, lowercased and trimmed. Empty entries are dropped.
func (c *Config) BootstrapAdminList() []string {
	if c == nil || c.BootstrapAdminEmails == "" {
		return nil
	}
	parts := strings.Split(c.BootstrapAdminEmails, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.ToLower(strings.TrimSpace(p)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
