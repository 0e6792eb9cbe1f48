package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/IsmailofficialGithub/inboundAdmin-sub003/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Backend  BackendConfig
	Provider ProviderConfig
	Session  SessionConfig

	// RedisURL enables login rate limiting when set
	RedisURL string
	// RedisPassword for the rate limiter connection
	RedisPassword string
	// PostgresURL enables local audit retention when set
	PostgresURL string
	// AuditRetention bounds how long local audit rows are kept
	AuditRetention time.Duration
	// PolicyFile is an optional JSON route policy; built-in defaults apply
	// when empty
	PolicyFile string

	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string

	// TrustProxy means a trusted reverse proxy fronts the gateway and
	// X-Forwarded-For can be believed for client addressing
	TrustProxy bool
}

// BackendConfig holds platform backend settings
type BackendConfig struct {
	// URL is the platform API base, e.g. https://api.example.com
	URL string
	// VerifyTimeout bounds each session verification call
	VerifyTimeout time.Duration
}

// ProviderConfig holds identity provider settings. An empty IssuerURL and
// TokenURL means the gateway runs degraded without authentication.
type ProviderConfig struct {
	IssuerURL    string
	ClientID     string
	ClientSecret string
	TokenURL     string
	RevokeURL    string
	EventsURL    string
}

// SessionConfig holds session lifecycle settings
type SessionConfig struct {
	CookieTTLDays int
	PollInterval  time.Duration
	// MaxIdle is how long an unused session manager survives before the
	// registry sweep evicts it
	MaxIdle time.Duration
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("ADMIN_HOST", "0.0.0.0"),
			Port:            getEnv("ADMIN_PORT", "8080"),
			ReadTimeout:     getEnvDuration("ADMIN_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("ADMIN_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getEnvDuration("ADMIN_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("ADMIN_SHUTDOWN_TIMEOUT", 30*time.Second),
			HealthPort:      getEnv("ADMIN_HEALTH_PORT", "9090"),
			TrustProxy:      getEnvBool("ADMIN_TRUST_PROXY", false),
		},
		Backend: BackendConfig{
			URL:           getEnv("ADMIN_BACKEND_URL", ""),
			VerifyTimeout: getEnvDuration("ADMIN_VERIFY_TIMEOUT", 10*time.Second),
		},
		Provider: ProviderConfig{
			IssuerURL:    getEnv("ADMIN_ISSUER_URL", ""),
			ClientID:     getEnv("ADMIN_CLIENT_ID", ""),
			ClientSecret: getEnv("ADMIN_CLIENT_SECRET", ""),
			TokenURL:     getEnv("ADMIN_TOKEN_URL", ""),
			RevokeURL:    getEnv("ADMIN_REVOKE_URL", ""),
			EventsURL:    getEnv("ADMIN_EVENTS_URL", ""),
		},
		Session: SessionConfig{
			CookieTTLDays: getEnvInt("ADMIN_COOKIE_TTL_DAYS", 7),
			PollInterval:  getEnvDuration("ADMIN_POLL_INTERVAL", 30*time.Second),
			MaxIdle:       getEnvDuration("ADMIN_SESSION_MAX_IDLE", time.Hour),
		},
		RedisURL:       getEnv("ADMIN_REDIS_URL", ""),
		RedisPassword:  getEnv("ADMIN_REDIS_PASSWORD", ""),
		PostgresURL:    getEnv("ADMIN_POSTGRES_URL", ""),
		AuditRetention: getEnvDuration("ADMIN_AUDIT_RETENTION", 90*24*time.Hour),
		PolicyFile:     getEnv("ADMIN_POLICY_FILE", ""),
		Observability: ObservabilityConfig{
			LogLevel:       observability.ParseLogLevel(getEnv("ADMIN_LOG_LEVEL", "info")),
			MetricsEnabled: getEnvBool("ADMIN_METRICS_ENABLED", true),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	if c.Backend.URL == "" {
		return fmt.Errorf("ADMIN_BACKEND_URL is required")
	}
	if _, err := url.Parse(c.Backend.URL); err != nil {
		return fmt.Errorf("invalid ADMIN_BACKEND_URL: %w", err)
	}
	if c.Backend.VerifyTimeout <= 0 {
		return fmt.Errorf("verify timeout must be positive")
	}

	if c.Session.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}
	if c.Session.CookieTTLDays <= 0 {
		return fmt.Errorf("cookie TTL must be positive")
	}

	// A provider configured by issuer needs a client ID for the token grant
	if c.Provider.IssuerURL != "" && c.Provider.ClientID == "" {
		return fmt.Errorf("ADMIN_CLIENT_ID is required when an issuer URL is set")
	}

	return nil
}

// getEnv returns an environment variable or a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default value
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true"
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default value
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
