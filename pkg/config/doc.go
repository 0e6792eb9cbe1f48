// Package config provides application configuration management from environment variables.
//
// # Overview
//
// This package loads and validates configuration from environment variables with
// sensible defaults for all settings.
//
// # Configuration Structure
//
// Server settings:
//
//	ADMIN_HOST="0.0.0.0"
//	ADMIN_PORT="8080"
//	ADMIN_HEALTH_PORT="9090"
//	ADMIN_READ_TIMEOUT="15s"
//	ADMIN_WRITE_TIMEOUT="15s"
//
// Backend settings:
//
//	ADMIN_BACKEND_URL="https://api.example.com"
//	ADMIN_VERIFY_TIMEOUT="10s"
//
// Identity provider settings:
//
//	ADMIN_ISSUER_URL="https://auth.example.com"
//	ADMIN_CLIENT_ID="admin-gateway"
//	ADMIN_TOKEN_URL=""    # overrides OIDC discovery
//	ADMIN_EVENTS_URL=""   # provider WebSocket event stream
//
// Session settings:
//
//	ADMIN_COOKIE_TTL_DAYS="7"
//	ADMIN_POLL_INTERVAL="30s"
//	ADMIN_SESSION_MAX_IDLE="1h"
//
// Optional infrastructure:
//
//	ADMIN_REDIS_URL="redis://localhost:6379"  # login rate limiting
//	ADMIN_POSTGRES_URL=""                     # local audit retention
//	ADMIN_POLICY_FILE=""                      # route policy JSON
//
// Observability settings:
//
//	ADMIN_LOG_LEVEL="info"  # debug, info, warn, error
//	ADMIN_METRICS_ENABLED="true"
//
// # Usage Example
//
// Load configuration:
//
//	cfg, err := config.Load()
//	if err != nil {
//		log.Fatal(err)
//	}
package config
