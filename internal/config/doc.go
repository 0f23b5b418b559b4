// Package config handles configuration loading for vault-gateway.
//
// # Overview
//
// Configuration is loaded from YAML files with environment variable expansion.
// The package provides validation and sensible defaults.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	auth:
//	  jwt_secret: "${VAULT_JWT_SECRET}"
//
// # Configuration Sections
//
// Server settings:
//
//	server:
//	  http_addr: "0.0.0.0:8080"
//	  base_url: "https://vault.example.com"
//
// Database:
//
//	database:
//	  path: "/var/lib/vault-gateway/vault.db"
//
// Authentication:
//
//	auth:
//	  jwt_secret: "${VAULT_JWT_SECRET}"  # required
//	  session_ttl: "720h"                # default 30 days
//	  hash_cost: 12
//
// Quota:
//
//	quota:
//	  monthly_limit: 2
//
// Logging:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
// Metrics:
//
//	metrics:
//	  enabled: true
//	  path: "/metrics"
package config
