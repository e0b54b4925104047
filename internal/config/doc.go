// Package config handles configuration loading for pokercircle.
//
// # Overview
//
// Configuration is read from a YAML file, or TOML when the file name ends in
// .toml, on top of built-in defaults. Environment variables then override
// file values, and the result is validated.
//
// # Environment Variable Expansion
//
// Values can reference environment variables:
//
//	session:
//	  secret: "${POKERCIRCLE_SECRET}"
//
// Syntax: ${VAR_NAME}. Unset variables expand to an empty string.
//
// # Environment Overrides
//
// Every scalar setting can also be set directly with a POKERCIRCLE_ variable
// named after its section and key:
//
//	POKERCIRCLE_SERVER_HTTP_ADDR=0.0.0.0:3500
//	POKERCIRCLE_SESSION_BACKEND=redis
//	POKERCIRCLE_REDIS_ADDR=redis:6379
//
// FromEnv builds a configuration from defaults and overrides alone.
//
// # Configuration Sections
//
//	server:
//	  http_addr: "localhost:3500"
//	  timezone: "Europe/London"     # dates and month windows; default local
//
//	database:
//	  path: "./pokercircle.db"
//
//	session:
//	  secret: "${POKERCIRCLE_SECRET}" # at least 32 bytes
//	  backend: "sqlite"               # sqlite or redis
//	  duration: "168h"                # fixed, never extended
//	  sweep_interval: "1h"
//	  rotate_on_auth: true
//	  secure_cookies: false
//
//	redis:
//	  addr: "localhost:6379"
//	  prefix: "pokercircle"
//
//	auth:
//	  min_password_length: 8
//	  login_burst: 5                  # failed logins before throttling; 0 disables
//	  login_refill: "1m"
//
//	tailscale:
//	  enabled: false
//	  hostname: "pokercircle"
//	  auth_key: "${TS_AUTHKEY}"
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
//	metrics:
//	  enabled: false
//	  path: "/metrics"
package config
