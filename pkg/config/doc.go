// Package config provides application configuration management from environment variables.
//
// # Overview
//
// This package loads and validates configuration from environment variables with
// sensible defaults for everything but secrets and connection strings.
//
// # Configuration Structure
//
// Server settings:
//
//	AGORA_HOST="0.0.0.0"
//	AGORA_PORT="8080"
//	AGORA_READ_TIMEOUT="15s"
//	AGORA_WRITE_TIMEOUT="15s"
//	AGORA_FRONTEND_URL="http://localhost:3000"
//
// Storage settings:
//
//	AGORA_POSTGRES_URL="postgres://localhost/agora"
//	AGORA_POSTGRES_TIMEOUT="10s"
//	AGORA_REDIS_URL="redis://localhost:6379"
//
// Session settings:
//
//	AGORA_JWT_SECRET="..."           # required
//	AGORA_JWT_ALGORITHM="HS256"
//	AGORA_ACCESS_TOKEN_TTL="15m"
//	AGORA_REFRESH_TOKEN_TTL="168h"
//	AGORA_PRODUCTION="false"
//	AGORA_COOKIE_DOMAIN=""           # required when AGORA_PRODUCTION=true
//	AGORA_ADMIN_USERNAME=""
//	AGORA_ADMIN_PASSWORD=""
//
// OAuth provider settings (repeat for NAVER and KAKAO):
//
//	AGORA_GOOGLE_CLIENT_ID="..."
//	AGORA_GOOGLE_CLIENT_SECRET="..."
//	AGORA_GOOGLE_REDIRECT_URI="https://api.example.com/auth/google/callback"
//
// Observability settings:
//
//	AGORA_LOG_LEVEL="info"  # debug, info, warn, error
//	AGORA_METRICS_ENABLED="true"
//
// # Usage Example
//
// Load configuration:
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//		log.Fatal(err)
//	}
package config
