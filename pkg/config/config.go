package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Storage configuration
	Storage StorageConfig

	// Session and credential configuration
	Auth AuthConfig

	// Third-party login providers
	OAuth OAuthConfig

	// Observability configuration
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

	// FrontendURL is the browser-facing origin: the CORS allow-origin and
	// the target of OAuth redirects.
	FrontendURL string
}

// StorageConfig holds database and cache connection settings
type StorageConfig struct {
	PostgresURL    string
	ConnectTimeout time.Duration

	// RedisURL is optional; when empty the login rate limiter falls back to
	// an in-process counter.
	RedisURL      string
	RedisPassword string
	RedisDB       int
}

// AuthConfig holds token signing and cookie policy settings
type AuthConfig struct {
	Secret    string
	Algorithm string

	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	// Production switches the session cookies to Secure/SameSite=None and
	// requires CookieDomain.
	Production   bool
	CookieDomain string

	AdminUsername string
	AdminPassword string

	LoginRateLimit  int
	LoginRateWindow time.Duration
}

// ProviderCredentials holds one OAuth provider's client registration
type ProviderCredentials struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

// OAuthConfig holds the credentials for every supported provider. A
// provider with no client id is simply not registered.
type OAuthConfig struct {
	Google ProviderCredentials
	Naver  ProviderCredentials
	Kakao  ProviderCredentials
}

// ObservabilityConfig holds logging and metrics settings
type ObservabilityConfig struct {
	LogLevel       string
	MetricsEnabled bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Storage:       loadStorageConfig(),
		Auth:          loadAuthConfig(),
		OAuth:         loadOAuthConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadServerConfig loads server configuration from environment
func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("AGORA_HOST", "0.0.0.0"),
		Port:            getEnv("AGORA_PORT", "8080"),
		ReadTimeout:     getEnvDuration("AGORA_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("AGORA_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("AGORA_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("AGORA_SHUTDOWN_TIMEOUT", 30*time.Second),
		FrontendURL:     getEnv("AGORA_FRONTEND_URL", "http://localhost:3000"),
	}
}

// loadStorageConfig loads database configuration from environment
func loadStorageConfig() StorageConfig {
	return StorageConfig{
		PostgresURL:    getEnv("AGORA_POSTGRES_URL", ""),
		ConnectTimeout: getEnvDuration("AGORA_POSTGRES_TIMEOUT", 10*time.Second),
		RedisURL:       getEnv("AGORA_REDIS_URL", ""),
		RedisPassword:  getEnv("AGORA_REDIS_PASSWORD", ""),
		RedisDB:        getEnvInt("AGORA_REDIS_DB", 0),
	}
}

// loadAuthConfig loads token and cookie configuration from environment
func loadAuthConfig() AuthConfig {
	return AuthConfig{
		Secret:          getEnv("AGORA_JWT_SECRET", ""),
		Algorithm:       getEnv("AGORA_JWT_ALGORITHM", "HS256"),
		AccessTokenTTL:  getEnvDuration("AGORA_ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTokenTTL: getEnvDuration("AGORA_REFRESH_TOKEN_TTL", 7*24*time.Hour),
		Production:      getEnvBool("AGORA_PRODUCTION", false),
		CookieDomain:    getEnv("AGORA_COOKIE_DOMAIN", ""),
		AdminUsername:   getEnv("AGORA_ADMIN_USERNAME", ""),
		AdminPassword:   getEnv("AGORA_ADMIN_PASSWORD", ""),
		LoginRateLimit:  getEnvInt("AGORA_LOGIN_RATE_LIMIT", 10),
		LoginRateWindow: getEnvDuration("AGORA_LOGIN_RATE_WINDOW", time.Minute),
	}
}

// loadOAuthConfig loads provider credentials from environment
func loadOAuthConfig() OAuthConfig {
	return OAuthConfig{
		Google: loadProviderCredentials("GOOGLE"),
		Naver:  loadProviderCredentials("NAVER"),
		Kakao:  loadProviderCredentials("KAKAO"),
	}
}

func loadProviderCredentials(name string) ProviderCredentials {
	return ProviderCredentials{
		ClientID:     getEnv("AGORA_"+name+"_CLIENT_ID", ""),
		ClientSecret: getEnv("AGORA_"+name+"_CLIENT_SECRET", ""),
		RedirectURI:  getEnv("AGORA_"+name+"_REDIRECT_URI", ""),
	}
}

// loadObservabilityConfig loads observability configuration from environment
func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:       getEnv("AGORA_LOG_LEVEL", "info"),
		MetricsEnabled: getEnvBool("AGORA_METRICS_ENABLED", true),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.FrontendURL == "" {
		return fmt.Errorf("frontend URL is required")
	}

	if c.Storage.PostgresURL == "" {
		return fmt.Errorf("postgres URL is required")
	}

	if c.Auth.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if c.Auth.AccessTokenTTL <= 0 || c.Auth.RefreshTokenTTL <= 0 {
		return fmt.Errorf("token TTLs must be positive")
	}
	if c.Auth.Production && c.Auth.CookieDomain == "" {
		return fmt.Errorf("cookie domain is required in production")
	}

	return nil
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
