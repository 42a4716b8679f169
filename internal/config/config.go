package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment string
	Server      ServerConfig
	Database    DatabaseConfig
	Auth        AuthConfig
	NATS        NATSConfig
	Redis       RedisConfig
	OAuth       OAuthConfig
	Referral    ReferralConfig
	Security    SecurityConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  int
	WriteTimeout int
	IdleTimeout  int
}

type DatabaseConfig struct {
	Host         string
	Port         string
	Username     string
	Password     string
	DatabaseName string
	SSLMode      string
	MaxConns     int
	MaxIdleConns int
	MaxLifetime  int
}

// Enabled reports whether a database is configured. When it is not, the
// server falls back to the in-memory store (data is lost on restart).
func (c DatabaseConfig) Enabled() bool {
	return c.Host != ""
}

type AuthConfig struct {
	JWTSecret         string
	JWTExpiration     int
	RefreshSecret     string
	RefreshExpiration int
	SessionCookieName string
}

type NATSConfig struct {
	Enabled     bool
	URL         string
	ClientID    string
	DurableName string
}

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

type OAuthConfig struct {
	Google GoogleOAuthConfig
	OIDC   OIDCConfig
}

type GoogleOAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// OIDCConfig describes a generic OpenID Connect issuer (the identity
// provider the dashboard delegates login to).
type OIDCConfig struct {
	IssuerURL    string
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

type ReferralConfig struct {
	// BybitPartnerCode is the fixed partner code embedded in every user's
	// bybit referral link.
	BybitPartnerCode string
	Domain           string
}

type SecurityConfig struct {
	// EncryptionKey protects broker API keys at rest. Optional: when empty,
	// submitted API keys are discarded instead of stored.
	EncryptionKey string
}

func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		// .env file is optional
	}

	cfg := &Config{
		Environment: getEnvOrDefault("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Port:         getEnvOrDefault("PORT", "8080"),
			ReadTimeout:  getEnvAsIntOrDefault("READ_TIMEOUT", 15),
			WriteTimeout: getEnvAsIntOrDefault("WRITE_TIMEOUT", 15),
			IdleTimeout:  getEnvAsIntOrDefault("IDLE_TIMEOUT", 60),
		},
		Database: DatabaseConfig{
			Host:         getEnvOrDefault("DB_HOST", ""),
			Port:         getEnvOrDefault("DB_PORT", "5432"),
			Username:     getEnvOrDefault("DB_USER", "postgres"),
			Password:     getEnvOrDefault("DB_PASSWORD", ""),
			DatabaseName: getEnvOrDefault("DB_NAME", "alva"),
			SSLMode:      getEnvOrDefault("DB_SSL_MODE", "disable"),
			MaxConns:     getEnvAsIntOrDefault("DB_MAX_CONNS", 25),
			MaxIdleConns: getEnvAsIntOrDefault("DB_MAX_IDLE_CONNS", 10),
			MaxLifetime:  getEnvAsIntOrDefault("DB_MAX_LIFETIME", 300),
		},
		Auth: AuthConfig{
			JWTSecret:         getRequiredEnv("JWT_SECRET"),
			JWTExpiration:     getEnvAsIntOrDefault("JWT_EXPIRATION", 3600),
			RefreshSecret:     getRequiredEnv("REFRESH_SECRET"),
			RefreshExpiration: getEnvAsIntOrDefault("REFRESH_EXPIRATION", 604800),
			SessionCookieName: getEnvOrDefault("SESSION_COOKIE_NAME", "alva_session"),
		},
		NATS: NATSConfig{
			Enabled:     getEnvAsBoolOrDefault("NATS_ENABLED", false),
			URL:         getEnvOrDefault("NATS_URL", "nats://localhost:4222"),
			ClientID:    getEnvOrDefault("NATS_CLIENT_ID", "alva-backend"),
			DurableName: getEnvOrDefault("NATS_DURABLE_NAME", "alva-backend-durable"),
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBoolOrDefault("REDIS_ENABLED", false),
			Addr:     getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
			Password: getEnvOrDefault("REDIS_PASSWORD", ""),
			DB:       getEnvAsIntOrDefault("REDIS_DB", 0),
		},
		OAuth: OAuthConfig{
			Google: GoogleOAuthConfig{
				ClientID:     getEnvOrDefault("GOOGLE_CLIENT_ID", ""),
				ClientSecret: getEnvOrDefault("GOOGLE_CLIENT_SECRET", ""),
				RedirectURL:  getEnvOrDefault("GOOGLE_REDIRECT_URL", ""),
			},
			OIDC: OIDCConfig{
				IssuerURL:    getEnvOrDefault("OIDC_ISSUER_URL", ""),
				ClientID:     getEnvOrDefault("OIDC_CLIENT_ID", ""),
				ClientSecret: getEnvOrDefault("OIDC_CLIENT_SECRET", ""),
				RedirectURL:  getEnvOrDefault("OIDC_REDIRECT_URL", ""),
			},
		},
		Referral: ReferralConfig{
			BybitPartnerCode: getEnvOrDefault("BYBIT_PARTNER_CODE", "119776"),
			Domain:           getEnvOrDefault("APP_DOMAIN", "alvacapital.online"),
		},
		Security: SecurityConfig{
			EncryptionKey: getEnvOrDefault("ENCRYPTION_KEY", ""),
		},
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getRequiredEnv(key string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	panic(fmt.Sprintf("Required environment variable %s is not set", key))
}
