package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	OAuth    OAuthConfig
	SMS      SMSConfig
	Booking  BookingConfig
}

// ServerConfig holds server-specific configuration.
type ServerConfig struct {
	Port         string
	Environment  string
	ReadTimeout  int // seconds
	WriteTimeout int // seconds
	CORSOrigin   string
	FrontendURL  string // OAuth redirect target
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
	MinConns int
}

// DSN builds a pgx connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

// RedisConfig holds the ephemeral KV configuration.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	// FallbackAllowed lets the process degrade to an in-memory store when
	// Redis is unreachable. OTPs and quote fast-path are lost on restart.
	FallbackAllowed bool
}

// Addr returns the host:port pair for the Redis client.
func (c *RedisConfig) Addr() string {
	return c.Host + ":" + c.Port
}

// JWTConfig holds token signing configuration.
type JWTConfig struct {
	Secret          string
	ExpirationHours int
}

// Expiration returns the configured token lifetime.
func (c *JWTConfig) Expiration() time.Duration {
	return time.Duration(c.ExpirationHours) * time.Hour
}

// OAuthConfig holds Google OAuth configuration.
type OAuthConfig struct {
	GoogleClientID     string
	GoogleClientSecret string
	RedirectURL        string
}

// Configured reports whether the Google OAuth flow can be served.
func (c *OAuthConfig) Configured() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

// SMSConfig holds the Twilio sender configuration. When AccountSID is empty
// OTP codes are logged instead of sent, which is the development behavior.
type SMSConfig struct {
	AccountSID string
	AuthToken  string
	FromNumber string
}

// BookingConfig holds orchestration tunables.
type BookingConfig struct {
	// SimulationEnabled fires a CONFIRMED transition 8s after creation.
	// Forced off in production regardless of the env toggle.
	SimulationEnabled bool
	AssignmentWorkers int
	MaxRecoveryTries  int
}

// Load loads configuration from environment variables. A .env file is
// honored when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	environment := getEnv("ENVIRONMENT", "development")

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			Environment:  environment,
			ReadTimeout:  getEnvAsInt("READ_TIMEOUT", 10),
			WriteTimeout: getEnvAsInt("WRITE_TIMEOUT", 10),
			CORSOrigin:   getEnv("CORS_ORIGIN", "http://localhost:3000"),
			FrontendURL:  getEnv("FRONTEND_URL", "http://localhost:3000"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "safar"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns: getEnvAsInt("DB_MIN_CONNS", 5),
		},
		Redis: RedisConfig{
			Host:            getEnv("REDIS_HOST", "localhost"),
			Port:            getEnv("REDIS_PORT", "6379"),
			Password:        getEnv("REDIS_PASSWORD", ""),
			DB:              getEnvAsInt("REDIS_DB", 0),
			FallbackAllowed: getEnvAsBool("CACHE_FALLBACK_ALLOWED", true),
		},
		JWT: JWTConfig{
			Secret:          getEnv("JWT_SECRET", "change-me-in-production"),
			ExpirationHours: getEnvAsInt("JWT_EXPIRATION_HOURS", 168),
		},
		OAuth: OAuthConfig{
			GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
			GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
			RedirectURL:        getEnv("GOOGLE_REDIRECT_URL", ""),
		},
		SMS: SMSConfig{
			AccountSID: getEnv("TWILIO_ACCOUNT_SID", ""),
			AuthToken:  getEnv("TWILIO_AUTH_TOKEN", ""),
			FromNumber: getEnv("TWILIO_FROM_NUMBER", ""),
		},
		Booking: BookingConfig{
			SimulationEnabled: environment != "production" &&
				!getEnvAsBool("DISABLE_BOOKING_SIMULATION", false),
			AssignmentWorkers: getEnvAsInt("ASSIGNMENT_WORKERS", 4),
			MaxRecoveryTries:  getEnvAsInt("MAX_RECOVERY_TRIES", 3),
		},
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}
