package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Auth         AuthConfig
	Session      SessionConfig
	Threat       ThreatConfig
	RateLimit    RateLimitConfig
	Events       EventsConfig
	Notification NotificationConfig
	Logging      LoggingConfig
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	FrontendURL     string
	Environment     string
}

// DatabaseConfig contains database configuration
type DatabaseConfig struct {
	Driver          string // postgres or sqlite
	Host            string
	Port            int
	Name            string
	User            string
	Password        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	// For SQLite
	Path string
}

// AuthConfig contains authentication configuration
type AuthConfig struct {
	JWTSecret    string
	ServiceToken string // shared token for engine-to-engine routes
	SigningKey   string // HMAC key for request signature verification
}

// SessionConfig contains session integrity tunables
type SessionConfig struct {
	MaxConcurrent int
	TTL           time.Duration
}

// ThreatConfig contains threat intelligence tunables
type ThreatConfig struct {
	CacheTTL    time.Duration
	FeedTimeout time.Duration
	FeedURL     string
	FeedAPIKey  string
}

// RateLimitConfig contains rate limiter tunables
type RateLimitConfig struct {
	SignatureMaxSkew time.Duration
	// Transport-level limiter in front of the API
	RequestsPerSecond float64
	Burst             int
}

// EventsConfig contains event pipeline tunables
type EventsConfig struct {
	RingSize      int
	RetentionDays int
	RulesFile     string
}

// NotificationConfig contains action sink configuration
type NotificationConfig struct {
	SlackWebhookURL string
	SlackChannel    string
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string
	Format string // json or console
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore errors as it's optional)
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			FrontendURL:     getEnv("FRONTEND_URL", "http://localhost:5173"),
			Environment:     getEnv("ENVIRONMENT", "development"),
		},
		Database: DatabaseConfig{
			Driver:          getEnv("DB_DRIVER", "sqlite"),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			Name:            getEnv("DB_NAME", "argus"),
			User:            getEnv("DB_USER", ""),
			Password:        getEnv("DB_PASSWORD", ""),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			Path:            getEnv("DB_PATH", "./argus.db"),
		},
		Auth: AuthConfig{
			JWTSecret:    getEnv("JWT_SECRET", ""),
			ServiceToken: getEnv("SERVICE_TOKEN", ""),
			SigningKey:   getEnv("REQUEST_SIGNING_KEY", ""),
		},
		Session: SessionConfig{
			MaxConcurrent: getEnvAsInt("SESSION_MAX_CONCURRENT", 3),
			TTL:           getEnvAsDuration("SESSION_TTL", 24*time.Hour),
		},
		Threat: ThreatConfig{
			CacheTTL:    getEnvAsDuration("THREAT_CACHE_TTL", 6*time.Hour),
			FeedTimeout: getEnvAsDuration("THREAT_FEED_TIMEOUT", 10*time.Second),
			FeedURL:     getEnv("THREAT_FEED_URL", ""),
			FeedAPIKey:  getEnv("THREAT_FEED_API_KEY", ""),
		},
		RateLimit: RateLimitConfig{
			SignatureMaxSkew:  getEnvAsDuration("SIGNATURE_MAX_SKEW", 5*time.Minute),
			RequestsPerSecond: getEnvAsFloat("HTTP_RATE_LIMIT_RPS", 100),
			Burst:             getEnvAsInt("HTTP_RATE_LIMIT_BURST", 200),
		},
		Events: EventsConfig{
			RingSize:      getEnvAsInt("EVENT_RING_SIZE", 1000),
			RetentionDays: getEnvAsInt("EVENT_RETENTION_DAYS", 30),
			RulesFile:     getEnv("ALERT_RULES_FILE", ""),
		},
		Notification: NotificationConfig{
			SlackWebhookURL: getEnv("SLACK_WEBHOOK_URL", ""),
			SlackChannel:    getEnv("SLACK_CHANNEL", "#security-alerts"),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Environment == "production" {
		if c.Auth.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required in production")
		}
		if c.Auth.ServiceToken == "" {
			return fmt.Errorf("SERVICE_TOKEN is required in production")
		}
	}
	if c.Session.MaxConcurrent < 1 {
		return fmt.Errorf("SESSION_MAX_CONCURRENT must be at least 1")
	}
	return nil
}

// DSN builds the connection string for the configured driver
func (c DatabaseConfig) DSN() string {
	if c.Driver == "sqlite" {
		return c.Path
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
