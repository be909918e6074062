package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// JWT configuration
	JWT JWTConfig

	// Redis configuration
	Redis RedisConfig

	// RabbitMQ configuration
	Queue QueueConfig

	// Booking lifecycle configuration
	Booking BookingConfig

	// Payment gateway simulation configuration
	Payment PaymentConfig

	// Email configuration
	Email EmailConfig

	// CORS configuration
	CORS CORSConfig

	// Security configuration
	Security SecurityConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port        string
	Environment string // development, staging, production
	LogLevel    string // debug, info, warn, error
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	URL                string
	MaxConnections     int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
}

// JWTConfig holds JWT-related configuration
type JWTConfig struct {
	Secret             string
	RefreshSecret      string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
}

// RedisConfig holds the availability-cache connection settings
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	CacheTTL time.Duration
}

// QueueConfig holds RabbitMQ connection settings
type QueueConfig struct {
	URL       string
	QueueName string
}

// BookingConfig holds booking lifecycle settings
type BookingConfig struct {
	ExpiryMinutes         int
	CancelCutoffHours     int
	SweepIntervalSeconds  int
}

// PaymentConfig holds gateway simulation settings
type PaymentConfig struct {
	// FailureRates maps a lowercase method name to its simulated failure
	// probability in [0,1]. The "refund" key covers refund attempts.
	FailureRates    map[string]float64
	ProcessingDelay time.Duration
}

// EmailConfig holds outbound mail settings
type EmailConfig struct {
	Mode        string // "dev" logs messages instead of sending
	SMTPHost    string
	SMTPPort    int
	Username    string
	Password    string
	FromAddress string
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	BcryptCost       int
	EnableRequestLog bool
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			URL:                getEnv("DATABASE_URL", ""),
			MaxConnections:     getEnvAsInt("DATABASE_MAX_CONNECTIONS", 10),
			MaxIdleConnections: getEnvAsInt("DATABASE_MAX_IDLE_CONNECTIONS", 5),
			ConnMaxLifetime:    time.Duration(getEnvAsInt("DATABASE_CONN_MAX_LIFETIME", 300)) * time.Second,
		},
		JWT: JWTConfig{
			Secret:             getEnv("JWT_SECRET", ""),
			RefreshSecret:      getEnv("JWT_REFRESH_SECRET", ""),
			AccessTokenExpiry:  time.Duration(getEnvAsInt("JWT_ACCESS_TOKEN_EXPIRY", 3600)) * time.Second,
			RefreshTokenExpiry: time.Duration(getEnvAsInt("JWT_REFRESH_TOKEN_EXPIRY", 604800)) * time.Second,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			CacheTTL: time.Duration(getEnvAsInt("AVAILABILITY_CACHE_TTL_SECONDS", 30)) * time.Second,
		},
		Queue: QueueConfig{
			URL:       getEnv("RABBITMQ_URL", ""),
			QueueName: getEnv("RABBITMQ_QUEUE", "booking.confirmed"),
		},
		Booking: BookingConfig{
			ExpiryMinutes:        getEnvAsInt("BOOKING_EXPIRY_MINUTES", 15),
			CancelCutoffHours:    getEnvAsInt("CANCEL_CUTOFF_HOURS", 2),
			SweepIntervalSeconds: getEnvAsInt("EXPIRY_SWEEP_INTERVAL_SECONDS", 60),
		},
		Payment: PaymentConfig{
			FailureRates: map[string]float64{
				"card":   getEnvAsFloat("GATEWAY_FAILURE_RATE_CARD", 0.10),
				"bkash":  getEnvAsFloat("GATEWAY_FAILURE_RATE_BKASH", 0.05),
				"nagad":  getEnvAsFloat("GATEWAY_FAILURE_RATE_NAGAD", 0.00),
				"rocket": getEnvAsFloat("GATEWAY_FAILURE_RATE_ROCKET", 0.07),
				"refund": getEnvAsFloat("GATEWAY_FAILURE_RATE_REFUND", 0.15),
			},
			ProcessingDelay: time.Duration(getEnvAsInt("GATEWAY_PROCESSING_DELAY_MS", 200)) * time.Millisecond,
		},
		Email: EmailConfig{
			Mode:        getEnv("EMAIL_MODE", "dev"),
			SMTPHost:    getEnv("SMTP_HOST", ""),
			SMTPPort:    getEnvAsInt("SMTP_PORT", 587),
			Username:    getEnv("SMTP_USERNAME", ""),
			Password:    getEnv("SMTP_PASSWORD", ""),
			FromAddress: getEnv("EMAIL_FROM", "no-reply@ticketkini.com"),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods: getEnvAsSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
			AllowedHeaders: getEnvAsSlice("CORS_ALLOWED_HEADERS", []string{"Content-Type", "Authorization"}),
		},
		Security: SecurityConfig{
			BcryptCost:       getEnvAsInt("BCRYPT_COST", 12),
			EnableRequestLog: getEnvAsBool("ENABLE_REQUEST_LOGGING", true),
		},
	}

	// Validate required configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if c.JWT.RefreshSecret == "" {
		return fmt.Errorf("JWT_REFRESH_SECRET is required")
	}

	if c.Booking.ExpiryMinutes <= 0 {
		return fmt.Errorf("BOOKING_EXPIRY_MINUTES must be positive")
	}

	for method, rate := range c.Payment.FailureRates {
		if rate < 0 || rate > 1 {
			return fmt.Errorf("failure rate for %s must be within [0,1], got %f", method, rate)
		}
	}

	// Validate email configuration only in production mode
	if c.Email.Mode == "production" {
		if c.Email.SMTPHost == "" {
			return fmt.Errorf("SMTP_HOST is required in production email mode")
		}
		if c.Email.Username == "" {
			return fmt.Errorf("SMTP_USERNAME is required in production email mode")
		}
		if c.Email.Password == "" {
			return fmt.Errorf("SMTP_PASSWORD is required in production email mode")
		}
	}

	return nil
}

// Helper functions to get environment variables

func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid integer value for %s, using default: %d", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Printf("Invalid float value for %s, using default: %f", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Invalid boolean value for %s, using default: %t", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var result []string
	for _, v := range strings.Split(valueStr, ",") {
		trimmed := strings.TrimSpace(v)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
