package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the report lifecycle service
type Config struct {
	// Database configuration
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Connection pool sizing
	DBMaxOpenConns int
	DBMaxIdleConns int

	// Server configuration
	Port string

	// Auth configuration
	JWTSecret string

	// Municipality boundary file (GeoJSON Polygon or MultiPolygon)
	BoundaryFile string

	// RabbitMQ configuration for notification publishing
	RabbitMQHost                   string
	RabbitMQPort                   string
	RabbitMQUser                   string
	RabbitMQPassword               string
	RabbitMQExchange               string
	RabbitMQNotificationRoutingKey string

	// Optimistic write retry backoff
	ConflictRetryDelay time.Duration

	// Logging
	LogLevel string
}

// Load loads configuration from environment variables
func Load() *Config {
	config := &Config{
		// Database defaults
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "server"),
		DBPassword: getEnv("DB_PASSWORD", "secret"),
		DBName:     getEnv("DB_NAME", "participium"),

		DBMaxOpenConns: getIntEnv("DB_MAX_OPEN_CONNS", 25),
		DBMaxIdleConns: getIntEnv("DB_MAX_IDLE_CONNS", 5),

		// Server defaults
		Port: getEnv("PORT", "8080"),

		// Auth defaults
		JWTSecret: getEnv("JWT_SECRET", "dev-secret-change-in-production"),

		// Boundary defaults
		BoundaryFile: getEnv("BOUNDARY_GEOJSON_FILE", "municipality_boundary.geojson"),

		// RabbitMQ defaults
		RabbitMQHost:                   getEnv("AMQP_HOST", "localhost"),
		RabbitMQPort:                   getEnv("AMQP_PORT", "5672"),
		RabbitMQUser:                   getEnv("AMQP_USER", "guest"),
		RabbitMQPassword:               getEnv("AMQP_PASSWORD", "guest"),
		RabbitMQExchange:               getEnv("RABBITMQ_EXCHANGE", "participium_exchange"),
		RabbitMQNotificationRoutingKey: getEnv("RABBITMQ_NOTIFICATION_ROUTING_KEY", "notification.report"),

		ConflictRetryDelay: getDurationEnv("CONFLICT_RETRY_DELAY", 50*time.Millisecond),

		// Logging defaults
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	return config
}

// GetRabbitMQURL constructs the AMQP URL from individual components
func (c *Config) GetRabbitMQURL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s", c.RabbitMQUser, c.RabbitMQPassword, c.RabbitMQHost, c.RabbitMQPort)
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getDurationEnv gets a duration environment variable or returns a default value
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getIntEnv gets an integer environment variable or returns a default value
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
