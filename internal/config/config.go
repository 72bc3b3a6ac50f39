package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	DB struct {
		Host     string
		Port     string
		User     string
		Password string
		Name     string
		SSLMode  string
	}

	Server struct {
		Port     string
		GinMode  string
		LogLevel string
	}

	Scheduler struct {
		ShardCount       int
		ScanIntervalSecs int
		ExplorationK     float64
		VotingTopN       int
	}

	Notify struct {
		AMQPURL  string
		Exchange string
	}

	Auth struct {
		JWTSecret string
	}

	CORS struct {
		AllowOrigins string
		AllowMethods string
		AllowHeaders string
	}
}

// Load loads configuration from environment variables
func Load() *Config {
	_ = godotenv.Load()

	config := &Config{}

	config.DB.Host = getEnv("DB_HOST", "localhost")
	config.DB.Port = getEnv("DB_PORT", "5432")
	config.DB.User = getEnv("DB_USER", "quorum")
	config.DB.Password = getEnv("DB_PASSWORD", "quorum_password")
	config.DB.Name = getEnv("DB_NAME", "quorum_db")
	config.DB.SSLMode = getEnv("DB_SSLMODE", "disable")

	config.Server.Port = getEnv("PORT", "8080")
	config.Server.GinMode = getEnv("GIN_MODE", "debug")
	config.Server.LogLevel = getEnv("LOG_LEVEL", "info")

	config.Scheduler.ShardCount = getEnvAsInt("SHARD_COUNT", 8)
	config.Scheduler.ScanIntervalSecs = getEnvAsInt("SCAN_INTERVAL_SECONDS", 60)
	config.Scheduler.ExplorationK = getEnvAsFloat("SELECTOR_K", 0.2)
	config.Scheduler.VotingTopN = getEnvAsInt("VOTING_TOP_N", 3)

	config.Notify.AMQPURL = getEnv("AMQP_URL", "")
	config.Notify.Exchange = getEnv("AMQP_EXCHANGE", "quorum.events")

	config.Auth.JWTSecret = getEnv("JWT_SECRET", "dev-secret")

	config.CORS.AllowOrigins = getEnv("CORS_ALLOW_ORIGINS", "*")
	config.CORS.AllowMethods = getEnv("CORS_ALLOW_METHODS", "GET,POST,PUT,PATCH,DELETE,HEAD,OPTIONS")
	config.CORS.AllowHeaders = getEnv("CORS_ALLOW_HEADERS", "Origin,Content-Length,Content-Type,Authorization")

	return config
}

// GetDatabaseURL returns the database connection URL
func (c *Config) GetDatabaseURL() string {
	return "postgres://" + c.DB.User + ":" + c.DB.Password + "@" + c.DB.Host + ":" + c.DB.Port + "/" + c.DB.Name + "?sslmode=" + c.DB.SSLMode
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as int or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsFloat gets an environment variable as float64 or returns a default value
func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
