package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// API Configuration
	APIPort        string
	APIHost        string
	APIEnvironment string

	// Database
	DatabaseURL string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	DBSSLMode   string

	// Redis (cache + task queue broker)
	RedisURL      string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Worker
	WorkerConcurrency int

	// JWT & Security
	JWTSecret          string
	JWTExpirationHours int

	// CORS
	CORSAllowedOrigins []string

	// Rate Limiting
	RateLimitRequestsPerMinute int
	RateLimitBurst             int

	// Scraping
	GoogleMapsAPIKey         string
	ScrapeTestTimeoutSeconds int
	ScrapeTestMaxResults     int
	JobCleanupDays           int
	DefaultPhoneRegion       string

	// Sentry
	SentryDSN         string
	SentryEnvironment string

	// Logging
	LogLevel  string
	LogFormat string
}

// Load loads configuration from environment variables
func Load() *Config {
	// Optional .env for local development; missing file is fine
	_ = godotenv.Load()

	return &Config{
		// API
		APIPort:        getEnv("API_PORT", "8080"),
		APIHost:        getEnv("API_HOST", "0.0.0.0"),
		APIEnvironment: getEnv("API_ENVIRONMENT", "development"),

		// Database
		DatabaseURL: getEnv("DATABASE_URL", ""),
		DBHost:      getEnv("DB_HOST", "localhost"),
		DBPort:      getEnv("DB_PORT", "5432"),
		DBUser:      getEnv("DB_USER", "leadgen"),
		DBPassword:  getEnv("DB_PASSWORD", "localdev"),
		DBName:      getEnv("DB_NAME", "leadgen"),
		DBSSLMode:   getEnv("DB_SSL_MODE", "disable"),

		// Redis
		RedisURL:      getEnv("REDIS_URL", "redis://localhost:6379"),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		// Worker
		WorkerConcurrency: getEnvAsInt("WORKER_CONCURRENCY", 5),

		// JWT
		JWTSecret:          getEnv("JWT_SECRET", "change-this-in-production"),
		JWTExpirationHours: getEnvAsInt("JWT_EXPIRATION_HOURS", 24),

		// CORS
		CORSAllowedOrigins: []string{getEnv("CORS_ALLOWED_ORIGIN", "http://localhost:3000")},

		// Rate Limiting
		RateLimitRequestsPerMinute: getEnvAsInt("RATE_LIMIT_REQUESTS_PER_MINUTE", 60),
		RateLimitBurst:             getEnvAsInt("RATE_LIMIT_BURST", 10),

		// Scraping
		GoogleMapsAPIKey:         getEnv("GOOGLE_MAPS_API_KEY", ""),
		ScrapeTestTimeoutSeconds: getEnvAsInt("SCRAPE_TEST_TIMEOUT_SECONDS", 30),
		ScrapeTestMaxResults:     getEnvAsInt("SCRAPE_TEST_MAX_RESULTS", 5),
		JobCleanupDays:           getEnvAsInt("JOB_CLEANUP_DAYS", 30),
		DefaultPhoneRegion:       getEnv("DEFAULT_PHONE_REGION", "ES"),

		// Sentry
		SentryDSN:         getEnv("SENTRY_DSN", ""),
		SentryEnvironment: getEnv("SENTRY_ENVIRONMENT", "development"),

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}
}

// Helper functions
func getEnv(key, defaultValue string) string {
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
		return defaultValue
	}

	return value
}
