package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds gateway configuration loaded from environment variables
type Config struct {
	Port           string
	BackendAPIURL  string
	InternalAPIKey string
	PublicAPIURL   string

	RateLimitRPS   float64
	RateLimitBurst float64

	CacheTTL time.Duration

	AdminUser         string
	AdminPasswordHash string

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// LoadEnvFile loads a .env file if one is present. Missing files are not an
// error; deployed environments configure the process directly.
func LoadEnvFile() {
	if err := godotenv.Load(".env.local"); err != nil {
		if err := godotenv.Load(); err != nil {
			log.Println("No .env file found, using environment variables")
		}
	}
}

// New creates a new configuration from environment variables
func New() (*Config, error) {
	cfg := &Config{
		Port:              getEnvOrDefault("PORT", "8080"),
		BackendAPIURL:     os.Getenv("BACKEND_API_URL"),
		InternalAPIKey:    os.Getenv("INTERNAL_API_KEY"),
		PublicAPIURL:      os.Getenv("PUBLIC_API_URL"),
		RateLimitRPS:      getEnvAsFloat("RATE_LIMIT_RPS", 2),
		RateLimitBurst:    getEnvAsFloat("RATE_LIMIT_BURST", 5),
		CacheTTL:          getEnvAsDuration("CACHE_TTL", 30*time.Second),
		AdminUser:         os.Getenv("ADMIN_USER"),
		AdminPasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		ShutdownTimeout:   30 * time.Second,
	}

	if cfg.BackendAPIURL == "" {
		return nil, fmt.Errorf("BACKEND_API_URL is required")
	}
	if cfg.PublicAPIURL == "" {
		cfg.PublicAPIURL = cfg.BackendAPIURL
	}

	// The proxy fails closed per request when the key is missing, but a loud
	// warning at startup beats a silent 500 storm later.
	if cfg.InternalAPIKey == "" {
		log.Println("WARNING: INTERNAL_API_KEY not set, proxy requests will fail")
	}

	return cfg, nil
}

// getEnvOrDefault returns environment variable value or default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsFloat returns environment variable value as float64 or default
func getEnvAsFloat(key string, defaultValue float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultValue
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		log.Printf("Invalid value for %s: %q, using default", key, s)
		return defaultValue
	}
	return v
}

// getEnvAsDuration returns environment variable value as duration or default
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultValue
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		log.Printf("Invalid value for %s: %q, using default", key, s)
		return defaultValue
	}
	return v
}
