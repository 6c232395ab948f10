package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Sessions  SessionConfig
	RateLimit RateLimitConfig
	Backend   BackendConfig
}

type ServerConfig struct {
	Port     string
	LogLevel string
}

type SessionConfig struct {
	TTL             time.Duration
	SlidingExpiry   bool
	MaxPerIdentity  int
	CleanupInterval time.Duration
}

type RateLimitConfig struct {
	MaxAttempts     int
	Window          time.Duration
	LockoutDuration time.Duration
}

type BackendConfig struct {
	RequestTimeout      time.Duration
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration
	ReadRetries         int
	AllowHTTP           bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:     getEnv("PORT", "8080"),
			LogLevel: getEnv("LOG_LEVEL", "info"),
		},
		Sessions: SessionConfig{
			TTL:             getEnvAsDuration("SESSION_TTL", 8*time.Hour),
			SlidingExpiry:   getEnvAsBool("SESSION_SLIDING_EXPIRY", false),
			MaxPerIdentity:  getEnvAsInt("MAX_CONCURRENT_SESSIONS", 5),
			CleanupInterval: getEnvAsDuration("SESSION_CLEANUP_INTERVAL", 5*time.Minute),
		},
		RateLimit: RateLimitConfig{
			MaxAttempts:     getEnvAsInt("LOGIN_MAX_ATTEMPTS", 5),
			Window:          getEnvAsDuration("LOGIN_RATE_WINDOW", time.Minute),
			LockoutDuration: getEnvAsDuration("LOGIN_LOCKOUT_DURATION", 15*time.Minute),
		},
		Backend: BackendConfig{
			RequestTimeout:      getEnvAsDuration("BACKEND_REQUEST_TIMEOUT", 30*time.Second),
			MaxIdleConns:        getEnvAsInt("BACKEND_MAX_IDLE_CONNS", 25),
			MaxIdleConnsPerHost: getEnvAsInt("BACKEND_MAX_IDLE_CONNS_PER_HOST", 5),
			IdleConnTimeout:     getEnvAsDuration("BACKEND_IDLE_CONN_TIMEOUT", 90*time.Second),
			ReadRetries:         getEnvAsInt("BACKEND_READ_RETRIES", 2),
			AllowHTTP:           getEnvAsBool("ALLOW_HTTP_BACKEND", false),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Sessions.TTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	if c.Sessions.CleanupInterval <= 0 {
		return fmt.Errorf("SESSION_CLEANUP_INTERVAL must be positive")
	}
	if c.RateLimit.MaxAttempts < 0 {
		return fmt.Errorf("LOGIN_MAX_ATTEMPTS cannot be negative")
	}
	if c.RateLimit.MaxAttempts > 0 {
		if c.RateLimit.Window <= 0 {
			return fmt.Errorf("LOGIN_RATE_WINDOW must be positive when rate limiting is enabled")
		}
		if c.RateLimit.LockoutDuration <= 0 {
			return fmt.Errorf("LOGIN_LOCKOUT_DURATION must be positive when rate limiting is enabled")
		}
	}
	if c.Backend.RequestTimeout <= 0 {
		return fmt.Errorf("BACKEND_REQUEST_TIMEOUT must be positive")
	}
	if c.Backend.ReadRetries < 0 {
		return fmt.Errorf("BACKEND_READ_RETRIES cannot be negative")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}
