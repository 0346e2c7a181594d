package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the display-currency engine.
type Config struct {
	Port     string
	LogLevel string

	// Currency graph
	PivotCurrency       string
	DefaultCurrency     string
	SupportedCurrencies []string

	// External rate source
	RateServiceBaseURL string
	RateServiceTimeout time.Duration

	// Preference store (authenticated sessions only)
	PreferenceStoreBaseURL string
	SessionToken           string

	// Cache lifecycle
	RateSoftTTL   time.Duration
	RateHardTTL   time.Duration
	SweepInterval time.Duration

	// Scheduling
	ThrottleWindow           time.Duration
	DebounceWindow           time.Duration
	MaxConcurrentResolutions int

	// HTTP rate limiting
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration
	RateLimitBurst    int
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	return &Config{
		Port:     getEnv("PORT", "8081"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		PivotCurrency:       getEnv("PIVOT_CURRENCY", "ALGO"),
		DefaultCurrency:     getEnv("DEFAULT_CURRENCY", "USD"),
		SupportedCurrencies: splitList(getEnv("SUPPORTED_CURRENCIES", "ALGO,USD,EUR,GBP,JPY,CAD,AUD,CHF")),

		RateServiceBaseURL: getEnv("RATE_SERVICE_BASE_URL", "http://localhost:9090"),
		RateServiceTimeout: time.Duration(mustAtoi(getEnv("RATE_SERVICE_TIMEOUT_SECONDS", "10"))) * time.Second,

		PreferenceStoreBaseURL: getEnv("PREFERENCE_STORE_BASE_URL", ""),
		SessionToken:           getEnv("SESSION_TOKEN", ""),

		RateSoftTTL:   time.Duration(mustAtoi(getEnv("RATE_SOFT_TTL_SECONDS", "300"))) * time.Second,
		RateHardTTL:   time.Duration(mustAtoi(getEnv("RATE_HARD_TTL_SECONDS", "600"))) * time.Second,
		SweepInterval: time.Duration(mustAtoi(getEnv("SWEEP_INTERVAL_SECONDS", "120"))) * time.Second,

		ThrottleWindow:           time.Duration(mustAtoi(getEnv("THROTTLE_WINDOW_MS", "5000"))) * time.Millisecond,
		DebounceWindow:           time.Duration(mustAtoi(getEnv("DEBOUNCE_WINDOW_MS", "300"))) * time.Millisecond,
		MaxConcurrentResolutions: mustAtoi(getEnv("MAX_CONCURRENT_RESOLUTIONS", "4")),

		RateLimitEnabled:  getEnv("RATE_LIMIT_ENABLED", "true") == "true",
		RateLimitRequests: mustAtoi(getEnv("RATE_LIMIT_REQUESTS", "100")),
		RateLimitWindow:   time.Duration(mustAtoi(getEnv("RATE_LIMIT_WINDOW_SECONDS", "60"))) * time.Second,
		RateLimitBurst:    mustAtoi(getEnv("RATE_LIMIT_BURST", "10")),
	}, nil
}

// IsSupported reports whether code is the pivot or one of the configured
// display currencies.
func (c *Config) IsSupported(code string) bool {
	if code == c.PivotCurrency {
		return true
	}
	for _, supported := range c.SupportedCurrencies {
		if supported == code {
			return true
		}
	}
	return false
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	list := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.ToUpper(strings.TrimSpace(part))
		if part != "" {
			list = append(list, part)
		}
	}
	return list
}

// getEnv gets an environment variable with a fallback value
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func mustAtoi(s string) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 60
	}
	return i
}
