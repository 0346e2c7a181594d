package testutils

import (
	"context"
	"time"

	"github.com/dalfonso89/display-currency-engine/internal/config"
	"github.com/dalfonso89/display-currency-engine/internal/logger"
	"github.com/dalfonso89/display-currency-engine/internal/models"
)

// MockLogger creates a quiet logger for testing
func MockLogger() *logger.Logger {
	return logger.NewSilent()
}

// MockConfig creates a mock configuration for testing
func MockConfig() *config.Config {
	return &config.Config{
		Port:     "8081",
		LogLevel: "debug",

		PivotCurrency:       "ALGO",
		DefaultCurrency:     "USD",
		SupportedCurrencies: []string{"ALGO", "USD", "EUR", "GBP", "JPY"},

		RateServiceBaseURL: "http://127.0.0.1:9090",
		RateServiceTimeout: 10 * time.Second,

		RateSoftTTL:   5 * time.Minute,
		RateHardTTL:   10 * time.Minute,
		SweepInterval: 2 * time.Minute,

		ThrottleWindow:           5 * time.Second,
		DebounceWindow:           300 * time.Millisecond,
		MaxConcurrentResolutions: 4,

		RateLimitEnabled:  true,
		RateLimitRequests: 100,
		RateLimitWindow:   60 * time.Second,
		RateLimitBurst:    10,
	}
}

// MockBindings creates a typical page's worth of bindings for testing
func MockBindings() []models.DisplayBinding {
	return []models.DisplayBinding{
		{ID: "price-1", SourceAmount: 100, SourceCurrency: "EUR", Format: models.FormatOptions{Precision: -1}},
		{ID: "price-2", SourceAmount: 50, SourceCurrency: "EUR", Format: models.FormatOptions{Precision: -1}},
		{ID: "price-3", SourceAmount: 10, SourceCurrency: "USD", Format: models.FormatOptions{Precision: -1}},
	}
}

// MockContext creates a mock context for testing
func MockContext() context.Context {
	return context.Background()
}

// MockContextWithTimeout creates a mock context with timeout for testing
func MockContextWithTimeout(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}
