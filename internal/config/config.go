package config

import (
	"os"
	"strings"
	"time"
)

type Config struct {
	// Base URL of the cashier server that owns the authoritative cart.
	CashierURL string

	// RegisterID is the caja this terminal operates; sent with every call.
	RegisterID string

	// FallbackCSRFToken stands in for the page-embedded token when the
	// cookie jar holds no csrftoken yet.
	FallbackCSRFToken string

	RequestTimeout time.Duration
	EditDebounce   time.Duration
}

func Load() Config {
	return Config{
		CashierURL:        getenv("CASHIER_URL", "http://localhost:8000"),
		RegisterID:        getenv("CAJA_ID", ""),
		FallbackCSRFToken: getenv("CSRF_TOKEN", ""),
		RequestTimeout:    parseDuration(getenv("REQUEST_TIMEOUT", "10s"), 10*time.Second),
		EditDebounce:      parseDuration(getenv("EDIT_DEBOUNCE", "450ms"), 450*time.Millisecond),
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); strings.TrimSpace(v) != "" {
		return v
	}
	return def
}

func parseDuration(v string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
