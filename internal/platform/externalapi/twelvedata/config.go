// Package twelvedata provides a client for the Twelve Data market data API.
package twelvedata

import (
	"time"
)

// DefaultBaseURL is the public Twelve Data endpoint.
const DefaultBaseURL = "https://api.twelvedata.com"

// Config holds configuration for the Twelve Data API client.
type Config struct {
	APIKey       string        // API key for authentication
	BaseURL      string        // Base URL for the API (e.g., "https://api.twelvedata.com")
	Timeout      time.Duration // HTTP request timeout
	RateLimit    int           // requests allowed per RateInterval; the free plan allows 8 per minute
	RateInterval time.Duration
}

// WithDefaults fills unset fields.
func (c Config) WithDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.RateInterval <= 0 {
		c.RateInterval = time.Minute
	}
	return c
}
