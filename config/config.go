package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"
)

// Config holds product-finder configuration.
type Config struct {
	APIBaseURL string

	AppKey     string
	AppSecret  string
	TrackingID string

	ShipToCountry  string
	TargetCurrency string
	TargetLanguage string // language the catalog is queried in
	DisplayLang    string // language titles are localized to

	PageSize int
	TopN     int

	Timeout         time.Duration
	MaxRetries      int
	RetryBackoff    time.Duration
	RetryBackoffMax time.Duration
	RateLimit       float64 // catalog requests per second, 0 disables

	CacheTTL  time.Duration
	CacheSize int

	CollageDir   string
	OutputFile   string // optional result export, empty disables
	OutputFormat string // csv, json, or dual
	MetricsAddr  string
	Verbose      bool
}

// DefaultConfig returns the defaults used against the affiliate gateway.
func DefaultConfig() *Config {
	return &Config{
		APIBaseURL:      "https://api-sg.aliexpress.com/sync",
		ShipToCountry:   "IL",
		TargetCurrency:  "USD",
		TargetLanguage:  "EN",
		DisplayLang:     "he",
		PageSize:        50,
		TopN:            4,
		Timeout:         10 * time.Second,
		MaxRetries:      2,
		RetryBackoff:    200 * time.Millisecond,
		RetryBackoffMax: 2 * time.Second,
		RateLimit:       0,
		CacheTTL:        time.Hour,
		CacheSize:       256,
		CollageDir:      "output",
		OutputFormat:    "json",
		Verbose:         false,
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.APIBaseURL == "" {
		return fmt.Errorf("API base URL cannot be empty")
	}
	parsedURL, err := url.Parse(c.APIBaseURL)
	if err != nil {
		return fmt.Errorf("invalid API base URL: %w", err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("API base URL must include a host")
	}

	if c.PageSize <= 0 {
		return fmt.Errorf("page size must be positive")
	}
	if c.TopN <= 0 || c.TopN > 4 {
		return fmt.Errorf("top N must be between 1 and 4")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	if c.RetryBackoff < 0 {
		return fmt.Errorf("retry backoff cannot be negative")
	}
	if c.RetryBackoffMax < 0 {
		return fmt.Errorf("retry backoff max cannot be negative")
	}
	if c.RetryBackoffMax > 0 && c.RetryBackoff > c.RetryBackoffMax {
		return fmt.Errorf("retry backoff (%s) cannot exceed retry backoff max (%s)", c.RetryBackoff, c.RetryBackoffMax)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate limit cannot be negative")
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("cache TTL must be positive")
	}
	if c.CacheSize < 0 {
		return fmt.Errorf("cache size cannot be negative")
	}
	if c.CollageDir == "" {
		return fmt.Errorf("collage directory cannot be empty")
	}
	if c.OutputFormat != "csv" && c.OutputFormat != "json" && c.OutputFormat != "dual" {
		return fmt.Errorf("output format must be csv, json, or dual")
	}
	if c.TargetLanguage == "" {
		return fmt.Errorf("target language cannot be empty")
	}
	if c.DisplayLang == "" {
		return fmt.Errorf("display language cannot be empty")
	}
	return nil
}

// EnvString reads a string environment override.
func EnvString(name string) (string, bool) {
	value, ok := os.LookupEnv(name)
	if !ok || value == "" {
		return "", false
	}
	return value, true
}

// EnvInt reads an integer environment override.
func EnvInt(name string) (int, bool, error) {
	value, ok := os.LookupEnv(name)
	if !ok || value == "" {
		return 0, false, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, false, fmt.Errorf("%s must be an integer: %w", name, err)
	}
	return parsed, true, nil
}
