package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/aluiziolira/go-scrape-listings/query"
)

// Config holds scraper configuration.
type Config struct {
	BaseURL                string        `yaml:"base_url"`
	Timeout                time.Duration `yaml:"timeout"`
	MaxRetries             int           `yaml:"max_retries"`
	RetryBackoff           time.Duration `yaml:"retry_backoff"`
	RetryBackoffMax        time.Duration `yaml:"retry_backoff_max"`
	RandomDelay            time.Duration `yaml:"random_delay"`
	RequestsPerSecond      float64       `yaml:"requests_per_second"`
	MaxConsecutiveFailures int           `yaml:"max_consecutive_failures"`
	UserAgent              string        `yaml:"user_agent"`
	RespectRobotsTxt       bool          `yaml:"respect_robots_txt"`
	OutputFile             string        `yaml:"output_file"`
	OutputFormat           string        `yaml:"output_format"` // csv, json, dual or sqlite
	Verbose                bool          `yaml:"verbose"`
	MetricsAddr            string        `yaml:"metrics_addr"`
	BatchSize              int           `yaml:"batch_size"`
	PipelineBufferSize     int           `yaml:"pipeline_buffer_size"`
	HistorySize            int           `yaml:"history_size"`
	DetailPages            bool          `yaml:"detail_pages"`
	Schedule               string        `yaml:"schedule"`
	Search                 query.Config  `yaml:"-"`
}

// DefaultConfig returns conservative defaults for the listing site.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:                "https://www.funda.nl",
		Timeout:                15 * time.Second,
		MaxRetries:             2,
		RetryBackoff:           500 * time.Millisecond,
		RetryBackoffMax:        5 * time.Second,
		RandomDelay:            500 * time.Millisecond,
		RequestsPerSecond:      1,
		MaxConsecutiveFailures: 3,
		UserAgent:              "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36",
		RespectRobotsTxt:       false,
		OutputFile:             "output/listings.csv",
		OutputFormat:           "csv",
		Verbose:                false,
		MetricsAddr:            "",
		BatchSize:              50,
		PipelineBufferSize:     256,
		HistorySize:            10000,
		Search: query.Config{
			Area:          "amsterdam",
			WantTo:        query.Buy,
			PageStart:     1,
			NumberOfPages: 1,
		},
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}

	parsedURL, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("base URL must include a host")
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
	if c.RandomDelay < 0 {
		return fmt.Errorf("random delay cannot be negative")
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("requests per second cannot be negative")
	}
	if c.MaxConsecutiveFailures <= 0 {
		return fmt.Errorf("max consecutive failures must be positive")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	if c.OutputFile == "" {
		return fmt.Errorf("output file cannot be empty")
	}
	switch c.OutputFormat {
	case "csv", "json", "dual", "sqlite":
	default:
		return fmt.Errorf("output format must be csv, json, dual, or sqlite")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive")
	}
	if c.PipelineBufferSize <= 0 {
		return fmt.Errorf("pipeline buffer size must be positive")
	}
	if c.HistorySize < 0 {
		return fmt.Errorf("history size cannot be negative")
	}
	if c.Schedule != "" {
		if _, err := cron.ParseStandard(c.Schedule); err != nil {
			return fmt.Errorf("invalid schedule %q: %w", c.Schedule, err)
		}
	}
	if err := c.Search.Validate(); err != nil {
		return fmt.Errorf("search: %w", err)
	}

	return nil
}
