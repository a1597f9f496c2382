package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aluiziolira/go-scrape-listings/query"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name: "empty base url",
			mutate: func(cfg *Config) {
				cfg.BaseURL = ""
			},
			wantErr: "base URL",
		},
		{
			name: "invalid url format",
			mutate: func(cfg *Config) {
				cfg.BaseURL = "http://"
			},
			wantErr: "base URL",
		},
		{
			name: "negative timeout",
			mutate: func(cfg *Config) {
				cfg.Timeout = -1 * time.Second
			},
			wantErr: "timeout",
		},
		{
			name: "backoff above max",
			mutate: func(cfg *Config) {
				cfg.RetryBackoff = time.Minute
			},
			wantErr: "retry backoff",
		},
		{
			name: "negative rate",
			mutate: func(cfg *Config) {
				cfg.RequestsPerSecond = -1
			},
			wantErr: "requests per second",
		},
		{
			name: "zero failure budget",
			mutate: func(cfg *Config) {
				cfg.MaxConsecutiveFailures = 0
			},
			wantErr: "consecutive failures",
		},
		{
			name: "unknown format",
			mutate: func(cfg *Config) {
				cfg.OutputFormat = "xml"
			},
			wantErr: "output format",
		},
		{
			name: "zero batch size",
			mutate: func(cfg *Config) {
				cfg.BatchSize = 0
			},
			wantErr: "batch size",
		},
		{
			name: "bad schedule",
			mutate: func(cfg *Config) {
				cfg.Schedule = "every day"
			},
			wantErr: "schedule",
		},
		{
			name: "bad search",
			mutate: func(cfg *Config) {
				cfg.Search.Sort = "cheapest"
			},
			wantErr: "search",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidateWrapsConfigurationError(t *testing.T) {
	cfg := DefaultConfig()
	minPrice, maxPrice := 500, 200
	cfg.Search.MinPrice, cfg.Search.MaxPrice = &minPrice, &maxPrice

	err := cfg.Validate()
	if !errors.Is(err, query.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate, got %v", err)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("SCRAPER_AREA", "Utrecht")
	t.Setenv("SCRAPER_WANT_TO", "huur")
	t.Setenv("SCRAPER_PAGES", "4")
	t.Setenv("SCRAPER_TIMEOUT", "30s")
	t.Setenv("SCRAPER_RPS", "0.5")
	t.Setenv("SCRAPER_FIND_PAST", "true")
	t.Setenv("SCRAPER_FORMAT", " ")

	cfg := DefaultConfig()
	if err := ApplyEnv(cfg); err != nil {
		t.Fatalf("apply env: %v", err)
	}
	if cfg.Search.Area != "Utrecht" || cfg.Search.WantTo != "huur" || cfg.Search.NumberOfPages != 4 {
		t.Fatalf("search = %+v", cfg.Search)
	}
	if cfg.Timeout != 30*time.Second || cfg.RequestsPerSecond != 0.5 || !cfg.Search.FindPast {
		t.Fatalf("timeout=%v rps=%v find_past=%v", cfg.Timeout, cfg.RequestsPerSecond, cfg.Search.FindPast)
	}
	if cfg.OutputFormat != "csv" {
		t.Fatalf("blank variable overrode format: %q", cfg.OutputFormat)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestApplyEnvInvalid(t *testing.T) {
	t.Setenv("SCRAPER_MAX_RETRIES", "many")
	if err := ApplyEnv(DefaultConfig()); err == nil || !strings.Contains(err.Error(), "SCRAPER_MAX_RETRIES") {
		t.Fatalf("expected error naming SCRAPER_MAX_RETRIES, got %v", err)
	}
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte("SCRAPER_TEST_ONLY_AREA=haarlem\n"), 0o644); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("SCRAPER_TEST_ONLY_AREA") })

	if err := LoadEnv(path); err != nil {
		t.Fatalf("load env: %v", err)
	}
	if got, ok := EnvString("SCRAPER_TEST_ONLY_AREA"); !ok || got != "haarlem" {
		t.Fatalf("env = %q, %v", got, ok)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scraper.yaml")
	doc := `
search:
  area: den haag
  want_to: rent
  find_past: true
  number_of_pages: 5
  min_price: 1000
  property_type: [apartment, house]
  sort: date_down
scraper:
  timeout: 20s
  output_format: sqlite
  requests_per_second: 2
  schedule: "0 6 * * *"
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg := DefaultConfig()
	if err := LoadFile(path, cfg); err != nil {
		t.Fatalf("load file: %v", err)
	}

	if cfg.Search.Area != "den haag" || cfg.Search.WantTo != query.Rent || !cfg.Search.FindPast {
		t.Fatalf("search = %+v", cfg.Search)
	}
	if cfg.Search.NumberOfPages != 5 || cfg.Search.PageStart != 1 {
		t.Fatalf("pages = %d+%d", cfg.Search.PageStart, cfg.Search.NumberOfPages)
	}
	if cfg.Search.MinPrice == nil || *cfg.Search.MinPrice != 1000 || cfg.Search.MaxPrice != nil {
		t.Fatalf("price bounds = %v-%v", cfg.Search.MinPrice, cfg.Search.MaxPrice)
	}
	if len(cfg.Search.PropertyTypes) != 2 || cfg.Search.PropertyTypes[0] != query.Apartment {
		t.Fatalf("property types = %v", cfg.Search.PropertyTypes)
	}
	if cfg.Timeout != 20*time.Second || cfg.OutputFormat != "sqlite" || cfg.RequestsPerSecond != 2 {
		t.Fatalf("scraper = timeout %v format %q rps %v", cfg.Timeout, cfg.OutputFormat, cfg.RequestsPerSecond)
	}
	if cfg.BaseURL != DefaultConfig().BaseURL {
		t.Fatalf("absent key changed base url to %q", cfg.BaseURL)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestLoadFileMissing(t *testing.T) {
	if err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"), DefaultConfig()); err == nil {
		t.Fatal("expected error for missing file")
	}
}
