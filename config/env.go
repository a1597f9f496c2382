package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/aluiziolira/go-scrape-listings/query"
)

// LoadEnv loads .env style files into the process environment without
// overriding variables that are already set. With no arguments it reads
// ./.env and ignores its absence.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load .env: %w", err)
		}
		return nil
	}
	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("load env files: %w", err)
	}
	return nil
}

// EnvString returns the trimmed value of key and whether it was set.
func EnvString(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}

// EnvInt parses key as an integer.
func EnvInt(key string) (int, bool, error) {
	raw, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", key, err)
	}
	return value, true, nil
}

// EnvFloat parses key as a float.
func EnvFloat(key string) (float64, bool, error) {
	raw, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", key, err)
	}
	return value, true, nil
}

// EnvBool parses key with strconv.ParseBool.
func EnvBool(key string) (bool, bool, error) {
	raw, ok := EnvString(key)
	if !ok {
		return false, false, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false, fmt.Errorf("%s: %w", key, err)
	}
	return value, true, nil
}

// EnvDuration parses key as a Go duration such as "500ms".
func EnvDuration(key string) (time.Duration, bool, error) {
	raw, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", key, err)
	}
	return value, true, nil
}

// ApplyEnv overrides cfg with the SCRAPER_* variables that are set.
func ApplyEnv(cfg *Config) error {
	strs := []struct {
		key string
		dst *string
	}{
		{"SCRAPER_BASE_URL", &cfg.BaseURL},
		{"SCRAPER_USER_AGENT", &cfg.UserAgent},
		{"SCRAPER_OUTPUT", &cfg.OutputFile},
		{"SCRAPER_FORMAT", &cfg.OutputFormat},
		{"SCRAPER_METRICS_ADDR", &cfg.MetricsAddr},
		{"SCRAPER_SCHEDULE", &cfg.Schedule},
		{"SCRAPER_AREA", &cfg.Search.Area},
	}
	for _, s := range strs {
		if value, ok := EnvString(s.key); ok {
			*s.dst = value
		}
	}
	if value, ok := EnvString("SCRAPER_WANT_TO"); ok {
		cfg.Search.WantTo = query.TransactionType(value)
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"SCRAPER_PAGE_START", &cfg.Search.PageStart},
		{"SCRAPER_PAGES", &cfg.Search.NumberOfPages},
		{"SCRAPER_MAX_RETRIES", &cfg.MaxRetries},
		{"SCRAPER_MAX_CONSECUTIVE_FAILURES", &cfg.MaxConsecutiveFailures},
		{"SCRAPER_BATCH_SIZE", &cfg.BatchSize},
		{"SCRAPER_BUFFER_SIZE", &cfg.PipelineBufferSize},
		{"SCRAPER_HISTORY_SIZE", &cfg.HistorySize},
	}
	for _, i := range ints {
		value, ok, err := EnvInt(i.key)
		if err != nil {
			return err
		}
		if ok {
			*i.dst = value
		}
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"SCRAPER_TIMEOUT", &cfg.Timeout},
		{"SCRAPER_RETRY_BACKOFF", &cfg.RetryBackoff},
		{"SCRAPER_RETRY_BACKOFF_MAX", &cfg.RetryBackoffMax},
		{"SCRAPER_RANDOM_DELAY", &cfg.RandomDelay},
	}
	for _, d := range durations {
		value, ok, err := EnvDuration(d.key)
		if err != nil {
			return err
		}
		if ok {
			*d.dst = value
		}
	}

	if value, ok, err := EnvFloat("SCRAPER_RPS"); err != nil {
		return err
	} else if ok {
		cfg.RequestsPerSecond = value
	}

	bools := []struct {
		key string
		dst *bool
	}{
		{"SCRAPER_FIND_PAST", &cfg.Search.FindPast},
		{"SCRAPER_RAW", &cfg.Search.RawData},
		{"SCRAPER_RESPECT_ROBOTS", &cfg.RespectRobotsTxt},
		{"SCRAPER_VERBOSE", &cfg.Verbose},
		{"SCRAPER_DETAIL_PAGES", &cfg.DetailPages},
	}
	for _, b := range bools {
		value, ok, err := EnvBool(b.key)
		if err != nil {
			return err
		}
		if ok {
			*b.dst = value
		}
	}
	return nil
}
