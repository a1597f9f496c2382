package main

import (
	"flag"
	"strconv"

	"github.com/aluiziolira/go-scrape-listings/config"
	"github.com/aluiziolira/go-scrape-listings/query"
)

// optionalInt binds a flag to a nil-able integer; unset flags leave it nil.
type optionalInt struct {
	dst **int
}

func (o optionalInt) String() string {
	if o.dst == nil || *o.dst == nil {
		return ""
	}
	return strconv.Itoa(**o.dst)
}

func (o optionalInt) Set(s string) error {
	v, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	*o.dst = &v
	return nil
}

// bindFlags registers the command line flags on fs, writing straight into
// cfg. Defaults are the values cfg holds when called.
func bindFlags(fs *flag.FlagSet, cfg *config.Config) *string {
	configPath := fs.String("config", "", "YAML configuration file")

	q := &cfg.Search
	fs.StringVar(&q.Area, "area", q.Area, "City or area to search")
	fs.Func("want-to", "Market: buy or rent (default "+string(q.WantTo)+")", func(s string) error {
		t, err := query.ParseTransactionType(s)
		if err != nil {
			return err
		}
		q.WantTo = t
		return nil
	})
	fs.BoolVar(&q.FindPast, "find-past", q.FindPast, "Search sold or rented listings")
	fs.IntVar(&q.PageStart, "page-start", q.PageStart, "First result page")
	fs.IntVar(&q.NumberOfPages, "pages", q.NumberOfPages, "Number of result pages")
	fs.Var(optionalInt{&q.MinPrice}, "min-price", "Minimum price")
	fs.Var(optionalInt{&q.MaxPrice}, "max-price", "Maximum price")
	fs.Var(optionalInt{&q.MinFloorArea}, "min-floor-area", "Minimum living area (m²)")
	fs.Var(optionalInt{&q.MaxFloorArea}, "max-floor-area", "Maximum living area (m²)")
	fs.Var(optionalInt{&q.DaysSince}, "days-since", "Listed within the last 1, 3, 5, 10 or 30 days")
	fs.Func("property-type", "Comma separated property types", func(s string) error {
		q.PropertyTypes = query.ParsePropertyTypes(s)
		return nil
	})
	fs.Func("sort", "Result ordering, e.g. date_down or price_up", func(s string) error {
		q.Sort = query.SortKey(s)
		return nil
	})
	fs.BoolVar(&q.RawData, "raw", q.RawData, "Export extracted text without normalization")

	fs.StringVar(&cfg.BaseURL, "base-url", cfg.BaseURL, "Base URL of the listing site")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "Per-request timeout")
	fs.IntVar(&cfg.MaxRetries, "max-retries", cfg.MaxRetries, "Maximum retry attempts per page")
	fs.DurationVar(&cfg.RetryBackoff, "retry-backoff", cfg.RetryBackoff, "Initial retry backoff")
	fs.DurationVar(&cfg.RetryBackoffMax, "retry-backoff-max", cfg.RetryBackoffMax, "Maximum retry backoff")
	fs.DurationVar(&cfg.RandomDelay, "random-delay", cfg.RandomDelay, "Random jitter added between requests")
	fs.Float64Var(&cfg.RequestsPerSecond, "rps", cfg.RequestsPerSecond, "Page requests per second (0 disables pacing)")
	fs.IntVar(&cfg.MaxConsecutiveFailures, "max-consecutive-failures", cfg.MaxConsecutiveFailures, "Consecutive failed pages before aborting")
	fs.BoolVar(&cfg.RespectRobotsTxt, "respect-robots", cfg.RespectRobotsTxt, "Respect robots.txt directives")
	fs.StringVar(&cfg.OutputFile, "output", cfg.OutputFile, "Output file path")
	fs.StringVar(&cfg.OutputFormat, "format", cfg.OutputFormat, "Output format: csv, json, dual, or sqlite")
	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "Prometheus metrics listen address (e.g. :9090)")
	fs.StringVar(&cfg.Schedule, "schedule", cfg.Schedule, "Cron schedule for repeated runs")
	fs.BoolVar(&cfg.DetailPages, "detail-pages", cfg.DetailPages, "Fetch each listing's detail page for the full feature set")
	fs.IntVar(&cfg.HistorySize, "history-size", cfg.HistorySize, "Listings remembered across scheduled runs (0 disables)")
	fs.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "Enable verbose logging")

	return configPath
}

// loadConfig builds the configuration from defaults, the environment, an
// optional YAML file and the command line, later sources winning.
func loadConfig(fs *flag.FlagSet, args []string) (*config.Config, error) {
	if err := config.LoadEnv(); err != nil {
		return nil, err
	}
	cfg := config.DefaultConfig()
	if err := config.ApplyEnv(cfg); err != nil {
		return nil, err
	}

	configPath := bindFlags(fs, cfg)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if *configPath != "" {
		if err := config.LoadFile(*configPath, cfg); err != nil {
			return nil, err
		}
		// Apply the flags again so they win over the file.
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
