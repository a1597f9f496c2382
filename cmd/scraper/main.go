package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"

	"github.com/aluiziolira/go-scrape-listings/config"
	"github.com/aluiziolira/go-scrape-listings/models"
	"github.com/aluiziolira/go-scrape-listings/pipeline"
	"github.com/aluiziolira/go-scrape-listings/scraper"
)

func main() {
	cfg, err := loadConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration: %v\n", err)
		os.Exit(1)
	}
	cfg.OutputFormat = strings.ToLower(cfg.OutputFormat)

	logger, level := newLogger(cfg.Verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	slog.Info("starting scrape",
		slog.String("base_url", cfg.BaseURL),
		slog.String("area", cfg.Search.Area),
		slog.String("want_to", string(cfg.Search.WantTo)),
		slog.Int("pages", cfg.Search.NumberOfPages),
		slog.String("format", cfg.OutputFormat),
		slog.Bool("detail_pages", cfg.DetailPages),
	)

	metrics := scraper.NewMetrics()
	fetcher, err := scraper.NewCollyFetcher(cfg, metrics)
	if err != nil {
		slog.Error("initialising fetcher", slog.Any("error", err))
		os.Exit(1)
	}

	opts := []pipeline.Option{pipeline.WithMetrics(metrics)}
	if cfg.DetailPages {
		opts = append(opts, pipeline.WithDetailPages(fetcher))
	}
	if cfg.Schedule != "" && cfg.HistorySize > 0 {
		history, err := pipeline.NewHistory(cfg.HistorySize)
		if err != nil {
			slog.Error("initialising history", slog.Any("error", err))
			os.Exit(1)
		}
		opts = append(opts, pipeline.WithHistory(history))
	}
	runner := pipeline.NewRunner(cfg, fetcher, opts...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received, finishing the current page")
	}()

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		metricsServer = &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
	}

	var runErr error
	if cfg.Schedule == "" {
		runErr = runOnce(ctx, cfg, runner, false)
	} else {
		runErr = runScheduled(ctx, cfg, runner)
	}

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
		cancel()
	}

	if runErr != nil {
		slog.Error("scraping failed", slog.Any("error", runErr))
		os.Exit(1)
	}
}

// runScheduled starts a run at every tick of cfg.Schedule until ctx is done.
// A tick that fires while the previous run is still going is skipped.
func runScheduled(ctx context.Context, cfg *config.Config, runner *pipeline.Runner) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	_, err := c.AddFunc(cfg.Schedule, func() {
		if err := runOnce(ctx, cfg, runner, true); err != nil {
			slog.Error("scheduled run failed", slog.Any("error", err))
		}
	})
	if err != nil {
		return fmt.Errorf("schedule %q: %w", cfg.Schedule, err)
	}

	slog.Info("scheduler started", slog.String("schedule", cfg.Schedule))
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	slog.Info("scheduler stopped")
	return nil
}

// runOnce executes one search and exports its records while pages arrive.
// Records accepted before a cancellation are still flushed.
func runOnce(ctx context.Context, cfg *config.Config, runner *pipeline.Runner, scheduled bool) error {
	runID := uuid.NewString()
	schema := models.Schema{Raw: cfg.Search.RawData, Dialect: cfg.Search.Dialect()}

	outputFile := cfg.OutputFile
	if scheduled && cfg.OutputFormat != "sqlite" {
		outputFile = runOutputPath(outputFile, runID)
	}

	writer, err := createWriter(cfg.OutputFormat, outputFile, runID, schema)
	if err != nil {
		return fmt.Errorf("creating writer: %w", err)
	}
	defer func() {
		if err := writer.Close(); err != nil {
			slog.Error("close writer", slog.Any("error", err))
		}
	}()

	exporter := pipeline.NewExporter(context.WithoutCancel(ctx), writer, cfg)
	exporter.Start()
	if cfg.Verbose {
		exporter.StartMetricsReporting(10 * time.Second)
	}

	startTime := time.Now()
	result, runErr := runner.Run(ctx, cfg.Search, pipeline.WithSink(exporter), pipeline.WithRunID(runID))

	var errs []error
	if runErr != nil {
		errs = append(errs, runErr)
	}
	if err := exporter.Close(); err != nil {
		errs = append(errs, fmt.Errorf("pipeline shutdown: %w", err))
	}
	if result == nil {
		return errors.Join(errs...)
	}

	if recorder, ok := writer.(*pipeline.SQLiteWriter); ok {
		if err := recorder.RecordRun(result); err != nil {
			errs = append(errs, err)
		}
	}
	if err := writer.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("output validation: %w", err))
	}

	printSummary(result, time.Since(startTime), exporter.Written(), outputFile)
	return errors.Join(errs...)
}

// runOutputPath gives each scheduled run its own file next to path.
func runOutputPath(path, runID string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "-" + runID[:8] + ext
}

func createWriter(format, filename, runID string, schema models.Schema) (pipeline.OutputWriter, error) {
	switch format {
	case "json":
		return pipeline.NewJSONWriter(filename)
	case "csv":
		return pipeline.NewCSVWriter(filename, schema)
	case "dual":
		jsonFilename := strings.TrimSuffix(filename, ".csv") + ".json"
		return pipeline.NewDualWriter(filename, jsonFilename, schema)
	case "sqlite":
		return pipeline.NewSQLiteWriter(filename, runID, schema)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

func printSummary(result *models.ResultSet, duration time.Duration, written int, outputFile string) {
	st := result.Stats
	separator := "--------------------------------------------------"
	fmt.Println("\n" + separator)
	fmt.Println("Scrape complete")

	fmt.Printf("  Run:           %s\n", result.RunID)
	fmt.Printf("  Listings:      %d (%d written)\n", result.Len(), written)
	fmt.Printf("  Pages:         %d processed, %d requested, %d skipped\n", st.PagesProcessed, st.PagesRequested, st.PagesSkipped)
	fmt.Printf("  Stop reason:   %s\n", stopReason(st.StopReason))
	fmt.Printf("  Entries:       %d seen, %d dropped\n", st.EntriesSeen, st.EntriesDropped)
	fmt.Printf("  Duplicates:    %d\n", st.Duplicates)
	if st.PreviouslySeen > 0 {
		fmt.Printf("  Seen before:   %d\n", st.PreviouslySeen)
	}
	fmt.Printf("  Anomalies:     %d extraction", st.ExtractionAnomalies)
	if len(st.NormalizationAnomalies) > 0 {
		fmt.Printf(", normalization %s", formatCounts(st.NormalizationAnomalies))
	}
	fmt.Println()
	if st.DetailPages > 0 || st.DetailFailures > 0 {
		fmt.Printf("  Detail pages:  %d fetched, %d failed\n", st.DetailPages, st.DetailFailures)
	}
	fmt.Printf("  Retries:       %d\n", st.RetryCount)
	if len(st.ErrorsByType) > 0 {
		fmt.Printf("  Error types:   %s\n", formatCounts(st.ErrorsByType))
	}
	for _, f := range st.FailedPages {
		fmt.Printf("  Failed page:   %d after %d attempts: %s\n", f.Page, f.Attempts, f.Error)
	}
	fmt.Printf("  Duration:      %v\n", duration.Round(time.Millisecond))
	fmt.Printf("  Output file:   %s\n", outputFile)
	fmt.Println(separator)
}

func stopReason(r models.StopReason) string {
	if r == "" {
		return "aborted"
	}
	return string(r)
}

func formatCounts[K ~string](counts map[K]int) string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%d", k, counts[K(k)])
	}
	return strings.Join(parts, " ")
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stdout) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
