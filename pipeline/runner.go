// Package pipeline runs searches end to end: pagination, extraction,
// de-duplication, normalization and streaming export.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/aluiziolira/go-scrape-listings/config"
	"github.com/aluiziolira/go-scrape-listings/models"
	"github.com/aluiziolira/go-scrape-listings/parser"
	"github.com/aluiziolira/go-scrape-listings/query"
	"github.com/aluiziolira/go-scrape-listings/scraper"
)

// Sink receives the accepted records of each page in discovery order. An
// error aborts the run.
type Sink interface {
	Accept(records []models.Record) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(records []models.Record) error

// Accept calls f.
func (f SinkFunc) Accept(records []models.Record) error {
	return f(records)
}

// Runner executes search runs. It holds no per-run state, so one runner may
// serve several runs at once.
type Runner struct {
	cfg     *config.Config
	fetcher scraper.Fetcher
	metrics *scraper.Metrics
	history *History
	details scraper.DetailFetcher
	now     func() time.Time
}

// Option configures a Runner.
type Option func(*Runner)

// WithHistory skips listings emitted by earlier runs sharing h.
func WithHistory(h *History) Option {
	return func(r *Runner) { r.history = h }
}

// WithMetrics records pagination and listing counters on m.
func WithMetrics(m *scraper.Metrics) Option {
	return func(r *Runner) { r.metrics = m }
}

// WithDetailPages fetches the detail page of every accepted listing through
// f and merges its values over the search page values. A failed detail fetch
// keeps the search page values and is counted, never fatal.
func WithDetailPages(f scraper.DetailFetcher) Option {
	return func(r *Runner) { r.details = f }
}

// WithClock sets the clock relative dates are resolved against.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// NewRunner returns a runner fetching pages through fetcher.
func NewRunner(cfg *config.Config, fetcher scraper.Fetcher, opts ...Option) *Runner {
	r := &Runner{
		cfg:     cfg,
		fetcher: fetcher,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunOption configures a single run.
type RunOption func(*runOptions)

type runOptions struct {
	runID string
	sink  Sink
}

// WithSink streams each page's accepted records to s.
func WithSink(s Sink) RunOption {
	return func(o *runOptions) { o.sink = s }
}

// WithRunID sets the run identifier instead of generating one.
func WithRunID(id string) RunOption {
	return func(o *runOptions) { o.runID = id }
}

// Run executes the search q. Configuration errors are returned before any
// request is made. On a fatal error the partial result set is returned along
// with the error.
func (r *Runner) Run(ctx context.Context, q query.Config, opts ...RunOption) (*models.ResultSet, error) {
	var o runOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.runID == "" {
		o.runID = uuid.NewString()
	}

	normalized, err := q.Normalize()
	if err != nil {
		return nil, err
	}
	dialect := normalized.Dialect()

	extractor, err := parser.NewExtractor(r.cfg.BaseURL, dialect)
	if err != nil {
		return nil, err
	}

	start := r.now()
	run := &runState{
		ctx:       ctx,
		details:   r.details,
		extractor: extractor,
		raw:       normalized.RawData,
		history:   r.history,
		metrics:   r.metrics,
		sink:      o.sink,
		seen:      make(map[models.ListingID]struct{}),
		result: &models.ResultSet{
			RunID:  o.runID,
			Schema: models.Schema{Raw: normalized.RawData, Dialect: dialect},
			Stats: models.RunStats{
				StartTime:              start,
				NormalizationAnomalies: make(map[models.Field]int),
			},
		},
	}
	if !normalized.RawData {
		run.normalizer = parser.NewNormalizer(dialect, start)
	}

	slog.Info("run started",
		slog.String("run_id", o.runID),
		slog.String("area", normalized.Area),
		slog.String("want_to", string(normalized.WantTo)),
		slog.String("dialect", dialect.String()),
		slog.Int("page_start", normalized.PageStart),
		slog.Int("pages", normalized.NumberOfPages),
	)

	paginator := scraper.NewPaginator(r.cfg, r.fetcher, r.metrics)
	stats, err := paginator.Paginate(ctx, normalized, run.handle)
	run.finish(stats, r.now())

	result := run.result
	attrs := []any{
		slog.String("run_id", result.RunID),
		slog.Int("listings", result.Len()),
		slog.Int("pages", result.Stats.PagesProcessed),
		slog.String("stop_reason", string(result.Stats.StopReason)),
	}
	if err != nil {
		slog.Error("run aborted", append(attrs, slog.Any("error", err))...)
		return result, fmt.Errorf("run %s: %w", result.RunID, err)
	}
	slog.Info("run finished", attrs...)
	return result, nil
}

// runState is the mutable state of one run.
type runState struct {
	ctx        context.Context
	details    scraper.DetailFetcher
	extractor  *parser.Extractor
	normalizer *parser.Normalizer
	raw        bool
	history    *History
	metrics    *scraper.Metrics
	sink       Sink
	seen       map[models.ListingID]struct{}
	result     *models.ResultSet
}

func (s *runState) handle(page *scraper.Page) (scraper.PageOutcome, error) {
	stats := &s.result.Stats

	extraction, err := s.extractor.Extract(page.Body)
	if err != nil {
		stats.ExtractionAnomalies++
		slog.Warn("unparseable result page", slog.Int("page", page.Number), slog.Any("error", err))
		return scraper.PageOutcome{}, nil
	}

	if extraction.Structured {
		slog.Debug("listings taken from structured data", slog.Int("page", page.Number), slog.Int("entries", extraction.Entries))
	}
	stats.EntriesSeen += extraction.Entries
	stats.EntriesDropped += extraction.Dropped
	stats.ExtractionAnomalies += extraction.Anomalies
	s.metrics.AddExtracted(len(extraction.Listings))
	s.metrics.AddDropped("no_identifier", extraction.Dropped)

	accepted := make([]models.Record, 0, len(extraction.Listings))
	for _, raw := range extraction.Listings {
		if _, dup := s.seen[raw.ID]; dup {
			stats.Duplicates++
			s.metrics.AddDropped("duplicate", 1)
			continue
		}
		s.seen[raw.ID] = struct{}{}

		if s.history.Seen(raw.ID) {
			stats.PreviouslySeen++
			s.metrics.AddDropped("previously_seen", 1)
			continue
		}

		accepted = append(accepted, s.record(s.enrich(raw)))
	}

	if len(accepted) > 0 {
		s.result.Records = append(s.result.Records, accepted...)
		if s.sink != nil {
			if err := s.sink.Accept(accepted); err != nil {
				return scraper.PageOutcome{}, fmt.Errorf("sink: %w", err)
			}
		}
		for _, rec := range accepted {
			s.history.Add(rec.ID)
		}
	}

	return scraper.PageOutcome{Entries: extraction.Entries, IDs: extraction.IDs()}, nil
}

// enrich merges the listing's detail page into raw when detail pages are
// enabled. Once the run is cancelled no further detail pages are requested.
func (s *runState) enrich(raw models.RawListing) models.RawListing {
	if s.details == nil || s.ctx.Err() != nil {
		return raw
	}
	stats := &s.result.Stats
	target, _ := raw.Get(models.FieldURL)

	page, err := s.details.FetchURL(s.ctx, target)
	if err == nil {
		var merged models.RawListing
		merged, _, err = s.extractor.ExtractDetail(page.Body, raw)
		if err == nil {
			stats.DetailPages++
			s.metrics.IncPage("detail")
			return merged
		}
	}
	if s.ctx.Err() != nil {
		return raw
	}
	stats.DetailFailures++
	s.metrics.IncPage("detail_failed")
	slog.Warn("detail page failed", slog.String("url", target), slog.Any("error", err))
	return raw
}

func (s *runState) record(raw models.RawListing) models.Record {
	if s.raw {
		rawCopy := raw
		return models.Record{ID: raw.ID, Raw: &rawCopy}
	}

	listing, anomalies := s.normalizer.Normalize(raw)
	for _, f := range anomalies {
		s.result.Stats.NormalizationAnomalies[f]++
		s.metrics.IncAnomaly(string(f))
	}
	return models.Record{ID: raw.ID, Listing: &listing}
}

func (s *runState) finish(stats scraper.Stats, end time.Time) {
	rs := &s.result.Stats
	rs.EndTime = end
	rs.PagesRequested = stats.PagesRequested
	rs.PagesProcessed = stats.PagesProcessed
	rs.PagesSkipped = stats.PagesSkipped
	rs.FailedPages = stats.Failures
	rs.RetryCount = stats.Retries
	rs.ErrorsByType = stats.ErrorsByType
	rs.StopReason = stats.StopReason
}
