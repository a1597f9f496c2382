package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/aluiziolira/go-scrape-listings/config"
	"github.com/aluiziolira/go-scrape-listings/models"
	"github.com/aluiziolira/go-scrape-listings/query"
)

// PageOutcome is what a PageHandler found on a page.
type PageOutcome struct {
	// Entries counts listing entries on the page, dropped ones included.
	Entries int
	// IDs holds the identifiers of the usable entries in page order.
	IDs []models.ListingID
}

// PageHandler consumes one fetched page. An error aborts pagination.
type PageHandler func(*Page) (PageOutcome, error)

// Stats summarizes one pagination run.
type Stats struct {
	PagesRequested int
	PagesProcessed int
	PagesSkipped   int
	Failures       []models.PageFailure
	Retries        int
	ErrorsByType   map[string]int
	StopReason     models.StopReason
}

// Paginator walks the result pages of a search one at a time.
type Paginator struct {
	fetcher     Fetcher
	metrics     *Metrics
	maxRetries  int
	backoffBase time.Duration
	backoffMax  time.Duration
	maxFailures int
	rps         float64
	sleep       func(context.Context, time.Duration) error
}

// NewPaginator builds a paginator using the retry, failure and pacing
// settings of cfg. The metrics may be nil. An unset failure limit takes the
// default of config.DefaultConfig.
func NewPaginator(cfg *config.Config, fetcher Fetcher, metrics *Metrics) *Paginator {
	maxFailures := cfg.MaxConsecutiveFailures
	if maxFailures <= 0 {
		maxFailures = config.DefaultConfig().MaxConsecutiveFailures
	}
	return &Paginator{
		fetcher:     fetcher,
		metrics:     metrics,
		maxRetries:  cfg.MaxRetries,
		backoffBase: cfg.RetryBackoff,
		backoffMax:  cfg.RetryBackoffMax,
		maxFailures: maxFailures,
		rps:         cfg.RequestsPerSecond,
		sleep:       sleepContext,
	}
}

// Paginate requests the pages of q in ascending order and hands each one to
// handle. It stops after the last page of the range, on a page without
// entries, or on a page whose identifiers repeat the previous page. Stats
// gathered so far are returned with any error.
func (p *Paginator) Paginate(ctx context.Context, q query.Config, handle PageHandler) (Stats, error) {
	stats := Stats{ErrorsByType: make(map[string]int)}

	normalized, err := q.Normalize()
	if err != nil {
		return stats, err
	}

	limiter := p.newLimiter()
	var previous map[models.ListingID]struct{}
	consecutive := 0

	for page := normalized.PageStart; page <= normalized.PageEnd(); page++ {
		if err := ctx.Err(); err != nil {
			stats.StopReason = models.StopCancelled
			return stats, err
		}

		req, err := query.Build(normalized, page)
		if err != nil {
			return stats, err
		}

		stats.PagesRequested++
		fetched, attempts, err := p.fetch(ctx, limiter, req, &stats)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				stats.StopReason = models.StopCancelled
				return stats, ctxErr
			}
			if errors.Is(err, ErrTransportOutage) {
				stats.StopReason = models.StopTransportOutage
				return stats, fmt.Errorf("page %d: %w", page, err)
			}

			failure := &PageFetchError{Page: page, URL: req.Path() + "?" + req.Query, Attempts: attempts, Err: err}
			stats.Failures = append(stats.Failures, models.PageFailure{
				Page:     page,
				URL:      failure.URL,
				Attempts: attempts,
				Error:    err.Error(),
			})
			stats.PagesSkipped++
			p.metrics.IncPage("failed")
			slog.Warn("skipping page",
				slog.Int("page", page),
				slog.Int("attempts", attempts),
				slog.String("category", errorTypeLabel(err)),
				slog.Any("error", err),
			)

			previous = nil
			consecutive++
			if consecutive >= p.maxFailures {
				stats.StopReason = models.StopTransportOutage
				return stats, fmt.Errorf("%w: %d consecutive pages failed: %w", ErrTransportOutage, consecutive, failure)
			}
			continue
		}
		consecutive = 0

		outcome, err := handle(fetched)
		if err != nil {
			return stats, fmt.Errorf("handle page %d: %w", page, err)
		}
		stats.PagesProcessed++

		if outcome.Entries == 0 {
			p.metrics.IncPage("empty")
			slog.Info("empty result page, stopping", slog.Int("page", page))
			stats.StopReason = models.StopEmptyPage
			return stats, nil
		}

		current := idSet(outcome.IDs)
		if previous != nil && len(current) > 0 && sameSet(previous, current) {
			p.metrics.IncPage("repeated")
			slog.Info("result page repeats previous page, stopping", slog.Int("page", page))
			stats.StopReason = models.StopRepeatedPage
			return stats, nil
		}
		p.metrics.IncPage("processed")
		slog.Debug("page processed",
			slog.Int("page", page),
			slog.Int("entries", outcome.Entries),
			slog.Int("listings", len(outcome.IDs)),
		)
		previous = current
	}

	stats.StopReason = models.StopCompleted
	return stats, nil
}

// fetch requests req, retrying retryable failures with capped exponential
// backoff. It returns the number of attempts made.
func (p *Paginator) fetch(ctx context.Context, limiter *rate.Limiter, req query.PageRequest, stats *Stats) (*Page, int, error) {
	for attempt := 1; ; attempt++ {
		if err := p.pace(ctx, limiter); err != nil {
			return nil, attempt - 1, err
		}

		page, err := p.fetcher.Fetch(ctx, req)
		if err == nil {
			return page, attempt, nil
		}
		if ctx.Err() != nil {
			return nil, attempt, ctx.Err()
		}

		category := errorTypeLabel(err)
		stats.ErrorsByType[category]++
		p.metrics.IncError(category)

		if attempt > p.maxRetries || !retryable(err) {
			return nil, attempt, err
		}

		stats.Retries++
		p.metrics.IncRetries()
		delay := p.backoff(attempt)
		slog.Debug("retrying page",
			slog.Int("page", req.Page),
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay),
			slog.String("category", category),
		)
		if err := p.sleep(ctx, delay); err != nil {
			return nil, attempt, err
		}
	}
}

func (p *Paginator) newLimiter() *rate.Limiter {
	if p.rps <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(p.rps), 1)
}

func (p *Paginator) pace(ctx context.Context, limiter *rate.Limiter) error {
	r := limiter.Reserve()
	if err := p.sleep(ctx, r.Delay()); err != nil {
		r.Cancel()
		return err
	}
	return nil
}

func (p *Paginator) backoff(attempt int) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}
	if attempt > 16 {
		attempt = 16
	}

	base := p.backoffBase
	if base <= 0 {
		base = 100 * time.Millisecond
	}

	delay := base * time.Duration(1<<(attempt-1))
	if max := p.backoffMax; max > 0 && delay > max {
		delay = max
	}
	return delay
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func idSet(ids []models.ListingID) map[models.ListingID]struct{} {
	set := make(map[models.ListingID]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func sameSet(a, b map[models.ListingID]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for id := range a {
		if _, ok := b[id]; !ok {
			return false
		}
	}
	return true
}
