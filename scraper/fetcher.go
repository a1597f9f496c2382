package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/aluiziolira/go-scrape-listings/config"
	"github.com/aluiziolira/go-scrape-listings/query"
)

// Page is one fetched page. Number is the result page number, zero for
// detail pages.
type Page struct {
	Number int
	URL    string
	Status int
	Body   []byte
}

// Fetcher retrieves the markup of a search result page.
type Fetcher interface {
	Fetch(ctx context.Context, req query.PageRequest) (*Page, error)
}

// DetailFetcher retrieves the page of a single listing by its absolute URL.
type DetailFetcher interface {
	FetchURL(ctx context.Context, rawURL string) (*Page, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, req query.PageRequest) (*Page, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, req query.PageRequest) (*Page, error) {
	return f(ctx, req)
}

const resultKey = "fetch_result"

type fetchResult struct {
	page  *Page
	err   error
	start time.Time
}

// CollyFetcher fetches pages with a synchronous colly collector.
type CollyFetcher struct {
	baseURL   string
	collector *colly.Collector
	metrics   *Metrics
}

// NewCollyFetcher builds a fetcher configured from cfg. The metrics may be nil.
func NewCollyFetcher(cfg *config.Config, metrics *Metrics) (*CollyFetcher, error) {
	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("base url must include a host")
	}

	collector := colly.NewCollector(
		colly.AllowedDomains(parsed.Host),
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
	)

	collector.SetRequestTimeout(cfg.Timeout)
	collector.IgnoreRobotsTxt = !cfg.RespectRobotsTxt
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	if err := collector.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: 1,
		RandomDelay: cfg.RandomDelay,
	}); err != nil {
		return nil, fmt.Errorf("configure rate limits: %w", err)
	}

	f := &CollyFetcher{
		baseURL:   cfg.BaseURL,
		collector: collector,
		metrics:   metrics,
	}
	f.configureHandlers()
	return f, nil
}

func (f *CollyFetcher) configureHandlers() {
	f.collector.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept-Language", "nl-NL,nl;q=0.9,en;q=0.8")
		f.metrics.IncRequest("started")
	})

	f.collector.OnResponse(func(r *colly.Response) {
		res, ok := r.Ctx.GetAny(resultKey).(*fetchResult)
		if !ok {
			return
		}
		f.metrics.IncRequest("completed")
		f.metrics.ObserveDuration(time.Since(res.start))
		body := make([]byte, len(r.Body))
		copy(body, r.Body)
		res.page = &Page{
			URL:    r.Request.URL.String(),
			Status: r.StatusCode,
			Body:   body,
		}
	})

	f.collector.OnError(func(r *colly.Response, err error) {
		if r == nil || r.Ctx == nil {
			return
		}
		res, ok := r.Ctx.GetAny(resultKey).(*fetchResult)
		if !ok {
			return
		}
		f.metrics.IncRequest("failed")
		res.err = classifyTransport(err, r.StatusCode)
	})
}

// Fetch issues one GET for req. Non-2xx responses and transport failures are
// returned as classified errors.
func (f *CollyFetcher) Fetch(ctx context.Context, req query.PageRequest) (*Page, error) {
	target := req.URL(f.baseURL)
	page, err := f.get(ctx, target)
	if err != nil {
		return nil, err
	}

	page.Number = req.Page
	slog.Debug("page fetched",
		slog.Int("page", req.Page),
		slog.Int("status", page.Status),
		slog.Int("bytes", len(page.Body)),
		slog.String("url", target),
	)
	return page, nil
}

// FetchURL issues one GET for a listing detail page. Hosts outside the base
// URL's domain are rejected by the collector.
func (f *CollyFetcher) FetchURL(ctx context.Context, rawURL string) (*Page, error) {
	page, err := f.get(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	slog.Debug("detail page fetched",
		slog.Int("status", page.Status),
		slog.Int("bytes", len(page.Body)),
		slog.String("url", rawURL),
	)
	return page, nil
}

func (f *CollyFetcher) get(ctx context.Context, target string) (*Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &fetchResult{start: time.Now()}
	rctx := colly.NewContext()
	rctx.Put(resultKey, res)

	visitErr := f.collector.Request(http.MethodGet, target, nil, rctx, nil)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if res.err != nil {
		return nil, res.err
	}
	if visitErr != nil {
		return nil, classifyTransport(visitErr, 0)
	}
	if res.page == nil {
		return nil, fmt.Errorf("no response for %s", target)
	}
	return res.page, nil
}

// classifyTransport applies classifyError and marks unresolvable hosts as an
// outage: no later page can succeed either.
func classifyTransport(err error, statusCode int) error {
	classified := classifyError(err, statusCode)
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
		return fmt.Errorf("%w: %w", ErrTransportOutage, classified)
	}
	return classified
}
