package pipeline

import (
	"context"
	"fmt"
	"html"
	"strings"
	"sync"
	"time"

	"github.com/aluiziolira/go-scrape-listings/config"
	"github.com/aluiziolira/go-scrape-listings/query"
	"github.com/aluiziolira/go-scrape-listings/scraper"
)

var testNow = time.Date(2024, time.March, 13, 10, 0, 0, 0, time.UTC)

type listing struct {
	n        int
	market   string
	priceKey string
	price    string
	features [][2]string
}

func saleListing(n int) listing {
	return listing{
		n:        n,
		market:   "koop",
		priceKey: "price-sale",
		price:    fmt.Sprintf("€ %d.000 k.k.", 300+n),
		features: [][2]string{
			{"Woonoppervlakte", "100 m²"},
			{"Bouwjaar", "1990"},
			{"Aangeboden sinds", "2 weken"},
		},
	}
}

func (l listing) href() string {
	return fmt.Sprintf("/detail/%s/amsterdam/huis-%d-prinsengracht-%d/", l.market, 43000000+l.n, l.n)
}

func (l listing) html() string {
	var b strings.Builder
	b.WriteString(`<li data-test-id="search-result-item">`)
	fmt.Fprintf(&b, `<a data-test-id="object-image-link" href="%s"><img src="https://cloud.funda.nl/%d.jpg"></a>`, l.href(), l.n)
	fmt.Fprintf(&b, `<h2 data-test-id="street-name-house-number">Prinsengracht %d</h2>`, l.n)
	b.WriteString(`<div data-test-id="postal-code-city">1016 GV Amsterdam</div>`)
	fmt.Fprintf(&b, `<p data-test-id="%s">%s</p>`, l.priceKey, html.EscapeString(l.price))
	b.WriteString(`<dl>`)
	for _, kv := range l.features {
		fmt.Fprintf(&b, `<dt>%s</dt><dd>%s</dd>`, html.EscapeString(kv[0]), html.EscapeString(kv[1]))
	}
	b.WriteString(`</dl></li>`)
	return b.String()
}

func page(listings ...listing) []byte {
	var b strings.Builder
	b.WriteString(`<!DOCTYPE html><html><body><ol>`)
	for _, l := range listings {
		b.WriteString(l.html())
	}
	b.WriteString(`</ol></body></html>`)
	return []byte(b.String())
}

func saleRange(from, to int) []listing {
	var out []listing
	for i := from; i <= to; i++ {
		out = append(out, saleListing(i))
	}
	return out
}

// site serves fixed page bodies; pages without a body fail with a server error.
type site struct {
	mu       sync.Mutex
	pages    map[int][]byte
	requests []int
}

func newSite(pages map[int][]byte) *site {
	return &site{pages: pages}
}

func (s *site) Fetch(_ context.Context, req query.PageRequest) (*scraper.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req.Page)
	body, ok := s.pages[req.Page]
	if !ok {
		return nil, scraper.ErrServer{Status: 503, Err: fmt.Errorf("page %d unavailable", req.Page)}
	}
	return &scraper.Page{Number: req.Page, Status: 200, Body: body}, nil
}

func (s *site) requestCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.RequestsPerSecond = 0
	cfg.MaxRetries = 0
	cfg.RetryBackoff = time.Millisecond
	cfg.RetryBackoffMax = time.Millisecond
	cfg.MaxConsecutiveFailures = 2
	return cfg
}

func newTestRunner(s scraper.Fetcher, opts ...Option) *Runner {
	opts = append([]Option{WithClock(func() time.Time { return testNow })}, opts...)
	return NewRunner(testConfig(), s, opts...)
}

func buySearch(pages int) query.Config {
	return query.Config{Area: "Amsterdam", WantTo: query.Buy, PageStart: 1, NumberOfPages: pages}
}

// detailSite serves detail pages by URL; unknown URLs fail with not found.
type detailSite struct {
	mu       sync.Mutex
	pages    map[string][]byte
	requests []string
	onFetch  func()
}

func (d *detailSite) FetchURL(_ context.Context, rawURL string) (*scraper.Page, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.requests = append(d.requests, rawURL)
	if d.onFetch != nil {
		d.onFetch()
	}
	body, ok := d.pages[rawURL]
	if !ok {
		return nil, scraper.ErrNotFound{Err: fmt.Errorf("no detail page for %s", rawURL)}
	}
	return &scraper.Page{Status: 200, Body: body}, nil
}

func detailPage(features ...[2]string) []byte {
	var b strings.Builder
	b.WriteString(`<!DOCTYPE html><html><body><dl>`)
	for _, kv := range features {
		fmt.Fprintf(&b, `<dt>%s</dt><dd>%s</dd>`, html.EscapeString(kv[0]), html.EscapeString(kv[1]))
	}
	b.WriteString(`</dl></body></html>`)
	return []byte(b.String())
}
