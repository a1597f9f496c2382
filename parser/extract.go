// Package parser extracts raw listings from search result pages and
// normalizes them into typed records.
package parser

import (
	"bytes"
	"fmt"
	"net/url"

	"github.com/PuerkitoBio/goquery"

	"github.com/aluiziolira/go-scrape-listings/models"
)

// Extraction is the result of parsing one page.
type Extraction struct {
	Listings []models.RawListing
	// Entries counts the listing entries found, dropped ones included.
	Entries int
	// Dropped counts entries without a usable identifier.
	Dropped int
	// Anomalies counts kept entries that missed at least one field.
	Anomalies     int
	MissingFields map[models.Field]int
	// Structured is set when the listings came from the page's JSON-LD item
	// list because the markup held no entries.
	Structured bool
}

// IDs returns the identifiers of the extracted listings in page order.
func (e Extraction) IDs() []models.ListingID {
	out := make([]models.ListingID, len(e.Listings))
	for i, l := range e.Listings {
		out[i] = l.ID
	}
	return out
}

// Extractor turns search result pages of one dialect into raw listings.
type Extractor struct {
	base  *url.URL
	rules RuleSet
}

// NewExtractor returns an extractor resolving links against baseURL.
func NewExtractor(baseURL string, dialect models.Dialect) (*Extractor, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}
	return &Extractor{base: base, rules: Rules(dialect)}, nil
}

// Dialect returns the dialect of the extractor's rule table.
func (e *Extractor) Dialect() models.Dialect {
	return e.rules.Dialect
}

// Extract parses body and returns its listings in page order.
func (e *Extractor) Extract(body []byte) (Extraction, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return Extraction{}, fmt.Errorf("parse page: %w", err)
	}
	return e.ExtractDocument(doc), nil
}

// ExtractDocument extracts the listings of an already parsed page. A page
// without entry markup falls back to the listing URLs of its JSON-LD item
// list; those listings carry only their URL.
func (e *Extractor) ExtractDocument(doc *goquery.Document) Extraction {
	out := Extraction{MissingFields: make(map[models.Field]int)}
	doc.Find(entrySelector).Each(func(_ int, entry *goquery.Selection) {
		out.Entries++
		raw, missing, ok := e.extractEntry(entry)
		if !ok {
			out.Dropped++
			return
		}
		out.add(raw, missing)
	})
	if out.Entries > 0 {
		return out
	}

	for _, href := range itemListURLs(doc) {
		out.Entries++
		id, absolute, ok := Canonicalize(e.base, href)
		if !ok {
			out.Dropped++
			continue
		}
		missing := make([]models.Field, 0, len(e.rules.Rules))
		for _, fr := range e.rules.Rules {
			missing = append(missing, fr.Field)
		}
		out.add(models.NewRawListing(id, absolute), missing)
	}
	out.Structured = out.Entries > 0
	return out
}

func (e *Extraction) add(raw models.RawListing, missing []models.Field) {
	if len(missing) > 0 {
		e.Anomalies++
	}
	for _, f := range missing {
		e.MissingFields[f]++
	}
	e.Listings = append(e.Listings, raw)
}

// ExtractDetail applies the rule table to a listing's detail page and merges
// the result into listing: values found on the detail page replace those of
// the search page. The identifier and URL of listing are kept. The returned
// fields are absent from both pages.
func (e *Extractor) ExtractDetail(body []byte, listing models.RawListing) (models.RawListing, []models.Field, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return listing, nil, fmt.Errorf("parse detail page: %w", err)
	}

	merged := listing.Clone()
	var missing []models.Field
	for _, fr := range e.rules.Rules {
		if v, ok := apply(fr.Rule, doc.Selection); ok {
			merged.Set(fr.Field, v)
			continue
		}
		if _, ok := merged.Get(fr.Field); !ok {
			missing = append(missing, fr.Field)
		}
	}
	return merged, missing, nil
}

func (e *Extractor) extractEntry(entry *goquery.Selection) (raw models.RawListing, missing []models.Field, ok bool) {
	href, ok := apply(identifierRule, entry)
	if !ok {
		return models.RawListing{}, nil, false
	}
	id, absolute, ok := Canonicalize(e.base, href)
	if !ok {
		return models.RawListing{}, nil, false
	}

	raw = models.NewRawListing(id, absolute)
	for _, fr := range e.rules.Rules {
		v, found := apply(fr.Rule, entry)
		if !found {
			missing = append(missing, fr.Field)
			continue
		}
		raw.Set(fr.Field, v)
	}
	return raw, missing, true
}
