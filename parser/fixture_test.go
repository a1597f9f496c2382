package parser

import (
	"fmt"
	"html"
	"strings"
)

const testBaseURL = "https://www.funda.nl"

type entryFixture struct {
	href     string
	anchor   bool
	priceKey string
	price    string
	address  string
	zip      string
	energy   string
	features [][2]string
	photos   []string
}

func activeEntry(n int) entryFixture {
	return entryFixture{
		href:     fmt.Sprintf("/detail/koop/amsterdam/appartement-%d-keizersgracht-%d/", 43000000+n, n),
		anchor:   true,
		priceKey: "price-sale",
		price:    fmt.Sprintf("€ %d.000 k.k.", 400+n),
		address:  fmt.Sprintf("Keizersgracht %d", n),
		zip:      "1015 CJ Amsterdam",
		energy:   "A",
		features: [][2]string{
			{"Woonoppervlakte", "85 m²"},
			{"Bouwjaar", "1906"},
			{"Aantal kamers", "3 kamers (2 slaapkamers)"},
			{"Aangeboden sinds", "3 weken"},
		},
		photos: []string{fmt.Sprintf("https://cloud.funda.nl/%d/1.jpg", n)},
	}
}

func (f entryFixture) html() string {
	var b strings.Builder
	b.WriteString(`<li data-test-id="search-result-item">`)
	if f.href != "" {
		if f.anchor {
			fmt.Fprintf(&b, `<a data-test-id="object-image-link" href="%s">`, html.EscapeString(f.href))
		} else {
			fmt.Fprintf(&b, `<a href="%s">`, html.EscapeString(f.href))
		}
		for _, p := range f.photos {
			fmt.Fprintf(&b, `<img data-lazy-srcset="%s 1x, %s 2x">`, p, p)
		}
		b.WriteString(`</a>`)
	}
	if f.address != "" {
		fmt.Fprintf(&b, `<h2 data-test-id="street-name-house-number">
			%s
		</h2>`, html.EscapeString(f.address))
	}
	if f.zip != "" {
		fmt.Fprintf(&b, `<div data-test-id="postal-code-city">%s</div>`, html.EscapeString(f.zip))
	}
	if f.price != "" {
		fmt.Fprintf(&b, `<p data-test-id="%s">%s</p>`, f.priceKey, html.EscapeString(f.price))
	}
	if f.energy != "" {
		fmt.Fprintf(&b, `<span data-test-id="energy-label">%s</span>`, html.EscapeString(f.energy))
	}
	if len(f.features) > 0 {
		b.WriteString(`<dl>`)
		for _, kv := range f.features {
			fmt.Fprintf(&b, `<dt>%s</dt><dd>%s</dd>`, html.EscapeString(kv[0]), html.EscapeString(kv[1]))
		}
		b.WriteString(`</dl>`)
	}
	b.WriteString(`</li>`)
	return b.String()
}

func resultPage(entries ...entryFixture) []byte {
	var b strings.Builder
	b.WriteString(`<!DOCTYPE html><html><body><ol class="search-results">`)
	for _, e := range entries {
		b.WriteString(e.html())
	}
	b.WriteString(`</ol></body></html>`)
	return []byte(b.String())
}
