package parser

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const jsonLDSelector = `script[type="application/ld+json"]`

// structuredData decodes every JSON-LD block of doc. Blocks that are not
// valid JSON are skipped.
func structuredData(doc *goquery.Document) []any {
	var out []any
	doc.Find(jsonLDSelector).Each(func(_ int, s *goquery.Selection) {
		var v any
		if err := json.Unmarshal([]byte(strings.TrimSpace(s.Text())), &v); err != nil {
			return
		}
		out = append(out, v)
	})
	return out
}

// itemListURLs returns the url of every itemListElement in the page's
// JSON-LD, in document order. Elements may carry the url directly or in a
// nested item.
func itemListURLs(doc *goquery.Document) []string {
	var urls []string
	var walk func(v any)
	walk = func(v any) {
		switch node := v.(type) {
		case []any:
			for _, n := range node {
				walk(n)
			}
		case map[string]any:
			if graph, ok := node["@graph"]; ok {
				walk(graph)
			}
			elements, ok := node["itemListElement"].([]any)
			if !ok {
				return
			}
			for _, el := range elements {
				if u, ok := elementURL(el); ok {
					urls = append(urls, u)
				}
			}
		}
	}
	for _, v := range structuredData(doc) {
		walk(v)
	}
	return urls
}

func elementURL(el any) (string, bool) {
	m, ok := el.(map[string]any)
	if !ok {
		return "", false
	}
	if u, ok := m["url"].(string); ok && strings.TrimSpace(u) != "" {
		return strings.TrimSpace(u), true
	}
	if item, ok := m["item"]; ok {
		if u, ok := item.(string); ok && strings.TrimSpace(u) != "" {
			return strings.TrimSpace(u), true
		}
		return elementURL(item)
	}
	return "", false
}
