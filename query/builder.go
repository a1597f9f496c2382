package query

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/aluiziolira/go-scrape-listings/models"
)

// PageRequest holds the parameters of one search result page request.
type PageRequest struct {
	Area        string
	Transaction TransactionType
	Dialect     models.Dialect
	Page        int
	// Query is the encoded query string, search_result included.
	Query string
}

// Path returns the search path of the request.
func (r PageRequest) Path() string {
	return "/zoeken/" + r.Transaction.segment()
}

// URL joins the request onto the site base URL.
func (r PageRequest) URL(baseURL string) string {
	return strings.TrimSuffix(baseURL, "/") + r.Path() + "?" + r.Query
}

// Build validates cfg and returns the request parameters of page. The same
// config and page always produce the same request.
func Build(cfg Config, page int) (PageRequest, error) {
	normalized, err := cfg.Normalize()
	if err != nil {
		return PageRequest{}, err
	}
	if page < normalized.PageStart || page > normalized.PageEnd() {
		return PageRequest{}, invalid("page", page, "outside requested range %d-%d", normalized.PageStart, normalized.PageEnd())
	}

	return PageRequest{
		Area:        normalized.Area,
		Transaction: normalized.WantTo,
		Dialect:     normalized.Dialect(),
		Page:        page,
		Query:       encode(normalized, page),
	}, nil
}

// Pages returns the requests for every page of cfg in ascending order.
func Pages(cfg Config) ([]PageRequest, error) {
	normalized, err := cfg.Normalize()
	if err != nil {
		return nil, err
	}
	out := make([]PageRequest, 0, normalized.NumberOfPages)
	for page := normalized.PageStart; page <= normalized.PageEnd(); page++ {
		req, err := Build(normalized, page)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, nil
}

// encode writes the parameters in the order the site itself uses.
func encode(cfg Config, page int) string {
	var params []string
	add := func(key, value string) {
		params = append(params, key+"="+url.QueryEscape(value))
	}

	add("selected_area", fmt.Sprintf(`["%s"]`, cfg.Area))

	if len(cfg.PropertyTypes) > 0 {
		quoted := make([]string, len(cfg.PropertyTypes))
		for i, pt := range cfg.PropertyTypes {
			quoted[i] = strconv.Quote(string(pt))
		}
		add("object_type", "["+strings.Join(quoted, ",")+"]")
	}

	if cfg.FindPast {
		add("availability", `["unavailable"]`)
	}

	if cfg.MinPrice != nil || cfg.MaxPrice != nil {
		add("price", rangeValue(cfg.MinPrice, cfg.MaxPrice))
	}

	if cfg.DaysSince != nil {
		add("publication_date", strconv.Itoa(*cfg.DaysSince))
	}

	if cfg.MinFloorArea != nil || cfg.MaxFloorArea != nil {
		add("floor_area", rangeValue(cfg.MinFloorArea, cfg.MaxFloorArea))
	}

	if cfg.Sort != "" {
		add("sort", strconv.Quote(string(cfg.Sort)))
	}

	add("search_result", strconv.Itoa(page))
	return strings.Join(params, "&")
}

func rangeValue(lo, hi *int) string {
	var from, to string
	if lo != nil {
		from = strconv.Itoa(*lo)
	}
	if hi != nil {
		to = strconv.Itoa(*hi)
	}
	return `"` + from + "-" + to + `"`
}
