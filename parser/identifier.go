package parser

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/aluiziolira/go-scrape-listings/models"
)

// Canonicalize resolves href against base and returns the listing identifier
// together with the absolute listing URL. ok is false when href cannot
// identify a listing.
func Canonicalize(base *url.URL, href string) (id models.ListingID, absolute string, ok bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(strings.ToLower(href), "javascript:") {
		return "", "", false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", "", false
	}
	u := ref
	if base != nil {
		u = base.ResolveReference(ref)
	}
	if u.Host == "" {
		return "", "", false
	}

	path := strings.ToLower(u.Path)
	if !isListingPath(path) {
		return "", "", false
	}
	if !strings.HasSuffix(path, "/") {
		path += "/"
	}

	canonical := url.URL{Scheme: strings.ToLower(u.Scheme), Host: strings.ToLower(u.Host), Path: path}
	return models.ListingID(path), canonical.String(), true
}

// isListingPath reports whether path addresses a single listing: a koop
// or huur segment followed by at least a city and a listing slug. Search,
// agency and content pages do not qualify.
func isListingPath(path string) bool {
	segments := strings.FieldsFunc(strings.ToLower(path), func(r rune) bool { return r == '/' })
	for i, seg := range segments {
		if seg == "koop" || seg == "huur" {
			return len(segments)-i-1 >= 2
		}
	}
	return false
}

var houseIDToken = regexp.MustCompile(`^\d{6,}$`)

// urlParts splits a listing URL into the city slug and the segments that
// follow it, e.g. /detail/koop/amsterdam/appartement-4321-x/ yields
// "amsterdam" and ["appartement-4321-x"].
func urlParts(rawURL string) (city string, rest []string) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", nil
	}
	segments := strings.FieldsFunc(strings.ToLower(u.Path), func(r rune) bool { return r == '/' })
	for i, seg := range segments {
		if (seg == "koop" || seg == "huur") && i+1 < len(segments) {
			return segments[i+1], segments[i+2:]
		}
	}
	return "", nil
}

// houseIdentity returns the numeric house id and the house type found in a
// listing URL.
func houseIdentity(rawURL string) (id *int64, houseType *string) {
	_, rest := urlParts(rawURL)
	for i, seg := range rest {
		tokens := strings.Split(seg, "-")
		if i == 0 && len(tokens) > 0 && !houseIDToken.MatchString(tokens[0]) && tokens[0] != "" {
			t := tokens[0]
			houseType = &t
		}
		for _, tok := range tokens {
			if id == nil && houseIDToken.MatchString(tok) {
				if n, err := strconv.ParseInt(tok, 10, 64); err == nil {
					id = &n
				}
			}
		}
	}
	return id, houseType
}

// cityFromURL returns the city slug of a listing URL with hyphens as spaces.
func cityFromURL(rawURL string) (string, bool) {
	city, _ := urlParts(rawURL)
	city = strings.ReplaceAll(city, "-", " ")
	return city, city != ""
}
