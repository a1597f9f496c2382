package parser

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/aluiziolira/go-scrape-listings/models"
)

// Rule extracts one value from a listing entry. ok is false when the value
// is absent.
type Rule func(entry *goquery.Selection) (value string, ok bool)

// FieldRule binds a rule to the field it fills.
type FieldRule struct {
	Field models.Field
	Rule  Rule
}

// RuleSet is the ordered rule table of one dialect.
type RuleSet struct {
	Dialect models.Dialect
	Rules   []FieldRule
}

const (
	entrySelector    = `[data-test-id="search-result-item"]`
	identifierAnchor = `a[data-test-id="object-image-link"]`
)

// identifierRule is shared by both dialects. It prefers the image link and
// otherwise takes the first link in the entry that addresses a listing.
var identifierRule = firstOf(
	listingLink(identifierAnchor),
	listingLink("a[href]"),
)

var commonRules = []FieldRule{
	{models.FieldAddress, text(`[data-test-id="street-name-house-number"]`)},
	{models.FieldDescription, text(`[data-test-id="object-description"]`)},
	{models.FieldZipCode, text(`[data-test-id="postal-code-city"]`)},
	{models.FieldSize, feature("Perceel", "Perceeloppervlakte", "Plot size")},
	{models.FieldYearBuilt, feature("Bouwjaar", "Year of construction")},
	{models.FieldLivingArea, firstOf(feature("Woonoppervlakte", "Wonen", "Living area"), text(`[data-test-id="living-area"]`))},
	{models.FieldKindOfHouse, feature("Soort woonhuis", "Soort appartement", "Type of house", "Type apartment")},
	{models.FieldBuildingType, feature("Soort bouw", "Building type")},
	{models.FieldNumOfRooms, feature("Aantal kamers", "Number of rooms")},
	{models.FieldNumOfBathrooms, feature("Aantal badkamers", "Number of bath rooms", "Number of bathrooms")},
	{models.FieldLayout, feature("Aantal woonlagen", "Number of stories")},
	{models.FieldEnergyLabel, firstOf(text(`[data-test-id="energy-label"]`), feature("Energielabel", "Energy label"))},
	{models.FieldInsulation, feature("Isolatie", "Insulation")},
	{models.FieldHeating, feature("Verwarming", "Heating")},
	{models.FieldOwnership, feature("Eigendomssituatie", "Ownership situation")},
	{models.FieldExteriors, feature("Buitenruimte", "Tuin", "Garden", "Exterior space")},
	{models.FieldParking, feature("Soort parkeergelegenheid", "Type of parking facilities")},
	{models.FieldNeighborhood, firstOf(text(`[data-test-id="neighborhood-name"]`), feature("Buurt", "Neighborhood"))},
}

var activeRules = join(
	[]FieldRule{{models.FieldPrice, firstOf(
		text(`[data-test-id="price-sale"]`),
		text(`[data-test-id="price-rent"]`),
		feature("Vraagprijs", "Huurprijs", "Asking price", "Rental price"),
	)}},
	commonRules,
	[]FieldRule{
		{models.FieldListedSince, feature("Aangeboden sinds", "Listed since")},
		{models.FieldPhoto, photos},
	},
)

var archivedRules = join(
	[]FieldRule{{models.FieldPrice, firstOf(
		text(`[data-test-id="price-sold"]`),
		text(`[data-test-id="price-sale"]`),
		text(`[data-test-id="price-rent"]`),
		feature("Verkoopprijs", "Transactieprijs", "Sale price"),
	)}},
	commonRules,
	[]FieldRule{
		{models.FieldDateList, feature("Aanmelddatum", "Listing date", "Aangeboden sinds", "Listed since")},
		{models.FieldDateSold, feature("Verkoopdatum", "Verhuurdatum", "Date of sale", "Rental date")},
		{models.FieldLastAskPrice, feature("Laatste vraagprijs", "Last asking price")},
		{models.FieldLastAskPriceM2, feature("Vraagprijs per m²", "Asking price per m²")},
		{models.FieldPhoto, photos},
	},
)

// Rules returns the rule table of a dialect.
func Rules(d models.Dialect) RuleSet {
	if d == models.DialectArchived {
		return RuleSet{Dialect: d, Rules: archivedRules}
	}
	return RuleSet{Dialect: d, Rules: activeRules}
}

func join(parts ...[]FieldRule) []FieldRule {
	var out []FieldRule
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// text returns the cleaned text of the first element matching sel.
func text(sel string) Rule {
	return func(entry *goquery.Selection) (string, bool) {
		node := entry.Find(sel).First()
		if node.Length() == 0 {
			return "", false
		}
		v := clean(node.Text())
		return v, v != ""
	}
}

// listingLink returns the first href among the elements matching sel whose
// path addresses a listing.
func listingLink(sel string) Rule {
	return func(entry *goquery.Selection) (string, bool) {
		var href string
		entry.Find(sel).EachWithBreak(func(_ int, a *goquery.Selection) bool {
			v := strings.TrimSpace(a.AttrOr("href", ""))
			u, err := url.Parse(v)
			if err != nil || !isListingPath(u.Path) {
				return true
			}
			href = v
			return false
		})
		return href, href != ""
	}
}

// feature finds a dt whose text equals one of labels and returns the text of
// the dd that follows it.
func feature(labels ...string) Rule {
	want := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		want[labelKey(l)] = struct{}{}
	}
	return func(entry *goquery.Selection) (string, bool) {
		var value string
		entry.Find("dt").EachWithBreak(func(_ int, dt *goquery.Selection) bool {
			if _, ok := want[labelKey(dt.Text())]; !ok {
				return true
			}
			value = clean(dt.NextFiltered("dd").Text())
			return value == ""
		})
		return value, value != ""
	}
}

// firstOf returns the value of the first rule that yields one.
func firstOf(rules ...Rule) Rule {
	return func(entry *goquery.Selection) (string, bool) {
		for _, r := range rules {
			if v, ok := apply(r, entry); ok {
				return v, true
			}
		}
		return "", false
	}
}

// photos collects the first candidate URL of every listing image.
func photos(entry *goquery.Selection) (string, bool) {
	var urls []string
	seen := make(map[string]struct{})
	entry.Find("img").Each(func(_ int, img *goquery.Selection) {
		var src string
		for _, name := range []string{"data-lazy-srcset", "srcset", "data-src", "src"} {
			if v, ok := img.Attr(name); ok && strings.TrimSpace(v) != "" {
				src = firstCandidate(v)
				break
			}
		}
		if src == "" || strings.HasPrefix(src, "data:") {
			return
		}
		if _, dup := seen[src]; dup {
			return
		}
		seen[src] = struct{}{}
		urls = append(urls, src)
	})
	return strings.Join(urls, ", "), len(urls) > 0
}

func firstCandidate(srcset string) string {
	first, _, _ := strings.Cut(srcset, ",")
	fields := strings.Fields(first)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// apply runs r and treats a panic as an absent value.
func apply(r Rule, entry *goquery.Selection) (v string, ok bool) {
	defer func() {
		if recover() != nil {
			v, ok = "", false
		}
	}()
	return r(entry)
}

func labelKey(s string) string {
	return strings.ToLower(strings.TrimSuffix(clean(s), ":"))
}

// clean collapses runs of whitespace and trims the result.
func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
