package parser

import (
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"github.com/aluiziolira/go-scrape-listings/models"
)

func newTestExtractor(t *testing.T, d models.Dialect) *Extractor {
	t.Helper()
	ex, err := NewExtractor(testBaseURL, d)
	if err != nil {
		t.Fatalf("new extractor: %v", err)
	}
	return ex
}

func TestExtractMissingEnergyLabel(t *testing.T) {
	entries := make([]entryFixture, 10)
	for i := range entries {
		entries[i] = activeEntry(i + 1)
	}
	entries[4].energy = ""

	got, err := newTestExtractor(t, models.DialectActive).Extract(resultPage(entries...))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(got.Listings) != 10 {
		t.Fatalf("listings = %d, want 10", len(got.Listings))
	}
	if got.Entries != 10 || got.Dropped != 0 {
		t.Fatalf("entries=%d dropped=%d, want 10/0", got.Entries, got.Dropped)
	}

	withLabel := 0
	for i, l := range got.Listings {
		if _, ok := l.Get(models.FieldEnergyLabel); ok {
			withLabel++
		} else if i != 4 {
			t.Fatalf("listing %d lost its energy label", i)
		}
		if _, ok := l.Get(models.FieldPrice); !ok {
			t.Fatalf("listing %d lost its price", i)
		}
	}
	if withLabel != 9 {
		t.Fatalf("energy labels = %d, want 9", withLabel)
	}
	if got.MissingFields[models.FieldEnergyLabel] != 1 {
		t.Fatalf("missing energy_label = %d, want 1", got.MissingFields[models.FieldEnergyLabel])
	}
}

func TestExtractDropsEntriesWithoutIdentifier(t *testing.T) {
	noLink := activeEntry(2)
	noLink.href = ""
	rootLink := activeEntry(3)
	rootLink.href = "/"
	jsLink := activeEntry(4)
	jsLink.href = "javascript:void(0)"

	got, err := newTestExtractor(t, models.DialectActive).Extract(resultPage(activeEntry(1), noLink, rootLink, jsLink, activeEntry(5)))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if got.Entries != 5 {
		t.Fatalf("entries = %d, want 5", got.Entries)
	}
	if got.Dropped != 3 {
		t.Fatalf("dropped = %d, want 3", got.Dropped)
	}
	ids := got.IDs()
	want := []models.ListingID{
		"/detail/koop/amsterdam/appartement-43000001-keizersgracht-1/",
		"/detail/koop/amsterdam/appartement-43000005-keizersgracht-5/",
	}
	if len(ids) != len(want) {
		t.Fatalf("ids = %v", ids)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("id %d = %q, want %q", i, ids[i], want[i])
		}
	}
}

func TestExtractFieldValues(t *testing.T) {
	entry := activeEntry(7)
	entry.anchor = false
	entry.href = "https://www.funda.nl/detail/koop/amsterdam/appartement-43000007-keizersgracht-7?ref=search#photos"
	entry.features = append(entry.features,
		[2]string{"Eigendomssituatie", "Volle eigendom"},
		[2]string{"Buitenruimte:", "Balkon"},
	)

	got, err := newTestExtractor(t, models.DialectActive).Extract(resultPage(entry))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(got.Listings) != 1 {
		t.Fatalf("listings = %d, want 1", len(got.Listings))
	}
	l := got.Listings[0]

	if l.ID != "/detail/koop/amsterdam/appartement-43000007-keizersgracht-7/" {
		t.Fatalf("id = %q", l.ID)
	}
	tests := []struct {
		field models.Field
		want  string
	}{
		{models.FieldURL, "https://www.funda.nl/detail/koop/amsterdam/appartement-43000007-keizersgracht-7/"},
		{models.FieldPrice, "€ 407.000 k.k."},
		{models.FieldAddress, "Keizersgracht 7"},
		{models.FieldZipCode, "1015 CJ Amsterdam"},
		{models.FieldLivingArea, "85 m²"},
		{models.FieldNumOfRooms, "3 kamers (2 slaapkamers)"},
		{models.FieldListedSince, "3 weken"},
		{models.FieldOwnership, "Volle eigendom"},
		{models.FieldExteriors, "Balkon"},
		{models.FieldPhoto, "https://cloud.funda.nl/7/1.jpg"},
	}
	for _, tt := range tests {
		if v, _ := l.Get(tt.field); v != tt.want {
			t.Errorf("%s = %q, want %q", tt.field, v, tt.want)
		}
	}
	if _, ok := l.Get(models.FieldDateSold); ok {
		t.Fatal("active entry must not carry date_sold")
	}
}

func TestExtractArchivedDialect(t *testing.T) {
	entry := activeEntry(1)
	entry.priceKey = "price-sold"
	entry.price = "€ 510.000 k.k."
	entry.features = [][2]string{
		{"Aanmelddatum", "3 januari 2023"},
		{"Verkoopdatum", "14 februari 2023"},
		{"Laatste vraagprijs", "€ 495.000 k.k."},
	}

	got, err := newTestExtractor(t, models.DialectArchived).Extract(resultPage(entry))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	l := got.Listings[0]
	for field, want := range map[models.Field]string{
		models.FieldPrice:        "€ 510.000 k.k.",
		models.FieldDateList:     "3 januari 2023",
		models.FieldDateSold:     "14 februari 2023",
		models.FieldLastAskPrice: "€ 495.000 k.k.",
	} {
		if v, _ := l.Get(field); v != want {
			t.Errorf("%s = %q, want %q", field, v, want)
		}
	}
	if _, ok := l.Get(models.FieldListedSince); ok {
		t.Fatal("archived entry must not carry listed_since")
	}
}

func TestExtractEmptyPage(t *testing.T) {
	got, err := newTestExtractor(t, models.DialectActive).Extract([]byte(`<html><body><p>Geen resultaten</p></body></html>`))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if got.Entries != 0 || len(got.Listings) != 0 {
		t.Fatalf("entries=%d listings=%d, want 0", got.Entries, len(got.Listings))
	}
}

func TestRulePanicIsAbsent(t *testing.T) {
	boom := func(*goquery.Selection) (string, bool) { panic("boom") }
	if v, ok := apply(boom, nil); ok || v != "" {
		t.Fatalf("apply(panicking rule) = %q, %v", v, ok)
	}
	if _, ok := apply(firstOf(boom, func(*goquery.Selection) (string, bool) { return "x", true }), nil); !ok {
		t.Fatal("firstOf should fall through a panicking rule")
	}
}

func TestCanonicalize(t *testing.T) {
	base, _ := url.Parse(testBaseURL)
	tests := []struct {
		href   string
		wantID models.ListingID
		wantOK bool
	}{
		{"/detail/koop/amsterdam/huis-42123456-straat-1/", "/detail/koop/amsterdam/huis-42123456-straat-1/", true},
		{"/Detail/Koop/Amsterdam/huis-42123456-straat-1", "/detail/koop/amsterdam/huis-42123456-straat-1/", true},
		{"https://WWW.funda.nl/detail/koop/amsterdam/huis-42123456-straat-1/?x=1#top", "/detail/koop/amsterdam/huis-42123456-straat-1/", true},
		{"", "", false},
		{"#", "", false},
		{"/", "", false},
		{"javascript:void(0)", "", false},
		{"/makelaar/12345-agency/", "", false},
		{"/koop/amsterdam/", "", false},
		{"/koop/amsterdam/huis-42123456-straat-1/", "/koop/amsterdam/huis-42123456-straat-1/", true},
	}
	for _, tt := range tests {
		id, _, ok := Canonicalize(base, tt.href)
		if ok != tt.wantOK || id != tt.wantID {
			t.Errorf("Canonicalize(%q) = %q, %v; want %q, %v", tt.href, id, ok, tt.wantID, tt.wantOK)
		}
	}
}

func TestExtractIgnoresAgencyLinks(t *testing.T) {
	agency := activeEntry(2)
	agency.anchor = false
	agency.href = "/makelaar/12345-agency/"
	other := activeEntry(3)
	other.anchor = false
	other.href = "https://www.funda.nl/makelaar/67890-other/"

	got, err := newTestExtractor(t, models.DialectActive).Extract(resultPage(agency, other))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(got.Listings) != 0 || got.Entries != 2 || got.Dropped != 2 {
		t.Fatalf("listings=%d entries=%d dropped=%d, want 0/2/2", len(got.Listings), got.Entries, got.Dropped)
	}
}

func TestExtractSkipsAgencyLinkBeforeListing(t *testing.T) {
	page := `<html><body><ol>
		<li data-test-id="search-result-item">
			<a href="/makelaar/12345-agency/">Makelaar</a>
			<h2 data-test-id="street-name-house-number">Damrak 1</h2>
			<a href="/detail/huur/amsterdam/appartement-43000099-damrak-1/">Bekijk</a>
		</li>
	</ol></body></html>`

	got, err := newTestExtractor(t, models.DialectActive).Extract([]byte(page))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(got.Listings) != 1 {
		t.Fatalf("listings = %d, want 1", len(got.Listings))
	}
	if id := got.Listings[0].ID; id != "/detail/huur/amsterdam/appartement-43000099-damrak-1/" {
		t.Fatalf("id = %q", id)
	}
}

func structuredPage(jsonLD string) []byte {
	return []byte(`<html><head><script type="application/ld+json">` + jsonLD + `</script></head><body><p>app</p></body></html>`)
}

func TestExtractStructuredItemList(t *testing.T) {
	page := structuredPage(`{
		"@context": "https://schema.org",
		"@type": "ItemList",
		"itemListElement": [
			{"@type": "ListItem", "position": 1, "url": "https://www.funda.nl/detail/koop/utrecht/huis-43000001-oudegracht-1/"},
			{"@type": "ListItem", "position": 2, "item": {"url": "/detail/koop/utrecht/huis-43000002-oudegracht-2"}},
			{"@type": "ListItem", "position": 3, "url": "https://www.funda.nl/makelaar/12345-agency/"},
			{"@type": "ListItem", "position": 4}
		]
	}`)

	got, err := newTestExtractor(t, models.DialectActive).Extract(page)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if !got.Structured {
		t.Fatal("expected structured extraction")
	}
	if got.Entries != 3 || got.Dropped != 1 {
		t.Fatalf("entries=%d dropped=%d, want 3/1", got.Entries, got.Dropped)
	}
	want := []models.ListingID{
		"/detail/koop/utrecht/huis-43000001-oudegracht-1/",
		"/detail/koop/utrecht/huis-43000002-oudegracht-2/",
	}
	ids := got.IDs()
	if len(ids) != len(want) {
		t.Fatalf("ids = %v", ids)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("id %d = %q, want %q", i, ids[i], want[i])
		}
	}
	if got.Anomalies != 2 {
		t.Fatalf("anomalies = %d, want 2", got.Anomalies)
	}
	if got.MissingFields[models.FieldPrice] != 2 {
		t.Fatalf("missing price = %d, want 2", got.MissingFields[models.FieldPrice])
	}
}

func TestExtractPrefersMarkupOverStructuredData(t *testing.T) {
	page := strings.Replace(string(resultPage(activeEntry(1))), "<body>",
		`<body><script type="application/ld+json">{"itemListElement":[{"url":"/detail/koop/utrecht/huis-43000009-x/"}]}</script>`, 1)

	got, err := newTestExtractor(t, models.DialectActive).Extract([]byte(page))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if got.Structured || got.Entries != 1 {
		t.Fatalf("structured=%v entries=%d, want false/1", got.Structured, got.Entries)
	}
	if id := got.Listings[0].ID; id != "/detail/koop/amsterdam/appartement-43000001-keizersgracht-1/" {
		t.Fatalf("id = %q", id)
	}
}

func TestExtractStructuredEmptyOrInvalid(t *testing.T) {
	tests := []struct {
		name   string
		jsonLD string
	}{
		{"empty list", `{"@type": "ItemList", "itemListElement": []}`},
		{"invalid json", `{"itemListElement": [`},
		{"no list", `{"@type": "Organization", "name": "funda"}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := newTestExtractor(t, models.DialectActive).Extract(structuredPage(tc.jsonLD))
			if err != nil {
				t.Fatalf("extract: %v", err)
			}
			if got.Structured || got.Entries != 0 {
				t.Fatalf("structured=%v entries=%d, want false/0", got.Structured, got.Entries)
			}
		})
	}
}

func TestExtractDetail(t *testing.T) {
	ex := newTestExtractor(t, models.DialectActive)
	got, err := ex.Extract(resultPage(activeEntry(1)))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	listing := got.Listings[0]

	detail := `<html><body>
		<h1><span data-test-id="street-name-house-number">Keizersgracht 1 A</span></h1>
		<dl>
			<dt>Bouwjaar</dt><dd>1910</dd>
			<dt>Eigendomssituatie</dt><dd>Erfpacht</dd>
		</dl>
	</body></html>`
	merged, missing, err := ex.ExtractDetail([]byte(detail), listing)
	if err != nil {
		t.Fatalf("extract detail: %v", err)
	}
	mergedURL, _ := merged.Get(models.FieldURL)
	listingURL, _ := listing.Get(models.FieldURL)
	if merged.ID != listing.ID || mergedURL != listingURL {
		t.Fatalf("identity changed: %q %q", merged.ID, mergedURL)
	}
	for field, want := range map[models.Field]string{
		models.FieldAddress:    "Keizersgracht 1 A",
		models.FieldYearBuilt:  "1910",
		models.FieldOwnership:  "Erfpacht",
		models.FieldPrice:      "€ 401.000 k.k.",
		models.FieldLivingArea: "85 m²",
	} {
		if v, _ := merged.Get(field); v != want {
			t.Errorf("%s = %q, want %q", field, v, want)
		}
	}
	for _, f := range missing {
		if _, ok := merged.Get(f); ok {
			t.Fatalf("field %s reported missing but present", f)
		}
	}
	if v, _ := listing.Get(models.FieldYearBuilt); v != "1906" {
		t.Fatalf("search listing mutated: year_built = %q", v)
	}
}
