package parser

import (
	"testing"
	"time"

	"github.com/aluiziolira/go-scrape-listings/models"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   int
		wantOK bool
	}{
		{name: "dutch separators", input: "€ 1.500", want: 1500, wantOK: true},
		{name: "rent suffix", input: "€ 1.500 per month", want: 1500, wantOK: true},
		{name: "costs buyer", input: "€ 350.000 k.k.", want: 350000, wantOK: true},
		{name: "english separators", input: "€1,250,000", want: 1250000, wantOK: true},
		{name: "decimals dropped", input: "€ 1.500,50", want: 1500, wantOK: true},
		{name: "trailing dash", input: "€ 795.000,-", want: 795000, wantOK: true},
		{name: "euro word", input: "EUR 2.000 /mnd", want: 2000, wantOK: true},
		{name: "bare number", input: "425000", want: 425000, wantOK: true},
		{name: "on request", input: "Prijs op aanvraag", wantOK: false},
		{name: "no currency", input: "ongeveer 300.000 euro", want: 300000, wantOK: true},
		{name: "unmarked text", input: "vanaf 300.000", wantOK: false},
		{name: "empty", input: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parsePrice(tt.input)
			if ok != tt.wantOK || (ok && got != tt.want) {
				t.Errorf("parsePrice(%q) = %d, %v; want %d, %v", tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestParseArea(t *testing.T) {
	tests := []struct {
		input  string
		want   int
		wantOK bool
	}{
		{"85 m²", 85, true},
		{"1.250 m²", 1250, true},
		{"64m2", 64, true},
		{"72,5 m²", 72, true},
		{"110", 110, true},
		{"320 m³", 0, false},
		{"onbekend", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseArea(tt.input)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("parseArea(%q) = %d, %v; want %d, %v", tt.input, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestParseYear(t *testing.T) {
	tests := []struct {
		input  string
		want   int
		wantOK bool
	}{
		{"1990", 1990, true},
		{"1990-2000", 1990, true},
		{"before 1906", 1906, true},
		{"voor 1906", 1906, true},
		{"0999", 0, false},
		{"onbekend", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseYear(tt.input)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("parseYear(%q) = %d, %v; want %d, %v", tt.input, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestParseRoomsAndBathrooms(t *testing.T) {
	rooms, ok := parseRooms("4 kamers (3 slaapkamers)")
	if !ok || rooms.rooms == nil || *rooms.rooms != 4 || rooms.bedrooms == nil || *rooms.bedrooms != 3 {
		t.Fatalf("parseRooms dutch = %+v, %v", rooms, ok)
	}
	rooms, ok = parseRooms("2 rooms")
	if !ok || *rooms.rooms != 2 || rooms.bedrooms != nil {
		t.Fatalf("parseRooms english = %+v, %v", rooms, ok)
	}
	if _, ok := parseRooms("ruim"); ok {
		t.Fatal("parseRooms accepted text without counts")
	}

	baths, ok := parseBathrooms("1 badkamer en 1 apart toilet")
	if !ok || *baths.bathrooms != 1 || *baths.toilets != 1 {
		t.Fatalf("parseBathrooms dutch = %+v, %v", baths, ok)
	}
	baths, ok = parseBathrooms("2 bathrooms")
	if !ok || *baths.bathrooms != 2 || baths.toilets != nil {
		t.Fatalf("parseBathrooms english = %+v, %v", baths, ok)
	}
}

func TestParseDate(t *testing.T) {
	today := models.DateOf(testNow)
	tests := []struct {
		input  string
		want   models.Date
		wantOK bool
	}{
		{"vandaag", today, true},
		{"Today", today, true},
		{"gisteren", models.NewDate(2024, time.March, 12), true},
		{"3 dagen", models.NewDate(2024, time.March, 10), true},
		{"2 weeks ago", models.NewDate(2024, time.February, 28), true},
		{"6+ maanden", models.NewDate(2023, time.September, 15), true},
		{"maandag", models.NewDate(2024, time.March, 11), true},
		{"woensdag", today, true},
		{"donderdag", models.NewDate(2024, time.March, 7), true},
		{"14 februari 2023", models.NewDate(2023, time.February, 14), true},
		{"3 mei 2022", models.NewDate(2022, time.May, 3), true},
		{"12 mrt. 2021", models.NewDate(2021, time.March, 12), true},
		{"March 5, 2020", models.NewDate(2020, time.March, 5), true},
		{"2019-07-01", models.NewDate(2019, time.July, 1), true},
		{"01-08-2019", models.NewDate(2019, time.August, 1), true},
		{"Verkocht op 9 oktober 2023", models.NewDate(2023, time.October, 9), true},
		{"binnenkort", models.Date{}, false},
		{"", models.Date{}, false},
	}
	for _, tt := range tests {
		got, ok := parseDate(tt.input, today)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("parseDate(%q) = %v, %v; want %v, %v", tt.input, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestParseEnergyLabel(t *testing.T) {
	tests := []struct {
		input  string
		want   models.EnergyLabel
		wantOK bool
	}{
		{"A", models.EnergyA, true},
		{"a+++", models.EnergyA3, true},
		{"A++++ Wat betekent dit?", models.EnergyA4, true},
		{"Energielabel B", models.EnergyB, true},
		{"G", models.EnergyG, true},
		{"C-", models.EnergyC, true},
		{"a+-", models.EnergyA1, true},
		{"-", "", false},
		{"A+++++", "", false},
		{"H", "", false},
		{"Niet verplicht", "", false},
	}
	for _, tt := range tests {
		got, ok := parseEnergyLabel(tt.input)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("parseEnergyLabel(%q) = %q, %v; want %q, %v", tt.input, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestParseCategories(t *testing.T) {
	ownership := map[string]models.Ownership{
		"Volle eigendom":                  models.OwnershipFull,
		"Eigendom":                        models.OwnershipFull,
		"Erfpacht":                        models.OwnershipLeasehold,
		"Gemeentelijk erfpacht":           models.OwnershipLeasehold,
		"Erfpacht eeuwigdurend afgekocht": models.OwnershipLeaseholdBoughtOff,
		"Ground lease":                    models.OwnershipLeasehold,
	}
	for in, want := range ownership {
		if got, ok := parseOwnership(in); !ok || got != want {
			t.Errorf("parseOwnership(%q) = %q, %v; want %q", in, got, ok, want)
		}
	}
	if _, ok := parseOwnership("Zie akte"); ok {
		t.Error("parseOwnership accepted unknown text")
	}

	kinds := map[string]models.KindOfHouse{
		"Eengezinswoning, tussenwoning":     models.KindSingleFamily,
		"Herenhuis, hoekwoning":             models.KindMansion,
		"Bovenwoning (appartement)":         models.KindApartment,
		"Woonboerderij, vrijstaande woning": models.KindFarmhouse,
		"Woonboot":                          models.KindHouseboat,
		"Bungalow, vrijstaande woning":      models.KindBungalow,
		"Landhuis":                          models.KindCountryHouse,
	}
	for in, want := range kinds {
		if got, ok := parseKindOfHouse(in); !ok || got != want {
			t.Errorf("parseKindOfHouse(%q) = %q, %v; want %q", in, got, ok, want)
		}
	}
	if _, ok := parseKindOfHouse("Garagebox"); ok {
		t.Error("parseKindOfHouse accepted unknown text")
	}

	if got, ok := parseBuildingType("Nieuwbouw"); !ok || got != models.BuildingNewBuild {
		t.Errorf("parseBuildingType(Nieuwbouw) = %q, %v", got, ok)
	}
	if got, ok := parseBuildingType("Bestaande bouw"); !ok || got != models.BuildingResale {
		t.Errorf("parseBuildingType(Bestaande bouw) = %q, %v", got, ok)
	}
}

func TestHouseIdentity(t *testing.T) {
	id, houseType := houseIdentity("https://www.funda.nl/koop/amsterdam/huis-42123456-straat-1/")
	if id == nil || *id != 42123456 || houseType == nil || *houseType != "huis" {
		t.Fatalf("houseIdentity = %v, %v", id, houseType)
	}
	id, houseType = houseIdentity("https://www.funda.nl/detail/koop/amsterdam/appartement-keizersgracht-1/43210987/")
	if id == nil || *id != 43210987 || houseType == nil || *houseType != "appartement" {
		t.Fatalf("houseIdentity new layout = %v, %v", id, houseType)
	}
	if city, ok := cityFromURL("https://www.funda.nl/detail/huur/den-haag/x/"); !ok || city != "den haag" {
		t.Fatalf("cityFromURL = %q, %v", city, ok)
	}
}

func TestToRawPrices(t *testing.T) {
	tests := map[int]string{0: "€ 0", 950: "€ 950", 1500: "€ 1.500", 1250000: "€ 1.250.000"}
	for in, want := range tests {
		if got := formatPrice(in); got != want {
			t.Errorf("formatPrice(%d) = %q, want %q", in, got, want)
		}
	}
}
