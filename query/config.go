// Package query turns a search configuration into page requests for the
// remote search endpoint.
package query

import (
	"slices"
	"strings"

	"github.com/aluiziolira/go-scrape-listings/models"
)

// TransactionType is the market a search targets.
type TransactionType string

const (
	Buy  TransactionType = "buy"
	Rent TransactionType = "rent"
)

// ParseTransactionType accepts the English and Dutch spellings and their
// one-letter abbreviations.
func ParseTransactionType(s string) (TransactionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "buy", "koop", "b", "k":
		return Buy, nil
	case "rent", "huur", "r", "h":
		return Rent, nil
	default:
		return "", invalid("want_to", s, "must be either buy or rent")
	}
}

// segment returns the path segment the remote uses for the market.
func (t TransactionType) segment() string {
	if t == Rent {
		return "huur"
	}
	return "koop"
}

// PropertyType is an object type filter value.
type PropertyType string

const (
	House        PropertyType = "house"
	Apartment    PropertyType = "apartment"
	Land         PropertyType = "land"
	Parking      PropertyType = "parking"
	StorageSpace PropertyType = "storage_space"
	Berth        PropertyType = "berth"
	Substructure PropertyType = "substructure"
	Pitch        PropertyType = "pitch"
)

var propertyTypes = []PropertyType{House, Apartment, Land, Parking, StorageSpace, Berth, Substructure, Pitch}

// SortKey is a result ordering understood by the remote.
type SortKey string

const (
	SortRelevancy     SortKey = "relevancy"
	SortDateDown      SortKey = "date_down"
	SortDateUp        SortKey = "date_up"
	SortPriceUp       SortKey = "price_up"
	SortPriceDown     SortKey = "price_down"
	SortFloorAreaDown SortKey = "floor_area_down"
	SortPlotAreaDown  SortKey = "plot_area_down"
	SortCityUp        SortKey = "city_up"
	SortPostalCodeUp  SortKey = "postal_code_up"
)

var sortKeys = []SortKey{
	SortRelevancy, SortDateDown, SortDateUp, SortPriceUp, SortPriceDown,
	SortFloorAreaDown, SortPlotAreaDown, SortCityUp, SortPostalCodeUp,
}

// recencyWindows are the publication_date values the remote accepts.
var recencyWindows = []int{1, 3, 5, 10, 30}

// Config is the search configuration of one run. Zero PageStart and
// NumberOfPages mean 1.
type Config struct {
	Area          string          `yaml:"area"`
	WantTo        TransactionType `yaml:"want_to"`
	FindPast      bool            `yaml:"find_past"`
	PageStart     int             `yaml:"page_start"`
	NumberOfPages int             `yaml:"number_of_pages"`
	MinPrice      *int            `yaml:"min_price"`
	MaxPrice      *int            `yaml:"max_price"`
	MinFloorArea  *int            `yaml:"min_floor_area"`
	MaxFloorArea  *int            `yaml:"max_floor_area"`
	DaysSince     *int            `yaml:"days_since"`
	PropertyTypes []PropertyType  `yaml:"property_type"`
	Sort          SortKey         `yaml:"sort"`
	RawData       bool            `yaml:"raw_data"`
}

// Dialect returns the listing dialect selected by FindPast.
func (c Config) Dialect() models.Dialect {
	if c.FindPast {
		return models.DialectArchived
	}
	return models.DialectActive
}

// PageEnd returns the last page of the requested range.
func (c Config) PageEnd() int {
	return c.PageStart + c.NumberOfPages - 1
}

// Validate reports the first problem Normalize would find.
func (c Config) Validate() error {
	_, err := c.Normalize()
	return err
}

// Normalize validates c and returns its canonical form: area slug, canonical
// market, page defaults and de-duplicated property types. The receiver is
// left untouched.
func (c Config) Normalize() (Config, error) {
	out := c

	area := strings.Join(strings.Fields(strings.ToLower(c.Area)), "-")
	if area == "" {
		return Config{}, invalid("area", nil, "is required")
	}
	out.Area = area

	wantTo, err := ParseTransactionType(string(c.WantTo))
	if err != nil {
		return Config{}, err
	}
	out.WantTo = wantTo

	if out.PageStart, err = pageValue("page_start", c.PageStart); err != nil {
		return Config{}, err
	}
	if out.NumberOfPages, err = pageValue("number_of_pages", c.NumberOfPages); err != nil {
		return Config{}, err
	}

	if err := checkBounds("price", c.MinPrice, c.MaxPrice); err != nil {
		return Config{}, err
	}
	if err := checkBounds("floor_area", c.MinFloorArea, c.MaxFloorArea); err != nil {
		return Config{}, err
	}
	out.MinPrice = copyInt(c.MinPrice)
	out.MaxPrice = copyInt(c.MaxPrice)
	out.MinFloorArea = copyInt(c.MinFloorArea)
	out.MaxFloorArea = copyInt(c.MaxFloorArea)

	if c.DaysSince != nil {
		days := *c.DaysSince
		if days <= 0 {
			return Config{}, invalid("days_since", days, "must be positive")
		}
		if !slices.Contains(recencyWindows, days) {
			return Config{}, invalid("days_since", days, "must be one of %v", recencyWindows)
		}
		out.DaysSince = copyInt(c.DaysSince)
	}

	out.PropertyTypes = nil
	for _, pt := range c.PropertyTypes {
		canonical := PropertyType(strings.ToLower(strings.TrimSpace(string(pt))))
		if !slices.Contains(propertyTypes, canonical) {
			return Config{}, invalid("property_type", pt, "must be one of %v", propertyTypes)
		}
		if !slices.Contains(out.PropertyTypes, canonical) {
			out.PropertyTypes = append(out.PropertyTypes, canonical)
		}
	}

	if c.Sort != "" {
		canonical := SortKey(strings.ToLower(strings.TrimSpace(string(c.Sort))))
		if !slices.Contains(sortKeys, canonical) {
			return Config{}, invalid("sort", c.Sort, "must be one of %v", sortKeys)
		}
		out.Sort = canonical
	}

	return out, nil
}

// ParsePropertyTypes splits a comma separated list of property types.
func ParsePropertyTypes(s string) []PropertyType {
	var out []PropertyType
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, PropertyType(part))
		}
	}
	return out
}

func pageValue(field string, v int) (int, error) {
	switch {
	case v < 0:
		return 0, invalid(field, v, "must be positive")
	case v == 0:
		return 1, nil
	default:
		return v, nil
	}
}

func checkBounds(name string, lo, hi *int) error {
	if lo != nil && *lo < 0 {
		return invalid("min_"+name, *lo, "cannot be negative")
	}
	if hi != nil && *hi < 0 {
		return invalid("max_"+name, *hi, "cannot be negative")
	}
	if lo != nil && hi != nil && *lo > *hi {
		return invalid("min_"+name, *lo, "cannot exceed max_%s (%d)", name, *hi)
	}
	return nil
}

func copyInt(v *int) *int {
	if v == nil {
		return nil
	}
	n := *v
	return &n
}
