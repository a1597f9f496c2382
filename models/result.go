package models

import (
	"strconv"
	"strings"
	"time"
)

// StopReason records why pagination ended.
type StopReason string

const (
	StopCompleted       StopReason = "completed"
	StopEmptyPage       StopReason = "empty_page"
	StopRepeatedPage    StopReason = "repeated_page"
	StopCancelled       StopReason = "cancelled"
	StopTransportOutage StopReason = "transport_outage"
)

// Record is one ResultSet entry. Raw is set in raw mode, Listing otherwise.
type Record struct {
	ID      ListingID
	Raw     *RawListing
	Listing *NormalizedListing
}

// Payload returns the value handed to structured encoders.
func (r Record) Payload() any {
	if r.Listing != nil {
		return r.Listing
	}
	return r.Raw
}

// Schema describes the shape of the records of a run.
type Schema struct {
	Raw     bool
	Dialect Dialect
}

// PageFailure describes a page skipped after exhausting retries.
type PageFailure struct {
	Page     int    `json:"page"`
	URL      string `json:"url"`
	Attempts int    `json:"attempts"`
	Error    string `json:"error"`
}

// RunStats holds the observability counters of one run.
type RunStats struct {
	StartTime              time.Time
	EndTime                time.Time
	PagesRequested         int
	PagesProcessed         int
	PagesSkipped           int
	FailedPages            []PageFailure
	EntriesSeen            int
	EntriesDropped         int
	Duplicates             int
	PreviouslySeen         int
	ExtractionAnomalies    int
	DetailPages            int
	DetailFailures         int
	NormalizationAnomalies map[Field]int
	RetryCount             int
	ErrorsByType           map[string]int
	StopReason             StopReason
}

// ResultSet is the ordered, identifier-unique output of a run.
type ResultSet struct {
	RunID   string
	Schema  Schema
	Records []Record
	Stats   RunStats
}

// Len returns the number of records.
func (rs *ResultSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.Records)
}

// IDs returns the record identifiers in discovery order.
func (rs *ResultSet) IDs() []ListingID {
	if rs == nil {
		return nil
	}
	out := make([]ListingID, len(rs.Records))
	for i, rec := range rs.Records {
		out[i] = rec.ID
	}
	return out
}

// Cell is one exported value; Valid is false for absent values.
type Cell struct {
	Value string
	Valid bool
}

// ColumnKind is the value type of an exported column.
type ColumnKind int

const (
	ColumnText ColumnKind = iota
	ColumnInteger
	ColumnReal
	ColumnBool
)

type column struct {
	name  string
	kind  ColumnKind
	value func(*NormalizedListing) Cell
}

var listingColumns = []column{
	{"url", ColumnText, func(l *NormalizedListing) Cell { return Cell{Value: l.URL, Valid: l.URL != ""} }},
	{"house_id", ColumnInteger, func(l *NormalizedListing) Cell { return int64Cell(l.HouseID) }},
	{"house_type", ColumnText, func(l *NormalizedListing) Cell { return stringCell(l.HouseType) }},
	{"price", ColumnInteger, func(l *NormalizedListing) Cell { return intCell(l.Price) }},
	{"price_m2", ColumnReal, func(l *NormalizedListing) Cell { return floatCell(l.PricePerM2) }},
	{"address", ColumnText, func(l *NormalizedListing) Cell { return stringCell(l.Address) }},
	{"zip", ColumnText, func(l *NormalizedListing) Cell { return stringCell(l.Zip) }},
	{"city", ColumnText, func(l *NormalizedListing) Cell { return stringCell(l.City) }},
	{"description", ColumnText, func(l *NormalizedListing) Cell { return stringCell(l.Description) }},
	{"size", ColumnInteger, func(l *NormalizedListing) Cell { return intCell(l.PlotArea) }},
	{"living_area", ColumnInteger, func(l *NormalizedListing) Cell { return intCell(l.LivingArea) }},
	{"year_built", ColumnInteger, func(l *NormalizedListing) Cell { return intCell(l.YearBuilt) }},
	{"house_age", ColumnInteger, func(l *NormalizedListing) Cell { return intCell(l.HouseAge) }},
	{"kind_of_house", ColumnText, func(l *NormalizedListing) Cell { return enumCell(l.KindOfHouse) }},
	{"building_type", ColumnText, func(l *NormalizedListing) Cell { return enumCell(l.BuildingType) }},
	{"rooms", ColumnInteger, func(l *NormalizedListing) Cell { return intCell(l.Rooms) }},
	{"bedrooms", ColumnInteger, func(l *NormalizedListing) Cell { return intCell(l.Bedrooms) }},
	{"bathrooms", ColumnInteger, func(l *NormalizedListing) Cell { return intCell(l.Bathrooms) }},
	{"toilets", ColumnInteger, func(l *NormalizedListing) Cell { return intCell(l.Toilets) }},
	{"layout", ColumnText, func(l *NormalizedListing) Cell { return stringCell(l.Layout) }},
	{"energy_label", ColumnText, func(l *NormalizedListing) Cell { return enumCell(l.EnergyLabel) }},
	{"insulation", ColumnText, func(l *NormalizedListing) Cell { return stringCell(l.Insulation) }},
	{"heating", ColumnText, func(l *NormalizedListing) Cell { return stringCell(l.Heating) }},
	{"ownership", ColumnText, func(l *NormalizedListing) Cell { return enumCell(l.Ownership) }},
	{"exteriors", ColumnText, func(l *NormalizedListing) Cell { return stringCell(l.Exteriors) }},
	{"has_balcony", ColumnBool, func(l *NormalizedListing) Cell { return boolCell(l.HasBalcony) }},
	{"has_garden", ColumnBool, func(l *NormalizedListing) Cell { return boolCell(l.HasGarden) }},
	{"parking", ColumnText, func(l *NormalizedListing) Cell { return stringCell(l.Parking) }},
	{"neighborhood_name", ColumnText, func(l *NormalizedListing) Cell { return stringCell(l.Neighborhood) }},
	{"date_list", ColumnText, func(l *NormalizedListing) Cell { return dateCell(l.DateListed) }},
	{"last_ask_price", ColumnInteger, func(l *NormalizedListing) Cell { return intCell(l.LastAskPrice) }},
	{"last_ask_price_m2", ColumnInteger, func(l *NormalizedListing) Cell { return intCell(l.LastAskPriceM2) }},
	{"photos", ColumnText, func(l *NormalizedListing) Cell {
		return Cell{Value: strings.Join(l.Photos, ", "), Valid: len(l.Photos) > 0}
	}},
}

var saleColumns = []column{
	{"date_sold", ColumnText, func(l *NormalizedListing) Cell { return saleCell(l, func(s *Sale) Cell { return dateCell(s.DateSold) }) }},
	{"price_sold", ColumnInteger, func(l *NormalizedListing) Cell { return saleCell(l, func(s *Sale) Cell { return intCell(s.PriceSold) }) }},
	{"term", ColumnInteger, func(l *NormalizedListing) Cell { return saleCell(l, func(s *Sale) Cell { return intCell(s.Term) }) }},
}

func (s Schema) columnSet() []column {
	if s.Dialect != DialectArchived {
		return listingColumns
	}
	out := make([]column, 0, len(listingColumns)+len(saleColumns))
	out = append(out, listingColumns...)
	return append(out, saleColumns...)
}

// Columns returns the export column names of the schema.
func (s Schema) Columns() []string {
	if s.Raw {
		fields := RawFields(s.Dialect)
		out := make([]string, len(fields))
		for i, f := range fields {
			out[i] = string(f)
		}
		return out
	}
	cols := s.columnSet()
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.name
	}
	return out
}

// Kinds returns the value type of each column of Columns. Raw columns are
// text.
func (s Schema) Kinds() []ColumnKind {
	if s.Raw {
		return make([]ColumnKind, len(RawFields(s.Dialect)))
	}
	cols := s.columnSet()
	out := make([]ColumnKind, len(cols))
	for i, c := range cols {
		out[i] = c.kind
	}
	return out
}

// Cells renders rec in the column order of the schema.
func (s Schema) Cells(rec Record) []Cell {
	if s.Raw {
		fields := RawFields(s.Dialect)
		out := make([]Cell, len(fields))
		if rec.Raw == nil {
			return out
		}
		for i, f := range fields {
			v, ok := rec.Raw.Get(f)
			out[i] = Cell{Value: v, Valid: ok}
		}
		return out
	}
	cols := s.columnSet()
	out := make([]Cell, len(cols))
	if rec.Listing == nil {
		return out
	}
	for i, c := range cols {
		out[i] = c.value(rec.Listing)
	}
	return out
}

func stringCell(v *string) Cell {
	if v == nil {
		return Cell{}
	}
	return Cell{Value: *v, Valid: true}
}

func intCell(v *int) Cell {
	if v == nil {
		return Cell{}
	}
	return Cell{Value: strconv.Itoa(*v), Valid: true}
}

func int64Cell(v *int64) Cell {
	if v == nil {
		return Cell{}
	}
	return Cell{Value: strconv.FormatInt(*v, 10), Valid: true}
}

func floatCell(v *float64) Cell {
	if v == nil {
		return Cell{}
	}
	return Cell{Value: strconv.FormatFloat(*v, 'f', 1, 64), Valid: true}
}

func boolCell(v *bool) Cell {
	if v == nil {
		return Cell{}
	}
	return Cell{Value: strconv.FormatBool(*v), Valid: true}
}

func dateCell(v *Date) Cell {
	if v == nil {
		return Cell{}
	}
	return Cell{Value: v.String(), Valid: true}
}

func enumCell[T ~string](v *T) Cell {
	if v == nil {
		return Cell{}
	}
	return Cell{Value: string(*v), Valid: true}
}

func saleCell(l *NormalizedListing, get func(*Sale) Cell) Cell {
	if l.Sale == nil {
		return Cell{}
	}
	return get(l.Sale)
}
