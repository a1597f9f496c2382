// Package models defines data structures for the scraper.
package models

import (
	"encoding/json"
	"time"
)

// ListingID is the canonical URL path of a listing.
type ListingID string

// Dialect selects the markup and schema variant of a run.
type Dialect int

const (
	// DialectActive covers listings currently for sale or rent.
	DialectActive Dialect = iota
	// DialectArchived covers sold or rented listings.
	DialectArchived
)

func (d Dialect) String() string {
	if d == DialectArchived {
		return "archived"
	}
	return "active"
}

// Field names a raw listing attribute.
type Field string

const (
	FieldURL            Field = "url"
	FieldPrice          Field = "price"
	FieldAddress        Field = "address"
	FieldDescription    Field = "description"
	FieldZipCode        Field = "zip_code"
	FieldSize           Field = "size"
	FieldYearBuilt      Field = "year_built"
	FieldLivingArea     Field = "living_area"
	FieldKindOfHouse    Field = "kind_of_house"
	FieldBuildingType   Field = "building_type"
	FieldNumOfRooms     Field = "num_of_rooms"
	FieldNumOfBathrooms Field = "num_of_bathrooms"
	FieldLayout         Field = "layout"
	FieldEnergyLabel    Field = "energy_label"
	FieldInsulation     Field = "insulation"
	FieldHeating        Field = "heating"
	FieldOwnership      Field = "ownership"
	FieldExteriors      Field = "exteriors"
	FieldParking        Field = "parking"
	FieldNeighborhood   Field = "neighborhood_name"
	FieldListedSince    Field = "listed_since"
	FieldDateList       Field = "date_list"
	FieldDateSold       Field = "date_sold"
	FieldLastAskPrice   Field = "last_ask_price"
	FieldLastAskPriceM2 Field = "last_ask_price_m2"
	FieldPhoto          Field = "photo"
)

var commonFields = []Field{
	FieldURL, FieldPrice, FieldAddress, FieldDescription, FieldZipCode, FieldSize,
	FieldYearBuilt, FieldLivingArea, FieldKindOfHouse, FieldBuildingType,
	FieldNumOfRooms, FieldNumOfBathrooms, FieldLayout, FieldEnergyLabel,
	FieldInsulation, FieldHeating, FieldOwnership, FieldExteriors, FieldParking,
	FieldNeighborhood,
}

// RawFields returns the raw columns exposed by a dialect, in export order.
func RawFields(d Dialect) []Field {
	out := make([]Field, 0, len(commonFields)+5)
	out = append(out, commonFields...)
	if d == DialectArchived {
		out = append(out, FieldDateList, FieldDateSold, FieldLastAskPrice, FieldLastAskPriceM2)
	} else {
		out = append(out, FieldListedSince)
	}
	return append(out, FieldPhoto)
}

// RawListing holds the extracted strings of one listing entry. A missing key
// means the value was absent in the markup.
type RawListing struct {
	ID     ListingID
	Fields map[Field]string
}

// NewRawListing creates a raw listing for the given identifier and URL.
func NewRawListing(id ListingID, url string) RawListing {
	return RawListing{
		ID:     id,
		Fields: map[Field]string{FieldURL: url},
	}
}

// Get returns the raw value of f and whether it was present.
func (r RawListing) Get(f Field) (string, bool) {
	v, ok := r.Fields[f]
	return v, ok
}

// Set stores v for f; empty values are treated as absent.
func (r RawListing) Set(f Field, v string) {
	if v == "" {
		delete(r.Fields, f)
		return
	}
	r.Fields[f] = v
}

// Clone returns a copy that does not share its field map with r.
func (r RawListing) Clone() RawListing {
	fields := make(map[Field]string, len(r.Fields))
	for k, v := range r.Fields {
		fields[k] = v
	}
	return RawListing{ID: r.ID, Fields: fields}
}

// MarshalJSON encodes the raw listing as a flat object of its fields.
func (r RawListing) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Fields)
}

// Date is a calendar date without a time of day.
type Date struct {
	time.Time
}

// NewDate returns the UTC calendar date for year, month and day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar date of t in its own location.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Format(time.DateOnly)
}

// DaysUntil returns the number of days from d to other.
func (d Date) DaysUntil(other Date) int {
	return int(other.Sub(d.Time).Hours() / 24)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

// NormalizedListing is a listing with typed values. Nil pointers are absent
// values.
type NormalizedListing struct {
	ID             ListingID     `json:"id"`
	URL            string        `json:"url"`
	HouseID        *int64        `json:"house_id,omitempty"`
	HouseType      *string       `json:"house_type,omitempty"`
	Price          *int          `json:"price,omitempty"`
	PricePerM2     *float64      `json:"price_m2,omitempty"`
	Address        *string       `json:"address,omitempty"`
	Zip            *string       `json:"zip,omitempty"`
	City           *string       `json:"city,omitempty"`
	Description    *string       `json:"description,omitempty"`
	PlotArea       *int          `json:"size,omitempty"`
	LivingArea     *int          `json:"living_area,omitempty"`
	YearBuilt      *int          `json:"year_built,omitempty"`
	HouseAge       *int          `json:"house_age,omitempty"`
	KindOfHouse    *KindOfHouse  `json:"kind_of_house,omitempty"`
	BuildingType   *BuildingType `json:"building_type,omitempty"`
	Rooms          *int          `json:"rooms,omitempty"`
	Bedrooms       *int          `json:"bedrooms,omitempty"`
	Bathrooms      *int          `json:"bathrooms,omitempty"`
	Toilets        *int          `json:"toilets,omitempty"`
	Layout         *string       `json:"layout,omitempty"`
	EnergyLabel    *EnergyLabel  `json:"energy_label,omitempty"`
	Insulation     *string       `json:"insulation,omitempty"`
	Heating        *string       `json:"heating,omitempty"`
	Ownership      *Ownership    `json:"ownership,omitempty"`
	Exteriors      *string       `json:"exteriors,omitempty"`
	HasBalcony     *bool         `json:"has_balcony,omitempty"`
	HasGarden      *bool         `json:"has_garden,omitempty"`
	Parking        *string       `json:"parking,omitempty"`
	Neighborhood   *string       `json:"neighborhood_name,omitempty"`
	DateListed     *Date         `json:"date_list,omitempty"`
	LastAskPrice   *int          `json:"last_ask_price,omitempty"`
	LastAskPriceM2 *int          `json:"last_ask_price_m2,omitempty"`
	Photos         []string      `json:"photos,omitempty"`
	Sale           *Sale         `json:"sale,omitempty"`
}

// Sale holds the fields only archived listings expose.
type Sale struct {
	DateSold  *Date `json:"date_sold"`
	PriceSold *int  `json:"price_sold"`
	Term      *int  `json:"term"`
}
