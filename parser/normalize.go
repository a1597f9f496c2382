package parser

import (
	"math"
	"time"

	"github.com/aluiziolira/go-scrape-listings/models"
)

// Normalizer converts raw listings of one dialect into typed listings.
// Relative dates and house age are computed against the clock it was created
// with.
type Normalizer struct {
	dialect models.Dialect
	today   models.Date
}

// NewNormalizer returns a normalizer for dialect using now as today.
func NewNormalizer(dialect models.Dialect, now time.Time) *Normalizer {
	return &Normalizer{dialect: dialect, today: models.DateOf(now)}
}

// Dialect returns the dialect the normalizer produces.
func (n *Normalizer) Dialect() models.Dialect {
	return n.dialect
}

// normalization tracks the fields of one raw listing that failed to parse.
type normalization struct {
	raw       models.RawListing
	anomalies []models.Field
}

func (st *normalization) text(f models.Field) *string {
	v, ok := st.raw.Get(f)
	if !ok {
		return nil
	}
	v = clean(v)
	if v == "" {
		return nil
	}
	return &v
}

// convert parses the raw value of f. A present value that does not parse
// is recorded as an anomaly.
func convert[T any](st *normalization, f models.Field, parse func(string) (T, bool)) *T {
	v, ok := st.raw.Get(f)
	if !ok {
		return nil
	}
	out, ok := parse(v)
	if !ok {
		st.anomalies = append(st.anomalies, f)
		return nil
	}
	return &out
}

// Normalize converts raw into typed values. The returned fields were present
// in raw but could not be parsed; their values are absent.
func (n *Normalizer) Normalize(raw models.RawListing) (models.NormalizedListing, []models.Field) {
	st := &normalization{raw: raw}
	url, _ := raw.Get(models.FieldURL)

	out := models.NormalizedListing{
		ID:           raw.ID,
		URL:          url,
		Price:        convert(st, models.FieldPrice, parsePrice),
		Address:      st.text(models.FieldAddress),
		Description:  st.text(models.FieldDescription),
		PlotArea:     convert(st, models.FieldSize, parseArea),
		LivingArea:   convert(st, models.FieldLivingArea, parseArea),
		YearBuilt:    convert(st, models.FieldYearBuilt, parseYear),
		KindOfHouse:  convert(st, models.FieldKindOfHouse, parseKindOfHouse),
		BuildingType: convert(st, models.FieldBuildingType, parseBuildingType),
		Layout:       st.text(models.FieldLayout),
		EnergyLabel:  convert(st, models.FieldEnergyLabel, parseEnergyLabel),
		Insulation:   st.text(models.FieldInsulation),
		Heating:      st.text(models.FieldHeating),
		Ownership:    convert(st, models.FieldOwnership, parseOwnership),
		Exteriors:    st.text(models.FieldExteriors),
		Parking:      st.text(models.FieldParking),
		Neighborhood: st.text(models.FieldNeighborhood),
	}
	out.HouseID, out.HouseType = houseIdentity(url)

	if rooms := convert(st, models.FieldNumOfRooms, parseRooms); rooms != nil {
		out.Rooms, out.Bedrooms = rooms.rooms, rooms.bedrooms
	}
	if baths := convert(st, models.FieldNumOfBathrooms, parseBathrooms); baths != nil {
		out.Bathrooms, out.Toilets = baths.bathrooms, baths.toilets
	}

	n.location(st, &out, url)
	n.derive(&out)

	out.LastAskPrice = convert(st, models.FieldLastAskPrice, parsePrice)
	out.LastAskPriceM2 = convert(st, models.FieldLastAskPriceM2, parsePrice)
	if v, ok := raw.Get(models.FieldPhoto); ok {
		out.Photos = splitPhotos(v)
	}

	parseDay := func(s string) (models.Date, bool) { return parseDate(s, n.today) }
	if n.dialect == models.DialectArchived {
		out.DateListed = convert(st, models.FieldDateList, parseDay)
		if out.DateListed == nil {
			out.DateListed = convert(st, models.FieldListedSince, parseDay)
		}
		out.Sale = n.sale(st, &out, parseDay)
	} else {
		out.DateListed = convert(st, models.FieldListedSince, parseDay)
	}

	return out, st.anomalies
}

// location fills Zip and City. The city comes from the postcode field, then
// the address, then the URL.
func (n *Normalizer) location(st *normalization, out *models.NormalizedListing, url string) {
	if v, ok := st.raw.Get(models.FieldZipCode); ok {
		zip, _, found := parsePostcode(v)
		if found {
			out.Zip = &zip
		} else if digitPattern.MatchString(v) {
			st.anomalies = append(st.anomalies, models.FieldZipCode)
		}
		if city, ok := cityFromText(v); ok {
			out.City = &city
			return
		}
	}
	if out.Address != nil {
		if city, ok := cityFromAddress(*out.Address); ok {
			out.City = &city
			return
		}
	}
	if city, ok := cityFromURL(url); ok {
		out.City = &city
	}
}

func (n *Normalizer) derive(out *models.NormalizedListing) {
	if out.Price != nil && out.LivingArea != nil && *out.LivingArea > 0 {
		v := math.Round(float64(*out.Price)/float64(*out.LivingArea)*10) / 10
		out.PricePerM2 = &v
	}
	if out.YearBuilt != nil {
		if age := n.today.Year() - *out.YearBuilt; age >= 0 {
			out.HouseAge = &age
		}
	}
	if out.Exteriors != nil {
		balcony, garden := exteriorFeatures(*out.Exteriors)
		out.HasBalcony, out.HasGarden = &balcony, &garden
	}
}

// sale builds the archived-only fields. Term is absent when either date is
// missing or the sale predates the listing.
func (n *Normalizer) sale(st *normalization, out *models.NormalizedListing, parseDay func(string) (models.Date, bool)) *models.Sale {
	s := &models.Sale{DateSold: convert(st, models.FieldDateSold, parseDay)}
	if out.Price != nil {
		price := *out.Price
		s.PriceSold = &price
	}
	if s.DateSold != nil && out.DateListed != nil {
		if term := out.DateListed.DaysUntil(*s.DateSold); term >= 0 {
			s.Term = &term
		}
	}
	return s
}
