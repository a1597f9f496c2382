package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aluiziolira/go-scrape-listings/models"
)

// ToRaw renders a normalized listing back into raw text that Normalize reads
// to the same values. Derived fields are not written.
func ToRaw(l models.NormalizedListing, dialect models.Dialect) models.RawListing {
	raw := models.NewRawListing(l.ID, l.URL)
	setString := func(f models.Field, v *string) {
		if v != nil {
			raw.Set(f, *v)
		}
	}
	setInt := func(f models.Field, v *int, format func(int) string) {
		if v != nil {
			raw.Set(f, format(*v))
		}
	}

	setInt(models.FieldPrice, l.Price, formatPrice)
	setString(models.FieldAddress, l.Address)
	setString(models.FieldDescription, l.Description)
	setInt(models.FieldSize, l.PlotArea, formatArea)
	setInt(models.FieldLivingArea, l.LivingArea, formatArea)
	setInt(models.FieldYearBuilt, l.YearBuilt, strconv.Itoa)
	setString(models.FieldLayout, l.Layout)
	setString(models.FieldInsulation, l.Insulation)
	setString(models.FieldHeating, l.Heating)
	setString(models.FieldExteriors, l.Exteriors)
	setString(models.FieldParking, l.Parking)
	setString(models.FieldNeighborhood, l.Neighborhood)
	setInt(models.FieldLastAskPrice, l.LastAskPrice, formatPrice)
	setInt(models.FieldLastAskPriceM2, l.LastAskPriceM2, formatPrice)

	if l.KindOfHouse != nil {
		raw.Set(models.FieldKindOfHouse, string(*l.KindOfHouse))
	}
	if l.BuildingType != nil {
		raw.Set(models.FieldBuildingType, string(*l.BuildingType))
	}
	if l.EnergyLabel != nil {
		raw.Set(models.FieldEnergyLabel, string(*l.EnergyLabel))
	}
	if l.Ownership != nil {
		raw.Set(models.FieldOwnership, string(*l.Ownership))
	}

	raw.Set(models.FieldNumOfRooms, formatRooms(l.Rooms, l.Bedrooms))
	raw.Set(models.FieldNumOfBathrooms, formatBathrooms(l.Bathrooms, l.Toilets))
	raw.Set(models.FieldZipCode, formatZip(l.Zip, l.City))

	if l.DateListed != nil {
		if dialect == models.DialectArchived {
			raw.Set(models.FieldDateList, formatDate(*l.DateListed))
		} else {
			raw.Set(models.FieldListedSince, formatDate(*l.DateListed))
		}
	}
	if l.Sale != nil && l.Sale.DateSold != nil {
		raw.Set(models.FieldDateSold, formatDate(*l.Sale.DateSold))
	}
	if len(l.Photos) > 0 {
		raw.Set(models.FieldPhoto, strings.Join(l.Photos, ", "))
	}
	return raw
}

func formatPrice(v int) string {
	return "€ " + groupThousands(v)
}

func formatArea(v int) string {
	return groupThousands(v) + " m²"
}

// groupThousands writes v with Dutch thousands separators.
func groupThousands(v int) string {
	s := strconv.Itoa(v)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

func formatRooms(rooms, bedrooms *int) string {
	switch {
	case rooms != nil && bedrooms != nil:
		return fmt.Sprintf("%s (%s)", plural(*rooms, "room"), plural(*bedrooms, "bedroom"))
	case rooms != nil:
		return plural(*rooms, "room")
	case bedrooms != nil:
		return plural(*bedrooms, "bedroom")
	}
	return ""
}

func formatBathrooms(bathrooms, toilets *int) string {
	var parts []string
	if bathrooms != nil {
		parts = append(parts, plural(*bathrooms, "bathroom"))
	}
	if toilets != nil {
		parts = append(parts, plural(*toilets, "separate toilet"))
	}
	return strings.Join(parts, " and ")
}

func formatZip(zip, city *string) string {
	var parts []string
	if zip != nil {
		parts = append(parts, *zip)
	}
	if city != nil {
		parts = append(parts, *city)
	}
	return strings.Join(parts, " ")
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return strconv.Itoa(n) + " " + noun + "s"
}
