package parser

import (
	"regexp"
	"strings"

	"github.com/aluiziolira/go-scrape-listings/models"
)

var energyLabelPattern = regexp.MustCompile(`^(A\+{0,4}|[B-G])$`)

// parseEnergyLabel returns the first energy class token in s, so
// "C Wat betekent dit?" yields C. A minus suffix maps to the base class.
func parseEnergyLabel(s string) (models.EnergyLabel, bool) {
	for _, tok := range strings.Fields(strings.ToUpper(s)) {
		tok = strings.TrimRight(tok, ",.;:")
		tok = strings.TrimSuffix(tok, "-")
		if energyLabelPattern.MatchString(tok) {
			return models.EnergyLabel(tok), true
		}
	}
	return "", false
}

type keyword[T any] struct {
	value T
	words []string
}

// match returns the value of the first entry with a word contained in s.
func match[T any](table []keyword[T], s string) (T, bool) {
	lower := strings.ToLower(s)
	for _, k := range table {
		if containsAny(lower, k.words...) {
			return k.value, true
		}
	}
	var zero T
	return zero, false
}

var ownershipKeywords = []keyword[models.Ownership]{
	{models.OwnershipLeaseholdBoughtOff, []string{"afgekocht", "bought off", "bought_off", "paid off"}},
	{models.OwnershipFull, []string{"volle eigendom", "full ownership", "full_ownership"}},
	{models.OwnershipLeasehold, []string{"erfpacht", "leasehold", "ground lease"}},
}

func parseOwnership(s string) (models.Ownership, bool) {
	if strings.EqualFold(clean(s), "eigendom") {
		return models.OwnershipFull, true
	}
	return match(ownershipKeywords, s)
}

// kindKeywords is ordered; "bovenwoning in herenhuis" is an apartment.
var kindKeywords = []keyword[models.KindOfHouse]{
	{models.KindApartment, []string{"appartement", "apartment", "bovenwoning", "benedenwoning", "portiekflat", "galerijflat", "maisonnette", "penthouse", "flat"}},
	{models.KindHouseboat, []string{"woonboot", "houseboat"}},
	{models.KindFarmhouse, []string{"boerderij", "farmhouse"}},
	{models.KindBungalow, []string{"bungalow"}},
	{models.KindVilla, []string{"villa"}},
	{models.KindMansion, []string{"herenhuis", "grachtenpand", "mansion", "canal house"}},
	{models.KindCountryHouse, []string{"landhuis", "landgoed", "country house", "country_house"}},
	{models.KindSingleFamily, []string{"eengezinswoning", "single-family", "single family", "single_family", "tussenwoning", "hoekwoning", "twee-onder-een-kap", "vrijstaande woning", "woonhuis", "detached", "terraced", "corner house"}},
}

func parseKindOfHouse(s string) (models.KindOfHouse, bool) {
	return match(kindKeywords, s)
}

var buildingKeywords = []keyword[models.BuildingType]{
	{models.BuildingNewBuild, []string{"nieuwbouw", "new build", "new_build", "new construction", "newly built"}},
	{models.BuildingResale, []string{"bestaande bouw", "resale", "existing"}},
}

func parseBuildingType(s string) (models.BuildingType, bool) {
	return match(buildingKeywords, s)
}

// exteriorFeatures reports balcony and garden presence mentioned in an
// exteriors description.
func exteriorFeatures(s string) (balcony, garden bool) {
	lower := strings.ToLower(s)
	balcony = containsAny(lower, "balkon", "balcony", "dakterras", "roof terrace")
	garden = containsAny(lower, "tuin", "garden")
	return balcony, garden
}
