package parser

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	amountPattern     = regexp.MustCompile(`\d[\d.,]*`)
	bareNumberPattern = regexp.MustCompile(`^\d[\d.,]*$`)
	areaPattern       = regexp.MustCompile(`(\d[\d.,]*)\s*m(?:²|2)`)
	yearPattern       = regexp.MustCompile(`\b(\d{4})\b`)
	roomsPattern      = regexp.MustCompile(`(\d+)\s*(?:kamers?|rooms?)\b`)
	bedroomsPattern   = regexp.MustCompile(`(\d+)\s*(?:slaapkamers?|bedrooms?)\b`)
	bathroomsPattern  = regexp.MustCompile(`(\d+)\s*(?:badkamers?|bathrooms?|bath rooms?)\b`)
	toiletsPattern    = regexp.MustCompile(`(\d+)\s*(?:(?:aparte?|separate|seperate)\s+)?toilet`)
	postcodePattern   = regexp.MustCompile(`\b(\d{4})\s?([A-Za-z]{2})\b`)
	digitPattern      = regexp.MustCompile(`\d`)
)

// parseAmount reads a number written with Dutch or English thousands
// separators. A trailing group of one or two digits is a decimal part and is
// dropped.
func parseAmount(tok string) (int, bool) {
	tok = strings.TrimRight(tok, ".,")
	if i := strings.LastIndexAny(tok, ".,"); i >= 0 && len(tok)-i-1 != 3 {
		tok = tok[:i]
	}
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, tok)
	if digits == "" {
		return 0, false
	}
	n, err := strconv.Atoi(digits)
	return n, err == nil
}

// parsePrice reads a euro amount such as "€ 1.500 per maand" or
// "€ 350.000 k.k.". Text without a currency marker must be a bare number.
func parsePrice(s string) (int, bool) {
	s = strings.TrimSpace(s)
	lower := strings.ToLower(s)
	if !strings.Contains(s, "€") && !strings.Contains(lower, "eur") {
		if !bareNumberPattern.MatchString(s) {
			return 0, false
		}
	}
	tok := amountPattern.FindString(s)
	if tok == "" {
		return 0, false
	}
	return parseAmount(tok)
}

// parseArea reads "85 m²", "1.250 m2" or a bare number.
func parseArea(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if m := areaPattern.FindStringSubmatch(s); m != nil {
		return parseAmount(m[1])
	}
	if bareNumberPattern.MatchString(s) {
		return parseAmount(s)
	}
	return 0, false
}

// parseYear returns the first plausible four digit year, so "1990-2000"
// yields 1990 and "voor 1906" yields 1906.
func parseYear(s string) (int, bool) {
	for _, m := range yearPattern.FindAllStringSubmatch(s, -1) {
		y, err := strconv.Atoi(m[1])
		if err == nil && y >= 1000 && y <= 2100 {
			return y, true
		}
	}
	return 0, false
}

type roomCounts struct {
	rooms, bedrooms *int
}

// parseRooms reads "4 kamers (3 slaapkamers)" and its English form.
func parseRooms(s string) (roomCounts, bool) {
	lower := strings.ToLower(s)
	out := roomCounts{
		rooms:    firstInt(roomsPattern, lower),
		bedrooms: firstInt(bedroomsPattern, lower),
	}
	if out.rooms == nil && bareNumberPattern.MatchString(strings.TrimSpace(lower)) {
		out.rooms = firstInt(amountPattern, lower)
	}
	return out, out.rooms != nil || out.bedrooms != nil
}

type bathCounts struct {
	bathrooms, toilets *int
}

// parseBathrooms reads "1 badkamer en 1 apart toilet" and its English form.
func parseBathrooms(s string) (bathCounts, bool) {
	lower := strings.ToLower(s)
	out := bathCounts{
		bathrooms: firstInt(bathroomsPattern, lower),
		toilets:   firstInt(toiletsPattern, lower),
	}
	return out, out.bathrooms != nil || out.toilets != nil
}

func firstInt(re *regexp.Regexp, s string) *int {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return nil
	}
	tok := m[0]
	if len(m) > 1 {
		tok = m[1]
	}
	n, err := strconv.Atoi(tok)
	if err != nil {
		return nil
	}
	return &n
}

// parsePostcode returns the canonical "1234 AB" form of the first postcode
// in s and the text following it.
func parsePostcode(s string) (zip, rest string, ok bool) {
	loc := postcodePattern.FindStringSubmatchIndex(s)
	if loc == nil {
		return "", "", false
	}
	zip = s[loc[2]:loc[3]] + " " + strings.ToUpper(s[loc[4]:loc[5]])
	return zip, clean(s[loc[1]:]), true
}

// cityFromText returns the lower-cased city of a "1012 LG Amsterdam" or
// "Amsterdam" style text.
func cityFromText(s string) (string, bool) {
	if _, rest, ok := parsePostcode(s); ok {
		rest = strings.ToLower(rest)
		return rest, rest != ""
	}
	if digitPattern.MatchString(s) {
		return "", false
	}
	city := strings.ToLower(clean(s))
	return city, city != ""
}

// cityFromAddress uses the part after the last comma of an address.
func cityFromAddress(s string) (string, bool) {
	i := strings.LastIndex(s, ",")
	if i < 0 {
		return "", false
	}
	return cityFromText(s[i+1:])
}

// splitPhotos splits the comma joined photo list.
func splitPhotos(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
