package parser

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/aluiziolira/go-scrape-listings/models"
)

var dutchMonths = strings.NewReplacer(
	"januari", "january",
	"februari", "february",
	"maart", "march",
	"mei", "may",
	"juni", "june",
	"juli", "july",
	"augustus", "august",
	"oktober", "october",
	"mrt", "mar",
	"okt", "oct",
)

var weekdays = map[string]time.Weekday{
	"zondag": time.Sunday, "sunday": time.Sunday,
	"maandag": time.Monday, "monday": time.Monday,
	"dinsdag": time.Tuesday, "tuesday": time.Tuesday,
	"woensdag": time.Wednesday, "wednesday": time.Wednesday,
	"donderdag": time.Thursday, "thursday": time.Thursday,
	"vrijdag": time.Friday, "friday": time.Friday,
	"zaterdag": time.Saturday, "saturday": time.Saturday,
}

var unitDays = map[string]int{
	"dag": 1, "dagen": 1, "day": 1, "days": 1,
	"week": 7, "weken": 7, "weeks": 7,
	"maand": 30, "maanden": 30, "month": 30, "months": 30,
	"jaar": 365, "jaren": 365, "year": 365, "years": 365,
}

var (
	relativePattern = regexp.MustCompile(`(\d+)\s*\+?\s*(dagen|dag|days|day|weken|weeks|week|maanden|maand|months|month|jaren|jaar|years|year)\b`)
	embeddedDate    = regexp.MustCompile(`\d{4}-\d{2}-\d{2}|\d{1,2}-\d{1,2}-\d{4}|\d{1,2}\s+[a-z]+\.?\s+\d{4}|[a-z]+\.?\s+\d{1,2},\s*\d{4}`)
)

var dateLayouts = []string{
	"2 January 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"2 Jan. 2006",
	"Jan 2, 2006",
	time.DateOnly,
	"02-01-2006",
	"2-1-2006",
}

// parseDate reads absolute dates in Dutch or English and relative dates
// counted back from today.
func parseDate(s string, today models.Date) (models.Date, bool) {
	lower := clean(strings.ToLower(s))
	if lower == "" {
		return models.Date{}, false
	}
	if d, ok := relativeDate(lower, today); ok {
		return d, true
	}

	text := dutchMonths.Replace(lower)
	if d, ok := absoluteDate(text); ok {
		return d, true
	}
	for _, m := range embeddedDate.FindAllString(text, -1) {
		if d, ok := absoluteDate(m); ok {
			return d, true
		}
	}
	return models.Date{}, false
}

func relativeDate(s string, today models.Date) (models.Date, bool) {
	switch s {
	case "vandaag", "today":
		return today, true
	case "gisteren", "yesterday":
		return daysBack(today, 1), true
	}
	if wd, ok := weekdays[s]; ok {
		back := (int(today.Weekday()) - int(wd) + 7) % 7
		return daysBack(today, back), true
	}
	if m := relativePattern.FindStringSubmatch(s); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return models.Date{}, false
		}
		return daysBack(today, n*unitDays[m[2]]), true
	}
	return models.Date{}, false
}

func absoluteDate(s string) (models.Date, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return models.DateOf(t), true
		}
	}
	return models.Date{}, false
}

func daysBack(today models.Date, n int) models.Date {
	return models.DateOf(today.AddDate(0, 0, -n))
}

func formatDate(d models.Date) string {
	return d.Format("2 January 2006")
}
