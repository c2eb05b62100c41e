package parser

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var monthNumbers = map[string]time.Month{
	"JAN": time.January, "FEB": time.February, "MAR": time.March,
	"APR": time.April, "MAY": time.May, "JUN": time.June,
	"JUL": time.July, "AUG": time.August, "SEP": time.September,
	"OCT": time.October, "NOV": time.November, "DEC": time.December,
}

// parseAmount converts a statement amount string like "9,109.45" or
// "$1,234.00" to a decimal.
func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimPrefix(s, "$")
	s = strings.TrimPrefix(s, "+")

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return d, nil
}

// monthNamed resolves a three-letter month abbreviation in any case.
func monthNamed(name string) (time.Month, bool) {
	m, ok := monthNumbers[strings.ToUpper(name)]
	return m, ok
}

// dayMonthDate builds a date from a "DD Mon" fragment plus the statement
// year carried from the header or a year marker row.
func dayMonthDate(day int, monthName, year string) (time.Time, error) {
	month, ok := monthNamed(monthName)
	if !ok {
		return time.Time{}, fmt.Errorf("unknown month %q", monthName)
	}
	var y int
	if _, err := fmt.Sscanf(year, "%d", &y); err != nil {
		return time.Time{}, fmt.Errorf("invalid year %q: %w", year, err)
	}
	return time.Date(y, month, day, 0, 0, 0, 0, time.UTC), nil
}

// statementDateLayouts are tried in order when parsing full dates.
var statementDateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"2/1/2006",
	"02/01/06",
	"2 Jan 2006",
	"02 Jan 2006",
	"2 January 2006",
}

// ParsePeriodDate parses a statement period boundary captured by a
// header parser.
func ParsePeriodDate(s string) (time.Time, error) {
	return parseFullDate(s)
}

// parseFullDate tries the common Australian statement date layouts.
func parseFullDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range statementDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}
