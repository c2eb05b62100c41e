// Package learning implements the entity-scoped store of confirmed
// description-to-classification mappings.
package learning

import (
	"regexp"
	"strings"
)

var (
	// Dates printed inline in descriptions, e.g. "VISA 14/03/25".
	datePattern = regexp.MustCompile(`\d{2}/\d{2}/\d{2,4}`)
	// Long digit runs are receipt/reference numbers that vary per
	// occurrence but not per semantic category.
	referencePattern  = regexp.MustCompile(`\b\d{6,}\b`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// Normalize reduces a transaction description to its stable pattern key:
// dates and reference numbers stripped, whitespace collapsed, uppercased.
// Normalizing an already-normalized string is a no-op.
func Normalize(description string) string {
	s := datePattern.ReplaceAllString(description, "")
	s = referencePattern.ReplaceAllString(s, "")
	s = whitespacePattern.ReplaceAllString(s, " ")
	return strings.ToUpper(strings.TrimSpace(s))
}
