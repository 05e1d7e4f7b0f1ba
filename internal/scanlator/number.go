package scanlator

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

var (
	// Prefixes sites put in front of the number. Stripped case-insensitively
	// before the numeric token is extracted.
	numberPrefixRe = regexp.MustCompile(`^(?:chapter|ch\.?|episode|ep\.?|cap[ií]tulo|cap\.?)\s*`)
	numberTokenRe  = regexp.MustCompile(`\d+(?:\.\d+)?`)
)

// ParseNumber extracts a normalized chapter number from raw text.
//
//	"Chapter 42"        -> "42"
//	"Cap. 42.5"         -> "42.5"
//	"Episode 5: Title"  -> "5"
//
// Returns "0" with a warning when no numeric token is present.
func ParseNumber(raw string) string {
	cleaned := numberPrefixRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(raw)), "")

	if m := numberTokenRe.FindString(cleaned); m != "" {
		return m
	}

	logrus.Warnf("[scanlator] could not parse chapter number from %q", raw)
	return "0"
}

// numericValue is the sort key for a chapter number string; unparseable
// numbers sort as 0 so they group at the front deterministically.
func numericValue(number string) float64 {
	v, err := strconv.ParseFloat(number, 64)
	if err != nil {
		return 0
	}
	return v
}
