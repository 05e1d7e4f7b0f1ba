package scanlator

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var relativeRe = regexp.MustCompile(`(\d+)\s+(second|minute|hour|day|week|month|year)s?\s+ago`)

// Absolute formats seen across scanlation sites, tried in order.
var dateLayouts = []string{
	"Jan 2, 2006",
	"January 2, 2006",
	"January 2 2006",
	"2006-01-02",
	"02/01/2006",
	"01/02/2006",
}

// ParseDate turns a site-reported date string into a time. The parser is
// layered: relative forms first, then today/yesterday, then the absolute
// layout list. It never fails; unparseable input yields the current time.
func ParseDate(raw string) time.Time {
	return ParseDateAt(raw, time.Now())
}

// ParseDateAt is ParseDate against an explicit reference time.
func ParseDateAt(raw string, now time.Time) time.Time {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return now
	}

	if strings.Contains(raw, "ago") {
		if m := relativeRe.FindStringSubmatch(raw); m != nil {
			amount, _ := strconv.Atoi(m[1])
			switch m[2] {
			case "second":
				return now.Add(-time.Duration(amount) * time.Second)
			case "minute":
				return now.Add(-time.Duration(amount) * time.Minute)
			case "hour":
				return now.Add(-time.Duration(amount) * time.Hour)
			case "day":
				return now.AddDate(0, 0, -amount)
			case "week":
				return now.AddDate(0, 0, -7*amount)
			case "month":
				return now.AddDate(0, -amount, 0)
			case "year":
				return now.AddDate(-amount, 0, 0)
			}
		}
	}

	if strings.Contains(raw, "yesterday") {
		return now.AddDate(0, 0, -1)
	}
	if strings.Contains(raw, "today") || strings.Contains(raw, "just now") {
		return now
	}

	// Layouts expect title-cased month names; the input was lowercased above.
	titled := titleWords(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, titled); err == nil {
			return t
		}
	}

	return now
}

// titleWords uppercases the first letter of each space-separated word. Month
// names in date strings are ASCII, so a byte-level cap is enough here.
func titleWords(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		if w[0] >= 'a' && w[0] <= 'z' {
			words[i] = string(w[0]-'a'+'A') + w[1:]
		}
	}
	return strings.Join(words, " ")
}
