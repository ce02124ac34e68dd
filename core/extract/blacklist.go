package extract

import "strings"

// blacklist holds lowercased terms that never name a character. Matching is
// whole-word overlap in either direction, so "Monday Morning" is caught by
// "monday" and "Solomon" is caught by "king solomon". Plain substring
// matching would be too eager here, single-letter pronouns would swallow
// every name containing that letter.
var blacklist = []string{
	// Temporal
	"christmas", "monday", "tuesday", "wednesday", "thursday", "friday",
	"saturday", "sunday", "january", "february", "march", "april", "may",
	"june", "july", "august", "september", "october", "november", "december",
	"today", "tomorrow", "yesterday",

	// Religious and mythological
	"god", "lord", "jesus", "christ", "moses", "magi", "wise men",
	"sheba", "solomon", "king solomon", "queen of sheba",

	// Geographic
	"america", "american", "alabama", "england", "english",

	// Political and military
	"federal", "yankee", "yanks", "confederate", "union",

	// Common false positives
	"dear", "young", "old",

	// Pronouns
	"i", "he", "she", "they", "we", "you",
}

// IsBlacklisted reports whether the name overlaps a blacklisted term at
// word granularity in either direction.
func IsBlacklisted(name string) bool {
	nameLower := strings.ToLower(strings.TrimSpace(name))
	if nameLower == "" {
		return true
	}
	for _, entry := range blacklist {
		if nameLower == entry {
			return true
		}
		if containsWord(nameLower, entry) || containsWord(entry, nameLower) {
			return true
		}
	}
	return false
}

// containsWord reports whether term occurs in text on word boundaries.
func containsWord(text, term string) bool {
	return strings.Contains(" "+text+" ", " "+term+" ")
}
