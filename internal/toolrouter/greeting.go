package toolrouter

import (
	"strings"
	"unicode/utf8"
)

// isGreeting reports whether text needs no tools at all: it is shorter
// than minLen runes after trimming, or it is one of patterns on its own,
// at the start or end of the text, or followed by "!" or ".". Patterns
// must already be trimmed and lowercased.
func isGreeting(text string, patterns []string, minLen int) bool {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) < minLen {
		return true
	}

	lower := strings.ToLower(text)
	for _, p := range patterns {
		switch {
		case lower == p,
			strings.HasPrefix(lower, p+" "),
			strings.HasSuffix(lower, " "+p),
			lower == p+"!",
			lower == p+".":
			return true
		}
	}
	return false
}
