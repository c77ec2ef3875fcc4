package utils

import (
	"strings"
	"unicode"
)

// SplitSymptoms splits a comma separated line into trimmed, non-empty entries.
// Order and duplicates are kept; deduplication happens after matching.
func SplitSymptoms(line string) []string {
	parts := strings.Split(line, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// HasContent reports whether s holds at least one letter or digit.
func HasContent(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
