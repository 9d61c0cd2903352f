package grading

import (
	"strings"
	"unicode"
)

// NormalizedMatch is the default text matcher: case-insensitive comparison
// after trimming and collapsing internal whitespace.
func NormalizedMatch(submitted, canonical string) bool {
	return normalize(submitted) == normalize(canonical)
}

// ExactMatch compares after trimming only.
func ExactMatch(submitted, canonical string) bool {
	return strings.TrimSpace(submitted) == strings.TrimSpace(canonical)
}

func normalize(s string) string {
	out := make([]rune, 0, len(s))
	space := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			space = true
			continue
		}
		if space && len(out) > 0 {
			out = append(out, ' ')
		}
		space = false
		out = append(out, unicode.ToLower(r))
	}
	return string(out)
}
