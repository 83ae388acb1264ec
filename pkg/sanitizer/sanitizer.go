package sanitizer

import (
	"strings"
	"unicode"
)

// TrimAndNormalize collapses internal whitespace runs and trims the ends.
func TrimAndNormalize(s string) string {
	s = strings.TrimSpace(s)

	if s == "" {
		return ""
	}

	var result strings.Builder
	var lastWasSpace bool

	for _, r := range s {
		if unicode.IsSpace(r) {
			if !lastWasSpace {
				result.WriteRune(' ')
				lastWasSpace = true
			}
		} else {
			result.WriteRune(r)
			lastWasSpace = false
		}
	}

	return result.String()
}

// NormalizeReason cleans a free-text cancellation reason.
func NormalizeReason(reason string) string {
	return TrimAndNormalize(reason)
}
