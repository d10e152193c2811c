package core

import (
	"strings"
	"unicode/utf8"
)

const (
	// DefaultContentLimit caps any single message, in runes, before it is
	// cached or placed in a prompt.
	DefaultContentLimit = 2000

	TruncationMarker = "… [truncated]"
)

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// TruncateContent caps content at limit runes, marker included. A limit of
// zero or less disables the cap.
func TruncateContent(content string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(content) <= limit {
		return content
	}
	markerLen := utf8.RuneCountInString(TruncationMarker)
	if limit <= markerLen {
		return string([]rune(content)[:limit])
	}
	return string([]rune(content)[:limit-markerLen]) + TruncationMarker
}
