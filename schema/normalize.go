package schema

import "strings"

// FirstLine reduces a value to its first line with surrounding whitespace
// trimmed. Tool arguments arriving from assistants occasionally carry stray
// newlines; only the first line is meaningful.
func FirstLine(value string) string {
	if idx := strings.IndexAny(value, "\r\n"); idx >= 0 {
		value = value[:idx]
	}
	return strings.TrimSpace(value)
}
