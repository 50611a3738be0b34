// Package strings holds small text helpers for log output.
package strings

import (
	"strings"
)

// MinLineLen is the smallest maxLen SingleLine honours; anything shorter
// would not leave room for content plus "...".
const MinLineLen = 4

// SingleLine collapses all whitespace runs (including newlines) in s into
// single spaces and cuts the result to maxLen runes, ending it with "..."
// when something was cut. API error bodies are often multi-line JSON, which
// breaks line-oriented log readers.
func SingleLine(s string, maxLen int) string {
	if maxLen < MinLineLen {
		maxLen = MinLineLen
	}

	s = strings.Join(strings.Fields(s), " ")

	runes := []rune(s)
	if len(runes) > maxLen {
		return string(runes[:maxLen-3]) + "..."
	}
	return s
}
