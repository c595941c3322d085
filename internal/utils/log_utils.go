// Package utils holds small shared helpers
package utils

import (
	"regexp"
	"strings"
	"unicode"
)

// MaxLogStringLength caps user-provided strings in log lines
const MaxLogStringLength = 200

var unprintable = regexp.MustCompile(`[^\p{L}\p{N}\p{P}\p{S}\p{Z}]`)

// SanitizeLogString makes a user-controlled string safe to log: it
// truncates long input, flattens control characters to spaces and escapes
// format specifiers so the value cannot forge log lines.
func SanitizeLogString(input string) string {
	if input == "" {
		return ""
	}

	if len(input) > MaxLogStringLength {
		input = input[:MaxLogStringLength] + "... (truncated)"
	}

	// Collapse CRLF first so it becomes one space, not two
	input = strings.ReplaceAll(input, "\r\n", "\n")

	sanitized := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, input)

	sanitized = strings.ReplaceAll(sanitized, "%", "%%")

	return unprintable.ReplaceAllString(sanitized, "")
}
