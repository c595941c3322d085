package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeLogString(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Empty string",
			input:    "",
			expected: "",
		},
		{
			name:     "Normal string",
			input:    "Sprint planning",
			expected: "Sprint planning",
		},
		{
			name:     "Format specifiers are escaped",
			input:    "Booking with %s and %d",
			expected: "Booking with %%s and %%d",
		},
		{
			name:     "Newlines become spaces",
			input:    "First line\nSecond line\r\nThird line",
			expected: "First line Second line Third line",
		},
		{
			name:     "Long input is truncated",
			input:    strings.Repeat("A", 300),
			expected: strings.Repeat("A", MaxLogStringLength) + "... (truncated)",
		},
		{
			name:     "Control characters become spaces",
			input:    "Booking\twith\x00control\x1Fcharacters",
			expected: "Booking with control characters",
		},
		{
			name:     "Markup passes through",
			input:    "Booking <script>alert('hacked!');</script>",
			expected: "Booking <script>alert('hacked!');</script>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeLogString(tt.input))
		})
	}
}
