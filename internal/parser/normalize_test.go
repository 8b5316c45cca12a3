package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeAmount(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected float64
		ok       bool
	}{
		{
			name:     "Comma decimal",
			input:    "9,09",
			expected: 9.09,
			ok:       true,
		},
		{
			name:     "Period decimal",
			input:    "9.09",
			expected: 9.09,
			ok:       true,
		},
		{
			name:     "Currency and whitespace noise",
			input:    "  9,09 € ",
			expected: 9.09,
			ok:       true,
		},
		{
			name:     "Earlier periods are thousands separators",
			input:    "1.234.56",
			expected: 1234.56,
			ok:       true,
		},
		{
			name:     "Rounds to cents",
			input:    "9,099",
			expected: 9.1,
			ok:       true,
		},
		{
			name:     "Integer amount",
			input:    "12",
			expected: 12.0,
			ok:       true,
		},
		{
			name:  "No digits",
			input: "gratuit",
			ok:    false,
		},
		{
			name:  "Empty",
			input: "",
			ok:    false,
		},
		{
			name:  "Separators only",
			input: ",.",
			ok:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, ok := NormalizeAmount(tt.input)

			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.InDelta(t, tt.expected, v, 0.0001)
			}
		})
	}
}

func TestNormalizeAmountIsSilentOnGarbage(t *testing.T) {
	for _, input := range []string{"€€€", "...", "a,b.c", "   "} {
		_, ok := NormalizeAmount(input)
		assert.False(t, ok, "input %q", input)
	}
}
