package parser

import (
	"math"
	"strconv"
	"strings"
)

// NormalizeAmount parses a locale-formatted amount ("9,09", "9.09",
// "1 234.56 €") into euros rounded to cents. The boolean is false whenever
// the text does not reduce to a single parseable number; callers probe noisy
// text with this, so failure is silent and expected.
func NormalizeAmount(text string) (float64, bool) {
	var b strings.Builder
	for _, r := range text {
		if (r >= '0' && r <= '9') || r == ',' || r == '.' {
			b.WriteRune(r)
		}
	}
	s := b.String()
	if s == "" {
		return 0, false
	}

	// Periods before the last one are thousands separators.
	if strings.Count(s, ".") > 1 {
		last := strings.LastIndex(s, ".")
		s = strings.ReplaceAll(s[:last], ".", "") + s[last:]
	}
	s = strings.ReplaceAll(s, ",", ".")

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return round2(v), true
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
