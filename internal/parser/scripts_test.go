package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractFromScripts(t *testing.T) {
	extractor := newTestExtractor()

	tests := []struct {
		name      string
		markup    string
		wantTotal float64
		hasTotal  bool
	}{
		{
			name:      "Cents integer key",
			markup:    `<script>{"priceInCents": 909}</script>`,
			wantTotal: 9.09,
			hasTotal:  true,
		},
		{
			name:      "Quoted decimal key",
			markup:    `<script>{"sellingPrice": "9,09"}</script>`,
			wantTotal: 9.09,
			hasTotal:  true,
		},
		{
			name:      "Formatted price",
			markup:    `<script>{"formattedPrice": "9,09 €"}</script>`,
			wantTotal: 9.09,
			hasTotal:  true,
		},
		{
			name:      "Minimum wins over crossed-out price",
			markup:    `<script>{"wasPriceInCents": 1499, "priceInCents": 909, "recommendedPrice": "12,99"}</script>`,
			wantTotal: 9.09,
			hasTotal:  true,
		},
		{
			name:     "Unit-hinted keys never become totals",
			markup:   `<script>{"pricePerKilo": "3,03", "unitPrice": "1,09"}</script>`,
			hasTotal: false,
		},
		{
			name:     "Implausible values discarded",
			markup:   `<script>{"priceInCents": 5}</script>`,
			hasTotal: false,
		},
		{
			name:     "No price keys",
			markup:   `<script>{"quantity": 3}</script>`,
			hasTotal: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := extractor.extractFromScripts(tt.markup)

			if tt.hasTotal {
				require.NotNil(t, out.Total)
				assert.InDelta(t, tt.wantTotal, *out.Total, 0.0001)
			} else {
				assert.Nil(t, out.Total)
			}
		})
	}
}

func TestExtractFromScriptsRoutesUnitHints(t *testing.T) {
	extractor := newTestExtractor()
	markup := `<script>{"pricePerKilo": "3,03", "pricePerLitre": "1,80", "priceDose": "0,45"}</script>`

	out := extractor.extractFromScripts(markup)

	assert.Nil(t, out.Total)
	require.NotNil(t, out.PerKg)
	assert.InDelta(t, 3.03, *out.PerKg, 0.0001)
	require.NotNil(t, out.PerLiter)
	assert.InDelta(t, 1.80, *out.PerLiter, 0.0001)
	require.NotNil(t, out.PerDose)
	assert.InDelta(t, 0.45, *out.PerDose, 0.0001)
}

func TestExtractFromScriptsFormattedUnitPrice(t *testing.T) {
	extractor := newTestExtractor()
	markup := `<script>{"formattedPrice": "3,00 € / kg"}</script>`

	out := extractor.extractFromScripts(markup)

	assert.Nil(t, out.Total)
	require.NotNil(t, out.PerKg)
	assert.InDelta(t, 3.00, *out.PerKg, 0.0001)
}

func TestExtractFromScriptsFormattedDosePrice(t *testing.T) {
	extractor := newTestExtractor()

	// "par lavage" squeezes to "parlavage", which contains "parl"; the dose
	// markers must win before the litre check sees it.
	tests := []struct {
		name   string
		markup string
	}{
		{name: "Per wash", markup: `<script>{"formattedPrice": "0,35 € par lavage"}</script>`},
		{name: "Per wash slash form", markup: `<script>{"formattedPrice": "0,35 €/lavage"}</script>`},
		{name: "Per capsule", markup: `<script>{"formattedPrice": "0,35 € par capsule"}</script>`},
		{name: "Per dosette", markup: `<script>{"formattedPrice": "0,35 € / dosette"}</script>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := extractor.extractFromScripts(tt.markup)

			assert.Nil(t, out.Total)
			assert.Nil(t, out.PerLiter)
			require.NotNil(t, out.PerDose)
			assert.InDelta(t, 0.35, *out.PerDose, 0.0001)
		})
	}
}
