package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKilogramsInPicksLargestPlausible(t *testing.T) {
	extractor := newTestExtractor()

	tests := []struct {
		name     string
		text     string
		expected float64
		found    bool
	}{
		{
			name:     "Ingredient sub-quantity loses to pack weight",
			text:     "Riz complet, dont 12 g de protéines, sachet de 1,5 kg",
			expected: 1.5,
			found:    true,
		},
		{
			name:     "Grams converted down",
			text:     "Paquet de 800 g",
			expected: 0.8,
			found:    true,
		},
		{
			name:  "Implausibly heavy mention discarded",
			text:  "Palette de 120 kg",
			found: false,
		},
		{
			name:  "No weight",
			text:  "Liquide vaisselle citron",
			found: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kg := extractor.kilogramsIn(tt.text)

			if !tt.found {
				assert.Nil(t, kg)
				return
			}
			require.NotNil(t, kg)
			assert.InDelta(t, tt.expected, *kg, 0.0001)
		})
	}
}

func TestLitersIn(t *testing.T) {
	extractor := newTestExtractor()

	tests := []struct {
		name     string
		text     string
		expected float64
		found    bool
	}{
		{name: "Liters", text: "Bidon de 1,5 l", expected: 1.5, found: true},
		{name: "Centiliters", text: "Bouteille 75 cl", expected: 0.75, found: true},
		{name: "Milliliters", text: "Flacon 500 ml", expected: 0.5, found: true},
		{name: "No volume", text: "Paquet de riz", found: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := extractor.litersIn(tt.text)

			if !tt.found {
				assert.Nil(t, l)
				return
			}
			require.NotNil(t, l)
			assert.InDelta(t, tt.expected, *l, 0.0001)
		})
	}
}

func TestDoseCountIn(t *testing.T) {
	extractor := newTestExtractor()

	tests := []struct {
		name     string
		text     string
		expected int
		found    bool
	}{
		{name: "Count before unit word", text: "Lessive 20 capsules", expected: 20, found: true},
		{name: "Boxed count", text: "Boîte de 40", expected: 40, found: true},
		{name: "Pack count", text: "Pack de 12", expected: 12, found: true},
		{name: "Multiplier prefix", text: "Pods 3en1 x20", expected: 20, found: true},
		{name: "Multiplier suffix", text: "20 x dosettes", expected: 20, found: true},
		{name: "No count", text: "Lessive liquide", found: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := extractor.doseCountIn(tt.text)

			if !tt.found {
				assert.Nil(t, n)
				return
			}
			require.NotNil(t, n)
			assert.Equal(t, tt.expected, *n)
		})
	}
}

func TestReconcilePairsUnitPriceWithQuantity(t *testing.T) {
	extractor := newTestExtractor()
	text := "Croquettes premium 3,00 € / kg le sac de 2 kg en magasin"

	findings := extractor.reconcile("", text, scriptPrices{})

	require.NotNil(t, findings.PerKg)
	assert.InDelta(t, 3.00, *findings.PerKg, 0.0001)
	require.NotNil(t, findings.Kg)
	assert.InDelta(t, 2.0, *findings.Kg, 0.0001)
	require.NotNil(t, findings.KgTotal)
	assert.InDelta(t, 6.00, *findings.KgTotal, 0.0001)
}

func TestReconcileTitleBeatsPageText(t *testing.T) {
	extractor := newTestExtractor()
	title := "Eau minérale 1,5 l"
	text := "également disponible en 0,5 l et en pack"

	findings := extractor.reconcile(title, text, scriptPrices{})

	require.NotNil(t, findings.Liters)
	assert.InDelta(t, 1.5, *findings.Liters, 0.0001)
}

func TestReconcileUsesScriptHints(t *testing.T) {
	extractor := newTestExtractor()

	findings := extractor.reconcile("Jambon 0,5 kg", "aucun prix affiché", scriptPrices{
		PerKg: floatPtr(4.0),
	})

	require.NotNil(t, findings.PerKg)
	assert.InDelta(t, 4.0, *findings.PerKg, 0.0001)
	require.NotNil(t, findings.KgTotal)
	assert.InDelta(t, 2.00, *findings.KgTotal, 0.0001)
}

func floatPtr(v float64) *float64 { return &v }
