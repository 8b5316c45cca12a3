package parser

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxicourses/price-scraper/internal/config"
	"github.com/maxicourses/price-scraper/internal/models"
)

func testConfig() config.ExtractorConfig {
	return config.ExtractorConfig{
		TotalMin:       0.20,
		TotalMax:       200.00,
		PerUnitMin:     0.01,
		PerUnitMax:     999.00,
		PerDoseMax:     10.00,
		UnitDominance:  1.18,
		CarouselCutoff: 1.5,
		PackKgMin:      0.05,
		PackKgMax:      5.0,
		KgRatioLow:     0.15,
		KgRatioHigh:    0.95,
		LiterRatioLow:  0.3,
		LiterRatioHigh: 3.2,
		TextScanLimit:  6000,
	}
}

func newTestExtractor() *PriceExtractor {
	return NewPriceExtractor(testConfig())
}

func pageFor(markup, rawURL string) models.RawPage {
	return models.NewRawPage(markup, "", rawURL)
}

func TestExtractIsIdempotent(t *testing.T) {
	extractor := newTestExtractor()
	page := pageFor(
		`<script type="application/ld+json">{"@type":"Product","name":"Lessive Ariel","offers":{"price":"9.09"},"gtin13":"8700216648783"}</script>`,
		"https://www.example.fr/p/123",
	)

	first := extractor.Extract(page, "8700216648783")
	second := extractor.Extract(page, "8700216648783")

	assert.Equal(t, first, second)
}

func TestTotalPlausibilityBands(t *testing.T) {
	extractor := newTestExtractor()

	tests := []struct {
		amount    string
		wantPrice bool
		expected  float64
	}{
		{amount: "0,19", wantPrice: false},
		{amount: "0,20", wantPrice: true, expected: 0.20},
		{amount: "200,00", wantPrice: true, expected: 200.00},
		{amount: "200,01", wantPrice: false},
	}

	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			markup := fmt.Sprintf(`<html><body><p>Prix du produit %s €</p></body></html>`, tt.amount)
			res := extractor.Extract(pageFor(markup, "https://www.example.fr/p"), "")

			if tt.wantPrice {
				require.NotNil(t, res.Price)
				assert.InDelta(t, tt.expected, *res.Price, 0.0001)
			} else {
				assert.Nil(t, res.Price)
			}
		})
	}
}

func TestUnitMarkerExclusion(t *testing.T) {
	extractor := newTestExtractor()
	markup := `<html><body><p>Prix: 1,09 €/dose — en rayon 9,09 €</p></body></html>`

	res := extractor.Extract(pageFor(markup, "https://www.example.fr/p"), "")

	require.NotNil(t, res.Price)
	assert.InDelta(t, 9.09, *res.Price, 0.0001)
	require.NotNil(t, res.Unit.PerDose)
	assert.InDelta(t, 1.09, *res.Unit.PerDose, 0.0001)
}

func TestCrossedOutPriceNextToSalePrice(t *testing.T) {
	extractor := newTestExtractor()
	markup := `<html><body><span>12,50 €</span> <span>19,99 €</span></body></html>`

	res := extractor.Extract(pageFor(markup, "https://www.example.fr/p"), "")

	// The split-euro form must not blend "...50 € 19..." into a phantom
	// 50,19 spanning both amounts.
	require.NotNil(t, res.Price)
	assert.InDelta(t, 19.99, *res.Price, 0.0001)
}

func TestKilogramDominanceOnAuchan(t *testing.T) {
	extractor := newTestExtractor()
	markup := `<html><body>
		<div class="product-price">12,00 € le paquet</div>
		<div>au rayon boucherie 3,00 € / kg</div>
		<div>Poids du paquet 1 kg</div>
	</body></html>`

	res := extractor.Extract(pageFor(markup, "https://www.auchan.fr/p/123"), "")

	require.NotNil(t, res.Price)
	assert.InDelta(t, 3.00, *res.Price, 0.0001)
	require.NotNil(t, res.Unit.PerKg)
	assert.InDelta(t, 3.00, *res.Unit.PerKg, 0.0001)
	require.NotNil(t, res.Unit.Kg)
	assert.InDelta(t, 1.0, *res.Unit.Kg, 0.0001)
}

func TestKilogramDominanceElsewhere(t *testing.T) {
	extractor := newTestExtractor()

	t.Run("Overrides an inflated total", func(t *testing.T) {
		markup := `<html><body>
			<div>12,00 € le paquet promotionnel</div>
			<div>au rayon boucherie 3,00 € / kg</div>
			<div>Poids du paquet 1 kg</div>
		</body></html>`

		res := extractor.Extract(pageFor(markup, "https://www.example.fr/p"), "")

		require.NotNil(t, res.Price)
		assert.InDelta(t, 3.00, *res.Price, 0.0001)
	})

	t.Run("Keeps a consistent total", func(t *testing.T) {
		markup := `<html><body>
			<div>3,20 € le paquet</div>
			<div>au rayon boucherie 3,00 € / kg</div>
			<div>Poids du paquet 1 kg</div>
		</body></html>`

		res := extractor.Extract(pageFor(markup, "https://www.example.fr/p"), "")

		require.NotNil(t, res.Price)
		assert.InDelta(t, 3.20, *res.Price, 0.0001)
	})
}

func TestLiterDominance(t *testing.T) {
	extractor := newTestExtractor()
	markup := `<html><body>
		<div>12,00 € la bouteille en promotion</div>
		<div>contenance de la bouteille 2 l</div>
		<div>prix au litre 3,00 € / l</div>
	</body></html>`

	res := extractor.Extract(pageFor(markup, "https://www.example.fr/p"), "")

	require.NotNil(t, res.Price)
	assert.InDelta(t, 6.00, *res.Price, 0.0001)
	require.NotNil(t, res.Unit.PerLiter)
	assert.InDelta(t, 3.00, *res.Unit.PerLiter, 0.0001)
}

func TestDoseDerivedTotalIsNeverPromoted(t *testing.T) {
	extractor := newTestExtractor()
	markup := `<html><body>
		<div>12,00 € la boite complete</div>
		<div>contient 24 capsules</div>
		<div>soit seulement 0,30 € / dose</div>
	</body></html>`

	res := extractor.Extract(pageFor(markup, "https://www.example.fr/p"), "")

	require.NotNil(t, res.Price)
	assert.InDelta(t, 12.00, *res.Price, 0.0001)
	require.NotNil(t, res.Unit.PerDose)
	assert.InDelta(t, 0.30, *res.Unit.PerDose, 0.0001)
	require.NotNil(t, res.Unit.Doses)
	assert.Equal(t, 24, *res.Unit.Doses)
}

func TestStructuredDataPrecedence(t *testing.T) {
	extractor := newTestExtractor()
	markup := `<html><head>
		<script type="application/ld+json">{"@type":"Product","name":"Produit","offers":{"price":"5.50"}}</script>
		<script>window.__data = {"salePrice": "4,20"};</script>
	</head><body></body></html>`

	res := extractor.Extract(pageFor(markup, "https://www.example.fr/p"), "")

	require.NotNil(t, res.Price)
	assert.InDelta(t, 5.50, *res.Price, 0.0001)
}

func TestUnitSummaryBackDerivation(t *testing.T) {
	extractor := newTestExtractor()

	t.Run("Derives per kg from total and weight", func(t *testing.T) {
		markup := `<html><body>
			<h1>Croquettes pour chien 2 kg</h1>
			<div>10,00 € le sac</div>
		</body></html>`

		res := extractor.Extract(pageFor(markup, "https://www.example.fr/p"), "")

		require.NotNil(t, res.Price)
		assert.InDelta(t, 10.00, *res.Price, 0.0001)
		require.NotNil(t, res.Unit.PerKg)
		assert.InDelta(t, 5.00, *res.Unit.PerKg, 0.0001)
	})

	t.Run("Derives weight from total and per kg", func(t *testing.T) {
		markup := `<html><body>
			<div>10,00 € le sachet fraicheur</div>
			<div>prix au kilo 5,00 € / kg</div>
		</body></html>`

		res := extractor.Extract(pageFor(markup, "https://www.example.fr/p"), "")

		require.NotNil(t, res.Price)
		assert.InDelta(t, 10.00, *res.Price, 0.0001)
		require.NotNil(t, res.Unit.Kg)
		assert.InDelta(t, 2.00, *res.Unit.Kg, 0.0001)
	})
}

func TestBotWallShortCircuit(t *testing.T) {
	extractor := newTestExtractor()
	markup := `<html><body>please enable javascript<p>9,09 €</p></body></html>`

	res := extractor.Extract(pageFor(markup, "https://www.example.fr/p"), "")

	assert.True(t, res.BotProtection)
}

func TestIntermarcheCarouselCutoff(t *testing.T) {
	extractor := newTestExtractor()
	markup := `<html><body>
		<div>Lessive liquide 9,99 € le bidon familial</div>
		<div>Vous aimerez aussi</div>
		<div>Nettoyant multi-usages premium 24,99 € le coffret</div>
	</body></html>`

	t.Run("Applies on intermarche", func(t *testing.T) {
		res := extractor.Extract(pageFor(markup, "https://www.intermarche.fr/p"), "")

		require.NotNil(t, res.Price)
		assert.InDelta(t, 9.99, *res.Price, 0.0001)
	})

	t.Run("Ignored elsewhere", func(t *testing.T) {
		res := extractor.Extract(pageFor(markup, "https://www.example.fr/p"), "")

		require.NotNil(t, res.Price)
		assert.InDelta(t, 24.99, *res.Price, 0.0001)
	})
}

func TestEmbeddedScriptPrefersMinimum(t *testing.T) {
	extractor := newTestExtractor()
	markup := `<html><head>
		<script>window.__state = {"oldPriceInCents": 1299, "priceInCents": 909};</script>
	</head><body></body></html>`

	res := extractor.Extract(pageFor(markup, "https://www.example.fr/p"), "")

	require.NotNil(t, res.Price)
	assert.InDelta(t, 9.09, *res.Price, 0.0001)
}

func TestRatioFallbackFromPerKg(t *testing.T) {
	extractor := newTestExtractor()
	markup := `<html><body>
		<div>prix au kilo 1,00 € / kg</div>
		<div>la portion individuelle 0,18 €</div>
	</body></html>`

	res := extractor.Extract(pageFor(markup, "https://www.example.fr/p"), "")

	require.NotNil(t, res.Price)
	assert.InDelta(t, 0.18, *res.Price, 0.0001)
}

func TestStructuredProductEndToEnd(t *testing.T) {
	extractor := newTestExtractor()
	markup := `<script type="application/ld+json">{"@type":"Product","name":"Lessive Ariel","offers":{"price":"9.09"},"gtin13":"8700216648783"}</script>`
	page := pageFor(markup, "https://www.example.fr/p/123")

	res := extractor.Extract(page, "8700216648783")

	require.NotNil(t, res.Price)
	assert.InDelta(t, 9.09, *res.Price, 0.0001)
	assert.Equal(t, "Lessive Ariel", res.Title)
	assert.Equal(t, "8700216648783", res.EAN)
	assert.False(t, res.BotProtection)

	report := models.BuildReport(&res, page.URL)
	assert.Equal(t, models.StatusOK, report.Status)
	assert.Equal(t, "9,09", report.Price)
	assert.Equal(t, "8700216648783", report.MatchedEAN)
}
