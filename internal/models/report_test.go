package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "9,09", FormatAmount(9.09))
	assert.Equal(t, "3,00", FormatAmount(3.0))
	assert.Equal(t, "0,20", FormatAmount(0.2))
	assert.Equal(t, "200,00", FormatAmount(200))
}

func TestBuildReport(t *testing.T) {
	t.Run("Price found", func(t *testing.T) {
		res := ExtractionResult{
			Title: "Lessive Ariel",
			Price: Float(9.09),
			EAN:   "8700216648783",
			Unit: UnitPriceSummary{
				PerKg: Float(3.0),
				Kg:    Float(3.03),
			},
		}

		rep := BuildReport(&res, "https://www.example.fr/p")

		assert.Equal(t, StatusOK, rep.Status)
		assert.Equal(t, "9,09", rep.Price)
		assert.Equal(t, "3,00 € / KG", rep.UnitPrice)
		assert.Equal(t, "3.03 KG", rep.Quantity)
		assert.Equal(t, "Lessive Ariel", rep.Title)
		assert.Equal(t, "8700216648783", rep.MatchedEAN)
		assert.Equal(t, "https://www.example.fr/p", rep.URL)
	})

	t.Run("No price", func(t *testing.T) {
		res := ExtractionResult{Title: "Produit"}

		rep := BuildReport(&res, "https://www.example.fr/p")

		assert.Equal(t, StatusNoPrice, rep.Status)
		assert.Empty(t, rep.Price)
	})

	t.Run("Bot wall noted", func(t *testing.T) {
		res := ExtractionResult{BotProtection: true}

		rep := BuildReport(&res, "https://www.example.fr/p")

		assert.Equal(t, StatusNoPrice, rep.Status)
		assert.Equal(t, "bot protection detected", rep.Note)
	})

	t.Run("Per liter takes display precedence", func(t *testing.T) {
		res := ExtractionResult{
			Price: Float(6.0),
			Unit: UnitPriceSummary{
				PerLiter: Float(3.0),
				Liters:   Float(2.0),
				PerKg:    Float(4.0),
			},
		}

		rep := BuildReport(&res, "")

		assert.Equal(t, "3,00 € / L", rep.UnitPrice)
		assert.Equal(t, "2 L", rep.Quantity)
	})

	t.Run("Dose display", func(t *testing.T) {
		res := ExtractionResult{
			Price: Float(12.0),
			Unit: UnitPriceSummary{
				PerDose: Float(0.30),
				Doses:   Int(24),
			},
		}

		rep := BuildReport(&res, "")

		assert.Equal(t, "0,30 € / DOSE", rep.UnitPrice)
		assert.Equal(t, "24 DOSES", rep.Quantity)
	})
}
