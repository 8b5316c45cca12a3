package parser

import (
	"strconv"
	"strings"

	"github.com/maxicourses/price-scraper/internal/models"
)

// scriptPrices is what the inline-script scan yielded: at most one total and
// one price per unit kind. The total is the smallest plausible match because
// inline payloads routinely carry higher "from" and crossed-out prices next
// to the sale price.
type scriptPrices struct {
	Total    *float64
	PerKg    *float64
	PerLiter *float64
	PerDose  *float64
}

// Keys containing any of these route the match away from the total slot.
var unitHintKeys = []string{"unit", "per", "kilo", "kg", "litre", "liter", "dose", "lavage"}

// extractFromScripts scans raw markup (not the parsed DOM) for price-shaped
// key/value tokens inside inline application scripts.
func (p *PriceExtractor) extractFromScripts(markup string) scriptPrices {
	var out scriptPrices

	consider := func(key string, amount float64) {
		lower := strings.ToLower(key)
		switch {
		case strings.Contains(lower, "kilo") || strings.Contains(lower, "kg"):
			if out.PerKg == nil && p.plausibleUnit(amount) {
				out.PerKg = models.Float(amount)
			}
		case strings.Contains(lower, "litre") || strings.Contains(lower, "liter"):
			if out.PerLiter == nil && p.plausibleUnit(amount) {
				out.PerLiter = models.Float(amount)
			}
		case strings.Contains(lower, "dose") || strings.Contains(lower, "lavage"):
			if out.PerDose == nil && p.plausibleDose(amount) {
				out.PerDose = models.Float(amount)
			}
		case strings.Contains(lower, "unit") || strings.Contains(lower, "per"):
			// Per-unit of an unknown denomination: excluded from the total
			// slot, nothing else to do with it.
		default:
			if p.plausibleTotal(amount) && (out.Total == nil || amount < *out.Total) {
				out.Total = models.Float(amount)
			}
		}
	}

	for _, m := range p.centsPriceRe.FindAllStringSubmatch(markup, -1) {
		cents, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		consider(strings.TrimSuffix(strings.ToLower(m[1]), "incents"), round2(float64(cents)/100))
	}

	for _, m := range p.keyedPriceRe.FindAllStringSubmatch(markup, -1) {
		if v, ok := NormalizeAmount(m[2]); ok {
			consider(m[1], v)
		}
	}

	for _, m := range p.formattedPriceRe.FindAllStringSubmatch(markup, -1) {
		v, ok := NormalizeAmount(m[1])
		if !ok {
			continue
		}
		// formattedPrice values carry their unit in the text, not the key.
		consider("formattedPrice"+unitSuffix(m[1]), v)
	}

	return out
}

// Dose denominations in squeezed form. Checked before the litre markers
// because "parlavage" and "/lavage" would otherwise satisfy "parl" / "/l".
var doseSuffixMarkers = []string{
	"/dose", "pardose",
	"/lavage", "parlavage",
	"/capsule", "parcapsule",
	"/dosette", "pardosette",
	"/pod", "parpod",
	"/tablette", "partablette",
}

// unitSuffix maps a formatted price's trailing text onto the same key hints
// consider() already understands. Spaces are squeezed so "€ / kg" and "€/kg"
// classify alike.
func unitSuffix(value string) string {
	squeezed := strings.ReplaceAll(strings.ToLower(value), " ", "")
	switch {
	case strings.Contains(squeezed, "/kg") || strings.Contains(squeezed, "parkg"):
		return "PerKg"
	case containsAny(squeezed, doseSuffixMarkers):
		return "PerDose"
	case strings.Contains(squeezed, "/l") || strings.Contains(squeezed, "parl"):
		return "PerLitre"
	}
	return ""
}

func containsAny(s string, markers []string) bool {
	for _, marker := range markers {
		if strings.Contains(s, marker) {
			return true
		}
	}
	return false
}
