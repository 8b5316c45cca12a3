package parser

import (
	"regexp"
	"strconv"

	"github.com/maxicourses/price-scraper/internal/models"
)

// unitFindings is the reconciler's output: the per-unit prices found on the
// page, the pack quantities, and the totals they imply. Implied totals feed
// price arbitration; the rest feeds the unit summary.
type unitFindings struct {
	PerLiter *float64
	PerKg    *float64
	PerDose  *float64

	Liters *float64
	Kg     *float64
	Doses  *int

	LiterTotal *float64
	KgTotal    *float64
	DoseTotal  *float64
}

// reconcile detects per-litre / per-kg / per-dose prices in the page text,
// pairs each with a quantity parsed from the title first (falling back to the
// start of the page text), and computes the totals they imply.
func (p *PriceExtractor) reconcile(title, text string, hints scriptPrices) unitFindings {
	var f unitFindings

	if m := p.perKgRe.FindStringSubmatch(text); m != nil {
		if v, ok := NormalizeAmount(m[1]); ok && p.plausibleUnit(v) {
			f.PerKg = models.Float(v)
		}
	}
	if m := p.perLiterRe.FindStringSubmatch(text); m != nil {
		if v, ok := NormalizeAmount(m[1]); ok && p.plausibleUnit(v) {
			f.PerLiter = models.Float(v)
		}
	}
	if m := p.perDoseRe.FindStringSubmatch(text); m != nil {
		if v, ok := NormalizeAmount(m[1]); ok && p.plausibleDose(v) {
			f.PerDose = models.Float(v)
		}
	}

	// Inline-script unit hints fill in what the visible text did not show.
	if f.PerKg == nil {
		f.PerKg = hints.PerKg
	}
	if f.PerLiter == nil {
		f.PerLiter = hints.PerLiter
	}
	if f.PerDose == nil {
		f.PerDose = hints.PerDose
	}

	window := text
	if len(window) > p.cfg.TextScanLimit {
		window = window[:p.cfg.TextScanLimit]
	}

	if f.Kg = p.kilogramsIn(title); f.Kg == nil {
		f.Kg = p.kilogramsIn(window)
	}
	if f.Liters = p.litersIn(title); f.Liters == nil {
		f.Liters = p.litersIn(window)
	}
	if f.Doses = p.doseCountIn(title); f.Doses == nil {
		f.Doses = p.doseCountIn(window)
	}

	if f.PerKg != nil && f.Kg != nil {
		f.KgTotal = models.Float(round2(*f.PerKg * *f.Kg))
	}
	if f.PerLiter != nil && f.Liters != nil {
		f.LiterTotal = models.Float(round2(*f.PerLiter * *f.Liters))
	}
	if f.PerDose != nil && f.Doses != nil {
		f.DoseTotal = models.Float(round2(*f.PerDose * float64(*f.Doses)))
	}

	return f
}

// kilogramsIn returns the largest plausible pack weight mentioned in the
// text. Taking the largest avoids matching an ingredient sub-quantity
// ("dont 12 g de protéines") instead of the pack weight. Gram mentions are
// converted down.
func (p *PriceExtractor) kilogramsIn(text string) *float64 {
	var best *float64

	keep := func(kg float64) {
		if kg < p.cfg.PackKgMin || kg > p.cfg.PackKgMax {
			return
		}
		if best == nil || kg > *best {
			best = models.Float(kg)
		}
	}

	for _, m := range p.kgRe.FindAllStringSubmatch(text, -1) {
		if v, ok := NormalizeAmount(m[1]); ok {
			keep(v)
		}
	}
	for _, m := range p.gramsRe.FindAllStringSubmatch(text, -1) {
		if v, ok := NormalizeAmount(m[1]); ok {
			keep(v / 1000)
		}
	}
	return best
}

// litersIn returns the first volume mention, converting cl and ml down.
func (p *PriceExtractor) litersIn(text string) *float64 {
	candidates := []struct {
		re    *regexp.Regexp
		scale float64
	}{
		{p.litersRe, 1},
		{p.clRe, 0.01},
		{p.mlRe, 0.001},
	}
	for _, c := range candidates {
		if m := c.re.FindStringSubmatch(text); m != nil {
			if v, ok := NormalizeAmount(m[1]); ok && v > 0 {
				return models.Float(v * c.scale)
			}
		}
	}
	return nil
}

// doseCountIn tries the dose-count surface forms in order of reliability:
// "20 capsules" beats "boîte de 20" beats a bare "x20".
func (p *PriceExtractor) doseCountIn(text string) *int {
	for _, re := range p.doseCountRes {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 || n > 999 {
			continue
		}
		return models.Int(n)
	}
	return nil
}
