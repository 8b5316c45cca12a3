package parser

import (
	"math"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/maxicourses/price-scraper/internal/config"
	"github.com/maxicourses/price-scraper/internal/models"
)

// PriceExtractor recovers a total price, per-unit prices, a quantity, an EAN
// and a bot-wall verdict from one product page. It is a pure computation over
// the page markup: no I/O, no state between calls, safe to share across
// goroutines.
type PriceExtractor struct {
	cfg config.ExtractorConfig

	scriptBlockRe *regexp.Regexp
	styleBlockRe  *regexp.Regexp
	tagRe         *regexp.Regexp
	wsRe          *regexp.Regexp

	ldJSONRe        *regexp.Regexp
	trailingCommaRe *regexp.Regexp

	centsPriceRe     *regexp.Regexp
	keyedPriceRe     *regexp.Regexp
	formattedPriceRe *regexp.Regexp

	amountBeforeEuroRe *regexp.Regexp
	amountAfterEuroRe  *regexp.Regexp
	splitEuroRe        *regexp.Regexp

	perLiterRe *regexp.Regexp
	perKgRe    *regexp.Regexp
	perDoseRe  *regexp.Regexp

	litersRe     *regexp.Regexp
	clRe         *regexp.Regexp
	mlRe         *regexp.Regexp
	kgRe         *regexp.Regexp
	gramsRe      *regexp.Regexp
	doseCountRes []*regexp.Regexp

	dataEANRe *regexp.Regexp
	jsonEANRe *regexp.Regexp
	bareEANRe *regexp.Regexp
}

func NewPriceExtractor(cfg config.ExtractorConfig) *PriceExtractor {
	return &PriceExtractor{
		cfg: cfg,

		scriptBlockRe: regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`),
		styleBlockRe:  regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`),
		tagRe:         regexp.MustCompile(`(?s)<[^>]+>`),
		wsRe:          regexp.MustCompile(`\s+`),

		ldJSONRe:        regexp.MustCompile(`(?is)<script[^>]+type\s*=\s*["']application/ld\+json["'][^>]*>(.*?)</script>`),
		trailingCommaRe: regexp.MustCompile(`,\s*([}\]])`),

		centsPriceRe:     regexp.MustCompile(`(?i)"([a-z0-9_.-]*price[a-z0-9_.-]*incents)"\s*:\s*(\d+)`),
		keyedPriceRe:     regexp.MustCompile(`(?i)"([a-z0-9_.-]*price[a-z0-9_.-]*)"\s*:\s*"([0-9]+(?:[.,][0-9]{1,2})?)(?:\s*€)?"`),
		formattedPriceRe: regexp.MustCompile(`(?i)"formattedprice"\s*:\s*"([^"]{1,32})"`),

		amountBeforeEuroRe: regexp.MustCompile(`([0-9]{1,4}(?:[.,][0-9]{1,2})?)\s*€`),
		amountAfterEuroRe:  regexp.MustCompile(`€\s*([0-9]{1,4}(?:[.,][0-9]{1,2})?)`),
		splitEuroRe:        regexp.MustCompile(`\b([0-9]{1,4})\s*€\s*([0-9]{2})\b`),

		// \b after the unit word keeps "/l" from matching "/lavage".
		perLiterRe: regexp.MustCompile(`(?i)([0-9]+(?:[.,][0-9]{1,2})?)\s*€\s*(?:/|par)\s*(?:litres?|liters?|l)\b`),
		perKgRe:    regexp.MustCompile(`(?i)([0-9]+(?:[.,][0-9]{1,2})?)\s*€\s*(?:/|par)\s*(?:kilogrammes?|kilos?|kg)\b`),
		perDoseRe:  regexp.MustCompile(`(?i)([0-9]+(?:[.,][0-9]{1,2})?)\s*€\s*(?:/|par)\s*(?:doses?|lavages?|capsules?|pods?|tablettes?|dosettes?)\b`),

		litersRe: regexp.MustCompile(`(?i)\b([0-9]+(?:[.,][0-9]{1,3})?)\s*(?:litres?|liters?|l)\b`),
		clRe:     regexp.MustCompile(`(?i)\b([0-9]+(?:[.,][0-9]{1,3})?)\s*cl\b`),
		mlRe:     regexp.MustCompile(`(?i)\b([0-9]+(?:[.,][0-9]{1,3})?)\s*(?:millilitres?|ml)\b`),
		kgRe:     regexp.MustCompile(`(?i)\b([0-9]+(?:[.,][0-9]{1,3})?)\s*(?:kilogrammes?|kilos?|kg)\b`),
		gramsRe:  regexp.MustCompile(`(?i)\b([0-9]+(?:[.,][0-9]{1,3})?)\s*(?:grammes?|g)\b`),
		doseCountRes: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b([0-9]{1,3})\s*(?:doses?|lavages?|capsules?|caps|pods?|tablettes?|dosettes?|pi[eè]ces?|pcs|unit[eé]s?)\b`),
			regexp.MustCompile(`(?i)\b(?:bo[iî]te|pack|lot)\s+de\s+([0-9]{1,3})\b`),
			regexp.MustCompile(`(?i)\bx\s*([0-9]{1,3})\b`),
			regexp.MustCompile(`(?i)\b([0-9]{1,3})\s*x\b`),
		},

		dataEANRe: regexp.MustCompile(`(?i)data-(?:ean|gtin[0-9]*)\s*=\s*["']?([0-9]{8,14})\b`),
		jsonEANRe: regexp.MustCompile(`(?i)"(?:ean|gtin13|gtin14|gtin|barcode)"\s*:\s*"?([0-9]{8,14})\b`),
		bareEANRe: regexp.MustCompile(`\b[0-9]{8,14}\b`),
	}
}

// Extract runs every strategy over the page and arbitrates their candidates
// into one result. Absence of a price or EAN is a valid outcome; the only
// hard signal is the bot-protection flag.
func (p *PriceExtractor) Extract(page models.RawPage, expectedEAN string) models.ExtractionResult {
	doc := p.parseDoc(page.Markup)
	text := p.flatten(page.Markup)
	rule := ruleFor(page.Host)

	sd := p.extractStructured(page.Markup, doc)
	scripts := p.extractFromScripts(page.Markup)
	vis := p.extractVisible(doc, text, rule)

	title := firstNonEmpty(sd.Title, strings.TrimSpace(page.RenderedTitle), vis.Title)

	// Tier precedence: the first strategy with a plausible total claims it.
	var total *float64
	switch {
	case sd.Price != nil:
		total = sd.Price
	case scripts.Total != nil:
		total = scripts.Total
	case vis.Total != nil:
		total = vis.Total
	}

	units := p.reconcile(joinNonEmpty(title, sd.Size), text, scripts)

	// Weight-derived totals are the more trustworthy signal when the chosen
	// total looks like a crossed-out or "from" price. Dose-derived totals are
	// never promoted; dose counts are too unreliable.
	if units.KgTotal != nil && p.plausibleTotal(*units.KgTotal) &&
		(total == nil || rule.TrustPerKg || *total > *units.KgTotal*p.cfg.UnitDominance) {
		total = units.KgTotal
	} else if units.LiterTotal != nil && p.plausibleTotal(*units.LiterTotal) &&
		(total == nil || *total > *units.LiterTotal*p.cfg.UnitDominance) {
		total = units.LiterTotal
	}

	if total == nil {
		total = p.ratioFallback(vis.Raw, units)
	}

	return models.ExtractionResult{
		Title:         title,
		Price:         total,
		Unit:          p.buildSummary(total, units),
		EAN:           p.extractEAN(page, doc, sd.EAN, expectedEAN),
		BotProtection: IsBotWall(page.Markup),
	}
}

// ratioFallback picks a total when no tier produced one: among the visible
// amounts that were not unit-tagged, keep those within a plausible multiple
// of a known per-kg or per-litre price and take the largest.
func (p *PriceExtractor) ratioFallback(amounts []float64, u unitFindings) *float64 {
	var unit, low, high float64
	switch {
	case u.PerKg != nil:
		unit, low, high = *u.PerKg, p.cfg.KgRatioLow, p.cfg.KgRatioHigh
	case u.PerLiter != nil:
		unit, low, high = *u.PerLiter, p.cfg.LiterRatioLow, p.cfg.LiterRatioHigh
	default:
		return nil
	}

	var best *float64
	for _, a := range amounts {
		if a < unit*low || a > unit*high {
			continue
		}
		if best == nil || a > *best {
			v := a
			best = &v
		}
	}
	return best
}

// buildSummary exposes the detected per-unit pairs and back-derives the
// missing side of a pair whenever the total is known, so the summary is never
// inconsistent with a known total.
func (p *PriceExtractor) buildSummary(total *float64, u unitFindings) models.UnitPriceSummary {
	s := models.UnitPriceSummary{
		PerLiter: u.PerLiter,
		Liters:   u.Liters,
		PerKg:    u.PerKg,
		Kg:       u.Kg,
		PerDose:  u.PerDose,
		Doses:    u.Doses,
	}
	if total == nil {
		return s
	}
	t := *total

	if s.PerKg == nil && s.Kg != nil && *s.Kg > 0 {
		if v := round2(t / *s.Kg); p.plausibleUnit(v) {
			s.PerKg = models.Float(v)
		}
	}
	if s.Kg == nil && s.PerKg != nil && *s.PerKg > 0 {
		s.Kg = models.Float(round2(t / *s.PerKg))
	}

	if s.PerLiter == nil && s.Liters != nil && *s.Liters > 0 {
		if v := round2(t / *s.Liters); p.plausibleUnit(v) {
			s.PerLiter = models.Float(v)
		}
	}
	if s.Liters == nil && s.PerLiter != nil && *s.PerLiter > 0 {
		s.Liters = models.Float(round2(t / *s.PerLiter))
	}

	if s.PerDose == nil && s.Doses != nil && *s.Doses > 0 {
		if v := round2(t / float64(*s.Doses)); p.plausibleDose(v) {
			s.PerDose = models.Float(v)
		}
	}
	if s.Doses == nil && s.PerDose != nil && *s.PerDose > 0 {
		if n := int(math.Round(t / *s.PerDose)); n > 0 {
			s.Doses = models.Int(n)
		}
	}

	return s
}

func (p *PriceExtractor) plausibleTotal(v float64) bool {
	return v >= p.cfg.TotalMin && v <= p.cfg.TotalMax
}

func (p *PriceExtractor) plausibleUnit(v float64) bool {
	return v >= p.cfg.PerUnitMin && v <= p.cfg.PerUnitMax
}

func (p *PriceExtractor) plausibleDose(v float64) bool {
	return p.plausibleUnit(v) && v <= p.cfg.PerDoseMax
}

func (p *PriceExtractor) parseDoc(markup string) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil
	}
	return doc
}

// flatten reduces markup to the text a shopper would see: script and style
// bodies removed, tags stripped, entities unescaped, whitespace collapsed.
func (p *PriceExtractor) flatten(markup string) string {
	text := p.scriptBlockRe.ReplaceAllString(markup, " ")
	text = p.styleBlockRe.ReplaceAllString(text, " ")
	text = p.tagRe.ReplaceAllString(text, " ")
	text = unescapeEntities(text)
	text = p.wsRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func joinNonEmpty(values ...string) string {
	var parts []string
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			parts = append(parts, strings.TrimSpace(v))
		}
	}
	return strings.Join(parts, " ")
}
