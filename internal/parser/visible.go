package parser

import (
	"html"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/maxicourses/price-scraper/internal/models"
)

// visibleFindings is what the plain-text scan yielded. Raw keeps every
// amount that survived the unit-marker exclusion, in document order, for the
// orchestrator's last-resort ratio scan.
type visibleFindings struct {
	Title string
	Total *float64
	Raw   []float64
}

// A currency amount immediately followed by one of these within a short
// window is a per-unit price, not a total. Without this exclusion
// "1,09 €/dose" is indistinguishable from a total of 1,09 €.
var unitMarkers = []string{"/kg", "par kg", "/l", "par l", "/dose", "par dose"}

const unitMarkerWindow = 12

// Carousel headings that mark the start of a related-products section on
// intermarche pages. The genuine price always appears before them.
var carouselMarkers = []string{
	"vous aimerez aussi",
	"produits similaires",
	"ils achètent aussi",
	"vous pourriez aussi aimer",
}

type posAmount struct {
	pos int
	val float64
}

// extractVisible scans the flattened page text plus price-styled elements and
// keeps the largest plausible amount: small per-unit mentions that slipped
// past the marker filter lose to the full pack price.
func (p *PriceExtractor) extractVisible(doc *goquery.Document, text string, rule hostRule) visibleFindings {
	var f visibleFindings

	positioned := p.positionedAmounts(text)
	for _, a := range positioned {
		f.Raw = append(f.Raw, a.val)
	}

	if doc != nil {
		f.Title = firstNonEmpty(doc.Find("h1").First().Text(), doc.Find("title").First().Text())

		if content, ok := doc.Find(`meta[itemprop="price"]`).Attr("content"); ok {
			if v, ok := NormalizeAmount(content); ok {
				f.Raw = append(f.Raw, v)
			}
		}

		doc.Find("[class]").Each(func(_ int, s *goquery.Selection) {
			class, _ := s.Attr("class")
			lower := strings.ToLower(class)
			if !strings.Contains(lower, "price") && !strings.Contains(lower, "prix") {
				return
			}
			for _, a := range p.positionedAmounts(collapseSpace(s.Text())) {
				f.Raw = append(f.Raw, a.val)
			}
		})
	}

	var total *float64
	for _, v := range f.Raw {
		if !p.plausibleTotal(v) {
			continue
		}
		if total == nil || v > *total {
			total = models.Float(v)
		}
	}

	if total != nil && rule.CarouselFirst {
		if first, ok := firstAmountBeforeCarousel(text, positioned); ok &&
			p.plausibleTotal(first) && *total > first*p.cfg.CarouselCutoff {
			total = models.Float(first)
		}
	}

	f.Total = total
	return f
}

// positionedAmounts finds every "9,09 €" / "€ 9,09" / "9 € 09" occurrence in
// the text, drops the ones tagged as per-unit, and returns them ordered by
// position.
func (p *PriceExtractor) positionedAmounts(text string) []posAmount {
	var out []posAmount

	add := func(pos, end int, raw string) {
		if p.unitTagged(text, end) {
			return
		}
		if v, ok := NormalizeAmount(raw); ok && v > 0 {
			out = append(out, posAmount{pos: pos, val: v})
		}
	}

	for _, idx := range p.amountBeforeEuroRe.FindAllStringSubmatchIndex(text, -1) {
		add(idx[0], idx[1], text[idx[2]:idx[3]])
	}
	for _, idx := range p.amountAfterEuroRe.FindAllStringSubmatchIndex(text, -1) {
		add(idx[0], idx[1], text[idx[2]:idx[3]])
	}
	for _, idx := range p.splitEuroRe.FindAllStringSubmatchIndex(text, -1) {
		if splitSpansTwoAmounts(text, idx) {
			continue
		}
		add(idx[0], idx[1], text[idx[2]:idx[3]]+","+text[idx[4]:idx[5]])
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].pos < out[j].pos })
	return out
}

// splitSpansTwoAmounts reports whether a split-form match ("9 € 09") is
// really a fragment straddling two adjacent decimal prices in flattened text:
// in "12,50 € 19,99 €" the pattern would otherwise read "50 € 19" as 50,19.
// The match is bogus when its euros group is the fractional part of a
// preceding amount, or its cents group is the integer part of a following one.
func splitSpansTwoAmounts(text string, idx []int) bool {
	start, end := idx[2], idx[5]
	if start >= 2 && (text[start-1] == ',' || text[start-1] == '.') && isDigitByte(text[start-2]) {
		return true
	}
	if end+1 < len(text) && (text[end] == ',' || text[end] == '.') && isDigitByte(text[end+1]) {
		return true
	}
	return false
}

func isDigitByte(b byte) bool {
	return b >= '0' && b <= '9'
}

func (p *PriceExtractor) unitTagged(text string, end int) bool {
	tail := text[end:min(end+unitMarkerWindow, len(text))]
	// Compare without spaces so "€ / kg" and "€/kg" are tagged alike.
	squeezed := strings.ReplaceAll(strings.ToLower(tail), " ", "")
	for _, marker := range unitMarkers {
		if strings.Contains(squeezed, strings.ReplaceAll(marker, " ", "")) {
			return true
		}
	}
	return false
}

// firstAmountBeforeCarousel returns the first visible amount that precedes
// the earliest related-products heading.
func firstAmountBeforeCarousel(text string, amounts []posAmount) (float64, bool) {
	lower := strings.ToLower(text)
	cut := -1
	for _, marker := range carouselMarkers {
		if idx := strings.Index(lower, marker); idx >= 0 && (cut < 0 || idx < cut) {
			cut = idx
		}
	}
	if cut < 0 {
		return 0, false
	}
	for _, a := range amounts {
		if a.pos < cut {
			return a.val, true
		}
	}
	return 0, false
}

func unescapeEntities(s string) string {
	return html.UnescapeString(s)
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
