package parser

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/maxicourses/price-scraper/internal/models"
)

// extractEAN recovers a GTIN/EAN through a layered fallback, first hit wins.
// When the caller already knows which EAN it expects, its verbatim presence
// anywhere in the markup or URL counts as confirmation on its own.
func (p *PriceExtractor) extractEAN(page models.RawPage, doc *goquery.Document, structured, expected string) string {
	if expected != "" && (strings.Contains(page.Markup, expected) || strings.Contains(page.URL, expected)) {
		return expected
	}

	if structured != "" {
		return structured
	}

	if doc != nil {
		sel := doc.Find(`[itemprop="gtin13"], [itemprop="gtin14"], [itemprop="gtin"], [itemprop="ean"]`).First()
		if sel.Length() > 0 {
			v := strings.TrimSpace(sel.AttrOr("content", ""))
			if v == "" {
				v = strings.TrimSpace(sel.Text())
			}
			if isDigitRun(v) {
				return v
			}
		}
	}

	if m := p.dataEANRe.FindStringSubmatch(page.Markup); m != nil {
		return m[1]
	}
	if m := p.jsonEANRe.FindStringSubmatch(page.Markup); m != nil {
		return m[1]
	}

	if u, err := url.Parse(page.URL); err == nil {
		if v := u.Query().Get("ean"); isDigitRun(v) {
			return v
		}
	}

	// Last resort: any bare 8-14 digit run. Noisy, but better than nothing
	// when every structured layer came up empty.
	if m := p.bareEANRe.FindString(page.Markup); m != "" {
		return m
	}

	return ""
}

func isDigitRun(s string) bool {
	if len(s) < 8 || len(s) > 14 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
