package parser

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/maxicourses/price-scraper/internal/models"
)

// structuredData is what a page's schema.org Product blocks yielded. Every
// field is independently optional; a malformed block contributes nothing.
type structuredData struct {
	Title string
	Price *float64
	EAN   string
	Size  string
}

// extractStructured collects every JSON-LD block, both by regex over the raw
// markup and by selector over the parsed document, and walks each tree for
// Product records. Trailing commas before closing braces are tolerated; they
// are a common minifier artifact on these sites.
func (p *PriceExtractor) extractStructured(markup string, doc *goquery.Document) structuredData {
	var blocks []string
	for _, m := range p.ldJSONRe.FindAllStringSubmatch(markup, -1) {
		blocks = append(blocks, m[1])
	}
	if doc != nil {
		doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
			blocks = append(blocks, s.Text())
		})
	}

	var sd structuredData
	for _, raw := range blocks {
		cleaned := p.trailingCommaRe.ReplaceAllString(raw, "$1")

		var tree any
		if err := json.Unmarshal([]byte(cleaned), &tree); err != nil {
			continue
		}

		for _, product := range productNodes(tree) {
			if sd.Title == "" {
				sd.Title = stringField(product, "name")
			}
			if sd.Price == nil {
				if v, ok := offersPrice(product); ok && p.plausibleTotal(v) {
					sd.Price = models.Float(v)
				}
			}
			if sd.EAN == "" {
				sd.EAN = gtinField(product)
			}
			if sd.Size == "" {
				sd.Size = firstNonEmpty(quantityField(product, "size"), quantityField(product, "weight"))
			}
		}

		if sd.Price != nil && sd.EAN != "" && sd.Title != "" {
			break
		}
	}
	return sd
}

// productNodes walks the tree depth-first and returns every object declaring
// @type Product, in a deterministic order.
func productNodes(tree any) []map[string]any {
	var products []map[string]any
	walkTree(tree, func(m map[string]any) {
		if isProductType(m["@type"]) {
			products = append(products, m)
		}
	})
	return products
}

// walkTree visits maps in sorted-key order so extraction stays deterministic
// across runs of the same page.
func walkTree(node any, visit func(map[string]any)) {
	switch n := node.(type) {
	case map[string]any:
		visit(n)
		keys := make([]string, 0, len(n))
		for k := range n {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			walkTree(n[k], visit)
		}
	case []any:
		for _, item := range n {
			walkTree(item, visit)
		}
	}
}

func isProductType(v any) bool {
	switch t := v.(type) {
	case string:
		return strings.EqualFold(t, "Product")
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok && strings.EqualFold(s, "Product") {
				return true
			}
		}
	}
	return false
}

// offersPrice finds the first price inside the product's offers, directly or
// behind a priceSpecification. First match wins; no cheapest/dearest
// preference.
func offersPrice(product map[string]any) (float64, bool) {
	offers, ok := product["offers"]
	if !ok {
		return 0, false
	}
	return priceIn(offers)
}

func priceIn(node any) (float64, bool) {
	switch n := node.(type) {
	case map[string]any:
		if v, ok := amountValue(n["price"]); ok {
			return v, true
		}
		if spec, ok := n["priceSpecification"]; ok {
			if v, ok := priceIn(spec); ok {
				return v, true
			}
		}
		if sub, ok := n["offers"]; ok {
			if v, ok := priceIn(sub); ok {
				return v, true
			}
		}
	case []any:
		for _, item := range n {
			if v, ok := priceIn(item); ok {
				return v, true
			}
		}
	}
	return 0, false
}

func amountValue(v any) (float64, bool) {
	switch a := v.(type) {
	case float64:
		if a < 0 {
			return 0, false
		}
		return round2(a), true
	case string:
		return NormalizeAmount(a)
	}
	return 0, false
}

func gtinField(product map[string]any) string {
	for _, key := range []string{"gtin13", "gtin14", "gtin", "ean"} {
		switch v := product[key].(type) {
		case string:
			if s := strings.TrimSpace(v); isDigitRun(s) {
				return s
			}
		case float64:
			return fmt.Sprintf("%.0f", v)
		}
	}
	return ""
}

func stringField(m map[string]any, key string) string {
	if s, ok := m[key].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

// quantityField reads a size/weight field that may be a plain string or a
// schema.org QuantitativeValue object.
func quantityField(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case map[string]any:
		value := v["value"]
		unit := firstNonEmpty(stringField(v, "unitText"), stringField(v, "unitCode"))
		switch val := value.(type) {
		case float64:
			return strings.TrimSpace(fmt.Sprintf("%v %s", val, unit))
		case string:
			return strings.TrimSpace(val + " " + unit)
		}
	}
	return ""
}
