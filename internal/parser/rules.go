package parser

import "strings"

// hostRule is a retailer-specific override, keyed by registrable domain.
// Quirks live here as named flags instead of branches inside the extractors.
type hostRule struct {
	// TrustPerKg makes a kg-derived implied total override any other total
	// unconditionally. On auchan the per-kg figure is the reliable signal;
	// the visible total frequently picks up a promotion banner.
	TrustPerKg bool

	// CarouselFirst prefers the first price that appears before a
	// related-products heading when the chosen total is suspiciously larger.
	CarouselFirst bool
}

var hostRules = map[string]hostRule{
	"auchan.fr":      {TrustPerKg: true},
	"intermarche.fr": {CarouselFirst: true},
}

func ruleFor(host string) hostRule {
	host = strings.ToLower(host)
	for domain, rule := range hostRules {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return rule
		}
	}
	return hostRule{}
}
