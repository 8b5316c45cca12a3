package parser

import "strings"

// Markers observed across the anti-bot vendors the French retailers use
// (DataDome, Distil, Akamai, Cloudflare). Matching is plain lower-cased
// substring containment, so every marker must be challenge-specific: bare
// vendor names are out, ordinary pages load assets from those CDNs. Akamai
// denials surface through their "access denied" / "request unsuccessful"
// pages; Cloudflare through cf-chl-bypass, the challenge-platform path and
// "one more step". Callers that only need one re-render retry upstream.
var botWallMarkers = []string{
	"captcha-delivery.com",
	"enable javascript",
	"please enable javascript",
	"pardon the interruption",
	"access denied",
	"request unsuccessful",
	"are you a human",
	"distil_r_captcha",
	"bot detection",
	"cf-chl-bypass",
	"unusual traffic",
	"one more step",
	"/cdn-cgi/challenge-platform",
}

// IsBotWall reports whether the markup looks like an anti-scraping
// interstitial rather than a product page.
func IsBotWall(markup string) bool {
	lower := strings.ToLower(markup)
	for _, marker := range botWallMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
