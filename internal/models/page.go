package models

import (
	"net/url"
	"strings"
)

// RawPage is the immutable input handed to the extraction engine: the final
// markup of a single product page plus the metadata the page provider knows
// about it. The engine borrows it for the duration of one extraction call and
// never mutates it.
type RawPage struct {
	Markup        string
	RenderedTitle string
	URL           string
	Host          string
}

// NewRawPage builds a RawPage from markup and a URL, deriving the host when
// the URL parses. An unparsable URL is not an error; the host stays empty and
// host-specific override rules simply never fire.
func NewRawPage(markup, renderedTitle, rawURL string) RawPage {
	page := RawPage{
		Markup:        markup,
		RenderedTitle: renderedTitle,
		URL:           rawURL,
	}
	if u, err := url.Parse(rawURL); err == nil {
		page.Host = strings.ToLower(u.Hostname())
	}
	return page
}
