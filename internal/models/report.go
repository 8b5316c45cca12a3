package models

import (
	"fmt"
	"strconv"
	"strings"
)

// Report statuses as emitted on the pipeline boundary.
const (
	StatusOK        = "OK"
	StatusNoPrice   = "NO_PRICE"
	StatusNoResults = "NO_RESULTS"
	StatusTimeout   = "TIMEOUT"
	StatusError     = "ERROR"
)

// Report is the JSON record handed to the pipeline/CLI layer. Amounts are
// rendered with a comma decimal separator, matching the source locale's
// display convention.
type Report struct {
	Status     string `json:"status"`
	Price      string `json:"price,omitempty"`
	UnitPrice  string `json:"unit_price,omitempty"`
	Quantity   string `json:"quantity,omitempty"`
	Title      string `json:"title,omitempty"`
	URL        string `json:"url,omitempty"`
	MatchedEAN string `json:"matched_ean,omitempty"`
	Note       string `json:"note,omitempty"`
}

// FormatAmount renders an amount with two decimals and a comma separator,
// e.g. 9.09 -> "9,09".
func FormatAmount(v float64) string {
	return strings.Replace(strconv.FormatFloat(v, 'f', 2, 64), ".", ",", 1)
}

// BuildReport converts an ExtractionResult into the external record for one
// page. A bot wall or a missing price both degrade the status, never error.
func BuildReport(res *ExtractionResult, url string) Report {
	rep := Report{
		Status: StatusNoPrice,
		Title:  strings.TrimSpace(res.Title),
		URL:    url,
	}

	if res.BotProtection {
		rep.Note = "bot protection detected"
	}
	if res.EAN != "" {
		rep.MatchedEAN = res.EAN
	}
	if res.Price != nil {
		rep.Status = StatusOK
		rep.Price = FormatAmount(*res.Price)
	}

	rep.UnitPrice = formatUnitPrice(res.Unit)
	rep.Quantity = formatQuantity(res.Unit)

	return rep
}

func formatUnitPrice(u UnitPriceSummary) string {
	switch {
	case u.PerLiter != nil:
		return FormatAmount(*u.PerLiter) + " € / L"
	case u.PerKg != nil:
		return FormatAmount(*u.PerKg) + " € / KG"
	case u.PerDose != nil:
		return FormatAmount(*u.PerDose) + " € / DOSE"
	}
	return ""
}

func formatQuantity(u UnitPriceSummary) string {
	switch {
	case u.Liters != nil:
		return trimFloat(*u.Liters) + " L"
	case u.Kg != nil:
		return trimFloat(*u.Kg) + " KG"
	case u.Doses != nil:
		return fmt.Sprintf("%d DOSES", *u.Doses)
	}
	return ""
}

func trimFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', 3, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	return s
}
