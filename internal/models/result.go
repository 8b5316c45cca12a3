package models

// Tier identifies which extraction strategy produced a price candidate.
// Lower values take precedence during arbitration.
type Tier int

const (
	TierStructuredData Tier = iota
	TierEmbeddedScript
	TierVisibleText
	TierUnitDerived
)

func (t Tier) String() string {
	switch t {
	case TierStructuredData:
		return "structured_data"
	case TierEmbeddedScript:
		return "embedded_script"
	case TierVisibleText:
		return "visible_text"
	case TierUnitDerived:
		return "unit_derived"
	default:
		return "unknown"
	}
}

// Role classifies what a candidate amount denominates: the pack total or a
// per-unit price.
type Role int

const (
	RoleTotal Role = iota
	RolePerLiter
	RolePerKilogram
	RolePerDose
)

func (r Role) String() string {
	switch r {
	case RoleTotal:
		return "total"
	case RolePerLiter:
		return "per_liter"
	case RolePerKilogram:
		return "per_kg"
	case RolePerDose:
		return "per_dose"
	default:
		return "unknown"
	}
}

// PriceCandidate is one plausible amount found on a page, tagged with the
// strategy that found it and the role its surroundings suggest.
type PriceCandidate struct {
	Amount float64
	Tier   Tier
	Role   Role
}

// QuantitySignal carries the pack quantities detected in the title or page
// text. A page may yield none, one, or several of these independently.
type QuantitySignal struct {
	Liters    *float64
	Kilograms *float64
	DoseCount *int
}

// UnitPriceSummary holds the per-unit price pairs. Each pair is independently
// optional; when the total price and one side of a pair are known, the
// missing side is back-derived so the summary is never inconsistent with a
// known total.
type UnitPriceSummary struct {
	PerLiter *float64 `json:"per_liter"`
	Liters   *float64 `json:"liters"`
	PerKg    *float64 `json:"per_kg"`
	Kg       *float64 `json:"kg"`
	PerDose  *float64 `json:"per_dose"`
	Doses    *int     `json:"doses"`
}

// ExtractionResult is the terminal output of one extraction call. Absence of
// a price or identifier is a valid outcome, not an error.
type ExtractionResult struct {
	Title         string
	Price         *float64
	Unit          UnitPriceSummary
	EAN           string
	BotProtection bool
}

// Float returns a pointer to v. Convenience for building optional fields.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to n.
func Int(n int) *int { return &n }
