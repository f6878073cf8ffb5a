/*
presets.go - Pre-built engine configurations

PURPOSE:
  Ready-to-use JSON configurations for common deployment shapes. These are
  convenience functions; real deployments usually start from one and tune
  the quota or ladder.

AVAILABLE PRESETS:
  StandardConfigJSON:   Default chart, standard 10/10/20/20/30/10/0 quota
  TopHeavyQuotaJSON:    More S/A+ headroom for small senior teams
  StrictQuotaJSON:      Narrower top bands, non-zero D band
  FlatLadderJSON:       Three-level ladder for small organizations

CUSTOMIZATION:
  Parse a preset, then edit the resulting ConfigJSON before FromJSON, or
  store an edited copy of the JSON itself.
*/
package factory

import (
	"encoding/json"
	"fmt"
)

// =============================================================================
// PRESETS
// =============================================================================

// StandardConfigJSON returns the baseline configuration document. Parsing
// it yields the same components as the engine defaults.
func StandardConfigJSON() string {
	return `{
		"quota": {"S": 10, "A+": 10, "A": 20, "B+": 20, "B": 30, "C": 10, "D": 0}
	}`
}

// TopHeavyQuotaJSON returns a quota with wider top bands, for small teams
// of senior engineers where the standard curve is too punishing.
func TopHeavyQuotaJSON() string {
	return `{
		"quota": {"S": 15, "A+": 15, "A": 25, "B+": 20, "B": 20, "C": 5, "D": 0}
	}`
}

// StrictQuotaJSON returns a quota with narrow top bands and a non-zero D
// band.
func StrictQuotaJSON() string {
	return `{
		"quota": {"S": 5, "A+": 10, "A": 15, "B+": 20, "B": 35, "C": 10, "D": 5}
	}`
}

// FlatLadderJSON returns a three-level ladder for small organizations,
// paired with matching promotion requirements.
func FlatLadderJSON() string {
	return `{
		"ladder": [
			{"level": 1, "name": "Engineer", "min_contribution": 0, "min_expertise": 0, "min_impact": 0, "required_streak": 0},
			{"level": 2, "name": "Senior Engineer", "min_contribution": 3.0, "min_expertise": 3.0, "min_impact": 2.5, "required_streak": 2},
			{"level": 3, "name": "Staff Engineer", "min_contribution": 3.5, "min_expertise": 3.5, "min_impact": 3.0, "required_streak": 3}
		],
		"promotion_requirements": [
			{"from_level": 1, "to_level": 2, "min_years": 2, "min_consecutive_a_grades": 1, "min_performance_score": 2.5},
			{"from_level": 2, "to_level": 3, "min_years": 3, "min_consecutive_a_grades": 2, "min_performance_score": 3.0}
		]
	}`
}

// CustomQuotaJSON builds a quota-only document from explicit percentages.
// Percentages must sum to 100; FromJSON validates.
func CustomQuotaJSON(s, aPlus, a, bPlus, b, c, d float64) string {
	doc := map[string]map[string]float64{
		"quota": {"S": s, "A+": aPlus, "A": a, "B+": bPlus, "B": b, "C": c, "D": d},
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		// Marshalling a map of floats cannot fail; keep the signature simple.
		panic(fmt.Sprintf("marshal quota: %v", err))
	}
	return string(raw)
}
