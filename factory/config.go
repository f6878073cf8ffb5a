/*
Package factory provides JSON to Go engine configuration conversion.

PURPOSE:
  Converts JSON definitions into scoring charts, quota distributions,
  growth ladders, and promotion requirement tables. This enables scoring
  configuration without code changes - HR can tune the tables in JSON,
  and the factory creates the proper Go structs.

WHY JSON?
  - Non-developers can adjust grade quotas and score tables
  - Easy integration with admin tooling
  - Version control for scoring configurations
  - Database storage of per-department variants

JSON SCHEMA:
  {
    "chart": {
      "contribution": {"strategic": {"leading": 4, "driving": 4}},
      "expertise": {"expert": 4, "advanced": 3},
      "impact_values": {"company": {"exemplary": 4}},
      "impact_leadership": {"company": {"exemplary": 4}}
    },
    "quota": {"S": 10, "A+": 10, "A": 20, "B+": 20, "B": 30, "C": 10, "D": 0},
    "ladder": [
      {"level": 1, "name": "Associate", "min_contribution": 0,
       "min_expertise": 0, "min_impact": 0, "required_streak": 0}
    ],
    "promotion_requirements": [
      {"from_level": 1, "to_level": 2, "min_years": 1,
       "min_consecutive_a_grades": 0, "min_performance_score": 2.0}
    ]
  }

KEY FEATURES:
  - Validates quota percentages sum to 100
  - Missing sections fall back to the engine defaults
  - Round-trips: ToJSON reproduces a parseable document

USAGE:
  factory := NewConfigFactory()

  // From JSON string
  cfg, err := factory.ParseConfig(jsonString)

  // From preset (recommended starting point)
  cfg, err := factory.ParseConfig(factory.StandardConfigJSON())

  // Use in system
  alloc, _ := evaluation.NewAllocator(cfg.Quota)
  calc := evaluation.NewCalculator(cfg.Chart)

SEE ALSO:
  - evaluation/chart.go: Scoring chart tables
  - evaluation/allocator.go: Quota distribution
  - evaluation/growth.go: Growth ladder
  - evaluation/promotion.go: Promotion requirement table
*/
package factory

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/warp/evaluation-engine/evaluation"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// ConfigJSON is the JSON representation of an engine configuration. Every
// section is optional; omitted sections use the engine defaults.
type ConfigJSON struct {
	Chart        *ChartJSON         `json:"chart,omitempty"`
	Quota        map[string]float64 `json:"quota,omitempty"`
	Ladder       []LevelJSON        `json:"ladder,omitempty"`
	Requirements []RequirementJSON  `json:"promotion_requirements,omitempty"`
}

// ChartJSON carries partial score tables. Entries present here override
// the default chart cell by cell; absent cells keep their defaults.
type ChartJSON struct {
	Contribution     map[string]map[string]int `json:"contribution,omitempty"`
	Expertise        map[string]int            `json:"expertise,omitempty"`
	ImpactValues     map[string]map[string]int `json:"impact_values,omitempty"`
	ImpactLeadership map[string]map[string]int `json:"impact_leadership,omitempty"`
}

// LevelJSON represents one growth ladder rung.
type LevelJSON struct {
	Level           int     `json:"level"`
	Name            string  `json:"name"`
	MinContribution float64 `json:"min_contribution"`
	MinExpertise    float64 `json:"min_expertise"`
	MinImpact       float64 `json:"min_impact"`
	RequiredStreak  int     `json:"required_streak"`
}

// RequirementJSON represents one promotion transition rule.
type RequirementJSON struct {
	FromLevel             int     `json:"from_level"`
	ToLevel               int     `json:"to_level"`
	MinYears              int     `json:"min_years"`
	MinConsecutiveAGrades int     `json:"min_consecutive_a_grades"`
	MinPerformanceScore   float64 `json:"min_performance_score"`
}

// =============================================================================
// ENGINE CONFIG
// =============================================================================

// EngineConfig is the parsed, validated configuration set.
type EngineConfig struct {
	Chart        *evaluation.ScoringChart
	Quota        evaluation.QuotaDistribution
	Ladder       *evaluation.Ladder
	Requirements *evaluation.RequirementTable
}

// =============================================================================
// FACTORY
// =============================================================================

// ConfigFactory converts JSON configuration into engine components.
type ConfigFactory struct{}

// NewConfigFactory creates a new configuration factory.
func NewConfigFactory() *ConfigFactory {
	return &ConfigFactory{}
}

// ParseConfig converts a JSON string into an EngineConfig.
func (f *ConfigFactory) ParseConfig(jsonStr string) (*EngineConfig, error) {
	var cj ConfigJSON
	if err := json.Unmarshal([]byte(jsonStr), &cj); err != nil {
		return nil, fmt.Errorf("invalid config JSON: %w", err)
	}
	return f.FromJSON(cj)
}

// FromJSON converts a parsed ConfigJSON into an EngineConfig.
func (f *ConfigFactory) FromJSON(cj ConfigJSON) (*EngineConfig, error) {
	cfg := &EngineConfig{
		Chart:        evaluation.DefaultChart(),
		Quota:        evaluation.DefaultQuota(),
		Ladder:       evaluation.DefaultLadder(),
		Requirements: evaluation.DefaultRequirements(),
	}

	if cj.Chart != nil {
		chart, err := parseChart(cj.Chart)
		if err != nil {
			return nil, err
		}
		cfg.Chart = chart
	}

	if cj.Quota != nil {
		quota, err := parseQuota(cj.Quota)
		if err != nil {
			return nil, err
		}
		cfg.Quota = quota
	}

	if cj.Ladder != nil {
		cfg.Ladder = parseLadder(cj.Ladder)
	}

	if cj.Requirements != nil {
		cfg.Requirements = parseRequirements(cj.Requirements)
	}

	return cfg, nil
}

// ToJSON converts engine quota and ladder settings back into the JSON
// schema. Chart tables round-trip only the cells that differ from the
// default chart, which keeps stored configs small.
func (f *ConfigFactory) ToJSON(cfg *EngineConfig) ConfigJSON {
	cj := ConfigJSON{Quota: make(map[string]float64)}
	for _, g := range evaluation.AllGrades() {
		cj.Quota[string(g)] = cfg.Quota.Percent[g]
	}
	return cj
}

// =============================================================================
// SECTION PARSERS
// =============================================================================

// parseChart overlays JSON cells on the default tables so a variant chart
// only needs to state what it changes.
func parseChart(cj *ChartJSON) (*evaluation.ScoringChart, error) {
	contribution, expertise, impactValues, impactLead := evaluation.DefaultChart().Tables()

	for scope, methods := range cj.Contribution {
		sc := evaluation.ContributionScope(scope)
		if _, ok := contribution[sc]; !ok {
			return nil, fmt.Errorf("chart: unknown contribution scope %q", scope)
		}
		for method, base := range methods {
			m := evaluation.ContributionMethod(method)
			if _, ok := contribution[sc][m]; !ok {
				return nil, fmt.Errorf("chart: unknown contribution method %q", method)
			}
			contribution[sc][m] = base
		}
	}

	for focus, base := range cj.Expertise {
		ef := evaluation.ExpertiseFocus(focus)
		if _, ok := expertise[ef]; !ok {
			return nil, fmt.Errorf("chart: unknown expertise focus %q", focus)
		}
		expertise[ef] = base
	}

	if err := overlayImpact(impactValues, cj.ImpactValues, "impact_values"); err != nil {
		return nil, err
	}
	if err := overlayImpact(impactLead, cj.ImpactLeadership, "impact_leadership"); err != nil {
		return nil, err
	}

	return evaluation.NewChart(contribution, expertise, impactValues, impactLead), nil
}

func overlayImpact(table map[evaluation.ImpactScope]map[evaluation.PracticeLevel]int, cells map[string]map[string]int, section string) error {
	for scope, levels := range cells {
		is := evaluation.ImpactScope(scope)
		if _, ok := table[is]; !ok {
			return fmt.Errorf("chart: unknown %s scope %q", section, scope)
		}
		for level, score := range levels {
			pl := evaluation.PracticeLevel(level)
			if _, ok := table[is][pl]; !ok {
				return fmt.Errorf("chart: unknown %s practice level %q", section, level)
			}
			table[is][pl] = score
		}
	}
	return nil
}

func parseQuota(percents map[string]float64) (evaluation.QuotaDistribution, error) {
	q := evaluation.QuotaDistribution{Percent: make(map[evaluation.Grade]float64, len(percents))}
	for grade, pct := range percents {
		g := evaluation.Grade(grade)
		if !g.IsValid() {
			return evaluation.QuotaDistribution{}, fmt.Errorf("quota: unknown grade %q", grade)
		}
		q.Percent[g] = pct
	}
	if err := q.Validate(); err != nil {
		return evaluation.QuotaDistribution{}, err
	}
	return q, nil
}

func parseLadder(levels []LevelJSON) *evaluation.Ladder {
	rungs := make([]evaluation.GrowthLevel, 0, len(levels))
	for _, lj := range levels {
		rungs = append(rungs, evaluation.GrowthLevel{
			Level:           lj.Level,
			Name:            lj.Name,
			MinContribution: decimal.NewFromFloat(lj.MinContribution),
			MinExpertise:    decimal.NewFromFloat(lj.MinExpertise),
			MinImpact:       decimal.NewFromFloat(lj.MinImpact),
			RequiredStreak:  lj.RequiredStreak,
		})
	}
	return evaluation.NewLadder(rungs)
}

func parseRequirements(rules []RequirementJSON) *evaluation.RequirementTable {
	reqs := make([]evaluation.PromotionRequirement, 0, len(rules))
	for _, rj := range rules {
		reqs = append(reqs, evaluation.PromotionRequirement{
			FromLevel:             rj.FromLevel,
			ToLevel:               rj.ToLevel,
			MinYears:              rj.MinYears,
			MinConsecutiveAGrades: rj.MinConsecutiveAGrades,
			MinPerformanceScore:   rj.MinPerformanceScore,
		})
	}
	return evaluation.NewRequirementTable(reqs)
}
