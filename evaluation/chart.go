/*
chart.go - Scoring chart lookup tables

PURPOSE:
  Maps categorical evaluation inputs to base numeric scores (1-4):
  - Contribution: scope x method
  - Expertise: focus area validation
  - Impact: scope x values-practice and scope x leadership-demonstration

DESIGN:
  The chart is an injected, immutable configuration object. Calculators take
  it at construction, so tests and tenants can swap chart variants without
  touching global state. Unknown keys surface as ValidationError; the engine
  never silently defaults a categorical input.

SEE ALSO:
  - axis.go: Calculators that consume the chart
  - factory/: JSON chart definitions and presets
*/
package evaluation

// =============================================================================
// CATEGORICAL INPUTS
// =============================================================================

type ContributionScope string

const (
	ScopeIndividual ContributionScope = "individual"
	ScopeTeam       ContributionScope = "team"
	ScopeDepartment ContributionScope = "department"
	ScopeCompany    ContributionScope = "company"
	ScopeStrategic  ContributionScope = "strategic"
)

type ContributionMethod string

const (
	MethodSupporting    ContributionMethod = "supporting"
	MethodParticipating ContributionMethod = "participating"
	MethodDriving       ContributionMethod = "driving"
	MethodLeading       ContributionMethod = "leading"
)

type ExpertiseFocus string

const (
	FocusFoundational ExpertiseFocus = "foundational"
	FocusPracticing   ExpertiseFocus = "practicing"
	FocusAdvanced     ExpertiseFocus = "advanced"
	FocusExpert       ExpertiseFocus = "expert"
)

type ImpactScope string

const (
	ImpactTeam         ImpactScope = "team"
	ImpactOrganization ImpactScope = "organization"
	ImpactCompany      ImpactScope = "company"
)

type PracticeLevel string

const (
	PracticeNotDemonstrated PracticeLevel = "not_demonstrated"
	PracticePartial         PracticeLevel = "partial"
	PracticeConsistent      PracticeLevel = "consistent"
	PracticeExemplary       PracticeLevel = "exemplary"
)

// =============================================================================
// SCORING CHART
// =============================================================================

// ScoringChart holds the static lookup tables. Treat as immutable after
// construction; NewChart copies its inputs.
type ScoringChart struct {
	contribution map[ContributionScope]map[ContributionMethod]int
	expertise    map[ExpertiseFocus]int
	impactValues map[ImpactScope]map[PracticeLevel]int
	impactLead   map[ImpactScope]map[PracticeLevel]int
}

// NewChart builds a chart from the four tables, copying each map.
func NewChart(
	contribution map[ContributionScope]map[ContributionMethod]int,
	expertise map[ExpertiseFocus]int,
	impactValues map[ImpactScope]map[PracticeLevel]int,
	impactLead map[ImpactScope]map[PracticeLevel]int,
) *ScoringChart {
	return &ScoringChart{
		contribution: copyScopeTable(contribution),
		expertise:    copyIntTable(expertise),
		impactValues: copyImpactTable(impactValues),
		impactLead:   copyImpactTable(impactLead),
	}
}

// ContributionBase looks up the base score for a scope x method pair.
func (c *ScoringChart) ContributionBase(scope ContributionScope, method ContributionMethod) (int, error) {
	methods, ok := c.contribution[scope]
	if !ok {
		return 0, &ValidationError{Field: "contribution_scope", Reason: "unknown scope " + string(scope)}
	}
	score, ok := methods[method]
	if !ok {
		return 0, &ValidationError{Field: "contribution_method", Reason: "unknown method " + string(method)}
	}
	return score, nil
}

// ExpertiseBase looks up the base score for an expertise focus area.
func (c *ScoringChart) ExpertiseBase(focus ExpertiseFocus) (int, error) {
	score, ok := c.expertise[focus]
	if !ok {
		return 0, &ValidationError{Field: "expertise_focus", Reason: "unknown focus " + string(focus)}
	}
	return score, nil
}

// ImpactValuesScore looks up the values-practice score for a scope.
func (c *ScoringChart) ImpactValuesScore(scope ImpactScope, level PracticeLevel) (int, error) {
	levels, ok := c.impactValues[scope]
	if !ok {
		return 0, &ValidationError{Field: "impact_scope", Reason: "unknown scope " + string(scope)}
	}
	score, ok := levels[level]
	if !ok {
		return 0, &ValidationError{Field: "values_practice", Reason: "unknown level " + string(level)}
	}
	return score, nil
}

// ImpactLeadershipScore looks up the leadership-demonstration score for a scope.
func (c *ScoringChart) ImpactLeadershipScore(scope ImpactScope, level PracticeLevel) (int, error) {
	levels, ok := c.impactLead[scope]
	if !ok {
		return 0, &ValidationError{Field: "impact_scope", Reason: "unknown scope " + string(scope)}
	}
	score, ok := levels[level]
	if !ok {
		return 0, &ValidationError{Field: "leadership_demo", Reason: "unknown level " + string(level)}
	}
	return score, nil
}

// =============================================================================
// DEFAULT CHART
// =============================================================================

// DefaultChart returns the standard scoring tables. Variants come from the
// factory package; this is the baseline every deployment starts with.
func DefaultChart() *ScoringChart {
	return NewChart(
		map[ContributionScope]map[ContributionMethod]int{
			ScopeIndividual: {MethodSupporting: 1, MethodParticipating: 1, MethodDriving: 2, MethodLeading: 2},
			ScopeTeam:       {MethodSupporting: 1, MethodParticipating: 2, MethodDriving: 2, MethodLeading: 3},
			ScopeDepartment: {MethodSupporting: 2, MethodParticipating: 2, MethodDriving: 3, MethodLeading: 3},
			ScopeCompany:    {MethodSupporting: 2, MethodParticipating: 3, MethodDriving: 3, MethodLeading: 4},
			ScopeStrategic:  {MethodSupporting: 3, MethodParticipating: 3, MethodDriving: 4, MethodLeading: 4},
		},
		map[ExpertiseFocus]int{
			FocusFoundational: 1,
			FocusPracticing:   2,
			FocusAdvanced:     3,
			FocusExpert:       4,
		},
		map[ImpactScope]map[PracticeLevel]int{
			ImpactTeam:         {PracticeNotDemonstrated: 1, PracticePartial: 2, PracticeConsistent: 3, PracticeExemplary: 3},
			ImpactOrganization: {PracticeNotDemonstrated: 1, PracticePartial: 2, PracticeConsistent: 3, PracticeExemplary: 4},
			ImpactCompany:      {PracticeNotDemonstrated: 2, PracticePartial: 3, PracticeConsistent: 4, PracticeExemplary: 4},
		},
		map[ImpactScope]map[PracticeLevel]int{
			ImpactTeam:         {PracticeNotDemonstrated: 1, PracticePartial: 2, PracticeConsistent: 3, PracticeExemplary: 3},
			ImpactOrganization: {PracticeNotDemonstrated: 1, PracticePartial: 2, PracticeConsistent: 3, PracticeExemplary: 4},
			ImpactCompany:      {PracticeNotDemonstrated: 2, PracticePartial: 3, PracticeConsistent: 4, PracticeExemplary: 4},
		},
	)
}

// Tables returns deep copies of the four score tables. Overlay-based chart
// variants (factory package) start from these.
func (c *ScoringChart) Tables() (
	contribution map[ContributionScope]map[ContributionMethod]int,
	expertise map[ExpertiseFocus]int,
	impactValues map[ImpactScope]map[PracticeLevel]int,
	impactLead map[ImpactScope]map[PracticeLevel]int,
) {
	return copyScopeTable(c.contribution),
		copyIntTable(c.expertise),
		copyImpactTable(c.impactValues),
		copyImpactTable(c.impactLead)
}

// =============================================================================
// COPY HELPERS
// =============================================================================

func copyScopeTable(in map[ContributionScope]map[ContributionMethod]int) map[ContributionScope]map[ContributionMethod]int {
	out := make(map[ContributionScope]map[ContributionMethod]int, len(in))
	for scope, methods := range in {
		m := make(map[ContributionMethod]int, len(methods))
		for method, score := range methods {
			m[method] = score
		}
		out[scope] = m
	}
	return out
}

func copyIntTable(in map[ExpertiseFocus]int) map[ExpertiseFocus]int {
	out := make(map[ExpertiseFocus]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func copyImpactTable(in map[ImpactScope]map[PracticeLevel]int) map[ImpactScope]map[PracticeLevel]int {
	out := make(map[ImpactScope]map[PracticeLevel]int, len(in))
	for scope, levels := range in {
		m := make(map[PracticeLevel]int, len(levels))
		for level, score := range levels {
			m[level] = score
		}
		out[scope] = m
	}
	return out
}
