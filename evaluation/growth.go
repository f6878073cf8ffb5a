/*
growth.go - Growth level tracking and promotion eligibility

PURPOSE:
  Tracks per-employee level history and promotion eligibility against the
  organization's level ladder.

RULES:
  - The engine only RECOMMENDS promotion; it never moves an employee's
    level. Level changes are external actions reflected in the directory.
  - History holds one snapshot per (employee, period), derived from prior
    rows plus the current period's evaluation. Recomputing a period
    replaces its row; duplicates would inflate streak counts.
  - Score requirement: all three axis scores must reach the NEXT level's
    minimums. A missing axis means the requirement is not met.
  - Streaks: the first period a requirement is newly met counts as 1, and
    each unbroken earlier period at the same level adds 1. Any gap resets.
  - At the top of the ladder eligibility is always false.
*/
package evaluation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// LEVEL LADDER
// =============================================================================

// GrowthLevel is one rung of the ladder. The thresholds are what an
// employee must score to be promoted INTO this level, and RequiredStreak is
// how many consecutive periods the scores must hold.
type GrowthLevel struct {
	Level           int
	Name            string
	MinContribution decimal.Decimal
	MinExpertise    decimal.Decimal
	MinImpact       decimal.Decimal
	RequiredStreak  int
}

// Ladder is the ordered level ladder (1..N).
type Ladder struct {
	levels map[int]GrowthLevel
	max    int
}

func NewLadder(levels []GrowthLevel) *Ladder {
	l := &Ladder{levels: make(map[int]GrowthLevel, len(levels))}
	for _, lv := range levels {
		l.levels[lv.Level] = lv
		if lv.Level > l.max {
			l.max = lv.Level
		}
	}
	return l
}

// Level returns the ladder rung for a level number.
func (l *Ladder) Level(n int) (GrowthLevel, bool) {
	lv, ok := l.levels[n]
	return lv, ok
}

// Next returns the level above the given one, or false at the top.
func (l *Ladder) Next(current int) (GrowthLevel, bool) {
	return l.Level(current + 1)
}

// DefaultLadder returns the standard five-level ladder.
func DefaultLadder() *Ladder {
	d := decimal.RequireFromString
	return NewLadder([]GrowthLevel{
		{Level: 1, Name: "Associate", MinContribution: d("1.0"), MinExpertise: d("1.0"), MinImpact: d("1.0"), RequiredStreak: 1},
		{Level: 2, Name: "Professional", MinContribution: d("2.0"), MinExpertise: d("2.0"), MinImpact: d("2.0"), RequiredStreak: 2},
		{Level: 3, Name: "Senior", MinContribution: d("2.5"), MinExpertise: d("3.0"), MinImpact: d("2.5"), RequiredStreak: 2},
		{Level: 4, Name: "Principal", MinContribution: d("3.0"), MinExpertise: d("3.5"), MinImpact: d("3.0"), RequiredStreak: 3},
		{Level: 5, Name: "Distinguished", MinContribution: d("3.5"), MinExpertise: d("3.5"), MinImpact: d("3.5"), RequiredStreak: 3},
	})
}

// =============================================================================
// GROWTH HISTORY
// =============================================================================

// GrowthHistory is one snapshot per (employee, period).
type GrowthHistory struct {
	ID         string
	EmployeeID EmployeeID
	PeriodID   PeriodID

	// PeriodSeq orders rows across periods (EvaluationPeriod.Sequence).
	PeriodSeq int

	Level int

	// Axis score snapshots. Nil means the axis was absent that period.
	Contribution *decimal.Decimal
	Expertise    *decimal.Decimal
	Impact       *decimal.Decimal

	MeetsScoreRequirement   bool
	ConsecutiveAchievements int
	IsPromotionEligible     bool

	CreatedAt time.Time
}

// =============================================================================
// GROWTH ENGINE
// =============================================================================

// GrowthEngine derives growth history rows and promotion eligibility.
type GrowthEngine struct {
	ladder *Ladder
	store  Store
}

func NewGrowthEngine(ladder *Ladder, store Store) *GrowthEngine {
	return &GrowthEngine{ladder: ladder, store: store}
}

// UpdateHistory derives and saves the growth history row for one employee
// and period from the period's comprehensive evaluation. Re-running the
// derivation replaces the period's row.
func (g *GrowthEngine) UpdateHistory(ctx context.Context, employeeID EmployeeID, periodID PeriodID) (*GrowthHistory, error) {
	period, err := g.store.GetPeriod(ctx, periodID)
	if err != nil {
		return nil, err
	}
	emp, err := g.store.GetEmployee(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	ev, err := g.store.GetEvaluation(ctx, EvaluationID(string(employeeID)+":"+string(periodID)))
	if err != nil {
		return nil, err
	}

	row := &GrowthHistory{
		ID:         uuid.NewString(),
		EmployeeID: employeeID,
		PeriodID:   periodID,
		PeriodSeq:  period.Sequence(),
		Level:      emp.GrowthLevel,
		CreatedAt:  time.Now().UTC(),
	}
	if ev.Contribution != nil {
		s := ev.Contribution.Score
		row.Contribution = &s
	}
	if ev.Expertise != nil {
		s := ev.Expertise.Score
		row.Expertise = &s
	}
	if ev.Impact != nil {
		s := ev.Impact.Score
		row.Impact = &s
	}

	prior, err := g.store.HistoryFor(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	g.CalculateEligibility(row, prior)

	if err := g.store.SaveHistory(ctx, row); err != nil {
		return nil, err
	}
	return row, nil
}

// CalculateEligibility fills in the requirement, streak, and eligibility
// fields of a row given the employee's prior history (newest first).
func (g *GrowthEngine) CalculateEligibility(row *GrowthHistory, prior []*GrowthHistory) {
	next, ok := g.ladder.Next(row.Level)
	if !ok {
		// Top of the ladder.
		row.MeetsScoreRequirement = false
		row.ConsecutiveAchievements = 0
		row.IsPromotionEligible = false
		return
	}

	row.MeetsScoreRequirement = meetsThresholds(row, next)
	if !row.MeetsScoreRequirement {
		row.ConsecutiveAchievements = 0
		row.IsPromotionEligible = false
		return
	}

	// The current period counts as 1; each unbroken earlier period at the
	// same level adds 1.
	streak := 1
	for _, p := range prior {
		if p.PeriodSeq >= row.PeriodSeq {
			continue
		}
		if p.Level != row.Level || !p.MeetsScoreRequirement {
			break
		}
		streak++
	}

	row.ConsecutiveAchievements = streak
	row.IsPromotionEligible = streak >= next.RequiredStreak
}

// meetsThresholds checks all three axis scores against the next level's
// minimums. A missing axis fails the requirement.
func meetsThresholds(row *GrowthHistory, next GrowthLevel) bool {
	if row.Contribution == nil || row.Expertise == nil || row.Impact == nil {
		return false
	}
	return row.Contribution.GreaterThanOrEqual(next.MinContribution) &&
		row.Expertise.GreaterThanOrEqual(next.MinExpertise) &&
		row.Impact.GreaterThanOrEqual(next.MinImpact)
}
