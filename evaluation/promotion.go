/*
promotion.go - Promotion readiness analysis and score trends

PURPOSE:
  Computes promotion-readiness scores, recommendation text, and score-trend
  classification from persisted evaluation history. Runs independently of
  the scoring pipeline on a per-period cadence.

CONTRACTS (asserted literally by tests):
  - Trend direction: slope > 0.1 improving, slope < -0.1 declining, else
    stable. The fit is over index vs score in oldest-to-newest order.
  - Consistency: 1 / (stddev/mean) when mean > 0, else 0.
  - Promotion score (0-100): eligibility met +40, eligible-soon +25; average
    axis score scaled to 0-30; trend improving +20 / stable +15 /
    declining +5; consistency bonus up to +10; +10 when 2 of the last 3
    periods graded S; capped at 100.
  - Recommendation: >=80 strong recommend, >=60 recommend, >=40 hold with
    gaps, else not ready.
*/
package evaluation

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// TREND ANALYSIS
// =============================================================================

type TrendDirection string

const (
	TrendImproving TrendDirection = "improving"
	TrendStable    TrendDirection = "stable"
	TrendDeclining TrendDirection = "declining"
)

const trendSlopeThreshold = 0.1

// maxConsistency caps the consistency value for flat (zero stddev) series,
// which would otherwise divide by zero. It equals the maximum bonus the
// promotion score can award.
const maxConsistency = 10.0

// TrendResult classifies an employee's score trajectory.
type TrendResult struct {
	Direction   TrendDirection
	Slope       float64
	Consistency float64
}

type TrendAnalyzer struct{}

func NewTrendAnalyzer() *TrendAnalyzer {
	return &TrendAnalyzer{}
}

// Trend fits a linear slope over an ordered score series. The series
// arrives newest first (store order); the fit runs oldest to newest.
func (t *TrendAnalyzer) Trend(series []float64) TrendResult {
	if len(series) == 0 {
		return TrendResult{Direction: TrendStable}
	}

	ordered := make([]float64, len(series))
	for i, v := range series {
		ordered[len(series)-1-i] = v
	}

	slope := fitSlope(ordered)
	direction := TrendStable
	switch {
	case slope > trendSlopeThreshold:
		direction = TrendImproving
	case slope < -trendSlopeThreshold:
		direction = TrendDeclining
	}

	mean, stddev := meanStddev(ordered)
	consistency := 0.0
	if mean > 0 {
		if stddev == 0 {
			consistency = maxConsistency
		} else {
			consistency = 1 / (stddev / mean)
		}
	}

	return TrendResult{Direction: direction, Slope: slope, Consistency: consistency}
}

// fitSlope computes the least-squares slope of values against their index.
func fitSlope(values []float64) float64 {
	n := float64(len(values))
	if n < 2 {
		return 0
	}
	var sumX, sumY, sumXY, sumXX float64
	for i, y := range values {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / denom
}

// =============================================================================
// PROMOTION REQUIREMENTS
// =============================================================================

// PromotionRequirement is the static rule for one level transition.
type PromotionRequirement struct {
	FromLevel             int
	ToLevel               int
	MinYears              int
	MinConsecutiveAGrades int
	MinPerformanceScore   float64
}

// RequirementTable looks up requirements by (from, to) level pair.
type RequirementTable struct {
	rules map[[2]int]PromotionRequirement
}

func NewRequirementTable(rules []PromotionRequirement) *RequirementTable {
	t := &RequirementTable{rules: make(map[[2]int]PromotionRequirement, len(rules))}
	for _, r := range rules {
		t.rules[[2]int{r.FromLevel, r.ToLevel}] = r
	}
	return t
}

// Lookup returns the requirement for a transition, if defined.
func (t *RequirementTable) Lookup(from, to int) (PromotionRequirement, bool) {
	r, ok := t.rules[[2]int{from, to}]
	return r, ok
}

// DefaultRequirements returns the standard transition rules for the
// five-level ladder.
func DefaultRequirements() *RequirementTable {
	return NewRequirementTable([]PromotionRequirement{
		{FromLevel: 1, ToLevel: 2, MinYears: 1, MinConsecutiveAGrades: 1, MinPerformanceScore: 2.0},
		{FromLevel: 2, ToLevel: 3, MinYears: 2, MinConsecutiveAGrades: 2, MinPerformanceScore: 2.5},
		{FromLevel: 3, ToLevel: 4, MinYears: 3, MinConsecutiveAGrades: 2, MinPerformanceScore: 3.0},
		{FromLevel: 4, ToLevel: 5, MinYears: 4, MinConsecutiveAGrades: 3, MinPerformanceScore: 3.5},
	})
}

// =============================================================================
// PROMOTION SCORE
// =============================================================================

type EligibilityStatus string

const (
	EligibilityMet  EligibilityStatus = "met"
	EligibilitySoon EligibilityStatus = "soon" // score requirement met, streak not yet
	EligibilityNot  EligibilityStatus = "not_met"
)

// PromotionScore computes the 0-100 readiness score.
func PromotionScore(eligibility EligibilityStatus, avgAxisScore float64, trend TrendResult, recentGrades []Grade) int {
	score := 0.0

	switch eligibility {
	case EligibilityMet:
		score += 40
	case EligibilitySoon:
		score += 25
	}

	// Average axis score (1-4) scaled to 0-30.
	axisComponent := avgAxisScore / 4 * 30
	if axisComponent < 0 {
		axisComponent = 0
	}
	if axisComponent > 30 {
		axisComponent = 30
	}
	score += axisComponent

	switch trend.Direction {
	case TrendImproving:
		score += 20
	case TrendStable:
		score += 15
	case TrendDeclining:
		score += 5
	}

	bonus := trend.Consistency
	if bonus > maxConsistency {
		bonus = maxConsistency
	}
	if bonus < 0 {
		bonus = 0
	}
	score += bonus

	// Sustained excellence: 2 of the last 3 periods graded S.
	sCount := 0
	for i, g := range recentGrades {
		if i >= 3 {
			break
		}
		if g == GradeS {
			sCount++
		}
	}
	if sCount >= 2 {
		score += 10
	}

	if score > 100 {
		score = 100
	}
	return int(score)
}

// RecommendationText renders the readiness score as guidance for reviewers.
func RecommendationText(score int, missing []string) string {
	switch {
	case score >= 80:
		return "strong recommend"
	case score >= 60:
		return "recommend"
	case score >= 40:
		return "hold - gaps: " + strings.Join(missing, ", ")
	default:
		return "not ready"
	}
}

// =============================================================================
// PROMOTION ANALYZER
// =============================================================================

// PromotionAnalysis is the full readiness report for one employee.
type PromotionAnalysis struct {
	EmployeeID          EmployeeID
	CurrentLevel        int
	TargetLevel         int
	Eligibility         EligibilityStatus
	Trend               TrendResult
	Score               int
	Recommendation      string
	MissingRequirements []string
}

// PromotionAnalyzer computes readiness from persisted history.
type PromotionAnalyzer struct {
	trend  *TrendAnalyzer
	ladder *Ladder
	reqs   *RequirementTable
	store  Store
}

func NewPromotionAnalyzer(ladder *Ladder, reqs *RequirementTable, store Store) *PromotionAnalyzer {
	return &PromotionAnalyzer{
		trend:  NewTrendAnalyzer(),
		ladder: ladder,
		reqs:   reqs,
		store:  store,
	}
}

// Analyze builds the promotion readiness report for one employee.
func (p *PromotionAnalyzer) Analyze(ctx context.Context, employeeID EmployeeID) (*PromotionAnalysis, error) {
	emp, err := p.store.GetEmployee(ctx, employeeID)
	if err != nil {
		return nil, err
	}

	evals, err := p.store.ListByEmployee(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	history, err := p.store.HistoryFor(ctx, employeeID)
	if err != nil {
		return nil, err
	}

	analysis := &PromotionAnalysis{
		EmployeeID:   employeeID,
		CurrentLevel: emp.GrowthLevel,
		TargetLevel:  emp.GrowthLevel + 1,
		Eligibility:  EligibilityNot,
	}
	if _, ok := p.ladder.Next(emp.GrowthLevel); !ok {
		analysis.TargetLevel = emp.GrowthLevel
	}

	if len(history) > 0 {
		latest := history[0]
		switch {
		case latest.IsPromotionEligible:
			analysis.Eligibility = EligibilityMet
		case latest.MeetsScoreRequirement:
			analysis.Eligibility = EligibilitySoon
		}
	}

	series := make([]float64, 0, len(evals))
	for _, ev := range evals {
		f, _ := ev.OverallScore.Float64()
		series = append(series, f)
	}
	analysis.Trend = p.trend.Trend(series)

	avgAxis := 0.0
	var recent []Grade
	if len(evals) > 0 {
		avgAxis, _ = evals[0].OverallScore.Float64()
		for _, ev := range evals {
			g := ev.FinalGrade
			if g == "" {
				g = ev.RelativeGrade
			}
			if g != "" {
				recent = append(recent, g)
			}
		}
	}

	analysis.MissingRequirements = p.missingRequirements(emp, evals, history)
	analysis.Score = PromotionScore(analysis.Eligibility, avgAxis, analysis.Trend, recent)
	analysis.Recommendation = RecommendationText(analysis.Score, analysis.MissingRequirements)
	return analysis, nil
}

// missingRequirements lists the unmet promotion requirements for the
// employee's next level transition.
func (p *PromotionAnalyzer) missingRequirements(emp *Employee, evals []*ComprehensiveEvaluation, history []*GrowthHistory) []string {
	var missing []string

	req, ok := p.reqs.Lookup(emp.GrowthLevel, emp.GrowthLevel+1)
	if !ok {
		return nil
	}

	years := yearsSince(emp.HireDate)
	if years < req.MinYears {
		missing = append(missing, fmt.Sprintf("tenure %d of %d years", years, req.MinYears))
	}

	// Consecutive A-or-better grades, newest first.
	consecutiveA := 0
	for _, ev := range evals {
		g := ev.FinalGrade
		if g == "" {
			g = ev.RelativeGrade
		}
		if g.Rank() >= GradeA.Rank() {
			consecutiveA++
		} else {
			break
		}
	}
	if consecutiveA < req.MinConsecutiveAGrades {
		missing = append(missing, fmt.Sprintf("consecutive A grades %d of %d", consecutiveA, req.MinConsecutiveAGrades))
	}

	if len(evals) > 0 {
		latest, _ := evals[0].OverallScore.Float64()
		if latest < req.MinPerformanceScore {
			missing = append(missing, fmt.Sprintf("performance score %.1f below %.1f", latest, req.MinPerformanceScore))
		}
	} else {
		missing = append(missing, "no evaluation history")
	}

	if len(history) > 0 && history[0].MeetsScoreRequirement {
		if next, ok := p.ladder.Next(emp.GrowthLevel); ok && history[0].ConsecutiveAchievements < next.RequiredStreak {
			missing = append(missing, fmt.Sprintf(
				"achievement streak %d of %d periods", history[0].ConsecutiveAchievements, next.RequiredStreak))
		}
	}

	return missing
}

// yearsSince returns whole years elapsed since a date.
func yearsSince(t time.Time) int {
	now := time.Now().UTC()
	years := now.Year() - t.Year()
	if now.YearDay() < t.YearDay() {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}
