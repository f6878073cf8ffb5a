/*
axis.go - Per-axis score calculators

PURPOSE:
  Computes the Contribution, Expertise, and Impact axis scores for one
  employee in one period from typed raw inputs.

DESIGN:
  All three calculators are pure functions of (chart, input): no clocks, no
  stores, no hidden state. Running one twice on identical inputs yields
  bit-identical scores, which is what makes batch recomputation idempotent.

SCORING RULES:
  Contribution: chart base (scope x method) minus an achievement-rate step
    (>=100 -> 0, >=90 -> -0.5, >=80 -> -1.0, >=70 -> -1.5, else -2.0),
    floored at 1.0. Multi-task scores are the weight-weighted mean; weights
    that do not sum to 100 are ratio-normalized and flagged, not rejected.
  Expertise: arithmetic mean of checklist entries (1-4), rounded to 1 decimal.
  Impact: mean of the values-practice and leadership-demonstration lookups.
  An axis is achieved when its score reaches 3.0.
*/
package evaluation

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// TYPED INPUTS
// =============================================================================

// Task is one weighted contribution task. Created during the period, scored
// at period close. BaseScore, FinalScore, and AchievementRate are derived by
// the calculator.
type Task struct {
	ID     string
	Title  string
	Weight int // 0-100; weights across an employee's tasks must sum to 100

	Scope  ContributionScope
	Method ContributionMethod

	TargetValue decimal.Decimal
	ActualValue decimal.Decimal

	// Derived
	AchievementRate float64
	BaseScore       decimal.Decimal
	FinalScore      decimal.Decimal
}

// ExpertiseInput holds the checklist scores for the expertise axis.
type ExpertiseInput struct {
	Focus     ExpertiseFocus
	Checklist map[string]int // item -> 1..4
}

// ImpactInput holds the categorical fields for the impact axis.
type ImpactInput struct {
	Scope          ImpactScope
	ValuesPractice PracticeLevel
	LeadershipDemo PracticeLevel
}

// ContributionResult is the contribution AxisResult plus the scored tasks.
type ContributionResult struct {
	AxisResult
	Tasks []Task

	// WeightsNormalized is set when the task weights did not sum to 100 and
	// the mean was ratio-normalized. The case is flagged in statistics, not
	// rejected.
	WeightsNormalized bool
}

// =============================================================================
// CALCULATOR
// =============================================================================

var (
	minAxisScore = decimal.RequireFromString("1.0")
	halfStep     = decimal.RequireFromString("0.5")
	two          = decimal.NewFromInt(2)
)

// Calculator computes axis scores against an injected scoring chart.
type Calculator struct {
	chart *ScoringChart
}

func NewCalculator(chart *ScoringChart) *Calculator {
	return &Calculator{chart: chart}
}

// AchievementRate derives the percentage achievement of a task.
func AchievementRate(target, actual decimal.Decimal) (float64, error) {
	if !target.IsPositive() {
		return 0, &ValidationError{Field: "target_value", Reason: "must be positive"}
	}
	rate, _ := actual.Div(target).Mul(decimal.NewFromInt(100)).Float64()
	return rate, nil
}

// ScoreTask computes base and final scores for a single task. The input is
// not mutated; the scored copy is returned.
func (c *Calculator) ScoreTask(task Task) (Task, error) {
	base, err := c.chart.ContributionBase(task.Scope, task.Method)
	if err != nil {
		return Task{}, err
	}

	rate := task.AchievementRate
	if rate == 0 && task.TargetValue.IsPositive() {
		rate, err = AchievementRate(task.TargetValue, task.ActualValue)
		if err != nil {
			return Task{}, err
		}
	}

	task.AchievementRate = rate
	task.BaseScore = decimal.NewFromInt(int64(base))
	task.FinalScore = applyRatePenalty(task.BaseScore, rate)
	return task, nil
}

// applyRatePenalty reduces the base score by the achievement-rate step
// function, floored at 1.0.
func applyRatePenalty(base decimal.Decimal, rate float64) decimal.Decimal {
	var steps int64
	switch {
	case rate >= 100:
		steps = 0
	case rate >= 90:
		steps = 1
	case rate >= 80:
		steps = 2
	case rate >= 70:
		steps = 3
	default:
		steps = 4
	}
	final := base.Sub(halfStep.Mul(decimal.NewFromInt(steps)))
	if final.LessThan(minAxisScore) {
		return minAxisScore
	}
	return final
}

// Contribution computes the period's contribution score as the
// weight-weighted mean of the per-task final scores.
func (c *Calculator) Contribution(tasks []Task) (ContributionResult, error) {
	if len(tasks) == 0 {
		return ContributionResult{}, &ValidationError{Field: "tasks", Reason: "no tasks for period"}
	}

	scored := make([]Task, 0, len(tasks))
	weightSum := 0
	weighted := decimal.Zero
	for i, task := range tasks {
		if task.Weight < 0 || task.Weight > 100 {
			return ContributionResult{}, &ValidationError{
				Field:  "weight",
				Reason: fmt.Sprintf("task %d weight %d out of range 0-100", i, task.Weight),
			}
		}
		st, err := c.ScoreTask(task)
		if err != nil {
			return ContributionResult{}, err
		}
		scored = append(scored, st)
		weightSum += st.Weight
		weighted = weighted.Add(st.FinalScore.Mul(decimal.NewFromInt(int64(st.Weight))))
	}

	if weightSum == 0 {
		return ContributionResult{}, &ValidationError{Field: "weight", Reason: "task weights sum to zero"}
	}

	// Weights are caller-validated to sum to 100. When they do not, compute
	// the ratio-normalized mean anyway and flag the case for statistics.
	score := weighted.Div(decimal.NewFromInt(int64(weightSum))).Round(2)

	return ContributionResult{
		AxisResult:        NewAxisResult(AxisContribution, score),
		Tasks:             scored,
		WeightsNormalized: weightSum != 100,
	}, nil
}

// Expertise computes the mean of the checklist entries, rounded to 1 decimal.
func (c *Calculator) Expertise(input ExpertiseInput) (AxisResult, error) {
	if input.Focus != "" {
		if _, err := c.chart.ExpertiseBase(input.Focus); err != nil {
			return AxisResult{}, err
		}
	}
	if len(input.Checklist) == 0 {
		return AxisResult{}, &ValidationError{Field: "checklist", Reason: "no checklist entries"}
	}

	sum := 0
	for item, v := range input.Checklist {
		if v < 1 || v > 4 {
			return AxisResult{}, &ValidationError{
				Field:  "checklist",
				Reason: fmt.Sprintf("item %q score %d out of range 1-4", item, v),
			}
		}
		sum += v
	}

	score := decimal.NewFromInt(int64(sum)).
		Div(decimal.NewFromInt(int64(len(input.Checklist)))).
		Round(1)
	return NewAxisResult(AxisExpertise, score), nil
}

// Impact averages the values-practice and leadership-demonstration chart
// lookups for the given scope.
func (c *Calculator) Impact(input ImpactInput) (AxisResult, error) {
	values, err := c.chart.ImpactValuesScore(input.Scope, input.ValuesPractice)
	if err != nil {
		return AxisResult{}, err
	}
	lead, err := c.chart.ImpactLeadershipScore(input.Scope, input.LeadershipDemo)
	if err != nil {
		return AxisResult{}, err
	}

	score := decimal.NewFromInt(int64(values + lead)).Div(two).Round(1)
	return NewAxisResult(AxisImpact, score), nil
}
