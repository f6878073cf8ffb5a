/*
aggregate.go - Comprehensive aggregation of the three axis results

PURPOSE:
  Combines contribution, expertise, and impact results into an overall score
  and the rule-based first-pass manager grade.

RULES:
  - Overall score is the mean of the axis scores that are PRESENT. A missing
    axis is excluded from the mean, never treated as zero.
  - Manager grade depends ONLY on the count of achieved axes:
    3 -> S, 2 -> A, 1 -> B, 0 -> C. Two employees with identical overall
    scores can receive different manager grades.
*/
package evaluation

import (
	"time"

	"github.com/shopspring/decimal"
)

// Aggregator combines axis results into a ComprehensiveEvaluation.
type Aggregator struct{}

func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// Aggregate computes the overall score and manager grade from whichever axis
// results are present. At least one axis must be present; aggregation never
// fabricates data for missing axes.
func (a *Aggregator) Aggregate(contribution, expertise, impact *AxisResult) (decimal.Decimal, Grade, error) {
	var scores []decimal.Decimal
	achieved := 0
	for _, r := range []*AxisResult{contribution, expertise, impact} {
		if r == nil {
			continue
		}
		scores = append(scores, r.Score)
		if r.Achieved {
			achieved++
		}
	}

	if len(scores) == 0 {
		return decimal.Zero, "", &ComputationError{Reason: "no axis data to aggregate"}
	}

	sum := decimal.Zero
	for _, s := range scores {
		sum = sum.Add(s)
	}
	overall := sum.Div(decimal.NewFromInt(int64(len(scores)))).Round(2)

	return overall, managerGrade(achieved), nil
}

// Evaluate builds the full evaluation record for one employee and period.
func (a *Aggregator) Evaluate(
	employee Employee,
	period EvaluationPeriod,
	contribution *ContributionResult,
	expertise, impact *AxisResult,
) (*ComprehensiveEvaluation, error) {
	var contribAxis *AxisResult
	normalized := false
	if contribution != nil {
		contribAxis = &contribution.AxisResult
		normalized = contribution.WeightsNormalized
	}

	overall, grade, err := a.Aggregate(contribAxis, expertise, impact)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &ComprehensiveEvaluation{
		ID:                EvaluationID(string(employee.ID) + ":" + string(period.ID)),
		EmployeeID:        employee.ID,
		PeriodID:          period.ID,
		GroupKey:          employee.GroupKey(),
		Contribution:      contribAxis,
		Expertise:         expertise,
		Impact:            impact,
		WeightsNormalized: normalized,
		OverallScore:      overall,
		ManagerGrade:      grade,
		Status:            EvalSubmitted,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

// managerGrade maps the achieved-axis count to the first-pass grade. The
// numeric overall score deliberately plays no part here.
func managerGrade(achievedCount int) Grade {
	switch achievedCount {
	case 3:
		return GradeS
	case 2:
		return GradeA
	case 1:
		return GradeB
	default:
		return GradeC
	}
}
