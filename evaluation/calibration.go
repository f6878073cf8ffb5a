/*
calibration.go - Calibration analysis of rule-based vs relative grades

PURPOSE:
  Compares the rule-based manager grade against the quota-constrained
  relative grade, flags large discrepancies for human review, computes the
  recommended grade for flagged cases, and produces the peer-group
  statistics used to brief calibration participants.

RULES:
  - A case is flagged iff |rank(relative) - rank(manager)| >= 2.
  - The recommended grade for a flagged case is the rank midpoint between
    the two grades (integer division), mapped back through the rank table.
    Non-flagged cases keep their relative grade.
  - |z| > 1.5 marks a top/bottom performer within the peer group.
*/
package evaluation

import (
	"fmt"
	"math"
	"strings"
)

// FlagThreshold is the minimum absolute grade-rank difference that sends a
// case to calibration.
const FlagThreshold = 2

// OutlierZ is the |z| above which a member counts as a group outlier.
const OutlierZ = 1.5

// =============================================================================
// CALIBRATION CASE
// =============================================================================

// CalibrationCase is the analyzer's verdict on a single evaluation.
type CalibrationCase struct {
	EvaluationID    EvaluationID
	EmployeeID      EmployeeID
	GroupKey        string
	ManagerGrade    Grade
	RelativeGrade   Grade
	GradeDifference int
	Flagged         bool
	Recommended     Grade
	Reason          string
}

// GroupStats summarizes a peer group for calibration participants.
type GroupStats struct {
	GroupKey       string
	Count          int
	GradeHistogram map[Grade]int
	MeanScore      float64
	StddevScore    float64

	// WeightsFlagged counts evaluations whose task weights were
	// ratio-normalized instead of summing to 100.
	WeightsFlagged int
}

// =============================================================================
// ANALYZER
// =============================================================================

type Analyzer struct{}

func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// FlagForReview reports whether the manager/relative discrepancy is large
// enough to require human calibration.
func (a *Analyzer) FlagForReview(ev *ComprehensiveEvaluation) bool {
	return abs(ev.GradeDifference) >= FlagThreshold
}

// RecommendedGrade computes the analyzer's suggested final grade. For
// flagged cases this is the rank midpoint between the manager and relative
// grades; otherwise the relative grade stands.
func (a *Analyzer) RecommendedGrade(ev *ComprehensiveEvaluation) Grade {
	if !a.FlagForReview(ev) {
		return ev.RelativeGrade
	}
	mid := (ev.ManagerGrade.Rank() + ev.RelativeGrade.Rank()) / 2
	return GradeFromRank(mid)
}

// AdjustmentReason composes the human-readable rationale shown to
// calibration participants.
func (a *Analyzer) AdjustmentReason(ev *ComprehensiveEvaluation) string {
	var reasons []string

	switch {
	case ev.GradeDifference > 0:
		reasons = append(reasons, fmt.Sprintf(
			"relative curve upgraded manager grade %s to %s", ev.ManagerGrade, ev.RelativeGrade))
	case ev.GradeDifference < 0:
		reasons = append(reasons, fmt.Sprintf(
			"relative curve downgraded manager grade %s to %s", ev.ManagerGrade, ev.RelativeGrade))
	}

	if ev.AllAxesAchieved() && ev.RelativeGrade.Rank() < GradeAPlus.Rank() {
		reasons = append(reasons, "all 3 axes achieved but grade downgraded by relative curve")
	}

	if ev.ZScore > OutlierZ {
		reasons = append(reasons, "top performer in peer group")
	} else if ev.ZScore < -OutlierZ {
		reasons = append(reasons, "bottom performer in peer group")
	}

	return strings.Join(reasons, "; ")
}

// Analyze builds the full calibration case for one evaluation.
func (a *Analyzer) Analyze(ev *ComprehensiveEvaluation) CalibrationCase {
	return CalibrationCase{
		EvaluationID:    ev.ID,
		EmployeeID:      ev.EmployeeID,
		GroupKey:        ev.GroupKey,
		ManagerGrade:    ev.ManagerGrade,
		RelativeGrade:   ev.RelativeGrade,
		GradeDifference: ev.GradeDifference,
		Flagged:         a.FlagForReview(ev),
		Recommended:     a.RecommendedGrade(ev),
		Reason:          a.AdjustmentReason(ev),
	}
}

// FlaggedCases analyzes a set of evaluations and returns only the flagged
// ones. Calibration sessions load their case set through this.
func (a *Analyzer) FlaggedCases(evals []*ComprehensiveEvaluation) []CalibrationCase {
	var flagged []CalibrationCase
	for _, ev := range evals {
		if c := a.Analyze(ev); c.Flagged {
			flagged = append(flagged, c)
		}
	}
	return flagged
}

// GroupStatistics summarizes one peer group.
func (a *Analyzer) GroupStatistics(groupKey string, group []*ComprehensiveEvaluation) GroupStats {
	stats := GroupStats{
		GroupKey:       groupKey,
		Count:          len(group),
		GradeHistogram: make(map[Grade]int),
	}

	scores := make([]float64, 0, len(group))
	for _, ev := range group {
		if ev.RelativeGrade != "" {
			stats.GradeHistogram[ev.RelativeGrade]++
		}
		if ev.WeightsNormalized {
			stats.WeightsFlagged++
		}
		f, _ := ev.OverallScore.Float64()
		scores = append(scores, f)
	}
	stats.MeanScore, stats.StddevScore = meanStddev(scores)
	return stats
}

func abs(n int) int {
	return int(math.Abs(float64(n)))
}
