package evaluation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/evaluation-engine/evaluation"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func gradedEval(manager, relative evaluation.Grade) *evaluation.ComprehensiveEvaluation {
	ev := evalWith("e1", "Platform", "3.0", manager)
	ev.RelativeGrade = relative
	ev.GradeDifference = relative.Rank() - manager.Rank()
	return ev
}

// =============================================================================
// FLAGGING - |rank difference| >= 2
// =============================================================================

func TestFlagForReview_AllGradePairs(t *testing.T) {
	// Every (manager, relative) pair flags exactly when the rank distance
	// is at least two steps.
	analyzer := evaluation.NewAnalyzer()

	for _, mg := range evaluation.AllGrades() {
		for _, rg := range evaluation.AllGrades() {
			ev := gradedEval(mg, rg)
			want := mg.Rank()-rg.Rank() >= 2 || rg.Rank()-mg.Rank() >= 2
			assert.Equal(t, want, analyzer.FlagForReview(ev),
				"manager=%s relative=%s", mg, rg)
		}
	}
}

func TestFlagForReview_OneStep_NotFlagged(t *testing.T) {
	analyzer := evaluation.NewAnalyzer()
	assert.False(t, analyzer.FlagForReview(gradedEval(evaluation.GradeA, evaluation.GradeBPlus)))
	assert.False(t, analyzer.FlagForReview(gradedEval(evaluation.GradeB, evaluation.GradeBPlus)))
}

func TestFlagForReview_TwoSteps_Flagged(t *testing.T) {
	analyzer := evaluation.NewAnalyzer()
	assert.True(t, analyzer.FlagForReview(gradedEval(evaluation.GradeS, evaluation.GradeA)))
	assert.True(t, analyzer.FlagForReview(gradedEval(evaluation.GradeC, evaluation.GradeA)))
}

// =============================================================================
// RECOMMENDED GRADE - rank midpoint for flagged cases
// =============================================================================

func TestRecommendedGrade_MidpointForFlagged(t *testing.T) {
	analyzer := evaluation.NewAnalyzer()

	// S (7) vs A (5): midpoint rank 6 -> A+
	rec := analyzer.RecommendedGrade(gradedEval(evaluation.GradeS, evaluation.GradeA))
	assert.Equal(t, evaluation.GradeAPlus, rec)

	// S (7) vs B (3): midpoint rank 5 -> A
	rec = analyzer.RecommendedGrade(gradedEval(evaluation.GradeS, evaluation.GradeB))
	assert.Equal(t, evaluation.GradeA, rec)

	// A (5) vs C (2): (5+2)/2 = 3 (integer division) -> B
	rec = analyzer.RecommendedGrade(gradedEval(evaluation.GradeA, evaluation.GradeC))
	assert.Equal(t, evaluation.GradeB, rec)
}

func TestRecommendedGrade_UnflaggedKeepsRelative(t *testing.T) {
	analyzer := evaluation.NewAnalyzer()
	rec := analyzer.RecommendedGrade(gradedEval(evaluation.GradeA, evaluation.GradeBPlus))
	assert.Equal(t, evaluation.GradeBPlus, rec)
}

// =============================================================================
// ADJUSTMENT REASONS
// =============================================================================

func TestAdjustmentReason_Downgrade(t *testing.T) {
	reason := evaluation.NewAnalyzer().AdjustmentReason(gradedEval(evaluation.GradeS, evaluation.GradeB))
	assert.Contains(t, reason, "downgraded manager grade S to B")
}

func TestAdjustmentReason_Upgrade(t *testing.T) {
	reason := evaluation.NewAnalyzer().AdjustmentReason(gradedEval(evaluation.GradeC, evaluation.GradeA))
	assert.Contains(t, reason, "upgraded manager grade C to A")
}

func TestAdjustmentReason_AllAxesAchievedButDowngraded(t *testing.T) {
	// GIVEN: An employee who achieved all three axes but was curved below A+
	// WHEN: Composing the reason
	// THEN: The achievement conflict is called out

	ev := gradedEval(evaluation.GradeS, evaluation.GradeB)
	ev.Contribution = axis(evaluation.AxisContribution, "3.5")
	ev.Expertise = axis(evaluation.AxisExpertise, "3.2")
	ev.Impact = axis(evaluation.AxisImpact, "3.0")

	reason := evaluation.NewAnalyzer().AdjustmentReason(ev)
	assert.Contains(t, reason, "all 3 axes achieved but grade downgraded by relative curve")
}

func TestAdjustmentReason_ZOutliers(t *testing.T) {
	analyzer := evaluation.NewAnalyzer()

	ev := gradedEval(evaluation.GradeB, evaluation.GradeB)
	ev.ZScore = 1.6
	assert.Contains(t, analyzer.AdjustmentReason(ev), "top performer in peer group")

	ev.ZScore = -1.6
	assert.Contains(t, analyzer.AdjustmentReason(ev), "bottom performer in peer group")

	// Exactly at the threshold is not an outlier.
	ev.ZScore = 1.5
	assert.NotContains(t, analyzer.AdjustmentReason(ev), "top performer")
}

// =============================================================================
// CASE ANALYSIS AND GROUP STATISTICS
// =============================================================================

func TestFlaggedCases_FiltersUnflagged(t *testing.T) {
	evals := []*evaluation.ComprehensiveEvaluation{
		gradedEval(evaluation.GradeS, evaluation.GradeB),     // flagged
		gradedEval(evaluation.GradeA, evaluation.GradeBPlus), // not flagged
		gradedEval(evaluation.GradeC, evaluation.GradeA),     // flagged
	}

	cases := evaluation.NewAnalyzer().FlaggedCases(evals)
	require.Len(t, cases, 2)
	for _, c := range cases {
		assert.True(t, c.Flagged)
		assert.NotEmpty(t, c.Reason)
	}
}

func TestGroupStatistics(t *testing.T) {
	evals := []*evaluation.ComprehensiveEvaluation{
		gradedEval(evaluation.GradeA, evaluation.GradeA),
		gradedEval(evaluation.GradeB, evaluation.GradeA),
		gradedEval(evaluation.GradeB, evaluation.GradeB),
	}
	evals[0].OverallScore = dec("3.5")
	evals[1].OverallScore = dec("3.0")
	evals[2].OverallScore = dec("2.5")
	evals[2].WeightsNormalized = true

	stats := evaluation.NewAnalyzer().GroupStatistics("Platform", evals)

	assert.Equal(t, 3, stats.Count)
	assert.Equal(t, 2, stats.GradeHistogram[evaluation.GradeA])
	assert.Equal(t, 1, stats.GradeHistogram[evaluation.GradeB])
	assert.Equal(t, 1, stats.WeightsFlagged)
	assert.InDelta(t, 3.0, stats.MeanScore, 0.0001)
	assert.Greater(t, stats.StddevScore, 0.0)
}
