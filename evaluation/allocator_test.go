package evaluation_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/evaluation-engine/evaluation"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func evalWith(id string, group string, overall string, manager evaluation.Grade) *evaluation.ComprehensiveEvaluation {
	return &evaluation.ComprehensiveEvaluation{
		ID:           evaluation.EvaluationID(id),
		EmployeeID:   evaluation.EmployeeID(id),
		PeriodID:     "2025-H2",
		GroupKey:     group,
		OverallScore: dec(overall),
		ManagerGrade: manager,
		Status:       evaluation.EvalSubmitted,
	}
}

// groupOfTen returns ten evaluations with strictly descending scores.
func groupOfTen(group string) []*evaluation.ComprehensiveEvaluation {
	evals := make([]*evaluation.ComprehensiveEvaluation, 0, 10)
	for i := 0; i < 10; i++ {
		score := fmt.Sprintf("%.2f", 4.0-float64(i)*0.2)
		evals = append(evals, evalWith(fmt.Sprintf("e%d", i), group, score, evaluation.GradeB))
	}
	return evals
}

// =============================================================================
// QUOTA DISTRIBUTION
// =============================================================================

func TestQuota_DefaultValidates(t *testing.T) {
	require.NoError(t, evaluation.DefaultQuota().Validate())
}

func TestQuota_MustSumTo100(t *testing.T) {
	q := evaluation.QuotaDistribution{Percent: map[evaluation.Grade]float64{
		evaluation.GradeS: 50,
		evaluation.GradeB: 40,
	}}
	require.Error(t, q.Validate())
}

func TestQuota_NegativePercent_Rejected(t *testing.T) {
	q := evaluation.QuotaDistribution{Percent: map[evaluation.Grade]float64{
		evaluation.GradeS: 110,
		evaluation.GradeB: -10,
	}}
	require.Error(t, q.Validate())
}

func TestQuota_Headcounts_GroupOfTen(t *testing.T) {
	// GIVEN: The default 10/10/20/20/30/10/0 quota
	// WHEN: Sizing a group of 10
	// THEN: Headcounts are 1,1,2,2,3,1,0 and sum to the group size

	counts := evaluation.DefaultQuota().Headcounts(10)

	assert.Equal(t, 1, counts[evaluation.GradeS])
	assert.Equal(t, 1, counts[evaluation.GradeAPlus])
	assert.Equal(t, 2, counts[evaluation.GradeA])
	assert.Equal(t, 2, counts[evaluation.GradeBPlus])
	assert.Equal(t, 3, counts[evaluation.GradeB])
	assert.Equal(t, 1, counts[evaluation.GradeC])
	assert.Equal(t, 0, counts[evaluation.GradeD])

	total := 0
	for _, n := range counts {
		total += n
	}
	assert.Equal(t, 10, total)
}

func TestQuota_Headcounts_RemainderGoesToB(t *testing.T) {
	// GIVEN: A group size where floor() leaves a shortfall
	// WHEN: Sizing a group of 7 (floors: 0,0,1,1,2,0,0 = 4)
	// THEN: The 3 leftover slots land in the B band

	counts := evaluation.DefaultQuota().Headcounts(7)

	total := 0
	for _, n := range counts {
		total += n
	}
	assert.Equal(t, 7, total)
	assert.Equal(t, 2+3, counts[evaluation.GradeB])
}

func TestQuota_Headcounts_SumsToSizeForAllSizes(t *testing.T) {
	q := evaluation.DefaultQuota()
	for size := 1; size <= 50; size++ {
		counts := q.Headcounts(size)
		total := 0
		for _, n := range counts {
			total += n
		}
		assert.Equal(t, size, total, "size %d", size)
	}
}

// =============================================================================
// RELATIVE ALLOCATION
// =============================================================================

func TestAllocate_GroupOfTen_DefaultQuota(t *testing.T) {
	// GIVEN: 10 employees with distinct scores
	// WHEN: Allocating with the default quota
	// THEN: Top scorer gets S, next A+, then 2xA, 2xB+, 3xB, last gets C

	alloc, err := evaluation.NewAllocator(evaluation.DefaultQuota())
	require.NoError(t, err)

	evals := groupOfTen("Platform")
	alloc.Allocate(evals)

	want := []evaluation.Grade{
		evaluation.GradeS, evaluation.GradeAPlus,
		evaluation.GradeA, evaluation.GradeA,
		evaluation.GradeBPlus, evaluation.GradeBPlus,
		evaluation.GradeB, evaluation.GradeB, evaluation.GradeB,
		evaluation.GradeC,
	}
	for i, ev := range evals {
		assert.Equal(t, want[i], ev.RelativeGrade, "position %d (score %s)", i, ev.OverallScore)
	}
}

func TestAllocate_GradeDifference(t *testing.T) {
	// GradeDifference = rank(relative) - rank(manager). The group of ten all
	// carry manager grade B (rank 3); the top scorer lands S (rank 7).
	alloc, err := evaluation.NewAllocator(evaluation.DefaultQuota())
	require.NoError(t, err)

	evals := groupOfTen("Platform")
	alloc.Allocate(evals)

	assert.Equal(t, 4, evals[0].GradeDifference)
	assert.Equal(t, -1, evals[9].GradeDifference)
}

func TestAllocate_ZScores(t *testing.T) {
	alloc, err := evaluation.NewAllocator(evaluation.DefaultQuota())
	require.NoError(t, err)

	evals := groupOfTen("Platform")
	alloc.Allocate(evals)

	// z-scores are centered: top positive, bottom negative, roughly symmetric.
	assert.Greater(t, evals[0].ZScore, 0.0)
	assert.Less(t, evals[9].ZScore, 0.0)
	assert.InDelta(t, -evals[9].ZScore, evals[0].ZScore, 0.0001)
}

func TestAllocate_SingleMemberGroup(t *testing.T) {
	// A group of one still gets a relative grade; z-score is pinned to 0.
	alloc, err := evaluation.NewAllocator(evaluation.DefaultQuota())
	require.NoError(t, err)

	evals := []*evaluation.ComprehensiveEvaluation{
		evalWith("solo", "Design", "3.5", evaluation.GradeA),
	}
	alloc.Allocate(evals)

	assert.Equal(t, 0.0, evals[0].ZScore)
	assert.Equal(t, evaluation.GradeB, evals[0].RelativeGrade, "the whole remainder lands in B for size 1")
}

func TestAllocate_IdenticalScores_ZeroZ(t *testing.T) {
	// All-identical scores give stddev 0; z must be 0, not NaN.
	alloc, err := evaluation.NewAllocator(evaluation.DefaultQuota())
	require.NoError(t, err)

	evals := []*evaluation.ComprehensiveEvaluation{
		evalWith("a", "Ops", "3.0", evaluation.GradeB),
		evalWith("b", "Ops", "3.0", evaluation.GradeB),
		evalWith("c", "Ops", "3.0", evaluation.GradeB),
	}
	alloc.Allocate(evals)

	for _, ev := range evals {
		assert.Equal(t, 0.0, ev.ZScore)
		assert.NotEmpty(t, ev.RelativeGrade)
	}
}

func TestAllocate_Idempotent(t *testing.T) {
	// GIVEN: A group already allocated
	// WHEN: Allocating again with unchanged scores
	// THEN: Every grade assignment is identical

	alloc, err := evaluation.NewAllocator(evaluation.DefaultQuota())
	require.NoError(t, err)

	evals := groupOfTen("Platform")
	alloc.Allocate(evals)

	first := make(map[evaluation.EvaluationID]evaluation.Grade)
	for _, ev := range evals {
		first[ev.ID] = ev.RelativeGrade
	}

	alloc.Allocate(evals)
	for _, ev := range evals {
		assert.Equal(t, first[ev.ID], ev.RelativeGrade, "id %s", ev.ID)
	}
}

func TestAllocateAll_GroupsIndependently(t *testing.T) {
	// GIVEN: Two departments of ten
	// WHEN: Allocating all
	// THEN: Each department gets its own curve with its own S slot

	alloc, err := evaluation.NewAllocator(evaluation.DefaultQuota())
	require.NoError(t, err)

	platform := groupOfTen("Platform")
	design := groupOfTen("Design")
	all := append(append([]*evaluation.ComprehensiveEvaluation{}, platform...), design...)

	alloc.AllocateAll(all)

	sCount := map[string]int{}
	for _, ev := range all {
		if ev.RelativeGrade == evaluation.GradeS {
			sCount[ev.GroupKey]++
		}
	}
	assert.Equal(t, 1, sCount["Platform"])
	assert.Equal(t, 1, sCount["Design"])
}

func TestAllocateAll_PositionGrouping(t *testing.T) {
	// GIVEN: One department graded at department x position granularity
	// WHEN: Allocating all with GroupKeyWithPosition as the group key
	// THEN: Each position forms its own peer group with its own S slot

	alloc, err := evaluation.NewAllocator(evaluation.DefaultQuota())
	require.NoError(t, err)

	var all []*evaluation.ComprehensiveEvaluation
	for _, position := range []string{"Engineer", "Manager"} {
		emp := evaluation.Employee{Department: "Platform", Position: position}
		for i, ev := range groupOfTen(emp.GroupKeyWithPosition()) {
			ev.ID = evaluation.EvaluationID(fmt.Sprintf("%s-e%d", position, i))
			all = append(all, ev)
		}
	}

	alloc.AllocateAll(all)

	sCount := map[string]int{}
	for _, ev := range all {
		if ev.RelativeGrade == evaluation.GradeS {
			sCount[ev.GroupKey]++
		}
	}
	assert.Equal(t, 1, sCount["Platform/Engineer"])
	assert.Equal(t, 1, sCount["Platform/Manager"])
}

func TestAllocator_InvalidQuota_Rejected(t *testing.T) {
	_, err := evaluation.NewAllocator(evaluation.QuotaDistribution{
		Percent: map[evaluation.Grade]float64{evaluation.GradeS: 10},
	})
	require.Error(t, err)
}
