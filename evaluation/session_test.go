package evaluation_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/evaluation-engine/evaluation"
	"github.com/warp/evaluation-engine/evaluation/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// newCalibrationFixture seeds a period and ten graded evaluations in one
// department, with the top scorer carrying a large manager/relative gap.
func newCalibrationFixture(t *testing.T) (*evaluation.SessionManager, *store.Memory, []*evaluation.ComprehensiveEvaluation) {
	t.Helper()
	ctx := context.Background()

	mem := store.NewMemory()
	mem.AddPeriod(testPeriod("2025-H2", 2025, evaluation.PeriodSecondHalf))

	alloc, err := evaluation.NewAllocator(evaluation.DefaultQuota())
	require.NoError(t, err)

	evals := groupOfTen("Platform")
	// Managers graded almost everyone B; the curve lifts the top scorer to S
	// and pushes two optimistic manager grades down, so several cases carry
	// a two-step-or-more discrepancy.
	evals[2].ManagerGrade = evaluation.GradeS
	evals[9].ManagerGrade = evaluation.GradeA
	alloc.Allocate(evals)

	for _, ev := range evals {
		require.NoError(t, mem.SaveEvaluation(ctx, ev))
	}

	return evaluation.NewSessionManager(mem, evaluation.NewAnalyzer()), mem, evals
}

// =============================================================================
// SESSION LIFECYCLE
// =============================================================================

func TestSession_Schedule(t *testing.T) {
	mgr, _, _ := newCalibrationFixture(t)
	ctx := context.Background()

	s, err := mgr.Schedule(ctx, "H2 Platform calibration", "2025-H2", "Platform", evaluation.DefaultQuota())
	require.NoError(t, err)

	assert.Equal(t, evaluation.SessionScheduled, s.Status)
	assert.NotEmpty(t, s.ID)
	assert.Empty(t, s.Cases)
}

func TestSession_Schedule_UnknownPeriod_Rejected(t *testing.T) {
	mgr, _, _ := newCalibrationFixture(t)
	_, err := mgr.Schedule(context.Background(), "x", "1999-H1", "Platform", evaluation.DefaultQuota())
	require.Error(t, err)
	assert.True(t, evaluation.IsNotFound(err))
}

func TestSession_Schedule_InvalidQuota_Rejected(t *testing.T) {
	mgr, _, _ := newCalibrationFixture(t)
	bad := evaluation.QuotaDistribution{Percent: map[evaluation.Grade]float64{evaluation.GradeS: 10}}
	_, err := mgr.Schedule(context.Background(), "x", "2025-H2", "Platform", bad)
	require.Error(t, err)
}

func TestSession_Start_LoadsFlaggedCases(t *testing.T) {
	// GIVEN: A scheduled session over a scope with flagged discrepancies
	// WHEN: Starting it
	// THEN: The flagged case set is loaded and those evaluations move to
	//       IN_REVIEW

	mgr, mem, _ := newCalibrationFixture(t)
	ctx := context.Background()

	s, err := mgr.Schedule(ctx, "cal", "2025-H2", "Platform", evaluation.DefaultQuota())
	require.NoError(t, err)

	s, err = mgr.Start(ctx, s.ID, []string{"vp-eng", "hr-partner"})
	require.NoError(t, err)

	assert.Equal(t, evaluation.SessionInProgress, s.Status)
	require.NotEmpty(t, s.Cases)
	for _, c := range s.Cases {
		assert.True(t, c.Flagged)
		ev, err := mem.GetEvaluation(ctx, c.EvaluationID)
		require.NoError(t, err)
		assert.Equal(t, evaluation.EvalInReview, ev.Status)
	}
}

func TestSession_Start_Twice_Rejected(t *testing.T) {
	mgr, _, _ := newCalibrationFixture(t)
	ctx := context.Background()

	s, err := mgr.Schedule(ctx, "cal", "2025-H2", "Platform", evaluation.DefaultQuota())
	require.NoError(t, err)
	_, err = mgr.Start(ctx, s.ID, nil)
	require.NoError(t, err)

	_, err = mgr.Start(ctx, s.ID, nil)
	require.Error(t, err)
	assert.True(t, evaluation.IsState(err))
}

func TestSession_SecondActiveSessionForScope_Rejected(t *testing.T) {
	// At most one IN_PROGRESS session per scope.
	mgr, _, _ := newCalibrationFixture(t)
	ctx := context.Background()

	first, err := mgr.Schedule(ctx, "first", "2025-H2", "Platform", evaluation.DefaultQuota())
	require.NoError(t, err)
	_, err = mgr.Start(ctx, first.ID, nil)
	require.NoError(t, err)

	second, err := mgr.Schedule(ctx, "second", "2025-H2", "Platform", evaluation.DefaultQuota())
	require.NoError(t, err)
	_, err = mgr.Start(ctx, second.ID, nil)
	require.ErrorIs(t, err, evaluation.ErrSessionActive)
}

// =============================================================================
// CASE REVIEW - immediate partial commits
// =============================================================================

func TestSession_ReviewCase_CommitsImmediately(t *testing.T) {
	// GIVEN: An in-progress session with a flagged case
	// WHEN: A decision is recorded
	// THEN: The final grade is persisted right away, before finalize

	mgr, mem, _ := newCalibrationFixture(t)
	ctx := context.Background()

	s, err := mgr.Schedule(ctx, "cal", "2025-H2", "Platform", evaluation.DefaultQuota())
	require.NoError(t, err)
	s, err = mgr.Start(ctx, s.ID, []string{"vp-eng"})
	require.NoError(t, err)
	require.NotEmpty(t, s.Cases)

	target := s.Cases[0]
	err = mgr.ReviewCase(ctx, s.ID, target.EvaluationID, evaluation.DecisionInput{
		FinalGrade: evaluation.GradeAPlus,
		Rationale:  "cross-team scope undervalued by the curve",
		Unanimous:  true,
	})
	require.NoError(t, err)

	ev, err := mem.GetEvaluation(ctx, target.EvaluationID)
	require.NoError(t, err)
	assert.Equal(t, evaluation.GradeAPlus, ev.FinalGrade)
	assert.Equal(t, evaluation.EvalCompleted, ev.Status)
}

func TestSession_ReviewCase_InvalidGrade_Rejected(t *testing.T) {
	mgr, _, _ := newCalibrationFixture(t)
	ctx := context.Background()

	s, err := mgr.Schedule(ctx, "cal", "2025-H2", "Platform", evaluation.DefaultQuota())
	require.NoError(t, err)
	s, err = mgr.Start(ctx, s.ID, nil)
	require.NoError(t, err)

	err = mgr.ReviewCase(ctx, s.ID, s.Cases[0].EvaluationID, evaluation.DecisionInput{FinalGrade: "Z"})
	require.Error(t, err)
	assert.True(t, evaluation.IsValidation(err))
}

func TestSession_ReviewCase_AfterCompletion_Rejected(t *testing.T) {
	mgr, _, evals := newCalibrationFixture(t)
	ctx := context.Background()

	s, err := mgr.Schedule(ctx, "cal", "2025-H2", "Platform", evaluation.DefaultQuota())
	require.NoError(t, err)
	_, err = mgr.Start(ctx, s.ID, nil)
	require.NoError(t, err)
	_, err = mgr.Finalize(ctx, s.ID)
	require.NoError(t, err)

	err = mgr.ReviewCase(ctx, s.ID, evals[0].ID, evaluation.DecisionInput{FinalGrade: evaluation.GradeA})
	require.Error(t, err)
	assert.True(t, evaluation.IsState(err))
}

// =============================================================================
// FINALIZE - implicit accept of undecided cases
// =============================================================================

func TestSession_Finalize_ImplicitAcceptsRelativeGrade(t *testing.T) {
	// GIVEN: A session finalized with flagged cases never reviewed
	// WHEN: Finalizing
	// THEN: Every undecided evaluation in scope gets its relative grade as
	//       final, via an implicit decision

	mgr, mem, evals := newCalibrationFixture(t)
	ctx := context.Background()

	s, err := mgr.Schedule(ctx, "cal", "2025-H2", "Platform", evaluation.DefaultQuota())
	require.NoError(t, err)
	_, err = mgr.Start(ctx, s.ID, nil)
	require.NoError(t, err)

	s, err = mgr.Finalize(ctx, s.ID)
	require.NoError(t, err)

	assert.Equal(t, evaluation.SessionCompleted, s.Status)
	for _, orig := range evals {
		ev, err := mem.GetEvaluation(ctx, orig.ID)
		require.NoError(t, err)
		assert.Equal(t, ev.RelativeGrade, ev.FinalGrade, "id %s", ev.ID)
		assert.Equal(t, evaluation.EvalCompleted, ev.Status)
	}

	// Every scoped evaluation got a decision, all implicit.
	assert.Len(t, s.Decisions, len(evals))
	for _, d := range s.Decisions {
		assert.True(t, d.Implicit)
	}
}

func TestSession_Finalize_KeepsExplicitDecisions(t *testing.T) {
	mgr, mem, _ := newCalibrationFixture(t)
	ctx := context.Background()

	s, err := mgr.Schedule(ctx, "cal", "2025-H2", "Platform", evaluation.DefaultQuota())
	require.NoError(t, err)
	s, err = mgr.Start(ctx, s.ID, nil)
	require.NoError(t, err)
	require.NotEmpty(t, s.Cases)

	decided := s.Cases[0].EvaluationID
	err = mgr.ReviewCase(ctx, s.ID, decided, evaluation.DecisionInput{
		FinalGrade: evaluation.GradeS,
		Rationale:  "exceptional cross-org delivery",
	})
	require.NoError(t, err)

	_, err = mgr.Finalize(ctx, s.ID)
	require.NoError(t, err)

	ev, err := mem.GetEvaluation(ctx, decided)
	require.NoError(t, err)
	assert.Equal(t, evaluation.GradeS, ev.FinalGrade, "explicit decision survives finalize")
}

func TestSession_Finalize_NotInProgress_Rejected(t *testing.T) {
	mgr, _, _ := newCalibrationFixture(t)
	ctx := context.Background()

	s, err := mgr.Schedule(ctx, "cal", "2025-H2", "Platform", evaluation.DefaultQuota())
	require.NoError(t, err)

	_, err = mgr.Finalize(ctx, s.ID)
	require.Error(t, err)
	assert.True(t, evaluation.IsState(err))
}

// =============================================================================
// CANCEL - no defaults committed
// =============================================================================

func TestSession_Cancel_CommitsNoDefaults(t *testing.T) {
	// GIVEN: An in-progress session with one explicit decision
	// WHEN: Cancelling
	// THEN: The explicit decision stays committed; undecided evaluations
	//       keep an empty final grade

	mgr, mem, evals := newCalibrationFixture(t)
	ctx := context.Background()

	s, err := mgr.Schedule(ctx, "cal", "2025-H2", "Platform", evaluation.DefaultQuota())
	require.NoError(t, err)
	s, err = mgr.Start(ctx, s.ID, nil)
	require.NoError(t, err)
	require.NotEmpty(t, s.Cases)

	decided := s.Cases[0].EvaluationID
	err = mgr.ReviewCase(ctx, s.ID, decided, evaluation.DecisionInput{FinalGrade: evaluation.GradeA})
	require.NoError(t, err)

	s, err = mgr.Cancel(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, evaluation.SessionCancelled, s.Status)

	for _, orig := range evals {
		ev, err := mem.GetEvaluation(ctx, orig.ID)
		require.NoError(t, err)
		if ev.ID == decided {
			assert.Equal(t, evaluation.GradeA, ev.FinalGrade)
		} else {
			assert.Empty(t, ev.FinalGrade, "id %s", ev.ID)
		}
	}
}

// =============================================================================
// AUDIT TRAIL
// =============================================================================

func TestSession_AuditTrail(t *testing.T) {
	mgr, mem, _ := newCalibrationFixture(t)
	ctx := context.Background()

	s, err := mgr.Schedule(ctx, "cal", "2025-H2", "Platform", evaluation.DefaultQuota())
	require.NoError(t, err)
	s, err = mgr.Start(ctx, s.ID, nil)
	require.NoError(t, err)
	require.NotEmpty(t, s.Cases)
	err = mgr.ReviewCase(ctx, s.ID, s.Cases[0].EvaluationID, evaluation.DecisionInput{FinalGrade: evaluation.GradeA})
	require.NoError(t, err)
	_, err = mgr.Finalize(ctx, s.ID)
	require.NoError(t, err)

	entries, err := mem.AuditForSession(ctx, s.ID)
	require.NoError(t, err)

	actions := make(map[evaluation.AuditAction]int)
	for _, e := range entries {
		actions[e.Action]++
	}
	assert.Equal(t, 1, actions[evaluation.AuditSessionScheduled])
	assert.Equal(t, 1, actions[evaluation.AuditSessionStarted])
	assert.Equal(t, 1, actions[evaluation.AuditCaseReviewed])
	assert.GreaterOrEqual(t, actions[evaluation.AuditImplicitAccept], 1)
	assert.Equal(t, 1, actions[evaluation.AuditSessionFinalized])
}
