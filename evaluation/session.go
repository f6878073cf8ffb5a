/*
session.go - Calibration session state machine

PURPOSE:
  Drives the multi-participant workflow that reviews flagged cases and
  commits final grades.

STATE MACHINE:
  SCHEDULED -> IN_PROGRESS -> COMPLETED
                   |
                   +-> CANCELLED (terminal, commits nothing)

  - Start loads the flagged-case set and fails if another session is
    already IN_PROGRESS for the same scope.
  - ReviewCase records a Decision and persists the final grade immediately:
    partial commits are visible, reviews are not all-or-nothing.
  - Finalize commits the relative grade as the final grade for every
    evaluation still lacking a decision (implicit accept). This
    default-on-silence policy is deliberate and preserved as-is.

FAILURE SEMANTICS:
  A single case review failing (e.g. unknown evaluation id) is reported to
  the caller and does not abort the session. Session-level misuse (finalize
  twice, review after completion) is a StateError; session state unchanged.
*/
package evaluation

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// SESSION TYPES
// =============================================================================

type SessionStatus string

const (
	SessionScheduled  SessionStatus = "SCHEDULED"
	SessionInProgress SessionStatus = "IN_PROGRESS"
	SessionCompleted  SessionStatus = "COMPLETED"
	SessionCancelled  SessionStatus = "CANCELLED"
)

// Decision binds one evaluation to a final grade. Append-only: a new
// calibration pass appends new decisions rather than editing old ones.
type Decision struct {
	ID           string
	EvaluationID EvaluationID
	FinalGrade   Grade
	Rationale    string
	Unanimous    bool
	Participants []string

	// Implicit marks a default committed by finalize rather than an
	// explicit review.
	Implicit  bool
	DecidedAt time.Time
}

// DecisionInput is what a participant submits when reviewing a case.
type DecisionInput struct {
	FinalGrade Grade
	Rationale  string
	Unanimous  bool
}

// Session is one calibration meeting over a period/scope. Mutable only
// while status is not COMPLETED.
type Session struct {
	ID           SessionID
	Name         string
	PeriodID     PeriodID
	Scope        string // peer-group key; empty means the whole period
	Participants []string
	Quota        QuotaDistribution
	Status       SessionStatus

	Cases     []CalibrationCase
	Decisions []Decision

	CreatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
}

// HasDecision reports whether the session already decided an evaluation.
func (s *Session) HasDecision(id EvaluationID) bool {
	for _, d := range s.Decisions {
		if d.EvaluationID == id {
			return true
		}
	}
	return false
}

// =============================================================================
// SESSION MANAGER
// =============================================================================

// SessionManager owns the session lifecycle against the store.
type SessionManager struct {
	store    Store
	analyzer *Analyzer
}

func NewSessionManager(store Store, analyzer *Analyzer) *SessionManager {
	return &SessionManager{store: store, analyzer: analyzer}
}

// Schedule creates a new session in SCHEDULED state.
func (m *SessionManager) Schedule(ctx context.Context, name string, periodID PeriodID, scope string, quota QuotaDistribution) (*Session, error) {
	if err := quota.Validate(); err != nil {
		return nil, err
	}
	if _, err := m.store.GetPeriod(ctx, periodID); err != nil {
		return nil, err
	}

	s := &Session{
		ID:        SessionID(uuid.NewString()),
		Name:      name,
		PeriodID:  periodID,
		Scope:     scope,
		Quota:     quota,
		Status:    SessionScheduled,
		CreatedAt: time.Now().UTC(),
	}
	if err := m.store.SaveSession(ctx, s); err != nil {
		return nil, err
	}
	m.audit(ctx, s.ID, "", AuditSessionScheduled, name)
	return s, nil
}

// Start transitions SCHEDULED -> IN_PROGRESS and loads the flagged-case set
// for the session's period and scope.
func (m *SessionManager) Start(ctx context.Context, sessionID SessionID, participants []string) (*Session, error) {
	s, err := m.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if s.Status != SessionScheduled {
		return nil, &StateError{Current: string(s.Status), Action: "start"}
	}

	active, err := m.store.ActiveSessionForScope(ctx, s.Scope)
	if err != nil {
		return nil, err
	}
	if active != nil && active.ID != s.ID {
		return nil, fmt.Errorf("scope %q: %w", s.Scope, ErrSessionActive)
	}

	evals, err := m.scopeEvaluations(ctx, s)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	s.Participants = append([]string(nil), participants...)
	s.Cases = m.analyzer.FlaggedCases(evals)
	s.Status = SessionInProgress
	s.StartedAt = &now

	// Flagged evaluations move to review while the session runs.
	for _, c := range s.Cases {
		if ev, err := m.store.GetEvaluation(ctx, c.EvaluationID); err == nil {
			ev.Status = EvalInReview
			ev.UpdatedAt = now
			if err := m.store.SaveEvaluation(ctx, ev); err != nil {
				return nil, err
			}
		}
	}

	if err := m.store.SaveSession(ctx, s); err != nil {
		return nil, err
	}
	m.audit(ctx, s.ID, "", AuditSessionStarted, fmt.Sprintf("%d flagged cases", len(s.Cases)))
	log.Printf("[Calibration] Session %s started: %d flagged cases in scope %q", s.ID, len(s.Cases), s.Scope)
	return s, nil
}

// ReviewCase records a decision and persists the final grade immediately.
// The commit is visible even if the session is later cancelled; decided
// cases are not rolled back.
func (m *SessionManager) ReviewCase(ctx context.Context, sessionID SessionID, evalID EvaluationID, input DecisionInput) error {
	s, err := m.store.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if s.Status == SessionCompleted || s.Status == SessionCancelled {
		return &StateError{Current: string(s.Status), Action: "review_case"}
	}
	if !input.FinalGrade.IsValid() {
		return &ValidationError{Field: "final_grade", Reason: "unknown grade " + string(input.FinalGrade)}
	}

	ev, err := m.store.GetEvaluation(ctx, evalID)
	if err != nil {
		// Reported to the caller; the session itself continues.
		return err
	}

	now := time.Now().UTC()
	ev.FinalGrade = input.FinalGrade
	ev.Status = EvalCompleted
	ev.UpdatedAt = now
	if err := m.store.SaveEvaluation(ctx, ev); err != nil {
		return err
	}

	s.Decisions = append(s.Decisions, Decision{
		ID:           uuid.NewString(),
		EvaluationID: evalID,
		FinalGrade:   input.FinalGrade,
		Rationale:    input.Rationale,
		Unanimous:    input.Unanimous,
		Participants: append([]string(nil), s.Participants...),
		DecidedAt:    now,
	})
	if err := m.store.SaveSession(ctx, s); err != nil {
		return err
	}
	m.audit(ctx, s.ID, evalID, AuditCaseReviewed, string(input.FinalGrade))
	return nil
}

// Finalize transitions IN_PROGRESS -> COMPLETED. Every evaluation in scope
// still lacking a decision retains its relative grade as the final grade.
func (m *SessionManager) Finalize(ctx context.Context, sessionID SessionID) (*Session, error) {
	s, err := m.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if s.Status != SessionInProgress {
		return nil, &StateError{Current: string(s.Status), Action: "finalize"}
	}

	evals, err := m.scopeEvaluations(ctx, s)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	implicit := 0
	for _, ev := range evals {
		if s.HasDecision(ev.ID) || ev.FinalGrade != "" {
			continue
		}
		ev.FinalGrade = ev.RelativeGrade
		ev.Status = EvalCompleted
		ev.UpdatedAt = now
		if err := m.store.SaveEvaluation(ctx, ev); err != nil {
			return nil, err
		}
		s.Decisions = append(s.Decisions, Decision{
			ID:           uuid.NewString(),
			EvaluationID: ev.ID,
			FinalGrade:   ev.RelativeGrade,
			Rationale:    "implicit accept of relative grade",
			Participants: append([]string(nil), s.Participants...),
			Implicit:     true,
			DecidedAt:    now,
		})
		m.audit(ctx, s.ID, ev.ID, AuditImplicitAccept, string(ev.RelativeGrade))
		implicit++
	}

	s.Status = SessionCompleted
	s.CompletedAt = &now
	if err := m.store.SaveSession(ctx, s); err != nil {
		return nil, err
	}
	m.audit(ctx, s.ID, "", AuditSessionFinalized, fmt.Sprintf("%d implicit accepts", implicit))
	log.Printf("[Calibration] Session %s finalized: %d decisions (%d implicit)", s.ID, len(s.Decisions), implicit)
	return s, nil
}

// Cancel terminates the session without committing defaults. Decisions
// already reviewed stay committed.
func (m *SessionManager) Cancel(ctx context.Context, sessionID SessionID) (*Session, error) {
	s, err := m.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if s.Status == SessionCompleted || s.Status == SessionCancelled {
		return nil, &StateError{Current: string(s.Status), Action: "cancel"}
	}

	now := time.Now().UTC()
	s.Status = SessionCancelled
	s.CompletedAt = &now
	if err := m.store.SaveSession(ctx, s); err != nil {
		return nil, err
	}
	m.audit(ctx, s.ID, "", AuditSessionCancelled, "")
	return s, nil
}

// scopeEvaluations lists the period's evaluations restricted to the
// session's scope.
func (m *SessionManager) scopeEvaluations(ctx context.Context, s *Session) ([]*ComprehensiveEvaluation, error) {
	evals, err := m.store.ListByPeriod(ctx, s.PeriodID)
	if err != nil {
		return nil, err
	}
	if s.Scope == "" {
		return evals, nil
	}
	var scoped []*ComprehensiveEvaluation
	for _, ev := range evals {
		if ev.GroupKey == s.Scope {
			scoped = append(scoped, ev)
		}
	}
	return scoped, nil
}

func (m *SessionManager) audit(ctx context.Context, sessionID SessionID, evalID EvaluationID, action AuditAction, detail string) {
	entry := AuditEntry{
		ID:           uuid.NewString(),
		At:           time.Now().UTC(),
		Action:       action,
		SessionID:    sessionID,
		EvaluationID: evalID,
		Detail:       detail,
	}
	if err := m.store.AppendAudit(ctx, entry); err != nil {
		log.Printf("[Calibration] Audit append failed for session %s: %v", sessionID, err)
	}
}
