/*
store.go - Persistence interfaces for the evaluation engine

PURPOSE:
  Defines the boundary between the engine and its persistence layer.
  Different implementations can use SQLite, PostgreSQL, or in-memory storage.

READ/WRITE SPLIT:
  Input collaborators (Directory, PeriodStore, InputStore) are read-only to
  the engine: the surrounding platform owns employees, periods, and raw
  evaluation inputs. Output collaborators (EvaluationStore, GrowthStore,
  SessionStore, AuditLog) are written by the engine.

APPEND-ONLY CONTRACT:
  Growth history rows, calibration decisions, and audit entries are
  append-only. There are no update or delete methods for them; a new
  calibration pass appends new decisions rather than rewriting old ones.

IMPLEMENTATIONS:
  - store/sqlite: Production SQLite
  - evaluation/store: In-memory for testing

SEE ALSO:
  - session.go: Uses SessionStore and AuditLog
  - growth.go: Uses GrowthStore
  - pipeline.go: Uses the full Store
*/
package evaluation

import (
	"context"
	"time"
)

// =============================================================================
// INPUT COLLABORATORS (read-only to the engine)
// =============================================================================

// Directory is the read-only employee directory view.
type Directory interface {
	GetEmployee(ctx context.Context, id EmployeeID) (*Employee, error)
	ListEmployees(ctx context.Context) ([]Employee, error)
}

// PeriodStore provides evaluation period records.
type PeriodStore interface {
	GetPeriod(ctx context.Context, id PeriodID) (*EvaluationPeriod, error)
	ActivePeriod(ctx context.Context) (*EvaluationPeriod, error)
}

// InputStore provides the raw per-axis inputs collected during a period.
// A nil result with nil error means the axis was never entered for the
// employee; the engine treats it as absent.
type InputStore interface {
	TasksFor(ctx context.Context, employeeID EmployeeID, periodID PeriodID) ([]Task, error)
	ExpertiseFor(ctx context.Context, employeeID EmployeeID, periodID PeriodID) (*ExpertiseInput, error)
	ImpactFor(ctx context.Context, employeeID EmployeeID, periodID PeriodID) (*ImpactInput, error)
}

// =============================================================================
// OUTPUT COLLABORATORS (engine writes)
// =============================================================================

// EvaluationStore persists comprehensive evaluations. Save is an upsert
// keyed by (employee, period); recomputation overwrites the derived fields,
// which is what makes batch reruns idempotent.
type EvaluationStore interface {
	SaveEvaluation(ctx context.Context, ev *ComprehensiveEvaluation) error
	GetEvaluation(ctx context.Context, id EvaluationID) (*ComprehensiveEvaluation, error)
	ListByPeriod(ctx context.Context, periodID PeriodID) ([]*ComprehensiveEvaluation, error)

	// ListByEmployee returns the employee's evaluations ordered newest
	// period first. Trend analysis and growth tracking consume this order.
	ListByEmployee(ctx context.Context, employeeID EmployeeID) ([]*ComprehensiveEvaluation, error)
}

// GrowthStore persists growth history, one row per (employee, period).
type GrowthStore interface {
	// SaveHistory inserts the row, or replaces the existing row for the
	// same (employee, period) when a batch recomputes it.
	SaveHistory(ctx context.Context, row *GrowthHistory) error

	// HistoryFor returns rows ordered newest period first.
	HistoryFor(ctx context.Context, employeeID EmployeeID) ([]*GrowthHistory, error)
}

// SessionStore persists calibration sessions and their decisions.
type SessionStore interface {
	SaveSession(ctx context.Context, s *Session) error
	GetSession(ctx context.Context, id SessionID) (*Session, error)

	// ActiveSessionForScope returns the IN_PROGRESS session for a scope, or
	// nil if none. Enforces the at-most-one-active-session-per-scope
	// invariant together with the session manager.
	ActiveSessionForScope(ctx context.Context, scope string) (*Session, error)
}

// =============================================================================
// AUDIT LOG - Append-only record of calibration actions
// =============================================================================

type AuditAction string

const (
	AuditSessionScheduled AuditAction = "session_scheduled"
	AuditSessionStarted   AuditAction = "session_started"
	AuditCaseReviewed     AuditAction = "case_reviewed"
	AuditImplicitAccept   AuditAction = "implicit_accept"
	AuditSessionFinalized AuditAction = "session_finalized"
	AuditSessionCancelled AuditAction = "session_cancelled"
)

// AuditEntry records who committed what during calibration.
type AuditEntry struct {
	ID           string
	At           time.Time
	Action       AuditAction
	SessionID    SessionID
	EvaluationID EvaluationID
	Detail       string
}

// AuditLog stores audit entries. Also append-only.
type AuditLog interface {
	AppendAudit(ctx context.Context, entry AuditEntry) error
	AuditForSession(ctx context.Context, sessionID SessionID) ([]AuditEntry, error)
}

// =============================================================================
// AGGREGATE STORE
// =============================================================================

// Store is the full persistence surface the engine needs. Both the sqlite
// and memory implementations satisfy it.
type Store interface {
	Directory
	PeriodStore
	InputStore
	EvaluationStore
	GrowthStore
	SessionStore
	AuditLog
}
