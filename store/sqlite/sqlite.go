/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements the full evaluation.Store surface (directory, periods, axis
  inputs, evaluations, growth history, calibration sessions, audit log)
  using SQLite. In production, the same patterns apply to PostgreSQL - only
  minor SQL dialect differences.

INTERFACES IMPLEMENTED:
  evaluation.Directory:       Employee directory (seeded by the platform)
  evaluation.PeriodStore:     Evaluation period records
  evaluation.InputStore:      Raw per-axis inputs
  evaluation.EvaluationStore: Comprehensive evaluations (upsert per employee+period)
  evaluation.GrowthStore:     Growth history, one row per employee and period
  evaluation.SessionStore:    Calibration sessions and decisions
  evaluation.AuditLog:        Append-only calibration audit trail

WRITE DISCIPLINE:
  audit_log has no UPDATE or DELETE path. growth_history and evaluations
  are keyed by (employee, period): a batch rerun replaces the row for its
  period and never touches other periods.

KEY TABLES:
  employees:      Directory records
  periods:        Evaluation period windows
  tasks:          Contribution axis inputs (per employee x period)
  expertise:      Expertise axis inputs (checklist stored as JSON)
  impact:         Impact axis categorical inputs
  evaluations:    One row per (employee, period); derived fields overwritten
                  on recomputation, which keeps batch reruns idempotent
  growth_history: Append-only level and streak snapshots
  sessions:       Calibration sessions; cases and decisions as JSON
  audit_log:      Append-only calibration actions

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/evaluations.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  pipeline := evaluation.NewPipeline(calc, alloc, store)

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - evaluation/store.go: Interface definitions
  - evaluation/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/evaluation-engine/evaluation"
)

// Store implements evaluation.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection keeps writers from tripping over SQLITE_BUSY and
	// keeps ":memory:" databases on one shared schema.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		department TEXT NOT NULL,
		position TEXT NOT NULL,
		growth_level INTEGER NOT NULL,
		hire_date TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_employees_department
		ON employees(department);

	CREATE TABLE IF NOT EXISTS periods (
		id TEXT PRIMARY KEY,
		year INTEGER NOT NULL,
		type TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		status TEXT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT FALSE
	);

	-- Contribution axis inputs
	CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		period_id TEXT NOT NULL,
		title TEXT NOT NULL,
		weight INTEGER NOT NULL,
		scope TEXT NOT NULL,
		method TEXT NOT NULL,
		target_value TEXT NOT NULL,
		actual_value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_tasks_employee_period
		ON tasks(employee_id, period_id);

	-- Expertise axis inputs (checklist as JSON)
	CREATE TABLE IF NOT EXISTS expertise (
		employee_id TEXT NOT NULL,
		period_id TEXT NOT NULL,
		focus TEXT NOT NULL,
		checklist_json TEXT NOT NULL,
		PRIMARY KEY (employee_id, period_id)
	);

	-- Impact axis inputs
	CREATE TABLE IF NOT EXISTS impact (
		employee_id TEXT NOT NULL,
		period_id TEXT NOT NULL,
		scope TEXT NOT NULL,
		values_practice TEXT NOT NULL,
		leadership_demo TEXT NOT NULL,
		PRIMARY KEY (employee_id, period_id)
	);

	-- One row per (employee, period). Derived fields are overwritten on
	-- recomputation; FinalGrade survives because recomputation writes the
	-- whole record it loaded and adjusted.
	CREATE TABLE IF NOT EXISTS evaluations (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		period_id TEXT NOT NULL,
		group_key TEXT NOT NULL,
		contribution_score TEXT,
		contribution_achieved BOOLEAN,
		expertise_score TEXT,
		expertise_achieved BOOLEAN,
		impact_score TEXT,
		impact_achieved BOOLEAN,
		weights_normalized BOOLEAN NOT NULL DEFAULT FALSE,
		overall_score TEXT NOT NULL,
		manager_grade TEXT NOT NULL,
		relative_grade TEXT,
		grade_difference INTEGER NOT NULL DEFAULT 0,
		z_score REAL NOT NULL DEFAULT 0,
		final_grade TEXT,
		status TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		UNIQUE (employee_id, period_id)
	);

	CREATE INDEX IF NOT EXISTS idx_evaluations_period
		ON evaluations(period_id);
	CREATE INDEX IF NOT EXISTS idx_evaluations_employee
		ON evaluations(employee_id);

	-- One growth snapshot per (employee, period); batch recomputation
	-- replaces the row instead of stacking duplicates, which would
	-- inflate streak counts.
	CREATE TABLE IF NOT EXISTS growth_history (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		period_id TEXT NOT NULL,
		period_seq INTEGER NOT NULL,
		level INTEGER NOT NULL,
		contribution TEXT,
		expertise TEXT,
		impact TEXT,
		meets_score_requirement BOOLEAN NOT NULL,
		consecutive_achievements INTEGER NOT NULL,
		is_promotion_eligible BOOLEAN NOT NULL,
		created_at TEXT NOT NULL,
		UNIQUE (employee_id, period_id)
	);

	CREATE INDEX IF NOT EXISTS idx_growth_history_employee
		ON growth_history(employee_id, period_seq DESC);

	-- Calibration sessions. Cases and decisions are JSON documents; they
	-- are read and written as a unit with the session.
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		period_id TEXT NOT NULL,
		scope TEXT NOT NULL,
		participants_json TEXT NOT NULL,
		quota_json TEXT NOT NULL,
		status TEXT NOT NULL,
		cases_json TEXT NOT NULL,
		decisions_json TEXT NOT NULL,
		created_at TEXT NOT NULL,
		started_at TEXT,
		completed_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_scope_status
		ON sessions(scope, status);

	-- Append-only audit trail
	CREATE TABLE IF NOT EXISTS audit_log (
		id TEXT PRIMARY KEY,
		at TEXT NOT NULL,
		action TEXT NOT NULL,
		session_id TEXT NOT NULL,
		evaluation_id TEXT,
		detail TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_audit_log_session
		ON audit_log(session_id, at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// DIRECTORY (evaluation.Directory interface)
// =============================================================================

// SaveEmployee inserts or replaces a directory record. The engine only
// reads employees; this is the platform-side seeding path.
func (s *Store) SaveEmployee(ctx context.Context, emp evaluation.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO employees (id, name, department, position, growth_level, hire_date)
		VALUES (?, ?, ?, ?, ?, ?)`,
		emp.ID, emp.Name, emp.Department, emp.Position, emp.GrowthLevel,
		emp.HireDate.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save employee: %w", err)
	}
	return nil
}

func (s *Store) GetEmployee(ctx context.Context, id evaluation.EmployeeID) (*evaluation.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, department, position, growth_level, hire_date
		FROM employees WHERE id = ?`, id)

	emp, err := scanEmployee(row)
	if err == sql.ErrNoRows {
		return nil, evaluation.ErrEmployeeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get employee: %w", err)
	}
	return emp, nil
}

func (s *Store) ListEmployees(ctx context.Context) ([]evaluation.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, department, position, growth_level, hire_date
		FROM employees ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	defer rows.Close()

	var employees []evaluation.Employee
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		employees = append(employees, *emp)
	}
	return employees, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEmployee(row scanner) (*evaluation.Employee, error) {
	var emp evaluation.Employee
	var hireDate string
	if err := row.Scan(&emp.ID, &emp.Name, &emp.Department, &emp.Position, &emp.GrowthLevel, &hireDate); err != nil {
		return nil, err
	}
	t, err := time.Parse(time.RFC3339, hireDate)
	if err != nil {
		return nil, fmt.Errorf("invalid hire_date: %w", err)
	}
	emp.HireDate = t
	return &emp, nil
}

// =============================================================================
// PERIODS (evaluation.PeriodStore interface)
// =============================================================================

// SavePeriod inserts or replaces a period record. Platform-side seeding.
func (s *Store) SavePeriod(ctx context.Context, p evaluation.EvaluationPeriod) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO periods (id, year, type, start_date, end_date, status, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Year, p.Type,
		p.Start.UTC().Format(time.RFC3339), p.End.UTC().Format(time.RFC3339),
		p.Status, p.IsActive,
	)
	if err != nil {
		return fmt.Errorf("failed to save period: %w", err)
	}
	return nil
}

func (s *Store) GetPeriod(ctx context.Context, id evaluation.PeriodID) (*evaluation.EvaluationPeriod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryPeriod(ctx, `
		SELECT id, year, type, start_date, end_date, status, is_active
		FROM periods WHERE id = ?`, id)
}

func (s *Store) ActivePeriod(ctx context.Context) (*evaluation.EvaluationPeriod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryPeriod(ctx, `
		SELECT id, year, type, start_date, end_date, status, is_active
		FROM periods WHERE is_active = TRUE LIMIT 1`)
}

func (s *Store) queryPeriod(ctx context.Context, query string, args ...any) (*evaluation.EvaluationPeriod, error) {
	var p evaluation.EvaluationPeriod
	var start, end string
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&p.ID, &p.Year, &p.Type, &start, &end, &p.Status, &p.IsActive)
	if err == sql.ErrNoRows {
		return nil, evaluation.ErrPeriodNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get period: %w", err)
	}
	if p.Start, err = time.Parse(time.RFC3339, start); err != nil {
		return nil, fmt.Errorf("invalid start_date: %w", err)
	}
	if p.End, err = time.Parse(time.RFC3339, end); err != nil {
		return nil, fmt.Errorf("invalid end_date: %w", err)
	}
	return &p, nil
}

// =============================================================================
// AXIS INPUTS (evaluation.InputStore interface)
// =============================================================================

// SaveTasks replaces the employee's task set for a period.
func (s *Store) SaveTasks(ctx context.Context, employeeID evaluation.EmployeeID, periodID evaluation.PeriodID, tasks []evaluation.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM tasks WHERE employee_id = ? AND period_id = ?`, employeeID, periodID); err != nil {
		return fmt.Errorf("failed to clear tasks: %w", err)
	}
	for _, t := range tasks {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO tasks (id, employee_id, period_id, title, weight, scope, method, target_value, actual_value)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			t.ID, employeeID, periodID, t.Title, t.Weight, t.Scope, t.Method,
			t.TargetValue.String(), t.ActualValue.String(),
		); err != nil {
			return fmt.Errorf("failed to insert task: %w", err)
		}
	}
	return tx.Commit()
}

func (s *Store) TasksFor(ctx context.Context, employeeID evaluation.EmployeeID, periodID evaluation.PeriodID) ([]evaluation.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, weight, scope, method, target_value, actual_value
		FROM tasks WHERE employee_id = ? AND period_id = ? ORDER BY id`,
		employeeID, periodID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []evaluation.Task
	for rows.Next() {
		var t evaluation.Task
		var target, actual string
		if err := rows.Scan(&t.ID, &t.Title, &t.Weight, &t.Scope, &t.Method, &target, &actual); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		if t.TargetValue, err = decimal.NewFromString(target); err != nil {
			return nil, fmt.Errorf("invalid target_value: %w", err)
		}
		if t.ActualValue, err = decimal.NewFromString(actual); err != nil {
			return nil, fmt.Errorf("invalid actual_value: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// SaveExpertise stores the expertise input for a period.
func (s *Store) SaveExpertise(ctx context.Context, employeeID evaluation.EmployeeID, periodID evaluation.PeriodID, in evaluation.ExpertiseInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	checklist, err := json.Marshal(in.Checklist)
	if err != nil {
		return fmt.Errorf("failed to marshal checklist: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO expertise (employee_id, period_id, focus, checklist_json)
		VALUES (?, ?, ?, ?)`,
		employeeID, periodID, in.Focus, string(checklist))
	if err != nil {
		return fmt.Errorf("failed to save expertise: %w", err)
	}
	return nil
}

func (s *Store) ExpertiseFor(ctx context.Context, employeeID evaluation.EmployeeID, periodID evaluation.PeriodID) (*evaluation.ExpertiseInput, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var in evaluation.ExpertiseInput
	var checklist string
	err := s.db.QueryRowContext(ctx, `
		SELECT focus, checklist_json FROM expertise
		WHERE employee_id = ? AND period_id = ?`,
		employeeID, periodID).Scan(&in.Focus, &checklist)
	if err == sql.ErrNoRows {
		return nil, nil // absent axis
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get expertise: %w", err)
	}
	if err := json.Unmarshal([]byte(checklist), &in.Checklist); err != nil {
		return nil, fmt.Errorf("invalid checklist_json: %w", err)
	}
	return &in, nil
}

// SaveImpact stores the impact input for a period.
func (s *Store) SaveImpact(ctx context.Context, employeeID evaluation.EmployeeID, periodID evaluation.PeriodID, in evaluation.ImpactInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO impact (employee_id, period_id, scope, values_practice, leadership_demo)
		VALUES (?, ?, ?, ?, ?)`,
		employeeID, periodID, in.Scope, in.ValuesPractice, in.LeadershipDemo)
	if err != nil {
		return fmt.Errorf("failed to save impact: %w", err)
	}
	return nil
}

func (s *Store) ImpactFor(ctx context.Context, employeeID evaluation.EmployeeID, periodID evaluation.PeriodID) (*evaluation.ImpactInput, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var in evaluation.ImpactInput
	err := s.db.QueryRowContext(ctx, `
		SELECT scope, values_practice, leadership_demo FROM impact
		WHERE employee_id = ? AND period_id = ?`,
		employeeID, periodID).Scan(&in.Scope, &in.ValuesPractice, &in.LeadershipDemo)
	if err == sql.ErrNoRows {
		return nil, nil // absent axis
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get impact: %w", err)
	}
	return &in, nil
}

// =============================================================================
// EVALUATIONS (evaluation.EvaluationStore interface)
// =============================================================================

// SaveEvaluation upserts the record keyed by (employee, period).
func (s *Store) SaveEvaluation(ctx context.Context, ev *evaluation.ComprehensiveEvaluation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	contribScore, contribAchieved := axisColumns(ev.Contribution)
	expScore, expAchieved := axisColumns(ev.Expertise)
	impScore, impAchieved := axisColumns(ev.Impact)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO evaluations
		(id, employee_id, period_id, group_key,
		 contribution_score, contribution_achieved,
		 expertise_score, expertise_achieved,
		 impact_score, impact_achieved,
		 weights_normalized, overall_score, manager_grade, relative_grade,
		 grade_difference, z_score, final_grade, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (employee_id, period_id) DO UPDATE SET
			group_key = excluded.group_key,
			contribution_score = excluded.contribution_score,
			contribution_achieved = excluded.contribution_achieved,
			expertise_score = excluded.expertise_score,
			expertise_achieved = excluded.expertise_achieved,
			impact_score = excluded.impact_score,
			impact_achieved = excluded.impact_achieved,
			weights_normalized = excluded.weights_normalized,
			overall_score = excluded.overall_score,
			manager_grade = excluded.manager_grade,
			relative_grade = excluded.relative_grade,
			grade_difference = excluded.grade_difference,
			z_score = excluded.z_score,
			final_grade = excluded.final_grade,
			status = excluded.status,
			updated_at = excluded.updated_at`,
		ev.ID, ev.EmployeeID, ev.PeriodID, ev.GroupKey,
		contribScore, contribAchieved,
		expScore, expAchieved,
		impScore, impAchieved,
		ev.WeightsNormalized, ev.OverallScore.String(), ev.ManagerGrade,
		nullString(string(ev.RelativeGrade)),
		ev.GradeDifference, ev.ZScore,
		nullString(string(ev.FinalGrade)),
		ev.Status,
		ev.CreatedAt.UTC().Format(time.RFC3339),
		ev.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save evaluation: %w", err)
	}
	return nil
}

func (s *Store) GetEvaluation(ctx context.Context, id evaluation.EvaluationID) (*evaluation.ComprehensiveEvaluation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	evals, err := s.queryEvaluations(ctx, selectEvaluation+` WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(evals) == 0 {
		return nil, evaluation.ErrEvaluationNotFound
	}
	return evals[0], nil
}

func (s *Store) ListByPeriod(ctx context.Context, periodID evaluation.PeriodID) ([]*evaluation.ComprehensiveEvaluation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryEvaluations(ctx,
		selectEvaluation+` WHERE period_id = ? ORDER BY employee_id`, periodID)
}

// ListByEmployee orders by period sequence descending (newest first), as
// trend analysis and growth tracking expect.
func (s *Store) ListByEmployee(ctx context.Context, employeeID evaluation.EmployeeID) ([]*evaluation.ComprehensiveEvaluation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryEvaluations(ctx, selectEvaluation+`
		WHERE employee_id = ?
		ORDER BY (SELECT year * 10 + CASE type WHEN 'H1' THEN 1 WHEN 'H2' THEN 2 ELSE 3 END
		          FROM periods WHERE periods.id = evaluations.period_id) DESC`,
		employeeID)
}

const selectEvaluation = `
	SELECT id, employee_id, period_id, group_key,
	       contribution_score, contribution_achieved,
	       expertise_score, expertise_achieved,
	       impact_score, impact_achieved,
	       weights_normalized, overall_score, manager_grade, relative_grade,
	       grade_difference, z_score, final_grade, status, created_at, updated_at
	FROM evaluations`

func (s *Store) queryEvaluations(ctx context.Context, query string, args ...any) ([]*evaluation.ComprehensiveEvaluation, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query evaluations: %w", err)
	}
	defer rows.Close()

	var evals []*evaluation.ComprehensiveEvaluation
	for rows.Next() {
		ev, err := scanEvaluation(rows)
		if err != nil {
			return nil, err
		}
		evals = append(evals, ev)
	}
	return evals, rows.Err()
}

func scanEvaluation(rows *sql.Rows) (*evaluation.ComprehensiveEvaluation, error) {
	var ev evaluation.ComprehensiveEvaluation
	var contribScore, expScore, impScore sql.NullString
	var contribAch, expAch, impAch sql.NullBool
	var overall string
	var relative, final sql.NullString
	var createdAt, updatedAt string

	err := rows.Scan(
		&ev.ID, &ev.EmployeeID, &ev.PeriodID, &ev.GroupKey,
		&contribScore, &contribAch,
		&expScore, &expAch,
		&impScore, &impAch,
		&ev.WeightsNormalized, &overall, &ev.ManagerGrade, &relative,
		&ev.GradeDifference, &ev.ZScore, &final, &ev.Status,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan evaluation: %w", err)
	}

	if ev.Contribution, err = axisFromColumns(evaluation.AxisContribution, contribScore, contribAch); err != nil {
		return nil, err
	}
	if ev.Expertise, err = axisFromColumns(evaluation.AxisExpertise, expScore, expAch); err != nil {
		return nil, err
	}
	if ev.Impact, err = axisFromColumns(evaluation.AxisImpact, impScore, impAch); err != nil {
		return nil, err
	}

	if ev.OverallScore, err = decimal.NewFromString(overall); err != nil {
		return nil, fmt.Errorf("invalid overall_score: %w", err)
	}
	if relative.Valid {
		ev.RelativeGrade = evaluation.Grade(relative.String)
	}
	if final.Valid {
		ev.FinalGrade = evaluation.Grade(final.String)
	}
	if ev.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("invalid created_at: %w", err)
	}
	if ev.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return nil, fmt.Errorf("invalid updated_at: %w", err)
	}
	return &ev, nil
}

func axisColumns(r *evaluation.AxisResult) (any, any) {
	if r == nil {
		return nil, nil
	}
	return r.Score.String(), r.Achieved
}

func axisFromColumns(axis evaluation.Axis, score sql.NullString, achieved sql.NullBool) (*evaluation.AxisResult, error) {
	if !score.Valid {
		return nil, nil
	}
	d, err := decimal.NewFromString(score.String)
	if err != nil {
		return nil, fmt.Errorf("invalid %s score: %w", axis, err)
	}
	return &evaluation.AxisResult{Axis: axis, Score: d, Achieved: achieved.Bool}, nil
}

// =============================================================================
// GROWTH HISTORY (evaluation.GrowthStore interface)
// =============================================================================

// SaveHistory inserts a growth snapshot, replacing the existing row for
// the same (employee, period) on recomputation.
func (s *Store) SaveHistory(ctx context.Context, row *evaluation.GrowthHistory) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO growth_history
		(id, employee_id, period_id, period_seq, level,
		 contribution, expertise, impact,
		 meets_score_requirement, consecutive_achievements, is_promotion_eligible, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (employee_id, period_id) DO UPDATE SET
			id = excluded.id,
			period_seq = excluded.period_seq,
			level = excluded.level,
			contribution = excluded.contribution,
			expertise = excluded.expertise,
			impact = excluded.impact,
			meets_score_requirement = excluded.meets_score_requirement,
			consecutive_achievements = excluded.consecutive_achievements,
			is_promotion_eligible = excluded.is_promotion_eligible,
			created_at = excluded.created_at`,
		row.ID, row.EmployeeID, row.PeriodID, row.PeriodSeq, row.Level,
		decimalColumn(row.Contribution), decimalColumn(row.Expertise), decimalColumn(row.Impact),
		row.MeetsScoreRequirement, row.ConsecutiveAchievements, row.IsPromotionEligible,
		row.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save history: %w", err)
	}
	return nil
}

func (s *Store) HistoryFor(ctx context.Context, employeeID evaluation.EmployeeID) ([]*evaluation.GrowthHistory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, employee_id, period_id, period_seq, level,
		       contribution, expertise, impact,
		       meets_score_requirement, consecutive_achievements, is_promotion_eligible, created_at
		FROM growth_history WHERE employee_id = ?
		ORDER BY period_seq DESC, created_at DESC`, employeeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var history []*evaluation.GrowthHistory
	for rows.Next() {
		var h evaluation.GrowthHistory
		var contrib, exp, imp sql.NullString
		var createdAt string
		if err := rows.Scan(
			&h.ID, &h.EmployeeID, &h.PeriodID, &h.PeriodSeq, &h.Level,
			&contrib, &exp, &imp,
			&h.MeetsScoreRequirement, &h.ConsecutiveAchievements, &h.IsPromotionEligible,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan history: %w", err)
		}
		if h.Contribution, err = decimalFromColumn(contrib); err != nil {
			return nil, err
		}
		if h.Expertise, err = decimalFromColumn(exp); err != nil {
			return nil, err
		}
		if h.Impact, err = decimalFromColumn(imp); err != nil {
			return nil, err
		}
		if h.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return nil, fmt.Errorf("invalid created_at: %w", err)
		}
		history = append(history, &h)
	}
	return history, rows.Err()
}

func decimalColumn(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func decimalFromColumn(col sql.NullString) (*decimal.Decimal, error) {
	if !col.Valid {
		return nil, nil
	}
	d, err := decimal.NewFromString(col.String)
	if err != nil {
		return nil, fmt.Errorf("invalid decimal column: %w", err)
	}
	return &d, nil
}

// =============================================================================
// SESSIONS (evaluation.SessionStore interface)
// =============================================================================

func (s *Store) SaveSession(ctx context.Context, sess *evaluation.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	participants, err := json.Marshal(sess.Participants)
	if err != nil {
		return fmt.Errorf("failed to marshal participants: %w", err)
	}
	quota, err := json.Marshal(sess.Quota.Percent)
	if err != nil {
		return fmt.Errorf("failed to marshal quota: %w", err)
	}
	cases, err := json.Marshal(sess.Cases)
	if err != nil {
		return fmt.Errorf("failed to marshal cases: %w", err)
	}
	decisions, err := json.Marshal(sess.Decisions)
	if err != nil {
		return fmt.Errorf("failed to marshal decisions: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO sessions
		(id, name, period_id, scope, participants_json, quota_json, status,
		 cases_json, decisions_json, created_at, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.Name, sess.PeriodID, sess.Scope,
		string(participants), string(quota), sess.Status,
		string(cases), string(decisions),
		sess.CreatedAt.UTC().Format(time.RFC3339),
		timeColumn(sess.StartedAt), timeColumn(sess.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (s *Store) GetSession(ctx context.Context, id evaluation.SessionID) (*evaluation.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.querySession(ctx, selectSession+` WHERE id = ?`, id)
	if err == sql.ErrNoRows {
		return nil, evaluation.ErrSessionNotFound
	}
	return sess, err
}

func (s *Store) ActiveSessionForScope(ctx context.Context, scope string) (*evaluation.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.querySession(ctx,
		selectSession+` WHERE scope = ? AND status = ? LIMIT 1`,
		scope, evaluation.SessionInProgress)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return sess, err
}

const selectSession = `
	SELECT id, name, period_id, scope, participants_json, quota_json, status,
	       cases_json, decisions_json, created_at, started_at, completed_at
	FROM sessions`

func (s *Store) querySession(ctx context.Context, query string, args ...any) (*evaluation.Session, error) {
	var sess evaluation.Session
	var participants, quota, cases, decisions string
	var createdAt string
	var startedAt, completedAt sql.NullString

	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&sess.ID, &sess.Name, &sess.PeriodID, &sess.Scope,
		&participants, &quota, &sess.Status,
		&cases, &decisions, &createdAt, &startedAt, &completedAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}

	if err := json.Unmarshal([]byte(participants), &sess.Participants); err != nil {
		return nil, fmt.Errorf("invalid participants_json: %w", err)
	}
	sess.Quota.Percent = make(map[evaluation.Grade]float64)
	if err := json.Unmarshal([]byte(quota), &sess.Quota.Percent); err != nil {
		return nil, fmt.Errorf("invalid quota_json: %w", err)
	}
	if err := json.Unmarshal([]byte(cases), &sess.Cases); err != nil {
		return nil, fmt.Errorf("invalid cases_json: %w", err)
	}
	if err := json.Unmarshal([]byte(decisions), &sess.Decisions); err != nil {
		return nil, fmt.Errorf("invalid decisions_json: %w", err)
	}

	if sess.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("invalid created_at: %w", err)
	}
	if sess.StartedAt, err = timeFromColumn(startedAt); err != nil {
		return nil, err
	}
	if sess.CompletedAt, err = timeFromColumn(completedAt); err != nil {
		return nil, err
	}
	return &sess, nil
}

func timeColumn(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func timeFromColumn(col sql.NullString) (*time.Time, error) {
	if !col.Valid {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, col.String)
	if err != nil {
		return nil, fmt.Errorf("invalid time column: %w", err)
	}
	return &t, nil
}

// =============================================================================
// AUDIT LOG (evaluation.AuditLog interface)
// =============================================================================

func (s *Store) AppendAudit(ctx context.Context, entry evaluation.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_log (id, at, action, session_id, evaluation_id, detail)
		VALUES (?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.At.UTC().Format(time.RFC3339), entry.Action,
		entry.SessionID, nullString(string(entry.EvaluationID)), entry.Detail,
	)
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

func (s *Store) AuditForSession(ctx context.Context, sessionID evaluation.SessionID) ([]evaluation.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, at, action, session_id, evaluation_id, detail
		FROM audit_log WHERE session_id = ? ORDER BY at, id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer rows.Close()

	var entries []evaluation.AuditEntry
	for rows.Next() {
		var e evaluation.AuditEntry
		var at string
		var evalID sql.NullString
		if err := rows.Scan(&e.ID, &at, &e.Action, &e.SessionID, &evalID, &e.Detail); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		if e.At, err = time.Parse(time.RFC3339, at); err != nil {
			return nil, fmt.Errorf("invalid at: %w", err)
		}
		if evalID.Valid {
			e.EvaluationID = evaluation.EvaluationID(evalID.String)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// =============================================================================
// HELPERS
// =============================================================================

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
