// Package store provides Store implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/evaluation-engine/evaluation"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type inputKey struct {
	EmployeeID evaluation.EmployeeID
	PeriodID   evaluation.PeriodID
}

type Memory struct {
	mu sync.RWMutex

	employees map[evaluation.EmployeeID]evaluation.Employee
	periods   map[evaluation.PeriodID]evaluation.EvaluationPeriod

	tasks     map[inputKey][]evaluation.Task
	expertise map[inputKey]*evaluation.ExpertiseInput
	impact    map[inputKey]*evaluation.ImpactInput

	evaluations map[evaluation.EvaluationID]*evaluation.ComprehensiveEvaluation
	history     map[evaluation.EmployeeID][]*evaluation.GrowthHistory
	sessions    map[evaluation.SessionID]*evaluation.Session
	audit       []evaluation.AuditEntry
}

func NewMemory() *Memory {
	return &Memory{
		employees:   make(map[evaluation.EmployeeID]evaluation.Employee),
		periods:     make(map[evaluation.PeriodID]evaluation.EvaluationPeriod),
		tasks:       make(map[inputKey][]evaluation.Task),
		expertise:   make(map[inputKey]*evaluation.ExpertiseInput),
		impact:      make(map[inputKey]*evaluation.ImpactInput),
		evaluations: make(map[evaluation.EvaluationID]*evaluation.ComprehensiveEvaluation),
		history:     make(map[evaluation.EmployeeID][]*evaluation.GrowthHistory),
		sessions:    make(map[evaluation.SessionID]*evaluation.Session),
	}
}

// =============================================================================
// SEEDING - Input collaborators are read-only to the engine, so the memory
// store exposes setters for tests and dev fixtures.
// =============================================================================

func (m *Memory) AddEmployee(emp evaluation.Employee) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.employees[emp.ID] = emp
}

func (m *Memory) AddPeriod(p evaluation.EvaluationPeriod) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.periods[p.ID] = p
}

func (m *Memory) SetTasks(employeeID evaluation.EmployeeID, periodID evaluation.PeriodID, tasks []evaluation.Task) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks[inputKey{employeeID, periodID}] = append([]evaluation.Task(nil), tasks...)
}

func (m *Memory) SetExpertise(employeeID evaluation.EmployeeID, periodID evaluation.PeriodID, input evaluation.ExpertiseInput) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expertise[inputKey{employeeID, periodID}] = &input
}

func (m *Memory) SetImpact(employeeID evaluation.EmployeeID, periodID evaluation.PeriodID, input evaluation.ImpactInput) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.impact[inputKey{employeeID, periodID}] = &input
}

// =============================================================================
// DIRECTORY / PERIODS / INPUTS
// =============================================================================

func (m *Memory) GetEmployee(_ context.Context, id evaluation.EmployeeID) (*evaluation.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	emp, ok := m.employees[id]
	if !ok {
		return nil, evaluation.ErrEmployeeNotFound
	}
	return &emp, nil
}

func (m *Memory) ListEmployees(_ context.Context) ([]evaluation.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]evaluation.Employee, 0, len(m.employees))
	for _, emp := range m.employees {
		out = append(out, emp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) GetPeriod(_ context.Context, id evaluation.PeriodID) (*evaluation.EvaluationPeriod, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.periods[id]
	if !ok {
		return nil, evaluation.ErrPeriodNotFound
	}
	return &p, nil
}

func (m *Memory) ActivePeriod(_ context.Context) (*evaluation.EvaluationPeriod, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.periods {
		if p.IsActive {
			active := p
			return &active, nil
		}
	}
	return nil, evaluation.ErrPeriodNotFound
}

func (m *Memory) TasksFor(_ context.Context, employeeID evaluation.EmployeeID, periodID evaluation.PeriodID) ([]evaluation.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]evaluation.Task(nil), m.tasks[inputKey{employeeID, periodID}]...), nil
}

func (m *Memory) ExpertiseFor(_ context.Context, employeeID evaluation.EmployeeID, periodID evaluation.PeriodID) (*evaluation.ExpertiseInput, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	in, ok := m.expertise[inputKey{employeeID, periodID}]
	if !ok {
		return nil, nil
	}
	cp := *in
	return &cp, nil
}

func (m *Memory) ImpactFor(_ context.Context, employeeID evaluation.EmployeeID, periodID evaluation.PeriodID) (*evaluation.ImpactInput, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	in, ok := m.impact[inputKey{employeeID, periodID}]
	if !ok {
		return nil, nil
	}
	cp := *in
	return &cp, nil
}

// =============================================================================
// EVALUATIONS
// =============================================================================

func (m *Memory) SaveEvaluation(_ context.Context, ev *evaluation.ComprehensiveEvaluation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.evaluations[ev.ID] = cloneEvaluation(ev)
	return nil
}

func (m *Memory) GetEvaluation(_ context.Context, id evaluation.EvaluationID) (*evaluation.ComprehensiveEvaluation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ev, ok := m.evaluations[id]
	if !ok {
		return nil, evaluation.ErrEvaluationNotFound
	}
	return cloneEvaluation(ev), nil
}

func (m *Memory) ListByPeriod(_ context.Context, periodID evaluation.PeriodID) ([]*evaluation.ComprehensiveEvaluation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*evaluation.ComprehensiveEvaluation
	for _, ev := range m.evaluations {
		if ev.PeriodID == periodID {
			out = append(out, cloneEvaluation(ev))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EmployeeID < out[j].EmployeeID })
	return out, nil
}

func (m *Memory) ListByEmployee(_ context.Context, employeeID evaluation.EmployeeID) ([]*evaluation.ComprehensiveEvaluation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*evaluation.ComprehensiveEvaluation
	for _, ev := range m.evaluations {
		if ev.EmployeeID == employeeID {
			out = append(out, cloneEvaluation(ev))
		}
	}
	// Newest period first.
	sort.Slice(out, func(i, j int) bool {
		return m.periodSeq(out[i].PeriodID) > m.periodSeq(out[j].PeriodID)
	})
	return out, nil
}

func (m *Memory) periodSeq(id evaluation.PeriodID) int {
	if p, ok := m.periods[id]; ok {
		return p.Sequence()
	}
	return 0
}

// =============================================================================
// GROWTH HISTORY (one row per employee and period)
// =============================================================================

func (m *Memory) SaveHistory(_ context.Context, row *evaluation.GrowthHistory) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *row
	rows := m.history[row.EmployeeID]
	for i, r := range rows {
		if r.PeriodID == row.PeriodID {
			rows[i] = &cp
			return nil
		}
	}
	rows = append(rows, &cp)
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].PeriodSeq > rows[j].PeriodSeq })
	m.history[row.EmployeeID] = rows
	return nil
}

func (m *Memory) HistoryFor(_ context.Context, employeeID evaluation.EmployeeID) ([]*evaluation.GrowthHistory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rows := m.history[employeeID]
	out := make([]*evaluation.GrowthHistory, len(rows))
	for i, r := range rows {
		cp := *r
		out[i] = &cp
	}
	return out, nil
}

// =============================================================================
// SESSIONS AND AUDIT
// =============================================================================

func (m *Memory) SaveSession(_ context.Context, s *evaluation.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = cloneSession(s)
	return nil
}

func (m *Memory) GetSession(_ context.Context, id evaluation.SessionID) (*evaluation.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, evaluation.ErrSessionNotFound
	}
	return cloneSession(s), nil
}

func (m *Memory) ActiveSessionForScope(_ context.Context, scope string) (*evaluation.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.sessions {
		if s.Scope == scope && s.Status == evaluation.SessionInProgress {
			return cloneSession(s), nil
		}
	}
	return nil, nil
}

func (m *Memory) AppendAudit(_ context.Context, entry evaluation.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audit = append(m.audit, entry)
	return nil
}

func (m *Memory) AuditForSession(_ context.Context, sessionID evaluation.SessionID) ([]evaluation.AuditEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []evaluation.AuditEntry
	for _, e := range m.audit {
		if e.SessionID == sessionID {
			out = append(out, e)
		}
	}
	return out, nil
}

// =============================================================================
// CLONE HELPERS - Callers must never alias internal state.
// =============================================================================

func cloneEvaluation(ev *evaluation.ComprehensiveEvaluation) *evaluation.ComprehensiveEvaluation {
	cp := *ev
	if ev.Contribution != nil {
		c := *ev.Contribution
		cp.Contribution = &c
	}
	if ev.Expertise != nil {
		e := *ev.Expertise
		cp.Expertise = &e
	}
	if ev.Impact != nil {
		i := *ev.Impact
		cp.Impact = &i
	}
	return &cp
}

func cloneSession(s *evaluation.Session) *evaluation.Session {
	cp := *s
	cp.Participants = append([]string(nil), s.Participants...)
	cp.Cases = append([]evaluation.CalibrationCase(nil), s.Cases...)
	cp.Decisions = append([]evaluation.Decision(nil), s.Decisions...)
	return &cp
}
