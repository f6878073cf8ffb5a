package evaluation

import "time"

// =============================================================================
// EVALUATION PERIOD - The time boundary every evaluation belongs to
// =============================================================================

// PeriodType defines the cadence of an evaluation period.
type PeriodType string

const (
	PeriodFirstHalf  PeriodType = "H1" // Jan 1 - Jun 30
	PeriodSecondHalf PeriodType = "H2" // Jul 1 - Dec 31
	PeriodAnnual     PeriodType = "ANNUAL"
)

type PeriodStatus string

const (
	PeriodPlanned    PeriodStatus = "PLANNED"
	PeriodOpen       PeriodStatus = "OPEN"
	PeriodEvaluating PeriodStatus = "EVALUATING"
	PeriodCompleted  PeriodStatus = "COMPLETED"
)

// EvaluationPeriod is a single evaluation window. At most one period is
// active at a time; the caller enforces that, not the engine. A COMPLETED
// period is immutable.
type EvaluationPeriod struct {
	ID       PeriodID
	Year     int
	Type     PeriodType
	Start    time.Time
	End      time.Time
	Status   PeriodStatus
	IsActive bool
}

// NewPeriod builds a period with the conventional date window for its type.
func NewPeriod(id PeriodID, year int, periodType PeriodType) EvaluationPeriod {
	p := EvaluationPeriod{ID: id, Year: year, Type: periodType, Status: PeriodPlanned}
	switch periodType {
	case PeriodFirstHalf:
		p.Start = time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
		p.End = time.Date(year, time.June, 30, 0, 0, 0, 0, time.UTC)
	case PeriodSecondHalf:
		p.Start = time.Date(year, time.July, 1, 0, 0, 0, 0, time.UTC)
		p.End = time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
	default:
		p.Start = time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
		p.End = time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
	}
	return p
}

// Sequence returns a totally ordered index for the period. Growth history
// streak walks and trend series rely on this ordering, not on dates.
func (p EvaluationPeriod) Sequence() int {
	ordinal := 0
	switch p.Type {
	case PeriodFirstHalf:
		ordinal = 1
	case PeriodSecondHalf:
		ordinal = 2
	case PeriodAnnual:
		ordinal = 3
	}
	return p.Year*10 + ordinal
}

// Before reports whether p is strictly earlier than other.
func (p EvaluationPeriod) Before(other EvaluationPeriod) bool {
	return p.Sequence() < other.Sequence()
}

// IsMutable reports whether the period still accepts evaluation writes.
func (p EvaluationPeriod) IsMutable() bool {
	return p.Status != PeriodCompleted
}

func (p EvaluationPeriod) String() string {
	return string(p.ID)
}
