/*
Package evaluation provides the core evaluation scoring engine.

PURPOSE:
  This package contains the types and algorithms that turn raw per-axis
  evaluation inputs into normalized scores, convert organization-wide score
  distributions into quota-constrained letter grades, detect cases needing
  human calibration, drive the calibration workflow, and compute growth-level
  promotion eligibility.

KEY CONCEPTS IN THIS FILE (types.go):
  - Grade: A letter grade (S..D) with a fixed numeric rank
  - Axis: One of the three evaluation dimensions (contribution, expertise, impact)
  - ComprehensiveEvaluation: The per-employee, per-period evaluation record
  - Employee: The read-only directory view the engine consumes

DESIGN PRINCIPLES:
  1. Determinism: Identical inputs always produce identical grades
  2. Precision: Uses decimal.Decimal for score arithmetic to avoid float drift
  3. Type Safety: Strong typing for IDs prevents mixing employee/period IDs
  4. Auditability: Grade changes carry reasons and decision records

SEE ALSO:
  - chart.go: Scoring chart lookup tables
  - axis.go: Per-axis score calculators
  - allocator.go: Relative grade allocation
*/
package evaluation

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EmployeeID string
type PeriodID string
type EvaluationID string
type SessionID string

// =============================================================================
// GRADES - Letter grades with fixed numeric ranks
// =============================================================================

type Grade string

const (
	GradeS     Grade = "S"
	GradeAPlus Grade = "A+"
	GradeA     Grade = "A"
	GradeBPlus Grade = "B+"
	GradeB     Grade = "B"
	GradeC     Grade = "C"
	GradeD     Grade = "D"
)

// gradeRanks is the canonical rank table. Grade comparisons and the
// calibration midpoint rule both go through it.
var gradeRanks = map[Grade]int{
	GradeS:     7,
	GradeAPlus: 6,
	GradeA:     5,
	GradeBPlus: 4,
	GradeB:     3,
	GradeC:     2,
	GradeD:     1,
}

var ranksToGrade = map[int]Grade{
	7: GradeS,
	6: GradeAPlus,
	5: GradeA,
	4: GradeBPlus,
	3: GradeB,
	2: GradeC,
	1: GradeD,
}

// Rank returns the numeric rank of a grade (S=7 .. D=1), or 0 for an
// unknown grade.
func (g Grade) Rank() int {
	return gradeRanks[g]
}

// IsValid reports whether g is one of the seven known grades.
func (g Grade) IsValid() bool {
	_, ok := gradeRanks[g]
	return ok
}

// GradeFromRank maps a numeric rank back to its grade. Ranks outside 1..7
// are clamped to the nearest valid grade.
func GradeFromRank(rank int) Grade {
	if rank < 1 {
		rank = 1
	}
	if rank > 7 {
		rank = 7
	}
	return ranksToGrade[rank]
}

// AllGrades lists every grade in descending rank order. Quota allocation
// walks this exact order.
func AllGrades() []Grade {
	return []Grade{GradeS, GradeAPlus, GradeA, GradeBPlus, GradeB, GradeC, GradeD}
}

// =============================================================================
// AXES - The three evaluation dimensions
// =============================================================================

type Axis string

const (
	AxisContribution Axis = "contribution"
	AxisExpertise    Axis = "expertise"
	AxisImpact       Axis = "impact"
)

// AchievedThreshold is the axis score at which an axis counts as achieved.
var AchievedThreshold = decimal.RequireFromString("3.0")

// AxisResult is the outcome of scoring a single axis for one employee in
// one period. Scores are always in [1.0, 4.0].
type AxisResult struct {
	Axis     Axis
	Score    decimal.Decimal
	Achieved bool
}

// NewAxisResult derives the achieved flag from the score.
func NewAxisResult(axis Axis, score decimal.Decimal) AxisResult {
	return AxisResult{
		Axis:     axis,
		Score:    score,
		Achieved: score.GreaterThanOrEqual(AchievedThreshold),
	}
}

// =============================================================================
// EMPLOYEE - Read-only directory view
// =============================================================================

// Employee is the slice of the employee directory the engine needs. The
// engine never writes employee records.
type Employee struct {
	ID          EmployeeID
	Name        string
	Department  string
	Position    string
	GrowthLevel int
	HireDate    time.Time
}

// GroupKey returns the peer-group key for relative grading. Grouping is by
// department; callers that grade by department and position compose their
// own key instead.
func (e Employee) GroupKey() string {
	return e.Department
}

// GroupKeyWithPosition returns the finer department x position grouping key.
func (e Employee) GroupKeyWithPosition() string {
	return e.Department + "/" + e.Position
}

// =============================================================================
// COMPREHENSIVE EVALUATION - One per (employee, period)
// =============================================================================

type EvaluationStatus string

const (
	EvalDraft     EvaluationStatus = "DRAFT"
	EvalSubmitted EvaluationStatus = "SUBMITTED"
	EvalInReview  EvaluationStatus = "IN_REVIEW"
	EvalCompleted EvaluationStatus = "COMPLETED"
)

// ComprehensiveEvaluation combines the three axis results into the overall
// record that relative grading, calibration, and growth tracking consume.
//
// FinalGrade is only ever set by a calibration session committing a decision,
// or by finalize's implicit accept of the relative grade.
type ComprehensiveEvaluation struct {
	ID         EvaluationID
	EmployeeID EmployeeID
	PeriodID   PeriodID

	// Peer-group key for relative grading (department, or department/position).
	GroupKey string

	// Cached axis results. A nil pointer means the axis was never scored;
	// aggregation treats it as absent, not zero.
	Contribution *AxisResult
	Expertise    *AxisResult
	Impact       *AxisResult

	// WeightsNormalized is set when the employee's task weights did not sum
	// to 100 and the contribution score was ratio-normalized instead.
	WeightsNormalized bool

	OverallScore decimal.Decimal

	// ManagerGrade is the rule-based first-pass grade (achieved-axis count).
	ManagerGrade Grade

	// RelativeGrade is the quota-constrained grade from the allocator.
	RelativeGrade Grade

	// GradeDifference = rank(RelativeGrade) - rank(ManagerGrade).
	GradeDifference int

	// ZScore within the peer group (0 for groups of size 1).
	ZScore float64

	// FinalGrade after calibration. Empty until a session commits it.
	FinalGrade Grade

	Status    EvaluationStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AchievedCount returns how many of the present axes are achieved (0..3).
func (ev *ComprehensiveEvaluation) AchievedCount() int {
	n := 0
	for _, r := range []*AxisResult{ev.Contribution, ev.Expertise, ev.Impact} {
		if r != nil && r.Achieved {
			n++
		}
	}
	return n
}

// AxisScores returns the present axis scores in contribution, expertise,
// impact order. Absent axes are skipped.
func (ev *ComprehensiveEvaluation) AxisScores() []decimal.Decimal {
	var scores []decimal.Decimal
	for _, r := range []*AxisResult{ev.Contribution, ev.Expertise, ev.Impact} {
		if r != nil {
			scores = append(scores, r.Score)
		}
	}
	return scores
}

// AllAxesAchieved reports whether all three axes are present and achieved.
func (ev *ComprehensiveEvaluation) AllAxesAchieved() bool {
	return ev.Contribution != nil && ev.Contribution.Achieved &&
		ev.Expertise != nil && ev.Expertise.Achieved &&
		ev.Impact != nil && ev.Impact.Achieved
}
