/*
errors.go - Centralized error types for the evaluation engine

PURPOSE:
  All error types in one place for consistency and discoverability.

ERROR CATEGORIES:
  1. Validation errors - Malformed or out-of-range inputs (bad task weights,
     unknown chart keys, unknown period ids)
  2. Computation errors - Missing axis data when an aggregate is requested
  3. State errors - State machine misuse (finalize twice, review after close)
  4. Job errors - Failures inside scheduled jobs, recorded on the job record

PROPAGATION POLICY:
  Per-record failures inside a batch run are collected into the batch report
  and never abort the run. State machine misuse and missing configuration
  propagate as errors.

USAGE:
  if evaluation.IsValidation(err) {
      // reject the single record, keep processing the batch
  }
*/
package evaluation

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrPeriodNotFound is returned when a referenced evaluation period doesn't exist.
	ErrPeriodNotFound = errors.New("evaluation period not found")

	// ErrEmployeeNotFound is returned when a referenced employee doesn't exist.
	ErrEmployeeNotFound = errors.New("employee not found")

	// ErrEvaluationNotFound is returned when a referenced evaluation doesn't exist.
	ErrEvaluationNotFound = errors.New("evaluation not found")

	// ErrSessionNotFound is returned when a referenced calibration session doesn't exist.
	ErrSessionNotFound = errors.New("calibration session not found")

	// ErrPeriodCompleted is returned on writes against a COMPLETED period.
	ErrPeriodCompleted = errors.New("evaluation period is completed and immutable")

	// ErrSessionActive is returned when another session is already in
	// progress for the same scope.
	ErrSessionActive = errors.New("another calibration session is active for this scope")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError reports malformed or out-of-range input for one record.
// It never carries partial state: the record in error is not committed.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

// ComputationError reports that an aggregate was requested with no usable
// axis data. Individual missing axes are treated as absent, not as errors;
// this only fires when nothing remains to aggregate.
type ComputationError struct {
	Axis   Axis
	Reason string
}

func (e *ComputationError) Error() string {
	if e.Axis != "" {
		return fmt.Sprintf("computation failed for %s axis: %s", e.Axis, e.Reason)
	}
	return fmt.Sprintf("computation failed: %s", e.Reason)
}

// StateError reports an invalid state machine transition. The state is left
// unchanged.
type StateError struct {
	Current string
	Action  string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("invalid action %q in state %q", e.Action, e.Current)
}

// JobError wraps a failure inside a scheduled job. It is recorded on the
// job record; it never crashes the worker.
type JobError struct {
	JobID   string
	JobType string
	Cause   error
}

func (e *JobError) Error() string {
	return fmt.Sprintf("job %s (%s) failed: %v", e.JobID, e.JobType, e.Cause)
}

func (e *JobError) Unwrap() error { return e.Cause }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsValidation reports whether err is a per-record validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsState reports whether err is a state machine violation.
func IsState(err error) bool {
	var se *StateError
	if errors.As(err, &se) {
		return true
	}
	return errors.Is(err, ErrSessionActive) || errors.Is(err, ErrPeriodCompleted)
}

// IsNotFound reports whether err indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrPeriodNotFound) ||
		errors.Is(err, ErrEmployeeNotFound) ||
		errors.Is(err, ErrEvaluationNotFound) ||
		errors.Is(err, ErrSessionNotFound)
}
