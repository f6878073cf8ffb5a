/*
pipeline.go - Whole-period batch computation

PURPOSE:
  Orchestrates the scoring stages for every employee in a period:
  axis calculation -> aggregation -> relative allocation -> calibration
  analysis. Also hosts the promotion batch that refreshes growth history
  and readiness reports.

FAILURE POLICY:
  One employee's bad inputs (task weights out of range, unknown chart keys)
  never abort the period run. Per-record failures are collected into the
  batch report; the record in error is not committed. Missing axis inputs
  are absent data, not failures.

IDEMPOTENCE:
  Re-running a batch recomputes from the same raw inputs and upserts the
  same derived records. All calculators are pure, so reruns are
  bit-identical.
*/
package evaluation

import (
	"context"
	"fmt"
	"log"
	"time"
)

// =============================================================================
// BATCH REPORTS
// =============================================================================

// RecordError is one employee's failure inside a batch run.
type RecordError struct {
	EmployeeID EmployeeID
	Err        error
}

func (e RecordError) Error() string {
	return fmt.Sprintf("employee %s: %v", e.EmployeeID, e.Err)
}

// BatchReport summarizes an evaluation-processing run.
type BatchReport struct {
	PeriodID    PeriodID
	Processed   int
	Flagged     int
	Groups      int
	Errors      []RecordError
	StartedAt   time.Time
	CompletedAt time.Time
}

// PromotionReport summarizes a promotion-analysis run.
type PromotionReport struct {
	PeriodID    PeriodID
	Processed   int
	Eligible    int
	Errors      []RecordError
	Analyses    []*PromotionAnalysis
	StartedAt   time.Time
	CompletedAt time.Time
}

// =============================================================================
// EVALUATION PIPELINE
// =============================================================================

// Pipeline runs the scoring stages for a period.
type Pipeline struct {
	calc     *Calculator
	agg      *Aggregator
	alloc    *Allocator
	analyzer *Analyzer
	store    Store

	// OnProgress, when set, receives batch progress in 0-100. The scheduler
	// wires this to the job record.
	OnProgress func(pct int)
}

func NewPipeline(calc *Calculator, alloc *Allocator, store Store) *Pipeline {
	return &Pipeline{
		calc:     calc,
		agg:      NewAggregator(),
		alloc:    alloc,
		analyzer: NewAnalyzer(),
		store:    store,
	}
}

// Run executes the full scoring pass for one period.
func (p *Pipeline) Run(ctx context.Context, periodID PeriodID) (*BatchReport, error) {
	period, err := p.store.GetPeriod(ctx, periodID)
	if err != nil {
		return nil, err
	}
	if !period.IsMutable() {
		return nil, ErrPeriodCompleted
	}

	employees, err := p.store.ListEmployees(ctx)
	if err != nil {
		return nil, err
	}

	report := &BatchReport{PeriodID: periodID, StartedAt: time.Now().UTC()}
	var evals []*ComprehensiveEvaluation

	for i, emp := range employees {
		ev, err := p.evaluateEmployee(ctx, emp, *period)
		if err != nil {
			report.Errors = append(report.Errors, RecordError{EmployeeID: emp.ID, Err: err})
			continue
		}
		if err := p.store.SaveEvaluation(ctx, ev); err != nil {
			report.Errors = append(report.Errors, RecordError{EmployeeID: emp.ID, Err: err})
			continue
		}
		evals = append(evals, ev)
		report.Processed++
		p.progress((i + 1) * 70 / len(employees))
	}

	// Relative allocation over the successfully scored evaluations.
	groups := make(map[string]struct{})
	for _, ev := range evals {
		groups[ev.GroupKey] = struct{}{}
	}
	report.Groups = len(groups)
	p.alloc.AllocateAll(evals)
	p.progress(85)

	for _, ev := range evals {
		if p.analyzer.FlagForReview(ev) {
			report.Flagged++
		}
		if err := p.store.SaveEvaluation(ctx, ev); err != nil {
			report.Errors = append(report.Errors, RecordError{EmployeeID: ev.EmployeeID, Err: err})
		}
	}

	report.CompletedAt = time.Now().UTC()
	p.progress(100)
	log.Printf("[Pipeline] Period %s: %d processed, %d flagged, %d errors",
		periodID, report.Processed, report.Flagged, len(report.Errors))
	return report, nil
}

// evaluateEmployee computes one employee's evaluation from raw inputs.
// Missing inputs leave the axis absent; validation failures reject the
// whole record.
func (p *Pipeline) evaluateEmployee(ctx context.Context, emp Employee, period EvaluationPeriod) (*ComprehensiveEvaluation, error) {
	var contribution *ContributionResult
	tasks, err := p.store.TasksFor(ctx, emp.ID, period.ID)
	if err != nil {
		return nil, err
	}
	if len(tasks) > 0 {
		result, err := p.calc.Contribution(tasks)
		if err != nil {
			return nil, err
		}
		contribution = &result
	}

	var expertise *AxisResult
	expInput, err := p.store.ExpertiseFor(ctx, emp.ID, period.ID)
	if err != nil {
		return nil, err
	}
	if expInput != nil {
		result, err := p.calc.Expertise(*expInput)
		if err != nil {
			return nil, err
		}
		expertise = &result
	}

	var impact *AxisResult
	impInput, err := p.store.ImpactFor(ctx, emp.ID, period.ID)
	if err != nil {
		return nil, err
	}
	if impInput != nil {
		result, err := p.calc.Impact(*impInput)
		if err != nil {
			return nil, err
		}
		impact = &result
	}

	return p.agg.Evaluate(emp, period, contribution, expertise, impact)
}

func (p *Pipeline) progress(pct int) {
	if p.OnProgress != nil {
		p.OnProgress(pct)
	}
}

// =============================================================================
// PROMOTION BATCH
// =============================================================================

// PromotionBatch refreshes growth history and readiness reports for every
// employee after a period's grades are final.
type PromotionBatch struct {
	growth   *GrowthEngine
	analyzer *PromotionAnalyzer
	store    Store

	OnProgress func(pct int)
}

func NewPromotionBatch(growth *GrowthEngine, analyzer *PromotionAnalyzer, store Store) *PromotionBatch {
	return &PromotionBatch{growth: growth, analyzer: analyzer, store: store}
}

// Run updates history rows and computes promotion analyses for one period.
func (b *PromotionBatch) Run(ctx context.Context, periodID PeriodID) (*PromotionReport, error) {
	if _, err := b.store.GetPeriod(ctx, periodID); err != nil {
		return nil, err
	}
	employees, err := b.store.ListEmployees(ctx)
	if err != nil {
		return nil, err
	}

	report := &PromotionReport{PeriodID: periodID, StartedAt: time.Now().UTC()}
	for i, emp := range employees {
		row, err := b.growth.UpdateHistory(ctx, emp.ID, periodID)
		if err != nil {
			report.Errors = append(report.Errors, RecordError{EmployeeID: emp.ID, Err: err})
			continue
		}
		analysis, err := b.analyzer.Analyze(ctx, emp.ID)
		if err != nil {
			report.Errors = append(report.Errors, RecordError{EmployeeID: emp.ID, Err: err})
			continue
		}
		report.Analyses = append(report.Analyses, analysis)
		report.Processed++
		if row.IsPromotionEligible {
			report.Eligible++
		}
		if b.OnProgress != nil {
			b.OnProgress((i + 1) * 100 / len(employees))
		}
	}

	report.CompletedAt = time.Now().UTC()
	log.Printf("[Pipeline] Promotion analysis for %s: %d processed, %d eligible, %d errors",
		periodID, report.Processed, report.Eligible, len(report.Errors))
	return report, nil
}
