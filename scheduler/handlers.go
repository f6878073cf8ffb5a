/*
Job handler wiring.

PURPOSE:
  Binds the engine's batch stages to scheduler job types. Handlers build
  a fresh pipeline per job so progress reporting stays single-writer even
  when several periods are processed in parallel.

JOB METADATA:
  - "period": the target evaluation period id (required by both job types)
*/
package scheduler

import (
	"context"

	"github.com/warp/evaluation-engine/evaluation"
)

// Engine bundles the domain components the job handlers need.
type Engine struct {
	Calculator *evaluation.Calculator
	Allocator  *evaluation.Allocator
	Growth     *evaluation.GrowthEngine
	Promotion  *evaluation.PromotionAnalyzer
	Store      evaluation.Store
}

// RegisterJobHandlers attaches the engine's batch stages to the scheduler.
func RegisterJobHandlers(s *Scheduler, eng *Engine) {
	s.RegisterHandler(JobEvaluationProcessing, func(ctx context.Context, job *Job) (any, error) {
		periodID, err := periodFrom(job)
		if err != nil {
			return nil, err
		}
		p := evaluation.NewPipeline(eng.Calculator, eng.Allocator, eng.Store)
		p.OnProgress = job.SetProgress
		return p.Run(ctx, periodID)
	})

	s.RegisterHandler(JobPromotionAnalysis, func(ctx context.Context, job *Job) (any, error) {
		periodID, err := periodFrom(job)
		if err != nil {
			return nil, err
		}
		b := evaluation.NewPromotionBatch(eng.Growth, eng.Promotion, eng.Store)
		b.OnProgress = job.SetProgress
		return b.Run(ctx, periodID)
	})
}

func periodFrom(job *Job) (evaluation.PeriodID, error) {
	id := job.Meta("period")
	if id == "" {
		return "", &evaluation.ValidationError{Field: "period", Reason: "job metadata missing period id"}
	}
	return evaluation.PeriodID(id), nil
}
