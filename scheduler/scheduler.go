/*
Package scheduler provides the in-process job execution substrate.

PURPOSE:
  Runs engine stages (period scoring, promotion analysis) as asynchronous,
  trackable jobs: a bounded worker pool pulls from a priority queue and
  reports per-job progress and status.

EXECUTION MODEL:
  - Single-writer-per-job, multi-job-parallel: each job runs to completion
    on one worker; jobs never pre-empt each other. The persistence layer is
    the only synchronization point between jobs, so callers must not submit
    two jobs that write the same evaluation concurrently.
  - Priorities: CRITICAL > HIGH > NORMAL > LOW, FIFO within a priority.
  - Progress (0-100) is written only by the owning worker and readable from
    any goroutine.
  - Status: PENDING -> RUNNING -> {COMPLETED | FAILED}. No automatic retry;
    a failed job records its error and is terminal.
  - Cancelling an already-running job is unsupported: Cancel returns false.
  - Shutdown drains queued and in-flight jobs within a bounded wait.

USAGE:
  sched := scheduler.New(4)
  sched.RegisterHandler(scheduler.JobEvaluationProcessing, handler)
  sched.Start(ctx)
  id, _ := sched.Submit(scheduler.JobEvaluationProcessing,
      map[string]string{"period": "2025-H2"}, scheduler.PriorityHigh)
  status, _ := sched.Status(id)
  // ... later
  sched.Shutdown(shutdownCtx)

SEE ALSO:
  - cron.go: Recurring schedules that enqueue at NORMAL priority
  - evaluation/pipeline.go: The batch runs these jobs wrap
*/
package scheduler

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/warp/evaluation-engine/evaluation"
)

// =============================================================================
// JOB TYPES AND PRIORITIES
// =============================================================================

const (
	JobEvaluationProcessing = "evaluation_processing"
	JobPromotionAnalysis    = "promotion_analysis"
)

// Priority orders jobs in the queue. Lower value runs first.
type Priority int

const (
	PriorityCritical Priority = iota
	PriorityHigh
	PriorityNormal
	PriorityLow
)

func (p Priority) String() string {
	switch p {
	case PriorityCritical:
		return "CRITICAL"
	case PriorityHigh:
		return "HIGH"
	case PriorityNormal:
		return "NORMAL"
	case PriorityLow:
		return "LOW"
	default:
		return fmt.Sprintf("Priority(%d)", int(p))
	}
}

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusRunning   Status = "RUNNING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
)

// Handler executes one job. The returned value is recorded as the job
// result; a returned error (or panic) marks the job FAILED.
type Handler func(ctx context.Context, job *Job) (any, error)

// =============================================================================
// JOB
// =============================================================================

// Job is one unit of work. Progress is written only by the owning worker;
// Snapshot is safe from any goroutine.
type Job struct {
	ID       string
	Type     string
	Metadata map[string]string
	Priority Priority

	mu          sync.RWMutex
	status      Status
	progress    int
	result      any
	errMsg      string
	enqueuedAt  time.Time
	startedAt   *time.Time
	completedAt *time.Time
}

// Snapshot is a point-in-time copy of a job's observable state.
type Snapshot struct {
	ID          string
	Type        string
	Priority    Priority
	Status      Status
	Progress    int
	Result      any
	Err         string
	EnqueuedAt  time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
}

// SetProgress updates the job's progress (clamped to 0-100). Only the
// worker running the job may call this.
func (j *Job) SetProgress(pct int) {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	j.mu.Lock()
	j.progress = pct
	j.mu.Unlock()
}

// Meta returns a metadata value.
func (j *Job) Meta(key string) string {
	return j.Metadata[key]
}

// Snapshot returns the job's current observable state.
func (j *Job) Snapshot() Snapshot {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return Snapshot{
		ID:          j.ID,
		Type:        j.Type,
		Priority:    j.Priority,
		Status:      j.status,
		Progress:    j.progress,
		Result:      j.result,
		Err:         j.errMsg,
		EnqueuedAt:  j.enqueuedAt,
		StartedAt:   j.startedAt,
		CompletedAt: j.completedAt,
	}
}

func (j *Job) setRunning(at time.Time) {
	j.mu.Lock()
	j.status = StatusRunning
	j.startedAt = &at
	j.mu.Unlock()
}

func (j *Job) finish(result any, err error, at time.Time) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.completedAt = &at
	if err != nil {
		j.status = StatusFailed
		j.errMsg = err.Error()
		return
	}
	j.status = StatusCompleted
	j.progress = 100
	j.result = result
}

// =============================================================================
// REGISTRY - Thread-safe job store with explicit lifecycle
// =============================================================================

// Registry tracks jobs through their lifecycle: insert on submit, move to
// completed when a worker finishes. Injected state, not ambient globals.
type Registry struct {
	mu        sync.RWMutex
	active    map[string]*Job
	completed map[string]*Job
}

func NewRegistry() *Registry {
	return &Registry{
		active:    make(map[string]*Job),
		completed: make(map[string]*Job),
	}
}

func (r *Registry) insert(job *Job) {
	r.mu.Lock()
	r.active[job.ID] = job
	r.mu.Unlock()
}

func (r *Registry) complete(job *Job) {
	r.mu.Lock()
	delete(r.active, job.ID)
	r.completed[job.ID] = job
	r.mu.Unlock()
}

// Get returns a job by id, whether active or completed.
func (r *Registry) Get(id string) (*Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if j, ok := r.active[id]; ok {
		return j, true
	}
	j, ok := r.completed[id]
	return j, ok
}

// ActiveCount returns the number of pending or running jobs.
func (r *Registry) ActiveCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.active)
}

// =============================================================================
// PRIORITY QUEUE
// =============================================================================

type queued struct {
	job *Job
	seq uint64 // FIFO within a priority
}

type jobHeap []*queued

func (h jobHeap) Len() int { return len(h) }
func (h jobHeap) Less(i, j int) bool {
	if h[i].job.Priority != h[j].job.Priority {
		return h[i].job.Priority < h[j].job.Priority
	}
	return h[i].seq < h[j].seq
}
func (h jobHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *jobHeap) Push(x any)        { *h = append(*h, x.(*queued)) }
func (h *jobHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// =============================================================================
// SCHEDULER
// =============================================================================

var (
	ErrUnknownJobType = errors.New("unknown job type")
	ErrStopped        = errors.New("scheduler stopped")
)

// Scheduler owns the worker pool and the priority queue.
type Scheduler struct {
	workers  int
	registry *Registry
	handlers map[string]Handler

	mu      sync.Mutex
	cond    *sync.Cond
	queue   jobHeap
	seq     uint64
	stopped bool

	ctx context.Context
	wg  sync.WaitGroup
}

// New creates a scheduler with the given worker pool size (default 4).
func New(workers int) *Scheduler {
	if workers <= 0 {
		workers = 4
	}
	s := &Scheduler{
		workers:  workers,
		registry: NewRegistry(),
		handlers: make(map[string]Handler),
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// RegisterHandler binds a handler to a job type. Call before Start.
func (s *Scheduler) RegisterHandler(jobType string, h Handler) {
	s.handlers[jobType] = h
}

// Start launches the worker pool. The context is passed to every job.
func (s *Scheduler) Start(ctx context.Context) {
	s.ctx = ctx
	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}
	log.Printf("[Scheduler] Started %d workers", s.workers)
}

// Submit enqueues a job and returns its id.
func (s *Scheduler) Submit(jobType string, metadata map[string]string, priority Priority) (string, error) {
	if _, ok := s.handlers[jobType]; !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownJobType, jobType)
	}

	job := &Job{
		ID:         uuid.NewString(),
		Type:       jobType,
		Metadata:   metadata,
		Priority:   priority,
		status:     StatusPending,
		enqueuedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return "", ErrStopped
	}
	s.seq++
	heap.Push(&s.queue, &queued{job: job, seq: s.seq})
	s.registry.insert(job)
	s.mu.Unlock()

	s.cond.Signal()
	return job.ID, nil
}

// Status returns the observable state of a job.
func (s *Scheduler) Status(jobID string) (Snapshot, bool) {
	job, ok := s.registry.Get(jobID)
	if !ok {
		return Snapshot{}, false
	}
	return job.Snapshot(), true
}

// Cancel removes a still-pending job from the queue. Cancelling a running
// (or finished) job is unsupported and returns false.
func (s *Scheduler) Cancel(jobID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, q := range s.queue {
		if q.job.ID == jobID {
			heap.Remove(&s.queue, i)
			q.job.finish(nil, errors.New("cancelled before execution"), time.Now().UTC())
			s.registry.complete(q.job)
			return true
		}
	}
	return false
}

// Shutdown stops intake and drains queued and in-flight jobs, waiting at
// most until ctx expires.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
	s.cond.Broadcast()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("[Scheduler] Stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown wait: %w", ctx.Err())
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		s.mu.Lock()
		for len(s.queue) == 0 && !s.stopped {
			s.cond.Wait()
		}
		if len(s.queue) == 0 && s.stopped {
			s.mu.Unlock()
			return
		}
		q := heap.Pop(&s.queue).(*queued)
		s.mu.Unlock()

		s.run(id, q.job)
	}
}

// run executes one job, catching errors and panics at the worker boundary
// so a failing job never takes down the worker or other queued jobs.
func (s *Scheduler) run(workerID int, job *Job) {
	job.setRunning(time.Now().UTC())
	log.Printf("[Scheduler] Worker %d running job %s (%s, %s)", workerID, job.ID, job.Type, job.Priority)

	var (
		result any
		err    error
	)
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		result, err = s.handlers[job.Type](s.ctx, job)
	}()

	if err != nil {
		err = &evaluation.JobError{JobID: job.ID, JobType: job.Type, Cause: err}
		log.Printf("[Scheduler] Job %s failed: %v", job.ID, err)
	}
	job.finish(result, err, time.Now().UTC())
	s.registry.complete(job)
}
