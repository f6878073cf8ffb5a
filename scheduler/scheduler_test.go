package scheduler_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/evaluation-engine/scheduler"
)

// =============================================================================
// TEST SETUP
// =============================================================================

const testJob = "test_job"

// recorder collects the order jobs execute in.
type recorder struct {
	mu    sync.Mutex
	order []string
	done  chan string
}

func newRecorder() *recorder {
	return &recorder{done: make(chan string, 32)}
}

func (r *recorder) handler(_ context.Context, job *scheduler.Job) (any, error) {
	r.mu.Lock()
	r.order = append(r.order, job.Meta("name"))
	r.mu.Unlock()
	r.done <- job.ID
	return job.Meta("name"), nil
}

func (r *recorder) waitFor(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-r.done:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for job %d of %d", i+1, n)
		}
	}
}

func (r *recorder) executed() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

func meta(name string) map[string]string {
	return map[string]string{"name": name}
}

// startGated starts a one-worker scheduler whose first job blocks on the
// returned gate, so later submissions pile up in the queue in a known state.
func startGated(t *testing.T, rec *recorder) (*scheduler.Scheduler, chan struct{}) {
	t.Helper()

	gate := make(chan struct{})
	sched := scheduler.New(1)
	sched.RegisterHandler(testJob, rec.handler)
	sched.RegisterHandler("blocker", func(_ context.Context, _ *scheduler.Job) (any, error) {
		<-gate
		return nil, nil
	})
	sched.Start(context.Background())

	blockerID, err := sched.Submit("blocker", nil, scheduler.PriorityCritical)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		snap, ok := sched.Status(blockerID)
		return ok && snap.Status == scheduler.StatusRunning
	}, 2*time.Second, 5*time.Millisecond, "blocker never started")

	return sched, gate
}

func shutdown(t *testing.T, sched *scheduler.Scheduler) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, sched.Shutdown(ctx))
}

// =============================================================================
// PRIORITY ORDERING
// =============================================================================

func TestScheduler_PriorityOrdering(t *testing.T) {
	// GIVEN: Four queued jobs submitted in reverse priority order
	// WHEN: The single worker drains the queue
	// THEN: Execution follows CRITICAL > HIGH > NORMAL > LOW

	rec := newRecorder()
	sched, gate := startGated(t, rec)

	for _, sub := range []struct {
		name string
		pri  scheduler.Priority
	}{
		{"low", scheduler.PriorityLow},
		{"normal", scheduler.PriorityNormal},
		{"high", scheduler.PriorityHigh},
		{"critical", scheduler.PriorityCritical},
	} {
		_, err := sched.Submit(testJob, meta(sub.name), sub.pri)
		require.NoError(t, err)
	}

	close(gate)
	rec.waitFor(t, 4)
	shutdown(t, sched)

	assert.Equal(t, []string{"critical", "high", "normal", "low"}, rec.executed())
}

func TestScheduler_FIFOWithinPriority(t *testing.T) {
	rec := newRecorder()
	sched, gate := startGated(t, rec)

	for _, name := range []string{"first", "second", "third"} {
		_, err := sched.Submit(testJob, meta(name), scheduler.PriorityNormal)
		require.NoError(t, err)
	}

	close(gate)
	rec.waitFor(t, 3)
	shutdown(t, sched)

	assert.Equal(t, []string{"first", "second", "third"}, rec.executed())
}

// =============================================================================
// JOB LIFECYCLE
// =============================================================================

func TestScheduler_StatusTransitions(t *testing.T) {
	// GIVEN: A job that reports progress mid-flight
	// WHEN: Observing it before, during, and after execution
	// THEN: Status walks PENDING -> RUNNING -> COMPLETED with timestamps

	started := make(chan struct{})
	release := make(chan struct{})

	sched := scheduler.New(1)
	sched.RegisterHandler(testJob, func(_ context.Context, job *scheduler.Job) (any, error) {
		job.SetProgress(42)
		close(started)
		<-release
		return "report", nil
	})
	sched.Start(context.Background())

	id, err := sched.Submit(testJob, nil, scheduler.PriorityNormal)
	require.NoError(t, err)

	<-started
	snap, ok := sched.Status(id)
	require.True(t, ok)
	assert.Equal(t, scheduler.StatusRunning, snap.Status)
	assert.Equal(t, 42, snap.Progress)
	require.NotNil(t, snap.StartedAt)
	assert.Nil(t, snap.CompletedAt)

	close(release)
	require.Eventually(t, func() bool {
		snap, _ = sched.Status(id)
		return snap.Status == scheduler.StatusCompleted
	}, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, 100, snap.Progress)
	assert.Equal(t, "report", snap.Result)
	assert.Empty(t, snap.Err)
	require.NotNil(t, snap.CompletedAt)
	shutdown(t, sched)
}

func TestScheduler_HandlerError_MarksFailed(t *testing.T) {
	sched := scheduler.New(1)
	sched.RegisterHandler(testJob, func(_ context.Context, _ *scheduler.Job) (any, error) {
		return nil, errors.New("boom")
	})
	sched.Start(context.Background())

	id, err := sched.Submit(testJob, nil, scheduler.PriorityNormal)
	require.NoError(t, err)

	var snap scheduler.Snapshot
	require.Eventually(t, func() bool {
		snap, _ = sched.Status(id)
		return snap.Status == scheduler.StatusFailed
	}, 2*time.Second, 5*time.Millisecond)

	assert.Contains(t, snap.Err, "boom")
	assert.Contains(t, snap.Err, id)
	shutdown(t, sched)
}

func TestScheduler_PanicRecovered_MarksFailed(t *testing.T) {
	// A panicking handler fails its own job without taking down the worker.
	rec := newRecorder()
	sched := scheduler.New(1)
	sched.RegisterHandler(testJob, rec.handler)
	sched.RegisterHandler("explosive", func(_ context.Context, _ *scheduler.Job) (any, error) {
		panic("kaboom")
	})
	sched.Start(context.Background())

	id, err := sched.Submit("explosive", nil, scheduler.PriorityNormal)
	require.NoError(t, err)
	_, err = sched.Submit(testJob, meta("survivor"), scheduler.PriorityNormal)
	require.NoError(t, err)

	rec.waitFor(t, 1)
	snap, ok := sched.Status(id)
	require.True(t, ok)
	assert.Equal(t, scheduler.StatusFailed, snap.Status)
	assert.Contains(t, snap.Err, "panic: kaboom")
	assert.Equal(t, []string{"survivor"}, rec.executed())
	shutdown(t, sched)
}

func TestScheduler_UnknownJobType_Rejected(t *testing.T) {
	sched := scheduler.New(1)
	sched.Start(context.Background())

	_, err := sched.Submit("no_such_job", nil, scheduler.PriorityNormal)
	require.ErrorIs(t, err, scheduler.ErrUnknownJobType)
	shutdown(t, sched)
}

// =============================================================================
// CANCELLATION
// =============================================================================

func TestScheduler_CancelPendingJob(t *testing.T) {
	// GIVEN: A queued job behind a blocked worker
	// WHEN: Cancelling it before it starts
	// THEN: It never executes and reads as FAILED

	rec := newRecorder()
	sched, gate := startGated(t, rec)

	id, err := sched.Submit(testJob, meta("doomed"), scheduler.PriorityNormal)
	require.NoError(t, err)
	_, err = sched.Submit(testJob, meta("kept"), scheduler.PriorityNormal)
	require.NoError(t, err)

	assert.True(t, sched.Cancel(id))

	snap, ok := sched.Status(id)
	require.True(t, ok)
	assert.Equal(t, scheduler.StatusFailed, snap.Status)
	assert.Contains(t, snap.Err, "cancelled before execution")

	close(gate)
	rec.waitFor(t, 1)
	shutdown(t, sched)
	assert.Equal(t, []string{"kept"}, rec.executed())
}

func TestScheduler_CancelRunningJob_Unsupported(t *testing.T) {
	gate := make(chan struct{})
	sched := scheduler.New(1)
	sched.RegisterHandler(testJob, func(_ context.Context, _ *scheduler.Job) (any, error) {
		<-gate
		return nil, nil
	})
	sched.Start(context.Background())

	id, err := sched.Submit(testJob, nil, scheduler.PriorityNormal)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		snap, ok := sched.Status(id)
		return ok && snap.Status == scheduler.StatusRunning
	}, 2*time.Second, 5*time.Millisecond)

	assert.False(t, sched.Cancel(id), "running jobs cannot be cancelled")

	close(gate)
	require.Eventually(t, func() bool {
		snap, _ := sched.Status(id)
		return snap.Status == scheduler.StatusCompleted
	}, 2*time.Second, 5*time.Millisecond)

	// Finished and unknown jobs refuse cancellation too.
	assert.False(t, sched.Cancel(id))
	assert.False(t, sched.Cancel("no-such-id"))
	shutdown(t, sched)
}

// =============================================================================
// SHUTDOWN
// =============================================================================

func TestScheduler_ShutdownDrainsQueue(t *testing.T) {
	rec := newRecorder()
	sched, gate := startGated(t, rec)

	ids := make([]string, 0, 3)
	for _, name := range []string{"d1", "d2", "d3"} {
		id, err := sched.Submit(testJob, meta(name), scheduler.PriorityNormal)
		require.NoError(t, err)
		ids = append(ids, id)
	}

	close(gate)
	shutdown(t, sched)

	for _, id := range ids {
		snap, ok := sched.Status(id)
		require.True(t, ok)
		assert.Equal(t, scheduler.StatusCompleted, snap.Status)
	}
}

func TestScheduler_SubmitAfterShutdown_Rejected(t *testing.T) {
	sched := scheduler.New(1)
	sched.RegisterHandler(testJob, newRecorder().handler)
	sched.Start(context.Background())
	shutdown(t, sched)

	_, err := sched.Submit(testJob, nil, scheduler.PriorityNormal)
	require.ErrorIs(t, err, scheduler.ErrStopped)
}

func TestScheduler_ShutdownTimesOutOnStuckJob(t *testing.T) {
	stuck := make(chan struct{})
	sched := scheduler.New(1)
	sched.RegisterHandler(testJob, func(_ context.Context, _ *scheduler.Job) (any, error) {
		<-stuck
		return nil, nil
	})
	sched.Start(context.Background())

	id, err := sched.Submit(testJob, nil, scheduler.PriorityNormal)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		snap, ok := sched.Status(id)
		return ok && snap.Status == scheduler.StatusRunning
	}, 2*time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err = sched.Shutdown(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// Unblock the worker so the test leaves no goroutine behind.
	close(stuck)
}
