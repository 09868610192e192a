// Package queue runs plan pipelines as background jobs. Each job carries a
// soft and hard timeout, class-keyed retry delays, and a revocation handle.
// Jobs that stop reporting activity for too long are reaped by the stale
// task sweeper.
package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/smithisrealdev/aigo-engine/internal/types"
)

// Timeout and retry policy per task kind.
const (
	GenerationSoftTimeout = 540 * time.Second
	GenerationHardTimeout = 600 * time.Second
	GenerationMaxRetries  = 2

	ReplanSoftTimeout = 300 * time.Second
	ReplanHardTimeout = 360 * time.Second
	ReplanMaxRetries  = 1

	// StaleAfter is how long a job may go without activity before the
	// sweeper revokes it.
	StaleAfter = 30 * time.Minute

	sweepInterval = time.Minute
)

// JobFunc is the unit of work. It must honor ctx cancellation.
type JobFunc func(ctx context.Context) error

// Spec describes a job submission.
type Spec struct {
	TaskID      types.ID
	PlanID      types.ID
	Kind        types.TaskKind
	SoftTimeout time.Duration
	HardTimeout time.Duration
	MaxRetries  int
	Run         JobFunc

	// OnRetry fires before each retry wait with the upcoming attempt
	// number and the classified failure. Optional.
	OnRetry func(attempt int, class types.ErrorClass, delay time.Duration, err error)

	// OnDone fires exactly once when the job reaches a terminal state.
	// err is nil on success. Optional.
	OnDone func(err error)
}

// SpecFor fills the kind's standard timeout and retry policy.
func SpecFor(kind types.TaskKind) Spec {
	switch kind {
	case types.TaskKindReplan:
		return Spec{
			Kind:        kind,
			SoftTimeout: ReplanSoftTimeout,
			HardTimeout: ReplanHardTimeout,
			MaxRetries:  ReplanMaxRetries,
		}
	default:
		return Spec{
			Kind:        kind,
			SoftTimeout: GenerationSoftTimeout,
			HardTimeout: GenerationHardTimeout,
			MaxRetries:  GenerationMaxRetries,
		}
	}
}

// MetricsRecorder receives job lifecycle events. Must not block.
type MetricsRecorder interface {
	RecordJobStart(kind types.TaskKind)
	RecordJobDone(kind types.TaskKind, status types.TaskStatus, duration time.Duration)
	RecordJobRetry(kind types.TaskKind, class types.ErrorClass)
}

type job struct {
	spec         Spec
	cancel       context.CancelCauseFunc
	enqueuedAt   time.Time
	lastActivity guardedTime
}

// guardedTime is a mutex-guarded timestamp shared between workers and the sweeper.
type guardedTime struct {
	mu sync.Mutex
	t  time.Time
}

func (a *guardedTime) set(t time.Time) {
	a.mu.Lock()
	a.t = t
	a.mu.Unlock()
}

func (a *guardedTime) get() time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.t
}

// Queue is a fixed-size worker pool with per-job retry and revocation.
type Queue struct {
	workers    int
	jobs       chan *job
	logger     *slog.Logger
	metrics    MetricsRecorder
	staleAfter time.Duration

	mu     sync.Mutex
	active map[types.ID]*job
	closed bool

	wg        sync.WaitGroup
	sweepStop chan struct{}

	// sleep is swapped out in tests to avoid real retry waits.
	sleep func(ctx context.Context, d time.Duration) error
}

// Option configures a Queue.
type Option func(*Queue)

// WithWorkers sets the worker count.
func WithWorkers(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.workers = n
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(q *Queue) { q.logger = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m MetricsRecorder) Option {
	return func(q *Queue) { q.metrics = m }
}

// WithStaleAfter overrides the inactivity window for the stale sweeper.
func WithStaleAfter(d time.Duration) Option {
	return func(q *Queue) {
		if d > 0 {
			q.staleAfter = d
		}
	}
}

// New creates and starts a queue.
func New(opts ...Option) *Queue {
	q := &Queue{
		workers:    4,
		jobs:       make(chan *job, 64),
		logger:     slog.Default(),
		active:     make(map[types.ID]*job),
		sweepStop:  make(chan struct{}),
		staleAfter: StaleAfter,
		sleep:      sleepCtx,
	}
	for _, opt := range opts {
		opt(q)
	}

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	go q.sweeper()
	return q
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return context.Cause(ctx)
	case <-timer.C:
		return nil
	}
}

// Submit enqueues a job. The spec must carry a task ID and a run func.
func (q *Queue) Submit(spec Spec) error {
	if spec.TaskID.IsZero() || spec.Run == nil {
		return types.NewError(types.QUEUE_JOB_NOT_FOUND, "job spec requires a task id and run func")
	}

	j := &job{spec: spec, enqueuedAt: time.Now()}
	j.lastActivity.set(time.Now())

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return types.NewError(types.QUEUE_CLOSED, "queue is closed")
	}
	if _, dup := q.active[spec.TaskID]; dup {
		return types.NewError(types.QUEUE_JOB_NOT_FOUND,
			fmt.Sprintf("task %s is already queued", spec.TaskID))
	}

	// The send stays under the lock so Close cannot close the channel
	// between the closed check and the send.
	select {
	case q.jobs <- j:
		q.active[spec.TaskID] = j
		return nil
	default:
		return types.NewRetryableError(types.QUEUE_CLOSED, "queue is full")
	}
}

// Revoke cancels a queued or running job.
func (q *Queue) Revoke(taskID types.ID) error {
	q.mu.Lock()
	j, ok := q.active[taskID]
	var cancel context.CancelCauseFunc
	if ok {
		cancel = j.cancel
	}
	q.mu.Unlock()
	if !ok {
		return types.NewError(types.QUEUE_JOB_NOT_FOUND, fmt.Sprintf("task %s not active", taskID))
	}

	if cancel != nil {
		cancel(types.NewError(types.QUEUE_JOB_REVOKED, "task revoked"))
	} else {
		// Not started yet; mark so the worker drops it.
		j.lastActivity.set(time.Time{})
	}
	q.logger.Info("task revoked", "task_id", taskID, "kind", j.spec.Kind)
	return nil
}

// Touch records activity for a task; the sweeper leaves touched jobs alone.
func (q *Queue) Touch(taskID types.ID) {
	q.mu.Lock()
	j, ok := q.active[taskID]
	q.mu.Unlock()
	if ok {
		j.lastActivity.set(time.Now())
	}
}

// ActiveTasks lists the currently queued or running task IDs.
func (q *Queue) ActiveTasks() []types.ID {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]types.ID, 0, len(q.active))
	for id := range q.active {
		out = append(out, id)
	}
	return out
}

// Close stops accepting jobs, cancels active ones, and waits for workers.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	for _, j := range q.active {
		if j.cancel != nil {
			j.cancel(types.NewError(types.QUEUE_CLOSED, "queue shutting down"))
		}
	}
	q.mu.Unlock()

	close(q.jobs)
	close(q.sweepStop)
	q.wg.Wait()
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for j := range q.jobs {
		if j.lastActivity.get().IsZero() {
			// Revoked before it started.
			q.finish(j, types.NewError(types.QUEUE_JOB_REVOKED, "task revoked before start"))
			continue
		}
		q.execute(j)
	}
}

func (q *Queue) execute(j *job) {
	spec := j.spec
	start := time.Now()

	jobCtx, cancel := context.WithCancelCause(context.Background())
	q.mu.Lock()
	j.cancel = cancel
	q.mu.Unlock()
	defer cancel(nil)

	if q.metrics != nil {
		q.metrics.RecordJobStart(spec.Kind)
	}

	var err error
	for attempt := 0; ; attempt++ {
		err = q.runAttempt(jobCtx, j)
		if err == nil || attempt >= spec.MaxRetries {
			break
		}

		class := types.Classify(err)
		if !class.Retryable() {
			break
		}

		delay := class.RetryDelay()
		q.logger.Warn("task failed, retrying",
			"task_id", spec.TaskID,
			"kind", spec.Kind,
			"attempt", attempt+1,
			"class", class,
			"delay", delay,
			"error", err)
		if q.metrics != nil {
			q.metrics.RecordJobRetry(spec.Kind, class)
		}
		if spec.OnRetry != nil {
			spec.OnRetry(attempt+1, class, delay, err)
		}

		if sleepErr := q.sleep(jobCtx, delay); sleepErr != nil {
			err = sleepErr
			break
		}
	}

	status := types.TaskStatusCompleted
	if err != nil {
		status = types.TaskStatusFailed
		if errors.Is(err, types.NewError(types.QUEUE_JOB_REVOKED, "")) {
			status = types.TaskStatusCancelled
		}
	}
	if q.metrics != nil {
		q.metrics.RecordJobDone(spec.Kind, status, time.Since(start))
	}
	q.finish(j, err)
}

// runAttempt runs the job once. The soft timeout cancels the job context
// so cooperative work stops there; the hard deadline stays on as the
// backstop for work that ignores the first cancellation.
func (q *Queue) runAttempt(base context.Context, j *job) error {
	spec := j.spec

	ctx, hardCancel := context.WithTimeoutCause(base, spec.HardTimeout,
		types.NewError(types.QUEUE_JOB_TIMEOUT,
			fmt.Sprintf("task exceeded hard timeout %s", spec.HardTimeout)))
	defer hardCancel()

	runCtx, softCancel := context.WithCancelCause(ctx)
	defer softCancel(nil)
	if spec.SoftTimeout > 0 && spec.SoftTimeout < spec.HardTimeout {
		softTimer := time.AfterFunc(spec.SoftTimeout, func() {
			q.logger.Warn("task exceeded soft timeout",
				"task_id", spec.TaskID,
				"kind", spec.Kind,
				"soft_timeout", spec.SoftTimeout)
			softCancel(types.NewError(types.QUEUE_JOB_TIMEOUT,
				fmt.Sprintf("task exceeded soft timeout %s", spec.SoftTimeout)))
		})
		defer softTimer.Stop()
	}

	err := spec.Run(runCtx)
	if err != nil && runCtx.Err() != nil {
		if cause := context.Cause(runCtx); cause != nil && cause != runCtx.Err() {
			return cause
		}
	}
	return err
}

func (q *Queue) finish(j *job, err error) {
	q.mu.Lock()
	delete(q.active, j.spec.TaskID)
	q.mu.Unlock()

	if j.spec.OnDone != nil {
		j.spec.OnDone(err)
	}
}

// sweeper revokes jobs that have gone quiet for the stale window.
func (q *Queue) sweeper() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-q.sweepStop:
			return
		case <-ticker.C:
			q.sweepOnce(time.Now())
		}
	}
}

func (q *Queue) sweepOnce(now time.Time) {
	q.mu.Lock()
	var stale []*job
	for _, j := range q.active {
		last := j.lastActivity.get()
		if !last.IsZero() && now.Sub(last) > q.staleAfter {
			stale = append(stale, j)
		}
	}
	q.mu.Unlock()

	for _, j := range stale {
		q.logger.Warn("revoking stale task",
			"task_id", j.spec.TaskID,
			"kind", j.spec.Kind,
			"idle", now.Sub(j.lastActivity.get()))
		_ = q.Revoke(j.spec.TaskID)
	}
}
