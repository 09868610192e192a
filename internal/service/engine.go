// Package service exposes the engine facade: job submission, progress
// inspection, cancellation, and plan retrieval. It wires the generation
// and replan workflows into the background queue and the progress
// tracker so callers only deal with plan and task IDs.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/smithisrealdev/aigo-engine/internal/itinerary"
	"github.com/smithisrealdev/aigo-engine/internal/llm"
	"github.com/smithisrealdev/aigo-engine/internal/planner"
	"github.com/smithisrealdev/aigo-engine/internal/progress"
	"github.com/smithisrealdev/aigo-engine/internal/queue"
	"github.com/smithisrealdev/aigo-engine/internal/replan"
	"github.com/smithisrealdev/aigo-engine/internal/store"
	"github.com/smithisrealdev/aigo-engine/internal/tool"
	"github.com/smithisrealdev/aigo-engine/internal/types"
)

// Engine is the orchestration facade.
type Engine struct {
	planner   *planner.Planner
	replanner *replan.Replanner
	store     store.VersionStore
	queue     *queue.Queue
	tracker   *progress.Tracker
	logger    *slog.Logger

	provider   llm.Provider
	toolHealth *tool.HealthTracker
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithHealth wires the LLM provider and the tool health tracker into the
// engine's health report.
func WithHealth(p llm.Provider, tools *tool.HealthTracker) Option {
	return func(e *Engine) {
		e.provider = p
		e.toolHealth = tools
	}
}

// New assembles the engine from its collaborators.
func New(p *planner.Planner, r *replan.Replanner, st store.VersionStore, q *queue.Queue, tracker *progress.Tracker, opts ...Option) *Engine {
	e := &Engine{
		planner:   p,
		replanner: r,
		store:     st,
		queue:     q,
		tracker:   tracker,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SubmitGeneration queues a generation job for the given prompt and
// returns the assigned plan and task IDs immediately.
func (e *Engine) SubmitGeneration(ctx context.Context, prompt string, preferences map[string]any) (planID, taskID types.ID, err error) {
	if prompt == "" {
		return "", "", types.NewError(types.PLAN_VALIDATION_FAILED, "generation prompt must not be empty")
	}

	planID = types.NewID()
	taskID = types.NewID()

	spec := queue.SpecFor(types.TaskKindGeneration)
	spec.TaskID = taskID
	spec.PlanID = planID
	spec.Run = func(jobCtx context.Context) error {
		_, runErr := e.planner.Generate(jobCtx, planner.Request{
			PlanID:      planID,
			Prompt:      prompt,
			Preferences: preferences,
			Progress:    e.progressFn(taskID, planID, types.TaskKindGeneration),
		})
		return runErr
	}
	spec.OnRetry = e.retryFn(taskID, planID, types.TaskKindGeneration)
	spec.OnDone = e.doneFn(taskID, planID, types.TaskKindGeneration, nil)

	if err := e.submit(ctx, spec); err != nil {
		return "", "", err
	}
	return planID, taskID, nil
}

// SubmitReplan queues a replan job against the plan's current version and
// returns the task ID plus the version the replan will produce. A second
// replan on the same plan is rejected while the first is in flight.
func (e *Engine) SubmitReplan(ctx context.Context, planID types.ID, trigger itinerary.ReplanTrigger) (taskID types.ID, newVersionHint int, err error) {
	if err := trigger.Validate(); err != nil {
		return "", 0, err
	}

	snap, err := e.store.Get(ctx, planID)
	if err != nil {
		return "", 0, err
	}

	taskID = types.NewID()
	if err := e.store.SetReplanTask(ctx, planID, taskID); err != nil {
		return "", 0, err
	}
	newVersionHint = snap.Version + 1

	// A failed or cancelled replan must release the plan for the next
	// one; a successful commit clears the marker inside SaveReplan.
	release := func(runErr error) {
		if runErr == nil {
			return
		}
		if clearErr := e.store.ClearReplanTask(context.Background(), planID, taskID); clearErr != nil {
			e.logger.Warn("failed to clear replan task marker",
				"plan_id", planID,
				"task_id", taskID,
				"error", clearErr)
		}
	}

	spec := queue.SpecFor(types.TaskKindReplan)
	spec.TaskID = taskID
	spec.PlanID = planID
	spec.Run = func(jobCtx context.Context) error {
		_, runErr := e.replanner.Run(jobCtx, replan.Request{
			PlanID:   planID,
			Trigger:  trigger,
			Progress: e.progressFn(taskID, planID, types.TaskKindReplan),
		})
		return runErr
	}
	spec.OnRetry = e.retryFn(taskID, planID, types.TaskKindReplan)
	spec.OnDone = e.doneFn(taskID, planID, types.TaskKindReplan, release)

	if err := e.submit(ctx, spec); err != nil {
		release(err)
		return "", 0, err
	}
	return taskID, newVersionHint, nil
}

// submit publishes the pending status and hands the job to the queue.
func (e *Engine) submit(ctx context.Context, spec queue.Spec) error {
	if err := e.tracker.Publish(ctx, progress.Update{
		TaskID:  spec.TaskID,
		PlanID:  spec.PlanID,
		Kind:    spec.Kind,
		Status:  types.TaskStatusPending,
		Message: "queued",
	}); err != nil {
		return err
	}
	return e.queue.Submit(spec)
}

// progressFn adapts workflow checkpoints into tracker updates and keeps
// the queue's stale-task sweeper at bay.
func (e *Engine) progressFn(taskID, planID types.ID, kind types.TaskKind) func(stage string, percent int, message string) {
	return func(stage string, percent int, message string) {
		e.queue.Touch(taskID)
		err := e.tracker.Publish(context.Background(), progress.Update{
			TaskID:   taskID,
			PlanID:   planID,
			Kind:     kind,
			Status:   types.TaskStatusProgress,
			Progress: percent,
			Stage:    stage,
			Message:  message,
		})
		if err != nil {
			e.logger.Warn("failed to publish progress",
				"task_id", taskID,
				"stage", stage,
				"error", err)
		}
	}
}

func (e *Engine) retryFn(taskID, planID types.ID, kind types.TaskKind) func(attempt int, class types.ErrorClass, delay time.Duration, err error) {
	return func(attempt int, class types.ErrorClass, delay time.Duration, err error) {
		_ = e.tracker.Publish(context.Background(), progress.Update{
			TaskID:     taskID,
			PlanID:     planID,
			Kind:       kind,
			Status:     types.TaskStatusRetrying,
			Message:    fmt.Sprintf("%s Retrying in %s.", class.UserMessage(), delay),
			Error:      string(class),
			ErrorClass: class,
			CanRetry:   true,
			RetryAfter: int(delay / time.Second),
		})
	}
}

// doneFn publishes the terminal status. cleanup, when set, runs on any
// non-success outcome.
func (e *Engine) doneFn(taskID, planID types.ID, kind types.TaskKind, cleanup func(error)) func(error) {
	return func(err error) {
		if cleanup != nil {
			cleanup(err)
		}

		ctx := context.Background()
		switch {
		case err == nil:
			_ = e.tracker.Publish(ctx, progress.Update{
				TaskID:   taskID,
				PlanID:   planID,
				Kind:     kind,
				Status:   types.TaskStatusCompleted,
				Progress: 100,
				Message:  "done",
			})
		case errors.Is(err, types.NewError(types.QUEUE_JOB_REVOKED, "")):
			_ = e.tracker.Publish(ctx, progress.Update{
				TaskID:   taskID,
				PlanID:   planID,
				Kind:     kind,
				Status:   types.TaskStatusCancelled,
				Progress: progress.FailedProgress,
				Message:  "cancelled",
			})
		default:
			_ = e.tracker.Fail(ctx, progress.Update{
				TaskID: taskID,
				PlanID: planID,
				Kind:   kind,
			}, types.Classify(err))
		}
	}
}

// GetProgress returns the latest progress record for a task.
func (e *Engine) GetProgress(ctx context.Context, taskID types.ID) (progress.Update, error) {
	return e.tracker.Get(ctx, taskID)
}

// SubscribeProgress streams progress updates for a task until it reaches
// a terminal state or ctx is cancelled.
func (e *Engine) SubscribeProgress(ctx context.Context, taskID types.ID) (<-chan progress.Update, func(), error) {
	return e.tracker.Subscribe(ctx, taskID)
}

// Cancel revokes an in-flight task. The cancelled status surfaces once
// the worker observes the revocation at its next queue boundary.
func (e *Engine) Cancel(ctx context.Context, taskID types.ID) error {
	return e.queue.Revoke(taskID)
}

// GetPlan returns the current version of a plan.
func (e *Engine) GetPlan(ctx context.Context, planID types.ID) (*itinerary.Snapshot, error) {
	return e.store.Get(ctx, planID)
}

// GetPlanVersion returns one retained version of a plan.
func (e *Engine) GetPlanVersion(ctx context.Context, planID types.ID, version int) (*itinerary.Snapshot, error) {
	return e.store.GetVersion(ctx, planID, version)
}

// History lists a plan's retained version history, newest first.
func (e *Engine) History(ctx context.Context, planID types.ID) ([]itinerary.VersionHistoryEntry, error) {
	return e.store.History(ctx, planID)
}

// HealthReport aggregates dependency health for the status surfaces.
type HealthReport struct {
	Status types.HealthState  `json:"status"`
	LLM    types.HealthStatus `json:"llm"`
	Tools  []tool.ToolStats   `json:"tools,omitempty"`
}

// Health probes the LLM provider and snapshots tool call stats. A bypassed
// tool degrades the overall status; the provider state dominates.
func (e *Engine) Health(ctx context.Context) HealthReport {
	report := HealthReport{Status: types.HealthStateHealthy}

	if e.provider != nil {
		report.LLM = e.provider.Health(ctx)
		report.Status = report.LLM.State
	} else {
		report.LLM = types.Degraded("no llm provider configured")
		report.Status = types.HealthStateDegraded
	}

	if e.toolHealth != nil {
		report.Tools = e.toolHealth.Stats()
		for _, ts := range report.Tools {
			if ts.Bypassed && report.Status == types.HealthStateHealthy {
				report.Status = types.HealthStateDegraded
			}
		}
	}
	return report
}

// Close drains the queue and releases resources.
func (e *Engine) Close() {
	e.queue.Close()
}
