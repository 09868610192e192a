// Package pipeline provides a sequential staged execution engine. A
// pipeline runs named stages over a typed state value, following each
// stage's transition to the next, with whole-pipeline retry on stage
// failure. The generation and replan workflows are both built on it.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/smithisrealdev/aigo-engine/internal/types"
)

// DefaultMaxRetries bounds whole-pipeline restarts after a stage failure.
const DefaultMaxRetries = 3

// Handler executes one stage, returning the updated state.
type Handler[S any] func(ctx context.Context, state S) (S, error)

// Transition picks the next stage from the post-stage state. Returning
// Done ends the pipeline.
type Transition[S any] func(state S) string

// Done is the terminal transition target.
const Done = ""

type stage[S any] struct {
	name    string
	handler Handler[S]
	next    Transition[S]
}

// Pipeline runs stages sequentially starting from the first added stage.
type Pipeline[S any] struct {
	name       string
	stages     []stage[S]
	byName     map[string]int
	maxRetries int
	logger     *slog.Logger
	tracer     trace.Tracer
	progressFn func(stageName string, state S)
	retryFn    func(attempt int, stageName string, err error)
}

// Option configures a Pipeline.
type Option[S any] func(*Pipeline[S])

// WithLogger sets the structured logger.
func WithLogger[S any](logger *slog.Logger) Option[S] {
	return func(p *Pipeline[S]) { p.logger = logger }
}

// WithTracer enables OpenTelemetry spans per stage.
func WithTracer[S any](tracer trace.Tracer) Option[S] {
	return func(p *Pipeline[S]) { p.tracer = tracer }
}

// WithMaxRetries sets how many times the whole pipeline restarts after a
// stage failure before giving up.
func WithMaxRetries[S any](n int) Option[S] {
	return func(p *Pipeline[S]) {
		if n >= 0 {
			p.maxRetries = n
		}
	}
}

// WithProgressFn registers a callback invoked after each completed stage.
func WithProgressFn[S any](fn func(stageName string, state S)) Option[S] {
	return func(p *Pipeline[S]) { p.progressFn = fn }
}

// WithRetryFn registers a callback invoked before each pipeline restart.
func WithRetryFn[S any](fn func(attempt int, stageName string, err error)) Option[S] {
	return func(p *Pipeline[S]) { p.retryFn = fn }
}

// New creates an empty pipeline.
func New[S any](name string, opts ...Option[S]) *Pipeline[S] {
	p := &Pipeline[S]{
		name:       name,
		byName:     make(map[string]int),
		maxRetries: DefaultMaxRetries,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// AddStage appends a stage. With a nil transition the pipeline proceeds to
// the next stage in insertion order, finishing after the last one.
func (p *Pipeline[S]) AddStage(name string, handler Handler[S], next Transition[S]) *Pipeline[S] {
	p.byName[name] = len(p.stages)
	p.stages = append(p.stages, stage[S]{name: name, handler: handler, next: next})
	return p
}

// Run executes the pipeline from the first stage. A stage error restarts
// the whole pipeline from the initial state, up to maxRetries times; the
// final attempt's error is returned wrapped with the failing stage name.
// Context cancellation aborts immediately without retrying.
func (p *Pipeline[S]) Run(ctx context.Context, initial S) (S, error) {
	if len(p.stages) == 0 {
		return initial, types.NewError(types.PIPELINE_STAGE_FAILED, fmt.Sprintf("pipeline %s has no stages", p.name))
	}

	var lastErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if attempt > 0 {
			p.logger.Warn("restarting pipeline after stage failure",
				"pipeline", p.name,
				"attempt", attempt,
				"error", lastErr)
		}

		state, failedStage, err := p.runOnce(ctx, initial)
		if err == nil {
			return state, nil
		}
		if ctx.Err() != nil {
			return state, err
		}

		lastErr = err
		if attempt < p.maxRetries && p.retryFn != nil {
			p.retryFn(attempt+1, failedStage, err)
		}
	}

	var zero S
	return zero, types.WrapError(types.PIPELINE_RETRIES_EXHAUSTED,
		fmt.Sprintf("pipeline %s failed after %d attempts", p.name, p.maxRetries+1), lastErr)
}

// runOnce executes a single pass. Returns the failing stage name on error.
func (p *Pipeline[S]) runOnce(ctx context.Context, state S) (S, string, error) {
	idx := 0
	steps := 0
	maxSteps := len(p.stages) * 4

	for {
		if err := ctx.Err(); err != nil {
			return state, p.stages[idx].name, err
		}
		if steps >= maxSteps {
			return state, p.stages[idx].name, types.NewError(types.PIPELINE_STAGE_FAILED,
				fmt.Sprintf("pipeline %s exceeded %d steps, transition cycle suspected", p.name, maxSteps))
		}
		steps++

		st := p.stages[idx]
		next, err := p.runStage(ctx, st, &state)
		if err != nil {
			return state, st.name, err
		}

		if next == Done {
			if st.next == nil && idx+1 < len(p.stages) {
				idx++
				continue
			}
			return state, "", nil
		}

		nextIdx, ok := p.byName[next]
		if !ok {
			return state, st.name, types.NewError(types.PIPELINE_STAGE_FAILED,
				fmt.Sprintf("pipeline %s: stage %s transitioned to unknown stage %q", p.name, st.name, next))
		}
		idx = nextIdx
	}
}

func (p *Pipeline[S]) runStage(ctx context.Context, st stage[S], state *S) (string, error) {
	stageCtx := ctx
	var span trace.Span
	if p.tracer != nil {
		stageCtx, span = p.tracer.Start(ctx, "pipeline.stage",
			trace.WithAttributes(
				attribute.String("pipeline.name", p.name),
				attribute.String("pipeline.stage", st.name),
			))
		defer span.End()
	}

	start := time.Now()
	out, err := st.handler(stageCtx, *state)
	elapsed := time.Since(start)

	if err != nil {
		p.logger.Error("pipeline stage failed",
			"pipeline", p.name,
			"stage", st.name,
			"duration", elapsed,
			"error", err)
		if span != nil {
			span.RecordError(err)
		}
		return "", err
	}

	*state = out
	p.logger.Debug("pipeline stage completed",
		"pipeline", p.name,
		"stage", st.name,
		"duration", elapsed)

	if p.progressFn != nil {
		p.progressFn(st.name, out)
	}

	if st.next == nil {
		return Done, nil
	}
	return st.next(out), nil
}
