// Package planner runs the multi-stage generation workflow that turns a
// free-form travel prompt into a versioned plan snapshot. Stages extract
// intent, gather provider data concurrently, synthesize day plans with
// the LLM, route transit between activities, attach booking options, and
// persist version 1.
package planner

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/smithisrealdev/aigo-engine/internal/itinerary"
	"github.com/smithisrealdev/aigo-engine/internal/llm"
	"github.com/smithisrealdev/aigo-engine/internal/pipeline"
	"github.com/smithisrealdev/aigo-engine/internal/store"
	"github.com/smithisrealdev/aigo-engine/internal/tool"
	"github.com/smithisrealdev/aigo-engine/internal/types"
)

// Stage names, in execution order.
const (
	StageIntent        = "intent"
	StageDataGathering = "data_gathering"
	StageGeneration    = "generation"
	StageRoute         = "route"
	StageMonetization  = "monetization"
	StageFinalization  = "finalization"
)

// gatherConcurrency bounds parallel tool calls inside data gathering.
const gatherConcurrency = 5

// ProgressFn receives checkpoint updates as the workflow advances.
type ProgressFn func(stage string, percent int, message string)

// Request is one generation job.
type Request struct {
	PlanID      types.ID
	Prompt      string
	Preferences map[string]any
	Progress    ProgressFn
}

type genState struct {
	req      Request
	intent   itinerary.Intent
	gathered itinerary.GatheredData
	days     []itinerary.DayPlan
	bookings []itinerary.BookingOption
	snapshot *itinerary.Snapshot

	// Set when the LLM response could not be used and day plans came
	// from the template builder instead.
	daysEstimated bool

	// Checkpoint emitted after the stage completes.
	stepPct int
	stepMsg string
}

// Planner owns the generation pipeline and its collaborators.
type Planner struct {
	provider   llm.Provider
	caller     *tool.Caller
	store      store.VersionStore
	model      string
	maxRetries int
	logger     *slog.Logger
	tracer     trace.Tracer
	now        func() time.Time
}

// Option configures a Planner.
type Option func(*Planner)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Planner) { p.logger = l }
}

// WithTracer enables per-stage spans.
func WithTracer(t trace.Tracer) Option {
	return func(p *Planner) { p.tracer = t }
}

// WithModel overrides the provider's default model.
func WithModel(model string) Option {
	return func(p *Planner) { p.model = model }
}

// WithMaxRetries bounds whole-pipeline restarts.
func WithMaxRetries(n int) Option {
	return func(p *Planner) {
		if n >= 0 {
			p.maxRetries = n
		}
	}
}

// WithNow injects the clock, for tests.
func WithNow(now func() time.Time) Option {
	return func(p *Planner) { p.now = now }
}

// New creates a Planner.
func New(provider llm.Provider, caller *tool.Caller, st store.VersionStore, opts ...Option) *Planner {
	p := &Planner{
		provider:   provider,
		caller:     caller,
		store:      st,
		maxRetries: pipeline.DefaultMaxRetries,
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Generate runs the full workflow and returns the persisted version 1
// snapshot. A stage failure restarts the whole workflow from the prompt,
// up to the configured retry limit.
func (p *Planner) Generate(ctx context.Context, req Request) (*itinerary.Snapshot, error) {
	if req.PlanID.IsZero() {
		req.PlanID = types.NewID()
	}

	pl := pipeline.New[genState]("generation",
		pipeline.WithLogger[genState](p.logger),
		pipeline.WithTracer[genState](p.tracer),
		pipeline.WithMaxRetries[genState](p.maxRetries),
		pipeline.WithProgressFn[genState](func(stageName string, s genState) {
			p.report(s.req, stageName, s.stepPct, s.stepMsg)
		}),
	)
	pl.AddStage(StageIntent, p.extractIntent, nil)
	pl.AddStage(StageDataGathering, p.gatherData, nil)
	pl.AddStage(StageGeneration, p.generateDays, nil)
	pl.AddStage(StageRoute, p.routeTransit, nil)
	pl.AddStage(StageMonetization, p.monetize, nil)
	pl.AddStage(StageFinalization, p.finalize, nil)

	out, err := pl.Run(ctx, genState{req: req})
	if err != nil {
		return nil, err
	}
	return out.snapshot, nil
}

// report emits a checkpoint to the caller's progress callback.
func (p *Planner) report(req Request, stage string, percent int, message string) {
	if req.Progress != nil {
		req.Progress(stage, percent, message)
	}
}
