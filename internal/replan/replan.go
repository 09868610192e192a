// Package replan implements the incremental revision workflow. Instead of
// regenerating a plan from scratch it analyzes which segments a trigger
// impacts inside a bounded day window, substitutes or reroutes only those
// segments, and commits the merged result as the next version.
package replan

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
	StageLoadState          = "load_state"
	StageImpactAnalysis     = "impact_analysis"
	StageSubstitution       = "substitution"
	StageTransitUpdate      = "transit_update"
	StageMonetizationUpdate = "monetization_update"
	StageFinalize           = "finalize"
)

// defaultWindowDays is how far past today the impact analysis looks when
// the trigger does not name a day.
const defaultWindowDays = 2

// pitStopThreshold is the travel time above which a traffic reroute also
// suggests a break along the way.
const pitStopThreshold = 60 * time.Minute

// ProgressFn receives checkpoint updates as the workflow advances.
type ProgressFn func(stage string, percent int, message string)

// Request is one replan job.
type Request struct {
	PlanID          types.ID
	Trigger         itinerary.ReplanTrigger
	CurrentLocation *itinerary.Location
	Progress        ProgressFn
}

// Result is the outcome of a completed replan.
type Result struct {
	Snapshot *itinerary.Snapshot
	Summary  itinerary.ChangeSummary
}

// legUpdate is a transit leg recomputation pending application. Index is
// the activity whose TransitToNext changes.
type legUpdate struct {
	dayNumber int
	index     int
	leg       *itinerary.TransitLeg
}

// pitStop is a break inserted before the impacted activity.
type pitStop struct {
	dayNumber int
	index     int
	activity  itinerary.Activity
}

type replanState struct {
	req        Request
	current    *itinerary.Snapshot
	windowDays []int
	weather    []itinerary.DayWeather
	impacted   []itinerary.ImpactedSegment
	proposals  []itinerary.SubstitutionProposal
	legUpdates []legUpdate
	pitStops   []pitStop
	changes    []itinerary.Change
	isCritical bool
	alertMsg   string
	result     *Result

	stepPct int
	stepMsg string
}

// Replanner owns the replan pipeline and its collaborators.
type Replanner struct {
	provider   llm.Provider
	caller     *tool.Caller
	store      store.VersionStore
	model      string
	maxRetries int
	logger     *slog.Logger
	tracer     trace.Tracer
	now        func() time.Time
}

// Option configures a Replanner.
type Option func(*Replanner)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Replanner) { r.logger = l }
}

// WithTracer enables per-stage spans.
func WithTracer(t trace.Tracer) Option {
	return func(r *Replanner) { r.tracer = t }
}

// WithModel overrides the provider's default model.
func WithModel(model string) Option {
	return func(r *Replanner) { r.model = model }
}

// WithMaxRetries bounds whole-pipeline restarts.
func WithMaxRetries(n int) Option {
	return func(r *Replanner) {
		if n >= 0 {
			r.maxRetries = n
		}
	}
}

// WithNow injects the clock, for tests.
func WithNow(now func() time.Time) Option {
	return func(r *Replanner) { r.now = now }
}

// New creates a Replanner.
func New(provider llm.Provider, caller *tool.Caller, st store.VersionStore, opts ...Option) *Replanner {
	r := &Replanner{
		provider:   provider,
		caller:     caller,
		store:      st,
		maxRetries: pipeline.DefaultMaxRetries,
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes the replan state machine and returns the committed result.
// The snapshot version increases by exactly one on success.
func (r *Replanner) Run(ctx context.Context, req Request) (*Result, error) {
	if err := req.Trigger.Validate(); err != nil {
		return nil, err
	}

	pl := pipeline.New[replanState]("replan",
		pipeline.WithLogger[replanState](r.logger),
		pipeline.WithTracer[replanState](r.tracer),
		pipeline.WithMaxRetries[replanState](r.maxRetries),
		pipeline.WithProgressFn[replanState](func(stageName string, s replanState) {
			r.report(s.req, stageName, s.stepPct, s.stepMsg)
		}),
	)
	pl.AddStage(StageLoadState, r.loadState, nil)
	pl.AddStage(StageImpactAnalysis, r.analyzeImpact, nil)
	pl.AddStage(StageSubstitution, r.substitute, nil)
	pl.AddStage(StageTransitUpdate, r.updateTransit, nil)
	pl.AddStage(StageMonetizationUpdate, r.updateMonetization, nil)
	pl.AddStage(StageFinalize, r.finalize, nil)

	out, err := pl.Run(ctx, replanState{req: req})
	if err != nil {
		return nil, err
	}
	return out.result, nil
}

func (r *Replanner) report(req Request, stage string, percent int, message string) {
	if req.Progress != nil {
		req.Progress(stage, percent, message)
	}
}
