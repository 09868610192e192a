package tool

import (
	"context"
	"log/slog"
	"time"

	"github.com/smithisrealdev/aigo-engine/internal/types"
)

// DefaultCallTimeout bounds a single live tool call.
const DefaultCallTimeout = 30 * time.Second

// Synthesizer produces an AI-estimated payload for a tool that is failing
// or bypassed. Implemented by the fallback package.
type Synthesizer interface {
	Synthesize(ctx context.Context, toolName string, input map[string]any, reason string) (map[string]any, float64, error)
}

// MetricsRecorder receives tool call outcomes. Implementations must not block.
type MetricsRecorder interface {
	ObserveToolCall(tool string, source Source, duration time.Duration, success bool)
}

// Caller executes tools through the health tracker and degrades to the
// synthesizer when a tool fails or is bypassed. Call never returns an
// error for data tools: the worst case is an empty estimated payload
// with confidence zero.
type Caller struct {
	registry *Registry
	health   *HealthTracker
	synth    Synthesizer
	timeout  time.Duration
	logger   *slog.Logger
	metrics  MetricsRecorder
}

// CallerOption configures a Caller.
type CallerOption func(*Caller)

// WithTimeout sets the per-call timeout for live tool calls.
func WithTimeout(d time.Duration) CallerOption {
	return func(c *Caller) { c.timeout = d }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) CallerOption {
	return func(c *Caller) { c.logger = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m MetricsRecorder) CallerOption {
	return func(c *Caller) { c.metrics = m }
}

// NewCaller creates a health-guarded tool caller.
func NewCaller(registry *Registry, health *HealthTracker, synth Synthesizer, opts ...CallerOption) *Caller {
	c := &Caller{
		registry: registry,
		health:   health,
		synth:    synth,
		timeout:  DefaultCallTimeout,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Health returns the caller's health tracker.
func (c *Caller) Health() *HealthTracker { return c.health }

// Call runs the named tool. A bypassed tool goes straight to fallback; a
// failing call records the failure, classifies it, and falls back. Only an
// unregistered tool name returns an error.
func (c *Caller) Call(ctx context.Context, name string, input map[string]any) (Result, error) {
	t, err := c.registry.Get(name)
	if err != nil {
		return Result{}, err
	}

	if c.health.ShouldBypass(name) {
		class, lastErr := c.health.LastFailure(name)
		c.logger.Warn("tool bypassed, using fallback",
			"tool", name,
			"class", class,
			"consecutive_failures", c.health.ConsecutiveFailures(name))
		reason := "bypassed after repeated failures"
		if lastErr != "" {
			reason += ": " + lastErr
		}
		return c.fallback(ctx, name, input, reason, class), nil
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	payload, callErr := t.Call(callCtx, input)
	elapsed := time.Since(start)

	if callErr == nil {
		c.health.RecordSuccess(name)
		c.observe(name, SourceLive, elapsed, true)
		c.logger.Debug("tool call succeeded", "tool", name, "duration", elapsed)
		return Live(payload), nil
	}

	class := types.Classify(callErr)
	c.health.RecordFailure(name, class, callErr.Error())
	c.observe(name, SourceLive, elapsed, false)
	c.logger.Warn("tool call failed, using fallback",
		"tool", name,
		"class", class,
		"error", callErr,
		"duration", elapsed)

	res := c.fallback(ctx, name, input, callErr.Error(), class)
	return res, nil
}

// fallback asks the synthesizer for an estimate. Synthesis failures degrade
// to an empty payload with confidence zero rather than an error.
func (c *Caller) fallback(ctx context.Context, name string, input map[string]any, reason string, class types.ErrorClass) Result {
	start := time.Now()
	payload, confidence, err := c.synth.Synthesize(ctx, name, input, reason)
	if err != nil {
		c.observe(name, SourceFallback, time.Since(start), false)
		c.logger.Error("fallback synthesis failed", "tool", name, "error", err)
		return Result{
			Payload:     map[string]any{},
			Source:      SourceFallback,
			IsEstimated: true,
			Confidence:  0,
			ErrorClass:  class,
			ErrorMsg:    reason,
		}
	}

	c.observe(name, SourceFallback, time.Since(start), true)
	res := Estimated(payload, confidence)
	res.ErrorClass = class
	res.ErrorMsg = reason
	return res
}

func (c *Caller) observe(name string, source Source, d time.Duration, ok bool) {
	if c.metrics != nil {
		c.metrics.ObserveToolCall(name, source, d, ok)
	}
}
