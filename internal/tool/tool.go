// Package tool defines the external-data tool contract, the registry that
// holds tool implementations, and the health-guarded caller that degrades
// to AI-synthesized fallbacks when a tool keeps failing.
package tool

import (
	"context"
	"encoding/json"

	"github.com/smithisrealdev/aigo-engine/internal/types"
)

// Source records where a tool result came from.
type Source string

const (
	SourceLive     Source = "live"
	SourceFallback Source = "fallback"
	SourceCache    Source = "cache"
)

// Result is the uniform envelope every tool call resolves to. Calls
// serviced by fallback synthesis carry IsEstimated plus a confidence
// score instead of an error.
type Result struct {
	Payload     map[string]any   `json:"payload"`
	Source      Source           `json:"source"`
	IsEstimated bool             `json:"is_estimated"`
	Confidence  float64          `json:"confidence"`
	ErrorClass  types.ErrorClass `json:"error_class,omitempty"`
	ErrorMsg    string           `json:"error_message,omitempty"`
}

// Decode re-marshals one payload entry into a typed value. Malformed or
// missing entries leave out at its zero value; degraded tool data is not
// an error at this layer.
func (r Result) Decode(key string, out any) {
	if r.Payload == nil {
		return
	}
	raw, err := json.Marshal(r.Payload[key])
	if err != nil {
		return
	}
	_ = json.Unmarshal(raw, out)
}

// Live wraps payload as a successful live result.
func Live(payload map[string]any) Result {
	return Result{Payload: payload, Source: SourceLive, Confidence: 1.0}
}

// Estimated wraps payload as a fallback estimate with the given confidence.
func Estimated(payload map[string]any, confidence float64) Result {
	return Result{
		Payload:     payload,
		Source:      SourceFallback,
		IsEstimated: true,
		Confidence:  confidence,
	}
}

// Tool is one external data capability (flight search, weather, transit).
// Call blocks until the result is ready or ctx expires.
type Tool interface {
	// Name returns the stable tool identifier used for health tracking
	// and fallback routing.
	Name() string

	// Description returns a short human-readable summary.
	Description() string

	// Call executes the tool against the given input.
	Call(ctx context.Context, input map[string]any) (map[string]any, error)
}
