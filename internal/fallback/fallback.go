// Package fallback synthesizes estimated tool payloads with an LLM when a
// live tool is failing or bypassed. Estimates carry a per-tool confidence
// score so downstream consumers can weigh them against live data.
package fallback

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/smithisrealdev/aigo-engine/internal/llm"
)

// confidences assigns a fixed confidence to each tool's estimates. Weather
// is the least trustworthy to guess; attraction suggestions the most.
var confidences = map[string]float64{
	"flights":     0.6,
	"hotels":      0.65,
	"weather":     0.5,
	"attractions": 0.7,
	"transit":     0.55,
}

const defaultConfidence = 0.5

// Confidence returns the estimate confidence for a tool name.
func Confidence(toolName string) float64 {
	if c, ok := confidences[toolName]; ok {
		return c
	}
	return defaultConfidence
}

// Synthesizer generates estimated payloads via an LLM provider.
type Synthesizer struct {
	provider llm.Provider
	model    string
	logger   *slog.Logger
}

// Option configures a Synthesizer.
type Option func(*Synthesizer)

// WithModel overrides the provider's default model for synthesis calls.
func WithModel(model string) Option {
	return func(s *Synthesizer) { s.model = model }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Synthesizer) { s.logger = l }
}

// NewSynthesizer creates a Synthesizer backed by the given provider.
func NewSynthesizer(provider llm.Provider, opts ...Option) *Synthesizer {
	s := &Synthesizer{provider: provider, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Synthesize produces an estimated payload for the named tool. The reason
// string describes why the live call was skipped and is included in the
// prompt so the model knows it is estimating.
func (s *Synthesizer) Synthesize(ctx context.Context, toolName string, input map[string]any, reason string) (map[string]any, float64, error) {
	prompt, err := buildPrompt(toolName, input, reason)
	if err != nil {
		return nil, 0, err
	}

	var payload map[string]any
	req := llm.Request{
		Model: s.model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: systemPrompt},
			{Role: llm.RoleUser, Content: prompt},
		},
		Temperature: 0.4,
	}
	if err := llm.CompleteJSON(ctx, s.provider, req, &payload); err != nil {
		s.logger.Warn("fallback synthesis failed", "tool", toolName, "error", err)
		return nil, 0, err
	}

	confidence := Confidence(toolName)
	s.logger.Info("synthesized fallback data",
		"tool", toolName,
		"confidence", confidence,
		"reason", reason)
	return payload, confidence, nil
}

const systemPrompt = `You are a travel data estimator. A live data source is ` +
	`unavailable and you must produce plausible estimated data in its place. ` +
	`Respond with a single JSON object matching the requested schema exactly. ` +
	`Use realistic typical values for the destination and season. Do not ` +
	`invent exact real-world offers; these are estimates.`

var schemas = map[string]string{
	"flights":     `{"flights": [{"provider": string, "title": string, "price": number, "currency": string, "stops": number, "origin": string, "destination": string}]}`,
	"hotels":      `{"hotels": [{"provider": string, "title": string, "price_per_night": number, "price": number, "currency": string, "hotel_stars": number, "nights": number}]}`,
	"weather":     `{"daily": [{"date": string, "condition": string, "temp_high_c": number, "temp_low_c": number, "precip_chance": number, "is_severe": boolean}]}`,
	"attractions": `{"attractions": [{"title": string, "category": string, "is_outdoor": boolean, "estimated_cost": number, "duration_minutes": number, "rating": number}]}`,
	"transit":     `{"mode": string, "duration_minutes": number, "distance_meters": number}`,
}

func buildPrompt(toolName string, input map[string]any, reason string) (string, error) {
	schema, ok := schemas[toolName]
	if !ok {
		schema = `{"data": object}`
	}

	inputJSON, err := json.Marshal(input)
	if err != nil {
		return "", fmt.Errorf("marshal synthesis input: %w", err)
	}

	return fmt.Sprintf(
		"Tool %q is unavailable (%s).\nRequest parameters: %s\nProduce estimated data as JSON with this shape:\n%s",
		toolName, reason, inputJSON, schema), nil
}
