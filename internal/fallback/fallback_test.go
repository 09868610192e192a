package fallback

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smithisrealdev/aigo-engine/internal/llm/providers"
)

func TestConfidencePerTool(t *testing.T) {
	assert.Equal(t, 0.6, Confidence("flights"))
	assert.Equal(t, 0.65, Confidence("hotels"))
	assert.Equal(t, 0.5, Confidence("weather"))
	assert.Equal(t, 0.7, Confidence("attractions"))
	assert.Equal(t, 0.55, Confidence("transit"))
	assert.Equal(t, 0.5, Confidence("something_else"))
}

func TestSynthesizeReturnsPayloadAndConfidence(t *testing.T) {
	mock := providers.NewMockProvider("```json\n{\"hotels\": [{\"title\": \"Grand Hotel\", \"price_per_night\": 120}]}\n```")
	s := NewSynthesizer(mock)

	payload, confidence, err := s.Synthesize(context.Background(), "hotels",
		map[string]any{"destination": "Rome", "nights": 3}, "connection refused")
	require.NoError(t, err)

	assert.Equal(t, 0.65, confidence)
	hotels := payload["hotels"].([]any)
	require.Len(t, hotels, 1)

	calls := mock.Calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].Messages[1].Content, "Rome")
	assert.Contains(t, calls[0].Messages[1].Content, "connection refused")
}

func TestSynthesizePropagatesModelFailure(t *testing.T) {
	mock := providers.NewMockProvider("{}")
	mock.FailWith(errors.New("model unavailable"))
	s := NewSynthesizer(mock)

	_, confidence, err := s.Synthesize(context.Background(), "weather", nil, "bypassed")
	assert.Error(t, err)
	assert.Equal(t, 0.0, confidence)
}

func TestSynthesizeMalformedResponse(t *testing.T) {
	mock := providers.NewMockProvider("I'm sorry, I cannot estimate that.")
	s := NewSynthesizer(mock)

	_, _, err := s.Synthesize(context.Background(), "flights", map[string]any{}, "timeout")
	assert.Error(t, err)
}
