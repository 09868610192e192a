package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smithisrealdev/aigo-engine/internal/types"
)

type stubProvider struct {
	content string
	err     error
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &Response{Content: s.content}, nil
}

func (s *stubProvider) Health(ctx context.Context) types.HealthStatus {
	return types.Healthy("stub")
}

func TestCompleteJSONDecodes(t *testing.T) {
	p := &stubProvider{content: "```json\n{\"destination\": \"Lisbon\", \"duration_days\": 4}\n```"}

	var out struct {
		Destination  string `json:"destination"`
		DurationDays int    `json:"duration_days"`
	}
	err := CompleteJSON(context.Background(), p, Request{}, &out)
	require.NoError(t, err)
	assert.Equal(t, "Lisbon", out.Destination)
	assert.Equal(t, 4, out.DurationDays)
}

func TestCompleteJSONInvalidResponse(t *testing.T) {
	p := &stubProvider{content: "no json here"}

	var out map[string]any
	err := CompleteJSON(context.Background(), p, Request{}, &out)
	require.Error(t, err)

	var ce *types.ClassifiedError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, types.ErrClassInvalidResponse, ce.Class)
	assert.False(t, ce.Class.Retryable())
}

func TestCompleteJSONPropagatesProviderError(t *testing.T) {
	want := errors.New("boom")
	p := &stubProvider{err: want}

	var out map[string]any
	err := CompleteJSON(context.Background(), p, Request{}, &out)
	assert.ErrorIs(t, err, want)
}
