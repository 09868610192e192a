package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smithisrealdev/aigo-engine/internal/types"
)

type counterState struct {
	visited []string
	n       int
}

func appendStage(name string) Handler[counterState] {
	return func(ctx context.Context, s counterState) (counterState, error) {
		s.visited = append(s.visited, name)
		s.n++
		return s, nil
	}
}

func TestPipelineSequentialOrder(t *testing.T) {
	p := New[counterState]("test").
		AddStage("a", appendStage("a"), nil).
		AddStage("b", appendStage("b"), nil).
		AddStage("c", appendStage("c"), nil)

	out, err := p.Run(context.Background(), counterState{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, out.visited)
}

func TestPipelineCustomTransition(t *testing.T) {
	// Stage a jumps straight to c, skipping b.
	p := New[counterState]("test").
		AddStage("a", appendStage("a"), func(s counterState) string { return "c" }).
		AddStage("b", appendStage("b"), nil).
		AddStage("c", appendStage("c"), func(s counterState) string { return Done })

	out, err := p.Run(context.Background(), counterState{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, out.visited)
}

func TestPipelineRetriesWholePipeline(t *testing.T) {
	attempts := 0
	flaky := func(ctx context.Context, s counterState) (counterState, error) {
		attempts++
		if attempts < 3 {
			return s, errors.New("transient")
		}
		s.visited = append(s.visited, "flaky")
		return s, nil
	}

	var retryStages []string
	p := New[counterState]("test", WithRetryFn[counterState](func(attempt int, stage string, err error) {
		retryStages = append(retryStages, stage)
	})).
		AddStage("a", appendStage("a"), nil).
		AddStage("flaky", flaky, nil)

	out, err := p.Run(context.Background(), counterState{})
	require.NoError(t, err)

	// Each restart begins from the initial state.
	assert.Equal(t, []string{"a", "flaky"}, out.visited)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, []string{"flaky", "flaky"}, retryStages)
}

func TestPipelineRetriesExhausted(t *testing.T) {
	failing := func(ctx context.Context, s counterState) (counterState, error) {
		return s, errors.New("permanent")
	}

	p := New[counterState]("test", WithMaxRetries[counterState](2)).
		AddStage("fail", failing, nil)

	_, err := p.Run(context.Background(), counterState{})
	require.Error(t, err)

	var ee *types.EngineError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, types.PIPELINE_RETRIES_EXHAUSTED, ee.Code)
}

func TestPipelineCancellationDoesNotRetry(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	p := New[counterState]("test").
		AddStage("a", func(ctx context.Context, s counterState) (counterState, error) {
			attempts++
			cancel()
			return s, ctx.Err()
		}, nil)

	_, err := p.Run(ctx, counterState{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}

func TestPipelineUnknownTransition(t *testing.T) {
	p := New[counterState]("test", WithMaxRetries[counterState](0)).
		AddStage("a", appendStage("a"), func(s counterState) string { return "ghost" })

	_, err := p.Run(context.Background(), counterState{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghost")
}

func TestPipelineProgressCallback(t *testing.T) {
	var seen []string
	p := New[counterState]("test", WithProgressFn[counterState](func(stage string, s counterState) {
		seen = append(seen, stage)
	})).
		AddStage("a", appendStage("a"), nil).
		AddStage("b", appendStage("b"), nil)

	_, err := p.Run(context.Background(), counterState{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, seen)
}

func TestPipelineCycleGuard(t *testing.T) {
	p := New[counterState]("test", WithMaxRetries[counterState](0)).
		AddStage("a", appendStage("a"), func(s counterState) string { return "a" })

	_, err := p.Run(context.Background(), counterState{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle")
}
