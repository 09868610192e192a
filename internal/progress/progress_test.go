package progress

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smithisrealdev/aigo-engine/internal/types"
)

func TestTrackerPublishAndGet(t *testing.T) {
	tr := NewTracker(NewMemorySubstrate())
	taskID := types.NewID()

	err := tr.Publish(context.Background(), Update{
		TaskID:   taskID,
		Kind:     types.TaskKindGeneration,
		Status:   types.TaskStatusProgress,
		Progress: 30,
		Stage:    "data_gathering",
	})
	require.NoError(t, err)

	u, err := tr.Get(context.Background(), taskID)
	require.NoError(t, err)
	assert.Equal(t, 30, u.Progress)
	assert.Equal(t, "data_gathering", u.Stage)
	assert.False(t, u.UpdatedAt.IsZero())
}

func TestTrackerGetUnknownTask(t *testing.T) {
	tr := NewTracker(NewMemorySubstrate())

	_, err := tr.Get(context.Background(), types.NewID())
	require.Error(t, err)
	assert.ErrorIs(t, err, types.NewError(types.STORE_NOT_FOUND, ""))
}

func TestTrackerSubscribeReceivesOwnTaskOnly(t *testing.T) {
	tr := NewTracker(NewMemorySubstrate())
	mine := types.NewID()
	other := types.NewID()

	ch, cancel, err := tr.Subscribe(context.Background(), mine)
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, tr.Publish(context.Background(), Update{TaskID: other, Progress: 10}))
	require.NoError(t, tr.Publish(context.Background(), Update{TaskID: mine, Progress: 20}))

	select {
	case u := <-ch:
		assert.Equal(t, mine, u.TaskID)
		assert.Equal(t, 20, u.Progress)
	case <-time.After(time.Second):
		t.Fatal("expected an update")
	}

	select {
	case u := <-ch:
		t.Fatalf("unexpected update for task %s", u.TaskID)
	default:
	}
}

func TestTrackerFailUsesSentinelProgress(t *testing.T) {
	tr := NewTracker(NewMemorySubstrate())
	taskID := types.NewID()

	err := tr.Fail(context.Background(), Update{
		TaskID: taskID,
		Kind:   types.TaskKindReplan,
	}, types.ErrClassServiceUnavailable)
	require.NoError(t, err)

	u, err := tr.Get(context.Background(), taskID)
	require.NoError(t, err)
	assert.Equal(t, FailedProgress, u.Progress)
	assert.Equal(t, types.TaskStatusFailed, u.Status)
	assert.True(t, u.Terminal())
	assert.Equal(t, string(types.ErrClassServiceUnavailable), u.Error)
}

func TestTrackerFailCarriesClassAndRetryHints(t *testing.T) {
	tr := NewTracker(NewMemorySubstrate())
	ctx := context.Background()

	retryable := types.NewID()
	require.NoError(t, tr.Fail(ctx, Update{TaskID: retryable}, types.ErrClassRateLimit))
	u, err := tr.Get(ctx, retryable)
	require.NoError(t, err)
	assert.Equal(t, types.ErrClassRateLimit, u.ErrorClass)
	assert.Equal(t, types.ErrClassRateLimit.UserMessage(), u.Message)
	assert.True(t, u.CanRetry)
	assert.Equal(t, 60, u.RetryAfter)

	permanent := types.NewID()
	require.NoError(t, tr.Fail(ctx, Update{TaskID: permanent}, types.ErrClassValidation))
	u, err = tr.Get(ctx, permanent)
	require.NoError(t, err)
	assert.Equal(t, types.ErrClassValidation, u.ErrorClass)
	assert.False(t, u.CanRetry)
	assert.Zero(t, u.RetryAfter)
}

func TestTrackerSubscribeClosesAtTerminal(t *testing.T) {
	tr := NewTracker(NewMemorySubstrate())
	taskID := types.NewID()

	ch, cancel, err := tr.Subscribe(context.Background(), taskID)
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, tr.Publish(context.Background(), Update{
		TaskID:   taskID,
		Status:   types.TaskStatusCompleted,
		Progress: 100,
	}))

	select {
	case u, open := <-ch:
		require.True(t, open)
		assert.True(t, u.Terminal())
	case <-time.After(time.Second):
		t.Fatal("expected the terminal update")
	}

	select {
	case _, open := <-ch:
		assert.False(t, open)
	case <-time.After(time.Second):
		t.Fatal("expected the stream to close after the terminal update")
	}
}

func TestTrackerSlowSubscriberDoesNotBlockPublish(t *testing.T) {
	dropped := 0
	tr := NewTracker(NewMemorySubstrate(), WithMetrics(countingMetrics{dropped: &dropped}))
	taskID := types.NewID()

	_, cancel, err := tr.Subscribe(context.Background(), taskID)
	require.NoError(t, err)
	defer cancel()

	// Overfill the subscriber buffer; publishes must still succeed.
	for i := 0; i < defaultBufferSize+5; i++ {
		require.NoError(t, tr.Publish(context.Background(), Update{TaskID: taskID, Progress: i}))
	}
	assert.Equal(t, 5, dropped)
}

func TestMemorySubstrateTTLExpiry(t *testing.T) {
	m := NewMemorySubstrate()
	now := time.Now()
	m.now = func() time.Time { return now }

	taskID := types.NewID()
	require.NoError(t, m.Store(context.Background(), Update{TaskID: taskID, Progress: 50}))

	_, ok, err := m.Load(context.Background(), taskID)
	require.NoError(t, err)
	assert.True(t, ok)

	now = now.Add(TTL + time.Second)
	_, ok, err = m.Load(context.Background(), taskID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTrackerProgressMonotonic(t *testing.T) {
	tr := NewTracker(NewMemorySubstrate())
	taskID := types.NewID()
	ctx := context.Background()

	require.NoError(t, tr.Publish(ctx, Update{TaskID: taskID, Status: types.TaskStatusProgress, Progress: 50}))
	// A stale lower reading must not regress the stored progress.
	require.NoError(t, tr.Publish(ctx, Update{TaskID: taskID, Status: types.TaskStatusProgress, Progress: 30}))

	u, err := tr.Get(ctx, taskID)
	require.NoError(t, err)
	assert.Equal(t, 50, u.Progress)
}

func TestTrackerNoUpdatesAfterTerminal(t *testing.T) {
	tr := NewTracker(NewMemorySubstrate())
	taskID := types.NewID()
	ctx := context.Background()

	require.NoError(t, tr.Publish(ctx, Update{TaskID: taskID, Status: types.TaskStatusCompleted, Progress: 100}))
	require.NoError(t, tr.Publish(ctx, Update{TaskID: taskID, Status: types.TaskStatusProgress, Progress: 10}))

	u, err := tr.Get(ctx, taskID)
	require.NoError(t, err)
	assert.Equal(t, types.TaskStatusCompleted, u.Status)
	assert.Equal(t, 100, u.Progress)
}

type countingMetrics struct {
	dropped *int
}

func (c countingMetrics) RecordProgressUpdate(types.TaskKind, types.TaskStatus) {}
func (c countingMetrics) RecordSubscriberDropped()                              { *c.dropped++ }
