package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smithisrealdev/aigo-engine/internal/itinerary"
	"github.com/smithisrealdev/aigo-engine/internal/llm/providers"
	"github.com/smithisrealdev/aigo-engine/internal/planner"
	"github.com/smithisrealdev/aigo-engine/internal/progress"
	"github.com/smithisrealdev/aigo-engine/internal/queue"
	"github.com/smithisrealdev/aigo-engine/internal/replan"
	"github.com/smithisrealdev/aigo-engine/internal/store"
	"github.com/smithisrealdev/aigo-engine/internal/tool"
	"github.com/smithisrealdev/aigo-engine/internal/tool/builtins"
	"github.com/smithisrealdev/aigo-engine/internal/types"
)

const intentResponse = `{
	"destination_city": "Tokyo",
	"destination_country": "Japan",
	"start_date": "2026-09-10",
	"duration_days": 2,
	"traveler_count": 2,
	"currency": "USD"
}`

const daysResponse = `[
	{
		"title": "Day One",
		"activities": [
			{"title": "Senso-ji Temple", "category": "sightseeing", "time": "09:30",
			 "duration": 90, "lat": 35.7148, "lng": 139.7967, "is_outdoor": true},
			{"title": "Ramen Lunch", "category": "dining", "time": "12:30",
			 "duration": 60, "cost": 15, "lat": 35.6812, "lng": 139.7671}
		]
	},
	{
		"title": "Day Two",
		"activities": [
			{"title": "Museum Morning", "category": "sightseeing", "time": "10:00",
			 "duration": 120, "cost": 18, "lat": 35.7188, "lng": 139.7765}
		]
	}
]`

const weatherImpactResponse = `[
	{"day_number": 1, "activity_index": 0, "impact_level": "major",
	 "reason": "Thunderstorm forecast", "requires_substitution": true}
]`

const museumReplacement = `{"title": "National Museum", "category": "sightseeing",
	"duration": 90, "cost": 18, "lat": 35.7188, "lng": 139.7765, "is_outdoor": false}`

type stubSynth struct{}

func (s *stubSynth) Synthesize(ctx context.Context, toolName string, input map[string]any, reason string) (map[string]any, float64, error) {
	return map[string]any{}, 0.5, nil
}

func fixedNow() time.Time {
	return time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)
}

func newTestEngine(t *testing.T, responses ...string) (*Engine, store.VersionStore) {
	t.Helper()

	provider := providers.NewMockProvider(responses...)
	reg := tool.NewRegistry()
	require.NoError(t, builtins.RegisterAll(reg))
	health := tool.NewHealthTracker(tool.DefaultBypassThreshold)
	caller := tool.NewCaller(reg, health, &stubSynth{})

	st := store.NewMemoryStore()
	p := planner.New(provider, caller, st, planner.WithNow(fixedNow), planner.WithMaxRetries(0))
	r := replan.New(provider, caller, st, replan.WithNow(fixedNow), replan.WithMaxRetries(0))

	q := queue.New(queue.WithWorkers(2))
	t.Cleanup(q.Close)
	tracker := progress.NewTracker(progress.NewMemorySubstrate())

	return New(p, r, st, q, tracker, WithHealth(provider, health)), st
}

// waitTerminal polls until the task reaches a terminal status.
func waitTerminal(t *testing.T, e *Engine, taskID types.ID) progress.Update {
	t.Helper()
	var last progress.Update
	require.Eventually(t, func() bool {
		u, err := e.GetProgress(context.Background(), taskID)
		if err != nil {
			return false
		}
		last = u
		return u.Terminal()
	}, 5*time.Second, 10*time.Millisecond)
	return last
}

func TestSubmitGenerationCompletes(t *testing.T) {
	e, st := newTestEngine(t, intentResponse, daysResponse)

	planID, taskID, err := e.SubmitGeneration(context.Background(), "2 days in Tokyo", nil)
	require.NoError(t, err)
	require.False(t, planID.IsZero())
	require.False(t, taskID.IsZero())

	final := waitTerminal(t, e, taskID)
	assert.Equal(t, types.TaskStatusCompleted, final.Status)
	assert.Equal(t, 100, final.Progress)
	assert.Equal(t, types.TaskKindGeneration, final.Kind)

	snap, err := st.Get(context.Background(), planID)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Version)
	assert.Equal(t, "Tokyo", snap.DestinationCity)
}

func TestSubmitGenerationRejectsEmptyPrompt(t *testing.T) {
	e, _ := newTestEngine(t)

	_, _, err := e.SubmitGeneration(context.Background(), "", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.NewError(types.PLAN_VALIDATION_FAILED, "")))
}

func TestSubmitReplanCompletesAndBumpsVersion(t *testing.T) {
	e, st := newTestEngine(t, intentResponse, daysResponse, weatherImpactResponse, museumReplacement)

	planID, genTask, err := e.SubmitGeneration(context.Background(), "2 days in Tokyo", nil)
	require.NoError(t, err)
	waitTerminal(t, e, genTask)

	taskID, hint, err := e.SubmitReplan(context.Background(), planID, itinerary.ReplanTrigger{
		Kind:        itinerary.TriggerWeather,
		Description: "Typhoon approaching",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, hint)

	final := waitTerminal(t, e, taskID)
	assert.Equal(t, types.TaskStatusCompleted, final.Status)

	snap, err := st.Get(context.Background(), planID)
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Version)

	// The marker is cleared so the next replan can start.
	marker, err := st.ReplanTask(context.Background(), planID)
	require.NoError(t, err)
	assert.True(t, marker.IsZero())
}

func TestSubmitReplanUnknownPlan(t *testing.T) {
	e, _ := newTestEngine(t)

	_, _, err := e.SubmitReplan(context.Background(), types.NewID(), itinerary.ReplanTrigger{
		Kind: itinerary.TriggerWeather,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.NewError(types.PLAN_NOT_FOUND, "")))
}

func TestSubmitReplanRejectsConcurrentReplan(t *testing.T) {
	e, st := newTestEngine(t, intentResponse, daysResponse)

	planID, genTask, err := e.SubmitGeneration(context.Background(), "2 days in Tokyo", nil)
	require.NoError(t, err)
	waitTerminal(t, e, genTask)

	// Simulate a replan already in flight.
	require.NoError(t, st.SetReplanTask(context.Background(), planID, types.NewID()))

	_, _, err = e.SubmitReplan(context.Background(), planID, itinerary.ReplanTrigger{
		Kind: itinerary.TriggerCrowd,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.NewError(types.STORE_VERSION_CONFLICT, "")))
}

func TestFailedGenerationPublishesFailure(t *testing.T) {
	e, _ := newTestEngine(t, `{"duration_days": 2}`)

	_, taskID, err := e.SubmitGeneration(context.Background(), "somewhere", nil)
	require.NoError(t, err)

	final := waitTerminal(t, e, taskID)
	assert.Equal(t, types.TaskStatusFailed, final.Status)
	assert.Equal(t, progress.FailedProgress, final.Progress)
	assert.Equal(t, string(types.ErrClassValidation), final.Error)
	assert.Equal(t, types.ErrClassValidation, final.ErrorClass)
	assert.Equal(t, types.ErrClassValidation.UserMessage(), final.Message)
	assert.False(t, final.CanRetry)
	assert.Zero(t, final.RetryAfter)
}

func TestHealthReportsProviderAndTools(t *testing.T) {
	e, _ := newTestEngine(t, intentResponse, daysResponse)

	_, taskID, err := e.SubmitGeneration(context.Background(), "2 days in Tokyo", nil)
	require.NoError(t, err)
	waitTerminal(t, e, taskID)

	report := e.Health(context.Background())
	assert.Equal(t, types.HealthStateHealthy, report.Status)
	assert.True(t, report.LLM.IsHealthy())
	assert.NotEmpty(t, report.Tools)
}

func TestSubscribeProgressStreamsUntilTerminal(t *testing.T) {
	e, _ := newTestEngine(t, intentResponse, daysResponse)

	// Hold both workers so the job cannot start before the subscription
	// is registered.
	block := make(chan struct{})
	for i := 0; i < 2; i++ {
		spec := queue.SpecFor(types.TaskKindGeneration)
		spec.TaskID = types.NewID()
		spec.Run = func(ctx context.Context) error {
			<-block
			return nil
		}
		require.NoError(t, e.queue.Submit(spec))
	}

	_, taskID, err := e.SubmitGeneration(context.Background(), "2 days in Tokyo", nil)
	require.NoError(t, err)

	updates, cancel, err := e.SubscribeProgress(context.Background(), taskID)
	require.NoError(t, err)
	defer cancel()
	close(block)

	var last progress.Update
	deadline := time.After(5 * time.Second)
	for {
		select {
		case u, ok := <-updates:
			if !ok {
				t.Fatalf("stream closed before terminal update, last %+v", last)
			}
			if last.Status == types.TaskStatusProgress && u.Status == types.TaskStatusProgress {
				assert.GreaterOrEqual(t, u.Progress, last.Progress)
			}
			last = u
			if u.Terminal() {
				assert.Equal(t, types.TaskStatusCompleted, u.Status)
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for terminal update, last %+v", last)
		}
	}
}

func TestCancelBeforeStartSurfacesCancelled(t *testing.T) {
	e, _ := newTestEngine(t, intentResponse, daysResponse)

	// Saturate both workers so the third job stays queued.
	block := make(chan struct{})
	for i := 0; i < 2; i++ {
		spec := queue.SpecFor(types.TaskKindGeneration)
		spec.TaskID = types.NewID()
		spec.Run = func(ctx context.Context) error {
			<-block
			return nil
		}
		require.NoError(t, e.queue.Submit(spec))
	}

	_, taskID, err := e.SubmitGeneration(context.Background(), "2 days in Tokyo", nil)
	require.NoError(t, err)

	require.NoError(t, e.Cancel(context.Background(), taskID))
	close(block)

	final := waitTerminal(t, e, taskID)
	assert.Equal(t, types.TaskStatusCancelled, final.Status)
}
