package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smithisrealdev/aigo-engine/internal/itinerary"
	"github.com/smithisrealdev/aigo-engine/internal/types"
)

func testStores(t *testing.T) map[string]VersionStore {
	t.Helper()
	sqlite, err := OpenSQLite(filepath.Join(t.TempDir(), "plans.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })

	return map[string]VersionStore{
		"memory": NewMemoryStore(),
		"sqlite": sqlite,
	}
}

func newSnapshot(title string) *itinerary.Snapshot {
	return &itinerary.Snapshot{
		Title:       title,
		Destination: "Tokyo",
		StartDate:   "2026-09-10",
		EndDate:     "2026-09-13",
		Currency:    "USD",
		DayPlans: []itinerary.DayPlan{
			{DayNumber: 1, Date: "2026-09-10", Activities: []itinerary.Activity{{Title: "Arrival"}}},
		},
	}
}

func TestCreateAndGet(t *testing.T) {
	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			snap := newSnapshot("Tokyo Trip")
			require.NoError(t, s.Create(ctx, snap))
			require.False(t, snap.ID.IsZero())
			assert.Equal(t, 1, snap.Version)

			got, err := s.Get(ctx, snap.ID)
			require.NoError(t, err)
			assert.Equal(t, "Tokyo Trip", got.Title)
			assert.Equal(t, 1, got.Version)
		})
	}
}

func TestGetUnknownPlan(t *testing.T) {
	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Get(context.Background(), types.NewID())
			require.Error(t, err)

			var ee *types.EngineError
			require.True(t, errors.As(err, &ee))
			assert.Equal(t, types.PLAN_NOT_FOUND, ee.Code)
		})
	}
}

func TestSaveReplanBumpsVersion(t *testing.T) {
	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			snap := newSnapshot("Tokyo Trip")
			require.NoError(t, s.Create(ctx, snap))

			updated := snap.Clone()
			updated.DayPlans[0].Activities[0].Title = "Museum Visit"

			v, err := s.SaveReplan(ctx, snap.ID, 1, updated, itinerary.ChangeSummary{
				TriggerKind:  itinerary.TriggerWeather,
				AlertMessage: "Moved outdoor stops indoors due to rain.",
			})
			require.NoError(t, err)
			assert.Equal(t, 2, v)

			got, err := s.Get(ctx, snap.ID)
			require.NoError(t, err)
			assert.Equal(t, 2, got.Version)
			assert.Equal(t, "Museum Visit", got.DayPlans[0].Activities[0].Title)

			// Prior version remains readable through history retention.
			old, err := s.GetVersion(ctx, snap.ID, 1)
			require.NoError(t, err)
			assert.Equal(t, "Arrival", old.DayPlans[0].Activities[0].Title)
		})
	}
}

func TestSaveReplanVersionConflict(t *testing.T) {
	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			snap := newSnapshot("Tokyo Trip")
			require.NoError(t, s.Create(ctx, snap))

			_, err := s.SaveReplan(ctx, snap.ID, 1, snap.Clone(), itinerary.ChangeSummary{TriggerKind: itinerary.TriggerTraffic})
			require.NoError(t, err)

			// A second replan against the stale version must lose.
			_, err = s.SaveReplan(ctx, snap.ID, 1, snap.Clone(), itinerary.ChangeSummary{TriggerKind: itinerary.TriggerCrowd})
			require.Error(t, err)

			var ee *types.EngineError
			require.True(t, errors.As(err, &ee))
			assert.Equal(t, types.STORE_VERSION_CONFLICT, ee.Code)
		})
	}
}

func TestHistoryRecordsChanges(t *testing.T) {
	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			snap := newSnapshot("Tokyo Trip")
			require.NoError(t, s.Create(ctx, snap))

			summary := itinerary.ChangeSummary{
				TriggerKind:  itinerary.TriggerWeather,
				AlertMessage: "storm inbound",
				Changes: []itinerary.Change{
					{Kind: itinerary.ChangeSubstituted, DayNumber: 1, ActivityIndex: 0,
						Before: "Beach Walk", After: "City Museum", Reason: "Thunderstorm forecast"},
					{Kind: itinerary.ChangeTransitUpdate, DayNumber: 1},
				},
			}
			_, err := s.SaveReplan(ctx, snap.ID, 1, snap.Clone(), summary)
			require.NoError(t, err)

			history, err := s.History(ctx, snap.ID)
			require.NoError(t, err)
			require.Len(t, history, 1)
			require.Len(t, history[0].Changes, 2)
			assert.Equal(t, itinerary.ChangeSubstituted, history[0].Changes[0].Kind)
			assert.Equal(t, "City Museum", history[0].Changes[0].After)
			assert.Equal(t, itinerary.ChangeTransitUpdate, history[0].Changes[1].Kind)
		})
	}
}

func TestHistoryTruncation(t *testing.T) {
	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			snap := newSnapshot("Tokyo Trip")
			require.NoError(t, s.Create(ctx, snap))

			for i := 0; i < HistoryLimit+3; i++ {
				_, err := s.SaveReplan(ctx, snap.ID, i+1, snap.Clone(), itinerary.ChangeSummary{
					TriggerKind:  itinerary.TriggerUserRequest,
					AlertMessage: fmt.Sprintf("revision %d", i+1),
				})
				require.NoError(t, err)
			}

			history, err := s.History(ctx, snap.ID)
			require.NoError(t, err)
			require.Len(t, history, HistoryLimit)

			// Newest first, oldest entries dropped.
			assert.Equal(t, HistoryLimit+3, history[0].Version)
			assert.Equal(t, 4, history[len(history)-1].Version)

			// Versions outside the retained window are gone.
			_, err = s.GetVersion(ctx, snap.ID, 1)
			assert.Error(t, err)
		})
	}
}

func TestReplanTaskMarker(t *testing.T) {
	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			snap := newSnapshot("Tokyo Trip")
			require.NoError(t, s.Create(ctx, snap))

			task := types.NewID()
			require.NoError(t, s.SetReplanTask(ctx, snap.ID, task))

			got, err := s.ReplanTask(ctx, snap.ID)
			require.NoError(t, err)
			assert.Equal(t, task, got)

			// A second distinct task cannot claim the plan.
			err = s.SetReplanTask(ctx, snap.ID, types.NewID())
			require.Error(t, err)

			// Marking the same task again is idempotent.
			require.NoError(t, s.SetReplanTask(ctx, snap.ID, task))

			// A successful replan clears the marker.
			_, err = s.SaveReplan(ctx, snap.ID, 1, snap.Clone(), itinerary.ChangeSummary{TriggerKind: itinerary.TriggerWeather})
			require.NoError(t, err)

			got, err = s.ReplanTask(ctx, snap.ID)
			require.NoError(t, err)
			assert.True(t, got.IsZero())
		})
	}
}

func TestClearReplanTaskOnlyMatching(t *testing.T) {
	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			snap := newSnapshot("Tokyo Trip")
			require.NoError(t, s.Create(ctx, snap))

			task := types.NewID()
			require.NoError(t, s.SetReplanTask(ctx, snap.ID, task))

			// Clearing with a different task ID is a no-op.
			require.NoError(t, s.ClearReplanTask(ctx, snap.ID, types.NewID()))
			got, err := s.ReplanTask(ctx, snap.ID)
			require.NoError(t, err)
			assert.Equal(t, task, got)

			require.NoError(t, s.ClearReplanTask(ctx, snap.ID, task))
			got, err = s.ReplanTask(ctx, snap.ID)
			require.NoError(t, err)
			assert.True(t, got.IsZero())
		})
	}
}

func TestDeletePlan(t *testing.T) {
	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			snap := newSnapshot("Tokyo Trip")
			require.NoError(t, s.Create(ctx, snap))

			require.NoError(t, s.Delete(ctx, snap.ID))
			_, err := s.Get(ctx, snap.ID)
			assert.Error(t, err)
		})
	}
}
