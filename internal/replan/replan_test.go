package replan

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smithisrealdev/aigo-engine/internal/itinerary"
	"github.com/smithisrealdev/aigo-engine/internal/llm/providers"
	"github.com/smithisrealdev/aigo-engine/internal/store"
	"github.com/smithisrealdev/aigo-engine/internal/tool"
	"github.com/smithisrealdev/aigo-engine/internal/tool/builtins"
	"github.com/smithisrealdev/aigo-engine/internal/types"
)

type stubSynth struct{}

func (s *stubSynth) Synthesize(ctx context.Context, toolName string, input map[string]any, reason string) (map[string]any, float64, error) {
	return map[string]any{}, 0.5, nil
}

func newTestCaller(t *testing.T) *tool.Caller {
	t.Helper()
	reg := tool.NewRegistry()
	require.NoError(t, builtins.RegisterAll(reg))
	return tool.NewCaller(reg, tool.NewHealthTracker(tool.DefaultBypassThreshold), &stubSynth{})
}

func fixedNow() time.Time {
	return time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)
}

func seedSnapshot(t *testing.T, st store.VersionStore) *itinerary.Snapshot {
	t.Helper()
	snap := &itinerary.Snapshot{
		Title:           "3-Day Tokyo Adventure",
		Destination:     "Tokyo, Japan",
		DestinationCity: "Tokyo",
		StartDate:       "2026-08-29",
		EndDate:         "2026-08-31",
		DurationDays:    3,
		TravelerCount:   2,
		Currency:        "USD",
		DayPlans: []itinerary.DayPlan{
			{
				DayNumber: 1,
				Date:      "2026-08-29",
				Title:     "Old Tokyo",
				Activities: []itinerary.Activity{
					{
						ID: "a1", Title: "Senso-ji Temple", Category: itinerary.CategorySightseeing,
						StartTime: "09:30", EndTime: "11:00", DurationMinutes: 90, IsOutdoor: true,
						Location: itinerary.Location{Name: "Senso-ji", Latitude: 35.7148, Longitude: 139.7967},
					},
					{
						ID: "a2", Title: "Ramen Lunch", Category: itinerary.CategoryDining,
						StartTime: "12:00", EndTime: "13:00", DurationMinutes: 60, EstimatedCost: 15,
						Location: itinerary.Location{Name: "Ramen Street", Latitude: 35.6812, Longitude: 139.7671},
					},
				},
			},
			{
				DayNumber: 2,
				Date:      "2026-08-30",
				Title:     "Gardens",
				Activities: []itinerary.Activity{
					{
						ID: "b1", Title: "Imperial Palace East Garden", Category: itinerary.CategoryNature,
						StartTime: "10:00", EndTime: "12:00", DurationMinutes: 120, IsOutdoor: true,
						Location: itinerary.Location{Name: "East Garden", Latitude: 35.6852, Longitude: 139.7528},
					},
					{
						ID: "b2", Title: "Riverside Picnic", Category: itinerary.CategoryNature,
						StartTime: "14:00", EndTime: "16:00", DurationMinutes: 120, IsOutdoor: true,
						Location: itinerary.Location{Name: "Sumida Park", Latitude: 35.7113, Longitude: 139.8005},
					},
				},
			},
		},
	}
	require.NoError(t, st.Create(context.Background(), snap))
	return snap
}

const weatherImpactResponse = `[
	{"day_number": 1, "activity_index": 0, "impact_level": "major",
	 "reason": "Thunderstorm during outdoor temple visit", "requires_substitution": true},
	{"day_number": 2, "activity_index": 1, "impact_level": "moderate",
	 "reason": "Heavy rain expected in the afternoon", "requires_substitution": true}
]`

const museumReplacement = `{"title": "National Museum", "description": "World-class collection",
	"category": "sightseeing", "duration": 120, "cost": 18, "lat": 35.7188, "lng": 139.7765,
	"requires_booking": true, "is_outdoor": false}`

const galleryReplacement = `{"title": "Art Gallery", "description": "Modern art indoors",
	"category": "entertainment", "duration": 90, "cost": 15, "lat": 35.6700, "lng": 139.7700,
	"requires_booking": false, "is_outdoor": false}`

func TestWeatherReplanSubstitutesOutdoorActivities(t *testing.T) {
	st := store.NewMemoryStore()
	snap := seedSnapshot(t, st)

	provider := providers.NewMockProvider(weatherImpactResponse, museumReplacement, galleryReplacement)
	r := New(provider, newTestCaller(t), st, WithNow(fixedNow))

	var checkpoints []int
	res, err := r.Run(context.Background(), Request{
		PlanID: snap.ID,
		Trigger: itinerary.ReplanTrigger{
			Kind:        itinerary.TriggerWeather,
			Description: "Typhoon approaching",
		},
		Progress: func(stage string, percent int, message string) {
			checkpoints = append(checkpoints, percent)
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Summary.NewVersion)
	assert.True(t, res.Summary.IsCritical)
	assert.Contains(t, res.Summary.AlertMessage, "Weather alert")
	assert.Equal(t, []int{1, 2}, res.Summary.AffectedDays)

	// Exactly one substitution change per impacted segment.
	require.Len(t, res.Summary.Changes, 2)
	for _, c := range res.Summary.Changes {
		assert.Equal(t, itinerary.ChangeSubstituted, c.Kind)
	}

	// Replacements land in the committed snapshot with provenance.
	replaced := res.Snapshot.Activity(1, 0)
	require.NotNil(t, replaced)
	assert.Equal(t, "National Museum", replaced.Title)
	assert.Equal(t, "a1", replaced.ReplacedFrom)
	assert.Equal(t, "09:30", replaced.StartTime)
	assert.True(t, replaced.AffiliatePending)

	second := res.Snapshot.Activity(2, 1)
	require.NotNil(t, second)
	assert.Equal(t, "Art Gallery", second.Title)
	assert.False(t, second.AffiliatePending)

	// The leg into a replacement is recomputed.
	prev := res.Snapshot.Activity(2, 0)
	require.NotNil(t, prev)
	assert.NotNil(t, prev.TransitToNext)

	assert.Equal(t, []int{5, 10, 20, 35, 45, 60, 70, 80, 88, 92, 95, 100}, checkpoints)

	stored, err := st.Get(context.Background(), snap.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Version)

	history, err := st.History(context.Background(), snap.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, itinerary.TriggerWeather, history[0].TriggerKind)
}

func TestTrafficReplanReroutesAndAddsPitStop(t *testing.T) {
	st := store.NewMemoryStore()
	snap := seedSnapshot(t, st)

	impact := `[{"day_number": 1, "activity_index": 1, "impact_level": "moderate",
		"reason": "Gridlock on the main route", "requires_substitution": true}]`
	provider := providers.NewMockProvider(impact)
	r := New(provider, newTestCaller(t), st, WithNow(fixedNow))

	res, err := r.Run(context.Background(), Request{
		PlanID: snap.ID,
		Trigger: itinerary.ReplanTrigger{
			Kind:         itinerary.TriggerTraffic,
			DelayMinutes: 90,
		},
		CurrentLocation: &itinerary.Location{Name: "Hotel", Latitude: 35.6586, Longitude: 139.7454},
	})
	require.NoError(t, err)

	kinds := make(map[itinerary.ChangeKind]int)
	for _, c := range res.Summary.Changes {
		kinds[c.Kind]++
	}
	assert.Equal(t, 1, kinds[itinerary.ChangeTransitUpdate])
	assert.Equal(t, 1, kinds[itinerary.ChangePitStopAdded])
	assert.False(t, res.Summary.IsCritical)

	// Pit stop inserted before the impacted activity.
	day := res.Snapshot.DayPlans[0]
	require.Len(t, day.Activities, 3)
	assert.Equal(t, "Cafe pit stop", day.Activities[1].Title)
	assert.Equal(t, "Ramen Lunch", day.Activities[2].Title)
}

func TestReplanExplicitDayRestrictsWindow(t *testing.T) {
	st := store.NewMemoryStore()
	snap := seedSnapshot(t, st)

	// The model reports impacts on both days; only day 2 is in scope.
	provider := providers.NewMockProvider(weatherImpactResponse, galleryReplacement)
	r := New(provider, newTestCaller(t), st, WithNow(fixedNow))

	res, err := r.Run(context.Background(), Request{
		PlanID:  snap.ID,
		Trigger: itinerary.ReplanTrigger{Kind: itinerary.TriggerWeather, Day: 2},
	})
	require.NoError(t, err)

	require.Len(t, res.Summary.Changes, 1)
	assert.Equal(t, 2, res.Summary.Changes[0].DayNumber)
	assert.Equal(t, []int{2}, res.Summary.AffectedDays)
}

func TestReplanNoImpactStillCommitsNewVersion(t *testing.T) {
	st := store.NewMemoryStore()
	snap := seedSnapshot(t, st)

	provider := providers.NewMockProvider(`[]`)
	r := New(provider, newTestCaller(t), st, WithNow(fixedNow))

	res, err := r.Run(context.Background(), Request{
		PlanID:  snap.ID,
		Trigger: itinerary.ReplanTrigger{Kind: itinerary.TriggerCrowd},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Summary.NewVersion)
	assert.Empty(t, res.Summary.Changes)
	assert.False(t, res.Summary.IsCritical)
}

func TestReplanUnknownPlan(t *testing.T) {
	provider := providers.NewMockProvider(`[]`)
	r := New(provider, newTestCaller(t), store.NewMemoryStore(), WithNow(fixedNow), WithMaxRetries(0))

	_, err := r.Run(context.Background(), Request{
		PlanID:  types.NewID(),
		Trigger: itinerary.ReplanTrigger{Kind: itinerary.TriggerWeather},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.NewError(types.PLAN_NOT_FOUND, "")))
}

func TestReplanRejectsInvalidTrigger(t *testing.T) {
	provider := providers.NewMockProvider(`[]`)
	r := New(provider, newTestCaller(t), store.NewMemoryStore(), WithNow(fixedNow))

	_, err := r.Run(context.Background(), Request{
		PlanID:  types.NewID(),
		Trigger: itinerary.ReplanTrigger{Kind: "earthquake"},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.NewError(types.PLAN_VALIDATION_FAILED, "")))
}

func TestAnalysisWindow(t *testing.T) {
	snap := &itinerary.Snapshot{
		DayPlans: []itinerary.DayPlan{
			{DayNumber: 1, Date: "2026-08-29"},
			{DayNumber: 2, Date: "2026-08-30"},
			{DayNumber: 3, Date: "2026-09-05"},
		},
	}
	now := fixedNow()

	assert.Equal(t, []int{2}, analysisWindow(snap, itinerary.ReplanTrigger{Day: 2}, now))
	assert.Nil(t, analysisWindow(snap, itinerary.ReplanTrigger{Day: 9}, now))
	assert.Equal(t, []int{1, 2}, analysisWindow(snap, itinerary.ReplanTrigger{}, now))

	// A trip entirely in the past falls back to the first two days.
	past := &itinerary.Snapshot{
		DayPlans: []itinerary.DayPlan{
			{DayNumber: 1, Date: "2026-07-01"},
			{DayNumber: 2, Date: "2026-07-02"},
			{DayNumber: 3, Date: "2026-07-03"},
		},
	}
	assert.Equal(t, []int{1, 2}, analysisWindow(past, itinerary.ReplanTrigger{}, now))
}
