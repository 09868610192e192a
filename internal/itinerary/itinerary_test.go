package itinerary

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotMarkEstimated(t *testing.T) {
	s := &Snapshot{}
	assert.False(t, s.HasEstimatedData)

	s.MarkEstimated("flights")
	s.MarkEstimated("weather")
	s.MarkEstimated("flights")

	assert.True(t, s.HasEstimatedData)
	assert.Equal(t, []string{"flights", "weather"}, s.EstimatedSources)
}

func TestSnapshotActivityLookup(t *testing.T) {
	s := &Snapshot{
		DayPlans: []DayPlan{
			{DayNumber: 1, Activities: []Activity{{Title: "Senso-ji"}, {Title: "Nakamise"}}},
			{DayNumber: 2, Activities: []Activity{{Title: "TeamLab"}}},
		},
	}

	a := s.Activity(2, 0)
	require.NotNil(t, a)
	assert.Equal(t, "TeamLab", a.Title)

	assert.Nil(t, s.Activity(1, 5))
	assert.Nil(t, s.Activity(3, 0))
	assert.Nil(t, s.Activity(1, -1))
}

func TestSnapshotCloneIsDeep(t *testing.T) {
	s := &Snapshot{
		Version: 1,
		DayPlans: []DayPlan{
			{
				DayNumber: 1,
				Activities: []Activity{
					{Title: "Shibuya Crossing", TransitToNext: &TransitLeg{Mode: TransitWalk, DurationMinutes: 10}},
				},
			},
		},
		BookingOptions:   []BookingOption{{Type: BookingHotel, Title: "Park Hyatt"}},
		EstimatedSources: []string{"hotels"},
	}

	c := s.Clone()
	c.Version = 2
	c.DayPlans[0].Activities[0].Title = "Replacement"
	c.DayPlans[0].Activities[0].TransitToNext.DurationMinutes = 25
	c.BookingOptions[0].Title = "Other Hotel"
	c.EstimatedSources[0] = "weather"

	assert.Equal(t, 1, s.Version)
	assert.Equal(t, "Shibuya Crossing", s.DayPlans[0].Activities[0].Title)
	assert.Equal(t, 10, s.DayPlans[0].Activities[0].TransitToNext.DurationMinutes)
	assert.Equal(t, "Park Hyatt", s.BookingOptions[0].Title)
	assert.Equal(t, "hotels", s.EstimatedSources[0])
}

func TestIntentNormalize(t *testing.T) {
	in := &Intent{DestinationCity: "Kyoto"}
	in.Normalize()

	assert.Equal(t, 1, in.TravelerCount)
	assert.Equal(t, 3, in.DurationDays)
	assert.Equal(t, "USD", in.Currency)
	assert.Equal(t, "moderate", in.Pace)
	assert.Equal(t, "Kyoto", in.Destination)
}

func TestGatheredDataRecordSource(t *testing.T) {
	var g GatheredData
	g.RecordSource("flights", "live")
	g.RecordSource("hotels", "fallback")
	g.RecordSource("hotels", "fallback")

	assert.Equal(t, "live", g.Sources["flights"])
	assert.Equal(t, []string{"hotels"}, g.Estimated)
}

func TestTriggerValidate(t *testing.T) {
	assert.NoError(t, ReplanTrigger{Kind: TriggerWeather}.Validate())
	assert.NoError(t, ReplanTrigger{Kind: TriggerUserRequest, Preference: "more food stops"}.Validate())

	assert.Error(t, ReplanTrigger{Kind: "earthquake"}.Validate())
	assert.Error(t, ReplanTrigger{Kind: TriggerUserRequest}.Validate())
}
