package builtins

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smithisrealdev/aigo-engine/internal/tool"
)

func TestRegisterAll(t *testing.T) {
	reg := tool.NewRegistry()
	require.NoError(t, RegisterAll(reg))
	assert.Equal(t, []string{"attractions", "flights", "hotels", "transit", "weather"}, reg.Names())
}

func TestAirportCode(t *testing.T) {
	assert.Equal(t, "HND", AirportCode("Tokyo"))
	assert.Equal(t, "JFK", AirportCode("new york"))
	assert.Equal(t, "SPR", AirportCode("Springfield"))
}

func TestFlightSearchDeterministic(t *testing.T) {
	f := NewFlightSearch()
	input := map[string]any{"origin": "London", "destination": "Tokyo", "travelers": 2}

	a, err := f.Call(context.Background(), input)
	require.NoError(t, err)
	b, err := f.Call(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	offers := a["flights"].([]map[string]any)
	require.Len(t, offers, 3)
	assert.Equal(t, "LHR", offers[0]["origin"])
	assert.Equal(t, "HND", offers[0]["destination"])
	assert.Greater(t, offers[0]["price"].(float64), 0.0)
}

func TestWeatherForecastDayRange(t *testing.T) {
	w := NewWeatherForecast()
	out, err := w.Call(context.Background(), map[string]any{
		"destination": "Kyoto",
		"start_date":  "2026-09-10",
		"end_date":    "2026-09-13",
	})
	require.NoError(t, err)

	days := out["daily"].([]map[string]any)
	require.Len(t, days, 4)
	assert.Equal(t, "2026-09-10", days[0]["date"])
	assert.Equal(t, "2026-09-13", days[3]["date"])
}

func TestAttractionSearchIndoorOnly(t *testing.T) {
	a := NewAttractionSearch()
	out, err := a.Call(context.Background(), map[string]any{
		"destination": "Lisbon",
		"limit":       6,
		"indoor_only": true,
	})
	require.NoError(t, err)

	items := out["attractions"].([]map[string]any)
	require.NotEmpty(t, items)
	for _, item := range items {
		assert.False(t, item["is_outdoor"].(bool))
	}
}

func TestTransitRouterModes(t *testing.T) {
	tr := NewTransitRouter()

	short, err := tr.Call(context.Background(), map[string]any{
		"from_lat": 35.6586, "from_lng": 139.7454,
		"to_lat": 35.6604, "to_lng": 139.7488,
	})
	require.NoError(t, err)
	assert.Equal(t, "walk", short["mode"])

	long, err := tr.Call(context.Background(), map[string]any{
		"from_lat": 35.6586, "from_lng": 139.7454,
		"to_lat": 35.6762, "to_lng": 139.7690,
	})
	require.NoError(t, err)
	assert.Equal(t, "subway", long["mode"])
}
