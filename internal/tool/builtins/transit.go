package builtins

import (
	"context"
	"math"
)

// TransitRouter simulates a transit directions API. Routes are derived
// from the haversine distance between the two points.
type TransitRouter struct{}

func NewTransitRouter() *TransitRouter { return &TransitRouter{} }

func (t *TransitRouter) Name() string        { return "transit" }
func (t *TransitRouter) Description() string { return "routes between two activity locations" }

// Call expects from_lat, from_lng, to_lat, to_lng.
func (t *TransitRouter) Call(ctx context.Context, input map[string]any) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fromLat := floatInput(input, "from_lat")
	fromLng := floatInput(input, "from_lng")
	toLat := floatInput(input, "to_lat")
	toLng := floatInput(input, "to_lng")

	meters := haversineMeters(fromLat, fromLng, toLat, toLng)

	mode := "walk"
	minutes := int(meters / 80) // ~4.8 km/h
	switch {
	case meters > 8000:
		mode = "train"
		minutes = int(meters/600) + 12
	case meters > 2000:
		mode = "subway"
		minutes = int(meters/500) + 8
	case meters > 1200:
		mode = "bus"
		minutes = int(meters/300) + 5
	}
	if minutes < 1 {
		minutes = 1
	}

	return map[string]any{
		"mode":             mode,
		"duration_minutes": minutes,
		"distance_meters":  int(meters),
	}, nil
}

func floatInput(input map[string]any, key string) float64 {
	if input == nil {
		return 0
	}
	switch v := input[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}

const earthRadiusMeters = 6371000

func haversineMeters(lat1, lng1, lat2, lng2 float64) float64 {
	rad := math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLng := (lng2 - lng1) * rad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(a))
}
