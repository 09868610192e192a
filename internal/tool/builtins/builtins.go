// Package builtins provides the stock data tools the planner gathers from:
// flight and hotel search, weather forecasts, attraction lookup, and
// transit routing. The implementations are deterministic offline providers
// seeded per destination, suitable for development and tests; production
// deployments swap in API-backed tools behind the same interface.
package builtins

import (
	"hash/fnv"
	"math/rand"

	"github.com/smithisrealdev/aigo-engine/internal/tool"
)

// RegisterAll registers every builtin tool.
func RegisterAll(reg *tool.Registry) error {
	tools := []tool.Tool{
		NewFlightSearch(),
		NewHotelSearch(),
		NewWeatherForecast(),
		NewAttractionSearch(),
		NewTransitRouter(),
		NewImageSearch(),
	}
	for _, t := range tools {
		if err := reg.Register(t); err != nil {
			return err
		}
	}
	return nil
}

// seededRand returns a rand.Rand seeded from the given key so repeated
// calls for the same destination produce identical data.
func seededRand(key string) *rand.Rand {
	h := fnv.New64a()
	h.Write([]byte(key))
	return rand.New(rand.NewSource(int64(h.Sum64())))
}

func stringInput(input map[string]any, key string) string {
	if input == nil {
		return ""
	}
	if v, ok := input[key].(string); ok {
		return v
	}
	return ""
}

func intInput(input map[string]any, key string, def int) int {
	if input == nil {
		return def
	}
	switch v := input[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return def
}
