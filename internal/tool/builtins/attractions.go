package builtins

import (
	"context"
	"fmt"
)

type attractionSeed struct {
	kind     string
	category string
	outdoor  bool
	cost     float64
	minutes  int
}

var attractionSeeds = []attractionSeed{
	{"Historic Temple", "sightseeing", true, 5, 90},
	{"National Museum", "sightseeing", false, 18, 120},
	{"Central Market", "shopping", false, 0, 75},
	{"Botanical Garden", "nature", true, 10, 90},
	{"Old Quarter Walk", "sightseeing", true, 0, 60},
	{"Observation Deck", "entertainment", false, 25, 60},
	{"Riverside Park", "nature", true, 0, 60},
	{"Art Gallery", "entertainment", false, 15, 90},
	{"Food Street", "dining", true, 30, 90},
	{"Craft Workshop", "entertainment", false, 40, 120},
	{"Hidden Courtyard Cafe", "dining", false, 12, 45},
	{"Local History House", "sightseeing", false, 8, 60},
}

// AttractionSearch simulates a places API returning curated attraction
// candidates for a destination.
type AttractionSearch struct{}

func NewAttractionSearch() *AttractionSearch { return &AttractionSearch{} }

func (a *AttractionSearch) Name() string        { return "attractions" }
func (a *AttractionSearch) Description() string { return "finds attraction candidates for a destination" }

// Call expects destination, limit, indoor_only.
func (a *AttractionSearch) Call(ctx context.Context, input map[string]any) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dest := stringInput(input, "destination")
	limit := intInput(input, "limit", 8)
	indoorOnly, _ := input["indoor_only"].(bool)
	rng := seededRand("attractions|" + dest)

	items := make([]map[string]any, 0, limit)
	order := rng.Perm(len(attractionSeeds))
	for _, idx := range order {
		if len(items) >= limit {
			break
		}
		seed := attractionSeeds[idx]
		if indoorOnly && seed.outdoor {
			continue
		}
		rating := 3.8 + rng.Float64()*1.2
		items = append(items, map[string]any{
			"title":            fmt.Sprintf("%s %s", dest, seed.kind),
			"category":         seed.category,
			"is_outdoor":       seed.outdoor,
			"estimated_cost":   seed.cost,
			"duration_minutes": seed.minutes,
			"rating":           float64(int(rating*10)) / 10,
			"latitude":         35.0 + rng.Float64(),
			"longitude":        139.0 + rng.Float64(),
			"is_hidden_gem":    seed.kind == "Hidden Courtyard Cafe" || seed.kind == "Local History House",
		})
	}

	return map[string]any{"attractions": items}, nil
}
