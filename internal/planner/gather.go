package planner

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/smithisrealdev/aigo-engine/internal/itinerary"
	"github.com/smithisrealdev/aigo-engine/internal/tool"
	"github.com/smithisrealdev/aigo-engine/internal/types"
)

// toolOutcome carries one tool's decoded data plus where it came from.
// apply merges it into the shared GatheredData under the caller's lock.
type toolOutcome struct {
	source string
	apply  func(g *itinerary.GatheredData)
}

func (p *Planner) gatherFlights(ctx context.Context, in itinerary.Intent) (toolOutcome, error) {
	res, err := p.caller.Call(ctx, "flights", map[string]any{
		"origin":      in.OriginCity,
		"destination": in.DestinationCity,
		"start_date":  in.StartDate,
		"end_date":    in.EndDate,
		"travelers":   in.TravelerCount,
	})
	if err != nil {
		return toolOutcome{}, err
	}
	offers := decodeBookings(res, "flights", itinerary.BookingFlight)
	return toolOutcome{
		source: string(res.Source),
		apply:  func(g *itinerary.GatheredData) { g.Flights = offers },
	}, nil
}

func (p *Planner) gatherHotels(ctx context.Context, in itinerary.Intent) (toolOutcome, error) {
	res, err := p.caller.Call(ctx, "hotels", map[string]any{
		"destination":  in.DestinationCity,
		"nights":       in.DurationDays,
		"travelers":    in.TravelerCount,
		"budget_level": in.BudgetLevel,
	})
	if err != nil {
		return toolOutcome{}, err
	}
	offers := decodeBookings(res, "hotels", itinerary.BookingHotel)
	return toolOutcome{
		source: string(res.Source),
		apply:  func(g *itinerary.GatheredData) { g.Hotels = offers },
	}, nil
}

func (p *Planner) gatherWeather(ctx context.Context, in itinerary.Intent) (toolOutcome, error) {
	res, err := p.caller.Call(ctx, "weather", map[string]any{
		"destination": in.DestinationCity,
		"start_date":  in.StartDate,
		"end_date":    in.EndDate,
	})
	if err != nil {
		return toolOutcome{}, err
	}
	var days []itinerary.DayWeather
	res.Decode("daily", &days)
	for i := range days {
		if days[i].IsSevere {
			days[i].OutdoorUnsafe = true
		}
	}
	return toolOutcome{
		source: string(res.Source),
		apply:  func(g *itinerary.GatheredData) { g.Weather = days },
	}, nil
}

type attractionItem struct {
	Title           string  `json:"title"`
	Category        string  `json:"category"`
	IsOutdoor       bool    `json:"is_outdoor"`
	EstimatedCost   float64 `json:"estimated_cost"`
	DurationMinutes int     `json:"duration_minutes"`
	Rating          float64 `json:"rating"`
	Latitude        float64 `json:"latitude"`
	Longitude       float64 `json:"longitude"`
	IsHiddenGem     bool    `json:"is_hidden_gem"`
}

func (p *Planner) gatherAttractions(ctx context.Context, in itinerary.Intent) (toolOutcome, error) {
	res, err := p.caller.Call(ctx, "attractions", map[string]any{
		"destination": in.DestinationCity,
		"limit":       12,
	})
	if err != nil {
		return toolOutcome{}, err
	}
	var items []attractionItem
	res.Decode("attractions", &items)

	attractions := make([]itinerary.Activity, 0, len(items))
	for _, it := range items {
		attractions = append(attractions, it.toActivity(res.IsEstimated))
	}
	return toolOutcome{
		source: string(res.Source),
		apply:  func(g *itinerary.GatheredData) { g.Attractions = attractions },
	}, nil
}

func (it attractionItem) toActivity(estimated bool) itinerary.Activity {
	a := itinerary.Activity{
		ID:              types.NewID().String(),
		Title:           it.Title,
		Category:        parseCategory(it.Category),
		DurationMinutes: it.DurationMinutes,
		EstimatedCost:   it.EstimatedCost,
		IsOutdoor:       it.IsOutdoor,
		IsEstimated:     estimated,
		Location: itinerary.Location{
			Name:      it.Title,
			Latitude:  it.Latitude,
			Longitude: it.Longitude,
		},
	}
	if it.IsHiddenGem {
		a.Tags = append(a.Tags, "hidden_gem")
	}
	return a
}

func parseCategory(s string) itinerary.ActivityCategory {
	switch c := itinerary.ActivityCategory(strings.ToLower(s)); c {
	case itinerary.CategorySightseeing, itinerary.CategoryDining, itinerary.CategoryShopping,
		itinerary.CategoryEntertainment, itinerary.CategoryNature,
		itinerary.CategoryTransportation, itinerary.CategoryAccommodation:
		return c
	}
	return itinerary.CategoryOther
}

// decodeBookings converts a tool payload list into booking options.
func decodeBookings(res tool.Result, key string, typ itinerary.BookingType) []itinerary.BookingOption {
	var offers []itinerary.BookingOption
	res.Decode(key, &offers)
	for i := range offers {
		offers[i].Type = typ
		offers[i].IsEstimated = res.IsEstimated
	}
	return offers
}

func stringField(payload map[string]any, key string) string {
	s, _ := payload[key].(string)
	return s
}

func intField(payload map[string]any, key string) int {
	switch v := payload[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}

// weatherSummary condenses a forecast into a one-line overview.
func weatherSummary(days []itinerary.DayWeather) string {
	if len(days) == 0 {
		return ""
	}
	counts := make(map[string]int)
	low, high := days[0].TempLowC, days[0].TempHighC
	for _, d := range days {
		counts[d.Condition]++
		if d.TempLowC < low {
			low = d.TempLowC
		}
		if d.TempHighC > high {
			high = d.TempHighC
		}
	}
	dominant, n := "", 0
	for cond, c := range counts {
		if c > n || (c == n && cond < dominant) {
			dominant, n = cond, c
		}
	}
	return fmt.Sprintf("Mostly %s, %.0f to %.0fC", strings.ReplaceAll(dominant, "_", " "), low, high)
}

// packingSuggestions derives packing advice from the forecast.
func packingSuggestions(days []itinerary.DayWeather) []string {
	out := []string{"comfortable walking shoes"}
	var rain, cold, hot bool
	for _, d := range days {
		if strings.Contains(d.Condition, "rain") || d.Condition == "thunderstorm" || d.PrecipChance > 0.5 {
			rain = true
		}
		if d.TempLowC < 10 {
			cold = true
		}
		if d.TempHighC > 28 {
			hot = true
		}
	}
	if rain {
		out = append(out, "rain jacket", "compact umbrella")
	}
	if cold {
		out = append(out, "warm layers")
	}
	if hot {
		out = append(out, "sunscreen", "light clothing")
	}
	return out
}

const affiliateBase = "https://go.travel-partners.example/search"

// affiliateLink builds a deterministic partner deep link.
func affiliateLink(kind string, params map[string]string) string {
	q := url.Values{}
	for k, v := range params {
		if v != "" {
			q.Set(k, v)
		}
	}
	return affiliateBase + "/" + kind + "?" + q.Encode()
}
