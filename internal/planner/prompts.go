package planner

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/smithisrealdev/aigo-engine/internal/itinerary"
)

const intentSystemPrompt = `You are an expert travel planner assistant. Extract the travel intent ` +
	`from the user's request and return a single JSON object with these fields: destination_city, ` +
	`destination_country, origin_city (null if not mentioned), start_date and end_date (YYYY-MM-DD, ` +
	`estimate when unspecified), duration_days, traveler_count (default 1), trip_type (solo, couple, ` +
	`family or group), budget_level (budget, moderate or luxury), budget_total, currency, interests ` +
	`(array), pace (relaxed, moderate or intensive), dietary_needs and accessibility_needs (arrays). ` +
	`Be intelligent about inferring dates: "next week" is computed from today, and a bare duration ` +
	`defaults to starting two weeks from today. Return only JSON.`

func renderIntentPrompt(now time.Time, prompt string, preferences map[string]any) string {
	prefs := "none provided"
	if len(preferences) > 0 {
		if raw, err := json.Marshal(preferences); err == nil {
			prefs = string(raw)
		}
	}
	return fmt.Sprintf("Today's date: %s\n\nUser request:\n%s\n\nUser preferences:\n%s",
		now.Format("2006-01-02"), prompt, prefs)
}

const generationSystemPrompt = `You are an expert travel planner creating a detailed day-by-day ` +
	`itinerary. Group activities geographically, time them sensibly, include meal breaks, and prefer ` +
	`indoor alternatives on rainy days. Return a JSON array with one object per day: {"title", ` +
	`"summary", "activities"}. Each activity is {"title", "description", "category", "time" (HH:MM), ` +
	`"duration" (minutes), "cost", "currency", "location", "address", "lat", "lng", "tips" (array), ` +
	`"requires_booking", "is_outdoor"}. Categories: sightseeing, dining, shopping, entertainment, ` +
	`nature, transportation, accommodation. Return only the JSON array.`

func renderGenerationPrompt(in itinerary.Intent, gathered itinerary.GatheredData) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Trip details:\n- Destination: %s, %s\n- Dates: %s to %s (%d days)\n- Travelers: %d (%s)\n- Pace: %s\n",
		in.DestinationCity, in.DestinationCountry, in.StartDate, in.EndDate, in.DurationDays,
		in.TravelerCount, orDefault(in.TripType, "leisure"), in.Pace)
	if in.BudgetTotal > 0 {
		fmt.Fprintf(&b, "- Budget: %.0f %s\n", in.BudgetTotal, in.Currency)
	}
	if len(in.Interests) > 0 {
		fmt.Fprintf(&b, "- Interests: %s\n", strings.Join(in.Interests, ", "))
	}

	b.WriteString("\nWeather forecast:\n")
	if len(gathered.Weather) == 0 {
		b.WriteString("not available\n")
	}
	for _, d := range gathered.Weather {
		fmt.Fprintf(&b, "- %s: %s, %.0f to %.0fC\n", d.Date, d.Condition, d.TempLowC, d.TempHighC)
	}

	b.WriteString("\nAvailable attractions:\n")
	if len(gathered.Attractions) == 0 {
		b.WriteString("none found, propose well-known places\n")
	}
	for i, a := range gathered.Attractions {
		if i >= 15 {
			break
		}
		fmt.Fprintf(&b, "- %s (%s, ~%d min, ~%.0f)\n", a.Title, a.Category, a.DurationMinutes, a.EstimatedCost)
	}

	if len(gathered.Hotels) > 0 {
		b.WriteString("\nHotel options:\n")
		for i, h := range gathered.Hotels {
			if i >= 5 {
				break
			}
			fmt.Fprintf(&b, "- %s: %.0f %s per night\n", h.Title, h.PricePerNight, h.Currency)
		}
	}

	return b.String()
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
