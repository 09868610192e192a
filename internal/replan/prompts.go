package replan

import (
	"fmt"
	"strings"

	"github.com/smithisrealdev/aigo-engine/internal/itinerary"
)

const impactSystemPrompt = `You are a travel operations assistant reviewing a live itinerary after a ` +
	`disruption. Judge each activity in the listed days and return a JSON array of the affected ones: ` +
	`{"day_number", "activity_index", "impact_level" (minor, moderate or major), "reason", ` +
	`"requires_substitution"}. Outdoor activities in bad weather are major; indoor ones are minor or ` +
	`unaffected. Only include activities that are actually impacted. Return only the JSON array.`

func renderImpactPrompt(snap *itinerary.Snapshot, trigger itinerary.ReplanTrigger, windowDays []int, weather []itinerary.DayWeather) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Disruption: %s\n", trigger.Kind)
	if trigger.Description != "" {
		fmt.Fprintf(&b, "Details: %s\n", trigger.Description)
	}
	if trigger.DelayMinutes > 0 {
		fmt.Fprintf(&b, "Reported delay: %d minutes\n", trigger.DelayMinutes)
	}
	if trigger.Preference != "" {
		fmt.Fprintf(&b, "Traveler preference: %s\n", trigger.Preference)
	}

	if len(weather) > 0 {
		b.WriteString("\nCurrent forecast:\n")
		for _, d := range weather {
			severe := ""
			if d.IsSevere {
				severe = " (severe)"
			}
			fmt.Fprintf(&b, "- %s: %s, %.0f to %.0fC, precip %.0f%%%s\n",
				d.Date, d.Condition, d.TempLowC, d.TempHighC, d.PrecipChance*100, severe)
		}
	}

	inWindow := make(map[int]bool, len(windowDays))
	for _, d := range windowDays {
		inWindow[d] = true
	}

	b.WriteString("\nItinerary days under review:\n")
	for _, dp := range snap.DayPlans {
		if !inWindow[dp.DayNumber] {
			continue
		}
		fmt.Fprintf(&b, "Day %d (%s): %s\n", dp.DayNumber, dp.Date, dp.Title)
		for i, a := range dp.Activities {
			outdoor := "indoor"
			if a.IsOutdoor {
				outdoor = "outdoor"
			}
			fmt.Fprintf(&b, "  [%d] %s at %s (%s, %s)\n", i, a.Title, a.StartTime, a.Category, outdoor)
		}
	}

	return b.String()
}

const substitutionSystemPrompt = `You are a travel planner replacing one activity in a live itinerary. ` +
	`Pick the best fitting candidate for the traveler's situation and adapt it to the original time ` +
	`slot. Return one JSON object: {"title", "description", "category", "duration" (minutes), "cost", ` +
	`"lat", "lng", "tips" (array), "requires_booking", "is_outdoor"}. Return only JSON.`

func renderSubstitutionPrompt(original itinerary.Activity, candidates []placeItem, trigger itinerary.ReplanTrigger, weather []itinerary.DayWeather) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Original activity: %s (%s), %s to %s, cost %.0f\n",
		original.Title, original.Category, original.StartTime, original.EndTime, original.EstimatedCost)
	fmt.Fprintf(&b, "Reason for change: %s", trigger.Kind)
	if trigger.Description != "" {
		fmt.Fprintf(&b, ", %s", trigger.Description)
	}
	b.WriteString("\n")
	if trigger.Preference != "" {
		fmt.Fprintf(&b, "Traveler preference: %s\n", trigger.Preference)
	}

	if len(weather) > 0 {
		fmt.Fprintf(&b, "Forecast: %s, %.0f to %.0fC\n",
			weather[0].Condition, weather[0].TempLowC, weather[0].TempHighC)
	}

	b.WriteString("\nCandidates:\n")
	for _, c := range candidates {
		gem := ""
		if c.IsHiddenGem {
			gem = ", hidden gem"
		}
		fmt.Fprintf(&b, "- %s (%s, ~%d min, ~%.0f, lat %.4f lng %.4f%s)\n",
			c.Title, c.Category, c.DurationMinutes, c.EstimatedCost, c.Latitude, c.Longitude, gem)
	}

	return b.String()
}
