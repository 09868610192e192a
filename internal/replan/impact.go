package replan

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/smithisrealdev/aigo-engine/internal/itinerary"
	"github.com/smithisrealdev/aigo-engine/internal/llm"
	"github.com/smithisrealdev/aigo-engine/internal/types"
)

func (r *Replanner) loadState(ctx context.Context, s replanState) (replanState, error) {
	r.report(s.req, StageLoadState, 5, "Loading your current itinerary")

	snap, err := r.store.Get(ctx, s.req.PlanID)
	if err != nil {
		return s, err
	}
	if len(snap.DayPlans) == 0 {
		return s, types.NewError(types.PIPELINE_NO_SNAPSHOT,
			fmt.Sprintf("plan %s has no day plans to revise", s.req.PlanID))
	}

	s.current = snap
	s.windowDays = analysisWindow(snap, s.req.Trigger, r.now())
	s.stepPct = 10
	s.stepMsg = "Analyzing impact of changes"
	return s, nil
}

// analysisWindow picks which day numbers the impact analysis covers: the
// explicitly requested day, or else trip days falling between today and
// today+2, or else the first two days.
func analysisWindow(snap *itinerary.Snapshot, trigger itinerary.ReplanTrigger, now time.Time) []int {
	if trigger.Day > 0 {
		for _, dp := range snap.DayPlans {
			if dp.DayNumber == trigger.Day {
				return []int{trigger.Day}
			}
		}
		return nil
	}

	today := now.Format("2006-01-02")
	horizon := now.AddDate(0, 0, defaultWindowDays).Format("2006-01-02")

	var days []int
	for _, dp := range snap.DayPlans {
		if dp.Date >= today && dp.Date <= horizon {
			days = append(days, dp.DayNumber)
		}
	}
	if len(days) == 0 {
		for i, dp := range snap.DayPlans {
			if i >= 2 {
				break
			}
			days = append(days, dp.DayNumber)
		}
	}
	return days
}

// rawImpact mirrors the JSON shape the impact analysis prompt asks for.
type rawImpact struct {
	DayNumber            int    `json:"day_number"`
	ActivityIndex        int    `json:"activity_index"`
	ImpactLevel          string `json:"impact_level"`
	Reason               string `json:"reason"`
	RequiresSubstitution bool   `json:"requires_substitution"`
}

func (r *Replanner) analyzeImpact(ctx context.Context, s replanState) (replanState, error) {
	r.report(s.req, StageImpactAnalysis, 20, "Analyzing which activities are affected")

	if len(s.windowDays) == 0 {
		s.stepPct = 35
		s.stepMsg = "No days fall inside the analysis window"
		return s, nil
	}

	// Weather triggers get a fresh forecast for the window so the model
	// judges against current conditions, not generation-time data.
	if s.req.Trigger.Kind == itinerary.TriggerWeather {
		s.weather = r.fetchWindowWeather(ctx, s.current, s.windowDays)
	}

	req := llm.Request{
		Model: r.model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: impactSystemPrompt},
			{Role: llm.RoleUser, Content: renderImpactPrompt(s.current, s.req.Trigger, s.windowDays, s.weather)},
		},
		Temperature: 0.3,
	}

	var raw []rawImpact
	if err := llm.CompleteJSON(ctx, r.provider, req, &raw); err != nil {
		return s, err
	}

	inWindow := make(map[int]bool, len(s.windowDays))
	for _, d := range s.windowDays {
		inWindow[d] = true
	}

	var impacted []itinerary.ImpactedSegment
	for _, ri := range raw {
		if !inWindow[ri.DayNumber] {
			continue
		}
		act := s.current.Activity(ri.DayNumber, ri.ActivityIndex)
		if act == nil {
			continue
		}
		level := parseImpactLevel(ri.ImpactLevel)
		if level == itinerary.ImpactNone {
			continue
		}
		impacted = append(impacted, itinerary.ImpactedSegment{
			DayNumber:            ri.DayNumber,
			ActivityIndex:        ri.ActivityIndex,
			ActivityID:           act.ID,
			ActivityTitle:        act.Title,
			Impact:               level,
			Reason:               ri.Reason,
			RequiresSubstitution: ri.RequiresSubstitution,
		})
	}

	s.impacted = impacted
	s.isCritical = isCritical(impacted)
	if s.isCritical {
		s.alertMsg = alertMessage(s.req.Trigger, len(impacted))
	}

	r.logger.Info("impact analysis complete",
		"plan_id", s.req.PlanID,
		"trigger", s.req.Trigger.Kind,
		"window_days", s.windowDays,
		"impacted", len(impacted),
		"critical", s.isCritical)

	s.stepPct = 35
	s.stepMsg = fmt.Sprintf("Found %d activities to adjust", len(impacted))
	return s, nil
}

// fetchWindowWeather pulls the forecast covering the window days. A tool
// failure degrades to no weather context rather than aborting the replan.
func (r *Replanner) fetchWindowWeather(ctx context.Context, snap *itinerary.Snapshot, windowDays []int) []itinerary.DayWeather {
	first, last := "", ""
	for _, dp := range snap.DayPlans {
		for _, d := range windowDays {
			if dp.DayNumber != d {
				continue
			}
			if first == "" || dp.Date < first {
				first = dp.Date
			}
			if dp.Date > last {
				last = dp.Date
			}
		}
	}
	if first == "" {
		return nil
	}

	res, err := r.caller.Call(ctx, "weather", map[string]any{
		"destination": snap.DestinationCity,
		"start_date":  first,
		"end_date":    last,
	})
	if err != nil {
		return nil
	}
	var days []itinerary.DayWeather
	res.Decode("daily", &days)
	return days
}

func parseImpactLevel(s string) itinerary.ImpactLevel {
	switch level := itinerary.ImpactLevel(s); level {
	case itinerary.ImpactMinor, itinerary.ImpactModerate, itinerary.ImpactMajor:
		return level
	}
	return itinerary.ImpactNone
}

// isCritical reports whether any segment is badly hit and needs replacing.
func isCritical(impacted []itinerary.ImpactedSegment) bool {
	for _, seg := range impacted {
		if seg.Impact == itinerary.ImpactMajor && seg.RequiresSubstitution {
			return true
		}
	}
	return false
}

func alertMessage(trigger itinerary.ReplanTrigger, count int) string {
	switch trigger.Kind {
	case itinerary.TriggerWeather:
		detail := trigger.Description
		if detail == "" {
			detail = "Bad weather detected"
		}
		return fmt.Sprintf("Weather alert: %s. %d activities affected", detail, count)
	case itinerary.TriggerTraffic:
		return "Traffic alert: heavy traffic detected, consider alternative routes"
	case itinerary.TriggerCrowd:
		return "Crowd alert: some venues are very crowded, alternatives found"
	}
	return fmt.Sprintf("Plan update: %d activities adjusted", count)
}

// affectedDays lists the distinct days touched by the changes, ascending.
func affectedDays(changes []itinerary.Change) []int {
	seen := make(map[int]bool)
	var days []int
	for _, c := range changes {
		if !seen[c.DayNumber] {
			seen[c.DayNumber] = true
			days = append(days, c.DayNumber)
		}
	}
	sort.Ints(days)
	return days
}
