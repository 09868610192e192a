package replan

import (
	"context"
	"fmt"
	"time"

	"github.com/smithisrealdev/aigo-engine/internal/itinerary"
	"github.com/smithisrealdev/aigo-engine/internal/llm"
	"github.com/smithisrealdev/aigo-engine/internal/types"
)

func (r *Replanner) substitute(ctx context.Context, s replanState) (replanState, error) {
	r.report(s.req, StageSubstitution, 45, "Finding alternative activities")

	if len(s.impacted) == 0 {
		s.stepPct = 60
		s.stepMsg = "No substitutions needed"
		return s, nil
	}

	for _, seg := range s.impacted {
		if !seg.RequiresSubstitution {
			s.changes = append(s.changes, itinerary.Change{
				Kind:          itinerary.ChangeRescheduled,
				DayNumber:     seg.DayNumber,
				ActivityIndex: seg.ActivityIndex,
				Before:        seg.ActivityTitle,
				Reason:        seg.Reason,
			})
			continue
		}

		original := s.current.Activity(seg.DayNumber, seg.ActivityIndex)
		if original == nil {
			continue
		}

		if s.req.Trigger.Kind == itinerary.TriggerTraffic {
			s = r.rerouteForTraffic(ctx, s, seg, *original)
			continue
		}

		proposal, err := r.propose(ctx, s, seg, *original)
		if err != nil {
			r.logger.Warn("substitution search failed",
				"plan_id", s.req.PlanID,
				"activity", seg.ActivityTitle,
				"error", err)
			continue
		}
		s.proposals = append(s.proposals, proposal)
		s.changes = append(s.changes, itinerary.Change{
			Kind:          itinerary.ChangeSubstituted,
			DayNumber:     seg.DayNumber,
			ActivityIndex: seg.ActivityIndex,
			Before:        original.Title,
			After:         proposal.Replacement.Title,
			Reason:        proposal.Reason,
		})
	}

	s.stepPct = 60
	s.stepMsg = fmt.Sprintf("Found %d alternatives", len(s.proposals))
	return s, nil
}

// placeItem mirrors one entry of the attractions tool payload.
type placeItem struct {
	Title           string  `json:"title"`
	Category        string  `json:"category"`
	IsOutdoor       bool    `json:"is_outdoor"`
	EstimatedCost   float64 `json:"estimated_cost"`
	DurationMinutes int     `json:"duration_minutes"`
	Latitude        float64 `json:"latitude"`
	Longitude       float64 `json:"longitude"`
	IsHiddenGem     bool    `json:"is_hidden_gem"`
}

// propose finds a replacement for one impacted segment. The candidate
// search is trigger-specific; the model then picks and adapts the best
// fit, degrading to the first candidate when its output is unusable.
func (r *Replanner) propose(ctx context.Context, s replanState, seg itinerary.ImpactedSegment, original itinerary.Activity) (itinerary.SubstitutionProposal, error) {
	trigger := s.req.Trigger

	candidates, estimated, err := r.searchCandidates(ctx, s.current.DestinationCity, trigger)
	if err != nil {
		return itinerary.SubstitutionProposal{}, err
	}
	if len(candidates) == 0 {
		return itinerary.SubstitutionProposal{}, types.NewError(types.TOOL_CALL_FAILED,
			fmt.Sprintf("no substitution candidates found for %q", original.Title))
	}

	hiddenGem := trigger.Kind == itinerary.TriggerCrowd && candidates[0].IsHiddenGem
	reason := substitutionReason(trigger, seg.Reason)

	replacement, usedModel := r.selectReplacement(ctx, original, candidates, trigger, s.weather)
	replacement.ID = types.NewID().String()
	replacement.StartTime = original.StartTime
	replacement.EndTime = original.EndTime
	if replacement.DurationMinutes <= 0 {
		replacement.DurationMinutes = original.DurationMinutes
	}
	if replacement.Currency == "" {
		replacement.Currency = original.Currency
	}
	replacement.ReplacedFrom = original.ID
	replacement.ReplacementReason = reason
	if estimated || !usedModel {
		replacement.IsEstimated = true
	}

	return itinerary.SubstitutionProposal{
		DayNumber:     seg.DayNumber,
		ActivityIndex: seg.ActivityIndex,
		Replacement:   replacement,
		Reason:        reason,
		IsHiddenGem:   hiddenGem,
	}, nil
}

// searchCandidates runs the trigger-specific place search. Crowd triggers
// prefer hidden gems and fall back to a generic search when none exist.
func (r *Replanner) searchCandidates(ctx context.Context, destination string, trigger itinerary.ReplanTrigger) ([]placeItem, bool, error) {
	input := map[string]any{
		"destination": destination,
		"limit":       6,
	}
	if trigger.Kind == itinerary.TriggerWeather {
		input["indoor_only"] = true
	}

	res, err := r.caller.Call(ctx, "attractions", input)
	if err != nil {
		return nil, false, err
	}

	var items []placeItem
	res.Decode("attractions", &items)

	if trigger.Kind == itinerary.TriggerCrowd {
		var gems []placeItem
		for _, it := range items {
			if it.IsHiddenGem {
				gems = append(gems, it)
			}
		}
		if len(gems) > 0 {
			return gems, res.IsEstimated, nil
		}
	}
	return items, res.IsEstimated, nil
}

// rawReplacement mirrors the JSON shape the substitution prompt asks for.
type rawReplacement struct {
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	Category        string   `json:"category"`
	DurationMinutes int      `json:"duration"`
	Cost            float64  `json:"cost"`
	Latitude        float64  `json:"lat"`
	Longitude       float64  `json:"lng"`
	Tips            []string `json:"tips"`
	RequiresBooking bool     `json:"requires_booking"`
	IsOutdoor       bool     `json:"is_outdoor"`
}

// selectReplacement asks the model to pick and adapt the best candidate.
// Returns the replacement and whether the model's answer was used.
func (r *Replanner) selectReplacement(ctx context.Context, original itinerary.Activity, candidates []placeItem, trigger itinerary.ReplanTrigger, weather []itinerary.DayWeather) (itinerary.Activity, bool) {
	req := llm.Request{
		Model: r.model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: substitutionSystemPrompt},
			{Role: llm.RoleUser, Content: renderSubstitutionPrompt(original, candidates, trigger, weather)},
		},
		Temperature: 0.5,
	}

	var raw rawReplacement
	if err := llm.CompleteJSON(ctx, r.provider, req, &raw); err != nil || raw.Title == "" {
		r.logger.Warn("replacement selection degraded to first candidate", "error", err)
		return candidateToActivity(candidates[0]), false
	}

	loc := itinerary.Location{Name: raw.Title, Latitude: raw.Latitude, Longitude: raw.Longitude}
	if loc.Latitude == 0 && loc.Longitude == 0 {
		for _, c := range candidates {
			if c.Title == raw.Title {
				loc.Latitude = c.Latitude
				loc.Longitude = c.Longitude
				break
			}
		}
	}

	return itinerary.Activity{
		Title:           raw.Title,
		Description:     raw.Description,
		Category:        parseCategory(raw.Category),
		DurationMinutes: raw.DurationMinutes,
		Location:        loc,
		EstimatedCost:   raw.Cost,
		LocalTips:       raw.Tips,
		RequiresBooking: raw.RequiresBooking,
		IsOutdoor:       raw.IsOutdoor,
	}, true
}

func candidateToActivity(c placeItem) itinerary.Activity {
	return itinerary.Activity{
		Title:           c.Title,
		Category:        parseCategory(c.Category),
		DurationMinutes: c.DurationMinutes,
		EstimatedCost:   c.EstimatedCost,
		IsOutdoor:       c.IsOutdoor,
		Location: itinerary.Location{
			Name:      c.Title,
			Latitude:  c.Latitude,
			Longitude: c.Longitude,
		},
	}
}

func parseCategory(s string) itinerary.ActivityCategory {
	switch c := itinerary.ActivityCategory(s); c {
	case itinerary.CategorySightseeing, itinerary.CategoryDining, itinerary.CategoryShopping,
		itinerary.CategoryEntertainment, itinerary.CategoryNature,
		itinerary.CategoryTransportation, itinerary.CategoryAccommodation:
		return c
	}
	return itinerary.CategoryOther
}

func substitutionReason(trigger itinerary.ReplanTrigger, impactReason string) string {
	switch trigger.Kind {
	case itinerary.TriggerWeather:
		return fmt.Sprintf("Indoor alternative due to weather: %s", impactReason)
	case itinerary.TriggerCrowd:
		return fmt.Sprintf("Less crowded alternative: %s", impactReason)
	case itinerary.TriggerUserRequest:
		return fmt.Sprintf("User-requested change: %s", impactReason)
	}
	return impactReason
}

// rerouteForTraffic evaluates the route to the impacted activity and
// records a transit update, plus a pit stop when travel runs long.
func (r *Replanner) rerouteForTraffic(ctx context.Context, s replanState, seg itinerary.ImpactedSegment, original itinerary.Activity) replanState {
	from := originFor(s, seg)
	if from == nil || original.Location.IsZero() {
		return s
	}

	res, err := r.caller.Call(ctx, "transit", map[string]any{
		"from_lat": from.Latitude,
		"from_lng": from.Longitude,
		"to_lat":   original.Location.Latitude,
		"to_lng":   original.Location.Longitude,
	})
	if err != nil {
		return s
	}

	leg := &itinerary.TransitLeg{
		Mode:            itinerary.TransitMode(stringField(res.Payload, "mode")),
		DurationMinutes: intField(res.Payload, "duration_minutes"),
		DistanceMeters:  intField(res.Payload, "distance_meters"),
		IsEstimated:     res.IsEstimated,
	}
	if leg.Mode == "" {
		leg.Mode = itinerary.TransitWalk
	}

	if seg.ActivityIndex > 0 {
		s.legUpdates = append(s.legUpdates, legUpdate{
			dayNumber: seg.DayNumber,
			index:     seg.ActivityIndex - 1,
			leg:       leg,
		})
	}
	s.changes = append(s.changes, itinerary.Change{
		Kind:          itinerary.ChangeTransitUpdate,
		DayNumber:     seg.DayNumber,
		ActivityIndex: seg.ActivityIndex,
		Before:        seg.ActivityTitle,
		Reason:        fmt.Sprintf("Alternate route to avoid traffic, recommended mode %s", leg.Mode),
	})

	delay := time.Duration(s.req.Trigger.DelayMinutes) * time.Minute
	travel := time.Duration(leg.DurationMinutes) * time.Minute
	if travel > pitStopThreshold || delay > pitStopThreshold {
		stop := itinerary.Activity{
			ID:              types.NewID().String(),
			Title:           "Cafe pit stop",
			Description:     "A short break along the way while traffic clears",
			Category:        itinerary.CategoryDining,
			DurationMinutes: 30,
			IsEstimated:     true,
			Location:        itinerary.Location{Name: fmt.Sprintf("Near %s", original.Location.Name)},
		}
		s.pitStops = append(s.pitStops, pitStop{
			dayNumber: seg.DayNumber,
			index:     seg.ActivityIndex,
			activity:  stop,
		})
		s.changes = append(s.changes, itinerary.Change{
			Kind:          itinerary.ChangePitStopAdded,
			DayNumber:     seg.DayNumber,
			ActivityIndex: seg.ActivityIndex,
			After:         stop.Title,
			Reason:        "Travel time exceeds one hour",
		})
	}
	return s
}

// originFor picks where the traveler is coming from: their reported
// position, or the previous activity on the same day.
func originFor(s replanState, seg itinerary.ImpactedSegment) *itinerary.Location {
	if s.req.CurrentLocation != nil && !s.req.CurrentLocation.IsZero() {
		return s.req.CurrentLocation
	}
	if seg.ActivityIndex > 0 {
		if prev := s.current.Activity(seg.DayNumber, seg.ActivityIndex-1); prev != nil && !prev.Location.IsZero() {
			return &prev.Location
		}
	}
	return nil
}

func stringField(payload map[string]any, key string) string {
	v, _ := payload[key].(string)
	return v
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
