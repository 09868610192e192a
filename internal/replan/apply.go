package replan

import (
	"context"
	"fmt"

	"github.com/smithisrealdev/aigo-engine/internal/itinerary"
)

func (r *Replanner) updateTransit(ctx context.Context, s replanState) (replanState, error) {
	r.report(s.req, StageTransitUpdate, 70, "Updating transit information")

	if len(s.proposals) == 0 {
		s.stepPct = 80
		s.stepMsg = "No transit updates needed"
		return s, nil
	}

	// Only segments that changed get their legs recomputed: the leg into
	// the replacement and the leg out of it.
	for i := range s.proposals {
		p := &s.proposals[i]
		day := dayPlan(s.current, p.DayNumber)
		if day == nil {
			continue
		}
		if p.ActivityIndex > 0 {
			prev := day.Activities[p.ActivityIndex-1]
			s.legUpdates = append(s.legUpdates, legUpdate{
				dayNumber: p.DayNumber,
				index:     p.ActivityIndex - 1,
				leg:       r.routeLeg(ctx, prev.Location, p.Replacement.Location),
			})
		}
		if p.ActivityIndex+1 < len(day.Activities) {
			next := day.Activities[p.ActivityIndex+1]
			p.Replacement.TransitToNext = r.routeLeg(ctx, p.Replacement.Location, next.Location)
		}
	}

	s.stepPct = 80
	s.stepMsg = "Transit details updated"
	return s, nil
}

func (r *Replanner) routeLeg(ctx context.Context, from, to itinerary.Location) *itinerary.TransitLeg {
	if from.IsZero() || to.IsZero() {
		return &itinerary.TransitLeg{Mode: itinerary.TransitWalk, DurationMinutes: 15, IsEstimated: true}
	}

	res, err := r.caller.Call(ctx, "transit", map[string]any{
		"from_lat": from.Latitude,
		"from_lng": from.Longitude,
		"to_lat":   to.Latitude,
		"to_lng":   to.Longitude,
	})
	if err != nil {
		return &itinerary.TransitLeg{Mode: itinerary.TransitWalk, DurationMinutes: 15, IsEstimated: true}
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
	if leg.DurationMinutes <= 0 {
		leg.DurationMinutes = 15
	}
	return leg
}

func (r *Replanner) updateMonetization(ctx context.Context, s replanState) (replanState, error) {
	r.report(s.req, StageMonetizationUpdate, 88, "Updating booking links")

	// Newly substituted bookable activities await a fresh affiliate link.
	for i := range s.proposals {
		if s.proposals[i].Replacement.RequiresBooking {
			s.proposals[i].Replacement.AffiliatePending = true
		}
	}

	s.stepPct = 92
	s.stepMsg = "Booking links updated"
	return s, nil
}

func (r *Replanner) finalize(ctx context.Context, s replanState) (replanState, error) {
	r.report(s.req, StageFinalize, 95, "Finalizing your updated itinerary")

	draft := s.current.Clone()

	for _, p := range s.proposals {
		if act := draft.Activity(p.DayNumber, p.ActivityIndex); act != nil {
			*act = p.Replacement
			if p.Replacement.IsEstimated {
				draft.MarkEstimated("substitution")
			}
		}
	}
	for _, lu := range s.legUpdates {
		if act := draft.Activity(lu.dayNumber, lu.index); act != nil {
			act.TransitToNext = lu.leg
		}
	}
	insertPitStops(draft, s.pitStops)

	recomputeTotals(draft, affectedDays(s.changes))

	summary := itinerary.ChangeSummary{
		TriggerKind:  s.req.Trigger.Kind,
		IsCritical:   s.isCritical,
		Changes:      s.changes,
		AlertMessage: s.alertMsg,
		AffectedDays: affectedDays(s.changes),
		NewVersion:   s.current.Version + 1,
		CompletedAt:  r.now().UTC(),
	}

	newVersion, err := r.store.SaveReplan(ctx, s.req.PlanID, s.current.Version, draft, summary)
	if err != nil {
		return s, err
	}
	draft.Version = newVersion
	summary.NewVersion = newVersion

	r.logger.Info("replan committed",
		"plan_id", s.req.PlanID,
		"trigger", s.req.Trigger.Kind,
		"new_version", newVersion,
		"changes", len(s.changes),
		"critical", s.isCritical)

	s.result = &Result{Snapshot: draft, Summary: summary}
	s.stepPct = 100
	s.stepMsg = fmt.Sprintf("Your itinerary has been updated to version %d", newVersion)
	return s, nil
}

func dayPlan(snap *itinerary.Snapshot, dayNumber int) *itinerary.DayPlan {
	for i := range snap.DayPlans {
		if snap.DayPlans[i].DayNumber == dayNumber {
			return &snap.DayPlans[i]
		}
	}
	return nil
}

// insertPitStops splices break activities in before their impacted
// activities. Later indices go first so earlier inserts do not shift them.
func insertPitStops(snap *itinerary.Snapshot, stops []pitStop) {
	for i := len(stops) - 1; i >= 0; i-- {
		st := stops[i]
		day := dayPlan(snap, st.dayNumber)
		if day == nil || st.index < 0 || st.index > len(day.Activities) {
			continue
		}
		day.Activities = append(day.Activities[:st.index],
			append([]itinerary.Activity{st.activity}, day.Activities[st.index:]...)...)
	}
}

func recomputeTotals(snap *itinerary.Snapshot, days []int) {
	touched := make(map[int]bool, len(days))
	for _, d := range days {
		touched[d] = true
	}

	snap.TotalEstimatedCost = 0
	for i := range snap.DayPlans {
		day := &snap.DayPlans[i]
		if touched[day.DayNumber] {
			day.TotalCost = 0
			day.TotalWalkingMinutes = 0
			day.TotalTransitMinutes = 0
			for _, a := range day.Activities {
				day.TotalCost += a.EstimatedCost
				if a.TransitToNext == nil {
					continue
				}
				if a.TransitToNext.Mode == itinerary.TransitWalk {
					day.TotalWalkingMinutes += a.TransitToNext.DurationMinutes
				} else {
					day.TotalTransitMinutes += a.TransitToNext.DurationMinutes
				}
			}
		}
		snap.TotalEstimatedCost += day.TotalCost
	}
	for _, b := range snap.BookingOptions {
		snap.TotalEstimatedCost += b.Price
	}
}
