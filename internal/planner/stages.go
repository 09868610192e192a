package planner

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/smithisrealdev/aigo-engine/internal/itinerary"
	"github.com/smithisrealdev/aigo-engine/internal/llm"
	"github.com/smithisrealdev/aigo-engine/internal/types"
)

func (p *Planner) extractIntent(ctx context.Context, s genState) (genState, error) {
	p.report(s.req, StageIntent, 10, "Understanding your travel request")

	req := llm.Request{
		Model: p.model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: intentSystemPrompt},
			{Role: llm.RoleUser, Content: renderIntentPrompt(p.now(), s.req.Prompt, s.req.Preferences)},
		},
		Temperature: 0.3,
	}

	var intent itinerary.Intent
	if err := llm.CompleteJSON(ctx, p.provider, req, &intent); err != nil {
		return s, err
	}
	intent.Normalize()
	if intent.DestinationCity == "" && intent.Destination != "" {
		intent.DestinationCity = intent.Destination
	}
	if intent.DestinationCity == "" {
		return s, types.NewError(types.PLAN_VALIDATION_FAILED, "could not determine a destination from the request")
	}
	normalizeDates(&intent, p.now())

	s.intent = intent
	s.stepPct = 20
	s.stepMsg = fmt.Sprintf("Planning a %d-day trip to %s", intent.DurationDays, intent.DestinationCity)
	return s, nil
}

// normalizeDates fills missing or inconsistent trip dates. A missing start
// date defaults to two weeks out; the end date always follows from the
// start date and duration.
func normalizeDates(in *itinerary.Intent, now time.Time) {
	start, err := time.Parse("2006-01-02", in.StartDate)
	if err != nil {
		start = now.AddDate(0, 0, 14)
		in.StartDate = start.Format("2006-01-02")
	}
	if end, err := time.Parse("2006-01-02", in.EndDate); err == nil && end.After(start) {
		in.DurationDays = int(end.Sub(start).Hours()/24) + 1
	}
	in.EndDate = start.AddDate(0, 0, in.DurationDays-1).Format("2006-01-02")
}

func (p *Planner) gatherData(ctx context.Context, s genState) (genState, error) {
	p.report(s.req, StageDataGathering, 30, "Gathering travel data from multiple sources")

	intent := s.intent
	var (
		mu       sync.Mutex
		gathered itinerary.GatheredData
	)
	record := func(name string, res toolOutcome) {
		mu.Lock()
		defer mu.Unlock()
		gathered.RecordSource(name, res.source)
		res.apply(&gathered)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(gatherConcurrency)

	if intent.OriginCity != "" {
		g.Go(func() error {
			out, err := p.gatherFlights(gctx, intent)
			if err != nil {
				return err
			}
			record("flights", out)
			return nil
		})
	}
	g.Go(func() error {
		out, err := p.gatherHotels(gctx, intent)
		if err != nil {
			return err
		}
		record("hotels", out)
		return nil
	})
	g.Go(func() error {
		out, err := p.gatherWeather(gctx, intent)
		if err != nil {
			return err
		}
		record("weather", out)
		return nil
	})
	g.Go(func() error {
		out, err := p.gatherAttractions(gctx, intent)
		if err != nil {
			return err
		}
		record("attractions", out)
		return nil
	})

	if err := g.Wait(); err != nil {
		return s, err
	}

	p.logger.Info("data gathering complete",
		"plan_id", s.req.PlanID,
		"flights", len(gathered.Flights),
		"hotels", len(gathered.Hotels),
		"attractions", len(gathered.Attractions),
		"estimated_sources", gathered.Estimated)

	s.gathered = gathered
	s.stepPct = 50
	if len(gathered.Estimated) > 0 {
		s.stepMsg = "Data collected, some estimates used while sources recover"
	} else {
		s.stepMsg = "Data collected, generating your itinerary"
	}
	return s, nil
}

func (p *Planner) generateDays(ctx context.Context, s genState) (genState, error) {
	p.report(s.req, StageGeneration, 60, "Crafting your itinerary")

	req := llm.Request{
		Model: p.model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: generationSystemPrompt},
			{Role: llm.RoleUser, Content: renderGenerationPrompt(s.intent, s.gathered)},
		},
		Temperature: 0.8,
	}

	var raw []rawDayPlan
	if err := llm.CompleteJSON(ctx, p.provider, req, &raw); err != nil || len(raw) == 0 {
		// The model output is advisory; a template plan built from the
		// gathered attractions keeps the workflow moving.
		p.logger.Warn("day plan generation degraded to template",
			"plan_id", s.req.PlanID,
			"error", err)
		s.days = templateDayPlans(s.intent, s.gathered)
		s.daysEstimated = true
	} else {
		s.days = buildDayPlans(raw, s.intent, s.gathered)
	}

	s.stepPct = 75
	s.stepMsg = "Optimizing travel routes between activities"
	return s, nil
}

func (p *Planner) routeTransit(ctx context.Context, s genState) (genState, error) {
	p.report(s.req, StageRoute, 85, "Optimizing travel routes")

	for di := range s.days {
		day := &s.days[di]
		for ai := 0; ai+1 < len(day.Activities); ai++ {
			from := &day.Activities[ai]
			to := day.Activities[ai+1]
			leg := p.routeLeg(ctx, from.Location, to.Location)
			from.TransitToNext = leg
		}
		recomputeDayTotals(day)
	}

	s.stepPct = 90
	s.stepMsg = "Adding booking options"
	return s, nil
}

// routeLeg resolves one transit leg. Activities without coordinates get a
// conservative walking estimate.
func (p *Planner) routeLeg(ctx context.Context, from, to itinerary.Location) *itinerary.TransitLeg {
	if (from.Latitude == 0 && from.Longitude == 0) || (to.Latitude == 0 && to.Longitude == 0) {
		return &itinerary.TransitLeg{Mode: itinerary.TransitWalk, DurationMinutes: 15, IsEstimated: true}
	}

	res, err := p.caller.Call(ctx, "transit", map[string]any{
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
		LineName:        stringField(res.Payload, "line_name"),
		StationName:     stringField(res.Payload, "station_name"),
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

func recomputeDayTotals(day *itinerary.DayPlan) {
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

func (p *Planner) monetize(ctx context.Context, s genState) (genState, error) {
	p.report(s.req, StageMonetization, 92, "Finding booking deals")

	var bookings []itinerary.BookingOption

	flights := s.gathered.Flights
	if len(flights) > 3 {
		flights = flights[:3]
	}
	for _, f := range flights {
		f.Type = itinerary.BookingFlight
		f.AffiliateURL = affiliateLink("flights", map[string]string{
			"origin":      s.intent.OriginCity,
			"destination": s.intent.DestinationCity,
			"depart":      s.intent.StartDate,
			"return":      s.intent.EndDate,
		})
		bookings = append(bookings, f)
	}

	hotels := s.gathered.Hotels
	if len(hotels) > 3 {
		hotels = hotels[:3]
	}
	for _, h := range hotels {
		h.Type = itinerary.BookingHotel
		h.AffiliateURL = affiliateLink("hotels", map[string]string{
			"destination": s.intent.DestinationCity,
			"check_in":    s.intent.StartDate,
			"check_out":   s.intent.EndDate,
		})
		bookings = append(bookings, h)
	}

	s.bookings = bookings
	s.stepPct = 95
	s.stepMsg = "Finalizing your itinerary"
	return s, nil
}

func (p *Planner) finalize(ctx context.Context, s genState) (genState, error) {
	p.report(s.req, StageFinalization, 98, "Putting the finishing touches")

	p.enrichImages(ctx, s)

	intent := s.intent
	snap := &itinerary.Snapshot{
		ID:                 s.req.PlanID,
		Version:            1,
		Title:              fmt.Sprintf("%d-Day %s Adventure", intent.DurationDays, intent.DestinationCity),
		Destination:        joinNonEmpty(intent.DestinationCity, intent.DestinationCountry),
		DestinationCity:    intent.DestinationCity,
		DestinationCountry: intent.DestinationCountry,
		StartDate:          intent.StartDate,
		EndDate:            intent.EndDate,
		DurationDays:       intent.DurationDays,
		TravelerCount:      intent.TravelerCount,
		TripType:           intent.TripType,
		DayPlans:           s.days,
		BookingOptions:     s.bookings,
		Currency:           intent.Currency,
		WeatherSummary:     weatherSummary(s.gathered.Weather),
		PackingSuggestions: packingSuggestions(s.gathered.Weather),
		GeneratedAt:        p.now().UTC(),
		SourcesUsed:        sourcesUsed(s.gathered),
	}

	for _, dp := range s.days {
		snap.TotalEstimatedCost += dp.TotalCost
	}
	for _, b := range s.bookings {
		snap.TotalEstimatedCost += b.Price
	}

	for _, src := range s.gathered.Estimated {
		snap.MarkEstimated(src)
	}
	if s.daysEstimated {
		snap.MarkEstimated("generation")
	}

	if err := p.store.Create(ctx, snap); err != nil {
		return s, err
	}

	s.snapshot = snap
	s.stepPct = 100
	s.stepMsg = "Your itinerary is ready"
	return s, nil
}

// enrichImages attaches a photo to each activity that lacks one. Lookups
// run concurrently but bounded, and a miss just leaves the field empty.
func (p *Planner) enrichImages(ctx context.Context, s genState) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(gatherConcurrency)

	for di := range s.days {
		for ai := range s.days[di].Activities {
			act := &s.days[di].Activities[ai]
			if act.ImageURL != "" {
				continue
			}
			g.Go(func() error {
				res, err := p.caller.Call(gctx, "images", map[string]any{
					"query": act.Title + " " + s.intent.DestinationCity,
					"count": 1,
				})
				if err != nil {
					return nil
				}
				var images []struct {
					URL string `json:"url"`
				}
				res.Decode("images", &images)
				if len(images) > 0 {
					act.ImageURL = images[0].URL
				}
				return nil
			})
		}
	}
	_ = g.Wait()
}

func joinNonEmpty(parts ...string) string {
	keep := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			keep = append(keep, p)
		}
	}
	return strings.Join(keep, ", ")
}

func sourcesUsed(g itinerary.GatheredData) []string {
	out := make([]string, 0, len(g.Sources))
	for _, name := range []string{"flights", "hotels", "weather", "attractions"} {
		if _, ok := g.Sources[name]; ok {
			out = append(out, name)
		}
	}
	return out
}
