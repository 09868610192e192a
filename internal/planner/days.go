package planner

import (
	"fmt"
	"strings"
	"time"

	"github.com/smithisrealdev/aigo-engine/internal/itinerary"
	"github.com/smithisrealdev/aigo-engine/internal/types"
)

// rawDayPlan mirrors the JSON shape the generation prompt asks for.
type rawDayPlan struct {
	Title      string        `json:"title"`
	Summary    string        `json:"summary"`
	Notes      string        `json:"notes"`
	Activities []rawActivity `json:"activities"`
}

type rawActivity struct {
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	Category        string   `json:"category"`
	Time            string   `json:"time"`
	DurationMinutes int      `json:"duration"`
	Cost            float64  `json:"cost"`
	Currency        string   `json:"currency"`
	Location        string   `json:"location"`
	Address         string   `json:"address"`
	Latitude        float64  `json:"lat"`
	Longitude       float64  `json:"lng"`
	Tips            []string `json:"tips"`
	Tags            []string `json:"tags"`
	RequiresBooking bool     `json:"requires_booking"`
	IsOutdoor       bool     `json:"is_outdoor"`
}

// buildDayPlans converts the model's output into day plans, filling in
// coordinates from gathered attractions when the model left them out.
func buildDayPlans(raw []rawDayPlan, in itinerary.Intent, gathered itinerary.GatheredData) []itinerary.DayPlan {
	start, _ := time.Parse("2006-01-02", in.StartDate)
	if len(raw) > in.DurationDays {
		raw = raw[:in.DurationDays]
	}

	days := make([]itinerary.DayPlan, 0, len(raw))
	for i, rp := range raw {
		dayDate := start.AddDate(0, 0, i)
		day := itinerary.DayPlan{
			DayNumber:      i + 1,
			Date:           dayDate.Format("2006-01-02"),
			Title:          rp.Title,
			Summary:        rp.Summary,
			Notes:          rp.Notes,
			WeatherSummary: weatherForDate(gathered.Weather, dayDate.Format("2006-01-02")),
		}
		if day.Title == "" {
			day.Title = fmt.Sprintf("Day %d", i+1)
		}
		for _, ra := range rp.Activities {
			day.Activities = append(day.Activities, ra.toActivity(in, gathered))
		}
		days = append(days, day)
	}
	return days
}

func (ra rawActivity) toActivity(in itinerary.Intent, gathered itinerary.GatheredData) itinerary.Activity {
	startTime := ra.Time
	if _, err := time.Parse("15:04", startTime); err != nil {
		startTime = "10:00"
	}
	duration := ra.DurationMinutes
	if duration <= 0 {
		duration = 60
	}

	currency := ra.Currency
	if currency == "" {
		currency = in.Currency
	}

	loc := itinerary.Location{
		Name:      ra.Location,
		Address:   ra.Address,
		Latitude:  ra.Latitude,
		Longitude: ra.Longitude,
	}
	if loc.Name == "" {
		loc.Name = ra.Title
	}
	if loc.Latitude == 0 && loc.Longitude == 0 {
		if match := matchAttraction(gathered.Attractions, ra.Title); match != nil {
			loc.Latitude = match.Location.Latitude
			loc.Longitude = match.Location.Longitude
		}
	}

	return itinerary.Activity{
		ID:              types.NewID().String(),
		Title:           ra.Title,
		Description:     ra.Description,
		Category:        parseCategory(ra.Category),
		StartTime:       startTime,
		EndTime:         addMinutes(startTime, duration),
		DurationMinutes: duration,
		Location:        loc,
		EstimatedCost:   ra.Cost,
		Currency:        currency,
		LocalTips:       ra.Tips,
		Tags:            ra.Tags,
		RequiresBooking: ra.RequiresBooking,
		IsOutdoor:       ra.IsOutdoor,
	}
}

// matchAttraction finds a gathered attraction whose title overlaps the
// activity title, used to recover coordinates the model omitted.
func matchAttraction(attractions []itinerary.Activity, title string) *itinerary.Activity {
	needle := strings.ToLower(title)
	for i := range attractions {
		hay := strings.ToLower(attractions[i].Title)
		if strings.Contains(needle, hay) || strings.Contains(hay, needle) {
			return &attractions[i]
		}
	}
	return nil
}

func addMinutes(hhmm string, minutes int) string {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return hhmm
	}
	return t.Add(time.Duration(minutes) * time.Minute).Format("15:04")
}

func weatherForDate(days []itinerary.DayWeather, date string) string {
	for _, d := range days {
		if d.Date == date {
			return fmt.Sprintf("%s, %.0f to %.0fC",
				strings.ReplaceAll(d.Condition, "_", " "), d.TempLowC, d.TempHighC)
		}
	}
	return ""
}

// templateDayPlans builds a plan directly from gathered attractions when
// the model output is unusable. Three activities per day in fixed slots.
func templateDayPlans(in itinerary.Intent, gathered itinerary.GatheredData) []itinerary.DayPlan {
	start, _ := time.Parse("2006-01-02", in.StartDate)
	slots := []string{"09:30", "13:30", "16:30"}

	pool := gathered.Attractions
	next := 0
	takeActivity := func() itinerary.Activity {
		if next < len(pool) {
			a := pool[next]
			next++
			return a
		}
		return itinerary.Activity{
			ID:              types.NewID().String(),
			Title:           fmt.Sprintf("Explore %s", in.DestinationCity),
			Category:        itinerary.CategorySightseeing,
			DurationMinutes: 120,
			IsOutdoor:       true,
			IsEstimated:     true,
			Location:        itinerary.Location{Name: in.DestinationCity},
		}
	}

	days := make([]itinerary.DayPlan, 0, in.DurationDays)
	for i := 0; i < in.DurationDays; i++ {
		dayDate := start.AddDate(0, 0, i).Format("2006-01-02")
		day := itinerary.DayPlan{
			DayNumber:      i + 1,
			Date:           dayDate,
			Title:          fmt.Sprintf("Day %d in %s", i+1, in.DestinationCity),
			WeatherSummary: weatherForDate(gathered.Weather, dayDate),
		}
		for _, slot := range slots {
			a := takeActivity()
			a.StartTime = slot
			if a.DurationMinutes <= 0 {
				a.DurationMinutes = 90
			}
			a.EndTime = addMinutes(slot, a.DurationMinutes)
			if a.Currency == "" {
				a.Currency = in.Currency
			}
			day.Activities = append(day.Activities, a)
		}
		days = append(days, day)
	}
	return days
}
