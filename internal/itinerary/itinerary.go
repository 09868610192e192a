// Package itinerary defines the plan data model shared by the generation
// and replan workflows: snapshots, day plans, activities, booking options,
// and the change records produced by incremental replans.
package itinerary

import (
	"time"

	"github.com/smithisrealdev/aigo-engine/internal/types"
)

// ActivityCategory classifies a planned activity.
type ActivityCategory string

const (
	CategorySightseeing    ActivityCategory = "sightseeing"
	CategoryDining         ActivityCategory = "dining"
	CategoryShopping       ActivityCategory = "shopping"
	CategoryEntertainment  ActivityCategory = "entertainment"
	CategoryNature         ActivityCategory = "nature"
	CategoryTransportation ActivityCategory = "transportation"
	CategoryAccommodation  ActivityCategory = "accommodation"
	CategoryOther          ActivityCategory = "other"
)

// TransitMode is the mode of a transit leg between activities.
type TransitMode string

const (
	TransitWalk   TransitMode = "walk"
	TransitSubway TransitMode = "subway"
	TransitBus    TransitMode = "bus"
	TransitTrain  TransitMode = "train"
	TransitTaxi   TransitMode = "taxi"
	TransitDrive  TransitMode = "drive"
)

// BookingType categorizes a booking option.
type BookingType string

const (
	BookingFlight   BookingType = "flight"
	BookingHotel    BookingType = "hotel"
	BookingActivity BookingType = "activity"
)

// Location identifies a place an activity happens at.
type Location struct {
	Name      string  `json:"name"`
	Address   string  `json:"address,omitempty"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	PlaceID   string  `json:"place_id,omitempty"`
}

// IsZero reports whether the location carries no usable coordinates or name.
func (l Location) IsZero() bool {
	return l.Name == "" && l.Latitude == 0 && l.Longitude == 0
}

// TransitLeg describes how to get from one activity to the next.
type TransitLeg struct {
	Mode            TransitMode `json:"mode"`
	DurationMinutes int         `json:"duration_minutes"`
	DistanceMeters  int         `json:"distance_meters,omitempty"`
	LineName        string      `json:"line_name,omitempty"`
	StationName     string      `json:"station_name,omitempty"`
	ExitNumber      string      `json:"exit_number,omitempty"`
	Instructions    string      `json:"instructions,omitempty"`
	IsEstimated     bool        `json:"is_estimated,omitempty"`
}

// Activity is one scheduled item inside a day plan.
type Activity struct {
	ID              string           `json:"id"`
	Title           string           `json:"title"`
	Description     string           `json:"description,omitempty"`
	Category        ActivityCategory `json:"category"`
	StartTime       string           `json:"start_time"` // HH:MM
	EndTime         string           `json:"end_time"`   // HH:MM
	DurationMinutes int              `json:"duration_minutes"`
	Location        Location         `json:"location"`
	EstimatedCost   float64          `json:"estimated_cost"`
	Currency        string           `json:"currency,omitempty"`
	ImageURL        string           `json:"image_url,omitempty"`
	LocalTips       []string         `json:"local_tips,omitempty"`
	Tags            []string         `json:"tags,omitempty"`
	RequiresBooking bool             `json:"requires_booking,omitempty"`
	IsOutdoor       bool             `json:"is_outdoor,omitempty"`
	IsEstimated     bool             `json:"is_estimated,omitempty"`
	TransitToNext   *TransitLeg      `json:"transit_to_next,omitempty"`

	// Replan provenance, set when this activity replaced another one.
	ReplacedFrom      string `json:"replaced_from,omitempty"`
	ReplacementReason string `json:"replacement_reason,omitempty"`
	AffiliatePending  bool   `json:"affiliate_url_pending,omitempty"`
}

// DayPlan is one day of the itinerary with an ordered activity list.
type DayPlan struct {
	DayNumber           int        `json:"day_number"`
	Date                string     `json:"date"` // YYYY-MM-DD
	Title               string     `json:"title"`
	Summary             string     `json:"summary,omitempty"`
	Activities          []Activity `json:"activities"`
	TotalCost           float64    `json:"total_cost"`
	TotalWalkingMinutes int        `json:"total_walking_minutes"`
	TotalTransitMinutes int        `json:"total_transit_minutes"`
	WeatherSummary      string     `json:"weather_summary,omitempty"`
	Notes               string     `json:"notes,omitempty"`
}

// BookingOption is a bookable offer attached to the plan.
type BookingOption struct {
	Type          BookingType `json:"booking_type"`
	Provider      string      `json:"provider"`
	Title         string      `json:"title"`
	Price         float64     `json:"price"`
	PricePerNight float64     `json:"price_per_night,omitempty"`
	Currency      string      `json:"currency"`
	Stops         int         `json:"stops,omitempty"`
	HotelStars    int         `json:"hotel_stars,omitempty"`
	AffiliateURL  string      `json:"affiliate_url,omitempty"`
	IsEstimated   bool        `json:"is_estimated,omitempty"`
}

// Snapshot is a full versioned plan document. Version 1 is produced by
// generation; every successful replan produces exactly version N+1.
type Snapshot struct {
	ID                 types.ID        `json:"id"`
	Version            int             `json:"version"`
	Title              string          `json:"title"`
	Destination        string          `json:"destination"`
	DestinationCity    string          `json:"destination_city"`
	DestinationCountry string          `json:"destination_country"`
	StartDate          string          `json:"start_date"`
	EndDate            string          `json:"end_date"`
	DurationDays       int             `json:"duration_days"`
	TravelerCount      int             `json:"traveler_count"`
	TripType           string          `json:"trip_type,omitempty"`
	DayPlans           []DayPlan       `json:"daily_plans"`
	BookingOptions     []BookingOption `json:"booking_options,omitempty"`
	TotalEstimatedCost float64         `json:"total_estimated_cost"`
	Currency           string          `json:"currency"`
	WeatherSummary     string          `json:"weather_summary,omitempty"`
	PackingSuggestions []string        `json:"packing_suggestions,omitempty"`
	GeneratedAt        time.Time       `json:"generated_at"`
	HasEstimatedData   bool            `json:"has_estimated_data"`
	EstimatedSources   []string        `json:"estimated_sources,omitempty"`
	SourcesUsed        []string        `json:"sources_used,omitempty"`
}

// MarkEstimated records that data from the named source is AI-estimated and
// flips HasEstimatedData. Duplicate sources are collapsed.
func (s *Snapshot) MarkEstimated(source string) {
	s.HasEstimatedData = true
	for _, existing := range s.EstimatedSources {
		if existing == source {
			return
		}
	}
	s.EstimatedSources = append(s.EstimatedSources, source)
}

// Activity returns the activity at the given day number and index, or nil.
func (s *Snapshot) Activity(dayNumber, index int) *Activity {
	for i := range s.DayPlans {
		if s.DayPlans[i].DayNumber != dayNumber {
			continue
		}
		if index < 0 || index >= len(s.DayPlans[i].Activities) {
			return nil
		}
		return &s.DayPlans[i].Activities[index]
	}
	return nil
}

// Clone returns a deep copy of the snapshot. Replans mutate a clone so the
// stored current version stays untouched until SaveReplan commits.
func (s *Snapshot) Clone() *Snapshot {
	out := *s
	out.DayPlans = make([]DayPlan, len(s.DayPlans))
	for i, dp := range s.DayPlans {
		cp := dp
		cp.Activities = make([]Activity, len(dp.Activities))
		copy(cp.Activities, dp.Activities)
		for j := range cp.Activities {
			if leg := cp.Activities[j].TransitToNext; leg != nil {
				legCopy := *leg
				cp.Activities[j].TransitToNext = &legCopy
			}
		}
		out.DayPlans[i] = cp
	}
	out.BookingOptions = append([]BookingOption(nil), s.BookingOptions...)
	out.EstimatedSources = append([]string(nil), s.EstimatedSources...)
	out.PackingSuggestions = append([]string(nil), s.PackingSuggestions...)
	out.SourcesUsed = append([]string(nil), s.SourcesUsed...)
	return &out
}
