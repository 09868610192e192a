package itinerary

// Intent is the structured trip request extracted from the user's free-form
// prompt during the first generation stage.
type Intent struct {
	Destination        string   `json:"destination"`
	DestinationCity    string   `json:"destination_city"`
	DestinationCountry string   `json:"destination_country"`
	OriginCity         string   `json:"origin_city,omitempty"`
	StartDate          string   `json:"start_date"`
	EndDate            string   `json:"end_date"`
	DurationDays       int      `json:"duration_days"`
	TravelerCount      int      `json:"traveler_count"`
	TripType           string   `json:"trip_type,omitempty"`
	BudgetLevel        string   `json:"budget_level,omitempty"`
	BudgetTotal        float64  `json:"budget_total,omitempty"`
	Currency           string   `json:"currency,omitempty"`
	Interests          []string `json:"interests,omitempty"`
	Pace               string   `json:"pace,omitempty"`
	DietaryNeeds       []string `json:"dietary_needs,omitempty"`
	AccessibilityNeeds []string `json:"accessibility_needs,omitempty"`
	Language           string   `json:"language,omitempty"`
}

// Normalize fills defaults for fields the extraction model left empty.
func (in *Intent) Normalize() {
	if in.TravelerCount <= 0 {
		in.TravelerCount = 1
	}
	if in.DurationDays <= 0 {
		in.DurationDays = 3
	}
	if in.Currency == "" {
		in.Currency = "USD"
	}
	if in.Pace == "" {
		in.Pace = "moderate"
	}
	if in.Destination == "" && in.DestinationCity != "" {
		in.Destination = in.DestinationCity
	}
}

// DayWeather is one day's forecast used during data gathering and replans.
type DayWeather struct {
	Date          string  `json:"date"`
	Condition     string  `json:"condition"`
	TempHighC     float64 `json:"temp_high_c"`
	TempLowC      float64 `json:"temp_low_c"`
	PrecipChance  float64 `json:"precip_chance"`
	WindKph       float64 `json:"wind_kph,omitempty"`
	IsSevere      bool    `json:"is_severe,omitempty"`
	OutdoorUnsafe bool    `json:"outdoor_unsafe,omitempty"`
}

// GatheredData aggregates per-tool results collected before plan synthesis.
// Each entry remembers whether it came from a live call or a fallback
// estimate so the final snapshot can mark estimated sources.
type GatheredData struct {
	Flights     []BookingOption `json:"flights,omitempty"`
	Hotels      []BookingOption `json:"hotels,omitempty"`
	Weather     []DayWeather    `json:"weather,omitempty"`
	Attractions []Activity      `json:"attractions,omitempty"`
	Sources     map[string]string `json:"sources,omitempty"` // tool name -> live|fallback|cache
	Estimated   []string          `json:"estimated,omitempty"`
}

// RecordSource notes where the named tool's data came from.
func (g *GatheredData) RecordSource(tool, source string) {
	if g.Sources == nil {
		g.Sources = make(map[string]string)
	}
	g.Sources[tool] = source
	if source != "live" {
		for _, e := range g.Estimated {
			if e == tool {
				return
			}
		}
		g.Estimated = append(g.Estimated, tool)
	}
}
