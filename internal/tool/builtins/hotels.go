package builtins

import (
	"context"
	"fmt"
)

var hotelBrands = []string{"Grand", "Park", "Riverside", "Central", "Garden", "Imperial", "Bay View", "Old Town"}

// HotelSearch simulates a hotel search API.
type HotelSearch struct{}

func NewHotelSearch() *HotelSearch { return &HotelSearch{} }

func (h *HotelSearch) Name() string        { return "hotels" }
func (h *HotelSearch) Description() string { return "searches hotel offers near the destination" }

// Call expects destination, nights, travelers, budget_level.
func (h *HotelSearch) Call(ctx context.Context, input map[string]any) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dest := stringInput(input, "destination")
	nights := intInput(input, "nights", 3)
	rng := seededRand("hotels|" + dest)

	tier := map[string]float64{"budget": 0.5, "moderate": 1.0, "luxury": 2.4}[stringInput(input, "budget_level")]
	if tier == 0 {
		tier = 1.0
	}

	offers := make([]map[string]any, 0, 3)
	for i := 0; i < 3; i++ {
		perNight := (70 + rng.Float64()*180) * tier
		stars := 3 + rng.Intn(3)
		offers = append(offers, map[string]any{
			"provider":        "StayFinder",
			"title":           fmt.Sprintf("%s Hotel %s", hotelBrands[rng.Intn(len(hotelBrands))], dest),
			"price_per_night": float64(int(perNight*100)) / 100,
			"price":           float64(int(perNight*float64(nights)*100)) / 100,
			"currency":        "USD",
			"hotel_stars":     stars,
			"nights":          nights,
		})
	}

	return map[string]any{"hotels": offers}, nil
}
