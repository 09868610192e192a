package builtins

import (
	"context"
	"time"
)

var conditions = []string{"clear", "partly_cloudy", "cloudy", "light_rain", "rain", "thunderstorm"}

// WeatherForecast simulates a daily forecast API.
type WeatherForecast struct{}

func NewWeatherForecast() *WeatherForecast { return &WeatherForecast{} }

func (w *WeatherForecast) Name() string        { return "weather" }
func (w *WeatherForecast) Description() string { return "fetches the daily forecast for a destination" }

// Call expects destination, start_date, end_date (YYYY-MM-DD).
func (w *WeatherForecast) Call(ctx context.Context, input map[string]any) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dest := stringInput(input, "destination")
	start, err := time.Parse("2006-01-02", stringInput(input, "start_date"))
	if err != nil {
		start = time.Now()
	}
	end, err := time.Parse("2006-01-02", stringInput(input, "end_date"))
	if err != nil || end.Before(start) {
		end = start.AddDate(0, 0, 2)
	}

	rng := seededRand("weather|" + dest + "|" + start.Format("2006-01-02"))

	days := make([]map[string]any, 0, 8)
	for d := start; !d.After(end) && len(days) < 14; d = d.AddDate(0, 0, 1) {
		cond := conditions[rng.Intn(len(conditions))]
		high := 12 + rng.Float64()*20
		precip := rng.Float64()
		if cond == "clear" {
			precip *= 0.15
		}
		days = append(days, map[string]any{
			"date":          d.Format("2006-01-02"),
			"condition":     cond,
			"temp_high_c":   float64(int(high*10)) / 10,
			"temp_low_c":    float64(int((high-7)*10)) / 10,
			"precip_chance": float64(int(precip*100)) / 100,
			"is_severe":     cond == "thunderstorm",
		})
	}

	return map[string]any{"daily": days}, nil
}
