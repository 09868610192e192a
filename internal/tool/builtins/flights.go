package builtins

import (
	"context"
	"fmt"
	"strings"
)

// iataCodes maps city names to their primary airport code. Cities not in
// the table get a synthetic code derived from the name.
var iataCodes = map[string]string{
	"tokyo":         "HND",
	"osaka":         "KIX",
	"kyoto":         "KIX",
	"seoul":         "ICN",
	"bangkok":       "BKK",
	"singapore":     "SIN",
	"hong kong":     "HKG",
	"taipei":        "TPE",
	"london":        "LHR",
	"paris":         "CDG",
	"rome":          "FCO",
	"barcelona":     "BCN",
	"madrid":        "MAD",
	"lisbon":        "LIS",
	"amsterdam":     "AMS",
	"berlin":        "BER",
	"new york":      "JFK",
	"los angeles":   "LAX",
	"san francisco": "SFO",
	"chicago":       "ORD",
	"sydney":        "SYD",
	"melbourne":     "MEL",
	"dubai":         "DXB",
	"istanbul":      "IST",
}

var carriers = []string{"ANA", "JAL", "Singapore Airlines", "Emirates", "Lufthansa", "Delta", "United", "Qatar Airways"}

// AirportCode resolves a city to an IATA code.
func AirportCode(city string) string {
	if code, ok := iataCodes[strings.ToLower(strings.TrimSpace(city))]; ok {
		return code
	}
	up := strings.ToUpper(strings.ReplaceAll(city, " ", ""))
	if len(up) >= 3 {
		return up[:3]
	}
	return "XXX"
}

// FlightSearch simulates a flight search API.
type FlightSearch struct{}

func NewFlightSearch() *FlightSearch { return &FlightSearch{} }

func (f *FlightSearch) Name() string        { return "flights" }
func (f *FlightSearch) Description() string { return "searches round-trip flight offers" }

// Call expects origin, destination, start_date, end_date, travelers.
func (f *FlightSearch) Call(ctx context.Context, input map[string]any) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	origin := stringInput(input, "origin")
	dest := stringInput(input, "destination")
	travelers := intInput(input, "travelers", 1)
	rng := seededRand("flights|" + origin + "|" + dest)

	offers := make([]map[string]any, 0, 3)
	for i := 0; i < 3; i++ {
		base := 280 + rng.Float64()*900
		stops := rng.Intn(2)
		carrier := carriers[rng.Intn(len(carriers))]
		offers = append(offers, map[string]any{
			"provider":     carrier,
			"title":        fmt.Sprintf("%s %s-%s round trip", carrier, AirportCode(origin), AirportCode(dest)),
			"price":        float64(int(base*float64(travelers)*100)) / 100,
			"currency":     "USD",
			"stops":        stops,
			"origin":       AirportCode(origin),
			"destination":  AirportCode(dest),
			"depart_date":  stringInput(input, "start_date"),
			"return_date":  stringInput(input, "end_date"),
		})
	}

	return map[string]any{"flights": offers}, nil
}
