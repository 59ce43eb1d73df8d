package fare

import (
	"math"
	"sort"
)

// IncrementMeters is the distance unit charged on top of the base fare.
const IncrementMeters = 250

// Rate is the pricing for one vehicle type.
type Rate struct {
	Base      float64 `json:"base_fare"`
	Increment float64 `json:"per_increment_fare"`
}

// DefaultRates is the stock vehicle table, amounts in PHP.
var DefaultRates = map[string]Rate{
	"Car":        {Base: 45, Increment: 3.75},
	"Motorcycle": {Base: 30, Increment: 2.75},
	"E-bike":     {Base: 25, Increment: 2.50},
	"Tricycle":   {Base: 20, Increment: 2},
	"Van":        {Base: 55, Increment: 5},
	"Jeep":       {Base: 35, Increment: 3},
}

type Calculator struct {
	rates map[string]Rate
}

// NewCalculator copies rates; nil selects DefaultRates.
func NewCalculator(rates map[string]Rate) *Calculator {
	if rates == nil {
		rates = DefaultRates
	}
	c := &Calculator{rates: make(map[string]Rate, len(rates))}
	for k, v := range rates {
		c.rates[k] = v
	}
	return c
}

func (c *Calculator) Rate(vehicle string) (Rate, bool) {
	r, ok := c.rates[vehicle]
	return r, ok
}

// Fare returns base + floor(meters/250) * increment.
// Unknown vehicle types price at zero.
func (c *Calculator) Fare(distanceKm float64, vehicle string) float64 {
	r, ok := c.rates[vehicle]
	if !ok {
		return 0
	}
	increments := math.Floor(distanceKm * 1000 / IncrementMeters)
	if increments < 0 {
		increments = 0
	}
	return r.Base + increments*r.Increment
}

// Vehicles lists the known vehicle types in name order.
func (c *Calculator) Vehicles() []string {
	out := make([]string, 0, len(c.rates))
	for k := range c.rates {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
