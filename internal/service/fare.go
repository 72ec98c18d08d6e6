package service

import (
	"math"

	"ridedispatch/internal/domain"
)

// Rate holds the per-class pricing constants, in dollars.
type Rate struct {
	Base   float64
	PerKm  float64
	PerMin float64
}

// DefaultRateTable returns the standard rate table.
func DefaultRateTable() map[domain.VehicleClass]Rate {
	return map[domain.VehicleClass]Rate{
		domain.VehicleClassEconomy: {Base: 2.50, PerKm: 1.20, PerMin: 0.15},
		domain.VehicleClassComfort: {Base: 3.50, PerKm: 1.80, PerMin: 0.20},
		domain.VehicleClassPremium: {Base: 5.00, PerKm: 2.50, PerMin: 0.30},
		domain.VehicleClassXL:      {Base: 4.00, PerKm: 2.00, PerMin: 0.25},
	}
}

// FareCalculator computes fare breakdowns from a rate table. It is a pure
// function of its inputs; the same calculator produces both the upfront
// estimate and the settlement fare at completion.
type FareCalculator struct {
	rates map[domain.VehicleClass]Rate
}

// NewFareCalculator creates a calculator. A nil table uses the default rates.
func NewFareCalculator(rates map[domain.VehicleClass]Rate) *FareCalculator {
	if rates == nil {
		rates = DefaultRateTable()
	}
	return &FareCalculator{rates: rates}
}

// Quote computes the fare for a distance and duration. Each component is
// rounded to cents independently; the total is the sum of the rounded
// components, so breakdown and total always agree. An unknown vehicle class
// silently falls back to the economy rate (documented policy).
func (c *FareCalculator) Quote(distanceKm, durationMin float64, class domain.VehicleClass) domain.FareBreakdown {
	rate, ok := c.rates[class]
	if !ok {
		rate = c.rates[domain.VehicleClassEconomy]
	}

	base := domain.MoneyFromDollars(rate.Base)
	distance := domain.MoneyFromDollars(distanceKm * rate.PerKm)
	duration := domain.MoneyFromDollars(durationMin * rate.PerMin)

	return domain.FareBreakdown{
		Base:     base,
		Distance: distance,
		Time:     duration,
		Total:    base.Add(distance).Add(duration),
	}
}

const earthRadiusKm = 6371

// HaversineKm returns the great-circle distance between two points.
func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180
	dLng := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

// EstimateDurationMin is the rough trip-time estimate: 2.5 minutes per km.
func EstimateDurationMin(distanceKm float64) float64 {
	return math.Round(distanceKm * 2.5)
}
