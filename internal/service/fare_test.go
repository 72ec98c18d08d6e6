package service

import (
	"math"
	"testing"

	"ridedispatch/internal/domain"
)

func TestFareQuote_EconomyBreakdown(t *testing.T) {
	calc := NewFareCalculator(nil)

	// 5 km, 15 min economy: 2.50 + 6.00 + 2.25 = 10.75
	fare := calc.Quote(5, 15, domain.VehicleClassEconomy)

	if fare.Base != 250 {
		t.Errorf("base = %d, want 250", fare.Base)
	}
	if fare.Distance != 600 {
		t.Errorf("distance = %d, want 600", fare.Distance)
	}
	if fare.Time != 225 {
		t.Errorf("time = %d, want 225", fare.Time)
	}
	if fare.Total != 1075 {
		t.Errorf("total = %d, want 1075", fare.Total)
	}
}

func TestFareQuote_PerClassRates(t *testing.T) {
	calc := NewFareCalculator(nil)

	cases := []struct {
		class domain.VehicleClass
		total domain.Money
	}{
		// 10 km, 20 min for each class.
		{domain.VehicleClassEconomy, 250 + 1200 + 300},
		{domain.VehicleClassComfort, 350 + 1800 + 400},
		{domain.VehicleClassPremium, 500 + 2500 + 600},
		{domain.VehicleClassXL, 400 + 2000 + 500},
	}
	for _, tc := range cases {
		fare := calc.Quote(10, 20, tc.class)
		if fare.Total != tc.total {
			t.Errorf("%s total = %d, want %d", tc.class, fare.Total, tc.total)
		}
	}
}

func TestFareQuote_ComponentsRoundedIndependently(t *testing.T) {
	calc := NewFareCalculator(nil)

	// 3.333 km economy: 3.9996 rounds to 4.00, not carried into the total raw.
	fare := calc.Quote(3.333, 7, domain.VehicleClassEconomy)

	if fare.Distance != 400 {
		t.Errorf("distance = %d, want 400", fare.Distance)
	}
	if fare.Time != 105 {
		t.Errorf("time = %d, want 105", fare.Time)
	}
	if fare.Total != fare.Base+fare.Distance+fare.Time {
		t.Errorf("total %d does not equal sum of components", fare.Total)
	}
}

func TestFareQuote_BreakdownAlwaysSumsToTotal(t *testing.T) {
	calc := NewFareCalculator(nil)

	distances := []float64{0, 0.001, 1.239, 3.333, 7.777, 12.5, 99.999}
	durations := []float64{0, 1, 2.5, 7, 33.3, 120}
	classes := []domain.VehicleClass{
		domain.VehicleClassEconomy, domain.VehicleClassComfort,
		domain.VehicleClassPremium, domain.VehicleClassXL,
	}
	for _, d := range distances {
		for _, dur := range durations {
			for _, class := range classes {
				fare := calc.Quote(d, dur, class)
				if fare.Total != fare.Base+fare.Distance+fare.Time {
					t.Fatalf("%s %.3fkm %.1fmin: total %d != %d+%d+%d",
						class, d, dur, fare.Total, fare.Base, fare.Distance, fare.Time)
				}
			}
		}
	}
}

func TestFareQuote_UnknownClassFallsBackToEconomy(t *testing.T) {
	calc := NewFareCalculator(nil)

	unknown := calc.Quote(5, 10, domain.VehicleClass("hovercraft"))
	economy := calc.Quote(5, 10, domain.VehicleClassEconomy)

	if unknown != economy {
		t.Errorf("unknown class fare %+v, want economy fare %+v", unknown, economy)
	}
}

func TestEstimateDurationMin(t *testing.T) {
	cases := []struct {
		km   float64
		want float64
	}{
		{0, 0},
		{1, 3},  // 2.5 rounds up
		{4, 10},
		{5, 13}, // 12.5 rounds up
		{10, 25},
	}
	for _, tc := range cases {
		if got := EstimateDurationMin(tc.km); got != tc.want {
			t.Errorf("EstimateDurationMin(%v) = %v, want %v", tc.km, got, tc.want)
		}
	}
}

func TestHaversineKm(t *testing.T) {
	// One degree of longitude at the equator is about 111.19 km.
	got := HaversineKm(0, 0, 0, 1)
	if math.Abs(got-111.19) > 0.5 {
		t.Errorf("HaversineKm(0,0,0,1) = %v, want ~111.19", got)
	}

	if d := HaversineKm(51.5, -0.12, 51.5, -0.12); d != 0 {
		t.Errorf("distance to self = %v, want 0", d)
	}
}
