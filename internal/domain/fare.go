package domain

import (
	"fmt"
	"math"
)

// Money is a fixed-point currency amount in cents. Fare components are
// rounded to cents independently before summing, so the displayed breakdown
// always adds up to the total exactly.
type Money int64

// MoneyFromDollars rounds a dollar amount to the nearest cent.
func MoneyFromDollars(v float64) Money {
	return Money(math.Round(v * 100))
}

// Add returns m + other.
func (m Money) Add(other Money) Money {
	return m + other
}

// Dollars returns the amount as a float, for display and rate math only.
func (m Money) Dollars() float64 {
	return float64(m) / 100
}

// String formats the amount with two decimal places.
func (m Money) String() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// MarshalJSON emits the amount as a plain JSON number, e.g. 10.75.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// FareBreakdown is the derived fare of a ride: base + distance + time = total.
type FareBreakdown struct {
	Base     Money
	Distance Money
	Time     Money
	Total    Money
}
