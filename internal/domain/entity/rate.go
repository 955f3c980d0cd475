package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	// AnchorCurrency is the currency every supported pair must include.
	AnchorCurrency = "ARS"
	// SecondaryCurrency is the only foreign currency the anchor is quoted against.
	SecondaryCurrency = "USD"
)

// Rate represents a resolved exchange rate for a calendar day.
// Semantics: 1 unit of From equals Rate units of To.
type Rate struct {
	Date time.Time `json:"date"`
	From string    `json:"from"`
	To   string    `json:"to"`
	Rate float64   `json:"rate"`
}

// HistoricalEntry is one day of the upstream quote series reduced to its
// midpoint rate.
type HistoricalEntry struct {
	Date time.Time `json:"date"`
	Mid  float64   `json:"mid"`
}

// Midpoint averages a buy and a sell price, rounded to 4 decimal places.
func Midpoint(buy, sell float64) float64 {
	mid := decimal.NewFromFloat(buy).
		Add(decimal.NewFromFloat(sell)).
		Div(decimal.NewFromInt(2))
	f, _ := mid.Round(4).Float64()
	return f
}

// Invert flips an anchor-per-USD midpoint into USD-per-anchor, rounded to
// 8 decimal places. The 4/8 precision split matches the upstream contract
// and must not be unified.
func Invert(mid float64) float64 {
	inv := decimal.NewFromInt(1).Div(decimal.NewFromFloat(mid))
	f, _ := inv.Round(8).Float64()
	return f
}

// Day truncates t to its UTC calendar day.
func Day(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
