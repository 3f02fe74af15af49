package model

import "math"

// Tick is a single last-price update for the active instrument.
// Time is in unix seconds, matching the upstream feed.
type Tick struct {
	Symbol string  `json:"symbol,omitempty"`
	Time   int64   `json:"time"`
	Value  float64 `json:"value"`
}

// Valid reports whether the tick carries a usable price.
// Invalid ticks are dropped at ingestion and never reach the aggregator.
func (t Tick) Valid() bool {
	return IsFinite(t.Value) && t.Value > 0
}

// IsFinite reports whether f is neither NaN nor ±Inf.
func IsFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
