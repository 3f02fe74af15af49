package model

// Candle is an OHLC summary of every tick that fell in one bucket.
// Time is the bucket start in unix seconds; Volume counts ticks.
type Candle struct {
	Time   int64   `json:"time"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
}

// Bullish reports whether the candle closed at or above its open.
func (c *Candle) Bullish() bool {
	return c.Close >= c.Open
}

