// Package agg folds a stream of price ticks into fixed-interval OHLC candles.
//
// The aggregator keeps exactly one in-progress candle (the most recent) and
// an append-only list of closed candles. It is owned by the render goroutine
// and is not safe for concurrent use.
package agg

import (
	"github.com/Rick-more-Rick/donTrading-sub000/internal/model"
)

// DefaultInterval is the bucket width used when none is given.
const DefaultInterval int64 = 60

// Aggregator builds OHLC candles from ticks for a single instrument.
type Aggregator struct {
	intervalSec int64

	// candles holds the closed candles followed by the in-progress one
	// when started is true.
	candles []model.Candle
	started bool

	// Metrics hooks (optional, set externally)
	OnDroppedTick func()
	OnClosed      func(c model.Candle)
}

// New creates an Aggregator with the given bucket width in seconds.
func New(intervalSec int64) *Aggregator {
	if intervalSec <= 0 {
		intervalSec = DefaultInterval
	}
	return &Aggregator{intervalSec: intervalSec}
}

// Bucket returns the start of the bucket containing t: floor(t/interval)*interval.
func Bucket(t, intervalSec int64) int64 {
	b := t / intervalSec
	if t%intervalSec != 0 && t < 0 {
		b--
	}
	return b * intervalSec
}

// Tick incorporates a single price into the candle state.
// Non-finite or non-positive prices and ticks older than the in-progress
// bucket are dropped.
func (a *Aggregator) Tick(t int64, price float64) {
	if !(model.Tick{Time: t, Value: price}).Valid() {
		a.drop()
		return
	}
	bucket := Bucket(t, a.intervalSec)

	if a.started {
		c := &a.candles[len(a.candles)-1]
		if bucket < c.Time {
			// Late tick for an older bucket, drop it
			a.drop()
			return
		}
		if bucket == c.Time {
			if price > c.High {
				c.High = price
			}
			if price < c.Low {
				c.Low = price
			}
			c.Close = price
			c.Volume++
			return
		}
		// New bucket: the in-progress candle is closed as is
		if a.OnClosed != nil {
			a.OnClosed(*c)
		}
	}

	a.candles = append(a.candles, model.Candle{
		Time:   bucket,
		Open:   price,
		High:   price,
		Low:    price,
		Close:  price,
		Volume: 1,
	})
	a.started = true
}

func (a *Aggregator) drop() {
	if a.OnDroppedTick != nil {
		a.OnDroppedTick()
	}
}

// FromHistory discards all candles and replays ticks from an empty state.
func (a *Aggregator) FromHistory(ticks []model.Tick) {
	a.Reset()
	for _, tk := range ticks {
		a.Tick(tk.Time, tk.Value)
	}
}

// ChangeInterval swaps the bucket width and rebuilds every candle from the
// raw ticks. Partial re-bucketing of existing candles is never attempted.
func (a *Aggregator) ChangeInterval(intervalSec int64, rawTicks []model.Tick) {
	if intervalSec <= 0 {
		intervalSec = DefaultInterval
	}
	a.intervalSec = intervalSec
	a.FromHistory(rawTicks)
}

// Reset drops every candle, keeping the interval.
func (a *Aggregator) Reset() {
	a.candles = a.candles[:0]
	a.started = false
}

// All returns closed candles plus the in-progress one, ascending by time.
// The returned slice is a fresh copy.
func (a *Aggregator) All() []model.Candle {
	out := make([]model.Candle, len(a.candles))
	copy(out, a.candles)
	return out
}

// View is All without the copy. The slice aliases the aggregator and is
// only valid until the next Tick or Reset; the frame loop reads it and
// never writes.
func (a *Aggregator) View() []model.Candle {
	return a.candles
}

// Current returns the in-progress candle, if any.
func (a *Aggregator) Current() (model.Candle, bool) {
	if !a.started {
		return model.Candle{}, false
	}
	return a.candles[len(a.candles)-1], true
}

// Len returns the number of candles including the in-progress one.
func (a *Aggregator) Len() int {
	return len(a.candles)
}

// Interval returns the bucket width in seconds.
func (a *Aggregator) Interval() int64 {
	return a.intervalSec
}
