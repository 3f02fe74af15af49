// Package viewport owns which slice of candle history is on screen: how
// many candles are visible and how far the user has panned back, with a
// fractional remainder for sub-candle smoothness.
package viewport

import (
	"math"

	"github.com/Rick-more-Rick/donTrading-sub000/internal/model"
	"github.com/Rick-more-Rick/donTrading-sub000/internal/pricerange"
)

const (
	MinCandlesVisible     = 15
	MaxCandlesVisible     = 300
	DefaultCandlesVisible = 80
)

// Viewport tracks pan and zoom over the candle list.
type Viewport struct {
	prices *pricerange.State

	candlesVisible int
	backOffset     int
	fractional     float64 // in candle units, [-1, 1)
	panAccumPx     float64

	lastTotal int
}

// New creates a viewport reading and writing the shared price state.
func New(prices *pricerange.State, candlesVisible int) *Viewport {
	v := &Viewport{prices: prices, candlesVisible: DefaultCandlesVisible}
	if candlesVisible > 0 {
		v.candlesVisible = clampInt(candlesVisible, MinCandlesVisible, MaxCandlesVisible)
	}
	return v
}

// Visible clamps the back offset against the candle count and returns the
// on-screen slice. The slice aliases all.
func (v *Viewport) Visible(all []model.Candle) []model.Candle {
	total := len(all)
	v.lastTotal = total
	v.clampOffset(total)
	if total == 0 {
		return all[:0]
	}
	end := total - v.backOffset
	start := end - v.candlesVisible
	if start < 0 {
		start = 0
	}
	return all[start:end]
}

func (v *Viewport) clampOffset(total int) {
	if total <= 0 {
		v.backOffset = 0
		return
	}
	if v.backOffset > total-1 {
		v.backOffset = total - 1
	}
	if v.backOffset < 0 {
		v.backOffset = 0
	}
}

// Zoom multiplies the number of visible candles by factor.
func (v *Viewport) Zoom(factor float64) {
	if !model.IsFinite(factor) || factor <= 0 {
		return
	}
	n := int(math.Round(float64(v.candlesVisible) * factor))
	v.candlesVisible = clampInt(n, MinCandlesVisible, MaxCandlesVisible)
}

// Pan moves the viewport by deltaPx on a chart chartWidthPx wide. Positive
// deltaPx (drag to the right) moves back in history. It reports whether at
// least one whole candle was crossed (and the offset actually moved); only
// then is an auto-range refit worthwhile.
func (v *Viewport) Pan(deltaPx, chartWidthPx float64) bool {
	if chartWidthPx <= 0 || !model.IsFinite(deltaPx) || deltaPx == 0 {
		return false
	}
	candleWidth := chartWidthPx / float64(v.candlesVisible)
	orig := v.backOffset
	v.panAccumPx += deltaPx

	whole := int(math.Trunc(v.panAccumPx / candleWidth))
	if whole != 0 {
		v.panAccumPx -= float64(whole) * candleWidth
		v.backOffset += whole
	}

	before := v.backOffset
	if v.lastTotal > 0 {
		v.clampOffset(v.lastTotal)
	} else if v.backOffset < 0 {
		v.backOffset = 0
	}
	// pinned at an end of history: drop the sub-candle remainder
	if v.backOffset != before ||
		(v.backOffset == 0 && v.panAccumPx < 0) ||
		(v.lastTotal > 0 && v.backOffset == v.lastTotal-1 && v.panAccumPx > 0) {
		v.panAccumPx = 0
	}

	v.fractional = v.panAccumPx / candleWidth
	return v.backOffset != orig
}

// ResetPan returns to the live edge.
func (v *Viewport) ResetPan() {
	v.backOffset = 0
	v.fractional = 0
	v.panAccumPx = 0
}

// ComputeAutoRange forwards the visible extrema to the price state.
func (v *Viewport) ComputeAutoRange(all []model.Candle) {
	lo, hi, ok := Extrema(v.Visible(all))
	if !ok {
		return
	}
	v.prices.SetAutoRange(lo, hi)
}

// Extrema returns the lowest low and highest high of candles, skipping
// non-finite values.
func Extrema(candles []model.Candle) (lo, hi float64, ok bool) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for i := range candles {
		c := &candles[i]
		if model.IsFinite(c.Low) && c.Low < lo {
			lo = c.Low
		}
		if model.IsFinite(c.High) && c.High > hi {
			hi = c.High
		}
	}
	if lo > hi {
		return 0, 0, false
	}
	return lo, hi, true
}

// CandlesVisible returns the zoom level in candles.
func (v *Viewport) CandlesVisible() int { return v.candlesVisible }

// BackOffset returns how many candles the right edge sits behind the
// newest one.
func (v *Viewport) BackOffset() int { return v.backOffset }

// Fractional returns the sub-candle pan remainder in candle units.
func (v *Viewport) Fractional() float64 { return v.fractional }

// Reset returns to the live edge and forgets the candle count. Zoom is kept.
func (v *Viewport) Reset() {
	v.ResetPan()
	v.lastTotal = 0
}

func clampInt(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
