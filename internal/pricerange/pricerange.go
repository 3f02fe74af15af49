// Package pricerange owns the visible price interval shared by the candle
// chart and the depth table, together with its auto/manual zoom mode.
//
// All transforms degrade to a safe default when the range is invalid; they
// never panic and never produce NaN pixel coordinates. Recovering from an
// invalid or lost range is the controller's job (see chart.Watchdog).
package pricerange

import (
	"math"
	"time"

	"github.com/Rick-more-Rick/donTrading-sub000/internal/model"
)

const (
	// Epsilon is the smallest price span considered a valid range.
	Epsilon = 1e-4

	autoPadRatio = 0.08
	autoPadMin   = 0.01

	wheelFactor  = 0.006
	wheelMaxStep = 0.10
	dragFactor   = 0.004

	minManualRange     = 0.005
	maxRangeMultiplier = 6.0
	maxRangeFloor      = 10.0

	MinZoomFactor = 0.3
	MaxZoomFactor = 5.0
)

// State is the shared price-axis state. One instance exists per chart and
// is handed by pointer to every component that reads or writes it.
type State struct {
	priceMin float64
	priceMax float64

	autoRange  bool
	zoomFactor float64

	lastDataMid   float64
	lastDataRange float64

	offScreenSince time.Time
}

// New returns a state in auto-range mode with no data yet.
func New() *State {
	return &State{autoRange: true, zoomFactor: 1.0}
}

// SetAutoRange records the data extrema and, in auto mode, fits the
// visible range to them with symmetric padding.
func (s *State) SetAutoRange(min, max float64) {
	if !model.IsFinite(min) || !model.IsFinite(max) || max < min {
		return
	}
	rng := max - min
	s.lastDataMid = (min + max) / 2
	s.lastDataRange = rng

	if !s.autoRange {
		return
	}
	pad := math.Max(rng*autoPadRatio, autoPadMin)
	s.priceMin = min - pad
	s.priceMax = max + pad
}

// ApplyManualZoom scales the range by a wheel delta. Positive deltaY zooms
// out. The new range is always re-centered on the current viewport center,
// so the cursor position ratio (second argument) is ignored.
func (s *State) ApplyManualZoom(deltaY, _ float64) {
	if deltaY == 0 || !model.IsFinite(deltaY) {
		return
	}
	step := math.Min(math.Abs(deltaY)*wheelFactor, wheelMaxStep)
	if deltaY < 0 {
		step = -step
	}
	s.scaleAroundCenter(1 + step)
}

// ApplyManualDrag scales the range by a vertical axis drag. Positive
// deltaPx zooms out. Like ApplyManualZoom it locks to the viewport center;
// the zoom speed is per pixel, so the axis height (second argument) is
// ignored.
func (s *State) ApplyManualDrag(deltaPx, _ float64) {
	if deltaPx == 0 || !model.IsFinite(deltaPx) {
		return
	}
	s.scaleAroundCenter(1 + deltaPx*dragFactor)
}

func (s *State) scaleAroundCenter(factor float64) {
	s.autoRange = false

	center, rng := s.center(), s.priceMax-s.priceMin
	if !s.HasValidRange() {
		center, rng = s.lastDataMid, s.lastDataRange
		if rng <= Epsilon {
			rng = maxRangeFloor / 10
		}
	}

	newRange := rng * factor
	upper := math.Max(s.lastDataRange*maxRangeMultiplier, maxRangeFloor)
	newRange = math.Min(math.Max(newRange, minManualRange), upper)

	half := newRange / 2
	s.priceMin = center - half
	s.priceMax = center + half

	if s.lastDataRange > Epsilon {
		s.zoomFactor = newRange / s.lastDataRange
	} else {
		s.zoomFactor = 1.0
	}
}

// ResetZoom returns to auto-range mode. The next SetAutoRange call refits
// the range.
func (s *State) ResetZoom() {
	s.autoRange = true
	s.zoomFactor = 1.0
	s.offScreenSince = time.Time{}
}

// Reset forgets all data, used on symbol or timeframe change.
func (s *State) Reset() {
	*s = State{autoRange: true, zoomFactor: 1.0}
}

// HasValidRange reports whether both bounds are finite and the span
// exceeds Epsilon.
func (s *State) HasValidRange() bool {
	return model.IsFinite(s.priceMin) && model.IsFinite(s.priceMax) && s.priceMax-s.priceMin > Epsilon
}

// PriceToY maps a price to a pixel row, 0 at the top. Invalid state or
// input yields the vertical midpoint.
func (s *State) PriceToY(price, heightPx float64) float64 {
	if !s.HasValidRange() || !model.IsFinite(price) {
		return heightPx / 2
	}
	return (s.priceMax - price) / (s.priceMax - s.priceMin) * heightPx
}

// YToPrice is the inverse of PriceToY. Invalid state yields the midpoint
// price.
func (s *State) YToPrice(y, heightPx float64) float64 {
	if !s.HasValidRange() || heightPx <= 0 || !model.IsFinite(y) {
		if model.IsFinite(s.priceMin) && model.IsFinite(s.priceMax) {
			return s.center()
		}
		return s.lastDataMid
	}
	return s.priceMax - y/heightPx*(s.priceMax-s.priceMin)
}

func (s *State) center() float64 { return (s.priceMin + s.priceMax) / 2 }

// Bounds returns the visible [min, max] interval.
func (s *State) Bounds() (min, max float64) { return s.priceMin, s.priceMax }

// AutoRange reports whether the range follows the data.
func (s *State) AutoRange() bool { return s.autoRange }

// ZoomFactor returns newRange/lastDataRange clamped to [0.3, 5].
func (s *State) ZoomFactor() float64 {
	return math.Min(math.Max(s.zoomFactor, MinZoomFactor), MaxZoomFactor)
}

// LastData returns the midpoint and span of the most recent data extrema.
func (s *State) LastData() (mid, rng float64) { return s.lastDataMid, s.lastDataRange }

// OffScreenSince returns when the visible data left the window, or the
// zero time if it has not.
func (s *State) OffScreenSince() time.Time { return s.offScreenSince }

// MarkOffScreen starts the off-screen timer if it is not already running.
func (s *State) MarkOffScreen(now time.Time) {
	if s.offScreenSince.IsZero() {
		s.offScreenSince = now
	}
}

// ClearOffScreen stops the off-screen timer.
func (s *State) ClearOffScreen() { s.offScreenSince = time.Time{} }

// Snapshot is a copy of the state for diagnostics.
type Snapshot struct {
	PriceMin      float64 `json:"price_min"`
	PriceMax      float64 `json:"price_max"`
	AutoRange     bool    `json:"auto_range"`
	ZoomFactor    float64 `json:"zoom_factor"`
	LastDataMid   float64 `json:"last_data_mid"`
	LastDataRange float64 `json:"last_data_range"`
}

// Snapshot returns a read-only copy of the state.
func (s *State) Snapshot() Snapshot {
	return Snapshot{
		PriceMin:      s.priceMin,
		PriceMax:      s.priceMax,
		AutoRange:     s.autoRange,
		ZoomFactor:    s.ZoomFactor(),
		LastDataMid:   s.lastDataMid,
		LastDataRange: s.lastDataRange,
	}
}
