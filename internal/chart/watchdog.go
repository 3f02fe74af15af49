package chart

import (
	"log/slog"
	"time"

	"github.com/Rick-more-Rick/donTrading-sub000/internal/pricerange"
)

// DefaultGrace is how long the visible candles may stay entirely outside a
// manual price window before the chart snaps back to auto-range.
const DefaultGrace = 1500 * time.Millisecond

// Reset reasons reported by the watchdog.
const (
	ReasonInvalidRange = "invalid_range"
	ReasonOffScreen    = "off_screen"
)

// Watchdog returns a manually zoomed chart to auto-range when the price
// window is degenerate, or when every visible candle has been outside it
// for Grace. It only ever acts in manual mode and never while dragging.
type Watchdog struct {
	prices *pricerange.State
	log    *slog.Logger

	// Grace is the off-screen tolerance. Default: 1.5 seconds.
	Grace time.Duration

	// OnReset is called after every reset with its reason (optional).
	OnReset func(reason string)
}

// NewWatchdog creates a watchdog over prices.
func NewWatchdog(prices *pricerange.State, logger *slog.Logger) *Watchdog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watchdog{prices: prices, log: logger, Grace: DefaultGrace}
}

// Check runs the policy for one frame. lo/hi are the visible candles'
// extrema; haveData is false when nothing is visible. It returns the reset
// reason, or "" when nothing was done. After a reset the caller refits the
// auto range.
func (w *Watchdog) Check(now time.Time, dragging bool, lo, hi float64, haveData bool) string {
	if w.prices.AutoRange() || dragging {
		w.prices.ClearOffScreen()
		return ""
	}

	if !w.prices.HasValidRange() {
		return w.reset(ReasonInvalidRange, 0)
	}
	if !haveData {
		w.prices.ClearOffScreen()
		return ""
	}

	min, max := w.prices.Bounds()
	if hi >= min && lo <= max {
		// at least part of the data is on screen
		w.prices.ClearOffScreen()
		return ""
	}

	since := w.prices.OffScreenSince()
	if since.IsZero() {
		w.prices.MarkOffScreen(now)
		return ""
	}
	if away := now.Sub(since); away >= w.Grace {
		return w.reset(ReasonOffScreen, away)
	}
	return ""
}

func (w *Watchdog) reset(reason string, away time.Duration) string {
	w.prices.ResetZoom()
	w.log.Info("price range reset to auto", "reason", reason, "off_screen_for", away)
	if w.OnReset != nil {
		w.OnReset(reason)
	}
	return reason
}
