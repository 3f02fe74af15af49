// Package bookview virtualizes the depth table: Rows decides which levels
// are on screen and binds them to a recycled row pool, Depth paints the
// cumulative and volume bars under exactly those rows.
package bookview

import (
	"math"

	"github.com/Rick-more-Rick/donTrading-sub000/internal/model"
	"github.com/Rick-more-Rick/donTrading-sub000/internal/orderbook"
	"github.com/Rick-more-Rick/donTrading-sub000/internal/render"
)

const (
	// EdgeBuffer is how close (in rows) the visible window may get to the
	// end of the ladder before more levels are generated.
	EdgeBuffer = 50
	// DefaultRowHeight is the unzoomed row height in pixels.
	DefaultRowHeight = 18.0

	lookbackRows  = 2
	lookaheadRows = 5
	spacerSlack   = 100

	minRowScale = 0.3
	maxRowScale = 5.0
)

// Geometry is the layout of one side of the book for one frame. Depth
// consumes it as-is so bars and rows line up.
type Geometry struct {
	Side      model.Side
	StartIdx  int
	Count     int
	RowH      float64
	PoolTopPx float64
	ScrollTop float64
	ViewportH float64
	Total     int
}

// RowY returns the on-screen y of the i-th row of the window.
func (g Geometry) RowY(i int) float64 {
	return g.PoolTopPx - g.ScrollTop + float64(i)*g.RowH
}

// Rows renders one side of the book into a pool of reusable rows.
type Rows struct {
	side   model.Side
	store  *orderbook.Store
	pool   render.RowPool
	spacer render.Spacer

	baseRowH float64
	rowH     float64

	spacerH   float64
	spacerSet bool
}

// NewRows creates a renderer for one side. baseRowH <= 0 uses
// DefaultRowHeight.
func NewRows(side model.Side, store *orderbook.Store, pool render.RowPool, spacer render.Spacer, baseRowH float64) *Rows {
	if !(baseRowH > 0) || math.IsInf(baseRowH, 0) {
		baseRowH = DefaultRowHeight
	}
	return &Rows{
		side:     side,
		store:    store,
		pool:     pool,
		spacer:   spacer,
		baseRowH: baseRowH,
		rowH:     baseRowH,
	}
}

// Side returns the book side this renderer shows.
func (r *Rows) Side() model.Side { return r.side }

// RowHeight returns the current row height in pixels.
func (r *Rows) RowHeight() float64 { return r.rowH }

// SetRowHeight sets the row height. Non-positive or non-finite values are
// ignored.
func (r *Rows) SetRowHeight(h float64) {
	if !(h > 0) || math.IsInf(h, 0) {
		return
	}
	r.rowH = h
}

// SetZoomFactor derives the row height from the chart's vertical zoom so
// both panels show a similar price density.
func (r *Rows) SetZoomFactor(z float64) {
	if !(z > 0) || math.IsInf(z, 0) {
		z = 1
	}
	scale := 1 / z
	if scale < minRowScale {
		scale = minRowScale
	} else if scale > maxRowScale {
		scale = maxRowScale
	}
	r.SetRowHeight(r.baseRowH * scale)
}

// Render lays out the rows visible at scrollTop within a viewport of
// viewportH pixels. It grows the ladder when the window nears its end,
// binds levels to pooled rows and hides the surplus.
func (r *Rows) Render(scrollTop, viewportH float64) Geometry {
	if !(scrollTop > 0) || math.IsInf(scrollTop, 0) {
		scrollTop = 0
	}
	if !(viewportH > 0) || math.IsInf(viewportH, 0) {
		viewportH = 0
	}

	startIdx := int(math.Floor(scrollTop/r.rowH)) - lookbackRows
	if startIdx < 0 {
		startIdx = 0
	}
	visibleCount := int(math.Ceil(viewportH/r.rowH)) + lookaheadRows

	total := r.store.Len(r.side)
	if total > 0 && startIdx+visibleCount >= total-EdgeBuffer {
		r.store.EnsureLevels(startIdx + visibleCount + 2*EdgeBuffer)
		total = r.store.Len(r.side)
	}

	levels := r.store.Levels(r.side, startIdx, visibleCount)
	r.pool.Grow(len(levels))
	for i, l := range levels {
		row := r.pool.Row(i)
		row.Bind(l, startIdx+i == 0)
		row.SetVisible(true)
	}
	for i := len(levels); i < r.pool.Len(); i++ {
		r.pool.Row(i).SetVisible(false)
	}

	r.syncSpacer(total)

	return Geometry{
		Side:      r.side,
		StartIdx:  startIdx,
		Count:     len(levels),
		RowH:      r.rowH,
		PoolTopPx: float64(startIdx) * r.rowH,
		ScrollTop: scrollTop,
		ViewportH: viewportH,
		Total:     total,
	}
}

func (r *Rows) syncSpacer(total int) {
	h := float64(total+spacerSlack) * r.rowH
	if r.spacerSet && math.Abs(h-r.spacerH) <= r.rowH {
		return
	}
	r.spacer.SetHeight(h)
	r.spacerH = h
	r.spacerSet = true
}

// Reset hides every pooled row and forgets the spacer height. The pool
// keeps its rows.
func (r *Rows) Reset() {
	for i := 0; i < r.pool.Len(); i++ {
		r.pool.Row(i).SetVisible(false)
	}
	r.spacerSet = false
	r.spacerH = 0
}
