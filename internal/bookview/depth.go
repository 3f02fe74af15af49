package bookview

import (
	"github.com/Rick-more-Rick/donTrading-sub000/internal/model"
	"github.com/Rick-more-Rick/donTrading-sub000/internal/orderbook"
	"github.com/Rick-more-Rick/donTrading-sub000/internal/render"
)

// volumeBarFrac is the share of the row height taken by the volume bar.
const volumeBarFrac = 0.4

// Depth paints depth bars for one side of the book behind its rows.
type Depth struct {
	store   *orderbook.Store
	palette render.Palette
}

// NewDepth creates a depth renderer reading from store.
func NewDepth(store *orderbook.Store, palette render.Palette) *Depth {
	return &Depth{store: store, palette: palette}
}

// Render draws the window described by g onto c and returns the number of
// rows painted. Bars are anchored to the right edge and normalised to the
// window's own maxima.
func (d *Depth) Render(c render.Canvas, g Geometry, width float64) int {
	c.Clear(width, g.ViewportH, d.palette.Background)
	if g.Count == 0 || g.RowH <= 0 || width <= 0 {
		return 0
	}

	levels := d.store.Levels(g.Side, g.StartIdx, g.Count)
	maxQty, maxCum := d.store.GetMaxes(g.Side, g.StartIdx, g.Count)

	depthColor, volColor := d.palette.BidDepth, d.palette.BidVolume
	if g.Side == model.Ask {
		depthColor, volColor = d.palette.AskDepth, d.palette.AskVolume
	}

	drawn := 0
	for i, l := range levels {
		y := g.RowY(i)
		if y+g.RowH <= 0 || y >= g.ViewportH {
			continue
		}
		drawn++

		if g.StartIdx+i == 0 {
			c.FillRect(0, y, width, g.RowH, d.palette.BestRow)
		}
		if maxCum > 0 && l.CumQty > 0 {
			w := width * l.CumQty / maxCum
			c.FillGradientRect(width-w, y, w, g.RowH, d.palette.Transparent, depthColor)
		}
		if maxQty > 0 && l.Qty > 0 {
			w := width * l.Qty / maxQty
			h := g.RowH * volumeBarFrac
			c.FillRect(width-w, y+(g.RowH-h)/2, w, h, volColor)
		}
	}
	return drawn
}
