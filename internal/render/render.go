// Package render defines the drawing surface the chart and depth book paint
// onto. Components only see these interfaces, so layout math runs headless
// in tests and the binary can plug in any concrete target.
package render

import (
	"image/color"

	"github.com/Rick-more-Rick/donTrading-sub000/internal/model"
)

// Canvas is the minimal set of 2D primitives the renderers use.
// Coordinates are in pixels with the origin at the top-left corner.
type Canvas interface {
	Clear(width, height float64, bg color.NRGBA)
	FillRect(x, y, w, h float64, c color.NRGBA)
	// FillGradientRect fills a rectangle with a horizontal gradient from
	// `from` at x to `to` at x+w.
	FillGradientRect(x, y, w, h float64, from, to color.NRGBA)
	Line(x1, y1, x2, y2, width float64, c color.NRGBA)
}

// Row is one reusable depth-table row element.
type Row interface {
	Bind(level model.OrderBookLevel, best bool)
	SetVisible(visible bool)
}

// RowPool hands out reusable rows. Pools only grow.
type RowPool interface {
	Len() int
	// Grow makes sure at least n rows exist.
	Grow(n int)
	Row(i int) Row
}

// Spacer is the element whose height sizes the native scrollbar.
type Spacer interface {
	SetHeight(px float64)
}

// Palette groups the colors used by the chart and book renderers.
type Palette struct {
	Background  color.NRGBA
	Up          color.NRGBA
	Down        color.NRGBA
	BidDepth    color.NRGBA
	AskDepth    color.NRGBA
	BidVolume   color.NRGBA
	AskVolume   color.NRGBA
	BestRow     color.NRGBA
	Transparent color.NRGBA
}

// DefaultPalette is a dark theme.
var DefaultPalette = Palette{
	Background:  color.NRGBA{R: 0x10, G: 0x14, B: 0x1c, A: 0xff},
	Up:          color.NRGBA{R: 0x26, G: 0xa6, B: 0x9a, A: 0xff},
	Down:        color.NRGBA{R: 0xef, G: 0x53, B: 0x50, A: 0xff},
	BidDepth:    color.NRGBA{R: 0x26, G: 0xa6, B: 0x9a, A: 0x60},
	AskDepth:    color.NRGBA{R: 0xef, G: 0x53, B: 0x50, A: 0x60},
	BidVolume:   color.NRGBA{R: 0x26, G: 0xa6, B: 0x9a, A: 0xc0},
	AskVolume:   color.NRGBA{R: 0xef, G: 0x53, B: 0x50, A: 0xc0},
	BestRow:     color.NRGBA{R: 0xff, G: 0xd5, B: 0x4f, A: 0x30},
	Transparent: color.NRGBA{},
}
