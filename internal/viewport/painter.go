package viewport

import (
	"math"

	"github.com/Rick-more-Rick/donTrading-sub000/internal/model"
	"github.com/Rick-more-Rick/donTrading-sub000/internal/render"
)

const bodyRatio = 0.7

// Render paints the visible candles onto canvas. One extra candle is drawn
// beyond each edge of the window so a fractional pan never pops a candle in
// or out. It returns the number of candles drawn.
func (v *Viewport) Render(canvas render.Canvas, palette render.Palette, width, height float64, all []model.Candle) int {
	canvas.Clear(width, height, palette.Background)
	total := len(all)
	if total == 0 || width <= 0 || height <= 0 {
		return 0
	}
	v.lastTotal = total
	v.clampOffset(total)

	candleWidth := width / float64(v.candlesVisible)
	bodyWidth := math.Max(candleWidth*bodyRatio, 1)
	shift := v.fractional * candleWidth

	end := total - v.backOffset // exclusive index of the rightmost ideal candle
	first := end - v.candlesVisible - 1
	if first < 0 {
		first = 0
	}
	last := end + 1
	if last > total {
		last = total
	}

	drawn := 0
	for i := first; i < last; i++ {
		c := &all[i]
		// rightmost ideal candle (end-1) is centred half a candle from the edge
		cx := width - (float64(end-i)-0.5)*candleWidth + shift
		if cx+candleWidth < 0 || cx-candleWidth > width {
			continue
		}
		drawCandle(canvas, palette, v, c, cx, bodyWidth, height)
		drawn++
	}
	return drawn
}

func drawCandle(canvas render.Canvas, palette render.Palette, v *Viewport, c *model.Candle, cx, bodyWidth, height float64) {
	col := palette.Down
	if c.Bullish() {
		col = palette.Up
	}
	// a deep manual zoom maps prices millions of pixels off screen
	clampY := func(price float64) float64 {
		return math.Max(-1, math.Min(height+1, v.prices.PriceToY(price, height)))
	}
	yHigh := clampY(c.High)
	yLow := clampY(c.Low)
	canvas.Line(cx, yHigh, cx, yLow, 1, col)

	yOpen := clampY(c.Open)
	yClose := clampY(c.Close)
	top := math.Min(yOpen, yClose)
	h := math.Max(math.Abs(yClose-yOpen), 1)
	canvas.FillRect(cx-bodyWidth/2, top, bodyWidth, h, col)
}
