package render

import (
	"bytes"
	"image/color"
	"image/png"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rick-more-Rick/donTrading-sub000/internal/model"
)

func TestRecorder_ClearResetsOps(t *testing.T) {
	var r Recorder
	r.FillRect(0, 0, 1, 1, color.NRGBA{})
	r.Clear(10, 10, DefaultPalette.Background)
	r.Line(1, 2, 4, 8, 1, DefaultPalette.Up)
	r.FillGradientRect(0, 0, 5, 5, DefaultPalette.BidDepth, DefaultPalette.Transparent)

	require.Len(t, r.Ops, 3)
	assert.Equal(t, OpClear, r.Ops[0].Kind)
	assert.Equal(t, 1, r.Count(OpLine))
	line := r.Filter(OpLine)[0]
	assert.Equal(t, 3.0, line.W)
	assert.Equal(t, 6.0, line.H)
}

func TestRaster_DrawsAndEncodes(t *testing.T) {
	r := NewRaster(20, 10)
	r.Clear(20, 10, DefaultPalette.Background)
	r.FillRect(2, 2, 4, 4, DefaultPalette.Up)
	r.Line(10, 0, 10, 9, 1, DefaultPalette.Down)
	r.FillGradientRect(0, 8, 20, 2, DefaultPalette.BidDepth, DefaultPalette.AskDepth)
	// out of bounds must not panic
	r.FillRect(-50, -50, 10, 10, DefaultPalette.Up)
	r.FillRect(100, 100, 10, 10, DefaultPalette.Up)

	got := color.NRGBAModel.Convert(r.Image().At(3, 3))
	assert.Equal(t, DefaultPalette.Up, got)

	var buf bytes.Buffer
	require.NoError(t, r.WritePNG(&buf))
	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 20, img.Bounds().Dx())
}

func TestRaster_CloneIsIndependent(t *testing.T) {
	r := NewRaster(4, 4)
	r.Clear(4, 4, DefaultPalette.Background)
	c := r.Clone()
	r.FillRect(0, 0, 4, 4, DefaultPalette.Up)

	assert.Equal(t, DefaultPalette.Background, color.NRGBAModel.Convert(c.Image().At(1, 1)))
	assert.Equal(t, DefaultPalette.Up, color.NRGBAModel.Convert(r.Image().At(1, 1)))
}

func TestRaster_LineClippedToImage(t *testing.T) {
	r := NewRaster(40, 30)
	r.Clear(40, 30, DefaultPalette.Background)

	start := time.Now()
	// vertical and diagonal segments far past the edges, one entirely
	// outside, one with a NaN end
	r.Line(10, -1e9, 10, 1e9, 1, DefaultPalette.Up)
	r.Line(-1e9, -1e9, 1e9, 1e9, 1, DefaultPalette.Down)
	r.Line(-1e9, 5, -1e8, 5, 1, DefaultPalette.Up)
	r.Line(math.NaN(), 0, 5, 5, 1, DefaultPalette.Up)
	assert.Less(t, time.Since(start), 100*time.Millisecond)

	for _, y := range []int{0, 15, 29} {
		assert.Equal(t, DefaultPalette.Up, color.NRGBAModel.Convert(r.Image().At(10, y)), "y=%d", y)
	}
	assert.Equal(t, DefaultPalette.Down, color.NRGBAModel.Convert(r.Image().At(20, 20)))
	assert.Equal(t, DefaultPalette.Background, color.NRGBAModel.Convert(r.Image().At(30, 5)))
}

func TestClipSegment(t *testing.T) {
	x1, y1, x2, y2, ok := clipSegment(-10, 5, 30, 5, 0, 0, 20, 10)
	require.True(t, ok)
	assert.Equal(t, [4]float64{0, 5, 20, 5}, [4]float64{x1, y1, x2, y2})

	_, _, _, _, ok = clipSegment(-10, 20, 30, 20, 0, 0, 20, 10)
	assert.False(t, ok)

	x1, y1, x2, y2, ok = clipSegment(2, 3, 4, 6, 0, 0, 20, 10)
	require.True(t, ok)
	assert.Equal(t, [4]float64{2, 3, 4, 6}, [4]float64{x1, y1, x2, y2})
}

func TestMemPool_GrowOnly(t *testing.T) {
	var p MemPool
	p.Grow(5)
	p.Grow(3)
	assert.Equal(t, 5, p.Len())
	assert.Equal(t, int64(5), p.Allocated())

	p.Row(1).Bind(model.OrderBookLevel{Price: 10}, true)
	p.Row(1).SetVisible(true)
	vis := p.VisibleRows()
	require.Len(t, vis, 1)
	assert.True(t, vis[0].Best)
	assert.Equal(t, 10.0, vis[0].Level.Price)
}
