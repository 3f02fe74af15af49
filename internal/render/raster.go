package render

import (
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"
)

// Raster is a Canvas backed by an in-memory RGBA image. The engine binary
// uses it to write periodic PNG frames.
type Raster struct {
	img *image.RGBA
}

// NewRaster allocates a raster of the given pixel size.
func NewRaster(width, height int) *Raster {
	return &Raster{img: image.NewRGBA(image.Rect(0, 0, width, height))}
}

// Image returns the backing image.
func (r *Raster) Image() *image.RGBA { return r.img }

func (r *Raster) Clear(width, height float64, bg color.NRGBA) {
	w, h := int(math.Ceil(width)), int(math.Ceil(height))
	if w != r.img.Bounds().Dx() || h != r.img.Bounds().Dy() {
		r.img = image.NewRGBA(image.Rect(0, 0, w, h))
	}
	draw.Draw(r.img, r.img.Bounds(), &image.Uniform{C: bg}, image.Point{}, draw.Src)
}

func (r *Raster) FillRect(x, y, w, h float64, c color.NRGBA) {
	rect := pixelRect(x, y, w, h).Intersect(r.img.Bounds())
	if rect.Empty() {
		return
	}
	draw.Draw(r.img, rect, &image.Uniform{C: c}, image.Point{}, draw.Over)
}

func (r *Raster) FillGradientRect(x, y, w, h float64, from, to color.NRGBA) {
	rect := pixelRect(x, y, w, h)
	width := rect.Dx()
	if width <= 0 {
		return
	}
	for i := 0; i < width; i++ {
		t := float64(i) / math.Max(float64(width-1), 1)
		col := image.Rect(rect.Min.X+i, rect.Min.Y, rect.Min.X+i+1, rect.Max.Y).Intersect(r.img.Bounds())
		if col.Empty() {
			continue
		}
		draw.Draw(r.img, col, &image.Uniform{C: lerp(from, to, t)}, image.Point{}, draw.Over)
	}
}

// Line clips the segment to the image (padded by half the stroke) before
// stepping, so the cost is bounded by the image size whatever the input
// coordinates. Axis-aligned segments are a single fill.
func (r *Raster) Line(x1, y1, x2, y2, width float64, c color.NRGBA) {
	half := math.Max(width, 1) / 2
	b := r.img.Bounds()
	x1, y1, x2, y2, ok := clipSegment(x1, y1, x2, y2,
		float64(b.Min.X)-half, float64(b.Min.Y)-half, float64(b.Max.X)+half, float64(b.Max.Y)+half)
	if !ok {
		return
	}
	dx, dy := x2-x1, y2-y1
	if dx == 0 || dy == 0 {
		r.FillRect(math.Min(x1, x2)-half, math.Min(y1, y2)-half, math.Abs(dx)+2*half, math.Abs(dy)+2*half, c)
		return
	}
	steps := int(math.Ceil(math.Max(math.Abs(dx), math.Abs(dy))))
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		r.FillRect(x1+dx*t-half, y1+dy*t-half, 2*half, 2*half, c)
	}
}

// clipSegment is Liang-Barsky clipping against [minX,maxX]x[minY,maxY].
// ok is false when the segment misses the box or has a non-finite end.
func clipSegment(x1, y1, x2, y2, minX, minY, maxX, maxY float64) (cx1, cy1, cx2, cy2 float64, ok bool) {
	for _, v := range [...]float64{x1, y1, x2, y2} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, 0, 0, 0, false
		}
	}
	dx, dy := x2-x1, y2-y1
	t0, t1 := 0.0, 1.0
	edges := [4][2]float64{
		{-dx, x1 - minX},
		{dx, maxX - x1},
		{-dy, y1 - minY},
		{dy, maxY - y1},
	}
	for _, e := range edges {
		p, q := e[0], e[1]
		if p == 0 {
			if q < 0 {
				return 0, 0, 0, 0, false
			}
			continue
		}
		t := q / p
		if p < 0 {
			if t > t1 {
				return 0, 0, 0, 0, false
			}
			t0 = math.Max(t0, t)
		} else {
			if t < t0 {
				return 0, 0, 0, 0, false
			}
			t1 = math.Min(t1, t)
		}
	}
	return x1 + t0*dx, y1 + t0*dy, x1 + t1*dx, y1 + t1*dy, true
}

// Clone copies the current frame so it can be encoded on another
// goroutine while the original keeps being painted.
func (r *Raster) Clone() *Raster {
	img := image.NewRGBA(r.img.Bounds())
	copy(img.Pix, r.img.Pix)
	return &Raster{img: img}
}

// WritePNG encodes the current frame.
func (r *Raster) WritePNG(w io.Writer) error {
	return png.Encode(w, r.img)
}

func pixelRect(x, y, w, h float64) image.Rectangle {
	if w < 0 {
		x, w = x+w, -w
	}
	if h < 0 {
		y, h = y+h, -h
	}
	return image.Rect(int(math.Floor(x)), int(math.Floor(y)), int(math.Ceil(x+w)), int(math.Ceil(y+h)))
}

func lerp(a, b color.NRGBA, t float64) color.NRGBA {
	mix := func(p, q uint8) uint8 { return uint8(math.Round(float64(p) + (float64(q)-float64(p))*t)) }
	return color.NRGBA{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: mix(a.A, b.A)}
}
