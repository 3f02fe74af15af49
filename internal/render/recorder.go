package render

import "image/color"

// OpKind identifies a recorded draw call.
type OpKind int

const (
	OpClear OpKind = iota
	OpFillRect
	OpGradient
	OpLine
)

// Op is one recorded draw call. For lines X,Y is the start and W,H the
// delta to the end point.
type Op struct {
	Kind  OpKind
	X, Y  float64
	W, H  float64
	Color color.NRGBA
	To    color.NRGBA
}

// Recorder is a Canvas that records every call. It backs headless tests
// and frame diagnostics.
type Recorder struct {
	Ops []Op
}

func (r *Recorder) Clear(width, height float64, bg color.NRGBA) {
	r.Ops = append(r.Ops[:0], Op{Kind: OpClear, W: width, H: height, Color: bg})
}

func (r *Recorder) FillRect(x, y, w, h float64, c color.NRGBA) {
	r.Ops = append(r.Ops, Op{Kind: OpFillRect, X: x, Y: y, W: w, H: h, Color: c})
}

func (r *Recorder) FillGradientRect(x, y, w, h float64, from, to color.NRGBA) {
	r.Ops = append(r.Ops, Op{Kind: OpGradient, X: x, Y: y, W: w, H: h, Color: from, To: to})
}

func (r *Recorder) Line(x1, y1, x2, y2, width float64, c color.NRGBA) {
	r.Ops = append(r.Ops, Op{Kind: OpLine, X: x1, Y: y1, W: x2 - x1, H: y2 - y1, Color: c})
}

// Count returns how many ops of the given kind were recorded.
func (r *Recorder) Count(kind OpKind) int {
	n := 0
	for _, op := range r.Ops {
		if op.Kind == kind {
			n++
		}
	}
	return n
}

// Filter returns the recorded ops of the given kind.
func (r *Recorder) Filter(kind OpKind) []Op {
	var out []Op
	for _, op := range r.Ops {
		if op.Kind == kind {
			out = append(out, op)
		}
	}
	return out
}
