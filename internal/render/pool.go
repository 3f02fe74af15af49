package render

import (
	"sync/atomic"

	"github.com/Rick-more-Rick/donTrading-sub000/internal/model"
)

// MemRow is an in-memory Row. It keeps whatever was last bound to it.
type MemRow struct {
	Level   model.OrderBookLevel
	Best    bool
	Visible bool
}

func (r *MemRow) Bind(level model.OrderBookLevel, best bool) {
	r.Level = level
	r.Best = best
}

func (r *MemRow) SetVisible(visible bool) { r.Visible = visible }

// MemPool is a grow-only RowPool of MemRows.
type MemPool struct {
	rows []*MemRow

	allocated atomic.Int64
}

func (p *MemPool) Len() int { return len(p.rows) }

func (p *MemPool) Grow(n int) {
	for len(p.rows) < n {
		p.rows = append(p.rows, &MemRow{})
		p.allocated.Add(1)
	}
}

func (p *MemPool) Row(i int) Row { return p.rows[i] }

// MemRow returns the concrete row at i.
func (p *MemPool) MemRow(i int) *MemRow { return p.rows[i] }

// Allocated returns how many rows were ever created.
func (p *MemPool) Allocated() int64 { return p.allocated.Load() }

// VisibleRows returns the rows currently shown, in pool order.
func (p *MemPool) VisibleRows() []MemRow {
	var out []MemRow
	for _, r := range p.rows {
		if r.Visible {
			out = append(out, *r)
		}
	}
	return out
}

// MemSpacer records spacer heights.
type MemSpacer struct {
	Height  float64
	Updates int
}

func (s *MemSpacer) SetHeight(px float64) {
	s.Height = px
	s.Updates++
}
