package main

import (
	"math/rand"

	"github.com/shopspring/decimal"

	"github.com/Rick-more-Rick/donTrading-sub000/internal/model"
)

// instrument holds per-symbol simulation state. The price is kept in whole
// tick units so the walk never drifts off the price grid.
type instrument struct {
	Symbol string
	Ticks  int64
}

// simulator produces random-walk ticks and synthetic books on a fixed
// price grid. Not safe for concurrent use.
type simulator struct {
	step        decimal.Decimal
	rng         *rand.Rand
	instruments []instrument
	depth       int
}

func newSimulator(symbols []string, startPrice, tickSize float64, depth int, seed int64) *simulator {
	step := decimal.NewFromFloat(tickSize)
	start := decimal.NewFromFloat(startPrice).Div(step).Round(0).IntPart()
	if start < 1 {
		start = 1
	}
	s := &simulator{step: step, rng: rand.New(rand.NewSource(seed)), depth: depth}
	for _, sym := range symbols {
		s.instruments = append(s.instruments, instrument{Symbol: sym, Ticks: start})
	}
	return s
}

func (s *simulator) price(ticks int64) float64 {
	return decimal.NewFromInt(ticks).Mul(s.step).InexactFloat64()
}

// walk moves the price by up to ±0.1%, at least one tick when it moves,
// and never below one tick.
func (s *simulator) walk(ticks int64) int64 {
	pct := (s.rng.Float64()*0.2 - 0.1) / 100.0
	delta := int64(float64(ticks) * pct)
	if delta == 0 {
		delta = int64(s.rng.Intn(3) - 1)
	}
	next := ticks + delta
	if next < 1 {
		next = 1
	}
	return next
}

// nextTicks advances every instrument and returns one tick each.
func (s *simulator) nextTicks(now int64) []model.Tick {
	out := make([]model.Tick, len(s.instruments))
	for i := range s.instruments {
		in := &s.instruments[i]
		in.Ticks = s.walk(in.Ticks)
		out[i] = model.Tick{Symbol: in.Symbol, Time: now, Value: s.price(in.Ticks)}
	}
	return out
}

// book builds a snapshot around the instrument's current price. The best
// levels are always present; deeper levels are sparse.
func (s *simulator) book(in instrument) *model.BookSnapshot {
	b := &model.BookSnapshot{
		Symbol: in.Symbol,
		Bids:   make([]model.BookEntry, 0, s.depth),
		Asks:   make([]model.BookEntry, 0, s.depth),
	}
	for k := int64(0); k < int64(s.depth); k++ {
		if k > 0 && s.rng.Float64() < 0.3 {
			continue
		}
		if bid := in.Ticks - 1 - k; bid >= 1 {
			b.Bids = append(b.Bids, model.BookEntry{Price: s.price(bid), Size: s.size()})
		}
		b.Asks = append(b.Asks, model.BookEntry{Price: s.price(in.Ticks + 1 + k), Size: s.size()})
	}
	if len(b.Bids) > 0 {
		b.BestBid = b.Bids[0].Price
	}
	if len(b.Asks) > 0 {
		b.BestAsk = b.Asks[0].Price
	}
	if b.BestBid > 0 && b.BestAsk > 0 {
		b.Spread = decimal.NewFromFloat(b.BestAsk).Sub(decimal.NewFromFloat(b.BestBid)).InexactFloat64()
		b.MidPrice = (b.BestAsk + b.BestBid) / 2
	}
	return b
}

func (s *simulator) size() float64 {
	return float64(1 + s.rng.Intn(50))
}

// books returns a snapshot for every instrument.
func (s *simulator) books() []*model.BookSnapshot {
	out := make([]*model.BookSnapshot, len(s.instruments))
	for i, in := range s.instruments {
		out[i] = s.book(in)
	}
	return out
}
