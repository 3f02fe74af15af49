// Package orderbook turns periodic book snapshots into two fixed-step level
// ladders (bids descending, asks ascending) with cumulative size and
// notional, and grows them on demand for infinite scrolling.
//
// Ratchet: the store remembers the deepest level count ever requested via
// EnsureLevels and every later rebuild produces at least that many levels,
// so a new snapshot never shortens the table under a user scrolled deep
// into it. Only Reset (symbol switch) lowers the ratchet.
package orderbook

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/Rick-more-Rick/donTrading-sub000/internal/model"
)

const (
	// DefaultMinLevels is the depth of every rebuild before any scrolling.
	DefaultMinLevels = 100
	// DefaultTickSize is the price step used when none is configured.
	DefaultTickSize = 0.01
	// MaxTickIndex bounds price/step. Prices further out are rejected so
	// level prices stay exact in float64.
	MaxTickIndex = 1 << 53
)

var maxIndex = decimal.NewFromInt(MaxTickIndex)

// Store holds the latest snapshot and the derived level ladders.
// It is owned by the render goroutine.
type Store struct {
	step    decimal.Decimal
	stepF   float64
	scale   float64 // 10^decimal places of step, 0 for integral steps
	minLvls int

	bids map[int64]float64 // tick index → aggregated size
	asks map[int64]float64

	bestBidIdx int64 // 0 = side empty
	bestAskIdx int64
	spread     float64
	mid        float64

	bidLevels []model.OrderBookLevel
	askLevels []model.OrderBookLevel

	maxLevelsSeen int
	updates       uint64
	rejected      uint64

	// Metrics hooks (optional, set externally)
	OnExtend func(side model.Side, added int)
}

// New creates a store with the given price step and minimum rebuild depth.
func New(tickSize float64, minLevels int) *Store {
	if minLevels <= 0 {
		minLevels = DefaultMinLevels
	}
	s := &Store{
		minLvls: minLevels,
		bids:    make(map[int64]float64, 256),
		asks:    make(map[int64]float64, 256),
	}
	s.setStep(tickSize)
	return s
}

func (s *Store) setStep(tickSize float64) {
	if !model.IsFinite(tickSize) || tickSize <= 0 {
		tickSize = DefaultTickSize
	}
	s.step = decimal.NewFromFloat(tickSize)
	s.stepF = tickSize
	s.scale = 0
	if places := -s.step.Exponent(); places > 0 {
		s.scale = math.Pow10(int(places))
	}
}

// SetTickSize changes the price step. The ladders are rebuilt from scratch
// on the next snapshot, so the store is reset.
func (s *Store) SetTickSize(tickSize float64) {
	s.setStep(tickSize)
	s.Reset()
}

// TickSize returns the price step.
func (s *Store) TickSize() float64 { return s.stepF }

// tickIndex snaps price to the nearest step and returns it in step units,
// or 0 when the index would exceed MaxTickIndex.
func (s *Store) tickIndex(price float64) int64 {
	q := decimal.NewFromFloat(price).Div(s.step).Round(0)
	if q.GreaterThan(maxIndex) {
		s.rejected++
		return 0
	}
	return q.IntPart()
}

// priceAt is idx*step rounded to the step's decimal places.
func (s *Store) priceAt(idx int64) float64 {
	p := float64(idx) * s.stepF
	if s.scale == 0 {
		return p
	}
	return math.Round(p*s.scale) / s.scale
}

// Update replaces the book with snap and rebuilds both ladders to at least
// max(MinLevels, maxLevelsSeen) levels.
func (s *Store) Update(snap *model.BookSnapshot) {
	clear(s.bids)
	clear(s.asks)
	s.aggregate(s.bids, snap.Bids)
	s.aggregate(s.asks, snap.Asks)

	s.bestBidIdx = s.bestIndex(snap.BestBid)
	s.bestAskIdx = s.bestIndex(snap.BestAsk)

	bestBid, bestAsk := s.priceAt(s.bestBidIdx), s.priceAt(s.bestAskIdx)
	s.spread = snap.Spread
	if !model.IsFinite(s.spread) || s.spread < 0 {
		s.spread = 0
		if s.bestBidIdx > 0 && s.bestAskIdx > 0 {
			s.spread = bestAsk - bestBid
		}
	}
	s.mid = snap.MidPrice
	if !model.IsFinite(s.mid) || s.mid <= 0 {
		s.mid = 0
		if s.bestBidIdx > 0 && s.bestAskIdx > 0 {
			s.mid = (bestAsk + bestBid) / 2
		}
	}

	n := s.targetDepth()
	s.bidLevels = s.extend(s.bidLevels[:0], s.bids, s.bestBidIdx, -1, n)
	s.askLevels = s.extend(s.askLevels[:0], s.asks, s.bestAskIdx, 1, n)
	s.updates++
}

func (s *Store) aggregate(dst map[int64]float64, entries []model.BookEntry) {
	for _, e := range entries {
		if !model.IsFinite(e.Price) || !model.IsFinite(e.Size) || e.Price <= 0 || e.Size <= 0 {
			continue
		}
		idx := s.tickIndex(e.Price)
		if idx <= 0 {
			continue
		}
		dst[idx] += e.Size
	}
}

func (s *Store) bestIndex(best float64) int64 {
	if !model.IsFinite(best) || best <= 0 {
		return 0
	}
	idx := s.tickIndex(best)
	if idx <= 0 {
		return 0
	}
	return idx
}

func (s *Store) targetDepth() int {
	if s.maxLevelsSeen > s.minLvls {
		return s.maxLevelsSeen
	}
	return s.minLvls
}

// extend continues the walk from the last level in levels until target
// levels exist, one step per level in direction dir. Bids stop before
// reaching a non-positive price.
func (s *Store) extend(levels []model.OrderBookLevel, quotes map[int64]float64, bestIdx int64, dir int64, target int) []model.OrderBookLevel {
	if bestIdx <= 0 {
		return levels[:0]
	}
	var cum, notional float64
	if n := len(levels); n > 0 {
		cum, notional = levels[n-1].CumQty, levels[n-1].Notional
	}
	for k := len(levels); k < target; k++ {
		idx := bestIdx + dir*int64(k)
		if idx <= 0 {
			break
		}
		price := s.priceAt(idx)
		qty := quotes[idx]
		cum += qty
		notional += qty * price
		levels = append(levels, model.OrderBookLevel{
			Price:    price,
			Qty:      qty,
			CumQty:   cum,
			Notional: notional,
			Real:     qty > 0,
		})
	}
	return levels
}

// EnsureLevels grows both ladders to n levels without a rebuild and raises
// the ratchet. It returns how many levels were appended in total.
func (s *Store) EnsureLevels(n int) int {
	if n > s.maxLevelsSeen {
		s.maxLevelsSeen = n
	}
	added := 0
	if before := len(s.bidLevels); before < n {
		s.bidLevels = s.extend(s.bidLevels, s.bids, s.bestBidIdx, -1, n)
		if d := len(s.bidLevels) - before; d > 0 {
			added += d
			if s.OnExtend != nil {
				s.OnExtend(model.Bid, d)
			}
		}
	}
	if before := len(s.askLevels); before < n {
		s.askLevels = s.extend(s.askLevels, s.asks, s.bestAskIdx, 1, n)
		if d := len(s.askLevels) - before; d > 0 {
			added += d
			if s.OnExtend != nil {
				s.OnExtend(model.Ask, d)
			}
		}
	}
	return added
}

// GetMaxes returns the largest single-level qty and the largest cumulative
// qty among levels [startIdx, startIdx+count) of side. Bar widths are
// normalised to this window, not to the whole book.
func (s *Store) GetMaxes(side model.Side, startIdx, count int) (maxQty, maxCum float64) {
	for _, l := range s.Levels(side, startIdx, count) {
		if l.Qty > maxQty {
			maxQty = l.Qty
		}
		if l.CumQty > maxCum {
			maxCum = l.CumQty
		}
	}
	return maxQty, maxCum
}

// Levels returns levels [start, start+count) of side, clipped to what
// exists. The slice aliases the store and must not be modified or retained
// past the next Update.
func (s *Store) Levels(side model.Side, start, count int) []model.OrderBookLevel {
	levels := s.side(side)
	if start < 0 {
		start = 0
	}
	if start >= len(levels) || count <= 0 {
		return nil
	}
	end := start + count
	if end > len(levels) {
		end = len(levels)
	}
	return levels[start:end]
}

// Len returns the number of levels on side.
func (s *Store) Len(side model.Side) int { return len(s.side(side)) }

func (s *Store) side(side model.Side) []model.OrderBookLevel {
	if side == model.Ask {
		return s.askLevels
	}
	return s.bidLevels
}

// MaxLevelsSeen returns the ratchet value.
func (s *Store) MaxLevelsSeen() int { return s.maxLevelsSeen }

// Best returns the snapped best bid and ask; 0 means the side is empty.
func (s *Store) Best() (bid, ask float64) {
	if s.bestBidIdx > 0 {
		bid = s.priceAt(s.bestBidIdx)
	}
	if s.bestAskIdx > 0 {
		ask = s.priceAt(s.bestAskIdx)
	}
	return bid, ask
}

// Reset clears raw quotes, ladders and the ratchet. Called synchronously on
// symbol switch so no level of the old symbol survives into the next frame.
func (s *Store) Reset() {
	clear(s.bids)
	clear(s.asks)
	s.bestBidIdx, s.bestAskIdx = 0, 0
	s.spread, s.mid = 0, 0
	s.bidLevels = s.bidLevels[:0]
	s.askLevels = s.askLevels[:0]
	s.maxLevelsSeen = 0
	s.updates = 0
	s.rejected = 0
}

// View is a read-only copy of the book for diagnostics.
type View struct {
	BestBid       float64                `json:"best_bid"`
	BestAsk       float64                `json:"best_ask"`
	Spread        float64                `json:"spread"`
	MidPrice      float64                `json:"mid_price"`
	TickSize      float64                `json:"tick_size"`
	MaxLevelsSeen int                    `json:"max_levels_seen"`
	Updates       uint64                 `json:"updates"`
	Rejected      uint64                 `json:"rejected"`
	Bids          []model.OrderBookLevel `json:"bids"`
	Asks          []model.OrderBookLevel `json:"asks"`
}

// Snapshot copies the current book. depth limits how many levels per side
// are copied; depth <= 0 copies everything.
func (s *Store) Snapshot(depth int) View {
	bid, ask := s.Best()
	v := View{
		BestBid:       bid,
		BestAsk:       ask,
		Spread:        s.spread,
		MidPrice:      s.mid,
		TickSize:      s.stepF,
		MaxLevelsSeen: s.maxLevelsSeen,
		Updates:       s.updates,
		Rejected:      s.rejected,
	}
	v.Bids = copyLevels(s.bidLevels, depth)
	v.Asks = copyLevels(s.askLevels, depth)
	return v
}

func copyLevels(src []model.OrderBookLevel, depth int) []model.OrderBookLevel {
	if depth > 0 && depth < len(src) {
		src = src[:depth]
	}
	out := make([]model.OrderBookLevel, len(src))
	copy(out, src)
	return out
}
