package model

// Side selects one half of the order book.
type Side int

const (
	Bid Side = iota
	Ask
)

func (s Side) String() string {
	if s == Ask {
		return "ask"
	}
	return "bid"
}

// BookEntry is one quoted (price, size) pair as received from the feed.
type BookEntry struct {
	Price float64 `json:"price"`
	Size  float64 `json:"size"`
}

// BookSnapshot is a full order-book snapshot. It replaces, never patches,
// the previous one.
type BookSnapshot struct {
	Symbol   string      `json:"symbol,omitempty"`
	Bids     []BookEntry `json:"bids"`
	Asks     []BookEntry `json:"asks"`
	BestBid  float64     `json:"best_bid"`
	BestAsk  float64     `json:"best_ask"`
	Spread   float64     `json:"spread"`
	MidPrice float64     `json:"mid_price"`
}

// OrderBookLevel is one fixed-step row of the depth table.
// Filler rows (no quote at that price) have Real=false and Qty=0.
type OrderBookLevel struct {
	Price    float64 `json:"price"`
	Qty      float64 `json:"qty"`
	CumQty   float64 `json:"cum_qty"`
	Notional float64 `json:"notional"`
	Real     bool    `json:"real"`
}
