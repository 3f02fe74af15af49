package feed

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Rick-more-Rick/donTrading-sub000/internal/model"
)

var (
	// ErrUnknownMessage is returned for well-formed messages of a type the
	// engine does not consume. Callers skip them.
	ErrUnknownMessage = errors.New("feed: unknown message type")
	// ErrInvalidTick is returned for ticks without a finite positive price.
	ErrInvalidTick = errors.New("feed: invalid tick")
)

type wireMessage struct {
	Type   string  `json:"type,omitempty"`
	Symbol string  `json:"symbol,omitempty"`
	Time   int64   `json:"time,omitempty"`
	Value  float64 `json:"value,omitempty"`

	Bids     []model.BookEntry `json:"bids,omitempty"`
	Asks     []model.BookEntry `json:"asks,omitempty"`
	BestBid  float64           `json:"best_bid,omitempty"`
	BestAsk  float64           `json:"best_ask,omitempty"`
	Spread   float64           `json:"spread,omitempty"`
	MidPrice float64           `json:"mid_price,omitempty"`
}

func (m *wireMessage) kind() Kind {
	switch m.Type {
	case "tick":
		return KindTick
	case "book":
		return KindBook
	case "":
		if m.Bids != nil || m.Asks != nil || m.BestBid != 0 || m.BestAsk != 0 {
			return KindBook
		}
		if m.Time != 0 || m.Value != 0 {
			return KindTick
		}
	}
	return 0
}

// Decode parses one wire message. defaultSymbol fills in messages that do
// not name their instrument (single-instrument feeds).
func Decode(raw []byte, defaultSymbol string, received time.Time) (Event, error) {
	return decode(raw, defaultSymbol, "", received)
}

// decode is Decode with a type hint used when the message has no "type".
func decode(raw []byte, defaultSymbol, typeHint string, received time.Time) (Event, error) {
	var m wireMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return Event{}, fmt.Errorf("decode feed message: %w", err)
	}
	if m.Symbol == "" {
		m.Symbol = defaultSymbol
	}
	if m.Type == "" {
		m.Type = typeHint
	}

	switch m.kind() {
	case KindTick:
		t := model.Tick{Symbol: m.Symbol, Time: m.Time, Value: m.Value}
		if !t.Valid() {
			return Event{}, fmt.Errorf("%w: %v", ErrInvalidTick, m.Value)
		}
		return TickEvent(t, received), nil
	case KindBook:
		return BookEvent(&model.BookSnapshot{
			Symbol:   m.Symbol,
			Bids:     m.Bids,
			Asks:     m.Asks,
			BestBid:  m.BestBid,
			BestAsk:  m.BestAsk,
			Spread:   m.Spread,
			MidPrice: m.MidPrice,
		}, received), nil
	}
	return Event{}, fmt.Errorf("%w: %q", ErrUnknownMessage, m.Type)
}

// EncodeTick renders t in the wire format.
func EncodeTick(t model.Tick) ([]byte, error) {
	return json.Marshal(wireMessage{Type: "tick", Symbol: t.Symbol, Time: t.Time, Value: t.Value})
}

// EncodeBook renders b in the wire format.
func EncodeBook(b *model.BookSnapshot) ([]byte, error) {
	return json.Marshal(wireMessage{
		Type:     "book",
		Symbol:   b.Symbol,
		Bids:     b.Bids,
		Asks:     b.Asks,
		BestBid:  b.BestBid,
		BestAsk:  b.BestAsk,
		Spread:   b.Spread,
		MidPrice: b.MidPrice,
	})
}
