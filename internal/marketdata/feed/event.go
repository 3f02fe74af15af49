// Package feed adapts external market-data transports (a WebSocket server
// or Redis Pub/Sub) into a single stream of decoded Events.
//
// Wire format, one JSON object per message:
//
//	{"type":"tick","symbol":"AAPL","time":1718000000,"value":191.25}
//	{"type":"book","symbol":"AAPL","bids":[{"price":191.2,"size":3}],"asks":[...],
//	 "best_bid":191.2,"best_ask":191.3,"spread":0.1,"mid_price":191.25}
//
// "type" may be omitted; the message kind is then inferred from its fields.
package feed

import (
	"context"
	"time"

	"github.com/Rick-more-Rick/donTrading-sub000/internal/model"
)

// Kind tells which payload an Event carries.
type Kind uint8

const (
	KindTick Kind = iota + 1
	KindBook
)

func (k Kind) String() string {
	switch k {
	case KindTick:
		return "tick"
	case KindBook:
		return "book"
	}
	return "unknown"
}

// Event is one complete, decoded feed message. Book snapshots are never
// mutated after decode, so an Event can cross goroutines by value.
type Event struct {
	Kind     Kind
	Symbol   string
	Tick     model.Tick
	Book     *model.BookSnapshot
	Received time.Time
}

// TickEvent wraps a tick.
func TickEvent(t model.Tick, received time.Time) Event {
	return Event{Kind: KindTick, Symbol: t.Symbol, Tick: t, Received: received}
}

// BookEvent wraps a snapshot.
func BookEvent(b *model.BookSnapshot, received time.Time) Event {
	return Event{Kind: KindBook, Symbol: b.Symbol, Book: b, Received: received}
}

// Sink receives decoded events. Live sources expect it not to block;
// replay accepts a BlockingSink.
type Sink func(Event)

// ChanSink returns a Sink that sends to ch and calls onDrop (if set) when
// ch is full.
func ChanSink(ch chan<- Event, onDrop func(Event)) Sink {
	return func(ev Event) {
		select {
		case ch <- ev:
		default:
			if onDrop != nil {
				onDrop(ev)
			}
		}
	}
}

// BlockingSink returns a Sink that waits for room in ch. Events offered
// after ctx is done are discarded.
func BlockingSink(ctx context.Context, ch chan<- Event) Sink {
	return func(ev Event) {
		select {
		case ch <- ev:
		case <-ctx.Done():
		}
	}
}
