// Package bus fans feed events out to independent consumers.
package bus

import (
	"context"
	"log/slog"
	"sync"
)

// FanOut copies every value from one input channel to each named
// subscriber. By default a full subscriber loses the value; with Block set
// the fan-out waits for room instead, so one slow consumer throttles the
// whole stream (used for replay, where every tick must arrive).
type FanOut[T any] struct {
	mu      sync.RWMutex
	subs    []subscriber[T]
	bufSize int

	// Block makes Run wait on full subscribers instead of dropping.
	Block bool

	// OnDrop is called with the subscriber name and the lost value.
	// Without it drops are logged at warn level.
	OnDrop func(name string, v T)
}

type subscriber[T any] struct {
	name string
	ch   chan T
}

// New creates a FanOut whose subscriber channels hold bufSize values.
func New[T any](bufSize int) *FanOut[T] {
	return &FanOut[T]{bufSize: bufSize}
}

// Subscribe registers a consumer under name. Call it before Run.
func (f *FanOut[T]) Subscribe(name string) <-chan T {
	ch := make(chan T, f.bufSize)
	f.mu.Lock()
	f.subs = append(f.subs, subscriber[T]{name: name, ch: ch})
	f.mu.Unlock()
	return ch
}

// Run forwards input until ctx is cancelled or input is closed. Subscriber
// channels are closed on return.
func (f *FanOut[T]) Run(ctx context.Context, input <-chan T) {
	defer func() {
		f.mu.RLock()
		for _, s := range f.subs {
			close(s.ch)
		}
		f.mu.RUnlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case v, ok := <-input:
			if !ok {
				return
			}
			if !f.dispatch(ctx, v) {
				return
			}
		}
	}
}

// dispatch returns false when ctx ended while blocked on a subscriber.
func (f *FanOut[T]) dispatch(ctx context.Context, v T) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, s := range f.subs {
		if f.Block {
			select {
			case s.ch <- v:
			case <-ctx.Done():
				return false
			}
			continue
		}
		select {
		case s.ch <- v:
		default:
			if f.OnDrop != nil {
				f.OnDrop(s.name, v)
			} else {
				slog.Warn("bus subscriber full, dropping value", "subscriber", s.name)
			}
		}
	}
	return true
}

// ChannelStat is the fill level of one subscriber channel.
type ChannelStat struct {
	Name string
	Len  int
	Cap  int
}

// Pct returns the fill level in percent.
func (s ChannelStat) Pct() float64 {
	if s.Cap == 0 {
		return 0
	}
	return float64(s.Len) / float64(s.Cap) * 100
}

// ChannelStats reports every subscriber in subscription order.
func (f *FanOut[T]) ChannelStats() []ChannelStat {
	f.mu.RLock()
	defer f.mu.RUnlock()
	stats := make([]ChannelStat, len(f.subs))
	for i, s := range f.subs {
		stats[i] = ChannelStat{Name: s.name, Len: len(s.ch), Cap: cap(s.ch)}
	}
	return stats
}
