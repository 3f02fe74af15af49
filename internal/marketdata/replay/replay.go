// Package replay streams stored ticks back into the feed pipeline at a
// configurable speed, for demos and offline debugging of the chart.
package replay

import (
	"context"
	"log/slog"
	"time"

	"github.com/Rick-more-Rick/donTrading-sub000/internal/marketdata/feed"
	"github.com/Rick-more-Rick/donTrading-sub000/internal/model"
)

// MaxGap caps a single scaled sleep between two ticks.
const MaxGap = 5 * time.Second

// TickSource loads stored ticks for a symbol, oldest first.
type TickSource interface {
	ReadTicks(ctx context.Context, symbol string, since int64) ([]model.Tick, error)
}

// Replayer reads historical ticks and replays them at a speed multiplier.
type Replayer struct {
	src    TickSource
	logger *slog.Logger
	sleep  func(ctx context.Context, d time.Duration) error
	now    func() time.Time
}

// New creates a Replayer backed by src.
func New(src TickSource, logger *slog.Logger) *Replayer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Replayer{src: src, logger: logger, sleep: sleepCtx, now: time.Now}
}

// Run replays every tick of symbol with ts >= fromTS into sink and returns
// how many were emitted. speed 1.0 is real time, 10.0 is 10x and 0 (or
// less) emits as fast as possible.
func (r *Replayer) Run(ctx context.Context, symbol string, fromTS int64, speed float64, sink feed.Sink) (int, error) {
	ticks, err := r.src.ReadTicks(ctx, symbol, fromTS)
	if err != nil {
		return 0, err
	}
	if len(ticks) == 0 {
		r.logger.Info("replay: no stored ticks", "symbol", symbol)
		return 0, nil
	}
	r.logger.Info("replay started", "symbol", symbol, "ticks", len(ticks), "speed", speed)

	emitted := 0
	var prev int64
	for i, t := range ticks {
		if err := ctx.Err(); err != nil {
			r.logger.Info("replay cancelled", "emitted", emitted)
			return emitted, err
		}
		if speed > 0 && i > 0 && t.Time > prev {
			gap := time.Duration(float64(time.Duration(t.Time-prev)*time.Second) / speed)
			if gap > MaxGap {
				gap = MaxGap
			}
			if err := r.sleep(ctx, gap); err != nil {
				return emitted, err
			}
		}
		prev = t.Time
		if t.Symbol == "" {
			t.Symbol = symbol
		}
		sink(feed.TickEvent(t, r.now()))
		emitted++
	}

	r.logger.Info("replay completed", "symbol", symbol, "emitted", emitted)
	return emitted, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
