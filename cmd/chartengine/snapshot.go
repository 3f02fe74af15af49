package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/Rick-more-Rick/donTrading-sub000/internal/chart"
	"github.com/Rick-more-Rick/donTrading-sub000/internal/render"
)

// frameSet is a copy of every panel taken between two frames.
type frameSet struct {
	chart, bids, asks *render.Raster
}

// snapshotter periodically copies the rasters on the frame goroutine and
// writes them as PNG files from its own goroutine.
type snapshotter struct {
	dir string
	log *slog.Logger
	out chan frameSet
}

func newSnapshotter(dir string, log *slog.Logger) *snapshotter {
	return &snapshotter{dir: dir, log: log, out: make(chan frameSet, 1)}
}

func (s *snapshotter) run(ctx context.Context, ctrl *chart.Controller, every time.Duration, chartR, bidR, askR *render.Raster) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("snapshot dir: %w", err)
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			ctrl.Post(func(*chart.Controller) {
				set := frameSet{chart: chartR.Clone(), bids: bidR.Clone(), asks: askR.Clone()}
				select {
				case s.out <- set:
				default: // previous set still being written
				}
			})
		case set := <-s.out:
			for name, r := range map[string]*render.Raster{"chart.png": set.chart, "bids.png": set.bids, "asks.png": set.asks} {
				if err := s.write(name, r); err != nil {
					s.log.Warn("snapshot write failed", "file", name, "error", err)
				}
			}
		}
	}
}

// write encodes r into dir/name via a temp file so readers never see a
// partial PNG.
func (s *snapshotter) write(name string, r *render.Raster) error {
	tmp, err := os.CreateTemp(s.dir, name+".*.tmp")
	if err != nil {
		return err
	}
	if err := r.WritePNG(tmp); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), filepath.Join(s.dir, name))
}
