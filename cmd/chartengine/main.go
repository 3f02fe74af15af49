// Command chartengine runs the headless chart and depth-book engine: it
// reads a live feed, renders every frame to in-memory rasters, optionally
// dumps them as PNG files and serves diagnostics over HTTP.
//
// Config: see config.Config. A .env file in the working directory is
// loaded first; -config points at an optional YAML file.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/Rick-more-Rick/donTrading-sub000/config"
	"github.com/Rick-more-Rick/donTrading-sub000/internal/api"
	"github.com/Rick-more-Rick/donTrading-sub000/internal/chart"
	"github.com/Rick-more-Rick/donTrading-sub000/internal/logger"
	"github.com/Rick-more-Rick/donTrading-sub000/internal/marketdata/bus"
	"github.com/Rick-more-Rick/donTrading-sub000/internal/marketdata/feed"
	"github.com/Rick-more-Rick/donTrading-sub000/internal/marketdata/replay"
	"github.com/Rick-more-Rick/donTrading-sub000/internal/metrics"
	"github.com/Rick-more-Rick/donTrading-sub000/internal/model"
	"github.com/Rick-more-Rick/donTrading-sub000/internal/render"
	sqlitestore "github.com/Rick-more-Rick/donTrading-sub000/internal/store/sqlite"
)

const (
	ingestBufSize   = 8192
	fanoutBufSize   = 4096
	livenessEvery   = 10 * time.Second
	saturationEvery = 5 * time.Second
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("could not load .env", "error", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}
	log := logger.Init("chartengine", logger.ParseLevel(cfg.LogLevel))

	if err := run(cfg, log); err != nil {
		log.Error("chartengine stopped with error", "error", err)
		os.Exit(1)
	}
	log.Info("chartengine stopped")
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	prom := metrics.NewMetrics(nil)
	health := metrics.NewHealthStatus()
	tf := cfg.TF()
	health.SetInstrument(cfg.Chart.Symbol, tf.String())
	frames := metrics.NewFrameTracker(1024, time.Second/time.Duration(cfg.Chart.FPS))

	// ---- History store ----
	var history *sqlitestore.Reader
	if cfg.Store.SQLitePath != "" {
		r, err := sqlitestore.NewReader(cfg.Store.SQLitePath)
		if err != nil {
			if cfg.Feed.Source == config.SourceReplay {
				return fmt.Errorf("open history: %w", err)
			}
			log.Warn("history store unavailable, starting without history", "error", err)
		} else {
			history = r
			defer history.Close()
			health.CheckSQLite(ctx, history.DB())
		}
	}

	// ---- Controller ----
	chartRaster := render.NewRaster(cfg.Chart.Width, cfg.Chart.Height)
	bidRaster := render.NewRaster(cfg.Chart.DepthWidth, cfg.Chart.BookHeight)
	askRaster := render.NewRaster(cfg.Chart.DepthWidth, cfg.Chart.BookHeight)
	ctrl := chart.NewController(chart.Options{
		Symbol:         cfg.Chart.Symbol,
		Timeframe:      tf,
		TickSize:       cfg.Chart.TickSize,
		MinLevels:      cfg.Chart.MinLevels,
		CandlesVisible: cfg.Chart.CandlesVisible,
		RowHeight:      cfg.Chart.RowHeight,
	}, chart.Surfaces{
		Chart:    chartRaster,
		BidDepth: bidRaster,
		AskDepth: askRaster,
	}, log, prom)
	ctrl.OnFrame = func(st chart.FrameStats) {
		frames.Record(st.Duration)
		if st.Reset != "" {
			log.Debug("price range reset", "reason", st.Reset)
		}
	}
	ctrl.ChangeSymbol(cfg.Chart.Symbol, loadHistory(ctx, log, history, cfg.Chart.Symbol, cfg.Store.History))

	layout := chart.Layout{
		ChartWidth:  float64(cfg.Chart.Width),
		ChartHeight: float64(cfg.Chart.Height),
		DepthWidth:  float64(cfg.Chart.DepthWidth),
		BookHeight:  float64(cfg.Chart.BookHeight),
	}

	// ---- Feed → fan-out → controller + health ----
	// Replay must deliver every stored tick, so the whole path applies
	// backpressure instead of dropping.
	lossless := cfg.Feed.Source == config.SourceReplay
	events := make(chan feed.Event, ingestBufSize)

	fan := bus.New[feed.Event](fanoutBufSize)
	fan.Block = lossless
	fan.OnDrop = func(name string, ev feed.Event) {
		prom.FanoutDropsTotal.WithLabelValues(name).Inc()
		log.Debug("fan-out drop", "subscriber", name, "kind", ev.Kind.String(), "symbol", ev.Symbol)
	}
	toChart := fan.Subscribe("chart")
	toHealth := fan.Subscribe("health")

	g, ctx := errgroup.WithContext(ctx)

	sink := feed.ChanSink(events, func(ev feed.Event) {
		prom.FanoutDropsTotal.WithLabelValues("ingest").Inc()
		log.Debug("ingest drop", "kind", ev.Kind.String(), "symbol", ev.Symbol)
	})
	if lossless {
		sink = feed.BlockingSink(ctx, events)
	}

	g.Go(func() error {
		fan.Run(ctx, events)
		return nil
	})

	// single producer of the controller inbox
	g.Go(func() error {
		for ev := range toChart {
			if !lossless {
				ctrl.Enqueue(ev)
				continue
			}
			if err := ctrl.EnqueueWait(ctx, ev); err != nil {
				return nil
			}
		}
		return nil
	})

	g.Go(func() error {
		for ev := range toHealth {
			switch ev.Kind {
			case feed.KindTick:
				health.SetLastTickTime(ev.Received)
			case feed.KindBook:
				health.SetLastBookTime(ev.Received)
			}
		}
		return nil
	})

	g.Go(func() error {
		return runFeed(ctx, cfg, log, prom, health, history, sink)
	})

	g.Go(func() error {
		reportSaturation(ctx, prom, events, fan)
		return nil
	})

	g.Go(func() error {
		return ctrl.Run(ctx, cfg.Chart.FPS, layout)
	})

	// ---- PNG snapshots ----
	if cfg.Snapshot.Dir != "" && cfg.Snapshot.Every > 0 {
		snaps := newSnapshotter(cfg.Snapshot.Dir, log)
		g.Go(func() error {
			return snaps.run(ctx, ctrl, cfg.Snapshot.Every, chartRaster, bidRaster, askRaster)
		})
	}

	// ---- HTTP ----
	srv := api.NewServer(cfg.HTTP.Addr, api.Deps{
		Controller:    ctrl,
		Health:        health,
		Frames:        frames,
		History:       historySource(history),
		HistoryWindow: cfg.Store.History,
		Logger:        log,
	})
	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Stop(shutdownCtx)
	})

	log.Info("chartengine started",
		"symbol", cfg.Chart.Symbol,
		"timeframe", tf.String(),
		"feed", cfg.Feed.Source,
		"http", cfg.HTTP.Addr,
	)
	return g.Wait()
}

// runFeed streams the configured source into sink until ctx is done.
func runFeed(ctx context.Context, cfg *config.Config, log *slog.Logger, prom *metrics.Metrics,
	health *metrics.HealthStatus, history *sqlitestore.Reader, sink feed.Sink) error {
	badFrame := func(err error) { log.Debug("bad feed frame", "error", err) }

	switch cfg.Feed.Source {
	case config.SourceRedis:
		rdb := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Feed.RedisAddr,
			Password: cfg.Feed.RedisPassword,
		})
		defer rdb.Close()
		health.CheckRedis(ctx, rdb)
		health.StartLivenessChecker(ctx, rdb, historyDB(history), livenessEvery)

		src := feed.NewRedisSource(rdb, log)
		src.OnBadFrame = badFrame
		health.SetFeedConnected(true)
		defer health.SetFeedConnected(false)
		return src.Run(ctx, sink)

	case config.SourceReplay:
		if history == nil {
			return errors.New("replay needs the history store")
		}
		health.SetFeedConnected(true)
		defer health.SetFeedConnected(false)
		since := int64(0)
		if cfg.Store.History > 0 {
			since = time.Now().Add(-cfg.Store.History).Unix()
		}
		_, err := replay.New(history, log).Run(ctx, cfg.Chart.Symbol, since, cfg.Feed.ReplaySpeed, sink)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err

	default:
		if history != nil {
			health.StartLivenessChecker(ctx, nil, history.DB(), livenessEvery)
		}
		ws, err := feed.NewWSClient(feed.WSConfig{URL: cfg.Feed.WSURL, Symbol: cfg.Chart.Symbol}, log)
		if err != nil {
			return fmt.Errorf("ws feed: %w", err)
		}
		ws.OnConnState = health.SetFeedConnected
		ws.OnReconnect = prom.WSReconnects.Inc
		ws.OnBadFrame = badFrame
		return ws.Start(ctx, sink)
	}
}

// reportSaturation publishes the fill level of the ingest channel and of
// every fan-out subscriber until ctx is done.
func reportSaturation(ctx context.Context, prom *metrics.Metrics, ingest chan feed.Event, fan *bus.FanOut[feed.Event]) {
	ticker := time.NewTicker(saturationEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ingestStat := bus.ChannelStat{Name: "ingest", Len: len(ingest), Cap: cap(ingest)}
			for _, st := range append(fan.ChannelStats(), ingestStat) {
				prom.ChannelSaturationPct.WithLabelValues(st.Name).Set(st.Pct())
			}
		}
	}
}

func loadHistory(ctx context.Context, log *slog.Logger, r *sqlitestore.Reader, symbol string, window time.Duration) []model.Tick {
	if r == nil {
		return nil
	}
	since := int64(0)
	if window > 0 {
		since = time.Now().Add(-window).Unix()
	}
	ticks, err := r.ReadTicks(ctx, symbol, since)
	if err != nil {
		log.Warn("history load failed", "symbol", symbol, "error", err)
		return nil
	}
	return ticks
}

func historyDB(r *sqlitestore.Reader) *sql.DB {
	if r == nil {
		return nil
	}
	return r.DB()
}

// historySource keeps a nil *Reader from becoming a non-nil interface.
func historySource(r *sqlitestore.Reader) api.HistorySource {
	if r == nil {
		return nil
	}
	return r
}
