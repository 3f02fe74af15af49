// Command tickserver is a simulated upstream for chartengine. It streams
// random-walk ticks and synthetic order-book snapshots for every configured
// symbol over WebSocket (ws://<addr>/ws), optionally publishes the same
// messages to Redis, and records ticks to SQLite so the engine has history
// to load on symbol switch.
//
// Config: the sim.* and store.* sections of config.Config.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/Rick-more-Rick/donTrading-sub000/config"
	"github.com/Rick-more-Rick/donTrading-sub000/internal/logger"
	"github.com/Rick-more-Rick/donTrading-sub000/internal/marketdata/bus"
	"github.com/Rick-more-Rick/donTrading-sub000/internal/marketdata/feed"
	"github.com/Rick-more-Rick/donTrading-sub000/internal/metrics"
	"github.com/Rick-more-Rick/donTrading-sub000/internal/model"
	sqlitestore "github.com/Rick-more-Rick/donTrading-sub000/internal/store/sqlite"
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
	log := logger.Init("tickserver", logger.ParseLevel(cfg.LogLevel))

	if err := run(cfg, log); err != nil {
		log.Error("tickserver stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	prom := metrics.NewSimMetrics(nil)
	sim := newSimulator(cfg.Sim.Symbols, cfg.Sim.StartPrice, cfg.Chart.TickSize, cfg.Sim.BookDepth, time.Now().UnixNano())
	h := newHub(log)
	h.onClients = func(n int) { prom.Clients.Set(float64(n)) }

	events := make(chan feed.Event, 1024)
	fan := bus.New[feed.Event](1024)
	fan.OnDrop = func(name string, _ feed.Event) {
		prom.FanoutDrops.WithLabelValues(name).Inc()
	}
	toClients := fan.Subscribe("clients")

	// ---- Recorder ----
	if cfg.Store.SQLitePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Store.SQLitePath), 0o755); err != nil {
			return err
		}
		w, err := sqlitestore.New(sqlitestore.WriterConfig{DBPath: cfg.Store.SQLitePath}, log)
		if err != nil {
			return err
		}
		defer w.Close()
		w.OnCommit = func(_ int, took time.Duration) { prom.SQLiteCommitDur.Observe(took.Seconds()) }

		toStore := fan.Subscribe("sqlite")
		tickCh := make(chan model.Tick, 1024)
		g.Go(func() error {
			defer close(tickCh)
			for ev := range toStore {
				if ev.Kind != feed.KindTick {
					continue
				}
				select {
				case tickCh <- ev.Tick:
				case <-ctx.Done():
					return nil
				}
			}
			return nil
		})
		g.Go(func() error {
			w.Run(ctx, tickCh)
			return nil
		})
		if cfg.Store.History > 0 {
			g.Go(func() error { return prune(ctx, w, cfg.Store.History, prom, log) })
		}
	}

	// ---- Redis publisher ----
	if cfg.Sim.Publish {
		rdb := goredis.NewClient(&goredis.Options{Addr: cfg.Feed.RedisAddr, Password: cfg.Feed.RedisPassword})
		defer rdb.Close()
		pub := feed.NewRedisPublisher(rdb)
		pub.Breaker().OnStateChange = func(from, to feed.BreakerState) {
			prom.BreakerState.Set(float64(to))
			log.Warn("redis publisher circuit", "from", from.String(), "to", to.String())
		}
		toRedis := fan.Subscribe("redis")
		g.Go(func() error {
			for ev := range toRedis {
				var err error
				switch ev.Kind {
				case feed.KindTick:
					err = pub.PublishTick(ctx, ev.Tick)
				case feed.KindBook:
					err = pub.PublishBook(ctx, ev.Book)
				}
				if err == nil || ctx.Err() != nil {
					continue
				}
				prom.RedisPublishErrors.Inc()
				if !errors.Is(err, feed.ErrBreakerOpen) {
					log.Warn("redis publish failed", "error", err)
				}
			}
			return nil
		})
	}

	g.Go(func() error {
		fan.Run(ctx, events)
		return nil
	})

	g.Go(func() error {
		for ev := range toClients {
			var (
				msg []byte
				err error
			)
			if ev.Kind == feed.KindBook {
				msg, err = feed.EncodeBook(ev.Book)
			} else {
				msg, err = feed.EncodeTick(ev.Tick)
			}
			if err != nil {
				log.Warn("encode failed", "error", err)
				continue
			}
			h.broadcast(msg)
		}
		return nil
	})

	g.Go(func() error {
		generate(ctx, sim, cfg.Sim.TickInterval, cfg.Sim.BookInterval, events, prom)
		return nil
	})

	// ---- HTTP ----
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.serveWS)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"tickserver"}`))
	})
	srv := &http.Server{Addr: cfg.Sim.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	g.Go(func() error {
		log.Info("tickserver listening", "addr", cfg.Sim.Addr, "symbols", cfg.Sim.Symbols,
			"tick_interval", cfg.Sim.TickInterval, "book_interval", cfg.Sim.BookInterval)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// generate emits ticks and book snapshots until ctx is done. The events
// channel is closed on return. m may be nil.
func generate(ctx context.Context, sim *simulator, tickEvery, bookEvery time.Duration, events chan<- feed.Event, m *metrics.SimMetrics) {
	defer close(events)
	ticks := time.NewTicker(tickEvery)
	defer ticks.Stop()
	books := time.NewTicker(bookEvery)
	defer books.Stop()

	emit := func(ev feed.Event) bool {
		select {
		case events <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticks.C:
			for _, t := range sim.nextTicks(now.Unix()) {
				if !emit(feed.TickEvent(t, now)) {
					return
				}
				if m != nil {
					m.TicksGenerated.Inc()
				}
			}
		case now := <-books.C:
			for _, b := range sim.books() {
				if !emit(feed.BookEvent(b, now)) {
					return
				}
				if m != nil {
					m.BooksGenerated.Inc()
				}
			}
		}
	}
}

// prune drops recorded ticks older than keep once a minute.
func prune(ctx context.Context, w *sqlitestore.Writer, keep time.Duration, m *metrics.SimMetrics, log *slog.Logger) error {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			n, err := w.Prune(ctx, now.Add(-keep).Unix())
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				log.Warn("prune failed", "error", err)
				continue
			}
			if n > 0 {
				m.SQLitePruned.Add(float64(n))
				log.Debug("pruned old ticks", "rows", n)
			}
		}
	}
}
