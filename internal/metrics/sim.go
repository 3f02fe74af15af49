package metrics

import "github.com/prometheus/client_golang/prometheus"

// SimMetrics is the metric set of the tick simulator.
type SimMetrics struct {
	TicksGenerated prometheus.Counter
	BooksGenerated prometheus.Counter
	Clients        prometheus.Gauge

	FanoutDrops *prometheus.CounterVec // labels: subscriber

	SQLiteCommitDur prometheus.Histogram
	SQLitePruned    prometheus.Counter

	RedisPublishErrors prometheus.Counter
	BreakerState       prometheus.Gauge // 0 closed, 1 open, 2 half-open
}

// NewSimMetrics creates the simulator metrics and registers them with reg.
// A nil reg uses the default Prometheus registry.
func NewSimMetrics(reg prometheus.Registerer) *SimMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &SimMetrics{
		TicksGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tickserver_ticks_generated_total",
			Help: "Simulated ticks emitted",
		}),
		BooksGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tickserver_books_generated_total",
			Help: "Simulated order book snapshots emitted",
		}),
		Clients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tickserver_ws_clients",
			Help: "Connected WebSocket clients",
		}),
		FanoutDrops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tickserver_fanout_drops_total",
			Help: "Events dropped by the FanOut bus per subscriber",
		}, []string{"subscriber"}),
		SQLiteCommitDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tickserver_sqlite_commit_duration_seconds",
			Help:    "SQLite batch commit latency",
			Buckets: prometheus.DefBuckets,
		}),
		SQLitePruned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tickserver_sqlite_pruned_rows_total",
			Help: "Recorded ticks removed by the retention window",
		}),
		RedisPublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tickserver_redis_publish_errors_total",
			Help: "Failed Redis publishes, including calls rejected by the open circuit",
		}),
		BreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tickserver_redis_breaker_state",
			Help: "Redis publisher circuit state (0 closed, 1 open, 2 half-open)",
		}),
	}

	reg.MustRegister(
		m.TicksGenerated,
		m.BooksGenerated,
		m.Clients,
		m.FanoutDrops,
		m.SQLiteCommitDur,
		m.SQLitePruned,
		m.RedisPublishErrors,
		m.BreakerState,
	)
	return m
}
