package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics for the chart engine.
type Metrics struct {
	TicksTotal    prometheus.Counter
	BookUpdates   prometheus.Counter
	DroppedTicks  prometheus.Counter
	StaleEvents   prometheus.Counter
	CandlesClosed prometheus.Counter
	WSReconnects  prometheus.Counter

	// Frame loop
	FrameDur      prometheus.Histogram
	Candles       prometheus.Gauge
	VisibleRows   *prometheus.GaugeVec   // labels: side
	BookLevels    *prometheus.GaugeVec   // labels: side
	LevelsAdded   *prometheus.CounterVec // labels: side
	WatchdogReset *prometheus.CounterVec // labels: reason

	// Control inputs
	SymbolSwitches    prometheus.Counter
	TimeframeSwitches prometheus.Counter

	// Hand-off
	RingBufOverflow      prometheus.Counter
	FanoutDropsTotal     *prometheus.CounterVec // labels: subscriber
	ChannelSaturationPct *prometheus.GaugeVec   // labels: channel_name

	// Feed-to-screen latency: event receipt to the frame that applied it
	E2ELatency prometheus.Histogram
}

// NewMetrics creates all metrics and registers them with reg. A nil reg
// uses the default Prometheus registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		TicksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chartengine_ticks_total",
			Help: "Ticks applied to the candle aggregator",
		}),
		BookUpdates: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chartengine_book_updates_total",
			Help: "Order book snapshots applied",
		}),
		DroppedTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chartengine_dropped_ticks_total",
			Help: "Ticks dropped (non-finite, non-positive or late)",
		}),
		StaleEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chartengine_stale_events_total",
			Help: "Feed events discarded because they belong to another symbol",
		}),
		CandlesClosed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chartengine_candles_closed_total",
			Help: "Candles closed by the aggregator",
		}),
		WSReconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chartengine_ws_reconnects_total",
			Help: "Total WebSocket reconnection attempts",
		}),

		FrameDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "chartengine_frame_duration_seconds",
			Help:    "Time spent producing one frame",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.002, 0.004, 0.008, 0.016, 0.033},
		}),
		Candles: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chartengine_candles",
			Help: "Candles held for the current symbol and timeframe",
		}),
		VisibleRows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "chartengine_visible_rows",
			Help: "Depth rows bound in the last frame",
		}, []string{"side"}),
		BookLevels: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "chartengine_book_levels",
			Help: "Generated price levels per side",
		}, []string{"side"}),
		LevelsAdded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chartengine_book_levels_extended_total",
			Help: "Levels appended by infinite scroll",
		}, []string{"side"}),
		WatchdogReset: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chartengine_watchdog_resets_total",
			Help: "Automatic returns to auto-range",
		}, []string{"reason"}),

		SymbolSwitches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chartengine_symbol_switches_total",
			Help: "Symbol changes",
		}),
		TimeframeSwitches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chartengine_timeframe_switches_total",
			Help: "Timeframe changes",
		}),

		RingBufOverflow: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chartengine_ringbuf_overflow_total",
			Help: "Events dropped because the frame loop inbox was full",
		}),
		FanoutDropsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chartengine_fanout_drops_total",
			Help: "Events dropped by the FanOut bus per subscriber",
		}, []string{"subscriber"}),
		ChannelSaturationPct: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "chartengine_channel_saturation_pct",
			Help: "Channel fill percentage (len/cap * 100)",
		}, []string{"channel_name"}),

		E2ELatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "chartengine_e2e_latency_seconds",
			Help:    "Latency from feed receipt to the frame that applied the event",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5},
		}),
	}

	reg.MustRegister(
		m.TicksTotal,
		m.BookUpdates,
		m.DroppedTicks,
		m.StaleEvents,
		m.CandlesClosed,
		m.WSReconnects,
		m.FrameDur,
		m.Candles,
		m.VisibleRows,
		m.BookLevels,
		m.LevelsAdded,
		m.WatchdogReset,
		m.SymbolSwitches,
		m.TimeframeSwitches,
		m.RingBufOverflow,
		m.FanoutDropsTotal,
		m.ChannelSaturationPct,
		m.E2ELatency,
	)

	return m
}
