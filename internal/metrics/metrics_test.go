package metrics

import (
	"math"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics_RegistersOnGivenRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.TicksTotal.Add(3)
	m.WatchdogReset.WithLabelValues("off_screen").Inc()

	assert.Equal(t, 3.0, testutil.ToFloat64(m.TicksTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.WatchdogReset.WithLabelValues("off_screen")))

	// a second set on a fresh registry must not collide
	require.NotPanics(t, func() { NewMetrics(prometheus.NewRegistry()) })
}

func TestNewSimMetrics_OwnNamespace(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSimMetrics(reg)
	m.TicksGenerated.Add(2)
	m.FanoutDrops.WithLabelValues("redis").Inc()

	families, err := reg.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, families)
	for _, f := range families {
		assert.True(t, strings.HasPrefix(f.GetName(), "tickserver_"), f.GetName())
	}
	assert.Equal(t, 2.0, testutil.ToFloat64(m.TicksGenerated))

	// engine and simulator sets can share one registry
	require.NotPanics(t, func() { NewMetrics(reg) })
}

func TestFrameTracker_Empty(t *testing.T) {
	ft := NewFrameTracker(100, 16*time.Millisecond)
	st := ft.Stats()
	assert.Zero(t, st.Frames)
	assert.Zero(t, st.P99)
}

func TestFrameTracker_Percentiles(t *testing.T) {
	ft := NewFrameTracker(1000, 50*time.Millisecond)
	for i := 1; i <= 100; i++ {
		ft.Record(time.Duration(i) * time.Millisecond)
	}

	st := ft.Stats()
	assert.Equal(t, uint64(100), st.Frames)
	assert.Equal(t, uint64(50), st.Slow)
	assert.InDelta(t, 50.5, st.P50, 1.0)
	assert.InDelta(t, 95.05, st.P95, 1.0)
	assert.InDelta(t, 99.01, st.P99, 1.0)
	assert.Equal(t, 100.0, st.Max)
}

func TestFrameTracker_Wraparound(t *testing.T) {
	ft := NewFrameTracker(10, 0)
	for i := 1; i <= 20; i++ {
		ft.Record(time.Duration(i) * time.Millisecond)
	}

	st := ft.Stats()
	assert.Equal(t, 10, st.Samples)
	assert.Equal(t, uint64(20), st.Frames)
	assert.Zero(t, st.Slow)
	// only 11..20 remain
	assert.GreaterOrEqual(t, st.P50, 11.0)
	assert.Equal(t, 20.0, st.Max)
}

func TestPercentile_Interpolates(t *testing.T) {
	got := percentile([]float64{10, 20}, 0.5)
	assert.False(t, math.IsNaN(got))
	assert.Equal(t, 15.0, got)
	assert.Zero(t, percentile(nil, 0.5))
}

func TestHealth_Report(t *testing.T) {
	h := NewHealthStatus()
	now := h.StartedAt.Add(time.Minute)

	rep, code := h.Report(now)
	assert.Equal(t, "unhealthy", rep.Status)
	assert.Equal(t, http.StatusServiceUnavailable, code)

	h.SetFeedConnected(true)
	h.SetLastTickTime(now.Add(-1500 * time.Millisecond))
	h.SetInstrument("AAPL", "1m")
	rep, code = h.Report(now)
	assert.Equal(t, "healthy", rep.Status)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "1.5s", rep.TickAge)
	assert.Equal(t, "AAPL", rep.Symbol)
	assert.Equal(t, "1m0s", rep.Uptime)

	h.mu.Lock()
	h.SQLiteEnabled = true
	h.SQLiteOK = false
	h.mu.Unlock()
	rep, code = h.Report(now)
	assert.Equal(t, "degraded", rep.Status)
	assert.Equal(t, http.StatusServiceUnavailable, code)
}
