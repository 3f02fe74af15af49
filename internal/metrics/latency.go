package metrics

import (
	"math"
	"sort"
	"sync"
	"time"
)

// FrameTracker keeps the last N frame durations in a circular buffer and
// reports percentiles. Thread-safe: the frame loop records, the diagnostics
// endpoint reads.
type FrameTracker struct {
	mu      sync.Mutex
	samples []float64 // ms
	pos     int
	count   int
	total   uint64
	slow    uint64
	budget  float64 // ms
}

// FrameStats is a percentile summary in milliseconds.
type FrameStats struct {
	Frames  uint64  `json:"frames"`
	Slow    uint64  `json:"slow_frames"`
	P50     float64 `json:"p50_ms"`
	P95     float64 `json:"p95_ms"`
	P99     float64 `json:"p99_ms"`
	Max     float64 `json:"max_ms"`
	Samples int     `json:"samples"`
}

// NewFrameTracker creates a tracker holding the last capacity samples.
// Frames longer than budget count as slow.
func NewFrameTracker(capacity int, budget time.Duration) *FrameTracker {
	if capacity <= 0 {
		capacity = 1024
	}
	return &FrameTracker{
		samples: make([]float64, capacity),
		budget:  float64(budget.Microseconds()) / 1000.0,
	}
}

// Record adds one frame duration.
func (ft *FrameTracker) Record(d time.Duration) {
	ms := float64(d.Microseconds()) / 1000.0
	ft.mu.Lock()
	ft.samples[ft.pos] = ms
	ft.pos = (ft.pos + 1) % len(ft.samples)
	if ft.count < len(ft.samples) {
		ft.count++
	}
	ft.total++
	if ft.budget > 0 && ms > ft.budget {
		ft.slow++
	}
	ft.mu.Unlock()
}

// Stats returns percentiles over the buffered samples. All zero when no
// frame has been recorded.
func (ft *FrameTracker) Stats() FrameStats {
	ft.mu.Lock()
	n := ft.count
	st := FrameStats{Frames: ft.total, Slow: ft.slow, Samples: n}
	if n == 0 {
		ft.mu.Unlock()
		return st
	}
	sorted := make([]float64, n)
	if n == len(ft.samples) {
		// full: oldest sample sits at pos
		copy(sorted, ft.samples[ft.pos:])
		copy(sorted[len(ft.samples)-ft.pos:], ft.samples[:ft.pos])
	} else {
		copy(sorted, ft.samples[:n])
	}
	ft.mu.Unlock()

	sort.Float64s(sorted)
	st.P50 = percentile(sorted, 0.50)
	st.P95 = percentile(sorted, 0.95)
	st.P99 = percentile(sorted, 0.99)
	st.Max = sorted[n-1]
	return st
}

// percentile computes the p-th percentile (0.0–1.0) of a sorted slice.
func percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}
	rank := p * float64(n-1)
	lower := int(math.Floor(rank))
	upper := lower + 1
	if upper >= n {
		return sorted[n-1]
	}
	frac := rank - float64(lower)
	return sorted[lower]*(1-frac) + sorted[upper]*frac
}
