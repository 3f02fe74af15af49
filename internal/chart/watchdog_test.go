package chart

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rick-more-Rick/donTrading-sub000/internal/pricerange"
)

// manualState returns a state zoomed by hand around 10..12.
func manualState(t *testing.T) *pricerange.State {
	t.Helper()
	s := pricerange.New()
	s.SetAutoRange(10, 12)
	s.ApplyManualZoom(-50, 0.5)
	require.False(t, s.AutoRange())
	return s
}

func TestWatchdog_ResetsOnceAfterGrace(t *testing.T) {
	s := manualState(t)
	w := NewWatchdog(s, nil)
	var resets []string
	w.OnReset = func(r string) { resets = append(resets, r) }

	t0 := time.Unix(1000, 0)
	// data moved far above the window
	for ms := 0; ms <= 2500; ms += 100 {
		w.Check(t0.Add(time.Duration(ms)*time.Millisecond), false, 50, 55, true)
	}

	assert.Equal(t, []string{ReasonOffScreen}, resets)
	assert.True(t, s.AutoRange())
	assert.True(t, s.OffScreenSince().IsZero())
}

func TestWatchdog_ReentryCancelsTimer(t *testing.T) {
	s := manualState(t)
	w := NewWatchdog(s, nil)
	resets := 0
	w.OnReset = func(string) { resets++ }

	t0 := time.Unix(1000, 0)
	w.Check(t0, false, 50, 55, true)
	w.Check(t0.Add(time.Second), false, 50, 55, true)
	require.False(t, s.OffScreenSince().IsZero())

	min, max := s.Bounds()
	w.Check(t0.Add(1200*time.Millisecond), false, min, max, true)
	assert.True(t, s.OffScreenSince().IsZero())

	// leaves again: the grace window starts over
	w.Check(t0.Add(1300*time.Millisecond), false, 50, 55, true)
	w.Check(t0.Add(2500*time.Millisecond), false, 50, 55, true)
	assert.Zero(t, resets)
	assert.False(t, s.AutoRange())

	w.Check(t0.Add(2800*time.Millisecond), false, 50, 55, true)
	assert.Equal(t, 1, resets)
}

func TestWatchdog_PartialOverlapIsOnScreen(t *testing.T) {
	s := manualState(t)
	w := NewWatchdog(s, nil)
	_, max := s.Bounds()

	t0 := time.Unix(1000, 0)
	for i := 0; i < 10; i++ {
		assert.Empty(t, w.Check(t0.Add(time.Duration(i)*time.Second), false, max-0.001, max+100, true))
	}
	assert.True(t, s.OffScreenSince().IsZero())
}

func TestWatchdog_IdleWhileDraggingOrAuto(t *testing.T) {
	s := manualState(t)
	w := NewWatchdog(s, nil)
	t0 := time.Unix(1000, 0)

	for i := 0; i < 5; i++ {
		assert.Empty(t, w.Check(t0.Add(time.Duration(i)*time.Second), true, 50, 55, true))
	}
	assert.False(t, s.AutoRange())

	auto := pricerange.New()
	auto.SetAutoRange(1, 2)
	wa := NewWatchdog(auto, nil)
	assert.Empty(t, wa.Check(t0, false, 50, 55, true))
	assert.Empty(t, wa.Check(t0.Add(time.Minute), false, 50, 55, true))
}

func TestWatchdog_InvalidRangeResetsImmediately(t *testing.T) {
	// at 1e15 adjacent floats are 0.125 apart, so zooming in far enough
	// collapses both bounds onto the same value
	s := pricerange.New()
	s.SetAutoRange(1e15, 1e15+1)
	for i := 0; i < 500 && s.HasValidRange(); i++ {
		s.ApplyManualDrag(-200, 400)
	}
	require.False(t, s.HasValidRange())
	require.False(t, s.AutoRange())

	w := NewWatchdog(s, nil)
	assert.Equal(t, ReasonInvalidRange, w.Check(time.Unix(0, 0), false, 1e15, 1e15+1, true))
	assert.True(t, s.AutoRange())
}

func TestWatchdog_NoDataClearsTimer(t *testing.T) {
	s := manualState(t)
	w := NewWatchdog(s, nil)
	t0 := time.Unix(1000, 0)
	w.Check(t0, false, 50, 55, true)
	w.Check(t0.Add(time.Second), false, 0, 0, false)
	assert.True(t, s.OffScreenSince().IsZero())
}
