package agg

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rick-more-Rick/donTrading-sub000/internal/model"
)

func TestBucket(t *testing.T) {
	cases := []struct {
		t, interval, want int64
	}{
		{0, 60, 0},
		{59, 60, 0},
		{60, 60, 60},
		{1700000123, 60, 1700000100},
		{1700000123, 5, 1700000120},
		{-1, 60, -60},
		{-60, 60, -60},
	}
	for _, tc := range cases {
		got := Bucket(tc.t, tc.interval)
		assert.Equal(t, tc.want, got, "Bucket(%d, %d)", tc.t, tc.interval)
		// idempotent
		assert.Equal(t, got, Bucket(got, tc.interval))
		assert.Equal(t, got, Bucket(tc.t, tc.interval))
	}
}

func TestAggregator_BasicCandle(t *testing.T) {
	a := New(60)

	a.Tick(120, 500.0)
	a.Tick(130, 505.0)
	a.Tick(150, 498.0)
	// next bucket closes the previous one
	a.Tick(180, 501.0)

	all := a.All()
	require.Len(t, all, 2)

	c := all[0]
	assert.Equal(t, int64(120), c.Time)
	assert.Equal(t, 500.0, c.Open)
	assert.Equal(t, 505.0, c.High)
	assert.Equal(t, 498.0, c.Low)
	assert.Equal(t, 498.0, c.Close)
	assert.Equal(t, int64(3), c.Volume)

	last := all[1]
	assert.Equal(t, int64(180), last.Time)
	assert.Equal(t, int64(1), last.Volume)
	assert.Equal(t, 501.0, last.Open)
}

func TestAggregator_DropsInvalidAndLateTicks(t *testing.T) {
	a := New(60)
	dropped := 0
	a.OnDroppedTick = func() { dropped++ }

	a.Tick(120, 100)
	a.Tick(125, math.NaN())
	a.Tick(126, math.Inf(-1))
	a.Tick(127, 0)
	a.Tick(60, 99) // older bucket

	assert.Equal(t, 4, dropped)
	all := a.All()
	require.Len(t, all, 1)
	assert.Equal(t, int64(1), all[0].Volume)
	assert.Equal(t, 100.0, all[0].High)
}

func TestAggregator_ClosedCandlesStrictlyIncreasing(t *testing.T) {
	a := New(5)
	var closed []model.Candle
	a.OnClosed = func(c model.Candle) { closed = append(closed, c) }

	for ts := int64(1000); ts < 1100; ts += 3 {
		a.Tick(ts, 100+float64(ts%7))
	}

	all := a.All()
	for i := 1; i < len(all); i++ {
		assert.Greater(t, all[i].Time, all[i-1].Time)
		assert.Zero(t, all[i].Time%5)
	}
	assert.Len(t, closed, len(all)-1)
	for _, c := range all {
		assert.GreaterOrEqual(t, c.High, math.Max(c.Open, c.Close))
		assert.LessOrEqual(t, c.Low, math.Min(c.Open, c.Close))
	}
}

func TestAggregator_FromHistoryIsDeterministic(t *testing.T) {
	ticks := make([]model.Tick, 0, 500)
	for i := 0; i < 500; i++ {
		ticks = append(ticks, model.Tick{Time: int64(1700000000 + i*7), Value: 100 + math.Sin(float64(i))})
	}

	a := New(60)
	a.Tick(1, 1) // stale state must be discarded
	a.FromHistory(ticks)
	first := a.All()

	b := New(60)
	b.FromHistory(ticks)
	b.FromHistory(ticks)

	assert.Equal(t, first, b.All())
	assert.Equal(t, first, a.All())
}

func TestAggregator_ChangeInterval(t *testing.T) {
	ticks := []model.Tick{
		{Time: 0, Value: 10}, {Time: 4, Value: 12}, {Time: 5, Value: 9},
		{Time: 61, Value: 11}, {Time: 62, Value: 13},
	}
	a := New(5)
	a.FromHistory(ticks)
	require.Equal(t, 3, a.Len())

	a.ChangeInterval(60, ticks)

	assert.Equal(t, int64(60), a.Interval())
	all := a.All()
	require.Len(t, all, 2)
	assert.Equal(t, model.Candle{Time: 0, Open: 10, High: 12, Low: 9, Close: 9, Volume: 3}, all[0])
	assert.Equal(t, model.Candle{Time: 60, Open: 11, High: 13, Low: 11, Close: 13, Volume: 2}, all[1])
}

func TestAggregator_AllReturnsCopy(t *testing.T) {
	a := New(60)
	a.Tick(0, 1)
	all := a.All()
	all[0].Close = 42

	cur, ok := a.Current()
	require.True(t, ok)
	assert.Equal(t, 1.0, cur.Close)

	view := a.View()
	require.Len(t, view, 1)
	a.Tick(30, 3)
	assert.Equal(t, 3.0, view[0].Close, "view aliases the in-progress candle")
}
