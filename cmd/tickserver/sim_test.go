package main

import (
	"context"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rick-more-Rick/donTrading-sub000/internal/marketdata/feed"
	"github.com/Rick-more-Rick/donTrading-sub000/internal/metrics"
	"github.com/Rick-more-Rick/donTrading-sub000/internal/model"
)

func onGrid(p, step float64) bool {
	n := p / step
	return math.Abs(n-math.Round(n)) < 1e-6
}

func TestSimulatorTicksStayOnGrid(t *testing.T) {
	sim := newSimulator([]string{"AAA", "BBB"}, 100, 0.01, 20, 1)
	for i := 0; i < 500; i++ {
		ticks := sim.nextTicks(int64(i))
		require.Len(t, ticks, 2)
		for _, tk := range ticks {
			assert.True(t, tk.Valid())
			assert.True(t, onGrid(tk.Value, 0.01), "price %v off grid", tk.Value)
			assert.Equal(t, int64(i), tk.Time)
		}
	}
	assert.Equal(t, "BBB", sim.nextTicks(0)[1].Symbol)
}

func TestSimulatorBookShape(t *testing.T) {
	sim := newSimulator([]string{"AAA"}, 100, 0.01, 30, 7)
	b := sim.books()[0]

	assert.Equal(t, "AAA", b.Symbol)
	require.NotEmpty(t, b.Bids)
	require.NotEmpty(t, b.Asks)
	assert.InDelta(t, 99.99, b.BestBid, 1e-9)
	assert.InDelta(t, 100.01, b.BestAsk, 1e-9)
	assert.InDelta(t, 0.02, b.Spread, 1e-9)
	assert.InDelta(t, 100.0, b.MidPrice, 1e-9)
	for i := 1; i < len(b.Bids); i++ {
		assert.Less(t, b.Bids[i].Price, b.Bids[i-1].Price)
	}
	for i := 1; i < len(b.Asks); i++ {
		assert.Greater(t, b.Asks[i].Price, b.Asks[i-1].Price)
	}
	assert.LessOrEqual(t, len(b.Asks), 30)
}

func TestSimulatorBookNearZero(t *testing.T) {
	sim := newSimulator([]string{"PENNY"}, 0.02, 0.01, 10, 3)
	b := sim.books()[0]
	for _, e := range b.Bids {
		assert.Greater(t, e.Price, 0.0)
	}
	assert.LessOrEqual(t, len(b.Bids), 1)
}

func TestGenerateClosesOnCancel(t *testing.T) {
	sim := newSimulator([]string{"AAA"}, 100, 0.01, 5, 1)
	m := metrics.NewSimMetrics(prometheus.NewRegistry())
	events := make(chan feed.Event, 64)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		generate(ctx, sim, 5*time.Millisecond, 10*time.Millisecond, events, m)
		close(done)
	}()

	var kinds = map[feed.Kind]int{}
	deadline := time.After(2 * time.Second)
	for kinds[feed.KindTick] == 0 || kinds[feed.KindBook] == 0 {
		select {
		case ev := <-events:
			kinds[ev.Kind]++
		case <-deadline:
			t.Fatal("no events generated")
		}
	}
	cancel()
	<-done
	for range events {
	}
	assert.GreaterOrEqual(t, testutil.ToFloat64(m.TicksGenerated), 1.0)
	assert.GreaterOrEqual(t, testutil.ToFloat64(m.BooksGenerated), 1.0)
}

func TestHubBroadcastsToWSClient(t *testing.T) {
	h := newHub(discardLogger())
	m := metrics.NewSimMetrics(prometheus.NewRegistry())
	h.onClients = func(n int) { m.Clients.Set(float64(n)) }
	srv := httptest.NewServer(http.HandlerFunc(h.serveWS))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial(strings.Replace(srv.URL, "http://", "ws://", 1), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return h.count() == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return testutil.ToFloat64(m.Clients) == 1 }, time.Second, 5*time.Millisecond)

	msg, err := feed.EncodeTick(model.Tick{Symbol: "AAA", Time: 1, Value: 2})
	require.NoError(t, err)
	h.broadcast(msg)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	ev, err := feed.Decode(raw, "", time.Now())
	require.NoError(t, err)
	assert.Equal(t, feed.KindTick, ev.Kind)
	assert.Equal(t, 2.0, ev.Tick.Value)

	conn.Close()
	require.Eventually(t, func() bool { return h.count() == 0 }, 2*time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return testutil.ToFloat64(m.Clients) == 0 }, time.Second, 5*time.Millisecond)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
