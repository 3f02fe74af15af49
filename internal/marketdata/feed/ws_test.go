package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFeedServer(t *testing.T, handler func(*websocket.Conn)) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer conn.Close()
		handler(conn)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(httpURL string) string {
	return strings.Replace(httpURL, "http://", "ws://", 1)
}

func TestNewWSClient_RejectsNonWS(t *testing.T) {
	_, err := NewWSClient(WSConfig{URL: "http://localhost:1"}, nil)
	assert.Error(t, err)
}

func TestWSClient_StreamsEvents(t *testing.T) {
	srv := newFeedServer(t, func(conn *websocket.Conn) {
		conn.WriteMessage(websocket.TextMessage, []byte(`{"time":60,"value":101}`))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"heartbeat"}`))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"time":61,"value":-1}`))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"book","best_bid":100,"best_ask":100.5}`))
		time.Sleep(500 * time.Millisecond)
	})

	c, err := NewWSClient(WSConfig{URL: wsURL(srv.URL), Symbol: "SIM"}, nil)
	require.NoError(t, err)

	var bad atomic.Int32
	var up atomic.Bool
	c.OnBadFrame = func(error) { bad.Add(1) }
	c.OnConnState = func(v bool) {
		if v {
			up.Store(true)
		}
	}

	events := make(chan Event, 8)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx, ChanSink(events, nil)) }()

	var got []Event
	for len(got) < 2 {
		select {
		case ev := <-events:
			got = append(got, ev)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out, got %d events", len(got))
		}
	}

	assert.Equal(t, KindTick, got[0].Kind)
	assert.Equal(t, "SIM", got[0].Symbol)
	assert.Equal(t, KindBook, got[1].Kind)
	assert.Equal(t, int32(1), bad.Load(), "heartbeat is ignored, bad price is reported")
	assert.True(t, up.Load())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
}

func TestWSClient_Reconnects(t *testing.T) {
	var conns atomic.Int32
	srv := newFeedServer(t, func(conn *websocket.Conn) {
		n := conns.Add(1)
		conn.WriteMessage(websocket.TextMessage, []byte(`{"time":1,"value":1}`))
		if n > 1 {
			time.Sleep(time.Second)
		}
		// first session ends immediately
	})

	c, err := NewWSClient(WSConfig{URL: wsURL(srv.URL), ReconnectDelay: 20 * time.Millisecond}, nil)
	require.NoError(t, err)
	var reconnects atomic.Int32
	c.OnReconnect = func() { reconnects.Add(1) }

	events := make(chan Event, 8)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	go c.Start(ctx, ChanSink(events, nil))

	for i := 0; i < 2; i++ {
		select {
		case <-events:
		case <-ctx.Done():
			t.Fatal("expected an event from each session")
		}
	}
	assert.GreaterOrEqual(t, conns.Load(), int32(2))
	assert.GreaterOrEqual(t, reconnects.Load(), int32(1))
}
