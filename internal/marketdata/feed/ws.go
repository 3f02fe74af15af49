package feed

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
)

// WSConfig holds configuration for the WebSocket feed client.
type WSConfig struct {
	// URL of the feed server, e.g. "ws://localhost:9001/ws".
	URL string

	// Symbol is assigned to messages that carry none.
	Symbol string

	// ReconnectDelay is the initial delay before reconnection attempts.
	// Defaults to 2 seconds if zero.
	ReconnectDelay time.Duration

	// MaxReconnectDelay caps the exponential backoff. Defaults to 30s.
	MaxReconnectDelay time.Duration
}

func (c *WSConfig) defaults() {
	if c.ReconnectDelay == 0 {
		c.ReconnectDelay = 2 * time.Second
	}
	if c.MaxReconnectDelay == 0 {
		c.MaxReconnectDelay = 30 * time.Second
	}
}

// WSClient reads feed messages from a WebSocket server and reconnects with
// exponential backoff.
type WSClient struct {
	cfg WSConfig
	log *slog.Logger

	// Optional hooks
	OnReconnect func()
	OnConnState func(connected bool)
	OnBadFrame  func(err error)
}

// NewWSClient validates cfg and returns a client.
func NewWSClient(cfg WSConfig, logger *slog.Logger) (*WSClient, error) {
	cfg.defaults()
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, errors.New("feed: websocket url must use ws:// or wss://")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WSClient{cfg: cfg, log: logger.With("component", "ws_feed")}, nil
}

// Start connects and streams decoded events into sink.
// Blocks until ctx is cancelled. Reconnects automatically on disconnect.
func (c *WSClient) Start(ctx context.Context, sink Sink) error {
	delay := c.cfg.ReconnectDelay

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		connected, err := c.runOnce(ctx, sink)
		c.setConnected(false)
		if err == nil {
			return nil
		}
		if connected {
			// a session that got through resets the backoff
			delay = c.cfg.ReconnectDelay
		}

		c.log.Warn("feed disconnected, reconnecting", "error", err, "delay", delay)
		if c.OnReconnect != nil {
			c.OnReconnect()
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}

		delay *= 2
		if delay > c.cfg.MaxReconnectDelay {
			delay = c.cfg.MaxReconnectDelay
		}
	}
}

func (c *WSClient) setConnected(v bool) {
	if c.OnConnState != nil {
		c.OnConnState(v)
	}
}

// runOnce makes a single connection attempt and reads until disconnect or
// ctx cancel. A nil error means ctx was cancelled.
func (c *WSClient) runOnce(ctx context.Context, sink Sink) (connected bool, err error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.cfg.URL, nil)
	if err != nil {
		if ctx.Err() != nil {
			return false, nil
		}
		return false, err
	}
	defer conn.Close()

	c.log.Info("feed connected", "url", c.cfg.URL)
	c.setConnected(true)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "shutdown"))
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return true, nil
			}
			return true, err
		}

		ev, err := Decode(raw, c.cfg.Symbol, time.Now())
		if err != nil {
			if !errors.Is(err, ErrUnknownMessage) {
				c.log.Debug("bad feed frame", "error", err)
				if c.OnBadFrame != nil {
					c.OnBadFrame(err)
				}
			}
			continue
		}
		sink(ev)
	}
}
