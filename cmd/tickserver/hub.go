package main

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const clientBufSize = 256

type hub struct {
	mu      sync.RWMutex
	clients map[*websocket.Conn]chan []byte
	log     *slog.Logger

	// onClients receives the client count after every change (optional).
	onClients func(n int)
}

func newHub(log *slog.Logger) *hub {
	return &hub{clients: make(map[*websocket.Conn]chan []byte), log: log}
}

func (h *hub) register(conn *websocket.Conn) chan []byte {
	ch := make(chan []byte, clientBufSize)
	h.mu.Lock()
	h.clients[conn] = ch
	n := len(h.clients)
	h.mu.Unlock()
	h.notify(n)
	return ch
}

func (h *hub) unregister(conn *websocket.Conn) {
	h.mu.Lock()
	if ch, ok := h.clients[conn]; ok {
		close(ch)
		delete(h.clients, conn)
	}
	n := len(h.clients)
	h.mu.Unlock()
	h.notify(n)
}

func (h *hub) notify(n int) {
	if h.onClients != nil {
		h.onClients(n)
	}
}

// broadcast sends msg to every client; slow clients miss it.
func (h *hub) broadcast(msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.clients {
		select {
		case ch <- msg:
		default:
		}
	}
}

func (h *hub) count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(_ *http.Request) bool { return true },
}

func (h *hub) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("upgrade failed", "error", err)
		return
	}
	h.log.Info("client connected", "remote", r.RemoteAddr)

	ch := h.register(conn)
	defer func() {
		h.unregister(conn)
		conn.Close()
		h.log.Info("client disconnected", "remote", r.RemoteAddr)
	}()

	// reader: notices the client going away
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-gone:
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		}
	}
}
