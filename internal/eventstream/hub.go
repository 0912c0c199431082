// Package eventstream exposes the pipeline's event feed over WebSocket, so
// external UIs (overlays, dashboards) can follow what is on screen and what
// is being voiced without polling.
package eventstream

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/voxscreen/voxscreen/internal/pipeline"
)

// Compile-time assertions.
var (
	_ pipeline.Sink = (*Hub)(nil)
	_ http.Handler  = (*Hub)(nil)
)

const (
	// clientBuffer is how many events a client may fall behind before it
	// is disconnected. The feed is advisory; a stalled client must never
	// back-pressure the pipeline.
	clientBuffer = 64

	// writeTimeout bounds a single WebSocket write.
	writeTimeout = 5 * time.Second
)

// Hub fans pipeline events out to connected WebSocket clients. It implements
// pipeline.Sink on the publishing side and http.Handler on the subscribing
// side.
type Hub struct {
	log *slog.Logger

	mu      sync.Mutex
	clients map[chan []byte]struct{}
	closed  bool
}

// NewHub creates an empty Hub. A nil logger uses slog.Default.
func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		log:     log,
		clients: make(map[chan []byte]struct{}),
	}
}

// Publish implements pipeline.Sink. Events are encoded once and offered to
// every client; a client whose buffer is full is dropped.
func (h *Hub) Publish(e pipeline.Event) {
	data, err := json.Marshal(e)
	if err != nil {
		h.log.Warn("eventstream: encode event", "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients {
		select {
		case ch <- data:
		default:
			// Client too slow: closing its channel ends its writer.
			delete(h.clients, ch)
			close(ch)
			h.log.Warn("eventstream: dropped slow client")
		}
	}
}

// ServeHTTP implements http.Handler. It upgrades the request to a WebSocket
// and streams events until the client disconnects or the hub closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.log.Warn("eventstream: accept", "error", err)
		return
	}

	ch := h.subscribe()
	if ch == nil {
		conn.Close(websocket.StatusGoingAway, "shutting down")
		return
	}
	defer h.unsubscribe(ch)

	// The feed is write-only; CloseRead keeps control frames serviced and
	// signals when the client goes away.
	ctx := conn.CloseRead(r.Context())

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case data, ok := <-ch:
			if !ok {
				conn.Close(websocket.StatusGoingAway, "too slow")
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := conn.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				return
			}
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects all clients and rejects new subscriptions.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for ch := range h.clients {
		delete(h.clients, ch)
		close(ch)
	}
}

// subscribe registers a new client channel, or returns nil when the hub is
// closed.
func (h *Hub) subscribe() chan []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	ch := make(chan []byte, clientBuffer)
	h.clients[ch] = struct{}{}
	return ch
}

// unsubscribe removes a client channel if it is still registered.
func (h *Hub) unsubscribe(ch chan []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[ch]; ok {
		delete(h.clients, ch)
		close(ch)
	}
}
