package display

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"live-transcriber/internal/models"
	"live-transcriber/internal/observability/logging"
	"live-transcriber/internal/observability/metrics"
)

const writeWait = 5 * time.Second

// Hub broadcasts display updates to websocket clients. All writes happen on
// the Run goroutine; new clients first receive a snapshot of the current state.
type Hub struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan models.DisplayUpdate
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	done       chan struct{}
	upgrader   websocket.Upgrader
	metrics    *metrics.Metrics
	logger     zerolog.Logger

	mu    sync.Mutex
	state models.DisplayState // Includes updates dropped from broadcast
}

// NewHub creates a hub. Call Run before serving clients.
func NewHub(m *metrics.Metrics) *Hub {
	return &Hub{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan models.DisplayUpdate, 256),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Local tool; the page may be served from anywhere
			},
		},
		metrics: m,
		logger:  logging.WithComponent("display.hub"),
	}
}

// Publish implements Sink. Updates are dropped from the live broadcast if the
// hub is backed up, but still reach the snapshot sent to new clients.
func (h *Hub) Publish(u models.DisplayUpdate) {
	h.mu.Lock()
	h.state.Apply(u)
	h.mu.Unlock()

	select {
	case h.broadcast <- u:
	default:
		h.logger.Warn().Str("eventType", u.EventType).Msg("Display hub backed up, dropping update")
		h.metrics.RecordDisplayPublish("websocket", u.EventType, errDropped, 0)
	}
}

// Run serves registrations and broadcasts until ctx is done. It must be called once.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		close(h.done)
		for conn := range h.clients {
			conn.Close()
		}
		h.metrics.RecordDisplayClients(0)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case conn := <-h.register:
			h.clients[conn] = true
			h.metrics.RecordDisplayClients(len(h.clients))
			h.logger.Info().Int("clients", len(h.clients)).Msg("Display client connected")
			h.send(conn, h.snapshot())

		case conn := <-h.unregister:
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
			}
			h.metrics.RecordDisplayClients(len(h.clients))
			h.logger.Info().Int("clients", len(h.clients)).Msg("Display client disconnected")

		case u := <-h.broadcast:
			start := time.Now()
			for conn := range h.clients {
				h.send(conn, u)
			}
			h.metrics.RecordDisplayPublish("websocket", u.EventType, nil, time.Since(start).Seconds())
		}
	}
}

func (h *Hub) snapshot() models.DisplayUpdate {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state.Snapshot(time.Now().UnixMilli())
}

// send writes one update, dropping the client on failure. Called from Run only.
func (h *Hub) send(conn *websocket.Conn, u models.DisplayUpdate) {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(u); err != nil {
		h.logger.Debug().Err(err).Msg("Display client write failed")
		conn.Close()
		delete(h.clients, conn)
		h.metrics.RecordDisplayClients(len(h.clients))
	}
}

// ServeHTTP upgrades the request and registers the client.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	select {
	case h.register <- conn:
	case <-h.done:
		conn.Close()
		return
	}

	// Clients only listen; reading detects disconnects.
	go func() {
		defer func() {
			select {
			case h.unregister <- conn:
			case <-h.done:
			}
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
