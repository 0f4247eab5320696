// Package remote broadcasts the console buffer to websocket viewers.
package remote

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/zurustar/procscript/pkg/logger"
)

// Event is the message exchanged with viewers.
type Event struct {
	Type string `json:"type"`
	Data string `json:"data,omitempty"`
}

// Event types.
const (
	EventConsole = "console"
	EventSync    = "sync"
)

const writeWait = 5 * time.Second

// client holds at most one pending console text; newer text replaces older.
type client struct {
	conn    *websocket.Conn
	pending chan string
}

func (c *client) offer(text string) {
	for {
		select {
		case c.pending <- text:
			return
		default:
		}
		select {
		case <-c.pending:
		default:
		}
	}
}

// Hub keeps the latest console text and pushes it to every connected viewer.
type Hub struct {
	upgrader websocket.Upgrader
	log      *slog.Logger

	mu      sync.RWMutex
	clients map[*websocket.Conn]*client
	last    string
	closed  bool
}

// Option configures a Hub.
type Option func(*Hub)

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(h *Hub) {
		h.log = log
	}
}

// NewHub creates an empty hub.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		log:     logger.Component("remote"),
		clients: make(map[*websocket.Conn]*client),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Publish records text as the current console and queues it for every viewer.
// It never blocks, so it can be used as a console listener.
func (h *Hub) Publish(text string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.last = text
	for _, c := range h.clients {
		c.offer(text)
	}
}

// Last returns the most recently published text.
func (h *Hub) Last() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.last
}

// Clients returns the number of connected viewers.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and streams console updates until the viewer leaves.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("WebSocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	c := &client{conn: conn, pending: make(chan string, 1)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.clients[conn] = c
	c.offer(h.last)
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
	}()

	h.log.Info("Viewer connected", "remote", r.RemoteAddr)

	done := make(chan struct{})
	go h.writeLoop(c, done)
	defer close(done)

	for {
		var event Event
		if err := conn.ReadJSON(&event); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Warn("WebSocket read failed", "error", err)
			}
			break
		}
		h.handleEvent(c, &event)
	}

	h.log.Info("Viewer disconnected", "remote", r.RemoteAddr)
}

func (h *Hub) handleEvent(c *client, event *Event) {
	switch event.Type {
	case EventSync:
		c.offer(h.Last())
	default:
		h.log.Debug("Unknown event type", "type", event.Type)
	}
}

// writeLoop is the only writer on the connection.
func (h *Hub) writeLoop(c *client, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case text := <-c.pending:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(Event{Type: EventConsole, Data: text}); err != nil {
				h.log.Debug("WebSocket write failed", "error", err)
				c.conn.Close()
				return
			}
		}
	}
}

// Close disconnects every viewer and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for conn := range h.clients {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutdown"),
			time.Now().Add(writeWait))
		conn.Close()
	}
}

// ListenAndServe serves the hub at "/console" on addr until ctx is done.
func ListenAndServe(ctx context.Context, addr string, h *Hub) error {
	mux := http.NewServeMux()
	mux.Handle("/console", h)

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()
	h.log.Info("Console server listening", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	h.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), writeWait)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
