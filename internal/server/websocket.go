package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/conneroisu/simplest/internal/logging"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Send pings to peer with this period.
	pingPeriod = 54 * time.Second

	// Maximum message size allowed from peer.
	maxMessageSize = 512
)

// Message is sent to every connected browser.
type Message struct {
	Type      string    `json:"type"`
	Paths     []string  `json:"paths,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// client is one live-reload connection.
type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// Hub fans reload messages out to connected browsers.
type Hub struct {
	logger logging.Logger
	port   int

	mu      sync.RWMutex
	clients map[string]*client
	closed  bool
}

func newHub(logger logging.Logger, port int) *Hub {
	return &Hub{
		logger:  logger,
		port:    port,
		clients: make(map[string]*client),
	}
}

// Clients returns the number of connected browsers.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast queues msg for every client. Clients that cannot keep up are
// dropped.
func (h *Hub) Broadcast(ctx context.Context, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error(ctx, err, "Failed to encode reload message")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		select {
		case c.send <- data:
		default:
			delete(h.clients, id)
			close(c.send)
			h.logger.Warn(ctx, nil, "Dropping slow live-reload client", "client", id)
		}
	}
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c.id] = c
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c.id]; ok {
		delete(h.clients, c.id)
		close(c.send)
	}
}

// close disconnects every client and refuses new ones.
func (h *Hub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, c := range h.clients {
		delete(h.clients, id)
		close(c.send)
	}
}

// ServeHTTP upgrades the request and keeps the connection until the browser
// goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.checkOrigin(r) {
		http.Error(w, "Origin not allowed", http.StatusForbidden)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.allowedHosts(r),
	})
	if err != nil {
		h.logger.Warn(r.Context(), err, "WebSocket upgrade failed")
		return
	}
	conn.SetReadLimit(maxMessageSize)

	c := &client{id: uuid.NewString(), conn: conn, send: make(chan []byte, 16)}
	if !h.register(c) {
		conn.Close(websocket.StatusGoingAway, "server shutting down")
		return
	}
	h.logger.Debug(r.Context(), "Live-reload client connected", "client", c.id, "total", h.Clients())

	ctx := conn.CloseRead(context.Background())
	h.writePump(ctx, c)
	h.unregister(c)
	h.logger.Debug(r.Context(), "Live-reload client disconnected", "client", c.id)
}

func (h *Hub) writePump(ctx context.Context, c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case message, ok := <-c.send:
			if !ok {
				c.conn.Close(websocket.StatusGoingAway, "")
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Write(writeCtx, websocket.MessageText, message)
			cancel()
			if err != nil {
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}
		}
	}
}

// checkOrigin accepts same-host origins and loopback origins on the dev
// server port.
func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return false
	}
	u, err := url.Parse(origin)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}

	for _, allowed := range h.allowedHosts(r) {
		if u.Host == allowed {
			return true
		}
	}
	return false
}

func (h *Hub) allowedHosts(r *http.Request) []string {
	hosts := []string{r.Host}
	port := strconv.Itoa(h.port)
	if _, p, err := net.SplitHostPort(r.Host); err == nil {
		port = p
	}
	return append(hosts,
		net.JoinHostPort("localhost", port),
		net.JoinHostPort("127.0.0.1", port),
	)
}
