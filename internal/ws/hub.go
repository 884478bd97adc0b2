package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/observatoire/observatoire/internal/api"
	"github.com/observatoire/observatoire/internal/ranking"
)

const (
	// writeTimeout is the deadline for a single write to a client.
	writeTimeout = 10 * time.Second

	// pongWait is how long to wait for a pong before treating the
	// connection as dead.
	pongWait = 60 * time.Second

	// pingPeriod must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// sendBufSize is the per-client outgoing message buffer depth.
	sendBufSize = 16

	// maxRequestBytes caps one client message.
	maxRequestBytes = 512

	// buildTimeout bounds one leaderboard build.
	buildTimeout = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// CORS belongs to the reverse proxy.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Source builds the leaderboard for a sort. *api.Handler satisfies it.
type Source interface {
	Leaderboard(ctx context.Context, key ranking.Key, order ranking.Order) api.LeaderboardResponse
}

// SortRequest is what a client sends when a column header is clicked. The
// hub applies the sort cycle and answers with a "leaderboard" event.
type SortRequest struct {
	Click ranking.Key `json:"click"`
}

// Message is the JSON envelope sent to clients.
type Message struct {
	Event string                  `json:"event"`
	Data  api.LeaderboardResponse `json:"data"`
}

// Hub tracks connected clients and pushes the leaderboard to them.
type Hub struct {
	source   Source
	interval time.Duration
	notify   chan struct{}

	mu      sync.RWMutex
	clients map[*client]struct{}
}

type client struct {
	conn *websocket.Conn
	send chan []byte

	// sort is guarded by Hub.mu.
	sort ranking.State
}

// New creates a Hub that reads from source and broadcasts every interval.
// A zero interval disables the periodic push.
func New(source Source, interval time.Duration) *Hub {
	return &Hub{
		source:   source,
		interval: interval,
		notify:   make(chan struct{}, 1),
		clients:  make(map[*client]struct{}),
	}
}

// Run broadcasts on every tick and on every Notify until ctx is cancelled,
// then closes all connections.
func (h *Hub) Run(ctx context.Context) {
	var tick <-chan time.Time
	if h.interval > 0 {
		t := time.NewTicker(h.interval)
		defer t.Stop()
		tick = t.C
	}

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case <-tick:
			h.broadcast(ctx, "tick")
		case <-h.notify:
			h.broadcast(ctx, "refresh")
		}
	}
}

// Notify schedules an immediate broadcast. It never blocks; notifications
// that arrive while one is pending are merged.
func (h *Hub) Notify() {
	select {
	case h.notify <- struct{}{}:
	default:
	}
}

// ServeHTTP upgrades the connection and serves the client until it closes.
// An invalid sort is rejected with 400 before upgrading.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key, err := ranking.ParseKey(r.URL.Query().Get("sort"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	order, err := ranking.ParseOrder(r.URL.Query().Get("order"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader has already written the error response.
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, sendBufSize),
		sort: ranking.State{Column: key, Order: order},
	}
	h.register(c)
	defer h.unregister(c)

	h.push(r.Context(), c, c.sort)

	go c.writePump()
	h.readPump(r.Context(), c)
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// --- internal ---------------------------------------------------------------

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

func (h *Hub) broadcast(ctx context.Context, event string) {
	h.mu.RLock()
	bySort := make(map[ranking.State][]*client)
	for c := range h.clients {
		bySort[c.sort] = append(bySort[c.sort], c)
	}
	h.mu.RUnlock()

	// One build per distinct sort.
	for sort, clients := range bySort {
		data, err := h.buildMessage(ctx, event, sort)
		if err != nil {
			slog.Error("ws: build leaderboard failed", "sort", sort.Column, "err", err)
			return
		}
		for _, c := range clients {
			h.trySend(c, data)
		}
	}
}

// push sends c the leaderboard ranked by sort.
func (h *Hub) push(ctx context.Context, c *client, sort ranking.State) {
	data, err := h.buildMessage(ctx, "leaderboard", sort)
	if err != nil {
		slog.Error("ws: build leaderboard failed", "sort", sort.Column, "err", err)
		return
	}
	h.trySend(c, data)
}

// click advances c's sort as if header were clicked and returns the new sort.
func (h *Hub) click(c *client, header ranking.Key) ranking.State {
	h.mu.Lock()
	defer h.mu.Unlock()
	c.sort = ranking.Next(c.sort, header)
	return c.sort
}

// trySend queues data for c, dropping the client when its buffer is full.
func (h *Hub) trySend(c *client, data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	select {
	case c.send <- data:
	default:
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) buildMessage(ctx context.Context, event string, sort ranking.State) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, buildTimeout)
	defer cancel()
	return json.Marshal(Message{
		Event: event,
		Data:  h.source.Leaderboard(ctx, sort.Column, sort.Order),
	})
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
}

// writePump drains the send channel to the connection and sends pings.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)) //nolint:errcheck
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{}) //nolint:errcheck
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)) //nolint:errcheck
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump applies sort requests from c until the connection drops.
// Malformed requests are ignored.
func (h *Hub) readPump(ctx context.Context, c *client) {
	defer c.conn.Close()
	c.conn.SetReadLimit(maxRequestBytes)
	c.conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:errcheck
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var req SortRequest
		if err := json.Unmarshal(raw, &req); err != nil || req.Click == "" {
			continue
		}
		header, err := ranking.ParseKey(string(req.Click))
		if err != nil {
			slog.Debug("ws: ignoring sort request", "click", req.Click, "err", err)
			continue
		}
		h.push(ctx, c, h.click(c, header))
	}
}
