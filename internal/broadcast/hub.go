package broadcast

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

const (
	// writeWait is how long a single WebSocket write may take before the
	// subscriber is considered broken.
	writeWait = 10 * time.Second

	// pongWait is the server-side read deadline; clients must answer pings
	// within it or be dropped.
	pongWait = 60 * time.Second

	// pingPeriod must be shorter than pongWait.
	pingPeriod = 25 * time.Second

	// sendBuffer is the per-subscriber outbound queue. A viewer that can't
	// drain this many events is disconnected rather than slowing everyone
	// else down.
	sendBuffer = 32
)

// Hub fans broadcast events out to connected WebSocket clients. Events
// arrive over the Redis pub/sub channel; the Hub never originates them.
type Hub struct {
	rdb     *redis.Client
	channel string

	mu   sync.Mutex
	subs map[*subscriber]struct{}

	upgrader websocket.Upgrader
}

// subscriber is one connected WebSocket client.
type subscriber struct {
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates a Hub reading events from the given Redis channel.
// Allowed origins gate the WebSocket upgrade; same-origin requests (no
// Origin header) are always accepted.
func NewHub(rdb *redis.Client, channel string, allowedOrigins []string) *Hub {
	originSet := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		originSet[o] = true
	}

	return &Hub{
		rdb:     rdb,
		channel: channel,
		subs:    make(map[*subscriber]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || originSet[origin]
			},
		},
	}
}

// Run subscribes to the Redis channel and forwards every message to all
// connected subscribers until the context is cancelled. Intended to run in
// its own goroutine for the life of the process.
func (h *Hub) Run(ctx context.Context) {
	pubsub := h.rdb.Subscribe(ctx, h.channel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	slog.Info("broadcast hub running", slog.String("channel", h.channel))

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case msg, ok := <-ch:
			if !ok {
				h.closeAll()
				return
			}
			h.fanOut([]byte(msg.Payload))
		}
	}
}

// fanOut queues a message on every subscriber. Subscribers with a full
// queue are dropped: delivery is best-effort and a stuck client must not
// block the rest.
func (h *Hub) fanOut(payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.subs {
		select {
		case sub.send <- payload:
		default:
			delete(h.subs, sub)
			close(sub.send)
			slog.Warn("dropping slow broadcast subscriber",
				slog.String("remote", sub.conn.RemoteAddr().String()),
			)
		}
	}
}

// SubscriberCount returns the number of connected clients.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// ServeWS upgrades an HTTP request to a WebSocket and registers it with
// the hub. Both the dashboard and the read-only viewer connect here; the
// server never reads application messages from clients.
// GET /ws
func (h *Hub) ServeWS(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade already wrote an HTTP error response.
		return nil
	}

	sub := &subscriber{
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}

	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()

	slog.Info("broadcast client connected",
		slog.String("remote", conn.RemoteAddr().String()),
	)

	go h.writePump(sub)
	go h.readPump(sub)
	return nil
}

// writePump drains the subscriber's queue onto the wire and keeps the
// connection alive with periodic pings.
func (h *Hub) writePump(sub *subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		sub.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-sub.send:
			sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub dropped us.
				sub.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := sub.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				h.remove(sub)
				return
			}
		case <-ticker.C:
			sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sub.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.remove(sub)
				return
			}
		}
	}
}

// readPump discards inbound messages (clients are consumers only) and
// detects disconnects.
func (h *Hub) readPump(sub *subscriber) {
	defer func() {
		h.remove(sub)
		sub.conn.Close()
	}()

	sub.conn.SetReadLimit(512)
	sub.conn.SetReadDeadline(time.Now().Add(pongWait))
	sub.conn.SetPongHandler(func(string) error {
		sub.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := sub.conn.ReadMessage(); err != nil {
			slog.Info("broadcast client disconnected",
				slog.String("remote", sub.conn.RemoteAddr().String()),
			)
			return
		}
	}
}

// remove unregisters a subscriber if still present.
func (h *Hub) remove(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[sub]; ok {
		delete(h.subs, sub)
		close(sub.send)
	}
}

// closeAll disconnects every subscriber; called on shutdown.
func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs {
		delete(h.subs, sub)
		close(sub.send)
	}
}
