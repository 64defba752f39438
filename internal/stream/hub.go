// Package stream broadcasts navigator state to WebSocket clients.
package stream

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/signalsfoundry/skynav/internal/logging"
	"github.com/signalsfoundry/skynav/internal/sim"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 4
)

// Reasons reported to Recorder.IncStreamDropped.
const (
	DropThrottled  = "throttled"
	DropSlowClient = "slow_client"
)

// StateSource publishes navigator states. *sim.Engine implements it.
type StateSource interface {
	Subscribe() (<-chan sim.State, func())
}

// Recorder receives stream metrics. *observability.NavigatorCollector
// implements it.
type Recorder interface {
	SetStreamClients(n int)
	IncStreamDropped(reason string)
}

type nopRecorder struct{}

func (nopRecorder) SetStreamClients(int)    {}
func (nopRecorder) IncStreamDropped(string) {}

type client struct {
	conn    *websocket.Conn
	send    chan []byte
	limiter *rate.Limiter
}

// Hub fans published states out to connected clients, each throttled to its
// own frame rate.
type Hub struct {
	src      StateSource
	rec      Recorder
	log      logging.Logger
	upgrader websocket.Upgrader

	defaultRate rate.Limit
	maxRate     rate.Limit

	mu      sync.Mutex
	clients map[*client]struct{}
	latest  []byte
}

// Option configures a Hub.
type Option func(*Hub)

// WithRecorder attaches stream metrics.
func WithRecorder(rec Recorder) Option {
	return func(h *Hub) {
		if rec != nil {
			h.rec = rec
		}
	}
}

// WithLogger sets the hub logger.
func WithLogger(log logging.Logger) Option {
	return func(h *Hub) {
		if log != nil {
			h.log = log
		}
	}
}

// WithRate sets the default and maximum frames per second per client.
// Clients may ask for a lower or higher rate up to max with ?hz=N.
func WithRate(def, max float64) Option {
	return func(h *Hub) {
		if def > 0 {
			h.defaultRate = rate.Limit(def)
		}
		if max > 0 {
			h.maxRate = rate.Limit(max)
		}
	}
}

// NewHub returns a hub reading from src. Call Run to start broadcasting.
func NewHub(src StateSource, opts ...Option) *Hub {
	h := &Hub{
		src:         src,
		rec:         nopRecorder{},
		log:         logging.Noop(),
		defaultRate: 10,
		maxRate:     60,
		clients:     make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run broadcasts states until ctx is cancelled, then disconnects every client.
func (h *Hub) Run(ctx context.Context) error {
	states, unsubscribe := h.src.Subscribe()
	defer unsubscribe()
	defer h.closeAll()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case st, ok := <-states:
			if !ok {
				return nil
			}
			h.broadcast(ctx, st)
		}
	}
}

func (h *Hub) broadcast(ctx context.Context, st sim.State) {
	msg, err := json.Marshal(st)
	if err != nil {
		h.log.Error(ctx, "encode view frame failed", logging.Err(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.latest = msg
	for c := range h.clients {
		if !c.limiter.Allow() {
			h.rec.IncStreamDropped(DropThrottled)
			continue
		}
		select {
		case c.send <- msg:
		default:
			h.rec.IncStreamDropped(DropSlowClient)
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request to a WebSocket and streams states to it.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	limit := h.defaultRate
	if raw := r.URL.Query().Get("hz"); raw != "" {
		hz, err := strconv.ParseFloat(raw, 64)
		if err != nil || hz <= 0 {
			http.Error(w, "hz must be a positive number", http.StatusBadRequest)
			return
		}
		limit = min(rate.Limit(hz), h.maxRate)
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn(r.Context(), "websocket upgrade failed", logging.Err(err))
		return
	}

	c := &client{
		conn:    conn,
		send:    make(chan []byte, sendBuffer),
		limiter: rate.NewLimiter(limit, 1),
	}
	h.register(c)
	h.log.Info(r.Context(), "view stream client connected",
		logging.String("remote", r.RemoteAddr),
		logging.Float64("hz", float64(limit)))

	go h.writePump(c)
	h.readPump(c)
}

// register adds c and queues the latest frame for it.
func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	if h.latest != nil && c.limiter.Allow() {
		c.send <- h.latest
	}
	n := len(h.clients)
	h.mu.Unlock()
	h.rec.SetStreamClients(n)
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	close(c.send)
	n := len(h.clients)
	h.mu.Unlock()
	h.rec.SetStreamClients(n)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()
	for _, c := range clients {
		h.unregister(c)
	}
}

// readPump discards client messages and unregisters the client when the
// connection drops.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
