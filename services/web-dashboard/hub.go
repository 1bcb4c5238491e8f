package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/HorusvsSet08/EspHorusWeb3/internal/telemetry"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Frame is one JSON message pushed to the browser.
//
//	{"type":"value","target":"temp","text":"21.3 °C"}
//	{"type":"status","status":"connected","staleness_ms":1200}
type Frame struct {
	Type        string            `json:"type"`
	Target      string            `json:"target,omitempty"`
	Text        string            `json:"text,omitempty"`
	Status      *telemetry.Status `json:"status,omitempty"`
	StalenessMS *int64            `json:"staleness_ms,omitempty"`
}

func valueFrame(target, text string) Frame {
	return Frame{Type: "value", Target: target, Text: text}
}

func statusFrame(s telemetry.Snapshot) Frame {
	st := s.Status
	return Frame{Type: "status", Status: &st, StalenessMS: s.StalenessMS}
}

// Hub fans frames out to every connected browser. Only Run touches the
// client set.
type Hub struct {
	clients    map[*wsClient]bool
	broadcast  chan Frame
	register   chan *wsClient
	unregister chan *wsClient
	logger     *slog.Logger

	// welcome builds the frames a new client gets before live traffic.
	welcome func() []Frame
	done    chan struct{}

	mu    sync.RWMutex
	count int
}

type wsClient struct {
	hub  *Hub
	conn *websocket.Conn
	send chan Frame
}

// NewHub creates a hub; start it with Run.
func NewHub(logger *slog.Logger, welcome func() []Frame) *Hub {
	return &Hub{
		clients:    make(map[*wsClient]bool),
		broadcast:  make(chan Frame, 256),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		logger:     logger,
		welcome:    welcome,
		done:       make(chan struct{}),
	}
}

// Run serves register/unregister/broadcast until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.setCount(0)
			return

		case c := <-h.register:
			h.clients[c] = true
			h.setCount(len(h.clients))
			h.logger.Debug("websocket client connected", "clients", len(h.clients))
			if h.welcome != nil {
				for _, f := range h.welcome() {
					if !h.deliver(c, f) {
						break
					}
				}
			}

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.setCount(len(h.clients))
			h.logger.Debug("websocket client disconnected", "clients", len(h.clients))

		case f := <-h.broadcast:
			for c := range h.clients {
				h.deliver(c, f)
			}
			h.setCount(len(h.clients))
		}
	}
}

// deliver drops a client whose buffer is full; the browser reconnects.
func (h *Hub) deliver(c *wsClient, f Frame) bool {
	select {
	case c.send <- f:
		return true
	default:
		close(c.send)
		delete(h.clients, c)
		return false
	}
}

// BroadcastValue implements ValueSink.
func (h *Hub) BroadcastValue(target, text string) {
	h.publish(valueFrame(target, text))
}

// BroadcastStatus pushes a status frame.
func (h *Hub) BroadcastStatus(s telemetry.Snapshot) {
	h.publish(statusFrame(s))
}

func (h *Hub) publish(f Frame) {
	select {
	case h.broadcast <- f:
	default:
		h.logger.Warn("websocket broadcast channel full, dropping frame", "type", f.Type)
	}
}

// ClientCount returns the number of connected browsers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

func (h *Hub) setCount(n int) {
	h.mu.Lock()
	h.count = n
	h.mu.Unlock()
}

// ServeWS upgrades the request and attaches the browser to the hub.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &wsClient{hub: h, conn: conn, send: make(chan Frame, sendBuffer)}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

// readPump only handles pongs and close; the page never sends data.
func (c *wsClient) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Debug("websocket read error", "error", err)
			}
			return
		}
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case f, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			data, err := json.Marshal(f)
			if err != nil {
				c.hub.logger.Error("marshal websocket frame", "error", err)
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
