// Package stream pushes state changes and notifications to dashboard
// clients over WebSocket.
package stream

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/kickoff-ai/core/pkg/logger"
	"github.com/kickoff-ai/core/pkg/models"
	"github.com/kickoff-ai/core/pkg/orchestrator"
)

// Config holds WebSocket connection settings
type Config struct {
	WriteTimeout   time.Duration
	ReadTimeout    time.Duration
	PingInterval   time.Duration
	MaxMessageSize int64
	SendBuffer     int
	CheckOrigin    func(r *http.Request) bool
}

func DefaultConfig() Config {
	return Config{
		WriteTimeout:   10 * time.Second,
		ReadTimeout:    60 * time.Second,
		PingInterval:   30 * time.Second,
		MaxMessageSize: 1024,
		SendBuffer:     64,
		CheckOrigin:    func(r *http.Request) bool { return true },
	}
}

// Message is the frame sent to clients
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// StateSource provides the state sent to a client right after it connects
type StateSource interface {
	Snapshot() orchestrator.State
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// Hub fans messages out to every connected client. A client whose buffer
// is full is disconnected rather than allowed to slow the others.
type Hub struct {
	upgrader websocket.Upgrader
	config   Config
	state    StateSource
	logger   *logger.Logger

	mu      sync.RWMutex
	clients map[*client]struct{}
}

func NewHub(state StateSource, config Config, log *logger.Logger) *Hub {
	if config.SendBuffer <= 0 {
		config.SendBuffer = DefaultConfig().SendBuffer
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     config.CheckOrigin,
		},
		config:  config,
		state:   state,
		logger:  log,
		clients: make(map[*client]struct{}),
	}
}

// Run forwards state changes until ctx is done or changes closes
func (h *Hub) Run(ctx context.Context, changes <-chan orchestrator.StateChange) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case change, ok := <-changes:
			if !ok {
				h.closeAll()
				return
			}
			h.Broadcast(Message{Type: string(change.Reason), Payload: change.State})
		}
	}
}

// Notify broadcasts a notification; it matches notify.Center.OnNotify
func (h *Hub) Notify(n models.AppNotification) {
	h.Broadcast(Message{Type: "notification", Payload: n})
}

func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error().Err(err).Str("action", "stream_marshal_failed").Msg("Failed to marshal stream message")
		return
	}

	// sends happen under the read lock so unregister cannot close a channel mid-send
	var slow []*client
	h.mu.RLock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.logger.Warn().
			Str("action", "stream_client_slow").
			Str("connection_id", c.id).
			Msg("Send buffer full, closing connection")
		h.unregister(c)
	}
}

// Clients returns the number of connected clients
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeWS handles GET /ws
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Str("action", "stream_upgrade_failed").Msg("Failed to upgrade WebSocket connection")
		return
	}

	c := &client{
		id:   uuid.New().String(),
		conn: conn,
		send: make(chan []byte, h.config.SendBuffer),
	}

	if h.state != nil {
		if data, err := json.Marshal(Message{Type: "snapshot", Payload: h.state.Snapshot()}); err == nil {
			c.send <- data
		}
	}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	total := len(h.clients)
	h.mu.Unlock()

	h.logger.Info().
		Str("action", "stream_connected").
		Str("connection_id", c.id).
		Int("total_connections", total).
		Msg("WebSocket connection established")

	go h.writePump(c)
	go h.readPump(c)
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()

	if ok {
		h.logger.Info().Str("action", "stream_disconnected").Str("connection_id", c.id).Msg("WebSocket connection closed")
	}
}

func (h *Hub) closeAll() {
	h.mu.RLock()
	targets := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		h.unregister(c)
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(h.config.PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
		h.unregister(c)
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				h.logger.Debug().Err(err).Str("connection_id", c.id).Msg("Failed to write WebSocket message")
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump only services control frames; clients do not send commands
func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(h.config.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(h.config.ReadTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(h.config.ReadTimeout))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug().Err(err).Str("connection_id", c.id).Msg("Unexpected WebSocket close")
			}
			return
		}
	}
}
