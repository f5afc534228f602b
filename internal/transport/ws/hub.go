// Package ws streams reply turns over WebSocket connections.
package ws

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/infernodragon456/travel-chat-app/internal/metrics"
)

var (
	// ErrBufferFull is returned when a connection's send buffer is full.
	ErrBufferFull = errors.New("send buffer full")
	// ErrHubClosed is returned by Register once Run has returned.
	ErrHubClosed = errors.New("hub closed")
)

// Connection represents a single WebSocket connection.
type Connection struct {
	ID   string
	Conn *websocket.Conn
	Send chan []byte

	mu     sync.Mutex // guards writes on Conn
	turnMu sync.Mutex
	turnID string
	cancel context.CancelFunc
}

// Hub tracks open connections.
type Hub struct {
	connections map[string]*Connection

	register   chan *Connection
	unregister chan *Connection
	done       chan struct{}

	mu     sync.RWMutex
	logger zerolog.Logger
}

// NewHub creates a new Hub.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		connections: make(map[string]*Connection),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		done:        make(chan struct{}),
		logger:      logger.With().Str("component", "ws_hub").Logger(),
	}
}

// Run starts the hub's main loop and returns when ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			h.connections[conn.ID] = conn
			h.mu.Unlock()
			metrics.WSConnections.Inc()
			h.logger.Debug().Str("conn_id", conn.ID).Msg("connection registered")

		case conn := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.connections[conn.ID]; ok {
				delete(h.connections, conn.ID)
				conn.cancelTurn()
				close(conn.Send)
				metrics.WSConnections.Dec()
			}
			h.mu.Unlock()
			h.logger.Debug().Str("conn_id", conn.ID).Msg("connection unregistered")

		case <-ctx.Done():
			h.mu.Lock()
			for id, conn := range h.connections {
				conn.cancelTurn()
				close(conn.Send)
				delete(h.connections, id)
				metrics.WSConnections.Dec()
			}
			h.mu.Unlock()
			return
		}
	}
}

// NewConnection creates a connection for an upgraded socket.
func (h *Hub) NewConnection(ws *websocket.Conn) *Connection {
	return &Connection{
		ID:   uuid.New().String(),
		Conn: ws,
		Send: make(chan []byte, 256),
	}
}

// Register registers a connection with the hub.
func (h *Hub) Register(conn *Connection) error {
	select {
	case h.register <- conn:
		return nil
	case <-h.done:
		return ErrHubClosed
	}
}

// Unregister unregisters a connection from the hub. After Run has returned
// every connection is already gone and this is a no-op.
func (h *Hub) Unregister(conn *Connection) {
	select {
	case h.unregister <- conn:
	case <-h.done:
	}
}

// SendJSON queues a JSON message on a connection. It reports ErrBufferFull
// instead of blocking a slow reader.
func (h *Hub) SendJSON(conn *Connection, v any) error {
	data, err := sonic.Marshal(v)
	if err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.connections[conn.ID]; !ok {
		return websocket.ErrCloseSent
	}
	select {
	case conn.Send <- data:
		return nil
	default:
		return ErrBufferFull
	}
}

// ConnectionCount returns the number of active connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// beginTurn marks a turn in flight. It fails if one already is.
func (c *Connection) beginTurn(turnID string, cancel context.CancelFunc) bool {
	c.turnMu.Lock()
	defer c.turnMu.Unlock()
	if c.cancel != nil {
		return false
	}
	c.turnID = turnID
	c.cancel = cancel
	return true
}

func (c *Connection) endTurn(turnID string) {
	c.turnMu.Lock()
	defer c.turnMu.Unlock()
	if c.turnID == turnID {
		c.turnID = ""
		c.cancel = nil
	}
}

// cancelTurn aborts the in-flight turn, if any.
func (c *Connection) cancelTurn() {
	c.turnMu.Lock()
	defer c.turnMu.Unlock()
	if c.cancel != nil {
		c.cancel()
	}
}

// WriteMessage writes a message to the connection with proper locking.
func (c *Connection) WriteMessage(messageType int, data []byte, timeout time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.Conn.SetWriteDeadline(time.Now().Add(timeout))
	return c.Conn.WriteMessage(messageType, data)
}

// Close closes the connection.
func (c *Connection) Close() error {
	return c.Conn.Close()
}
