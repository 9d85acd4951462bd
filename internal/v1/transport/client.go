package transport

import (
	"context"
	"sync"
	"time"

	"github.com/buzzboard/backend/internal/v1/game"
	"github.com/buzzboard/backend/internal/v1/logging"
	"github.com/buzzboard/backend/internal/v1/metrics"
	"github.com/buzzboard/backend/internal/v1/protocol"
	"github.com/buzzboard/backend/internal/v1/types"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// wsConnection defines the interface for WebSocket connection operations.
type wsConnection interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
	SetWriteDeadline(t time.Time) error
}

// Client is one persistent connection. It carries at most one
// (room, participant, role) binding, established by the joinRoom handshake.
type Client struct {
	conn wsConnection
	hub  *Hub
	id   string // connection id, for logs only

	mu            sync.RWMutex
	closed        bool
	room          *game.Room
	roomCode      types.RoomCode
	participantID types.ParticipantID
	role          types.Role
	lastPong      time.Time

	closeOnce sync.Once

	send         chan []byte // snapshots; oldest dropped when the consumer is slow
	prioritySend chan []byte // narrow events and replies; never dropped
}

const (
	writeWait          = 10 * time.Second
	sendBufferSize     = 64
	priorityBufferSize = 256
)

func newClient(conn wsConnection, hub *Hub, id string) *Client {
	return &Client{
		conn:         conn,
		hub:          hub,
		id:           id,
		lastPong:     time.Now(),
		send:         make(chan []byte, sendBufferSize),
		prioritySend: make(chan []byte, priorityBufferSize),
	}
}

// binding returns the current room binding, if any.
func (c *Client) binding() (*game.Room, types.ParticipantID, types.Role) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.room, c.participantID, c.role
}

func (c *Client) bind(room *game.Room, pid types.ParticipantID, role types.Role) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.room = room
	c.roomCode = room.Code()
	c.participantID = pid
	c.role = role
}

// Disconnect closes the send channels, which drains the writePump and closes
// the underlying connection.
func (c *Client) Disconnect() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	c.closeOnce.Do(func() {
		close(c.send)
		close(c.prioritySend)
	})
}

// readPump processes inbound frames until the connection dies.
func (c *Client) readPump() {
	defer func() {
		c.hub.handleDisconnect(c)
		_ = c.conn.Close()
		metrics.DecConnection()
	}()

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
		if messageType != websocket.TextMessage {
			continue
		}

		ctx := context.WithValue(context.Background(), logging.ConnectionIDKey, c.id)
		c.route(ctx, data)
	}
}

// writePump owns all writes: buffered messages plus the heartbeat probe. A
// missing pong evicts the connection, since a network partition will not
// reliably surface as a read error.
func (c *Client) writePump() {
	pingTicker := time.NewTicker(c.hub.pingInterval)
	defer func() {
		pingTicker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.prioritySend:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case message, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-pingTicker.C:
			c.mu.RLock()
			stale := time.Since(c.lastPong) > c.hub.pongTimeout
			c.mu.RUnlock()
			if stale {
				logging.Warn(context.Background(), "Heartbeat timed out, evicting connection", zap.String("connectionId", c.id))
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, protocol.EncodePing(time.Now().UnixMilli())); err != nil {
				return
			}
		}
	}
}

func (c *Client) markPong() {
	c.mu.Lock()
	c.lastPong = time.Now()
	c.mu.Unlock()
}

// SendSnapshot enqueues a total snapshot. When the buffer is full the oldest
// snapshot is dropped: snapshots are idempotent, the newest one wins.
func (c *Client) SendSnapshot(data []byte) {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return
	}
	c.mu.RUnlock()

	defer func() {
		if r := recover(); r != nil {
			logging.Warn(context.Background(), "Recovered from send on closed client", zap.String("connectionId", c.id))
		}
	}()

	select {
	case c.send <- data:
		return
	default:
	}

	// Make room by discarding the stalest queued snapshot.
	select {
	case <-c.send:
		metrics.DroppedSnapshots.Inc()
	default:
	}
	select {
	case c.send <- data:
	default:
		metrics.DroppedSnapshots.Inc()
	}
}

// SendEvent enqueues a narrow event or a direct reply. Events are never
// dropped; a full priority buffer means the connection is beyond saving and
// gets logged loudly.
func (c *Client) SendEvent(data []byte) {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return
	}
	c.mu.RUnlock()

	defer func() {
		if r := recover(); r != nil {
			logging.Warn(context.Background(), "Recovered from send on closed client", zap.String("connectionId", c.id))
		}
	}()

	select {
	case c.prioritySend <- data:
	default:
		logging.Error(context.Background(), "Priority buffer full - dropping critical message", zap.String("connectionId", c.id))
	}
}

// sendError delivers an error frame to this caller only.
func (c *Client) sendError(message string) {
	c.SendEvent(protocol.EncodeError(message))
}
