package transport

import (
	"context"
	"math/rand"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/buzzboard/backend/internal/v1/game"
	"github.com/buzzboard/backend/internal/v1/logging"
	"github.com/buzzboard/backend/internal/v1/metrics"
	"github.com/buzzboard/backend/internal/v1/ratelimit"
	"github.com/buzzboard/backend/internal/v1/store"
	"github.com/buzzboard/backend/internal/v1/types"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	roomCodeLength  = 4
	roomCodeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	maxCodeAttempts = 64
)

// Hub is the transport gateway and room registry in one: it owns the
// WebSocket upgrade path, maps room codes to room actors, tracks which
// connections belong to which room, and reaps expired rooms.
//
// The Hub mutex protects only the registry maps; each room serialises its
// own state independently.
type Hub struct {
	mu    sync.Mutex
	rooms map[types.RoomCode]*game.Room
	conns map[types.RoomCode]map[*Client]struct{}

	store          store.GameStore
	rateLimiter    *ratelimit.RateLimiter
	roomOpts       game.Options
	pingInterval   time.Duration
	pongTimeout    time.Duration
	roomGrace      time.Duration
	allowedOrigins []string

	reaperStop chan struct{}
	reaperDone chan struct{}
}

// HubOptions configures a Hub.
type HubOptions struct {
	Store          store.GameStore
	RateLimiter    *ratelimit.RateLimiter
	RoomOptions    game.Options
	PingInterval   time.Duration
	PongTimeout    time.Duration
	RoomGrace      time.Duration
	AllowedOrigins []string
}

// NewHub creates a Hub and starts its reaper loop.
func NewHub(opts HubOptions) *Hub {
	h := &Hub{
		rooms:          make(map[types.RoomCode]*game.Room),
		conns:          make(map[types.RoomCode]map[*Client]struct{}),
		store:          opts.Store,
		rateLimiter:    opts.RateLimiter,
		roomOpts:       opts.RoomOptions,
		pingInterval:   opts.PingInterval,
		pongTimeout:    opts.PongTimeout,
		roomGrace:      opts.RoomGrace,
		allowedOrigins: opts.AllowedOrigins,
		reaperStop:     make(chan struct{}),
		reaperDone:     make(chan struct{}),
	}

	go h.reapLoop()
	return h
}

// ServeWs upgrades an HTTP request to a WebSocket connection. The connection
// stays unbound until its joinRoom handshake.
func (h *Hub) ServeWs(c *gin.Context) {
	if h.rateLimiter != nil && !h.rateLimiter.CheckWebSocket(c) {
		return // response already written
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true // non-browser clients
			}
			originURL, err := url.Parse(origin)
			if err != nil {
				return false
			}
			for _, allowed := range h.allowedOrigins {
				allowedURL, err := url.Parse(allowed)
				if err != nil {
					continue
				}
				if originURL.Scheme == allowedURL.Scheme && originURL.Host == allowedURL.Host {
					return true
				}
			}
			return false
		},
		WriteBufferPool: &sync.Pool{
			New: func() any {
				return make([]byte, 4096)
			},
		},
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logging.Error(c.Request.Context(), "Failed to upgrade connection", zap.Error(err))
		return
	}

	h.HandleConnection(conn)
}

// HandleConnection wires an established WebSocket into the gateway.
func (h *Hub) HandleConnection(conn wsConnection) *Client {
	client := newClient(conn, h, uuid.NewString())
	metrics.IncConnection()

	go client.writePump()
	go client.readPump()
	return client
}

// --- Registry ---

// createOrJoinHost returns the room for a host join: an existing room when a
// code is given, otherwise a fresh room under a random collision-free code.
func (h *Hub) createOrJoinHost(code types.RoomCode) (*game.Room, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if code != "" {
		if err := validateRoomCode(code); err != nil {
			return nil, err
		}
		if room, ok := h.rooms[code]; ok {
			return room, nil
		}
		return h.createRoomLocked(code), nil
	}

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		candidate := randomRoomCode()
		if _, taken := h.rooms[candidate]; !taken {
			return h.createRoomLocked(candidate), nil
		}
	}
	return nil, &registryExhaustedError{}
}

func (h *Hub) createRoomLocked(code types.RoomCode) *game.Room {
	room := game.NewRoom(code, h, h.roomOpts)
	h.rooms[code] = room
	h.conns[code] = make(map[*Client]struct{})
	metrics.ActiveRooms.Inc()
	logging.Info(context.Background(), "Room created", zap.String("room", string(code)))
	return room
}

// lookup finds a live room by code.
func (h *Hub) lookup(code types.RoomCode) (*game.Room, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[code]
	if !ok {
		return nil, &roomNotFoundError{code: code}
	}
	return room, nil
}

// bind associates a connection with a room for broadcast fan-out.
func (h *Hub) bind(c *Client, code types.RoomCode) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.conns[code]; ok {
		set[c] = struct{}{}
		metrics.RoomParticipants.WithLabelValues(string(code)).Set(float64(len(set)))
	}
}

// unbind removes a connection's room association.
func (h *Hub) unbind(c *Client) {
	c.mu.Lock()
	code := c.roomCode
	c.room = nil
	c.roomCode = ""
	c.participantID = ""
	c.role = ""
	c.mu.Unlock()

	if code == "" {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.conns[code]; ok {
		delete(set, c)
		metrics.RoomParticipants.WithLabelValues(string(code)).Set(float64(len(set)))
	}
}

// handleDisconnect is called from the readPump when a connection dies.
func (h *Hub) handleDisconnect(c *Client) {
	room, pid, _ := c.binding()
	if room != nil {
		room.HandleDisconnect(context.Background(), pid)
	}
	h.unbind(c)
	c.Disconnect()
}

// --- game.Publisher ---

// BroadcastSnapshot fans a snapshot out to every connection in the room.
// Delivery is best-effort per connection; a slow consumer never blocks the
// room or its neighbours.
func (h *Hub) BroadcastSnapshot(code types.RoomCode, data []byte) {
	for _, c := range h.roomClients(code) {
		c.SendSnapshot(data)
	}
}

// BroadcastEvent fans a narrow event out to every connection in the room.
func (h *Hub) BroadcastEvent(code types.RoomCode, data []byte) {
	for _, c := range h.roomClients(code) {
		c.SendEvent(data)
	}
}

func (h *Hub) roomClients(code types.RoomCode) []*Client {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.conns[code]
	if !ok {
		return nil
	}
	clients := make([]*Client, 0, len(set))
	for c := range set {
		clients = append(clients, c)
	}
	return clients
}

// --- Lifecycle ---

// reapLoop periodically evicts rooms whose host has been absent past the
// grace window, or that finished and went idle.
func (h *Hub) reapLoop() {
	defer close(h.reaperDone)

	interval := h.roomGrace / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-h.reaperStop:
			return
		case <-ticker.C:
			h.reapExpired()
		}
	}
}

// reapExpired evicts every reapable room. Reapable takes the room mutex, and
// room mutations re-enter the hub through broadcast fan-out, so it must never
// run while h.mu is held.
func (h *Hub) reapExpired() {
	h.mu.Lock()
	candidates := make(map[types.RoomCode]*game.Room, len(h.rooms))
	for code, room := range h.rooms {
		candidates[code] = room
	}
	h.mu.Unlock()

	var reapable []types.RoomCode
	for code, room := range candidates {
		if room.Reapable(h.roomGrace) {
			reapable = append(reapable, code)
		}
	}
	if len(reapable) == 0 {
		return
	}

	var expired []*game.Room
	h.mu.Lock()
	for _, code := range reapable {
		if room, ok := h.rooms[code]; ok && room == candidates[code] {
			expired = append(expired, room)
			delete(h.rooms, code)
		}
	}
	h.mu.Unlock()

	for _, room := range expired {
		h.closeRoom(room, "room expired")
	}
}

func (h *Hub) closeRoom(room *game.Room, reason string) {
	code := room.Code()
	room.Shutdown()

	h.mu.Lock()
	set := h.conns[code]
	delete(h.conns, code)
	h.mu.Unlock()

	for c := range set {
		c.sendError(reason)
		c.Disconnect()
	}

	metrics.ActiveRooms.Dec()
	metrics.RoomParticipants.DeleteLabelValues(string(code))
	logging.Info(context.Background(), "Room removed", zap.String("room", string(code)), zap.String("reason", reason))
}

// Shutdown stops the reaper and closes every room and connection.
func (h *Hub) Shutdown(ctx context.Context) error {
	close(h.reaperStop)
	select {
	case <-h.reaperDone:
	case <-ctx.Done():
		return ctx.Err()
	}

	h.mu.Lock()
	rooms := make([]*game.Room, 0, len(h.rooms))
	for code, room := range h.rooms {
		rooms = append(rooms, room)
		delete(h.rooms, code)
	}
	h.mu.Unlock()

	for _, room := range rooms {
		h.closeRoom(room, "server shutting down")
	}

	logging.Info(ctx, "All rooms closed", zap.Int("count", len(rooms)))
	return nil
}

// --- helpers ---

func randomRoomCode() types.RoomCode {
	b := make([]byte, roomCodeLength)
	for i := range b {
		b[i] = roomCodeCharset[rand.Intn(len(roomCodeCharset))]
	}
	return types.RoomCode(b)
}

func validateRoomCode(code types.RoomCode) error {
	if len(code) != roomCodeLength {
		return &invalidRoomCodeError{code: code}
	}
	for i := 0; i < len(code); i++ {
		ch := code[i]
		if (ch < 'A' || ch > 'Z') && (ch < '0' || ch > '9') {
			return &invalidRoomCodeError{code: code}
		}
	}
	return nil
}

type roomNotFoundError struct {
	code types.RoomCode
}

func (e *roomNotFoundError) Error() string {
	return "not found: no room with code " + string(e.code)
}

type invalidRoomCodeError struct {
	code types.RoomCode
}

func (e *invalidRoomCodeError) Error() string {
	return "validation error: room codes are 4 uppercase alphanumeric characters"
}

type registryExhaustedError struct{}

func (e *registryExhaustedError) Error() string {
	return "could not allocate a unique room code"
}

var _ game.Publisher = (*Hub)(nil)
