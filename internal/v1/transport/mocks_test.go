package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/buzzboard/backend/internal/v1/game"
	"github.com/buzzboard/backend/internal/v1/store"
	"github.com/buzzboard/backend/internal/v1/types"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

// mockConn scripts a WebSocket: frames pushed into inbound come out of
// ReadMessage; everything written is recorded for assertions.
type mockConn struct {
	inbound chan []byte

	mu     sync.Mutex
	writes [][]byte

	closed    chan struct{}
	closeOnce sync.Once
}

func newMockConn() *mockConn {
	return &mockConn{
		inbound: make(chan []byte, 16),
		closed:  make(chan struct{}),
	}
}

func (m *mockConn) ReadMessage() (int, []byte, error) {
	select {
	case data, ok := <-m.inbound:
		if !ok {
			return 0, nil, errors.New("connection closed")
		}
		return websocket.TextMessage, data, nil
	case <-m.closed:
		return 0, nil, errors.New("connection closed")
	}
}

func (m *mockConn) WriteMessage(messageType int, data []byte) error {
	select {
	case <-m.closed:
		return errors.New("connection closed")
	default:
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes = append(m.writes, append([]byte{}, data...))
	return nil
}

func (m *mockConn) Close() error {
	m.closeOnce.Do(func() { close(m.closed) })
	return nil
}

func (m *mockConn) SetWriteDeadline(t time.Time) error { return nil }

func (m *mockConn) send(t *testing.T, frame string) {
	t.Helper()
	select {
	case m.inbound <- []byte(frame):
	case <-time.After(time.Second):
		t.Fatal("mock connection inbound buffer stuck")
	}
}

func (m *mockConn) isClosed() bool {
	select {
	case <-m.closed:
		return true
	default:
		return false
	}
}

// waitForFrame polls the recorded writes for the first frame of the wanted
// type and returns it decoded into a generic map.
func (m *mockConn) waitForFrame(t *testing.T, frameType string) map[string]any {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		m.mu.Lock()
		for _, w := range m.writes {
			var frame map[string]any
			if json.Unmarshal(w, &frame) == nil && frame["type"] == frameType {
				m.mu.Unlock()
				return frame
			}
		}
		m.mu.Unlock()
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("no %q frame arrived", frameType)
	return nil
}

func newTestHub(t *testing.T) *Hub {
	t.Helper()

	fsStore, err := store.NewFilesystemStore(t.TempDir())
	require.NoError(t, err)

	hub := NewHub(HubOptions{
		Store:          fsStore,
		RoomOptions:    game.DefaultOptions(),
		PingInterval:   time.Minute, // heartbeat quiet unless a test wants it
		PongTimeout:    2 * time.Minute,
		RoomGrace:      time.Minute,
		AllowedOrigins: []string{"http://localhost:3000"},
	})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		require.NoError(t, hub.Shutdown(ctx))
	})
	return hub
}

// connect wires a mock connection into the hub and returns both halves.
func connect(t *testing.T, hub *Hub) (*mockConn, *Client) {
	t.Helper()
	conn := newMockConn()
	client := hub.HandleConnection(conn)
	t.Cleanup(func() { _ = conn.Close() })
	return conn, client
}

// joinAsHost performs the handshake and returns the room code and host id.
func joinAsHost(t *testing.T, conn *mockConn) (types.RoomCode, types.ParticipantID) {
	t.Helper()
	conn.send(t, `{"type":"joinRoom","playerName":"Alex","role":"host"}`)
	frame := conn.waitForFrame(t, "roomJoined")
	code, _ := frame["roomId"].(string)
	pid, _ := frame["playerId"].(string)
	require.NotEmpty(t, code)
	require.NotEmpty(t, pid)
	return types.RoomCode(code), types.ParticipantID(pid)
}

// testConfigJSON marshals a valid two-round config for loadGame frames.
func testConfigJSON(t *testing.T) string {
	t.Helper()
	cfg := types.GameConfig{
		ID: "game-wire",
		FinalRound: types.FinalRound{
			CategoryName: "Capitals",
			Prompt:       "Final prompt",
			Response:     "Final response",
		},
	}
	for round, base := range map[*types.Board]int{&cfg.FirstRound: 200, &cfg.DoubleRound: 400} {
		for ci := 0; ci < types.CategoriesPerRound; ci++ {
			cat := types.Category{ID: fmt.Sprintf("cat-%d-%d", base, ci), Name: "Category"}
			for qi := 0; qi < types.CluesPerCategory; qi++ {
				cat.Clues = append(cat.Clues, types.Clue{
					ID:       fmt.Sprintf("cat-%d-%d-q%d", base, ci, qi),
					Value:    base * (qi + 1),
					Prompt:   "A prompt",
					Response: "A response",
				})
			}
			round.Categories = append(round.Categories, cat)
		}
	}
	data, err := json.Marshal(cfg)
	require.NoError(t, err)
	return string(data)
}
