package game

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/buzzboard/backend/internal/v1/types"
	"github.com/stretchr/testify/require"
)

// mockPublisher records every broadcast for assertions.
type mockPublisher struct {
	mu        sync.Mutex
	snapshots [][]byte
	events    [][]byte
}

func (m *mockPublisher) BroadcastSnapshot(code types.RoomCode, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots = append(m.snapshots, data)
}

func (m *mockPublisher) BroadcastEvent(code types.RoomCode, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, data)
}

func (m *mockPublisher) snapshotCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.snapshots)
}

func (m *mockPublisher) eventCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

// fakeClock is a manually advanced clock for deterministic timing tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// testConfig builds a minimal valid game: six categories of five clues per
// round plus a final clue.
func testConfig() *types.GameConfig {
	cfg := &types.GameConfig{
		ID:        "game-1",
		CreatedAt: 1700000000000,
		FinalRound: types.FinalRound{
			CategoryName: "World Capitals",
			Prompt:       "This city on the Baltic is the capital of Estonia",
			Response:     "What is Tallinn?",
		},
	}
	for round, base := range map[*types.Board]int{&cfg.FirstRound: 200, &cfg.DoubleRound: 400} {
		for ci := 0; ci < types.CategoriesPerRound; ci++ {
			cat := types.Category{
				ID:   fmt.Sprintf("cat-%d-%d", base, ci),
				Name: fmt.Sprintf("Category %d", ci+1),
			}
			for qi := 0; qi < types.CluesPerCategory; qi++ {
				cat.Clues = append(cat.Clues, types.Clue{
					ID:       fmt.Sprintf("clue-%d-%d-%d", base, ci, qi),
					Value:    base * (qi + 1),
					Prompt:   fmt.Sprintf("Prompt %d in category %d", qi+1, ci+1),
					Response: fmt.Sprintf("Response %d", qi+1),
				})
			}
			round.Categories = append(round.Categories, cat)
		}
	}
	return cfg
}

// testRoom returns a room with a host and n players joined, plus handles to
// everything a test needs.
type testRoom struct {
	room    *Room
	pub     *mockPublisher
	clock   *fakeClock
	hostID  types.ParticipantID
	players []types.ParticipantID
}

func newTestRoom(t *testing.T, playerCount int) *testRoom {
	t.Helper()
	ctx := context.Background()

	pub := &mockPublisher{}
	clock := newFakeClock()
	room := NewRoom("TEST", pub, DefaultOptions())
	room.setNow(clock.Now)
	t.Cleanup(room.Shutdown)

	hostID, _, err := room.Join(ctx, "Alex", types.RoleHost, "")
	require.NoError(t, err)

	var players []types.ParticipantID
	for i := 0; i < playerCount; i++ {
		id, _, err := room.Join(ctx, fmt.Sprintf("Player %d", i+1), types.RolePlayer, "")
		require.NoError(t, err)
		players = append(players, id)
	}

	return &testRoom{room: room, pub: pub, clock: clock, hostID: hostID, players: players}
}

// startGame loads a config and moves to selecting.
func (tr *testRoom) startGame(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, tr.room.LoadGame(ctx, tr.hostID, testConfig()))
	require.NoError(t, tr.room.StartGame(ctx, tr.hostID))
}

// openClue selects the given clue and force-fires the reading timer so the
// room lands in buzzing without waiting out the speaking delay.
func (tr *testRoom) openClue(t *testing.T, categoryID, clueID string) {
	t.Helper()
	require.NoError(t, tr.room.SelectClue(context.Background(), tr.hostID, categoryID, clueID))

	tr.room.mu.Lock()
	seq := tr.room.clueSeq
	if tr.room.unlockTimer != nil {
		tr.room.unlockTimer.Stop()
	}
	tr.room.mu.Unlock()
	tr.room.unlockBuzzer(seq)
}

// buzz records a buzz at the current fake time, advancing the clock by gap
// first. The armed tie timer is disarmed; tests resolve ties explicitly.
func (tr *testRoom) buzz(t *testing.T, player types.ParticipantID, gap time.Duration) {
	t.Helper()
	tr.clock.Advance(gap)
	require.NoError(t, tr.room.Buzz(context.Background(), player, tr.clock.Now().UnixMilli()))

	tr.room.mu.Lock()
	if tr.room.tieTimer != nil {
		tr.room.tieTimer.Stop()
	}
	tr.room.mu.Unlock()
}

// resolveTie fires the tie-window expiry by hand.
func (tr *testRoom) resolveTie(t *testing.T) {
	t.Helper()
	tr.room.mu.Lock()
	seq := tr.room.clueSeq
	tr.room.mu.Unlock()
	tr.room.resolveTie(seq)
}

func (tr *testRoom) firstClue() (categoryID, clueID string) {
	return "cat-200-0", "clue-200-0-0"
}
