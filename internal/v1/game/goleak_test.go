package game

import (
	"testing"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// TestShutdown_CancelsPendingTimers relies on TestMain's goleak verification:
// a reading or tie timer left armed after Shutdown would fire into a dead
// room and show up as a leaked goroutine.
func TestShutdown_CancelsPendingTimers(t *testing.T) {
	tr := newTestRoom(t, 2)
	tr.startGame(t)
	cat, clue := tr.firstClue()
	tr.openClue(t, cat, clue)
	tr.buzz(t, tr.players[0], 0)

	tr.room.Shutdown()
}
