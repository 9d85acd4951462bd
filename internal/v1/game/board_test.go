package game

import (
	"context"
	"testing"
	"time"

	"github.com/buzzboard/backend/internal/v1/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadGame_HostOnly(t *testing.T) {
	tr := newTestRoom(t, 1)

	err := tr.room.LoadGame(context.Background(), tr.players[0], testConfig())
	assert.ErrorIs(t, err, ErrRoleViolation)
}

func TestLoadGame_InvalidConfigRejected(t *testing.T) {
	tr := newTestRoom(t, 1)

	bad := testConfig()
	bad.FirstRound.Categories = bad.FirstRound.Categories[:3]
	err := tr.room.LoadGame(context.Background(), tr.hostID, bad)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, types.StatusWaiting, tr.room.State().Status)
}

func TestLoadGame_MovesToReady(t *testing.T) {
	tr := newTestRoom(t, 1)

	require.NoError(t, tr.room.LoadGame(context.Background(), tr.hostID, testConfig()))

	state := tr.room.State()
	assert.Equal(t, types.StatusReady, state.Status)
	assert.NotNil(t, state.Config)
	assert.True(t, state.BuzzerLocked)
}

func TestLoadGame_RejectedMidGame(t *testing.T) {
	tr := newTestRoom(t, 1)
	tr.startGame(t)
	cat, clue := tr.firstClue()
	tr.openClue(t, cat, clue)

	err := tr.room.LoadGame(context.Background(), tr.hostID, testConfig())
	assert.ErrorIs(t, err, ErrStateViolation)
}

func TestStartGame_RequiresReady(t *testing.T) {
	tr := newTestRoom(t, 1)

	err := tr.room.StartGame(context.Background(), tr.hostID)
	assert.ErrorIs(t, err, ErrStateViolation)
}

func TestSelectClue_RevealsAndLocks(t *testing.T) {
	tr := newTestRoom(t, 1)
	tr.startGame(t)
	cat, clue := tr.firstClue()

	require.NoError(t, tr.room.SelectClue(context.Background(), tr.hostID, cat, clue))

	state := tr.room.State()
	assert.Equal(t, types.StatusClueRevealed, state.Status)
	assert.True(t, state.BuzzerLocked)
	require.NotNil(t, state.SelectedClue)
	assert.Equal(t, clue, state.SelectedClue.ClueID)
	assert.Equal(t, 200, state.SelectedClue.Value)
	assert.True(t, state.Config.FirstRound.Categories[0].Clues[0].Revealed)
}

func TestSelectClue_PlayerForbidden(t *testing.T) {
	tr := newTestRoom(t, 1)
	tr.startGame(t)
	cat, clue := tr.firstClue()

	err := tr.room.SelectClue(context.Background(), tr.players[0], cat, clue)
	assert.ErrorIs(t, err, ErrRoleViolation)
}

func TestSelectClue_DoubleClickRejected(t *testing.T) {
	tr := newTestRoom(t, 1)
	tr.startGame(t)
	cat, clue := tr.firstClue()

	require.NoError(t, tr.room.SelectClue(context.Background(), tr.hostID, cat, clue))
	err := tr.room.SelectClue(context.Background(), tr.hostID, cat, clue)
	assert.ErrorIs(t, err, ErrStateViolation)
}

func TestSelectClue_UnknownIDs(t *testing.T) {
	tr := newTestRoom(t, 1)
	tr.startGame(t)

	err := tr.room.SelectClue(context.Background(), tr.hostID, "nope", "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	cat, _ := tr.firstClue()
	err = tr.room.SelectClue(context.Background(), tr.hostID, cat, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUnlockTimer_OpensBuzzing(t *testing.T) {
	tr := newTestRoom(t, 1)
	tr.startGame(t)
	cat, clue := tr.firstClue()
	tr.openClue(t, cat, clue)

	state := tr.room.State()
	assert.Equal(t, types.StatusBuzzing, state.Status)
	assert.False(t, state.BuzzerLocked)
}

func TestUnlockTimer_StaleSequenceIgnored(t *testing.T) {
	tr := newTestRoom(t, 1)
	tr.startGame(t)
	cat, clue := tr.firstClue()
	require.NoError(t, tr.room.SelectClue(context.Background(), tr.hostID, cat, clue))

	tr.room.mu.Lock()
	staleSeq := tr.room.clueSeq
	tr.room.mu.Unlock()

	// Host moves on before the reading timer fires.
	require.NoError(t, tr.room.ReturnToBoard(context.Background(), tr.hostID))
	tr.room.unlockBuzzer(staleSeq)

	state := tr.room.State()
	assert.Equal(t, types.StatusSelecting, state.Status)
	assert.True(t, state.BuzzerLocked)
}

func TestRevealAnswer_LocksAndMovesToJudging(t *testing.T) {
	tr := newTestRoom(t, 1)
	tr.startGame(t)
	cat, clue := tr.firstClue()
	tr.openClue(t, cat, clue)

	require.NoError(t, tr.room.RevealAnswer(context.Background(), tr.hostID))

	state := tr.room.State()
	assert.Equal(t, types.StatusJudging, state.Status)
	assert.True(t, state.BuzzerLocked)
	assert.Nil(t, state.CurrentPlayer)
}

func TestReturnToBoard_UnansweredClueStaysUnanswered(t *testing.T) {
	tr := newTestRoom(t, 1)
	tr.startGame(t)
	cat, clue := tr.firstClue()
	tr.openClue(t, cat, clue)

	require.NoError(t, tr.room.ReturnToBoard(context.Background(), tr.hostID))

	state := tr.room.State()
	assert.Equal(t, types.StatusSelecting, state.Status)
	assert.Nil(t, state.SelectedClue)
	clueState := state.Config.FirstRound.Categories[0].Clues[0]
	assert.True(t, clueState.Revealed)
	assert.False(t, clueState.Answered, "a passed clue may not be re-selected but scores as unanswered")
}

func TestUpdateScore_AppliesDelta(t *testing.T) {
	tr := newTestRoom(t, 1)
	tr.startGame(t)
	ctx := context.Background()

	require.NoError(t, tr.room.UpdateScore(ctx, tr.hostID, tr.players[0], 500))
	require.NoError(t, tr.room.UpdateScore(ctx, tr.hostID, tr.players[0], -200))

	state := tr.room.State()
	for _, p := range state.Players {
		if p.ID == tr.players[0] {
			assert.Equal(t, 300, p.Score)
		}
	}
	assert.Equal(t, types.StatusSelecting, state.Status, "manual adjustment never changes status")
}

func TestUpdateScore_TargetMustBePlayer(t *testing.T) {
	tr := newTestRoom(t, 1)
	tr.startGame(t)

	err := tr.room.UpdateScore(context.Background(), tr.hostID, tr.hostID, 100)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestNextRound_FirstToDoubleResetsBoardState(t *testing.T) {
	tr := newTestRoom(t, 2)
	tr.startGame(t)
	ctx := context.Background()
	cat, clue := tr.firstClue()
	tr.openClue(t, cat, clue)
	tr.buzz(t, tr.players[0], 10*time.Millisecond)

	require.NoError(t, tr.room.RevealAnswer(ctx, tr.hostID))
	require.NoError(t, tr.room.NextRound(ctx, tr.hostID))

	state := tr.room.State()
	assert.Equal(t, types.RoundDouble, state.CurrentRound)
	assert.Equal(t, types.StatusSelecting, state.Status)
	assert.Empty(t, state.BuzzerOrder)
	assert.Nil(t, state.SelectedClue)
}

func TestNextRound_DoubleToFinal(t *testing.T) {
	tr := newTestRoom(t, 2)
	tr.startGame(t)
	ctx := context.Background()

	require.NoError(t, tr.room.UpdateScore(ctx, tr.hostID, tr.players[0], 1000))
	require.NoError(t, tr.room.NextRound(ctx, tr.hostID))
	require.NoError(t, tr.room.NextRound(ctx, tr.hostID))

	state := tr.room.State()
	assert.Equal(t, types.RoundFinal, state.CurrentRound)
	assert.Equal(t, types.StatusFinalWagering, state.Status)
}

func TestNextRound_NoRoundAfterFinal(t *testing.T) {
	tr := newTestRoom(t, 1)
	tr.startGame(t)
	ctx := context.Background()

	require.NoError(t, tr.room.UpdateScore(ctx, tr.hostID, tr.players[0], 1000))
	require.NoError(t, tr.room.NextRound(ctx, tr.hostID))
	require.NoError(t, tr.room.NextRound(ctx, tr.hostID))

	err := tr.room.NextRound(ctx, tr.hostID)
	assert.ErrorIs(t, err, ErrStateViolation)
}

func TestState_ConfigDetachedFromLiveBoard(t *testing.T) {
	tr := newTestRoom(t, 1)
	tr.startGame(t)

	before := tr.room.State()
	catID, clueID := tr.firstClue()
	require.NoError(t, tr.room.SelectClue(context.Background(), tr.hostID, catID, clueID))

	// The earlier snapshot must not see the mutation; only a fresh one does.
	assert.False(t, before.Config.FirstRound.Categories[0].Clues[0].Revealed)
	assert.True(t, tr.room.State().Config.FirstRound.Categories[0].Clues[0].Revealed)
}

func TestConfigSnapshot_DetachedFromLiveBoard(t *testing.T) {
	tr := newTestRoom(t, 1)
	tr.startGame(t)

	saved, err := tr.room.ConfigSnapshot(tr.hostID)
	require.NoError(t, err)

	catID, clueID := tr.firstClue()
	require.NoError(t, tr.room.SelectClue(context.Background(), tr.hostID, catID, clueID))

	assert.False(t, saved.FirstRound.Categories[0].Clues[0].Revealed)
}
