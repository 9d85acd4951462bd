package game

import (
	"context"
	"time"

	"github.com/buzzboard/backend/internal/v1/protocol"
	"github.com/buzzboard/backend/internal/v1/types"
	"go.uber.org/zap"

	"github.com/buzzboard/backend/internal/v1/logging"
)

// Round/board engine: clue grids, selection policy, reading-delay unlock,
// and scoring.

// boardLocked returns the grid for the current regular round.
func (r *Room) boardLocked() *types.Board {
	if r.config == nil {
		return nil
	}
	switch r.currentRound {
	case types.RoundFirst:
		return &r.config.FirstRound
	case types.RoundDouble:
		return &r.config.DoubleRound
	default:
		return nil
	}
}

// findClueLocked resolves category/clue ids against the current board.
func (r *Room) findClueLocked(categoryID, clueID string) (catIdx, clueIdx int, clue *types.Clue, err error) {
	board := r.boardLocked()
	if board == nil {
		return 0, 0, nil, stateErrf("no board in play")
	}
	for ci := range board.Categories {
		if board.Categories[ci].ID != categoryID {
			continue
		}
		for qi := range board.Categories[ci].Clues {
			if board.Categories[ci].Clues[qi].ID == clueID {
				return ci, qi, &board.Categories[ci].Clues[qi], nil
			}
		}
		return 0, 0, nil, notFoundErrf("unknown clue %s in category %s", clueID, categoryID)
	}
	return 0, 0, nil, notFoundErrf("unknown category %s", categoryID)
}

// selectedClueLocked returns the clue struct the selection points at.
func (r *Room) selectedClueLocked() *types.Clue {
	if r.selected == nil {
		return nil
	}
	board := r.boardLocked()
	if board == nil {
		return nil
	}
	return &board.Categories[r.selected.catIdx].Clues[r.selected.clueIdx]
}

// SelectClue reveals a clue: selecting to clue_revealed, clears buzz state,
// locks buzzers, and schedules the reading-delay unlock. Selecting an
// already-revealed clue is rejected, which also makes UI double-clicks safe.
func (r *Room) SelectClue(ctx context.Context, senderID types.ParticipantID, categoryID, clueID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.requireHostLocked(senderID); err != nil {
		return err
	}
	if r.status != types.StatusSelecting {
		return stateErrf("cannot select a clue while %s", r.status)
	}

	catIdx, clueIdx, clue, err := r.findClueLocked(categoryID, clueID)
	if err != nil {
		return err
	}
	if clue.Answered {
		return stateErrf("clue already answered")
	}
	if clue.Revealed {
		return stateErrf("clue already revealed")
	}

	clue.Revealed = true
	r.selected = &selectedClue{categoryID: categoryID, clueID: clueID, catIdx: catIdx, clueIdx: clueIdx}
	r.clearBuzzStateLocked()
	r.buzzerLocked = true
	r.setStatusLocked(types.StatusClueRevealed)

	delay := SpeakingTime(clue.Prompt)
	r.scheduleUnlockLocked(delay)

	logging.Info(ctx, "Clue selected",
		zap.String("room", string(r.code)),
		zap.String("clueId", clueID),
		zap.Int("value", clue.Value),
		zap.Duration("readingDelay", delay))

	r.publishStateLocked()
	return nil
}

// clearBuzzStateLocked resets all per-clue buzz bookkeeping. The fairness
// memory (notPickedInTies) survives on purpose.
func (r *Room) clearBuzzStateLocked() {
	r.cancelTimersLocked()
	r.buzzLog = nil
	r.buzzerOrderRaw = nil
	r.displayBuzzerOrder = nil
	r.judged = make(map[types.ParticipantID]bool)
	r.currentPlayer = nil
	for _, p := range r.participants {
		p.BuzzedAt = nil
	}
}

// scheduleUnlockLocked arms the single-shot reading timer. The captured
// sequence number suppresses the unlock if the host moves on first.
func (r *Room) scheduleUnlockLocked(delay time.Duration) {
	seq := r.clueSeq
	r.unlockTimer = time.AfterFunc(delay, func() {
		r.unlockBuzzer(seq)
	})
}

// unlockBuzzer is the timer entry point for clue_revealed → buzzing.
func (r *Room) unlockBuzzer(seq int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if seq != r.clueSeq || r.status != types.StatusClueRevealed {
		return
	}

	r.setStatusLocked(types.StatusBuzzing)
	r.buzzerLocked = false
	r.publishEventLocked(protocol.EncodeBuzzerLocked(false))
	r.publishStateLocked()
}

// RevealAnswer surfaces the expected response: any of the live-clue states
// may move to judging.
func (r *Room) RevealAnswer(ctx context.Context, senderID types.ParticipantID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.requireHostLocked(senderID); err != nil {
		return err
	}
	switch r.status {
	case types.StatusClueRevealed, types.StatusBuzzing, types.StatusAnswering, types.StatusJudging:
	default:
		return stateErrf("cannot reveal the answer while %s", r.status)
	}

	r.cancelTimersLocked()
	r.buzzerLocked = true
	r.currentPlayer = nil
	r.setStatusLocked(types.StatusJudging)
	r.publishEventLocked(protocol.EncodeBuzzerLocked(true))
	r.publishStateLocked()
	return nil
}

// ReturnToBoard clears the selection: → selecting with buzzers locked.
func (r *Room) ReturnToBoard(ctx context.Context, senderID types.ParticipantID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.requireHostLocked(senderID); err != nil {
		return err
	}
	switch r.status {
	case types.StatusClueRevealed, types.StatusBuzzing, types.StatusAnswering, types.StatusJudging:
	default:
		return stateErrf("cannot return to board while %s", r.status)
	}

	r.selected = nil
	r.clearBuzzStateLocked()
	r.buzzerLocked = true
	r.setStatusLocked(types.StatusSelecting)
	r.publishEventLocked(protocol.EncodeBuzzerLocked(true))
	r.publishStateLocked()
	return nil
}

// UpdateScore applies a host-issued delta. Never changes status.
func (r *Room) UpdateScore(ctx context.Context, senderID types.ParticipantID, playerID types.ParticipantID, delta int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.requireHostLocked(senderID); err != nil {
		return err
	}
	p, err := r.participantLocked(playerID)
	if err != nil {
		return err
	}
	if p.Role != types.RolePlayer {
		return validationErrf("%s is not a player", playerID)
	}

	p.Score += delta
	logging.Info(ctx, "Host adjusted score",
		zap.String("room", string(r.code)),
		zap.String("playerId", string(playerID)),
		zap.Int("delta", delta))
	r.publishStateLocked()
	return nil
}
