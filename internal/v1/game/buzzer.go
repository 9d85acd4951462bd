package game

import (
	"context"
	"time"

	"github.com/buzzboard/backend/internal/v1/logging"
	"github.com/buzzboard/backend/internal/v1/metrics"
	"github.com/buzzboard/backend/internal/v1/protocol"
	"github.com/buzzboard/backend/internal/v1/types"
	"go.uber.org/zap"
)

// Buzzer arbiter: collects buzz events, resolves the race inside the tie
// window, and advances through the judging queue on incorrect answers.
//
// Adjudication uses server receipt time only; the client timestamp is kept
// for diagnostics. Fairness memory (notPickedInTies) persists across clues
// so a player who loses a photo-finish wins the next one against the same
// opponents.

// Buzz ingests one player buzz.
func (r *Room) Buzz(ctx context.Context, senderID types.ParticipantID, clientTs int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, err := r.requirePlayerLocked(senderID)
	if err != nil {
		return err
	}

	if r.status != types.StatusBuzzing && r.status != types.StatusAnswering {
		return stateErrf("buzzer is locked")
	}

	// Duplicate buzz: the first one stands, but the client still gets a
	// success so its UI can enter the buzzed visual.
	if r.hasBuzzedLocked(senderID) {
		return nil
	}

	serverTs := r.now()
	r.buzzLog = append(r.buzzLog, buzzEntry{playerID: senderID, clientTs: clientTs, serverTs: serverTs})
	buzzedAt := serverTs.UnixMilli()
	p.BuzzedAt = &buzzedAt
	metrics.BuzzesReceived.Inc()

	// Optimistic feedback before adjudication.
	r.publishEventLocked(protocol.EncodeBuzzReceived(senderID, clientTs))

	if r.currentPlayer != nil {
		// Late buzz: only the visible queue changes, never the winner.
		r.appendDisplayOrderLocked(senderID)
		r.publishStateLocked()
		return nil
	}

	if !r.tiePending {
		r.tiePending = true
		seq := r.clueSeq
		delay := r.opts.TieWindow + r.opts.TieBuffer
		r.tieTimer = r.scheduleTie(delay, seq)
	}

	r.publishStateLocked()
	return nil
}

func (r *Room) hasBuzzedLocked(id types.ParticipantID) bool {
	for _, b := range r.buzzLog {
		if b.playerID == id {
			return true
		}
	}
	return false
}

func (r *Room) appendDisplayOrderLocked(id types.ParticipantID) {
	for _, existing := range r.displayBuzzerOrder {
		if existing == id {
			return
		}
	}
	r.displayBuzzerOrder = append(r.displayBuzzerOrder, id)
}

// scheduleTie arms the single-shot selection timer. Later buzzes extend the
// tied set but never reset the window.
func (r *Room) scheduleTie(delay time.Duration, seq int) *time.Timer {
	return time.AfterFunc(delay, func() {
		r.resolveTie(seq)
	})
}

// resolveTie is the tie-window timer entry point.
func (r *Room) resolveTie(seq int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolveTieLocked(seq)
}

func (r *Room) resolveTieLocked(seq int) {
	if seq != r.clueSeq || r.currentPlayer != nil || len(r.buzzLog) == 0 {
		return
	}
	if r.status != types.StatusBuzzing && r.status != types.StatusAnswering {
		return
	}
	r.tiePending = false

	// Tied set: every buzz whose server receipt is within the window of the
	// first. buzzLog is already in server_ts order.
	first := r.buzzLog[0].serverTs
	var tied []types.ParticipantID
	for _, b := range r.buzzLog {
		if b.serverTs.Sub(first) <= r.opts.TieWindow {
			tied = append(tied, b.playerID)
		}
	}

	// Fairness: earliest-buzzing previous tie loser wins; otherwise the
	// earliest buzz wins.
	winner := tied[0]
	fairnessApplied := false
	for _, id := range tied {
		if r.inNotPickedLocked(id) {
			winner = id
			fairnessApplied = winner != tied[0]
			break
		}
	}

	r.removeNotPickedLocked(winner)
	for _, id := range tied {
		if id != winner {
			r.addNotPickedLocked(id)
		}
	}

	// Commit: winner answers; display order is frozen with the winner first
	// and everyone else in raw buzz order.
	r.currentPlayer = &winner
	r.setStatusLocked(types.StatusAnswering)

	r.buzzerOrderRaw = r.buzzerOrderRaw[:0]
	for _, b := range r.buzzLog {
		r.buzzerOrderRaw = append(r.buzzerOrderRaw, b.playerID)
	}

	r.displayBuzzerOrder = []types.ParticipantID{winner}
	for _, b := range r.buzzLog {
		if b.playerID != winner {
			r.displayBuzzerOrder = append(r.displayBuzzerOrder, b.playerID)
		}
	}

	if fairnessApplied {
		metrics.TiesResolved.WithLabelValues("true").Inc()
	} else {
		metrics.TiesResolved.WithLabelValues("false").Inc()
	}

	logging.Info(context.Background(), "Buzzer race resolved",
		zap.String("room", string(r.code)),
		zap.String("winner", string(winner)),
		zap.Int("tiedCount", len(tied)),
		zap.Bool("fairnessApplied", fairnessApplied))

	r.publishStateLocked()
}

func (r *Room) inNotPickedLocked(id types.ParticipantID) bool {
	for _, n := range r.notPickedInTies {
		if n == id {
			return true
		}
	}
	return false
}

func (r *Room) addNotPickedLocked(id types.ParticipantID) {
	if !r.inNotPickedLocked(id) {
		r.notPickedInTies = append(r.notPickedInTies, id)
	}
}

func (r *Room) removeNotPickedLocked(id types.ParticipantID) {
	for i, n := range r.notPickedInTies {
		if n == id {
			r.notPickedInTies = append(r.notPickedInTies[:i], r.notPickedInTies[i+1:]...)
			return
		}
	}
}

// JudgeAnswer scores the named player and advances the judging queue.
func (r *Room) JudgeAnswer(ctx context.Context, senderID types.ParticipantID, playerID types.ParticipantID, correct bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.requireHostLocked(senderID); err != nil {
		return err
	}
	if r.status != types.StatusAnswering && r.status != types.StatusJudging {
		return stateErrf("cannot judge while %s", r.status)
	}
	clue := r.selectedClueLocked()
	if clue == nil {
		return stateErrf("no clue in play")
	}
	p, err := r.participantLocked(playerID)
	if err != nil {
		return err
	}
	if p.Role != types.RolePlayer {
		return validationErrf("%s is not a player", playerID)
	}
	if r.judged[playerID] {
		return stateErrf("player already judged for this clue")
	}
	if !r.hasBuzzedLocked(playerID) {
		return validationErrf("player has no recorded buzz for this clue")
	}

	if correct {
		p.Score += clue.Value
		clue.Answered = true
		r.lastCorrect = &p.ID
		r.currentPlayer = nil
		r.buzzerLocked = true
		r.cancelTimersLocked()
		r.setStatusLocked(types.StatusJudging)
		r.publishEventLocked(protocol.EncodeBuzzerLocked(true))
	} else {
		p.Score -= clue.Value
		r.judged[playerID] = true
		next := r.nextUnjudgedLocked(playerID)
		if next != nil {
			r.currentPlayer = next
			r.setStatusLocked(types.StatusAnswering)
		} else {
			r.currentPlayer = nil
			r.buzzerLocked = true
			r.setStatusLocked(types.StatusJudging)
			r.publishEventLocked(protocol.EncodeBuzzerLocked(true))
		}
	}

	logging.Info(ctx, "Answer judged",
		zap.String("room", string(r.code)),
		zap.String("playerId", string(playerID)),
		zap.Bool("correct", correct),
		zap.Int("value", clue.Value))

	r.publishStateLocked()
	return nil
}

// nextUnjudgedLocked walks the frozen display order, not the raw buzz order,
// for the next player after the one just judged.
func (r *Room) nextUnjudgedLocked(after types.ParticipantID) *types.ParticipantID {
	start := -1
	for i, id := range r.displayBuzzerOrder {
		if id == after {
			start = i
			break
		}
	}
	if start < 0 {
		return nil
	}
	for i := start + 1; i < len(r.displayBuzzerOrder); i++ {
		id := r.displayBuzzerOrder[i]
		if !r.judged[id] {
			return &id
		}
	}
	return nil
}
