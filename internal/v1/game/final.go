package game

import (
	"context"
	"sort"
	"time"

	"github.com/buzzboard/backend/internal/v1/logging"
	"github.com/buzzboard/backend/internal/v1/types"
	"go.uber.org/zap"
)

// Final-Jeopardy sub-machine: wagering → clue reading → timed answering →
// sequential judging → finished. Only players with a strictly positive score
// at Final start participate; they are judged in ascending score order.

// initFinalLocked snapshots eligibility and enters final_wagering.
func (r *Room) initFinalLocked() {
	r.cancelTimersLocked()
	r.selected = nil
	r.buzzerLocked = true
	r.currentRound = types.RoundFinal
	r.currentPlayer = nil

	fs := &finalState{
		initialScores: make(map[types.ParticipantID]int),
		judgingIndex:  0,
	}

	// Ascending score, ties broken by join order (the iteration base).
	var eligible []types.ParticipantID
	for _, id := range r.joinOrder {
		p := r.participants[id]
		if p.Role != types.RolePlayer {
			continue
		}
		fs.initialScores[id] = p.Score
		p.FinalWager = nil
		p.FinalAnswer = nil
		if p.Score > 0 {
			eligible = append(eligible, id)
		}
	}
	sort.SliceStable(eligible, func(i, j int) bool {
		return fs.initialScores[eligible[i]] < fs.initialScores[eligible[j]]
	})
	fs.judgingOrder = eligible

	r.final = fs
	r.setStatusLocked(types.StatusFinalWagering)
}

// SubmitWager records one eligible player's wager. Final once recorded.
func (r *Room) SubmitWager(ctx context.Context, senderID types.ParticipantID, wager int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, err := r.requirePlayerLocked(senderID)
	if err != nil {
		return err
	}
	if r.status != types.StatusFinalWagering || r.final == nil {
		return stateErrf("wagers are not being accepted")
	}
	if !r.finalEligibleLocked(senderID) {
		return validationErrf("player is not eligible for final jeopardy")
	}
	if p.FinalWager != nil {
		return stateErrf("wager already recorded")
	}
	max := r.final.initialScores[senderID]
	if wager < 0 || wager > max {
		return validationErrf("wager must be between 0 and %d", max)
	}

	w := wager
	p.FinalWager = &w
	logging.Info(ctx, "Final wager recorded", zap.String("room", string(r.code)), zap.String("playerId", string(senderID)))
	r.publishStateLocked()
	return nil
}

// ShowFinalClue moves to clue reading once every eligible player has wagered.
func (r *Room) ShowFinalClue(ctx context.Context, senderID types.ParticipantID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.requireHostLocked(senderID); err != nil {
		return err
	}
	if r.status != types.StatusFinalWagering || r.final == nil {
		return stateErrf("cannot show the final clue while %s", r.status)
	}
	for _, id := range r.final.judgingOrder {
		if r.participants[id].FinalWager == nil {
			return stateErrf("waiting on wagers")
		}
	}

	r.setStatusLocked(types.StatusFinalClueReading)

	// Reading is display-only; the answer window opens automatically once
	// the prompt has been read out.
	seq := r.clueSeq
	delay := SpeakingTime(r.finalPromptLocked())
	r.unlockTimer = time.AfterFunc(delay, func() {
		r.startFinalAnswering(seq)
	})

	r.publishStateLocked()
	return nil
}

func (r *Room) finalPromptLocked() string {
	if r.config == nil {
		return ""
	}
	return r.config.FinalRound.Prompt
}

// startFinalAnswering opens the timed answer window: the timer entry point
// for final_clue_reading → final_answering.
func (r *Room) startFinalAnswering(seq int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if seq != r.clueSeq || r.status != types.StatusFinalClueReading || r.final == nil {
		return
	}

	end := r.now().Add(r.opts.FinalAnswerTimeout)
	r.final.countdownEnd = &end
	r.setStatusLocked(types.StatusFinalAnswering)
	r.publishStateLocked()
}

// SubmitFinalAnswer records one answer, rejected after the countdown ends.
func (r *Room) SubmitFinalAnswer(ctx context.Context, senderID types.ParticipantID, answer string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, err := r.requirePlayerLocked(senderID)
	if err != nil {
		return err
	}
	if r.status != types.StatusFinalAnswering || r.final == nil {
		return stateErrf("answers are not being accepted")
	}
	if !r.finalEligibleLocked(senderID) {
		return validationErrf("player is not eligible for final jeopardy")
	}
	if r.final.countdownEnd != nil && !r.now().Before(*r.final.countdownEnd) {
		return validationErrf("the answer window has closed")
	}
	if p.FinalAnswer != nil {
		return stateErrf("answer already recorded")
	}

	a := answer
	p.FinalAnswer = &a
	logging.Info(ctx, "Final answer recorded", zap.String("room", string(r.code)), zap.String("playerId", string(senderID)))
	r.publishStateLocked()
	return nil
}

// StartFinalJudging begins the sequential reveal-and-judge pass.
func (r *Room) StartFinalJudging(ctx context.Context, senderID types.ParticipantID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.requireHostLocked(senderID); err != nil {
		return err
	}
	if r.status != types.StatusFinalAnswering || r.final == nil {
		return stateErrf("cannot start judging while %s", r.status)
	}
	if len(r.final.judgingOrder) == 0 {
		// Nobody was eligible; the game is over.
		r.setStatusLocked(types.StatusFinished)
		r.publishStateLocked()
		return nil
	}

	r.final.judgingIndex = 0
	r.final.revealedWager = false
	r.final.revealedAnswer = false
	r.setStatusLocked(types.StatusFinalJudging)
	r.publishStateLocked()
	return nil
}

// RevealFinalWager shows the current player's wager. Must precede the answer.
func (r *Room) RevealFinalWager(ctx context.Context, senderID types.ParticipantID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.requireHostLocked(senderID); err != nil {
		return err
	}
	if r.status != types.StatusFinalJudging || r.final == nil {
		return stateErrf("cannot reveal a wager while %s", r.status)
	}
	if r.final.revealedWager {
		return stateErrf("wager already revealed")
	}

	r.final.revealedWager = true
	r.publishStateLocked()
	return nil
}

// RevealFinalAnswer shows the current player's answer, after the wager.
func (r *Room) RevealFinalAnswer(ctx context.Context, senderID types.ParticipantID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.requireHostLocked(senderID); err != nil {
		return err
	}
	if r.status != types.StatusFinalJudging || r.final == nil {
		return stateErrf("cannot reveal an answer while %s", r.status)
	}
	if !r.final.revealedWager {
		return stateErrf("reveal the wager first")
	}
	if r.final.revealedAnswer {
		return stateErrf("answer already revealed")
	}

	r.final.revealedAnswer = true
	r.publishStateLocked()
	return nil
}

// JudgeFinalAnswer settles the current player's wager and advances the
// judging order; after the last player the game is finished.
func (r *Room) JudgeFinalAnswer(ctx context.Context, senderID types.ParticipantID, playerID types.ParticipantID, correct bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.requireHostLocked(senderID); err != nil {
		return err
	}
	if r.status != types.StatusFinalJudging || r.final == nil {
		return stateErrf("cannot judge while %s", r.status)
	}
	if !r.final.revealedWager || !r.final.revealedAnswer {
		return stateErrf("reveal the wager and answer before judging")
	}
	if r.final.judgingIndex >= len(r.final.judgingOrder) {
		return stateErrf("all players have been judged")
	}
	expected := r.final.judgingOrder[r.final.judgingIndex]
	if playerID != expected {
		return stateErrf("players are judged in order; expected %s", expected)
	}

	p := r.participants[playerID]
	wager := 0
	if p.FinalWager != nil {
		wager = *p.FinalWager
	}
	if correct {
		p.Score += wager
	} else {
		p.Score -= wager
	}

	logging.Info(ctx, "Final answer judged",
		zap.String("room", string(r.code)),
		zap.String("playerId", string(playerID)),
		zap.Bool("correct", correct),
		zap.Int("wager", wager))

	r.final.judgingIndex++
	r.final.revealedWager = false
	r.final.revealedAnswer = false
	if r.final.judgingIndex >= len(r.final.judgingOrder) {
		r.setStatusLocked(types.StatusFinished)
	}

	r.publishStateLocked()
	return nil
}

func (r *Room) finalEligibleLocked(id types.ParticipantID) bool {
	if r.final == nil {
		return false
	}
	for _, e := range r.final.judgingOrder {
		if e == id {
			return true
		}
	}
	return false
}
