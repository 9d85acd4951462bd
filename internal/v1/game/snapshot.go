package game

import (
	"github.com/buzzboard/backend/internal/v1/types"
)

// buildStateLocked assembles a total snapshot: a self-contained view of the
// room sufficient to render any participant's UI. Players are serialised in
// join order.
func (r *Room) buildStateLocked() *types.GameState {
	state := &types.GameState{
		RoomID:              r.code,
		Status:              r.status,
		CurrentRound:        r.currentRound,
		Config:              r.config.Clone(),
		Players:             make([]types.PlayerView, 0, len(r.joinOrder)),
		BuzzerLocked:        r.buzzerLocked,
		BuzzerOrder:         append([]types.ParticipantID{}, r.buzzerOrderRaw...),
		DisplayBuzzerOrder:  append([]types.ParticipantID{}, r.displayBuzzerOrder...),
		JudgedPlayers:       make([]types.ParticipantID, 0, len(r.judged)),
		NotPickedInTies:     append([]types.ParticipantID{}, r.notPickedInTies...),
		HostID:              r.hostID,
		FinalRevealedWager:  false,
		FinalRevealedAnswer: false,
	}

	for _, id := range r.joinOrder {
		p := r.participants[id]
		state.Players = append(state.Players, types.PlayerView{
			ID:          p.ID,
			Name:        p.Name,
			Role:        p.Role,
			Score:       p.Score,
			BuzzedAt:    p.BuzzedAt,
			FinalWager:  p.FinalWager,
			FinalAnswer: p.FinalAnswer,
		})
	}

	// Judged set in display order so clients render a stable list.
	for _, id := range r.displayBuzzerOrder {
		if r.judged[id] {
			state.JudgedPlayers = append(state.JudgedPlayers, id)
		}
	}

	if r.selected != nil {
		if clue := r.selectedClueLocked(); clue != nil {
			state.SelectedClue = &types.SelectedClueView{
				CategoryID: r.selected.categoryID,
				ClueID:     r.selected.clueID,
				Value:      clue.Value,
				Prompt:     clue.Prompt,
			}
		}
	}

	if r.currentPlayer != nil {
		cp := *r.currentPlayer
		state.CurrentPlayer = &cp
	}
	if r.lastCorrect != nil {
		lc := *r.lastCorrect
		state.LastCorrectPlayer = &lc
	}

	if r.final != nil {
		if r.final.countdownEnd != nil {
			end := r.final.countdownEnd.UnixMilli()
			state.FinalCountdownEnd = &end
		}
		if r.status == types.StatusFinalJudging && r.final.judgingIndex < len(r.final.judgingOrder) {
			idx := r.final.judgingIndex
			state.FinalJudgingPlayerIndex = &idx
		}
		state.FinalRevealedWager = r.final.revealedWager
		state.FinalRevealedAnswer = r.final.revealedAnswer
	}

	return state
}

// State returns a snapshot built under the room lock, for HTTP surfaces and
// tests.
func (r *Room) State() *types.GameState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.buildStateLocked()
}
