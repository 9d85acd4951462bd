package game

import (
	"context"
	"time"

	"github.com/buzzboard/backend/internal/v1/logging"
	"github.com/buzzboard/backend/internal/v1/protocol"
	"github.com/buzzboard/backend/internal/v1/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Game flow operations: installing content, starting play, and moving
// between rounds.

// LoadGame installs a config. Fails once play has progressed past selection.
func (r *Room) LoadGame(ctx context.Context, senderID types.ParticipantID, cfg *types.GameConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.requireHostLocked(senderID); err != nil {
		return err
	}
	if cfg == nil {
		return validationErrf("gameConfig is required")
	}
	if err := cfg.Validate(); err != nil {
		return validationErrf("%v", err)
	}
	switch r.status {
	case types.StatusWaiting, types.StatusReady, types.StatusSelecting:
	default:
		return stateErrf("game already in progress")
	}

	loaded := *cfg
	if loaded.ID == "" {
		loaded.ID = uuid.NewString()
	}
	if loaded.CreatedAt == 0 {
		loaded.CreatedAt = r.now().UnixMilli()
	}
	r.config = &loaded
	r.currentRound = types.RoundFirst
	r.selected = nil
	r.clearBuzzStateLocked()
	r.buzzerLocked = true
	r.setStatusLocked(types.StatusReady)

	logging.Info(ctx, "Game loaded", zap.String("room", string(r.code)), zap.String("gameId", loaded.ID))

	state := r.buildStateLocked()
	r.publishEventLocked(protocol.EncodeGameCreated(state))
	r.publishStateLocked()
	return nil
}

// StartGame begins play: ready → selecting.
func (r *Room) StartGame(ctx context.Context, senderID types.ParticipantID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.requireHostLocked(senderID); err != nil {
		return err
	}
	if r.status != types.StatusReady {
		return stateErrf("cannot start the game while %s", r.status)
	}

	r.setStatusLocked(types.StatusSelecting)
	r.buzzerLocked = true
	logging.Info(ctx, "Game started", zap.String("room", string(r.code)))
	r.publishStateLocked()
	return nil
}

// NextRound advances First → Double, or Double → Final.
func (r *Room) NextRound(ctx context.Context, senderID types.ParticipantID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.requireHostLocked(senderID); err != nil {
		return err
	}
	if r.status != types.StatusSelecting && r.status != types.StatusJudging {
		return stateErrf("cannot change rounds while %s", r.status)
	}

	switch r.currentRound {
	case types.RoundFirst:
		r.currentRound = types.RoundDouble
		r.selected = nil
		r.clearBuzzStateLocked()
		r.buzzerLocked = true
		r.setStatusLocked(types.StatusSelecting)
	case types.RoundDouble:
		r.initFinalLocked()
	default:
		return stateErrf("no round after final")
	}

	logging.Info(ctx, "Round advanced", zap.String("room", string(r.code)), zap.String("round", string(r.currentRound)))
	r.publishStateLocked()
	return nil
}

// StartFinalJeopardy forces the Final sub-machine from the Double round.
func (r *Room) StartFinalJeopardy(ctx context.Context, senderID types.ParticipantID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.requireHostLocked(senderID); err != nil {
		return err
	}
	if r.currentRound != types.RoundDouble {
		return stateErrf("final jeopardy starts from the double round")
	}
	if r.status != types.StatusSelecting && r.status != types.StatusJudging {
		return stateErrf("cannot start final jeopardy while %s", r.status)
	}

	r.initFinalLocked()
	logging.Info(ctx, "Final jeopardy initialised", zap.String("room", string(r.code)))
	r.publishStateLocked()
	return nil
}

// ConfigSnapshot returns a copy of the loaded config for persistence. The
// caller performs store I/O outside the room lock.
func (r *Room) ConfigSnapshot(senderID types.ParticipantID) (*types.GameConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.requireHostLocked(senderID); err != nil {
		return nil, err
	}
	if r.config == nil {
		return nil, stateErrf("no game loaded")
	}

	cp := r.config.Clone()
	cp.SavedAt = r.now().UnixMilli()
	cp.SavedBy = string(r.hostID)
	return cp, nil
}

// ParticipantRole reports the role bound to an id, for transport-side gating.
func (r *Room) ParticipantRole(id types.ParticipantID) (types.Role, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.participants[id]
	if !ok {
		return "", false
	}
	return p.Role, true
}

// setNow overrides the clock, for tests only.
func (r *Room) setNow(now func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = now
}
