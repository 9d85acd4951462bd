// Package game implements the per-room state machine for a Jeopardy-style
// trivia show: round progression, the buzzer race with tie fairness, the
// Final-Jeopardy sub-protocol, and snapshot emission.
//
// All mutations to a room are serialised through the room's mutex; public
// operations lock, mutate, publish, and return. Timer callbacks re-enter
// through public methods guarded by a clue generation counter so a stale
// timer never touches state from a previous clue.
package game

import (
	"context"
	"sync"
	"time"

	"github.com/buzzboard/backend/internal/v1/logging"
	"github.com/buzzboard/backend/internal/v1/protocol"
	"github.com/buzzboard/backend/internal/v1/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Publisher fans room output out to every connection bound to the room.
// Snapshots may be dropped for slow consumers; events may not.
type Publisher interface {
	BroadcastSnapshot(code types.RoomCode, data []byte)
	BroadcastEvent(code types.RoomCode, data []byte)
}

// Options carries the tunable timings a room needs.
type Options struct {
	TieWindow          time.Duration
	TieBuffer          time.Duration
	FinalAnswerTimeout time.Duration
}

// DefaultOptions returns the standard show timings.
func DefaultOptions() Options {
	return Options{
		TieWindow:          250 * time.Millisecond,
		TieBuffer:          50 * time.Millisecond,
		FinalAnswerTimeout: 30 * time.Second,
	}
}

// Participant is one identity bound to the room. Viewers carry no score.
type Participant struct {
	ID          types.ParticipantID
	Name        string
	Role        types.Role
	Score       int
	BuzzedAt    *int64
	FinalWager  *int
	FinalAnswer *string
}

type buzzEntry struct {
	playerID types.ParticipantID
	clientTs int64
	serverTs time.Time
}

type selectedClue struct {
	categoryID string
	clueID     string
	catIdx     int
	clueIdx    int
}

type finalState struct {
	initialScores  map[types.ParticipantID]int
	judgingOrder   []types.ParticipantID
	judgingIndex   int
	countdownEnd   *time.Time
	revealedWager  bool
	revealedAnswer bool
}

// Room owns one game's state. See package doc for the concurrency contract.
type Room struct {
	code    types.RoomCode
	mu      sync.Mutex
	publish Publisher
	opts    Options
	now     func() time.Time

	hostID       types.ParticipantID
	config       *types.GameConfig
	status       types.Status
	currentRound types.RoundKind

	participants map[types.ParticipantID]*Participant
	joinOrder    []types.ParticipantID

	selected           *selectedClue
	buzzerLocked       bool
	buzzLog            []buzzEntry
	buzzerOrderRaw     []types.ParticipantID
	displayBuzzerOrder []types.ParticipantID
	judged             map[types.ParticipantID]bool
	notPickedInTies    []types.ParticipantID
	lastCorrect        *types.ParticipantID
	currentPlayer      *types.ParticipantID

	final *finalState

	// clueSeq guards single-shot timers: a timer captures the sequence it was
	// scheduled under and is a no-op if the room has moved on.
	clueSeq     int
	unlockTimer *time.Timer
	tieTimer    *time.Timer
	tiePending  bool

	createdAt       time.Time
	hostPresent     bool
	hostAbsentSince time.Time
	finishedAt      time.Time
}

// NewRoom creates an empty room in the waiting state.
func NewRoom(code types.RoomCode, publish Publisher, opts Options) *Room {
	return &Room{
		code:         code,
		publish:      publish,
		opts:         opts,
		now:          time.Now,
		status:       types.StatusWaiting,
		buzzerLocked: true,
		currentRound: types.RoundFirst,
		participants: make(map[types.ParticipantID]*Participant),
		judged:       make(map[types.ParticipantID]bool),
		createdAt:    time.Now(),
	}
}

// Code returns the room's join code.
func (r *Room) Code() types.RoomCode {
	return r.code
}

// Join adds or silently re-binds a participant. The asserted role is
// authoritative: re-joining a known id with a different role is an error.
func (r *Room) Join(ctx context.Context, name string, role types.Role, existingID types.ParticipantID) (types.ParticipantID, *types.GameState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !role.Valid() {
		return "", nil, validationErrf("unknown role %q", role)
	}

	if existingID != "" {
		if p, ok := r.participants[existingID]; ok {
			if p.Role != role {
				return "", nil, validationErrf("participant %s is a %s, not a %s", existingID, p.Role, role)
			}
			if name != "" {
				p.Name = name
			}
			if role == types.RoleHost {
				r.markHostPresentLocked()
			}
			logging.Info(ctx, "Participant re-bound", zap.String("participantId", string(existingID)), zap.String("role", string(role)))
			state := r.buildStateLocked()
			r.publishStateLocked()
			return existingID, state, nil
		}
		// Unknown id: fall through and mint a fresh identity.
	}

	if role != types.RoleViewer && name == "" {
		return "", nil, validationErrf("display name must not be empty")
	}

	if role == types.RoleHost {
		if r.hostID != "" && r.hostPresent {
			return "", nil, roleErrf("room %s already has a host", r.code)
		}
	}

	id := types.ParticipantID(uuid.NewString())
	p := &Participant{ID: id, Name: name, Role: role}
	r.participants[id] = p
	r.joinOrder = append(r.joinOrder, id)

	if role == types.RoleHost {
		r.hostID = id
		r.markHostPresentLocked()
	}

	logging.Info(ctx, "Participant joined",
		zap.String("room", string(r.code)),
		zap.String("participantId", string(id)),
		zap.String("role", string(role)))

	state := r.buildStateLocked()
	r.publishStateLocked()
	return id, state, nil
}

// Leave removes a non-host participant, or marks the host absent so the
// registry's grace window starts ticking. Game state (scores, buzz history)
// for players is kept so a later rejoin with the same id resumes cleanly.
func (r *Room) Leave(ctx context.Context, id types.ParticipantID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.participants[id]
	if !ok {
		return
	}

	if p.Role == types.RoleHost {
		r.markHostAbsentLocked()
		logging.Info(ctx, "Host left room", zap.String("room", string(r.code)))
		return
	}

	if p.Role == types.RoleViewer {
		delete(r.participants, id)
		for i, jid := range r.joinOrder {
			if jid == id {
				r.joinOrder = append(r.joinOrder[:i], r.joinOrder[i+1:]...)
				break
			}
		}
	}
	// Players stay in the roster: their buzzes stay valid and the host may
	// still judge them or adjust their score.

	r.publishStateLocked()
}

// HandleDisconnect records a connection drop without removing state. Only a
// host disconnect affects lifecycle (starts the grace window).
func (r *Room) HandleDisconnect(ctx context.Context, id types.ParticipantID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.participants[id]
	if !ok {
		return
	}
	if p.Role == types.RoleHost {
		r.markHostAbsentLocked()
		logging.Info(ctx, "Host disconnected, grace window started", zap.String("room", string(r.code)))
	}
}

func (r *Room) markHostPresentLocked() {
	r.hostPresent = true
	r.hostAbsentSince = time.Time{}
}

func (r *Room) markHostAbsentLocked() {
	r.hostPresent = false
	r.hostAbsentSince = r.now()
}

// Reapable reports whether the room has passed its retention window: the
// host has been absent longer than grace, or the game finished and the room
// has been idle longer than grace.
func (r *Room) Reapable(grace time.Duration) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if !r.hostPresent && !r.hostAbsentSince.IsZero() && now.Sub(r.hostAbsentSince) > grace {
		return true
	}
	if r.status == types.StatusFinished && !r.finishedAt.IsZero() && now.Sub(r.finishedAt) > grace {
		return true
	}
	return false
}

// Shutdown cancels outstanding timers. Called by the registry on eviction.
func (r *Room) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelTimersLocked()
}

func (r *Room) cancelTimersLocked() {
	r.clueSeq++
	if r.unlockTimer != nil {
		r.unlockTimer.Stop()
		r.unlockTimer = nil
	}
	if r.tieTimer != nil {
		r.tieTimer.Stop()
		r.tieTimer = nil
	}
	r.tiePending = false
}

// participantByRole returns the participant if it exists with the wanted role.
func (r *Room) participantLocked(id types.ParticipantID) (*Participant, error) {
	p, ok := r.participants[id]
	if !ok {
		return nil, notFoundErrf("unknown participant %s", id)
	}
	return p, nil
}

// requireHostLocked gates host-only operations on the sender's identity.
func (r *Room) requireHostLocked(senderID types.ParticipantID) error {
	p, ok := r.participants[senderID]
	if !ok {
		return notFoundErrf("unknown participant %s", senderID)
	}
	if p.Role != types.RoleHost {
		return roleErrf("operation requires the host role")
	}
	return nil
}

// requirePlayerLocked gates player-only operations.
func (r *Room) requirePlayerLocked(senderID types.ParticipantID) (*Participant, error) {
	p, ok := r.participants[senderID]
	if !ok {
		return nil, notFoundErrf("unknown participant %s", senderID)
	}
	if p.Role != types.RolePlayer {
		return nil, roleErrf("operation requires the player role")
	}
	return p, nil
}

// publishStateLocked snapshots the room and hands the encoded frame to the
// gateway. Sends are non-blocking channel pushes, so holding the lock here
// never waits on I/O.
func (r *Room) publishStateLocked() {
	if r.publish == nil {
		return
	}
	state := r.buildStateLocked()
	r.publish.BroadcastSnapshot(r.code, protocol.EncodeGameStateUpdate(state))
}

func (r *Room) publishEventLocked(data []byte) {
	if r.publish == nil {
		return
	}
	r.publish.BroadcastEvent(r.code, data)
}

// setStatusLocked transitions status and maintains the finished timestamp.
func (r *Room) setStatusLocked(s types.Status) {
	r.status = s
	if s == types.StatusFinished {
		r.finishedAt = r.now()
	}
}
