// Package protocol defines the JSON wire frames exchanged between clients
// and the transport gateway. Every frame is one JSON object carrying a
// "type" discriminator; inbound frames decode into a tagged union so
// handlers never touch raw maps.
package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/buzzboard/backend/internal/v1/types"
)

// FrameType discriminates wire frames.
type FrameType string

// Inbound frame types (client → server).
const (
	FrameJoinRoom           FrameType = "joinRoom"
	FrameLeaveRoom          FrameType = "leaveRoom"
	FrameBuzz               FrameType = "buzz"
	FrameSelectClue         FrameType = "selectClue"
	FrameRevealAnswer       FrameType = "revealAnswer"
	FrameJudgeAnswer        FrameType = "judgeAnswer"
	FrameUpdateScore        FrameType = "updateScore"
	FrameNextRound          FrameType = "nextRound"
	FrameStartGame          FrameType = "startGame"
	FrameStartFinal         FrameType = "startFinalJeopardy"
	FrameShowFinalClue      FrameType = "showFinalJeopardyClue"
	FrameStartFinalJudging  FrameType = "startFinalJeopardyJudging"
	FrameRevealFinalWager   FrameType = "revealFinalJeopardyWager"
	FrameRevealFinalAnswer  FrameType = "revealFinalJeopardyAnswer"
	FrameJudgeFinalAnswer   FrameType = "judgeFinalJeopardyAnswer"
	FrameSubmitWager        FrameType = "submitWager"
	FrameSubmitFinalAnswer  FrameType = "submitFinalAnswer"
	FrameReturnToBoard      FrameType = "returnToBoard"
	FrameSaveGame           FrameType = "saveGame"
	FrameLoadGame           FrameType = "loadGame"
	FramePing               FrameType = "ping"
	FramePong               FrameType = "pong"
)

// Outbound frame types (server → client).
const (
	FrameRoomJoined      FrameType = "roomJoined"
	FrameGameStateUpdate FrameType = "gameStateUpdate"
	FrameBuzzerLocked    FrameType = "buzzerLocked"
	FrameBuzzReceived    FrameType = "buzzReceived"
	FrameGameCreated     FrameType = "gameCreated"
	FrameGameSaved       FrameType = "gameSaved"
	FrameError           FrameType = "error"
	FrameServerPing      FrameType = "ping"
	FrameServerPong      FrameType = "pong"
)

// --- Inbound payloads ---

type JoinRoomPayload struct {
	RoomID     string     `json:"roomId"`
	PlayerName string     `json:"playerName,omitempty"`
	Role       types.Role `json:"role"`
	PlayerID   string     `json:"playerId,omitempty"`
}

type BuzzPayload struct {
	Timestamp int64 `json:"timestamp"` // client clock, ms since epoch; advisory only
}

type SelectCluePayload struct {
	CategoryID string `json:"categoryId"`
	ClueID     string `json:"clueId"`
}

type JudgeAnswerPayload struct {
	PlayerID string `json:"playerId"`
	Correct  bool   `json:"correct"`
}

type UpdateScorePayload struct {
	PlayerID string `json:"playerId"`
	Delta    int    `json:"delta"`
}

type JudgeFinalAnswerPayload struct {
	PlayerID string `json:"playerId"`
	Correct  bool   `json:"correct"`
}

type SubmitWagerPayload struct {
	Wager int `json:"wager"`
}

type SubmitFinalAnswerPayload struct {
	Answer string `json:"answer"`
}

type SaveGamePayload struct {
	GameConfig *types.GameConfig `json:"gameConfig"`
}

type LoadGamePayload struct {
	GameConfig *types.GameConfig `json:"gameConfig"`
}

type PingPayload struct {
	Timestamp int64 `json:"timestamp"`
}

// Inbound is a decoded client frame. Exactly the field matching Type is set;
// frames with no payload (e.g. startGame) carry only the Type.
type Inbound struct {
	Type FrameType

	Join              *JoinRoomPayload
	Buzz              *BuzzPayload
	SelectClue        *SelectCluePayload
	JudgeAnswer       *JudgeAnswerPayload
	UpdateScore       *UpdateScorePayload
	JudgeFinalAnswer  *JudgeFinalAnswerPayload
	SubmitWager       *SubmitWagerPayload
	SubmitFinalAnswer *SubmitFinalAnswerPayload
	SaveGame          *SaveGamePayload
	LoadGame          *LoadGamePayload
	Ping              *PingPayload
	Pong              *PingPayload
}

// envelope sniffs the discriminator before a typed decode.
type envelope struct {
	Type FrameType `json:"type"`
}

// ErrUnknownFrame wraps the unrecognised type for the caller's error frame.
type ErrUnknownFrame struct {
	Type FrameType
}

func (e *ErrUnknownFrame) Error() string {
	return fmt.Sprintf("unknown message type %q", string(e.Type))
}

// DecodeInbound parses one JSON frame into the tagged union.
func DecodeInbound(data []byte) (*Inbound, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("malformed frame: %w", err)
	}

	in := &Inbound{Type: env.Type}

	decode := func(dst any) error {
		if err := json.Unmarshal(data, dst); err != nil {
			return fmt.Errorf("malformed %s frame: %w", env.Type, err)
		}
		return nil
	}

	switch env.Type {
	case FrameJoinRoom:
		in.Join = &JoinRoomPayload{}
		return in, decode(in.Join)
	case FrameBuzz:
		in.Buzz = &BuzzPayload{}
		return in, decode(in.Buzz)
	case FrameSelectClue:
		in.SelectClue = &SelectCluePayload{}
		return in, decode(in.SelectClue)
	case FrameJudgeAnswer:
		in.JudgeAnswer = &JudgeAnswerPayload{}
		return in, decode(in.JudgeAnswer)
	case FrameUpdateScore:
		in.UpdateScore = &UpdateScorePayload{}
		return in, decode(in.UpdateScore)
	case FrameJudgeFinalAnswer:
		in.JudgeFinalAnswer = &JudgeFinalAnswerPayload{}
		return in, decode(in.JudgeFinalAnswer)
	case FrameSubmitWager:
		in.SubmitWager = &SubmitWagerPayload{}
		return in, decode(in.SubmitWager)
	case FrameSubmitFinalAnswer:
		in.SubmitFinalAnswer = &SubmitFinalAnswerPayload{}
		return in, decode(in.SubmitFinalAnswer)
	case FrameSaveGame:
		in.SaveGame = &SaveGamePayload{}
		return in, decode(in.SaveGame)
	case FrameLoadGame:
		in.LoadGame = &LoadGamePayload{}
		return in, decode(in.LoadGame)
	case FramePing:
		in.Ping = &PingPayload{}
		return in, decode(in.Ping)
	case FramePong:
		in.Pong = &PingPayload{}
		return in, decode(in.Pong)
	case FrameLeaveRoom, FrameRevealAnswer, FrameNextRound, FrameStartGame,
		FrameStartFinal, FrameShowFinalClue, FrameStartFinalJudging,
		FrameRevealFinalWager, FrameRevealFinalAnswer, FrameReturnToBoard:
		return in, nil
	default:
		return nil, &ErrUnknownFrame{Type: env.Type}
	}
}
