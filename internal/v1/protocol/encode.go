package protocol

import (
	"encoding/json"

	"github.com/buzzboard/backend/internal/v1/types"
)

// Outbound frames are marshalled once and fanned out as raw bytes, so a
// broadcast to N connections costs one encode.

type roomJoinedFrame struct {
	Type      FrameType        `json:"type"`
	RoomID    types.RoomCode   `json:"roomId"`
	PlayerID  string           `json:"playerId"`
	GameState *types.GameState `json:"gameState"`
}

type gameStateUpdateFrame struct {
	Type      FrameType        `json:"type"`
	GameState *types.GameState `json:"gameState"`
}

type buzzerLockedFrame struct {
	Type   FrameType `json:"type"`
	Locked bool      `json:"locked"`
}

type buzzReceivedFrame struct {
	Type      FrameType `json:"type"`
	PlayerID  string    `json:"playerId"`
	Timestamp int64     `json:"timestamp"`
}

type gameCreatedFrame struct {
	Type      FrameType        `json:"type"`
	GameState *types.GameState `json:"gameState"`
}

type gameSavedFrame struct {
	Type   FrameType `json:"type"`
	GameID string    `json:"gameId"`
}

type errorFrame struct {
	Type    FrameType `json:"type"`
	Message string    `json:"message"`
}

type pingPongFrame struct {
	Type      FrameType `json:"type"`
	Timestamp int64     `json:"timestamp"`
}

func mustMarshal(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		// Frame structs contain only marshalable fields; a failure here is a
		// programming error, not a runtime condition.
		panic(err)
	}
	return data
}

// EncodeRoomJoined builds the joiner-only acknowledgement frame.
func EncodeRoomJoined(roomID types.RoomCode, playerID types.ParticipantID, state *types.GameState) []byte {
	return mustMarshal(roomJoinedFrame{Type: FrameRoomJoined, RoomID: roomID, PlayerID: string(playerID), GameState: state})
}

// EncodeGameStateUpdate builds the total-snapshot broadcast frame.
func EncodeGameStateUpdate(state *types.GameState) []byte {
	return mustMarshal(gameStateUpdateFrame{Type: FrameGameStateUpdate, GameState: state})
}

// EncodeBuzzerLocked builds the narrow lock-state event.
func EncodeBuzzerLocked(locked bool) []byte {
	return mustMarshal(buzzerLockedFrame{Type: FrameBuzzerLocked, Locked: locked})
}

// EncodeBuzzReceived builds the narrow per-buzz acknowledgement event.
func EncodeBuzzReceived(playerID types.ParticipantID, clientTs int64) []byte {
	return mustMarshal(buzzReceivedFrame{Type: FrameBuzzReceived, PlayerID: string(playerID), Timestamp: clientTs})
}

// EncodeGameCreated builds the frame broadcast after a config is installed.
func EncodeGameCreated(state *types.GameState) []byte {
	return mustMarshal(gameCreatedFrame{Type: FrameGameCreated, GameState: state})
}

// EncodeGameSaved builds the save acknowledgement for the requesting host.
func EncodeGameSaved(gameID string) []byte {
	return mustMarshal(gameSavedFrame{Type: FrameGameSaved, GameID: gameID})
}

// EncodeError builds the caller-only error frame.
func EncodeError(message string) []byte {
	return mustMarshal(errorFrame{Type: FrameError, Message: message})
}

// EncodePing builds a heartbeat probe.
func EncodePing(timestamp int64) []byte {
	return mustMarshal(pingPongFrame{Type: FrameServerPing, Timestamp: timestamp})
}

// EncodePong echoes a client heartbeat.
func EncodePong(timestamp int64) []byte {
	return mustMarshal(pingPongFrame{Type: FrameServerPong, Timestamp: timestamp})
}
