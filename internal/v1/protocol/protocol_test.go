package protocol

import (
	"encoding/json"
	"testing"

	"github.com/buzzboard/backend/internal/v1/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeInbound_JoinRoom(t *testing.T) {
	in, err := DecodeInbound([]byte(`{"type":"joinRoom","roomId":"ab12","playerName":"Sam","role":"player"}`))
	require.NoError(t, err)

	assert.Equal(t, FrameJoinRoom, in.Type)
	require.NotNil(t, in.Join)
	assert.Equal(t, "ab12", in.Join.RoomID)
	assert.Equal(t, "Sam", in.Join.PlayerName)
	assert.Equal(t, types.RolePlayer, in.Join.Role)
}

func TestDecodeInbound_Buzz(t *testing.T) {
	in, err := DecodeInbound([]byte(`{"type":"buzz","timestamp":1717243200123}`))
	require.NoError(t, err)

	require.NotNil(t, in.Buzz)
	assert.Equal(t, int64(1717243200123), in.Buzz.Timestamp)
}

func TestDecodeInbound_PayloadFreeFrames(t *testing.T) {
	for _, frame := range []FrameType{
		FrameLeaveRoom, FrameRevealAnswer, FrameNextRound, FrameStartGame,
		FrameStartFinal, FrameShowFinalClue, FrameStartFinalJudging,
		FrameRevealFinalWager, FrameRevealFinalAnswer, FrameReturnToBoard,
	} {
		in, err := DecodeInbound([]byte(`{"type":"` + string(frame) + `"}`))
		require.NoError(t, err, string(frame))
		assert.Equal(t, frame, in.Type)
	}
}

func TestDecodeInbound_JudgeAnswer(t *testing.T) {
	in, err := DecodeInbound([]byte(`{"type":"judgeAnswer","playerId":"p-1","correct":true}`))
	require.NoError(t, err)

	require.NotNil(t, in.JudgeAnswer)
	assert.Equal(t, "p-1", in.JudgeAnswer.PlayerID)
	assert.True(t, in.JudgeAnswer.Correct)
}

func TestDecodeInbound_SubmitWager(t *testing.T) {
	in, err := DecodeInbound([]byte(`{"type":"submitWager","wager":750}`))
	require.NoError(t, err)

	require.NotNil(t, in.SubmitWager)
	assert.Equal(t, 750, in.SubmitWager.Wager)
}

func TestDecodeInbound_UnknownType(t *testing.T) {
	_, err := DecodeInbound([]byte(`{"type":"teleport"}`))
	require.Error(t, err)

	var unknown *ErrUnknownFrame
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, FrameType("teleport"), unknown.Type)
}

func TestDecodeInbound_MalformedJSON(t *testing.T) {
	_, err := DecodeInbound([]byte(`{"type":`))
	assert.Error(t, err)
}

func TestDecodeInbound_MalformedPayload(t *testing.T) {
	_, err := DecodeInbound([]byte(`{"type":"buzz","timestamp":"not-a-number"}`))
	assert.Error(t, err)
}

func TestEncodeError(t *testing.T) {
	data := EncodeError("state violation: buzzer is locked")

	var frame map[string]any
	require.NoError(t, json.Unmarshal(data, &frame))
	assert.Equal(t, "error", frame["type"])
	assert.Equal(t, "state violation: buzzer is locked", frame["message"])
}

func TestEncodeRoomJoined(t *testing.T) {
	state := &types.GameState{RoomID: "AB12", Status: types.StatusWaiting}
	data := EncodeRoomJoined("AB12", "p-1", state)

	var frame map[string]any
	require.NoError(t, json.Unmarshal(data, &frame))
	assert.Equal(t, "roomJoined", frame["type"])
	assert.Equal(t, "AB12", frame["roomId"])
	assert.Equal(t, "p-1", frame["playerId"])
	assert.NotNil(t, frame["gameState"])
}

func TestEncodeBuzzerLocked(t *testing.T) {
	var frame map[string]any
	require.NoError(t, json.Unmarshal(EncodeBuzzerLocked(true), &frame))
	assert.Equal(t, "buzzerLocked", frame["type"])
	assert.Equal(t, true, frame["locked"])
}

func TestEncodePingPong(t *testing.T) {
	var ping map[string]any
	require.NoError(t, json.Unmarshal(EncodePing(1234), &ping))
	assert.Equal(t, "ping", ping["type"])
	assert.Equal(t, float64(1234), ping["timestamp"])

	var pong map[string]any
	require.NoError(t, json.Unmarshal(EncodePong(1234), &pong))
	assert.Equal(t, "pong", pong["type"])
}

func TestDecodeInbound_RoundTripsEncodedPing(t *testing.T) {
	in, err := DecodeInbound(EncodePing(99))
	require.NoError(t, err)
	assert.Equal(t, FramePing, in.Type)
	assert.Equal(t, int64(99), in.Ping.Timestamp)
}
