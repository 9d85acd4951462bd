package transport

import (
	"context"
	"errors"
	"strings"

	"github.com/buzzboard/backend/internal/v1/game"
	"github.com/buzzboard/backend/internal/v1/logging"
	"github.com/buzzboard/backend/internal/v1/metrics"
	"github.com/buzzboard/backend/internal/v1/protocol"
	"github.com/buzzboard/backend/internal/v1/types"
	"go.uber.org/zap"
)

// route dispatches one decoded frame. Protocol errors produce an error frame
// to the caller, never a disconnect; room operations run on this connection's
// reader goroutine so store I/O never happens under the room lock.
func (c *Client) route(ctx context.Context, data []byte) {
	in, err := protocol.DecodeInbound(data)
	if err != nil {
		metrics.FramesProcessed.WithLabelValues("unknown", "protocol_error").Inc()
		c.sendError(err.Error())
		return
	}

	status := "ok"
	if err := c.dispatch(ctx, in); err != nil {
		status = "error"
		c.sendError(err.Error())
	}
	metrics.FramesProcessed.WithLabelValues(string(in.Type), status).Inc()
}

func (c *Client) dispatch(ctx context.Context, in *protocol.Inbound) error {
	// Connection-level frames need no room binding.
	switch in.Type {
	case protocol.FramePing:
		c.SendEvent(protocol.EncodePong(in.Ping.Timestamp))
		return nil
	case protocol.FramePong:
		c.markPong()
		return nil
	case protocol.FrameJoinRoom:
		return c.handleJoin(ctx, in.Join)
	}

	room, pid, _ := c.binding()
	if room == nil {
		return errors.New("not in a room: send joinRoom first")
	}

	switch in.Type {
	case protocol.FrameLeaveRoom:
		room.Leave(ctx, pid)
		c.hub.unbind(c)
		return nil
	case protocol.FrameBuzz:
		return room.Buzz(ctx, pid, in.Buzz.Timestamp)
	case protocol.FrameSelectClue:
		return room.SelectClue(ctx, pid, in.SelectClue.CategoryID, in.SelectClue.ClueID)
	case protocol.FrameRevealAnswer:
		return room.RevealAnswer(ctx, pid)
	case protocol.FrameJudgeAnswer:
		return room.JudgeAnswer(ctx, pid, types.ParticipantID(in.JudgeAnswer.PlayerID), in.JudgeAnswer.Correct)
	case protocol.FrameUpdateScore:
		return room.UpdateScore(ctx, pid, types.ParticipantID(in.UpdateScore.PlayerID), in.UpdateScore.Delta)
	case protocol.FrameReturnToBoard:
		return room.ReturnToBoard(ctx, pid)
	case protocol.FrameNextRound:
		return room.NextRound(ctx, pid)
	case protocol.FrameStartGame:
		return room.StartGame(ctx, pid)
	case protocol.FrameStartFinal:
		return room.StartFinalJeopardy(ctx, pid)
	case protocol.FrameShowFinalClue:
		return room.ShowFinalClue(ctx, pid)
	case protocol.FrameStartFinalJudging:
		return room.StartFinalJudging(ctx, pid)
	case protocol.FrameRevealFinalWager:
		return room.RevealFinalWager(ctx, pid)
	case protocol.FrameRevealFinalAnswer:
		return room.RevealFinalAnswer(ctx, pid)
	case protocol.FrameJudgeFinalAnswer:
		return room.JudgeFinalAnswer(ctx, pid, types.ParticipantID(in.JudgeFinalAnswer.PlayerID), in.JudgeFinalAnswer.Correct)
	case protocol.FrameSubmitWager:
		return room.SubmitWager(ctx, pid, in.SubmitWager.Wager)
	case protocol.FrameSubmitFinalAnswer:
		return room.SubmitFinalAnswer(ctx, pid, in.SubmitFinalAnswer.Answer)
	case protocol.FrameLoadGame:
		return room.LoadGame(ctx, pid, in.LoadGame.GameConfig)
	case protocol.FrameSaveGame:
		return c.handleSaveGame(ctx, room, pid, in.SaveGame)
	default:
		return &protocol.ErrUnknownFrame{Type: in.Type}
	}
}

// handleJoin performs the joinRoom handshake: resolve or create the room,
// bind the connection, and acknowledge with roomJoined.
func (c *Client) handleJoin(ctx context.Context, payload *protocol.JoinRoomPayload) error {
	if room, _, _ := c.binding(); room != nil {
		return errors.New("connection is already bound to a room")
	}
	if !payload.Role.Valid() {
		return errors.New("role must be host, player, or viewer")
	}

	code := types.RoomCode(strings.ToUpper(strings.TrimSpace(payload.RoomID)))

	var room *game.Room
	var err error
	if payload.Role == types.RoleHost {
		room, err = c.hub.createOrJoinHost(code)
	} else {
		room, err = c.hub.lookup(code)
	}
	if err != nil {
		return err
	}

	pid, state, err := room.Join(ctx, payload.PlayerName, payload.Role, types.ParticipantID(payload.PlayerID))
	if err != nil {
		return err
	}

	c.bind(room, pid, payload.Role)
	c.hub.bind(c, room.Code())

	logging.Info(ctx, "Connection bound to room",
		zap.String("room", string(room.Code())),
		zap.String("participantId", string(pid)),
		zap.String("role", string(payload.Role)))

	c.SendEvent(protocol.EncodeRoomJoined(room.Code(), pid, state))
	return nil
}

// handleSaveGame persists the room's config (or the one supplied) and
// acknowledges with gameSaved. Runs on the reader goroutine: the room lock
// is released before the store call.
func (c *Client) handleSaveGame(ctx context.Context, room *game.Room, pid types.ParticipantID, payload *protocol.SaveGamePayload) error {
	cfg := payload.GameConfig
	if cfg != nil {
		if role, ok := room.ParticipantRole(pid); !ok || role != types.RoleHost {
			return errors.New("role violation: only the host can save the game")
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
	} else {
		var err error
		cfg, err = room.ConfigSnapshot(pid)
		if err != nil {
			return err
		}
	}

	id, err := c.hub.store.Save(ctx, cfg)
	if err != nil {
		logging.Error(ctx, "Failed to persist game", zap.Error(err))
		return errors.New("dependency error: could not save the game")
	}

	c.SendEvent(protocol.EncodeGameSaved(id))
	return nil
}
