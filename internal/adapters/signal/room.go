package signal

import (
	"context"
	"encoding/json"

	"github.com/dkeye/roomcast/internal/app/orch"
	"github.com/dkeye/roomcast/internal/core"
	"github.com/dkeye/roomcast/internal/domain"
	"github.com/rs/zerolog/log"
)

type roomPayload struct {
	Room domain.RoomID `json:"room"`
}

func (ctl *SignalWSController) handleJoin(ctx context.Context, sess *orch.Session, conn *WsSignalConn, data []byte) {
	var p roomPayload
	if err := json.Unmarshal(data, &p); err != nil || p.Room == "" {
		log.Warn().Err(err).Str("module", "signal").Msg("bad join payload")
		ctl.sendError(conn, "bad_payload")
		return
	}

	log.Info().Str("module", "signal").Str("conn", string(sess.ID())).Str("room", string(p.Room)).Msg("join")
	if _, err := ctl.Orch.Join(ctx, sess, p.Room); err != nil {
		ctl.sendJSON(conn, core.RoomEvent{Type: core.EvRoomError, Room: p.Room, Reason: reasonFor(err)})
	}
}

// handleLeave leaves a room without closing the connection. An empty room
// means the current one.
func (ctl *SignalWSController) handleLeave(ctx context.Context, sess *orch.Session, conn *WsSignalConn, data []byte) {
	var p roomPayload
	if err := json.Unmarshal(data, &p); err != nil {
		ctl.sendError(conn, "bad_payload")
		return
	}
	if p.Room == "" {
		p.Room, _ = sess.Room()
	}

	log.Info().Str("module", "signal").Str("conn", string(sess.ID())).Str("room", string(p.Room)).Msg("leave")
	ctl.Orch.Leave(ctx, sess, p.Room)
	ctl.sendJSON(conn, core.RoomEvent{Type: core.EvLeft, Room: p.Room})
}
