package signal

import (
	"github.com/dkeye/roomcast/internal/app/orch"
	"github.com/dkeye/roomcast/internal/core"
)

func (ctl *SignalWSController) handleWhoAmI(
	sess *orch.Session,
	conn *WsSignalConn,
) {
	resp := core.WhoAmIEvent{
		Type:       core.EvWhoAmI,
		Connection: sess.ID(),
		User:       sess.User(),
	}
	if room, ok := sess.Room(); ok {
		resp.Room = room
	}
	ctl.sendJSON(conn, resp)
}
