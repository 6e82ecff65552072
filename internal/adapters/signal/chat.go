package signal

import (
	"context"
	"encoding/json"

	"github.com/dkeye/roomcast/internal/app/orch"
	"github.com/dkeye/roomcast/internal/core"
	"github.com/dkeye/roomcast/internal/domain"
)

func (ctl *SignalWSController) handleSendMessage(ctx context.Context, sess *orch.Session, conn *WsSignalConn, data []byte) {
	var p struct {
		Room    domain.RoomID `json:"room"`
		Content string        `json:"content"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		ctl.sendError(conn, "bad_payload")
		return
	}
	if p.Room == "" {
		p.Room, _ = sess.Room()
	}

	// Delivery to the sender comes back through the room broadcast.
	if _, err := ctl.Orch.Send(ctx, sess, p.Room, p.Content); err != nil {
		ctl.sendJSON(conn, core.RoomEvent{Type: core.EvMessageRejected, Room: p.Room, Reason: reasonFor(err)})
	}
}
