package signal

import "github.com/dkeye/roomcast/internal/core"

func (ctl *SignalWSController) handlePing(
	conn *WsSignalConn,
) {
	ctl.sendJSON(conn, core.PongEvent{Type: core.EvPong})
}
