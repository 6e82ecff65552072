package signal

import (
	"encoding/json"

	"github.com/dkeye/roomcast/internal/app/orch"
	"github.com/dkeye/roomcast/internal/core"
	"github.com/rs/zerolog/log"
)

// handleRelay forwards offer/answer/candidate bodies untouched.
func (ctl *SignalWSController) handleRelay(sess *orch.Session, conn *WsSignalConn, kind core.SignalKind, data []byte) {
	var p struct {
		Target core.ConnectionID `json:"target"`
		Body   json.RawMessage   `json:"body"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.Target == "" {
		log.Warn().Err(err).Str("module", "signal").Str("kind", string(kind)).Msg("bad signal payload")
		ctl.sendError(conn, "bad_payload")
		return
	}
	if err := ctl.Orch.Signal(sess, kind, p.Target, p.Body); err != nil {
		ctl.sendError(conn, reasonFor(err))
	}
}
