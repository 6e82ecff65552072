package app

import (
	"encoding/json"
	"fmt"

	"github.com/dkeye/roomcast/internal/core"
	"github.com/rs/zerolog/log"
)

// SignalRelay forwards call-setup payloads between live connections.
// Bodies are opaque and passed through untouched.
type SignalRelay struct {
	reg *Registry
}

func NewSignalRelay(reg *Registry) *SignalRelay {
	return &SignalRelay{reg: reg}
}

// Forward delivers body from one connection to target. An unknown target
// is silently ignored.
func (s *SignalRelay) Forward(kind core.SignalKind, from, target core.ConnectionID, body json.RawMessage) (core.PublishResult, error) {
	if !kind.Valid() {
		return core.PublishResult{}, fmt.Errorf("unknown signal kind %q", kind)
	}
	dst, ok := s.reg.GetSession(target)
	if !ok {
		log.Debug().Str("module", "app.signaling").Str("from", string(from)).Str("target", string(target)).Msg("signal target gone")
		return core.PublishResult{}, nil
	}
	frame, err := core.Encode(core.SignalEvent{Type: kind.Event(), From: from, Body: body})
	if err != nil {
		return core.PublishResult{}, err
	}
	if err := dst.Signal().TrySend(frame); err != nil {
		return core.PublishResult{Dropped: []core.Member{dst}}, nil
	}
	return core.PublishResult{SendTo: 1}, nil
}
