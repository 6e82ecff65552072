package orch

import (
	"context"
	"encoding/json"

	"github.com/dkeye/roomcast/internal/core"
	"github.com/dkeye/roomcast/internal/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Send relays a chat line from the session into roomID.
func (o *Orchestrator) Send(ctx context.Context, s *Session, roomID domain.RoomID, content string) (*domain.Message, error) {
	if s.State() == StateDisconnected {
		return nil, ErrSessionClosed
	}
	ctx, span := tracer.Start(ctx, "orch.Send")
	defer span.End()
	span.SetAttributes(attribute.String("conn", string(s.ID())), attribute.String("room", string(roomID)))

	msg, res, err := o.Chat.Send(ctx, s.member, roomID, content)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	o.applyPolicy(res)
	return msg, nil
}

// Signal forwards a call-setup payload to target.
func (o *Orchestrator) Signal(s *Session, kind core.SignalKind, target core.ConnectionID, body json.RawMessage) error {
	if s.State() == StateDisconnected {
		return ErrSessionClosed
	}
	res, err := o.Signals.Forward(kind, s.ID(), target, body)
	if err != nil {
		return err
	}
	o.applyPolicy(res)
	return nil
}
