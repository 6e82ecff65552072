package orch

import (
	"context"

	"github.com/dkeye/roomcast/internal/app"
	"github.com/dkeye/roomcast/internal/domain"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Join moves the session into roomID. A session is in at most one room:
// joining another room leaves the current one first, and only once the
// target room is known to exist. Re-joining the current room re-sends
// history without notifying the other members again.
func (o *Orchestrator) Join(ctx context.Context, s *Session, roomID domain.RoomID) ([]domain.Message, error) {
	if s.State() == StateDisconnected {
		return nil, ErrSessionClosed
	}
	ctx, span := tracer.Start(ctx, "orch.Join")
	defer span.End()
	span.SetAttributes(attribute.String("conn", string(s.ID())), attribute.String("room", string(roomID)))

	_, history, err := o.Rooms.Load(ctx, roomID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Warn().Err(err).Str("module", "orch").Str("conn", string(s.ID())).Str("room", string(roomID)).Msg("join failed")
		return nil, err
	}

	if cur, ok := s.Room(); ok && cur != roomID {
		o.leaveRoom(ctx, s, cur)
	}

	u := s.User()
	res := o.Rooms.Enter(s.member, roomID, app.JoinedFrame(roomID, u), app.HistoryFrame(roomID, history))
	s.setRoom(roomID)
	o.applyPolicy(res)

	if err := o.presence().Enter(ctx, roomID, s.ID(), u); err != nil {
		log.Warn().Err(err).Str("module", "orch").Str("room", string(roomID)).Msg("presence enter")
	}
	log.Info().Str("module", "orch").Str("conn", string(s.ID())).Str("user", string(u.ID)).Str("room", string(roomID)).Int("history", len(history)).Msg("joined room")
	return history, nil
}

// Leave removes the session from roomID. Leaving a room the session is not
// in is a no-op.
func (o *Orchestrator) Leave(ctx context.Context, s *Session, roomID domain.RoomID) {
	cur, ok := s.Room()
	if !ok || cur != roomID {
		return
	}
	o.leaveRoom(ctx, s, roomID)
	s.setRoom("")
}

func (o *Orchestrator) leaveRoom(ctx context.Context, s *Session, roomID domain.RoomID) {
	res, removed := o.Rooms.Leave(s.member, roomID)
	o.applyPolicy(res)
	if !removed {
		return
	}
	if err := o.presence().Exit(ctx, roomID, s.ID()); err != nil {
		log.Warn().Err(err).Str("module", "orch").Str("room", string(roomID)).Msg("presence exit")
	}
	log.Info().Str("module", "orch").Str("conn", string(s.ID())).Str("room", string(roomID)).Msg("left room")
}
