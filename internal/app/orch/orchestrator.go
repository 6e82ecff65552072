package orch

import (
	"context"
	"errors"
	"sync"

	"github.com/dkeye/roomcast/internal/app"
	"github.com/dkeye/roomcast/internal/core"
	"github.com/dkeye/roomcast/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("github.com/dkeye/roomcast/internal/app/orch")

var ErrSessionClosed = errors.New("session closed")

type State int

const (
	StateConnecting State = iota
	StateAuthenticated
	StateInRoom
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticated:
		return "authenticated"
	case StateInRoom:
		return "in_room"
	case StateDisconnected:
		return "disconnected"
	}
	return "unknown"
}

// Session is the coordinator-side state of one connection. Its events are
// handled one at a time by the transport read loop.
type Session struct {
	member core.Member

	mu    sync.Mutex
	state State
	room  domain.RoomID
}

func (s *Session) ID() core.ConnectionID { return s.member.ID() }
func (s *Session) User() domain.User     { return s.member.User() }
func (s *Session) Member() core.Member   { return s.member }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Room returns the room the session is in, if any.
func (s *Session) Room() (domain.RoomID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.room, s.state == StateInRoom
}

func (s *Session) setRoom(id domain.RoomID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateDisconnected {
		return
	}
	s.room = id
	if id == "" {
		s.state = StateAuthenticated
	} else {
		s.state = StateInRoom
	}
}

// Orchestrator is the connection lifecycle manager. It wires the live
// connection directory, the membership registry and both relays.
type Orchestrator struct {
	Registry *app.Registry
	Rooms    *app.RoomManager
	Chat     *app.ChatRelay
	Signals  *app.SignalRelay
	Policy   app.Policy
	Presence core.PresenceStore
}

// Connect registers an authenticated connection and greets it.
// cancel tears the transport down; the backpressure policy uses it.
func (o *Orchestrator) Connect(user domain.User, conn core.SignalConnection, cancel context.CancelFunc) *Session {
	id := core.ConnectionID(uuid.NewString())
	s := &Session{member: core.NewMemberSession(id, user, conn), state: StateConnecting}
	o.Registry.BindSignal(s.member, cancel)

	s.mu.Lock()
	s.state = StateAuthenticated
	s.mu.Unlock()

	res := o.deliver(s.member, core.MustEncode(core.ConnectedEvent{Type: core.EvConnected, Connection: id, User: user}))
	o.applyPolicy(res)
	log.Info().Str("module", "orch").Str("conn", string(id)).Str("user", string(user.ID)).Msg("connected")
	return s
}

// Disconnect is terminal and idempotent. It runs leave for the current room
// and unregisters the connection. Safe to call from any state, nil included.
func (o *Orchestrator) Disconnect(ctx context.Context, s *Session) {
	if s == nil {
		return
	}
	s.mu.Lock()
	if s.state == StateDisconnected {
		s.mu.Unlock()
		return
	}
	room, inRoom := s.room, s.state == StateInRoom
	s.state = StateDisconnected
	s.room = ""
	s.mu.Unlock()

	ctx, span := tracer.Start(ctx, "orch.Disconnect")
	defer span.End()
	span.SetAttributes(attribute.String("conn", string(s.ID())))

	if inRoom {
		o.leaveRoom(ctx, s, room)
	}
	o.Registry.Unbind(s.ID())
	if o.Chat != nil {
		o.Chat.Forget(s.ID())
	}
	log.Info().Str("module", "orch").Str("conn", string(s.ID())).Str("user", string(s.User().ID)).Msg("disconnected")
}

// ActiveConnections reports the number of live connections.
func (o *Orchestrator) ActiveConnections() int { return o.Registry.Count() }

func (o *Orchestrator) deliver(m core.Member, f core.Frame) core.PublishResult {
	if err := m.Signal().TrySend(f); err != nil {
		return core.PublishResult{Dropped: []core.Member{m}}
	}
	return core.PublishResult{SendTo: 1}
}

func (o *Orchestrator) applyPolicy(res core.PublishResult) {
	if o.Policy == nil {
		return
	}
	for _, slow := range res.Dropped {
		switch o.Policy.OnBackPressure(slow) {
		case app.KickMember:
			log.Warn().Str("module", "orch").Str("conn", string(slow.ID())).Msg("kicking slow consumer")
			o.Registry.Cancel(slow.ID())
		case app.DropFrame, app.NoAction:
			log.Debug().Str("module", "orch").Str("conn", string(slow.ID())).Msg("frame dropped")
		}
	}
}

func (o *Orchestrator) presence() core.PresenceStore {
	if o.Presence == nil {
		return core.NopPresence{}
	}
	return o.Presence
}
