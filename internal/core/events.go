package core

import (
	"encoding/json"

	"github.com/dkeye/roomcast/internal/domain"
)

type EventType string

// Inbound.
const (
	EvJoinRoom        EventType = "join-room"
	EvLeaveRoom       EventType = "leave-room"
	EvSendMessage     EventType = "send-message"
	EvSignalOffer     EventType = "signal-offer"
	EvSignalAnswer    EventType = "signal-answer"
	EvSignalCandidate EventType = "signal-candidate"
	EvPing            EventType = "ping"
	EvWhoAmI          EventType = "whoami"
)

// Outbound.
const (
	EvConnected        EventType = "connected"
	EvLoadHistory      EventType = "load-history"
	EvMemberJoined     EventType = "member-joined"
	EvMemberLeft       EventType = "member-left"
	EvMessageDelivered EventType = "message-delivered"
	EvMessageRejected  EventType = "message-rejected"
	EvRoomError        EventType = "room-error"
	EvLeft             EventType = "left"
	EvPong             EventType = "pong"
	EvError            EventType = "error"
)

// SignalKind is the call-setup step carried by a signaling event.
type SignalKind string

const (
	SignalOffer     SignalKind = "offer"
	SignalAnswer    SignalKind = "answer"
	SignalCandidate SignalKind = "candidate"
)

// Event returns the wire name of the signaling event for k.
func (k SignalKind) Event() EventType { return EventType("signal-" + string(k)) }

func (k SignalKind) Valid() bool {
	switch k {
	case SignalOffer, SignalAnswer, SignalCandidate:
		return true
	}
	return false
}

type ConnectedEvent struct {
	Type       EventType    `json:"type"`
	Connection ConnectionID `json:"connection"`
	User       domain.User  `json:"user"`
}

type HistoryEvent struct {
	Type     EventType        `json:"type"`
	Room     domain.RoomID    `json:"room"`
	Messages []domain.Message `json:"messages"`
}

type MemberEvent struct {
	Type EventType     `json:"type"`
	Room domain.RoomID `json:"room"`
	User domain.User   `json:"user"`
}

type MessageEvent struct {
	Type    EventType      `json:"type"`
	Message domain.Message `json:"message"`
}

// RoomEvent carries a per-room outcome: rejections, errors and "left".
type RoomEvent struct {
	Type   EventType     `json:"type"`
	Room   domain.RoomID `json:"room"`
	Reason string        `json:"reason,omitempty"`
}

type SignalEvent struct {
	Type EventType       `json:"type"`
	From ConnectionID    `json:"from"`
	Body json.RawMessage `json:"body"`
}

type WhoAmIEvent struct {
	Type       EventType     `json:"type"`
	Connection ConnectionID  `json:"connection"`
	User       domain.User   `json:"user"`
	Room       domain.RoomID `json:"room,omitempty"`
}

type ErrorEvent struct {
	Type   EventType `json:"type"`
	Reason string    `json:"reason"`
}

type PongEvent struct {
	Type EventType `json:"type"`
}

// Encode marshals an outbound event into a Frame.
func Encode(v any) (Frame, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return Frame(b), nil
}

// MustEncode is Encode for the fixed event structs above, whose encoding
// cannot fail.
func MustEncode(v any) Frame {
	f, err := Encode(v)
	if err != nil {
		panic(err)
	}
	return f
}
