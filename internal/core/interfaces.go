package core

import (
	"context"
	"errors"

	"github.com/dkeye/roomcast/internal/domain"
)

// Frame is an encoded outbound event, ready for the wire.
type Frame []byte

// ConnectionID identifies one live transport connection. A user may hold
// several at once.
type ConnectionID string

var (
	ErrBackpressure     = errors.New("backpressure")
	ErrConnectionClosed = errors.New("connection closed")
)

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
// TrySend never blocks: a full queue yields ErrBackpressure.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// Member binds an authenticated identity and its transport endpoint.
// This is what a room stores and fans out to.
type Member interface {
	ID() ConnectionID
	User() domain.User
	Signal() SignalConnection
}

// PublishResult reports delivery stats/backpressure to orchestrator.
type PublishResult struct {
	SendTo  int
	Dropped []Member
}

// Merge folds other into r.
func (r *PublishResult) Merge(other PublishResult) {
	r.SendTo += other.SendTo
	r.Dropped = append(r.Dropped, other.Dropped...)
}

// MemberDTO is a read-only view for APIs (no transport fields).
type MemberDTO struct {
	Connection ConnectionID  `json:"connection"`
	ID         domain.UserID `json:"id"`
	Username   string        `json:"username"`
}

// RoomService is the member set of one live room.
// It owns the membership set but never touches transport resources.
// A retired set refuses new members; callers must fetch a fresh one.
type RoomService interface {
	ID() domain.RoomID
	MemberCount() int
	MembersSnapshot() []MemberDTO
	Has(id ConnectionID) bool

	// Admit sends notice to the members already present, queues welcome to
	// m and adds m, in one critical section. It fails with ErrRoomRetired on
	// a retired set.
	Admit(m Member, notice, welcome Frame) (PublishResult, error)
	// Dismiss removes id and sends notice to the remaining members. The set
	// retires itself when it becomes empty.
	Dismiss(id ConnectionID, notice Frame) (res PublishResult, removed, retired bool)
	// Broadcast delivers data to every member, sender included.
	Broadcast(data Frame) PublishResult
}

var ErrRoomRetired = errors.New("room retired")

// RoomInfo is a live room summary.
type RoomInfo struct {
	ID          domain.RoomID `json:"id"`
	MemberCount int           `json:"client_count"`
}

// RoomStore answers room existence and metadata.
type RoomStore interface {
	RoomByID(ctx context.Context, id domain.RoomID) (*domain.Room, error)
}

// MessageStore is the durable chat log. Implementations assign ids and
// timestamps; timestamps never decrease within a room.
type MessageStore interface {
	// ListRecentMessages returns the newest limit messages, oldest first.
	ListRecentMessages(ctx context.Context, room domain.RoomID, limit int) ([]domain.Message, error)
	AppendMessage(ctx context.Context, room domain.RoomID, author domain.User, content string) (*domain.Message, error)
}

// Store is the whole persistence gateway.
type Store interface {
	RoomStore
	MessageStore
	Close() error
}

// PresenceStore mirrors live membership for external readers. Best effort.
type PresenceStore interface {
	Enter(ctx context.Context, room domain.RoomID, conn ConnectionID, user domain.User) error
	Exit(ctx context.Context, room domain.RoomID, conn ConnectionID) error
}

// NopPresence discards presence updates.
type NopPresence struct{}

func (NopPresence) Enter(context.Context, domain.RoomID, ConnectionID, domain.User) error {
	return nil
}

func (NopPresence) Exit(context.Context, domain.RoomID, ConnectionID) error { return nil }
