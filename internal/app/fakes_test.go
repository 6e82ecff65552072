package app

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/dkeye/roomcast/internal/core"
	"github.com/dkeye/roomcast/internal/domain"
)

type fakeConn struct {
	mu     sync.Mutex
	frames []core.Frame
	full   bool
}

func (c *fakeConn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.full {
		return core.ErrBackpressure
	}
	c.frames = append(c.frames, f)
	return nil
}

func (c *fakeConn) Close() {}

// events decodes the queued frames' type fields.
func (c *fakeConn) events() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.frames))
	for _, f := range c.frames {
		var env struct {
			Type string `json:"type"`
		}
		_ = json.Unmarshal(f, &env)
		out = append(out, env.Type)
	}
	return out
}

func (c *fakeConn) last() core.Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.frames) == 0 {
		return nil
	}
	return c.frames[len(c.frames)-1]
}

func newMember(id string) (core.Member, *fakeConn) {
	conn := &fakeConn{}
	u := domain.User{ID: domain.UserID("u-" + id), Username: id}
	return core.NewMemberSession(core.ConnectionID(id), u, conn), conn
}

var errBoom = errors.New("boom")

type memStore struct {
	mu        sync.Mutex
	rooms     map[domain.RoomID]*domain.Room
	messages  map[domain.RoomID][]domain.Message
	nextID    domain.MessageID
	appendErr error
	listErr   error
}

func newMemStore(rooms ...domain.RoomID) *memStore {
	s := &memStore{
		rooms:    make(map[domain.RoomID]*domain.Room),
		messages: make(map[domain.RoomID][]domain.Message),
	}
	for _, id := range rooms {
		s.rooms[id] = &domain.Room{ID: id, Name: string(id), Kind: domain.RoomKindChat}
	}
	return s
}

func (s *memStore) RoomByID(_ context.Context, id domain.RoomID) (*domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[id]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	return r, nil
}

func (s *memStore) ListRecentMessages(_ context.Context, id domain.RoomID, limit int) ([]domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	all := s.messages[id]
	if len(all) > limit {
		all = all[len(all)-limit:]
	}
	return append([]domain.Message(nil), all...), nil
}

func (s *memStore) AppendMessage(_ context.Context, id domain.RoomID, author domain.User, content string) (*domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.appendErr != nil {
		return nil, s.appendErr
	}
	s.nextID++
	msg := domain.Message{ID: s.nextID, RoomID: id, Author: author, Content: content, CreatedAt: time.Now().UTC()}
	s.messages[id] = append(s.messages[id], msg)
	return &msg, nil
}

func (s *memStore) Close() error { return nil }
