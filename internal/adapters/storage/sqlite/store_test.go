package sqlite

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/dkeye/roomcast/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestStore creates an in-memory SQLite store for testing.
func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:", true)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedRoom(t *testing.T, s *Store, id domain.RoomID) {
	t.Helper()
	require.NoError(t, s.CreateRoom(context.Background(), &domain.Room{
		ID: id, Name: "Room " + string(id),
		CreatedBy: domain.User{ID: "1", Username: "owner"},
	}))
}

func TestRoomByID(t *testing.T) {
	s := setupTestStore(t)
	seedRoom(t, s, "r1")

	r, err := s.RoomByID(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, domain.RoomID("r1"), r.ID)
	assert.Equal(t, domain.RoomKindChat, r.Kind)
	assert.Equal(t, domain.User{ID: "1", Username: "owner"}, r.CreatedBy)

	_, err = s.RoomByID(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)
}

func TestAppendAssignsIDsAndCanonicalAuthor(t *testing.T) {
	s := setupTestStore(t)
	seedRoom(t, s, "r1")
	alice := domain.User{ID: "7", Username: "alice"}

	m1, err := s.AppendMessage(context.Background(), "r1", alice, "hello")
	require.NoError(t, err)
	m2, err := s.AppendMessage(context.Background(), "r1", alice, "again")
	require.NoError(t, err)

	assert.Equal(t, domain.MessageID(1), m1.ID)
	assert.Greater(t, m2.ID, m1.ID)
	assert.Equal(t, alice, m1.Author)
	assert.Equal(t, domain.RoomID("r1"), m1.RoomID)
	assert.False(t, m1.CreatedAt.IsZero())

	_, err = s.AppendMessage(context.Background(), "nope", alice, "x")
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)
}

func TestTimestampsNeverDecrease(t *testing.T) {
	s := setupTestStore(t)
	seedRoom(t, s, "r1")
	clock := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }
	u := domain.User{ID: "1", Username: "u"}

	first, err := s.AppendMessage(context.Background(), "r1", u, "a")
	require.NoError(t, err)

	clock = clock.Add(-time.Hour)
	second, err := s.AppendMessage(context.Background(), "r1", u, "b")
	require.NoError(t, err)
	assert.False(t, second.CreatedAt.Before(first.CreatedAt))
}

func TestListRecentMessagesOldestFirst(t *testing.T) {
	s := setupTestStore(t)
	seedRoom(t, s, "r1")
	seedRoom(t, s, "r2")
	u := domain.User{ID: "1", Username: "u"}
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := s.AppendMessage(ctx, "r1", u, fmt.Sprintf("m%d", i))
		require.NoError(t, err)
	}
	_, err := s.AppendMessage(ctx, "r2", u, "other")
	require.NoError(t, err)

	msgs, err := s.ListRecentMessages(ctx, "r1", 3)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, []string{"m2", "m3", "m4"}, []string{msgs[0].Content, msgs[1].Content, msgs[2].Content})

	empty, err := s.ListRecentMessages(ctx, "nope", 10)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
