package app

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/dkeye/roomcast/internal/core"
	"github.com/dkeye/roomcast/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinUnknownRoomLeavesMembershipUntouched(t *testing.T) {
	rm := NewRoomManager(newMemStore("r1"), 0)
	alice, aConn := newMember("alice")

	_, _, err := rm.Join(context.Background(), alice, "nope")
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)
	assert.False(t, rm.IsMember("nope", "alice"))
	assert.Equal(t, 0, rm.RoomCount())
	assert.Empty(t, aConn.events())
}

func TestJoinStoreFailureIsStoreError(t *testing.T) {
	store := newMemStore("r1")
	store.listErr = errBoom
	rm := NewRoomManager(store, 0)
	alice, _ := newMember("alice")

	_, _, err := rm.Join(context.Background(), alice, "r1")
	assert.ErrorIs(t, err, domain.ErrStore)
	assert.False(t, rm.IsMember("r1", "alice"))
}

func TestJoinReturnsHistoryAndNotifiesOthers(t *testing.T) {
	store := newMemStore("r1")
	for i := 0; i < 5; i++ {
		_, err := store.AppendMessage(context.Background(), "r1", domain.User{ID: "u", Username: "u"}, fmt.Sprintf("m%d", i))
		require.NoError(t, err)
	}
	rm := NewRoomManager(store, 3)
	alice, aConn := newMember("alice")
	bob, bConn := newMember("bob")

	history, _, err := rm.Join(context.Background(), alice, "r1")
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "m2", history[0].Content)
	assert.Equal(t, "m4", history[2].Content)
	assert.Equal(t, []string{"load-history"}, aConn.events())

	_, res, err := rm.Join(context.Background(), bob, "r1")
	require.NoError(t, err)
	assert.Equal(t, 2, res.SendTo)
	assert.Equal(t, []string{"load-history", "member-joined"}, aConn.events())
	assert.Equal(t, []string{"load-history"}, bConn.events())
	assert.Len(t, rm.Members("r1"), 2)
}

func TestEnterTwiceDoesNotRenotify(t *testing.T) {
	rm := NewRoomManager(newMemStore("r1"), 0)
	alice, aConn := newMember("alice")
	bob, bConn := newMember("bob")
	ctx := context.Background()

	_, _, err := rm.Join(ctx, alice, "r1")
	require.NoError(t, err)
	_, _, err = rm.Join(ctx, bob, "r1")
	require.NoError(t, err)
	_, _, err = rm.Join(ctx, bob, "r1")
	require.NoError(t, err)

	assert.Equal(t, []string{"load-history", "member-joined"}, aConn.events())
	assert.Equal(t, []string{"load-history", "load-history"}, bConn.events())
}

func TestLeaveCollapsesEmptyRoomAndIsIdempotent(t *testing.T) {
	rm := NewRoomManager(newMemStore("r1"), 0)
	alice, aConn := newMember("alice")
	bob, _ := newMember("bob")
	ctx := context.Background()
	_, _, _ = rm.Join(ctx, alice, "r1")
	_, _, _ = rm.Join(ctx, bob, "r1")

	_, removed := rm.Leave(bob, "r1")
	assert.True(t, removed)
	assert.Equal(t, "member-left", aConn.events()[len(aConn.events())-1])
	assert.Equal(t, 1, rm.RoomCount())

	_, removed = rm.Leave(bob, "r1")
	assert.False(t, removed)

	_, removed = rm.Leave(alice, "r1")
	assert.True(t, removed)
	assert.Equal(t, 0, rm.RoomCount())
	assert.Empty(t, rm.Members("r1"))

	_, _, err := rm.Join(ctx, bob, "r1")
	require.NoError(t, err)
	assert.True(t, rm.IsMember("r1", "bob"))
}

func TestConcurrentJoinLeaveLeavesNoGhosts(t *testing.T) {
	rm := NewRoomManager(newMemStore("r1", "r2"), 0)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m, _ := newMember(fmt.Sprintf("c%d", i))
			room := domain.RoomID("r1")
			if i%2 == 0 {
				room = "r2"
			}
			for j := 0; j < 20; j++ {
				_, _, err := rm.Join(ctx, m, room)
				assert.NoError(t, err)
				rm.Leave(m, room)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 0, rm.RoomCount())
	assert.Empty(t, rm.Members("r1"))
	assert.Empty(t, rm.Members("r2"))
}

func TestConcurrentJoinsAllLand(t *testing.T) {
	rm := NewRoomManager(newMemStore("r1"), 0)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m, _ := newMember(fmt.Sprintf("c%d", i))
			_, _, err := rm.Join(ctx, m, "r1")
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Len(t, rm.Members("r1"), 30)
	require.Len(t, rm.List(), 1)
	assert.Equal(t, core.RoomInfo{ID: "r1", MemberCount: 30}, rm.List()[0])
}
