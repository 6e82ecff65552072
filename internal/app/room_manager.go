package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dkeye/roomcast/internal/core"
	"github.com/dkeye/roomcast/internal/domain"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

const DefaultHistoryLimit = 100

// RoomManager is the membership registry. It keeps one member set per live
// room and drops the set once its last member leaves.
//
// mu guards only the live map. It is never held while a member set is locked
// or while the store is consulted.
type RoomManager struct {
	store        core.Store
	historyLimit int
	loads        singleflight.Group // concurrent joins to one room share a lookup

	mu   sync.Mutex
	live map[domain.RoomID]core.RoomService
}

func NewRoomManager(store core.Store, historyLimit int) *RoomManager {
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	return &RoomManager{
		store:        store,
		historyLimit: historyLimit,
		live:         make(map[domain.RoomID]core.RoomService),
	}
}

type loaded struct {
	room    *domain.Room
	history []domain.Message
}

// Load checks that the room exists and returns its recent history, oldest
// first. It does not touch membership. The result is shared between
// concurrent callers and must not be modified.
func (m *RoomManager) Load(ctx context.Context, roomID domain.RoomID) (*domain.Room, []domain.Message, error) {
	// one caller going away must not fail the others
	ctx = context.WithoutCancel(ctx)
	v, err, _ := m.loads.Do(string(roomID), func() (any, error) {
		room, err := m.store.RoomByID(ctx, roomID)
		if err != nil {
			return nil, storeErr(err)
		}
		history, err := m.store.ListRecentMessages(ctx, roomID, m.historyLimit)
		if err != nil {
			return nil, storeErr(err)
		}
		return loaded{room: room, history: history}, nil
	})
	if err != nil {
		return nil, nil, err
	}
	l := v.(loaded)
	return l.room, l.history, nil
}

// Enter adds member to the set of roomID. Other members get notice, member
// gets welcome ahead of any later broadcast. Entering a room the member is
// already in is a no-op apart from welcome.
func (m *RoomManager) Enter(member core.Member, roomID domain.RoomID, notice, welcome core.Frame) core.PublishResult {
	for {
		set := m.getOrCreate(roomID)
		if set.Has(member.ID()) {
			var res core.PublishResult
			if welcome != nil {
				if err := member.Signal().TrySend(welcome); err != nil {
					res.Dropped = append(res.Dropped, member)
				} else {
					res.SendTo++
				}
			}
			return res
		}
		res, err := set.Admit(member, notice, welcome)
		if errors.Is(err, core.ErrRoomRetired) {
			m.forget(roomID, set)
			continue
		}
		return res
	}
}

// Join is Load followed by Enter. A missing room or a store failure leaves
// membership untouched.
func (m *RoomManager) Join(ctx context.Context, member core.Member, roomID domain.RoomID) ([]domain.Message, core.PublishResult, error) {
	_, history, err := m.Load(ctx, roomID)
	if err != nil {
		return nil, core.PublishResult{}, err
	}
	res := m.Enter(member, roomID, JoinedFrame(roomID, member.User()), HistoryFrame(roomID, history))
	return history, res, nil
}

// Leave removes id from roomID and notifies the rest. Idempotent.
func (m *RoomManager) Leave(member core.Member, roomID domain.RoomID) (core.PublishResult, bool) {
	m.mu.Lock()
	set, ok := m.live[roomID]
	m.mu.Unlock()
	if !ok {
		return core.PublishResult{}, false
	}
	res, removed, retired := set.Dismiss(member.ID(), LeftFrame(roomID, member.User()))
	if retired {
		m.forget(roomID, set)
	}
	return res, removed
}

func (m *RoomManager) IsMember(roomID domain.RoomID, id core.ConnectionID) bool {
	set, ok := m.get(roomID)
	return ok && set.Has(id)
}

func (m *RoomManager) Members(roomID domain.RoomID) []core.MemberDTO {
	set, ok := m.get(roomID)
	if !ok {
		return []core.MemberDTO{}
	}
	return set.MembersSnapshot()
}

func (m *RoomManager) Broadcast(roomID domain.RoomID, frame core.Frame) core.PublishResult {
	set, ok := m.get(roomID)
	if !ok {
		return core.PublishResult{}
	}
	return set.Broadcast(frame)
}

func (m *RoomManager) RoomCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.live)
}

func (m *RoomManager) List() []core.RoomInfo {
	m.mu.Lock()
	sets := make([]core.RoomService, 0, len(m.live))
	for _, s := range m.live {
		sets = append(sets, s)
	}
	m.mu.Unlock()

	out := make([]core.RoomInfo, 0, len(sets))
	for _, s := range sets {
		out = append(out, core.RoomInfo{ID: s.ID(), MemberCount: s.MemberCount()})
	}
	return out
}

func (m *RoomManager) get(roomID domain.RoomID) (core.RoomService, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.live[roomID]
	return s, ok
}

func (m *RoomManager) getOrCreate(roomID domain.RoomID) core.RoomService {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.live[roomID]; ok {
		return s
	}
	s := core.NewRoomService(roomID)
	m.live[roomID] = s
	log.Debug().Str("module", "app.rooms").Str("room", string(roomID)).Msg("room opened")
	return s
}

// forget drops set from the live map unless it was already replaced.
func (m *RoomManager) forget(roomID domain.RoomID, set core.RoomService) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.live[roomID]; ok && cur == set {
		delete(m.live, roomID)
		log.Debug().Str("module", "app.rooms").Str("room", string(roomID)).Msg("room collapsed")
	}
}

func storeErr(err error) error {
	if errors.Is(err, domain.ErrRoomNotFound) || errors.Is(err, domain.ErrStore) {
		return err
	}
	return fmt.Errorf("%w: %v", domain.ErrStore, err)
}
