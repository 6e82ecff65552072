package core

import (
	"sync"

	"github.com/dkeye/roomcast/internal/domain"
	"github.com/rs/zerolog/log"
)

// roomImpl is a threadsafe in-memory member set.
// It never closes adapter-owned resources.
// Fan-out happens under the same lock as mutations, so a member that has
// been dismissed never sees a later frame from this set.
type roomImpl struct {
	id      domain.RoomID
	mu      sync.RWMutex
	members map[ConnectionID]Member
	retired bool
}

func NewRoomService(id domain.RoomID) RoomService {
	return &roomImpl{
		id:      id,
		members: make(map[ConnectionID]Member),
	}
}

func (r *roomImpl) ID() domain.RoomID { return r.id }

func (r *roomImpl) MemberCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}

func (r *roomImpl) Has(id ConnectionID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.members[id]
	return ok
}

func (r *roomImpl) Admit(m Member, notice, welcome Frame) (PublishResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.retired {
		return PublishResult{}, ErrRoomRetired
	}
	var res PublishResult
	if notice != nil {
		res = r.fanout(m.ID(), notice)
	}
	if welcome != nil {
		if err := m.Signal().TrySend(welcome); err != nil {
			res.Dropped = append(res.Dropped, m)
		} else {
			res.SendTo++
		}
	}
	r.members[m.ID()] = m
	log.Info().Str("module", "core.room").Str("room", string(r.id)).Str("conn", string(m.ID())).Str("user", string(m.User().ID)).Msg("member added")
	return res, nil
}

func (r *roomImpl) Dismiss(id ConnectionID, notice Frame) (PublishResult, bool, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.members[id]; !ok {
		return PublishResult{}, false, r.retired
	}
	delete(r.members, id)
	log.Info().Str("module", "core.room").Str("room", string(r.id)).Str("conn", string(id)).Msg("member removed")

	if len(r.members) == 0 {
		r.retired = true
		return PublishResult{}, true, true
	}
	var res PublishResult
	if notice != nil {
		res = r.fanout("", notice)
	}
	return res, true, false
}

func (r *roomImpl) Broadcast(data Frame) PublishResult {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := r.fanout("", data)
	log.Debug().Str("module", "core.room").Str("room", string(r.id)).Int("sent_to", res.SendTo).Int("dropped", len(res.Dropped)).Msg("broadcast result")
	return res
}

// fanout must be called with r.mu held.
func (r *roomImpl) fanout(skip ConnectionID, data Frame) PublishResult {
	res := PublishResult{}
	for id, m := range r.members {
		if id == skip {
			continue
		}
		if err := m.Signal().TrySend(data); err != nil {
			res.Dropped = append(res.Dropped, m)
			continue
		}
		res.SendTo++
	}
	return res
}

func (r *roomImpl) MembersSnapshot() []MemberDTO {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]MemberDTO, 0, len(r.members))
	for id, m := range r.members {
		u := m.User()
		out = append(out, MemberDTO{Connection: id, ID: u.ID, Username: u.Username})
	}
	return out
}
