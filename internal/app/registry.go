package app

import (
	"context"
	"sync"

	"github.com/dkeye/roomcast/internal/core"
	"github.com/rs/zerolog/log"
)

type sessionEntry struct {
	Session core.Member
	Cancel  context.CancelFunc
}

// Registry is the directory of live connections, keyed by connection id.
// Signaling looks targets up here; the backpressure policy cancels through it.
type Registry struct {
	mu       sync.RWMutex
	sessions map[core.ConnectionID]*sessionEntry
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[core.ConnectionID]*sessionEntry),
	}
}

func (r *Registry) BindSignal(sess core.Member, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sess.ID()] = &sessionEntry{Session: sess, Cancel: cancel}
	log.Info().Str("module", "app.registry").Str("conn", string(sess.ID())).Str("user", string(sess.User().ID)).Msg("bound signal")
}

func (r *Registry) GetSession(id core.ConnectionID) (core.Member, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.sessions[id]; ok {
		return e.Session, true
	}
	return nil, false
}

func (r *Registry) Unbind(id core.ConnectionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	log.Info().Str("module", "app.registry").Str("conn", string(id)).Msg("unbind session")
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Cancel fires the connection's cancel func. The transport then tears the
// connection down through the normal disconnect path.
func (r *Registry) Cancel(id core.ConnectionID) bool {
	r.mu.RLock()
	e, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	if e.Cancel != nil {
		e.Cancel()
	}
	log.Info().Str("module", "app.registry").Str("conn", string(id)).Msg("canceled session")
	return true
}
