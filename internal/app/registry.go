package app

import (
	"sync"

	"github.com/rs/zerolog/log"

	"duelvote/internal/core"
	"duelvote/internal/domain"
)

type sessionEntry struct {
	Conn     core.SignalConnection
	RoomCode domain.RoomCode
	Name     string
}

// Registry is the side table keyed by session ID that tracks each live
// connection's transport endpoint and its room association. Room and name
// state is kept here rather than on the websocket object itself.
type Registry struct {
	mu       sync.RWMutex
	sessions map[core.SessionID]*sessionEntry
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[core.SessionID]*sessionEntry),
	}
}

// Bind registers a fresh connection with no room association yet.
func (r *Registry) Bind(sid core.SessionID, conn core.SignalConnection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sid] = &sessionEntry{Conn: conn}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("bound session")
}

func (r *Registry) Unbind(sid core.SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sid)
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("unbound session")
}

// SetRoom records the room and display name for a session. The name is fixed
// for the rest of the connection's life.
func (r *Registry) SetRoom(sid core.SessionID, code domain.RoomCode, name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.sessions[sid]
	if !ok {
		return false
	}
	entry.RoomCode = code
	entry.Name = name
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("room", string(code)).Str("name", name).Msg("joined room")
	return true
}

// ClearRoom drops the session's room association but keeps the connection
// bound. Used when a member leaves one room to enter another.
func (r *Registry) ClearRoom(sid core.SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.sessions[sid]; ok {
		entry.RoomCode = ""
		entry.Name = ""
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("cleared room association")
}

// RoomOf reports the session's room association, if any.
func (r *Registry) RoomOf(sid core.SessionID) (domain.RoomCode, string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.sessions[sid]
	if !ok || entry.RoomCode == "" {
		return "", "", false
	}
	return entry.RoomCode, entry.Name, true
}
