package core

import (
	"math/rand"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"duelvote/internal/domain"
)

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// maxCodeAttempts bounds collision retries during code generation. With a
// 36^6 code space this is unreachable outside a broken random source.
const maxCodeAttempts = 1000

// AnnounceFunc is invoked after a countdown closes a room, with the final
// snapshot taken atomically at close.
type AnnounceFunc func(r *Room, final Snapshot)

// Store is the process-wide room registry. It owns all rooms exclusively:
// the only path to a room is lookup by code, and callers re-validate through
// Get after any suspension point instead of caching room pointers.
type Store struct {
	clock      clockwork.Clock
	voteWindow time.Duration
	announce   AnnounceFunc

	mu         sync.RWMutex
	rooms      map[domain.RoomCode]*Room
	countdowns map[domain.RoomCode]*countdown
}

func NewStore(clock clockwork.Clock, voteWindow time.Duration, announce AnnounceFunc) *Store {
	return &Store{
		clock:      clock,
		voteWindow: voteWindow,
		announce:   announce,
		rooms:      make(map[domain.RoomCode]*Room),
		countdowns: make(map[domain.RoomCode]*countdown),
	}
}

// Create inserts a new empty room under a code not currently live and
// schedules its closure countdown. The deadline is fixed here and never
// extended.
func (s *Store) Create(question string, options [2]string) (*Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	code, err := s.freeCodeLocked()
	if err != nil {
		return nil, err
	}
	meta := &domain.Room{
		Code:     code,
		Question: question,
		Options:  options,
		Deadline: s.clock.Now().Add(s.voteWindow),
	}
	room := newRoom(meta, s.clock)
	s.rooms[code] = room
	s.countdowns[code] = s.scheduleClose(room)
	log.Info().Str("module", "core.store").Str("code", string(code)).Time("deadline", meta.Deadline).Msg("room created")
	return room, nil
}

func (s *Store) freeCodeLocked() (domain.RoomCode, error) {
	for i := 0; i < maxCodeAttempts; i++ {
		code := randomCode()
		if _, taken := s.rooms[code]; !taken {
			return code, nil
		}
	}
	return "", domain.ErrCodeSpaceExhausted
}

func randomCode() domain.RoomCode {
	b := make([]byte, domain.CodeLength)
	for i := range b {
		b[i] = codeAlphabet[rand.Intn(len(codeAlphabet))]
	}
	return domain.RoomCode(b)
}

func (s *Store) Get(code domain.RoomCode) (*Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[code]
	return room, ok
}

// RemoveIfEmpty deletes the room iff its member set is empty and cancels its
// pending countdown. Called after every member departure; the member-count
// re-check makes a lost race against a concurrent join harmless.
func (s *Store) RemoveIfEmpty(code domain.RoomCode) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[code]
	if !ok || room.MemberCount() != 0 {
		return false
	}
	if cd, ok := s.countdowns[code]; ok {
		cd.stop()
		delete(s.countdowns, code)
	}
	delete(s.rooms, code)
	log.Info().Str("module", "core.store").Str("code", string(code)).Msg("empty room removed")
	return true
}

func (s *Store) List() []RoomInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]RoomInfo, 0, len(s.rooms))
	for _, r := range s.rooms {
		out = append(out, r.info())
	}
	return out
}
