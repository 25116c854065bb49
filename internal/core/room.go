package core

import (
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"duelvote/internal/domain"
)

// Room is a threadsafe in-memory voting room.
// One mutex guards tally, voters, members and the closed flag as a unit, so
// every operation is atomic with respect to this room and rooms never
// contend with each other. It never closes adapter-owned resources.
type Room struct {
	meta  *domain.Room
	clock clockwork.Clock

	mu      sync.Mutex
	tally   domain.Tally
	voters  map[string]struct{}
	members map[SessionID]MemberSession
	closed  bool
}

func newRoom(meta *domain.Room, clock clockwork.Clock) *Room {
	return &Room{
		meta:    meta,
		clock:   clock,
		voters:  make(map[string]struct{}),
		members: make(map[SessionID]MemberSession),
	}
}

// Meta is immutable after creation and safe to read without the lock.
func (r *Room) Meta() *domain.Room { return r.meta }

func (r *Room) MemberCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}

func (r *Room) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

func (r *Room) snapshotLocked() Snapshot {
	return Snapshot{
		Code:     r.meta.Code,
		Question: r.meta.Question,
		Options:  r.meta.Options,
		Votes:    r.tally,
		Deadline: r.meta.Deadline,
	}
}

// Attach adds the session to the member set. Display names are unique per
// room, compared case-sensitively against current members only; a departed
// member frees its name.
func (r *Room) Attach(sid SessionID, ms MemberSession) (Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := ms.Meta().Name
	for _, m := range r.members {
		if m.Meta().Name == name {
			return Snapshot{}, domain.ErrNameTaken
		}
	}
	r.members[sid] = ms
	log.Info().Str("module", "core.room").Str("code", string(r.meta.Code)).Str("sid", string(sid)).Str("name", name).Msg("member attached")
	return r.snapshotLocked(), nil
}

// Detach removes the session from the member set. A departed voter's vote
// stands: tally and voters are untouched.
func (r *Room) Detach(sid SessionID) (remaining int, snap Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.members, sid)
	log.Info().Str("module", "core.room").Str("code", string(r.meta.Code)).Str("sid", string(sid)).Msg("member detached")
	return len(r.members), r.snapshotLocked()
}

// CastVote records one vote for name. The deadline check is lazy: a vote
// arriving at or after the deadline is rejected even if the countdown has
// not fired yet. Both paths compare wall-clock time against the same
// absolute deadline, so they cannot drift apart.
func (r *Room) CastVote(name string, choice domain.Choice) (Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || !r.clock.Now().Before(r.meta.Deadline) {
		return Snapshot{}, domain.ErrVotingClosed
	}
	if !choice.Valid() {
		return Snapshot{}, domain.ErrInvalidChoice
	}
	if _, dup := r.voters[name]; dup {
		return Snapshot{}, domain.ErrAlreadyVoted
	}

	switch choice {
	case domain.ChoiceA:
		r.tally.A++
	case domain.ChoiceB:
		r.tally.B++
	}
	r.voters[name] = struct{}{}
	log.Info().Str("module", "core.room").Str("code", string(r.meta.Code)).Str("name", name).Str("choice", string(choice)).Int("total", r.tally.Total()).Msg("vote cast")
	return r.snapshotLocked(), nil
}

// close marks the room closed and returns the final snapshot.
func (r *Room) close() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return r.snapshotLocked()
}

func (r *Room) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed || !r.clock.Now().Before(r.meta.Deadline)
}

// Broadcast hands data to every member's transport. Sends are fire-and-forget:
// a member whose connection is closed or backlogged is skipped, never blocks
// room state.
func (r *Room) Broadcast(data Frame) PublishResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	res := PublishResult{}
	for _, m := range r.members {
		if err := m.Signal().TrySend(data); err != nil {
			res.Dropped++
			continue
		}
		res.SentTo++
	}
	log.Debug().Str("module", "core.room").Str("code", string(r.meta.Code)).Int("sent_to", res.SentTo).Int("dropped", res.Dropped).Msg("broadcast result")
	return res
}

func (r *Room) info() RoomInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	return RoomInfo{
		Code:        r.meta.Code,
		Question:    r.meta.Question,
		MemberCount: len(r.members),
		Closed:      r.closed || !r.clock.Now().Before(r.meta.Deadline),
	}
}
