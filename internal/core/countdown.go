package core

import (
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"duelvote/internal/domain"
)

// countdown is the one-shot closure event a room's deadline schedules.
// Stopping it is reachable from exactly one place, the empty-room removal
// path, which also drops it from the store map.
type countdown struct {
	timer clockwork.Timer
	done  chan struct{}
}

func (s *Store) scheduleClose(room *Room) *countdown {
	code := room.Meta().Code
	cd := &countdown{
		timer: s.clock.NewTimer(room.Meta().Deadline.Sub(s.clock.Now())),
		done:  make(chan struct{}),
	}
	go func() {
		select {
		case <-cd.timer.Chan():
			s.fireDeadline(code)
		case <-cd.done:
			stopAndDrainTimer(cd.timer)
			log.Debug().Str("module", "core.store").Str("code", string(code)).Msg("countdown cancelled")
		}
	}()
	return cd
}

func (cd *countdown) stop() { close(cd.done) }

// stopAndDrainTimer stops a timer and drains its channel if it already fired,
// per the time.Timer.Stop documentation.
func stopAndDrainTimer(t clockwork.Timer) {
	if !t.Stop() {
		select {
		case <-t.Chan():
		default:
		}
	}
}

// fireDeadline closes the room at its deadline and announces the final tally.
// The room may have been deleted since the timer was armed, so it is looked
// up again first; firing against a gone room is a no-op.
func (s *Store) fireDeadline(code domain.RoomCode) {
	s.mu.Lock()
	room, ok := s.rooms[code]
	if ok {
		delete(s.countdowns, code)
	}
	s.mu.Unlock()

	if !ok {
		log.Debug().Str("module", "core.store").Str("code", string(code)).Msg("countdown fired for removed room")
		return
	}

	final := room.close()
	log.Info().Str("module", "core.store").Str("code", string(code)).Int("votes_a", final.Votes.A).Int("votes_b", final.Votes.B).Msg("voting ended")
	if s.announce != nil {
		s.announce(room, final)
	}
}
