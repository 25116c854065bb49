package core

import (
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"duelvote/internal/domain"
)

var codeRe = regexp.MustCompile(`^[A-Z0-9]{6}$`)

type announceRecorder struct {
	mu    sync.Mutex
	calls []Snapshot
}

func (a *announceRecorder) announce(_ *Room, final Snapshot) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, final)
}

func (a *announceRecorder) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.calls)
}

func (a *announceRecorder) last() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls[len(a.calls)-1]
}

func TestStoreCreate(t *testing.T) {
	fc := clockwork.NewFakeClock()
	s := NewStore(fc, 60*time.Second, nil)

	room, err := s.Create("Cats vs Dogs", [2]string{"Cats", "Dogs"})
	require.NoError(t, err)

	code := room.Meta().Code
	assert.Regexp(t, codeRe, string(code))
	assert.Equal(t, fc.Now().Add(60*time.Second), room.Meta().Deadline)
	assert.Equal(t, domain.Tally{}, room.Snapshot().Votes)

	got, ok := s.Get(code)
	require.True(t, ok)
	assert.Same(t, room, got)

	_, ok = s.Get("NOPE42")
	assert.False(t, ok)
}

func TestStoreCreateUniqueCodes(t *testing.T) {
	fc := clockwork.NewFakeClock()
	s := NewStore(fc, 60*time.Second, nil)

	seen := make(map[domain.RoomCode]bool)
	for i := 0; i < 100; i++ {
		room, err := s.Create("q", [2]string{"A", "B"})
		require.NoError(t, err)
		code := room.Meta().Code
		assert.False(t, seen[code], "code %s reused while live", code)
		seen[code] = true
	}
}

func TestStoreRemoveIfEmpty(t *testing.T) {
	fc := clockwork.NewFakeClock()
	s := NewStore(fc, 60*time.Second, nil)

	room, err := s.Create("q", [2]string{"A", "B"})
	require.NoError(t, err)
	code := room.Meta().Code

	_, err = room.Attach("s1", member("Alice"))
	require.NoError(t, err)
	assert.False(t, s.RemoveIfEmpty(code), "occupied room must stay")

	room.Detach("s1")
	assert.True(t, s.RemoveIfEmpty(code))
	_, ok := s.Get(code)
	assert.False(t, ok)

	assert.False(t, s.RemoveIfEmpty(code), "second removal is a no-op")
}

func TestCountdownFires(t *testing.T) {
	fc := clockwork.NewFakeClock()
	rec := &announceRecorder{}
	s := NewStore(fc, 60*time.Second, rec.announce)

	room, err := s.Create("q", [2]string{"A", "B"})
	require.NoError(t, err)
	_, err = room.Attach("s1", member("Alice"))
	require.NoError(t, err)
	_, err = room.CastVote("Alice", domain.ChoiceA)
	require.NoError(t, err)

	fc.Advance(60 * time.Second)
	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, domain.Tally{A: 1, B: 0}, rec.last().Votes)

	_, err = room.CastVote("Bob", domain.ChoiceB)
	require.ErrorIs(t, err, domain.ErrVotingClosed)

	// The room lives on while occupied, just closed.
	_, ok := s.Get(room.Meta().Code)
	assert.True(t, ok)
	assert.True(t, room.Closed())
}

func TestCountdownCancelledOnRemoval(t *testing.T) {
	fc := clockwork.NewFakeClock()
	rec := &announceRecorder{}
	s := NewStore(fc, 60*time.Second, rec.announce)

	room, err := s.Create("q", [2]string{"A", "B"})
	require.NoError(t, err)

	require.True(t, s.RemoveIfEmpty(room.Meta().Code))
	fc.Advance(2 * time.Minute)

	assert.Never(t, func() bool { return rec.count() > 0 }, 200*time.Millisecond, 10*time.Millisecond,
		"no closure event after the room is gone")
}

func TestCountdownFiresOncePerRoom(t *testing.T) {
	fc := clockwork.NewFakeClock()
	rec := &announceRecorder{}
	s := NewStore(fc, 60*time.Second, rec.announce)

	room, err := s.Create("q", [2]string{"A", "B"})
	require.NoError(t, err)
	_, err = room.Attach("s1", member("Alice"))
	require.NoError(t, err)

	fc.Advance(60 * time.Second)
	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 5*time.Millisecond)

	fc.Advance(10 * time.Minute)
	assert.Never(t, func() bool { return rec.count() > 1 }, 200*time.Millisecond, 10*time.Millisecond)
}

func TestStoreList(t *testing.T) {
	fc := clockwork.NewFakeClock()
	s := NewStore(fc, 60*time.Second, nil)

	room, err := s.Create("Cats vs Dogs", [2]string{"A", "B"})
	require.NoError(t, err)
	_, err = room.Attach("s1", member("Alice"))
	require.NoError(t, err)

	infos := s.List()
	require.Len(t, infos, 1)
	assert.Equal(t, room.Meta().Code, infos[0].Code)
	assert.Equal(t, 1, infos[0].MemberCount)
	assert.False(t, infos[0].Closed)
}
