package core

import (
	"time"

	"duelvote/internal/domain"
)

// Frame is one marshaled wire message. A broadcast hands the same Frame to
// every recipient, so one call always delivers byte-identical payloads.
type Frame []byte

type SessionID string

// SignalConnection abstracts the system messaging transport.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// MemberSession binds a domain.Participant and its transport endpoint.
// This is what a room stores and fans out to.
type MemberSession interface {
	Meta() *domain.Participant
	Signal() SignalConnection
}

// PublishResult reports delivery stats/backpressure to the caller.
type PublishResult struct {
	SentTo  int
	Dropped int
}

// Snapshot is a consistent read of one room's broadcastable state, taken
// under the room lock. Vote shares and remaining time are derived by
// consumers, never stored.
type Snapshot struct {
	Code     domain.RoomCode
	Question string
	Options  [2]string
	Votes    domain.Tally
	Deadline time.Time
}

// RoomInfo is a read-only view for APIs (no transport fields).
type RoomInfo struct {
	Code        domain.RoomCode `json:"code"`
	Question    string          `json:"question"`
	MemberCount int             `json:"member_count"`
	Closed      bool            `json:"closed"`
}
