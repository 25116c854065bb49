// Package domain contains entities without logic, just meta-data.
package domain

import (
	"errors"
	"time"
)

const CodeLength = 6

// RoomCode is the 6-character uppercase alphanumeric room identifier.
type RoomCode string

// Choice is one of the two tally buckets. The bucket an option label maps to
// is positional: options[0] -> A, options[1] -> B, never by label value.
type Choice string

const (
	ChoiceA Choice = "A"
	ChoiceB Choice = "B"
)

func (c Choice) Valid() bool { return c == ChoiceA || c == ChoiceB }

// Tally holds the two vote counters, keyed the way they go over the wire.
type Tally struct {
	A int `json:"A"`
	B int `json:"B"`
}

func (t Tally) Total() int { return t.A + t.B }

var (
	ErrVotingClosed       = errors.New("voting closed")
	ErrInvalidChoice      = errors.New("invalid choice")
	ErrAlreadyVoted       = errors.New("already voted")
	ErrNameTaken          = errors.New("name taken")
	ErrRoomNotFound       = errors.New("room not found")
	ErrCodeSpaceExhausted = errors.New("room code space exhausted")
)

// Room is the immutable meta of a voting room. Tally, voters and membership
// are mutable state and live in the core room service, not here.
type Room struct {
	Code     RoomCode
	Question string
	Options  [2]string
	Deadline time.Time
}
