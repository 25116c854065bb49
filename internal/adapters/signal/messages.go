package signal

import (
	"encoding/json"

	"duelvote/internal/core"
	"duelvote/internal/domain"
)

// Wire error codes. Always sent to the originating connection only, never
// broadcast, and never fatal to the room or the connection.
const (
	codeInvalidJSON         = "invalid_json"
	codeUnknownType         = "unknown_type"
	codeNameRequired        = "name_required"
	codeNameAndRoomRequired = "name_and_room_required"
	codeRoomNotFound        = "room_not_found"
	codeNameTaken           = "name_taken"
	codeNotInRoom           = "not_in_room"
	codeRoomMissing         = "room_missing"
	codeVotingClosed        = "voting_closed"
	codeInvalidChoice       = "invalid_choice"
	codeAlreadyVoted        = "already_voted"
	codeInternalError       = "internal_error"
)

var defaultOptions = [2]string{"A", "B"}

type inboundEnvelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outboundEnvelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// errorMessage carries its code at the top level, not inside a payload.
type errorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// roomStatePayload is the full room snapshot sent on room_created and
// joined_room. TimerEnd is absolute milliseconds since epoch; clients derive
// remaining seconds from it locally.
type roomStatePayload struct {
	RoomCode string       `json:"roomCode"`
	Question string       `json:"question"`
	Options  [2]string    `json:"options"`
	Votes    domain.Tally `json:"votes"`
	TimerEnd int64        `json:"timerEnd"`
}

type updatePayload struct {
	Votes     domain.Tally `json:"votes"`
	TimerEnd  int64        `json:"timerEnd"`
	LastVoter string       `json:"lastVoter,omitempty"`
}

type votingEndedPayload struct {
	Votes domain.Tally `json:"votes"`
}

func roomState(snap core.Snapshot) roomStatePayload {
	return roomStatePayload{
		RoomCode: string(snap.Code),
		Question: snap.Question,
		Options:  snap.Options,
		Votes:    snap.Votes,
		TimerEnd: snap.Deadline.UnixMilli(),
	}
}

func update(snap core.Snapshot, lastVoter string) updatePayload {
	return updatePayload{
		Votes:     snap.Votes,
		TimerEnd:  snap.Deadline.UnixMilli(),
		LastVoter: lastVoter,
	}
}
