package signal

import (
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"

	"duelvote/internal/core"
	"duelvote/internal/domain"
)

func (ctl *Controller) handleVote(sid core.SessionID, conn core.SignalConnection, payload json.RawMessage) {
	code, name, inRoom := ctl.Registry.RoomOf(sid)
	if !inRoom {
		ctl.sendError(conn, codeNotInRoom)
		return
	}
	room, ok := ctl.Store.Get(code)
	if !ok {
		ctl.sendError(conn, codeRoomMissing)
		return
	}

	var p struct {
		Choice string `json:"choice"`
	}
	_ = json.Unmarshal(payload, &p)

	snap, err := room.CastVote(name, domain.Choice(p.Choice))
	if err != nil {
		ctl.sendError(conn, voteErrorCode(err))
		return
	}

	ctl.broadcastRoom(room, "update", update(snap, name))
}

func voteErrorCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrVotingClosed):
		return codeVotingClosed
	case errors.Is(err, domain.ErrInvalidChoice):
		return codeInvalidChoice
	case errors.Is(err, domain.ErrAlreadyVoted):
		return codeAlreadyVoted
	default:
		log.Error().Err(err).Str("module", "signal").Msg("unexpected vote error")
		return codeInternalError
	}
}

// AnnounceVotingEnded is the store's countdown callback: the deadline fired
// and the room is closed, tell everyone the final tally.
func (ctl *Controller) AnnounceVotingEnded(room *core.Room, final core.Snapshot) {
	ctl.broadcastRoom(room, "voting_ended", votingEndedPayload{Votes: final.Votes})
}
