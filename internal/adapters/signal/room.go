package signal

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"

	"duelvote/internal/core"
	"duelvote/internal/domain"
)

func (ctl *Controller) handleCreateRoom(sid core.SessionID, conn core.SignalConnection, payload json.RawMessage) {
	var p struct {
		Name     string     `json:"name"`
		Question string     `json:"question"`
		Options  *[2]string `json:"options"`
	}
	// Missing or mistyped fields fall back to zero values and fail the
	// validation below.
	_ = json.Unmarshal(payload, &p)

	name := domain.NormalizeName(p.Name)
	if name == "" {
		ctl.sendError(conn, codeNameRequired)
		return
	}

	question := p.Question
	if question == "" {
		question = ctl.Cfg.DefaultQuestion
	}
	options := defaultOptions
	if p.Options != nil {
		options = *p.Options
	}

	room, err := ctl.Store.Create(question, options)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("room create failed")
		ctl.sendError(conn, codeInternalError)
		return
	}

	// A connection belongs to at most one room.
	ctl.leaveRoom(sid)

	ms := core.NewMemberSession(domain.NewParticipant(string(sid), name), conn)
	snap, err := ctl.attach(sid, room, ms)
	if err != nil {
		// Unreachable on a freshly created room; keep the store clean anyway.
		ctl.Store.RemoveIfEmpty(room.Meta().Code)
		ctl.sendError(conn, codeInternalError)
		return
	}

	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("code", string(snap.Code)).Str("name", name).Msg("room created")
	ctl.send(conn, "room_created", roomState(snap))
	ctl.broadcastRoom(room, "update", update(snap, ""))
}

func (ctl *Controller) handleJoinRoom(sid core.SessionID, conn core.SignalConnection, payload json.RawMessage) {
	var p struct {
		Name     string `json:"name"`
		RoomCode string `json:"roomCode"`
	}
	_ = json.Unmarshal(payload, &p)

	name := domain.NormalizeName(p.Name)
	// Codes are matched case-insensitively; the store only ever holds
	// uppercase codes.
	code := domain.RoomCode(strings.ToUpper(strings.TrimSpace(p.RoomCode)))
	if name == "" || code == "" {
		ctl.sendError(conn, codeNameAndRoomRequired)
		return
	}

	room, ok := ctl.Store.Get(code)
	if !ok {
		ctl.sendError(conn, codeRoomNotFound)
		return
	}

	// A connection belongs to at most one room.
	ctl.leaveRoom(sid)

	ms := core.NewMemberSession(domain.NewParticipant(string(sid), name), conn)
	snap, err := ctl.attach(sid, room, ms)
	switch {
	case errors.Is(err, domain.ErrNameTaken):
		ctl.sendError(conn, codeNameTaken)
		return
	case errors.Is(err, domain.ErrRoomNotFound):
		ctl.sendError(conn, codeRoomNotFound)
		return
	case err != nil:
		ctl.sendError(conn, codeInternalError)
		return
	}

	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("code", string(code)).Str("name", name).Msg("joined room")
	ctl.send(conn, "joined_room", roomState(snap))
	ctl.broadcastRoom(room, "update", update(snap, ""))
}

func (ctl *Controller) attach(sid core.SessionID, room *core.Room, ms core.MemberSession) (core.Snapshot, error) {
	snap, err := room.Attach(sid, ms)
	if err != nil {
		return core.Snapshot{}, err
	}
	// The room pointer came from a lookup before this attach, and the last
	// member's departure may have removed the room in between. The store is
	// the only authority, so re-validate the same room is still registered;
	// once a live member is attached, removal re-checks the member count and
	// cannot race past this.
	if got, ok := ctl.Store.Get(room.Meta().Code); !ok || got != room {
		room.Detach(sid)
		return core.Snapshot{}, domain.ErrRoomNotFound
	}
	ctl.Registry.SetRoom(sid, room.Meta().Code, ms.Meta().Name)
	return snap, nil
}

// leaveRoom detaches the session from its current room, if any, with the
// usual lifecycle effects: remaining members see a membership update with the
// unchanged tally, and the last member out takes the room and its countdown
// with it.
func (ctl *Controller) leaveRoom(sid core.SessionID) {
	code, _, inRoom := ctl.Registry.RoomOf(sid)
	if !inRoom {
		return
	}
	ctl.Registry.ClearRoom(sid)

	room, ok := ctl.Store.Get(code)
	if !ok {
		return
	}
	remaining, snap := room.Detach(sid)
	if remaining == 0 {
		ctl.Store.RemoveIfEmpty(code)
		return
	}
	ctl.broadcastRoom(room, "update", update(snap, ""))
}

// handleDisconnect runs when the transport drops, voluntarily or not. The
// departed member's vote stands.
func (ctl *Controller) handleDisconnect(sid core.SessionID) {
	ctl.leaveRoom(sid)
	ctl.Registry.Unbind(sid)
}
