package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"duelvote/internal/core"
)

const writeWait = 5 * time.Second

func (ctl *Controller) writePump(ctx context.Context, c *WsSignalConn) {
	ping := time.NewTicker(ctl.Cfg.PingPeriod)
	defer ping.Stop()
	// Closing here unblocks a readPump stuck on a dead peer.
	defer c.Close()

	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "signal").Msg("writePump ctx done")
			return
		case <-ping.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case data, ok := <-c.send:
			if !ok {
				log.Debug().Str("module", "signal").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		}
	}
}

func (ctl *Controller) readPump(ctx context.Context, sid core.SessionID, c *WsSignalConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("readPump closing")
		ctl.handleDisconnect(sid)
		c.Close()
	}()

	// A peer that stops answering pings must time out here, or its member
	// would keep the room alive forever.
	pongWait := ctl.Cfg.PingPeriod * 10 / 9
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				log.Debug().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("readPump read error")
				return
			}
			ctl.dispatch(sid, c, data)
		}
	}
}

// dispatch routes one inbound message by its type discriminator. Anything
// that does not parse as a message envelope is invalid_json; a parseable
// envelope with an unrecognized type is unknown_type.
func (ctl *Controller) dispatch(sid core.SessionID, c core.SignalConnection, data []byte) {
	var env inboundEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		ctl.sendError(c, codeInvalidJSON)
		return
	}

	switch env.Type {
	case "create_room":
		ctl.handleCreateRoom(sid, c, env.Payload)
	case "join_room":
		ctl.handleJoinRoom(sid, c, env.Payload)
	case "vote":
		ctl.handleVote(sid, c, env.Payload)
	default:
		ctl.sendError(c, codeUnknownType)
	}
}

func (ctl *Controller) send(c core.SignalConnection, typ string, payload any) {
	b, err := json.Marshal(outboundEnvelope{Type: typ, Payload: payload})
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("send marshal")
		return
	}
	_ = c.TrySend(b)
}

func (ctl *Controller) sendError(c core.SignalConnection, code string) {
	b, err := json.Marshal(errorMessage{Type: "error", Message: code})
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendError marshal")
		return
	}
	_ = c.TrySend(b)
}

// broadcastRoom marshals once and fans the identical frame out to every
// member, the sender included.
func (ctl *Controller) broadcastRoom(room *core.Room, typ string, payload any) {
	b, err := json.Marshal(outboundEnvelope{Type: typ, Payload: payload})
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("broadcast marshal")
		return
	}
	room.Broadcast(b)
}
