package signal

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"duelvote/internal/domain"
)

func wsServer(t *testing.T, ctl *Controller) string {
	t.Helper()
	gin.SetMode(gin.TestMode)
	g := gin.New()
	g.GET("/ws", func(c *gin.Context) { ctl.HandleSignal(context.Background(), c) })
	srv := httptest.NewServer(g)
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func wsCreateRoom(t *testing.T, conn *websocket.Conn, name string) domain.RoomCode {
	t.Helper()
	require.NoError(t, conn.WriteJSON(map[string]any{
		"type":    "create_room",
		"payload": map[string]any{"name": name},
	}))
	var created struct {
		Type    string           `json:"type"`
		Payload roomStatePayload `json:"payload"`
	}
	require.NoError(t, conn.ReadJSON(&created))
	require.Equal(t, "room_created", created.Type)
	return domain.RoomCode(created.Payload.RoomCode)
}

func TestDeadPeerIsDisconnected(t *testing.T) {
	ctl := newTestController(clockwork.NewFakeClock())
	ctl.Cfg.PingPeriod = 20 * time.Millisecond
	url := wsServer(t, ctl)

	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	code := wsCreateRoom(t, conn, "Alice")
	_, ok := ctl.Store.Get(code)
	require.True(t, ok)

	// Go silent: the client stops reading, so no pongs flow back. The read
	// deadline must expire and the zombie member take its empty room along.
	require.Eventually(t, func() bool {
		_, ok := ctl.Store.Get(code)
		return !ok
	}, 5*time.Second, 20*time.Millisecond)
}

func TestResponsivePeerStaysConnected(t *testing.T) {
	ctl := newTestController(clockwork.NewFakeClock())
	ctl.Cfg.PingPeriod = 25 * time.Millisecond
	url := wsServer(t, ctl)

	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	code := wsCreateRoom(t, conn, "Alice")

	// Keep reading so the default pong handling answers the server's pings.
	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			select {
			case <-done:
				return
			default:
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}
	}()

	// Many ping periods later the member is still attached.
	time.Sleep(500 * time.Millisecond)
	room, ok := ctl.Store.Get(code)
	require.True(t, ok, "responsive peer must not be timed out")
	assert.Equal(t, 1, room.MemberCount())
}
