package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/DoyleJ11/fearless-draft/internal/engine"
	"github.com/DoyleJ11/fearless-draft/internal/hub"
	"github.com/DoyleJ11/fearless-draft/internal/lobby"
	"github.com/DoyleJ11/fearless-draft/internal/types"
)

func newTestServer(t *testing.T) (*httptest.Server, context.Context) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	h := hub.NewHub(ctx, hub.Options{Lobby: lobby.Options{Clock: clockwork.NewFakeClock()}})
	_, err := h.Create(ctx, "WS0001", engine.NewSeries("WS0001", engine.Rules{}, nil))
	require.NoError(t, err)

	srv := httptest.NewServer(Handler(h, Options{}))
	t.Cleanup(srv.Close)
	return srv, ctx
}

func dial(t *testing.T, ctx context.Context, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?" + query
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.CloseNow() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) types.ServerMessage {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	var msg types.ServerMessage
	require.NoError(t, wsjson.Read(ctx, conn, &msg))
	return msg
}

func send(t *testing.T, conn *websocket.Conn, raw string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(raw)))
}

func TestHandler_ParticipantsDraft(t *testing.T) {
	srv, ctx := newTestServer(t)

	blue := dial(t, ctx, srv, "code=WS0001&view=blue")
	first := readFrame(t, blue)
	require.Equal(t, "StateSnapshot", first.Type)
	assert.Equal(t, 0, first.Version)
	assert.Equal(t, "waiting", first.State.Status)

	send(t, blue, `{"type":"ToggleReady"}`)
	ready := readFrame(t, blue)
	assert.Equal(t, 1, ready.Version)
	assert.Equal(t, "ready", ready.State.Status)
	assert.Equal(t, [2]bool{true, false}, ready.State.ReadyFlags)

	red := dial(t, ctx, srv, "code=WS0001&view=red")
	assert.Equal(t, 1, readFrame(t, red).Version)
	send(t, red, `{"type":"ToggleReady"}`)

	started := readFrame(t, red)
	assert.Equal(t, "in_progress", started.State.Status)
	assert.Equal(t, "blue", started.State.ActiveSide)
	assert.Equal(t, 2, readFrame(t, blue).Version)

	// The acting side comes from the view, so red cannot play blue's turn.
	send(t, red, `{"type":"LockIn","item_id":"Ahri"}`)
	rejected := readFrame(t, red)
	require.Equal(t, "Error", rejected.Type)
	assert.Equal(t, "not_your_turn", rejected.Error.Code)

	send(t, blue, `{"type":"LockIn","item_id":"Ahri"}`)
	banned := readFrame(t, blue)
	assert.Equal(t, 3, banned.Version)
	assert.Equal(t, "Ahri", banned.State.Games[0].Bans[0][0])
}

func TestHandler_ErrorFrames(t *testing.T) {
	srv, ctx := newTestServer(t)

	spectator := dial(t, ctx, srv, "code=WS0001")
	_ = readFrame(t, spectator)
	send(t, spectator, `{"type":"ToggleReady"}`)
	msg := readFrame(t, spectator)
	require.Equal(t, "Error", msg.Type)
	assert.Equal(t, "not_participant", msg.Error.Code)

	blue := dial(t, ctx, srv, "code=WS0001&view=blue")
	_ = readFrame(t, blue)

	tests := []struct {
		raw  string
		code string
	}{
		{`not json`, "bad_request"},
		{`{"type":"Tick"}`, "unsupported_command"},
		{`{"type":"LockIn","item_id":"Ahri"}`, "series_not_active"},
		{`{"type":"AcceptSwap"}`, "series_not_active"},
	}
	for _, tt := range tests {
		send(t, blue, tt.raw)
		msg := readFrame(t, blue)
		require.Equal(t, "Error", msg.Type, tt.raw)
		assert.Equal(t, tt.code, msg.Error.Code, tt.raw)
	}
}

func TestHandler_RejectsBadRequests(t *testing.T) {
	srv, _ := newTestServer(t)

	tests := []struct {
		query string
		want  int
	}{
		{"", http.StatusBadRequest},
		{"code=WS0001&view=purple", http.StatusBadRequest},
		{"code=NOPE00", http.StatusNotFound},
	}
	for _, tt := range tests {
		resp, err := http.Get(srv.URL + "/ws?" + tt.query)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, tt.want, resp.StatusCode, tt.query)
	}
}
