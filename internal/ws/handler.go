package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/DoyleJ11/fearless-draft/internal/engine"
	"github.com/DoyleJ11/fearless-draft/internal/hub"
	"github.com/DoyleJ11/fearless-draft/internal/lobby"
	"github.com/DoyleJ11/fearless-draft/internal/types"
)

const (
	ViewBlue      = "blue"
	ViewRed       = "red"
	ViewSpectator = "spectator"

	codeBadRequest = "bad_request"
	codeInternal   = "internal"
)

type Options struct {
	Logger *zap.Logger
	// OriginPatterns are passed to websocket.Accept; "*" disables the check.
	OriginPatterns []string
	WriteTimeout   time.Duration
	CommandTimeout time.Duration
}

// Handler serves GET /ws?code=<series>&view=blue|red|spectator. The view
// decides which side a connection acts for; spectators only receive
// snapshots.
func Handler(h *hub.Hub, opts Options) http.HandlerFunc {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 3 * time.Second
	}
	if opts.CommandTimeout <= 0 {
		opts.CommandTimeout = 5 * time.Second
	}
	acceptOpts := &websocket.AcceptOptions{OriginPatterns: opts.OriginPatterns}
	if slices.Contains(opts.OriginPatterns, "*") {
		acceptOpts = &websocket.AcceptOptions{InsecureSkipVerify: true}
	}

	return func(w http.ResponseWriter, r *http.Request) {
		code := strings.TrimSpace(r.URL.Query().Get("code"))
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			return
		}
		side, participant, ok := parseView(r.URL.Query().Get("view"))
		if !ok {
			http.Error(w, "view must be blue, red or spectator", http.StatusBadRequest)
			return
		}

		lb, err := h.Lookup(r.Context(), code)
		if err != nil {
			opts.Logger.Error("lobby lookup failed", zap.String("series_id", code), zap.Error(err))
			http.Error(w, "lobby unavailable", http.StatusInternalServerError)
			return
		}
		if lb == nil {
			http.Error(w, "lobby not found", http.StatusNotFound)
			return
		}

		conn, err := websocket.Accept(w, r, acceptOpts)
		if err != nil {
			return
		}
		defer conn.CloseNow()

		view := string(side)
		if !participant {
			view = ViewSpectator
		}
		c := &client{
			id:    uuid.NewString(),
			conn:  conn,
			lobby: lb,
			side:  side,
			opts:  opts,
			log: opts.Logger.With(
				zap.String("series_id", code),
				zap.String("view", view),
			),
		}
		c.serve(r.Context(), participant)
	}
}

func parseView(v string) (side engine.Side, participant bool, ok bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case ViewBlue:
		return engine.SideBlue, true, true
	case ViewRed:
		return engine.SideRed, true, true
	case "", ViewSpectator:
		return "", false, true
	default:
		return "", false, false
	}
}

type client struct {
	id    string
	conn  *websocket.Conn
	lobby *lobby.Lobby
	side  engine.Side
	opts  Options
	log   *zap.Logger
}

func (c *client) serve(ctx context.Context, participant bool) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	out := make(chan lobby.Snapshot, 16)
	if err := c.lobby.Send(ctx, lobby.Join{ClientID: c.id, Outbox: out}); err != nil {
		c.conn.Close(websocket.StatusGoingAway, "lobby closed")
		return
	}
	defer func() {
		leaveCtx, leaveCancel := context.WithTimeout(context.Background(), time.Second)
		defer leaveCancel()
		_ = c.lobby.Send(leaveCtx, lobby.Leave{ClientID: c.id})
	}()
	c.log.Debug("client joined", zap.String("client_id", c.id))

	frames := make(chan types.ServerMessage, 8)
	go c.writeLoop(ctx, out, frames)

	// Reader loop
	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
			default:
				c.log.Debug("read failed", zap.String("client_id", c.id), zap.Error(err))
			}
			return
		}

		var cm types.ClientMessage
		if err := json.Unmarshal(data, &cm); err != nil {
			c.reply(ctx, frames, errorFrame(codeBadRequest, "bad json"))
			continue
		}
		if !participant {
			c.reply(ctx, frames, draftErrorFrame(engine.ErrNotParticipant))
			continue
		}
		cmd, ok := toEngineCommand(cm, c.side)
		if !ok {
			c.reply(ctx, frames, draftErrorFrame(engine.ErrUnsupportedCommand))
			continue
		}

		cmdCtx, cmdCancel := context.WithTimeout(ctx, c.opts.CommandTimeout)
		err = c.lobby.Do(cmdCtx, cmd)
		cmdCancel()
		switch {
		case err == nil:
		case errors.Is(err, lobby.ErrClosed):
			c.conn.Close(websocket.StatusGoingAway, "lobby closed")
			return
		case engine.KindOf(err) != "":
			c.reply(ctx, frames, draftErrorFrame(err))
		default:
			c.log.Warn("command failed", zap.String("command", cm.Type), zap.Error(err))
			c.reply(ctx, frames, errorFrame(codeInternal, "command failed"))
		}
	}
}

// writeLoop is the only writer on the connection so that error frames and
// snapshots go out in the order they were produced.
func (c *client) writeLoop(ctx context.Context, out <-chan lobby.Snapshot, frames <-chan types.ServerMessage) {
	for {
		var msg types.ServerMessage
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-out:
			if !ok {
				// Lobby stopped or dropped us as too slow.
				c.conn.Close(websocket.StatusGoingAway, "lobby closed")
				return
			}
			state := types.NewSeriesSnapshot(snap.Version, snap.State)
			msg = types.ServerMessage{Type: "StateSnapshot", Version: snap.Version, State: &state}
		case msg = <-frames:
		}

		wctx, cancel := context.WithTimeout(ctx, c.opts.WriteTimeout)
		err := wsjson.Write(wctx, c.conn, msg)
		cancel()
		if err != nil {
			c.log.Debug("write failed", zap.String("client_id", c.id), zap.Error(err))
			c.conn.CloseNow()
			return
		}
	}
}

func (c *client) reply(ctx context.Context, frames chan<- types.ServerMessage, msg types.ServerMessage) {
	select {
	case frames <- msg:
	case <-ctx.Done():
	}
}

func errorFrame(code, message string) types.ServerMessage {
	return types.ServerMessage{Type: "Error", Error: &types.ErrorBody{Code: code, Message: message}}
}

func draftErrorFrame(err error) types.ServerMessage {
	return errorFrame(string(engine.KindOf(err)), err.Error())
}

func toEngineCommand(m types.ClientMessage, side engine.Side) (engine.Command, bool) {
	cmd := engine.Command{Side: side, ItemID: engine.ItemID(m.ItemID), TurnIndex: m.TurnIndex}
	switch engine.CommandType(m.Type) {
	case engine.CmdToggleReady, engine.CmdLockIn, engine.CmdHover,
		engine.CmdRequestSwap, engine.CmdAcceptSwap, engine.CmdDeclineSwap:
		cmd.Type = engine.CommandType(m.Type)
		return cmd, true
	default:
		return engine.Command{}, false
	}
}
