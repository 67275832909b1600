package hub

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/DoyleJ11/fearless-draft/internal/engine"
	"github.com/DoyleJ11/fearless-draft/internal/lobby"
)

type HubMsg interface{ isHubMsg() }

type CreateLobby struct {
	Code  string
	State engine.Series
	Reply chan *lobby.Lobby
}

type GetLobby struct {
	Code  string
	Reply chan *lobby.Lobby
}

type EnsureLobby struct {
	Code    string
	State   engine.Series // only used if creation happens
	Version int
	Reply   chan *lobby.Lobby
}

// RemoveLobby forgets Code. If Lobby is set, only that instance is removed.
type RemoveLobby struct {
	Code  string
	Lobby *lobby.Lobby
}

type ShutdownHub struct{}

func (CreateLobby) isHubMsg() {}
func (GetLobby) isHubMsg()    {}
func (EnsureLobby) isHubMsg() {}
func (RemoveLobby) isHubMsg() {}
func (ShutdownHub) isHubMsg() {}

// Loader restores series that are no longer held in memory.
type Loader interface {
	LoadSnapshot(ctx context.Context, seriesID string) (lobby.Snapshot, bool, error)
}

type Options struct {
	Logger *zap.Logger
	// Lobby is the template every new lobby is started with.
	Lobby  lobby.Options
	Loader Loader
}

type Hub struct {
	inbox   chan HubMsg
	lobbies map[string]*lobby.Lobby
	opts    Options
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewHub(parent context.Context, opts Options) *Hub {
	ctx, cancel := context.WithCancel(parent)
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Lobby.Logger == nil {
		opts.Lobby.Logger = opts.Logger
	}
	h := &Hub{
		inbox:   make(chan HubMsg, 64),
		lobbies: make(map[string]*lobby.Lobby),
		opts:    opts,
		log:     opts.Logger,
		ctx:     ctx,
		cancel:  cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			clear(h.lobbies)
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateLobby:
				if lb := h.lobbies[msg.Code]; lb != nil {
					msg.Reply <- lb
					break
				}
				msg.Reply <- h.start(msg.Code, msg.State, 0)

			case GetLobby:
				msg.Reply <- h.lobbies[msg.Code] // May be nil

			case EnsureLobby:
				if lb := h.lobbies[msg.Code]; lb != nil {
					msg.Reply <- lb
					break
				}
				msg.Reply <- h.start(msg.Code, msg.State, msg.Version)

			case RemoveLobby:
				if msg.Lobby != nil && h.lobbies[msg.Code] != msg.Lobby {
					break
				}
				delete(h.lobbies, msg.Code)
				h.log.Info("lobby removed", zap.String("series_id", msg.Code))

			case ShutdownHub:
				for _, lb := range h.lobbies {
					select {
					case lb.Inbox() <- lobby.Shutdown{}:
					default:
					}
				}
				clear(h.lobbies)
				h.cancel()
			}
		}
	}
}

func (h *Hub) start(code string, state engine.Series, version int) *lobby.Lobby {
	opts := h.opts.Lobby
	opts.Version = version

	var lb *lobby.Lobby
	opts.OnDiscard = func(id string) {
		go func() {
			select {
			case h.inbox <- RemoveLobby{Code: code, Lobby: lb}:
			case <-h.ctx.Done():
			}
		}()
	}
	lb = lobby.NewLobby(h.ctx, state, opts)
	h.lobbies[code] = lb
	h.log.Info("lobby started", zap.String("series_id", code), zap.Int("version", version))
	return lb
}

func (h *Hub) ask(ctx context.Context, msg HubMsg, reply chan *lobby.Lobby) (*lobby.Lobby, error) {
	select {
	case h.inbox <- msg:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-h.ctx.Done():
		return nil, fmt.Errorf("hub stopped")
	}
	select {
	case lb := <-reply:
		return lb, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (h *Hub) Get(ctx context.Context, code string) (*lobby.Lobby, error) {
	reply := make(chan *lobby.Lobby, 1)
	return h.ask(ctx, GetLobby{Code: code, Reply: reply}, reply)
}

func (h *Hub) Create(ctx context.Context, code string, state engine.Series) (*lobby.Lobby, error) {
	reply := make(chan *lobby.Lobby, 1)
	return h.ask(ctx, CreateLobby{Code: code, State: state, Reply: reply}, reply)
}

// Lookup returns the live lobby for code, restoring it from the Loader when
// it is not in memory. A nil lobby with a nil error means unknown code.
func (h *Hub) Lookup(ctx context.Context, code string) (*lobby.Lobby, error) {
	lb, err := h.Get(ctx, code)
	if err != nil || lb != nil || h.opts.Loader == nil {
		return lb, err
	}

	snap, ok, err := h.opts.Loader.LoadSnapshot(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("load series %s: %w", code, err)
	}
	if !ok {
		return nil, nil
	}
	if err := engine.Verify(snap.State); err != nil {
		h.log.Error("stored series is corrupted", zap.String("series_id", code), zap.Error(err))
		return nil, err
	}

	reply := make(chan *lobby.Lobby, 1)
	return h.ask(ctx, EnsureLobby{Code: code, State: snap.State, Version: snap.Version, Reply: reply}, reply)
}
