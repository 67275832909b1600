package lobby

import (
	"context"
	"errors"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/DoyleJ11/fearless-draft/internal/engine"
)

var ErrClosed = errors.New("lobby closed")

type Msg interface{ isLobbyMsg() }

// FromClient carries one command. Reply, if set, receives the outcome and
// should be buffered.
type FromClient struct {
	Cmd   engine.Command
	Reply chan error
}

func (FromClient) isLobbyMsg() {}

type Join struct {
	ClientID string
	Outbox   chan Snapshot // where this client wants to receive snapshots
}

func (Join) isLobbyMsg() {}

type Leave struct{ ClientID string }

func (Leave) isLobbyMsg() {}

type Shutdown struct{}

func (Shutdown) isLobbyMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isLobbyMsg() {}

type Snapshot struct {
	Version int
	State   engine.Series
}

type View struct {
	Version    int
	NumClients int
	State      engine.Series
}

// Store persists accepted mutations. Failures are logged, never fatal.
type Store interface {
	SaveSnapshot(ctx context.Context, snap Snapshot) error
	AppendEvents(ctx context.Context, seriesID string, version int, events []engine.Event) error
}

// Publisher fans accepted events out to other processes.
type Publisher interface {
	Publish(ctx context.Context, seriesID string, version int, events []engine.Event) error
}

// ItemSet reports whether an id exists in the catalog.
type ItemSet interface {
	Has(id engine.ItemID) bool
}

type Options struct {
	Logger    *zap.Logger
	Clock     clockwork.Clock
	Store     Store
	Publisher Publisher
	Items     ItemSet
	// OnDiscard runs on the lobby goroutine after a corrupted series has been
	// dropped. It must not block.
	OnDiscard func(seriesID string)
	// Version restores the counter of a series loaded from storage.
	Version int
}

const (
	tickInterval   = time.Second
	persistTimeout = 3 * time.Second
)

type Lobby struct {
	inbox   chan Msg
	state   engine.Series
	version int
	clients map[string]chan Snapshot
	opts    Options
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewLobby(parent context.Context, initial engine.Series, opts Options) *Lobby {
	ctx, cancel := context.WithCancel(parent)
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}

	l := &Lobby{
		inbox:   make(chan Msg, 64), // Small buffer
		state:   initial,
		version: opts.Version,
		clients: make(map[string]chan Snapshot),
		opts:    opts,
		log:     opts.Logger.With(zap.String("series_id", initial.ID)),
		ctx:     ctx,
		cancel:  cancel,
	}

	ticker := opts.Clock.NewTicker(tickInterval)
	go l.loop(ticker)
	return l
}

func (l *Lobby) loop(ticker clockwork.Ticker) {
	defer ticker.Stop()
	for {
		select {
		case <-l.ctx.Done():
			l.shutdown()
			return

		case <-ticker.Chan():
			if !l.apply(engine.Command{Type: engine.CmdTick}, nil) {
				return
			}

		case m := <-l.inbox:
			switch msg := m.(type) {
			case Join:
				// Register client + send current snapshot immediately
				l.clients[msg.ClientID] = msg.Outbox
				msg.Outbox <- l.snapshot()

			case Leave:
				if ch, ok := l.clients[msg.ClientID]; ok {
					close(ch)
					delete(l.clients, msg.ClientID)
				}

			case FromClient:
				if !l.apply(msg.Cmd, msg.Reply) {
					return
				}

			case GetState:
				msg.Reply <- View{
					Version:    l.version,
					NumClients: len(l.clients),
					State:      l.state,
				}

			case Shutdown:
				l.shutdown()
				return
			}
		}
	}
}

// apply runs one command through the engine. It returns false when the
// series was found corrupted and the lobby has stopped.
func (l *Lobby) apply(cmd engine.Command, reply chan error) bool {
	if l.opts.Items != nil && (cmd.Type == engine.CmdLockIn || cmd.Type == engine.CmdHover) &&
		cmd.ItemID != engine.NoneItem && !l.opts.Items.Has(cmd.ItemID) {
		respond(reply, engine.ErrInvalidItem)
		return true
	}

	events, next, err := engine.Apply(l.state, cmd)
	if err != nil {
		respond(reply, err)
		if engine.IsCorruption(err) {
			l.log.Error("discarding corrupted series", zap.String("command", string(cmd.Type)), zap.Error(err))
			l.shutdown()
			if l.opts.OnDiscard != nil {
				l.opts.OnDiscard(l.state.ID)
			}
			return false
		}
		if cmd.Type != engine.CmdTick {
			l.log.Debug("command rejected",
				zap.String("command", string(cmd.Type)),
				zap.String("side", string(cmd.Side)),
				zap.String("kind", string(engine.KindOf(err))))
		}
		return true
	}
	respond(reply, nil)
	if len(events) == 0 {
		return true
	}

	l.state = next
	l.version++
	snap := l.snapshot()
	l.record(snap, events)
	l.broadcast(snap)
	return true
}

func respond(reply chan error, err error) {
	if reply == nil {
		return
	}
	select {
	case reply <- err:
	default:
	}
}

// record persists and publishes events. Timer ticks are neither; hovers are
// published but not persisted.
func (l *Lobby) record(snap Snapshot, events []engine.Event) {
	var durable, shared []engine.Event
	for _, e := range events {
		switch e.Type {
		case engine.EvtTimerTicked:
			continue
		case engine.EvtHoverChanged:
			shared = append(shared, e)
		default:
			durable = append(durable, e)
			shared = append(shared, e)
		}
	}

	ctx, cancel := context.WithTimeout(l.ctx, persistTimeout)
	defer cancel()

	if l.opts.Store != nil && len(durable) > 0 {
		if err := l.opts.Store.AppendEvents(ctx, snap.State.ID, snap.Version, durable); err != nil {
			l.log.Warn("append events failed", zap.Int("version", snap.Version), zap.Error(err))
		}
		if err := l.opts.Store.SaveSnapshot(ctx, snap); err != nil {
			l.log.Warn("save snapshot failed", zap.Int("version", snap.Version), zap.Error(err))
		}
	}
	if l.opts.Publisher != nil && len(shared) > 0 {
		if err := l.opts.Publisher.Publish(ctx, snap.State.ID, snap.Version, shared); err != nil {
			l.log.Warn("publish events failed", zap.Int("version", snap.Version), zap.Error(err))
		}
	}

	for _, e := range durable {
		if e.Type == engine.EvtSeriesCompleted {
			l.log.Info("series completed", zap.Int("games", len(snap.State.Games)))
		}
	}
}

func (l *Lobby) snapshot() Snapshot {
	return Snapshot{Version: l.version, State: l.state.Clone()}
}

func (l *Lobby) shutdown() {
	for id, ch := range l.clients {
		close(ch) // Tell client no more snapshots
		delete(l.clients, id)
	}
	l.cancel()
}

func (l *Lobby) broadcast(snap Snapshot) {
	for id, ch := range l.clients {
		select {
		case ch <- snap:
			//ok
		default:
			// Client is slow/full - drop them.
			close(ch)
			delete(l.clients, id)
		}
	}
}

// Expose the inbox so tests or WS layer can send messages.
func (l *Lobby) Inbox() chan<- Msg { return l.inbox }

// Done is closed once the lobby has stopped.
func (l *Lobby) Done() <-chan struct{} { return l.ctx.Done() }

// Send delivers msg unless ctx ends or the lobby stops first.
func (l *Lobby) Send(ctx context.Context, msg Msg) error {
	select {
	case <-l.Done():
		return ErrClosed
	default:
	}
	select {
	case l.inbox <- msg:
		return nil
	case <-l.Done():
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Do sends cmd and waits for the engine's verdict.
func (l *Lobby) Do(ctx context.Context, cmd engine.Command) error {
	reply := make(chan error, 1)
	if err := l.Send(ctx, FromClient{Cmd: cmd, Reply: reply}); err != nil {
		return err
	}
	select {
	case err := <-reply:
		return err
	case <-l.Done():
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}
