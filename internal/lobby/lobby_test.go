package lobby

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/fearless-draft/internal/engine"
)

// helper: receive one snapshot with a timeout so tests never hang
func recvSnapshot(t *testing.T, ch <-chan Snapshot, within time.Duration) Snapshot {
	t.Helper()
	select {
	case snap, ok := <-ch:
		if !ok {
			t.Fatalf("client outbox closed unexpectedly")
		}
		return snap
	case <-time.After(within):
		t.Fatalf("timed out waiting for snapshot")
		return Snapshot{} // unreachable
	}
}

func recvNoSnapshot(t *testing.T, ch <-chan Snapshot, within time.Duration) {
	t.Helper()
	select {
	case s, ok := <-ch:
		if !ok {
			// channel closed → that's fine; no further snapshots possible
			return
		}
		t.Fatalf("expected no snapshot within %v, but got version %d", within, s.Version)
	case <-time.After(within):
		// good: no snapshot
	}
}

func recvView(t *testing.T, ch <-chan View, within time.Duration) View {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(within):
		t.Fatalf("timed out waiting for view")
		return View{} // unreachable
	}
}

func view(t *testing.T, l *Lobby) View {
	t.Helper()
	reply := make(chan View, 1)
	l.Inbox() <- GetState{Reply: reply}
	return recvView(t, reply, 100*time.Millisecond)
}

func startedSeries(t *testing.T, rules engine.Rules) engine.Series {
	t.Helper()
	s := engine.NewSeries("ZED123", rules, nil)
	for _, side := range engine.Sides {
		var err error
		_, s, err = engine.Apply(s, engine.Command{Type: engine.CmdToggleReady, Side: side})
		require.NoError(t, err)
	}
	return s
}

type recordingStore struct {
	mu        sync.Mutex
	snapshots []Snapshot
	events    []engine.Event
}

func (r *recordingStore) SaveSnapshot(_ context.Context, snap Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots = append(r.snapshots, snap)
	return nil
}

func (r *recordingStore) AppendEvents(_ context.Context, _ string, _ int, events []engine.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, events...)
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []engine.Event
}

func (r *recordingPublisher) Publish(_ context.Context, _ string, _ int, events []engine.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, events...)
	return nil
}

type itemSet map[engine.ItemID]bool

func (s itemSet) Has(id engine.ItemID) bool { return s[id] }

func TestLobby_LockIn_BroadcastsSnapshotAndVersionIncrements(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := NewLobby(ctx, startedSeries(t, engine.Rules{}), Options{Clock: clockwork.NewFakeClock()})

	clientOut := make(chan Snapshot, 2) // small buffer so broadcast doesn’t block
	l.Inbox() <- Join{ClientID: "ch1", Outbox: clientOut}

	first := recvSnapshot(t, clientOut, 100*time.Millisecond)
	require.Equal(t, 0, first.Version)
	require.Equal(t, engine.NoneItem, first.State.Games[0].Bans[engine.SideBlue][0])

	require.NoError(t, l.Do(ctx, engine.Command{Type: engine.CmdLockIn, Side: engine.SideBlue, ItemID: "266"}))

	next := recvSnapshot(t, clientOut, 100*time.Millisecond)
	assert.Equal(t, 1, next.Version)
	assert.Equal(t, engine.ItemID("266"), next.State.Games[0].Bans[engine.SideBlue][0])
	assert.Equal(t, 1, next.State.Cursor)

	l.Inbox() <- Shutdown{}
}

func TestLobby_RejectedCommand_NoBroadcast(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := NewLobby(ctx, startedSeries(t, engine.Rules{}), Options{Clock: clockwork.NewFakeClock()})
	out := make(chan Snapshot, 2)
	l.Inbox() <- Join{ClientID: "ch1", Outbox: out}
	_ = recvSnapshot(t, out, 100*time.Millisecond)

	err := l.Do(ctx, engine.Command{Type: engine.CmdLockIn, Side: engine.SideRed, ItemID: "266"})
	require.ErrorIs(t, err, engine.ErrNotYourTurn)
	recvNoSnapshot(t, out, 50*time.Millisecond)
	assert.Equal(t, 0, view(t, l).Version)
}

func TestLobby_UnknownItemRejected(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := NewLobby(ctx, startedSeries(t, engine.Rules{}), Options{
		Clock: clockwork.NewFakeClock(),
		Items: itemSet{"266": true},
	})

	err := l.Do(ctx, engine.Command{Type: engine.CmdLockIn, Side: engine.SideBlue, ItemID: "404"})
	require.ErrorIs(t, err, engine.ErrInvalidItem)
	require.NoError(t, l.Do(ctx, engine.Command{Type: engine.CmdLockIn, Side: engine.SideBlue, ItemID: "266"}))
}

func TestLobby_DropSlowClient(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := NewLobby(ctx, startedSeries(t, engine.Rules{}), Options{Clock: clockwork.NewFakeClock()})

	clientOut := make(chan Snapshot, 1)
	l.Inbox() <- Join{ClientID: "ch1", Outbox: clientOut}

	cmd := engine.Command{Type: engine.CmdLockIn, Side: engine.SideBlue, ItemID: "266"}
	l.Inbox() <- FromClient{Cmd: cmd}

	v := view(t, l)
	if v.NumClients != 0 {
		t.Fatalf("expected slow client to be dropped; NumClients=%d", v.NumClients)
	}
}

func TestLobby_TimerTicks_CountDown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clock := clockwork.NewFakeClock()
	l := NewLobby(ctx, startedSeries(t, engine.Rules{TurnTimerSec: 2}), Options{Clock: clock})

	out := make(chan Snapshot, 4)
	l.Inbox() <- Join{ClientID: "ch1", Outbox: out}
	first := recvSnapshot(t, out, 100*time.Millisecond)
	require.Equal(t, 2, first.State.TimerSec)

	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(time.Second)
	next := recvSnapshot(t, out, 500*time.Millisecond)
	assert.Equal(t, 1, next.Version)
	assert.Equal(t, 1, next.State.TimerSec)

	clock.Advance(time.Second)
	expired := recvSnapshot(t, out, 500*time.Millisecond)
	assert.Equal(t, 0, expired.State.TimerSec)
	assert.Equal(t, 0, expired.State.Cursor)

	// Expired timer stays at zero and produces nothing further.
	clock.Advance(time.Second)
	recvNoSnapshot(t, out, 100*time.Millisecond)
}

func TestLobby_WaitingSeries_TicksAreSilent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clock := clockwork.NewFakeClock()
	l := NewLobby(ctx, engine.NewSeries("x", engine.Rules{}, nil), Options{Clock: clock})

	out := make(chan Snapshot, 2)
	l.Inbox() <- Join{ClientID: "c1", Outbox: out}
	_ = recvSnapshot(t, out, 100*time.Millisecond)

	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(time.Second)
	recvNoSnapshot(t, out, 100*time.Millisecond)
}

func TestLobby_RecordsDurableEventsAndPublishesHover(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := &recordingStore{}
	pub := &recordingPublisher{}
	l := NewLobby(ctx, startedSeries(t, engine.Rules{}), Options{
		Clock:     clockwork.NewFakeClock(),
		Store:     store,
		Publisher: pub,
	})

	require.NoError(t, l.Do(ctx, engine.Command{Type: engine.CmdHover, Side: engine.SideBlue, ItemID: "1"}))
	require.NoError(t, l.Do(ctx, engine.Command{Type: engine.CmdLockIn, Side: engine.SideBlue, ItemID: "1"}))
	_ = view(t, l)

	store.mu.Lock()
	require.Len(t, store.snapshots, 1)
	assert.Equal(t, 2, store.snapshots[0].Version)
	assert.False(t, engine.ContainsEvent(store.events, engine.EvtHoverChanged))
	assert.True(t, engine.ContainsEvent(store.events, engine.EvtItemBanned))
	store.mu.Unlock()

	pub.mu.Lock()
	assert.True(t, engine.ContainsEvent(pub.events, engine.EvtHoverChanged))
	assert.True(t, engine.ContainsEvent(pub.events, engine.EvtItemBanned))
	pub.mu.Unlock()
}

func TestLobby_CorruptedSeriesIsDiscarded(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	broken := startedSeries(t, engine.Rules{})
	broken.Games[0].Consumed["42"] = true

	discarded := make(chan string, 1)
	l := NewLobby(ctx, broken, Options{
		Clock:     clockwork.NewFakeClock(),
		OnDiscard: func(id string) { discarded <- id },
	})

	out := make(chan Snapshot, 2)
	l.Inbox() <- Join{ClientID: "c1", Outbox: out}
	_ = recvSnapshot(t, out, 100*time.Millisecond)

	err := l.Do(ctx, engine.Command{Type: engine.CmdLockIn, Side: engine.SideBlue, ItemID: "1"})
	require.True(t, engine.IsCorruption(err) || errors.Is(err, ErrClosed), "got %v", err)

	select {
	case id := <-discarded:
		assert.Equal(t, "ZED123", id)
	case <-time.After(time.Second):
		t.Fatal("lobby was not discarded")
	}
	<-l.Done()
	recvNoSnapshot(t, out, 50*time.Millisecond)
	assert.ErrorIs(t, l.Send(ctx, GetState{Reply: make(chan View, 1)}), ErrClosed)
}

func TestLobby_Shutdown_StopsTimer_NoFire(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clock := clockwork.NewFakeClock()
	l := NewLobby(ctx, startedSeries(t, engine.Rules{}), Options{Clock: clock})

	out := make(chan Snapshot, 2)
	l.Inbox() <- Join{ClientID: "c1", Outbox: out}
	_ = recvSnapshot(t, out, 500*time.Millisecond) // drain join snapshot

	l.Inbox() <- Shutdown{}
	<-l.Done()
	clock.Advance(time.Second)

	// Now assert no *new* snapshot shows up (or channel is closed)
	recvNoSnapshot(t, out, 100*time.Millisecond)
}
