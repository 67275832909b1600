package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/fearless-draft/internal/engine"
)

func playedSeries(t *testing.T) engine.Series {
	t.Helper()
	s := engine.NewSeries("SNAP01", engine.Rules{NumberOfGames: 2, Fearless: true},
		map[engine.Side]string{engine.SideBlue: "Alpha"})
	apply := func(cmd engine.Command) {
		var err error
		_, s, err = engine.Apply(s, cmd)
		require.NoError(t, err)
	}
	for _, side := range engine.Sides {
		apply(engine.Command{Type: engine.CmdToggleReady, Side: side})
	}
	apply(engine.Command{Type: engine.CmdLockIn, Side: engine.SideBlue, ItemID: "Zed"})
	apply(engine.Command{Type: engine.CmdLockIn, Side: engine.SideRed, ItemID: "Ahri"})
	apply(engine.Command{Type: engine.CmdHover, Side: engine.SideBlue, ItemID: "Jinx"})
	return s
}

func TestNewSeriesSnapshot(t *testing.T) {
	snap := NewSeriesSnapshot(4, playedSeries(t))

	assert.Equal(t, 4, snap.Version)
	assert.Equal(t, [2]string{"Alpha", "Red Team"}, snap.SideNames)
	assert.Equal(t, "in_progress", snap.Status)
	assert.Equal(t, "ban1", snap.Phase)
	assert.Equal(t, 2, snap.CurrentTurnIndex)
	assert.Equal(t, "blue", snap.ActiveSide)
	assert.Equal(t, "ban", snap.ActiveAction)
	assert.Equal(t, [2]bool{true, true}, snap.ReadyFlags)
	require.Len(t, snap.Games, 2)

	g := snap.Games[0]
	assert.Equal(t, "Zed", g.Bans[0][0])
	assert.Equal(t, "Ahri", g.Bans[1][0])
	assert.Equal(t, string(engine.NoneItem), g.Picks[0][0])
	assert.Equal(t, [2]string{"Jinx", string(engine.NoneItem)}, g.Hover)
	assert.Equal(t, []string{"Ahri", "Zed"}, g.Consumed)
	assert.Empty(t, snap.FearlessExcluded)
	assert.Nil(t, snap.SwapRequest)
}

func TestSeriesSnapshot_RoundTripThroughJSON(t *testing.T) {
	s := playedSeries(t)
	payload, err := json.Marshal(NewSeriesSnapshot(9, s))
	require.NoError(t, err)

	var snap SeriesSnapshot
	require.NoError(t, json.Unmarshal(payload, &snap))
	back, err := snap.Series()
	require.NoError(t, err)

	assert.Equal(t, s.ID, back.ID)
	assert.Equal(t, s.Rules, back.Rules)
	assert.Equal(t, s.Cursor, back.Cursor)
	assert.Equal(t, s.Games[0].Bans, back.Games[0].Bans)
	assert.Equal(t, s.Games[0].Consumed, back.Games[0].Consumed)
	assert.Equal(t, engine.ItemID("Jinx"), back.Games[0].Hover[engine.SideBlue])
	_, hovering := back.Games[0].Hover[engine.SideRed]
	assert.False(t, hovering)
}

func TestSeriesSnapshot_RejectsCorruptedState(t *testing.T) {
	snap := NewSeriesSnapshot(1, playedSeries(t))
	snap.Games[0].Consumed = append(snap.Games[0].Consumed, "Ghost")

	_, err := snap.Series()
	require.Error(t, err)
	assert.True(t, engine.IsCorruption(err))

	snap = NewSeriesSnapshot(1, playedSeries(t))
	snap.Status = "paused"
	_, err = snap.Series()
	require.Error(t, err)
}
