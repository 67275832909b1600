package types

import (
	"fmt"
	"slices"

	"github.com/DoyleJ11/fearless-draft/internal/engine"
)

// SeriesSnapshot is the wire and storage shape of a series. Items are
// referenced by id only; sets are sorted arrays; per-side arrays are
// indexed blue=0, red=1.
type SeriesSnapshot struct {
	Version          int            `json:"version"`
	ID               string         `json:"id"`
	SideNames        [2]string      `json:"side_names"`
	NumberOfGames    int            `json:"number_of_games"`
	FearlessDraft    bool           `json:"fearless_draft"`
	TurnTimerSec     int            `json:"turn_timer_sec"`
	Status           string         `json:"status"`
	Phase            string         `json:"phase"`
	CurrentGameIndex int            `json:"current_game_index"`
	CurrentTurnIndex int            `json:"current_turn_index"`
	ActiveSide       string         `json:"active_side,omitempty"`
	ActiveAction     string         `json:"active_action,omitempty"`
	TimerSeconds     int            `json:"timer_seconds"`
	ReadyFlags       [2]bool        `json:"ready_flags"`
	Games            []GameSnapshot `json:"games"`
	FearlessExcluded []string       `json:"fearless_excluded"`
	SwapRequest      *SwapSnapshot  `json:"swap_request,omitempty"`
}

type GameSnapshot struct {
	Number   int          `json:"number"`
	Bans     [2][5]string `json:"bans"`
	Picks    [2][5]string `json:"picks"`
	Hover    [2]string    `json:"hover"`
	Consumed []string     `json:"consumed"`
}

type SwapSnapshot struct {
	Side         string `json:"side"`
	OriginalTurn int    `json:"original_turn"`
	ItemID       string `json:"item_id"`
	Pending      bool   `json:"pending"`
}

var sideOrder = [2]engine.Side{engine.SideBlue, engine.SideRed}

func sortedIDs(set map[engine.ItemID]bool) []string {
	out := make([]string, 0, len(set))
	for id, ok := range set {
		if ok {
			out = append(out, string(id))
		}
	}
	slices.Sort(out)
	return out
}

func toSet(ids []string) map[engine.ItemID]bool {
	set := make(map[engine.ItemID]bool, len(ids))
	for _, id := range ids {
		set[engine.ItemID(id)] = true
	}
	return set
}

func NewSeriesSnapshot(version int, s engine.Series) SeriesSnapshot {
	snap := SeriesSnapshot{
		Version:          version,
		ID:               s.ID,
		NumberOfGames:    s.Rules.NumberOfGames,
		FearlessDraft:    s.Rules.Fearless,
		TurnTimerSec:     s.Rules.TurnTimerSec,
		Status:           string(s.Status),
		Phase:            string(s.Phase),
		CurrentGameIndex: s.CurrentGame,
		CurrentTurnIndex: s.Cursor,
		TimerSeconds:     s.TimerSec,
		Games:            make([]GameSnapshot, len(s.Games)),
		FearlessExcluded: sortedIDs(s.FearlessExcluded),
	}
	for i, side := range sideOrder {
		snap.SideNames[i] = s.SideNames[side]
		snap.ReadyFlags[i] = s.Ready[side]
	}
	if step, done := s.CurrentStep(); !done && s.Status == engine.StatusInProgress {
		snap.ActiveSide = string(step.Side)
		snap.ActiveAction = string(step.Action)
	}
	for gi, g := range s.Games {
		gs := GameSnapshot{Number: g.Number, Consumed: sortedIDs(g.Consumed)}
		for i, side := range sideOrder {
			for slot := 0; slot < engine.SlotsPerSide; slot++ {
				gs.Bans[i][slot] = string(g.Bans[side][slot])
				gs.Picks[i][slot] = string(g.Picks[side][slot])
			}
			if h, ok := g.Hover[side]; ok {
				gs.Hover[i] = string(h)
			} else {
				gs.Hover[i] = string(engine.NoneItem)
			}
		}
		snap.Games[gi] = gs
	}
	if s.Swap != nil {
		snap.SwapRequest = &SwapSnapshot{
			Side:         string(s.Swap.Side),
			OriginalTurn: s.Swap.OriginalTurn,
			ItemID:       string(s.Swap.ItemID),
			Pending:      s.Swap.Pending,
		}
	}
	return snap
}

// Series rebuilds the engine state and verifies it.
func (snap SeriesSnapshot) Series() (engine.Series, error) {
	s := engine.Series{
		ID:        snap.ID,
		SideNames: map[engine.Side]string{},
		Rules: engine.Rules{
			NumberOfGames: snap.NumberOfGames,
			Fearless:      snap.FearlessDraft,
			TurnTimerSec:  snap.TurnTimerSec,
		},
		Status:           engine.Status(snap.Status),
		Phase:            engine.Phase(snap.Phase),
		CurrentGame:      snap.CurrentGameIndex,
		Cursor:           snap.CurrentTurnIndex,
		TimerSec:         snap.TimerSeconds,
		Ready:            map[engine.Side]bool{},
		Games:            make([]engine.Game, len(snap.Games)),
		FearlessExcluded: toSet(snap.FearlessExcluded),
	}
	switch s.Status {
	case engine.StatusWaiting, engine.StatusReady, engine.StatusInProgress, engine.StatusCompleted:
	default:
		return engine.Series{}, fmt.Errorf("unknown status %q", snap.Status)
	}

	for i, side := range sideOrder {
		s.SideNames[side] = snap.SideNames[i]
		s.Ready[side] = snap.ReadyFlags[i]
	}
	for gi, gs := range snap.Games {
		g := engine.NewGame(gs.Number)
		for i, side := range sideOrder {
			var bans, picks engine.Slots
			for slot := 0; slot < engine.SlotsPerSide; slot++ {
				bans[slot] = engine.ItemID(gs.Bans[i][slot])
				picks[slot] = engine.ItemID(gs.Picks[i][slot])
			}
			g.Bans[side] = bans
			g.Picks[side] = picks
			if h := engine.ItemID(gs.Hover[i]); h != "" && h != engine.NoneItem {
				g.Hover[side] = h
			}
		}
		g.Consumed = toSet(gs.Consumed)
		s.Games[gi] = g
	}
	if snap.SwapRequest != nil {
		s.Swap = &engine.SwapRequest{
			Side:         engine.Side(snap.SwapRequest.Side),
			OriginalTurn: snap.SwapRequest.OriginalTurn,
			ItemID:       engine.ItemID(snap.SwapRequest.ItemID),
			Pending:      snap.SwapRequest.Pending,
		}
	}

	if err := engine.Verify(s); err != nil {
		return engine.Series{}, err
	}
	return s, nil
}
