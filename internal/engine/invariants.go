package engine

import (
	"fmt"
	"maps"

	"go.uber.org/multierr"
)

// Verify checks the structural invariants of s and returns a
// *CorruptionError listing every violation found.
func Verify(s Series) error {
	var errs error

	if len(s.Games) != s.Rules.NumberOfGames || len(s.Games) == 0 {
		errs = multierr.Append(errs, fmt.Errorf("have %d games, want %d", len(s.Games), s.Rules.NumberOfGames))
		return &CorruptionError{Violations: errs}
	}
	if s.CurrentGame < 0 || s.CurrentGame >= len(s.Games) {
		errs = multierr.Append(errs, fmt.Errorf("current game %d out of range", s.CurrentGame))
		return &CorruptionError{Violations: errs}
	}
	if s.Cursor < 0 || s.Cursor > len(GameOrder) {
		errs = multierr.Append(errs, fmt.Errorf("cursor %d out of range", s.Cursor))
	}
	if s.Cursor == len(GameOrder) && s.Status != StatusCompleted {
		errs = multierr.Append(errs, fmt.Errorf("cursor at end of order while %s", s.Status))
	}

	for i, g := range s.Games {
		// Turns before the cursor are filled in the current game, all of them
		// in earlier games, none in later ones.
		filled := 0
		switch {
		case i < s.CurrentGame:
			filled = len(GameOrder)
		case i == s.CurrentGame:
			filled = s.Cursor
		}
		errs = multierr.Append(errs, verifyGame(i, g, filled))
	}

	want := map[ItemID]bool{}
	if s.Rules.Fearless {
		last := s.CurrentGame
		if s.Status == StatusCompleted {
			last++
		}
		for _, g := range s.Games[:last] {
			maps.Copy(want, g.Consumed)
		}
	}
	if !maps.Equal(want, s.FearlessExcluded) {
		errs = multierr.Append(errs, fmt.Errorf("fearless set has %d items, want %d", len(s.FearlessExcluded), len(want)))
	}

	if s.Swap != nil {
		if s.Swap.OriginalTurn < 0 || s.Swap.OriginalTurn >= s.Cursor {
			errs = multierr.Append(errs, fmt.Errorf("swap targets turn %d, cursor is %d", s.Swap.OriginalTurn, s.Cursor))
		}
	}

	if errs != nil {
		return &CorruptionError{Violations: errs}
	}
	return nil
}

func verifyGame(index int, g Game, filled int) error {
	var errs error
	if len(g.Bans) != 2 || len(g.Picks) != 2 {
		return fmt.Errorf("game %d: missing side slots", index)
	}

	seen := map[ItemID]int{}
	for turn := range GameOrder {
		id := g.SlotAt(turn)
		if turn < filled && id == NoneItem {
			errs = multierr.Append(errs, fmt.Errorf("game %d: turn %d is empty", index, turn))
		}
		if turn >= filled && id != NoneItem {
			errs = multierr.Append(errs, fmt.Errorf("game %d: turn %d holds %s ahead of the cursor", index, turn, id))
		}
		if id == NoneItem {
			continue
		}
		if prev, dup := seen[id]; dup {
			errs = multierr.Append(errs, fmt.Errorf("game %d: %s at turns %d and %d", index, id, prev, turn))
		}
		seen[id] = turn
	}

	if len(seen) != len(g.Consumed) {
		errs = multierr.Append(errs, fmt.Errorf("game %d: consumed has %d items, slots hold %d", index, len(g.Consumed), len(seen)))
	}
	for id := range g.Consumed {
		if _, ok := seen[id]; !ok {
			errs = multierr.Append(errs, fmt.Errorf("game %d: %s consumed but in no slot", index, id))
		}
	}
	return errs
}
