package engine

import "fmt"

func toggleReady(s *Series, side Side) ([]Event, error) {
	if s.Status == StatusInProgress || s.Status == StatusCompleted {
		return nil, ErrAlreadyStarted
	}
	if !side.Valid() {
		return nil, ErrNotParticipant
	}

	s.Ready[side] = !s.Ready[side]
	events := []Event{{Type: EvtReadyToggled, Side: side}}

	switch {
	case s.Ready[SideBlue] && s.Ready[SideRed]:
		s.Status = StatusInProgress
		s.CurrentGame = 0
		s.Cursor = 0
		s.TimerSec = s.Rules.TurnTimerSec
		s.Phase = DerivePhase(s.Cursor)
		events = append(events,
			Event{Type: EvtSeriesStarted, Game: s.CurrentGame},
			Event{Type: EvtTimerStarted, Game: s.CurrentGame, Turn: s.Cursor},
		)
	case s.Ready[SideBlue] || s.Ready[SideRed]:
		s.Status = StatusReady
	default:
		s.Status = StatusWaiting
	}
	return events, nil
}

// checkCandidate runs the lock-in preconditions shared by hover and lock-in.
func checkCandidate(s *Series, side Side, id ItemID) (TurnStep, error) {
	if s.Status != StatusInProgress {
		return TurnStep{}, ErrSeriesNotActive
	}
	if !side.Valid() {
		return TurnStep{}, ErrNotParticipant
	}
	step, done := s.CurrentStep()
	if done {
		return TurnStep{}, ErrSeriesNotActive
	}
	if side != step.Side {
		return TurnStep{}, ErrNotYourTurn
	}
	if id == "" || id == NoneItem {
		return TurnStep{}, ErrInvalidItem
	}
	if s.Game().Consumed[id] {
		return TurnStep{}, fmt.Errorf("%w: %s", ErrAlreadyConsumed, id)
	}
	if s.Rules.Fearless && s.FearlessExcluded[id] {
		return TurnStep{}, fmt.Errorf("%w: %s", ErrFearlessExcluded, id)
	}
	return step, nil
}

func lockIn(s *Series, side Side, id ItemID) ([]Event, error) {
	step, err := checkCandidate(s, side, id)
	if err != nil {
		return nil, err
	}
	if s.Swap != nil {
		return nil, ErrSwapPending
	}

	game := s.Game()
	slot, _ := SlotFor(s.Cursor)
	game.setSlot(s.Cursor, id)
	game.Consumed[id] = true
	delete(game.Hover, side)

	evtType := EvtItemPicked
	if step.Action == ActionBan {
		evtType = EvtItemBanned
	}
	events := []Event{{Type: evtType, Side: side, ItemID: id, Game: s.CurrentGame, Turn: s.Cursor, Slot: slot}}
	return advance(s, events), nil
}

// advance moves the cursor past the turn just committed. The last turn of a
// game folds its consumed items into the fearless set and either opens the
// next game or completes the series; the cursor never wraps past the end.
func advance(s *Series, events []Event) []Event {
	s.Cursor++
	s.TimerSec = s.Rules.TurnTimerSec

	if s.Cursor < len(GameOrder) {
		s.Phase = DerivePhase(s.Cursor)
		return append(events,
			Event{Type: EvtTurnAdvanced, Game: s.CurrentGame, Turn: s.Cursor},
			Event{Type: EvtTimerStarted, Game: s.CurrentGame, Turn: s.Cursor},
		)
	}

	finished := s.Game()
	clear(finished.Hover)
	events = append(events, Event{Type: EvtGameCompleted, Game: s.CurrentGame})
	if s.Rules.Fearless {
		for id := range finished.Consumed {
			s.FearlessExcluded[id] = true
		}
	}

	if s.CurrentGame+1 >= len(s.Games) {
		s.Status = StatusCompleted
		s.Phase = PhaseDone
		s.TimerSec = 0
		return append(events, Event{Type: EvtSeriesCompleted, Game: s.CurrentGame})
	}

	s.CurrentGame++
	s.Cursor = 0
	s.Phase = DerivePhase(s.Cursor)
	return append(events,
		Event{Type: EvtTurnAdvanced, Game: s.CurrentGame, Turn: s.Cursor},
		Event{Type: EvtTimerStarted, Game: s.CurrentGame, Turn: s.Cursor},
	)
}

// hover records a tentative candidate for the side on turn. NoneItem clears it.
func hover(s *Series, side Side, id ItemID) ([]Event, error) {
	if id == NoneItem {
		if s.Status != StatusInProgress {
			return nil, ErrSeriesNotActive
		}
		if !side.Valid() {
			return nil, ErrNotParticipant
		}
		delete(s.Game().Hover, side)
		return []Event{{Type: EvtHoverChanged, Side: side, ItemID: NoneItem, Game: s.CurrentGame, Turn: s.Cursor}}, nil
	}

	if _, err := checkCandidate(s, side, id); err != nil {
		return nil, err
	}
	s.Game().Hover[side] = id
	return []Event{{Type: EvtHoverChanged, Side: side, ItemID: id, Game: s.CurrentGame, Turn: s.Cursor}}, nil
}

// tick counts the turn timer down by one second. Expiry is reported once and
// auto-declines a pending swap; the turn itself stays open.
func tick(s *Series) ([]Event, error) {
	if s.Status != StatusInProgress {
		return nil, ErrSeriesNotActive
	}
	if s.TimerSec <= 0 {
		return nil, nil
	}

	s.TimerSec--
	events := []Event{{Type: EvtTimerTicked, Game: s.CurrentGame, Turn: s.Cursor}}
	if s.TimerSec > 0 {
		return events, nil
	}

	events = append(events, Event{Type: EvtTimerExpired, Game: s.CurrentGame, Turn: s.Cursor})
	if s.Swap != nil {
		events = append(events, Event{
			Type:   EvtSwapDeclined,
			Side:   s.Swap.Side,
			ItemID: s.Swap.ItemID,
			Game:   s.CurrentGame,
			Turn:   s.Swap.OriginalTurn,
		})
		s.Swap = nil
	}
	return events, nil
}
