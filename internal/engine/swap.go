package engine

// requestSwap opens a swap negotiation. Only the side waiting for its
// opponent may ask, and only to reopen one of its own earlier turns in the
// current game.
func requestSwap(s *Series, side Side, turn int) ([]Event, error) {
	if s.Status != StatusInProgress {
		return nil, ErrSeriesNotActive
	}
	if !side.Valid() || s.Swap != nil {
		return nil, ErrSwapNotAllowed
	}
	step, done := s.CurrentStep()
	if done || step.Side == side {
		return nil, ErrSwapNotAllowed
	}
	if turn < 0 || turn >= s.Cursor {
		return nil, ErrSwapNotAllowed
	}
	if target, _ := TurnAt(turn); target.Side != side {
		return nil, ErrSwapNotAllowed
	}

	item := s.Game().SlotAt(turn)
	s.Swap = &SwapRequest{Side: side, OriginalTurn: turn, ItemID: item, Pending: true}
	return []Event{{Type: EvtSwapRequested, Side: side, ItemID: item, Game: s.CurrentGame, Turn: turn}}, nil
}

func checkResponder(s *Series, side Side) error {
	if s.Status != StatusInProgress {
		return ErrSeriesNotActive
	}
	if s.Swap == nil {
		return ErrNoPendingSwap
	}
	if !side.Valid() || side == s.Swap.Side {
		return ErrSwapNotAllowed
	}
	return nil
}

// acceptSwap rewinds the cursor to the requested turn. Every slot committed
// from that turn onward is vacated so the rewound turns can be replayed.
func acceptSwap(s *Series, side Side) ([]Event, error) {
	if err := checkResponder(s, side); err != nil {
		return nil, err
	}

	req := *s.Swap
	game := s.Game()
	for turn := req.OriginalTurn; turn < s.Cursor; turn++ {
		if id := game.SlotAt(turn); id != NoneItem {
			delete(game.Consumed, id)
		}
		game.setSlot(turn, NoneItem)
	}
	clear(game.Hover)

	s.Cursor = req.OriginalTurn
	s.Phase = DerivePhase(s.Cursor)
	s.TimerSec = s.Rules.TurnTimerSec
	s.Swap = nil

	return []Event{
		{Type: EvtSwapAccepted, Side: req.Side, ItemID: req.ItemID, Game: s.CurrentGame, Turn: req.OriginalTurn},
		{Type: EvtTimerStarted, Game: s.CurrentGame, Turn: s.Cursor},
	}, nil
}

func declineSwap(s *Series, side Side) ([]Event, error) {
	if err := checkResponder(s, side); err != nil {
		return nil, err
	}
	req := *s.Swap
	s.Swap = nil
	return []Event{{Type: EvtSwapDeclined, Side: req.Side, ItemID: req.ItemID, Game: s.CurrentGame, Turn: req.OriginalTurn}}, nil
}
