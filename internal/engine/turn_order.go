package engine

var GameOrder = []TurnStep{
	// Ban Phase 1
	{Side: SideBlue, Action: ActionBan},
	{Side: SideRed, Action: ActionBan},
	{Side: SideBlue, Action: ActionBan},
	{Side: SideRed, Action: ActionBan},
	{Side: SideBlue, Action: ActionBan},
	{Side: SideRed, Action: ActionBan},
	// Pick Phase 1
	{Side: SideBlue, Action: ActionPick},
	{Side: SideRed, Action: ActionPick},
	{Side: SideRed, Action: ActionPick},
	{Side: SideBlue, Action: ActionPick},
	{Side: SideBlue, Action: ActionPick},
	{Side: SideRed, Action: ActionPick},
	// Ban Phase 2
	{Side: SideRed, Action: ActionBan},
	{Side: SideBlue, Action: ActionBan},
	{Side: SideRed, Action: ActionBan},
	{Side: SideBlue, Action: ActionBan},
	// Pick Phase 2
	{Side: SideRed, Action: ActionPick},
	{Side: SideBlue, Action: ActionPick},
	{Side: SideBlue, Action: ActionPick},
	{Side: SideRed, Action: ActionPick},
}

// TurnAt returns the step at index. ok is false outside the table.
func TurnAt(index int) (step TurnStep, ok bool) {
	if index < 0 || index >= len(GameOrder) {
		return TurnStep{}, false
	}
	return GameOrder[index], true
}

// SlotFor maps a turn index to the ban or pick slot it fills: the number of
// earlier turns in the table with the same side and action.
func SlotFor(index int) (int, bool) {
	step, ok := TurnAt(index)
	if !ok {
		return -1, false
	}
	slot := 0
	for _, prior := range GameOrder[:index] {
		if prior == step {
			slot++
		}
	}
	return slot, true
}

func DerivePhase(cursor int) Phase {
	if cursor >= len(GameOrder) {
		return PhaseDone
	} else if cursor >= 0 && cursor <= 5 {
		return PhaseBan1
	} else if cursor > 5 && cursor <= 11 {
		return PhasePick1
	} else if cursor > 11 && cursor <= 15 {
		return PhaseBan2
	} else {
		return PhasePick2
	}
}
