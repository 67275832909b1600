package engine

type Side string

const (
	SideBlue Side = "blue"
	SideRed  Side = "red"
)

func (s Side) Valid() bool { return s == SideBlue || s == SideRed }

func (s Side) Opponent() Side {
	if s == SideBlue {
		return SideRed
	}
	return SideBlue
}

var Sides = []Side{SideBlue, SideRed}

type Action string

const (
	ActionBan  Action = "ban"
	ActionPick Action = "pick"
)

type Phase string

const (
	PhaseBan1  Phase = "ban1"
	PhasePick1 Phase = "pick1"
	PhaseBan2  Phase = "ban2"
	PhasePick2 Phase = "pick2"
	PhaseDone  Phase = "done"
)

type Status string

const (
	StatusWaiting    Status = "waiting"
	StatusReady      Status = "ready"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// ItemID identifies a catalog item. Full item data is always resolved against
// the catalog; the engine only ever sees ids.
type ItemID string

// NoneItem fills empty slots. It is never banned, picked or consumed.
const NoneItem ItemID = "-1"

const (
	SlotsPerSide        = 5
	DefaultTurnTimerSec = 30
)

type Slots [SlotsPerSide]ItemID

type TurnStep struct {
	Side   Side
	Action Action
}

// Game is the draft record of one game in a series.
type Game struct {
	Number   int
	Bans     map[Side]Slots
	Picks    map[Side]Slots
	Hover    map[Side]ItemID
	Consumed map[ItemID]bool
}

type Rules struct {
	NumberOfGames int
	Fearless      bool
	TurnTimerSec  int
}

// SwapRequest asks the opponent to rewind the draft to OriginalTurn so the
// requesting side can replace ItemID.
type SwapRequest struct {
	Side         Side
	OriginalTurn int
	ItemID       ItemID
	Pending      bool
}

type Series struct {
	ID               string
	SideNames        map[Side]string
	Rules            Rules
	Status           Status
	Phase            Phase
	CurrentGame      int
	Cursor           int
	TimerSec         int
	Ready            map[Side]bool
	Games            []Game
	FearlessExcluded map[ItemID]bool
	Swap             *SwapRequest
}

type CommandType string

const (
	CmdToggleReady CommandType = "ToggleReady"
	CmdLockIn      CommandType = "LockIn"
	CmdHover       CommandType = "Hover"
	CmdRequestSwap CommandType = "RequestSwap"
	CmdAcceptSwap  CommandType = "AcceptSwap"
	CmdDeclineSwap CommandType = "DeclineSwap"
	CmdTick        CommandType = "Tick"
)

/*
	CmdToggleReady -> EvtReadyToggled [-> EvtSeriesStarted -> EvtTimerStarted]
	CmdLockIn      -> EvtItemBanned|EvtItemPicked -> EvtTurnAdvanced -> EvtTimerStarted
	                  or, on the last turn of a game, EvtGameCompleted followed by
	                  either the first turn of the next game or EvtSeriesCompleted
	CmdHover       -> EvtHoverChanged (not persisted, cleared on lock-in)
	CmdRequestSwap -> EvtSwapRequested
	CmdAcceptSwap  -> EvtSwapAccepted -> EvtTimerStarted
	CmdDeclineSwap -> EvtSwapDeclined
	CmdTick        -> EvtTimerTicked [-> EvtTimerExpired [-> EvtSwapDeclined]]
	Expiry never picks an item and never moves the cursor.
*/

type Command struct {
	Type      CommandType
	Side      Side
	ItemID    ItemID
	TurnIndex int
}

type EventType string

const (
	EvtReadyToggled    EventType = "ReadyToggled"
	EvtSeriesStarted   EventType = "SeriesStarted"
	EvtItemBanned      EventType = "ItemBanned"
	EvtItemPicked      EventType = "ItemPicked"
	EvtHoverChanged    EventType = "HoverChanged"
	EvtTurnAdvanced    EventType = "TurnAdvanced"
	EvtTimerStarted    EventType = "TimerStarted"
	EvtTimerTicked     EventType = "TimerTicked"
	EvtTimerExpired    EventType = "TimerExpired"
	EvtGameCompleted   EventType = "GameCompleted"
	EvtSeriesCompleted EventType = "SeriesCompleted"
	EvtSwapRequested   EventType = "SwapRequested"
	EvtSwapAccepted    EventType = "SwapAccepted"
	EvtSwapDeclined    EventType = "SwapDeclined"
)

type Event struct {
	Type   EventType
	Side   Side
	ItemID ItemID
	Game   int
	Turn   int
	Slot   int
}

// Apply validates cmd against s and returns the resulting state. s is never
// modified: on error the returned state is s itself, on success it is a new
// copy that has passed Verify.
func Apply(s Series, cmd Command) ([]Event, Series, error) {
	next := s.Clone()

	var (
		events []Event
		err    error
	)
	switch cmd.Type {
	case CmdToggleReady:
		events, err = toggleReady(&next, cmd.Side)
	case CmdLockIn:
		events, err = lockIn(&next, cmd.Side, cmd.ItemID)
	case CmdHover:
		events, err = hover(&next, cmd.Side, cmd.ItemID)
	case CmdRequestSwap:
		events, err = requestSwap(&next, cmd.Side, cmd.TurnIndex)
	case CmdAcceptSwap:
		events, err = acceptSwap(&next, cmd.Side)
	case CmdDeclineSwap:
		events, err = declineSwap(&next, cmd.Side)
	case CmdTick:
		events, err = tick(&next)
	default:
		err = ErrUnsupportedCommand
	}
	if err != nil {
		return nil, s, err
	}

	if err := Verify(next); err != nil {
		return nil, s, err
	}
	return events, next, nil
}
