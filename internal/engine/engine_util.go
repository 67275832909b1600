package engine

import "maps"

func NewSeries(id string, rules Rules, sideNames map[Side]string) Series {
	if rules.NumberOfGames < 1 {
		rules.NumberOfGames = 1
	}
	if rules.TurnTimerSec <= 0 {
		rules.TurnTimerSec = DefaultTurnTimerSec
	}

	names := map[Side]string{SideBlue: "Blue Team", SideRed: "Red Team"}
	for side, name := range sideNames {
		if side.Valid() && name != "" {
			names[side] = name
		}
	}

	s := Series{
		ID:               id,
		SideNames:        names,
		Rules:            rules,
		Status:           StatusWaiting,
		Ready:            map[Side]bool{SideBlue: false, SideRed: false},
		Games:            make([]Game, rules.NumberOfGames),
		FearlessExcluded: map[ItemID]bool{},
		TimerSec:         rules.TurnTimerSec,
	}
	for i := range s.Games {
		s.Games[i] = NewGame(i + 1)
	}
	s.Phase = DerivePhase(s.Cursor)
	return s
}

func NewGame(number int) Game {
	empty := Slots{}
	for i := range empty {
		empty[i] = NoneItem
	}
	return Game{
		Number:   number,
		Bans:     map[Side]Slots{SideBlue: empty, SideRed: empty},
		Picks:    map[Side]Slots{SideBlue: empty, SideRed: empty},
		Hover:    map[Side]ItemID{},
		Consumed: map[ItemID]bool{},
	}
}

// Clone returns a deep copy; Slots are arrays so copying the maps is enough.
func (s Series) Clone() Series {
	c := s
	c.SideNames = maps.Clone(s.SideNames)
	c.Ready = maps.Clone(s.Ready)
	c.FearlessExcluded = maps.Clone(s.FearlessExcluded)
	if s.Games != nil {
		c.Games = make([]Game, len(s.Games))
		for i, g := range s.Games {
			c.Games[i] = g.Clone()
		}
	}
	if s.Swap != nil {
		swap := *s.Swap
		c.Swap = &swap
	}
	return c
}

func (g Game) Clone() Game {
	c := g
	c.Bans = maps.Clone(g.Bans)
	c.Picks = maps.Clone(g.Picks)
	c.Hover = maps.Clone(g.Hover)
	c.Consumed = maps.Clone(g.Consumed)
	return c
}

// SlotAt returns the item committed at turn index of g.
func (g Game) SlotAt(index int) ItemID {
	step, ok := TurnAt(index)
	if !ok {
		return NoneItem
	}
	slot, _ := SlotFor(index)
	if step.Action == ActionBan {
		return g.Bans[step.Side][slot]
	}
	return g.Picks[step.Side][slot]
}

func (g *Game) setSlot(index int, id ItemID) {
	step, ok := TurnAt(index)
	if !ok {
		return
	}
	slot, _ := SlotFor(index)
	if step.Action == ActionBan {
		bans := g.Bans[step.Side]
		bans[slot] = id
		g.Bans[step.Side] = bans
		return
	}
	picks := g.Picks[step.Side]
	picks[slot] = id
	g.Picks[step.Side] = picks
}

// CurrentStep reports the step on turn; done is true once the series has no
// turn left.
func (s Series) CurrentStep() (step TurnStep, done bool) {
	step, ok := TurnAt(s.Cursor)
	return step, !ok || s.Status == StatusCompleted
}

func (s Series) Game() *Game {
	if s.CurrentGame < 0 || s.CurrentGame >= len(s.Games) {
		return nil
	}
	return &s.Games[s.CurrentGame]
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}
