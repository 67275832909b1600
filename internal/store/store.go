package store

import (
	"context"
	"time"

	"go.uber.org/multierr"

	"github.com/DoyleJ11/fearless-draft/internal/engine"
	"github.com/DoyleJ11/fearless-draft/internal/lobby"
)

// EventRecord is one persisted draft event.
type EventRecord struct {
	SeriesID  string    `json:"series_id"`
	Version   int       `json:"version"`
	Type      string    `json:"type"`
	Side      string    `json:"side,omitempty"`
	ItemID    string    `json:"item_id,omitempty"`
	Game      int       `json:"game"`
	Turn      int       `json:"turn"`
	Slot      int       `json:"slot"`
	CreatedAt time.Time `json:"created_at"`
}

func NewEventRecords(seriesID string, version int, events []engine.Event, at time.Time) []EventRecord {
	out := make([]EventRecord, 0, len(events))
	for _, e := range events {
		out = append(out, EventRecord{
			SeriesID:  seriesID,
			Version:   version,
			Type:      string(e.Type),
			Side:      string(e.Side),
			ItemID:    string(e.ItemID),
			Game:      e.Game,
			Turn:      e.Turn,
			Slot:      e.Slot,
			CreatedAt: at.UTC(),
		})
	}
	return out
}

// EventLog lists the recorded history of a series, oldest first.
type EventLog interface {
	ListEvents(ctx context.Context, seriesID string) ([]EventRecord, error)
}

type Loader interface {
	LoadSnapshot(ctx context.Context, seriesID string) (lobby.Snapshot, bool, error)
}

// Multi writes through to every store and reports all failures together.
type Multi []lobby.Store

func (m Multi) SaveSnapshot(ctx context.Context, snap lobby.Snapshot) error {
	var err error
	for _, s := range m {
		err = multierr.Append(err, s.SaveSnapshot(ctx, snap))
	}
	return err
}

func (m Multi) AppendEvents(ctx context.Context, seriesID string, version int, events []engine.Event) error {
	var err error
	for _, s := range m {
		err = multierr.Append(err, s.AppendEvents(ctx, seriesID, version, events))
	}
	return err
}

// Chain asks each loader in turn and returns the first hit. A failing loader
// does not stop the search; its error is only returned when nothing is found.
type Chain []Loader

func (c Chain) LoadSnapshot(ctx context.Context, seriesID string) (lobby.Snapshot, bool, error) {
	var errs error
	for _, l := range c {
		snap, ok, err := l.LoadSnapshot(ctx, seriesID)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		if ok {
			return snap, true, nil
		}
	}
	return lobby.Snapshot{}, false, errs
}
