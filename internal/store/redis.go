package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"

	"github.com/DoyleJ11/fearless-draft/internal/engine"
	"github.com/DoyleJ11/fearless-draft/internal/lobby"
	"github.com/DoyleJ11/fearless-draft/internal/types"
)

const DefaultTTL = 24 * time.Hour

// Redis keeps the latest snapshot of each series and its event list under
// draft:series:<id>, both expiring after ttl of inactivity.
type Redis struct {
	rdb   redis.UniversalClient
	ttl   time.Duration
	clock clockwork.Clock
}

func NewRedis(rdb redis.UniversalClient, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{rdb: rdb, ttl: ttl, clock: clockwork.NewRealClock()}
}

func (r *Redis) keySeries(id string) string { return "draft:series:" + strings.TrimSpace(id) }
func (r *Redis) keyEvents(id string) string { return r.keySeries(id) + ":events" }

func (r *Redis) SaveSnapshot(ctx context.Context, snap lobby.Snapshot) error {
	raw, err := json.Marshal(types.NewSeriesSnapshot(snap.Version, snap.State))
	if err != nil {
		return err
	}
	if err := r.rdb.Set(ctx, r.keySeries(snap.State.ID), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set snapshot: %w", err)
	}
	_ = r.rdb.Expire(ctx, r.keyEvents(snap.State.ID), r.ttl).Err()
	return nil
}

func (r *Redis) AppendEvents(ctx context.Context, seriesID string, version int, events []engine.Event) error {
	if len(events) == 0 {
		return nil
	}
	records := NewEventRecords(seriesID, version, events, r.clock.Now())
	values := make([]any, 0, len(records))
	for _, rec := range records {
		raw, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		values = append(values, raw)
	}

	pipe := r.rdb.TxPipeline()
	pipe.RPush(ctx, r.keyEvents(seriesID), values...)
	pipe.Expire(ctx, r.keyEvents(seriesID), r.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis append events: %w", err)
	}
	return nil
}

func (r *Redis) LoadSnapshot(ctx context.Context, seriesID string) (lobby.Snapshot, bool, error) {
	raw, err := r.rdb.Get(ctx, r.keySeries(seriesID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return lobby.Snapshot{}, false, nil
	}
	if err != nil {
		return lobby.Snapshot{}, false, fmt.Errorf("redis get snapshot: %w", err)
	}
	return decodeSnapshot(raw)
}

func (r *Redis) ListEvents(ctx context.Context, seriesID string) ([]EventRecord, error) {
	raws, err := r.rdb.LRange(ctx, r.keyEvents(seriesID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list events: %w", err)
	}
	out := make([]EventRecord, 0, len(raws))
	for _, raw := range raws {
		var rec EventRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func decodeSnapshot(raw []byte) (lobby.Snapshot, bool, error) {
	var wire types.SeriesSnapshot
	if err := json.Unmarshal(raw, &wire); err != nil {
		return lobby.Snapshot{}, false, fmt.Errorf("decode snapshot: %w", err)
	}
	state, err := wire.Series()
	if err != nil {
		return lobby.Snapshot{}, false, err
	}
	return lobby.Snapshot{Version: wire.Version, State: state}, true, nil
}
