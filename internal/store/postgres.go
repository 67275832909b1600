package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/DoyleJ11/fearless-draft/internal/engine"
	"github.com/DoyleJ11/fearless-draft/internal/lobby"
	"github.com/DoyleJ11/fearless-draft/internal/types"
)

type SeriesRow struct {
	ID            string    `gorm:"primaryKey;size:32"`
	Version       int       `gorm:"not null"`
	Status        string    `gorm:"index;not null;default:'waiting'"`
	NumberOfGames int       `gorm:"not null;default:1"`
	Fearless      bool      `gorm:"not null;default:false"`
	Payload       []byte    `gorm:"type:jsonb;not null"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (SeriesRow) TableName() string { return "draft_series" }

type EventRow struct {
	ID        uint   `gorm:"primaryKey"`
	SeriesID  string `gorm:"index;size:32;not null"`
	Version   int    `gorm:"not null"`
	Type      string `gorm:"size:32;not null"`
	Side      string `gorm:"size:8"`
	ItemID    string `gorm:"size:64"`
	Game      int
	Turn      int
	Slot      int
	CreatedAt time.Time
}

func (EventRow) TableName() string { return "draft_events" }

// Postgres is the durable store: one row per series holding the latest
// snapshot plus an append-only event table.
type Postgres struct {
	db *gorm.DB
}

func OpenPostgres(dsn string) (*Postgres, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return NewPostgres(db)
}

func NewPostgres(db *gorm.DB) (*Postgres, error) {
	if err := db.AutoMigrate(&SeriesRow{}, &EventRow{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (p *Postgres) SaveSnapshot(ctx context.Context, snap lobby.Snapshot) error {
	row, err := newSeriesRow(snap)
	if err != nil {
		return err
	}
	return p.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"version", "status", "payload", "updated_at"}),
	}).Create(&row).Error
}

func (p *Postgres) AppendEvents(ctx context.Context, seriesID string, version int, events []engine.Event) error {
	if len(events) == 0 {
		return nil
	}
	rows := newEventRows(NewEventRecords(seriesID, version, events, time.Now()))
	return p.db.WithContext(ctx).Create(&rows).Error
}

func (p *Postgres) LoadSnapshot(ctx context.Context, seriesID string) (lobby.Snapshot, bool, error) {
	var row SeriesRow
	err := p.db.WithContext(ctx).Where("id = ?", seriesID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return lobby.Snapshot{}, false, nil
	}
	if err != nil {
		return lobby.Snapshot{}, false, fmt.Errorf("load series %s: %w", seriesID, err)
	}
	return decodeSnapshot(row.Payload)
}

func (p *Postgres) ListEvents(ctx context.Context, seriesID string) ([]EventRecord, error) {
	var rows []EventRow
	if err := p.db.WithContext(ctx).
		Where("series_id = ?", seriesID).
		Order("version asc, id asc").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]EventRecord, len(rows))
	for i, r := range rows {
		out[i] = EventRecord{
			SeriesID:  r.SeriesID,
			Version:   r.Version,
			Type:      r.Type,
			Side:      r.Side,
			ItemID:    r.ItemID,
			Game:      r.Game,
			Turn:      r.Turn,
			Slot:      r.Slot,
			CreatedAt: r.CreatedAt,
		}
	}
	return out, nil
}

func newSeriesRow(snap lobby.Snapshot) (SeriesRow, error) {
	payload, err := json.Marshal(types.NewSeriesSnapshot(snap.Version, snap.State))
	if err != nil {
		return SeriesRow{}, err
	}
	return SeriesRow{
		ID:            snap.State.ID,
		Version:       snap.Version,
		Status:        string(snap.State.Status),
		NumberOfGames: snap.State.Rules.NumberOfGames,
		Fearless:      snap.State.Rules.Fearless,
		Payload:       payload,
	}, nil
}

func newEventRows(records []EventRecord) []EventRow {
	rows := make([]EventRow, len(records))
	for i, r := range records {
		rows[i] = EventRow{
			SeriesID:  r.SeriesID,
			Version:   r.Version,
			Type:      r.Type,
			Side:      r.Side,
			ItemID:    r.ItemID,
			Game:      r.Game,
			Turn:      r.Turn,
			Slot:      r.Slot,
			CreatedAt: r.CreatedAt,
		}
	}
	return rows
}
