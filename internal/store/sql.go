package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/i474232898/clima/internal/weather"
)

// readingRow is the persisted layout of a weather.Reading. Timestamps are
// stored in UTC and carry a unique index.
type readingRow struct {
	ID          uint            `gorm:"primaryKey"`
	ObservedAt  time.Time       `gorm:"not null;uniqueIndex:idx_readings_observed_at"`
	Temperature decimal.Decimal `gorm:"type:numeric(5,2);not null"`
	Humidity    int             `gorm:"not null"`
	Category    string          `gorm:"size:16;not null"`
	CreatedAt   time.Time
}

func (readingRow) TableName() string {
	return "readings"
}

func (r readingRow) toReading() weather.Reading {
	return weather.Reading{
		Timestamp:   r.ObservedAt.UTC(),
		Temperature: r.Temperature,
		Humidity:    r.Humidity,
		Condition:   weather.Category(r.Category),
	}
}

// SQLStore is a gorm-backed weather.Store.
type SQLStore struct {
	db *gorm.DB
}

var _ weather.Store = (*SQLStore)(nil)

// NewSQLStore wraps an open gorm connection.
func NewSQLStore(db *gorm.DB) *SQLStore {
	return &SQLStore{db: db}
}

// Migrate creates or updates the readings table and its unique index.
func (s *SQLStore) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&readingRow{}); err != nil {
		return fmt.Errorf("migrate readings: %w", err)
	}
	return nil
}

func (s *SQLStore) Exists(ctx context.Context, hour time.Time) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).
		Model(&readingRow{}).
		Where("observed_at = ?", hour.UTC()).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("count readings: %w", err)
	}
	return n > 0, nil
}

// Save inserts r in a single statement, so either the whole row is stored or nothing.
func (s *SQLStore) Save(ctx context.Context, r weather.Reading) error {
	row := readingRow{
		ObservedAt:  r.Timestamp.UTC(),
		Temperature: r.Temperature,
		Humidity:    r.Humidity,
		Category:    string(r.Condition),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || s.conflicts(ctx, row.ObservedAt) {
			return fmt.Errorf("%w: %s", weather.ErrDuplicateHour, row.ObservedAt.Format(time.RFC3339))
		}
		return fmt.Errorf("insert reading: %w", err)
	}
	return nil
}

// conflicts reports whether a failed insert collided with an existing hour,
// for drivers that do not translate constraint errors.
func (s *SQLStore) conflicts(ctx context.Context, hour time.Time) bool {
	exists, err := s.Exists(ctx, hour)
	return err == nil && exists
}

func (s *SQLStore) Latest(ctx context.Context) (weather.Reading, bool, error) {
	var row readingRow
	err := s.db.WithContext(ctx).Order("observed_at DESC").Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return weather.Reading{}, false, nil
	}
	if err != nil {
		return weather.Reading{}, false, fmt.Errorf("latest reading: %w", err)
	}
	return row.toReading(), true, nil
}

func (s *SQLStore) Range(ctx context.Context, from, to time.Time) ([]weather.Reading, error) {
	out := []weather.Reading{}
	if from.After(to) {
		return out, nil
	}

	var rows []readingRow
	err := s.db.WithContext(ctx).
		Where("observed_at >= ? AND observed_at <= ?", from.UTC(), to.UTC()).
		Order("observed_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("range readings: %w", err)
	}
	for _, row := range rows {
		out = append(out, row.toReading())
	}
	return out, nil
}
