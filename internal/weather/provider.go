package weather

import (
	"context"
	"time"
)

// Provider abstracts the external weather API for a fixed coordinate.
// Every failure returned by Fetch wraps ErrProviderUnavailable.
type Provider interface {
	Name() string
	Fetch(ctx context.Context) (Observation, error)
}

// Store is the contract for durable hourly readings.
type Store interface {
	// Exists reports whether a reading is stored for the given hour.
	Exists(ctx context.Context, hour time.Time) (bool, error)
	// Save inserts r atomically. It returns ErrDuplicateHour if the hour is taken.
	Save(ctx context.Context, r Reading) error
	// Latest returns the reading with the greatest timestamp; ok is false when empty.
	Latest(ctx context.Context) (r Reading, ok bool, err error)
	// Range returns readings with from <= timestamp <= to, ascending.
	Range(ctx context.Context, from, to time.Time) ([]Reading, error)
}
