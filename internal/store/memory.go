package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/i474232898/clima/internal/weather"
)

// MemoryStore is a concurrency-safe in-memory implementation of weather.Store.
// Readings are kept sorted by timestamp, one per hour.
type MemoryStore struct {
	mu       sync.RWMutex
	readings []weather.Reading
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

var _ weather.Store = (*MemoryStore)(nil)

// search returns the index of the first reading not before ts.
func (s *MemoryStore) search(ts time.Time) int {
	return sort.Search(len(s.readings), func(i int) bool {
		return !s.readings[i].Timestamp.Before(ts)
	})
}

// Exists reports whether a reading for hour is stored.
func (s *MemoryStore) Exists(_ context.Context, hour time.Time) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.search(hour)
	return i < len(s.readings) && s.readings[i].Timestamp.Equal(hour), nil
}

// Save inserts r keeping timestamp order. A second reading for the same hour
// is rejected with weather.ErrDuplicateHour.
func (s *MemoryStore) Save(_ context.Context, r weather.Reading) error {
	r.Timestamp = r.Timestamp.UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.search(r.Timestamp)
	if i < len(s.readings) && s.readings[i].Timestamp.Equal(r.Timestamp) {
		return fmt.Errorf("%w: %s", weather.ErrDuplicateHour, r.Timestamp.Format(time.RFC3339))
	}

	s.readings = append(s.readings, weather.Reading{})
	copy(s.readings[i+1:], s.readings[i:])
	s.readings[i] = r
	return nil
}

// Latest returns the most recent reading.
func (s *MemoryStore) Latest(_ context.Context) (weather.Reading, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.readings) == 0 {
		return weather.Reading{}, false, nil
	}
	return s.readings[len(s.readings)-1], true, nil
}

// Range returns all readings between from and to (inclusive), ascending.
func (s *MemoryStore) Range(_ context.Context, from, to time.Time) ([]weather.Reading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []weather.Reading{}
	for i := s.search(from); i < len(s.readings); i++ {
		if s.readings[i].Timestamp.After(to) {
			break
		}
		result = append(result, s.readings[i])
	}
	return result, nil
}

// Len returns the number of stored readings.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.readings)
}
