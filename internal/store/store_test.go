package store

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/i474232898/clima/internal/weather"
)

func setupSQLStore(t *testing.T) *SQLStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), gormConfig(nil))
	require.NoError(t, err)

	// Every connection to ":memory:" is a separate database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		if err := Close(db); err != nil {
			t.Fatalf("close db: %v", err)
		}
	})

	s := NewSQLStore(db)
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

// forEachStore runs fn against every weather.Store implementation.
func forEachStore(t *testing.T, fn func(t *testing.T, s weather.Store)) {
	t.Run("memory", func(t *testing.T) { fn(t, NewMemoryStore()) })
	t.Run("sql", func(t *testing.T) { fn(t, setupSQLStore(t)) })
}

func reading(ts time.Time, temp string, cat weather.Category) weather.Reading {
	return weather.Reading{
		Timestamp:   ts,
		Temperature: decimal.RequireFromString(temp),
		Humidity:    60,
		Condition:   cat,
	}
}

var art = time.FixedZone("ART", -3*3600)

func TestStoreEmpty(t *testing.T) {
	forEachStore(t, func(t *testing.T, s weather.Store) {
		ctx := context.Background()

		_, ok, err := s.Latest(ctx)
		require.NoError(t, err)
		assert.False(t, ok)

		exists, err := s.Exists(ctx, time.Date(2024, 6, 1, 15, 0, 0, 0, art))
		require.NoError(t, err)
		assert.False(t, exists)

		got, err := s.Range(ctx, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestStoreSaveAndRead(t *testing.T) {
	forEachStore(t, func(t *testing.T, s weather.Store) {
		ctx := context.Background()
		hour := time.Date(2024, 6, 1, 15, 0, 0, 0, art)

		require.NoError(t, s.Save(ctx, reading(hour, "22.5", weather.CategoryRain)))

		exists, err := s.Exists(ctx, hour)
		require.NoError(t, err)
		assert.True(t, exists)

		// Same instant expressed in another zone.
		exists, err = s.Exists(ctx, hour.UTC())
		require.NoError(t, err)
		assert.True(t, exists)

		got, ok, err := s.Latest(ctx)
		require.NoError(t, err)
		require.True(t, ok)
		assert.True(t, got.Timestamp.Equal(hour))
		assert.Equal(t, "22.50", got.Temperature.StringFixed(2))
		assert.Equal(t, 60, got.Humidity)
		assert.Equal(t, weather.CategoryRain, got.Condition)
	})
}

func TestStoreRejectsDuplicateHour(t *testing.T) {
	forEachStore(t, func(t *testing.T, s weather.Store) {
		ctx := context.Background()
		hour := time.Date(2024, 6, 1, 15, 0, 0, 0, art)

		require.NoError(t, s.Save(ctx, reading(hour, "22.5", weather.CategoryRain)))
		err := s.Save(ctx, reading(hour, "30.0", weather.CategoryClear))
		require.ErrorIs(t, err, weather.ErrDuplicateHour)

		// The first row is untouched.
		got, ok, err := s.Latest(ctx)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "22.50", got.Temperature.StringFixed(2))
		assert.Equal(t, weather.CategoryRain, got.Condition)
	})
}

func TestStoreLatestIsMaxTimestamp(t *testing.T) {
	forEachStore(t, func(t *testing.T, s weather.Store) {
		ctx := context.Background()
		base := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

		require.NoError(t, s.Save(ctx, reading(base.Add(2*time.Hour), "12", weather.CategoryClear)))
		require.NoError(t, s.Save(ctx, reading(base.Add(5*time.Hour), "15", weather.CategoryStorm)))
		require.NoError(t, s.Save(ctx, reading(base, "10", weather.CategoryOvercast)))

		got, ok, err := s.Latest(ctx)
		require.NoError(t, err)
		require.True(t, ok)
		assert.True(t, got.Timestamp.Equal(base.Add(5*time.Hour)))
		assert.Equal(t, weather.CategoryStorm, got.Condition)
	})
}

func TestStoreRange(t *testing.T) {
	forEachStore(t, func(t *testing.T, s weather.Store) {
		ctx := context.Background()
		base := time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)
		for _, h := range []int{4, 1, 0, 3, 2} {
			require.NoError(t, s.Save(ctx, reading(base.Add(time.Duration(h)*time.Hour), "10", weather.CategoryClear)))
		}

		t.Run("inclusive bounds", func(t *testing.T) {
			got, err := s.Range(ctx, base.Add(time.Hour), base.Add(3*time.Hour))
			require.NoError(t, err)
			require.Len(t, got, 3)
			for i := 1; i < len(got); i++ {
				assert.True(t, got[i-1].Timestamp.Before(got[i].Timestamp), "readings must be strictly ascending")
			}
			assert.True(t, got[0].Timestamp.Equal(base.Add(time.Hour)))
			assert.True(t, got[2].Timestamp.Equal(base.Add(3*time.Hour)))
		})

		t.Run("bounds between hours", func(t *testing.T) {
			got, err := s.Range(ctx, base.Add(30*time.Minute), base.Add(2*time.Hour+59*time.Minute))
			require.NoError(t, err)
			require.Len(t, got, 2)
		})

		t.Run("bounds in another zone", func(t *testing.T) {
			got, err := s.Range(ctx, base.In(art), base.Add(time.Hour).In(art))
			require.NoError(t, err)
			assert.Len(t, got, 2)
		})

		t.Run("inverted range", func(t *testing.T) {
			got, err := s.Range(ctx, base.Add(3*time.Hour), base)
			require.NoError(t, err)
			assert.Empty(t, got)
		})
	})
}

func TestSQLiteDSN(t *testing.T) {
	dir := t.TempDir()

	dsn, err := sqliteDSN(dir + "/sub/clima.db")
	require.NoError(t, err)
	assert.Equal(t, "file:"+dir+"/sub/clima.db?_busy_timeout=5000&_journal_mode=WAL", dsn)
	assert.DirExists(t, dir+"/sub")

	dsn, err = sqliteDSN("file:" + dir + "/clima.db?cache=shared")
	require.NoError(t, err)
	assert.Equal(t, "file:"+dir+"/clima.db?cache=shared&_busy_timeout=5000&_journal_mode=WAL", dsn)

	_, err = sqliteDSN("")
	assert.Error(t, err)
}
