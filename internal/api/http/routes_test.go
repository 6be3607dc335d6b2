package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/clima/internal/store"
	"github.com/i474232898/clima/internal/weather"
)

var art = time.FixedZone("ART", -3*3600)

func seededStore(t *testing.T, readings ...weather.Reading) *store.MemoryStore {
	t.Helper()
	mem := store.NewMemoryStore()
	for _, r := range readings {
		require.NoError(t, mem.Save(context.Background(), r))
	}
	return mem
}

func get(t *testing.T, svc ReadService, target string) (*http.Response, []byte) {
	t.Helper()
	app := NewApp(svc)
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, target, nil))
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func TestHealth(t *testing.T) {
	svc := weather.NewService(seededStore(t), nil, art)
	resp, body := get(t, svc, "/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"UP"}`, string(body))
}

func TestLatestEmptyReturnsNoContent(t *testing.T) {
	svc := weather.NewService(seededStore(t), nil, art)
	resp, body := get(t, svc, "/weather/latest")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Empty(t, body)
}

func TestLatestAfterIngestion(t *testing.T) {
	mem := seededStore(t)
	provider := stubProvider{obs: weather.Observation{
		TemperatureC: 22.5,
		HumidityPct:  60,
		Conditions:   []weather.ConditionEntry{{Code: "Rain", Description: "light rain"}},
	}}
	now := time.Date(2024, 6, 1, 15, 12, 0, 0, art)
	svc := weather.NewService(mem, provider, art, weather.WithClock(func() time.Time { return now }))

	_, err := svc.Ingest(context.Background())
	require.NoError(t, err)

	resp, body := get(t, svc, "/weather/latest")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{
		"timestamp": "2024-06-01T15:00:00-03:00",
		"temperature": 22.50,
		"humidity": 60,
		"condition": "RAIN"
	}`, string(body))
}

func TestHistory(t *testing.T) {
	base := time.Date(2024, 6, 1, 10, 0, 0, 0, art)
	var readings []weather.Reading
	for h := 0; h < 4; h++ {
		readings = append(readings, weather.Reading{
			Timestamp:   base.Add(time.Duration(h) * time.Hour),
			Temperature: decimal.NewFromFloat(15.25 + float64(h)),
			Humidity:    50 + h,
			Condition:   weather.CategoryPartlyCloudy,
		})
	}
	svc := weather.NewService(seededStore(t, readings...), nil, art)

	tests := []struct {
		name  string
		from  string
		to    string
		count int
	}{
		{"local datetimes", "2024-06-01T11:00:00", "2024-06-01T12:00:00", 2},
		{"utc offsets", "2024-06-01T13:00:00Z", "2024-06-01T16:00:00Z", 4},
		{"explicit offset", "2024-06-01T12:00:00-03:00", "2024-06-01T23:00:00-03:00", 2},
		{"minute precision", "2024-06-01T10:30", "2024-06-01T13:00", 3},
		{"inverted range", "2024-06-01T13:00:00", "2024-06-01T10:00:00", 0},
		{"no readings in range", "2024-07-01T00:00:00", "2024-07-02T00:00:00", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := url.Values{"from": {tt.from}, "to": {tt.to}}
			resp, body := get(t, svc, "/weather?"+q.Encode())
			require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

			var got []struct {
				Timestamp   time.Time `json:"timestamp"`
				Temperature float64   `json:"temperature"`
				Humidity    int       `json:"humidity"`
				Condition   string    `json:"condition"`
			}
			require.NoError(t, json.Unmarshal(body, &got))
			require.NotNil(t, got, "empty result must be [] not null")
			require.Len(t, got, tt.count)
			for i := 1; i < len(got); i++ {
				assert.True(t, got[i-1].Timestamp.Before(got[i].Timestamp))
			}
			for _, r := range got {
				assert.Equal(t, "PARTLY_CLOUDY", r.Condition)
			}
		})
	}
}

func TestHistoryInvalidQuery(t *testing.T) {
	svc := weather.NewService(seededStore(t), nil, art)

	targets := []string{
		"/weather",
		"/weather?from=2024-06-01T10:00:00",
		"/weather?to=2024-06-01T10:00:00",
		"/weather?from=yesterday&to=2024-06-01T10:00:00",
		"/weather?from=2024-06-01T10:00:00&to=2024-13-01T10:00:00",
		"/weather?from=1717243200&to=1717250400",
	}
	for _, target := range targets {
		resp, body := get(t, svc, target)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, target)

		var payload struct {
			Error   bool   `json:"error"`
			Message string `json:"message"`
		}
		require.NoError(t, json.Unmarshal(body, &payload), target)
		assert.True(t, payload.Error)
		assert.NotEmpty(t, payload.Message)
	}
}

func TestStoreFailureIsServerError(t *testing.T) {
	svc := weather.NewService(brokenStore{}, nil, art)

	resp, _ := get(t, svc, "/weather/latest")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	resp, _ = get(t, svc, "/weather?from=2024-06-01T10:00:00&to=2024-06-01T12:00:00")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestParseTime(t *testing.T) {
	got, err := parseTime("2024-06-01T15:00:00 03:00", art)
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)))

	got, err = parseTime("2024-06-01T15:00:00", art)
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2024, 6, 1, 18, 0, 0, 0, time.UTC)))

	_, err = parseTime("", art)
	assert.Error(t, err)
}

type stubProvider struct {
	obs weather.Observation
}

func (stubProvider) Name() string { return "stub" }

func (p stubProvider) Fetch(context.Context) (weather.Observation, error) { return p.obs, nil }

type brokenStore struct{}

var errBroken = errors.New("database is down")

func (brokenStore) Exists(context.Context, time.Time) (bool, error) { return false, errBroken }
func (brokenStore) Save(context.Context, weather.Reading) error     { return errBroken }
func (brokenStore) Latest(context.Context) (weather.Reading, bool, error) {
	return weather.Reading{}, false, errBroken
}
func (brokenStore) Range(context.Context, time.Time, time.Time) ([]weather.Reading, error) {
	return nil, errBroken
}
