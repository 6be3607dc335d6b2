package weather

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Category is the severity-ordered classification of the current weather.
type Category string

const (
	CategoryClear        Category = "CLEAR"
	CategoryPartlyCloudy Category = "PARTLY_CLOUDY"
	CategoryOvercast     Category = "OVERCAST"
	CategoryRain         Category = "RAIN"
	CategoryStorm        Category = "STORM"
)

// Severity orders categories from CLEAR (1) to STORM (5). Unknown values are 0.
func (c Category) Severity() int {
	switch c {
	case CategoryClear:
		return 1
	case CategoryPartlyCloudy:
		return 2
	case CategoryOvercast:
		return 3
	case CategoryRain:
		return 4
	case CategoryStorm:
		return 5
	default:
		return 0
	}
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	return c.Severity() > 0
}

// IsPrecipitating reports whether the category implies rain or storm.
func (c Category) IsPrecipitating() bool {
	return c == CategoryRain || c == CategoryStorm
}

// ConditionEntry is one (code, description) pair as reported by a provider,
// e.g. ("Clouds", "scattered clouds").
type ConditionEntry struct {
	Code        string
	Description string
}

// Observation is a provider response before classification. It is never persisted.
type Observation struct {
	TemperatureC float64
	HumidityPct  int
	Conditions   []ConditionEntry
}

// Reading is the persisted hourly record. Timestamp is truncated to the hour
// and unique across the store.
type Reading struct {
	Timestamp   time.Time `validate:"required"`
	Temperature decimal.Decimal
	Humidity    int      `validate:"gte=0,lte=100"`
	Condition   Category `validate:"required"`
}

// In returns a copy of r with the timestamp rendered in loc.
func (r Reading) In(loc *time.Location) Reading {
	r.Timestamp = r.Timestamp.In(loc)
	return r
}

// MarshalJSON renders temperature as a plain number with two decimals.
func (r Reading) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Timestamp   time.Time   `json:"timestamp"`
		Temperature json.Number `json:"temperature"`
		Humidity    int         `json:"humidity"`
		Condition   Category    `json:"condition"`
	}{
		Timestamp:   r.Timestamp,
		Temperature: json.Number(r.Temperature.StringFixed(2)),
		Humidity:    r.Humidity,
		Condition:   r.Condition,
	})
}

var (
	// ErrProviderUnavailable wraps every failure of a provider fetch.
	ErrProviderUnavailable = errors.New("weather provider unavailable")

	// ErrDuplicateHour is returned by a store when a reading for the hour already exists.
	ErrDuplicateHour = errors.New("reading for this hour already exists")

	// ErrInvalidReading is returned when an observation cannot form a valid reading.
	ErrInvalidReading = errors.New("invalid reading")
)
