package weather

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

// Outcome describes how a single ingestion run ended.
type Outcome string

const (
	OutcomeStored              Outcome = "stored"
	OutcomeAlreadyPresent      Outcome = "already_present"
	OutcomeProviderUnavailable Outcome = "provider_unavailable"
	OutcomeDuplicate           Outcome = "duplicate"
	OutcomeInvalid             Outcome = "invalid"
)

// IngestResult is returned by Service.Ingest.
type IngestResult struct {
	RunID   string
	Outcome Outcome
	Hour    time.Time
	Reading Reading // set only when Outcome is OutcomeStored
}

// Service runs the hourly ingestion policy and answers read queries.
type Service struct {
	store    Store
	provider Provider
	loc      *time.Location
	now      func() time.Time
	logger   *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the wall clock used to compute the current hour.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the logger used by ingestion runs.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService creates a new Service. loc is the operational time zone used for
// hour truncation and for rendering read results; nil means UTC.
func NewService(store Store, provider Provider, loc *time.Location, opts ...Option) *Service {
	if loc == nil {
		loc = time.UTC
	}
	s := &Service{
		store:    store,
		provider: provider,
		loc:      loc,
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Location returns the operational time zone.
func (s *Service) Location() *time.Location {
	return s.loc
}

// Ingest performs one fetch-classify-dedup-store pass for the current hour.
//
// A reading already present for the hour, a provider failure and a lost
// duplicate-key race are all reported through the result with a nil error.
// Store failures and invalid provider data are returned as errors; nothing is
// written in either case.
func (s *Service) Ingest(ctx context.Context) (IngestResult, error) {
	res := IngestResult{
		RunID: uuid.NewString(),
		Hour:  TruncateToHour(s.now(), s.loc),
	}
	log := s.logger.With("run_id", res.RunID, "hour", res.Hour.Format(time.RFC3339))

	exists, err := s.store.Exists(ctx, res.Hour)
	if err != nil {
		return res, fmt.Errorf("check reading for %s: %w", res.Hour.Format(time.RFC3339), err)
	}
	if exists {
		log.Info("reading already stored for this hour; skipping")
		res.Outcome = OutcomeAlreadyPresent
		return res, nil
	}

	obs, err := s.fetch(ctx)
	if err != nil {
		log.Warn("could not fetch weather data; no reading stored", "error", err)
		res.Outcome = OutcomeProviderUnavailable
		return res, nil
	}

	reading := Reading{
		Timestamp:   res.Hour,
		Temperature: decimal.NewFromFloat(obs.TemperatureC).Round(2),
		Humidity:    obs.HumidityPct,
		Condition:   Classify(obs.Conditions),
	}
	if err := validate.Struct(reading); err != nil {
		log.Warn("provider returned unusable data; no reading stored", "error", err)
		res.Outcome = OutcomeInvalid
		return res, fmt.Errorf("%w: %v", ErrInvalidReading, err)
	}

	if err := s.store.Save(ctx, reading); err != nil {
		if errors.Is(err, ErrDuplicateHour) {
			log.Warn("reading for this hour was stored concurrently; keeping existing row")
			res.Outcome = OutcomeDuplicate
			return res, nil
		}
		log.Error("failed to store reading", "error", err)
		return res, fmt.Errorf("save reading: %w", err)
	}

	log.Info("weather reading stored",
		"temperature", reading.Temperature.StringFixed(2),
		"humidity", reading.Humidity,
		"condition", reading.Condition,
	)
	res.Outcome = OutcomeStored
	res.Reading = reading
	return res, nil
}

func (s *Service) fetch(ctx context.Context) (Observation, error) {
	if s.provider == nil {
		return Observation{}, fmt.Errorf("%w: no provider configured", ErrProviderUnavailable)
	}
	return s.provider.Fetch(ctx)
}

// Latest returns the most recent reading. ok is false when nothing is stored yet.
func (s *Service) Latest(ctx context.Context) (Reading, bool, error) {
	r, ok, err := s.store.Latest(ctx)
	if err != nil || !ok {
		return Reading{}, false, err
	}
	return r.In(s.loc), true, nil
}

// History returns readings with from <= timestamp <= to in ascending order.
// An inverted range yields an empty slice.
func (s *Service) History(ctx context.Context, from, to time.Time) ([]Reading, error) {
	out := []Reading{}
	if from.After(to) {
		return out, nil
	}
	readings, err := s.store.Range(ctx, from, to)
	if err != nil {
		return nil, err
	}
	for _, r := range readings {
		out = append(out, r.In(s.loc))
	}
	return out, nil
}
