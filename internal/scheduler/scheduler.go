package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/clima/internal/weather"
)

// Ingester is the single operation the scheduler triggers.
type Ingester interface {
	Ingest(ctx context.Context) (weather.IngestResult, error)
}

// Scheduler runs the hourly ingestion on a cron expression evaluated in the
// operational time zone. Runs never overlap.
type Scheduler struct {
	scheduler  *gocron.Scheduler
	ingester   Ingester
	cronExpr   string
	runTimeout time.Duration
	logger     *slog.Logger
}

// New creates a new Scheduler. runTimeout bounds a whole ingestion run.
func New(cronExpr string, loc *time.Location, runTimeout time.Duration, ingester Ingester, logger *slog.Logger) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := gocron.NewScheduler(loc)
	s.SingletonModeAll()
	return &Scheduler{
		scheduler:  s,
		ingester:   ingester,
		cronExpr:   cronExpr,
		runTimeout: runTimeout,
		logger:     logger.With("component", "scheduler"),
	}
}

// Start schedules the job and starts the underlying scheduler. With
// runNow the first run happens immediately instead of waiting for the next
// cron tick.
func (s *Scheduler) Start(runNow bool) error {
	sched := s.scheduler.Cron(s.cronExpr)
	if runNow {
		sched = sched.StartImmediately()
	}
	if _, err := sched.Do(s.RunOnce); err != nil {
		return err
	}

	s.scheduler.StartAsync()
	_, next := s.scheduler.NextRun()
	s.logger.Info("hourly ingestion scheduled", "cron", s.cronExpr, "run_now", runNow, "next_run", next)
	return nil
}

// RunOnce executes a single ingestion run. Errors are logged and never stop
// future runs.
func (s *Scheduler) RunOnce() {
	timeout := s.runTimeout
	if timeout <= 0 {
		timeout = time.Minute
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	start := time.Now()
	res, err := s.ingester.Ingest(ctx)
	if err != nil {
		s.logger.Error("ingestion run failed", "run_id", res.RunID, "error", err)
		return
	}
	s.logger.Debug("ingestion run finished",
		"run_id", res.RunID,
		"outcome", res.Outcome,
		"took", time.Since(start),
	)
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
