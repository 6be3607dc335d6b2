package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/i474232898/clima/internal/api/http"
	"github.com/i474232898/clima/internal/config"
	"github.com/i474232898/clima/internal/logging"
	"github.com/i474232898/clima/internal/scheduler"
	"github.com/i474232898/clima/internal/store"
	"github.com/i474232898/clima/internal/weather"
	"github.com/i474232898/clima/internal/weather/providers"
)

const appName = "clima"

func main() {
	once := flag.Bool("once", false, "run a single ingestion for the current hour and exit")
	flag.Parse()

	if err := config.LoadDotEnv(); err != nil {
		log.Printf("INFO: error loading .env file: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := logging.New(cfg, appName)
	slog.SetDefault(logger)

	readings, closeStore, err := openStore(cfg, logger)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	// The provider applies its own per-call timeout; the client timeout is a backstop.
	httpClient := &http.Client{
		Timeout: cfg.Provider.Timeout + 5*time.Second,
	}
	provider := providers.NewOpenWeatherProvider(httpClient, providers.OpenWeatherOptions{
		APIKey:     cfg.Provider.APIKey,
		BaseURL:    cfg.Provider.BaseURL,
		Lat:        cfg.Provider.Lat,
		Lon:        cfg.Provider.Lon,
		Lang:       cfg.Provider.Lang,
		Timeout:    cfg.Provider.Timeout,
		MaxRetries: cfg.Provider.MaxRetries,
	})

	service := weather.NewService(readings, provider, cfg.Location, weather.WithLogger(logger))

	if *once {
		res, err := service.Ingest(context.Background())
		if err != nil {
			logger.Error("ingestion failed", "run_id", res.RunID, "error", err)
			closeStore()
			os.Exit(1)
		}
		logger.Info("ingestion finished", "run_id", res.RunID, "outcome", res.Outcome)
		return
	}

	sched := scheduler.New(cfg.FetchCron, cfg.Location, 2*cfg.Provider.Timeout+30*time.Second, service, logger)
	if err := sched.Start(cfg.FetchOnStart); err != nil {
		logger.Error("failed to start scheduler", "error", err)
		closeStore()
		os.Exit(1)
	}
	defer sched.Stop()

	app := httpapi.NewApp(service)

	go func() {
		logger.Info("http server listening", "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			logger.Error("fiber server stopped", "error", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("error during shutdown", "error", err)
	}
}

// openStore returns the configured reading store and a function releasing it.
func openStore(cfg *config.AppConfig, logger *slog.Logger) (weather.Store, func(), error) {
	if cfg.Database.Driver == config.DriverMemory {
		logger.Warn("using in-memory store; readings are lost on restart")
		return store.NewMemoryStore(), func() {}, nil
	}

	db, err := store.Open(cfg.Database, logger)
	if err != nil {
		return nil, nil, err
	}
	sqlStore := store.NewSQLStore(db)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := sqlStore.Migrate(ctx); err != nil {
		_ = store.Close(db)
		return nil, nil, err
	}

	var closed bool
	return sqlStore, func() {
		if closed {
			return
		}
		closed = true
		if err := store.Close(db); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}, nil
}
