package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // zone database for minimal container images

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

type AppConfig struct {
	AppEnv   string
	LogLevel slog.Level
	Port     string

	// Location is the operational time zone used for hour truncation.
	Location *time.Location

	// FetchCron is a standard 5-field cron expression evaluated in Location.
	FetchCron    string
	FetchOnStart bool

	Provider ProviderConfig
	Database DatabaseConfig
}

// ProviderConfig holds the OpenWeather client settings.
type ProviderConfig struct {
	APIKey     string
	BaseURL    string
	Lat        float64
	Lon        float64
	Lang       string
	Timeout    time.Duration
	MaxRetries int
}

// DatabaseConfig selects and tunes the reading store.
type DatabaseConfig struct {
	Driver          string
	URL             string
	SQLitePath      string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// LoadDotEnv loads a .env file if present. A missing file is not an error.
func LoadDotEnv() error {
	err := godotenv.Load()
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	cfg := &AppConfig{}

	cfg.AppEnv = getenvDefault("APP_ENV", "dev")
	switch cfg.AppEnv {
	case "dev", "prod":
	default:
		return nil, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", cfg.AppEnv)
	}

	level, err := parseLogLevel(getenvDefault("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}
	cfg.LogLevel = level
	cfg.Port = getenvDefault("PORT", "8080")

	tz := getenvDefault("TIMEZONE", "America/Argentina/Buenos_Aires")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}
	cfg.Location = loc

	cfg.FetchCron = getenvDefault("FETCH_CRON", "0 * * * *")
	if _, err := cron.ParseStandard(cfg.FetchCron); err != nil {
		return nil, fmt.Errorf("invalid FETCH_CRON: %w", err)
	}
	cfg.FetchOnStart, err = getenvBool("FETCH_ON_START", false)
	if err != nil {
		return nil, err
	}

	if cfg.Provider, err = loadProvider(); err != nil {
		return nil, err
	}
	if cfg.Database, err = loadDatabase(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadProvider() (ProviderConfig, error) {
	p := ProviderConfig{
		APIKey:  os.Getenv("OPENWEATHER_API_KEY"),
		BaseURL: getenvDefault("OPENWEATHER_BASE_URL", "https://api.openweathermap.org/data/2.5/weather"),
		Lang:    getenvDefault("WEATHER_LANG", "es"),
	}
	if _, err := url.ParseRequestURI(p.BaseURL); err != nil {
		return p, fmt.Errorf("invalid OPENWEATHER_BASE_URL: %w", err)
	}

	var err error
	if p.Lat, err = getenvFloat("WEATHER_LAT", -34.6037); err != nil {
		return p, err
	}
	if p.Lon, err = getenvFloat("WEATHER_LON", -58.3816); err != nil {
		return p, err
	}
	if p.Lat < -90 || p.Lat > 90 || p.Lon < -180 || p.Lon > 180 {
		return p, fmt.Errorf("coordinate out of range: lat=%f lon=%f", p.Lat, p.Lon)
	}

	timeout, err := time.ParseDuration(getenvDefault("HTTP_TIMEOUT", "10s"))
	if err != nil {
		return p, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}
	p.Timeout = timeout
	if p.MaxRetries, err = getenvInt("PROVIDER_MAX_RETRIES", 0); err != nil {
		return p, err
	}
	if p.MaxRetries < 0 {
		return p, fmt.Errorf("invalid PROVIDER_MAX_RETRIES %d (must be >= 0)", p.MaxRetries)
	}

	return p, nil
}

func loadDatabase() (DatabaseConfig, error) {
	d := DatabaseConfig{
		Driver:     getenvDefault("DB_DRIVER", DriverPostgres),
		SQLitePath: getenvDefault("SQLITE_PATH", "data/clima.db"),
	}

	var err error
	if d.MaxOpenConns, err = getenvInt("DB_MAX_OPEN_CONNS", 10); err != nil {
		return d, err
	}
	if d.MaxIdleConns, err = getenvInt("DB_MAX_IDLE_CONNS", 5); err != nil {
		return d, err
	}

	lifetime, err := time.ParseDuration(getenvDefault("DB_CONN_MAX_LIFETIME", "5m"))
	if err != nil {
		return d, fmt.Errorf("invalid DB_CONN_MAX_LIFETIME: %w", err)
	}
	d.ConnMaxLifetime = lifetime

	switch d.Driver {
	case DriverPostgres:
		d.URL = os.Getenv("DATABASE_URL")
		if d.URL == "" {
			d.URL = postgresURLFromParts()
		}
	case DriverSQLite:
		// SQLite handles one writer; keep a single connection.
		d.MaxOpenConns = 1
	case DriverMemory:
	default:
		return d, fmt.Errorf("invalid DB_DRIVER %q (allowed: postgres, sqlite, memory)", d.Driver)
	}
	return d, nil
}

// postgresURLFromParts builds a DSN from the individual POSTGRES_* variables.
func postgresURLFromParts() string {
	host := os.Getenv("POSTGRES_HOST")
	if host == "" {
		return ""
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(os.Getenv("POSTGRES_USER"), os.Getenv("POSTGRES_PASS")),
		Host:     host + ":" + getenvDefault("POSTGRES_PORT", "5432"),
		Path:     "/" + os.Getenv("POSTGRES_DB"),
		RawQuery: "sslmode=" + getenvDefault("POSTGRES_SSLMODE", "disable"),
	}
	return u.String()
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}

func getenvDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getenvFloat(key string, def float64) (float64, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func getenvBool(key string, def bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}
