package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/clima/internal/weather"
)

// OpenWeatherProvider implements weather.Provider for OpenWeatherMap current
// conditions at a fixed coordinate.
type OpenWeatherProvider struct {
	name    string
	apiKey  string
	baseURL string
	lat     float64
	lon     float64
	lang    string
	timeout time.Duration
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

var _ weather.Provider = (*OpenWeatherProvider)(nil)

// OpenWeatherOptions configures an OpenWeatherProvider.
type OpenWeatherOptions struct {
	APIKey  string
	BaseURL string
	Lat     float64
	Lon     float64
	Lang    string
	// Timeout bounds a single Fetch, retries included.
	Timeout    time.Duration
	MaxRetries int
}

func NewOpenWeatherProvider(client *http.Client, cfg OpenWeatherOptions) *OpenWeatherProvider {
	return &OpenWeatherProvider{
		name:    "openweathermap",
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		lat:     cfg.Lat,
		lon:     cfg.Lon,
		lang:    cfg.Lang,
		timeout: cfg.Timeout,
		httpCfg: HTTPClientConfig{
			Client: client,
			Backoff: BackoffConfig{
				MaxRetries:      cfg.MaxRetries,
				InitialInterval: 500 * time.Millisecond,
				MaxInterval:     5 * time.Second,
			},
		},
		circuit: newCircuitBreaker("openweather"),
	}
}

func (p *OpenWeatherProvider) Name() string {
	return p.name
}

type openWeatherPayload struct {
	Main *struct {
		Temp     *float64 `json:"temp"`
		Humidity *float64 `json:"humidity"`
	} `json:"main"`
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
}

// Fetch returns the current observation. Any failure, including a timeout,
// wraps weather.ErrProviderUnavailable.
func (p *OpenWeatherProvider) Fetch(ctx context.Context) (weather.Observation, error) {
	obs, err := p.fetch(ctx)
	if err != nil {
		return weather.Observation{}, fmt.Errorf("%w: %s: %v", weather.ErrProviderUnavailable, p.name, err)
	}
	return obs, nil
}

func (p *OpenWeatherProvider) fetch(ctx context.Context) (weather.Observation, error) {
	if p.apiKey == "" {
		return weather.Observation{}, fmt.Errorf("openweather api key is not configured")
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	buildRequest := func(ctx context.Context) (*http.Request, error) {
		values := url.Values{}
		values.Set("lat", strconv.FormatFloat(p.lat, 'f', -1, 64))
		values.Set("lon", strconv.FormatFloat(p.lon, 'f', -1, 64))
		values.Set("appid", p.apiKey)
		values.Set("units", "metric")
		if p.lang != "" {
			values.Set("lang", p.lang)
		}

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return weather.Observation{}, err
	}
	defer resp.Body.Close()

	var payload openWeatherPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return weather.Observation{}, fmt.Errorf("decode response: %w", err)
	}
	if payload.Main == nil || payload.Main.Temp == nil || payload.Main.Humidity == nil {
		return weather.Observation{}, fmt.Errorf("response has no temperature or humidity")
	}

	conditions := make([]weather.ConditionEntry, 0, len(payload.Weather))
	for _, w := range payload.Weather {
		conditions = append(conditions, weather.ConditionEntry{
			Code:        w.Main,
			Description: w.Description,
		})
	}

	return weather.Observation{
		TemperatureC: *payload.Main.Temp,
		HumidityPct:  int(math.Round(*payload.Main.Humidity)),
		Conditions:   conditions,
	}, nil
}
