// Package risk scores supplier exposure to weather and armed-conflict
// disruption via external signal providers. Every lookup degrades to a
// documented fallback value instead of returning an error: a failed call
// must never stall the pipeline.
package risk

import (
	"context"
	"math"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Provider scores weather risk for a coordinate and war risk for a
// country, each in [0,1].
type Provider interface {
	WeatherRisk(ctx context.Context, lat, lon float64) float64
	WarRisk(ctx context.Context, country string) float64
}

// Client implements Provider against a current-conditions endpoint and a
// conflict-event-count endpoint.
type Client struct {
	httpClient *http.Client

	weatherURL string
	weatherKey string
	weatherLim *rate.Limiter

	conflictURL string
	conflictKey string
	conflictLim *rate.Limiter

	weatherTimeout  time.Duration
	conflictTimeout time.Duration

	// rand.Rand is not safe for concurrent use.
	randMu sync.Mutex
	rng    *rand.Rand
}

// Option configures the client.
type Option func(*Client)

// WithWeatherAPI sets the weather provider base URL and credential.
func WithWeatherAPI(baseURL, key string) Option {
	return func(c *Client) {
		c.weatherURL = baseURL
		c.weatherKey = key
	}
}

// WithConflictAPI sets the conflict provider base URL and credential.
func WithConflictAPI(baseURL, key string) Option {
	return func(c *Client) {
		c.conflictURL = baseURL
		c.conflictKey = key
	}
}

// WithHTTPClient sets a custom HTTP client for both providers.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithRateLimits sets per-provider requests-per-second limits.
func WithRateLimits(weatherRPS, conflictRPS float64) Option {
	return func(c *Client) {
		c.weatherLim = rate.NewLimiter(rate.Limit(weatherRPS), burst(weatherRPS))
		c.conflictLim = rate.NewLimiter(rate.Limit(conflictRPS), burst(conflictRPS))
	}
}

// WithTimeouts bounds each provider call, per provider.
func WithTimeouts(weather, conflict time.Duration) Option {
	return func(c *Client) {
		c.weatherTimeout = weather
		c.conflictTimeout = conflict
	}
}

// WithRand sets the random source used for fallback values and jitter.
// Tests inject a seeded source; production seeds from the clock.
func WithRand(rng *rand.Rand) Option {
	return func(c *Client) {
		c.rng = rng
	}
}

// NewClient creates a risk Client with the given options.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient:      &http.Client{Timeout: 30 * time.Second},
		weatherURL:      "https://api.openweathermap.org/data/2.5/weather",
		conflictURL:     "https://api.acleddata.com/acled/read",
		weatherLim:      rate.NewLimiter(5, 5),
		conflictLim:     rate.NewLimiter(2, 2),
		weatherTimeout:  10 * time.Second,
		conflictTimeout: 10 * time.Second,
		rng:             rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func burst(rps float64) int {
	if rps < 1 {
		return 1
	}
	return int(rps)
}

// uniform draws from [lo, hi) under the rand lock.
func (c *Client) uniform(lo, hi float64) float64 {
	c.randMu.Lock()
	defer c.randMu.Unlock()
	return lo + c.rng.Float64()*(hi-lo)
}

// roundTenth rounds to one decimal place, matching the granularity of the
// provider fallback tiers.
func roundTenth(x float64) float64 {
	return math.Round(x*10) / 10
}
