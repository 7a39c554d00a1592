package risk

import (
	"context"
	"math"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, weatherURL, conflictURL string) *Client {
	t.Helper()
	return NewClient(
		WithWeatherAPI(weatherURL, "wkey"),
		WithConflictAPI(conflictURL, "ckey"),
		WithRand(rand.New(rand.NewSource(42))),
		WithTimeouts(2*time.Second, 2*time.Second),
		WithRateLimits(100, 100),
	)
}

func TestWeatherRisk_ConditionTiers(t *testing.T) {
	tests := []struct {
		condition string
		want      float64
	}{
		{"Thunderstorm", 0.95},
		{"Extreme", 0.95},
		{"Tornado", 0.95},
		{"Rain", 0.7},
		{"Snow", 0.7},
		{"Clouds", 0.5},
		{"Clear", 0.3},
		{"Haze", 0.3},
	}

	for _, tt := range tests {
		t.Run(tt.condition, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "wkey", r.URL.Query().Get("appid"))
				assert.NotEmpty(t, r.URL.Query().Get("lat"))
				w.Write([]byte(`{"weather":[{"main":"` + tt.condition + `"}]}`))
			}))
			defer srv.Close()

			c := newTestClient(t, srv.URL, srv.URL)
			assert.Equal(t, tt.want, c.WeatherRisk(context.Background(), 28.61, 77.21))
		})
	}
}

func TestWeatherRisk_FallbackOnServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, srv.URL)
	for range 20 {
		v := c.WeatherRisk(context.Background(), 1, 2)
		assert.GreaterOrEqual(t, v, 0.6)
		assert.LessOrEqual(t, v, 0.9)
		// Fallbacks are rounded to one decimal.
		assert.InDelta(t, v, math.Round(v*10)/10, 1e-9)
	}
}

func TestWeatherRisk_FallbackOnMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, srv.URL)
	v := c.WeatherRisk(context.Background(), 1, 2)
	assert.GreaterOrEqual(t, v, 0.6)
	assert.LessOrEqual(t, v, 0.9)
}

func TestWeatherRisk_FallbackOnMissingField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"weather":[]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, srv.URL)
	v := c.WeatherRisk(context.Background(), 1, 2)
	assert.GreaterOrEqual(t, v, 0.6)
	assert.LessOrEqual(t, v, 0.9)
	assert.False(t, math.IsNaN(v))
}

func TestWeatherRisk_FallbackOnUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // immediately unreachable

	c := newTestClient(t, srv.URL, srv.URL)
	v := c.WeatherRisk(context.Background(), 1, 2)
	assert.GreaterOrEqual(t, v, 0.6)
	assert.LessOrEqual(t, v, 0.9)
}

func TestWarRisk_EventCountScale(t *testing.T) {
	tests := []struct {
		name  string
		count string
		lo    float64
		hi    float64
	}{
		{"zero events", `0`, 0, 0.1},
		{"four events", `4`, 0.2, 0.3},
		{"ten events", `10`, 0.5, 0.6},
		{"capped at one", `400`, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "Token ckey", r.Header.Get("Authorization"))
				assert.Equal(t, "LAST30DAYS", r.URL.Query().Get("event_date"))
				w.Write([]byte(`{"count":` + tt.count + `}`))
			}))
			defer srv.Close()

			c := newTestClient(t, srv.URL, srv.URL)
			v := c.WarRisk(context.Background(), "India")
			assert.GreaterOrEqual(t, v, tt.lo)
			assert.LessOrEqual(t, v, tt.hi)
		})
	}
}

func TestWarRisk_FallbackOnUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := newTestClient(t, srv.URL, srv.URL)
	for range 20 {
		v := c.WarRisk(context.Background(), "India")
		assert.GreaterOrEqual(t, v, 0.4)
		assert.LessOrEqual(t, v, 0.8)
		assert.False(t, math.IsNaN(v))
	}
}

func TestWarRisk_FallbackOnBadCountType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"count":"many"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, srv.URL)
	v := c.WarRisk(context.Background(), "India")
	assert.GreaterOrEqual(t, v, 0.4)
	assert.LessOrEqual(t, v, 0.8)
}

func TestClient_TimeoutBounded(t *testing.T) {
	started := make(chan struct{}, 2)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started <- struct{}{}
		<-r.Context().Done()
	}))
	defer srv.Close()

	c := NewClient(
		WithWeatherAPI(srv.URL, "k"),
		WithConflictAPI(srv.URL, "k"),
		WithTimeouts(50*time.Millisecond, 50*time.Millisecond),
		WithRateLimits(100, 100),
		WithRand(rand.New(rand.NewSource(1))),
	)

	start := time.Now()
	v := c.WeatherRisk(context.Background(), 1, 2)
	<-started
	require.Less(t, time.Since(start), 2*time.Second)
	// Timed-out call degrades to the fallback range.
	assert.GreaterOrEqual(t, v, 0.6)
	assert.LessOrEqual(t, v, 0.9)

	start = time.Now()
	w := c.WarRisk(context.Background(), "India")
	<-started
	require.Less(t, time.Since(start), 2*time.Second)
	assert.GreaterOrEqual(t, w, 0.4)
	assert.LessOrEqual(t, w, 0.8)
}
