package risk

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"
)

// Weather condition tiers. Severe convective conditions score highest;
// clear skies score lowest.
const (
	weatherTierSevere  = 0.95
	weatherTierPrecip  = 0.7
	weatherTierClouds  = 0.5
	weatherTierClear   = 0.3
	weatherFallbackLo  = 0.6
	weatherFallbackHi  = 0.9
)

// weatherResponse is the subset of the current-conditions payload we read.
type weatherResponse struct {
	Weather []struct {
		Main string `json:"main"`
	} `json:"weather"`
}

// WeatherRisk returns the weather disruption risk in [0,1] for a
// coordinate. On any provider failure it returns a bounded-random
// fallback in [0.6,0.9] (one decimal), logged at warn.
func (c *Client) WeatherRisk(ctx context.Context, lat, lon float64) float64 {
	v, err := c.fetchWeatherRisk(ctx, lat, lon)
	if err != nil {
		fallback := roundTenth(c.uniform(weatherFallbackLo, weatherFallbackHi))
		zap.L().Warn("risk: weather lookup failed, using fallback",
			zap.Float64("lat", lat),
			zap.Float64("lon", lon),
			zap.Float64("fallback", fallback),
			zap.Error(err),
		)
		return fallback
	}
	return v
}

func (c *Client) fetchWeatherRisk(ctx context.Context, lat, lon float64) (float64, error) {
	if err := c.weatherLim.Wait(ctx); err != nil {
		return 0, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.weatherTimeout)
	defer cancel()

	params := url.Values{
		"lat":   {strconv.FormatFloat(lat, 'f', -1, 64)},
		"lon":   {strconv.FormatFloat(lon, 'f', -1, 64)},
		"appid": {c.weatherKey},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.weatherURL+"?"+params.Encode(), nil)
	if err != nil {
		return 0, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return 0, errStatus(resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, err
	}

	var wr weatherResponse
	if err := json.Unmarshal(body, &wr); err != nil {
		return 0, err
	}
	if len(wr.Weather) == 0 {
		return 0, errEmptyConditions
	}

	return conditionTier(wr.Weather[0].Main), nil
}

// conditionTier maps a provider condition category to a fixed risk tier.
func conditionTier(main string) float64 {
	switch main {
	case "Thunderstorm", "Extreme", "Tornado":
		return weatherTierSevere
	case "Rain", "Snow":
		return weatherTierPrecip
	case "Clouds":
		return weatherTierClouds
	default:
		return weatherTierClear
	}
}
