package risk

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const (
	// Each conflict event in the trailing window contributes this much risk.
	conflictPerEvent = 0.05
	// Jitter added on top of the event contribution, drawn from [0, this).
	conflictJitter     = 0.1
	conflictWindow     = "LAST30DAYS"
	conflictFallbackLo = 0.4
	conflictFallbackHi = 0.8
)

var (
	errEmptyConditions = eris.New("risk: empty conditions in weather response")
)

func errStatus(code int) error {
	return eris.Errorf("risk: provider returned status %d", code)
}

// conflictResponse is the subset of the event-count payload we read.
type conflictResponse struct {
	Count int `json:"count"`
}

// WarRisk returns the armed-conflict disruption risk in [0,1] for a
// country, from the event count over a trailing 30-day window. A small
// random jitter spreads otherwise-identical counts. On any provider
// failure it returns a bounded-random fallback in [0.4,0.8] (one
// decimal), logged at warn.
func (c *Client) WarRisk(ctx context.Context, country string) float64 {
	count, err := c.fetchConflictCount(ctx, country)
	if err != nil {
		fallback := roundTenth(c.uniform(conflictFallbackLo, conflictFallbackHi))
		zap.L().Warn("risk: conflict lookup failed, using fallback",
			zap.String("country", country),
			zap.Float64("fallback", fallback),
			zap.Error(err),
		)
		return fallback
	}

	score := float64(count)*conflictPerEvent + c.uniform(0, conflictJitter)
	if score > 1 {
		score = 1
	}
	return score
}

func (c *Client) fetchConflictCount(ctx context.Context, country string) (int, error) {
	if err := c.conflictLim.Wait(ctx); err != nil {
		return 0, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.conflictTimeout)
	defer cancel()

	params := url.Values{
		"country":    {country},
		"event_date": {conflictWindow},
		"limit":      {"1"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.conflictURL+"?"+params.Encode(), nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Authorization", "Token "+c.conflictKey)

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

	var cr conflictResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		return 0, err
	}

	return cr.Count, nil
}
