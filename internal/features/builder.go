// Package features turns raw supplier rows into the enriched table the
// classifier trains on: operational-metric conditioning, external risk
// enrichment, and failure-label synthesis.
package features

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/atlas-supply/risk-cli/internal/model"
	"github.com/atlas-supply/risk-cli/internal/risk"
)

// Label-synthesis thresholds. The random clause guarantees both classes
// appear in the training set even when every supplier looks healthy.
const (
	labelRiskThreshold        = 0.7
	labelReliabilityFloor     = 0.7
	labelRandomFailureProb    = 0.05
	reliabilityCeil           = 1.0
	leadTimeFloor             = 1.0
	capacityFloor             = 100.0
	leadTimeNoise             = 0.5
	reliabilityNoise          = 0.02
	capacityNoise             = 5.0
)

// Builder constructs the enriched feature table.
type Builder struct {
	provider risk.Provider
	noise    bool

	randMu sync.Mutex
	rng    *rand.Rand
}

// Option configures the builder.
type Option func(*Builder)

// WithRand fixes the random source. Production seeds from the clock;
// runs are intentionally non-deterministic on the same input.
func WithRand(rng *rand.Rand) Option {
	return func(b *Builder) {
		b.rng = rng
	}
}

// WithNoise toggles the bounded perturbation of operational metrics.
// Disable when the input data already has natural variance; the clamp
// invariants hold either way.
func WithNoise(enabled bool) Option {
	return func(b *Builder) {
		b.noise = enabled
	}
}

// NewBuilder creates a Builder backed by the given risk provider.
func NewBuilder(provider risk.Provider, opts ...Option) *Builder {
	b := &Builder{
		provider: provider,
		noise:    true,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build returns one enriched row per input row: conditioned metrics,
// weather/war risk columns, and the synthesized Failure label.
func (b *Builder) Build(ctx context.Context, rows []model.SupplierRecord) []model.SupplierRecord {
	out := make([]model.SupplierRecord, len(rows))

	// One conflict lookup per distinct country.
	warByCountry := make(map[string]float64)

	for i, rec := range rows {
		if b.noise {
			rec.LeadTimeDays += b.uniform(-leadTimeNoise, leadTimeNoise)
			rec.PastReliability += b.uniform(-reliabilityNoise, reliabilityNoise)
			rec.Capacity += b.uniform(-capacityNoise, capacityNoise)
		}
		rec.LeadTimeDays = max(rec.LeadTimeDays, leadTimeFloor)
		rec.PastReliability = clamp(rec.PastReliability, labelReliabilityFloor, reliabilityCeil)
		rec.Capacity = max(rec.Capacity, capacityFloor)

		rec.WeatherRisk = b.provider.WeatherRisk(ctx, rec.Latitude, rec.Longitude)

		war, ok := warByCountry[rec.Country]
		if !ok {
			war = b.provider.WarRisk(ctx, rec.Country)
			warByCountry[rec.Country] = war
		}
		rec.WarRisk = war

		rec.Failure = b.synthesizeLabel(rec)
		out[i] = rec
	}

	failures := 0
	for i := range out {
		failures += out[i].Failure
	}
	zap.L().Info("features: built enriched table",
		zap.Int("rows", len(out)),
		zap.Int("failures", failures),
		zap.Int("countries", len(warByCountry)),
	)

	return out
}

// synthesizeLabel marks a supplier as a training-time failure when any
// single risk signal crosses its threshold, reliability drops below the
// floor, or the small random clause fires.
func (b *Builder) synthesizeLabel(rec model.SupplierRecord) int {
	if rec.WeatherRisk > labelRiskThreshold ||
		rec.WarRisk > labelRiskThreshold ||
		rec.PastReliability < labelReliabilityFloor ||
		b.uniform(0, 1) < labelRandomFailureProb {
		return 1
	}
	return 0
}

func (b *Builder) uniform(lo, hi float64) float64 {
	b.randMu.Lock()
	defer b.randMu.Unlock()
	return lo + b.rng.Float64()*(hi-lo)
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
