package features

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlas-supply/risk-cli/internal/model"
)

// fakeProvider returns fixed risks and counts lookups.
type fakeProvider struct {
	weather      float64
	war          float64
	weatherCalls int
	warCalls     int
}

func (f *fakeProvider) WeatherRisk(_ context.Context, _, _ float64) float64 {
	f.weatherCalls++
	return f.weather
}

func (f *fakeProvider) WarRisk(_ context.Context, _ string) float64 {
	f.warCalls++
	return f.war
}

func baseRows() []model.SupplierRecord {
	return []model.SupplierRecord{
		{SupplierID: "S1", Product: "Widget", Country: "India", LeadTimeDays: 7, PastReliability: 0.9, Capacity: 500},
		{SupplierID: "S2", Product: "Widget", Country: "India", LeadTimeDays: 12, PastReliability: 0.85, Capacity: 800},
		{SupplierID: "S3", Product: "Gasket", Country: "Vietnam", LeadTimeDays: 5, PastReliability: 0.97, Capacity: 300},
	}
}

func newTestBuilder(p *fakeProvider, noise bool) *Builder {
	return NewBuilder(p, WithRand(rand.New(rand.NewSource(7))), WithNoise(noise))
}

func TestBuild_OneRowPerInput(t *testing.T) {
	p := &fakeProvider{weather: 0.3, war: 0.1}
	out := newTestBuilder(p, true).Build(context.Background(), baseRows())

	require.Len(t, out, 3)
	assert.Equal(t, "S1", out[0].SupplierID)
	assert.Equal(t, "S3", out[2].SupplierID)
}

func TestBuild_EnrichesRiskColumns(t *testing.T) {
	p := &fakeProvider{weather: 0.5, war: 0.2}
	out := newTestBuilder(p, false).Build(context.Background(), baseRows())

	for _, rec := range out {
		assert.Equal(t, 0.5, rec.WeatherRisk)
		assert.Equal(t, 0.2, rec.WarRisk)
	}
	assert.Equal(t, 3, p.weatherCalls)
}

func TestBuild_MemoizesWarRiskByCountry(t *testing.T) {
	p := &fakeProvider{weather: 0.3, war: 0.1}
	newTestBuilder(p, false).Build(context.Background(), baseRows())

	// Three rows, two distinct countries.
	assert.Equal(t, 2, p.warCalls)
}

func TestBuild_ClampInvariants(t *testing.T) {
	rows := []model.SupplierRecord{
		{Country: "India", LeadTimeDays: 1, PastReliability: 0.7, Capacity: 100},
		{Country: "India", LeadTimeDays: 2, PastReliability: 1.0, Capacity: 101},
	}
	p := &fakeProvider{weather: 0.3, war: 0.1}

	for range 50 {
		out := newTestBuilder(p, true).Build(context.Background(), rows)
		for _, rec := range out {
			assert.GreaterOrEqual(t, rec.LeadTimeDays, 1.0)
			assert.GreaterOrEqual(t, rec.PastReliability, 0.7)
			assert.LessOrEqual(t, rec.PastReliability, 1.0)
			assert.GreaterOrEqual(t, rec.Capacity, 100.0)
		}
	}
}

func TestBuild_LabelHighWeatherRisk(t *testing.T) {
	p := &fakeProvider{weather: 0.95, war: 0.1}
	out := newTestBuilder(p, false).Build(context.Background(), baseRows())

	for _, rec := range out {
		assert.Equal(t, 1, rec.Failure)
	}
}

func TestBuild_LabelHighWarRisk(t *testing.T) {
	p := &fakeProvider{weather: 0.1, war: 0.8}
	out := newTestBuilder(p, false).Build(context.Background(), baseRows())

	for _, rec := range out {
		assert.Equal(t, 1, rec.Failure)
	}
}

func TestBuild_LabelLowRiskMostlyHealthy(t *testing.T) {
	// With low risks the only failure source is the 5% random clause.
	p := &fakeProvider{weather: 0.1, war: 0.05}

	var rows []model.SupplierRecord
	for i := 0; i < 200; i++ {
		rows = append(rows, model.SupplierRecord{
			Country: "India", LeadTimeDays: 7, PastReliability: 0.95, Capacity: 500,
		})
	}

	out := newTestBuilder(p, false).Build(context.Background(), rows)

	failures := 0
	for _, rec := range out {
		failures += rec.Failure
	}
	// Around 5% of 200; generous bounds for the seeded source.
	assert.Greater(t, failures, 0)
	assert.Less(t, failures, 40)
}

func TestBuild_NoiseOffPreservesMetrics(t *testing.T) {
	p := &fakeProvider{weather: 0.3, war: 0.1}
	rows := baseRows()
	out := newTestBuilder(p, false).Build(context.Background(), rows)

	assert.Equal(t, rows[0].LeadTimeDays, out[0].LeadTimeDays)
	assert.Equal(t, rows[0].PastReliability, out[0].PastReliability)
	assert.Equal(t, rows[0].Capacity, out[0].Capacity)
}

func TestBuild_DoesNotMutateInput(t *testing.T) {
	p := &fakeProvider{weather: 0.95, war: 0.1}
	rows := baseRows()
	_ = newTestBuilder(p, true).Build(context.Background(), rows)

	assert.Zero(t, rows[0].WeatherRisk)
	assert.Zero(t, rows[0].Failure)
}
