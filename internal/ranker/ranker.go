// Package ranker scores enriched supplier rows against a distribution
// center and selects the best supplier per product.
package ranker

import (
	"sort"

	"go.uber.org/zap"

	"github.com/atlas-supply/risk-cli/internal/geo"
	"github.com/atlas-supply/risk-cli/internal/model"
)

// normEpsilon guards the min-max denominators: an all-equal column
// normalizes to 0 instead of dividing by zero.
const normEpsilon = 1e-9

// Scorer produces a failure probability for one canonical feature vector.
// Satisfied by *classifier.Model.
type Scorer interface {
	PredictProba(features []float64) float64
}

// Weights blends normalized risk and distance into the combined score.
type Weights struct {
	Risk float64
	Dist float64
}

// DefaultWeights encodes 70% weight on reliability risk, 30% on
// logistics distance.
func DefaultWeights() Weights {
	return Weights{Risk: 0.7, Dist: 0.3}
}

// Result holds the one-row-per-product best selection and the full
// scored table so callers can render alternatives.
type Result struct {
	Best []model.SupplierRecord
	All  []model.SupplierRecord
}

// Rank scores every row relative to the DC and picks the best supplier
// per product: lowest CombinedScore, ties broken by highest
// PastReliability. Input rows are not mutated.
func Rank(rows []model.SupplierRecord, scorer Scorer, dc model.Location, w Weights) Result {
	if len(rows) == 0 {
		return Result{}
	}

	all := make([]model.SupplierRecord, len(rows))
	copy(all, rows)

	for i := range all {
		all[i].FailureProb = scorer.PredictProba(all[i].FeatureVector())
		all[i].DistanceKM = geo.DistanceKM(dc.Latitude, dc.Longitude, all[i].Latitude, all[i].Longitude)
	}

	minProb, maxProb := minMax(all, func(r *model.SupplierRecord) float64 { return r.FailureProb })
	minDist, maxDist := minMax(all, func(r *model.SupplierRecord) float64 { return r.DistanceKM })

	for i := range all {
		all[i].RiskNorm = (all[i].FailureProb - minProb) / (maxProb - minProb + normEpsilon)
		all[i].DistNorm = (all[i].DistanceKM - minDist) / (maxDist - minDist + normEpsilon)
		all[i].CombinedScore = w.Risk*all[i].RiskNorm + w.Dist*all[i].DistNorm
	}

	bestIdx := make(map[string]int)
	for i := range all {
		j, ok := bestIdx[all[i].Product]
		if !ok || better(&all[i], &all[j]) {
			bestIdx[all[i].Product] = i
		}
	}

	best := make([]model.SupplierRecord, 0, len(bestIdx))
	for _, i := range bestIdx {
		best = append(best, all[i])
	}
	sort.Slice(best, func(a, b int) bool { return best[a].Product < best[b].Product })

	zap.L().Debug("ranker: ranked suppliers",
		zap.Int("rows", len(all)),
		zap.Int("products", len(best)),
		zap.String("dc_city", dc.City),
	)

	return Result{Best: best, All: all}
}

func better(a, b *model.SupplierRecord) bool {
	if a.CombinedScore != b.CombinedScore {
		return a.CombinedScore < b.CombinedScore
	}
	return a.PastReliability > b.PastReliability
}

func minMax(rows []model.SupplierRecord, get func(*model.SupplierRecord) float64) (float64, float64) {
	lo, hi := get(&rows[0]), get(&rows[0])
	for i := range rows {
		v := get(&rows[i])
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

// UniqueCities returns the warehouse cities in first-seen order.
func UniqueCities(ws []model.Warehouse) []string {
	seen := make(map[string]bool)
	var out []string
	for _, w := range ws {
		if !seen[w.City] {
			seen[w.City] = true
			out = append(out, w.City)
		}
	}
	return out
}

// SelectDC resolves the distribution center: the explicit city when it
// is a known warehouse city, otherwise the first warehouse city no
// supplier operates from (distance is meaningless when the DC sits in a
// supplier city). Returns false when no candidate remains.
func SelectDC(explicit string, warehouses []model.Warehouse, suppliers []model.SupplierRecord) (model.Location, bool) {
	byCity := make(map[string]model.Warehouse)
	for _, w := range warehouses {
		if _, ok := byCity[w.City]; !ok {
			byCity[w.City] = w
		}
	}

	if explicit != "" {
		if w, ok := byCity[explicit]; ok {
			return model.Location{City: w.City, Latitude: w.Latitude, Longitude: w.Longitude}, true
		}
	}

	supplierCities := make(map[string]bool)
	for i := range suppliers {
		supplierCities[suppliers[i].City] = true
	}

	for _, city := range UniqueCities(warehouses) {
		if !supplierCities[city] {
			w := byCity[city]
			zap.L().Info("ranker: selected non-overlapping distribution center",
				zap.String("city", w.City),
			)
			return model.Location{City: w.City, Latitude: w.Latitude, Longitude: w.Longitude}, true
		}
	}

	return model.Location{}, false
}
