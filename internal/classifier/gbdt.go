// Package classifier trains and applies the supplier-failure model: a
// boosted ensemble of depth-1 regression trees fit to the logistic loss.
package classifier

import (
	"math"
	"sort"

	"github.com/rotisserie/eris"

	"github.com/atlas-supply/risk-cli/internal/model"
)

// Regularization term on leaf weights. Keeps leaf values bounded when a
// split isolates very few rows.
const leafLambda = 1.0

// Params holds the fixed training hyperparameters.
type Params struct {
	Rounds       int
	LearningRate float64
}

// DefaultParams returns the training defaults used when config is absent.
func DefaultParams() Params {
	return Params{Rounds: 50, LearningRate: 0.3}
}

// Stump is a single depth-1 tree. Rows with feature value below Threshold
// receive the Left leaf weight, the rest receive Right.
type Stump struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      float64 `json:"left"`
	Right     float64 `json:"right"`
}

// Model is the trained failure classifier.
type Model struct {
	Features     []string `json:"features"`
	Base         float64  `json:"base"`
	LearningRate float64  `json:"learning_rate"`
	Stumps       []Stump  `json:"stumps"`
}

// Train fits a boosted-stump classifier on the canonical feature vector
// against the Failure label. A label column containing only one class
// degenerates to a neutral 0.5 prior rather than failing.
func Train(rows []model.SupplierRecord, p Params) (*Model, error) {
	if len(rows) == 0 {
		return nil, eris.New("classifier: no training rows")
	}
	if p.Rounds < 0 || p.LearningRate <= 0 {
		return nil, eris.Errorf("classifier: invalid params rounds=%d lr=%f", p.Rounds, p.LearningRate)
	}

	n := len(rows)
	x := make([][]float64, n)
	y := make([]float64, n)
	pos := 0
	for i := range rows {
		x[i] = rows[i].FeatureVector()
		y[i] = float64(rows[i].Failure)
		if rows[i].Failure == 1 {
			pos++
		}
	}

	m := &Model{
		Features:     model.Features,
		LearningRate: p.LearningRate,
	}

	// Single-class labels: neutral prior, no trees.
	if pos == 0 || pos == n {
		m.Base = 0 // sigmoid(0) = 0.5
		return m, nil
	}

	m.Base = logit(float64(pos) / float64(n))

	// Raw scores, updated additively each round.
	f := make([]float64, n)
	for i := range f {
		f[i] = m.Base
	}

	grad := make([]float64, n)
	hess := make([]float64, n)

	for round := 0; round < p.Rounds; round++ {
		for i := range f {
			pr := sigmoid(f[i])
			grad[i] = y[i] - pr
			hess[i] = pr * (1 - pr)
		}

		stump, ok := fitStump(x, grad, hess)
		if !ok {
			break
		}
		m.Stumps = append(m.Stumps, stump)

		for i := range f {
			f[i] += p.LearningRate * stump.apply(x[i])
		}
	}

	return m, nil
}

// PredictProba returns the probability of the failure class for one
// feature vector, in (0,1).
func (m *Model) PredictProba(features []float64) float64 {
	f := m.Base
	for _, s := range m.Stumps {
		f += m.LearningRate * s.apply(features)
	}
	return sigmoid(f)
}

func (s Stump) apply(features []float64) float64 {
	if features[s.Feature] < s.Threshold {
		return s.Left
	}
	return s.Right
}

// fitStump finds the single split maximizing the boosting gain over all
// features and candidate thresholds, using Newton leaf weights. Returns
// ok=false when every feature column is constant.
func fitStump(x [][]float64, grad, hess []float64) (Stump, bool) {
	var gTotal, hTotal float64
	for i := range grad {
		gTotal += grad[i]
		hTotal += hess[i]
	}

	best := Stump{}
	bestGain := math.Inf(-1)
	found := false
	numFeatures := len(x[0])

	vals := make([]float64, len(x))
	for feat := 0; feat < numFeatures; feat++ {
		for i := range x {
			vals[i] = x[i][feat]
		}
		for _, threshold := range splitCandidates(vals) {
			var gLeft, hLeft float64
			for i := range x {
				if x[i][feat] < threshold {
					gLeft += grad[i]
					hLeft += hess[i]
				}
			}
			gRight := gTotal - gLeft
			hRight := hTotal - hLeft

			gain := gLeft*gLeft/(hLeft+leafLambda) + gRight*gRight/(hRight+leafLambda)
			if gain > bestGain {
				bestGain = gain
				best = Stump{
					Feature:   feat,
					Threshold: threshold,
					Left:      gLeft / (hLeft + leafLambda),
					Right:     gRight / (hRight + leafLambda),
				}
				found = true
			}
		}
	}

	return best, found
}

// splitCandidates returns the midpoints between consecutive distinct
// sorted values. A constant column yields none.
func splitCandidates(vals []float64) []float64 {
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)

	var out []float64
	for i := 1; i < len(sorted); i++ {
		if sorted[i] != sorted[i-1] {
			out = append(out, (sorted[i]+sorted[i-1])/2)
		}
	}
	return out
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

func logit(p float64) float64 {
	// Clamp away from the boundaries so the base score stays finite.
	const eps = 1e-6
	if p < eps {
		p = eps
	}
	if p > 1-eps {
		p = 1 - eps
	}
	return math.Log(p / (1 - p))
}
