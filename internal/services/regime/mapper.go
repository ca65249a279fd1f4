package regime

import (
	"math"

	"RegimePull/internal/domain/models"
)

// ProbabilityMapper turns a weekly snapshot into a high_vol probability.
// The largest z-score in the candidate set drives the score: any single
// stressed indicator is enough to push the regime probability up.
type ProbabilityMapper struct {
	a, b     float64
	clampMin float64
	clampMax float64
}

func NewProbabilityMapper(t Thresholds) *ProbabilityMapper {
	return &ProbabilityMapper{
		a:        t.Mapping.A,
		b:        t.Mapping.B,
		clampMin: t.Mapping.ClampMin,
		clampMax: t.Mapping.ClampMax,
	}
}

// ComputeProbability returns (p, true) on success, or (0, false) when the
// required features are unavailable and the caller must take the fallback
// path. Non-finite values are discarded from the candidate set; the
// optional rv_z only participates when present.
func (m *ProbabilityMapper) ComputeProbability(obs models.FeatureObservation) (float64, bool) {
	vix, okVix := obs.Value(models.FeatureVixZ)
	corr, okCorr := obs.Value(models.FeatureCorrZ)
	if !okVix || !okCorr {
		return 0, false
	}

	candidates := []float64{vix, corr}
	if rv, ok := obs.Value(models.FeatureRvZ); ok {
		candidates = append(candidates, rv)
	}

	zMax := math.Inf(-1)
	finite := 0
	for _, v := range candidates {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		if v > zMax {
			zMax = v
		}
		finite++
	}
	if finite == 0 {
		return 0, false
	}
	return m.sigmoid(zMax), true
}

// sigmoid is the bounded logistic transform. Clamping keeps the state
// machine from ever seeing exactly 0 or 1 and keeps the tails numerically
// stable for extreme z-scores.
func (m *ProbabilityMapper) sigmoid(z float64) float64 {
	p := 1.0 / (1.0 + math.Exp(-(m.a*z + m.b)))
	return math.Min(math.Max(p, m.clampMin), m.clampMax)
}
