package regime

import (
	"math"
	"testing"

	"RegimePull/internal/domain/models"
)

func obsWith(values map[string]float64) models.FeatureObservation {
	return models.FeatureObservation{Series: "us_core", Values: values}
}

func TestComputeProbabilityWorstCaseDominates(t *testing.T) {
	m := NewProbabilityMapper(DefaultThresholds())
	p, ok := m.ComputeProbability(obsWith(map[string]float64{
		models.FeatureVixZ:  3.0,
		models.FeatureCorrZ: -5.0,
	}))
	if !ok {
		t.Fatalf("expected probability")
	}
	// z_max must be 3.0, not the minimum or the mean
	want := 1.0 / (1.0 + math.Exp(-3.0))
	if math.Abs(p-want) > 1e-12 {
		t.Fatalf("got %v want %v", p, want)
	}
}

func TestComputeProbabilityClamped(t *testing.T) {
	th := DefaultThresholds()
	m := NewProbabilityMapper(th)
	for _, z := range []float64{-50, -3, 0, 3, 50} {
		p, ok := m.ComputeProbability(obsWith(map[string]float64{
			models.FeatureVixZ:  z,
			models.FeatureCorrZ: z,
		}))
		if !ok {
			t.Fatalf("z=%v: expected probability", z)
		}
		if p < th.Mapping.ClampMin || p > th.Mapping.ClampMax {
			t.Fatalf("z=%v: probability %v outside clamp [%v, %v]", z, p, th.Mapping.ClampMin, th.Mapping.ClampMax)
		}
	}
}

func TestComputeProbabilityMissingRequired(t *testing.T) {
	m := NewProbabilityMapper(DefaultThresholds())

	cases := []struct {
		name   string
		values map[string]float64
	}{
		{"no features", map[string]float64{}},
		{"vix absent", map[string]float64{models.FeatureCorrZ: 1.0}},
		{"corr absent", map[string]float64{models.FeatureVixZ: 1.0}},
		{"all NaN", map[string]float64{
			models.FeatureVixZ:  math.NaN(),
			models.FeatureCorrZ: math.NaN(),
		}},
		{"all infinite", map[string]float64{
			models.FeatureVixZ:  math.Inf(1),
			models.FeatureCorrZ: math.Inf(-1),
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, ok := m.ComputeProbability(obsWith(tc.values)); ok {
				t.Fatalf("expected missing signal")
			}
		})
	}
}

func TestComputeProbabilityOptionalRV(t *testing.T) {
	m := NewProbabilityMapper(DefaultThresholds())

	// rv_z participates when finite and larger than the required pair
	p1, ok := m.ComputeProbability(obsWith(map[string]float64{
		models.FeatureVixZ:  0.5,
		models.FeatureCorrZ: 0.5,
		models.FeatureRvZ:   2.0,
	}))
	if !ok {
		t.Fatalf("expected probability")
	}
	p2, _ := m.ComputeProbability(obsWith(map[string]float64{
		models.FeatureVixZ:  0.5,
		models.FeatureCorrZ: 0.5,
	}))
	if p1 <= p2 {
		t.Fatalf("rv_z should have raised the probability: %v vs %v", p1, p2)
	}

	// a non-finite rv_z is discarded without aborting the computation
	p3, ok := m.ComputeProbability(obsWith(map[string]float64{
		models.FeatureVixZ:  0.5,
		models.FeatureCorrZ: 0.5,
		models.FeatureRvZ:   math.NaN(),
	}))
	if !ok {
		t.Fatalf("expected probability despite NaN rv_z")
	}
	if p3 != p2 {
		t.Fatalf("NaN rv_z should not change the result: %v vs %v", p3, p2)
	}
}

func TestComputeProbabilityPartialFinite(t *testing.T) {
	m := NewProbabilityMapper(DefaultThresholds())
	// one NaN among the required pair still classifies off the finite one
	p, ok := m.ComputeProbability(obsWith(map[string]float64{
		models.FeatureVixZ:  math.NaN(),
		models.FeatureCorrZ: 1.5,
	}))
	if !ok {
		t.Fatalf("expected probability")
	}
	want := 1.0 / (1.0 + math.Exp(-1.5))
	if math.Abs(p-want) > 1e-12 {
		t.Fatalf("got %v want %v", p, want)
	}
}
