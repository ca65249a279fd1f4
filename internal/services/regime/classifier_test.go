package regime

import (
	"math"
	"reflect"
	"testing"
	"time"

	"RegimePull/internal/domain/models"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func weeklyObs(i int, vix, corr float64) models.FeatureObservation {
	return models.FeatureObservation{
		Series: "us_core",
		Week:   week(i),
		Values: map[string]float64{models.FeatureVixZ: vix, models.FeatureCorrZ: corr},
	}
}

func TestClassifySeriesDeterministicAndIdempotent(t *testing.T) {
	cls, err := NewClassifier(DefaultThresholds())
	if err != nil {
		t.Fatalf("classifier: %v", err)
	}

	obs := []models.FeatureObservation{
		weeklyObs(0, 1.2, 0.4),
		weeklyObs(1, 2.5, 1.0),
		weeklyObs(2, 2.8, 3.1),
		{Series: "us_core", Week: week(3), Values: map[string]float64{}}, // missing
		weeklyObs(4, -1.0, -0.5),
	}

	first := cls.ClassifySeries(obs)
	second := cls.ClassifySeries(obs)
	if len(first) != len(obs) {
		t.Fatalf("expected %d results, got %d", len(obs), len(first))
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("repeated runs over the same input must be identical")
	}
}

func TestClassifySeriesPreviousRegimeChains(t *testing.T) {
	cls, _ := NewClassifier(DefaultThresholds())
	obs := []models.FeatureObservation{
		weeklyObs(0, 3.0, 1.0),
		weeklyObs(1, 3.0, 1.0),
		weeklyObs(2, -3.0, -1.0),
		weeklyObs(3, -3.0, -1.0),
		weeklyObs(4, 0.1, 0.1),
	}
	results := cls.ClassifySeries(obs)
	for i := 1; i < len(results); i++ {
		if results[i].PreviousRegime != results[i-1].Regime {
			t.Fatalf("result %d: previous_regime %s != prior regime %s", i, results[i].PreviousRegime, results[i-1].Regime)
		}
	}
}

func TestClassifySeriesResetsState(t *testing.T) {
	cls, _ := NewClassifier(DefaultThresholds())

	// drive into high_vol
	cls.ClassifySeries([]models.FeatureObservation{
		weeklyObs(0, 3.0, 1.0),
		weeklyObs(1, 3.0, 1.0),
	})
	if cls.State().Current != models.RegimeHighVol {
		t.Fatalf("setup failed: expected high_vol")
	}

	// a fresh run must start from normal again
	results := cls.ClassifySeries([]models.FeatureObservation{weeklyObs(0, 0.0, 0.0)})
	if results[0].Regime != models.RegimeNormal || results[0].PreviousRegime != models.RegimeNormal {
		t.Fatalf("run must reset state first, got %+v", results[0])
	}
	if results[0].RegimeTimestamp != nil {
		t.Fatalf("reset run must clear regime timestamp")
	}
}

func TestClassifyRowTimestampResolution(t *testing.T) {
	now := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	cls, _ := NewClassifier(DefaultThresholds(), WithClock(fixedClock{t: now}))

	// explicit timestamp wins
	res := cls.ClassifyRow(weeklyObs(0, 1.0, 1.0), week(7))
	if !res.Week.Equal(week(7)) {
		t.Fatalf("explicit ts ignored: %v", res.Week)
	}

	// zero ts falls back to the observation week
	res = cls.ClassifyRow(weeklyObs(3, 1.0, 1.0), time.Time{})
	if !res.Week.Equal(week(3)) {
		t.Fatalf("observation week ignored: %v", res.Week)
	}

	// no week at all: injected clock, not wall clock
	res = cls.ClassifyRow(models.FeatureObservation{
		Series: "us_core",
		Values: map[string]float64{models.FeatureVixZ: 1.0, models.FeatureCorrZ: 1.0},
	}, time.Time{})
	if !res.Week.Equal(now) {
		t.Fatalf("clock fallback not used: %v", res.Week)
	}
}

func TestClassifyRowMissingDataOverridesConfirmTicks(t *testing.T) {
	cls, _ := NewClassifier(DefaultThresholds())
	res := cls.ClassifyRow(models.FeatureObservation{
		Series: "us_core",
		Week:   week(0),
		Values: map[string]float64{models.FeatureVixZ: math.NaN(), models.FeatureCorrZ: math.NaN()},
	}, time.Time{})
	if res.Regime != models.RegimeNormal {
		t.Fatalf("fallback regime expected, got %s", res.Regime)
	}
	if res.RegimeTimestamp == nil || !res.RegimeTimestamp.Equal(week(0)) {
		t.Fatalf("fallback must stamp the transition immediately")
	}
	st := cls.State()
	if st.EnterCount != 0 || st.ExitCount != 0 {
		t.Fatalf("fallback must reset both counters")
	}
}

func TestNewClassifierRejectsInvalidThresholds(t *testing.T) {
	th := DefaultThresholds()
	th.Hysteresis.ProbExit = 0.8 // above prob_enter
	if _, err := NewClassifier(th); err == nil {
		t.Fatalf("expected error for prob_exit >= prob_enter")
	}

	th = DefaultThresholds()
	th.Mapping.ClampMin = 0.99
	th.Mapping.ClampMax = 0.01
	if _, err := NewClassifier(th); err == nil {
		t.Fatalf("expected error for inverted clamp bounds")
	}
}
