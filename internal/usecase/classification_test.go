package usecase

import (
	"context"
	"testing"
	"time"

	"RegimePull/internal/domain/models"
	"RegimePull/internal/service/cache"
	"RegimePull/internal/services/regime"
)

type memFeatureStore struct {
	obs map[string][]models.FeatureObservation
}

func (m *memFeatureStore) GetWeekly(ctx context.Context, series string, from, to time.Time) ([]models.FeatureObservation, error) {
	var out []models.FeatureObservation
	for _, o := range m.obs[series] {
		if !o.Week.Before(from) && !o.Week.After(to) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *memFeatureStore) GetLatestN(ctx context.Context, series string, n int) ([]models.FeatureObservation, error) {
	all := m.obs[series]
	if len(all) > n {
		all = all[len(all)-n:]
	}
	return all, nil
}

type memResultStore struct {
	stored []models.ClassificationResult
	latest map[string]*models.ClassificationResult
}

func (m *memResultStore) StoreResult(ctx context.Context, res *models.ClassificationResult) error {
	m.stored = append(m.stored, *res)
	return nil
}

func (m *memResultStore) StoreResults(ctx context.Context, results []models.ClassificationResult) error {
	m.stored = append(m.stored, results...)
	return nil
}

func (m *memResultStore) LatestResult(ctx context.Context, series string) (*models.ClassificationResult, error) {
	if m.latest == nil {
		return nil, nil
	}
	return m.latest[series], nil
}

type memLabelPublisher struct {
	published []models.ClassificationResult
}

func (m *memLabelPublisher) PublishResult(ctx context.Context, res *models.ClassificationResult) error {
	m.published = append(m.published, *res)
	return nil
}

func (m *memLabelPublisher) Close() error { return nil }

type nopMetrics struct{}

func (nopMetrics) RecordObservation(backend, series string)                {}
func (nopMetrics) RecordError(kind string)                                 {}
func (nopMetrics) RecordRegime(series, regime string, probability float64) {}
func (nopMetrics) RecordTransition(series, from, to string)                {}
func (nopMetrics) RecordLatency(op string, seconds float64)                {}

func testWeek(i int) time.Time {
	base := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	return base.AddDate(0, 0, 7*i)
}

func calmObs(series string, i int) models.FeatureObservation {
	return models.FeatureObservation{
		Series: series,
		Week:   testWeek(i),
		Values: map[string]float64{models.FeatureVixZ: -2.0, models.FeatureCorrZ: -2.0},
	}
}

func stressedObs(series string, i int) models.FeatureObservation {
	return models.FeatureObservation{
		Series: series,
		Week:   testWeek(i),
		Values: map[string]float64{models.FeatureVixZ: 3.0, models.FeatureCorrZ: 1.0},
	}
}

// confirmOneThresholds transitions on the first qualifying tick, which keeps
// these tests focused on the service plumbing rather than debouncing.
func confirmOneThresholds() regime.Thresholds {
	t := regime.DefaultThresholds()
	t.Hysteresis.ConfirmTicks = 1
	return t
}

func newServiceDefault(t *testing.T, store *memFeatureStore, opts ...ClassificationOption) (*ClassificationService, *ClassifierPool) {
	t.Helper()
	pool, err := NewClassifierPool(confirmOneThresholds())
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	return NewClassificationService(store, pool, nopMetrics{}, opts...), pool
}

func TestClassifyPersistsAndCaches(t *testing.T) {
	store := &memFeatureStore{obs: map[string][]models.FeatureObservation{}}
	results := &memResultStore{}
	rc := cache.NewResultCache(cache.NewTTLCache(), time.Minute)

	pool, err := NewClassifierPool(confirmOneThresholds())
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	svc := NewClassificationService(store, pool, nopMetrics{},
		WithResultStore(results), WithResultCache(rc))

	obs := stressedObs("us_core", 0)
	res, err := svc.Classify(context.Background(), &obs)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if res.Regime != models.RegimeHighVol {
		t.Fatalf("regime = %s, want high_vol", res.Regime)
	}
	if len(results.stored) != 1 {
		t.Fatalf("stored %d results, want 1", len(results.stored))
	}
	cached, ok, err := rc.Get("us_core")
	if err != nil || !ok {
		t.Fatalf("cache miss after classify (ok=%v err=%v)", ok, err)
	}
	if cached.Regime != res.Regime || !cached.Week.Equal(res.Week) {
		t.Fatalf("cached result %+v does not match %+v", cached, res)
	}
}

func TestClassifyPublishesLabelOnlyOnTransition(t *testing.T) {
	store := &memFeatureStore{obs: map[string][]models.FeatureObservation{}}
	labels := &memLabelPublisher{}

	pool, err := NewClassifierPool(confirmOneThresholds())
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	svc := NewClassificationService(store, pool, nopMetrics{}, WithLabelPublisher(labels))

	for i := 0; i < 3; i++ {
		obs := stressedObs("us_core", i)
		if _, err := svc.Classify(context.Background(), &obs); err != nil {
			t.Fatalf("classify %d: %v", i, err)
		}
	}
	if len(labels.published) != 1 {
		t.Fatalf("published %d labels, want 1 (only the transition)", len(labels.published))
	}
	if labels.published[0].PreviousRegime != models.RegimeNormal || labels.published[0].Regime != models.RegimeHighVol {
		t.Fatalf("unexpected label %+v", labels.published[0])
	}
}

func TestClassifyFallbackPublishesSelfTransition(t *testing.T) {
	store := &memFeatureStore{obs: map[string][]models.FeatureObservation{}}
	labels := &memLabelPublisher{}

	pool, err := NewClassifierPool(confirmOneThresholds())
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	svc := NewClassificationService(store, pool, nopMetrics{}, WithLabelPublisher(labels))

	obs := models.FeatureObservation{Series: "us_core", Week: testWeek(0), Values: map[string]float64{}}
	res, err := svc.Classify(context.Background(), &obs)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if res.Regime != models.RegimeNormal || res.PreviousRegime != models.RegimeNormal {
		t.Fatalf("fallback result %+v, want normal->normal", res)
	}
	// fallback always commits, so the self-transition is published too
	if len(labels.published) != 1 {
		t.Fatalf("published %d labels, want 1", len(labels.published))
	}
}

func TestWindowReplayDoesNotTouchLiveState(t *testing.T) {
	series := "us_core"
	store := &memFeatureStore{obs: map[string][]models.FeatureObservation{
		series: {stressedObs(series, 0), stressedObs(series, 1), stressedObs(series, 2)},
	}}
	pool, err := NewClassifierPool(confirmOneThresholds())
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	svc := NewClassificationService(store, pool, nopMetrics{})

	results, err := svc.Window(context.Background(), series, testWeek(0), testWeek(2))
	if err != nil {
		t.Fatalf("window: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	if results[0].Regime != models.RegimeHighVol {
		t.Fatalf("first result %+v, want high_vol with confirm_ticks=1", results[0])
	}
	if st := pool.State(series); st != nil {
		t.Fatalf("window replay leaked into live state: %+v", st)
	}
}

func TestWindowReplayDeterministic(t *testing.T) {
	series := "us_core"
	store := &memFeatureStore{obs: map[string][]models.FeatureObservation{
		series: {calmObs(series, 0), stressedObs(series, 1), stressedObs(series, 2), calmObs(series, 3)},
	}}
	svcA, _ := newServiceDefault(t, store)
	svcB, _ := newServiceDefault(t, store)

	a, err := svcA.Window(context.Background(), series, testWeek(0), testWeek(3))
	if err != nil {
		t.Fatalf("window a: %v", err)
	}
	b, err := svcB.Window(context.Background(), series, testWeek(0), testWeek(3))
	if err != nil {
		t.Fatalf("window b: %v", err)
	}
	if len(a) != len(b) {
		t.Fatalf("result lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].Regime != b[i].Regime || a[i].Probability != b[i].Probability {
			t.Fatalf("row %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestCurrentColdReplaysLatestWindow(t *testing.T) {
	series := "us_core"
	store := &memFeatureStore{obs: map[string][]models.FeatureObservation{
		series: {calmObs(series, 0), stressedObs(series, 1), stressedObs(series, 2)},
	}}
	svc, _ := newServiceDefault(t, store)

	res, err := svc.Current(context.Background(), series)
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if !res.Week.Equal(testWeek(2)) {
		t.Fatalf("current week = %v, want %v", res.Week, testWeek(2))
	}
	if res.Regime != models.RegimeHighVol {
		t.Fatalf("current regime = %s, want high_vol", res.Regime)
	}
}

func TestCurrentPrefersStoredLatest(t *testing.T) {
	series := "us_core"
	want := models.ClassificationResult{
		Series: series, Week: testWeek(9),
		Regime: models.RegimeHighVol, Probability: 0.9,
		PreviousRegime: models.RegimeNormal,
	}
	store := &memFeatureStore{obs: map[string][]models.FeatureObservation{}}
	results := &memResultStore{latest: map[string]*models.ClassificationResult{series: &want}}
	svc, _ := newServiceDefault(t, store, WithResultStore(results))

	res, err := svc.Current(context.Background(), series)
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if res.Regime != want.Regime || !res.Week.Equal(want.Week) {
		t.Fatalf("current = %+v, want stored latest %+v", res, want)
	}
}

func TestCurrentNoDataErrors(t *testing.T) {
	store := &memFeatureStore{obs: map[string][]models.FeatureObservation{}}
	svc, _ := newServiceDefault(t, store)
	if _, err := svc.Current(context.Background(), "empty"); err == nil {
		t.Fatal("expected error for series without observations")
	}
}
