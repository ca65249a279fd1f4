package usecase

import (
	"context"
	"fmt"
	"time"

	"RegimePull/internal/domain/models"
	domrepo "RegimePull/internal/domain/repository"
	"RegimePull/internal/service/cache"
	svcmetrics "RegimePull/internal/service/metrics"
	"RegimePull/internal/services/regime"
	"RegimePull/pkg/util"
)

// ClassificationService answers regime queries and advances live per-series
// state. Window replays are pure: each one runs a fresh classifier over the
// fetched rows and never touches the live pool.
type ClassificationService struct {
	store   domrepo.FeatureStore
	pool    *ClassifierPool
	metrics domrepo.Metrics
	mapper  *regime.ProbabilityMapper

	results domrepo.ResultStore
	labels  domrepo.LabelPublisher
	cache   *cache.ResultCache
	warmupN int
}

type ClassificationOption func(*ClassificationService)

// WithResultStore persists every live classification result.
func WithResultStore(rs domrepo.ResultStore) ClassificationOption {
	return func(s *ClassificationService) { s.results = rs }
}

// WithLabelPublisher emits a label message on every regime transition.
func WithLabelPublisher(lp domrepo.LabelPublisher) ClassificationOption {
	return func(s *ClassificationService) { s.labels = lp }
}

// WithResultCache caches the latest result per series.
func WithResultCache(c *cache.ResultCache) ClassificationOption {
	return func(s *ClassificationService) { s.cache = c }
}

// WithWarmupN sets how many trailing weeks a cold Current query replays.
func WithWarmupN(n int) ClassificationOption {
	return func(s *ClassificationService) {
		if n > 0 {
			s.warmupN = n
		}
	}
}

func NewClassificationService(store domrepo.FeatureStore, pool *ClassifierPool, metrics domrepo.Metrics, opts ...ClassificationOption) *ClassificationService {
	svcmetrics.Register()
	s := &ClassificationService{
		store:   store,
		pool:    pool,
		metrics: metrics,
		mapper:  regime.NewProbabilityMapper(pool.Thresholds()),
		warmupN: 260,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Classify advances the live state machine for the observation's series,
// persists the result, and publishes a label when the regime changed.
func (s *ClassificationService) Classify(ctx context.Context, obs *models.FeatureObservation) (models.ClassificationResult, error) {
	if obs == nil {
		return models.ClassificationResult{}, fmt.Errorf("observation is nil")
	}
	start := time.Now()

	if _, ok := s.mapper.ComputeProbability(*obs); !ok {
		svcmetrics.FallbacksTotal.WithLabelValues(obs.Series).Inc()
	}

	res, err := s.pool.ClassifyRow(obs.Series, *obs, obs.Week)
	if err != nil {
		svcmetrics.ClassifyErrors.WithLabelValues("classify").Inc()
		return models.ClassificationResult{}, fmt.Errorf("classify %s: %w", obs.Series, err)
	}

	s.metrics.RecordRegime(res.Series, string(res.Regime), res.Probability)
	if res.Regime != res.PreviousRegime || s.transitioned(&res) {
		s.metrics.RecordTransition(res.Series, string(res.PreviousRegime), string(res.Regime))
		if s.labels != nil {
			if err := s.labels.PublishResult(ctx, &res); err != nil {
				s.metrics.RecordError("label_publish")
			}
		}
	}

	if s.results != nil {
		if err := s.results.StoreResult(ctx, &res); err != nil {
			s.metrics.RecordError("result_store")
		}
	}
	if s.cache != nil {
		if err := s.cache.Set(res.Series, &res); err != nil {
			s.metrics.RecordError("result_cache")
		}
	}

	svcmetrics.ClassifyLatency.WithLabelValues("classify").Observe(time.Since(start).Seconds())
	return res, nil
}

// transitioned reports whether this exact row committed a transition. The
// fallback path records self-transitions too, which the regime comparison
// alone would miss.
func (s *ClassificationService) transitioned(res *models.ClassificationResult) bool {
	return res.RegimeTimestamp != nil && res.RegimeTimestamp.Equal(res.Week)
}

// Current returns the latest classification for a series: cache first, then
// the label store, then a cold replay over the trailing warmup window.
func (s *ClassificationService) Current(ctx context.Context, series string) (*models.ClassificationResult, error) {
	start := time.Now()
	defer func() {
		svcmetrics.ClassifyLatency.WithLabelValues("current").Observe(time.Since(start).Seconds())
	}()

	if s.cache != nil {
		if res, ok, err := s.cache.Get(series); err == nil && ok {
			return res, nil
		}
	}
	if s.results != nil {
		res, err := s.results.LatestResult(ctx, series)
		if err != nil {
			s.metrics.RecordError("latest_result")
		} else if res != nil {
			s.cacheResult(res)
			return res, nil
		}
	}

	results, err := s.WindowN(ctx, series, s.warmupN)
	if err != nil {
		svcmetrics.ClassifyErrors.WithLabelValues("current").Inc()
		return nil, err
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("no observations for series %s", series)
	}
	res := results[len(results)-1]
	s.cacheResult(&res)
	return &res, nil
}

// Window replays the stored observations between from and to (inclusive,
// aligned to week boundaries) through a fresh classifier.
func (s *ClassificationService) Window(ctx context.Context, series string, from, to time.Time) ([]models.ClassificationResult, error) {
	from, to = util.AlignWeekRange(from, to)
	obs, err := s.store.GetWeekly(ctx, series, from, to)
	if err != nil {
		svcmetrics.ClassifyErrors.WithLabelValues("window").Inc()
		return nil, fmt.Errorf("window %s: %w", series, err)
	}
	return s.replay(ctx, series, obs)
}

// WindowN replays the latest n stored observations through a fresh classifier.
func (s *ClassificationService) WindowN(ctx context.Context, series string, n int) ([]models.ClassificationResult, error) {
	obs, err := s.store.GetLatestN(ctx, series, n)
	if err != nil {
		svcmetrics.ClassifyErrors.WithLabelValues("window").Inc()
		return nil, fmt.Errorf("window %s: %w", series, err)
	}
	return s.replay(ctx, series, obs)
}

func (s *ClassificationService) replay(ctx context.Context, series string, obs []models.FeatureObservation) ([]models.ClassificationResult, error) {
	start := time.Now()
	c, err := regime.NewClassifier(s.pool.Thresholds())
	if err != nil {
		return nil, err
	}
	for i := range obs {
		if obs[i].Series == "" {
			obs[i].Series = series
		}
	}
	results := c.ClassifySeries(obs)
	// Label table dedups on (series, week), so re-persisting a replay is safe.
	if s.results != nil && len(results) > 0 {
		if err := s.results.StoreResults(ctx, results); err != nil {
			s.metrics.RecordError("result_store")
		}
	}
	svcmetrics.ClassifyLatency.WithLabelValues("window").Observe(time.Since(start).Seconds())
	return results, nil
}

// LiveState exposes the live hysteresis state for a series, if any.
func (s *ClassificationService) LiveState(series string) *models.RegimeState {
	return s.pool.State(series)
}

func (s *ClassificationService) cacheResult(res *models.ClassificationResult) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(res.Series, res); err != nil {
		s.metrics.RecordError("result_cache")
	}
}
