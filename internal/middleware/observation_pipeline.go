package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"RegimePull/internal/domain/models"
	domrepo "RegimePull/internal/domain/repository"
	"RegimePull/internal/service/ratelimit"
)

// Proc is the minimal processor interface the pipeline needs.
type Proc interface {
	Process(ctx context.Context, obs *models.FeatureObservation) error
}

// ObservationPipeline sits between the feature stream and the backend.
// It validates, rate-limits per series, optionally transforms, and buffers
// when downstream is unavailable.
type ObservationPipeline struct {
	proc    Proc
	metrics domrepo.Metrics
	limiter *ratelimit.Limiter
	maxRPS  int
	bufSize int
	bufCh   chan *models.FeatureObservation
	stopCh  chan struct{}
	started bool
	mu      sync.Mutex
	// optional observation transform hook
	transform func(*models.FeatureObservation) *models.FeatureObservation
	// metrics
	bufDepthGauge func(int)
	throttleWarn  func(string)
}

type PipelineOption func(*ObservationPipeline)

// WithMaxRPS sets the max observations per second per series.
func WithMaxRPS(n int) PipelineOption {
	return func(p *ObservationPipeline) {
		if n > 0 {
			p.maxRPS = n
		}
	}
}

// WithBufferSize sets the temporary buffer size when downstream is unavailable.
func WithBufferSize(n int) PipelineOption {
	return func(p *ObservationPipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// WithTransform sets a transformation hook applied before forwarding.
func WithTransform(fn func(*models.FeatureObservation) *models.FeatureObservation) PipelineOption {
	return func(p *ObservationPipeline) { p.transform = fn }
}

// NewObservationPipeline creates a new pipeline.
func NewObservationPipeline(proc Proc, metrics domrepo.Metrics, opts ...PipelineOption) *ObservationPipeline {
	p := &ObservationPipeline{
		proc:    proc,
		metrics: metrics,
		limiter: ratelimit.New(),
		maxRPS:  20,   // default throttle per series
		bufSize: 1000, // default buffer
		bufCh:   make(chan *models.FeatureObservation, 1000),
		stopCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.bufSize != cap(p.bufCh) {
		p.bufCh = make(chan *models.FeatureObservation, p.bufSize)
	}
	p.bufDepthGauge = func(n int) { p.metrics.RecordLatency("pipeline_buffer_depth", float64(n)) }
	p.throttleWarn = func(series string) { p.metrics.RecordError("pipeline_throttle_" + series) }
	return p
}

// Start launches background flushing of buffered observations.
func (p *ObservationPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go func() {
		backoff := 50 * time.Millisecond
		for {
			select {
			case <-p.stopCh:
				return
			case obs := <-p.bufCh:
				if obs == nil {
					continue
				}
				if err := p.proc.Process(ctx, obs); err != nil {
					// exponential backoff with cap
					if backoff < 2*time.Second {
						backoff *= 2
					}
					p.metrics.RecordError("pipeline_flush")
					time.Sleep(backoff)
					// requeue if space; drop otherwise
					select {
					case p.bufCh <- obs:
					default:
						p.metrics.RecordError("pipeline_buffer_drop")
					}
				} else {
					backoff = 50 * time.Millisecond
				}
			}
		}
	}()
}

// Stop stops the background flushing.
func (p *ObservationPipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()
	close(p.stopCh)
}

// Process validates, throttles, and forwards an observation downstream,
// buffering on errors. Observations with missing features still pass; the
// classifier owns that decision, not the transport.
func (p *ObservationPipeline) Process(ctx context.Context, obs *models.FeatureObservation) error {
	start := time.Now()
	if err := validateObservation(obs); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return err
	}
	if p.transform != nil {
		obs = p.transform(obs)
		if err := validateObservation(obs); err != nil {
			p.metrics.RecordError("pipeline_transform_invalid")
			return err
		}
	}
	if !p.allow(obs.Series) {
		// throttled; record and drop silently
		p.metrics.RecordError("pipeline_throttle")
		if p.throttleWarn != nil {
			p.throttleWarn(obs.Series)
		}
		return nil
	}

	if err := p.proc.Process(ctx, obs); err != nil {
		p.metrics.RecordError("pipeline_process")
		// buffer non-blocking
		select {
		case p.bufCh <- obs:
			if p.bufDepthGauge != nil {
				p.bufDepthGauge(len(p.bufCh))
			}
		default:
			p.metrics.RecordError("pipeline_buffer_full")
		}
		return fmt.Errorf("pipeline downstream: %w", err)
	}
	p.metrics.RecordLatency("pipeline_process", time.Since(start).Seconds())
	return nil
}

func validateObservation(obs *models.FeatureObservation) error {
	if obs == nil {
		return fmt.Errorf("observation nil")
	}
	if obs.Series == "" {
		return fmt.Errorf("series empty")
	}
	if obs.Week.IsZero() {
		return fmt.Errorf("week invalid")
	}
	return nil
}

func (p *ObservationPipeline) allow(series string) bool {
	if p.maxRPS <= 0 {
		return true
	}
	return p.limiter.Allow(series, float64(p.maxRPS), float64(p.maxRPS))
}
