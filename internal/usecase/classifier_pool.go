package usecase

import (
	"fmt"
	"sync"
	"time"

	"RegimePull/internal/domain/models"
	"RegimePull/internal/services/regime"
)

// ClassifierPool keeps one live classifier per series. Regime state is
// per-series; rows for different series never share hysteresis counters.
type ClassifierPool struct {
	mu         sync.Mutex
	thresholds regime.Thresholds
	entries    map[string]*poolEntry
}

type poolEntry struct {
	mu sync.Mutex
	c  *regime.Classifier
}

// NewClassifierPool validates thresholds once up front so per-series
// classifier creation cannot fail later.
func NewClassifierPool(t regime.Thresholds) (*ClassifierPool, error) {
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("classifier pool: %w", err)
	}
	return &ClassifierPool{thresholds: t, entries: make(map[string]*poolEntry)}, nil
}

func (p *ClassifierPool) entry(series string) (*poolEntry, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.entries[series]
	if !ok {
		c, err := regime.NewClassifier(p.thresholds)
		if err != nil {
			return nil, err
		}
		e = &poolEntry{c: c}
		p.entries[series] = e
	}
	return e, nil
}

// ClassifyRow advances the series' state machine with one observation.
func (p *ClassifierPool) ClassifyRow(series string, obs models.FeatureObservation, ts time.Time) (models.ClassificationResult, error) {
	e, err := p.entry(series)
	if err != nil {
		return models.ClassificationResult{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	res := e.c.ClassifyRow(obs, ts)
	res.Series = series
	return res, nil
}

// State returns a snapshot of the series' regime state, or nil if the
// series has never been classified.
func (p *ClassifierPool) State(series string) *models.RegimeState {
	p.mu.Lock()
	e, ok := p.entries[series]
	p.mu.Unlock()
	if !ok {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	st := e.c.State()
	return &st
}

// Reset drops the series' state so the next row starts from the initial regime.
func (p *ClassifierPool) Reset(series string) {
	p.mu.Lock()
	e, ok := p.entries[series]
	p.mu.Unlock()
	if !ok {
		return
	}
	e.mu.Lock()
	e.c.Reset()
	e.mu.Unlock()
}

// Thresholds returns the pool's validated thresholds.
func (p *ClassifierPool) Thresholds() regime.Thresholds { return p.thresholds }
