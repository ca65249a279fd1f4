package regime

import (
	"fmt"
	"time"

	"RegimePull/internal/domain/models"
	domsvc "RegimePull/internal/domain/service"
)

// Clock supplies timestamps for ad-hoc calls that do not carry one.
// Injected so tests stay deterministic; live mode uses the system clock.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// Classifier is the per-series regime classification engine: the
// probability mapper plus the hysteresis state machine over a single
// RegimeState. Not safe for concurrent use; hold one per logical series.
type Classifier struct {
	thresholds Thresholds
	mapper     *ProbabilityMapper
	machine    *StateMachine
	state      models.RegimeState
	clock      Clock
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithClock overrides the timestamp source for ad-hoc classification.
func WithClock(c Clock) Option {
	return func(cl *Classifier) {
		if c != nil {
			cl.clock = c
		}
	}
}

// NewClassifier builds a classifier from validated thresholds. Invalid
// thresholds fail fast here so classification never starts on a broken
// configuration.
func NewClassifier(t Thresholds, opts ...Option) (*Classifier, error) {
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("regime thresholds: %w", err)
	}
	c := &Classifier{
		thresholds: t,
		mapper:     NewProbabilityMapper(t),
		machine:    NewStateMachine(t),
		state:      models.NewRegimeState(),
		clock:      systemClock{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Thresholds returns the immutable configuration the classifier carries.
func (c *Classifier) Thresholds() Thresholds { return c.thresholds }

// Reset restores the initial state.
func (c *Classifier) Reset() { c.state = models.NewRegimeState() }

// State returns a copy of the current hysteresis state.
func (c *Classifier) State() models.RegimeState { return c.state }

// ClassifyRow processes a single observation and mutates the carried
// state. A zero ts resolves to the observation's week, then to the clock;
// the clock path is only meant for interactive/live use, never for replay.
func (c *Classifier) ClassifyRow(obs models.FeatureObservation, ts time.Time) models.ClassificationResult {
	if ts.IsZero() {
		if !obs.Week.IsZero() {
			ts = obs.Week
		} else {
			ts = c.clock.Now()
		}
	}
	p, ok := c.mapper.ComputeProbability(obs)
	res := c.machine.Advance(&c.state, p, ok, ts)
	res.Series = obs.Series
	res.Week = ts
	return res
}

// ClassifySeries resets state and processes an ordered batch, one result
// per observation. Repeated runs over the same input produce identical
// output. Observations must already be in ascending week order; the
// machine cannot detect out-of-order input.
func (c *Classifier) ClassifySeries(observations []models.FeatureObservation) []models.ClassificationResult {
	c.Reset()
	out := make([]models.ClassificationResult, 0, len(observations))
	for _, obs := range observations {
		out = append(out, c.ClassifyRow(obs, obs.Week))
	}
	return out
}

var _ domsvc.RegimeClassifier = (*Classifier)(nil)
