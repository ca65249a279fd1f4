package models

import "time"

// Regime is a market-risk regime label.
type Regime string

const (
	RegimeNormal  Regime = "normal"
	RegimeHighVol Regime = "high_vol"
)

// Valid reports whether r is a known regime label.
func (r Regime) Valid() bool {
	return r == RegimeNormal || r == RegimeHighVol
}

// RegimeState is the classifier's cross-call memory for one series.
// At most one of EnterCount/ExitCount is nonzero at any time; both reset
// on any regime transition and on any non-confirming observation.
type RegimeState struct {
	Current    Regime
	Previous   Regime
	ChangedAt  *time.Time
	EnterCount int
	ExitCount  int
}

// NewRegimeState returns the initial state: normal regime, counters at
// zero, no transition recorded yet.
func NewRegimeState() RegimeState {
	return RegimeState{Current: RegimeNormal, Previous: RegimeNormal}
}

// ClassificationResult labels a single observation after it has been fed
// through the classifier. PreviousRegime is the regime an instant before
// this observation was processed, so callers detect a change by comparing
// it to Regime. RegimeTimestamp is the time of the last transition, nil
// until the first one.
type ClassificationResult struct {
	Series          string     `json:"series,omitempty"`
	Week            time.Time  `json:"week"`
	Regime          Regime     `json:"regime"`
	Probability     float64    `json:"probability"`
	PreviousRegime  Regime     `json:"previous_regime"`
	RegimeTimestamp *time.Time `json:"regime_timestamp"`
}
