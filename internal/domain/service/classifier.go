package service

import (
	"time"

	"RegimePull/internal/domain/models"
)

// RegimeClassifier labels weekly observations with a market-risk regime.
// Implementations carry mutable per-series state and are not safe for
// concurrent use; hold one instance per logical series.
type RegimeClassifier interface {
	// ClassifyRow processes a single observation. A zero ts means "resolve
	// the timestamp yourself" (observation week, then clock).
	ClassifyRow(obs models.FeatureObservation, ts time.Time) models.ClassificationResult

	// ClassifySeries resets state and processes an ordered batch, returning
	// one result per input observation.
	ClassifySeries(observations []models.FeatureObservation) []models.ClassificationResult

	// Reset restores the initial state (normal regime, counters at zero).
	Reset()

	// State returns a copy of the current hysteresis state.
	State() models.RegimeState
}
