package models

import "time"

// Feature keys carried by weekly risk snapshots. Values are z-scores
// computed upstream; this service never normalizes raw indicators itself.
const (
	FeatureVixZ  = "vix_z"
	FeatureCorrZ = "corr_z"
	FeatureRvZ   = "rv_z"
)

// FeatureObservation is one weekly snapshot of z-scored market-risk
// indicators for a logical series. An absent key means the upstream
// pipeline could not supply that feature for the week.
type FeatureObservation struct {
	Series string
	Week   time.Time
	Values map[string]float64
}

// Value looks up a feature by key.
func (o FeatureObservation) Value(key string) (float64, bool) {
	v, ok := o.Values[key]
	return v, ok
}
