package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	observations    *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
	regimeState     *prometheus.GaugeVec
	lastProbability *prometheus.GaugeVec
	transitions     *prometheus.CounterVec
	latency         *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		observations: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "regimepull_observations_total",
				Help: "Total number of observations routed to a backend",
			},
			[]string{"backend", "series"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "regimepull_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		regimeState: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "regimepull_regime_state",
				Help: "Current regime per series (0=normal, 1=high_vol)",
			},
			[]string{"series"},
		),
		lastProbability: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "regimepull_last_probability",
				Help: "Last computed high_vol probability per series",
			},
			[]string{"series"},
		),
		transitions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "regimepull_regime_transitions_total",
				Help: "Confirmed regime transitions per series",
			},
			[]string{"series", "from", "to"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "regimepull_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordObservation records an observation routed to a backend.
func (r *Recorder) RecordObservation(backend, series string) {
	r.observations.WithLabelValues(backend, series).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordRegime records the current regime and probability for a series.
func (r *Recorder) RecordRegime(series string, regime string, probability float64) {
	v := 0.0
	if regime == "high_vol" {
		v = 1.0
	}
	r.regimeState.WithLabelValues(series).Set(v)
	r.lastProbability.WithLabelValues(series).Set(probability)
}

// RecordTransition records a confirmed regime change.
func (r *Recorder) RecordTransition(series, from, to string) {
	r.transitions.WithLabelValues(series, from, to).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
