package metrics

import (
    "sync"

    "github.com/prometheus/client_golang/prometheus"
)

var (
    once sync.Once

    ClassifyLatency = prometheus.NewHistogramVec(
        prometheus.HistogramOpts{
            Namespace: "regimepull",
            Subsystem: "classifier",
            Name:      "latency_seconds",
            Help:      "Latency of classification endpoints",
            Buckets:   prometheus.DefBuckets,
        },
        []string{"endpoint"},
    )

    ClassifyErrors = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: "regimepull",
            Subsystem: "classifier",
            Name:      "errors_total",
            Help:      "Errors by classification endpoint",
        },
        []string{"endpoint"},
    )

    FallbacksTotal = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: "regimepull",
            Subsystem: "classifier",
            Name:      "fallbacks_total",
            Help:      "Observations classified via the missing-data fallback path",
        },
        []string{"series"},
    )
)

func Register() {
    once.Do(func() {
        prometheus.MustRegister(ClassifyLatency, ClassifyErrors, FallbacksTotal)
    })
}
