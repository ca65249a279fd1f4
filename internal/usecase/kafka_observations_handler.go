package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"RegimePull/internal/domain/models"
	domrepo "RegimePull/internal/domain/repository"
	"RegimePull/internal/services/features"
	pkgkafka "RegimePull/pkg/kafka"
	"RegimePull/pkg/util"
)

// KafkaObservationsHandler consumes observation messages, persists them and
// advances the live classifier.
type KafkaObservationsHandler struct {
	topic   string
	storage domrepo.ObservationStore
	svc     *ClassificationService
	metrics domrepo.Metrics
}

func NewKafkaObservationsHandler(topic string, storage domrepo.ObservationStore, svc *ClassificationService, metrics domrepo.Metrics) *KafkaObservationsHandler {
	return &KafkaObservationsHandler{topic: topic, storage: storage, svc: svc, metrics: metrics}
}

func (h *KafkaObservationsHandler) Topic() string { return h.topic }

// incoming message schema: {series, week, features}
func (h *KafkaObservationsHandler) Handle(ctx context.Context, b []byte) error {
	var m struct {
		Series   string         `json:"series"`
		Week     string         `json:"week"`
		Features map[string]any `json:"features"`
	}
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}
	week, ok := util.ParseTime(m.Week)
	if !ok {
		h.metrics.RecordError("consumer_week")
		return fmt.Errorf("invalid week %q", m.Week)
	}
	obs := &models.FeatureObservation{
		Series: m.Series,
		Week:   util.TruncateWeek(week),
		Values: features.Coerce(m.Features),
	}
	// E2E latency from event time to now (approx)
	h.metrics.RecordLatency("ingest_e2e_seconds", time.Since(obs.Week).Seconds())

	start := time.Now()
	err := h.storage.Store(ctx, obs)
	h.metrics.RecordLatency("ch_insert_seconds", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("consumer_store")
		return err
	}
	h.metrics.RecordObservation("clickhouse", obs.Series)

	if h.svc != nil {
		if _, err := h.svc.Classify(ctx, obs); err != nil {
			h.metrics.RecordError("consumer_classify")
			return err
		}
	}
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaObservationsHandler)(nil)
