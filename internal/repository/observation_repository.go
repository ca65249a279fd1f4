package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"RegimePull/internal/domain/models"
	domrepo "RegimePull/internal/domain/repository"
	pkgkafka "RegimePull/pkg/kafka"
)

// ClickHouseObservationStore implements ObservationStore for ClickHouse.
type ClickHouseObservationStore struct {
	db    *sql.DB
	table string
}

// NewClickHouseObservationStore creates ClickHouse observation storage.
func NewClickHouseObservationStore(db *sql.DB, table string) domrepo.ObservationStore {
	return &ClickHouseObservationStore{db: db, table: table}
}

func (s *ClickHouseObservationStore) Store(ctx context.Context, obs *models.FeatureObservation) error {
	q := fmt.Sprintf("INSERT INTO %s (week, series, vix_z, corr_z, rv_z) VALUES (?, ?, ?, ?, ?)", s.table)
	args := observationArgs(obs)
	_, err := s.db.ExecContext(ctx, q, args...)
	return err
}

func (s *ClickHouseObservationStore) StoreBatch(ctx context.Context, obs []*models.FeatureObservation) error {
	if len(obs) == 0 {
		return nil
	}
	// Multi-row VALUES insert to reduce round-trips, chunked.
	const chunkSize = 2000
	for start := 0; start < len(obs); start += chunkSize {
		end := start + chunkSize
		if end > len(obs) {
			end = len(obs)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*5)
		for _, o := range obs[start:end] {
			if o == nil || o.Series == "" || o.Week.IsZero() {
				continue
			}
			values = append(values, "(?, ?, ?, ?, ?)")
			args = append(args, observationArgs(o)...)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf("INSERT INTO %s (week, series, vix_z, corr_z, rv_z) VALUES %s", s.table, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return err
		}
	}
	return nil
}

func (s *ClickHouseObservationStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseObservationStore) Close() error {
	return nil // Pool managed by pkg
}

// observationArgs maps an observation to insert args. Absent feature keys
// become NULLs so storage round-trips preserve the missing-data signal.
func observationArgs(o *models.FeatureObservation) []interface{} {
	return []interface{}{
		o.Week.UTC().Truncate(time.Second),
		o.Series,
		nullableFeature(o, models.FeatureVixZ),
		nullableFeature(o, models.FeatureCorrZ),
		nullableFeature(o, models.FeatureRvZ),
	}
}

func nullableFeature(o *models.FeatureObservation, key string) interface{} {
	if v, ok := o.Value(key); ok {
		return v
	}
	return nil
}

// KafkaObservationPublisher implements Publisher for Kafka.
type KafkaObservationPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaObservationPublisher creates a Kafka observation publisher.
func NewKafkaObservationPublisher(producer *pkgkafka.Producer, topic string) domrepo.Publisher {
	return &KafkaObservationPublisher{producer: producer, topic: topic}
}

func (p *KafkaObservationPublisher) Publish(ctx context.Context, obs *models.FeatureObservation) error {
	return p.producer.Publish(ctx, p.topic, []byte(obs.Series), observationPayload(obs))
}

func (p *KafkaObservationPublisher) PublishBatch(ctx context.Context, obs []*models.FeatureObservation) error {
	if len(obs) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(obs))
	for i, o := range obs {
		msgs[i] = pkgkafka.Message{
			Key:   []byte(o.Series),
			Value: observationPayload(o),
		}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaObservationPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

func observationPayload(o *models.FeatureObservation) map[string]interface{} {
	return map[string]interface{}{
		"series":   o.Series,
		"week":     o.Week.UTC().Format(time.RFC3339),
		"features": o.Values,
	}
}
