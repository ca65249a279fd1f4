package repository

import (
	"context"

	"RegimePull/internal/domain/models"
)

// FeatureStream is a live feed of weekly risk snapshots.
type FeatureStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.FeatureObservation, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// Publisher pushes raw observations to the ingest topic.
type Publisher interface {
	Publish(ctx context.Context, obs *models.FeatureObservation) error
	PublishBatch(ctx context.Context, batch []*models.FeatureObservation) error
	Close() error
}

// ObservationStore persists raw observations (direct-to-storage backend mode).
type ObservationStore interface {
	Store(ctx context.Context, obs *models.FeatureObservation) error
	StoreBatch(ctx context.Context, batch []*models.FeatureObservation) error
	Health(ctx context.Context) error
	Close() error
}

// LabelPublisher emits classification results for downstream consumers.
type LabelPublisher interface {
	PublishResult(ctx context.Context, res *models.ClassificationResult) error
	Close() error
}

type Metrics interface {
	RecordObservation(backend, series string)
	RecordError(kind string)
	RecordRegime(series string, regime string, probability float64)
	RecordTransition(series, from, to string)
	RecordLatency(op string, seconds float64)
}
