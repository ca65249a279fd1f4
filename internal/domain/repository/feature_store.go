package repository

import (
	"context"
	"time"

	"RegimePull/internal/domain/models"
)

// FeatureStore reads pre-computed weekly z-score features.
// Observations come back in ascending week order; classification
// correctness depends on that ordering.
type FeatureStore interface {
	GetWeekly(ctx context.Context, series string, from, to time.Time) ([]models.FeatureObservation, error)
	GetLatestN(ctx context.Context, series string, n int) ([]models.FeatureObservation, error)
}

// ResultStore persists and reads back classification results.
type ResultStore interface {
	StoreResult(ctx context.Context, res *models.ClassificationResult) error
	StoreResults(ctx context.Context, batch []models.ClassificationResult) error
	LatestResult(ctx context.Context, series string) (*models.ClassificationResult, error)
}
