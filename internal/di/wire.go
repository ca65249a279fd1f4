//go:build wireinject
// +build wireinject

package di

import (
	"RegimePull/pkg/config"
	"RegimePull/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Metrics
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,

		// Classifier core
		ProvideThresholds,
		ProvideClassifierPool,
		ProvideResultCache,

		// Repositories
		ProvideObservationStorage,
		ProvideObservationPublisher,
		ProvideFeatureStore,
		ProvideResultStore,
		ProvideLabelPublisher,
		ProvideFeatureStream,

		// Use cases
		ProvideClassificationService,
		ProvideObservationProcessor,
		ProvideObservationCollector,
		ProvideKafkaObservationsHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
