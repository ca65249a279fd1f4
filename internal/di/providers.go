package di

import (
	"context"
	"fmt"
	"time"

	"RegimePull/internal/domain/repository"
	mid "RegimePull/internal/middleware"
	internalrepo "RegimePull/internal/repository"
	"RegimePull/internal/service/cache"
	"RegimePull/internal/service/featurestream"
	"RegimePull/internal/services/regime"
	"RegimePull/internal/usecase"
	pkgch "RegimePull/pkg/clickhouse"
	"RegimePull/pkg/config"
	pkgkafka "RegimePull/pkg/kafka"
	"RegimePull/pkg/metrics"
	"RegimePull/pkg/server"
)

// ProvideClickHouseClient creates a ClickHouse client.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	// Initialize schema
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db := cfg.ClickHouse.Database
	if err := client.InitSchema(ctx, []string{
		"CREATE DATABASE IF NOT EXISTS " + db,
		"CREATE TABLE IF NOT EXISTS " + db + ".regime_features (week DateTime, series String, vix_z Nullable(Float64), corr_z Nullable(Float64), rv_z Nullable(Float64)) ENGINE=ReplacingMergeTree ORDER BY (series, week)",
		"CREATE TABLE IF NOT EXISTS " + db + ".regime_labels (week DateTime, series String, regime String, probability Float64, previous_regime String, regime_timestamp Nullable(DateTime)) ENGINE=ReplacingMergeTree ORDER BY (series, week)",
	}); err != nil {
		_ = client.Close() // cannot log here (DI layer no logger); propagate error
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideKafkaProducer creates a Kafka producer.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}

	return producer, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideThresholds loads and validates the classifier thresholds file.
func ProvideThresholds(cfg *config.Config) (regime.Thresholds, error) {
	return regime.LoadThresholds(cfg.Classifier.ThresholdsPath)
}

// ProvideClassifierPool creates the per-series classifier pool.
func ProvideClassifierPool(t regime.Thresholds) (*usecase.ClassifierPool, error) {
	return usecase.NewClassifierPool(t)
}

// ProvideObservationStorage creates ClickHouse observation storage.
func ProvideObservationStorage(chClient *pkgch.Client, cfg *config.Config) repository.ObservationStore {
	return internalrepo.NewClickHouseObservationStore(chClient.DB(), cfg.ClickHouse.Database+".regime_features")
}

// ProvideObservationPublisher creates the Kafka observation publisher.
func ProvideObservationPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.Publisher {
	return internalrepo.NewKafkaObservationPublisher(producer, cfg.Kafka.Topic)
}

// ProvideFeatureStore creates the weekly feature reader.
func ProvideFeatureStore(chClient *pkgch.Client, cfg *config.Config) repository.FeatureStore {
	return internalrepo.NewCHFeatureStore(chClient, cfg.ClickHouse.Database+".regime_features")
}

// ProvideResultStore creates the label store.
func ProvideResultStore(chClient *pkgch.Client, cfg *config.Config) repository.ResultStore {
	return internalrepo.NewClickHouseResultStore(chClient.DB(), cfg.ClickHouse.Database+".regime_labels")
}

// ProvideLabelPublisher creates the Kafka label publisher.
func ProvideLabelPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.LabelPublisher {
	return internalrepo.NewKafkaLabelPublisher(producer, cfg.Kafka.LabelsTopic)
}

// ProvideResultCache wires the latest-result cache; Redis when configured,
// otherwise an in-process TTL map.
func ProvideResultCache(cfg *config.Config) *cache.ResultCache {
	ttl := cfg.Classifier.CacheTTL
	if ttl <= 0 {
		ttl = time.Minute
	}
	var backend cache.BytesCache
	if cfg.Classifier.Redis.Enabled {
		backend = cache.NewRedisCache(cache.RedisConfig{
			Addr:     cfg.Classifier.Redis.Addr,
			Password: cfg.Classifier.Redis.Password,
			DB:       cfg.Classifier.Redis.DB,
		})
	} else {
		backend = cache.NewTTLCache()
	}
	return cache.NewResultCache(backend, ttl)
}

// ProvideClassificationService creates the regime classification service.
func ProvideClassificationService(
	store repository.FeatureStore,
	pool *usecase.ClassifierPool,
	m repository.Metrics,
	results repository.ResultStore,
	labels repository.LabelPublisher,
	rc *cache.ResultCache,
) *usecase.ClassificationService {
	return usecase.NewClassificationService(store, pool, m,
		usecase.WithResultStore(results),
		usecase.WithLabelPublisher(labels),
		usecase.WithResultCache(rc),
	)
}

// ProvideKafkaConsumer creates a Kafka consumer configured from YAML.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideKafkaObservationsHandler registers the handler for the ingest topic.
func ProvideKafkaObservationsHandler(
	store repository.ObservationStore,
	svc *usecase.ClassificationService,
	m repository.Metrics,
	cfg *config.Config,
) *usecase.KafkaObservationsHandler {
	return usecase.NewKafkaObservationsHandler(cfg.Kafka.Topic, store, svc, m)
}

// ProvideFeatureStream creates the WebSocket feature stream.
func ProvideFeatureStream(cfg *config.Config) repository.FeatureStream {
	return featurestream.New(
		cfg.Stream.Token,
		cfg.Stream.URL,
		cfg.Stream.Series,
		cfg.Stream.ReconnectDelay,
		cfg.Stream.PingInterval,
	)
}

// ProvideObservationProcessor creates the observation processor use case.
func ProvideObservationProcessor(
	pub repository.Publisher,
	store repository.ObservationStore,
	m repository.Metrics,
	cfg *config.Config,
) *usecase.ObservationProcessor {
	return usecase.NewObservationProcessor(
		pub,
		store,
		m,
		cfg.Backend.Type,
		cfg.Backend.BatchSize,
		cfg.Backend.BatchTimeout,
	)
}

// ProvideObservationCollector creates the observation collector use case.
func ProvideObservationCollector(
	stream repository.FeatureStream,
	processor *usecase.ObservationProcessor,
	m repository.Metrics,
) *usecase.ObservationCollector {
	// Middleware pipeline between WebSocket and backend
	pipe := mid.NewObservationPipeline(processor, m,
		mid.WithMaxRPS(50),
		mid.WithBufferSize(2000),
	)
	return usecase.NewObservationCollector(stream, processor, m, pipe)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	collector *usecase.ObservationCollector,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaObservationsHandler,
	chClient *pkgch.Client,
	svc *usecase.ClassificationService,
) *server.App {
	// Consumer hook point; NoopHook by default, swappable via config later
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.NoopHook{})
	}
	app := server.New(cfg, collector, consumer, kh, chClient, svc)
	if collector != nil {
		app.ObsProc = collector.Processor()
	}
	return app
}
