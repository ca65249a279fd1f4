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

// ClickHouseResultStore persists classification results to the labels table
// and serves the latest label per series.
type ClickHouseResultStore struct {
	db    *sql.DB
	table string
}

func NewClickHouseResultStore(db *sql.DB, table string) domrepo.ResultStore {
	return &ClickHouseResultStore{db: db, table: table}
}

func (s *ClickHouseResultStore) StoreResult(ctx context.Context, res *models.ClassificationResult) error {
	q := fmt.Sprintf("INSERT INTO %s (week, series, regime, probability, previous_regime, regime_timestamp) VALUES (?, ?, ?, ?, ?, ?)", s.table)
	_, err := s.db.ExecContext(ctx, q, resultArgs(res)...)
	return err
}

func (s *ClickHouseResultStore) StoreResults(ctx context.Context, results []models.ClassificationResult) error {
	if len(results) == 0 {
		return nil
	}
	const chunkSize = 2000
	for start := 0; start < len(results); start += chunkSize {
		end := start + chunkSize
		if end > len(results) {
			end = len(results)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*6)
		for i := range results[start:end] {
			r := &results[start+i]
			if r.Series == "" || r.Week.IsZero() {
				continue
			}
			values = append(values, "(?, ?, ?, ?, ?, ?)")
			args = append(args, resultArgs(r)...)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf("INSERT INTO %s (week, series, regime, probability, previous_regime, regime_timestamp) VALUES %s", s.table, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return err
		}
	}
	return nil
}

func (s *ClickHouseResultStore) LatestResult(ctx context.Context, series string) (*models.ClassificationResult, error) {
	q := fmt.Sprintf("SELECT week, series, regime, probability, previous_regime, regime_timestamp FROM %s WHERE series = ? ORDER BY week DESC LIMIT 1", s.table)
	row := s.db.QueryRowContext(ctx, q, series)

	var (
		res models.ClassificationResult
		ts  sql.NullTime
	)
	if err := row.Scan(&res.Week, &res.Series, &res.Regime, &res.Probability, &res.PreviousRegime, &ts); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("latest result: %w", err)
	}
	if ts.Valid {
		t := ts.Time
		res.RegimeTimestamp = &t
	}
	return &res, nil
}

func resultArgs(r *models.ClassificationResult) []interface{} {
	var ts interface{}
	if r.RegimeTimestamp != nil {
		ts = r.RegimeTimestamp.UTC().Truncate(time.Second)
	}
	return []interface{}{
		r.Week.UTC().Truncate(time.Second),
		r.Series,
		string(r.Regime),
		r.Probability,
		string(r.PreviousRegime),
		ts,
	}
}

// KafkaLabelPublisher emits classification results onto the labels topic,
// keyed by series so consumers see per-series order.
type KafkaLabelPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaLabelPublisher(producer *pkgkafka.Producer, topic string) domrepo.LabelPublisher {
	return &KafkaLabelPublisher{producer: producer, topic: topic}
}

func (p *KafkaLabelPublisher) PublishResult(ctx context.Context, res *models.ClassificationResult) error {
	return p.producer.Publish(ctx, p.topic, []byte(res.Series), res)
}

func (p *KafkaLabelPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
