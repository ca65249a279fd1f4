package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"RegimePull/internal/domain/models"
	domrepo "RegimePull/internal/domain/repository"
	pkgch "RegimePull/pkg/clickhouse"
	applogger "RegimePull/pkg/logger"
)

// CHFeatureStore implements FeatureStore backed by ClickHouse. Feature
// columns are Nullable in the schema; a NULL comes back as an absent map
// key, which downstream is exactly the missing-feature signal.
type CHFeatureStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewCHFeatureStore(ch *pkgch.Client, table string) *CHFeatureStore {
	return &CHFeatureStore{db: ch.DB(), table: table}
}

// SetLogger injects a structured logger.
func (s *CHFeatureStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CHFeatureStore) GetWeekly(ctx context.Context, series string, from, to time.Time) ([]models.FeatureObservation, error) {
	start := time.Now()
	const qtpl = `
        SELECT week, series, vix_z, corr_z, rv_z
        FROM %s
        WHERE series = ? AND week >= ? AND week <= ?
        ORDER BY week ASC
    `
	q := fmt.Sprintf(qtpl, s.table)
	rows, err := s.db.QueryContext(ctx, q, series, from, to)
	if err != nil {
		s.logErr("clickhouse weekly_features query error", series, err)
		return nil, fmt.Errorf("get weekly features: %w", err)
	}
	defer rows.Close()

	out, err := s.scanObservations(rows, series)
	if err != nil {
		return nil, err
	}
	if s.l != nil {
		s.l.Info("clickhouse weekly_features ok",
			applogger.String("series", series),
			applogger.Int("rows", len(out)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return out, nil
}

func (s *CHFeatureStore) GetLatestN(ctx context.Context, series string, n int) ([]models.FeatureObservation, error) {
	const qtpl = `
        SELECT week, series, vix_z, corr_z, rv_z
        FROM (
            SELECT week, series, vix_z, corr_z, rv_z
            FROM %s
            WHERE series = ?
            ORDER BY week DESC
            LIMIT ?
        )
        ORDER BY week ASC
    `
	q := fmt.Sprintf(qtpl, s.table)
	rows, err := s.db.QueryContext(ctx, q, series, n)
	if err != nil {
		s.logErr("clickhouse latest_features query error", series, err)
		return nil, fmt.Errorf("get latest features: %w", err)
	}
	defer rows.Close()

	return s.scanObservations(rows, series)
}

func (s *CHFeatureStore) scanObservations(rows *sql.Rows, series string) ([]models.FeatureObservation, error) {
	out := make([]models.FeatureObservation, 0, 256)
	for rows.Next() {
		var (
			week          time.Time
			ser           string
			vix, corr, rv sql.NullFloat64
		)
		if err := rows.Scan(&week, &ser, &vix, &corr, &rv); err != nil {
			s.logErr("clickhouse features scan error", series, err)
			return nil, fmt.Errorf("scan feature row: %w", err)
		}
		values := make(map[string]float64, 3)
		if vix.Valid {
			values[models.FeatureVixZ] = vix.Float64
		}
		if corr.Valid {
			values[models.FeatureCorrZ] = corr.Float64
		}
		if rv.Valid {
			values[models.FeatureRvZ] = rv.Float64
		}
		out = append(out, models.FeatureObservation{Series: ser, Week: week, Values: values})
	}
	if err := rows.Err(); err != nil {
		s.logErr("clickhouse features rows error", series, err)
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (s *CHFeatureStore) logErr(msg, series string, err error) {
	if s.l != nil {
		s.l.Error(msg,
			applogger.String("table", s.table),
			applogger.String("series", series),
			applogger.Error(err),
		)
	}
}

var _ domrepo.FeatureStore = (*CHFeatureStore)(nil)
