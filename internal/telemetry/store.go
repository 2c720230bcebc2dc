package telemetry

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore persists readings in the sensor_data table.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore constructs a PostgreSQL-backed Store.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// Insert appends one reading.
func (s *PGStore) Insert(ctx context.Context, r Reading) error {
	const query = `INSERT INTO sensor_data
		(sensor_name, data_type, value, unit, equipment_id, location, is_anomaly, threshold_min, threshold_max, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := s.pool.Exec(ctx, query,
		r.Sensor, string(r.Kind), r.Value, r.Unit, r.Equipment, r.Location,
		r.IsAnomaly, r.ThresholdMin, r.ThresholdMax, r.RecordedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("telemetry: insert reading: %w", err)
	}
	return nil
}

// Recent returns the newest readings matching filter, newest first.
func (s *PGStore) Recent(ctx context.Context, filter Filter) ([]Reading, error) {
	query, args := recentQuery(filter)
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("telemetry: query readings: %w", err)
	}
	readings, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Reading, error) {
		var r Reading
		var kind string
		err := row.Scan(&r.Sensor, &kind, &r.Value, &r.Unit, &r.Equipment, &r.Location,
			&r.IsAnomaly, &r.ThresholdMin, &r.ThresholdMax, &r.RecordedAt)
		r.Kind = Kind(kind)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("telemetry: scan readings: %w", err)
	}
	return readings, nil
}

// PruneBefore deletes readings recorded before cutoff.
func (s *PGStore) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM sensor_data WHERE recorded_at < $1`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("telemetry: prune readings: %w", err)
	}
	return tag.RowsAffected(), nil
}

const maxRecentLimit = 500

func recentQuery(filter Filter) (string, []any) {
	var b strings.Builder
	b.WriteString(`SELECT sensor_name, data_type, value, unit, COALESCE(equipment_id, ''), COALESCE(location, ''),
		is_anomaly, threshold_min, threshold_max, recorded_at FROM sensor_data`)
	var conds []string
	var args []any
	if filter.Sensor != "" {
		args = append(args, filter.Sensor)
		conds = append(conds, fmt.Sprintf("sensor_name = $%d", len(args)))
	}
	if filter.AnomaliesOnly {
		conds = append(conds, "is_anomaly")
	}
	if len(conds) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(conds, " AND "))
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	limit = min(limit, maxRecentLimit)
	args = append(args, limit)
	fmt.Fprintf(&b, " ORDER BY recorded_at DESC LIMIT $%d", len(args))
	return b.String(), args
}

var _ Store = (*PGStore)(nil)
