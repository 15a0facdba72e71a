package goal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/op-tools/kpi-atlas/pkg/models/store"
)

type Store interface {
	// Upsert writes one goal per (kpi, period_type, period_start, period_end);
	// a repeated call replaces the target value.
	Upsert(ctx context.Context, rec store.GoalRecord) error
	List(ctx context.Context, periodType string) ([]store.GoalRecord, error)
	// FindOverlapping returns goals of the given period type whose period
	// intersects [start, end].
	FindOverlapping(ctx context.Context, periodType string, start, end time.Time) ([]store.GoalRecord, error)
}

type goalStore struct {
	db *sql.DB
}

func NewStore(db *sql.DB) (Store, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	return &goalStore{db: db}, nil
}

func (s *goalStore) Upsert(ctx context.Context, rec store.GoalRecord) error {
	query := `
		INSERT INTO goals (kpi_id, period_type, period_start, period_end, target_value)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (kpi_id, period_type, period_start, period_end)
		DO UPDATE SET target_value = excluded.target_value`

	_, err := s.db.ExecContext(ctx, query,
		rec.KPIID, rec.PeriodType, rec.PeriodStart, rec.PeriodEnd, rec.TargetValue)
	if err != nil {
		return fmt.Errorf("upsert goal for kpi %d: %w", rec.KPIID, err)
	}
	return nil
}

func (s *goalStore) List(ctx context.Context, periodType string) ([]store.GoalRecord, error) {
	query := `
		SELECT g.id, g.kpi_id, k.name, g.period_type, g.period_start, g.period_end, g.target_value
		FROM goals g
		JOIN kpis k ON k.id = g.kpi_id
		WHERE (? = '' OR g.period_type = ?)
		ORDER BY k.name, g.period_start`

	rows, err := s.db.QueryContext(ctx, query, periodType, periodType)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()
	return scanGoalRows(rows)
}

func (s *goalStore) FindOverlapping(
	ctx context.Context,
	periodType string,
	start, end time.Time,
) ([]store.GoalRecord, error) {
	query := `
		SELECT g.id, g.kpi_id, k.name, g.period_type, g.period_start, g.period_end, g.target_value
		FROM goals g
		JOIN kpis k ON k.id = g.kpi_id
		WHERE g.period_type = ? AND g.period_start <= ? AND g.period_end >= ?
		ORDER BY k.name`

	rows, err := s.db.QueryContext(ctx, query, periodType, end, start)
	if err != nil {
		return nil, fmt.Errorf("query overlapping goals: %w", err)
	}
	defer rows.Close()
	return scanGoalRows(rows)
}

func scanGoalRows(rows *sql.Rows) ([]store.GoalRecord, error) {
	var records []store.GoalRecord
	for rows.Next() {
		var rec store.GoalRecord
		err := rows.Scan(&rec.ID, &rec.KPIID, &rec.KPIName,
			&rec.PeriodType, &rec.PeriodStart, &rec.PeriodEnd, &rec.TargetValue)
		if err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
