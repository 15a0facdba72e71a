package kpi

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/op-tools/kpi-atlas/pkg/models/store"
)

// Store manages KPI rows. Ensure is the insert-if-absent operation the
// column mapper relies on: concurrent uploads registering the same new
// KPI name must resolve to one row.
type Store interface {
	Create(ctx context.Context, rec store.KPIRecord) (store.KPIRecord, error)
	Ensure(ctx context.Context, name string) (store.KPIRecord, error)
	EnsureWithAttrs(ctx context.Context, rec store.KPIRecord) (store.KPIRecord, error)
	GetByName(ctx context.Context, name string) (*store.KPIRecord, error)
	List(ctx context.Context) ([]store.KPIRecord, error)
}

type kpiStore struct {
	db *sql.DB
}

func NewStore(db *sql.DB) (Store, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	return &kpiStore{db: db}, nil
}

func (s *kpiStore) Create(ctx context.Context, rec store.KPIRecord) (store.KPIRecord, error) {
	query := `
		INSERT INTO kpis (name, unit, aggregation)
		VALUES (?, ?, ?)
		RETURNING id`

	var id int64
	err := s.db.QueryRowContext(ctx, query, rec.Name, nullable(rec.Unit), rec.Aggregation).Scan(&id)
	if err != nil {
		return store.KPIRecord{}, fmt.Errorf("insert kpi %q: %w", rec.Name, err)
	}
	rec.ID = id
	return rec, nil
}

func (s *kpiStore) Ensure(ctx context.Context, name string) (store.KPIRecord, error) {
	return s.EnsureWithAttrs(ctx, store.KPIRecord{Name: name, Aggregation: "sum"})
}

// EnsureWithAttrs inserts the KPI with the given unit and aggregation when
// absent. An already registered KPI keeps its definition; the attributes
// only apply on first creation.
func (s *kpiStore) EnsureWithAttrs(ctx context.Context, rec store.KPIRecord) (store.KPIRecord, error) {
	query := `
		INSERT INTO kpis (name, unit, aggregation)
		VALUES (?, ?, ?)
		ON CONFLICT (name) DO NOTHING`

	_, err := s.db.ExecContext(ctx, query, rec.Name, nullable(rec.Unit), rec.Aggregation)
	if err != nil {
		return store.KPIRecord{}, fmt.Errorf("ensure kpi %q: %w", rec.Name, err)
	}

	existing, err := s.GetByName(ctx, rec.Name)
	if err != nil {
		return store.KPIRecord{}, err
	}
	if existing == nil {
		return store.KPIRecord{}, fmt.Errorf("kpi %q missing after ensure", rec.Name)
	}
	return *existing, nil
}

func (s *kpiStore) GetByName(ctx context.Context, name string) (*store.KPIRecord, error) {
	query := `SELECT id, name, COALESCE(unit, ''), aggregation FROM kpis WHERE name = ?`

	var rec store.KPIRecord
	err := s.db.QueryRowContext(ctx, query, name).
		Scan(&rec.ID, &rec.Name, &rec.Unit, &rec.Aggregation)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get kpi %q: %w", name, err)
	}
	return &rec, nil
}

func (s *kpiStore) List(ctx context.Context) ([]store.KPIRecord, error) {
	query := `SELECT id, name, COALESCE(unit, ''), aggregation FROM kpis ORDER BY name`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list kpis: %w", err)
	}
	defer rows.Close()

	var records []store.KPIRecord
	for rows.Next() {
		var rec store.KPIRecord
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.Unit, &rec.Aggregation); err != nil {
			return nil, fmt.Errorf("scan kpi: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
