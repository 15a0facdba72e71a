package report

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/op-tools/kpi-atlas/pkg/models/store"
	"github.com/op-tools/kpi-atlas/pkg/store/duckdb"
)

// Store persists reports, their per-date metric rows, and saved analyses.
// AddMetrics and Finalize honor a transaction placed in the context so the
// ingest pipeline can commit both atomically.
type Store interface {
	Create(ctx context.Context, rec store.ReportRecord) error
	Finalize(ctx context.Context, id string, status string, periodStart, periodEnd time.Time) error
	SetStatus(ctx context.Context, id string, status string) error
	Get(ctx context.Context, id string) (*store.ReportRecord, error)
	List(ctx context.Context) ([]store.ReportRecord, error)

	AddMetrics(ctx context.Context, metrics []store.MetricRecord) error
	Metrics(ctx context.Context, reportID string) ([]store.MetricValue, error)

	// PriorKPIValues returns the daily values a KPI had in the most recently
	// created report before createdAt, excluding reportID. Empty when no
	// prior report recorded the KPI.
	PriorKPIValues(ctx context.Context, kpiID int64, reportID string, createdAt time.Time) ([]float64, error)

	SaveAnalysis(ctx context.Context, rec store.AnalysisRecord) (int64, error)
}

type reportStore struct {
	db *sql.DB
}

func NewStore(db *sql.DB) (Store, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	return &reportStore{db: db}, nil
}

func (s *reportStore) Create(ctx context.Context, rec store.ReportRecord) error {
	query := `INSERT INTO reports (id, file_uri, status) VALUES (?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query, rec.ID, rec.FileURI, rec.Status)
	if err != nil {
		return fmt.Errorf("insert report %s: %w", rec.ID, err)
	}
	return nil
}

func (s *reportStore) Finalize(
	ctx context.Context,
	id string,
	status string,
	periodStart, periodEnd time.Time,
) error {
	query := `UPDATE reports SET status = ?, period_start = ?, period_end = ? WHERE id = ?`

	var err error
	if tx := duckdb.GetTransaction(ctx); tx != nil {
		_, err = tx.ExecContext(ctx, query, status, periodStart, periodEnd, id)
	} else {
		_, err = s.db.ExecContext(ctx, query, status, periodStart, periodEnd, id)
	}
	if err != nil {
		return fmt.Errorf("finalize report %s: %w", id, err)
	}
	return nil
}

func (s *reportStore) SetStatus(ctx context.Context, id string, status string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE reports SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("set report %s status: %w", id, err)
	}
	return nil
}

func (s *reportStore) Get(ctx context.Context, id string) (*store.ReportRecord, error) {
	query := `SELECT id, file_uri, period_start, period_end, status, created_at FROM reports WHERE id = ?`

	var rec store.ReportRecord
	err := s.db.QueryRowContext(ctx, query, id).
		Scan(&rec.ID, &rec.FileURI, &rec.PeriodStart, &rec.PeriodEnd, &rec.Status, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get report %s: %w", id, err)
	}
	return &rec, nil
}

func (s *reportStore) List(ctx context.Context) ([]store.ReportRecord, error) {
	query := `
		SELECT id, file_uri, period_start, period_end, status, created_at
		FROM reports
		ORDER BY created_at DESC, id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	var records []store.ReportRecord
	for rows.Next() {
		var rec store.ReportRecord
		err := rows.Scan(&rec.ID, &rec.FileURI, &rec.PeriodStart, &rec.PeriodEnd, &rec.Status, &rec.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *reportStore) AddMetrics(ctx context.Context, metrics []store.MetricRecord) error {
	if len(metrics) == 0 {
		return nil
	}

	query := `INSERT INTO report_metrics (report_id, kpi_id, date, value) VALUES (?, ?, ?, ?)`

	var stmt *sql.Stmt
	var err error
	if tx := duckdb.GetTransaction(ctx); tx != nil {
		stmt, err = tx.PrepareContext(ctx, query)
	} else {
		stmt, err = s.db.PrepareContext(ctx, query)
	}
	if err != nil {
		return fmt.Errorf("prepare metric insert: %w", err)
	}
	defer stmt.Close()

	for _, m := range metrics {
		if _, err := stmt.ExecContext(ctx, m.ReportID, m.KPIID, m.Date, m.Value); err != nil {
			return fmt.Errorf("insert metric (%s, %d, %s): %w",
				m.ReportID, m.KPIID, m.Date.Format("2006-01-02"), err)
		}
	}
	return nil
}

func (s *reportStore) Metrics(ctx context.Context, reportID string) ([]store.MetricValue, error) {
	query := `
		SELECT m.kpi_id, k.name, k.aggregation, m.date, m.value
		FROM report_metrics m
		JOIN kpis k ON k.id = m.kpi_id
		WHERE m.report_id = ?
		ORDER BY k.name, m.date`

	rows, err := s.db.QueryContext(ctx, query, reportID)
	if err != nil {
		return nil, fmt.Errorf("query report metrics: %w", err)
	}
	defer rows.Close()

	var values []store.MetricValue
	for rows.Next() {
		var v store.MetricValue
		if err := rows.Scan(&v.KPIID, &v.KPIName, &v.Aggregation, &v.Date, &v.Value); err != nil {
			return nil, fmt.Errorf("scan metric: %w", err)
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

func (s *reportStore) PriorKPIValues(
	ctx context.Context,
	kpiID int64,
	reportID string,
	createdAt time.Time,
) ([]float64, error) {
	query := `
		SELECT m.value
		FROM report_metrics m
		WHERE m.kpi_id = ? AND m.report_id = (
			SELECT r.id
			FROM reports r
			JOIN report_metrics pm ON pm.report_id = r.id AND pm.kpi_id = ?
			WHERE r.id <> ? AND r.created_at < ?
			ORDER BY r.created_at DESC, r.id
			LIMIT 1
		)
		ORDER BY m.date`

	rows, err := s.db.QueryContext(ctx, query, kpiID, kpiID, reportID, createdAt)
	if err != nil {
		return nil, fmt.Errorf("query prior values for kpi %d: %w", kpiID, err)
	}
	defer rows.Close()

	var values []float64
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan prior value: %w", err)
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

func (s *reportStore) SaveAnalysis(ctx context.Context, rec store.AnalysisRecord) (int64, error) {
	query := `
		INSERT INTO analyses (report_id, goal_period, summary_md, comparisons)
		VALUES (?, ?, ?, ?)
		RETURNING id`

	var id int64
	err := s.db.QueryRowContext(ctx, query,
		rec.ReportID, rec.GoalPeriod, rec.SummaryMD, string(rec.Comparisons)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert analysis for report %s: %w", rec.ReportID, err)
	}
	return id, nil
}
