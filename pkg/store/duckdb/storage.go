package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"

	"github.com/marcboeker/go-duckdb/v2"
)

const KPISchema = `
	CREATE SEQUENCE IF NOT EXISTS kpi_id_seq;
	CREATE TABLE IF NOT EXISTS kpis (
		id BIGINT PRIMARY KEY DEFAULT nextval('kpi_id_seq'),
		name VARCHAR NOT NULL UNIQUE,
		unit VARCHAR,
		aggregation VARCHAR NOT NULL DEFAULT 'sum'
	);
`

const GoalSchema = `
	CREATE SEQUENCE IF NOT EXISTS goal_id_seq;
	CREATE TABLE IF NOT EXISTS goals (
		id BIGINT PRIMARY KEY DEFAULT nextval('goal_id_seq'),
		kpi_id BIGINT NOT NULL,
		period_type VARCHAR NOT NULL,
		period_start DATE NOT NULL,
		period_end DATE NOT NULL,
		target_value DOUBLE NOT NULL,
		UNIQUE (kpi_id, period_type, period_start, period_end)
	);
`

const ReportSchema = `
	CREATE TABLE IF NOT EXISTS reports (
		id VARCHAR PRIMARY KEY,
		file_uri VARCHAR NOT NULL,
		period_start DATE,
		period_end DATE,
		status VARCHAR NOT NULL DEFAULT 'uploaded',
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
`

const ReportMetricSchema = `
	CREATE TABLE IF NOT EXISTS report_metrics (
		report_id VARCHAR NOT NULL,
		kpi_id BIGINT NOT NULL,
		date DATE NOT NULL,
		value DOUBLE NOT NULL,
		PRIMARY KEY (report_id, kpi_id, date)
	);
`

const AnalysisSchema = `
	CREATE SEQUENCE IF NOT EXISTS analysis_id_seq;
	CREATE TABLE IF NOT EXISTS analyses (
		id BIGINT PRIMARY KEY DEFAULT nextval('analysis_id_seq'),
		report_id VARCHAR NOT NULL,
		goal_period VARCHAR NOT NULL,
		summary_md VARCHAR,
		comparisons JSON,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
`

var bootQueries = []string{
	KPISchema,
	GoalSchema,
	ReportSchema,
	ReportMetricSchema,
	AnalysisSchema,
}

type Settings struct {
	DbPath string
}

func NewDB(settings Settings) (*sql.DB, error) {
	c, err := duckdb.NewConnector(fmt.Sprintf("%s?threads=4", settings.DbPath), func(exec driver.ExecerContext) error {
		for _, query := range bootQueries {
			_, err := exec.ExecContext(context.Background(), query, nil)
			if err != nil {
				return err
			}
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	db := sql.OpenDB(c)
	return db, nil
}
