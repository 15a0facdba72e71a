package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/op-tools/kpi-atlas/pkg/models/domain"
	storemodels "github.com/op-tools/kpi-atlas/pkg/models/store"
	"github.com/op-tools/kpi-atlas/pkg/services/mapping"
	"github.com/op-tools/kpi-atlas/pkg/services/parse"
	"github.com/op-tools/kpi-atlas/pkg/store/blob"
	"github.com/op-tools/kpi-atlas/pkg/store/duckdb"
	"github.com/op-tools/kpi-atlas/pkg/store/duckdb/report"
)

// Ingestor runs the upload pipeline: store the raw blob, parse it, map
// columns to KPIs, aggregate per date, and write the metric rows plus the
// report period in one transaction.
type Ingestor struct {
	parser  *parse.Parser
	mapper  *mapping.Mapper
	blobs   blob.Store
	db      *sql.DB
	reports report.Store
}

func NewIngestor(
	parser *parse.Parser,
	mapper *mapping.Mapper,
	blobs blob.Store,
	db *sql.DB,
	reports report.Store,
) *Ingestor {
	return &Ingestor{
		parser:  parser,
		mapper:  mapper,
		blobs:   blobs,
		db:      db,
		reports: reports,
	}
}

func (i *Ingestor) Upload(ctx context.Context, filename string, data []byte) (domain.Report, error) {
	logger := zerolog.Ctx(ctx)

	if !parse.Supported(filename) {
		return domain.Report{}, fmt.Errorf("%w: %q",
			domain.ErrUnsupportedFormat, filepath.Ext(filename))
	}

	reportID := uuid.NewString()
	key := reportID + strings.ToLower(filepath.Ext(filename))

	uri, err := i.blobs.Put(ctx, key, data)
	if err != nil {
		return domain.Report{}, fmt.Errorf("store upload: %w", err)
	}

	rec := storemodels.ReportRecord{
		ID:      reportID,
		FileURI: uri,
		Status:  string(domain.ReportUploaded),
	}
	if err := i.reports.Create(ctx, rec); err != nil {
		return domain.Report{}, err
	}

	rows, err := i.parser.Parse(ctx, filename, data)
	if err != nil {
		if statusErr := i.reports.SetStatus(ctx, reportID, string(domain.ReportFailed)); statusErr != nil {
			logger.Error().Err(statusErr).Str("report_id", reportID).Msg("failed to mark report failed")
		}
		return domain.Report{}, err
	}

	metrics, start, end, err := i.collectMetrics(ctx, reportID, rows)
	if err != nil {
		if statusErr := i.reports.SetStatus(ctx, reportID, string(domain.ReportFailed)); statusErr != nil {
			logger.Error().Err(statusErr).Str("report_id", reportID).Msg("failed to mark report failed")
		}
		return domain.Report{}, err
	}

	if err := i.persist(ctx, reportID, metrics, start, end); err != nil {
		if statusErr := i.reports.SetStatus(ctx, reportID, string(domain.ReportFailed)); statusErr != nil {
			logger.Error().Err(statusErr).Str("report_id", reportID).Msg("failed to mark report failed")
		}
		return domain.Report{}, err
	}

	logger.Info().
		Str("report_id", reportID).
		Int("metrics", len(metrics)).
		Time("period_start", start).
		Time("period_end", end).
		Msg("report ingested")

	return domain.Report{
		ID:          reportID,
		FileURI:     uri,
		PeriodStart: start,
		PeriodEnd:   end,
		Status:      domain.ReportParsed,
	}, nil
}

// collectMetrics maps headers to KPIs and combines duplicate (kpi, date)
// cells by summing them, so one row per KPI per date reaches storage.
func (i *Ingestor) collectMetrics(
	ctx context.Context,
	reportID string,
	rows []parse.Row,
) ([]storemodels.MetricRecord, time.Time, time.Time, error) {
	type cell struct {
		kpiID int64
		date  time.Time
	}

	kpiIDs := make(map[string]int64)
	totals := make(map[cell]float64)
	var start, end time.Time

	for _, row := range rows {
		if start.IsZero() || row.Date.Before(start) {
			start = row.Date
		}
		if end.IsZero() || row.Date.After(end) {
			end = row.Date
		}
		for header, value := range row.Values {
			name := i.mapper.Resolve(header)
			id, ok := kpiIDs[name]
			if !ok {
				rec, err := i.mapper.ResolveAndRegister(ctx, header)
				if err != nil {
					return nil, time.Time{}, time.Time{}, err
				}
				id = rec.ID
				kpiIDs[name] = id
			}
			totals[cell{kpiID: id, date: row.Date}] += value
		}
	}

	metrics := make([]storemodels.MetricRecord, 0, len(totals))
	for c, v := range totals {
		metrics = append(metrics, storemodels.MetricRecord{
			ReportID: reportID,
			KPIID:    c.kpiID,
			Date:     c.date,
			Value:    v,
		})
	}
	sort.Slice(metrics, func(a, b int) bool {
		if metrics[a].KPIID != metrics[b].KPIID {
			return metrics[a].KPIID < metrics[b].KPIID
		}
		return metrics[a].Date.Before(metrics[b].Date)
	})
	return metrics, start, end, nil
}

func (i *Ingestor) persist(
	ctx context.Context,
	reportID string,
	metrics []storemodels.MetricRecord,
	start, end time.Time,
) error {
	tx, err := i.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin ingest transaction: %w", err)
	}

	txCtx := duckdb.WithTransaction(ctx, tx)
	if err := i.reports.AddMetrics(txCtx, metrics); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := i.reports.Finalize(txCtx, reportID, string(domain.ReportParsed), start, end); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit ingest transaction: %w", err)
	}
	return nil
}
