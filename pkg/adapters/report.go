package adapters

import (
	"github.com/op-tools/kpi-atlas/pkg/models/api"
	"github.com/op-tools/kpi-atlas/pkg/models/domain"
	"github.com/op-tools/kpi-atlas/pkg/models/store"
)

func MapReportStoreToAPI(rec store.ReportRecord) api.Report {
	out := api.Report{
		ReportID:  rec.ID,
		FileURI:   rec.FileURI,
		Status:    rec.Status,
		CreatedAt: rec.CreatedAt,
	}
	if rec.PeriodStart != nil {
		out.PeriodStart = rec.PeriodStart.Format("2006-01-02")
	}
	if rec.PeriodEnd != nil {
		out.PeriodEnd = rec.PeriodEnd.Format("2006-01-02")
	}
	return out
}

// MapAnalysisToAPI flattens the comparator output plus the narrative into
// the analyze response. Ordering is preserved from the comparator.
func MapAnalysisToAPI(result domain.AnalysisResult, narrative domain.Narrative) api.AnalyzeResponse {
	resp := api.AnalyzeResponse{
		SummaryMD:   narrative.SummaryMD,
		KPITable:    make([]api.KPIRow, 0, len(result.Comparisons)),
		Anomalies:   make([]api.Anomaly, 0, len(result.Anomalies)),
		Trend:       make(map[string]string, len(result.Trends)),
		Suggestions: narrative.Suggestions,
	}
	for _, c := range result.Comparisons {
		resp.KPITable = append(resp.KPITable, api.KPIRow{
			KPI:      c.KPI,
			Target:   c.Target,
			Actual:   c.Actual,
			Variance: c.Variance,
			Status:   string(c.Status),
		})
	}
	for _, a := range result.Anomalies {
		resp.Anomalies = append(resp.Anomalies, api.Anomaly{KPI: a.KPI, Note: a.Note})
	}
	for kpi, trend := range result.Trends {
		resp.Trend[kpi] = string(trend)
	}
	return resp
}
