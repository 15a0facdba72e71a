package api

import "time"

type UploadResponse struct {
	ReportID string `json:"report_id"`
	Status   string `json:"status"`
}

type Report struct {
	ReportID    string    `json:"report_id"`
	FileURI     string    `json:"file_uri"`
	PeriodStart string    `json:"period_start,omitempty"`
	PeriodEnd   string    `json:"period_end,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

type AnalyzeRequest struct {
	ReportID   string `json:"report_id"`
	GoalPeriod string `json:"goal_period"`
}

type KPIRow struct {
	KPI      string  `json:"kpi"`
	Target   float64 `json:"target"`
	Actual   float64 `json:"actual"`
	Variance float64 `json:"variance"`
	Status   string  `json:"status"`
}

type Anomaly struct {
	KPI  string `json:"kpi"`
	Note string `json:"note"`
}

type AnalyzeResponse struct {
	SummaryMD   string            `json:"summary_md"`
	KPITable    []KPIRow          `json:"kpi_table"`
	Anomalies   []Anomaly         `json:"anomalies"`
	Trend       map[string]string `json:"trend"`
	Suggestions []string          `json:"suggestions"`
}

type Error struct {
	Error string `json:"error"`
}
