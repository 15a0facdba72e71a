package domain

import "time"

type ReportStatus string

const (
	ReportUploaded ReportStatus = "uploaded"
	ReportParsed   ReportStatus = "parsed"
	ReportFailed   ReportStatus = "failed"
)

// Report is one uploaded file's parsed, stored metric data. The period
// is derived from the parsed dates and is zero until parsing succeeds.
type Report struct {
	ID          string
	FileURI     string
	PeriodStart time.Time
	PeriodEnd   time.Time
	Status      ReportStatus
	CreatedAt   time.Time
}

// ReportMetric holds the aggregated value for one KPI on one date.
// Multiple raw rows for the same date are combined before storage.
type ReportMetric struct {
	ReportID string
	KPIID    int64
	Date     time.Time
	Value    float64
}
