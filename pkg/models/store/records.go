package store

import "time"

type KPIRecord struct {
	ID          int64
	Name        string
	Unit        string
	Aggregation string
}

type GoalRecord struct {
	ID          int64
	KPIID       int64
	KPIName     string
	PeriodType  string
	PeriodStart time.Time
	PeriodEnd   time.Time
	TargetValue float64
}

type ReportRecord struct {
	ID          string
	FileURI     string
	PeriodStart *time.Time
	PeriodEnd   *time.Time
	Status      string
	CreatedAt   time.Time
}

type MetricRecord struct {
	ReportID string
	KPIID    int64
	Date     time.Time
	Value    float64
}

// MetricValue is a report metric joined with its KPI, the shape the
// comparator consumes.
type MetricValue struct {
	KPIID       int64
	KPIName     string
	Aggregation string
	Date        time.Time
	Value       float64
}

type AnalysisRecord struct {
	ID          int64
	ReportID    string
	GoalPeriod  string
	SummaryMD   string
	Comparisons []byte // JSON
	CreatedAt   time.Time
}
