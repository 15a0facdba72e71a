package domain

import "time"

// Aggregation determines how a KPI's daily values are rolled up
// over a report's date range.
type Aggregation string

const (
	AggregationSum Aggregation = "sum"
	AggregationAvg Aggregation = "avg"
)

func ParseAggregation(s string) (Aggregation, bool) {
	switch Aggregation(s) {
	case AggregationSum, AggregationAvg:
		return Aggregation(s), true
	case "":
		return AggregationSum, true
	}
	return "", false
}

// KPI is a named metric. Names are globally unique; KPIs are created
// explicitly via the API or implicitly the first time a column maps to them.
type KPI struct {
	ID          int64
	Name        string
	Unit        string
	Aggregation Aggregation
}

type PeriodType string

const (
	PeriodMonthly   PeriodType = "monthly"
	PeriodQuarterly PeriodType = "quarterly"
)

func ParsePeriodType(s string) (PeriodType, bool) {
	switch PeriodType(s) {
	case PeriodMonthly, PeriodQuarterly:
		return PeriodType(s), true
	}
	return "", false
}

// Goal is a target value for one KPI over a caller-supplied period.
// Period boundaries are not validated against calendar months/quarters.
type Goal struct {
	ID          int64
	KPIID       int64
	KPIName     string
	PeriodType  PeriodType
	PeriodStart time.Time
	PeriodEnd   time.Time
	TargetValue float64
}
