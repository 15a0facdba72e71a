package domain

import "time"

type ComparisonStatus string

const (
	StatusAbove ComparisonStatus = "above"
	StatusBelow ComparisonStatus = "below"
)

type TrendDirection string

const (
	TrendUp   TrendDirection = "up"
	TrendDown TrendDirection = "down"
	TrendFlat TrendDirection = "flat"
)

// Comparison is one KPI's target vs actual for a goal period.
type Comparison struct {
	KPI      string
	Target   float64
	Actual   float64
	Variance float64
	Status   ComparisonStatus
}

type Anomaly struct {
	KPI  string
	Note string
}

// Delta is the change of a KPI's aggregated actual against the most
// recent prior report that recorded the same KPI.
type Delta struct {
	KPI      string
	Previous float64
	Current  float64
}

// AnalysisResult is the comparator output. Comparisons, Anomalies and
// Deltas are ordered by KPI name so repeated runs over unchanged state
// produce identical output.
type AnalysisResult struct {
	ReportID    string
	GoalPeriod  PeriodType
	Comparisons []Comparison
	Anomalies   []Anomaly
	Trends      map[string]TrendDirection
	Deltas      []Delta
}

type NarrativeSource string

const (
	NarrativeGenerated NarrativeSource = "generated"
	NarrativeFallback  NarrativeSource = "fallback"
)

// Narrative is the human-readable rendering of an AnalysisResult.
// Source records whether the external text service produced the summary
// or the deterministic template did.
type Narrative struct {
	SummaryMD   string
	Suggestions []string
	Source      NarrativeSource
}

// Analysis is a persisted analyze call. Derived data; recomputable
// from report and goal state.
type Analysis struct {
	ID         int64
	ReportID   string
	GoalPeriod PeriodType
	SummaryMD  string
	CreatedAt  time.Time
}
