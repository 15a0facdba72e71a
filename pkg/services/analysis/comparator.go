package analysis

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/op-tools/kpi-atlas/pkg/models/domain"
	"github.com/op-tools/kpi-atlas/pkg/models/store"
)

// MetricSource is the slice of the report store the comparator reads.
type MetricSource interface {
	Get(ctx context.Context, id string) (*store.ReportRecord, error)
	Metrics(ctx context.Context, reportID string) ([]store.MetricValue, error)
	PriorKPIValues(ctx context.Context, kpiID int64, reportID string, createdAt time.Time) ([]float64, error)
}

// GoalSource provides the goals overlapping a report's date range.
type GoalSource interface {
	FindOverlapping(ctx context.Context, periodType string, start, end time.Time) ([]store.GoalRecord, error)
}

// Comparator computes target vs actual for one report against the goals of
// a period. It is a pure function of store state: unchanged state yields
// identical output, with all collections ordered by KPI name.
type Comparator struct {
	reports MetricSource
	goals   GoalSource
	cfg     domain.AnalyzerConfig
}

func NewComparator(reports MetricSource, goals GoalSource, cfg domain.AnalyzerConfig) *Comparator {
	return &Comparator{reports: reports, goals: goals, cfg: cfg}
}

type kpiActual struct {
	id     int64
	actual float64
}

func (c *Comparator) Compare(
	ctx context.Context,
	reportID string,
	period domain.PeriodType,
) (domain.AnalysisResult, error) {
	rep, err := c.reports.Get(ctx, reportID)
	if err != nil {
		return domain.AnalysisResult{}, err
	}
	if rep == nil {
		return domain.AnalysisResult{}, fmt.Errorf("%w: %s", domain.ErrReportNotFound, reportID)
	}

	metrics, err := c.reports.Metrics(ctx, reportID)
	if err != nil {
		return domain.AnalysisResult{}, err
	}
	actuals := aggregate(metrics)

	start, end := reportPeriod(rep)
	goals, err := c.goals.FindOverlapping(ctx, string(period), start, end)
	if err != nil {
		return domain.AnalysisResult{}, err
	}

	targets := make(map[string]float64)
	for _, g := range goals {
		if _, present := actuals[g.KPIName]; present {
			targets[g.KPIName] = g.TargetValue
		}
	}
	if len(targets) == 0 {
		return domain.AnalysisResult{}, fmt.Errorf("%w: period %s", domain.ErrNoGoals, period)
	}

	names := make([]string, 0, len(targets))
	for name := range targets {
		names = append(names, name)
	}
	sort.Strings(names)

	result := domain.AnalysisResult{
		ReportID:   reportID,
		GoalPeriod: period,
		Trends:     make(map[string]domain.TrendDirection, len(names)),
	}

	for _, name := range names {
		target := targets[name]
		kpi := actuals[name]

		variance := kpi.actual - target
		status := domain.StatusAbove
		if variance < 0 {
			status = domain.StatusBelow
		}
		result.Comparisons = append(result.Comparisons, domain.Comparison{
			KPI:      name,
			Target:   target,
			Actual:   kpi.actual,
			Variance: variance,
			Status:   status,
		})

		if anomalous(kpi.actual, target, variance, c.cfg.AnomalyThreshold) {
			result.Anomalies = append(result.Anomalies, domain.Anomaly{
				KPI: name,
				Note: fmt.Sprintf("Variance %.2f exceeds %.0f%% of target %.2f",
					variance, c.cfg.AnomalyThreshold*100, target),
			})
		}

		trend, delta, err := c.trend(ctx, rep, name, kpi, metrics)
		if err != nil {
			return domain.AnalysisResult{}, err
		}
		result.Trends[name] = trend
		if delta != nil {
			result.Deltas = append(result.Deltas, *delta)
		}
	}

	return result, nil
}

// aggregate rolls daily values up per KPI using its declared aggregation.
// Dates with no recorded value never reach storage, so avg naturally
// ignores them.
func aggregate(metrics []store.MetricValue) map[string]kpiActual {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	ids := make(map[string]int64)
	methods := make(map[string]string)

	for _, m := range metrics {
		sums[m.KPIName] += m.Value
		counts[m.KPIName]++
		ids[m.KPIName] = m.KPIID
		methods[m.KPIName] = m.Aggregation
	}

	actuals := make(map[string]kpiActual, len(sums))
	for name, sum := range sums {
		v := sum
		if methods[name] == string(domain.AggregationAvg) {
			v = sum / float64(counts[name])
		}
		actuals[name] = kpiActual{id: ids[name], actual: v}
	}
	return actuals
}

// anomalous applies the variance threshold; a zero target flags any
// non-zero actual.
func anomalous(actual, target, variance, threshold float64) bool {
	if target == 0 {
		return actual != 0
	}
	return math.Abs(variance) > threshold*math.Abs(target)
}

// trend compares the KPI's aggregated actual against the most recent prior
// report that recorded it. Equal values or no prior report read as flat.
func (c *Comparator) trend(
	ctx context.Context,
	rep *store.ReportRecord,
	name string,
	kpi kpiActual,
	metrics []store.MetricValue,
) (domain.TrendDirection, *domain.Delta, error) {
	prior, err := c.reports.PriorKPIValues(ctx, kpi.id, rep.ID, rep.CreatedAt)
	if err != nil {
		return "", nil, err
	}
	if len(prior) == 0 {
		return domain.TrendFlat, nil, nil
	}

	method := aggregationFor(metrics, name)
	var prev float64
	for _, v := range prior {
		prev += v
	}
	if method == string(domain.AggregationAvg) {
		prev /= float64(len(prior))
	}

	delta := &domain.Delta{KPI: name, Previous: prev, Current: kpi.actual}
	switch {
	case kpi.actual > prev:
		return domain.TrendUp, delta, nil
	case kpi.actual < prev:
		return domain.TrendDown, delta, nil
	default:
		return domain.TrendFlat, delta, nil
	}
}

func aggregationFor(metrics []store.MetricValue, name string) string {
	for _, m := range metrics {
		if m.KPIName == name {
			return m.Aggregation
		}
	}
	return string(domain.AggregationSum)
}

func reportPeriod(rep *store.ReportRecord) (time.Time, time.Time) {
	start, end := rep.CreatedAt, rep.CreatedAt
	if rep.PeriodStart != nil {
		start = *rep.PeriodStart
	}
	if rep.PeriodEnd != nil {
		end = *rep.PeriodEnd
	}
	return start, end
}
