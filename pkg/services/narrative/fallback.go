package narrative

import (
	"fmt"
	"math"
	"strings"

	"github.com/op-tools/kpi-atlas/pkg/models/domain"
)

// fallbackSummary is the deterministic path: a verdict line, a bullet per
// KPI, and the anomaly/trend lines. Same input, same output, no I/O.
func fallbackSummary(result domain.AnalysisResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "**Verdict: %s**\n", verdict(result))

	for _, c := range result.Comparisons {
		marker := "✅"
		if c.Status == domain.StatusBelow {
			marker = "⚠️"
		}
		fmt.Fprintf(&b, "- %s %s: actual %.2f vs target %.2f (variance %+.2f, trend %s)\n",
			marker, c.KPI, c.Actual, c.Target, c.Variance, result.Trends[c.KPI])
	}

	for _, a := range result.Anomalies {
		fmt.Fprintf(&b, "- 🔍 %s: %s\n", a.KPI, a.Note)
	}

	for _, d := range result.Deltas {
		change := d.Current - d.Previous
		fmt.Fprintf(&b, "- ↔️ %s: %+.2f vs last report\n", d.KPI, change)
	}

	if len(result.Comparisons) == 0 {
		b.WriteString("No KPI comparisons were available for this period.\n")
	}

	return b.String()
}

// verdict is "on track" when no KPI misses its target by more than the
// anomaly margin, "off track" when every KPI does, "mixed" otherwise.
func verdict(result domain.AnalysisResult) string {
	if len(result.Comparisons) == 0 {
		return "on track"
	}

	badMisses := 0
	anomalous := make(map[string]bool, len(result.Anomalies))
	for _, a := range result.Anomalies {
		anomalous[a.KPI] = true
	}
	for _, c := range result.Comparisons {
		if c.Status == domain.StatusBelow && anomalous[c.KPI] {
			badMisses++
		}
	}

	switch {
	case badMisses == 0:
		return "on track"
	case badMisses == len(result.Comparisons):
		return "off track"
	default:
		return "mixed"
	}
}

// buildSuggestions returns 1-5 suggestion strings parameterized by the
// worst-performing KPI (largest miss relative to its target).
func buildSuggestions(result domain.AnalysisResult) []string {
	worst, found := worstPerformer(result)
	if !found {
		return []string{
			"Maintain current execution; every tracked KPI is at or above target.",
			"Review goal targets for the next period to keep them ambitious.",
			"Consider adding KPIs for areas not yet covered by goals.",
		}
	}

	gap := math.Abs(worst.Variance)
	suggestions := []string{
		fmt.Sprintf("Prioritize recovery actions for %s, the largest gap to target this period (%.2f short).", worst.KPI, gap),
		fmt.Sprintf("Review the assumptions behind the %s target; confirm it is still realistic for the period.", worst.KPI),
		fmt.Sprintf("Break the %s shortfall down by week to find when the slippage started.", worst.KPI),
	}
	if result.Trends[worst.KPI] == domain.TrendDown {
		suggestions = append(suggestions,
			fmt.Sprintf("%s is also trending down versus the previous report; escalate before the next cycle.", worst.KPI))
	}
	if len(result.Anomalies) > 1 {
		suggestions = append(suggestions,
			fmt.Sprintf("%d KPIs breached the variance threshold; schedule a goal review across the board.", len(result.Anomalies)))
	}
	return suggestions
}

func worstPerformer(result domain.AnalysisResult) (domain.Comparison, bool) {
	var worst domain.Comparison
	found := false
	worstRatio := 0.0

	for _, c := range result.Comparisons {
		if c.Status != domain.StatusBelow {
			continue
		}
		ratio := math.Abs(c.Variance)
		if c.Target != 0 {
			ratio = math.Abs(c.Variance) / math.Abs(c.Target)
		}
		if !found || ratio > worstRatio {
			worst = c
			worstRatio = ratio
			found = true
		}
	}
	return worst, found
}
