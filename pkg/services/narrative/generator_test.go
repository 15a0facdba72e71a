package narrative

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/op-tools/kpi-atlas/pkg/models/domain"
)

func sampleResult() domain.AnalysisResult {
	return domain.AnalysisResult{
		ReportID:   "r1",
		GoalPeriod: domain.PeriodMonthly,
		Comparisons: []domain.Comparison{
			{KPI: "Expenses", Target: 40000, Actual: 23000, Variance: -17000, Status: domain.StatusBelow},
			{KPI: "Revenue", Target: 1500000, Actual: 102000, Variance: -1398000, Status: domain.StatusBelow},
		},
		Anomalies: []domain.Anomaly{
			{KPI: "Revenue", Note: "Variance -1398000.00 exceeds 20% of target 1500000.00"},
		},
		Trends: map[string]domain.TrendDirection{
			"Expenses": domain.TrendFlat,
			"Revenue":  domain.TrendDown,
		},
		Deltas: []domain.Delta{
			{KPI: "Revenue", Previous: 150000, Current: 102000},
		},
	}
}

func TestSummarize_FallbackWithoutAPIKey(t *testing.T) {
	g := NewGenerator(Config{})

	n := g.Summarize(context.Background(), sampleResult())

	assert.Equal(t, domain.NarrativeFallback, n.Source)
	assert.Contains(t, n.SummaryMD, "**Verdict: mixed**")
	assert.Contains(t, n.SummaryMD, "Revenue")
	assert.Contains(t, n.SummaryMD, "Expenses")
	require.NotEmpty(t, n.Suggestions)
	assert.LessOrEqual(t, len(n.Suggestions), 5)
}

func TestSummarize_FallbackIsDeterministic(t *testing.T) {
	g := NewGenerator(Config{})
	ctx := context.Background()

	first := g.Summarize(ctx, sampleResult())
	second := g.Summarize(ctx, sampleResult())

	assert.Equal(t, first, second)
}

func TestSummarize_EmptyResultStillProducesOutput(t *testing.T) {
	g := NewGenerator(Config{})

	n := g.Summarize(context.Background(), domain.AnalysisResult{})

	assert.Equal(t, domain.NarrativeFallback, n.Source)
	assert.NotEmpty(t, n.SummaryMD)
	assert.Contains(t, n.SummaryMD, "on track")
	assert.NotEmpty(t, n.Suggestions)
}

func TestSummarize_GeneratedPath(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 2)
		assert.Contains(t, req.Messages[1].Content, "Revenue: target 1500000.00")

		json.NewEncoder(w).Encode(chatResponse{Choices: []struct {
			Message chatMessage `json:"message"`
		}{{Message: chatMessage{Role: "assistant", Content: "Off track: revenue missed badly."}}}})
	}))
	defer srv.Close()

	g := NewGenerator(Config{APIKey: "test-key", Endpoint: srv.URL})
	n := g.Summarize(context.Background(), sampleResult())

	assert.Equal(t, domain.NarrativeGenerated, n.Source)
	assert.Equal(t, "Off track: revenue missed badly.", n.SummaryMD)
	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.NotEmpty(t, n.Suggestions, "suggestions stay deterministic on the generated path")
}

func TestSummarize_FallbackOnServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "overloaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	g := NewGenerator(Config{APIKey: "test-key", Endpoint: srv.URL})
	n := g.Summarize(context.Background(), sampleResult())

	assert.Equal(t, domain.NarrativeFallback, n.Source)
	assert.Contains(t, n.SummaryMD, "**Verdict:")
}

func TestSummarize_FallbackOnTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	g := NewGenerator(Config{APIKey: "test-key", Endpoint: srv.URL, Timeout: 50 * time.Millisecond})
	n := g.Summarize(context.Background(), sampleResult())

	assert.Equal(t, domain.NarrativeFallback, n.Source)
}

func TestSummarize_FallbackOnEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	g := NewGenerator(Config{APIKey: "test-key", Endpoint: srv.URL})
	n := g.Summarize(context.Background(), sampleResult())

	assert.Equal(t, domain.NarrativeFallback, n.Source)
}

func TestBuildSuggestions(t *testing.T) {
	t.Run("everything at or above target", func(t *testing.T) {
		result := domain.AnalysisResult{Comparisons: []domain.Comparison{
			{KPI: "Revenue", Target: 100, Actual: 120, Variance: 20, Status: domain.StatusAbove},
		}}

		got := buildSuggestions(result)
		require.Len(t, got, 3)
		assert.Contains(t, got[0], "Maintain current execution")
	})

	t.Run("worst performer drives the suggestions", func(t *testing.T) {
		result := domain.AnalysisResult{
			Comparisons: []domain.Comparison{
				// 10% miss vs 50% miss: Leads is worse relative to target.
				{KPI: "Revenue", Target: 1000, Actual: 900, Variance: -100, Status: domain.StatusBelow},
				{KPI: "Leads Generated", Target: 100, Actual: 50, Variance: -50, Status: domain.StatusBelow},
			},
			Trends: map[string]domain.TrendDirection{"Leads Generated": domain.TrendDown},
		}

		got := buildSuggestions(result)
		require.NotEmpty(t, got)
		assert.Contains(t, got[0], "Leads Generated")
		assert.LessOrEqual(t, len(got), 5)
	})
}

func TestVerdict(t *testing.T) {
	below := domain.Comparison{KPI: "A", Status: domain.StatusBelow}
	above := domain.Comparison{KPI: "B", Status: domain.StatusAbove}
	anomalyA := domain.Anomaly{KPI: "A"}

	t.Run("no bad misses", func(t *testing.T) {
		r := domain.AnalysisResult{Comparisons: []domain.Comparison{above}}
		assert.Equal(t, "on track", verdict(r))
	})

	t.Run("below without anomaly is still on track", func(t *testing.T) {
		r := domain.AnalysisResult{Comparisons: []domain.Comparison{below}}
		assert.Equal(t, "on track", verdict(r))
	})

	t.Run("every kpi badly missed", func(t *testing.T) {
		r := domain.AnalysisResult{
			Comparisons: []domain.Comparison{below},
			Anomalies:   []domain.Anomaly{anomalyA},
		}
		assert.Equal(t, "off track", verdict(r))
	})

	t.Run("partial misses are mixed", func(t *testing.T) {
		r := domain.AnalysisResult{
			Comparisons: []domain.Comparison{below, above},
			Anomalies:   []domain.Anomaly{anomalyA},
		}
		assert.Equal(t, "mixed", verdict(r))
	})
}
