package narrative

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/op-tools/kpi-atlas/pkg/models/domain"
)

const defaultEndpoint = "https://api.openai.com/v1/chat/completions"

type Config struct {
	APIKey   string
	Model    string
	Endpoint string
	Timeout  time.Duration
}

// Generator renders an AnalysisResult as markdown. The external
// chat-completions call is best-effort: any failure, including timeout,
// falls through to the deterministic template. Summarize never errors.
type Generator struct {
	cfg    Config
	client *http.Client
}

func NewGenerator(cfg Config) *Generator {
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultEndpoint
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Generator{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

func (g *Generator) Summarize(ctx context.Context, result domain.AnalysisResult) domain.Narrative {
	suggestions := buildSuggestions(result)

	if g.cfg.APIKey == "" {
		return domain.Narrative{
			SummaryMD:   fallbackSummary(result),
			Suggestions: suggestions,
			Source:      domain.NarrativeFallback,
		}
	}

	summary, err := g.generate(ctx, result)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("text generation failed, using fallback summary")
		return domain.Narrative{
			SummaryMD:   fallbackSummary(result),
			Suggestions: suggestions,
			Source:      domain.NarrativeFallback,
		}
	}

	return domain.Narrative{
		SummaryMD:   summary,
		Suggestions: suggestions,
		Source:      domain.NarrativeGenerated,
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (g *Generator) generate(ctx context.Context, result domain.AnalysisResult) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	payload, err := json.Marshal(chatRequest{
		Model: g.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: "You produce concise, executive analytics summaries."},
			{Role: "user", Content: buildPrompt(result)},
		},
		Temperature: 0.2,
	})
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("call text service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("text service returned %s", resp.Status)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("chat response has no choices")
	}

	summary := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if summary == "" {
		return "", fmt.Errorf("chat response is empty")
	}
	return summary, nil
}

// buildPrompt keeps the prompt bounded: one line per KPI plus the anomaly
// and trend lists, never raw file content.
func buildPrompt(result domain.AnalysisResult) string {
	var b strings.Builder
	b.WriteString("You are an analytics assistant. Write a crisp markdown summary for a business dashboard.\n\nData:\n")

	for _, c := range result.Comparisons {
		fmt.Fprintf(&b, "- %s: target %.2f, actual %.2f, variance %.2f (%s)\n",
			c.KPI, c.Target, c.Actual, c.Variance, c.Status)
	}
	for _, a := range result.Anomalies {
		fmt.Fprintf(&b, "- anomaly %s: %s\n", a.KPI, a.Note)
	}
	for _, c := range result.Comparisons {
		fmt.Fprintf(&b, "- trend %s: %s\n", c.KPI, result.Trends[c.KPI])
	}
	for _, d := range result.Deltas {
		fmt.Fprintf(&b, "- vs last report %s: %.2f -> %.2f\n", d.KPI, d.Previous, d.Current)
	}

	b.WriteString(`
Instructions:
- Start with a one-line verdict: "On track / Mixed / Off track".
- Then 2-5 bullet points: which KPIs exceeded target and by how much,
  which missed (highest gaps first), anomalies over the threshold, and the trend.
- Keep under 120 words.`)
	return b.String()
}
