package parse

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"rsc.io/pdf"
)

// parsePDF best-effort extracts "Name: value" lines from the document text.
// PDFs carry no date column, so all extracted values land on today's date;
// repeated names are summed. Lines that don't fit the shape are ignored.
func (p *Parser) parsePDF(ctx context.Context, data []byte) ([]Row, error) {
	logger := zerolog.Ctx(ctx)

	doc, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	var lines []string
	for i := 1; i <= doc.NumPage(); i++ {
		page := doc.Page(i)
		if page.V.IsNull() {
			logger.Warn().Int("page", i).Msg("skipping null pdf page")
			continue
		}
		lines = append(lines, pageLines(page.Content())...)
	}

	values := extractKeyValues(lines)
	if len(values) == 0 {
		return nil, nil
	}

	today := p.now().UTC().Truncate(24 * time.Hour)
	return []Row{{Date: today, Values: values}}, nil
}

// pageLines reassembles positioned text fragments into lines by grouping
// on the vertical coordinate.
func pageLines(content pdf.Content) []string {
	byY := make(map[int][]pdf.Text)
	for _, t := range content.Text {
		if strings.TrimSpace(t.S) == "" {
			continue
		}
		y := int(math.Round(t.Y))
		byY[y] = append(byY[y], t)
	}

	ys := make([]int, 0, len(byY))
	for y := range byY {
		ys = append(ys, y)
	}
	// PDF origin is bottom-left; higher Y comes first on the page.
	sort.Sort(sort.Reverse(sort.IntSlice(ys)))

	lines := make([]string, 0, len(ys))
	for _, y := range ys {
		frags := byY[y]
		sort.Slice(frags, func(i, j int) bool { return frags[i].X < frags[j].X })
		parts := make([]string, len(frags))
		for i, f := range frags {
			parts[i] = f.S
		}
		lines = append(lines, strings.Join(parts, " "))
	}
	return lines
}

// extractKeyValues pulls "Name: 1234" pairs out of text lines, summing
// values for repeated names.
func extractKeyValues(lines []string) map[string]float64 {
	values := make(map[string]float64)
	for _, line := range lines {
		idx := strings.Index(line, ":")
		if idx <= 0 {
			continue
		}
		key := strings.TrimSpace(line[:idx])
		if key == "" {
			continue
		}
		v, ok := parseNumeric(line[idx+1:])
		if !ok {
			continue
		}
		values[key] += v
	}
	return values
}
