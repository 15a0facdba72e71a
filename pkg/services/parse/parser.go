package parse

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/op-tools/kpi-atlas/pkg/models/domain"
)

// Row is one parsed table row: a calendar date plus the numeric values
// keyed by their raw column header. Cells that fail numeric coercion are
// absent from Values, never zero.
type Row struct {
	Date   time.Time
	Values map[string]float64
}

type Parser struct {
	now func() time.Time
}

func NewParser() *Parser {
	return &Parser{now: time.Now}
}

// Supported reports whether the filename's extension is a parseable format.
func Supported(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv", ".tsv", ".xlsx", ".xls", ".pdf":
		return true
	}
	return false
}

// Parse converts raw upload bytes into rows. The format is decided by the
// declared filename's extension. Defective rows and cells are dropped with
// a warning; only a fully empty result is an error.
func (p *Parser) Parse(ctx context.Context, filename string, data []byte) ([]Row, error) {
	var rows []Row
	var err error

	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".csv":
		rows, err = p.parseDelimited(ctx, data, ',')
	case ".tsv":
		rows, err = p.parseDelimited(ctx, data, '\t')
	case ".xlsx", ".xls":
		rows, err = p.parseExcel(ctx, data)
	case ".pdf":
		rows, err = p.parsePDF(ctx, data)
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, ext)
	}

	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrEmptyTable, filename)
	}
	return rows, nil
}

// parseDelimited reads CSV/TSV content. The first row is the header and the
// first column is the date column regardless of its header text.
func (p *Parser) parseDelimited(ctx context.Context, data []byte, comma rune) ([]Row, error) {
	logger := zerolog.Ctx(ctx)

	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = comma
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	var rows []Row
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			logger.Warn().Err(err).Msg("skipping malformed row")
			continue
		}
		if row, ok := p.buildRow(ctx, header, record); ok {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

// buildRow turns one record into a Row, or reports false when the date
// cell cannot be parsed.
func (p *Parser) buildRow(ctx context.Context, header, record []string) (Row, bool) {
	logger := zerolog.Ctx(ctx)

	if len(record) == 0 || strings.TrimSpace(record[0]) == "" {
		return Row{}, false
	}

	date, err := parseDate(record[0])
	if err != nil {
		logger.Warn().Str("cell", record[0]).Msg("dropping row with unparseable date")
		return Row{}, false
	}

	values := make(map[string]float64)
	for i := 1; i < len(record) && i < len(header); i++ {
		name := strings.TrimSpace(header[i])
		if name == "" {
			continue
		}
		v, ok := parseNumeric(record[i])
		if !ok {
			continue
		}
		values[name] = v
	}
	return Row{Date: date, Values: values}, true
}
