package parse

import (
	"bytes"
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// parseExcel reads the first sheet of a workbook with the same header and
// date-column assumptions as the delimited formats.
func (p *Parser) parseExcel(ctx context.Context, data []byte) ([]Row, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}

	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if len(records) < 2 {
		return nil, nil
	}

	header := records[0]
	var rows []Row
	for _, record := range records[1:] {
		if row, ok := p.buildRow(ctx, header, record); ok {
			rows = append(rows, row)
		}
	}
	return rows, nil
}
