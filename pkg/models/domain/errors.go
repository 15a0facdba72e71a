package domain

import "errors"

var (
	// ErrUnsupportedFormat is returned when the upload's extension is not
	// one of csv, tsv, xlsx, xls, pdf.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrEmptyTable is returned when zero valid rows remain after parsing.
	ErrEmptyTable = errors.New("no parseable rows in file")

	ErrReportNotFound = errors.New("report not found")

	// ErrNoGoals is returned when no goal of the requested period type
	// overlaps the report's date range for any KPI present in the report.
	ErrNoGoals = errors.New("no goals defined for the requested period")
)
