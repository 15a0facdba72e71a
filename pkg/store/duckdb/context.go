package duckdb

import (
	"context"
	"database/sql"
)

type txKey struct{}

// WithTransaction lets the ingest pipeline write metrics and finalize the
// report inside one transaction without threading *sql.Tx through every
// store signature.
func WithTransaction(ctx context.Context, tx *sql.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

func GetTransaction(ctx context.Context) *sql.Tx {
	tx, _ := ctx.Value(txKey{}).(*sql.Tx)
	return tx
}
