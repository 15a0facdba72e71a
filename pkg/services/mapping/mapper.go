package mapping

import (
	"context"
	"fmt"

	"github.com/op-tools/kpi-atlas/pkg/models/store"
)

// Registry is the KPI registration capability the mapper needs: an atomic
// insert-if-absent keyed on the canonical name.
type Registry interface {
	Ensure(ctx context.Context, name string) (store.KPIRecord, error)
}

// Mapper resolves raw column headers to registered KPIs. Resolution itself
// is pure; registration is the only side effect and is idempotent.
type Mapper struct {
	table *Table
	kpis  Registry
}

func NewMapper(table *Table, kpis Registry) *Mapper {
	return &Mapper{table: table, kpis: kpis}
}

// Resolve maps a header to its canonical KPI name without touching storage.
func (m *Mapper) Resolve(header string) string {
	return m.table.Canonical(header)
}

// ResolveAndRegister maps a header and guarantees the KPI row exists,
// creating it with sum aggregation and no unit when first seen.
func (m *Mapper) ResolveAndRegister(ctx context.Context, header string) (store.KPIRecord, error) {
	name := m.table.Canonical(header)
	rec, err := m.kpis.Ensure(ctx, name)
	if err != nil {
		return store.KPIRecord{}, fmt.Errorf("register kpi for column %q: %w", header, err)
	}
	return rec, nil
}
