package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/op-tools/kpi-atlas/pkg/store/duckdb"
	kpistore "github.com/op-tools/kpi-atlas/pkg/store/duckdb/kpi"
)

type KPIsCmd struct {
	dbPath string
	out    io.Writer
}

func NewKPIsCmd(out io.Writer) *cobra.Command {
	kc := &KPIsCmd{out: out}
	cmd := &cobra.Command{
		Use:   "kpis",
		Short: "List registered KPIs",
		RunE:  kc.run,
	}

	cmd.Flags().StringVar(&kc.dbPath, "db", "kpi-atlas.db", "Path to the KPI Atlas database file")

	return cmd
}

func (kc *KPIsCmd) run(cmd *cobra.Command, _ []string) error {
	db, err := duckdb.NewDB(duckdb.Settings{DbPath: kc.dbPath})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	store, err := kpistore.NewStore(db)
	if err != nil {
		return err
	}

	records, err := store.List(cmd.Context())
	if err != nil {
		return err
	}

	if len(records) == 0 {
		fmt.Fprintln(kc.out, "no KPIs registered")
		return nil
	}
	for _, rec := range records {
		unit := rec.Unit
		if unit == "" {
			unit = "-"
		}
		fmt.Fprintf(kc.out, "%-6d %-32s unit=%-8s agg=%s\n", rec.ID, rec.Name, unit, rec.Aggregation)
	}
	return nil
}
