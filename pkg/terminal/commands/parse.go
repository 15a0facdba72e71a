package commands

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/op-tools/kpi-atlas/pkg/services/mapping"
	"github.com/op-tools/kpi-atlas/pkg/services/parse"
)

type ParseCmd struct {
	aliasPath string
	out       io.Writer
}

// NewParseCmd dry-runs the ingest pipeline's parse and mapping stages on a
// local file without touching storage.
func NewParseCmd(out io.Writer) *cobra.Command {
	pc := &ParseCmd{out: out}
	cmd := &cobra.Command{
		Use:   "parse <file>",
		Short: "Parse a report file and show the KPI columns it would ingest",
		Args:  cobra.ExactArgs(1),
		RunE:  pc.run,
	}

	cmd.Flags().StringVar(&pc.aliasPath, "aliases", "", "Path to an INI alias table (optional)")

	return cmd
}

func (pc *ParseCmd) run(cmd *cobra.Command, args []string) error {
	path := args[0]

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	table := mapping.DefaultTable()
	if pc.aliasPath != "" {
		table, err = mapping.LoadTable(pc.aliasPath)
		if err != nil {
			return err
		}
	}

	rows, err := parse.NewParser().Parse(cmd.Context(), path, data)
	if err != nil {
		return err
	}

	type kpiSummary struct {
		total float64
		days  int
	}
	summaries := make(map[string]*kpiSummary)
	for _, row := range rows {
		for header, value := range row.Values {
			name := table.Canonical(header)
			s, ok := summaries[name]
			if !ok {
				s = &kpiSummary{}
				summaries[name] = s
			}
			s.total += value
			s.days++
		}
	}

	names := make([]string, 0, len(summaries))
	for name := range summaries {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintf(pc.out, "%d rows, %d KPI columns\n", len(rows), len(names))
	for _, name := range names {
		s := summaries[name]
		fmt.Fprintf(pc.out, "  %-24s sum=%.2f over %d dates\n", name, s.total, s.days)
	}
	return nil
}
