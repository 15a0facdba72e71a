package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/op-tools/kpi-atlas/pkg/terminal/commands"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "kpi-atlas",
		Short: "Offline tools for the KPI Atlas service",
	}

	rootCmd.AddCommand(commands.NewParseCmd(os.Stdout))
	rootCmd.AddCommand(commands.NewKPIsCmd(os.Stdout))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
