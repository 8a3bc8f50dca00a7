package main

import (
	"fmt"
	"runtime"
	"strconv"

	"github.com/Suad0/custos/internal/module"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

const version = "v0.1.0-dev"

// NewCLI builds the root command.
func NewCLI() *cobra.Command {
	root := &cobra.Command{
		Use:          "custos",
		Short:        "Module-stacked compute buffers",
		SilenceUsage: true,
	}
	root.AddCommand(newVersionCmd(), newInfoCmd(), newBenchCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "custos %s\n", version)
		},
	}
}

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show build and backend information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetAlignment(tablewriter.ALIGN_LEFT)
			table.SetBorder(false)
			table.SetAutoWrapText(false)
			table.AppendBulk([][]string{
				{"version", version},
				{"go", runtime.Version()},
				{"platform", runtime.GOOS + "/" + runtime.GOARCH},
				{"cpus", strconv.Itoa(runtime.NumCPU())},
				{"realloc", strconv.FormatBool(module.Realloc())},
				{"backends", "cpu" + gpuBackends()},
				{"stacks", fmt.Sprint(stackNames())},
			})
			table.Render()
			return nil
		},
	}
}
