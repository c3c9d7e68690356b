package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "csvexplorer",
		Short: "Browse, filter and compute over CSV files",
		Long: `csvexplorer uploads a CSV (or XLSX) file into an in-browser table
where it can be filtered, searched, extended with derived columns and
exported again. The transform command runs the same pipeline headlessly.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(), newTransformCmd(), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "csvexplorer %s\n", version)
		},
	}
}
