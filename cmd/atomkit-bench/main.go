package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "atomkit-bench",
		Short: "Synthetic workload driver for the atomkit reactive engine",
		Long: `atomkit-bench runs configurable reactive workloads against the
engine and reports throughput:

  fanout - one atom, many subscribers
  chain  - deep derived-atom chains recomputing per write
  pool   - keyed pool churn with idle eviction`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		fanoutCmd(),
		chainCmd(),
		poolCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("atomkit-bench %s (%s)\n", version, commit)
		},
	}
}
