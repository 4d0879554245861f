package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "estimator",
		Short:        "Price construction takeoffs against the assembly catalog",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(estimateCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(flushCacheCmd())
	rootCmd.AddCommand(warmCacheCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
