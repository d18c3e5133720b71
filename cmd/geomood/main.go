package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "0.1.0-dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "geomood",
		Short: "Geomood - a journal that settles into rock",
		Long: `geomood keeps a mood journal as a sediment core.

Each entry falls as grains of a mineral chosen by its mood score and
settles on the layers below. Long or extreme entries may hold a gem that
can be dug up and appraised.`,
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON (for agent consumption)")
	rootCmd.PersistentFlags().String("root", ".", "Journal root directory")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: error, warn, info, debug, or trace (overrides config)")

	rootCmd.AddCommand(
		newVersionCmd(),
		newInitCmd(),
		newDepositCmd(),
		newListCmd(),
		newGemsCmd(),
		newAppraiseCmd(),
		newDeleteCmd(),
		newCoreCmd(),
		newSurfaceCmd(),
		newServeCmd(),
		newBackupCmd(),
		newRestoreCmd(),
		newConfigCmd(),
		newMCPServerCmd(),
	)

	return rootCmd
}
