// Package cmd wires up the CLI using Cobra.
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "github-snapshot",
	Short: "A CLI tool to snapshot GitHub organization activity into CSV files.",
	Long: `github-snapshot fetches repositories and commit histories for a
configured list of GitHub organizations and writes three CSV files
(repositories, commits, contributors) that a dashboard can chart.`,
}

// Execute runs the root command; main calls this once.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	// Shared by every subcommand.
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose/debug logging")
}
