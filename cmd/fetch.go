package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sambett/github-api-visualize/internal/config"
	"github.com/sambett/github-api-visualize/internal/gateway"
	"github.com/sambett/github-api-visualize/internal/snapshot"
	"github.com/sambett/github-api-visualize/internal/usecase"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetches GitHub data and writes the CSV snapshot files",
	Long: `Fetches repositories and commit histories for the configured
organizations and replaces the CSV snapshot (repositories.csv, commits.csv,
contributors.csv) in the output directory. A rate-limited run still writes
whatever was gathered and exits zero; only invalid configuration is fatal.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
			os.Exit(1)
		}

		// Flags override the environment when set.
		if cmd.Flags().Changed("orgs") {
			cfg.Organizations, _ = cmd.Flags().GetStringSlice("orgs")
		}
		if cmd.Flags().Changed("max-repos") {
			cfg.MaxRepositories, _ = cmd.Flags().GetInt("max-repos")
		}
		if cmd.Flags().Changed("max-commits") {
			cfg.MaxCommitsPerRepository, _ = cmd.Flags().GetInt("max-commits")
		}
		if cmd.Flags().Changed("out") {
			cfg.OutputDir, _ = cmd.Flags().GetString("out")
		}
		if cmd.Flags().Changed("token") {
			cfg.GithubToken, _ = cmd.Flags().GetString("token")
		}

		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
			os.Exit(1)
		}

		verbose, _ := cmd.InheritedFlags().GetBool("verbose")
		logger := newLogger(cfg.LogLevel, verbose)
		if cfg.GithubToken == "" {
			logger.Warn("no GITHUB_TOKEN configured, using unauthenticated rate limits")
		}

		githubGateway, err := gateway.NewGitHubGateway(cfg.GithubToken, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create GitHub gateway: %v\n", err)
			os.Exit(1)
		}
		snapshotter := usecase.NewSnapshotter(githubGateway, logger, usecase.Options{
			Organizations:           cfg.Organizations,
			MaxRepositories:         cfg.MaxRepositories,
			MaxCommitsPerRepository: cfg.MaxCommitsPerRepository,
		})

		start := time.Now()
		snap := snapshotter.Snapshot(ctx)

		writer := snapshot.NewWriter(logger)
		if err := writer.Write(snap, cfg.OutputDir); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write snapshot: %v\n", err)
			os.Exit(1)
		}

		summary := usecase.Summarize(snap, len(cfg.Organizations), time.Since(start))
		jsonData, err := json.MarshalIndent(summary, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to marshal run summary: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(jsonData))
	},
}

// newLogger builds the slog logger for a run. The verbose flag forces debug
// level regardless of the configured level.
func newLogger(level string, verbose bool) *slog.Logger {
	logLevel := slog.LevelInfo
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}
	if verbose {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}

func init() {
	rootCmd.AddCommand(fetchCmd)
	fetchCmd.Flags().StringSliceP("orgs", "o", nil, "Organizations to scan (comma-separated, overrides ORGANIZATIONS)")
	fetchCmd.Flags().Int("max-repos", 0, "Max repositories per organization (overrides MAX_REPOSITORIES)")
	fetchCmd.Flags().Int("max-commits", 0, "Max commits per repository (overrides MAX_COMMITS_PER_REPOSITORY)")
	fetchCmd.Flags().String("out", "", "Output directory for the CSV files (overrides OUTPUT_DIR)")
	fetchCmd.Flags().String("token", "", "GitHub API token (overrides GITHUB_TOKEN)")
}
