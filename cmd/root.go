// Package cmd implements the CLI commands for beceharvest using Cobra.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var flagVerbose bool

var rootCmd = &cobra.Command{
	Use:   "beceharvest",
	Short: "beceharvest — scrape BECE past questions into structured datasets",
	Long: `beceharvest extracts BECE exam questions from kuulchat.com into JSON and
CSV datasets, downloads the referenced diagrams, and optionally captures a
page screenshot uploaded to ImageKit with the URL embedded in the output.

Usage:
  beceharvest scrape [flags]
  beceharvest sync-metadata [flags]`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if flagVerbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		})))
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "Enable debug logging")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
