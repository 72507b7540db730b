package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"

	"github.com/spf13/cobra"

	"beceharvest/core/enrich"
)

var flagSyncDir string

// jobDirRe matches {subject}_{year} job directories.
var jobDirRe = regexp.MustCompile(`^([a-z-]+)_(\d{4})$`)

var syncMetaCmd = &cobra.Command{
	Use:   "sync-metadata",
	Short: "Copy screenshot URLs from JSON artifacts into their metadata files",
	RunE:  runSyncMeta,
}

func init() {
	rootCmd.AddCommand(syncMetaCmd)
	syncMetaCmd.Flags().StringVarP(&flagSyncDir, "output", "o", "data", "Base output directory to scan")
}

func runSyncMeta(cmd *cobra.Command, args []string) error {
	entries, err := os.ReadDir(flagSyncDir)
	if err != nil {
		return fmt.Errorf("reading %s: %w", flagSyncDir, err)
	}

	updated, skipped := 0, 0
	for _, entry := range entries {
		if !entry.IsDir() || !jobDirRe.MatchString(entry.Name()) {
			continue
		}
		stem := entry.Name()
		dir := filepath.Join(flagSyncDir, stem)
		jsonPath := filepath.Join(dir, stem+".json")
		metaPath := filepath.Join(dir, stem+"_metadata.json")

		url, err := enrich.ScreenshotURL(jsonPath)
		if err != nil || url == "" {
			if err != nil {
				slog.Warn("skipping", "dir", stem, "error", err)
			}
			skipped++
			continue
		}
		if err := enrich.UpdateMetadata(metaPath, url); err != nil {
			slog.Warn("metadata not updated", "dir", stem, "error", err)
			skipped++
			continue
		}
		slog.Info("metadata updated", "dir", stem, "url", url)
		updated++
	}

	fmt.Fprintf(cmd.OutOrStdout(), "updated %d metadata files, skipped %d\n", updated, skipped)
	return nil
}
