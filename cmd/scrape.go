package cmd

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"beceharvest/batch"
	"beceharvest/core"
	"beceharvest/core/config"
	"beceharvest/core/fetch"
	"beceharvest/core/imagekit"
	"beceharvest/core/images"
	"beceharvest/core/parse"
	"beceharvest/core/render"
	"beceharvest/core/screenshot"
)

const (
	defaultSubject = "science"
	defaultYear    = "2022"
)

var (
	flagSubject       string
	flagYear          string
	flagSubjects      string
	flagYears         string
	flagOutputDir     string
	flagNoScreenshots bool
	flagPDF           bool
	flagList          bool
	flagListURLs      bool
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Scrape one or more subject-year papers",
	Long: `Scrape fetches subject-year pages, extracts the question sections,
downloads diagrams, and writes the JSON/CSV/metadata artifacts per job.

Examples:
  beceharvest scrape -s mathematics -y 2021
  beceharvest scrape -S science,mathematics -Y 2020-2022 -o my_data
  beceharvest scrape -S science,english -Y 2020-2022 --list-urls
  beceharvest scrape --list`,
	RunE: runScrape,
}

func init() {
	rootCmd.AddCommand(scrapeCmd)

	scrapeCmd.Flags().StringVarP(&flagSubject, "subject", "s", defaultSubject, "Subject to scrape")
	scrapeCmd.Flags().StringVarP(&flagYear, "year", "y", defaultYear, "Year to scrape")
	scrapeCmd.Flags().StringVarP(&flagSubjects, "subjects", "S", "", "Comma-separated list of subjects")
	scrapeCmd.Flags().StringVarP(&flagYears, "years", "Y", "", "Year or year range (e.g. 2020 or 2019-2022)")
	scrapeCmd.Flags().StringVarP(&flagOutputDir, "output", "o", "data", "Base output directory")
	scrapeCmd.Flags().BoolVar(&flagNoScreenshots, "no-screenshots", false, "Skip the screenshot/upload chain")
	scrapeCmd.Flags().BoolVar(&flagPDF, "pdf", false, "Also render a printable exam-paper PDF per job")
	scrapeCmd.Flags().BoolVar(&flagList, "list", false, "List available subjects and exit")
	scrapeCmd.Flags().BoolVar(&flagListURLs, "list-urls", false, "Print resolved URLs without fetching")
}

func runScrape(cmd *cobra.Command, args []string) error {
	if flagList {
		listSubjects(cmd)
		return nil
	}

	subjects, years, err := resolveSelection()
	if err != nil {
		return err
	}

	if flagListURLs {
		jobs, rejected := batch.ResolveJobs(subjects, years, flagOutputDir)
		for _, job := range jobs {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %d: %s\n", job.Subject, job.Year, job.SourceURL)
		}
		for _, r := range rejected {
			fmt.Fprintf(cmd.ErrOrStderr(), "rejected %s %d: %s\n", r.Subject, r.Year, r.Reason)
		}
		return nil
	}

	cfg := config.Load()
	orchestrator, cleanup := buildOrchestrator(&cfg)
	defer cleanup()

	summary := orchestrator.Run(cmd.Context(), subjects, years, flagOutputDir)
	batch.RenderSummary(cmd.OutOrStdout(), summary)

	if !summary.OK() {
		return fmt.Errorf("%d of %d jobs failed", summary.Failed(), len(summary.Results))
	}
	return nil
}

// resolveSelection merges the single (-s/-y) and batch (-S/-Y) flags; the
// batch forms win when both are given.
func resolveSelection() ([]string, []int, error) {
	subjects := []string{flagSubject}
	if flagSubjects != "" {
		subjects = batch.ParseSubjects(flagSubjects)
	}

	yearSpec := flagYear
	if flagYears != "" {
		yearSpec = flagYears
	}
	years, err := batch.ParseYears(yearSpec)
	if err != nil {
		return nil, nil, err
	}
	if len(subjects) == 0 || len(years) == 0 {
		return nil, nil, fmt.Errorf("%w: no subjects or years selected", core.ErrValidation)
	}
	return subjects, years, nil
}

// buildOrchestrator wires the pipeline components from the loaded config.
// Screenshot problems never block scraping: a broken browser or missing
// credentials just degrade every job to a skipped screenshot.
func buildOrchestrator(cfg *config.Config) (*batch.Orchestrator, func()) {
	opts := []batch.Option{}
	cleanup := func() {}

	if flagPDF {
		opts = append(opts, batch.WithPDF(render.NewPaperRenderer()))
	}

	if cfg.ScreenshotsEnabled && !flagNoScreenshots {
		if problems := cfg.Validate(); len(problems) > 0 {
			for _, p := range problems {
				slog.Warn("screenshot configuration problem", "problem", p)
			}
			slog.Warn("screenshots disabled")
		} else if session, err := screenshot.NewSession(cfg.Browser); err != nil {
			slog.Warn("browser unavailable, screenshots disabled", "error", err)
		} else {
			opts = append(opts, batch.WithScreenshots(session, imagekit.New(cfg.ImageKit)))
			cleanup = func() {
				if err := session.Close(); err != nil {
					slog.Warn("closing browser", "error", err)
				}
			}
		}
	}

	return batch.New(fetch.New(), parse.New(), images.New(), opts...), cleanup
}

func listSubjects(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Available subjects:")
	for _, subject := range batch.Subjects {
		fmt.Fprintf(out, "  %-15s %s\n", subject, batch.GenerateURL(subject, 2022))
	}
	fmt.Fprintf(out, "\nValid year range: %d-%d\n", batch.MinYear, time.Now().Year())
}
