package batch

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"beceharvest/core"
	"beceharvest/core/images"
)

// WriteImageReport writes the per-job image download report under the job's
// reports/ directory.
func WriteImageReport(job Job, doc *core.PaperDocument, rep *images.Report) error {
	reportsDir := filepath.Join(job.OutputDir, "reports")
	if err := os.MkdirAll(reportsDir, 0755); err != nil {
		return err
	}

	successRate := 0.0
	if rep.TotalImages > 0 {
		successRate = float64(rep.Downloaded) / float64(rep.TotalImages) * 100
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Image Download Report for %s %d\n", job.Subject, job.Year)
	fmt.Fprintf(&b, "Generated on: %s\n\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(&b, "Summary:\n")
	fmt.Fprintf(&b, "  Total Questions: %d\n", len(doc.Objectives)+len(doc.Theory))
	fmt.Fprintf(&b, "  Total Images Expected: %d\n", rep.TotalImages)
	fmt.Fprintf(&b, "  Successfully Downloaded: %d\n", rep.Downloaded)
	fmt.Fprintf(&b, "  Failed Downloads: %d\n", rep.Failed)
	fmt.Fprintf(&b, "  Success Rate: %.2f%%\n\n", successRate)
	fmt.Fprintf(&b, "Downloaded Images:\n")
	for src, local := range rep.DownloadedMap {
		fmt.Fprintf(&b, "  %s -> %s\n", src, local)
	}
	if len(rep.Failures) > 0 {
		fmt.Fprintf(&b, "\nFailed Downloads:\n")
		for _, f := range rep.Failures {
			fmt.Fprintf(&b, "  %s: %s\n", f.URL, f.Reason)
		}
	}

	path := filepath.Join(reportsDir, fmt.Sprintf("%s_%d_image_download_report.txt", job.Subject, job.Year))
	return os.WriteFile(path, []byte(b.String()), 0644)
}

// RenderSummary prints the end-of-run batch summary as a table, followed by
// the aggregate counts.
func RenderSummary(w io.Writer, summary *Summary) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Subject", "Year", "Status", "Questions", "Screenshot", "Detail"})

	for _, r := range summary.Results {
		detail := r.OutputDir
		if r.Reason != "" {
			detail = r.Reason
		}
		t.AppendRow(table.Row{
			r.Subject,
			r.Year,
			string(r.Status),
			r.Objectives + r.Theory,
			string(r.Screenshot),
			detail,
		})
	}
	t.Render()

	total := len(summary.Results)
	failedCount := summary.Failed()
	fmt.Fprintf(w, "\n%d/%d jobs succeeded in %s\n",
		total-failedCount, total, summary.Elapsed.Round(time.Second))
}
