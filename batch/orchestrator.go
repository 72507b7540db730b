package batch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"beceharvest/core"
	"beceharvest/core/enrich"
	"beceharvest/core/imagekit"
	"beceharvest/core/images"
	"beceharvest/core/render"
	"beceharvest/core/restructure"
)

// ScreenshotState is the terminal state of the per-job screenshot chain.
type ScreenshotState string

const (
	// ScreenshotDone means the URL was uploaded and embedded.
	ScreenshotDone ScreenshotState = "done"
	// ScreenshotSkipped means the chain was disabled or degraded; the
	// job's primary artifacts are unaffected.
	ScreenshotSkipped ScreenshotState = "skipped"
	// ScreenshotFailed means enrichment could not be applied safely; the
	// originals are intact but the job counts as a partial failure.
	ScreenshotFailed ScreenshotState = "failed"
)

// Status is the per-job outcome.
type Status string

const (
	StatusSuccess Status = "success"
	StatusPartial Status = "partial"
	StatusFailed  Status = "failed"
)

// Result is the recorded outcome of one job.
type Result struct {
	JobID         string
	Subject       string
	Year          int
	SourceURL     string
	OutputDir     string
	Status        Status
	Reason        string
	Objectives    int
	Theory        int
	ImagesFailed  int
	Screenshot    ScreenshotState
	ScreenshotURL string
}

// Summary aggregates a whole batch run.
type Summary struct {
	Results []Result
	Elapsed time.Duration
}

// Failed counts jobs whose required steps did not complete cleanly.
func (s *Summary) Failed() int {
	n := 0
	for _, r := range s.Results {
		if r.Status != StatusSuccess {
			n++
		}
	}
	return n
}

// OK reports whether every job succeeded.
func (s *Summary) OK() bool {
	return s.Failed() == 0
}

// Orchestrator runs the fetch → parse → images → restructure → screenshot
// pipeline for each job, sequentially. Jobs never share mutable state, but
// fetches stay sequential to respect the source site.
type Orchestrator struct {
	fetcher    core.Fetcher
	parser     core.Parser
	downloader *images.Downloader
	capturer   core.Capturer
	uploader   core.Uploader
	renderer   *render.PaperRenderer
	log        *slog.Logger
	now        func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithScreenshots enables the screenshot chain.
func WithScreenshots(c core.Capturer, u core.Uploader) Option {
	return func(o *Orchestrator) {
		o.capturer = c
		o.uploader = u
	}
}

// WithPDF enables the printable exam-paper output.
func WithPDF(r *render.PaperRenderer) Option {
	return func(o *Orchestrator) { o.renderer = r }
}

// WithLogger overrides the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.log = l }
}

// New creates an Orchestrator. Without WithScreenshots, every job's
// screenshot state is Skipped and the JSON keeps an explicit null.
func New(fetcher core.Fetcher, parser core.Parser, downloader *images.Downloader, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		fetcher:    fetcher,
		parser:     parser,
		downloader: downloader,
		log:        slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ResolveJobs validates every subject-year combination before any network
// work. Valid combinations become jobs; invalid ones become failed results
// recorded in the batch summary.
func ResolveJobs(subjects []string, years []int, baseDir string) ([]Job, []Result) {
	var jobs []Job
	var rejected []Result
	for _, subject := range subjects {
		for _, year := range years {
			job, err := NewJob(subject, year, baseDir)
			if err != nil {
				rejected = append(rejected, Result{
					JobID:      uuid.NewString(),
					Subject:    subject,
					Year:       year,
					Status:     StatusFailed,
					Reason:     err.Error(),
					Screenshot: ScreenshotSkipped,
				})
				continue
			}
			jobs = append(jobs, job)
		}
	}
	return jobs, rejected
}

// Run processes the cartesian product of subjects and years and returns the
// aggregated summary.
func (o *Orchestrator) Run(ctx context.Context, subjects []string, years []int, baseDir string) *Summary {
	start := o.now()
	jobs, rejected := ResolveJobs(subjects, years, baseDir)
	for _, r := range rejected {
		o.log.Warn("combination rejected",
			"job", r.JobID, "subject", r.Subject, "year", r.Year, "reason", r.Reason)
	}

	summary := &Summary{Results: rejected}
	for _, job := range jobs {
		o.log.Info("processing", "subject", job.Subject, "year", job.Year, "url", job.SourceURL)
		result := o.runJob(ctx, job)
		o.log.Info("job finished",
			"job", result.JobID,
			"subject", job.Subject, "year", job.Year,
			"status", result.Status, "screenshot", result.Screenshot)
		summary.Results = append(summary.Results, result)
	}
	summary.Elapsed = o.now().Sub(start)
	return summary
}

func (o *Orchestrator) runJob(ctx context.Context, job Job) Result {
	result := Result{
		JobID:      uuid.NewString(),
		Subject:    job.Subject,
		Year:       job.Year,
		SourceURL:  job.SourceURL,
		OutputDir:  job.OutputDir,
		Screenshot: ScreenshotSkipped,
	}
	started := o.now()

	fetched, err := o.fetcher.Fetch(ctx, job.SourceURL)
	if err != nil {
		return failed(result, err)
	}

	paper, err := o.parser.Parse(fetched.HTML)
	if err != nil {
		return failed(result, err)
	}
	result.Objectives = len(paper.Objectives)
	result.Theory = len(paper.Theory)

	report, err := o.downloader.DownloadAll(ctx, paper, job.SourceURL, job.OutputDir)
	if err != nil {
		return failed(result, err)
	}
	result.ImagesFailed = report.Failed

	writer, err := restructure.New(job.OutputDir)
	if err != nil {
		return failed(result, err)
	}
	doc := restructure.BuildDocument(paper, core.PaperMetadata{
		Subject:       job.Subject,
		Year:          job.Year,
		ProcessedDate: o.now().UTC().Format(time.RFC3339),
		SourceURL:     job.SourceURL,
	})
	artifacts, err := writer.WriteArtifacts(doc, report, o.now().Sub(started))
	if err != nil {
		return failed(result, err)
	}

	if err := WriteImageReport(job, doc, report); err != nil {
		o.log.Warn("image report not written", "error", err)
	}

	if o.renderer != nil {
		if err := o.writePDF(job, doc); err != nil {
			o.log.Warn("pdf not written", "error", err)
		}
	}

	result.Screenshot, result.ScreenshotURL, err = o.screenshotChain(ctx, job, artifacts)
	if err != nil {
		// Artifacts from the steps above are intact; the job degrades to
		// a partial failure rather than a rollback.
		result.Status = StatusPartial
		result.Reason = err.Error()
		return result
	}

	result.Status = StatusSuccess
	if result.ImagesFailed > 0 {
		result.Reason = fmt.Sprintf("%d of %d images failed to download",
			report.Failed, report.TotalImages)
	}
	return result
}

// screenshotChain runs capture → upload → enrich. Capture and upload
// failures degrade to Skipped; only an enrichment failure is reported as an
// error, and even then the original artifacts are untouched.
func (o *Orchestrator) screenshotChain(ctx context.Context, job Job, artifacts *restructure.Artifacts) (ScreenshotState, string, error) {
	if o.capturer == nil || o.uploader == nil {
		return ScreenshotSkipped, "", nil
	}

	data, err := o.capturer.Capture(ctx, job.SourceURL)
	if err != nil {
		o.log.Warn("screenshot capture failed, skipping", "url", job.SourceURL, "error", err)
		return ScreenshotSkipped, "", nil
	}

	uploaded, err := o.uploader.Upload(ctx, core.UploadRequest{
		Data:      data,
		FileName:  imagekit.FileName(job.Subject, job.Year, o.now()),
		Folder:    imagekit.Folder(job.Subject, job.Year),
		Tags:      []string{"screenshot", "bece", job.Subject, fmt.Sprint(job.Year)},
		SourceURL: job.SourceURL,
	})
	if err != nil {
		o.log.Warn("screenshot upload failed, skipping", "url", job.SourceURL, "error", err)
		return ScreenshotSkipped, "", nil
	}

	url := uploaded.URL
	if err := enrich.PatchArtifacts(artifacts.JSONPath, artifacts.CSVPath, &url); err != nil {
		return ScreenshotFailed, "", err
	}
	if err := enrich.UpdateMetadata(artifacts.MetadataPath, url); err != nil {
		return ScreenshotFailed, "", err
	}
	return ScreenshotDone, url, nil
}

func (o *Orchestrator) writePDF(job Job, doc *core.PaperDocument) error {
	data, err := o.renderer.Render(doc)
	if err != nil {
		return err
	}
	path := filepath.Join(job.OutputDir, fmt.Sprintf("%s_%d%s", job.Subject, job.Year, o.renderer.Extension()))
	return os.WriteFile(path, data, 0644)
}

func failed(result Result, err error) Result {
	result.Status = StatusFailed
	result.Reason = err.Error()
	return result
}
