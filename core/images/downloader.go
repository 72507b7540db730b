// Package images downloads question diagrams into the per-job images/
// directory, one subdirectory per section. Downloads are retried with the
// shared policy; a failed image is recorded in the report and never fails
// the job.
package images

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/go-resty/resty/v2"

	"beceharvest/core"
	"beceharvest/core/retry"
)

// Failure records one image that could not be downloaded after retries.
type Failure struct {
	URL    string
	Reason string
}

// Report summarizes one job's image downloads.
type Report struct {
	TotalImages   int
	Downloaded    int
	Failed        int
	DownloadedMap map[string]string // source URL -> local path (relative to the job dir)
	Failures      []Failure
}

// Downloader fetches diagram images referenced by question records.
type Downloader struct {
	client *resty.Client
	policy retry.Policy
	log    *slog.Logger
}

// Option configures a Downloader.
type Option func(*Downloader)

// WithPolicy overrides the retry policy.
func WithPolicy(p retry.Policy) Option {
	return func(d *Downloader) { d.policy = p }
}

// New creates a Downloader.
func New(opts ...Option) *Downloader {
	d := &Downloader{
		client: resty.New().SetHeader("User-Agent", core.UserAgent),
		policy: retry.Default,
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DownloadAll fetches every image referenced by the paper into
// {outputDir}/images/{section}/ and annotates the records with the local
// paths of the images that made it. Relative image refs are resolved
// against baseURL. The returned report covers successes and failures; the
// error is non-nil only for setup problems (unusable output directory).
func (d *Downloader) DownloadAll(ctx context.Context, paper *core.ParsedPaper, baseURL, outputDir string) (*Report, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing base URL %s: %v", core.ErrDownload, baseURL, err)
	}

	report := &Report{DownloadedMap: make(map[string]string)}

	for _, section := range []struct {
		name    core.Section
		records []core.QuestionRecord
	}{
		{core.SectionObjectives, paper.Objectives},
		{core.SectionTheory, paper.Theory},
	} {
		dir := filepath.Join(outputDir, "images", string(section.name))
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("%w: creating %s: %v", core.ErrDownload, dir, err)
		}

		for i := range section.records {
			rec := &section.records[i]
			for idx, ref := range rec.ImageRefs {
				report.TotalImages++

				resolved := resolveRef(base, ref)

				// The same diagram is often referenced by several questions.
				if local, ok := report.DownloadedMap[resolved]; ok {
					rec.ImagePaths = append(rec.ImagePaths, local)
					report.Downloaded++
					continue
				}

				name := diagramName(rec.Number, idx, resolved)
				dest := filepath.Join(dir, name)

				if err := d.fetchImage(ctx, resolved, dest); err != nil {
					d.log.Warn("image download failed", "url", resolved, "error", err)
					report.Failed++
					report.Failures = append(report.Failures, Failure{URL: resolved, Reason: err.Error()})
					continue
				}

				local := path.Join("images", string(section.name), name)
				rec.ImagePaths = append(rec.ImagePaths, local)
				report.DownloadedMap[resolved] = local
				report.Downloaded++
			}
		}
	}

	return report, nil
}

func (d *Downloader) fetchImage(ctx context.Context, src, dest string) error {
	err := d.policy.Do(ctx, func() error {
		resp, err := d.client.R().SetContext(ctx).Get(src)
		if err != nil {
			return err
		}
		if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
			return fmt.Errorf("unexpected status %d", resp.StatusCode())
		}
		return os.WriteFile(dest, resp.Body(), 0644)
	})
	if err != nil {
		return fmt.Errorf("%w: %s: %v", core.ErrDownload, src, err)
	}
	return nil
}

// diagramName builds the deterministic local filename for a question image.
func diagramName(number, index int, src string) string {
	ext := strings.ToLower(path.Ext(urlPath(src)))
	if ext == "" {
		ext = ".jpg"
	}
	if index == 0 {
		return fmt.Sprintf("q%d_diagram%s", number, ext)
	}
	return fmt.Sprintf("q%d_diagram_%d%s", number, index+1, ext)
}

func urlPath(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return u.Path
}

func resolveRef(base *url.URL, ref string) string {
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(u).String()
}
