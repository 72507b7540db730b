// Package core defines the record types and pipeline interfaces shared by
// every stage of the harvester: fetch → parse → images → restructure →
// (optional) screenshot chain.
package core

import "context"

// UserAgent identifies the harvester to the source site on every page and
// image request.
const UserAgent = "beceharvest/1.0 (+https://github.com/beceharvest)"

// Section identifies the part of the paper a question belongs to.
type Section string

const (
	SectionObjectives Section = "objectives"
	SectionTheory     Section = "theory"
)

// FetchResult holds the raw HTML and response metadata from a page fetch.
type FetchResult struct {
	URL        string
	StatusCode int
	HTML       string
}

// QuestionRecord is one extracted exam question. Created by the parser and
// immutable afterwards, except for ImagePaths which the image downloader
// fills in with local file paths.
type QuestionRecord struct {
	Section       Section  `json:"-"`
	Number        int      `json:"number"`
	Text          string   `json:"question"`
	Options       []string `json:"options,omitempty"`
	CorrectAnswer string   `json:"correct_answer,omitempty"`
	Explanation   string   `json:"explanation,omitempty"`
	ImageRefs     []string `json:"image_refs,omitempty"`
	ImagePaths    []string `json:"image_paths,omitempty"`
}

// ParsedPaper is the parser output for one subject-year page, grouped by
// section in page order.
type ParsedPaper struct {
	Objectives []QuestionRecord
	Theory     []QuestionRecord
}

// PaperMetadata describes the provenance of one output document.
type PaperMetadata struct {
	Subject       string `json:"subject"`
	Year          int    `json:"year"`
	ProcessedDate string `json:"processed_date"` // ISO8601
	SourceURL     string `json:"source_url"`
}

// PaperDocument is the root of the JSON artifact. PageScreenshot stays null
// until the enrichment step splices in an uploaded screenshot URL.
type PaperDocument struct {
	PageScreenshot *string          `json:"page_screenshot"`
	Metadata       PaperMetadata    `json:"metadata"`
	Objectives     []QuestionRecord `json:"objectives"`
	Theory         []QuestionRecord `json:"theory"`
}

// Fetcher retrieves raw HTML from a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*FetchResult, error)
}

// Parser extracts the question sections from a fetched page.
type Parser interface {
	Parse(html string) (*ParsedPaper, error)
}

// Capturer produces a full-page screenshot of a URL.
type Capturer interface {
	Capture(ctx context.Context, url string) ([]byte, error)
	Close() error
}

// UploadRequest carries a captured screenshot plus the metadata that
// determines its remote folder and filename.
type UploadRequest struct {
	Data      []byte
	FileName  string
	Folder    string
	Tags      []string
	SourceURL string
}

// UploadResult is the outcome of a successful cloud upload.
type UploadResult struct {
	URL    string `json:"url"`
	FileID string `json:"fileId"`
}

// Uploader sends a screenshot to the cloud image store.
type Uploader interface {
	Upload(ctx context.Context, req UploadRequest) (*UploadResult, error)
}
