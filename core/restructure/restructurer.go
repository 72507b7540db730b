// Package restructure writes the per-job artifact triple: the nested JSON
// document, the flattened CSV, and the metadata summary. The three files
// always describe the same subject, year, and source URL.
package restructure

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"beceharvest/core"
	"beceharvest/core/images"
)

// CSVHeader is the fixed column set of the flattened CSV. Theory rows leave
// options and correct_answer empty.
var CSVHeader = []string{
	"page_screenshot",
	"section_type",
	"question_number",
	"question_text",
	"options",
	"correct_answer",
	"explanation",
	"image_paths",
}

// ImageDownloadStats is the image portion of the metadata summary.
type ImageDownloadStats struct {
	TotalImagesExpected   int               `json:"total_images_expected"`
	DownloadedImagesCount int               `json:"downloaded_images_count"`
	FailedDownloads       int               `json:"failed_downloads"`
	DownloadedImageMap    map[string]string `json:"downloaded_image_map"`
}

// Stats summarizes one extraction run.
type Stats struct {
	TotalQuestions         int                `json:"total_questions"`
	ObjectiveQuestions     int                `json:"objective_questions"`
	TheoryQuestions        int                `json:"theory_questions"`
	QuestionsWithDiagrams  map[string]int     `json:"questions_with_diagrams"`
	QuestionsWithSolutions map[string]int     `json:"questions_with_solutions"`
	SourceURL              string             `json:"source_url"`
	PageScreenshot         string             `json:"page_screenshot,omitempty"`
	ElapsedSeconds         float64            `json:"elapsed_seconds"`
	ImageDownloads         ImageDownloadStats `json:"image_download_stats"`
}

// Metadata is the metadata-only JSON artifact.
type Metadata struct {
	Subject        string            `json:"subject"`
	Year           int               `json:"year"`
	ExtractionDate string            `json:"extraction_date"`
	Stats          Stats             `json:"stats"`
	FileStructure  map[string]string `json:"file_structure"`
	FormatVersion  string            `json:"format_version"`
}

// Artifacts holds the paths of the written triple.
type Artifacts struct {
	JSONPath     string
	CSVPath      string
	MetadataPath string
}

// Writer persists the artifact triple for one job.
type Writer struct {
	OutputDir string
}

// New creates a Writer targeting the given job directory, creating it if
// needed. Safe to call for an existing directory.
func New(outputDir string) (*Writer, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	return &Writer{OutputDir: outputDir}, nil
}

// BuildDocument assembles the JSON root from parsed sections and job
// metadata. Section slices are never nil so empty sections serialize as [].
func BuildDocument(paper *core.ParsedPaper, meta core.PaperMetadata) *core.PaperDocument {
	doc := &core.PaperDocument{
		Metadata:   meta,
		Objectives: paper.Objectives,
		Theory:     paper.Theory,
	}
	if doc.Objectives == nil {
		doc.Objectives = []core.QuestionRecord{}
	}
	if doc.Theory == nil {
		doc.Theory = []core.QuestionRecord{}
	}
	return doc
}

// WriteArtifacts writes the JSON document, the flattened CSV, and the
// metadata summary under the writer's directory.
func (w *Writer) WriteArtifacts(doc *core.PaperDocument, rep *images.Report, elapsed time.Duration) (*Artifacts, error) {
	stem := fmt.Sprintf("%s_%d", doc.Metadata.Subject, doc.Metadata.Year)
	art := &Artifacts{
		JSONPath:     filepath.Join(w.OutputDir, stem+".json"),
		CSVPath:      filepath.Join(w.OutputDir, stem+".csv"),
		MetadataPath: filepath.Join(w.OutputDir, stem+"_metadata.json"),
	}

	if err := writeJSON(art.JSONPath, doc); err != nil {
		return nil, err
	}
	if err := writeCSV(art.CSVPath, doc); err != nil {
		return nil, err
	}
	meta := buildMetadata(doc, rep, elapsed, stem)
	if err := writeJSON(art.MetadataPath, meta); err != nil {
		return nil, err
	}
	return art, nil
}

func buildMetadata(doc *core.PaperDocument, rep *images.Report, elapsed time.Duration, stem string) Metadata {
	stats := Stats{
		TotalQuestions:         len(doc.Objectives) + len(doc.Theory),
		ObjectiveQuestions:     len(doc.Objectives),
		TheoryQuestions:        len(doc.Theory),
		QuestionsWithDiagrams:  countByObjTheory(doc, func(q core.QuestionRecord) bool { return len(q.ImageRefs) > 0 }),
		QuestionsWithSolutions: countByObjTheory(doc, func(q core.QuestionRecord) bool { return q.Explanation != "" }),
		SourceURL:              doc.Metadata.SourceURL,
		ElapsedSeconds:         elapsed.Seconds(),
	}
	if rep != nil {
		stats.ImageDownloads = ImageDownloadStats{
			TotalImagesExpected:   rep.TotalImages,
			DownloadedImagesCount: rep.Downloaded,
			FailedDownloads:       rep.Failed,
			DownloadedImageMap:    rep.DownloadedMap,
		}
	}

	return Metadata{
		Subject:        doc.Metadata.Subject,
		Year:           doc.Metadata.Year,
		ExtractionDate: doc.Metadata.ProcessedDate,
		Stats:          stats,
		FileStructure: map[string]string{
			"questions_json": stem + ".json",
			"questions_csv":  stem + ".csv",
			"images":         "images/",
			"reports":        "reports/",
		},
		FormatVersion: "2.0",
	}
}

func countByObjTheory(doc *core.PaperDocument, pred func(core.QuestionRecord) bool) map[string]int {
	counts := map[string]int{}
	for _, q := range doc.Objectives {
		if pred(q) {
			counts[string(core.SectionObjectives)]++
		}
	}
	for _, q := range doc.Theory {
		if pred(q) {
			counts[string(core.SectionTheory)]++
		}
	}
	return counts
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", path, err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func writeCSV(path string, doc *core.PaperDocument) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	defer f.Close()

	wr := csv.NewWriter(f)
	if err := wr.Write(CSVHeader); err != nil {
		return err
	}

	screenshot := ""
	if doc.PageScreenshot != nil {
		screenshot = *doc.PageScreenshot
	}
	for _, section := range []struct {
		name    core.Section
		records []core.QuestionRecord
	}{
		{core.SectionObjectives, doc.Objectives},
		{core.SectionTheory, doc.Theory},
	} {
		for _, q := range section.records {
			row := []string{
				screenshot,
				string(section.name),
				strconv.Itoa(q.Number),
				q.Text,
				strings.Join(q.Options, " | "),
				q.CorrectAnswer,
				q.Explanation,
				strings.Join(q.ImagePaths, "|"),
			}
			if err := wr.Write(row); err != nil {
				return err
			}
		}
	}

	wr.Flush()
	if err := wr.Error(); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
