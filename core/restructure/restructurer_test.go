package restructure

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"beceharvest/core"
	"beceharvest/core/images"
)

func samplePaper() *core.ParsedPaper {
	return &core.ParsedPaper{
		Objectives: []core.QuestionRecord{
			{
				Section:       core.SectionObjectives,
				Number:        1,
				Text:          "Which gas do plants absorb?",
				Options:       []string{"A. oxygen", "B. carbon dioxide", "C. nitrogen", "D. hydrogen"},
				CorrectAnswer: "B",
				Explanation:   "Answer: B. Plants absorb carbon dioxide.",
				ImageRefs:     []string{"/qns/q1.png"},
				ImagePaths:    []string{"images/objectives/q1_diagram.png"},
			},
		},
		Theory: []core.QuestionRecord{
			{
				Section:     core.SectionTheory,
				Number:      1,
				Text:        "Describe the water cycle.",
				Explanation: "Evaporation, condensation, precipitation.",
			},
		},
	}
}

func sampleMeta() core.PaperMetadata {
	return core.PaperMetadata{
		Subject:       "science",
		Year:          2022,
		ProcessedDate: "2026-08-30T10:00:00Z",
		SourceURL:     "https://kuulchat.com/bece/questions/science-2022/",
	}
}

func TestBuildDocumentNeverNilSections(t *testing.T) {
	doc := BuildDocument(&core.ParsedPaper{}, sampleMeta())
	require.NotNil(t, doc.Objectives)
	require.NotNil(t, doc.Theory)
	require.Nil(t, doc.PageScreenshot)
}

func TestWriteArtifactsJSON(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir)
	require.NoError(t, err)

	doc := BuildDocument(samplePaper(), sampleMeta())
	art, err := w.WriteArtifacts(doc, nil, 3*time.Second)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "science_2022.json"), art.JSONPath)

	data, err := os.ReadFile(art.JSONPath)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))

	// The screenshot key is always present, explicitly null before enrichment.
	val, ok := got["page_screenshot"]
	require.True(t, ok)
	require.Nil(t, val)

	require.Len(t, got["objectives"], 1)
	require.Len(t, got["theory"], 1)

	var round core.PaperDocument
	require.NoError(t, json.Unmarshal(data, &round))
	require.Equal(t, "science", round.Metadata.Subject)
	require.Equal(t, 2022, round.Metadata.Year)
	require.Equal(t, "Which gas do plants absorb?", round.Objectives[0].Text)
	require.Equal(t, "B", round.Objectives[0].CorrectAnswer)
}

func TestWriteArtifactsCSV(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir)
	require.NoError(t, err)

	doc := BuildDocument(samplePaper(), sampleMeta())
	_, err = w.WriteArtifacts(doc, nil, time.Second)
	require.NoError(t, err)

	f, err := os.Open(filepath.Join(dir, "science_2022.csv"))
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, CSVHeader, rows[0])

	obj := rows[1]
	require.Equal(t, "", obj[0])
	require.Equal(t, "objectives", obj[1])
	require.Equal(t, "1", obj[2])
	require.Equal(t, "A. oxygen | B. carbon dioxide | C. nitrogen | D. hydrogen", obj[4])
	require.Equal(t, "B", obj[5])
	require.Equal(t, "images/objectives/q1_diagram.png", obj[7])

	theory := rows[2]
	require.Equal(t, "theory", theory[1])
	require.Equal(t, "", theory[4])
	require.Equal(t, "", theory[5])
}

func TestWriteArtifactsMetadata(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir)
	require.NoError(t, err)

	rep := &images.Report{
		TotalImages: 2,
		Downloaded:  1,
		Failed:      1,
		DownloadedMap: map[string]string{
			"https://kuulchat.com/qns/q1.png": "images/objectives/q1_diagram.png",
		},
	}
	doc := BuildDocument(samplePaper(), sampleMeta())
	art, err := w.WriteArtifacts(doc, rep, 2500*time.Millisecond)
	require.NoError(t, err)

	data, err := os.ReadFile(art.MetadataPath)
	require.NoError(t, err)

	var meta Metadata
	require.NoError(t, json.Unmarshal(data, &meta))
	require.Equal(t, "science", meta.Subject)
	require.Equal(t, 2022, meta.Year)
	require.Equal(t, "2.0", meta.FormatVersion)
	require.Equal(t, 2, meta.Stats.TotalQuestions)
	require.Equal(t, 1, meta.Stats.ObjectiveQuestions)
	require.Equal(t, 1, meta.Stats.TheoryQuestions)
	require.Equal(t, 2.5, meta.Stats.ElapsedSeconds)
	require.Equal(t, 1, meta.Stats.QuestionsWithDiagrams["objectives"])
	require.Equal(t, 2, meta.Stats.ImageDownloads.TotalImagesExpected)
	require.Equal(t, 1, meta.Stats.ImageDownloads.FailedDownloads)
	require.Equal(t, "science_2022.json", meta.FileStructure["questions_json"])
}
