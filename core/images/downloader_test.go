package images

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"beceharvest/core"
	"beceharvest/core/retry"
)

func fastPolicy() retry.Policy {
	return retry.Policy{MaxAttempts: 2, BaseDelay: time.Millisecond}
}

func TestDownloadAllWritesImages(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		if r.URL.Path == "/qns/missing.png" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("png-bytes"))
	}))
	defer srv.Close()

	paper := &core.ParsedPaper{
		Objectives: []core.QuestionRecord{
			{Section: core.SectionObjectives, Number: 3, ImageRefs: []string{"/qns/q3.png"}},
			{Section: core.SectionObjectives, Number: 7, ImageRefs: []string{"/qns/missing.png"}},
		},
		Theory: []core.QuestionRecord{
			{Section: core.SectionTheory, Number: 1, ImageRefs: []string{"/qns/t1.jpg"}},
		},
	}

	dir := t.TempDir()
	rep, err := New(WithPolicy(fastPolicy())).DownloadAll(context.Background(), paper, srv.URL, dir)
	require.NoError(t, err)

	require.Equal(t, core.UserAgent, gotUA)
	require.Equal(t, 3, rep.TotalImages)
	require.Equal(t, 2, rep.Downloaded)
	require.Equal(t, 1, rep.Failed)
	require.Len(t, rep.Failures, 1)
	require.Equal(t, srv.URL+"/qns/missing.png", rep.Failures[0].URL)

	require.FileExists(t, filepath.Join(dir, "images", "objectives", "q3_diagram.png"))
	require.FileExists(t, filepath.Join(dir, "images", "theory", "q1_diagram.jpg"))

	data, err := os.ReadFile(filepath.Join(dir, "images", "objectives", "q3_diagram.png"))
	require.NoError(t, err)
	require.Equal(t, "png-bytes", string(data))

	// Records carry the relative paths of the images that made it.
	require.Equal(t, []string{"images/objectives/q3_diagram.png"}, paper.Objectives[0].ImagePaths)
	require.Empty(t, paper.Objectives[1].ImagePaths)
}

func TestDownloadAllReusesDuplicateURLs(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte("shared"))
	}))
	defer srv.Close()

	paper := &core.ParsedPaper{
		Objectives: []core.QuestionRecord{
			{Section: core.SectionObjectives, Number: 1, ImageRefs: []string{"/qns/shared.png"}},
			{Section: core.SectionObjectives, Number: 2, ImageRefs: []string{"/qns/shared.png"}},
		},
	}

	rep, err := New(WithPolicy(fastPolicy())).DownloadAll(context.Background(), paper, srv.URL, t.TempDir())
	require.NoError(t, err)
	require.Equal(t, 1, hits)
	require.Equal(t, 2, rep.Downloaded)
	require.Equal(t, paper.Objectives[0].ImagePaths, paper.Objectives[1].ImagePaths)
}

func TestDownloadAllRetriesTransientFailures(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if hits == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	paper := &core.ParsedPaper{
		Objectives: []core.QuestionRecord{
			{Section: core.SectionObjectives, Number: 5, ImageRefs: []string{"/qns/q5.gif"}},
		},
	}

	rep, err := New(WithPolicy(fastPolicy())).DownloadAll(context.Background(), paper, srv.URL, t.TempDir())
	require.NoError(t, err)
	require.Equal(t, 2, hits)
	require.Equal(t, 1, rep.Downloaded)
	require.Zero(t, rep.Failed)
}

func TestDiagramName(t *testing.T) {
	require.Equal(t, "q4_diagram.png", diagramName(4, 0, "https://kuulchat.com/qns/x.png"))
	require.Equal(t, "q4_diagram_2.jpeg", diagramName(4, 1, "https://kuulchat.com/qns/y.jpeg"))
	// No extension falls back to .jpg.
	require.Equal(t, "q9_diagram.jpg", diagramName(9, 0, "https://kuulchat.com/qns/raw"))
}
