package imagekit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"beceharvest/core"
	"beceharvest/core/config"
	"beceharvest/core/retry"
)

func testCreds() config.ImageKit {
	return config.ImageKit{
		PublicKey:   "public_test",
		PrivateKey:  "private_test",
		URLEndpoint: "https://ik.imagekit.io/demo",
	}
}

func fastPolicy() retry.Policy {
	return retry.Policy{MaxAttempts: 2, BaseDelay: time.Millisecond}
}

func TestUploadSendsMultipartForm(t *testing.T) {
	var gotUser, gotFolder, gotName, gotUnique, gotMeta string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, _, ok := r.BasicAuth()
		require.True(t, ok)
		gotUser = user

		require.NoError(t, r.ParseMultipartForm(1<<20))
		gotFolder = r.FormValue("folder")
		gotName = r.FormValue("fileName")
		gotUnique = r.FormValue("useUniqueFileName")
		gotMeta = r.FormValue("customMetadata")

		file, _, err := r.FormFile("file")
		require.NoError(t, err)
		file.Close()

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"url":    "https://ik.imagekit.io/demo/screenshots/science/2022/science_2022.png",
			"fileId": "abc123",
		})
	}))
	defer srv.Close()

	c := New(testCreds(), WithUploadURL(srv.URL), WithPolicy(fastPolicy()))
	res, err := c.Upload(context.Background(), core.UploadRequest{
		Data:      []byte("png-bytes"),
		FileName:  "science_2022_20260830_100000.png",
		Folder:    "/screenshots/science/2022/",
		Tags:      []string{"bece", "science"},
		SourceURL: "https://kuulchat.com/bece/questions/science-2022/",
	})
	require.NoError(t, err)
	require.Equal(t, "https://ik.imagekit.io/demo/screenshots/science/2022/science_2022.png", res.URL)
	require.Equal(t, "abc123", res.FileID)

	require.Equal(t, "private_test", gotUser)
	require.Equal(t, "/screenshots/science/2022/", gotFolder)
	require.Equal(t, "science_2022_20260830_100000.png", gotName)
	require.Equal(t, "false", gotUnique)
	require.JSONEq(t, `{"source_url": "https://kuulchat.com/bece/questions/science-2022/"}`, gotMeta)
}

func TestUploadRetriesThenFails(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(testCreds(), WithUploadURL(srv.URL), WithPolicy(fastPolicy()))
	_, err := c.Upload(context.Background(), core.UploadRequest{
		Data:     []byte("x"),
		FileName: "f.png",
	})
	require.ErrorIs(t, err, core.ErrUpload)
	require.Equal(t, 2, hits)
}

func TestUploadWithoutCredentials(t *testing.T) {
	c := New(config.ImageKit{}, WithPolicy(fastPolicy()))
	_, err := c.Upload(context.Background(), core.UploadRequest{FileName: "f.png"})
	require.ErrorIs(t, err, core.ErrUpload)
}

func TestFolderAndFileName(t *testing.T) {
	require.Equal(t, "/screenshots/science/2022/", Folder("science", 2022))

	ts := time.Date(2026, 8, 30, 10, 4, 5, 0, time.UTC)
	require.Equal(t, "mathematics_2019_20260830_100405.png", FileName("mathematics", 2019, ts))
}
