package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menufeed/menufeed/internal/common"
	"github.com/menufeed/menufeed/internal/models"
)

func testHandle() *models.MenuFileHandle {
	return &models.MenuFileHandle{
		FileGroupID: "fg-123",
		FileID:      "f-456",
		AccessToken: "tok-789",
	}
}

func newTestFetcher(baseURL string) *Fetcher {
	f := NewFetcher("intranet.example.com", "https://intranet.example.com/food/image",
		5*time.Second, 0, common.GetLogger())
	f.SetBaseURL(baseURL)
	return f
}

func TestDownloadSendsCredentials(t *testing.T) {
	imageBytes := []byte{0x89, 0x50, 0x4E, 0x47}

	var gotPath, gotAuth, gotReferer string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotReferer = r.Header.Get("Referer")
		w.Header().Set("Content-Type", "image/png")
		w.Write(imageBytes)
	}))
	defer server.Close()

	fetcher := newTestFetcher(server.URL)
	data, err := fetcher.Download(context.Background(), testHandle())
	require.NoError(t, err)

	assert.Equal(t, imageBytes, data)
	assert.Equal(t, "/proxy/files/fg-123/file/f-456/download", gotPath)
	assert.Equal(t, "Bearer tok-789", gotAuth)
	assert.Equal(t, "https://intranet.example.com/food/image", gotReferer)
}

func TestDownloadFailsOnForbiddenWithoutRetry(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	fetcher := newTestFetcher(server.URL)
	_, err := fetcher.Download(context.Background(), testHandle())
	require.Error(t, err)

	var perr *models.PipelineError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, models.FailureAssetDownload, perr.Kind)
	assert.Equal(t, http.StatusForbidden, perr.HTTPStatus)
	assert.Equal(t, 1, calls, "a failed download is never retried")
}

func TestDownloadRejectsEmptyBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	fetcher := newTestFetcher(server.URL)
	_, err := fetcher.Download(context.Background(), testHandle())
	require.Error(t, err)
	assert.Equal(t, models.FailureAssetDownload, models.FailureKindOf(err))
}

func TestDownloadValidatesHandleBeforeNetwork(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer server.Close()

	fetcher := newTestFetcher(server.URL)
	_, err := fetcher.Download(context.Background(), &models.MenuFileHandle{FileGroupID: "fg-123"})
	require.Error(t, err)

	assert.Equal(t, models.FailureAssetDownload, models.FailureKindOf(err))
	assert.Equal(t, 0, calls, "invalid handles must fail before any request")
}
