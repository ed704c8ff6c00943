package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menufeed/menufeed/internal/browser/browsertest"
	"github.com/menufeed/menufeed/internal/common"
	"github.com/menufeed/menufeed/internal/interfaces"
	"github.com/menufeed/menufeed/internal/models"
	"github.com/menufeed/menufeed/internal/services/pipeline"
	"github.com/menufeed/menufeed/internal/services/scheduler"
	"github.com/menufeed/menufeed/internal/storage/badger"
)

const (
	testStateReadyScript = `!!(window.__NEXT_DATA__ &&
	window.__NEXT_DATA__.props &&
	window.__NEXT_DATA__.props.pageProps &&
	window.__NEXT_DATA__.props.pageProps.foodResponse &&
	window.__NEXT_DATA__.props.pageProps.profile &&
	window.__NEXT_DATA__.props.pageProps.profile.token)`

	testReadStateScript = `(function() {
	var props = window.__NEXT_DATA__.props.pageProps;
	return {
		fileGroupId: props.foodResponse.fileGroupId,
		fileId: props.foodResponse.fileId,
		accessToken: props.profile.token.accessToken
	};
})()`
)

// newMenuFixture wires a trigger handler over a fake browser, a local image
// server, and a temp badger store.
func newMenuFixture(t *testing.T, imageStatus int, imageBody []byte) (*MenuHandler, interfaces.StorageManager) {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(imageStatus)
		w.Write(imageBody)
	}))
	t.Cleanup(server.Close)

	config := common.NewDefaultConfig()
	config.Storage.Badger.Path = t.TempDir()
	config.Pipeline.MaxDuration = 5 * time.Second
	config.Pipeline.StateTimeout = 200 * time.Millisecond
	config.Pipeline.StatePollInterval = 10 * time.Millisecond
	config.Pipeline.HeartbeatInterval = 0
	config.Portal.RequestDelay = 0

	secrets := &common.Secrets{
		PortalDomain:  "intranet.example.com",
		LoginID:       "svc-menufeed",
		LoginPassword: "hunter2",
	}

	storage, err := badger.NewManager(common.GetLogger(), &config.Storage.Badger)
	require.NoError(t, err)
	t.Cleanup(func() { storage.Close() })

	page := browsertest.NewFakePage()
	page.ConditionResults[testStateReadyScript] = true
	page.EvaluateResults[testReadStateScript] = models.MenuFileHandle{
		FileGroupID: "fg-123",
		FileID:      "f-456",
		AccessToken: "tok-789",
	}

	pipelineService := pipeline.NewService(config, secrets, browsertest.NewFakeController(page), storage, common.GetLogger())
	pipelineService.Fetcher().SetBaseURL(server.URL)

	trigger := scheduler.NewService(&config.Scheduler, pipelineService, common.GetLogger())
	return NewMenuHandler(trigger, common.GetLogger()), storage
}

func TestTriggerSuccess(t *testing.T) {
	handler, storage := newMenuFixture(t, http.StatusOK, []byte("png bytes"))

	req := httptest.NewRequest("GET", "/api/menu", nil)
	rec := httptest.NewRecorder()
	handler.TriggerHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Success   bool                  `json:"success"`
		Path      string                `json:"path"`
		Metrics   models.ProcessMetrics `json:"metrics"`
		TotalTime int64                 `json:"totalTime"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	assert.True(t, body.Success)
	assert.Equal(t, "menus/"+models.MenuFileName(time.Now()), body.Path)
	assert.Greater(t, body.Metrics.BrowserLaunchTime, int64(0))
	assert.Greater(t, body.Metrics.UploadTime, int64(0))

	count, err := storage.MenuStorage().Count(req.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestTriggerFailureReturnsDetailsAndMetrics(t *testing.T) {
	handler, _ := newMenuFixture(t, http.StatusForbidden, nil)

	req := httptest.NewRequest("GET", "/api/menu", nil)
	rec := httptest.NewRecorder()
	handler.TriggerHandler(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var body struct {
		Error        string                 `json:"error"`
		ErrorDetails string                 `json:"errorDetails"`
		Timestamp    string                 `json:"timestamp"`
		Metrics      *models.ProcessMetrics `json:"metrics"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	assert.Equal(t, "Failed to process menu", body.Error)
	assert.Contains(t, body.ErrorDetails, "403")
	_, err := time.Parse(time.RFC3339, body.Timestamp)
	assert.NoError(t, err)

	require.NotNil(t, body.Metrics)
	assert.Greater(t, body.Metrics.LoginTime, int64(0))
	assert.Zero(t, body.Metrics.ImageDownloadTime)
}

func TestTriggerRejectsNonGET(t *testing.T) {
	handler, _ := newMenuFixture(t, http.StatusOK, []byte("png bytes"))

	req := httptest.NewRequest("POST", "/api/menu", nil)
	rec := httptest.NewRecorder()
	handler.TriggerHandler(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
