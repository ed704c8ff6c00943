package pipeline

import (
	"context"
	"errors"
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
	"github.com/menufeed/menufeed/internal/storage/badger"
)

const (
	stateReadyScript = `!!(window.__NEXT_DATA__ &&
	window.__NEXT_DATA__.props &&
	window.__NEXT_DATA__.props.pageProps &&
	window.__NEXT_DATA__.props.pageProps.foodResponse &&
	window.__NEXT_DATA__.props.pageProps.profile &&
	window.__NEXT_DATA__.props.pageProps.profile.token)`

	readStateScript = `(function() {
	var props = window.__NEXT_DATA__.props.pageProps;
	return {
		fileGroupId: props.foodResponse.fileGroupId,
		fileId: props.foodResponse.fileId,
		accessToken: props.profile.token.accessToken
	};
})()`
)

func testConfig(t *testing.T) *common.Config {
	config := common.NewDefaultConfig()
	config.Storage.Badger.Path = t.TempDir()
	config.Pipeline.MaxDuration = 5 * time.Second
	config.Pipeline.LoginButtonWait = 100 * time.Millisecond
	config.Pipeline.CredentialsWait = 100 * time.Millisecond
	config.Pipeline.SubmitWait = 100 * time.Millisecond
	config.Pipeline.LandingWait = 100 * time.Millisecond
	config.Pipeline.LoginRetryPause = time.Millisecond
	config.Pipeline.StateTimeout = 200 * time.Millisecond
	config.Pipeline.StatePollInterval = 10 * time.Millisecond
	config.Pipeline.HeartbeatInterval = 0
	config.Portal.RequestDelay = 0
	return config
}

func testSecrets() *common.Secrets {
	return &common.Secrets{
		PortalDomain:  "intranet.example.com",
		LoginID:       "svc-menufeed",
		LoginPassword: "hunter2",
	}
}

func newTestStorage(t *testing.T) interfaces.StorageManager {
	t.Helper()
	manager, err := badger.NewManager(common.GetLogger(), &common.BadgerConfig{Path: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { manager.Close() })
	return manager
}

// authenticatedMenuPage scripts a page already holding the injected state,
// with no login redirect.
func authenticatedMenuPage() *browsertest.FakePage {
	page := browsertest.NewFakePage()
	page.ConditionResults[stateReadyScript] = true
	page.EvaluateResults[readStateScript] = models.MenuFileHandle{
		FileGroupID: "fg-123",
		FileID:      "f-456",
		AccessToken: "tok-789",
	}
	return page
}

func menuImageServer(t *testing.T, status int, body []byte) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write(body)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestRunHappyPath(t *testing.T) {
	imageBytes := []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
	server := menuImageServer(t, http.StatusOK, imageBytes)

	page := authenticatedMenuPage()
	controller := browsertest.NewFakeController(page)
	storage := newTestStorage(t)

	service := NewService(testConfig(t), testSecrets(), controller, storage, common.GetLogger())
	service.Fetcher().SetBaseURL(server.URL)

	result, err := service.Run(context.Background())
	require.NoError(t, err)

	expectedPath := "menus/" + models.MenuFileName(time.Now())
	assert.Equal(t, expectedPath, result.Path)
	assert.GreaterOrEqual(t, result.TotalTime, int64(0))

	require.NotNil(t, result.Metrics)
	assert.Greater(t, result.Metrics.BrowserLaunchTime, int64(0))
	assert.Greater(t, result.Metrics.LoginTime, int64(0))
	assert.Greater(t, result.Metrics.ImageDownloadTime, int64(0))
	assert.Greater(t, result.Metrics.UploadTime, int64(0))
	assert.Equal(t, "COMPLETED", result.Metrics.CurrentStep())

	obj, err := storage.ObjectStorage().Get(context.Background(), "food-menus", result.Path)
	require.NoError(t, err)
	assert.Equal(t, imageBytes, obj.Data)

	count, err := storage.MenuStorage().Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRunWithLoginRedirect(t *testing.T) {
	server := menuImageServer(t, http.StatusOK, []byte("png bytes"))

	page := authenticatedMenuPage()
	page.VisibleSelectors["button.intranet-btn-normal"] = true
	page.VisibleSelectors["#txtUserID"] = true
	page.ConditionResults["!window.location.pathname.startsWith(\"/login\")"] = true
	page.ConditionResults["document.readyState === \"complete\""] = true

	// Navigation to the menu bounces to login until OnLogon() runs.
	authenticated := false
	page.OnNavigate = func(url string) string {
		if !authenticated {
			return "https://intranet.example.com/login?redirect=%2Ffood%2Fimage"
		}
		return ""
	}
	page.OnEvaluate = func(script string) {
		if script == "OnLogon()" {
			authenticated = true
			page.CurrentURL = "https://intranet.example.com/food/image"
		}
	}

	controller := browsertest.NewFakeController(page)
	storage := newTestStorage(t)

	service := NewService(testConfig(t), testSecrets(), controller, storage, common.GetLogger())
	service.Fetcher().SetBaseURL(server.URL)

	result, err := service.Run(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, result.Path)
	assert.Equal(t, 1, page.CallCount("Evaluate(OnLogon())"))
}

func TestRunBrowserLaunchFailure(t *testing.T) {
	controller := browsertest.NewFakeController(browsertest.NewFakePage())
	controller.AcquireErr = errors.New("chrome exited immediately")

	service := NewService(testConfig(t), testSecrets(), controller, newTestStorage(t), common.GetLogger())

	_, err := service.Run(context.Background())
	require.Error(t, err)

	var perr *models.PipelineError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, models.FailureBrowserLaunch, perr.Kind)
	require.NotNil(t, perr.Metrics)
	assert.Equal(t, "BROWSER_LAUNCH", perr.Metrics.CurrentStep())
}

func TestRunDownloadFailureCarriesPartialMetrics(t *testing.T) {
	server := menuImageServer(t, http.StatusForbidden, nil)

	page := authenticatedMenuPage()
	controller := browsertest.NewFakeController(page)

	service := NewService(testConfig(t), testSecrets(), controller, newTestStorage(t), common.GetLogger())
	service.Fetcher().SetBaseURL(server.URL)

	_, err := service.Run(context.Background())
	require.Error(t, err)

	var perr *models.PipelineError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, models.FailureAssetDownload, perr.Kind)
	assert.Equal(t, http.StatusForbidden, perr.HTTPStatus)

	require.NotNil(t, perr.Metrics)
	assert.Greater(t, perr.Metrics.BrowserLaunchTime, int64(0))
	assert.Greater(t, perr.Metrics.LoginTime, int64(0))
	assert.Zero(t, perr.Metrics.ImageDownloadTime)
	assert.Equal(t, "IMAGE_DOWNLOAD", perr.Metrics.CurrentStep())

	// Failure forensics touched the page
	assert.GreaterOrEqual(t, page.CallCount("Content()"), 1)
}

func TestRunStateExtractionTimeout(t *testing.T) {
	page := browsertest.NewFakePage() // state never appears
	controller := browsertest.NewFakeController(page)

	service := NewService(testConfig(t), testSecrets(), controller, newTestStorage(t), common.GetLogger())

	_, err := service.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, models.FailureStateExtraction, models.FailureKindOf(err))
}
