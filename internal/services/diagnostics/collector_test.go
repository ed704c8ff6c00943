package diagnostics

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/menufeed/menufeed/internal/browser/browsertest"
	"github.com/menufeed/menufeed/internal/common"
	"github.com/menufeed/menufeed/internal/models"
)

func TestPhaseTimingsLandInMetrics(t *testing.T) {
	collector := NewCollector("run-1", common.GetLogger())
	collector.RunStarted()

	collector.StartPhase(PhaseBrowserLaunch)()
	collector.StartPhase(PhaseLogin)()

	metrics := collector.Metrics()
	assert.Greater(t, metrics.BrowserLaunchTime, int64(0))
	assert.Greater(t, metrics.LoginTime, int64(0))
	assert.Zero(t, metrics.ImageDownloadTime)
	assert.Equal(t, "IMAGE_DOWNLOAD", metrics.CurrentStep())
}

func TestSnapshotCollectsBestEffort(t *testing.T) {
	page := browsertest.NewFakePage()
	page.CurrentURL = "https://intranet.example.com/login"
	page.HTML = "<html><body>login</body></html>"
	page.CookieList = []models.PageCookie{{Name: "session", Value: "abc"}}
	page.EvaluateResults["document.readyState"] = "interactive"
	// Navigator and performance probes fail; the snapshot still carries the rest
	page.EvaluateErr[navigatorScript] = errors.New("page crashed")
	page.EvaluateErr[performanceScript] = errors.New("page crashed")

	collector := NewCollector("run-1", common.GetLogger())
	snapshot := collector.Snapshot(context.Background(), page)

	assert.Equal(t, "https://intranet.example.com/login", snapshot.URL)
	assert.Equal(t, page.HTML, snapshot.HTML)
	assert.Len(t, snapshot.Cookies, 1)
	assert.Equal(t, "interactive", snapshot.ReadyState)
	assert.Nil(t, snapshot.Navigator)
	assert.Nil(t, snapshot.Perf)
}
