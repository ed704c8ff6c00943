// -----------------------------------------------------------------------
// Diagnostics - phase timings, run events, failure forensics
// -----------------------------------------------------------------------

package diagnostics

import (
	"context"
	"os"
	"time"

	"github.com/shirou/gopsutil/v4/process"
	"github.com/ternarybob/arbor"

	"github.com/menufeed/menufeed/internal/interfaces"
	"github.com/menufeed/menufeed/internal/models"
)

// Phase names a timed pipeline segment.
type Phase string

const (
	PhaseBrowserLaunch Phase = "browser_launch"
	PhaseLogin         Phase = "login"
	PhaseDownload      Phase = "image_download"
	PhaseUpload        Phase = "upload"
)

// Collector accumulates one run's phase timings and emits structured run
// events. A collector belongs to a single run and is not reused.
type Collector struct {
	runID   string
	metrics *models.ProcessMetrics
	started time.Time
	logger  arbor.ILogger
}

// NewCollector creates a collector for one pipeline run.
func NewCollector(runID string, logger arbor.ILogger) *Collector {
	return &Collector{
		runID:   runID,
		metrics: &models.ProcessMetrics{},
		logger:  logger,
	}
}

// Metrics returns the timings recorded so far. The pointer stays valid for
// the life of the run; failures report partial timings through it.
func (c *Collector) Metrics() *models.ProcessMetrics {
	return c.metrics
}

// RunStarted marks the beginning of the run.
func (c *Collector) RunStarted() {
	c.started = time.Now()
	c.logger.Info().
		Str("run_id", c.runID).
		Msg("Menu pipeline run started")
}

// StartPhase begins timing a phase. The returned stop function records the
// elapsed milliseconds into the metrics slot for that phase.
func (c *Collector) StartPhase(phase Phase) func() {
	phaseStart := time.Now()
	return func() {
		elapsed := time.Since(phaseStart)
		ms := elapsed.Milliseconds()
		if ms == 0 {
			ms = 1 // Sub-millisecond phases still count as reached
		}

		switch phase {
		case PhaseBrowserLaunch:
			c.metrics.BrowserLaunchTime = ms
		case PhaseLogin:
			c.metrics.LoginTime = ms
		case PhaseDownload:
			c.metrics.ImageDownloadTime = ms
		case PhaseUpload:
			c.metrics.UploadTime = ms
		}

		c.logger.Debug().
			Str("run_id", c.runID).
			Str("phase", string(phase)).
			Dur("elapsed", elapsed).
			Msg("Pipeline phase completed")
	}
}

// RunSucceeded emits the success summary with the full timing breakdown.
func (c *Collector) RunSucceeded(path string) {
	c.logger.Info().
		Str("run_id", c.runID).
		Str("path", path).
		Int64("browser_launch_ms", c.metrics.BrowserLaunchTime).
		Int64("login_ms", c.metrics.LoginTime).
		Int64("download_ms", c.metrics.ImageDownloadTime).
		Int64("upload_ms", c.metrics.UploadTime).
		Int64("total_ms", time.Since(c.started).Milliseconds()).
		Int64("rss_bytes", residentMemory()).
		Msg("Menu pipeline run succeeded")
}

// RunFailed emits the failure summary with the phase reached and partial
// timings.
func (c *Collector) RunFailed(err error) {
	c.logger.Error().
		Str("run_id", c.runID).
		Str("phase", c.metrics.CurrentStep()).
		Str("failure_kind", string(models.FailureKindOf(err))).
		Int64("total_ms", time.Since(c.started).Milliseconds()).
		Int64("rss_bytes", residentMemory()).
		Err(err).
		Msg("Menu pipeline run failed")
}

// residentMemory samples the process RSS. Returns 0 when sampling fails;
// memory figures are informational only.
func residentMemory() int64 {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return 0
	}
	info, err := proc.MemoryInfo()
	if err != nil || info == nil {
		return 0
	}
	return int64(info.RSS)
}

// Snapshot captures the page's observable state for failure forensics. Every
// probe is independently guarded; a page too broken to answer one question
// can still answer the others.
func (c *Collector) Snapshot(ctx context.Context, page interfaces.RemotePage) *models.PageSnapshot {
	snapshot := &models.PageSnapshot{}

	if url, err := page.Location(ctx); err == nil {
		snapshot.URL = url
	} else {
		c.logger.Debug().Err(err).Msg("Snapshot: location unavailable")
	}

	if html, err := page.Content(ctx); err == nil {
		snapshot.HTML = html
	} else {
		c.logger.Debug().Err(err).Msg("Snapshot: content unavailable")
	}

	if cookies, err := page.Cookies(ctx); err == nil {
		snapshot.Cookies = cookies
	} else {
		c.logger.Debug().Err(err).Msg("Snapshot: cookies unavailable")
	}

	var navigator map[string]interface{}
	if err := page.Evaluate(ctx, navigatorScript, &navigator); err == nil {
		snapshot.Navigator = navigator
	} else {
		c.logger.Debug().Err(err).Msg("Snapshot: navigator unavailable")
	}

	var perf map[string]interface{}
	if err := page.Evaluate(ctx, performanceScript, &perf); err == nil {
		snapshot.Perf = perf
	} else {
		c.logger.Debug().Err(err).Msg("Snapshot: performance unavailable")
	}

	var readyState string
	if err := page.Evaluate(ctx, "document.readyState", &readyState); err == nil {
		snapshot.ReadyState = readyState
	}

	c.logger.Warn().
		Str("run_id", c.runID).
		Str("url", snapshot.URL).
		Str("ready_state", snapshot.ReadyState).
		Int("html_bytes", len(snapshot.HTML)).
		Int("cookies", len(snapshot.Cookies)).
		Msg("Forensic page snapshot captured")

	return snapshot
}

const navigatorScript = `({
	userAgent: navigator.userAgent,
	language: navigator.language,
	onLine: navigator.onLine,
	webdriver: navigator.webdriver
})`

const performanceScript = `(function() {
	var t = performance.timing;
	return {
		navigationStart: t.navigationStart,
		domContentLoaded: t.domContentLoadedEventEnd,
		loadEventEnd: t.loadEventEnd
	};
})()`
