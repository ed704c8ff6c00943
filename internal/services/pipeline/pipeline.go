// -----------------------------------------------------------------------
// Pipeline - end-to-end menu scrape orchestration
// -----------------------------------------------------------------------

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/menufeed/menufeed/internal/common"
	"github.com/menufeed/menufeed/internal/interfaces"
	"github.com/menufeed/menufeed/internal/models"
	"github.com/menufeed/menufeed/internal/services/auth"
	"github.com/menufeed/menufeed/internal/services/diagnostics"
	"github.com/menufeed/menufeed/internal/services/extract"
	"github.com/menufeed/menufeed/internal/services/fetch"
	"github.com/menufeed/menufeed/internal/services/ingest"
)

// snapshotBudget bounds forensic capture after a failure. Capture runs on its
// own context because the run context is usually already dead at that point.
const snapshotBudget = 5 * time.Second

// Result is the outcome of a successful pipeline run.
type Result struct {
	Path      string                 // Object key of the stored image
	Metrics   *models.ProcessMetrics // Per-phase timings
	TotalTime int64                  // Wall time for the whole run, milliseconds
}

// Service runs the scrape pipeline: acquire a browser, authenticate, extract
// the injected file handle, download the image, persist it. One run at a
// time; runs are independent and share no browser state.
type Service struct {
	config    *common.Config
	secrets   *common.Secrets
	browser   interfaces.BrowserController
	authFlow  *auth.Flow
	extractor *extract.Extractor
	fetcher   *fetch.Fetcher
	sink      *ingest.Sink
	logger    arbor.ILogger
}

// NewService wires the pipeline stages together.
func NewService(config *common.Config, secrets *common.Secrets, browser interfaces.BrowserController,
	storage interfaces.StorageManager, logger arbor.ILogger) *Service {

	menuURL := secrets.MenuURL(config.Portal.MenuPath)

	return &Service{
		config:    config,
		secrets:   secrets,
		browser:   browser,
		authFlow:  auth.NewFlow(&config.Pipeline, config.Portal.LoginPath, secrets, logger),
		extractor: extract.NewExtractor(&config.Pipeline, logger),
		fetcher: fetch.NewFetcher(secrets.PortalDomain, menuURL,
			config.Portal.RequestTimeout, config.Portal.RequestDelay, logger),
		sink:   ingest.NewSink(&config.Storage, storage, logger),
		logger: logger,
	}
}

// Fetcher returns the pipeline's asset fetcher. Test hook for redirecting
// downloads at a local server.
func (s *Service) Fetcher() *fetch.Fetcher {
	return s.fetcher
}

// Run executes one full pipeline run under the configured duration ceiling.
// Failures come back as a classified error carrying the partial phase
// timings.
func (s *Service) Run(ctx context.Context) (*Result, error) {
	runID := uuid.NewString()
	logger := s.logger.WithCorrelationId(runID)

	ctx, cancel := context.WithTimeout(ctx, s.config.Pipeline.MaxDuration)
	defer cancel()

	collector := diagnostics.NewCollector(runID, logger)
	collector.RunStarted()
	startTime := time.Now()

	path, err := s.run(ctx, collector, logger)
	if err != nil {
		var perr *models.PipelineError
		if !errors.As(err, &perr) {
			perr = models.NewPipelineError(models.FailureUnknown, err)
		}
		perr.Metrics = collector.Metrics()
		collector.RunFailed(perr)
		return nil, perr
	}

	result := &Result{
		Path:      path,
		Metrics:   collector.Metrics(),
		TotalTime: time.Since(startTime).Milliseconds(),
	}
	collector.RunSucceeded(path)
	return result, nil
}

func (s *Service) run(ctx context.Context, collector *diagnostics.Collector, logger arbor.ILogger) (string, error) {
	menuURL := s.secrets.MenuURL(s.config.Portal.MenuPath)

	// Browser launch
	stopLaunch := collector.StartPhase(diagnostics.PhaseBrowserLaunch)
	session, err := s.browser.Acquire(ctx)
	if err != nil {
		return "", models.NewPipelineError(models.FailureBrowserLaunch, err)
	}
	stopLaunch()
	defer session.Release()

	page := session.Page()

	if err := page.Navigate(ctx, menuURL); err != nil {
		s.snapshot(collector, page)
		return "", fmt.Errorf("failed to reach menu page: %w", err)
	}

	// Authentication; the portal redirects unauthenticated sessions to login
	stopLogin := collector.StartPhase(diagnostics.PhaseLogin)
	required, err := s.authFlow.Required(ctx, page)
	if err != nil {
		s.snapshot(collector, page)
		return "", err
	}
	if required {
		logger.Debug().Msg("Session redirected to login, authenticating")
		if err := s.authFlow.Login(ctx, page); err != nil {
			s.snapshot(collector, page)
			return "", err
		}
		if err := s.returnToMenu(ctx, page, menuURL); err != nil {
			s.snapshot(collector, page)
			return "", err
		}
	}
	stopLogin()

	// State extraction and download share the download phase; the step
	// breakdown in metrics treats everything between login and upload as
	// image retrieval.
	stopDownload := collector.StartPhase(diagnostics.PhaseDownload)
	handle, err := s.extractor.Extract(ctx, page)
	if err != nil {
		s.snapshot(collector, page)
		return "", err
	}

	data, err := s.fetcher.Download(ctx, handle)
	if err != nil {
		s.snapshot(collector, page)
		return "", err
	}
	stopDownload()

	// The browser is no longer needed; release before the storage writes so
	// Chrome never outlives its usefulness on slow disks.
	session.Release()

	stopUpload := collector.StartPhase(diagnostics.PhaseUpload)
	path, err := s.sink.Store(ctx, data, time.Now())
	if err != nil {
		return "", err
	}
	stopUpload()

	return path, nil
}

// returnToMenu brings the page back to the menu after authentication when the
// portal's post-login redirect landed somewhere else.
func (s *Service) returnToMenu(ctx context.Context, page interfaces.RemotePage, menuURL string) error {
	url, err := page.Location(ctx)
	if err != nil {
		return fmt.Errorf("failed to read post-login location: %w", err)
	}
	if strings.Contains(url, s.config.Portal.MenuPath) {
		return nil
	}
	if err := page.Navigate(ctx, menuURL); err != nil {
		return fmt.Errorf("failed to return to menu page: %w", err)
	}
	return nil
}

// snapshot captures failure forensics on a short independent deadline.
func (s *Service) snapshot(collector *diagnostics.Collector, page interfaces.RemotePage) {
	ctx, cancel := context.WithTimeout(context.Background(), snapshotBudget)
	defer cancel()
	collector.Snapshot(ctx, page)
}
