// -----------------------------------------------------------------------
// Asset Fetcher - direct authenticated download of the menu image
// -----------------------------------------------------------------------

package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/menufeed/menufeed/internal/models"
)

// Fetcher downloads the menu asset over plain HTTP using credentials lifted
// from the browser session. Exactly one request per pipeline run; a failed
// download fails the run, it is never retried.
type Fetcher struct {
	client  *resty.Client
	limiter *rate.Limiter
	baseURL string
	referer string
	logger  arbor.ILogger
}

// NewFetcher creates a fetcher for the given portal domain. The referer must
// be the menu page URL; the portal's file proxy rejects requests without it.
func NewFetcher(domain, referer string, timeout, requestDelay time.Duration, logger arbor.ILogger) *Fetcher {
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Accept", "image/png,image/*")

	limit := rate.Inf
	if requestDelay > 0 {
		limit = rate.Every(requestDelay)
	}

	return &Fetcher{
		client:  client,
		limiter: rate.NewLimiter(limit, 1),
		baseURL: "https://" + domain,
		referer: referer,
		logger:  logger,
	}
}

// SetBaseURL overrides the scheme and host used to build download URLs.
func (f *Fetcher) SetBaseURL(base string) {
	f.baseURL = base
}

// Download fetches the asset the handle points at and returns its bytes. The
// handle is validated before any network activity.
func (f *Fetcher) Download(ctx context.Context, handle *models.MenuFileHandle) ([]byte, error) {
	if err := handle.Validate(); err != nil {
		return nil, models.NewPipelineError(models.FailureAssetDownload,
			fmt.Errorf("incomplete file handle: %w", err))
	}

	if err := f.limiter.Wait(ctx); err != nil {
		return nil, models.NewPipelineError(models.FailureAssetDownload, err)
	}

	url := fmt.Sprintf("%s/proxy/files/%s/file/%s/download",
		f.baseURL, handle.FileGroupID, handle.FileID)

	startTime := time.Now()
	resp, err := f.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+handle.AccessToken).
		SetHeader("Referer", f.referer).
		Get(url)
	if err != nil {
		return nil, models.NewPipelineError(models.FailureAssetDownload,
			fmt.Errorf("download request failed: %w", err))
	}

	if !resp.IsSuccess() {
		return nil, &models.PipelineError{
			Kind:       models.FailureAssetDownload,
			Err:        fmt.Errorf("download returned status %d", resp.StatusCode()),
			HTTPStatus: resp.StatusCode(),
		}
	}

	data := resp.Body()
	if len(data) == 0 {
		return nil, models.NewPipelineError(models.FailureAssetDownload,
			fmt.Errorf("download returned empty body"))
	}

	f.logger.Debug().
		Int("bytes", len(data)).
		Dur("elapsed", time.Since(startTime)).
		Msg("Menu asset downloaded")

	return data, nil
}
