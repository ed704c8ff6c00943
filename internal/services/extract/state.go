// -----------------------------------------------------------------------
// State Extraction - injected page state polling
// -----------------------------------------------------------------------

package extract

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/menufeed/menufeed/internal/common"
	"github.com/menufeed/menufeed/internal/interfaces"
	"github.com/menufeed/menufeed/internal/models"
)

// stateReadyScript is satisfied once the portal's client framework has
// injected both the menu file descriptor and the session profile.
const stateReadyScript = `!!(window.__NEXT_DATA__ &&
	window.__NEXT_DATA__.props &&
	window.__NEXT_DATA__.props.pageProps &&
	window.__NEXT_DATA__.props.pageProps.foodResponse &&
	window.__NEXT_DATA__.props.pageProps.profile &&
	window.__NEXT_DATA__.props.pageProps.profile.token)`

// readStateScript projects the injected state into the file handle shape.
const readStateScript = `(function() {
	var props = window.__NEXT_DATA__.props.pageProps;
	return {
		fileGroupId: props.foodResponse.fileGroupId,
		fileId: props.foodResponse.fileId,
		accessToken: props.profile.token.accessToken
	};
})()`

// heartbeatScript samples page readiness for diagnostics while waiting.
const heartbeatScript = `({
	hasState: !!window.__NEXT_DATA__,
	url: window.location.href,
	ready: document.readyState
})`

// Extractor polls the menu page for its injected state object and reads the
// file handle out of it. It never navigates or mutates the page.
type Extractor struct {
	config *common.PipelineConfig
	logger arbor.ILogger
}

// NewExtractor creates a state extractor.
func NewExtractor(config *common.PipelineConfig, logger arbor.ILogger) *Extractor {
	return &Extractor{
		config: config,
		logger: logger,
	}
}

// Extract waits for the injected state to appear and returns the validated
// file handle. While waiting, a heartbeat goroutine samples page readiness so
// a timeout leaves a trail of what the page looked like.
func (e *Extractor) Extract(ctx context.Context, page interfaces.RemotePage) (*models.MenuFileHandle, error) {
	stopHeartbeat := e.startHeartbeat(ctx, page)
	defer stopHeartbeat()

	if err := page.WaitForCondition(ctx, stateReadyScript,
		e.config.StateTimeout, e.config.StatePollInterval); err != nil {
		return nil, models.NewPipelineError(models.FailureStateExtraction,
			fmt.Errorf("page state not injected within %s: %w", e.config.StateTimeout, err))
	}

	var handle models.MenuFileHandle
	if err := page.Evaluate(ctx, readStateScript, &handle); err != nil {
		return nil, models.NewPipelineError(models.FailureStateExtraction,
			fmt.Errorf("failed to read page state: %w", err))
	}

	if err := handle.Validate(); err != nil {
		return nil, models.NewPipelineError(models.FailureStateExtraction,
			fmt.Errorf("page state incomplete: %w", err))
	}

	e.logger.Debug().
		Str("file_group_id", handle.FileGroupID).
		Str("file_id", handle.FileID).
		Msg("Page state extracted")

	return &handle, nil
}

// startHeartbeat samples the page at the configured interval until the
// returned stop function runs. Sampling failures are logged and ignored; the
// heartbeat is diagnostic only.
func (e *Extractor) startHeartbeat(ctx context.Context, page interfaces.RemotePage) func() {
	if e.config.HeartbeatInterval <= 0 {
		return func() {}
	}

	done := make(chan struct{})
	finished := make(chan struct{})

	go func() {
		defer close(finished)
		ticker := time.NewTicker(e.config.HeartbeatInterval)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				var sample map[string]interface{}
				if err := page.Evaluate(ctx, heartbeatScript, &sample); err != nil {
					e.logger.Debug().Err(err).Msg("Heartbeat sample failed")
					continue
				}
				e.logger.Debug().
					Str("url", fmt.Sprintf("%v", sample["url"])).
					Str("ready_state", fmt.Sprintf("%v", sample["ready"])).
					Bool("has_state", sample["hasState"] == true).
					Msg("Waiting for page state")
			}
		}
	}()

	return func() {
		close(done)
		<-finished
	}
}
