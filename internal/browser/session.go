// -----------------------------------------------------------------------
// Browser Session Controller - headless Chrome lifecycle
// -----------------------------------------------------------------------

package browser

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"

	"github.com/menufeed/menufeed/internal/common"
	"github.com/menufeed/menufeed/internal/interfaces"
)

// Controller launches and owns headless Chrome sessions. One session owns one
// browser process and exactly one page; sessions are never shared across
// pipeline runs.
type Controller struct {
	config *common.BrowserConfig
	logger arbor.ILogger
}

// NewController creates a new browser session controller
func NewController(config *common.BrowserConfig, logger arbor.ILogger) *Controller {
	return &Controller{
		config: config,
		logger: logger,
	}
}

// Acquire launches a browser process and verifies it responds. The returned
// session must be released on every exit path; Release is idempotent.
func (c *Controller) Acquire(ctx context.Context) (interfaces.BrowserSession, error) {
	startTime := time.Now()

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), c.allocatorOptions()...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	session := &Session{
		browserCancel: browserCancel,
		allocCancel:   allocCancel,
		logger:        c.logger,
	}
	session.page = &Page{
		browserCtx: browserCtx,
		navTimeout: c.config.NavigationTimeout,
		logger:     c.logger,
	}

	// Startup test bounded by the navigation timeout
	testCtx, testCancel := context.WithTimeout(browserCtx, c.config.NavigationTimeout)
	defer testCancel()

	if err := chromedp.Run(testCtx, chromedp.Navigate("about:blank")); err != nil {
		session.Release()
		return nil, fmt.Errorf("browser failed startup test: %w", err)
	}

	c.logger.Debug().
		Str("profile", c.config.Profile).
		Dur("startup_time", time.Since(startTime)).
		Msg("Browser session acquired")

	return session, nil
}

// allocatorOptions builds Chrome launch flags for the configured profile.
// The server profile strips GPU/canvas/shared-memory features for constrained
// hosts; the desktop profile points at a locally installed Chrome.
func (c *Controller) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", c.config.Headless),
		chromedp.UserAgent(c.config.UserAgent),
	)

	switch c.config.Profile {
	case "desktop":
		opts = append(opts, chromedp.ExecPath(c.execPath()))
		opts = append(opts,
			chromedp.Flag("no-sandbox", c.config.NoSandbox),
			chromedp.Flag("disable-setuid-sandbox", c.config.NoSandbox),
		)
	default: // "server"
		if c.config.ExecPath != "" {
			opts = append(opts, chromedp.ExecPath(c.config.ExecPath))
		}
		opts = append(opts,
			chromedp.Flag("no-sandbox", c.config.NoSandbox),
			chromedp.Flag("disable-setuid-sandbox", c.config.NoSandbox),
			chromedp.Flag("disable-gpu", c.config.DisableGPU),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.Flag("disable-accelerated-2d-canvas", true),
			chromedp.Flag("hide-scrollbars", true),
		)
	}

	return opts
}

// execPath returns the locally installed Chrome binary for the desktop
// profile, by OS.
func (c *Controller) execPath() string {
	if c.config.ExecPath != "" {
		return c.config.ExecPath
	}

	switch runtime.GOOS {
	case "windows":
		return `C:\Program Files\Google\Chrome\Application\chrome.exe`
	case "darwin":
		return "/Applications/Google Chrome.app/Contents/MacOS/Google Chrome"
	default:
		return "/usr/bin/google-chrome"
	}
}

// Session is one launched browser process with a single page.
type Session struct {
	page          *Page
	browserCancel context.CancelFunc
	allocCancel   context.CancelFunc
	releaseOnce   sync.Once
	logger        arbor.ILogger
}

// Page returns the session's page.
func (s *Session) Page() interfaces.RemotePage {
	return s.page
}

// Release tears down the browser process. Safe to call multiple times and
// from deferred cleanup paths.
func (s *Session) Release() {
	s.releaseOnce.Do(func() {
		if s.browserCancel != nil {
			s.browserCancel()
		}
		if s.allocCancel != nil {
			s.allocCancel()
		}
		s.logger.Debug().Msg("Browser session released")
	})
}
