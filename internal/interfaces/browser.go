package interfaces

import (
	"context"
	"time"

	"github.com/menufeed/menufeed/internal/models"
)

// RemotePage is the capability exposed by a live browser page. Flows above the
// session controller drive the page exclusively through this contract, which
// keeps them testable against a scripted stub.
type RemotePage interface {
	// Navigate loads the URL and waits for the document to settle, bounded by
	// the session's navigation timeout.
	Navigate(ctx context.Context, url string) error

	// Reload reloads the current document.
	Reload(ctx context.Context) error

	// Location returns the page's current URL.
	Location(ctx context.Context) (string, error)

	// WaitVisible blocks until the selector matches a visible node or the
	// timeout elapses.
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error

	// Click clicks the first node matching the selector.
	Click(ctx context.Context, selector string) error

	// Fill types the value into the first node matching the selector.
	Fill(ctx context.Context, selector, value string) error

	// Evaluate runs the script in page context and unmarshals the result into
	// out. Pass nil when the result is not needed.
	Evaluate(ctx context.Context, script string, out interface{}) error

	// WaitForCondition polls the boolean script at the given interval until it
	// evaluates true or the timeout elapses.
	WaitForCondition(ctx context.Context, script string, timeout, interval time.Duration) error

	// Content returns the full document HTML.
	Content(ctx context.Context) (string, error)

	// Cookies returns the cookies visible to the current page.
	Cookies(ctx context.Context) ([]models.PageCookie, error)
}

// BrowserController owns headless browser session lifecycle. Release must run
// on every exit path so the Chrome process is never leaked.
type BrowserController interface {
	Acquire(ctx context.Context) (BrowserSession, error)
}

// BrowserSession is one launched browser with exactly one page.
type BrowserSession interface {
	Page() RemotePage
	// Release tears down the browser process. Idempotent.
	Release()
}
