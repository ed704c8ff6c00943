package browsertest

import (
	"context"
	"sync/atomic"

	"github.com/menufeed/menufeed/internal/interfaces"
)

// FakeController hands out sessions over a prepared FakePage.
type FakeController struct {
	// Page is the page every acquired session exposes.
	Page *FakePage

	// AcquireErr, when set, makes Acquire fail.
	AcquireErr error

	// Acquired counts successful Acquire calls.
	Acquired int32
}

// NewFakeController returns a controller serving the given page.
func NewFakeController(page *FakePage) *FakeController {
	return &FakeController{Page: page}
}

func (c *FakeController) Acquire(ctx context.Context) (interfaces.BrowserSession, error) {
	if c.AcquireErr != nil {
		return nil, c.AcquireErr
	}
	atomic.AddInt32(&c.Acquired, 1)
	return &FakeSession{page: c.Page}, nil
}

// FakeSession is a session over a FakePage. Release is tracked so tests can
// assert the browser is always torn down.
type FakeSession struct {
	page     *FakePage
	released int32
}

func (s *FakeSession) Page() interfaces.RemotePage {
	return s.page
}

func (s *FakeSession) Release() {
	atomic.StoreInt32(&s.released, 1)
}

// Released reports whether Release has been called.
func (s *FakeSession) Released() bool {
	return atomic.LoadInt32(&s.released) == 1
}
