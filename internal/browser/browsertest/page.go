// Package browsertest provides a scripted in-memory RemotePage for testing
// flows that drive a browser page without launching Chrome.
package browsertest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/menufeed/menufeed/internal/models"
)

// FakePage is a scriptable stand-in for a live browser page. Behaviors are
// configured per method; unconfigured methods succeed with zero values. All
// calls are recorded for assertion.
type FakePage struct {
	mu sync.Mutex

	// CurrentURL is returned by Location and updated by Navigate.
	CurrentURL string

	// HTML is returned by Content.
	HTML string

	// CookieList is returned by Cookies.
	CookieList []models.PageCookie

	// VisibleSelectors lists selectors WaitVisible resolves immediately.
	// Selectors not listed fail with a timeout-shaped error.
	VisibleSelectors map[string]bool

	// EvaluateResults maps script text to the value Evaluate writes into out.
	// A script without an entry yields the zero value.
	EvaluateResults map[string]interface{}

	// ConditionResults maps condition scripts to their outcome. A true entry
	// satisfies WaitForCondition immediately; false entries poll until the
	// timeout elapses.
	ConditionResults map[string]bool

	// Error hooks. When set, the matching method returns the error.
	NavigateErr  error
	ReloadErr    error
	ClickErr     map[string]error
	FillErr      map[string]error
	EvaluateErr  map[string]error
	LocationErr  error
	ContentErr   error
	CookiesErr   error

	// Hooks run before the default behavior, letting a test mutate page state
	// mid-flow (e.g. flip CurrentURL after a submit).
	OnClick    func(selector string)
	OnEvaluate func(script string)
	OnReload   func()

	// OnNavigate maps a requested URL to the URL the page actually lands on,
	// simulating server-side redirects. Return "" to land on the requested
	// URL.
	OnNavigate func(url string) string

	// Calls records every method invocation as "Method(arg)".
	Calls []string
}

// NewFakePage returns a fake page with empty behavior tables.
func NewFakePage() *FakePage {
	return &FakePage{
		VisibleSelectors: make(map[string]bool),
		EvaluateResults:  make(map[string]interface{}),
		ConditionResults: make(map[string]bool),
		ClickErr:         make(map[string]error),
		FillErr:          make(map[string]error),
		EvaluateErr:      make(map[string]error),
	}
}

func (p *FakePage) record(call string) {
	p.mu.Lock()
	p.Calls = append(p.Calls, call)
	p.mu.Unlock()
}

// CallCount returns how many recorded calls have the given prefix.
func (p *FakePage) CallCount(prefix string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, c := range p.Calls {
		if len(c) >= len(prefix) && c[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}

func (p *FakePage) Navigate(ctx context.Context, url string) error {
	p.record("Navigate(" + url + ")")
	if p.NavigateErr != nil {
		return p.NavigateErr
	}
	landed := url
	if p.OnNavigate != nil {
		if redirected := p.OnNavigate(url); redirected != "" {
			landed = redirected
		}
	}
	p.mu.Lock()
	p.CurrentURL = landed
	p.mu.Unlock()
	return nil
}

func (p *FakePage) Reload(ctx context.Context) error {
	p.record("Reload()")
	if p.OnReload != nil {
		p.OnReload()
	}
	return p.ReloadErr
}

func (p *FakePage) Location(ctx context.Context) (string, error) {
	p.record("Location()")
	if p.LocationErr != nil {
		return "", p.LocationErr
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.CurrentURL, nil
}

func (p *FakePage) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	p.record("WaitVisible(" + selector + ")")
	p.mu.Lock()
	visible := p.VisibleSelectors[selector]
	p.mu.Unlock()
	if !visible {
		return fmt.Errorf("selector %q did not become visible within %s", selector, timeout)
	}
	return nil
}

func (p *FakePage) Click(ctx context.Context, selector string) error {
	p.record("Click(" + selector + ")")
	if err := p.ClickErr[selector]; err != nil {
		return err
	}
	if p.OnClick != nil {
		p.OnClick(selector)
	}
	return nil
}

func (p *FakePage) Fill(ctx context.Context, selector, value string) error {
	p.record("Fill(" + selector + ")")
	return p.FillErr[selector]
}

func (p *FakePage) Evaluate(ctx context.Context, script string, out interface{}) error {
	p.record("Evaluate(" + script + ")")
	if err := p.EvaluateErr[script]; err != nil {
		return err
	}
	if p.OnEvaluate != nil {
		p.OnEvaluate(script)
	}
	if out == nil {
		return nil
	}
	p.mu.Lock()
	result, ok := p.EvaluateResults[script]
	p.mu.Unlock()
	if !ok {
		return nil
	}
	return assign(out, result)
}

// WaitForCondition polls the behavior table like a real page polls the
// document, so tests can flip an entry mid-wait and heartbeats get time to
// sample.
func (p *FakePage) WaitForCondition(ctx context.Context, script string, timeout, interval time.Duration) error {
	p.record("WaitForCondition(" + script + ")")

	deadline := time.Now().Add(timeout)
	for {
		p.mu.Lock()
		satisfied := p.ConditionResults[script]
		p.mu.Unlock()
		if satisfied {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("condition not met within %s", timeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}

func (p *FakePage) Content(ctx context.Context) (string, error) {
	p.record("Content()")
	if p.ContentErr != nil {
		return "", p.ContentErr
	}
	return p.HTML, nil
}

func (p *FakePage) Cookies(ctx context.Context) ([]models.PageCookie, error) {
	p.record("Cookies()")
	if p.CookiesErr != nil {
		return nil, p.CookiesErr
	}
	return p.CookieList, nil
}

// assign copies a scripted result into the caller's out pointer for the
// handful of result shapes the flows actually use.
func assign(out, result interface{}) error {
	switch dst := out.(type) {
	case *bool:
		if v, ok := result.(bool); ok {
			*dst = v
			return nil
		}
	case *string:
		if v, ok := result.(string); ok {
			*dst = v
			return nil
		}
	case *models.MenuFileHandle:
		if v, ok := result.(models.MenuFileHandle); ok {
			*dst = v
			return nil
		}
		if v, ok := result.(*models.MenuFileHandle); ok {
			*dst = *v
			return nil
		}
	case *map[string]interface{}:
		if v, ok := result.(map[string]interface{}); ok {
			*dst = v
			return nil
		}
	}
	return fmt.Errorf("unsupported evaluate result type %T for out %T", result, out)
}
