package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"

	"github.com/menufeed/menufeed/internal/models"
)

// Page implements interfaces.RemotePage over a chromedp browser context.
type Page struct {
	browserCtx context.Context
	navTimeout time.Duration
	logger     arbor.ILogger
}

// run executes chromedp actions bounded by the given timeout, honoring
// caller-context cancellation.
func (p *Page) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	if timeout <= 0 {
		timeout = p.navTimeout
	}

	runCtx, cancel := context.WithTimeout(p.browserCtx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- chromedp.Run(runCtx, actions...)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		cancel()
		<-done
		return ctx.Err()
	}
}

// Navigate loads the URL and waits for the document body to be ready, bounded
// by the default navigation timeout.
func (p *Page) Navigate(ctx context.Context, url string) error {
	if err := p.run(ctx, p.navTimeout,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("navigation to %s failed: %w", url, err)
	}
	return nil
}

// Reload reloads the current document.
func (p *Page) Reload(ctx context.Context) error {
	if err := p.run(ctx, p.navTimeout, chromedp.Reload()); err != nil {
		return fmt.Errorf("page reload failed: %w", err)
	}
	return nil
}

// Location returns the page's current URL.
func (p *Page) Location(ctx context.Context) (string, error) {
	var url string
	if err := p.run(ctx, p.navTimeout, chromedp.Location(&url)); err != nil {
		return "", fmt.Errorf("failed to read page location: %w", err)
	}
	return url, nil
}

// WaitVisible blocks until the selector matches a visible node or timeout.
func (p *Page) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	if err := p.run(ctx, timeout, chromedp.WaitVisible(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("selector %q did not become visible: %w", selector, err)
	}
	return nil
}

// Click clicks the first node matching the selector.
func (p *Page) Click(ctx context.Context, selector string) error {
	if err := p.run(ctx, p.navTimeout, chromedp.Click(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("click on %q failed: %w", selector, err)
	}
	return nil
}

// Fill types the value into the first node matching the selector.
func (p *Page) Fill(ctx context.Context, selector, value string) error {
	if err := p.run(ctx, p.navTimeout, chromedp.SendKeys(selector, value, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("fill of %q failed: %w", selector, err)
	}
	return nil
}

// Evaluate runs the script in page context and unmarshals the result into out.
func (p *Page) Evaluate(ctx context.Context, script string, out interface{}) error {
	if err := p.run(ctx, p.navTimeout, chromedp.Evaluate(script, out)); err != nil {
		return fmt.Errorf("script evaluation failed: %w", err)
	}
	return nil
}

// WaitForCondition polls the boolean script at the given interval until it
// evaluates true or the timeout elapses.
func (p *Page) WaitForCondition(ctx context.Context, script string, timeout, interval time.Duration) error {
	deadline := time.Now().Add(timeout)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		var satisfied bool
		if err := p.Evaluate(ctx, script, &satisfied); err != nil {
			// Evaluation errors during polling are not terminal; the state
			// object may simply not exist yet.
			p.logger.Debug().Err(err).Msg("Condition evaluation failed, continuing poll")
		} else if satisfied {
			return nil
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("condition not met within %s", timeout)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Content returns the full document HTML.
func (p *Page) Content(ctx context.Context) (string, error) {
	var html string
	if err := p.run(ctx, p.navTimeout, chromedp.OuterHTML("html", &html)); err != nil {
		return "", fmt.Errorf("failed to read page content: %w", err)
	}
	return html, nil
}

// Cookies returns the cookies visible to the current page.
func (p *Page) Cookies(ctx context.Context) ([]models.PageCookie, error) {
	var cookies []models.PageCookie

	err := p.run(ctx, p.navTimeout, chromedp.ActionFunc(func(ctx context.Context) error {
		raw, err := network.GetCookies().Do(ctx)
		if err != nil {
			return err
		}
		for _, c := range raw {
			cookies = append(cookies, models.PageCookie{
				Name:     c.Name,
				Value:    c.Value,
				Domain:   c.Domain,
				Path:     c.Path,
				Expires:  c.Expires,
				Secure:   c.Secure,
				HTTPOnly: c.HTTPOnly,
			})
		}
		return nil
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to read cookies: %w", err)
	}

	return cookies, nil
}
