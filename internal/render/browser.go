package render

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/baxromumarov/jobscout/internal/pattern"
)

// Timeout for selector waits. The original crawler bounded these at 15s and
// treated expiry as a warning, not a failure: a missing "ready" marker
// usually still leaves a usable page.
const selectorWaitTimeout = 15 * time.Second

const navigationTimeout = 60 * time.Second

// BrowserRenderer renders pages in headless Chrome via rod, for career pages
// that build their listings with JavaScript. One browser serves all Render
// calls; each call gets its own tab.
type BrowserRenderer struct {
	browser   *rod.Browser
	launcher  *launcher.Launcher
	gate      *RobotsGate
	userAgent string
}

func NewBrowserRenderer(userAgent, chromePath string) (*BrowserRenderer, error) {
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	l := launcher.New().Headless(true)
	if chromePath != "" {
		l = l.Bin(chromePath)
	}
	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connect to browser: %w", err)
	}

	return &BrowserRenderer{
		browser:   browser,
		launcher:  l,
		gate:      NewRobotsGate(userAgent),
		userAgent: userAgent,
	}, nil
}

func (r *BrowserRenderer) Close() error {
	err := r.browser.Close()
	r.launcher.Kill()
	return err
}

func (r *BrowserRenderer) Render(ctx context.Context, pageURL string, wait pattern.WaitCondition) (*Snapshot, error) {
	target, err := ensureScheme(pageURL)
	if err != nil {
		return nil, &FetchError{Err: err}
	}
	parsed, err := url.Parse(target)
	if err != nil {
		return nil, &FetchError{Err: err}
	}
	if err := r.gate.Admit(ctx, parsed); err != nil {
		return nil, &FetchError{Err: err}
	}

	page, err := r.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, &FetchError{Err: fmt.Errorf("open tab: %w", err)}
	}
	defer page.Close()

	navCtx, cancel := context.WithTimeout(ctx, navigationTimeout)
	defer cancel()
	page = page.Context(navCtx)

	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: r.userAgent}); err != nil {
		return nil, &FetchError{Err: fmt.Errorf("set user agent: %w", err)}
	}
	if err := page.Navigate(target); err != nil {
		return nil, &FetchError{Err: fmt.Errorf("navigate %s: %w", target, err)}
	}
	if err := page.WaitLoad(); err != nil {
		return nil, &FetchError{Err: fmt.Errorf("wait for load: %w", err)}
	}

	r.applyWait(navCtx, page, pageURL, wait)

	html, err := page.HTML()
	if err != nil {
		return nil, &FetchError{Err: fmt.Errorf("capture html: %w", err)}
	}

	finalURL := target
	if info, err := page.Info(); err == nil && info.URL != "" {
		finalURL = info.URL
	}
	return &Snapshot{HTML: html, FinalURL: finalURL}, nil
}

// applyWait executes the pattern's wait condition. Failures are warnings:
// the page has loaded, the marker just never showed up.
func (r *BrowserRenderer) applyWait(ctx context.Context, page *rod.Page, pageURL string, wait pattern.WaitCondition) {
	switch wait.Type {
	case pattern.WaitSelector:
		if _, err := page.Timeout(selectorWaitTimeout).Element(wait.Selector); err != nil {
			slog.Warn("wait condition not satisfied",
				"url", pageURL, "selector", wait.Selector, "error", err)
		}
	case pattern.WaitTimeout:
		if err := sleepWithContext(ctx, wait.Timeout); err != nil {
			slog.Warn("wait interrupted", "url", pageURL, "error", err)
		}
	}
}
