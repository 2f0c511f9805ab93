package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"golang.org/x/time/rate"

	"github.com/baxromumarov/jobscout/internal/pattern"
)

const defaultUserAgent = "jobscout-bot/1.0"

// StaticRenderer fetches pages over plain HTTP via Colly. It serves patterns
// whose pages do not need JavaScript: a selector wait cannot be satisfied
// without a browser and is logged and skipped, while a timeout wait is
// pointless on static HTML and skipped silently.
//
// Politeness: per-host rate limiting with bounded exponential backoff on 429
// and 5xx; robots.txt is enforced by Colly itself.
type StaticRenderer struct {
	userAgent    string
	timeout      time.Duration
	maxRetries   int
	defaultRate  rate.Limit
	defaultBurst int

	mu    sync.Mutex
	hosts map[string]*hostPolicy
}

type hostPolicy struct {
	limiter     *rate.Limiter
	nextAllowed time.Time
	mu          sync.Mutex
}

func NewStaticRenderer(userAgent string) *StaticRenderer {
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &StaticRenderer{
		userAgent:    userAgent,
		timeout:      15 * time.Second,
		maxRetries:   3,
		defaultRate:  rate.Every(time.Second),
		defaultBurst: 2,
		hosts:        make(map[string]*hostPolicy),
	}
}

func (r *StaticRenderer) Render(ctx context.Context, pageURL string, wait pattern.WaitCondition) (*Snapshot, error) {
	if wait.Type == pattern.WaitSelector {
		slog.Warn("static renderer cannot wait for a selector; page may be incomplete",
			"url", pageURL, "selector", wait.Selector)
	}

	target, err := ensureScheme(pageURL)
	if err != nil {
		return nil, &FetchError{Err: err}
	}
	host := hostKey(target)

	var snap *Snapshot
	var lastErr error
	var status int
	for attempt := 0; attempt < r.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if err := r.waitForHost(ctx, host); err != nil {
			return nil, err
		}
		snap, status, lastErr = r.fetchOnce(ctx, target)
		if lastErr == nil {
			return snap, nil
		}
		if !shouldBackoff(status) {
			break
		}
		r.applyBackoff(host, attempt)
	}

	if lastErr == nil {
		lastErr = errors.New("fetch failed")
	}
	return nil, &FetchError{Status: status, Err: lastErr}
}

func (r *StaticRenderer) fetchOnce(ctx context.Context, target string) (*Snapshot, int, error) {
	c := colly.NewCollector(colly.UserAgent(r.userAgent))
	c.IgnoreRobotsTxt = false
	c.SetRequestTimeout(r.timeout)

	var (
		snap   Snapshot
		status int
		reqErr error
	)
	c.OnRequest(func(req *colly.Request) {
		if ctx.Err() != nil {
			req.Abort()
		}
	})
	c.OnResponse(func(resp *colly.Response) {
		status = resp.StatusCode
		snap.HTML = string(resp.Body)
		snap.FinalURL = resp.Request.URL.String()
	})
	c.OnError(func(resp *colly.Response, err error) {
		if resp != nil {
			status = resp.StatusCode
		}
		reqErr = err
	})

	if err := c.Visit(target); err != nil {
		return nil, status, err
	}
	if reqErr != nil {
		return nil, status, reqErr
	}
	if status >= 400 {
		return nil, status, fmt.Errorf("status %d", status)
	}
	return &snap, status, nil
}

func (r *StaticRenderer) waitForHost(ctx context.Context, host string) error {
	policy := r.policyFor(host)
	if err := policy.waitBackoff(ctx); err != nil {
		return err
	}
	return policy.limiter.Wait(ctx)
}

func (r *StaticRenderer) policyFor(host string) *hostPolicy {
	key := normalizeHost(host)
	if key == "" {
		key = "default"
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if policy, ok := r.hosts[key]; ok {
		return policy
	}
	policy := &hostPolicy{
		limiter: rate.NewLimiter(r.defaultRate, r.defaultBurst),
	}
	r.hosts[key] = policy
	return policy
}

func (r *StaticRenderer) applyBackoff(host string, attempt int) {
	if attempt < 0 {
		attempt = 0
	}
	policy := r.policyFor(host)
	delay := time.Duration(500*(1<<attempt)) * time.Millisecond
	policy.mu.Lock()
	if next := time.Now().Add(delay); next.After(policy.nextAllowed) {
		policy.nextAllowed = next
	}
	policy.mu.Unlock()
}

func (p *hostPolicy) waitBackoff(ctx context.Context) error {
	for {
		p.mu.Lock()
		next := p.nextAllowed
		p.mu.Unlock()
		now := time.Now()
		if !now.Before(next) {
			return nil
		}
		if err := sleepWithContext(ctx, next.Sub(now)); err != nil {
			return err
		}
	}
}

func shouldBackoff(status int) bool {
	return status == http.StatusTooManyRequests || (status >= 500 && status <= 599)
}

func ensureScheme(rawURL string) (string, error) {
	if rawURL == "" {
		return "", errors.New("empty url")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" {
		u.Scheme = "https"
	}
	return u.String(), nil
}

func normalizeHost(host string) string {
	host = strings.ToLower(host)
	return strings.TrimPrefix(host, "www.")
}

func hostKey(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "default"
	}
	return normalizeHost(u.Hostname())
}
