package render

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
	"golang.org/x/time/rate"
)

// RobotsGate enforces robots.txt rules and per-host rate limits for fetchers
// that bypass an HTTP library's built-in politeness, in practice the
// headless browser, which will happily hammer any URL it is pointed at.
type RobotsGate struct {
	client   *http.Client
	ua       string
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	cache    map[string]*robotstxt.RobotsData
}

func NewRobotsGate(userAgent string) *RobotsGate {
	return &RobotsGate{
		client:   &http.Client{Timeout: 15 * time.Second},
		ua:       userAgent,
		limiters: map[string]*rate.Limiter{},
		cache:    map[string]*robotstxt.RobotsData{},
	}
}

// Admit blocks until the host's rate limit admits one request, then checks
// robots.txt. A non-nil error means the URL must not be fetched.
func (g *RobotsGate) Admit(ctx context.Context, u *url.URL) error {
	if err := g.limiterFor(u.Hostname()).Wait(ctx); err != nil {
		return err
	}
	if !g.allowed(ctx, u) {
		return fmt.Errorf("blocked by robots.txt: %s", u)
	}
	return nil
}

func (g *RobotsGate) limiterFor(host string) *rate.Limiter {
	g.mu.Lock()
	defer g.mu.Unlock()
	if l, ok := g.limiters[host]; ok {
		return l
	}
	l := rate.NewLimiter(rate.Every(time.Second), 2) // 1 req/s, burst 2
	g.limiters[host] = l
	return l
}

func (g *RobotsGate) allowed(ctx context.Context, u *url.URL) bool {
	data, err := g.robotsFor(ctx, u)
	if err != nil {
		return true // fail open to avoid blocking everything
	}
	group := data.FindGroup(g.ua)
	if group == nil {
		group = data.FindGroup("*")
	}
	if group == nil {
		return true
	}
	path := u.Path
	if path == "" {
		path = "/"
	}
	return group.Test(path)
}

func (g *RobotsGate) robotsFor(ctx context.Context, u *url.URL) (*robotstxt.RobotsData, error) {
	host := u.Hostname()
	g.mu.Lock()
	if data, ok := g.cache[host]; ok {
		g.mu.Unlock()
		return data, nil
	}
	g.mu.Unlock()

	robotsURL := fmt.Sprintf("%s://%s/robots.txt", u.Scheme, u.Host)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", g.ua)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	g.cache[host] = data
	g.mu.Unlock()
	return data, nil
}
