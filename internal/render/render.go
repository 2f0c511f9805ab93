// Package render is the fetch capability consumed by the crawler: it turns a
// URL plus a wait condition into a rendered DOM snapshot. All network
// concerns (politeness, retries, rate limits, browser lifecycle) live here,
// so the extraction engine stays pure.
package render

import (
	"context"
	"fmt"
	"time"

	"github.com/baxromumarov/jobscout/internal/pattern"
)

// Snapshot is one rendered page.
type Snapshot struct {
	HTML     string
	FinalURL string // URL after redirects; base for resolving relative links
}

// Renderer fetches and renders a single page. Implementations must honor ctx
// and execute the wait condition before capturing the snapshot.
type Renderer interface {
	Render(ctx context.Context, pageURL string, wait pattern.WaitCondition) (*Snapshot, error)
}

// FetchError is a fetch-layer failure (network, timeout, navigation). The
// engine treats these as run-level failures, never per-job.
type FetchError struct {
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("fetch error (status %d)", e.Status)
	}
	return fmt.Sprintf("fetch error (status %d): %v", e.Status, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
