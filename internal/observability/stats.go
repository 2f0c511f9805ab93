package observability

import (
	"sync"
	"sync/atomic"
)

type StatsSnapshot struct {
	PagesRendered     uint64            `json:"pages_rendered"`
	JobsExtracted     uint64            `json:"jobs_extracted"`
	CandidatesDropped uint64            `json:"candidates_dropped"`
	ErrorsTotal       uint64            `json:"errors_total"`
	RenderSecondsAvg  float64           `json:"render_seconds_avg"`
	ErrorsByType      map[string]uint64 `json:"errors_by_type,omitempty"`
	ErrorsByComponent map[string]uint64 `json:"errors_by_component,omitempty"`
}

var (
	pagesRendered     uint64
	jobsExtracted     uint64
	candidatesDropped uint64
	errorsTotal       uint64

	renderCount uint64
	renderNanos uint64

	statsMu           sync.Mutex
	errorsByType      = map[string]uint64{}
	errorsByComponent = map[string]uint64{}
)

func IncPagesRendered() {
	atomic.AddUint64(&pagesRendered, 1)
}

func AddJobsExtracted(n int) {
	if n <= 0 {
		return
	}
	atomic.AddUint64(&jobsExtracted, uint64(n))
}

func IncCandidatesDropped() {
	atomic.AddUint64(&candidatesDropped, 1)
}

func ObserveRenderDuration(seconds float64) {
	if seconds <= 0 {
		return
	}
	atomic.AddUint64(&renderCount, 1)
	atomic.AddUint64(&renderNanos, uint64(seconds*1e9))
}

func IncError(errType, component string) {
	if errType == "" {
		errType = "unknown"
	}
	if component == "" {
		component = "unknown"
	}
	atomic.AddUint64(&errorsTotal, 1)
	statsMu.Lock()
	errorsByType[errType]++
	errorsByComponent[component]++
	statsMu.Unlock()
}

func Snapshot() StatsSnapshot {
	statsMu.Lock()
	errorsTypeCopy := copyMap(errorsByType)
	errorsComponentCopy := copyMap(errorsByComponent)
	statsMu.Unlock()

	count := atomic.LoadUint64(&renderCount)
	avg := 0.0
	if count > 0 {
		avg = float64(atomic.LoadUint64(&renderNanos)) / float64(count) / 1e9
	}

	return StatsSnapshot{
		PagesRendered:     atomic.LoadUint64(&pagesRendered),
		JobsExtracted:     atomic.LoadUint64(&jobsExtracted),
		CandidatesDropped: atomic.LoadUint64(&candidatesDropped),
		ErrorsTotal:       atomic.LoadUint64(&errorsTotal),
		RenderSecondsAvg:  avg,
		ErrorsByType:      errorsTypeCopy,
		ErrorsByComponent: errorsComponentCopy,
	}
}

func copyMap(src map[string]uint64) map[string]uint64 {
	if len(src) == 0 {
		return map[string]uint64{}
	}
	out := make(map[string]uint64, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
