// Package extract turns a rendered career page into a deduplicated list of
// job records, driven entirely by a pattern.Config. The engine is stateless:
// every call is a pure function of the page snapshot, the config, and the
// clock value passed in, so it is safe to run from any number of workers.
package extract

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/baxromumarov/jobscout/internal/observability"
	"github.com/baxromumarov/jobscout/internal/pattern"
	"github.com/baxromumarov/jobscout/internal/urlutil"
)

// Well-known metadata fields promoted to top-level JobRecord attributes.
const (
	FieldTitle      = "title"
	FieldLocation   = "location"
	FieldDepartment = "department"
	FieldJobType    = "job_type"
	FieldPostedDate = "posted_date"
)

type Engine struct {
	cfg *pattern.Config
}

// NewEngine wraps a validated config. The config must hold at least one
// selector rule; pattern.Load guarantees that, so this only guards against
// callers bypassing it.
func NewEngine(cfg *pattern.Config) (*Engine, error) {
	if cfg == nil || len(cfg.Rules) == 0 {
		return nil, errors.New("extract: config must define at least one job selector rule")
	}
	return &Engine{cfg: cfg}, nil
}

// ExtractPage runs one extraction pass over a rendered page. Candidates from
// all rules are pooled before deduplication: rules are not mutually
// exclusive, and a URL reachable via two rules is still one job, keeping the
// first-encountered rule's metadata. sourceURL is the page's final URL and
// the base for resolving relative links.
//
// Malformed candidate URLs are dropped individually with a warning; only an
// unparseable document or source URL fails the whole call.
func (e *Engine) ExtractPage(htmlSrc, sourceURL string, now time.Time) (*CrawlResult, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlSrc))
	if err != nil {
		return nil, fmt.Errorf("parse page html: %w", err)
	}
	base, err := url.Parse(sourceURL)
	if err != nil {
		return nil, fmt.Errorf("parse source url %q: %w", sourceURL, err)
	}

	var pooled []rawCandidate
	for i := range e.cfg.Rules {
		rule := &e.cfg.Rules[i]
		doc.FindMatcher(rule.Matcher).Each(func(_ int, listing *goquery.Selection) {
			if cand, ok := e.candidateFrom(listing, rule, base); ok {
				pooled = append(pooled, cand)
			}
		})
	}

	jobs := e.dedup(pooled, sourceURL)
	return &CrawlResult{
		SourceURL:           sourceURL,
		TotalJobs:           len(jobs),
		ExtractionTimestamp: now.UTC().Format(time.RFC3339),
		CompanyName:         e.cfg.CompanyName,
		Jobs:                jobs,
	}, nil
}

func (e *Engine) candidateFrom(listing *goquery.Selection, rule *pattern.Rule, base *url.URL) (rawCandidate, bool) {
	raw, ok := readValue(listing, rule.Attribute)
	if !ok {
		e.dropCandidate(rule, &InvalidURLError{Raw: "", Err: fmt.Errorf("attribute %q not set on matched element", rule.Attribute)})
		return rawCandidate{}, false
	}

	resolved, err := urlutil.Resolve(raw, base)
	if err != nil {
		e.dropCandidate(rule, &InvalidURLError{Raw: raw, Err: err})
		return rawCandidate{}, false
	}

	if e.cfg.FilterURLs && !urlutil.IsJobURL(resolved) {
		// Not an error: listing pages link to plenty of legitimate non-job
		// targets the selector may over-match.
		return rawCandidate{}, false
	}

	return rawCandidate{
		url:      resolved,
		metadata: extractMetadata(listing, rule.Fields),
	}, true
}

func (e *Engine) dropCandidate(rule *pattern.Rule, err *InvalidURLError) {
	slog.Warn("dropping job candidate",
		"rule", rule.Selector,
		"raw_url", err.Raw,
		"error", err.Err,
	)
	observability.IncCandidatesDropped()
	observability.IncError(observability.ErrorInvalidURL, "extract")
}

// dedup keeps the first occurrence of each canonical URL, preserving page
// order. Later duplicates are discarded entirely, metadata included.
func (e *Engine) dedup(candidates []rawCandidate, sourceURL string) []JobRecord {
	seen := make(map[string]struct{}, len(candidates))
	jobs := make([]JobRecord, 0, len(candidates))
	for _, cand := range candidates {
		if _, ok := seen[cand.url]; ok {
			continue
		}
		seen[cand.url] = struct{}{}
		jobs = append(jobs, e.record(cand, sourceURL))
	}
	return jobs
}

func (e *Engine) record(cand rawCandidate, sourceURL string) JobRecord {
	meta := cand.metadata
	if meta == nil {
		meta = map[string]string{}
	}
	return JobRecord{
		URL:        cand.url,
		Title:      meta[FieldTitle],
		Location:   meta[FieldLocation],
		Department: meta[FieldDepartment],
		JobType:    meta[FieldJobType],
		PostedDate: meta[FieldPostedDate],
		Company:    e.cfg.CompanyName,
		SourceURL:  sourceURL,
		Metadata:   meta,
	}
}
