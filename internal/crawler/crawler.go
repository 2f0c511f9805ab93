// Package crawler drives the extraction engine across a career site: it asks
// the renderer for pages, hands each snapshot to the engine exactly once,
// and merges per-page results into a single deduplicated document. All
// looping and cross-page state lives here; the engine stays single-page.
package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/baxromumarov/jobscout/internal/extract"
	"github.com/baxromumarov/jobscout/internal/observability"
	"github.com/baxromumarov/jobscout/internal/pattern"
	"github.com/baxromumarov/jobscout/internal/render"
	"github.com/baxromumarov/jobscout/internal/urlutil"
)

const (
	// Stop paginating after this many consecutive pages without jobs; deep
	// empty pages mean the page parameter ran past the last listing.
	defaultMaxEmptyPages = 5

	// Delay between page fetches, matching the renderer-independent
	// politeness the crawler has always applied.
	defaultPageDelay = 2 * time.Second
)

type Crawler struct {
	cfg      *pattern.Config
	engine   *extract.Engine
	renderer render.Renderer

	pageDelay     time.Duration
	maxEmptyPages int
}

func New(cfg *pattern.Config, renderer render.Renderer) (*Crawler, error) {
	engine, err := extract.NewEngine(cfg)
	if err != nil {
		return nil, err
	}
	return &Crawler{
		cfg:           cfg,
		engine:        engine,
		renderer:      renderer,
		pageDelay:     defaultPageDelay,
		maxEmptyPages: defaultMaxEmptyPages,
	}, nil
}

// Run crawls starting at homeURL and returns the merged result. A fetch or
// parse failure on the first page is a run failure with no partial result;
// on later pages the crawl stops and returns what it has, since those jobs
// were already extracted from real pages.
func (c *Crawler) Run(ctx context.Context, homeURL string) (*extract.CrawlResult, error) {
	runID := uuid.NewString()
	log := slog.With("run_id", runID, "company", c.cfg.CompanyName, "home_url", homeURL)

	maxPages := 1
	if c.cfg.Pagination.Enabled {
		maxPages = c.cfg.Pagination.MaxPages
	}

	var (
		jobs        []extract.JobRecord
		seen        = make(map[string]struct{})
		emptyStreak int
		pagesDone   int
	)

	for pageNum := 1; pageNum <= maxPages; pageNum++ {
		if pageNum > 1 {
			if err := sleepWithContext(ctx, c.pageDelay); err != nil {
				return nil, err
			}
		}

		pageURL, err := buildPageURL(homeURL, c.cfg.Pagination.PageParam, pageNum)
		if err != nil {
			return nil, fmt.Errorf("build url for page %d: %w", pageNum, err)
		}

		start := time.Now()
		snap, err := c.renderer.Render(ctx, pageURL, c.cfg.WaitFor)
		observability.ObserveRenderDuration(time.Since(start).Seconds())
		if err != nil {
			observability.IncError(observability.ClassifyFetchError(err), "crawler")
			if pageNum == 1 {
				return nil, fmt.Errorf("render %s: %w", pageURL, err)
			}
			log.Error("render failed, stopping pagination", "page", pageNum, "error", err)
			break
		}
		observability.IncPagesRendered()

		result, err := c.engine.ExtractPage(snap.HTML, snap.FinalURL, time.Now())
		if err != nil {
			observability.IncError(observability.ErrorParsing, "crawler")
			if pageNum == 1 {
				return nil, fmt.Errorf("extract page %s: %w", pageURL, err)
			}
			log.Error("extraction failed, stopping pagination", "page", pageNum, "error", err)
			break
		}
		pagesDone++

		newJobs := 0
		for _, job := range result.Jobs {
			if _, ok := seen[job.URL]; ok {
				continue
			}
			seen[job.URL] = struct{}{}
			jobs = append(jobs, job)
			newJobs++
		}
		observability.AddJobsExtracted(newJobs)
		log.Info("page extracted",
			"page", pageNum,
			"page_jobs", len(result.Jobs),
			"new_jobs", newJobs,
			"total_jobs", len(jobs),
		)

		if len(result.Jobs) == 0 {
			emptyStreak++
			if emptyStreak >= c.maxEmptyPages {
				log.Warn("stopping after consecutive empty pages", "empty_pages", emptyStreak)
				break
			}
		} else {
			emptyStreak = 0
		}
	}

	if c.cfg.Validation != nil {
		jobs = applyValidation(jobs, c.cfg.Validation, log)
	}

	result := &extract.CrawlResult{
		SourceURL:           homeURL,
		TotalJobs:           len(jobs),
		TotalPagesCrawled:   pagesDone,
		ExtractionTimestamp: time.Now().UTC().Format(time.RFC3339),
		CompanyName:         c.cfg.CompanyName,
		Jobs:                jobs,
	}
	log.Info("crawl finished", "total_jobs", result.TotalJobs, "pages", pagesDone)
	return result, nil
}

// buildPageURL sets the page query parameter on homeURL. Page 1 keeps the
// home URL untouched when it carries no page parameter already; many sites
// do not accept an explicit page=1 on their first page.
func buildPageURL(homeURL, param string, pageNum int) (string, error) {
	u, err := url.Parse(homeURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	if pageNum == 1 && !q.Has(param) {
		return homeURL, nil
	}
	q.Set(param, strconv.Itoa(pageNum))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// applyValidation filters records through the pattern's url_validation rules
// and annotates metadata with fields captured from the URL itself.
func applyValidation(jobs []extract.JobRecord, v *pattern.URLValidation, log *slog.Logger) []extract.JobRecord {
	kept := make([]extract.JobRecord, 0, len(jobs))

next:
	for _, job := range jobs {
		for _, re := range v.InvalidPatterns {
			if re.MatchString(job.URL) {
				observability.IncCandidatesDropped()
				continue next
			}
		}

		if v.ValidPattern != nil {
			match := v.ValidPattern.FindStringSubmatch(job.URL)
			if match == nil {
				log.Warn("dropping job with url failing validation", "url", job.URL)
				observability.IncCandidatesDropped()
				continue
			}
			annotateFromURL(&job, v.ValidPattern.SubexpNames(), match)
		}
		kept = append(kept, job)
	}
	return kept
}

// annotateFromURL copies named capture groups into the record's metadata.
// A job_title group additionally backfills a missing title, slug-formatted.
func annotateFromURL(job *extract.JobRecord, names, match []string) {
	for i, name := range names {
		if i == 0 || name == "" || i >= len(match) || match[i] == "" {
			continue
		}
		if _, exists := job.Metadata[name]; !exists {
			job.Metadata[name] = match[i]
		}
		if name == "job_title" && job.Title == "" {
			job.Title = urlutil.TitleFromSlug(match[i])
			job.Metadata[extract.FieldTitle] = job.Title
		}
	}
}

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
