package extract

import "fmt"

// JobRecord is one extracted job posting. URL is absolute and canonical, and
// unique within a CrawlResult. The well-known fields mirror entries in
// Metadata; Metadata always carries the complete extracted set.
type JobRecord struct {
	URL        string            `json:"url"`
	Title      string            `json:"title,omitempty"`
	Location   string            `json:"location,omitempty"`
	Department string            `json:"department,omitempty"`
	JobType    string            `json:"job_type,omitempty"`
	PostedDate string            `json:"posted_date,omitempty"`
	Company    string            `json:"company"`
	SourceURL  string            `json:"source_url"`
	Metadata   map[string]string `json:"metadata"`
}

// CrawlResult is the output document for one crawl. TotalJobs always equals
// len(Jobs); Jobs preserves first-seen page order after deduplication.
type CrawlResult struct {
	SourceURL           string      `json:"source_url"`
	TotalJobs           int         `json:"total_jobs"`
	TotalPagesCrawled   int         `json:"total_pages_crawled,omitempty"`
	ExtractionTimestamp string      `json:"extraction_timestamp"`
	CompanyName         string      `json:"company_name"`
	Jobs                []JobRecord `json:"jobs"`
}

// rawCandidate is one matched listing element before deduplication.
type rawCandidate struct {
	url      string
	metadata map[string]string
}

// InvalidURLError marks a matched link whose URL could not be resolved to a
// well-formed absolute URL. Non-fatal: the single candidate is dropped.
type InvalidURLError struct {
	Raw string
	Err error
}

func (e *InvalidURLError) Error() string {
	return fmt.Sprintf("invalid job url %q: %v", e.Raw, e.Err)
}

func (e *InvalidURLError) Unwrap() error { return e.Err }
