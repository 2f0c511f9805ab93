package extract

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baxromumarov/jobscout/internal/pattern"
)

func mustConfig(t *testing.T, yaml string) *pattern.Config {
	t.Helper()
	cfg, err := pattern.Parse([]byte(yaml))
	require.NoError(t, err)
	return cfg
}

func extractOne(t *testing.T, cfg *pattern.Config, html, sourceURL string) *CrawlResult {
	t.Helper()
	engine, err := NewEngine(cfg)
	require.NoError(t, err)
	result, err := engine.ExtractPage(html, sourceURL, time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	return result
}

func TestExtractPage(t *testing.T) {
	t.Parallel()

	cfg := mustConfig(t, `
company_name: Acme
job_url_selectors:
  - selector: "a.job-link"
    metadata:
      title: ".job-title"
      location:
        selector: ".job-location"
        transform: strip
`)

	html := `
<html><body>
  <a class="job-link" href="/careers/123">
    <span class="job-title">Backend Engineer</span>
    <span class="job-location">  Berlin  </span>
  </a>
  <a class="job-link" href="/careers/456">
    <span class="job-title">SRE</span>
  </a>
  <a class="job-link" href="/careers/789"></a>
</body></html>`

	result := extractOne(t, cfg, html, "https://acme.com/careers")

	assert.Equal(t, "https://acme.com/careers", result.SourceURL)
	assert.Equal(t, "Acme", result.CompanyName)
	assert.Equal(t, "2026-08-30T12:00:00Z", result.ExtractionTimestamp)
	require.Len(t, result.Jobs, 3)
	assert.Equal(t, len(result.Jobs), result.TotalJobs)

	first := result.Jobs[0]
	assert.Equal(t, "https://acme.com/careers/123", first.URL)
	assert.Equal(t, "Backend Engineer", first.Title)
	assert.Equal(t, "Berlin", first.Location)
	assert.Equal(t, "Acme", first.Company)
	assert.Equal(t, map[string]string{"title": "Backend Engineer", "location": "Berlin"}, first.Metadata)

	// Missing fields stay absent rather than empty.
	second := result.Jobs[1]
	assert.Equal(t, "SRE", second.Title)
	assert.Empty(t, second.Location)
	assert.Equal(t, map[string]string{"title": "SRE"}, second.Metadata)

	// A link with no matching metadata still yields a record.
	third := result.Jobs[2]
	assert.Equal(t, "https://acme.com/careers/789", third.URL)
	assert.Equal(t, map[string]string{}, third.Metadata)
}

// Metadata selectors may use the "::text" suffix form; extraction behaves
// exactly as with the attribute-less shorthand.
func TestExtractPageTextSuffixSelector(t *testing.T) {
	t.Parallel()

	cfg := mustConfig(t, `
company_name: Acme
job_url_selectors:
  - selector: "a.job-link"
    metadata:
      title: ".job-title::text"
`)

	html := `
<html><body>
  <a class="job-link" href="/careers/1"><span class="job-title">Engineer</span></a>
  <a class="job-link" href="/careers/2"></a>
</body></html>`

	result := extractOne(t, cfg, html, "https://acme.com/careers")

	require.Len(t, result.Jobs, 2)
	assert.Equal(t, 2, result.TotalJobs)
	assert.Equal(t, "Engineer", result.Jobs[0].Title)
	assert.Equal(t, map[string]string{"title": "Engineer"}, result.Jobs[0].Metadata)
	assert.Empty(t, result.Jobs[1].Title)
	assert.Equal(t, map[string]string{}, result.Jobs[1].Metadata)
}

// The "::attr(name)" suffix reads a DOM attribute off the matched element.
func TestExtractPageAttrSuffixSelector(t *testing.T) {
	t.Parallel()

	cfg := mustConfig(t, `
company_name: Acme
job_url_selectors:
  - selector: "a.job-link"
    metadata:
      location: ".job-location::attr(data-city)"
`)

	html := `
<html><body>
  <a class="job-link" href="/careers/1"><span class="job-location" data-city="Berlin">DE</span></a>
</body></html>`

	result := extractOne(t, cfg, html, "https://acme.com/careers")

	require.Len(t, result.Jobs, 1)
	assert.Equal(t, "Berlin", result.Jobs[0].Location)
}

func TestExtractPageDeduplicates(t *testing.T) {
	t.Parallel()

	cfg := mustConfig(t, `
company_name: Acme
job_url_selectors:
  - selector: "a.featured"
    metadata:
      title: ".job-title"
  - selector: "a.job-link"
    metadata:
      title: ".title-alt"
`)

	// The same posting is linked twice with different markup. The first
	// rule's candidate wins, metadata and all, including when the raw hrefs
	// differ only in canonicalization.
	html := `
<html><body>
  <a class="featured" href="/careers/123#apply">
    <span class="job-title">Featured Engineer</span>
  </a>
  <a class="job-link" href="https://acme.com/careers/123?utm_source=home">
    <span class="title-alt">Engineer (dup)</span>
  </a>
  <a class="job-link" href="/careers/456">
    <span class="title-alt">Data Scientist</span>
  </a>
</body></html>`

	result := extractOne(t, cfg, html, "https://acme.com/careers")

	require.Len(t, result.Jobs, 2)
	assert.Equal(t, 2, result.TotalJobs)
	assert.Equal(t, "https://acme.com/careers/123", result.Jobs[0].URL)
	assert.Equal(t, "Featured Engineer", result.Jobs[0].Title)
	assert.Equal(t, "Data Scientist", result.Jobs[1].Title)
}

func TestExtractPageDropsInvalidURLs(t *testing.T) {
	t.Parallel()

	cfg := mustConfig(t, `
company_name: Acme
job_url_selectors:
  - selector: "a.job-link"
    metadata:
      title: ".job-title"
`)

	html := `
<html><body>
  <a class="job-link" href="mailto:jobs@acme.com"><span class="job-title">Bad</span></a>
  <a class="job-link" href="   "><span class="job-title">Blank</span></a>
  <a class="job-link"><span class="job-title">No href</span></a>
  <a class="job-link" href="/careers/123"><span class="job-title">Good</span></a>
</body></html>`

	result := extractOne(t, cfg, html, "https://acme.com/careers")

	require.Len(t, result.Jobs, 1)
	assert.Equal(t, "https://acme.com/careers/123", result.Jobs[0].URL)
}

func TestExtractPageFiltersNonJobURLs(t *testing.T) {
	t.Parallel()

	yaml := `
company_name: Acme
job_url_selectors:
  - selector: "a"
`
	html := `
<html><body>
  <a href="/careers/123">Engineer</a>
  <a href="/about">About us</a>
  <a href="/assets/logo.png">Logo</a>
</body></html>`

	filtered := extractOne(t, mustConfig(t, yaml), html, "https://acme.com/careers")
	require.Len(t, filtered.Jobs, 1)
	assert.Equal(t, "https://acme.com/careers/123", filtered.Jobs[0].URL)

	unfiltered := extractOne(t, mustConfig(t, "filter_non_job_urls: false\n"+yaml), html, "https://acme.com/careers")
	assert.Len(t, unfiltered.Jobs, 3)
}

func TestExtractPageAttributeSource(t *testing.T) {
	t.Parallel()

	cfg := mustConfig(t, `
company_name: Acme
job_url_selectors:
  - selector: "div.job-card"
    attribute: data-url
    metadata:
      job_type:
        selector: ".type"
        transform: [strip, lower]
`)

	html := `
<html><body>
  <div class="job-card" data-url="/jobs/1"><span class="type"> FULL-TIME </span></div>
  <div class="job-card" data-url="/jobs/2"><span class="type"></span></div>
</body></html>`

	result := extractOne(t, cfg, html, "https://acme.com/jobs")

	require.Len(t, result.Jobs, 2)
	assert.Equal(t, "full-time", result.Jobs[0].JobType)
	// Empty after transforms means absent.
	assert.Empty(t, result.Jobs[1].JobType)
	assert.NotContains(t, result.Jobs[1].Metadata, "job_type")
}

func TestExtractPageMetadataScoping(t *testing.T) {
	t.Parallel()

	cfg := mustConfig(t, `
company_name: Acme
job_url_selectors:
  - selector: "a.job-link"
    metadata:
      title: ".job-title"
`)

	// The second listing has no title of its own; it must not inherit the
	// first listing's.
	html := `
<html><body>
  <a class="job-link" href="/careers/1"><span class="job-title">First</span></a>
  <a class="job-link" href="/careers/2"></a>
</body></html>`

	result := extractOne(t, cfg, html, "https://acme.com/careers")

	require.Len(t, result.Jobs, 2)
	assert.Equal(t, "First", result.Jobs[0].Title)
	assert.Empty(t, result.Jobs[1].Title)
}

func TestExtractPageTextNormalization(t *testing.T) {
	t.Parallel()

	cfg := mustConfig(t, `
company_name: Acme
job_url_selectors:
  - selector: "a.job-link"
    metadata:
      title: ".job-title"
`)

	html := `
<html><body>
  <a class="job-link" href="/careers/1">
    <span class="job-title">
      Senior
      <em>Go</em>
      Engineer
    </span>
  </a>
</body></html>`

	result := extractOne(t, cfg, html, "https://acme.com/careers")

	require.Len(t, result.Jobs, 1)
	assert.Equal(t, "Senior Go Engineer", result.Jobs[0].Title)
}

func TestExtractPageEmptyPage(t *testing.T) {
	t.Parallel()

	cfg := mustConfig(t, `
company_name: Acme
job_url_selectors:
  - selector: "a.job-link"
`)

	result := extractOne(t, cfg, "<html><body><p>No openings.</p></body></html>", "https://acme.com/careers")

	assert.Empty(t, result.Jobs)
	assert.Equal(t, 0, result.TotalJobs)
	assert.Equal(t, "Acme", result.CompanyName)
}

func TestExtractPageBadSourceURL(t *testing.T) {
	t.Parallel()

	engine, err := NewEngine(mustConfig(t, "job_url_selectors:\n  - selector: a"))
	require.NoError(t, err)

	_, err = engine.ExtractPage("<html></html>", "https://acme.com/\x7f%zz", time.Now())
	assert.Error(t, err)
}

func TestNewEngineRejectsEmptyConfig(t *testing.T) {
	t.Parallel()

	_, err := NewEngine(nil)
	assert.Error(t, err)
	_, err = NewEngine(&pattern.Config{})
	assert.Error(t, err)
}
