package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baxromumarov/jobscout/internal/extract"
)

func testResult() *extract.CrawlResult {
	jobs := make([]extract.JobRecord, 0, 30)
	for i := 0; i < 30; i++ {
		jobs = append(jobs, extract.JobRecord{
			URL:     "https://acme.com/careers/" + string(rune('a'+i%26)),
			Company: "Acme",
		})
	}
	return &extract.CrawlResult{
		SourceURL:   "https://acme.com/careers",
		TotalJobs:   len(jobs),
		CompanyName: "Acme",
		Jobs:        jobs,
	}
}

func TestHealth(t *testing.T) {
	t.Parallel()

	srv := NewServer()
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLatestResult(t *testing.T) {
	t.Parallel()

	srv := NewServer()

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/results/latest", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	srv.SetResult(testResult())
	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/results/latest", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got extract.CrawlResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "Acme", got.CompanyName)
	assert.Len(t, got.Jobs, 30)
}

func TestListJobsPagination(t *testing.T) {
	t.Parallel()

	srv := NewServer()
	srv.SetResult(testResult())

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs?limit=10&offset=25", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got struct {
		Items  []extract.JobRecord `json:"items"`
		Limit  int                 `json:"limit"`
		Offset int                 `json:"offset"`
		Total  int                 `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Len(t, got.Items, 5)
	assert.Equal(t, 10, got.Limit)
	assert.Equal(t, 25, got.Offset)
	assert.Equal(t, 30, got.Total)
}

func TestStats(t *testing.T) {
	t.Parallel()

	srv := NewServer()
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Contains(t, got, "pages_rendered")
	assert.Contains(t, got, "jobs_extracted")
}
