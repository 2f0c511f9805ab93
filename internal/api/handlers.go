package api

import (
	"net/http"
	"strconv"

	"github.com/baxromumarov/jobscout/internal/extract"
	"github.com/baxromumarov/jobscout/internal/observability"
)

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, observability.Snapshot())
}

func (s *Server) handleLatestResult(w http.ResponseWriter, r *http.Request) {
	result := s.latestResult()
	if result == nil {
		respondError(w, http.StatusNotFound, "No crawl result available yet")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// handleListJobs pages through the jobs of the latest result.
func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	result := s.latestResult()
	if result == nil {
		respondError(w, http.StatusNotFound, "No crawl result available yet")
		return
	}

	limit, offset := parsePagination(r, 20)

	jobs := result.Jobs
	total := len(jobs)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	page := jobs[offset:end]
	// Return empty list if nil to be JSON friendly
	if page == nil {
		page = []extract.JobRecord{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"items":   page,
		"limit":   limit,
		"offset":  offset,
		"total":   total,
		"company": result.CompanyName,
	})
}

func parsePagination(r *http.Request, defaultLimit int) (int, int) {
	q := r.URL.Query()
	limit := defaultLimit
	offset := 0

	if v := q.Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}

	if v := q.Get("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			offset = parsed
		}
	}

	if limit <= 0 {
		limit = defaultLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
