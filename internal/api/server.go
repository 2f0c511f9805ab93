// Package api exposes crawl results and runtime counters over HTTP. The
// server is read-only: crawls are started from the CLI, and the API lets
// other tools poll what the last run produced.
package api

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/baxromumarov/jobscout/internal/extract"
)

type Server struct {
	router *chi.Mux

	mu     sync.RWMutex
	latest *extract.CrawlResult
}

func NewServer() *Server {
	s := &Server{
		router: chi.NewRouter(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	s.router.Get("/health", s.handleHealth)
	s.router.Get("/stats", s.handleStats)
	s.router.Get("/results/latest", s.handleLatestResult)
	s.router.Get("/jobs", s.handleListJobs)
}

func (s *Server) Router() http.Handler {
	return s.router
}

// SetResult publishes a finished crawl result to the API.
func (s *Server) SetResult(result *extract.CrawlResult) {
	s.mu.Lock()
	s.latest = result
	s.mu.Unlock()
}

func (s *Server) latestResult() *extract.CrawlResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	response, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(response)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
