package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/user/neptun-scraper/internal/domain"
	"github.com/user/neptun-scraper/internal/site"
)

type targetInfo struct {
	Name          string `json:"name"`
	Description   string `json:"description"`
	RequiresQuery bool   `json:"requires_query"`
	Paged         bool   `json:"paged"`
}

func (s *Server) handleTargets(w http.ResponseWriter, r *http.Request) {
	var out []targetInfo
	for _, name := range site.Names() {
		t, _ := site.Lookup(name)
		out = append(out, targetInfo{
			Name:          t.Name,
			Description:   t.Description,
			RequiresQuery: t.RequiresQuery,
			Paged:         t.Paged,
		})
	}
	s.respondWithJSON(w, http.StatusOK, out)
}

func (s *Server) handleScrapeRequest(w http.ResponseWriter, r *http.Request) {
	var req domain.ScrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	t, err := site.Lookup(req.Target)
	if err != nil {
		s.respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if t.RequiresQuery && req.Query == "" {
		s.respondWithError(w, http.StatusBadRequest, "Target "+t.Name+" requires a query")
		return
	}
	if req.Pages < 0 {
		s.respondWithError(w, http.StatusBadRequest, "Pages cannot be negative")
		return
	}

	j := s.submit(req)
	s.respondWithJSON(w, http.StatusAccepted, map[string]string{"id": j.id, "status": domain.JobPending})
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	status, ok := s.jobs.get(chi.URLParam(r, "id"))
	if !ok {
		s.respondWithError(w, http.StatusNotFound, "Job not found")
		return
	}
	s.respondWithJSON(w, http.StatusOK, status)
}

func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	healthStatus := map[string]string{"api": "healthy"}
	isHealthy := true
	for name, p := range s.pingers {
		if err := p.Ping(ctx); err != nil {
			healthStatus[name] = "unhealthy"
			isHealthy = false
			s.logger.Error("health check failed", zap.String("sink", name), zap.Error(err))
			continue
		}
		healthStatus[name] = "healthy"
	}

	if !isHealthy {
		s.respondWithJSON(w, http.StatusServiceUnavailable, healthStatus)
		return
	}
	s.respondWithJSON(w, http.StatusOK, healthStatus)
}

// --- Helper Functions ---

func (s *Server) respondWithError(w http.ResponseWriter, code int, message string) {
	s.respondWithJSON(w, code, map[string]string{"error": message})
}

func (s *Server) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
