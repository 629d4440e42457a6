package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/driftnetio/driftnet/pkg/scrape"
	"github.com/driftnetio/driftnet/pkg/storage/postgres"
)

func (s *Server) createJob(w http.ResponseWriter, r *http.Request) {
	var req scrape.CreateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	job, err := s.scheduler.CreateJob(r.Context(), req)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.writeJSON(w, http.StatusAccepted, job)
}

func (s *Server) listJobs(w http.ResponseWriter, r *http.Request) {
	var status scrape.JobState
	if raw := r.URL.Query().Get("status"); raw != "" {
		status = scrape.JobState(raw)
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	jobs, err := s.jobs.List(r.Context(), status, limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list jobs")
		s.writeError(w, http.StatusInternalServerError, "failed to list jobs")
		return
	}

	active := s.scheduler.ListActiveJobs()
	s.writeJSON(w, http.StatusOK, map[string]any{
		"jobs":       jobs,
		"activeJobs": active,
	})
}

func (s *Server) getJob(w http.ResponseWriter, r *http.Request) {
	status, err := s.scheduler.JobStatus(r.Context(), r.PathValue("id"))
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to get job status")
		s.writeError(w, http.StatusInternalServerError, "failed to get job status")
		return
	}
	if status == nil {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}

	s.writeJSON(w, http.StatusOK, status)
}

func (s *Server) stopJob(w http.ResponseWriter, r *http.Request) {
	stopped, err := s.scheduler.StopJob(r.Context(), r.PathValue("id"))
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to stop job")
		s.writeError(w, http.StatusInternalServerError, "failed to stop job")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]bool{"stopped": stopped})
}

func (s *Server) listStrategies(w http.ResponseWriter, r *http.Request) {
	out := make(map[string]any)
	for _, platform := range s.registry.Platforms() {
		out[string(platform)] = map[string]any{
			"strategies":   s.registry.AvailableStrategies(platform),
			"capabilities": s.registry.Capabilities(platform),
		}
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) listPresets(w http.ResponseWriter, r *http.Request) {
	platform, err := parsePlatformParam(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	presets := scrape.SearchPresets(platform, r.URL.Query().Get("q"))
	s.writeJSON(w, http.StatusOK, presets)
}

func (s *Server) queryPosts(w http.ResponseWriter, r *http.Request) {
	platform, err := parsePlatformParam(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	posts, err := s.posts.Query(r.Context(), postgres.PostQuery{
		Platform: platform,
		Author:   r.URL.Query().Get("author"),
		Target:   r.URL.Query().Get("target"),
		Limit:    limit,
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to query posts")
		s.writeError(w, http.StatusInternalServerError, "failed to query posts")
		return
	}

	s.writeJSON(w, http.StatusOK, posts)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	out := make(map[string]map[string]bool)
	for _, platform := range s.registry.Platforms() {
		strategies := s.orchestrator.HealthCheck(r.Context(), platform)
		byStrategy := make(map[string]bool, len(strategies))
		for strategy, healthy := range strategies {
			byStrategy[string(strategy)] = healthy
		}
		out[string(platform)] = byStrategy
	}
	s.writeJSON(w, http.StatusOK, out)
}
