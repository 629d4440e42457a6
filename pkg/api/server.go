package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/driftnetio/driftnet/pkg/scrape"
	"github.com/driftnetio/driftnet/pkg/scrape/types"
	"github.com/driftnetio/driftnet/pkg/storage/postgres"
	"github.com/rs/zerolog"
)

type Server struct {
	scheduler    *scrape.Scheduler
	orchestrator *scrape.Orchestrator
	registry     *scrape.Registry
	posts        *postgres.PostRepository
	jobs         *postgres.JobRepository
	logger       *zerolog.Logger
	http         http.Server
}

func NewServer(
	logger *zerolog.Logger,
	config *Config,
	registry *scrape.Registry,
	orchestrator *scrape.Orchestrator,
	scheduler *scrape.Scheduler,
	posts *postgres.PostRepository,
	jobs *postgres.JobRepository,
) *Server {
	mux := http.NewServeMux()

	server := &Server{
		scheduler:    scheduler,
		orchestrator: orchestrator,
		registry:     registry,
		posts:        posts,
		jobs:         jobs,
		logger:       logger,
		http: http.Server{
			Addr:    fmt.Sprintf("%s:%d", config.Host, config.Port),
			Handler: corsMiddleware(mux, config.CORSOrigin),
		},
	}

	mux.HandleFunc("POST /jobs", server.createJob)
	mux.HandleFunc("GET /jobs", server.listJobs)
	mux.HandleFunc("GET /jobs/{id}", server.getJob)
	mux.HandleFunc("DELETE /jobs/{id}", server.stopJob)
	mux.HandleFunc("GET /strategies", server.listStrategies)
	mux.HandleFunc("GET /presets", server.listPresets)
	mux.HandleFunc("GET /posts", server.queryPosts)
	mux.HandleFunc("GET /health", server.health)

	return server
}

func corsMiddleware(next http.Handler, originConfig string) http.Handler {
	origins := strings.Split(originConfig, ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestOrigin := r.Header.Get("Origin")

		if len(origins) == 1 && origins[0] == "*" {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		} else if requestOrigin != "" && slices.Contains(origins, requestOrigin) {
			// CORS doesn't support multiple origins,
			// so we either set the origin in the header or not at all.
			w.Header().Set("Access-Control-Allow-Origin", requestOrigin)
		}

		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.http.Addr).Msg("Starting HTTP server")
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error().Err(err).Msg("Response write error")
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}

func parsePlatformParam(r *http.Request) (types.Platform, error) {
	raw := r.URL.Query().Get("platform")
	if raw == "" {
		return "", nil
	}
	return types.ParsePlatform(raw)
}
