// Package rest exposes the query and lifecycle surfaces over HTTP.
package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dwellsense/dwellsense/application"
	"github.com/dwellsense/dwellsense/domain/automation"
	"github.com/dwellsense/dwellsense/domain/capability"
	"github.com/dwellsense/dwellsense/domain/suggestion"
	"github.com/dwellsense/dwellsense/infrastructure/lifecycle"
	"github.com/dwellsense/dwellsense/infrastructure/logging"
)

// ServerConfig contains the server collaborators.
type ServerConfig struct {
	Query     *application.QueryService
	Lifecycle *lifecycle.Manager
	// Batch is optional; without it the refresh and run triggers return 503.
	Batch *application.BatchService
	// Address to listen on, e.g. ":8080".
	Address string
}

// Server is the HTTP query and lifecycle surface.
type Server struct {
	config ServerConfig
	router chi.Router
	http   *http.Server
}

// NewServer creates the REST server.
func NewServer(config ServerConfig) (*Server, error) {
	if config.Query == nil {
		return nil, errors.New("query service is required")
	}
	if config.Lifecycle == nil {
		return nil, errors.New("lifecycle manager is required")
	}
	if config.Address == "" {
		config.Address = ":8080"
	}

	s := &Server{config: config}
	s.router = s.routes()
	s.http = &http.Server{
		Addr:              config.Address,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe blocks serving requests until Shutdown.
func (s *Server) ListenAndServe() error {
	logging.Info().
		Add(logging.Component("rest")).
		Add(logging.Str("address", s.config.Address)).
		Msg("http server listening")
	return s.http.ListenAndServe()
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/utilization", s.handleUtilization)
		r.Get("/opportunities", s.handleOpportunities)

		r.Get("/capabilities", s.handleListCapabilities)
		r.Get("/capabilities/{vendor}/{model}", s.handleGetCapability)
		r.Post("/capabilities/refresh", s.handleRefreshCapabilities)

		r.Post("/runs", s.handleTriggerRun)

		r.Route("/suggestions", func(r chi.Router) {
			r.Get("/", s.handleListSuggestions)
			r.Get("/{id}", s.handleGetSuggestion)
			r.Get("/{id}/history", s.handleSuggestionHistory)
			r.Post("/{id}/approve", s.handleApprove)
			r.Post("/{id}/reject", s.handleReject)
			r.Post("/{id}/deploy", s.handleDeploy)
			r.Post("/{id}/remove", s.handleRemove)
		})
	})

	return r
}

func (s *Server) handleUtilization(w http.ResponseWriter, r *http.Request) {
	report, err := s.config.Query.Utilization(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleOpportunities(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, errorBody("limit must be a non-negative integer"))
			return
		}
		limit = n
	}

	opportunities, err := s.config.Query.Opportunities(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"opportunities": opportunities})
}

func (s *Server) handleListCapabilities(w http.ResponseWriter, r *http.Request) {
	defs, err := s.config.Query.Capabilities(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"capabilities": defs})
}

func (s *Server) handleGetCapability(w http.ResponseWriter, r *http.Request) {
	key := capability.Key{
		Vendor:      chi.URLParam(r, "vendor"),
		Model:       chi.URLParam(r, "model"),
		Integration: r.URL.Query().Get("integration"),
	}

	def, err := s.config.Query.Capability(r.Context(), key)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, def)
}

func (s *Server) handleRefreshCapabilities(w http.ResponseWriter, r *http.Request) {
	if s.config.Batch == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody("capability refresh is not configured"))
		return
	}
	if err := s.config.Batch.RefreshCapabilities(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"status": "refreshed"})
}

func (s *Server) handleTriggerRun(w http.ResponseWriter, r *http.Request) {
	if s.config.Batch == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody("batch runs are not configured"))
		return
	}

	// The run outlives the request; it reports through logs and the run
	// summary notification.
	go func() {
		if _, err := s.config.Batch.Execute(context.Background()); err != nil {
			logging.Error().
				Add(logging.Component("rest")).
				Add(logging.ErrorField(err)).
				Msg("triggered batch run failed")
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]any{"status": "started"})
}

func (s *Server) handleListSuggestions(w http.ResponseWriter, r *http.Request) {
	filter := suggestion.ListFilter{
		OrderBy:    suggestion.OrderByConfidence,
		Descending: true,
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		filter.Status = []suggestion.Status{suggestion.Status(raw)}
	}
	if raw := r.URL.Query().Get("source"); raw != "" {
		filter.Sources = []suggestion.Source{suggestion.Source(raw)}
	}

	sugs, err := s.config.Query.Suggestions(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"suggestions": sugs})
}

func (s *Server) handleGetSuggestion(w http.ResponseWriter, r *http.Request) {
	sug, err := s.config.Query.Suggestion(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sug)
}

func (s *Server) handleSuggestionHistory(w http.ResponseWriter, r *http.Request) {
	history, err := s.config.Lifecycle.History(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": history})
}

type decisionRequest struct {
	Actor  string `json:"actor"`
	Reason string `json:"reason,omitempty"`
}

func decodeDecision(r *http.Request) (decisionRequest, error) {
	var req decisionRequest
	if r.Body == nil || r.ContentLength == 0 {
		req.Actor = "api"
		return req, nil
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return req, err
	}
	if req.Actor == "" {
		req.Actor = "api"
	}
	return req, nil
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	req, err := decodeDecision(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid request body"))
		return
	}
	sug, err := s.config.Lifecycle.Approve(r.Context(), chi.URLParam(r, "id"), req.Actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sug)
}

func (s *Server) handleReject(w http.ResponseWriter, r *http.Request) {
	req, err := decodeDecision(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid request body"))
		return
	}
	sug, err := s.config.Lifecycle.Reject(r.Context(), chi.URLParam(r, "id"), req.Actor, req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sug)
}

func (s *Server) handleDeploy(w http.ResponseWriter, r *http.Request) {
	req, err := decodeDecision(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid request body"))
		return
	}
	sug, err := s.config.Lifecycle.Deploy(r.Context(), chi.URLParam(r, "id"), req.Actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sug)
}

func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	req, err := decodeDecision(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid request body"))
		return
	}
	sug, err := s.config.Lifecycle.Remove(r.Context(), chi.URLParam(r, "id"), req.Actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sug)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error().
			Add(logging.Component("rest")).
			Add(logging.ErrorField(err)).
			Msg("failed to encode response")
	}
}

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}

// writeError maps domain errors onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, suggestion.ErrSuggestionNotFound),
		errors.Is(err, capability.ErrDefinitionNotFound):
		writeJSON(w, http.StatusNotFound, errorBody(err.Error()))
	case errors.Is(err, suggestion.ErrInvalidTransition):
		writeJSON(w, http.StatusConflict, errorBody(err.Error()))
	case errors.Is(err, automation.ErrDeployFailed),
		errors.Is(err, automation.ErrRemoveFailed):
		writeJSON(w, http.StatusBadGateway, errorBody(err.Error()))
	default:
		logging.Error().
			Add(logging.Component("rest")).
			Add(logging.ErrorField(err)).
			Msg("request failed")
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}
