// Package httpapi exposes the search core over HTTP. Handlers are thin: they
// parse the transport envelope, delegate to use case services, and map domain
// errors to status codes without leaking internal detail.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/calder-ai/semsearch/internal/domain"
	healthuc "github.com/calder-ai/semsearch/internal/usecase/health"
	searchuc "github.com/calder-ai/semsearch/internal/usecase/search"
)

// Queries shorter than this after trimming are rejected at the boundary.
const minQueryRunes = 3

// ErrorResponse is the wire shape for all error payloads.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SearchRequest is the wire shape of POST /search.
type SearchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k,omitempty"`
}

// HealthResponse is the wire shape of GET /health.
type HealthResponse struct {
	Status    string                          `json:"status"`
	Documents int                             `json:"documents"`
	Checks    map[string]healthuc.CheckResult `json:"checks,omitempty"`
}

// Server holds the use case services behind the HTTP surface.
type Server struct {
	search *searchuc.Service
	health *healthuc.Service
	logger *zap.Logger
}

// NewServer creates an HTTP API server.
func NewServer(search *searchuc.Service, health *healthuc.Service, logger *zap.Logger) *Server {
	return &Server{search: search, health: health, logger: logger}
}

// Routes registers all endpoints on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Post("/search", s.Search)
	r.Get("/metrics", s.Metrics)
}

// Search handles POST /search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body")
		return
	}

	if utf8.RuneCountInString(strings.TrimSpace(req.Query)) < minQueryRunes {
		writeError(w, http.StatusBadRequest, "invalid_query",
			"Query must not be empty and at least 3 characters long")
		return
	}

	results, err := s.search.Search(r.Context(), req.Query, req.TopK)
	if err != nil {
		s.handleSearchError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, results)
}

// HealthCheck handles GET /health. The process only serves after all
// snapshots loaded, so liveness stays 200; degraded components surface in
// the body.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    string(report.Status),
		Documents: report.Documents,
		Checks:    report.Checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// handleSearchError maps domain errors to status codes. Internal causes are
// logged with full detail and returned as an opaque message.
func (s *Server) handleSearchError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidQuery):
		writeError(w, http.StatusBadRequest, "invalid_query", domain.ErrInvalidQuery.Error())
	case errors.Is(err, domain.ErrEmbeddingProviderError):
		s.logger.Error("embedding provider failure", zap.Error(err))
		writeError(w, http.StatusBadGateway, "embedding_provider_error",
			domain.ErrEmbeddingProviderError.Error())
	default:
		s.logger.Error("search failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}
