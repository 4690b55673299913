// Package chi is the HTTP transport: two query routes in front of the
// scatter-gather engine, plus health and metrics.
package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/meritview/cutoffd/internal/domain"
	domquery "github.com/meritview/cutoffd/internal/domain/query"
	healthuc "github.com/meritview/cutoffd/internal/usecase/health"
	queryuc "github.com/meritview/cutoffd/internal/usecase/query"
)

// Error codes returned to clients.
const (
	codeBadRequest             = "bad_request"
	codeInvalidSortField       = "invalid_sort_field"
	codeInvalidPercentile      = "invalid_percentile"
	codeAuthenticationRequired = "authentication_required"
	codeBackendQueryFailed     = "backend_query_failed"
	codeInternalError          = "internal_error"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Server hosts the cutoff query API.
type Server struct {
	queries       *queryuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(queries *queryuc.Service, health *healthuc.Service, logger *zap.Logger) *Server {
	s := &Server{
		queries: queries,
		health:  health,
		logger:  logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidSortField, http.StatusBadRequest, codeInvalidSortField),
		sentinelHandler(domain.ErrInvalidPercentile, http.StatusBadRequest, codeInvalidPercentile),
		sentinelHandler(domain.ErrAuthenticationRequired, http.StatusUnauthorized, codeAuthenticationRequired),
		sentinelHandler(domain.ErrBackendQueryFailed, http.StatusInternalServerError, codeBackendQueryFailed),
	}
	return s
}

// Routes mounts the API routes onto r.
func (s *Server) Routes(r chi.Router) {
	r.Post("/api/cutoffs/search", s.SearchCutoffs)
	r.Post("/api/cutoffs/percentile", s.PercentileCutoffs)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// searchRequest is the JSON body of both query routes.
type searchRequest struct {
	Search           string   `json:"search"`
	Categories       []string `json:"categories"`
	Courses          []string `json:"courses"`
	Statuses         []string `json:"statuses"`
	HomeUniversities []string `json:"homeUniversities"`
	SeatAllocations  []string `json:"seatAllocations"`
	Percentile       string   `json:"percentile"`
	SortField        string   `json:"sortField"`
	SortDirection    string   `json:"sortDirection"`
	Page             int      `json:"page"`
	PerPage          int      `json:"perPage"`
}

type queryResponse struct {
	Success    bool                  `json:"success"`
	Items      []domain.CutoffRecord `json:"items"`
	TotalItems int                   `json:"totalItems"`
	TotalPages int                   `json:"totalPages"`
	Page       int                   `json:"page"`
	PerPage    int                   `json:"perPage"`
	Truncated  bool                  `json:"truncated,omitempty"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// SearchCutoffs handles POST /api/cutoffs/search.
func (s *Server) SearchCutoffs(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	s.execute(w, r, req)
}

// PercentileCutoffs handles POST /api/cutoffs/percentile. The percentile
// target is mandatory on this route; the engine forces the sort to
// cutoff_score descending.
func (s *Server) PercentileCutoffs(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Percentile == "" {
		writeError(w, http.StatusBadRequest, codeInvalidPercentile, "percentile is required")
		return
	}
	s.execute(w, r, req)
}

func (s *Server) execute(w http.ResponseWriter, r *http.Request, req searchRequest) {
	q, err := domquery.New(domquery.Params{
		Search:           req.Search,
		Categories:       req.Categories,
		Courses:          req.Courses,
		Statuses:         req.Statuses,
		HomeUniversities: req.HomeUniversities,
		SeatAllocations:  req.SeatAllocations,
		Percentile:       req.Percentile,
		SortField:        req.SortField,
		SortDirection:    req.SortDirection,
		Page:             req.Page,
		PerPage:          req.PerPage,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	page, err := s.queries.Execute(r.Context(), &q)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := page.Items
	if items == nil {
		items = []domain.CutoffRecord{}
	}
	writeJSON(w, http.StatusOK, queryResponse{
		Success:    true,
		Items:      items,
		TotalItems: page.TotalItems,
		TotalPages: page.TotalPages,
		Page:       page.Page,
		PerPage:    page.PerPage,
		Truncated:  page.Truncated,
	})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	for _, h := range s.errorHandlers {
		if h(w, err) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		resp := errorResponse{Error: code, Message: sentinel.Error()}
		// Sentinel wrapping keeps the detail safe to show; internals are
		// only reachable through the default internal_error branch.
		if status != http.StatusInternalServerError {
			resp.Details = err.Error()
		}
		writeJSON(w, status, resp)
		return true
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		Error:   code,
		Message: message,
	})
}
