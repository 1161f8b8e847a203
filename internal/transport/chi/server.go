package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	chiv5 "github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/labscout/labscout/internal/domain"
	cataloguc "github.com/labscout/labscout/internal/usecase/catalog"
	embeddinguc "github.com/labscout/labscout/internal/usecase/embedding"
	healthuc "github.com/labscout/labscout/internal/usecase/health"
	searchuc "github.com/labscout/labscout/internal/usecase/search"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server exposes the matching core over HTTP.
type Server struct {
	search        *searchuc.Service
	catalog       *cataloguc.Service
	embeddings    *embeddinguc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	search *searchuc.Service,
	catalog *cataloguc.Service,
	embeddings *embeddinguc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		search:     search,
		catalog:    catalog,
		embeddings: embeddings,
		health:     health,
		logger:     logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrQueryTooShort, http.StatusBadRequest, codeQueryTooShort),
		sentinelHandler(domain.ErrInvalidInput, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, codeNotFound),
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, codeRateLimited),
		sentinelHandler(domain.ErrProviderUnavailable, http.StatusServiceUnavailable, codeProviderUnavailable),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, codeEmbeddingProvider),
		sentinelHandler(domain.ErrVectorDimMismatch, http.StatusBadGateway, codeEmbeddingProvider),
		sentinelHandler(domain.ErrScanLimitExceeded, http.StatusServiceUnavailable, codeSearchOverloaded),
	}
	return s
}

// Router assembles the route tree. auth guards mutating endpoints; pass the
// result of BearerAuthMiddleware.
func (s *Server) Router(auth func(http.Handler) http.Handler) chiv5.Router {
	r := chiv5.NewRouter()

	r.Get("/healthz", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/api/v1", func(r chiv5.Router) {
		r.Post("/opportunities/search", s.SearchOpportunities)
		r.Get("/opportunities", s.ListOpportunities)
		r.Get("/opportunities/{id}", s.GetOpportunity)
		r.Get("/embeddings/stats", s.EmbeddingStats)

		r.Group(func(r chiv5.Router) {
			r.Use(auth)
			r.Put("/opportunities/{id}", s.UpsertOpportunity)
			r.Delete("/opportunities/{id}", s.DeleteOpportunity)
			r.Put("/users/{id}/interests", s.SetUserInterests)
			r.Post("/embeddings/opportunities", s.GenerateOpportunityEmbeddings)
			r.Post("/embeddings/opportunities/{id}", s.EnsureOpportunityEmbedding)
			r.Post("/embeddings/users", s.GenerateUserEmbeddings)
			r.Post("/embeddings/users/{id}", s.EnsureUserEmbedding)
		})
	})

	return r
}

// SearchOpportunities handles POST /api/v1/opportunities/search.
func (s *Server) SearchOpportunities(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	res, err := s.search.Search(r.Context(), searchuc.Params{
		Query:   req.Query,
		Filters: req.Filters.toDomain(),
		Limit:   req.Limit,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]searchResultItem, len(res.Matches))
	for i, m := range res.Matches {
		items[i] = searchResultItem{Opportunity: m.Opportunity, SimilarityScore: m.Score}
	}

	writeJSON(w, http.StatusOK, searchResponse{
		Query:              req.Query,
		Results:            items,
		Count:              res.Count,
		TotalCandidatePool: res.CandidatePool,
	})
}

// UpsertOpportunity handles PUT /api/v1/opportunities/{id}.
func (s *Server) UpsertOpportunity(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var o domain.Opportunity
	if err := json.NewDecoder(r.Body).Decode(&o); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	o.ID = id

	created, err := s.catalog.UpsertOpportunity(r.Context(), &o)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
		w.Header().Set("Location", fmt.Sprintf("/api/v1/opportunities/%d", id))
	}
	writeJSON(w, status, o)
}

// GetOpportunity handles GET /api/v1/opportunities/{id}.
func (s *Server) GetOpportunity(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	o, err := s.catalog.GetOpportunity(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, o)
}

// ListOpportunities handles GET /api/v1/opportunities.
func (s *Server) ListOpportunities(w http.ResponseWriter, r *http.Request) {
	offset := queryInt(r, "offset", 0)
	limit := queryInt(r, "limit", 20)

	page, err := s.catalog.ListOpportunities(r.Context(), offset, limit)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, page)
}

// DeleteOpportunity handles DELETE /api/v1/opportunities/{id}.
func (s *Server) DeleteOpportunity(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := s.catalog.DeleteOpportunity(r.Context(), id); err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SetUserInterests handles PUT /api/v1/users/{id}/interests.
func (s *Server) SetUserInterests(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req interestsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	u, err := s.catalog.SetUserInterests(r.Context(), id, req.ResearchInterests)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, u)
}

// EnsureOpportunityEmbedding handles POST /api/v1/embeddings/opportunities/{id}.
func (s *Server) EnsureOpportunityEmbedding(w http.ResponseWriter, r *http.Request) {
	s.ensureEmbedding(w, r, s.embeddings.EnsureOpportunity)
}

// EnsureUserEmbedding handles POST /api/v1/embeddings/users/{id}.
func (s *Server) EnsureUserEmbedding(w http.ResponseWriter, r *http.Request) {
	s.ensureEmbedding(w, r, s.embeddings.EnsureUser)
}

func (s *Server) ensureEmbedding(
	w http.ResponseWriter,
	r *http.Request,
	ensure func(ctx context.Context, id int64, force bool) (embeddinguc.Status, error),
) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	status, err := ensure(r.Context(), id, queryBool(r, "force"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ensureResponse{Status: string(status)})
}

// GenerateOpportunityEmbeddings handles POST /api/v1/embeddings/opportunities.
func (s *Server) GenerateOpportunityEmbeddings(w http.ResponseWriter, r *http.Request) {
	s.generateAll(w, r, domain.KindOpportunity)
}

// GenerateUserEmbeddings handles POST /api/v1/embeddings/users.
func (s *Server) GenerateUserEmbeddings(w http.ResponseWriter, r *http.Request) {
	s.generateAll(w, r, domain.KindUser)
}

func (s *Server) generateAll(w http.ResponseWriter, r *http.Request, kind domain.Kind) {
	summary, err := s.embeddings.GenerateAll(r.Context(), kind, queryBool(r, "force"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// EmbeddingStats handles GET /api/v1/embeddings/stats.
func (s *Server) EmbeddingStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.embeddings.CollectStats(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// HealthCheck handles GET /healthz.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, report)
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chiv5.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "id must be a positive integer")
		return 0, false
	}
	return id, true
}

func queryInt(r *http.Request, name string, def int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func queryBool(r *http.Request, name string) bool {
	b, _ := strconv.ParseBool(r.URL.Query().Get(name))
	return b
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrQueryTooShort,
		domain.ErrInvalidInput,
		domain.ErrNotFound,
		domain.ErrRateLimited,
		domain.ErrProviderUnavailable,
		domain.ErrEmbeddingProviderError,
		domain.ErrVectorDimMismatch,
		domain.ErrScanLimitExceeded,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
