// Package chi exposes the read side of the index over HTTP.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/archivist/internal/domain"
	"github.com/kailas-cloud/archivist/internal/domain/run"
	"github.com/kailas-cloud/archivist/internal/metrics"
	healthuc "github.com/kailas-cloud/archivist/internal/usecase/health"
	searchuc "github.com/kailas-cloud/archivist/internal/usecase/search"
)

// Error codes carried in ErrorResponse.Code.
const (
	CodeBadRequest   = "bad_request"
	CodeUnauthorized = "unauthorized"
	CodeRateLimited  = "rate_limited"
	CodeUpstream     = "embedding_provider_error"
	CodeInternal     = "internal_error"
)

// ErrorResponse is the JSON body of every non-2xx response.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Searcher is the query side the server reads from.
type Searcher interface {
	Search(ctx context.Context, query string, k int, source *domain.Source) ([]searchuc.Result, error)
	Stats(ctx context.Context) (searchuc.Stats, error)
}

// HealthChecker reports component availability.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// RunHistory lists recent indexing runs. Optional.
type RunHistory interface {
	Recent(ctx context.Context, n int) ([]run.Report, error)
}

// Server implements the HTTP handlers.
type Server struct {
	search  Searcher
	health  HealthChecker
	history RunHistory
	logger  *zap.Logger
}

// NewServer creates a Server. history can be nil.
func NewServer(search Searcher, health HealthChecker, history RunHistory, logger *zap.Logger) *Server {
	return &Server{search: search, health: health, history: history, logger: logger}
}

// Router builds the full handler with middleware. Empty apiKeys disables auth.
func (s *Server) Router(apiKeys []string) http.Handler {
	metrics.RegisterHTTPMetrics()

	r := chi.NewRouter()
	r.Use(jsonRecoverer(s.logger))
	r.Use(chimw.RequestID)
	r.Use(wideEventMiddleware(s.logger))
	r.Use(BearerAuthMiddleware(apiKeys))
	r.Use(metrics.Middleware())

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, CodeBadRequest, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, CodeBadRequest, "method not allowed")
	})

	r.Get("/health", s.HealthCheck)
	r.Handle("/metrics", promhttp.Handler())
	r.Route("/v1", func(r chi.Router) {
		r.Get("/search", s.Search)
		r.Get("/stats", s.Stats)
		r.Get("/runs", s.Runs)
	})
	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
	Chunks *int              `json:"chunks,omitempty"`
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}
	resp := healthResponse{Status: string(report.Status), Checks: checks}
	if report.Chunks >= 0 {
		n := report.Chunks
		resp.Chunks = &n
	}

	status := http.StatusOK
	if report.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

type searchResponse struct {
	Query   string            `json:"query"`
	Count   int               `json:"count"`
	Results []searchuc.Result `json:"results"`
}

// Search handles GET /v1/search?q=&n=&source=.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := q.Get("q")

	n := 0
	if raw := q.Get("n"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			writeError(w, http.StatusBadRequest, CodeBadRequest, "n must be a positive integer")
			return
		}
		n = v
	}

	var source *domain.Source
	if raw := q.Get("source"); raw != "" {
		src, err := domain.ParseSource(raw)
		if err != nil {
			s.handleDomainError(w, r, err)
			return
		}
		source = &src
	}

	results, err := s.search.Search(r.Context(), query, n, source)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if results == nil {
		results = []searchuc.Result{}
	}
	writeJSON(w, http.StatusOK, searchResponse{Query: query, Count: len(results), Results: results})
}

// Stats handles GET /v1/stats.
func (s *Server) Stats(w http.ResponseWriter, r *http.Request) {
	st, err := s.search.Stats(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

type runResponse struct {
	RunID          string    `json:"run_id"`
	Source         string    `json:"source"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
	Found          int       `json:"found"`
	Unparsed       int       `json:"unparsed"`
	AlreadyIndexed int       `json:"already_indexed"`
	Added          int       `json:"added"`
	Chunks         int       `json:"chunks"`
	Empty          int       `json:"empty"`
	Failed         int       `json:"failed"`
	Verbatim       int       `json:"verbatim"`
	Summarized     int       `json:"summarized"`
}

const defaultRunsLimit = 20

// Runs handles GET /v1/runs?limit=.
func (s *Server) Runs(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeJSON(w, http.StatusOK, []runResponse{})
		return
	}

	limit := defaultRunsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			writeError(w, http.StatusBadRequest, CodeBadRequest, "limit must be a positive integer")
			return
		}
		limit = v
	}

	reports, err := s.history.Recent(r.Context(), limit)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	out := make([]runResponse, 0, len(reports))
	for _, rep := range reports {
		out = append(out, runResponse{
			RunID:          rep.RunID,
			Source:         rep.Source.String(),
			StartedAt:      rep.StartedAt,
			FinishedAt:     rep.FinishedAt,
			Found:          rep.Found,
			Unparsed:       rep.Unparsed,
			AlreadyIndexed: rep.AlreadyIndexed,
			Added:          rep.Added,
			Chunks:         rep.Chunks,
			Empty:          rep.Empty,
			Failed:         rep.Failed,
			Verbatim:       rep.Verbatim,
			Summarized:     rep.Summarized,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

type sentinelMapping struct {
	err    error
	status int
	code   string
}

var sentinels = []sentinelMapping{
	{domain.ErrEmptyQuery, http.StatusBadRequest, CodeBadRequest},
	{domain.ErrUnknownSource, http.StatusBadRequest, CodeBadRequest},
	{domain.ErrRateLimited, http.StatusTooManyRequests, CodeRateLimited},
	{domain.ErrEmbeddingProviderError, http.StatusBadGateway, CodeUpstream},
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	for _, m := range sentinels {
		if errors.Is(err, m.err) {
			writeError(w, m.status, m.code, err.Error())
			return
		}
	}
	s.logger.Error("request failed",
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	writeError(w, http.StatusInternalServerError, CodeInternal, "internal error")
}
