package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vecdemo/internal/domain/search/approach"
	"github.com/kailas-cloud/vecdemo/internal/domain/search/request"
	"github.com/kailas-cloud/vecdemo/internal/domain/search/result"
	"github.com/kailas-cloud/vecdemo/internal/usecase/health"
	"github.com/kailas-cloud/vecdemo/internal/usecase/invocation"
)

// maxBodyBytes caps a search request body.
const maxBodyBytes = 64 << 10

// SearchRunner runs one multi-approach invocation.
type SearchRunner interface {
	Run(ctx context.Context, req *request.Request) (result.Outcome, error)
}

// HealthService aggregates remote service checks.
type HealthService interface {
	Check(ctx context.Context) health.Report
}

// Config wires the server. Image may be nil when image search is not configured.
type Config struct {
	Text     SearchRunner
	Image    SearchRunner
	Registry *invocation.Registry
	Health   HealthService
	// DefaultFilter is used by the filtered text approach when a request carries no filter.
	DefaultFilter string
	Logger        *zap.Logger
}

// Server implements the HTTP API.
type Server struct {
	text          SearchRunner
	image         SearchRunner
	registry      *invocation.Registry
	health        HealthService
	defaultFilter string
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates a Server.
func NewServer(cfg Config) *Server {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	reg := cfg.Registry
	if reg == nil {
		reg = invocation.NewRegistry()
	}
	return &Server{
		text:          cfg.Text,
		image:         cfg.Image,
		registry:      reg,
		health:        cfg.Health,
		defaultFilter: strings.TrimSpace(cfg.DefaultFilter),
		logger:        log,
		errorHandlers: defaultErrorHandlers(),
	}
}

// Routes mounts the API on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/approaches", s.ListApproaches)
		r.Post("/search/text", s.SearchTextPost)
		r.Get("/search/text", s.SearchTextGet)
		r.Post("/search/image", s.SearchImagePost)
		r.Get("/search/image", s.SearchImageGet)
	})
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, ErrorCodeBadRequest, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, ErrorCodeBadRequest, "method not allowed")
	})
}

// Handler returns a router with the API mounted and the given middlewares applied.
func (s *Server) Handler(middlewares ...func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middlewares...)
	s.Routes(r)
	return r
}

// SearchTextPost handles POST /api/v1/search/text.
func (s *Server) SearchTextPost(w http.ResponseWriter, r *http.Request) {
	body, ok := decodeSearchRequest(w, r)
	if !ok {
		return
	}
	s.searchText(w, r, body)
}

// SearchTextGet handles GET /api/v1/search/text.
func (s *Server) SearchTextGet(w http.ResponseWriter, r *http.Request) {
	body, ok := bindSearchParams(w, r)
	if !ok {
		return
	}
	s.searchText(w, r, body)
}

// SearchImagePost handles POST /api/v1/search/image.
func (s *Server) SearchImagePost(w http.ResponseWriter, r *http.Request) {
	body, ok := decodeSearchRequest(w, r)
	if !ok {
		return
	}
	s.searchImage(w, r, body)
}

// SearchImageGet handles GET /api/v1/search/image.
func (s *Server) SearchImageGet(w http.ResponseWriter, r *http.Request) {
	body, ok := bindSearchParams(w, r)
	if !ok {
		return
	}
	s.searchImage(w, r, body)
}

func (s *Server) searchText(w http.ResponseWriter, r *http.Request, body SearchRequest) {
	if body.Filter == "" && contains(body.Approaches, approach.VectorWithFilter.Key()) {
		body.Filter = s.defaultFilter
	}
	s.run(w, r, s.text, body)
}

func (s *Server) searchImage(w http.ResponseWriter, r *http.Request, body SearchRequest) {
	if s.image == nil {
		writeError(w, http.StatusNotImplemented, ErrorCodeNotConfigured, "image search is not configured")
		return
	}
	if len(body.Approaches) == 0 {
		body.Approaches = []string{approach.VectorOnly.Key()}
	}
	s.run(w, r, s.image, body)
}

func (s *Server) run(w http.ResponseWriter, r *http.Request, runner SearchRunner, body SearchRequest) {
	req, err := request.New(body.Query, body.Approaches, request.Options{
		Filter:        body.Filter,
		Captions:      body.Captions,
		IncludeVector: body.IncludeVector,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	ctx, ticket := s.registry.Begin(r.Context(), body.SessionID)
	defer ticket.Done()

	out, err := runner.Run(ctx, &req)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, outcomeToResponse(&out))
}

// ListApproaches handles GET /api/v1/approaches.
func (s *Server) ListApproaches(w http.ResponseWriter, _ *http.Request) {
	all := approach.All()
	items := make([]ApproachResponse, len(all))
	for i, a := range all {
		items[i] = approachToResponse(a)
	}
	writeJSON(w, http.StatusOK, ApproachesResponse{
		Approaches:    items,
		MaxSelected:   approach.MaxSelected,
		ImageEnabled:  s.image != nil,
		DefaultFilter: s.defaultFilter,
	})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if s.health == nil {
		writeJSON(w, http.StatusOK, HealthResponse{Status: string(health.Healthy), Checks: map[string]string{}})
		return
	}
	report := s.health.Check(r.Context())
	status := http.StatusOK
	if report.Status != health.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, healthToResponse(report))
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func decodeSearchRequest(w http.ResponseWriter, r *http.Request) (SearchRequest, bool) {
	var body SearchRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&body); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeError(w, http.StatusRequestEntityTooLarge, ErrorCodeBadRequest, "request body too large")
			return SearchRequest{}, false
		}
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "invalid JSON body")
		return SearchRequest{}, false
	}
	return body, true
}

// bindSearchParams binds GET query parameters. Approaches may repeat or be comma separated.
func bindSearchParams(w http.ResponseWriter, r *http.Request) (SearchRequest, bool) {
	var params SearchParams
	q := r.URL.Query()
	binds := []struct {
		name string
		dest any
	}{
		{"q", &params.Q},
		{"approach", &params.Approach},
		{"filter", &params.Filter},
		{"captions", &params.Captions},
		{"include_vector", &params.IncludeVector},
		{"session_id", &params.SessionID},
	}
	for _, b := range binds {
		if err := runtime.BindQueryParameter("form", true, false, b.name, q, b.dest); err != nil {
			writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "invalid query parameter "+b.name)
			return SearchRequest{}, false
		}
	}

	body := SearchRequest{
		Query:         deref(params.Q),
		Filter:        deref(params.Filter),
		Captions:      deref(params.Captions),
		IncludeVector: deref(params.IncludeVector),
		SessionID:     deref(params.SessionID),
	}
	if params.Approach != nil {
		for _, v := range *params.Approach {
			body.Approaches = append(body.Approaches, strings.Split(v, ",")...)
		}
	}
	return body, true
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

func contains(keys []string, key string) bool {
	for _, k := range keys {
		if strings.TrimSpace(k) == key {
			return true
		}
	}
	return false
}
