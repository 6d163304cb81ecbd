package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"porosity/internal"
	"porosity/internal/errors"
	"porosity/internal/metrics"
	"porosity/internal/porestats"
)

// maxBodyBytes bounds a posted pore set
const maxBodyBytes = 64 << 20

// Config holds API server configuration
type Config struct {
	Thresholds porestats.Thresholds
	Metrics    *metrics.Metrics    // nil disables instrumentation
	Gatherer   prometheus.Gatherer // served on /metrics; defaults to the global registry
}

// Server exposes the porosity engine over HTTP
type Server struct {
	router     *chi.Mux
	thresholds porestats.Thresholds
	metrics    *metrics.Metrics
	gatherer   prometheus.Gatherer
	logger     *internal.Logger
}

// NewServer creates the API server with its routes
func NewServer(config Config) *Server {
	gatherer := config.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	thresholds := config.Thresholds
	if len(thresholds.HistogramEdges) == 0 {
		thresholds = porestats.DefaultThresholds()
	}

	s := &Server{
		router:     chi.NewRouter(),
		thresholds: thresholds,
		metrics:    config.Metrics,
		gatherer:   gatherer,
		logger:     internal.DefaultLogger.With("API"),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures HTTP middleware
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(5 * time.Minute))
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)
	s.router.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Post("/porosity", s.handleCompute)
		r.Post("/porosity/classify", s.handleClassify)
	})

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, errors.NotFound("route "+r.URL.Path), nil)
	})
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// errorResponse is the body of every failed request
type errorResponse struct {
	Error   string      `json:"error"`
	Code    string      `json:"code"`
	Partial interface{} `json:"partial,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, err error, partial interface{}) {
	code := errors.GetCode(err)
	status := errors.HTTPStatus(code)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed: %v", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), Code: code, Partial: partial})
}
