// Package server implements the HTTP API of poa.
//
// Routes:
//
//	POST   /v1/align              run an alignment job (pipeline.Options as JSON)
//	GET    /v1/alignments/{id}    fetch a stored alignment, optionally ?format=clustal
//	DELETE /v1/alignments/{id}    delete a stored alignment
//	GET    /v1/matrices           list built-in scoring matrices
//	GET    /healthz               liveness check
//	GET    /version               build information
//	GET    /metrics               Prometheus metrics
//
// Inputs are taken from the request body only; file paths are never read
// on behalf of a client.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/poa/internal/telemetry"
	"github.com/matzehuels/poa/pkg/observability"
	"github.com/matzehuels/poa/pkg/pipeline"
)

// Defaults for Config.
const (
	DefaultAddr         = ":8080"
	DefaultMaxBodyBytes = 16 << 20
	DefaultTimeout      = 5 * time.Minute
	DefaultMaxAlloc     = 1 << 30
)

// Config controls the server.
type Config struct {
	Addr string

	// MaxBodyBytes limits request bodies.
	MaxBodyBytes int64

	// Timeout bounds a single alignment job.
	Timeout time.Duration

	// MaxAlloc caps the DP allocation budget a client may request.
	MaxAlloc int64
}

func (c *Config) setDefaults() {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxAlloc <= 0 {
		c.MaxAlloc = DefaultMaxAlloc
	}
}

// Server serves the API. Jobs run through the runner; alignments are
// stored in the runner's store when it has one.
type Server struct {
	cfg      Config
	runner   *pipeline.Runner
	gatherer prometheus.Gatherer
	logger   *log.Logger
}

// New creates a server. gatherer backs /metrics; nil uses the default
// registry.
func New(cfg Config, runner *pipeline.Runner, gatherer prometheus.Gatherer, logger *log.Logger) *Server {
	cfg.setDefaults()
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Server{cfg: cfg, runner: runner, gatherer: gatherer, logger: logger}
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.instrument)
	r.Use(s.recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/version", s.handleVersion)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		r.Post("/align", s.handleAlign)
		r.Get("/matrices", s.handleMatrices)
		r.Route("/alignments/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetAlignment)
			r.Delete("/", s.handleDeleteAlignment)
		})
	})
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.cfg.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return ctx.Err()
}

// instrument reports every request to the request hooks and wraps it in
// a span.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx, span := telemetry.StartSpan(r.Context(), r.Method+" "+r.URL.Path)
		hooks := observability.Request()
		hooks.OnRequest(ctx, r.Method, r.URL.Path)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		hooks.OnResponse(ctx, r.Method, route, status, time.Since(start))
		telemetry.EndSpan(span, nil)
	})
}

// recoverer turns panics into 500 responses.
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic", "path", r.URL.Path, "value", rec)
				writeJSON(w, http.StatusInternalServerError, errorBody{Error: errorDetail{
					Code:    "INTERNAL_ERROR",
					Message: "internal server error",
				}})
			}
		}()
		next.ServeHTTP(w, r)
	})
}
