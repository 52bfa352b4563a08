package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/agentdrain/agentdrain/pkg/core"
	"github.com/agentdrain/agentdrain/pkg/lifecycle"
)

// Options configures NewRouter. MetricsHandler is optional; when nil,
// GET /metrics serves the default Prometheus registry via promhttp.Handler().
type Options struct {
	Controller     *lifecycle.Controller
	Store          core.SessionStore
	Logger         *slog.Logger
	MetricsHandler http.Handler
	Steps          int
	StepDelay      time.Duration
}

// NewRouter wires the module's HTTP surface: liveness/readiness endpoints
// for a load balancer or orchestrator, the single request/resume endpoint,
// and a Prometheus scrape endpoint. Middleware stack follows the
// teacher's chi.Mux convention (pkg/transport): request ID, recoverer,
// then OTel tracing.
func NewRouter(opts Options) *chi.Mux {
	s := &Server{
		Controller: opts.Controller,
		Store:      opts.Store,
		Logger:     opts.Logger,
		Steps:      opts.Steps,
		StepDelay:  opts.StepDelay,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(tracingMiddleware)

	r.Get("/health", s.handleHealth)
	r.Get("/health/ready", s.handleReady)
	r.Post("/v1/runs", s.handleRun)

	if opts.MetricsHandler != nil {
		r.Handle("/metrics", opts.MetricsHandler)
	} else {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}
