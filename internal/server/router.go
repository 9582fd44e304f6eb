package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alisaviation/metricboard/internal/logger"
	"github.com/alisaviation/metricboard/internal/middleware"
)

// RouterOptions configures the HTTP surface around the metric handlers.
type RouterOptions struct {
	CORS           middleware.CORSOptions
	PrometheusPath string
	// Registry receives the request instrumentation. A new registry with the
	// Go and process collectors is created when nil.
	Registry *prometheus.Registry
}

// NewRouter mounts the metric API and its middleware chain.
func (s *Server) NewRouter(opts RouterOptions) http.Handler {
	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	r := chi.NewRouter()
	r.Use(logger.RequestResponseLogger)
	r.Use(middleware.Instrument(reg))
	r.Use(chimw.Recoverer)
	r.Use(middleware.GzipMiddleware)

	r.Route("/metrics", func(r chi.Router) {
		r.Post("/", s.scoped(s.CreateMetric))
		r.Get("/", s.scoped(s.ListMetrics))
		r.Get("/{id}", s.scoped(s.GetMetric))
		r.Put("/{id}", s.scoped(s.UpdateMetric))
		r.Delete("/{id}", s.scoped(s.DeleteMetric))
	})

	if opts.PrometheusPath != "" {
		r.Method(http.MethodGet, opts.PrometheusPath, promhttp.HandlerFor(reg, promhttp.HandlerOpts{DisableCompression: true}))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})

	return middleware.CORS(opts.CORS)(r)
}
