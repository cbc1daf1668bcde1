// Package adminhttp is the small ambient HTTP surface (/healthz,
// /metrics) served alongside each component's raw TCP listener, built
// on a chi middleware stack. This is observability surface only — it
// never carries wire-protocol traffic.
package adminhttp

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthFunc reports whether the owning component considers itself healthy.
type HealthFunc func() (ok bool, detail string)

// New builds a chi router exposing /healthz and /metrics.
func New(registry *prometheus.Registry, health HealthFunc) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		ok, detail := true, "ok"
		if health != nil {
			ok, detail = health()
		}
		if !ok {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_, _ = w.Write([]byte(detail))
	})

	if registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	return r
}
