package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"atatek/internal/platform/metrics"
	"atatek/internal/platform/middleware"
	"atatek/pkg/platform/httputil"
	"atatek/pkg/platform/middleware/auth"
	"atatek/pkg/platform/middleware/request"
)

// RouteRegistrar is implemented by the domain handlers.
type RouteRegistrar interface {
	Register(r chi.Router)
}

// HealthCheck probes one backing service.
type HealthCheck func(ctx context.Context) error

// Dependencies are the pieces the router wires together.
type Dependencies struct {
	Logger         *slog.Logger
	Metrics        *metrics.Metrics
	Gatherer       prometheus.Gatherer
	RequestTimeout time.Duration
	HealthChecks   map[string]HealthCheck
	// Handlers are mounted behind RequireUser.
	Handlers []RouteRegistrar
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// NewRouter wires all public endpoints. The thin HTTP layer delegates to
// domain services without embedding business logic.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(request.Middleware)
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.Latency(deps.Metrics))

	r.Get("/healthz", healthHandler(deps.HealthChecks))
	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		if deps.RequestTimeout > 0 {
			r.Use(chimw.Timeout(deps.RequestTimeout))
		}
		r.Use(auth.RequireUser(deps.Logger))
		for _, h := range deps.Handlers {
			h.Register(r)
		}
	})
	return r
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := healthResponse{Status: "ok", Checks: make(map[string]string, len(checks))}
		status := http.StatusOK
		for name, check := range checks {
			if err := check(ctx); err != nil {
				resp.Checks[name] = err.Error()
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
		httputil.WriteJSON(w, status, resp)
	}
}
