package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"bloodlink/internal/platform/metrics"
	"bloodlink/pkg/platform/httputil"
	"bloodlink/pkg/platform/middleware/logging"
	"bloodlink/pkg/platform/middleware/requestid"
	"bloodlink/pkg/platform/middleware/requesttime"
)

// Registrar mounts a module's routes.
type Registrar interface {
	Register(r chi.Router)
}

// HealthCheck reports whether one dependency is reachable.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Deps is everything the router needs from main.
type Deps struct {
	Logger   *slog.Logger
	Metrics  *metrics.HTTP
	Gatherer prometheus.Gatherer
	Modules  []Registrar
	Health   []HealthCheck
}

// NewRouter wires middleware, module routes, /healthz and /metrics.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(requestid.Middleware)
	r.Use(requesttime.Middleware)
	r.Use(logging.Recovery(deps.Logger))
	r.Use(logging.AccessLog(deps.Logger))
	r.Use(deps.Metrics.Middleware)

	for _, m := range deps.Modules {
		m.Register(r)
	}

	r.Get("/healthz", healthHandler(deps.Logger, deps.Health))
	if deps.Gatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.Gatherer))
	}
	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// healthHandler reports each dependency as ok or unavailable. Failure causes
// go to the log only.
func healthHandler(logger *slog.Logger, checks []HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := healthResponse{Status: "ok", Checks: make(map[string]string, len(checks))}
		status := http.StatusOK
		for _, c := range checks {
			if err := c.Check(ctx); err != nil {
				if logger != nil {
					logger.WarnContext(ctx, "health check failed",
						"check", c.Name,
						"error", err.Error(),
					)
				}
				resp.Checks[c.Name] = "unavailable"
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[c.Name] = "ok"
		}
		httputil.WriteJSON(w, status, resp)
	}
}
