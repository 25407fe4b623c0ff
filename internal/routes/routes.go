package routes

import (
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	handlers "github.com/misscmunoz/holiday-deals/internal/http"
	mid "github.com/misscmunoz/holiday-deals/internal/middleware"
	"github.com/misscmunoz/holiday-deals/internal/obs"
)

func GetRoutes(h *handlers.Handler, metrics *obs.Metrics, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()
	// Useful built-in middlewares
	r.Use(middleware.RealIP)    // proper client IP extraction
	r.Use(middleware.RequestID) // sets request ID header
	r.Use(middleware.Recoverer) // built-in recoverer to avoid panics taking server down

	// our custom middlewares: metrics, logging & timeout
	r.Use(mid.MetricsMiddleware(metrics))
	r.Use(mid.LoggingMiddleware(logger))
	// a run fans out to flight providers for every candidate trip, so the
	// ceiling is generous
	r.Use(mid.TimeoutMiddleware(10 * time.Minute))

	// endpoints
	r.Get("/healthz", h.Healthz)
	r.Get("/metrics", metrics.Handler().ServeHTTP)
	r.Get("/alerts/run", h.RunAlerts)
	r.Post("/alerts/notify", h.Notify)

	return r
}
