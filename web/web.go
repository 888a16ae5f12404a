// Package web provides the HTTP API surface: API-key-authenticated
// ingestion routes and session-authenticated dashboard query routes.
// Validation happens here at the boundary; the app layer receives
// pre-validated input.
package web

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/pathtracker/pathtracker/adapters/metrics"
	"github.com/pathtracker/pathtracker/app"
)

// Pinger reports storage liveness for the health endpoint.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Handler provides the HTTP API endpoints.
type Handler struct {
	auth      *app.AuthService
	tracking  *app.TrackingService
	query     *app.QueryService
	keys      *app.KeyService
	sessions  *app.SessionService
	settings  *app.SettingsService
	db        Pinger
	collector *metrics.Collector
	logger    zerolog.Logger
}

// Deps contains dependencies for the API handler.
type Deps struct {
	Auth      *app.AuthService
	Tracking  *app.TrackingService
	Query     *app.QueryService
	Keys      *app.KeyService
	Sessions  *app.SessionService
	Settings  *app.SettingsService
	DB        Pinger
	Collector *metrics.Collector
	Logger    zerolog.Logger
}

// NewHandler creates a new API handler.
func NewHandler(deps Deps) *Handler {
	return &Handler{
		auth:      deps.Auth,
		tracking:  deps.Tracking,
		query:     deps.Query,
		keys:      deps.Keys,
		sessions:  deps.Sessions,
		settings:  deps.Settings,
		db:        deps.DB,
		collector: deps.Collector,
		logger:    deps.Logger,
	}
}

// Router returns the API router.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(h.instrument)

	r.Get("/healthz", h.Healthz)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// Ingestion routes, API-key authenticated.
		r.Group(func(r chi.Router) {
			r.Use(h.apiKeyAuth)
			r.Post("/track/rest", h.TrackRest)
			r.Post("/track/llm", h.TrackLLM)
			r.Post("/track/batch", h.TrackBatch)
		})

		// Dashboard routes, session authenticated.
		r.Group(func(r chi.Router) {
			r.Use(h.sessionAuth)
			r.Get("/paths/{requestID}", h.PathLookup)
			r.Get("/logs", h.Logs)
			r.Get("/metrics", h.MetricsSnapshot)
			r.Get("/users", h.Users)

			r.Post("/keys", h.KeyCreate)
			r.Get("/keys", h.KeyList)
			r.Delete("/keys/{keyID}", h.KeyRevoke)
			r.Patch("/keys/{keyID}", h.KeyRename)

			r.Get("/settings", h.SettingsGet)
			r.Patch("/settings", h.SettingsUpdate)

			r.Post("/auth/logout", h.Logout)
		})
	})

	return r
}

// Healthz answers 200 when the store is reachable.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			h.logger.Error().Err(err).Msg("health check: store unreachable")
			writeError(w, http.StatusServiceUnavailable, codeInternal, "storage unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// instrument records Prometheus request metrics around each call.
func (h *Handler) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.collector == nil {
			next.ServeHTTP(w, r)
			return
		}

		h.collector.RequestsInFlight.Inc()
		defer h.collector.RequestsInFlight.Dec()

		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := strconv.Itoa(ww.Status())
		path := metrics.NormalizePath(routePattern(r))
		h.collector.RequestsTotal.WithLabelValues(r.Method, path, status).Inc()
		h.collector.RequestDuration.WithLabelValues(r.Method, path, status).Observe(time.Since(start).Seconds())
	})
}

// routePattern returns the chi route pattern ("/api/v1/keys/{keyID}")
// rather than the concrete URL, keeping metric cardinality bounded.
func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return r.URL.Path
	}
	if pattern := rctx.RoutePattern(); pattern != "" {
		return pattern
	}
	return r.URL.Path
}
