package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/convergehq/converge/internal/auth"
	"github.com/convergehq/converge/internal/metrics"
	"github.com/convergehq/converge/internal/project"
	"github.com/convergehq/converge/internal/ratelimit"
	"github.com/convergehq/converge/internal/registration"
	"github.com/convergehq/converge/internal/team"
)

// RouterDeps holds all dependencies for the API router.
type RouterDeps struct {
	Registration   *registration.Service
	Projects       *project.Service
	Teams          *team.Service
	Tokens         auth.TokenVerifier
	Limiter        *ratelimit.Limiter
	Metrics        *metrics.Metrics
	AllowedOrigins []string
}

// NewRouter builds the chi router with all routes and middleware.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chimw.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(secureHeaders)
	r.Use(corsMiddleware(deps.AllowedOrigins))
	r.Use(slogRequestLogger)
	r.Use(metricsObserver(deps.Metrics))

	// Handlers.
	authH := newAuthHandler(deps.Registration, deps.Metrics)
	projectsH := newProjectsHandler(deps.Projects, deps.Teams, deps.Metrics)
	teamsH := newTeamsHandler(deps.Teams, deps.Metrics)

	// Health check.
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Well-known manifest.
	r.Get("/.well-known/converge.json", WellKnownHandler)

	// Metrics summary.
	r.Get("/metrics", deps.Metrics.Handler())

	// Credential endpoints, rate limited per client IP.
	r.Route("/auth", func(ar chi.Router) {
		ar.Use(ratelimit.Middleware(deps.Limiter, func() {
			deps.Metrics.IncRateLimitRejection("auth")
		}))

		ar.Post("/register", authH.Register)
		ar.Post("/login", authH.Login)
	})

	r.Route("/api", func(ar chi.Router) {
		// Project discovery is readable without a token.
		ar.Get("/projects/explore", projectsH.Explore)

		// Everything else under /api requires a bearer token.
		ar.Group(func(pr chi.Router) {
			pr.Use(auth.Middleware(deps.Tokens, func(w http.ResponseWriter, message string) {
				writeError(w, http.StatusUnauthorized, "unauthorized", message)
			}))

			pr.Post("/projects", projectsH.CreateProject)
			pr.Get("/projects", projectsH.ListMine)
			pr.Get("/projects/{projectID}", projectsH.GetProject)

			pr.Post("/projects/{projectID}/teammates", teamsH.AddTeammate)
			pr.Get("/projects/{projectID}/teammates", teamsH.ListTeammates)

			pr.Post("/projects/{projectID}/invites", teamsH.CreateInvite)
			pr.Get("/invites", teamsH.ListInvites)
			pr.Post("/invites/{inviteID}/accept", teamsH.AcceptInvite)
			pr.Post("/invites/{inviteID}/reject", teamsH.RejectInvite)
		})
	})

	return r
}

// slogRequestLogger is a simple structured logging middleware using slog.
func slogRequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		slog.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"bytes", ww.BytesWritten(),
			"request_id", RequestIDFromContext(r.Context()),
		)
	})
}

// metricsObserver records per-request counters and latency, labelled by the
// matched chi route pattern so path parameters do not blow up cardinality.
func metricsObserver(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			pattern := chi.RouteContext(r.Context()).RoutePattern()
			if pattern == "" {
				pattern = "unmatched"
			}
			m.ObserveRequest(r.Method, pattern, ww.Status(), time.Since(start).Seconds(), ww.BytesWritten())
		})
	}
}
