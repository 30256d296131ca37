/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Request logging
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. Metrics:    Prometheus request counter and latency histogram
  5. CORS:       Cross-origin requests for frontend

ACCESS:
  When the handler has Tokens, /api routes other than /api/login need a
  bearer token. User management, review, and settings need the Admin role.
  Employees may only read and submit for their own account and cancel
  their own requests. Without Tokens every route is open.

ROUTE GROUPS:
  /health               Liveness
  /metrics              Prometheus scrape endpoint
  /api/login            Credential check
  /api/users/*          User management, balance, per-user requests
  /api/requests/*       Request review and calendar export
  /api/settings/*       Settings

SEE ALSO:
  - handlers.go: Handler implementations
  - metrics.go: Metrics middleware
  - middleware.go: Bearer token checks
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/warp/leave-tracker/leave"
)

// RouterOptions tunes NewRouter.
type RouterOptions struct {
	AllowedOrigins []string
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opt RouterOptions) *chi.Mux {
	origins := opt.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173", "http://localhost:5000"}
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/health", h.Health)
	r.Handle("/metrics", promhttp.Handler())

	admin := RequireRole(h.Tokens, h.Store, leave.RoleAdmin)
	member := RequireRole(h.Tokens, h.Store, "")

	r.Route("/api", func(r chi.Router) {
		r.Post("/login", h.Login)

		// User routes
		r.Route("/users", func(r chi.Router) {
			r.With(admin).Get("/", h.ListUsers)
			r.With(admin).Post("/", h.CreateUser)
			r.With(member).Get("/{id}", h.GetUser)
			r.With(admin).Patch("/{id}", h.UpdateUser)
			r.With(admin).Delete("/{id}", h.DeleteUser)
			r.With(member).Get("/{id}/balance", h.GetBalance)
			r.With(member).Get("/{id}/requests", h.ListUserRequests)
			r.With(member).Post("/{id}/requests", h.SubmitRequest)
		})

		// Request routes
		r.Route("/requests", func(r chi.Router) {
			r.With(admin).Get("/", h.ListRequests)
			r.With(member).Get("/{id}", h.GetRequest)
			r.With(admin).Patch("/{id}", h.UpdateRequest)
			r.With(admin).Post("/{id}/approve", h.ApproveRequest)
			r.With(admin).Post("/{id}/reject", h.RejectRequest)
			r.With(member).Post("/{id}/cancel", h.CancelRequest)
			r.With(member).Get("/{id}/ics", h.GetRequestICS)
		})

		// Settings routes
		r.Route("/settings", func(r chi.Router) {
			r.Use(admin)
			r.Get("/", h.GetSettings)
			r.Put("/{key}", h.PutSetting)
		})
	})

	return r
}
