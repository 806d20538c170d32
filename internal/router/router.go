// Package router sets up all HTTP routes and middleware chains for the
// blog API. Routes are grouped under /api by resource, with
// authentication and admin checks applied per group.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"blogapi/internal/handlers"
	"blogapi/internal/middleware"
	"blogapi/internal/respond"
)

// Deps is everything the router wires together. AuthLimiter, Revoked,
// Accounts, Metrics and Gatherer are optional. Without Accounts admin
// routes trust the role carried in the token.
type Deps struct {
	Auth       *handlers.Auth
	Users      *handlers.Users
	Posts      *handlers.Posts
	Categories *handlers.Categories

	Verifier    middleware.TokenVerifier
	Revoked     middleware.RevocationChecker
	Accounts    middleware.AccountLookup
	AuthLimiter *middleware.RateLimiter

	Metrics  *middleware.Metrics
	Gatherer prometheus.Gatherer
}

// New creates and returns the configured Chi router.
func New(d Deps) chi.Router {
	r := chi.NewRouter()

	// Global middleware — applied to every request.
	r.Use(chimw.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.SecureHeaders)
	if d.Metrics != nil {
		r.Use(d.Metrics.Handler)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respond.Error(w, http.StatusNotFound, "Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respond.Error(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Get("/health", healthHandler)
	if d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	authn := middleware.Authenticate(d.Verifier, d.Revoked)
	admin := middleware.RequireAdmin(d.Accounts)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			// Credential endpoints — throttled per client.
			r.Group(func(r chi.Router) {
				if d.AuthLimiter != nil {
					r.Use(d.AuthLimiter.Middleware)
				}
				r.Post("/login", d.Auth.Login)
				r.Post("/register", d.Auth.Register)
			})

			r.Group(func(r chi.Router) {
				r.Use(authn)
				r.Get("/profile", d.Auth.Profile)
				r.Post("/logout", d.Auth.Logout)
				r.Post("/2fa/setup", d.Auth.TwoFASetup)
				r.Post("/2fa/verify", d.Auth.TwoFAVerify)
			})
		})

		// Everything below requires a valid token.
		r.Group(func(r chi.Router) {
			r.Use(authn)

			r.Route("/users", func(r chi.Router) {
				r.Get("/", d.Users.List)
				r.Get("/{id}", d.Users.Get)

				r.Group(func(r chi.Router) {
					r.Use(admin)
					r.Post("/", d.Users.Create)
					r.Put("/{id}", d.Users.Update)
					r.Patch("/{id}", d.Users.Update)
					r.Delete("/{id}", d.Users.Delete)
					r.Post("/{id}/reset-2fa", d.Users.ResetTwoFA)
				})
			})

			// Ownership of posts is checked in the handlers.
			r.Route("/posts", func(r chi.Router) {
				r.Get("/", d.Posts.List)
				r.Post("/", d.Posts.Create)
				r.Get("/slug/{slug}", d.Posts.GetBySlug)
				r.Get("/{id}", d.Posts.Get)
				r.Put("/{id}", d.Posts.Update)
				r.Patch("/{id}", d.Posts.Update)
				r.Delete("/{id}", d.Posts.Delete)
			})

			r.Route("/categories", func(r chi.Router) {
				r.Get("/", d.Categories.List)
				r.Get("/{id}", d.Categories.Get)

				r.Group(func(r chi.Router) {
					r.Use(admin)
					r.Post("/", d.Categories.Create)
					r.Put("/{id}", d.Categories.Update)
					r.Patch("/{id}", d.Categories.Update)
					r.Delete("/{id}", d.Categories.Delete)
				})
			})
		})
	})

	return r
}

// healthHandler returns a simple JSON health check response.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
