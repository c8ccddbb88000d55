package gateway

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"
)

// buildRouter constructs the chi mux with all routes wired.
func (g *Gateway) buildRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	if g.metrics != nil {
		r.Use(g.metrics.middleware)
	}

	// Public, no auth required.
	r.Get("/health", g.handleHealth())
	if g.gatherer != nil {
		r.Handle("/metrics", metricsHandler(g.gatherer))
	}

	// Stats API. Not mounted if no auth is configured.
	if g.config.Auth.IsConfigured() {
		limiter := rate.NewLimiter(rate.Limit(g.config.AuthRate), g.config.AuthBurst)
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware(g.config.Auth, limiter, g.logger))
			r.Get("/status", g.handleStatus())
			r.Route("/api", func(r chi.Router) {
				r.Get("/modules", g.handleListModules())
				r.Get("/stats", g.handleStats())
				r.Get("/stats/{room}", g.handleRoomStats())
			})
		})
	}

	return r
}
