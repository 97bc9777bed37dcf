package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/pinboard/internal/httpserver/deps"
	"github.com/MrSnakeDoc/pinboard/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/pinboard/internal/httpserver/mw"
)

func init() { Register(registerOps) }

func registerOps(r chi.Router, d deps.Deps) {
	r.Route("/ops", func(ops chi.Router) {
		ops.Use(mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger))
		ops.Use(mw.RateLimit(mw.RateLimitConfig{
			RequestsPerMinute: 60,
			Burst:             10,
			TrustProxy:        d.TrustProxy,
		}))
		ops.Get("/infra", handlers.Infra(d))
		ops.Post("/catalog/reload", handlers.Reload(d))
	})
}
