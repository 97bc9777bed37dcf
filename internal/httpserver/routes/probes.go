package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/pinboard/internal/httpserver/deps"
	"github.com/MrSnakeDoc/pinboard/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/pinboard/internal/httpserver/mw"
)

func init() { Register(registerProbes) }

// Liveness stays open for the orchestrator; readiness sits behind the CIDR filter.
func registerProbes(r chi.Router, d deps.Deps) {
	r.Get("/healthz", handlers.Healthz(d))
	r.With(mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger)).Get("/readyz", handlers.Readyz(d))
}
