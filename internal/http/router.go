// Package httpapi assembles the service router.
package httpapi

import (
	stdhttp "net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"reelforge/internal/http/handlers"
	"reelforge/internal/middleware"
)

func NewRouter(app *handlers.App, logger zerolog.Logger) stdhttp.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, chimiddleware.RealIP, chimiddleware.Recoverer, middleware.Logger(logger), middleware.Identity)

	r.Get("/v1/healthz", app.Health)

	r.Route("/v1/jobs", func(r chi.Router) {
		r.Post("/", app.SubmitJob)
		r.Get("/{id}", app.GetJob)
		r.Get("/{id}/artifacts", app.ListArtifacts)
		r.Get("/{id}/artifacts/*", app.DownloadArtifact)
	})

	r.Route("/v1/credits", func(r chi.Router) {
		r.Get("/balance", app.GetBalance)
		r.Get("/transactions", app.ListTransactions)
		r.Post("/purchase", app.Purchase)
	})

	return r
}
