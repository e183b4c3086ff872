package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/jfranmatheu/Hunyuan3DBlenderBridge/internal/api"
	apiMiddleware "github.com/jfranmatheu/Hunyuan3DBlenderBridge/internal/api/middleware"
)

// setupRouter creates the control API router with all routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.NewTraceMiddleware(app.logger))

	generationHandler := api.NewGenerationHandler(app.generations, app.logger)
	resultHandler := api.NewResultHandler(app.results, app.logger)
	remoteHandler := api.NewRemoteHandler(app.remote, app.logger)
	statusHandler := api.NewStatusHandler(app.dispatcher, app.downloader, app.loader, app.board)

	r.Route("/api", func(r chi.Router) {
		r.Route("/generations", func(r chi.Router) {
			r.Post("/", generationHandler.Create)
			r.Get("/", generationHandler.List)
			r.Get("/stats", generationHandler.Stats)

			r.Route("/{jobID}", func(r chi.Router) {
				r.Get("/", generationHandler.Get)
				r.Post("/results/{assetID}/save", resultHandler.Save)
				r.Post("/results/{assetID}/import", resultHandler.Import)
				r.Delete("/results/{assetID}", resultHandler.Discard)
			})
		})

		r.Get("/quota", remoteHandler.Quota)
		r.Get("/creations", remoteHandler.Creations)
		r.Get("/user", remoteHandler.User)
		r.Get("/status", statusHandler.Status)
	})

	r.Get("/health", api.Health)

	return r
}
