package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/marketing-jobs/internal/api"
	apiMiddleware "github.com/phrazzld/marketing-jobs/internal/api/middleware"
)

// setupRouter creates and configures the application router with all routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	// Apply standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.NewTraceMiddleware(app.logger))

	taskHandler := api.NewTaskHandler(app.tasks, app.logger)

	r.Route("/api/tasks", func(r chi.Router) {
		r.Use(apiMiddleware.RequireOwner)
		taskHandler.Routes(r)
	})

	// Health check endpoint
	r.Get("/health", api.HealthHandler(app.tasks))

	return r
}
