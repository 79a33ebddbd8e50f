package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// SetupRoutes configures the router: settings endpoints for the
// configuration UI, feed CRUD, and the submission webhook.
func SetupRoutes(h *Handlers) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", h.HealthCheck)

	r.Route("/api", func(r chi.Router) {
		r.Post("/settings/validate", h.ValidateSettings)
		r.Put("/settings/api-key", h.UpdateAPIKey)

		r.Get("/lists/choices", h.ListChoices)

		r.Route("/forms/{formID}", func(r chi.Router) {
			r.Get("/feeds", h.ListFeeds)
			r.Post("/feeds", h.CreateFeed)
			r.Post("/submissions", h.HandleSubmission)
		})

		r.Get("/feeds/{feedID}", h.GetFeed)
		r.Put("/feeds/{feedID}", h.UpdateFeed)
		r.Delete("/feeds/{feedID}", h.DeleteFeed)

		r.Get("/submissions/{submissionID}/notes", h.ListNotes)
	})

	return r
}
