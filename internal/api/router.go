package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	mw "github.com/kiranshivaraju/reelgen/internal/api/middleware"
	"github.com/kiranshivaraju/reelgen/internal/api/response"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	Auth      *mw.Auth
	RateLimit *mw.RateLimit

	HealthHandler           http.HandlerFunc
	SubmitHandler           http.HandlerFunc
	GetGenerationHandler    http.HandlerFunc
	CancelGenerationHandler http.HandlerFunc
	ListHistoryHandler      http.HandlerFunc
	RemoveHistoryHandler    http.HandlerFunc
	ClearHistoryHandler     http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	// Public health check
	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(deps.Auth.Authenticate)

		r.With(deps.RateLimit.Limit).Post("/api/v1/generations", orNotImplemented(deps.SubmitHandler))
		r.Get("/api/v1/generations/{jobID}", orNotImplemented(deps.GetGenerationHandler))
		r.Delete("/api/v1/generations/{jobID}", orNotImplemented(deps.CancelGenerationHandler))

		r.Get("/api/v1/history", orNotImplemented(deps.ListHistoryHandler))
		r.Delete("/api/v1/history", orNotImplemented(deps.ClearHistoryHandler))
		r.Delete("/api/v1/history/{id}", orNotImplemented(deps.RemoveHistoryHandler))
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotFound, "RESOURCE_NOT_FOUND", "Route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
