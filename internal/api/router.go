// Package api assembles the HTTP surface: router, middleware, and handlers.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	mw "github.com/wbrandsma/partsync/internal/api/middleware"
	"github.com/wbrandsma/partsync/internal/api/response"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	Auth      *mw.Auth
	RateLimit *mw.RateLimit

	HealthHandler http.HandlerFunc

	ListJobsHandler     http.HandlerFunc
	GetJobHandler       http.HandlerFunc
	LookupJobsHandler   http.HandlerFunc
	StatsHandler        http.HandlerFunc
	SummarizeJobHandler http.HandlerFunc

	TriggerSyncHandler  http.HandlerFunc
	ListSyncRunsHandler http.HandlerFunc

	CreateKeyHandler http.HandlerFunc
	ListKeysHandler  http.HandlerFunc
	RevokeKeyHandler http.HandlerFunc
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
		r.Use(deps.RateLimit.Limit)

		r.Get("/api/v1/jobs", orNotImplemented(deps.ListJobsHandler))
		r.Get("/api/v1/jobs/stats", orNotImplemented(deps.StatsHandler))
		r.Post("/api/v1/jobs/lookup", orNotImplemented(deps.LookupJobsHandler))
		r.Get("/api/v1/jobs/{jobNumber}", orNotImplemented(deps.GetJobHandler))
		r.Get("/api/v1/jobs/{jobNumber}/summary", orNotImplemented(deps.SummarizeJobHandler))

		r.Get("/api/v1/syncs", orNotImplemented(deps.ListSyncRunsHandler))

		// The sync trigger needs more than read access.
		r.Group(func(r chi.Router) {
			r.Use(deps.Auth.RequireScope("sync"))

			r.Post("/api/v1/sync", orNotImplemented(deps.TriggerSyncHandler))
		})

		// Admin routes
		r.Group(func(r chi.Router) {
			r.Use(deps.Auth.RequireScope("admin"))

			r.Post("/api/v1/admin/keys", orNotImplemented(deps.CreateKeyHandler))
			r.Get("/api/v1/admin/keys", orNotImplemented(deps.ListKeysHandler))
			r.Delete("/api/v1/admin/keys/{keyID}", orNotImplemented(deps.RevokeKeyHandler))
		})
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
