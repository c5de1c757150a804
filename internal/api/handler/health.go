package handler

import (
	"net/http"

	"github.com/wbrandsma/partsync/internal/api/response"
	"github.com/wbrandsma/partsync/internal/cache"
	"github.com/wbrandsma/partsync/internal/store"
)

// NewHealthHandler returns an http.HandlerFunc for GET /api/v1/health.
// Degraded dependencies are reported, not hidden behind a 500.
func NewHealthHandler(s store.Store, ca cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"database": "ok",
			"cache":    "ok",
		}
		healthy := true

		if err := s.Ping(r.Context()); err != nil {
			checks["database"] = err.Error()
			healthy = false
		}
		if ca == nil {
			checks["cache"] = "disabled"
		} else if err := ca.Ping(r.Context()); err != nil {
			checks["cache"] = err.Error()
			healthy = false
		}

		payload := map[string]any{"status": "ok", "checks": checks}
		if !healthy {
			payload["status"] = "degraded"
			response.Status(w, http.StatusServiceUnavailable, payload)
			return
		}
		response.JSON(w, payload)
	}
}
