package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/wbrandsma/partsync/internal/api/response"
	"github.com/wbrandsma/partsync/internal/store"
	syncpkg "github.com/wbrandsma/partsync/internal/sync"
	"github.com/wbrandsma/partsync/pkg/models"
)

// SyncRunner defines the interface the trigger handler depends on.
type SyncRunner interface {
	Run(ctx context.Context) (*models.SyncRun, error)
}

// NewTriggerSyncHandler returns an http.HandlerFunc for POST /api/v1/sync.
// The call is synchronous: it returns once the run has reached a terminal
// state. A run already in flight is reported as a conflict, not queued.
func NewTriggerSyncHandler(runner SyncRunner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		run, err := runner.Run(r.Context())
		if errors.Is(err, syncpkg.ErrSyncInProgress) {
			response.Error(w, http.StatusConflict, "CONCURRENT_SYNC",
				"A sync run is already in progress", nil)
			return
		}
		if err != nil {
			// A failed run still produced a provenance record worth returning.
			if run != nil {
				response.JSON(w, run)
				return
			}
			response.Error(w, http.StatusInternalServerError,
				"INTERNAL_ERROR", "Sync run could not be started", nil)
			return
		}

		response.JSON(w, run)
	}
}

// NewListSyncRunsHandler returns an http.HandlerFunc for GET /api/v1/syncs.
func NewListSyncRunsHandler(s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := parsePositiveInt(r.URL.Query().Get("limit"), 10)
		if limit > 100 {
			limit = 100
		}

		runs, err := s.ListSyncRuns(r.Context(), limit)
		if err != nil {
			response.Error(w, http.StatusInternalServerError,
				"INTERNAL_ERROR", "Failed to list sync runs", nil)
			return
		}
		if runs == nil {
			runs = []*models.SyncRun{}
		}

		response.JSON(w, runs)
	}
}
