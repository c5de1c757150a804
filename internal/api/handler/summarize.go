package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/wbrandsma/partsync/internal/api/response"
	"github.com/wbrandsma/partsync/internal/assist"
	"github.com/wbrandsma/partsync/internal/store"
)

// Summarizer defines the interface the summary handler depends on.
type Summarizer interface {
	SummarizeJob(ctx context.Context, jobNumber string) (*assist.Summary, error)
}

// NewSummarizeJobHandler returns an http.HandlerFunc for
// GET /api/v1/jobs/{jobNumber}/summary.
func NewSummarizeJobHandler(svc Summarizer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobNumber := chi.URLParam(r, "jobNumber")
		if jobNumber == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "job number is required", nil)
			return
		}

		summary, err := svc.SummarizeJob(r.Context(), jobNumber)
		if err != nil {
			switch {
			case errors.Is(err, assist.ErrNotConfigured):
				response.Error(w, http.StatusServiceUnavailable, "ASSIST_DISABLED",
					"Job summaries are not configured on this deployment", nil)
			case errors.Is(err, store.ErrNotFound):
				response.Error(w, http.StatusNotFound, "NOT_FOUND", "Job not found", nil)
			case errors.Is(err, assist.ErrProviderUnavailable):
				response.Error(w, http.StatusBadGateway, "ASSIST_PROVIDER_UNAVAILABLE",
					"The summary provider is not available", nil)
			case errors.Is(err, context.DeadlineExceeded):
				response.Error(w, http.StatusGatewayTimeout, "ASSIST_TIMEOUT",
					"Summarization took too long and was cancelled", nil)
			default:
				response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
					"An unexpected error occurred", nil)
			}
			return
		}

		response.JSON(w, summary)
	}
}
