// Package handler contains the HTTP handlers behind the read API, sync
// trigger, and admin surface.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/wbrandsma/partsync/internal/api/response"
	"github.com/wbrandsma/partsync/internal/cache"
	"github.com/wbrandsma/partsync/internal/store"
	"github.com/wbrandsma/partsync/pkg/format"
	"github.com/wbrandsma/partsync/pkg/models"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 100
	maxLookupSize    = 100
	statsCacheTTL    = 5 * time.Minute
)

// jobView is the API shape of one job: the stored record plus display
// fields resolved at response time.
type jobView struct {
	*models.Job
	DisplayStatus string `json:"display_status"`
	Coordinates   string `json:"coordinates"`
}

func viewOf(job *models.Job) jobView {
	return jobView{
		Job:           job,
		DisplayStatus: format.Status(job.JobStatus),
		Coordinates:   format.Coordinates(job.Latitude, job.Longitude),
	}
}

func viewsOf(jobs []*models.Job) []jobView {
	views := make([]jobView, 0, len(jobs))
	for _, j := range jobs {
		views = append(views, viewOf(j))
	}
	return views
}

// NewListJobsHandler returns an http.HandlerFunc for GET /api/v1/jobs.
func NewListJobsHandler(s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		var statuses []string
		for _, raw := range q["status"] {
			for _, s := range strings.Split(raw, ",") {
				if s = strings.TrimSpace(s); s != "" {
					statuses = append(statuses, s)
				}
			}
		}

		page := parsePositiveInt(q.Get("page"), 1)
		limit := parsePositiveInt(q.Get("limit"), defaultPageLimit)
		if limit > maxPageLimit {
			limit = maxPageLimit
		}

		jobs, total, err := s.ListJobs(r.Context(), store.JobFilter{
			Statuses: statuses,
			Search:   strings.TrimSpace(q.Get("q")),
			Page:     page,
			Limit:    limit,
		})
		if err != nil {
			response.Error(w, http.StatusInternalServerError,
				"INTERNAL_ERROR", "Failed to list jobs", nil)
			return
		}

		response.Collection(w, viewsOf(jobs), response.PaginationMeta{
			Page:    page,
			Limit:   limit,
			Total:   total,
			HasNext: page*limit < total,
		})
	}
}

// NewGetJobHandler returns an http.HandlerFunc for GET /api/v1/jobs/{jobNumber}.
func NewGetJobHandler(s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobNumber := chi.URLParam(r, "jobNumber")
		if jobNumber == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "job number is required", nil)
			return
		}

		job, err := s.GetJobByNumber(r.Context(), jobNumber)
		if errors.Is(err, store.ErrNotFound) {
			response.Error(w, http.StatusNotFound, "NOT_FOUND", "Job not found", nil)
			return
		}
		if err != nil {
			response.Error(w, http.StatusInternalServerError,
				"INTERNAL_ERROR", "Failed to fetch job", nil)
			return
		}

		response.JSON(w, viewOf(job))
	}
}

// NewLookupJobsHandler returns an http.HandlerFunc for POST /api/v1/jobs/lookup.
// It resolves a batch of work order numbers in one round trip; numbers that
// match nothing are simply absent from the result.
func NewLookupJobsHandler(s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			JobNumbers []string `json:"job_numbers"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}
		if len(req.JobNumbers) == 0 {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "job_numbers is required", nil)
			return
		}
		if len(req.JobNumbers) > maxLookupSize {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				"job_numbers exceeds the maximum of "+strconv.Itoa(maxLookupSize), nil)
			return
		}

		jobs, err := s.GetJobsByNumbers(r.Context(), req.JobNumbers)
		if err != nil {
			response.Error(w, http.StatusInternalServerError,
				"INTERNAL_ERROR", "Failed to look up jobs", nil)
			return
		}

		response.JSON(w, viewsOf(jobs))
	}
}

// NewStatsHandler returns an http.HandlerFunc for GET /api/v1/jobs/stats.
// The aggregate is cached; a finished sync run invalidates it.
func NewStatsHandler(s store.Store, ca cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ca != nil {
			if cached, found, err := ca.Get(r.Context(), cache.StatsKey()); err == nil && found {
				var stats models.JobStatistics
				if err := json.Unmarshal(cached, &stats); err == nil {
					response.JSON(w, &stats)
					return
				}
			}
		}

		stats, err := s.JobStatistics(r.Context())
		if err != nil {
			response.Error(w, http.StatusInternalServerError,
				"INTERNAL_ERROR", "Failed to compute statistics", nil)
			return
		}

		if ca != nil {
			if payload, err := json.Marshal(stats); err == nil {
				_ = ca.Set(r.Context(), cache.StatsKey(), payload, statsCacheTTL)
			}
		}

		response.JSON(w, stats)
	}
}

func parsePositiveInt(s string, fallback int) int {
	if s == "" {
		return fallback
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
