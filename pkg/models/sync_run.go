package models

import "time"

const (
	SyncStatusRunning   = "running"
	SyncStatusCompleted = "completed"
	SyncStatusFailed    = "failed"
)

// SyncRun is one provenance record for a single execution of the
// fetch-normalize-filter-persist pipeline. Rows are append-only: created in
// the running state, moved exactly once to a terminal state, never deleted.
type SyncRun struct {
	ID          int64       `db:"id"            json:"id"`
	Started     time.Time   `db:"started"       json:"started"`
	Completed   *time.Time  `db:"completed"     json:"completed,omitempty"`
	Status      string      `db:"status"        json:"status"`
	JobsFetched int         `db:"jobs_fetched"  json:"jobs_fetched"`
	JobsCreated int         `db:"jobs_created"  json:"jobs_created"`
	JobsUpdated int         `db:"jobs_updated"  json:"jobs_updated"`
	JobsSkipped int         `db:"jobs_skipped"  json:"jobs_skipped"`
	Errors      []SyncError `db:"errors"        json:"errors"`
	Notes       *string     `db:"notes"         json:"notes,omitempty"`
}

// SyncError is one absorbed record- or page-level failure within a run.
type SyncError struct {
	Page    int    `json:"page,omitempty"`
	JobUID  string `json:"job_uid,omitempty"`
	Message string `json:"message"`
}
