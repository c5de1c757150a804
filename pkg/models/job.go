// Package models contains shared data models used across the partsync codebase.
package models

import (
	"encoding/json"
	"time"
)

// Job is one field-service work order mirrored from the upstream API.
// JobUID is the upstream identity and the sole upsert key; a job is never
// duplicated and never deleted by a sync run. All nullable columns use
// pointers so that "unknown" stays distinct from "empty".
type Job struct {
	JobUID             string          `db:"job_uid"              json:"job_uid"`
	JobNumber          *string         `db:"job_number"           json:"job_number,omitempty"`
	Title              *string         `db:"title"                json:"title,omitempty"`
	Description        *string         `db:"description"          json:"description,omitempty"`
	JobStatus          *string         `db:"job_status"           json:"job_status,omitempty"`
	JobCategory        string          `db:"job_category"         json:"job_category"`
	Priority           *string         `db:"priority"             json:"priority,omitempty"`
	CustomerName       *string         `db:"customer_name"        json:"customer_name,omitempty"`
	CustomerUID        *string         `db:"customer_uid"         json:"customer_uid,omitempty"`
	JobAddress         *string         `db:"job_address"          json:"job_address,omitempty"`
	Latitude           *float64        `db:"latitude"             json:"latitude,omitempty"`
	Longitude          *float64        `db:"longitude"            json:"longitude,omitempty"`
	AssignedTechnician *string         `db:"assigned_technician"  json:"assigned_technician,omitempty"`
	TechnicianUID      *string         `db:"technician_uid"       json:"technician_uid,omitempty"`
	ScheduledStartTime *time.Time      `db:"scheduled_start_time" json:"scheduled_start_time,omitempty"`
	ScheduledEndTime   *time.Time      `db:"scheduled_end_time"   json:"scheduled_end_time,omitempty"`
	ActualStartTime    *time.Time      `db:"actual_start_time"    json:"actual_start_time,omitempty"`
	ActualEndTime      *time.Time      `db:"actual_end_time"      json:"actual_end_time,omitempty"`
	CreatedTime        *time.Time      `db:"created_time"         json:"created_time,omitempty"`
	ModifiedTime       *time.Time      `db:"modified_time"        json:"modified_time,omitempty"`
	PartsStatus        *string         `db:"parts_status"         json:"parts_status,omitempty"`
	PartsDeliveredDate *time.Time      `db:"parts_delivered_date" json:"parts_delivered_date,omitempty"`
	CustomFields       json.RawMessage `db:"custom_fields"        json:"custom_fields,omitempty"`
	Tags               json.RawMessage `db:"tags"                 json:"tags,omitempty"`
	LastSynced         time.Time       `db:"last_synced"          json:"last_synced"`
}

// JobStatistics aggregates the jobs table for the dashboard.
type JobStatistics struct {
	TotalJobs           int            `json:"total_jobs"`
	UniqueStatuses      int            `json:"unique_statuses"`
	PartsDeliveredCount int            `json:"parts_delivered_count"`
	PartsPendingCount   int            `json:"parts_pending_count"`
	EarliestScheduled   *time.Time     `json:"earliest_scheduled,omitempty"`
	LatestScheduled     *time.Time     `json:"latest_scheduled,omitempty"`
	LastSyncTime        *time.Time     `json:"last_sync_time,omitempty"`
	StatusCounts        map[string]int `json:"status_counts"`
}
