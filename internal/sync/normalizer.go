// Package sync implements the fetch-normalize-filter-persist pipeline that
// mirrors upstream work orders into local storage.
package sync

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/wbrandsma/partsync/internal/geo"
	"github.com/wbrandsma/partsync/internal/zuper"
	"github.com/wbrandsma/partsync/pkg/models"
)

// RejectReason tags why a raw record was dropped instead of persisted.
type RejectReason string

const (
	RejectUndecodable        RejectReason = "undecodable"
	RejectMissingUID         RejectReason = "missing_uid"
	RejectCategoryMismatch   RejectReason = "category_mismatch"
	RejectMissingCoordinates RejectReason = "missing_coordinates"
	RejectInvalidCoordinates RejectReason = "invalid_coordinates"
	RejectOutOfBounds        RejectReason = "out_of_bounds"
)

// Rejection is the structured outcome for a record that cannot be persisted.
type Rejection struct {
	JobUID string
	Reason RejectReason
	Detail string
}

func (r *Rejection) String() string {
	if r.Detail == "" {
		return string(r.Reason)
	}
	return fmt.Sprintf("%s: %s", r.Reason, r.Detail)
}

// Normalizer maps raw upstream job payloads into the flat persisted record.
// Records outside the configured category or bounding box are rejected here,
// before they ever reach storage.
type Normalizer struct {
	category string
	bounds   geo.Bounds
}

func NewNormalizer(category string, bounds geo.Bounds) *Normalizer {
	return &Normalizer{category: category, bounds: bounds}
}

// Normalize converts one raw record into a Job, or explains why it cannot.
// Exactly one of the two return values is non-nil.
func (n *Normalizer) Normalize(raw json.RawMessage) (*models.Job, *Rejection) {
	var rj zuper.RawJob
	if err := json.Unmarshal(raw, &rj); err != nil {
		return nil, &Rejection{Reason: RejectUndecodable, Detail: err.Error()}
	}
	if rj.JobUID == "" {
		return nil, &Rejection{Reason: RejectMissingUID}
	}

	// The category comparison is exact: casing and whitespace both count.
	if rj.JobCategory == nil || rj.JobCategory.CategoryName != n.category {
		got := ""
		if rj.JobCategory != nil {
			got = rj.JobCategory.CategoryName
		}
		return nil, &Rejection{
			JobUID: rj.JobUID,
			Reason: RejectCategoryMismatch,
			Detail: fmt.Sprintf("category %q", got),
		}
	}

	lat, lon, rej := extractCoordinates(&rj)
	if rej != nil {
		return nil, rej
	}
	if !n.bounds.Contains(&lat, &lon) {
		return nil, &Rejection{
			JobUID: rj.JobUID,
			Reason: RejectOutOfBounds,
			Detail: fmt.Sprintf("(%.4f, %.4f)", lat, lon),
		}
	}

	job := &models.Job{
		JobUID:             rj.JobUID,
		JobNumber:          rj.WorkOrderNumber,
		Title:              rj.JobTitle,
		Description:        rj.JobDescription,
		JobCategory:        rj.JobCategory.CategoryName,
		Priority:           rj.Priority,
		Latitude:           &lat,
		Longitude:          &lon,
		PartsStatus:        rj.PartsStatus,
		PartsDeliveredDate: parseTimestamp(rj.PartsDeliveredDate),
		ScheduledStartTime: parseTimestamp(rj.ScheduledStartTime),
		ScheduledEndTime:   parseTimestamp(rj.ScheduledEndTime),
		ActualStartTime:    parseTimestamp(rj.ActualStartTime),
		ActualEndTime:      parseTimestamp(rj.ActualEndTime),
		CreatedTime:        parseTimestamp(rj.CreatedAt),
		ModifiedTime:       parseTimestamp(rj.UpdatedAt),
		CustomFields:       rj.CustomFields,
		Tags:               rj.Tags,
	}

	// Status comes from current_job_status only. current_stage looks the
	// same on the wire but is a different field.
	if rj.CurrentJobStatus != nil && rj.CurrentJobStatus.StatusName != "" {
		status := rj.CurrentJobStatus.StatusName
		job.JobStatus = &status
	}

	if rj.Customer != nil {
		job.CustomerName = rj.Customer.CustomerName
		job.CustomerUID = rj.Customer.CustomerUID
	}
	if len(rj.AssignedTo) > 0 {
		job.AssignedTechnician = rj.AssignedTo[0].Name
		job.TechnicianUID = rj.AssignedTo[0].UserUID
	}
	if rj.CustomerAddress != nil {
		if addr := formatAddress(rj.CustomerAddress); addr != "" {
			job.JobAddress = &addr
		}
	}

	return job, nil
}

// extractCoordinates pulls the ordered [latitude, longitude] pair off the
// address block. A latitude magnitude above 90 means the axes were swapped
// upstream, which has happened before; such pairs are rejected rather than
// silently flipped.
func extractCoordinates(rj *zuper.RawJob) (float64, float64, *Rejection) {
	if rj.CustomerAddress == nil || len(rj.CustomerAddress.GeoCoordinates) < 2 {
		return 0, 0, &Rejection{JobUID: rj.JobUID, Reason: RejectMissingCoordinates}
	}
	lat := rj.CustomerAddress.GeoCoordinates[0]
	lon := rj.CustomerAddress.GeoCoordinates[1]
	if !geo.ValidCoordinates(lat, lon) {
		detail := fmt.Sprintf("(%.4f, %.4f)", lat, lon)
		if lat < -90 || lat > 90 {
			detail += " looks axis-swapped"
		}
		return 0, 0, &Rejection{JobUID: rj.JobUID, Reason: RejectInvalidCoordinates, Detail: detail}
	}
	return lat, lon, nil
}

func formatAddress(a *zuper.RawAddress) string {
	var parts []string
	for _, p := range []*string{a.Street, a.City, a.Country} {
		if p != nil && *p != "" {
			parts = append(parts, *p)
		}
	}
	return strings.Join(parts, ", ")
}

// timestampLayouts are tried in order. The upstream API is not consistent
// about timezone suffixes or sub-second precision.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseTimestamp parses an upstream timestamp string, returning nil when the
// value is absent or unparsable. Absent stays null, never a sentinel.
func parseTimestamp(s *string) *time.Time {
	if s == nil || *s == "" {
		return nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, *s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}
