package sync

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wbrandsma/partsync/internal/geo"
)

const partsCategory = "Field Requires Parts"

func newTestNormalizer() *Normalizer {
	return NewNormalizer(partsCategory, geo.EU)
}

// rawRecord returns a complete valid upstream payload. Tests override
// individual fields by mutating the map before marshaling.
func rawRecord() map[string]any {
	return map[string]any{
		"job_uid":           "uid-1",
		"work_order_number": "JOB-1001",
		"job_title":         "Replace compressor",
		"priority":          "High",
		"current_job_status": map[string]any{
			"status_name": "Parts Requested",
		},
		"current_stage": map[string]any{
			"status_name": "In Progress",
		},
		"job_category": map[string]any{
			"category_name": partsCategory,
		},
		"customer": map[string]any{
			"customer_uid":  "cust-9",
			"customer_name": "Müller GmbH",
		},
		"assigned_to": []map[string]any{
			{"user_uid": "tech-1", "name": "A. Janssen"},
			{"user_uid": "tech-2", "name": "B. Okafor"},
		},
		"customer_address": map[string]any{
			"street":          "Hauptstraße 12",
			"city":            "Berlin",
			"country":         "Germany",
			"geo_coordinates": []float64{52.52, 13.405},
		},
		"scheduled_start_time": "2026-03-10T09:00:00Z",
		"created_at":           "2026-02-01 08:30:00",
		"custom_fields":        map[string]any{"parts_po": "PO-1881"},
		"tags":                 []string{"hvac"},
	}
}

func marshal(t *testing.T, record map[string]any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(record)
	require.NoError(t, err)
	return b
}

func TestNormalize_ValidRecord(t *testing.T) {
	n := newTestNormalizer()

	job, rej := n.Normalize(marshal(t, rawRecord()))
	require.Nil(t, rej)
	require.NotNil(t, job)

	assert.Equal(t, "uid-1", job.JobUID)
	assert.Equal(t, "JOB-1001", *job.JobNumber)
	assert.Equal(t, partsCategory, job.JobCategory)
	assert.Equal(t, "Parts Requested", *job.JobStatus)
	assert.Equal(t, 52.52, *job.Latitude)
	assert.Equal(t, 13.405, *job.Longitude)
	assert.Equal(t, "Müller GmbH", *job.CustomerName)
	assert.Equal(t, "A. Janssen", *job.AssignedTechnician)
	assert.Equal(t, "tech-1", *job.TechnicianUID)
	assert.Equal(t, "Hauptstraße 12, Berlin, Germany", *job.JobAddress)
	require.NotNil(t, job.ScheduledStartTime)
	assert.Equal(t, time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC), *job.ScheduledStartTime)
	require.NotNil(t, job.CreatedTime)
	assert.Equal(t, time.Date(2026, 2, 1, 8, 30, 0, 0, time.UTC), *job.CreatedTime)
	assert.JSONEq(t, `{"parts_po":"PO-1881"}`, string(job.CustomFields))
}

func TestNormalize_StatusIgnoresStage(t *testing.T) {
	n := newTestNormalizer()

	// current_stage present, current_job_status absent: status stays nil.
	record := rawRecord()
	delete(record, "current_job_status")

	job, rej := n.Normalize(marshal(t, record))
	require.Nil(t, rej)
	assert.Nil(t, job.JobStatus)
}

func TestNormalize_CategoryCaseSensitive(t *testing.T) {
	n := newTestNormalizer()

	record := rawRecord()
	record["job_category"] = map[string]any{"category_name": "field requires parts"}

	job, rej := n.Normalize(marshal(t, record))
	assert.Nil(t, job)
	require.NotNil(t, rej)
	assert.Equal(t, RejectCategoryMismatch, rej.Reason)
	assert.Equal(t, "uid-1", rej.JobUID)
}

func TestNormalize_CategoryMissing(t *testing.T) {
	n := newTestNormalizer()

	record := rawRecord()
	delete(record, "job_category")

	job, rej := n.Normalize(marshal(t, record))
	assert.Nil(t, job)
	require.NotNil(t, rej)
	assert.Equal(t, RejectCategoryMismatch, rej.Reason)
}

func TestNormalize_MissingCoordinates(t *testing.T) {
	n := newTestNormalizer()

	tests := []struct {
		name    string
		address any
	}{
		{"no address", nil},
		{"no pair", map[string]any{"city": "Berlin"}},
		{"short pair", map[string]any{"geo_coordinates": []float64{52.52}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := rawRecord()
			if tt.address == nil {
				delete(record, "customer_address")
			} else {
				record["customer_address"] = tt.address
			}

			job, rej := n.Normalize(marshal(t, record))
			assert.Nil(t, job)
			require.NotNil(t, rej)
			assert.Equal(t, RejectMissingCoordinates, rej.Reason)
		})
	}
}

func TestNormalize_SwappedCoordinatesRejected(t *testing.T) {
	n := newTestNormalizer()

	// Berlin with the axes flipped: latitude 13.4 would pass, but a pair
	// arriving as [lon, lat] from a point east of 90°E would not; the guard
	// is |lat| > 90.
	record := rawRecord()
	record["customer_address"] = map[string]any{
		"geo_coordinates": []float64{103.82, 1.35},
	}

	job, rej := n.Normalize(marshal(t, record))
	assert.Nil(t, job)
	require.NotNil(t, rej)
	assert.Equal(t, RejectInvalidCoordinates, rej.Reason)
	assert.Contains(t, rej.Detail, "axis-swapped")
}

func TestNormalize_OutOfBoundsRejected(t *testing.T) {
	n := newTestNormalizer()

	// New York: valid coordinates, outside the configured box.
	record := rawRecord()
	record["customer_address"] = map[string]any{
		"geo_coordinates": []float64{40.71, -74.0},
	}

	job, rej := n.Normalize(marshal(t, record))
	assert.Nil(t, job)
	require.NotNil(t, rej)
	assert.Equal(t, RejectOutOfBounds, rej.Reason)
}

func TestNormalize_BoundaryCoordinatesKept(t *testing.T) {
	n := newTestNormalizer()

	// Bounds are inclusive.
	record := rawRecord()
	record["customer_address"] = map[string]any{
		"geo_coordinates": []float64{35.0, -11.0},
	}

	job, rej := n.Normalize(marshal(t, record))
	require.Nil(t, rej)
	require.NotNil(t, job)
	assert.Equal(t, 35.0, *job.Latitude)
	assert.Equal(t, -11.0, *job.Longitude)
}

func TestNormalize_Undecodable(t *testing.T) {
	n := newTestNormalizer()

	job, rej := n.Normalize(json.RawMessage(`{"job_uid": 12`))
	assert.Nil(t, job)
	require.NotNil(t, rej)
	assert.Equal(t, RejectUndecodable, rej.Reason)
}

func TestNormalize_MissingUID(t *testing.T) {
	n := newTestNormalizer()

	record := rawRecord()
	delete(record, "job_uid")

	job, rej := n.Normalize(marshal(t, record))
	assert.Nil(t, job)
	require.NotNil(t, rej)
	assert.Equal(t, RejectMissingUID, rej.Reason)
}

func TestNormalize_AbsentTimestampsStayNil(t *testing.T) {
	n := newTestNormalizer()

	record := rawRecord()
	delete(record, "scheduled_start_time")
	record["actual_end_time"] = "not-a-date"

	job, rej := n.Normalize(marshal(t, record))
	require.Nil(t, rej)
	assert.Nil(t, job.ScheduledStartTime)
	assert.Nil(t, job.ActualEndTime)
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  *time.Time
	}{
		{"rfc3339", "2026-03-10T09:00:00Z", timePtr(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))},
		{"no timezone", "2026-03-10T09:00:00", timePtr(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))},
		{"space separated", "2026-03-10 09:00:00", timePtr(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))},
		{"date only", "2026-03-10", timePtr(time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC))},
		{"garbage", "yesterday", nil},
		{"empty", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseTimestamp(&tt.input)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, *tt.want, *got)
		})
	}
}

func timePtr(t time.Time) *time.Time { return &t }
