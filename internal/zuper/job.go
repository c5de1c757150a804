package zuper

import "encoding/json"

// RawJob is the wire shape of one Zuper job record. Fields the upstream
// omits decode as nil; the normalizer is responsible for mapping this into
// the flat persisted record.
//
// CurrentJobStatus carries the job's current status name. CurrentStage is
// the workflow stage, which can look similar but is a different field and
// must never be used as the status.
type RawJob struct {
	JobUID             string          `json:"job_uid"`
	WorkOrderNumber    *string         `json:"work_order_number"`
	JobTitle           *string         `json:"job_title"`
	JobDescription     *string         `json:"job_description"`
	Priority           *string         `json:"priority"`
	CurrentJobStatus   *RawStatus      `json:"current_job_status"`
	CurrentStage       *RawStatus      `json:"current_stage"`
	JobCategory        *RawCategory    `json:"job_category"`
	Customer           *RawCustomer    `json:"customer"`
	AssignedTo         []RawTechnician `json:"assigned_to"`
	CustomerAddress    *RawAddress     `json:"customer_address"`
	ScheduledStartTime *string         `json:"scheduled_start_time"`
	ScheduledEndTime   *string         `json:"scheduled_end_time"`
	ActualStartTime    *string         `json:"actual_start_time"`
	ActualEndTime      *string         `json:"actual_end_time"`
	CreatedAt          *string         `json:"created_at"`
	UpdatedAt          *string         `json:"updated_at"`
	PartsStatus        *string         `json:"parts_status"`
	PartsDeliveredDate *string         `json:"parts_delivered_date"`
	CustomFields       json.RawMessage `json:"custom_fields"`
	Tags               json.RawMessage `json:"tags"`
}

// RawStatus is a nested status object; only the name is used.
type RawStatus struct {
	StatusName string `json:"status_name"`
}

// RawCategory is a nested category object; only the name is used.
type RawCategory struct {
	CategoryName string `json:"category_name"`
}

// RawCustomer is the denormalized customer block on a job.
type RawCustomer struct {
	CustomerUID  *string `json:"customer_uid"`
	CustomerName *string `json:"customer_name"`
}

// RawTechnician is one entry of the assigned_to list.
type RawTechnician struct {
	UserUID *string `json:"user_uid"`
	Name    *string `json:"name"`
}

// RawAddress is the job's service address. GeoCoordinates is an ordered
// [latitude, longitude] pair.
type RawAddress struct {
	Street         *string   `json:"street"`
	City           *string   `json:"city"`
	Country        *string   `json:"country"`
	GeoCoordinates []float64 `json:"geo_coordinates"`
}
