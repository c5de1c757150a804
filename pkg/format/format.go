// Package format contains display formatting helpers for job fields.
// All functions are pure and never modify stored values; canonical casing
// is applied at render time only.
package format

import (
	"fmt"
	"strings"
	"time"
)

// Status formats a job status for display. The upstream API reports the
// delivered status with inconsistent casing; the canonical display form is
// "Parts delivered" (lowercase d). The stored raw value is left untouched.
func Status(status *string) string {
	if status == nil || *status == "" {
		return "Unknown"
	}
	if strings.EqualFold(*status, "parts delivered") {
		return "Parts delivered"
	}
	return *status
}

// Priority normalizes priority casing for display.
func Priority(priority *string) string {
	if priority == nil || *priority == "" {
		return "Normal"
	}
	switch strings.ToLower(*priority) {
	case "urgent":
		return "Urgent"
	case "high":
		return "High"
	case "medium":
		return "Medium"
	case "normal":
		return "Normal"
	case "low":
		return "Low"
	}
	return *priority
}

// Coordinates formats a coordinate pair for display.
func Coordinates(lat, lon *float64) string {
	if lat == nil || lon == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.6f, %.6f", *lat, *lon)
}

// Duration formats the span between two timestamps for display.
func Duration(start, end *time.Time) string {
	if start == nil || end == nil {
		return "N/A"
	}
	d := end.Sub(*start)
	switch {
	case d < time.Hour:
		return fmt.Sprintf("%d min", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%.1f hrs", d.Hours())
	default:
		return fmt.Sprintf("%d days", int(d.Hours()/24))
	}
}
