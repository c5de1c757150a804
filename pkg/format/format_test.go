package format

import (
	"testing"
	"time"
)

func strptr(s string) *string     { return &s }
func f64ptr(f float64) *float64   { return &f }
func timeptr(t time.Time) *time.Time { return &t }

// --- Status tests ---

func TestStatus(t *testing.T) {
	tests := []struct {
		name     string
		input    *string
		expected string
	}{
		{
			name:     "title cased delivered status is canonicalized",
			input:    strptr("Parts Delivered"),
			expected: "Parts delivered",
		},
		{
			name:     "all lowercase delivered status is canonicalized",
			input:    strptr("parts delivered"),
			expected: "Parts delivered",
		},
		{
			name:     "canonical form passes through",
			input:    strptr("Parts delivered"),
			expected: "Parts delivered",
		},
		{
			name:     "other statuses pass through untouched",
			input:    strptr("Shop Pick UP"),
			expected: "Shop Pick UP",
		},
		{
			name:     "nil status",
			input:    nil,
			expected: "Unknown",
		},
		{
			name:     "empty status",
			input:    strptr(""),
			expected: "Unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Status(tt.input); got != tt.expected {
				t.Errorf("Status(%v) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

// --- Priority tests ---

func TestPriority(t *testing.T) {
	tests := []struct {
		name     string
		input    *string
		expected string
	}{
		{name: "uppercase urgent", input: strptr("URGENT"), expected: "Urgent"},
		{name: "lowercase high", input: strptr("high"), expected: "High"},
		{name: "unknown value passes through", input: strptr("Critical"), expected: "Critical"},
		{name: "nil defaults to Normal", input: nil, expected: "Normal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Priority(tt.input); got != tt.expected {
				t.Errorf("Priority(%v) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

// --- Coordinates tests ---

func TestCoordinates(t *testing.T) {
	if got := Coordinates(f64ptr(52.3676), f64ptr(4.9041)); got != "52.367600, 4.904100" {
		t.Errorf("unexpected coordinates: %q", got)
	}
	if got := Coordinates(nil, f64ptr(4.9041)); got != "N/A" {
		t.Errorf("expected N/A for missing latitude, got %q", got)
	}
}

// --- Duration tests ---

func TestDuration(t *testing.T) {
	start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		end      time.Time
		expected string
	}{
		{name: "minutes", end: start.Add(45 * time.Minute), expected: "45 min"},
		{name: "hours", end: start.Add(150 * time.Minute), expected: "2.5 hrs"},
		{name: "days", end: start.Add(72 * time.Hour), expected: "3 days"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Duration(timeptr(start), timeptr(tt.end)); got != tt.expected {
				t.Errorf("Duration = %q, want %q", got, tt.expected)
			}
		})
	}

	if got := Duration(nil, timeptr(start)); got != "N/A" {
		t.Errorf("expected N/A for missing start, got %q", got)
	}
}
