package entity

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// DateLayout is the storage format of TimeLog.Date
const DateLayout = "2006-01-02"

// TimeLogStatus describes how the clock-out of a time log happened
type TimeLogStatus string

const (
	TimeLogStatusNormal         TimeLogStatus = "Normal"
	TimeLogStatusAutoTerminated TimeLogStatus = "AutoTerminated"
	TimeLogStatusGracePeriod    TimeLogStatus = "GracePeriod"
)

// IsValid returns true if the status is one of the known clock-out kinds
func (s TimeLogStatus) IsValid() bool {
	switch s {
	case TimeLogStatusNormal, TimeLogStatusAutoTerminated, TimeLogStatusGracePeriod:
		return true
	}
	return false
}

// TimeLogNotes is the free-form part of a day's record
type TimeLogNotes struct {
	Title      string `json:"title"`
	WorkReport string `json:"workReport"`
}

// TimeLog is one employee's attendance/work record for one calendar date
type TimeLog struct {
	ID                string        `json:"id"`
	EmployeeID        string        `json:"employee_id"`
	OrganizationID    string        `json:"organization_id,omitempty"`
	Date              string        `json:"date"`
	ClockInTime       *time.Time    `json:"clock_in_time,omitempty"`
	ClockOutTime      *time.Time    `json:"clock_out_time,omitempty"`
	DurationMinutes   *int          `json:"duration_minutes,omitempty"`
	Status            TimeLogStatus `json:"status"`
	Notes             TimeLogNotes  `json:"notes"`
	ProjectTimeData   Allocation    `json:"-"`
	IsSubmitted       bool          `json:"is_submitted"`
	TotalWorkingHours float64       `json:"total_working_hours"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

// DeriveDuration sets DurationMinutes from the clock times when both are present.
// Elapsed minutes are rounded to the nearest minute.
func (t *TimeLog) DeriveDuration() {
	if t.ClockInTime == nil || t.ClockOutTime == nil {
		return
	}
	elapsed := t.ClockOutTime.Sub(*t.ClockInTime)
	if elapsed < 0 {
		return
	}
	minutes := int(math.Round(elapsed.Minutes()))
	t.DurationMinutes = &minutes
}

// HoursToMinutes converts a working-hours figure to whole minutes
func HoursToMinutes(hours float64) int {
	return int(math.Round(hours * 60))
}

// MarshalNotes serializes notes for storage
func MarshalNotes(n TimeLogNotes) (string, error) {
	b, err := json.Marshal(n)
	if err != nil {
		return "", fmt.Errorf("marshal notes: %w", err)
	}
	return string(b), nil
}

// UnmarshalNotes parses stored notes. An empty string yields empty notes.
func UnmarshalNotes(s string) (TimeLogNotes, error) {
	var n TimeLogNotes
	if s == "" {
		return n, nil
	}
	if err := json.Unmarshal([]byte(s), &n); err != nil {
		return n, fmt.Errorf("unmarshal notes: %w", err)
	}
	return n, nil
}
