package models

import (
	"encoding/json"
	"time"

	"retail-backend/internal/timeutil"
)

type ScheduleStatus string

const (
	ScheduleConfirmed ScheduleStatus = "confirmed"
	ScheduleCancelled ScheduleStatus = "cancelled"
)

type AttendanceStatus string

const (
	AttendanceNotCheckedIn AttendanceStatus = "not_checked_in"
	AttendanceCheckedIn    AttendanceStatus = "checked_in"
	AttendanceCheckedOut   AttendanceStatus = "checked_out"
	AttendanceAbsent       AttendanceStatus = "absent"
)

// IsTerminal reports whether no further attendance transition is possible.
func (s AttendanceStatus) IsTerminal() bool {
	return s == AttendanceCheckedOut || s == AttendanceAbsent
}

// CanTransitionTo encodes the attendance state machine:
// not_checked_in -> checked_in -> checked_out, or not_checked_in -> absent.
func (s AttendanceStatus) CanTransitionTo(next AttendanceStatus) bool {
	switch s {
	case AttendanceNotCheckedIn:
		return next == AttendanceCheckedIn || next == AttendanceAbsent
	case AttendanceCheckedIn:
		return next == AttendanceCheckedOut
	default:
		return false
	}
}

// ScheduleEntry is one planned assignment of an employee to a store, date and template.
type ScheduleEntry struct {
	ID               int              `json:"id"`
	EmployeeID       int              `json:"employee_id"`
	EmployeeName     string           `json:"employee_name,omitempty"`
	StoreID          int              `json:"store_id"`
	ShiftTemplateID  int              `json:"shift_template_id"`
	WorkDate         time.Time        `json:"work_date"`
	Status           ScheduleStatus   `json:"status"`
	AttendanceStatus AttendanceStatus `json:"attendance_status"`
	CreatedBy        *int             `json:"created_by,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`

	// Joined from shift_templates
	Template *ShiftTemplate `json:"template,omitempty"`
}

// MarshalJSON renders work_date as a plain calendar date.
func (e ScheduleEntry) MarshalJSON() ([]byte, error) {
	type alias ScheduleEntry
	return json.Marshal(struct {
		alias
		WorkDate string `json:"work_date"`
	}{
		alias:    alias(e),
		WorkDate: e.WorkDate.Format(timeutil.DateLayout),
	})
}

func (e *ScheduleEntry) UnmarshalJSON(b []byte) error {
	type alias ScheduleEntry
	aux := struct {
		*alias
		WorkDate string `json:"work_date"`
	}{alias: (*alias)(e)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	if aux.WorkDate == "" {
		return nil
	}
	d, err := timeutil.ParseDate(aux.WorkDate)
	if err != nil {
		return err
	}
	e.WorkDate = d
	return nil
}

// IsActive reports whether the entry still counts as planned work.
func (e *ScheduleEntry) IsActive() bool {
	return e.Status == ScheduleConfirmed
}

type CreateScheduleRequest struct {
	EmployeeID      int    `json:"employee_id"`
	StoreID         int    `json:"store_id"`
	ShiftTemplateID int    `json:"shift_template_id"`
	WorkDate        string `json:"work_date"` // YYYY-MM-DD
}

type ScheduleFilter struct {
	StoreID    int
	EmployeeID int
	DateFrom   *time.Time
	DateTo     *time.Time
}
