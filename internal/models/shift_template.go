package models

import (
	"time"

	"retail-backend/internal/timeutil"
)

// ShiftTemplate is a named daily time window. Templates whose end is not after
// their start run past midnight.
type ShiftTemplate struct {
	ID        int                `json:"id"`
	Name      string             `json:"name"`
	StartTime timeutil.TimeOfDay `json:"start_time"`
	EndTime   timeutil.TimeOfDay `json:"end_time"`
}

// Overnight reports whether the window wraps past midnight.
func (t *ShiftTemplate) Overnight() bool {
	return t.EndTime <= t.StartTime
}

// Window returns the concrete start and end instants for a work date.
func (t *ShiftTemplate) Window(workDate time.Time) (time.Time, time.Time) {
	start := t.StartTime.On(workDate)
	end := t.EndTime.On(workDate)
	if t.Overnight() {
		end = end.AddDate(0, 0, 1)
	}
	return start, end
}

// Contains reports whether now falls inside the window for workDate.
func (t *ShiftTemplate) Contains(workDate, now time.Time) bool {
	start, end := t.Window(workDate)
	return !now.Before(start) && now.Before(end)
}
