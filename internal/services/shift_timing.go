package services

import (
	"sort"
	"strings"
	"time"

	"retail-backend/internal/models"
	"retail-backend/internal/timeutil"
)

// DefaultGraceMinutes is the on-time tolerance around template start and end.
const DefaultGraceMinutes = 5

// LateMinutes counts whole minutes after start+grace. Zero inside the grace window.
func LateMinutes(tmpl *models.ShiftTemplate, workDate, checkIn time.Time, grace time.Duration) int {
	start, _ := tmpl.Window(workDate)
	limit := start.Add(grace)
	if !checkIn.After(limit) {
		return 0
	}
	return int(checkIn.Sub(limit) / time.Minute)
}

// EarlyMinutes counts whole minutes before end-grace. Overnight templates end on the next day.
func EarlyMinutes(tmpl *models.ShiftTemplate, workDate, checkOut time.Time, grace time.Duration) int {
	_, end := tmpl.Window(workDate)
	limit := end.Add(-grace)
	if !checkOut.Before(limit) {
		return 0
	}
	return int(limit.Sub(checkOut) / time.Minute)
}

// MergeNotes appends a new note to an existing one so both stay visible.
func MergeNotes(existing, added string) string {
	existing, added = strings.TrimSpace(existing), strings.TrimSpace(added)
	switch {
	case existing == "":
		return added
	case added == "":
		return existing
	default:
		return existing + models.NoteSeparator + added
	}
}

// pickCheckInSchedule chooses the authorizing entry among the candidates:
// not yet checked in first, then one whose window contains now, then the
// earliest by (work_date, shift_template_id). Entries from an earlier date
// only qualify while their overnight window is still running.
func pickCheckInSchedule(candidates []*models.ScheduleEntry, now time.Time) *models.ScheduleEntry {
	today := timeutil.DateOf(now)

	var eligible []*models.ScheduleEntry
	for _, e := range candidates {
		if !e.IsActive() || e.AttendanceStatus.IsTerminal() {
			continue
		}
		if !timeutil.SameDate(e.WorkDate, today) {
			if e.Template == nil || !e.Template.Contains(e.WorkDate, now) {
				continue
			}
		}
		eligible = append(eligible, e)
	}
	if len(eligible) == 0 {
		return nil
	}

	rank := func(e *models.ScheduleEntry) int {
		r := 0
		if e.AttendanceStatus != models.AttendanceNotCheckedIn {
			r += 2
		}
		if e.Template == nil || !e.Template.Contains(e.WorkDate, now) {
			r++
		}
		return r
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		a, b := eligible[i], eligible[j]
		if ra, rb := rank(a), rank(b); ra != rb {
			return ra < rb
		}
		if !a.WorkDate.Equal(b.WorkDate) {
			return a.WorkDate.Before(b.WorkDate)
		}
		return a.ShiftTemplateID < b.ShiftTemplateID
	})
	return eligible[0]
}
