package services

import (
	"testing"
	"time"

	"retail-backend/internal/models"
	"retail-backend/internal/timeutil"
)

func template(t *testing.T, start, end string) *models.ShiftTemplate {
	t.Helper()
	s, err := timeutil.ParseTimeOfDay(start)
	if err != nil {
		t.Fatal(err)
	}
	e, err := timeutil.ParseTimeOfDay(end)
	if err != nil {
		t.Fatal(err)
	}
	return &models.ShiftTemplate{ID: 1, StartTime: s, EndTime: e}
}

func TestLateMinutes(t *testing.T) {
	tmpl := template(t, "08:00", "16:00")
	day := date(2026, 3, 10)
	grace := 5 * time.Minute

	tests := []struct {
		name string
		at   time.Time
		want int
	}{
		{"before start", local(2026, 3, 10, 7, 50), 0},
		{"inside grace", local(2026, 3, 10, 8, 4), 0},
		{"grace boundary", local(2026, 3, 10, 8, 5), 0},
		{"seven past", local(2026, 3, 10, 8, 7), 2},
		{"eleven past", local(2026, 3, 10, 8, 11), 6},
		{"partial minute floors", local(2026, 3, 10, 8, 6).Add(59 * time.Second), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LateMinutes(tmpl, day, tt.at, grace); got != tt.want {
				t.Errorf("LateMinutes() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestEarlyMinutes(t *testing.T) {
	tmpl := template(t, "14:00", "22:00")
	day := date(2026, 3, 10)
	grace := 5 * time.Minute

	tests := []struct {
		name string
		at   time.Time
		want int
	}{
		{"three early", local(2026, 3, 10, 21, 52), 3},
		{"inside grace", local(2026, 3, 10, 21, 56), 0},
		{"after end", local(2026, 3, 10, 22, 30), 0},
		{"hour early", local(2026, 3, 10, 20, 55), 60},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EarlyMinutes(tmpl, day, tt.at, grace); got != tt.want {
				t.Errorf("EarlyMinutes() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestOvernightWindow(t *testing.T) {
	tmpl := template(t, "22:00", "06:00")
	day := date(2026, 3, 10)
	grace := 5 * time.Minute

	if !tmpl.Overnight() {
		t.Fatal("22:00-06:00 should be overnight")
	}
	start, end := tmpl.Window(day)
	if !start.Equal(local(2026, 3, 10, 22, 0)) || !end.Equal(local(2026, 3, 11, 6, 0)) {
		t.Fatalf("window = %v - %v", start, end)
	}

	if got := EarlyMinutes(tmpl, day, local(2026, 3, 11, 5, 0), grace); got != 55 {
		t.Errorf("EarlyMinutes at 05:00 next day = %d, want 55", got)
	}
	if got := EarlyMinutes(tmpl, day, local(2026, 3, 11, 5, 58), grace); got != 0 {
		t.Errorf("EarlyMinutes at 05:58 next day = %d, want 0", got)
	}
	if got := LateMinutes(tmpl, day, local(2026, 3, 11, 0, 5), grace); got != 120 {
		t.Errorf("LateMinutes at 00:05 next day = %d, want 120", got)
	}
}

func TestMergeNotes(t *testing.T) {
	tests := []struct {
		existing, added, want string
	}{
		{"", "", ""},
		{"", "bus was late", "bus was late"},
		{"bus was late", "", "bus was late"},
		{"bus was late", "doctor appointment", "bus was late | doctor appointment"},
		{"  spaced  ", "  out ", "spaced | out"},
	}
	for _, tt := range tests {
		if got := MergeNotes(tt.existing, tt.added); got != tt.want {
			t.Errorf("MergeNotes(%q, %q) = %q, want %q", tt.existing, tt.added, got, tt.want)
		}
	}
}

func TestPickCheckInSchedule(t *testing.T) {
	morning := template(t, "06:00", "14:00")
	morning.ID = 1
	evening := template(t, "14:00", "22:00")
	evening.ID = 3
	night := template(t, "22:00", "06:00")
	night.ID = 4

	entry := func(id int, tmpl *models.ShiftTemplate, day time.Time, att models.AttendanceStatus) *models.ScheduleEntry {
		return &models.ScheduleEntry{
			ID: id, ShiftTemplateID: tmpl.ID, WorkDate: day, Template: tmpl,
			Status: models.ScheduleConfirmed, AttendanceStatus: att,
		}
	}
	today := date(2026, 3, 10)
	yesterday := date(2026, 3, 9)

	t.Run("none", func(t *testing.T) {
		if got := pickCheckInSchedule(nil, local(2026, 3, 10, 9, 0)); got != nil {
			t.Fatalf("got %+v, want nil", got)
		}
	})

	t.Run("prefers not checked in", func(t *testing.T) {
		c := []*models.ScheduleEntry{
			entry(1, morning, today, models.AttendanceCheckedIn),
			entry(2, evening, today, models.AttendanceNotCheckedIn),
		}
		if got := pickCheckInSchedule(c, local(2026, 3, 10, 9, 0)); got.ID != 2 {
			t.Fatalf("picked %d, want 2", got.ID)
		}
	})

	t.Run("prefers running window", func(t *testing.T) {
		c := []*models.ScheduleEntry{
			entry(1, morning, today, models.AttendanceNotCheckedIn),
			entry(2, evening, today, models.AttendanceNotCheckedIn),
		}
		if got := pickCheckInSchedule(c, local(2026, 3, 10, 15, 0)); got.ID != 2 {
			t.Fatalf("picked %d, want 2", got.ID)
		}
	})

	t.Run("earliest when nothing running", func(t *testing.T) {
		c := []*models.ScheduleEntry{
			entry(2, evening, today, models.AttendanceNotCheckedIn),
			entry(1, morning, today, models.AttendanceNotCheckedIn),
		}
		if got := pickCheckInSchedule(c, local(2026, 3, 10, 5, 0)); got.ID != 1 {
			t.Fatalf("picked %d, want 1", got.ID)
		}
	})

	t.Run("yesterday overnight still running", func(t *testing.T) {
		c := []*models.ScheduleEntry{entry(7, night, yesterday, models.AttendanceNotCheckedIn)}
		if got := pickCheckInSchedule(c, local(2026, 3, 10, 1, 0)); got == nil || got.ID != 7 {
			t.Fatalf("picked %+v, want 7", got)
		}
	})

	t.Run("yesterday day shift ignored", func(t *testing.T) {
		c := []*models.ScheduleEntry{entry(8, morning, yesterday, models.AttendanceNotCheckedIn)}
		if got := pickCheckInSchedule(c, local(2026, 3, 10, 7, 0)); got != nil {
			t.Fatalf("picked %d, want nil", got.ID)
		}
	})

	t.Run("terminal and cancelled skipped", func(t *testing.T) {
		absent := entry(1, morning, today, models.AttendanceAbsent)
		cancelled := entry(2, evening, today, models.AttendanceNotCheckedIn)
		cancelled.Status = models.ScheduleCancelled
		if got := pickCheckInSchedule([]*models.ScheduleEntry{absent, cancelled}, local(2026, 3, 10, 9, 0)); got != nil {
			t.Fatalf("picked %d, want nil", got.ID)
		}
	})
}
