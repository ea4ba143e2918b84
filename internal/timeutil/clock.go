package timeutil

import (
	"fmt"
	"strings"
	"time"
)

// Location is the store-local timezone used for work dates and shift windows.
// Defaults to Indian Standard Time; overridden from config at startup.
var Location *time.Location

func init() {
	var err error
	Location, err = time.LoadLocation("Asia/Kolkata")
	if err != nil {
		// Fallback: create fixed zone if Asia/Kolkata not available
		Location = time.FixedZone("IST", 5*60*60+30*60)
	}
}

// SetLocation switches the store-local timezone. Unknown names keep the current one.
func SetLocation(name string) error {
	if name == "" {
		return nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return fmt.Errorf("load timezone %q: %w", name, err)
	}
	Location = loc
	return nil
}

// Clock is the source of "now" for anything time-window sensitive.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in the store-local timezone.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().In(Location)
}

// Now returns the current time in the store-local timezone
func Now() time.Time {
	return time.Now().In(Location)
}

// StartOfDay returns local midnight for the given time
func StartOfDay(t time.Time) time.Time {
	l := t.In(Location)
	return time.Date(l.Year(), l.Month(), l.Day(), 0, 0, 0, 0, Location)
}

// EndOfDay returns the end of day (23:59:59) in store-local time
func EndOfDay(t time.Time) time.Time {
	l := t.In(Location)
	return time.Date(l.Year(), l.Month(), l.Day(), 23, 59, 59, 999999999, Location)
}

// DateOf strips the clock part and returns the calendar date as UTC midnight,
// the same shape pgx returns for DATE columns.
func DateOf(t time.Time) time.Time {
	l := t.In(Location)
	return time.Date(l.Year(), l.Month(), l.Day(), 0, 0, 0, 0, time.UTC)
}

// SameDate reports whether two DATE values are the same calendar day.
func SameDate(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

// Wall returns the local wall-clock reading of t labelled as UTC, for comparison
// against `timestamp without time zone` expressions such as work_date + end_time.
func Wall(t time.Time) time.Time {
	l := t.In(Location)
	return time.Date(l.Year(), l.Month(), l.Day(), l.Hour(), l.Minute(), l.Second(), l.Nanosecond(), time.UTC)
}

// ParseDate parses YYYY-MM-DD into a DATE value.
func ParseDate(value string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, strings.TrimSpace(value), time.UTC)
}

// TimeOfDay is an offset from midnight, used for shift template start/end times.
type TimeOfDay time.Duration

// ParseTimeOfDay accepts "15:04" or "15:04:05".
func ParseTimeOfDay(value string) (TimeOfDay, error) {
	value = strings.TrimSpace(value)
	layout := "15:04"
	if strings.Count(value, ":") == 2 {
		layout = TimeLayout
	}
	t, err := time.Parse(layout, value)
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q", value)
	}
	return TimeOfDay(time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second), nil
}

// On places the time of day on a calendar date in the store-local timezone.
func (d TimeOfDay) On(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, Location).Add(time.Duration(d))
}

func (d TimeOfDay) String() string {
	total := int(time.Duration(d) / time.Second)
	h, m, s := total/3600, (total%3600)/60, total%60
	if s == 0 {
		return fmt.Sprintf("%02d:%02d", h, m)
	}
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func (d TimeOfDay) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *TimeOfDay) UnmarshalJSON(b []byte) error {
	parsed, err := ParseTimeOfDay(strings.Trim(string(b), `"`))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Common layouts
const (
	DateLayout     = "2006-01-02"
	TimeLayout     = "15:04:05"
	DateTimeLayout = "2006-01-02 15:04:05"
	DisplayLayout  = "02 Jan 2006, 03:04 PM"
)
