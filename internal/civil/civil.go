// Package civil implements date and time-of-day arithmetic on bare calendar
// values. Nothing here consults a timezone: dates are "YYYY-MM-DD" strings,
// times of day are "HH:MM" strings or minutes since midnight.
package civil

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the canonical textual form of a civil date.
const DateLayout = "2006-01-02"

const minutesPerDay = 24 * 60

// ParseDate parses a canonical civil date. The returned time is midnight UTC
// of that date, which is only ever used for calendar arithmetic.
func ParseDate(s string) (time.Time, bool) {
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// FormatDate renders the civil date part of t.
func FormatDate(t time.Time) string {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC).Format(DateLayout)
}

// ExpandRange returns every date from start to end inclusive, ascending.
// A malformed bound or start after end yields an empty slice.
func ExpandRange(start, end string) []string {
	s, ok := ParseDate(start)
	if !ok {
		return []string{}
	}
	e, ok := ParseDate(end)
	if !ok || s.After(e) {
		return []string{}
	}

	days := int(e.Sub(s).Hours()/24) + 1
	out := make([]string, 0, days)
	for d := s; !d.After(e); d = d.AddDate(0, 0, 1) {
		out = append(out, d.Format(DateLayout))
	}
	return out
}

// Weekday returns the day of week of date. Malformed dates report ok=false.
func Weekday(date string) (time.Weekday, bool) {
	t, ok := ParseDate(date)
	if !ok {
		return time.Sunday, false
	}
	return t.Weekday(), true
}

// IsWeekday reports whether date falls on Monday through Friday.
func IsWeekday(date string) bool {
	wd, ok := Weekday(date)
	if !ok {
		return false
	}
	return wd != time.Saturday && wd != time.Sunday
}

// ParseTime parses "H:MM" or "HH:MM" into minutes since midnight.
func ParseTime(text string) (int, bool) {
	h, m, found := strings.Cut(strings.TrimSpace(text), ":")
	if !found || len(h) < 1 || len(h) > 2 || len(m) != 2 {
		return 0, false
	}
	hour, ok := digits(h)
	if !ok || hour > 23 {
		return 0, false
	}
	minute, ok := digits(m)
	if !ok || minute > 59 {
		return 0, false
	}
	return hour*60 + minute, true
}

// digits accepts only ASCII decimal digits; strconv alone would also take
// signs.
func digits(s string) (int, bool) {
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

// FormatTime renders minutes since midnight as zero-padded "HH:MM", wrapping
// modulo 24h in both directions.
func FormatTime(minutes int) string {
	m := minutes % minutesPerDay
	if m < 0 {
		m += minutesPerDay
	}
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// AddTime shifts a time of day by delta minutes. Text that does not parse is
// returned unchanged.
func AddTime(text string, delta int) string {
	m, ok := ParseTime(text)
	if !ok {
		return text
	}
	return FormatTime(m + delta)
}

// CanonicalTime reformats a parseable time as "HH:MM" and passes anything
// else through untouched.
func CanonicalTime(text string) string {
	return AddTime(text, 0)
}

// Month identifies one calendar month.
type Month struct {
	Year  int
	Month time.Month
}

// First returns the first day of the month as a civil date.
func (m Month) First() string {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC).Format(DateLayout)
}

// Days returns every date of the month.
func (m Month) Days() []string {
	first := time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	return ExpandRange(first.Format(DateLayout), last.Format(DateLayout))
}

// MonthsBetween lists every month touched by [start, end], inclusive of
// both endpoint months. It returns nil when the range is empty.
func MonthsBetween(start, end string) []Month {
	s, ok := ParseDate(start)
	if !ok {
		return nil
	}
	e, ok := ParseDate(end)
	if !ok || s.After(e) {
		return nil
	}

	var out []Month
	cur := time.Date(s.Year(), s.Month(), 1, 0, 0, 0, 0, time.UTC)
	stop := time.Date(e.Year(), e.Month(), 1, 0, 0, 0, 0, time.UTC)
	for !cur.After(stop) {
		out = append(out, Month{Year: cur.Year(), Month: cur.Month()})
		cur = cur.AddDate(0, 1, 0)
	}
	return out
}
