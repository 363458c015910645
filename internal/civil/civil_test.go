package civil

import (
	"testing"
	"time"
)

func TestExpandRange(t *testing.T) {
	tests := []struct {
		name  string
		start string
		end   string
		want  int
		first string
		last  string
	}{
		{name: "single day", start: "2024-06-03", end: "2024-06-03", want: 1, first: "2024-06-03", last: "2024-06-03"},
		{name: "work week", start: "2024-06-03", end: "2024-06-07", want: 5, first: "2024-06-03", last: "2024-06-07"},
		{name: "across month and leap day", start: "2024-02-27", end: "2024-03-02", want: 5, first: "2024-02-27", last: "2024-03-02"},
		{name: "across year", start: "2023-12-30", end: "2024-01-02", want: 4, first: "2023-12-30", last: "2024-01-02"},
		{name: "inverted", start: "2024-06-07", end: "2024-06-03", want: 0},
		{name: "malformed start", start: "2024-6-3", end: "2024-06-07", want: 0},
		{name: "malformed end", start: "2024-06-03", end: "tomorrow", want: 0},
		{name: "empty", start: "", end: "", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExpandRange(tt.start, tt.end)
			if got == nil {
				t.Fatalf("ExpandRange returned nil, want empty slice")
			}
			if len(got) != tt.want {
				t.Fatalf("len = %d, want %d (%v)", len(got), tt.want, got)
			}
			if tt.want == 0 {
				return
			}
			if got[0] != tt.first || got[len(got)-1] != tt.last {
				t.Errorf("bounds = %s..%s, want %s..%s", got[0], got[len(got)-1], tt.first, tt.last)
			}
			for i := 1; i < len(got); i++ {
				prev, _ := ParseDate(got[i-1])
				cur, _ := ParseDate(got[i])
				if cur.Sub(prev) != 24*time.Hour {
					t.Errorf("gap between %s and %s", got[i-1], got[i])
				}
			}
		})
	}
}

func TestIsWeekday(t *testing.T) {
	tests := map[string]bool{
		"2024-06-03": true,  // Monday
		"2024-06-07": true,  // Friday
		"2024-06-08": false, // Saturday
		"2024-06-09": false, // Sunday
		"garbage":    false,
	}
	for date, want := range tests {
		if got := IsWeekday(date); got != want {
			t.Errorf("IsWeekday(%q) = %v, want %v", date, got, want)
		}
	}
}

func TestParseTime(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"09:00", 540, true},
		{"9:00", 540, true},
		{"0:00", 0, true},
		{"23:59", 1439, true},
		{"24:00", 0, false},
		{"12:60", 0, false},
		{"12:5", 0, false},
		{"123:00", 0, false},
		{"-1:00", 0, false},
		{"+1:00", 0, false},
		{"ab:cd", 0, false},
		{"0900", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseTime(tt.in)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("ParseTime(%q) = %d,%v want %d,%v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestFormatTimeWraps(t *testing.T) {
	tests := map[int]string{
		0:     "00:00",
		545:   "09:05",
		1439:  "23:59",
		1440:  "00:00",
		1500:  "01:00",
		-10:   "23:50",
		-1440: "00:00",
	}
	for in, want := range tests {
		if got := FormatTime(in); got != want {
			t.Errorf("FormatTime(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatParseRoundTrip(t *testing.T) {
	for _, in := range []string{"9:00", "09:00", "0:05", "23:59", "7:30"} {
		m, ok := ParseTime(in)
		if !ok {
			t.Fatalf("ParseTime(%q) failed", in)
		}
		out := FormatTime(m)
		if len(out) != 5 {
			t.Errorf("FormatTime(ParseTime(%q)) = %q, want HH:MM", in, out)
		}
		again, _ := ParseTime(out)
		if again != m {
			t.Errorf("round trip of %q changed value: %d != %d", in, again, m)
		}
	}
}

func TestAddTime(t *testing.T) {
	if got := AddTime("09:00", 50); got != "09:50" {
		t.Errorf("AddTime = %q", got)
	}
	if got := AddTime("23:30", 45); got != "00:15" {
		t.Errorf("AddTime wrap = %q", got)
	}
	if got := AddTime("9:5", 10); got != "9:5" {
		t.Errorf("AddTime on malformed input = %q, want unchanged", got)
	}
}

func TestMonthsBetween(t *testing.T) {
	got := MonthsBetween("2024-06-20", "2024-08-02")
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if got[0].Month != time.June || got[2].Month != time.August {
		t.Errorf("months = %v", got)
	}
	if days := got[1].Days(); len(days) != 31 || days[0] != "2024-07-01" {
		t.Errorf("July days = %d starting %s", len(days), days[0])
	}
	if MonthsBetween("2024-08-02", "2024-06-20") != nil {
		t.Errorf("inverted range should yield nil")
	}
}
