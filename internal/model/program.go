package model

import (
	"fmt"
	"time"
)

// ProgramKind distinguishes recurring programs from one-off visits.
type ProgramKind string

const (
	ProgramStandard ProgramKind = "standard"
	ProgramAdhoc    ProgramKind = "adhoc"
)

// Bounds applied to lesson counts wherever they are resolved.
const (
	MinBlocks   = 1
	MaxBlocks   = 3
	MinSections = 1
	MaxSections = 20
)

// Program is one itinerary: its date range, baseline headcounts and the
// defaults from which automatic events are generated.
type Program struct {
	ID   string      `yaml:"id" json:"id"`
	Name string      `yaml:"name" json:"name"`
	Kind ProgramKind `yaml:"kind" json:"kind"`

	// StartDate / EndDate are inclusive civil dates ("YYYY-MM-DD").
	StartDate string `yaml:"start_date" json:"start_date"`
	EndDate   string `yaml:"end_date" json:"end_date"`

	Headcount int `yaml:"headcount" json:"headcount"`
	Buddies   int `yaml:"buddies" json:"buddies"`

	Arrival  ArrivalDefaults  `yaml:"arrival" json:"arrival"`
	Lessons  LessonDefaults   `yaml:"lessons" json:"lessons"`
	Ceremony CeremonyDefaults `yaml:"ceremony" json:"ceremony"`

	// Overrides is keyed by civil date. Consumers iterate the expanded date
	// range, never the map itself.
	Overrides map[string]LessonOverride `yaml:"overrides,omitempty" json:"overrides,omitempty"`

	UpdatedAt time.Time `yaml:"updated_at,omitempty" json:"updated_at,omitempty"`
}

// ArrivalDefaults shape the first-day sequence: escort, orientation, campus
// tour, back to back.
type ArrivalDefaults struct {
	StartTime           string `yaml:"start_time" json:"start_time"`
	EscortMinutes       int    `yaml:"escort_minutes" json:"escort_minutes"`
	OrientationMinutes  int    `yaml:"orientation_minutes" json:"orientation_minutes"`
	TourMinutes         int    `yaml:"tour_minutes" json:"tour_minutes"`
	EscortLocation      string `yaml:"escort_location" json:"escort_location"`
	OrientationLocation string `yaml:"orientation_location" json:"orientation_location"`
	TourLocation        string `yaml:"tour_location" json:"tour_location"`
}

// LessonDefaults are the program-wide daily lesson settings.
type LessonDefaults struct {
	Enabled      bool      `yaml:"enabled" json:"enabled"`
	StartTime    string    `yaml:"start_time" json:"start_time"`
	BlockMinutes int       `yaml:"block_minutes" json:"block_minutes"`
	BreakMinutes int       `yaml:"break_minutes" json:"break_minutes"`
	BlockCount   int       `yaml:"block_count" json:"block_count"`
	ClassCount   int       `yaml:"class_count" json:"class_count"`
	Sections     []Section `yaml:"sections,omitempty" json:"sections,omitempty"`
}

// Section is one parallel class group.
type Section struct {
	ClassName   string `yaml:"class_name" json:"class_name"`
	Classroom   string `yaml:"classroom" json:"classroom"`
	TeacherRoom string `yaml:"teacher_room,omitempty" json:"teacher_room,omitempty"`
}

// LessonOverride replaces the lesson defaults on a single date. Nil or
// malformed fields fall back to the defaults one field at a time.
type LessonOverride struct {
	Enabled      bool     `yaml:"enabled" json:"enabled"`
	StartTime    string   `yaml:"start_time,omitempty" json:"start_time,omitempty"`
	BlockMinutes *int     `yaml:"block_minutes,omitempty" json:"block_minutes,omitempty"`
	BreakMinutes *int     `yaml:"break_minutes,omitempty" json:"break_minutes,omitempty"`
	BlockCount   *int     `yaml:"block_count,omitempty" json:"block_count,omitempty"`
	ClassCount   *int     `yaml:"class_count,omitempty" json:"class_count,omitempty"`
	Classrooms   []string `yaml:"classrooms,omitempty" json:"classrooms,omitempty"`
	TeacherRooms []string `yaml:"teacher_rooms,omitempty" json:"teacher_rooms,omitempty"`
}

// CeremonyDefaults apply to the program's final day only.
type CeremonyDefaults struct {
	StartTime string `yaml:"start_time" json:"start_time"`
	Minutes   int    `yaml:"minutes" json:"minutes"`
	Location  string `yaml:"location" json:"location"`
}

// Fallbacks used when a program leaves a field unset or malformed.
const (
	DefaultArrivalStart       = "09:00"
	DefaultEscortMinutes      = 30
	DefaultOrientationMinutes = 60
	DefaultTourMinutes        = 90
	DefaultLessonStart        = "09:00"
	DefaultBlockMinutes       = 90
	DefaultBreakMinutes       = 10
	DefaultCeremonyStart      = "13:10"
	DefaultCeremonyMinutes    = 60
)

// defaultClassNames is used for the first sections before falling back to
// synthetic "Class N" labels.
var defaultClassNames = []string{"Class A", "Class B", "Class C", "Class D", "Class E", "Class F"}

// DefaultClassName returns the placeholder name of the 0-based section i.
func DefaultClassName(i int) string {
	if i >= 0 && i < len(defaultClassNames) {
		return defaultClassNames[i]
	}
	return fmt.Sprintf("Class %d", i+1)
}

// DefaultClassroom returns the placeholder room of the 0-based section i.
func DefaultClassroom(i int) string {
	return fmt.Sprintf("YY3%02d", i+1)
}

// ClampBlocks bounds a block count to [MinBlocks, MaxBlocks].
func ClampBlocks(n int) int {
	return clamp(n, MinBlocks, MaxBlocks)
}

// ClampSections bounds a section count to [MinSections, MaxSections].
func ClampSections(n int) int {
	return clamp(n, MinSections, MaxSections)
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

// SectionsFor returns exactly n sections. Configured entries come first;
// blank names or rooms and missing entries get placeholder labels, and
// anything beyond n is dropped.
func (d LessonDefaults) SectionsFor(n int) []Section {
	if n < 0 {
		n = 0
	}
	out := make([]Section, n)
	for i := range out {
		var s Section
		if i < len(d.Sections) {
			s = d.Sections[i]
		}
		if s.ClassName == "" {
			s.ClassName = DefaultClassName(i)
		}
		if s.Classroom == "" {
			s.Classroom = DefaultClassroom(i)
		}
		out[i] = s
	}
	return out
}

// NormalizedSections is SectionsFor the clamped configured class count.
func (d LessonDefaults) NormalizedSections() []Section {
	return d.SectionsFor(ClampSections(d.ClassCount))
}

// Normalize fills missing or zero values with defaults so partially written
// program documents still generate a sensible schedule. Counts are clamped
// and the section list is padded or truncated to the class count.
func (p *Program) Normalize() {
	if p.Kind == "" {
		p.Kind = ProgramStandard
	}
	if p.Headcount < 0 {
		p.Headcount = 0
	}
	if p.Buddies < 0 {
		p.Buddies = 0
	}

	a := &p.Arrival
	if a.StartTime == "" {
		a.StartTime = DefaultArrivalStart
	}
	if a.EscortMinutes <= 0 {
		a.EscortMinutes = DefaultEscortMinutes
	}
	if a.OrientationMinutes <= 0 {
		a.OrientationMinutes = DefaultOrientationMinutes
	}
	if a.TourMinutes <= 0 {
		a.TourMinutes = DefaultTourMinutes
	}

	l := &p.Lessons
	if l.StartTime == "" {
		l.StartTime = DefaultLessonStart
	}
	if l.BlockMinutes <= 0 {
		l.BlockMinutes = DefaultBlockMinutes
	}
	if l.BreakMinutes < 0 {
		l.BreakMinutes = DefaultBreakMinutes
	}
	l.BlockCount = ClampBlocks(l.BlockCount)
	l.ClassCount = ClampSections(l.ClassCount)
	l.Sections = l.NormalizedSections()

	c := &p.Ceremony
	if c.StartTime == "" {
		c.StartTime = DefaultCeremonyStart
	}
	if c.Minutes <= 0 {
		c.Minutes = DefaultCeremonyMinutes
	}

	if p.Overrides == nil {
		p.Overrides = map[string]LessonOverride{}
	}
}

// Touch stamps the last-modified time.
func (p *Program) Touch(now time.Time) {
	p.UpdatedAt = now.UTC()
}

// IntPtr is a convenience for building overrides.
func IntPtr(n int) *int { return &n }
