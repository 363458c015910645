package model

import (
	"sort"
	"strings"
)

// Category classifies an event.
type Category string

const (
	CategoryLesson      Category = "lesson"
	CategoryOrientation Category = "orientation"
	CategoryEscort      Category = "escort"
	CategoryCampusTour  Category = "campus-tour"
	CategoryCultural    Category = "cultural-experience"
	CategoryCompany     Category = "company-visit"
	CategoryBuddyLunch  Category = "buddy-lunch"
	CategoryCeremony    Category = "closing-ceremony"
	CategoryOther       Category = "other"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryLesson,
	CategoryOrientation,
	CategoryEscort,
	CategoryCampusTour,
	CategoryCultural,
	CategoryCompany,
	CategoryBuddyLunch,
	CategoryCeremony,
	CategoryOther,
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	for _, k := range Categories {
		if c == k {
			return true
		}
	}
	return false
}

// Transport is how participants get to an event.
type Transport string

const (
	TransportNone     Transport = "none"
	TransportBus      Transport = "bus"
	TransportWalk     Transport = "walk"
	TransportOnCampus Transport = "on-campus"
)

// TripType applies to bus transport only.
type TripType string

const (
	TripOneWay    TripType = "one-way"
	TripRoundTrip TripType = "round-trip"
)

// BusDetails is meaningful only when Transport is TransportBus.
type BusDetails struct {
	Company  string   `json:"company,omitempty"`
	Vehicles int      `json:"vehicles,omitempty"`
	Trip     TripType `json:"trip,omitempty"`
	// Stops holds the pickup / dropoff points as free text.
	Stops string `json:"stops,omitempty"`
}

// Origin records whether the generator produced an event.
type Origin string

const (
	OriginGenerated Origin = "generated"
	OriginManual    Origin = "manual"
)

// Event kinds.
const (
	KindAuto   = "Auto"
	KindManual = "Manual"
	KindImport = "Import"
)

// Event is the atomic schedulable unit. Dates are "YYYY-MM-DD", times
// "HH:MM".
type Event struct {
	ID        string `json:"id"`
	ProgramID string `json:"program_id"`

	Date      string   `json:"date"`
	StartTime string   `json:"start_time"`
	EndTime   string   `json:"end_time"`
	Category  Category `json:"category"`
	Title     string   `json:"title"`
	Location  string   `json:"location"`

	RoomNeeded  bool `json:"room_needed"`
	Headcount   int  `json:"headcount"`
	Buddies     int  `json:"buddies"`
	StaffNeeded bool `json:"staff_needed"`
	StaffCount  int  `json:"staff_count"`

	Transport Transport  `json:"transport"`
	Bus       BusDetails `json:"bus"`

	ArrangementNeeded bool   `json:"arrangement_needed"`
	Notes             string `json:"notes"`

	// Section and Block are 1-based and set on lesson events only.
	Section int `json:"section,omitempty"`
	Block   int `json:"block,omitempty"`

	Origin Origin `json:"origin"`
	Kind   string `json:"kind"`
	// Source names the subscription an imported event came from.
	Source string `json:"source,omitempty"`
}

// IsAuto reports whether regeneration owns this event.
func (e Event) IsAuto() bool {
	return e.Origin == OriginGenerated && e.Kind == KindAuto
}

// IsBus reports whether bus sub-fields apply.
func (e Event) IsBus() bool {
	return e.Transport == TransportBus
}

// DuplicateKey is the tuple two events must share to count as the same
// booking.
func (e Event) DuplicateKey() string {
	return strings.Join([]string{
		e.Date, e.StartTime, e.EndTime, string(e.Category), e.Title, e.Location, e.Notes,
	}, "\x1f")
}

// Less orders events by date, start, end, category and title. All
// comparisons are plain byte-wise string comparisons.
func Less(a, b Event) bool {
	if a.Date != b.Date {
		return a.Date < b.Date
	}
	if a.StartTime != b.StartTime {
		return a.StartTime < b.StartTime
	}
	if a.EndTime != b.EndTime {
		return a.EndTime < b.EndTime
	}
	if a.Category != b.Category {
		return a.Category < b.Category
	}
	return a.Title < b.Title
}

// SortEvents returns a copy of events in canonical order. Ties keep their
// input order.
func SortEvents(events []Event) []Event {
	out := make([]Event, len(events))
	copy(out, events)
	sort.SliceStable(out, func(i, j int) bool { return Less(out[i], out[j]) })
	return out
}

// ForProgram returns the events owned by programID, in input order.
func ForProgram(events []Event, programID string) []Event {
	out := make([]Event, 0, len(events))
	for _, e := range events {
		if e.ProgramID == programID {
			out = append(out, e)
		}
	}
	return out
}
