// Package schedule derives the automatic events of a program and reconciles
// them with stored events. Everything here is a pure function of its input.
package schedule

import (
	"fmt"

	"github.com/google/uuid"

	"rsjpcal/internal/civil"
	"rsjpcal/internal/model"
)

// Titles of generated events. The export vocabulary translates them.
const (
	TitleEscort           = "Arrival Escort"
	TitleOrientation      = "Orientation"
	TitleCampusTour       = "Campus Tour"
	TitleCeremony         = "Closing Ceremony"
	TitleLessonFmt        = "Japanese Lesson %d (%s)"
	TeacherRoomNotePrefix = "Teacher room: "
)

// Generator produces automatic events. NewID supplies event ids; the zero
// Generator uses random UUIDs.
type Generator struct {
	NewID func() string
}

// NewGenerator returns a Generator with random UUID ids.
func NewGenerator() *Generator {
	return &Generator{NewID: uuid.NewString}
}

// Generate is NewGenerator().Generate(p).
func Generate(p model.Program) []model.Event {
	return NewGenerator().Generate(p)
}

// Generate returns every automatic event for p, in day order:
//
//   - first day: arrival escort, orientation, campus tour
//   - each lesson day: one event per (block, section), block-major
//   - last day: closing ceremony
//
// An empty or malformed date range yields an empty slice.
func (g *Generator) Generate(p model.Program) []model.Event {
	days := civil.ExpandRange(p.StartDate, p.EndDate)
	out := make([]model.Event, 0)
	if len(days) == 0 {
		return out
	}

	first, last := days[0], days[len(days)-1]
	for _, date := range days {
		if date == first {
			out = append(out, g.arrival(p, date)...)
		}
		if lessonsApply(p, date) {
			out = append(out, g.lessons(p, date)...)
		}
		if date == last {
			out = append(out, g.ceremony(p, date))
		}
	}
	return out
}

func (g *Generator) newID() string {
	if g == nil || g.NewID == nil {
		return uuid.NewString()
	}
	return g.NewID()
}

// base returns an event stamped with the generated provenance.
func (g *Generator) base(p model.Program, date string, start, minutes int) model.Event {
	return model.Event{
		ID:        g.newID(),
		ProgramID: p.ID,
		Date:      date,
		StartTime: civil.FormatTime(start),
		EndTime:   civil.FormatTime(start + minutes),
		Transport: model.TransportNone,
		Origin:    model.OriginGenerated,
		Kind:      model.KindAuto,
	}
}

func (g *Generator) arrival(p model.Program, date string) []model.Event {
	a := p.Arrival
	escortLen := resolveDuration(1, model.DefaultEscortMinutes, &a.EscortMinutes)
	orientLen := resolveDuration(1, model.DefaultOrientationMinutes, &a.OrientationMinutes)
	tourLen := resolveDuration(1, model.DefaultTourMinutes, &a.TourMinutes)

	start := resolveTime(a.StartTime, model.DefaultArrivalStart)

	escort := g.base(p, date, start, escortLen)
	escort.Category = model.CategoryEscort
	escort.Title = TitleEscort
	escort.Location = a.EscortLocation
	escort.Headcount = p.Headcount
	escort.Buddies = p.Buddies
	escort.StaffNeeded = true
	escort.StaffCount = 1
	escort.Transport = model.TransportWalk
	start += escortLen

	orientation := g.base(p, date, start, orientLen)
	orientation.Category = model.CategoryOrientation
	orientation.Title = TitleOrientation
	orientation.Location = a.OrientationLocation
	orientation.RoomNeeded = true
	orientation.Headcount = p.Headcount
	start += orientLen

	tour := g.base(p, date, start, tourLen)
	tour.Category = model.CategoryCampusTour
	tour.Title = TitleCampusTour
	tour.Location = a.TourLocation
	tour.Headcount = p.Headcount
	tour.Buddies = p.Buddies
	tour.Transport = model.TransportOnCampus

	return []model.Event{escort, orientation, tour}
}

func (g *Generator) lessons(p model.Program, date string) []model.Event {
	day := resolveLessonDay(p, date)
	heads := splitHeadcount(p.Headcount, len(day.sections))

	out := make([]model.Event, 0, day.blocks*len(day.sections))
	start := day.start
	for b := 1; b <= day.blocks; b++ {
		for s, sec := range day.sections {
			ev := g.base(p, date, start, day.blockMinutes)
			ev.Category = model.CategoryLesson
			ev.Title = fmt.Sprintf(TitleLessonFmt, b, sec.ClassName)
			ev.Location = sec.Classroom
			ev.RoomNeeded = true
			ev.Headcount = heads[s]
			ev.Transport = model.TransportOnCampus
			ev.Section = s + 1
			ev.Block = b
			if sec.TeacherRoom != "" {
				ev.Notes = TeacherRoomNotePrefix + sec.TeacherRoom
			}
			out = append(out, ev)
		}
		start += day.blockMinutes + day.breakMinutes
	}
	return out
}

func (g *Generator) ceremony(p model.Program, date string) model.Event {
	c := p.Ceremony
	minutes := resolveDuration(1, model.DefaultCeremonyMinutes, &c.Minutes)

	ev := g.base(p, date, resolveTime(c.StartTime, model.DefaultCeremonyStart), minutes)
	ev.Category = model.CategoryCeremony
	ev.Title = TitleCeremony
	ev.Location = c.Location
	ev.RoomNeeded = true
	ev.ArrangementNeeded = true
	ev.Headcount = p.Headcount
	ev.Buddies = p.Buddies
	return ev
}
