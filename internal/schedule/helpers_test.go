package schedule

import (
	"fmt"

	"rsjpcal/internal/model"
)

// seqIDs returns a deterministic id source: prefix-0001, prefix-0002, ...
func seqIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%04d", prefix, n)
	}
}

func testGenerator(prefix string) *Generator {
	return &Generator{NewID: seqIDs(prefix)}
}

// weekProgram is the Monday-Friday program used across these tests.
func weekProgram() model.Program {
	return model.Program{
		ID:        "P1",
		Name:      "Summer Program",
		Kind:      model.ProgramStandard,
		StartDate: "2024-06-03",
		EndDate:   "2024-06-07",
		Headcount: 20,
		Buddies:   4,
		Lessons: model.LessonDefaults{
			Enabled:      true,
			StartTime:    "09:00",
			BlockMinutes: 50,
			BreakMinutes: 10,
			BlockCount:   3,
			ClassCount:   1,
		},
		Ceremony: model.CeremonyDefaults{StartTime: "13:10", Minutes: 60, Location: "Hall"},
	}
}

func byDate(events []model.Event) map[string][]model.Event {
	out := make(map[string][]model.Event)
	for _, e := range events {
		out[e.Date] = append(out[e.Date], e)
	}
	return out
}

func countCategory(events []model.Event, c model.Category) int {
	n := 0
	for _, e := range events {
		if e.Category == c {
			n++
		}
	}
	return n
}
