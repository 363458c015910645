package schedule

import (
	"rsjpcal/internal/civil"
	"rsjpcal/internal/model"
)

// DropReason explains why Normalize discarded an event.
type DropReason string

const (
	DropDuplicate        DropReason = "duplicate"
	DropCulturalConflict DropReason = "cultural-conflict"
)

// Dropped is an event removed by NormalizeReport, with the event it lost to.
type Dropped struct {
	Event  model.Event
	Reason DropReason
	KeptID string
}

// Normalize removes duplicate bookings for programID; see NormalizeReport.
func Normalize(events []model.Event, programID string) []model.Event {
	kept, _ := NormalizeReport(events, programID)
	return kept
}

// NormalizeReport runs two stages over the events of programID, leaving
// events of other programs untouched and keeping input order:
//
//  1. Events sharing date, start, end, category, title, location and notes
//     collapse to the first one seen.
//  2. At most one cultural experience survives per date: the earliest start
//     time, ties going to the lexicographically smallest id.
//
// Running it on its own output changes nothing.
func NormalizeReport(events []model.Event, programID string) ([]model.Event, []Dropped) {
	var dropped []Dropped

	stage1 := make([]model.Event, 0, len(events))
	seen := make(map[string]string)
	for _, e := range events {
		if e.ProgramID != programID {
			stage1 = append(stage1, e)
			continue
		}
		key := e.DuplicateKey()
		if keptID, dup := seen[key]; dup {
			dropped = append(dropped, Dropped{Event: e, Reason: DropDuplicate, KeptID: keptID})
			continue
		}
		seen[key] = e.ID
		stage1 = append(stage1, e)
	}

	winners := make(map[string]model.Event)
	for _, e := range stage1 {
		if e.ProgramID != programID || e.Category != model.CategoryCultural {
			continue
		}
		if cur, ok := winners[e.Date]; !ok || culturalBefore(e, cur) {
			winners[e.Date] = e
		}
	}

	out := make([]model.Event, 0, len(stage1))
	for _, e := range stage1 {
		if e.ProgramID == programID && e.Category == model.CategoryCultural {
			if w := winners[e.Date]; w.ID != e.ID {
				dropped = append(dropped, Dropped{Event: e, Reason: DropCulturalConflict, KeptID: w.ID})
				continue
			}
		}
		out = append(out, e)
	}
	return out, dropped
}

// culturalBefore orders by start minute with unreadable times last, then by
// id.
func culturalBefore(a, b model.Event) bool {
	am, aok := civil.ParseTime(a.StartTime)
	bm, bok := civil.ParseTime(b.StartTime)
	if aok != bok {
		return aok
	}
	if aok && am != bm {
		return am < bm
	}
	return a.ID < b.ID
}
