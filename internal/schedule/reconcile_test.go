package schedule

import (
	"testing"

	"rsjpcal/internal/model"
)

func TestRegenerateKeepsManualAndOtherPrograms(t *testing.T) {
	p := weekProgram()
	stored := testGenerator("old").Generate(p)

	visit := manual("m1", "2024-06-05", "14:00", "17:00", model.CategoryCompany, "Factory visit")
	visit.Transport = model.TransportBus
	visit.Bus = model.BusDetails{Company: "Keihan", Vehicles: 1, Trip: model.TripRoundTrip}
	stored = append(stored, visit)

	foreign := testGenerator("other").Generate(model.Program{
		ID: "P2", StartDate: "2024-06-03", EndDate: "2024-06-03",
	})
	stored = append(foreign, stored...)

	got := testGenerator("new").Regenerate(stored, p)

	var sawVisit bool
	var fresh, foreignCount int
	for _, e := range got {
		switch {
		case e.ID == "m1":
			sawVisit = true
			if e != visit {
				t.Errorf("manual event altered: %+v", e)
			}
		case e.ProgramID == "P2":
			foreignCount++
		case e.ProgramID == "P1":
			if len(e.ID) < 4 || e.ID[:4] != "new-" {
				t.Errorf("stale generated event survived: %s", e.ID)
			}
			fresh++
		}
	}
	if !sawVisit {
		t.Errorf("manual event removed")
	}
	if foreignCount != len(foreign) {
		t.Errorf("other program events: %d, want %d", foreignCount, len(foreign))
	}
	if want := len(testGenerator("n").Generate(p)); fresh != want {
		t.Errorf("fresh generated: %d, want %d", fresh, want)
	}
}

func TestRegenerateStableExceptIDs(t *testing.T) {
	p := weekProgram()
	first := testGenerator("a").Regenerate(nil, p)
	second := testGenerator("b").Regenerate(first, p)

	if len(first) != len(second) {
		t.Fatalf("lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		x, y := first[i], second[i]
		x.ID, y.ID = "", ""
		if x != y {
			t.Errorf("event %d differs beyond id:\n%+v\n%+v", i, x, y)
		}
	}
}

func TestRegenerateKeepsManualDuplicateOverGenerated(t *testing.T) {
	p := weekProgram()
	gen := testGenerator("g").Generate(p)

	copyOfTour := gen[2]
	copyOfTour.ID = "m-tour"
	copyOfTour.Origin = model.OriginManual
	copyOfTour.Kind = model.KindManual

	got, dropped := testGenerator("n").RegenerateReport([]model.Event{copyOfTour}, p)
	if countID(got, "m-tour") != 1 {
		t.Fatalf("manual copy must survive regeneration")
	}
	if len(dropped) != 1 || dropped[0].Reason != DropDuplicate || dropped[0].KeptID != "m-tour" {
		t.Errorf("dropped = %+v", dropped)
	}
	if len(got) != len(gen) {
		t.Errorf("len = %d, want %d", len(got), len(gen))
	}
}

func TestRegenerateEmptyRangeRemovesAuto(t *testing.T) {
	p := weekProgram()
	stored := testGenerator("g").Generate(p)
	stored = append(stored, manual("m1", "2024-06-05", "14:00", "17:00", model.CategoryOther, "Free"))

	p.EndDate = "2024-06-01"
	got := Regenerate(stored, p)
	if len(got) != 1 || got[0].ID != "m1" {
		t.Errorf("got %v", ids(got))
	}
}

func countID(events []model.Event, id string) int {
	n := 0
	for _, e := range events {
		if e.ID == id {
			n++
		}
	}
	return n
}
