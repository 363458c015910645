package schedule

import (
	"reflect"
	"testing"

	"rsjpcal/internal/model"
)

func manual(id, date, start, end string, c model.Category, title string) model.Event {
	return model.Event{
		ID: id, ProgramID: "P1", Date: date, StartTime: start, EndTime: end,
		Category: c, Title: title, Origin: model.OriginManual, Kind: model.KindManual,
	}
}

func ids(events []model.Event) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.ID)
	}
	return out
}

func TestNormalizeCollapsesExactDuplicates(t *testing.T) {
	a := manual("a", "2024-06-04", "15:00", "16:00", model.CategoryCompany, "Factory visit")
	b := a
	b.ID = "b"
	c := a
	c.ID = "c"
	c.Notes = "bring helmets"

	got := Normalize([]model.Event{a, b, c}, "P1")
	if want := []string{"a", "c"}; !reflect.DeepEqual(ids(got), want) {
		t.Errorf("ids = %v, want %v", ids(got), want)
	}
}

func TestNormalizeOneCulturalPerDay(t *testing.T) {
	events := []model.Event{
		manual("k2", "2024-06-05", "14:00", "16:00", model.CategoryCultural, "Tea ceremony"),
		manual("k1", "2024-06-05", "10:00", "12:00", model.CategoryCultural, "Calligraphy"),
		manual("k3", "2024-06-06", "10:00", "12:00", model.CategoryCultural, "Kimono"),
		manual("l1", "2024-06-05", "09:00", "09:50", model.CategoryLesson, "Lesson"),
	}

	kept, dropped := NormalizeReport(events, "P1")
	if want := []string{"k1", "k3", "l1"}; !reflect.DeepEqual(ids(kept), want) {
		t.Errorf("kept = %v, want %v", ids(kept), want)
	}
	if len(dropped) != 1 || dropped[0].Event.ID != "k2" || dropped[0].Reason != DropCulturalConflict || dropped[0].KeptID != "k1" {
		t.Errorf("dropped = %+v", dropped)
	}
}

func TestNormalizeCulturalTieBreaksOnID(t *testing.T) {
	events := []model.Event{
		manual("zz", "2024-06-05", "10:00", "11:00", model.CategoryCultural, "Taiko"),
		manual("aa", "2024-06-05", "10:00", "12:00", model.CategoryCultural, "Origami"),
	}
	got := Normalize(events, "P1")
	if len(got) != 1 || got[0].ID != "aa" {
		t.Errorf("got %v, want aa", ids(got))
	}
}

func TestNormalizeCulturalComparesClockTime(t *testing.T) {
	tests := []struct {
		name   string
		events []model.Event
		want   string
	}{
		{
			name: "single digit hour is earlier",
			events: []model.Event{
				manual("a", "2024-06-05", "10:00", "11:00", model.CategoryCultural, "Taiko"),
				manual("b", "2024-06-05", "9:30", "10:30", model.CategoryCultural, "Origami"),
			},
			want: "b",
		},
		{
			name: "padded and unpadded forms tie",
			events: []model.Event{
				manual("b", "2024-06-05", "09:30", "10:30", model.CategoryCultural, "Taiko"),
				manual("a", "2024-06-05", "9:30", "10:30", model.CategoryCultural, "Origami"),
			},
			want: "a",
		},
		{
			name: "unreadable start sorts last",
			events: []model.Event{
				manual("a", "2024-06-05", "soon", "", model.CategoryCultural, "Taiko"),
				manual("b", "2024-06-05", "16:00", "17:00", model.CategoryCultural, "Origami"),
			},
			want: "b",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.events, "P1")
			if len(got) != 1 || got[0].ID != tt.want {
				t.Errorf("kept %v, want %s", ids(got), tt.want)
			}
		})
	}
}

func TestNormalizeScopedToProgram(t *testing.T) {
	a := manual("a", "2024-06-04", "15:00", "16:00", model.CategoryCultural, "Tea")
	b := a
	b.ID = "b"
	other1 := a
	other1.ID, other1.ProgramID = "o1", "P2"
	other2 := other1
	other2.ID = "o2"

	got := Normalize([]model.Event{other1, a, b, other2}, "P1")
	if want := []string{"o1", "a", "o2"}; !reflect.DeepEqual(ids(got), want) {
		t.Errorf("ids = %v, want %v", ids(got), want)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	events := testGenerator("g").Generate(weekProgram())
	events = append(events, events[0], events[5])
	events[len(events)-1].ID = "dup-1"
	events[len(events)-2].ID = "dup-2"
	events = append(events,
		manual("c1", "2024-06-05", "14:00", "16:00", model.CategoryCultural, "Tea"),
		manual("c2", "2024-06-05", "13:00", "14:00", model.CategoryCultural, "Ikebana"),
		manual("c3", "2024-06-05", "13:00", "14:00", model.CategoryCultural, "Ikebana"),
	)

	once := Normalize(events, "P1")
	twice := Normalize(once, "P1")
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("normalize is not idempotent:\n%v\n%v", ids(once), ids(twice))
	}
	if len(once) != len(events)-4 {
		t.Errorf("kept %d of %d, want 4 dropped", len(once), len(events))
	}
}
