package planner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"rsjpcal/internal/ics"
	"rsjpcal/internal/model"
	"rsjpcal/internal/schedule"
	"rsjpcal/internal/store"
	"rsjpcal/internal/vocab"
)

var fixedNow = time.Date(2024, 5, 20, 8, 30, 0, 0, time.UTC)

func seqIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%04d", prefix, n)
	}
}

type fakeImporter struct {
	events []model.Event
	err    error
	calls  int
}

func (f *fakeImporter) Import(_ context.Context, sub ics.Subscription, p model.Program) ([]model.Event, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([]model.Event, len(f.events))
	for i, e := range f.events {
		e.ProgramID, e.Source, e.Kind, e.Origin = p.ID, sub.ID, model.KindImport, model.OriginManual
		out[i] = e
	}
	return out, nil
}

func setupService(t *testing.T, importer Importer) *Service {
	t.Helper()
	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	return New(st, Options{
		Generator: &schedule.Generator{NewID: seqIDs("gen")},
		Importer:  importer,
		Now:       func() time.Time { return fixedNow },
		NewID:     seqIDs("man"),
	})
}

func weekProgram() model.Program {
	return model.Program{
		ID:        "P1",
		Name:      "Summer Program",
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

func applied(t *testing.T, s *Service) model.Program {
	t.Helper()
	p, err := s.ApplyProgram(context.Background(), weekProgram())
	if err != nil {
		t.Fatalf("ApplyProgram failed: %v", err)
	}
	return p
}

func manual(date, start, end string, c model.Category, title string) model.Event {
	return model.Event{Date: date, StartTime: start, EndTime: end, Category: c, Title: title}
}

func TestApplyProgram(t *testing.T) {
	s := setupService(t, nil)
	ctx := context.Background()

	p := applied(t, s)
	if !p.UpdatedAt.Equal(fixedNow) || p.Kind != model.ProgramStandard || len(p.Lessons.Sections) != 1 {
		t.Errorf("program not normalized and stamped: %+v", p)
	}
	got, err := s.Program(ctx, "P1")
	if err != nil || got.Name != "Summer Program" {
		t.Errorf("stored program = %+v, %v", got, err)
	}

	if _, err := s.ApplyProgram(ctx, model.Program{}); !errors.Is(err, ErrInvalid) {
		t.Errorf("empty id err = %v", err)
	}
	bad := weekProgram()
	bad.Overrides = map[string]model.LessonOverride{"June 5": {}}
	if _, err := s.ApplyProgram(ctx, bad); !errors.Is(err, ErrInvalid) {
		t.Errorf("bad override date err = %v", err)
	}
	if _, err := s.Program(ctx, "nope"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("missing program err = %v", err)
	}
}

func TestRegenerateKeepsManualEvents(t *testing.T) {
	s := setupService(t, nil)
	ctx := context.Background()
	applied(t, s)

	res, err := s.Regenerate(ctx, "P1")
	if err != nil {
		t.Fatalf("Regenerate failed: %v", err)
	}
	if len(res.Events) != 16 {
		t.Fatalf("generated %d events, want 16", len(res.Events))
	}

	added, _, err := s.AddEvent(ctx, "P1", manual("2024-06-04", "13:00", "17:00", model.CategoryCompany, "Factory tour"))
	if err != nil {
		t.Fatalf("AddEvent failed: %v", err)
	}
	if added.ID != "man-0001" || added.Origin != model.OriginManual || added.Kind != model.KindManual {
		t.Errorf("added = %+v", added)
	}

	res, err = s.Regenerate(ctx, "P1")
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Events) != 17 {
		t.Errorf("events after regenerate = %d, want 17", len(res.Events))
	}
	var found bool
	for _, e := range res.Events {
		if e.ID == added.ID {
			found = e.Title == "Factory tour"
		}
	}
	if !found {
		t.Errorf("manual event lost or altered by regeneration")
	}
}

func TestAddEventReportsCulturalConflict(t *testing.T) {
	s := setupService(t, nil)
	ctx := context.Background()
	applied(t, s)

	first, _, err := s.AddEvent(ctx, "P1", manual("2024-06-05", "14:00", "16:00", model.CategoryCultural, "Tea"))
	if err != nil {
		t.Fatal(err)
	}
	second, res, err := s.AddEvent(ctx, "P1", manual("2024-06-05", "9:30", "11:00", model.CategoryCultural, "Kimono"))
	if err != nil {
		t.Fatal(err)
	}
	if second.StartTime != "09:30" {
		t.Errorf("time not canonicalized: %q", second.StartTime)
	}
	if len(res.Dropped) != 1 || res.Dropped[0].Event.ID != first.ID || res.Dropped[0].Reason != schedule.DropCulturalConflict || res.Dropped[0].KeptID != second.ID {
		t.Errorf("dropped = %+v", res.Dropped)
	}

	events, err := s.Events(ctx, "P1")
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 || events[0].Title != "Kimono" {
		t.Errorf("events = %+v", events)
	}
}

func TestAddEventRejectsBadInput(t *testing.T) {
	s := setupService(t, nil)
	ctx := context.Background()
	applied(t, s)

	if _, _, err := s.AddEvent(ctx, "P1", manual("2024/06/05", "09:00", "10:00", model.CategoryOther, "x")); !errors.Is(err, ErrInvalid) {
		t.Errorf("bad date err = %v", err)
	}
	if _, _, err := s.AddEvent(ctx, "P1", manual("2024-06-05", "09:00", "10:00", "party", "x")); !errors.Is(err, ErrInvalid) {
		t.Errorf("bad category err = %v", err)
	}
	if _, _, err := s.AddEvent(ctx, "P9", manual("2024-06-05", "09:00", "10:00", model.CategoryOther, "x")); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("unknown program err = %v", err)
	}
}

func TestUpdateAndDeleteEvent(t *testing.T) {
	s := setupService(t, nil)
	ctx := context.Background()
	applied(t, s)
	res, err := s.Regenerate(ctx, "P1")
	if err != nil {
		t.Fatal(err)
	}
	generatedID := res.Events[0].ID

	e, _, err := s.AddEvent(ctx, "P1", model.Event{
		Date: "2024-06-06", StartTime: "10:00", EndTime: "12:00", Category: model.CategoryCompany,
		Title: "Visit", Transport: model.TransportWalk, Bus: model.BusDetails{Company: "ignored"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if e.Bus.Company != "" {
		t.Errorf("bus details kept on a non-bus event")
	}

	e.Title = "Visit (updated)"
	e.Kind = model.KindAuto
	e.Origin = model.OriginGenerated
	if _, err := s.UpdateEvent(ctx, "P1", e); err != nil {
		t.Fatalf("UpdateEvent failed: %v", err)
	}
	events, _ := s.Events(ctx, "P1")
	for _, got := range events {
		if got.ID == e.ID && (got.Title != "Visit (updated)" || got.Origin != model.OriginManual || got.Kind != model.KindManual) {
			t.Errorf("updated event = %+v", got)
		}
	}

	gen := model.Event{ID: generatedID, Date: "2024-06-03"}
	if _, err := s.UpdateEvent(ctx, "P1", gen); !errors.Is(err, ErrGeneratedEvent) {
		t.Errorf("update generated err = %v", err)
	}
	if err := s.DeleteEvent(ctx, "P1", generatedID); !errors.Is(err, ErrGeneratedEvent) {
		t.Errorf("delete generated err = %v", err)
	}
	if err := s.DeleteEvent(ctx, "P1", "missing"); !errors.Is(err, ErrEventNotFound) {
		t.Errorf("delete missing err = %v", err)
	}

	if err := s.DeleteEvent(ctx, "P1", e.ID); err != nil {
		t.Fatalf("DeleteEvent failed: %v", err)
	}
	events, _ = s.Events(ctx, "P1")
	if len(events) != 16 {
		t.Errorf("events after delete = %d, want 16", len(events))
	}
}

func TestOverrides(t *testing.T) {
	s := setupService(t, nil)
	ctx := context.Background()
	applied(t, s)

	later := fixedNow.Add(time.Hour)
	s.now = func() time.Time { return later }

	p, err := s.SetOverride(ctx, "P1", "2024-06-05", model.LessonOverride{Enabled: true, BlockCount: model.IntPtr(1), Classrooms: []string{"B201"}})
	if err != nil {
		t.Fatalf("SetOverride failed: %v", err)
	}
	if !p.UpdatedAt.Equal(later) {
		t.Errorf("override did not stamp the program")
	}
	if _, err := s.SetOverride(ctx, "P1", "tomorrow", model.LessonOverride{}); !errors.Is(err, ErrInvalid) {
		t.Errorf("bad date err = %v", err)
	}

	res, err := s.Regenerate(ctx, "P1")
	if err != nil {
		t.Fatal(err)
	}
	var lessons []model.Event
	for _, e := range res.Events {
		if e.Date == "2024-06-05" && e.Category == model.CategoryLesson {
			lessons = append(lessons, e)
		}
	}
	if len(lessons) != 1 || lessons[0].Location != "B201" {
		t.Errorf("override lessons = %+v", lessons)
	}

	if _, err := s.DeleteOverride(ctx, "P1", "2024-06-05"); err != nil {
		t.Fatalf("DeleteOverride failed: %v", err)
	}
	if _, err := s.DeleteOverride(ctx, "P1", "2024-06-05"); !errors.Is(err, ErrOverrideNotFound) {
		t.Errorf("second delete err = %v", err)
	}
}

func TestImport(t *testing.T) {
	imp := &fakeImporter{events: []model.Event{
		{ID: "imp-1", Date: "2024-06-04", StartTime: "18:00", EndTime: "20:00", Category: model.CategoryOther, Title: "Fireworks"},
		{ID: "imp-2", Date: "2024-06-06", StartTime: "00:00", EndTime: "23:59", Category: model.CategoryOther, Title: "Festival"},
	}}
	s := setupService(t, imp)
	ctx := context.Background()
	applied(t, s)
	sub := ics.Subscription{ID: "city", ProgramID: "P1"}

	if _, err := s.Import(ctx, sub); err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	imp.events = imp.events[:1]
	if _, err := s.Import(ctx, sub); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Regenerate(ctx, "P1"); err != nil {
		t.Fatal(err)
	}

	events, _ := s.Events(ctx, "P1")
	var imported []string
	for _, e := range events {
		if e.Kind == model.KindImport {
			imported = append(imported, e.ID)
		}
	}
	if strings.Join(imported, ",") != "imp-1" {
		t.Errorf("imported after re-import and regenerate = %v", imported)
	}

	if _, err := setupService(t, nil).Import(ctx, sub); err == nil {
		t.Errorf("import without importer should fail")
	}
}

func TestRefreshContinuesPastFailures(t *testing.T) {
	imp := &fakeImporter{err: errors.New("feed down")}
	s := setupService(t, imp)
	ctx := context.Background()
	applied(t, s)

	err := s.Refresh(ctx, []ics.Subscription{{ID: "a", ProgramID: "P1"}, {ID: "b", ProgramID: "P1"}})
	if err == nil || !strings.Contains(err.Error(), "feed down") {
		t.Errorf("Refresh err = %v", err)
	}
	if imp.calls != 2 {
		t.Errorf("importer calls = %d", imp.calls)
	}
	events, _ := s.Events(ctx, "P1")
	if len(events) != 16 {
		t.Errorf("programs not regenerated after failed imports: %d events", len(events))
	}
}

func TestExports(t *testing.T) {
	s := setupService(t, nil)
	ctx := context.Background()
	applied(t, s)
	if _, err := s.Regenerate(ctx, "P1"); err != nil {
		t.Fatal(err)
	}

	var csv, feed, grid bytes.Buffer
	if err := s.ExportCSV(ctx, "P1", &csv); err != nil {
		t.Fatalf("ExportCSV failed: %v", err)
	}
	if !strings.HasPrefix(csv.String(), "\ufeffProgram,") {
		t.Errorf("csv header = %q", csv.String()[:20])
	}
	if err := s.ExportFeed(ctx, "P1", "", &feed); err != nil {
		t.Fatalf("ExportFeed failed: %v", err)
	}
	if strings.Count(feed.String(), "BEGIN:VEVENT") != 16 {
		t.Errorf("feed entries = %d", strings.Count(feed.String(), "BEGIN:VEVENT"))
	}
	if err := s.ExportGrid(ctx, "P1", vocab.Secondary, &grid); err != nil {
		t.Fatalf("ExportGrid failed: %v", err)
	}
	if !strings.Contains(grid.String(), `lang="ja"`) {
		t.Errorf("grid language not applied")
	}
	if err := s.ExportCSV(ctx, "P9", &csv); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("export of missing program err = %v", err)
	}
}
