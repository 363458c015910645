package export

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"rsjpcal/internal/model"
)

func testProgram() model.Program {
	return model.Program{
		ID:        "P1",
		Name:      "Summer, 2024",
		Kind:      model.ProgramStandard,
		StartDate: "2024-06-03",
		EndDate:   "2024-06-07",
		Lessons:   model.LessonDefaults{ClassCount: 2},
	}
}

func readTabular(t *testing.T, raw []byte) [][]string {
	t.Helper()
	if !bytes.HasPrefix(raw, []byte("\xef\xbb\xbf")) {
		t.Fatalf("missing UTF-8 BOM")
	}
	rows, err := csv.NewReader(bytes.NewReader(raw[3:])).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}
	return rows
}

func TestWriteTabular(t *testing.T) {
	p := testProgram()
	events := []model.Event{
		{
			ID: "e2", ProgramID: "P1", Date: "2024-06-05", StartTime: "13:00", EndTime: "17:00",
			Category: model.CategoryCompany, Title: `Visit "Kyocera"`, Location: "Kyoto, Fushimi",
			Transport: model.TransportBus, Headcount: 20,
			Bus:   model.BusDetails{Company: "Keihan", Vehicles: 2, Trip: model.TripRoundTrip, Stops: "Gate / Factory"},
			Notes: "line one\nline two", Origin: model.OriginManual, Kind: model.KindManual,
		},
		{
			ID: "e1", ProgramID: "P1", Date: "2024-06-03", StartTime: "09:00", EndTime: "09:30",
			Category: model.CategoryEscort, Title: "Arrival Escort", Transport: model.TransportWalk,
			Bus:    model.BusDetails{Company: "stale", Vehicles: 3, Trip: model.TripOneWay, Stops: "x"},
			Origin: model.OriginGenerated, Kind: model.KindAuto,
		},
		{ID: "other", ProgramID: "P2", Date: "2024-06-03", StartTime: "08:00", EndTime: "09:00"},
	}

	var buf bytes.Buffer
	if err := WriteTabular(&buf, p, events); err != nil {
		t.Fatalf("WriteTabular failed: %v", err)
	}
	raw := buf.Bytes()
	if !bytes.Contains(raw, []byte("\r\n")) {
		t.Errorf("expected CRLF line endings")
	}
	if !bytes.Contains(raw, []byte("\"line one\nline two\"")) {
		t.Errorf("embedded newline rewritten: %q", raw)
	}
	if n := bytes.Count(raw, []byte("\r\n")); n != 3 {
		t.Errorf("CRLF count = %d, want one per record", n)
	}
	if !bytes.Contains(raw, []byte(`"Visit ""Kyocera"""`)) {
		t.Errorf("quotes not doubled: %s", raw)
	}

	rows := readTabular(t, raw)
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want header + 2", len(rows))
	}
	if strings.Join(rows[0], "|") != strings.Join(TabularHeader, "|") {
		t.Errorf("header = %v", rows[0])
	}

	col := func(name string) int {
		for i, h := range TabularHeader {
			if h == name {
				return i
			}
		}
		t.Fatalf("no column %s", name)
		return -1
	}

	escort, visit := rows[1], rows[2]
	if escort[col("ID")] != "e1" || visit[col("ID")] != "e2" {
		t.Fatalf("rows not in canonical order")
	}
	if escort[col("Program")] != "Summer, 2024" || escort[col("Day")] != "Mon" {
		t.Errorf("program/day = %q %q", escort[col("Program")], escort[col("Day")])
	}
	for _, c := range []string{"Bus Company", "Bus Vehicles", "Bus Trip", "Bus Stops"} {
		if escort[col(c)] != "" {
			t.Errorf("non-bus row has %s = %q", c, escort[col(c)])
		}
	}
	if visit[col("Bus Company")] != "Keihan" || visit[col("Bus Vehicles")] != "2" || visit[col("Bus Trip")] != "round-trip" {
		t.Errorf("bus row = %v", visit)
	}
	if visit[col("Notes")] != "line one\nline two" || visit[col("Location")] != "Kyoto, Fushimi" {
		t.Errorf("escaped fields did not round trip: %q %q", visit[col("Notes")], visit[col("Location")])
	}
	if visit[col("Kind")] != "Manual" || escort[col("Kind")] != "Auto" {
		t.Errorf("kinds = %q %q", visit[col("Kind")], escort[col("Kind")])
	}
}

func TestWriteTabularDeterministic(t *testing.T) {
	p := testProgram()
	events := []model.Event{
		{ID: "a", ProgramID: "P1", Date: "2024-06-04", StartTime: "09:00", EndTime: "10:00", Title: "x"},
		{ID: "b", ProgramID: "P1", Date: "2024-06-03", StartTime: "09:00", EndTime: "10:00", Title: "y"},
	}
	var a, b bytes.Buffer
	_ = WriteTabular(&a, p, events)
	_ = WriteTabular(&b, p, events)
	if !bytes.Equal(a.Bytes(), b.Bytes()) {
		t.Errorf("output differs between runs")
	}
}
