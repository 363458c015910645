// Package export renders a program's events as a spreadsheet-ready table and
// as a printable month grid. The calendar feed lives in internal/ics.
package export

import (
	"bytes"
	"encoding/csv"
	"io"
	"strconv"

	"rsjpcal/internal/civil"
	"rsjpcal/internal/model"
	"rsjpcal/internal/vocab"
)

// bom lets spreadsheet tools in CJK locales detect UTF-8.
const bom = "\ufeff"

// TabularHeader is the fixed header row of the tabular export.
var TabularHeader = []string{
	"Program", "Program Kind", "Date", "Day", "Start", "End",
	"Category", "Title", "Location", "Room Needed", "Headcount", "Buddies",
	"Staff Needed", "Staff Count", "Transport",
	"Bus Company", "Bus Vehicles", "Bus Trip", "Bus Stops",
	"Arrangement Needed", "Notes", "Section", "Block", "Kind", "ID",
}

// WriteTabular writes the program's events as UTF-8 CSV with a BOM and CRLF
// line endings, one row per event in canonical order. Events of other
// programs are ignored.
func WriteTabular(w io.Writer, p model.Program, events []model.Event) error {
	if _, err := io.WriteString(w, bom); err != nil {
		return err
	}

	rw := newRowWriter(w)
	if err := rw.Write(TabularHeader); err != nil {
		return err
	}
	for _, e := range model.SortEvents(model.ForProgram(events, p.ID)) {
		if err := rw.Write(tabularRow(p, e)); err != nil {
			return err
		}
	}
	return nil
}

// rowWriter terminates records with CRLF and writes newlines inside quoted
// fields unchanged.
type rowWriter struct {
	w    io.Writer
	line bytes.Buffer
	cw   *csv.Writer
}

func newRowWriter(w io.Writer) *rowWriter {
	rw := &rowWriter{w: w}
	rw.cw = csv.NewWriter(&rw.line)
	return rw
}

func (rw *rowWriter) Write(record []string) error {
	rw.line.Reset()
	if err := rw.cw.Write(record); err != nil {
		return err
	}
	rw.cw.Flush()
	if err := rw.cw.Error(); err != nil {
		return err
	}
	row := bytes.TrimSuffix(rw.line.Bytes(), []byte("\n"))
	if _, err := rw.w.Write(row); err != nil {
		return err
	}
	_, err := io.WriteString(rw.w, "\r\n")
	return err
}

func tabularRow(p model.Program, e model.Event) []string {
	day := ""
	if wd, ok := civil.Weekday(e.Date); ok {
		day = vocab.WeekdayName(vocab.Primary, wd)
	}

	var company, vehicles, trip, stops string
	if e.IsBus() {
		company = e.Bus.Company
		vehicles = strconv.Itoa(e.Bus.Vehicles)
		trip = string(e.Bus.Trip)
		stops = e.Bus.Stops
	}

	return []string{
		p.Name,
		string(p.Kind),
		e.Date,
		day,
		e.StartTime,
		e.EndTime,
		string(e.Category),
		e.Title,
		e.Location,
		yesNo(e.RoomNeeded),
		strconv.Itoa(e.Headcount),
		strconv.Itoa(e.Buddies),
		yesNo(e.StaffNeeded),
		strconv.Itoa(e.StaffCount),
		string(e.Transport),
		company,
		vehicles,
		trip,
		stops,
		yesNo(e.ArrangementNeeded),
		e.Notes,
		optionalInt(e.Section),
		optionalInt(e.Block),
		e.Kind,
		e.ID,
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func optionalInt(n int) string {
	if n <= 0 {
		return ""
	}
	return strconv.Itoa(n)
}
