package ics

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "rsjpcal/internal/log"
)

// Entry is one VEVENT read from a subscribed feed. Recurrences are kept
// unexpanded; see ExpandOccurrences.
type Entry struct {
	SourceID string

	UID      string
	Sequence int

	Summary     string
	Description string
	Location    string

	Start  time.Time
	End    time.Time
	AllDay bool
	TZID   string

	RRule        string
	ExDates      []time.Time
	RecurrenceID *time.Time
}

// IsOverride reports whether e replaces a single instance of a recurring
// entry with the same UID.
func (e Entry) IsOverride() bool {
	return e.RecurrenceID != nil
}

// ParseICS reads every VEVENT of body.
//
// Times with a TZID that the host cannot resolve, and floating times, are
// read in loc. A nil loc means UTC. Broken VEVENTs are logged and skipped.
func ParseICS(sourceID string, body []byte, loc *time.Location) ([]Entry, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, errors.New("ics: empty body")
	}
	if loc == nil {
		loc = time.UTC
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		appLog.Error("ics parse failed", err, "source", sourceID)
		return nil, fmt.Errorf("ics: parse %s: %w", sourceID, err)
	}

	entries := make([]Entry, 0)
	for _, ve := range cal.Events() {
		e, perr := parseVEvent(ve, loc)
		if perr != nil {
			appLog.Error("ics vevent skipped", perr, "source", sourceID)
			continue
		}
		e.SourceID = sourceID
		entries = append(entries, e)
	}

	appLog.Debug("ics parse completed", "source", sourceID, "entries", len(entries))
	return entries, nil
}

func parseVEvent(ve *ical.VEvent, loc *time.Location) (Entry, error) {
	var e Entry

	uid := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uid == nil || strings.TrimSpace(uid.Value) == "" {
		return e, errors.New("missing UID")
	}
	e.UID = uid.Value

	if p := ve.GetProperty(ical.ComponentPropertySequence); p != nil {
		if n, err := strconv.Atoi(strings.TrimSpace(p.Value)); err == nil {
			e.Sequence = n
		}
	}
	e.Summary = textValue(ve, ical.ComponentPropertySummary)
	e.Description = textValue(ve, ical.ComponentPropertyDescription)
	e.Location = textValue(ve, ical.ComponentPropertyLocation)

	start := ve.GetProperty(ical.ComponentPropertyDtStart)
	if start == nil {
		return e, errors.New("missing DTSTART")
	}
	t, allDay, err := propertyTime(start, loc)
	if err != nil {
		return e, fmt.Errorf("DTSTART: %w", err)
	}
	e.Start, e.AllDay, e.TZID = t, allDay, param(start, ical.ParameterTzid)

	switch end := ve.GetProperty(ical.ComponentPropertyDtEnd); {
	case end != nil:
		if t, _, err := propertyTime(end, loc); err == nil {
			e.End = t
		}
	case e.AllDay:
		e.End = e.Start.AddDate(0, 0, 1)
	}
	if e.End.Before(e.Start) {
		e.End = e.Start
	}

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		e.RRule = p.Value
	}

	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		zone := zoneFor(param(p, ical.ParameterTzid), loc)
		for _, part := range strings.Split(p.Value, ",") {
			if t, _, err := parseStamp(strings.TrimSpace(part), zone); err == nil {
				e.ExDates = append(e.ExDates, t)
			}
		}
	}

	if p := ve.GetProperty(ical.ComponentProperty("RECURRENCE-ID")); p != nil {
		if t, _, err := propertyTime(p, loc); err == nil {
			e.RecurrenceID = &t
		}
	}
	return e, nil
}

func textValue(ve *ical.VEvent, prop ical.ComponentProperty) string {
	p := ve.GetProperty(prop)
	if p == nil {
		return ""
	}
	return fromText(p.Value)
}

// fromText undoes RFC 5545 TEXT escaping.
func fromText(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 == len(s) {
			b.WriteByte(s[i])
			continue
		}
		i++
		switch s[i] {
		case 'n', 'N':
			b.WriteByte('\n')
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

func param(p *ical.IANAProperty, name ical.Parameter) string {
	if vs := p.ICalParameters[string(name)]; len(vs) > 0 {
		return vs[0]
	}
	return ""
}

func propertyTime(p *ical.IANAProperty, loc *time.Location) (time.Time, bool, error) {
	t, allDay, err := parseStamp(strings.TrimSpace(p.Value), zoneFor(param(p, ical.ParameterTzid), loc))
	if strings.EqualFold(param(p, ical.ParameterValue), "DATE") {
		allDay = true
	}
	return t, allDay, err
}

// zoneFor resolves a TZID, falling back to loc.
func zoneFor(tzid string, loc *time.Location) *time.Location {
	if tzid == "" {
		return loc
	}
	if z, err := time.LoadLocation(tzid); err == nil {
		return z
	}
	return loc
}

// parseStamp reads DATE, local DATE-TIME and UTC DATE-TIME values.
func parseStamp(v string, loc *time.Location) (time.Time, bool, error) {
	switch {
	case v == "":
		return time.Time{}, false, errors.New("empty time value")
	case strings.HasSuffix(v, "Z"):
		t, err := time.Parse("20060102T150405Z", v)
		return t, false, err
	case strings.Contains(v, "T"):
		t, err := time.ParseInLocation("20060102T150405", v, loc)
		return t, false, err
	default:
		t, err := time.ParseInLocation("20060102", v, loc)
		return t, true, err
	}
}
