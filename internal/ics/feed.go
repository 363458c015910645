package ics

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"rsjpcal/internal/civil"
	"rsjpcal/internal/model"
	"rsjpcal/internal/vocab"
)

const (
	DefaultTZID          = "Asia/Tokyo"
	DefaultOffsetMinutes = 9 * 60
	DefaultUIDDomain     = "rsjp-schedule"
	DefaultProductID     = "-//rsjpcal//Program Schedule//EN"
)

// FeedOptions controls calendar feed output.
type FeedOptions struct {
	Lang vocab.Lang

	// TZID names the single VTIMEZONE every entry is anchored to. When empty,
	// DefaultTZID and DefaultOffsetMinutes are used together.
	TZID string
	// OffsetMinutes is the fixed UTC offset of TZID. It never changes over
	// the year.
	OffsetMinutes int

	ProductID string
	// UIDDomain is appended to event ids to form entry UIDs.
	UIDDomain string
}

func (o FeedOptions) withDefaults() FeedOptions {
	if o.Lang == "" {
		o.Lang = vocab.Primary
	}
	if o.TZID == "" {
		o.TZID = DefaultTZID
		o.OffsetMinutes = DefaultOffsetMinutes
	}
	if o.ProductID == "" {
		o.ProductID = DefaultProductID
	}
	if o.UIDDomain == "" {
		o.UIDDomain = DefaultUIDDomain
	}
	return o
}

// WriteFeed writes the program's events as an iCalendar document.
func WriteFeed(w io.Writer, p model.Program, events []model.Event, opts FeedOptions) error {
	_, err := io.WriteString(w, BuildFeed(p, events, opts).Serialize(ical.WithNewLineWindows))
	if err != nil {
		return fmt.Errorf("ics: write feed: %w", err)
	}
	return nil
}

// BuildFeed assembles the calendar for p. Entries follow the canonical event
// order. Start and end are the stored wall-clock values tagged with the
// feed's TZID; nothing is converted. An end before the start falls on the
// next day. Events with an unreadable date are left out.
func BuildFeed(p model.Program, events []model.Event, opts FeedOptions) *ical.Calendar {
	opts = opts.withDefaults()

	cal := ical.NewCalendar()
	cal.SetProductId(opts.ProductID)
	cal.SetMethod(ical.MethodPublish)
	if p.Name != "" {
		cal.SetXWRCalName(vocab.Text(opts.Lang, p.Name))
	}
	cal.SetXWRTimezone(opts.TZID)
	cal.Components = append(cal.Components, fixedZone(opts.TZID, opts.OffsetMinutes))

	stamp := p.UpdatedAt.UTC()
	if p.UpdatedAt.IsZero() {
		stamp, _ = civil.ParseDate(p.StartDate)
	}

	for _, e := range model.SortEvents(model.ForProgram(events, p.ID)) {
		day, ok := civil.ParseDate(e.Date)
		if !ok {
			continue
		}
		start, ok := civil.ParseTime(e.StartTime)
		if !ok {
			start = 0
		}
		endDay := day
		end, ok := civil.ParseTime(e.EndTime)
		if !ok {
			end = start
		} else if end < start {
			endDay = day.AddDate(0, 0, 1)
		}

		ev := cal.AddEvent(e.ID + "@" + opts.UIDDomain)
		ev.SetDtStampTime(stamp)
		setLocal(ev, ical.ComponentPropertyDtStart, localStamp(day, start), opts.TZID)
		setLocal(ev, ical.ComponentPropertyDtEnd, localStamp(endDay, end), opts.TZID)
		ev.SetSummary(vocab.Text(opts.Lang, e.Title))
		if e.Location != "" {
			ev.SetLocation(vocab.Text(opts.Lang, e.Location))
		}
		ev.SetDescription(Description(e, opts.Lang))
		ev.AddProperty(ical.ComponentPropertyCategories, vocab.CategoryName(opts.Lang, e.Category))
	}
	return cal
}

// fixedZone builds a VTIMEZONE with a single STANDARD observance, so
// clients never apply daylight saving.
func fixedZone(tzid string, offsetMinutes int) *ical.VTimezone {
	offset := utcOffset(offsetMinutes)

	std := &ical.Standard{}
	std.SetProperty(ical.ComponentProperty("DTSTART"), "19700101T000000")
	std.SetProperty(ical.ComponentProperty("TZOFFSETFROM"), offset)
	std.SetProperty(ical.ComponentProperty("TZOFFSETTO"), offset)
	std.SetProperty(ical.ComponentProperty("TZNAME"), shortZoneName(offsetMinutes))

	tz := &ical.VTimezone{}
	tz.SetProperty(ical.ComponentProperty("TZID"), tzid)
	tz.Components = append(tz.Components, std)
	return tz
}

// setLocal writes a floating date-time value carrying a TZID parameter.
func setLocal(ev *ical.VEvent, prop ical.ComponentProperty, value, tzid string) {
	ev.SetProperty(prop, value)
	p := ev.GetProperty(prop)
	if p.ICalParameters == nil {
		p.ICalParameters = map[string][]string{}
	}
	p.ICalParameters[string(ical.ParameterTzid)] = []string{tzid}
}

func localStamp(day time.Time, minutes int) string {
	return day.Format("20060102") + "T" + fmt.Sprintf("%02d%02d00", minutes/60, minutes%60)
}

// utcOffset renders minutes east of UTC as "+hhmm".
func utcOffset(minutes int) string {
	sign := "+"
	if minutes < 0 {
		sign = "-"
		minutes = -minutes
	}
	return fmt.Sprintf("%s%02d%02d", sign, minutes/60, minutes%60)
}

func shortZoneName(minutes int) string {
	if minutes == DefaultOffsetMinutes {
		return "JST"
	}
	return "UTC" + utcOffset(minutes)
}

// Description lists the non-empty facts of e, one per line, in a fixed
// order: category, room, arrangement, headcounts, staff, transport, notes.
func Description(e model.Event, lang vocab.Lang) string {
	var lines []string
	add := func(t vocab.Term, value string) {
		lines = append(lines, vocab.Label(lang, t)+": "+value)
	}

	add(vocab.TermCategory, vocab.CategoryName(lang, e.Category))
	if e.RoomNeeded {
		lines = append(lines, vocab.Label(lang, vocab.TermRoomNeeded))
	}
	if e.ArrangementNeeded {
		lines = append(lines, vocab.Label(lang, vocab.TermArrangement))
	}
	if e.Headcount > 0 {
		add(vocab.TermParticipants, strconv.Itoa(e.Headcount))
	}
	if e.Buddies > 0 {
		add(vocab.TermBuddies, strconv.Itoa(e.Buddies))
	}
	if e.StaffNeeded {
		line := vocab.Label(lang, vocab.TermStaff)
		if e.StaffCount > 0 {
			line += " (" + vocab.Label(lang, vocab.TermStaffCount) + ": " + strconv.Itoa(e.StaffCount) + ")"
		}
		lines = append(lines, line)
	}
	if e.Transport != "" && e.Transport != model.TransportNone {
		line := vocab.TransportName(lang, e.Transport)
		if bus := busSummary(e, lang); bus != "" {
			line += " (" + bus + ")"
		}
		add(vocab.TermTransport, line)
	}
	if e.Notes != "" {
		add(vocab.TermNotes, vocab.Text(lang, e.Notes))
	}
	return strings.Join(lines, "\n")
}

func busSummary(e model.Event, lang vocab.Lang) string {
	if !e.IsBus() {
		return ""
	}
	var parts []string
	if e.Bus.Company != "" {
		parts = append(parts, e.Bus.Company)
	}
	if e.Bus.Vehicles > 0 {
		n := strconv.Itoa(e.Bus.Vehicles)
		if lang == vocab.Secondary {
			parts = append(parts, n+vocab.Label(lang, vocab.TermVehicles))
		} else {
			parts = append(parts, n+" "+vocab.Label(lang, vocab.TermVehicles))
		}
	}
	switch e.Bus.Trip {
	case model.TripOneWay:
		parts = append(parts, vocab.Label(lang, vocab.TermOneWay))
	case model.TripRoundTrip:
		parts = append(parts, vocab.Label(lang, vocab.TermRoundTrip))
	}
	return strings.Join(parts, ", ")
}
