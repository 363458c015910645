package ics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"rsjpcal/internal/civil"
	appLog "rsjpcal/internal/log"
	"rsjpcal/internal/model"
)

// importNamespace seeds the name-based ids of imported events.
var importNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("urn:rsjpcal:import"))

// Subscription is an external feed materialized into one program.
type Subscription struct {
	ID        string
	Name      string
	URL       string
	ProgramID string
	// Category of the imported events. Unknown values become "other".
	Category model.Category
}

// Importer runs fetch, parse, expand and materialize for a subscription.
type Importer struct {
	Fetcher *Fetcher
	// Location is the fixed civil zone imported times are read in.
	Location *time.Location
}

// Import returns the events the subscription currently contributes to p.
func (im *Importer) Import(ctx context.Context, sub Subscription, p model.Program) ([]model.Event, error) {
	loc := im.Location
	if loc == nil {
		loc = time.UTC
	}

	payload, err := im.Fetcher.Fetch(ctx, sub.ID, sub.URL)
	if err != nil {
		return nil, err
	}
	entries, err := ParseICS(sub.ID, payload.Body, loc)
	if err != nil {
		return nil, err
	}

	from, ok := civil.ParseDate(p.StartDate)
	to, ok2 := civil.ParseDate(p.EndDate)
	if !ok || !ok2 || to.Before(from) {
		return []model.Event{}, nil
	}
	occs, err := ExpandOccurrences(entries, ExpandConfig{
		Location:   loc,
		RangeStart: inZone(from, loc),
		RangeEnd:   inZone(to, loc).Add(24*time.Hour - time.Second),
	})
	if err != nil {
		return nil, fmt.Errorf("ics: expand %s: %w", sub.ID, err)
	}

	events := Materialize(sub, p, occs, loc)
	appLog.Info("ics import", "source", sub.ID, "program", p.ID, "entries", len(entries), "events", len(events), "from_cache", payload.FromCache)
	return events, nil
}

func inZone(day time.Time, loc *time.Location) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, loc)
}

// Materialize converts occurrences into manual events of p. Only
// occurrences starting inside the program's date range are kept. All-day
// entries span 00:00 to 23:59, and timed entries running past midnight are
// cut at 23:59 of their first day. Ids are derived from the subscription,
// the UID and the instance, so re-importing unchanged data yields the same
// events.
func Materialize(sub Subscription, p model.Program, occs []Occurrence, loc *time.Location) []model.Event {
	if loc == nil {
		loc = time.UTC
	}
	category := sub.Category
	if !category.Valid() {
		category = model.CategoryOther
	}

	out := make([]model.Event, 0, len(occs))
	for _, o := range occs {
		start := o.Start.In(loc)
		end := o.End.In(loc)
		date := civil.FormatDate(start)
		if date < p.StartDate || date > p.EndDate {
			continue
		}

		startText := start.Format("15:04")
		endText := end.Format("15:04")
		if o.AllDay {
			startText, endText = "00:00", "23:59"
		} else if civil.FormatDate(end) != date {
			endText = "23:59"
		}

		out = append(out, model.Event{
			ID:        uuid.NewSHA1(importNamespace, []byte(sub.ID+"\x00"+o.UID+"\x00"+o.InstanceKey)).String(),
			ProgramID: p.ID,
			Date:      date,
			StartTime: startText,
			EndTime:   endText,
			Category:  category,
			Title:     strings.TrimSpace(o.Summary),
			Location:  strings.TrimSpace(o.Location),
			Transport: model.TransportNone,
			Notes:     strings.TrimSpace(o.Description),
			Origin:    model.OriginManual,
			Kind:      model.KindImport,
			Source:    sub.ID,
		})
	}
	return out
}

// ReplaceSource swaps the events a subscription contributed to a program
// for imported. Everything else in stored is kept in order.
func ReplaceSource(stored []model.Event, programID, sourceID string, imported []model.Event) []model.Event {
	out := make([]model.Event, 0, len(stored)+len(imported))
	for _, e := range stored {
		if e.ProgramID == programID && e.Kind == model.KindImport && e.Source == sourceID {
			continue
		}
		out = append(out, e)
	}
	return append(out, imported...)
}
