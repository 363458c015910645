package ics

import (
	"errors"
	"sort"
	"time"

	"github.com/teambition/rrule-go"

	appLog "rsjpcal/internal/log"
)

const defaultMaxOccurrences = 1000

// Occurrence is one concrete instance of a feed entry.
type Occurrence struct {
	SourceID    string
	UID         string
	InstanceKey string

	Summary     string
	Description string
	Location    string

	AllDay bool
	Start  time.Time
	End    time.Time
}

// ExpandConfig bounds recurrence expansion.
type ExpandConfig struct {
	// Location is the zone occurrences are reported in. Nil means UTC.
	Location *time.Location

	// RangeStart and RangeEnd are inclusive.
	RangeStart time.Time
	RangeEnd   time.Time

	// MaxOccurrences caps instances per UID. Zero means 1000.
	MaxOccurrences int
}

// ExpandOccurrences turns entries into occurrences within the configured
// range. RRULE and EXDATE are applied, and RECURRENCE-ID entries replace the
// instance they name. Output is sorted by start, then UID, then instance key.
func ExpandOccurrences(entries []Entry, cfg ExpandConfig) ([]Occurrence, error) {
	if cfg.RangeEnd.Before(cfg.RangeStart) {
		return nil, errors.New("ics: expand range ends before it starts")
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.MaxOccurrences <= 0 {
		cfg.MaxOccurrences = defaultMaxOccurrences
	}

	base := make(map[string][]Entry)
	overrides := make(map[string][]Entry)
	var uids []string
	for _, e := range entries {
		if e.IsOverride() {
			overrides[e.UID] = append(overrides[e.UID], e)
			continue
		}
		if _, seen := base[e.UID]; !seen {
			uids = append(uids, e.UID)
		}
		base[e.UID] = append(base[e.UID], e)
	}

	out := make([]Occurrence, 0)
	for _, uid := range uids {
		var n int
		for _, e := range base[uid] {
			occ := expandEntry(e, overrides[uid], cfg)
			if n+len(occ) > cfg.MaxOccurrences {
				occ = occ[:cfg.MaxOccurrences-n]
				appLog.Warn("ics expand truncated", "uid", uid, "cap", cfg.MaxOccurrences)
			}
			n += len(occ)
			out = append(out, occ...)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.Start.Equal(b.Start) {
			return a.Start.Before(b.Start)
		}
		if a.UID != b.UID {
			return a.UID < b.UID
		}
		return a.InstanceKey < b.InstanceKey
	})
	return out, nil
}

func expandEntry(e Entry, overrides []Entry, cfg ExpandConfig) []Occurrence {
	if e.RRule == "" {
		if !overlaps(e.Start, e.End, cfg.RangeStart, cfg.RangeEnd) {
			return nil
		}
		return []Occurrence{instance(e, e.Start, overrides, cfg.Location)}
	}

	r, err := rrule.StrToRRule(e.RRule)
	if err != nil {
		appLog.Error("ics rrule rejected", err, "uid", e.UID, "rrule", e.RRule)
		return nil
	}
	r.DTStart(e.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range e.ExDates {
		set.ExDate(ex.In(e.Start.Location()))
	}

	// Widen the lower bound by the duration so instances already running at
	// RangeStart are kept.
	from := cfg.RangeStart.Add(-e.End.Sub(e.Start)).In(e.Start.Location())
	to := cfg.RangeEnd.In(e.Start.Location())

	var out []Occurrence
	for _, start := range set.Between(from, to, true) {
		out = append(out, instance(e, start, overrides, cfg.Location))
	}
	return out
}

// instance builds the occurrence starting at start, applying a matching
// override when there is one.
func instance(e Entry, start time.Time, overrides []Entry, loc *time.Location) Occurrence {
	key := start.UTC().Format(time.RFC3339)
	end := start.Add(e.End.Sub(e.Start))

	for _, ov := range overrides {
		if ov.RecurrenceID.Equal(start) {
			e, start, end = ov, ov.Start, ov.End
			break
		}
	}

	return Occurrence{
		SourceID:    e.SourceID,
		UID:         e.UID,
		InstanceKey: key,
		Summary:     e.Summary,
		Description: e.Description,
		Location:    e.Location,
		AllDay:      e.AllDay,
		Start:       start.In(loc),
		End:         end.In(loc),
	}
}

func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !aEnd.Before(bStart) && !bEnd.Before(aStart)
}
