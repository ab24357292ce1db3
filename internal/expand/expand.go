// Package expand derives concrete per-day occurrences for a visible
// month from the stored event index.
//
// Expansion runs in two passes. The stored-span pass walks each event's
// own start..end dates, so a multi-day event crosses month boundaries in
// both directions. The recurrence pass derives instances whose start day
// lands inside the target month; an instance anchored in a previous
// month does not spill its tail into this one. That asymmetry mirrors
// the reference behavior and is preserved deliberately.
package expand

import (
	"sort"
	"time"

	"github.com/teambition/rrule-go"

	appLog "minical/internal/log"
	"minical/internal/model"
)

// maxInstancesPerMonth bounds a single event's derived instances inside
// one month (31 daily instances is the legitimate maximum).
const maxInstancesPerMonth = 62

type dayRef struct {
	id  string
	day model.Date
}

// Month returns every occurrence intersecting the given month, at most
// one per event per calendar day. The result is sorted by day key, then
// event ID, so repeated calls over an unchanged index are identical.
func Month(index model.Index, year int, month time.Month) []model.Occurrence {
	first := model.NewDate(year, month, 1)
	last := model.NewDate(year, month, model.DaysInMonth(year, month))

	seen := make(map[dayRef]struct{})
	out := make([]model.Occurrence, 0)

	record := func(occ model.Occurrence) {
		ref := dayRef{id: occ.Event.ID, day: occ.Day}
		if _, dup := seen[ref]; dup {
			return
		}
		seen[ref] = struct{}{}
		out = append(out, occ)
	}

	for _, bucket := range index {
		for _, ev := range bucket {
			spanPass(ev, year, month, record)
		}
	}
	for _, bucket := range index {
		for _, ev := range bucket {
			if ev.Repeat == model.RepeatNone || ev.Repeat == "" {
				continue
			}
			recurrencePass(ev, first, last, year, month, record)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		ki, kj := out[i].Day.Key(), out[j].Day.Key()
		if ki != kj {
			return ki < kj
		}
		return out[i].Event.ID < out[j].Event.ID
	})
	return out
}

// spanPass records each day of the event's original stored span that
// lands in the target month.
func spanPass(ev model.Event, year int, month time.Month, record func(model.Occurrence)) {
	for d := ev.StartDate; !d.After(ev.EndDate); d = d.AddDays(1) {
		if d.Year == year && d.Month == month {
			record(model.Occurrence{
				Event:         ev,
				Day:           d,
				InstanceStart: ev.StartDate,
				InstanceEnd:   ev.EndDate,
			})
		}
	}
}

// recurrencePass derives recurrence instances starting inside the month
// and records their in-month days. Instance ends preserve the original
// duration; the instance equal to the anchor itself is skipped because
// the span pass already covers it.
func recurrencePass(ev model.Event, first, last model.Date, year int, month time.Month, record func(model.Occurrence)) {
	freq, ok := frequency(ev.Repeat)
	if !ok {
		return
	}

	rule, err := rrule.NewRRule(rrule.ROption{
		Freq:    freq,
		Dtstart: ev.StartDate.Time(),
	})
	if err != nil {
		appLog.Error("expand: building recurrence rule failed", err,
			"event_id", ev.ID, "repeat", string(ev.Repeat))
		return
	}

	starts := rule.Between(first.Time(), last.Time(), true)
	if len(starts) > maxInstancesPerMonth {
		starts = starts[:maxInstancesPerMonth]
	}

	span := ev.StartDate.DaysUntil(ev.EndDate)
	for _, t := range starts {
		day := model.FromTime(t.UTC())
		if day.Equal(ev.StartDate) {
			continue
		}
		end := day.AddDays(span)
		for d := day; !d.After(end); d = d.AddDays(1) {
			if d.Year != year || d.Month != month {
				continue
			}
			record(model.Occurrence{
				Event:         ev,
				Day:           d,
				InstanceStart: day,
				InstanceEnd:   end,
				Derived:       true,
			})
		}
	}
}

// frequency maps the repeat pattern onto its RRULE frequency. The
// mapping relies on dateutil anchor semantics: WEEKLY recurs on the
// anchor's weekday, MONTHLY on the anchor's day-of-month (silently
// skipping months without it), YEARLY on the anchor's month and day.
func frequency(r model.Repeat) (rrule.Frequency, bool) {
	switch r {
	case model.RepeatDaily:
		return rrule.DAILY, true
	case model.RepeatWeekly:
		return rrule.WEEKLY, true
	case model.RepeatMonthly:
		return rrule.MONTHLY, true
	case model.RepeatYearly:
		return rrule.YEARLY, true
	}
	return 0, false
}
