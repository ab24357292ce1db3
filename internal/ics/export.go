// Package ics maps the stored event index to and from the iCalendar
// interchange format, so the calendar can be consumed by (and seeded
// from) ordinary calendar clients.
package ics

import (
	"sort"
	"time"

	ical "github.com/arran4/golang-ical"

	"minical/internal/model"
)

const (
	prodID = "-//minical//calendar//EN"
	// colorProp carries the palette tag through a round trip; standard
	// clients ignore it.
	colorProp = "X-MINICAL-COLOR"
)

// freqNames maps repeat patterns to their RRULE frequency names.
var freqNames = map[model.Repeat]string{
	model.RepeatDaily:   "DAILY",
	model.RepeatWeekly:  "WEEKLY",
	model.RepeatMonthly: "MONTHLY",
	model.RepeatYearly:  "YEARLY",
}

// Export serializes the whole index as an iCalendar document. Events
// are emitted in (bucket key, ID) order so exports are deterministic.
//
// Stored dates and times carry no timezone; timed values are exported
// as UTC instants with the same wall-clock reading.
func Export(index model.Index) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(prodID)

	events := make([]model.Event, 0)
	for _, bucket := range index {
		events = append(events, bucket...)
	}
	sort.Slice(events, func(i, j int) bool {
		ki, kj := events[i].StartDate.Key(), events[j].StartDate.Key()
		if ki != kj {
			return ki < kj
		}
		return events[i].ID < events[j].ID
	})

	now := time.Now().UTC()
	for _, ev := range events {
		ve := cal.AddEvent(ev.ID)
		ve.SetDtStampTime(now)
		ve.SetSummary(ev.Name)
		if ev.Description != "" {
			ve.SetDescription(ev.Description)
		}

		if ev.AllDay {
			ve.SetAllDayStartAt(ev.StartDate.Time())
			// DTEND is exclusive for date values.
			ve.SetAllDayEndAt(ev.EndDate.AddDays(1).Time())
		} else {
			ve.SetStartAt(ev.StartDate.In(time.UTC, ev.StartTime.Hour, ev.StartTime.Minute))
			ve.SetEndAt(ev.EndDate.In(time.UTC, ev.EndTime.Hour, ev.EndTime.Minute))
		}

		if name, ok := freqNames[ev.Repeat]; ok {
			ve.AddRrule("FREQ=" + name)
		}
		if ev.Color != "" && ev.Color != model.ColorDefault {
			ve.SetProperty(ical.ComponentProperty(colorProp), string(ev.Color))
		}
	}

	return cal.Serialize()
}
