package ics

import (
	"io"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "minical/internal/log"
	"minical/internal/model"
)

// ImportResult reports what an import pass produced.
type ImportResult struct {
	Drafts []model.Draft
	// Skipped counts VEVENTs that could not be represented (missing
	// required fields, or recurrence rules beyond the four plain
	// frequencies).
	Skipped int
}

// Import parses an iCalendar payload into event drafts. Unrepresentable
// events are skipped and counted rather than failing the whole import;
// the store's own validation still runs when drafts are added.
func Import(r io.Reader) (ImportResult, error) {
	var res ImportResult

	cal, err := ical.ParseCalendar(r)
	if err != nil {
		return res, err
	}

	for _, ve := range cal.Events() {
		draft, ok := parseVEvent(ve)
		if !ok {
			res.Skipped++
			continue
		}
		res.Drafts = append(res.Drafts, draft)
	}
	return res, nil
}

func parseVEvent(ve *ical.VEvent) (model.Draft, bool) {
	var draft model.Draft

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		draft.Name = p.Value
	}
	if draft.Name == "" {
		return draft, false
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		draft.Description = p.Value
	}

	allDay := isAllDay(ve)
	draft.AllDay = allDay

	start, err := startAt(ve, allDay)
	if err != nil {
		appLog.Debug("ics import: unusable DTSTART, skipping event", "err", err)
		return draft, false
	}
	end, err := endAt(ve, allDay)
	if err != nil {
		end = start
	}

	// Components are read in each value's own location: the stored
	// model is timezone-naive, so the wall-clock reading is what counts.
	draft.StartDate = model.FromTime(start)
	if allDay {
		// DTEND is exclusive for date values.
		endDate := model.FromTime(end).AddDays(-1)
		if endDate.Before(draft.StartDate) {
			endDate = draft.StartDate
		}
		draft.EndDate = endDate
	} else {
		draft.EndDate = model.FromTime(end)
		st := model.TimeOfDay{Hour: start.Hour(), Minute: start.Minute()}
		et := model.TimeOfDay{Hour: end.Hour(), Minute: end.Minute()}
		draft.StartTime = &st
		draft.EndTime = &et
	}

	repeat, ok := parseRrule(ve)
	if !ok {
		return draft, false
	}
	draft.Repeat = repeat

	if p := ve.GetProperty(ical.ComponentProperty(colorProp)); p != nil {
		c := model.Color(p.Value)
		if c.Valid() {
			draft.Color = c
		}
	}
	return draft, true
}

// isAllDay mirrors the usual DTSTART heuristics: VALUE=DATE parameter or
// a value without a time component.
func isAllDay(ve *ical.VEvent) bool {
	p := ve.GetProperty(ical.ComponentPropertyDtStart)
	if p == nil {
		return false
	}
	if params := p.ICalParameters; params != nil {
		if vs, ok := params["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
			return true
		}
	}
	return !strings.Contains(p.Value, "T")
}

func startAt(ve *ical.VEvent, allDay bool) (time.Time, error) {
	if allDay {
		return ve.GetAllDayStartAt()
	}
	return ve.GetStartAt()
}

func endAt(ve *ical.VEvent, allDay bool) (time.Time, error) {
	if allDay {
		return ve.GetAllDayEndAt()
	}
	return ve.GetEndAt()
}

// parseRrule maps an optional RRULE onto a Repeat. Only the four plain
// frequencies (optionally with INTERVAL=1) are representable; anything
// else rejects the event.
func parseRrule(ve *ical.VEvent) (model.Repeat, bool) {
	p := ve.GetProperty(ical.ComponentPropertyRrule)
	if p == nil || p.Value == "" {
		return model.RepeatNone, true
	}

	var freq model.Repeat
	for _, part := range strings.Split(p.Value, ";") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			return "", false
		}
		switch strings.ToUpper(key) {
		case "FREQ":
			for repeat, name := range freqNames {
				if strings.EqualFold(value, name) {
					freq = repeat
				}
			}
			if freq == "" {
				return "", false
			}
		case "INTERVAL":
			if value != "1" {
				return "", false
			}
		default:
			return "", false
		}
	}
	if freq == "" {
		return "", false
	}
	return freq, true
}
