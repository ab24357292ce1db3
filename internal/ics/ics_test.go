package ics

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minical/internal/model"
)

func timed(id, name string, day model.Date, repeat model.Repeat) model.Event {
	st := model.TimeOfDay{Hour: 9}
	et := model.TimeOfDay{Hour: 9, Minute: 30}
	return model.Event{
		ID:        id,
		Name:      name,
		StartDate: day,
		EndDate:   day,
		StartTime: &st,
		EndTime:   &et,
		Repeat:    repeat,
		Color:     model.ColorDefault,
	}
}

func index(events ...model.Event) model.Index {
	idx := make(model.Index)
	for _, ev := range events {
		key := ev.StartDate.Key()
		idx[key] = append(idx[key], ev)
	}
	return idx
}

func TestExportShape(t *testing.T) {
	day := model.NewDate(2025, time.June, 10)
	ev := timed("evt-1", "Standup", day, model.RepeatWeekly)
	ev.Description = "daily sync"
	ev.Color = model.ColorBlue

	allday := model.Event{
		ID:        "evt-2",
		Name:      "Holiday",
		StartDate: model.NewDate(2025, time.May, 30),
		EndDate:   model.NewDate(2025, time.June, 2),
		AllDay:    true,
		Repeat:    model.RepeatNone,
		Color:     model.ColorDefault,
	}

	out := Export(index(ev, allday))
	assert.Contains(t, out, "BEGIN:VCALENDAR")
	assert.Contains(t, out, "UID:evt-1")
	assert.Contains(t, out, "SUMMARY:Standup")
	assert.Contains(t, out, "DESCRIPTION:daily sync")
	assert.Contains(t, out, "RRULE:FREQ=WEEKLY")
	assert.Contains(t, out, "X-MINICAL-COLOR:blue")
	assert.Contains(t, out, "SUMMARY:Holiday")
	// All-day events use date values with an exclusive end.
	assert.Contains(t, out, "20250530")
	assert.Contains(t, out, "20250603")
	// Non-recurring events carry no RRULE.
	assert.Equal(t, 1, strings.Count(out, "RRULE:"))
}

func TestExportDeterministicOrder(t *testing.T) {
	idx := index(
		timed("b", "Second", model.NewDate(2025, time.June, 11), model.RepeatNone),
		timed("a", "First", model.NewDate(2025, time.June, 10), model.RepeatNone),
	)
	out := Export(idx)
	assert.Less(t, strings.Index(out, "UID:a"), strings.Index(out, "UID:b"))
	assert.Equal(t, Export(idx), out)
}

func TestImportRoundTrip(t *testing.T) {
	day := model.NewDate(2025, time.June, 10)
	ev := timed("evt-1", "Standup", day, model.RepeatWeekly)
	ev.Description = "daily sync"

	res, err := Import(strings.NewReader(Export(index(ev))))
	require.NoError(t, err)
	require.Len(t, res.Drafts, 1)
	assert.Zero(t, res.Skipped)

	draft := res.Drafts[0]
	assert.Equal(t, "Standup", draft.Name)
	assert.Equal(t, "daily sync", draft.Description)
	assert.False(t, draft.AllDay)
	assert.Equal(t, day, draft.StartDate)
	assert.Equal(t, day, draft.EndDate)
	require.NotNil(t, draft.StartTime)
	assert.Equal(t, "09:00", draft.StartTime.String())
	assert.Equal(t, model.RepeatWeekly, draft.Repeat)
	require.NoError(t, draft.Validate())
}

func TestImportAllDayRoundTrip(t *testing.T) {
	ev := model.Event{
		ID:        "evt-1",
		Name:      "Holiday",
		StartDate: model.NewDate(2025, time.May, 30),
		EndDate:   model.NewDate(2025, time.June, 2),
		AllDay:    true,
		Repeat:    model.RepeatNone,
		Color:     model.ColorDefault,
	}

	res, err := Import(strings.NewReader(Export(index(ev))))
	require.NoError(t, err)
	require.Len(t, res.Drafts, 1)

	draft := res.Drafts[0]
	assert.True(t, draft.AllDay)
	assert.Nil(t, draft.StartTime)
	assert.Equal(t, ev.StartDate, draft.StartDate)
	assert.Equal(t, ev.EndDate, draft.EndDate)
	require.NoError(t, draft.Validate())
}

func TestImportSkipsUnrepresentableRecurrence(t *testing.T) {
	payload := strings.Join([]string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//test//EN",
		"BEGIN:VEVENT",
		"UID:complex",
		"SUMMARY:Biweekly",
		"DTSTART:20250610T090000Z",
		"DTEND:20250610T093000Z",
		"RRULE:FREQ=WEEKLY;INTERVAL=2",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:plain",
		"SUMMARY:Standup",
		"DTSTART:20250610T090000Z",
		"DTEND:20250610T093000Z",
		"END:VEVENT",
		"END:VCALENDAR",
		"",
	}, "\r\n")

	res, err := Import(strings.NewReader(payload))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Skipped)
	require.Len(t, res.Drafts, 1)
	assert.Equal(t, "Standup", res.Drafts[0].Name)
}

func TestImportSkipsNamelessEvents(t *testing.T) {
	payload := strings.Join([]string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//test//EN",
		"BEGIN:VEVENT",
		"UID:anon",
		"DTSTART:20250610T090000Z",
		"DTEND:20250610T093000Z",
		"END:VEVENT",
		"END:VCALENDAR",
		"",
	}, "\r\n")

	res, err := Import(strings.NewReader(payload))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Skipped)
	assert.Empty(t, res.Drafts)
}

func TestImportRejectsGarbage(t *testing.T) {
	_, err := Import(strings.NewReader("not an ics file"))
	assert.Error(t, err)
}
