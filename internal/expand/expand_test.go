package expand

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minical/internal/model"
)

func timed(id, name string, start, end model.Date, repeat model.Repeat) model.Event {
	st := model.TimeOfDay{Hour: 9}
	et := model.TimeOfDay{Hour: 9, Minute: 30}
	return model.Event{
		ID:        id,
		Name:      name,
		StartDate: start,
		EndDate:   end,
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

func days(occs []model.Occurrence, id string) []string {
	var out []string
	for _, occ := range occs {
		if occ.Event.ID == id {
			out = append(out, occ.Day.Key())
		}
	}
	return out
}

func TestMultiDaySpanCrossesMonths(t *testing.T) {
	ev := timed("e1", "Trip",
		model.NewDate(2025, time.May, 30), model.NewDate(2025, time.June, 2),
		model.RepeatNone)
	idx := index(ev)

	may := Month(idx, 2025, time.May)
	assert.Equal(t, []string{"2025-05-30", "2025-05-31"}, days(may, "e1"))

	june := Month(idx, 2025, time.June)
	assert.Equal(t, []string{"2025-06-01", "2025-06-02"}, days(june, "e1"))

	for _, occ := range june {
		assert.False(t, occ.Derived)
		assert.Equal(t, model.NewDate(2025, time.May, 30), occ.InstanceStart)
		assert.Equal(t, model.NewDate(2025, time.June, 2), occ.InstanceEnd)
	}
}

func TestMonthlyOnDay31SkipsFebruary(t *testing.T) {
	ev := timed("e1", "Payday",
		model.NewDate(2025, time.January, 31), model.NewDate(2025, time.January, 31),
		model.RepeatMonthly)
	idx := index(ev)

	assert.Empty(t, Month(idx, 2025, time.February))
	assert.Equal(t, []string{"2025-03-31"}, days(Month(idx, 2025, time.March), "e1"))
	assert.Empty(t, Month(idx, 2025, time.April))
	assert.Equal(t, []string{"2025-05-31"}, days(Month(idx, 2025, time.May), "e1"))
}

func TestWeeklyRecursOnAnchorWeekday(t *testing.T) {
	// June 10, 2025 is a Tuesday.
	anchor := model.NewDate(2025, time.June, 10)
	require.Equal(t, time.Tuesday, anchor.Weekday())

	ev := timed("e1", "Standup", anchor, anchor, model.RepeatWeekly)
	idx := index(ev)

	july := Month(idx, 2025, time.July)
	assert.Equal(t,
		[]string{"2025-07-01", "2025-07-08", "2025-07-15", "2025-07-22", "2025-07-29"},
		days(july, "e1"))
	for _, occ := range july {
		assert.True(t, occ.Derived)
	}
}

func TestDailyRecurrenceFillsMonth(t *testing.T) {
	anchor := model.NewDate(2025, time.June, 28)
	ev := timed("e1", "Workout", anchor, anchor, model.RepeatDaily)
	idx := index(ev)

	july := Month(idx, 2025, time.July)
	assert.Len(t, days(july, "e1"), 31)

	// In the anchor month the anchor day itself comes from the stored
	// span, the rest from recurrence.
	june := Month(idx, 2025, time.June)
	assert.Equal(t, []string{"2025-06-28", "2025-06-29", "2025-06-30"}, days(june, "e1"))
	for _, occ := range june {
		if occ.Day.Equal(anchor) {
			assert.False(t, occ.Derived)
		} else {
			assert.True(t, occ.Derived)
		}
	}
}

func TestYearlyRecurrence(t *testing.T) {
	ev := timed("e1", "Anniversary",
		model.NewDate(2020, time.June, 15), model.NewDate(2020, time.June, 15),
		model.RepeatYearly)
	idx := index(ev)

	assert.Equal(t, []string{"2025-06-15"}, days(Month(idx, 2025, time.June), "e1"))
	assert.Empty(t, Month(idx, 2025, time.July))
}

func TestNoOccurrencesBeforeAnchor(t *testing.T) {
	ev := timed("e1", "Standup",
		model.NewDate(2025, time.June, 10), model.NewDate(2025, time.June, 10),
		model.RepeatWeekly)
	idx := index(ev)

	assert.Empty(t, Month(idx, 2025, time.May))
}

func TestRecurringInstancePreservesDuration(t *testing.T) {
	// Weekly two-day event; each derived instance spans two days.
	ev := timed("e1", "Retreat",
		model.NewDate(2025, time.June, 6), model.NewDate(2025, time.June, 7),
		model.RepeatWeekly)
	idx := index(ev)

	june := Month(idx, 2025, time.June)
	got := days(june, "e1")
	assert.Equal(t,
		[]string{"2025-06-06", "2025-06-07", "2025-06-13", "2025-06-14",
			"2025-06-20", "2025-06-21", "2025-06-27", "2025-06-28"},
		got)
}

func TestAtMostOneOccurrencePerEventPerDay(t *testing.T) {
	// Daily recurrence plus a multi-day span would double-book days
	// without deduplication.
	ev := timed("e1", "Sprint",
		model.NewDate(2025, time.June, 2), model.NewDate(2025, time.June, 5),
		model.RepeatDaily)
	idx := index(ev)

	june := Month(idx, 2025, time.June)
	seen := map[string]int{}
	for _, occ := range june {
		seen[occ.Day.Key()]++
	}
	for day, n := range seen {
		assert.Equal(t, 1, n, "day %s duplicated", day)
	}
	// June 2 through June 30 are covered; June 1 is not.
	assert.Len(t, seen, 29)
}

func TestIdempotentExpansion(t *testing.T) {
	ev := timed("e1", "Standup",
		model.NewDate(2025, time.June, 10), model.NewDate(2025, time.June, 10),
		model.RepeatWeekly)
	other := timed("e2", "Trip",
		model.NewDate(2025, time.June, 20), model.NewDate(2025, time.June, 23),
		model.RepeatNone)
	idx := index(ev, other)

	first := Month(idx, 2025, time.June)
	second := Month(idx, 2025, time.June)
	assert.Equal(t, first, second)
}
