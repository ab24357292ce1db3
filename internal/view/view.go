// Package view composes expanded occurrences into render-ready month
// models for the presentation layer.
package view

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"minical/internal/expand"
	"minical/internal/model"
)

// EmptyState distinguishes why a month rendered without any items.
type EmptyState string

const (
	// EmptyNone means at least one item survived filtering.
	EmptyNone EmptyState = ""
	// EmptyNoEvents means the month has no occurrences at all.
	EmptyNoEvents EmptyState = "no-events"
	// EmptyNoMatches means occurrences exist but none match the search.
	EmptyNoMatches EmptyState = "no-matches"
)

// Text returns the user-facing empty-state message.
func (e EmptyState) Text() string {
	switch e {
	case EmptyNoEvents:
		return "No events"
	case EmptyNoMatches:
		return "No events match your search"
	}
	return ""
}

// Item is one render-ready occurrence inside a day cell.
type Item struct {
	// EventID and BucketKey identify the originating event and its
	// current index bucket; together they are the click target.
	EventID   string `json:"eventId"`
	BucketKey string `json:"bucketKey"`

	Label   string      `json:"label"`
	Tooltip string      `json:"tooltip"`
	Color   model.Color `json:"color"`
	AllDay  bool        `json:"allDay"`
	// Start is the ordering key, "HH:MM"; empty for all-day items.
	Start string `json:"start,omitempty"`
	// Derived marks recurrence instances, which are not editable.
	Derived bool `json:"derived"`
}

// Cell is one day of the rendered month grid.
type Cell struct {
	Day     int        `json:"day"`
	Date    model.Date `json:"date"`
	IsToday bool       `json:"isToday"`
	Items   []Item     `json:"items"`
	// Count is the post-filter badge count for the day.
	Count int `json:"count"`
}

// Month is the complete render model for one calendar month.
type Month struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
	Cells []Cell     `json:"cells"`
	Empty EmptyState `json:"empty,omitempty"`
	// EmptyText is Empty's display string, precomputed for the UI.
	EmptyText string `json:"emptyText,omitempty"`
}

// Build materializes the month grid from the stored index. The search
// query filters occurrences after expansion, so a multi-day match still
// shows on every spanned day. today controls the IsToday flag and may
// be the zero Date when no day should be highlighted.
func Build(index model.Index, year int, month time.Month, query string, today model.Date) Month {
	occs := expand.Month(index, year, month)

	byDay := make(map[int][]Item)
	total := 0
	matched := 0
	for _, occ := range occs {
		total++
		if !matches(occ.Event, query) {
			continue
		}
		matched++
		byDay[occ.Day.Day] = append(byDay[occ.Day.Day], item(occ))
	}

	days := model.DaysInMonth(year, month)
	cells := make([]Cell, 0, days)
	for day := 1; day <= days; day++ {
		date := model.NewDate(year, month, day)
		items := byDay[day]
		sortItems(items)
		cells = append(cells, Cell{
			Day:     day,
			Date:    date,
			IsToday: date.Equal(today),
			Items:   items,
			Count:   len(items),
		})
	}

	m := Month{Year: year, Month: month, Cells: cells}
	if matched == 0 {
		if total == 0 {
			m.Empty = EmptyNoEvents
		} else {
			m.Empty = EmptyNoMatches
		}
		m.EmptyText = m.Empty.Text()
	}
	return m
}

// matches is a case-insensitive substring match against name OR
// description. An empty query matches everything.
func matches(ev model.Event, query string) bool {
	if query == "" {
		return true
	}
	q := strings.ToLower(query)
	return strings.Contains(strings.ToLower(ev.Name), q) ||
		strings.Contains(strings.ToLower(ev.Description), q)
}

// sortItems orders a day's items: all-day first, then timed items
// ascending by their zero-padded start, with name and ID as
// deterministic tiebreakers.
func sortItems(items []Item) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.AllDay != b.AllDay {
			return a.AllDay
		}
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		if la, lb := a.Label, b.Label; la != lb {
			return la < lb
		}
		return a.EventID < b.EventID
	})
}

func item(occ model.Occurrence) Item {
	ev := occ.Event
	it := Item{
		EventID:   ev.ID,
		BucketKey: ev.StartDate.Key(),
		Color:     ev.Color,
		AllDay:    ev.AllDay,
		Derived:   occ.Derived,
	}
	if ev.AllDay {
		it.Label = ev.Name
		it.Tooltip = fmt.Sprintf("%s (all day)", ev.Name)
	} else {
		it.Start = ev.StartTime.String()
		it.Label = fmt.Sprintf("%s %s", ev.StartTime.Clock12(), ev.Name)
		it.Tooltip = fmt.Sprintf("%s (%s – %s)", ev.Name, ev.StartTime.Clock12(), ev.EndTime.Clock12())
	}
	if ev.Description != "" {
		it.Tooltip += "\n" + ev.Description
	}
	return it
}
