// Package model defines the calendar's durable event type, the derived
// occurrence type, and the validation rules shared by every write path.
package model

import "errors"

// Repeat identifies an unbounded recurrence pattern anchored at the
// event's original start date.
type Repeat string

const (
	RepeatNone    Repeat = "none"
	RepeatDaily   Repeat = "daily"
	RepeatWeekly  Repeat = "weekly"
	RepeatMonthly Repeat = "monthly"
	RepeatYearly  Repeat = "yearly"
)

// Valid reports whether r is a known repeat pattern. The empty string is
// accepted as RepeatNone for drafts coming from older stored data.
func (r Repeat) Valid() bool {
	switch r {
	case RepeatNone, RepeatDaily, RepeatWeekly, RepeatMonthly, RepeatYearly, "":
		return true
	}
	return false
}

// Color is a presentation tag from a closed palette. It has no semantic
// meaning inside the engine.
type Color string

const (
	ColorDefault Color = "default"
	ColorRed     Color = "red"
	ColorOrange  Color = "orange"
	ColorGreen   Color = "green"
	ColorBlue    Color = "blue"
	ColorPurple  Color = "purple"
)

func (c Color) Valid() bool {
	switch c {
	case ColorDefault, ColorRed, ColorOrange, ColorGreen, ColorBlue, ColorPurple, "":
		return true
	}
	return false
}

// Validation errors reported before any mutation takes place.
var (
	ErrNameRequired   = errors.New("event name is required")
	ErrDateRequired   = errors.New("start and end dates are required")
	ErrTimeRequired   = errors.New("start and end times are required for timed events")
	ErrTimesOnAllDay  = errors.New("all-day events must not carry times")
	ErrEndBeforeStart = errors.New("event must not end before it starts")
	ErrBadRepeat      = errors.New("unknown repeat pattern")
	ErrBadColor       = errors.New("unknown color tag")
)

// Event is the durable unit of the calendar. StartTime/EndTime are nil
// exactly when AllDay is true; all-day events behave as 00:00–23:59 for
// ordering and duration math.
type Event struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	StartDate   Date       `json:"startDate"`
	EndDate     Date       `json:"endDate"`
	StartTime   *TimeOfDay `json:"startTime"`
	EndTime     *TimeOfDay `json:"endTime"`
	AllDay      bool       `json:"isAllDay"`
	Repeat      Repeat     `json:"repeat"`
	Color       Color      `json:"color"`
	Description string     `json:"description,omitempty"`
}

// Draft is the caller-supplied shape of an event before the store has
// assigned it an identity.
type Draft struct {
	Name        string     `json:"name"`
	StartDate   Date       `json:"startDate"`
	EndDate     Date       `json:"endDate"`
	StartTime   *TimeOfDay `json:"startTime"`
	EndTime     *TimeOfDay `json:"endTime"`
	AllDay      bool       `json:"isAllDay"`
	Repeat      Repeat     `json:"repeat"`
	Color       Color      `json:"color"`
	Description string     `json:"description,omitempty"`
}

// Validate checks every save-time invariant. It reports the first
// violation found and never mutates the draft.
func (d Draft) Validate() error {
	if d.Name == "" {
		return ErrNameRequired
	}
	if d.StartDate.IsZero() || d.EndDate.IsZero() {
		return ErrDateRequired
	}
	if d.AllDay {
		if d.StartTime != nil || d.EndTime != nil {
			return ErrTimesOnAllDay
		}
	} else {
		if d.StartTime == nil || d.EndTime == nil {
			return ErrTimeRequired
		}
	}
	if !d.Repeat.Valid() {
		return ErrBadRepeat
	}
	if !d.Color.Valid() {
		return ErrBadColor
	}
	if d.EndDate.Before(d.StartDate) {
		return ErrEndBeforeStart
	}
	if d.EndDate.Equal(d.StartDate) && !d.AllDay && d.EndTime.Minutes() < d.StartTime.Minutes() {
		return ErrEndBeforeStart
	}
	return nil
}

// Event materializes the draft as a stored event with the given id,
// normalizing the zero-value repeat/color to their named defaults.
func (d Draft) Event(id string) Event {
	repeat := d.Repeat
	if repeat == "" {
		repeat = RepeatNone
	}
	color := d.Color
	if color == "" {
		color = ColorDefault
	}
	return Event{
		ID:          id,
		Name:        d.Name,
		StartDate:   d.StartDate,
		EndDate:     d.EndDate,
		StartTime:   d.StartTime,
		EndTime:     d.EndTime,
		AllDay:      d.AllDay,
		Repeat:      repeat,
		Color:       color,
		Description: d.Description,
	}
}

// Draft returns the event's draft shape, so stored events can be run
// back through the same validation as incoming ones.
func (e Event) Draft() Draft {
	return Draft{
		Name:        e.Name,
		StartDate:   e.StartDate,
		EndDate:     e.EndDate,
		StartTime:   e.StartTime,
		EndTime:     e.EndTime,
		AllDay:      e.AllDay,
		Repeat:      e.Repeat,
		Color:       e.Color,
		Description: e.Description,
	}
}

// EffectiveStart returns the time-of-day used for ordering: 00:00 for
// all-day events, the stored start otherwise.
func (e Event) EffectiveStart() TimeOfDay {
	if e.AllDay || e.StartTime == nil {
		return TimeOfDay{}
	}
	return *e.StartTime
}

// EffectiveEnd returns 23:59 for all-day events, the stored end otherwise.
func (e Event) EffectiveEnd() TimeOfDay {
	if e.AllDay || e.EndTime == nil {
		return TimeOfDay{Hour: 23, Minute: 59}
	}
	return *e.EndTime
}

// SpanDays returns the inclusive number of calendar days the event covers.
func (e Event) SpanDays() int {
	return e.StartDate.DaysUntil(e.EndDate) + 1
}

// Occurrence is a single calendar-day manifestation of an event: either
// a day of its original stored span, or a day of a derived recurrence
// instance. Derived instances are not independently editable; edits go
// to the originating event.
type Occurrence struct {
	Event Event
	// Day is the calendar day this occurrence lands on.
	Day Date
	// InstanceStart/InstanceEnd span the concrete instance this day
	// belongs to. For the stored span they equal the event's own dates.
	InstanceStart Date
	InstanceEnd   Date
	// Derived marks recurrence-generated instances.
	Derived bool
}

// Index is the canonical event map: day key of the original start date
// to the events starting that day. Insertion order within a bucket is
// not meaningful; display order is computed.
type Index = map[string][]Event
