// Package remind schedules one-shot reminder timers for timed events.
//
// The scheduler never tracks incremental diffs: every reschedule cancels
// all pending timers and recomputes from the current index. The event
// set is small, so correctness wins over timer churn.
package remind

import (
	"fmt"
	"sync"
	"time"

	appLog "minical/internal/log"
	"minical/internal/model"
)

const (
	// DefaultHorizon is how far ahead a reminder may be scheduled.
	DefaultHorizon = 24 * time.Hour
	// lateGrace is how far past its start an instance still counts as
	// the current one before the search advances to the next period.
	lateGrace = time.Hour
	// maxAdvance stops the period-advancing loop on degenerate input.
	maxAdvance = 5 * 365 * 24 * time.Hour
)

// Notifier delivers a user-visible reminder. Delivery mechanics belong
// to the presentation layer.
type Notifier interface {
	Notify(message string)
}

// Source exposes the stored index the scheduler derives timers from.
type Source interface {
	All() model.Index
}

// Scheduler owns the set of pending reminder timers.
type Scheduler struct {
	src      Source
	notifier Notifier
	horizon  time.Duration
	now      func() time.Time

	mu     sync.Mutex
	timers map[string]*time.Timer // event ID -> pending timer
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithHorizon overrides the scheduling horizon.
func WithHorizon(d time.Duration) Option {
	return func(s *Scheduler) { s.horizon = d }
}

// WithClock overrides the time source; tests pin "now" with this.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// New builds a scheduler over the given event source and notifier.
func New(src Source, notifier Notifier, opts ...Option) *Scheduler {
	s := &Scheduler{
		src:      src,
		notifier: notifier,
		horizon:  DefaultHorizon,
		now:      time.Now,
		timers:   make(map[string]*time.Timer),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RescheduleAll cancels every pending timer and recomputes reminders
// from the current index. Called after every store mutation and
// periodically so the horizon rolls forward.
func (s *Scheduler) RescheduleAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelAllLocked()

	now := s.now()
	scheduled := 0
	for _, bucket := range s.src.All() {
		for _, ev := range bucket {
			fire, ok := NextFire(ev, now)
			if !ok {
				continue
			}
			delay := fire.Sub(now)
			if delay <= 0 || delay > s.horizon {
				continue
			}
			s.scheduleLocked(ev, fire, delay)
			scheduled++
		}
	}
	appLog.Debug("reminders rescheduled", "pending", scheduled)
}

// Pending returns the number of currently scheduled timers.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Stop cancels all pending timers.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelAllLocked()
}

func (s *Scheduler) cancelAllLocked() {
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
}

func (s *Scheduler) scheduleLocked(ev model.Event, fire time.Time, delay time.Duration) {
	id := ev.ID
	msg := Message(ev, fire)
	var t *time.Timer
	t = time.AfterFunc(delay, func() { s.fire(id, t, msg) })
	s.timers[id] = t
}

// fire delivers a timer's notification. A callback can observe a
// reschedule that replaced its registration while it waited on the
// mutex; such a superseded timer must neither remove the replacement's
// handle nor deliver its stale message.
func (s *Scheduler) fire(id string, t *time.Timer, msg string) {
	s.mu.Lock()
	current, ok := s.timers[id]
	if !ok || current != t {
		s.mu.Unlock()
		return
	}
	delete(s.timers, id)
	s.mu.Unlock()
	s.notifier.Notify(msg)
}

// Message formats the user-visible reminder text for an instance
// starting at fire.
func Message(ev model.Event, fire time.Time) string {
	return fmt.Sprintf("Reminder: Event %q is starting now at %s!", ev.Name, fire.Format("3:04 PM"))
}

// NextFire computes the next instance start at or after "now" for a
// timed event, honoring the event's recurrence. It reports false for
// all-day events and for events whose next instance is not strictly in
// the future.
//
// The search starts from the recurrence anchor. Yearly and monthly
// anchors far in the past are fast-forwarded to the current year/month
// first; day-of-month overflow in that jump normalizes forward exactly
// the way the reference implementation's date type did.
func NextFire(ev model.Event, now time.Time) (time.Time, bool) {
	if ev.AllDay || ev.StartTime == nil {
		return time.Time{}, false
	}

	loc := now.Location()
	st := *ev.StartTime
	cand := ev.StartDate.In(loc, st.Hour, st.Minute)

	switch ev.Repeat {
	case model.RepeatYearly:
		if cand.Year() < now.Year() {
			cand = time.Date(now.Year(), cand.Month(), cand.Day(), st.Hour, st.Minute, 0, 0, loc)
		}
	case model.RepeatMonthly:
		if cand.Year() < now.Year() ||
			(cand.Year() == now.Year() && cand.Month() < now.Month()) {
			cand = time.Date(now.Year(), now.Month(), cand.Day(), st.Hour, st.Minute, 0, 0, loc)
		}
	}

	if ev.Repeat != model.RepeatNone && ev.Repeat != "" {
		limit := now.Add(maxAdvance)
		for cand.Before(now.Add(-lateGrace)) && cand.Before(limit) {
			switch ev.Repeat {
			case model.RepeatDaily:
				cand = cand.AddDate(0, 0, 1)
			case model.RepeatWeekly:
				cand = cand.AddDate(0, 0, 7)
			case model.RepeatMonthly:
				cand = cand.AddDate(0, 1, 0)
			case model.RepeatYearly:
				cand = cand.AddDate(1, 0, 0)
			}
		}
	}

	if !cand.After(now) {
		return time.Time{}, false
	}
	return cand, true
}
