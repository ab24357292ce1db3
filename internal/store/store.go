// Package store owns the canonical event index: a map from the day key
// of each event's original start date to the events starting that day.
// The whole index is the unit of persistence; every mutation saves it
// wholesale and triggers a full reminder reschedule.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	appLog "minical/internal/log"
	"minical/internal/model"
	"minical/internal/storage"
)

var (
	// ErrNotFound is reported by Update/Remove/Get for an unknown ID.
	ErrNotFound = errors.New("event not found")
	// ErrPersist wraps backend save failures. The in-memory index has
	// already been updated when this is returned; only durability is in
	// doubt.
	ErrPersist = errors.New("persist event index")
)

// Rescheduler is notified after every successful in-memory mutation.
// The reminder scheduler implements it.
type Rescheduler interface {
	RescheduleAll()
}

// Store is the event store. One mutex guards the index; mutations are
// atomic with respect to readers in this process. Concurrent processes
// sharing a backend race last-write-wins.
type Store struct {
	backend storage.Backend

	mu    sync.Mutex
	index model.Index
	byID  map[string]string // event ID -> bucket day key
	sched Rescheduler
	newID func() string
}

// Open loads the persisted index from the backend. A missing payload or
// corrupt JSON falls back to an empty index — startup never fails on
// bad stored data, it only loses it.
func Open(ctx context.Context, backend storage.Backend) (*Store, error) {
	s := &Store{
		backend: backend,
		index:   make(model.Index),
		byID:    make(map[string]string),
		newID:   uuid.NewString,
	}

	data, err := backend.Load(ctx)
	if err != nil {
		appLog.Error("store: loading index failed, starting empty", err)
		return s, nil
	}
	if len(data) == 0 {
		return s, nil
	}

	var index model.Index
	if err := json.Unmarshal(data, &index); err != nil {
		appLog.Error("store: stored index is corrupt, starting empty", err)
		return s, nil
	}

	dropped := 0
	for key, bucket := range index {
		for _, ev := range bucket {
			if err := validateStored(ev); err != nil {
				appLog.Error("store: dropping invalid stored event", err, "event_id", ev.ID, "bucket", key)
				dropped++
				continue
			}
			if _, dup := s.byID[ev.ID]; dup {
				appLog.Error("store: dropping stored event with duplicate id", nil, "event_id", ev.ID, "bucket", key)
				dropped++
				continue
			}
			s.index[key] = append(s.index[key], ev)
			s.byID[ev.ID] = key
		}
	}
	appLog.Info("store: index loaded", "buckets", len(s.index), "events", len(s.byID), "dropped", dropped)
	return s, nil
}

// validateStored runs a loaded event through the same invariants as an
// incoming draft. Stored data that violates them (hand-edited files,
// writers with other rules) would otherwise reach readers that assume
// the invariants hold.
func validateStored(ev model.Event) error {
	if ev.ID == "" {
		return errors.New("missing event id")
	}
	return ev.Draft().Validate()
}

// SetRescheduler wires the reminder scheduler. Must be called before
// the store is shared across goroutines.
func (s *Store) SetRescheduler(r Rescheduler) {
	s.sched = r
}

// Add validates the draft, assigns a fresh ID, inserts the event under
// its start-date bucket and persists. On a validation error nothing is
// mutated. On a persistence error the event is returned along with an
// ErrPersist-wrapped error: the in-memory add took effect, durability
// did not.
func (s *Store) Add(ctx context.Context, draft model.Draft) (model.Event, error) {
	if err := draft.Validate(); err != nil {
		return model.Event{}, err
	}

	s.mu.Lock()
	ev := draft.Event(s.newID())
	s.insertLocked(ev)
	err := s.persistLocked(ctx)
	s.mu.Unlock()

	s.reschedule()
	return ev, err
}

// Update re-validates the draft, removes the event from its current
// bucket and reinserts it under the (possibly new) start-date bucket.
// This is a move-on-edit: the bucket key always tracks the event's
// current start date.
func (s *Store) Update(ctx context.Context, id string, draft model.Draft) (model.Event, error) {
	if err := draft.Validate(); err != nil {
		return model.Event{}, err
	}

	s.mu.Lock()
	if _, ok := s.byID[id]; !ok {
		s.mu.Unlock()
		return model.Event{}, fmt.Errorf("update %s: %w", id, ErrNotFound)
	}
	s.deleteLocked(id)
	ev := draft.Event(id)
	s.insertLocked(ev)
	err := s.persistLocked(ctx)
	s.mu.Unlock()

	s.reschedule()
	return ev, err
}

// Remove deletes the event and persists. Unknown IDs report ErrNotFound
// and leave the index untouched.
func (s *Store) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	if _, ok := s.byID[id]; !ok {
		s.mu.Unlock()
		return fmt.Errorf("remove %s: %w", id, ErrNotFound)
	}
	s.deleteLocked(id)
	err := s.persistLocked(ctx)
	s.mu.Unlock()

	s.reschedule()
	return err
}

// Get returns the stored event with the given ID.
func (s *Store) Get(id string) (model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key, ok := s.byID[id]
	if !ok {
		return model.Event{}, fmt.Errorf("get %s: %w", id, ErrNotFound)
	}
	for _, ev := range s.index[key] {
		if ev.ID == id {
			return ev, nil
		}
	}
	// byID said the bucket holds it; reaching here means the secondary
	// index drifted, which is a bug.
	return model.Event{}, fmt.Errorf("get %s: %w", id, ErrNotFound)
}

// All returns a copy of the whole index for the materializer. Buckets
// are copied so callers cannot alias the store's slices.
func (s *Store) All() model.Index {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(model.Index, len(s.index))
	for key, bucket := range s.index {
		cp := make([]model.Event, len(bucket))
		copy(cp, bucket)
		out[key] = cp
	}
	return out
}

// Len returns the number of stored events.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}

func (s *Store) insertLocked(ev model.Event) {
	key := ev.StartDate.Key()
	s.index[key] = append(s.index[key], ev)
	s.byID[ev.ID] = key
}

func (s *Store) deleteLocked(id string) {
	key := s.byID[id]
	bucket := s.index[key]
	for i, ev := range bucket {
		if ev.ID == id {
			s.index[key] = append(bucket[:i:i], bucket[i+1:]...)
			break
		}
	}
	if len(s.index[key]) == 0 {
		delete(s.index, key)
	}
	delete(s.byID, id)
}

func (s *Store) persistLocked(ctx context.Context) error {
	data, err := json.Marshal(s.index)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}
	if err := s.backend.Save(ctx, data); err != nil {
		appLog.Error("store: saving index failed; in-memory state kept", err)
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}
	return nil
}

func (s *Store) reschedule() {
	if s.sched != nil {
		s.sched.RescheduleAll()
	}
}
