package calendar

import (
	"sync"
	"time"

	appLog "peoplepulse/internal/log"
	"peoplepulse/internal/model"
)

// Observer receives the complete event collection after every mutation.
// The slice is shared between observers and must not be modified.
type Observer func(events []model.Event)

// Store owns the canonical, ordered collection of base events.
//
// Every mutation replaces the collection and then broadcasts a snapshot to
// all observers before the next mutation may start. Observers may read the
// store while handling a notification but must not mutate it.
type Store struct {
	// writeMu serializes mutate+broadcast sequences.
	writeMu sync.Mutex

	mu        sync.RWMutex
	events    []model.Event
	observers []subscription
	nextObs   int
}

type subscription struct {
	id int
	fn Observer
}

// NewStore creates a store seeded with the given events.
func NewStore(initial ...model.Event) *Store {
	return &Store{
		events: cloneEvents(initial),
	}
}

// Events returns a copy of the current collection.
func (s *Store) Events() []model.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneEvents(s.events)
}

// Len returns the number of base events.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

// Get returns the first event with the given id.
func (s *Store) Get(id string) (model.Event, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ev := range s.events {
		if ev.ID == id {
			return ev, true
		}
	}
	return model.Event{}, false
}

// Subscribe registers fn and immediately delivers the current snapshot to
// it. The returned function unregisters fn.
func (s *Store) Subscribe(fn Observer) (cancel func()) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	id := s.nextObs
	s.nextObs++
	s.observers = append(s.observers, subscription{id: id, fn: fn})
	snap := cloneEvents(s.events)
	s.mu.Unlock()

	fn(snap)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, sub := range s.observers {
				if sub.id == id {
					s.observers = append(s.observers[:i:i], s.observers[i+1:]...)
					return
				}
			}
		})
	}
}

// Add appends ev. Uniqueness of ids is the caller's concern.
func (s *Store) Add(ev model.Event) {
	s.mutate(func(events []model.Event) []model.Event {
		return append(events, ev)
	})
}

// Update replaces the first event whose ID matches ev.ID. An unknown ID
// leaves the collection unchanged; observers are notified either way.
func (s *Store) Update(ev model.Event) bool {
	found := false
	s.mutate(func(events []model.Event) []model.Event {
		for i := range events {
			if events[i].ID == ev.ID {
				events[i] = ev
				found = true
				break
			}
		}
		return events
	})
	return found
}

// Delete removes the first event with the given id.
func (s *Store) Delete(id string) bool {
	found := false
	s.mutate(func(events []model.Event) []model.Event {
		for i := range events {
			if events[i].ID == id {
				found = true
				return append(events[:i], events[i+1:]...)
			}
		}
		return events
	})
	return found
}

// ReplaceAll swaps in an entirely new collection.
func (s *Store) ReplaceAll(events []model.Event) {
	s.mutate(func([]model.Event) []model.Event {
		return cloneEvents(events)
	})
}

// ReplaceSource replaces the events tagged with source, leaving everything
// else where it was. Replacement events are tagged with source.
func (s *Store) ReplaceSource(source string, events []model.Event) {
	s.mutate(func(current []model.Event) []model.Event {
		kept := current[:0]
		for _, ev := range current {
			if ev.Source != source {
				kept = append(kept, ev)
			}
		}
		for _, ev := range events {
			ev.Source = source
			kept = append(kept, ev)
		}
		return kept
	})
}

// FilterByType returns the events whose Type is one of types, without
// touching the stored collection. No types means no filtering; an untyped
// event only matches the unfiltered case.
func (s *Store) FilterByType(types ...string) []model.Event {
	return FilterByType(s.Events(), types...)
}

// RetainType narrows the stored collection to events of type t.
//
// Deprecated: this discards every other event permanently. Use FilterByType.
func (s *Store) RetainType(t string) {
	appLog.Warn("store: destructive type narrowing requested", "type", t)
	s.mutate(func(events []model.Event) []model.Event {
		return FilterByType(events, t)
	})
}

// Occurrences expands the stored event id up to until.
func (s *Store) Occurrences(id string, until time.Time, max int) ([]model.Occurrence, bool) {
	ev, ok := s.Get(id)
	if !ok {
		return nil, false
	}
	return Expand(ev, until, max), true
}

// EventsForDate returns every occurrence landing on date's calendar day,
// optionally restricted to the given types.
func (s *Store) EventsForDate(date time.Time, max int, types ...string) []model.Occurrence {
	return OccurrencesOn(s.Events(), date, max, types...)
}

func (s *Store) mutate(fn func([]model.Event) []model.Event) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	s.events = fn(cloneEvents(s.events))
	snap := cloneEvents(s.events)
	observers := make([]Observer, 0, len(s.observers))
	for _, sub := range s.observers {
		observers = append(observers, sub.fn)
	}
	s.mu.Unlock()

	for _, o := range observers {
		o(snap)
	}
}

// FilterByType is the pure form of Store.FilterByType.
func FilterByType(events []model.Event, types ...string) []model.Event {
	if len(types) == 0 {
		return cloneEvents(events)
	}
	out := make([]model.Event, 0, len(events))
	for _, ev := range events {
		if matchesType(ev.Type, types) {
			out = append(out, ev)
		}
	}
	return out
}

// OccurrencesOn expands events through the end of date's day and keeps the
// occurrences that start on that day.
func OccurrencesOn(events []model.Event, date time.Time, max int, types ...string) []model.Occurrence {
	until := EndOfDay(date)
	var out []model.Occurrence
	for _, ev := range events {
		if len(types) > 0 && !matchesType(ev.Type, types) {
			continue
		}
		for _, occ := range Expand(ev, until, max) {
			if SameDay(date, occ.Start) {
				out = append(out, occ)
			}
		}
	}
	return out
}

func matchesType(t string, types []string) bool {
	if t == "" {
		return false
	}
	for _, want := range types {
		if t == want {
			return true
		}
	}
	return false
}

func cloneEvents(events []model.Event) []model.Event {
	if events == nil {
		return []model.Event{}
	}
	out := make([]model.Event, len(events))
	copy(out, events)
	return out
}
