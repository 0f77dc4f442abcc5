package calendar

import (
	"time"

	"peoplepulse/internal/model"
)

// Selection tracks the selected day and the expanded day independently.
// At most one day is expanded at a time. Not safe for concurrent use.
type Selection struct {
	selected    time.Time
	hasSelected bool

	expanded    time.Time
	hasExpanded bool

	onSelect []func(time.Time)
}

func NewSelection() *Selection {
	return &Selection{}
}

// OnSelect registers fn for selection changes.
func (s *Selection) OnSelect(fn func(time.Time)) {
	s.onSelect = append(s.onSelect, fn)
}

// Select records day as selected and toggles its expansion. Listeners are
// notified only when day differs from the previous selection; the return
// value reports whether they were.
func (s *Selection) Select(day time.Time) bool {
	changed := !s.hasSelected || !SameDay(s.selected, day)
	s.selected = day
	s.hasSelected = true
	if changed {
		for _, fn := range s.onSelect {
			fn(day)
		}
	}
	s.ToggleExpand(day)
	return changed
}

// ToggleExpand collapses day if it is the expanded day and otherwise makes
// it the expanded day.
func (s *Selection) ToggleExpand(day time.Time) {
	if s.hasExpanded && SameDay(s.expanded, day) {
		s.expanded = time.Time{}
		s.hasExpanded = false
		return
	}
	s.expanded = day
	s.hasExpanded = true
}

func (s *Selection) Selected() (time.Time, bool) {
	return s.selected, s.hasSelected
}

func (s *Selection) Expanded() (time.Time, bool) {
	return s.expanded, s.hasExpanded
}

func (s *Selection) IsExpanded(day time.Time) bool {
	return s.hasExpanded && SameDay(s.expanded, day)
}

// WeekExpanded reports whether the expanded day is in week.
func (s *Selection) WeekExpanded(week []Day) bool {
	for _, d := range week {
		if s.IsExpanded(d.Date) {
			return true
		}
	}
	return false
}

// ExpandedOccurrences returns the occurrences of the expanded day in g, or
// nil when nothing is expanded.
func (s *Selection) ExpandedOccurrences(g Grid) []model.Occurrence {
	if !s.hasExpanded {
		return nil
	}
	d, ok := g.Day(s.expanded)
	if !ok {
		return nil
	}
	return d.Occurrences
}
