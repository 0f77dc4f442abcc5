package calendar

import (
	"time"

	"peoplepulse/internal/model"
)

// Navigator holds the focus date and view of a calendar and moves them.
// It is not safe for concurrent use.
type Navigator struct {
	focus     time.Time
	view      View
	weekStart time.Weekday

	onFocus  []func(time.Time)
	onPeriod []func(time.Time)
}

func NewNavigator(focus time.Time, view View, weekStart time.Weekday) *Navigator {
	return &Navigator{focus: focus, view: view, weekStart: weekStart}
}

func (n *Navigator) Focus() time.Time { return n.focus }
func (n *Navigator) View() View { return n.view }
func (n *Navigator) WeekStart() time.Weekday { return n.weekStart }

// OnFocusChange registers fn for the new focus date after each navigation.
func (n *Navigator) OnFocusChange(fn func(time.Time)) {
	n.onFocus = append(n.onFocus, fn)
}

// OnPeriodChange registers fn for the anchor of the newly displayed period:
// the first of the month, the first day of the week, or the day itself.
func (n *Navigator) OnPeriodChange(fn func(time.Time)) {
	n.onPeriod = append(n.onPeriod, fn)
}

func (n *Navigator) SetView(v View) {
	n.view = v
}

// SetFocus moves the focus without emitting. It reports whether the focus
// landed on a different day.
func (n *Navigator) SetFocus(t time.Time) bool {
	if SameDay(n.focus, t) {
		return false
	}
	n.focus = t
	return true
}

// Reset returns the focus to today.
func (n *Navigator) Reset(today time.Time) {
	n.focus = today
}

func (n *Navigator) Next() { n.step(1) }
func (n *Navigator) Prev() { n.step(-1) }

// PeriodStart is the anchor emitted to OnPeriodChange for the current focus.
func (n *Navigator) PeriodStart() time.Time {
	switch n.view {
	case ViewWeek:
		return StartOfWeek(n.focus, n.weekStart)
	case ViewDay:
		return StartOfDay(n.focus)
	default:
		return StartOfMonth(n.focus)
	}
}

// Grid builds the grid for the current focus and view.
func (n *Navigator) Grid(events []model.Event, opts GridOptions) Grid {
	opts.WeekStart = n.weekStart
	return BuildGrid(n.focus, n.view, events, opts)
}

func (n *Navigator) step(dir int) {
	switch n.view {
	case ViewWeek:
		n.focus = n.focus.AddDate(0, 0, 7*dir)
	case ViewDay:
		n.focus = n.focus.AddDate(0, 0, dir)
	default:
		n.focus = AddMonths(n.focus, dir)
	}

	anchor := n.PeriodStart()
	for _, fn := range n.onPeriod {
		fn(anchor)
	}
	for _, fn := range n.onFocus {
		fn(n.focus)
	}
}
