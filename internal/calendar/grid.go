package calendar

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"peoplepulse/internal/model"
)

// View selects how much of the calendar a grid covers.
type View string

const (
	ViewMonth View = "month"
	ViewWeek  View = "week"
	ViewDay   View = "day"
)

var ErrInvalidView = errors.New("invalid calendar view")

func ParseView(s string) (View, error) {
	switch View(strings.ToLower(strings.TrimSpace(s))) {
	case ViewMonth, "":
		return ViewMonth, nil
	case ViewWeek:
		return ViewWeek, nil
	case ViewDay:
		return ViewDay, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidView, s)
	}
}

// ParseWeekStart accepts "sunday" or "monday"; anything else is Sunday.
func ParseWeekStart(s string) time.Weekday {
	if strings.EqualFold(strings.TrimSpace(s), "monday") {
		return time.Monday
	}
	return time.Sunday
}

// Day is one rendered grid cell.
type Day struct {
	Date         time.Time          `json:"date"`
	InFocusMonth bool               `json:"inFocusMonth"`
	IsToday      bool               `json:"isToday"`
	IsFuture     bool               `json:"isFuture"`
	Occurrences  []model.Occurrence `json:"occurrences"`
}

// Key identifies the cell for list diffing in the rendering layer.
func (d Day) Key() string {
	return dayKey(d.Date)
}

// Marker is a compact per-occurrence indicator (a coloured dot).
type Marker struct {
	ID    string `json:"id"`
	Color string `json:"color"`
}

const defaultMarkerColor = "#ddd"

func (d Day) Markers() []Marker {
	out := make([]Marker, 0, len(d.Occurrences))
	for i, occ := range d.Occurrences {
		color := occ.Color
		if color == "" {
			color = defaultMarkerColor
		}
		out = append(out, Marker{ID: fmt.Sprintf("%s_dot_%d", occ.ID, i), Color: color})
	}
	return out
}

// Grid is the ordered set of days to render for a focus date and view.
// Weeks groups Days into 7-day rows and is nil in day view.
type Grid struct {
	Focus time.Time `json:"focus"`
	View  View      `json:"view"`
	Days  []Day     `json:"days"`
	Weeks [][]Day   `json:"weeks,omitempty"`
}

// Day looks up the cell for date.
func (g Grid) Day(date time.Time) (Day, bool) {
	for _, d := range g.Days {
		if SameDay(d.Date, date) {
			return d, true
		}
	}
	return Day{}, false
}

type GridOptions struct {
	WeekStart time.Weekday
	// Today defaults to time.Now() in the focus location.
	Today          time.Time
	MaxOccurrences int
	// Types restricts occurrences to these event types when non-empty.
	Types []string
}

// Range returns the first and last day (both at midnight) covered by a grid.
// Month grids are padded out to whole weeks.
func Range(focus time.Time, view View, weekStart time.Weekday) (time.Time, time.Time) {
	switch view {
	case ViewWeek:
		return StartOfWeek(focus, weekStart), EndOfWeek(focus, weekStart)
	case ViewDay:
		return StartOfDay(focus), StartOfDay(focus)
	default:
		return StartOfWeek(StartOfMonth(focus), weekStart), EndOfWeek(EndOfMonth(focus), weekStart)
	}
}

// BuildGrid lays out the days for focus/view and buckets the occurrences of
// events onto them.
func BuildGrid(focus time.Time, view View, events []model.Event, opts GridOptions) Grid {
	today := opts.Today
	if today.IsZero() {
		today = time.Now()
	}
	today = today.In(focus.Location())

	start, end := Range(focus, view, opts.WeekStart)
	buckets := bucketOccurrences(events, start, EndOfDay(end), opts)

	g := Grid{Focus: focus, View: view}
	for _, date := range eachDay(start, end) {
		g.Days = append(g.Days, Day{
			Date:         date,
			InFocusMonth: date.Year() == focus.Year() && date.Month() == focus.Month(),
			IsToday:      SameDay(date, today),
			IsFuture:     StartOfDay(date).After(StartOfDay(today)),
			Occurrences:  buckets[dayKey(date)],
		})
	}

	if view != ViewDay {
		for i := 0; i+7 <= len(g.Days); i += 7 {
			g.Weeks = append(g.Weeks, g.Days[i:i+7])
		}
	}
	return g
}

func bucketOccurrences(events []model.Event, from, until time.Time, opts GridOptions) map[string][]model.Occurrence {
	loc := from.Location()
	buckets := make(map[string][]model.Occurrence)
	for _, ev := range events {
		if len(opts.Types) > 0 && !matchesType(ev.Type, opts.Types) {
			continue
		}
		for _, occ := range Expand(ev, until, opts.MaxOccurrences) {
			local := occ.Start.In(loc)
			if local.Before(from) || local.After(until) {
				continue
			}
			k := dayKey(local)
			buckets[k] = append(buckets[k], occ)
		}
	}
	for k := range buckets {
		sort.SliceStable(buckets[k], func(i, j int) bool {
			return buckets[k][i].Start.Before(buckets[k][j].Start)
		})
	}
	return buckets
}
