package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"peoplepulse/internal/model"
)

func TestNavigatorMonthStepsEmitPeriodThenFocus(t *testing.T) {
	nav := NewNavigator(day(2024, 1, 31), ViewMonth, time.Sunday)

	var order []string
	var periods, focuses []time.Time
	nav.OnPeriodChange(func(d time.Time) {
		order = append(order, "period")
		periods = append(periods, d)
	})
	nav.OnFocusChange(func(d time.Time) {
		order = append(order, "focus")
		focuses = append(focuses, d)
	})

	nav.Next()
	assert.Equal(t, day(2024, 2, 29), nav.Focus())
	nav.Prev()
	assert.Equal(t, day(2024, 1, 29), nav.Focus())

	assert.Equal(t, []string{"period", "focus", "period", "focus"}, order)
	assert.Equal(t, []time.Time{day(2024, 2, 1), day(2024, 1, 1)}, periods)
	assert.Equal(t, []time.Time{day(2024, 2, 29), day(2024, 1, 29)}, focuses)
}

func TestNavigatorWeekAndDaySteps(t *testing.T) {
	nav := NewNavigator(day(2024, 3, 15), ViewWeek, time.Sunday)
	var periods []time.Time
	nav.OnPeriodChange(func(d time.Time) { periods = append(periods, d) })

	nav.Next()
	assert.Equal(t, day(2024, 3, 22), nav.Focus())
	assert.Equal(t, []time.Time{day(2024, 3, 17)}, periods)

	nav.SetView(ViewDay)
	nav.Prev()
	assert.Equal(t, day(2024, 3, 21), nav.Focus())
	assert.Equal(t, ViewDay, nav.View())
}

func TestNavigatorSetFocusAndReset(t *testing.T) {
	nav := NewNavigator(day(2024, 3, 15), ViewMonth, time.Sunday)
	emitted := 0
	nav.OnFocusChange(func(time.Time) { emitted++ })

	assert.False(t, nav.SetFocus(time.Date(2024, 3, 15, 18, 0, 0, 0, time.UTC)))
	assert.True(t, nav.SetFocus(day(2024, 4, 2)))
	nav.Reset(day(2024, 5, 5))
	assert.Equal(t, day(2024, 5, 5), nav.Focus())
	assert.Zero(t, emitted)
}

func TestNavigatorGridUsesWeekStart(t *testing.T) {
	nav := NewNavigator(day(2024, 3, 15), ViewWeek, time.Monday)
	g := nav.Grid([]model.Event{{ID: "a", Start: day(2024, 3, 11)}}, GridOptions{WeekStart: time.Sunday})
	require.Len(t, g.Days, 7)
	assert.Equal(t, day(2024, 3, 11), g.Days[0].Date)
	assert.Len(t, g.Days[0].Occurrences, 1)
}

func TestSelectionEmitsOnlyOnDayChange(t *testing.T) {
	sel := NewSelection()
	var emitted []time.Time
	sel.OnSelect(func(d time.Time) { emitted = append(emitted, d) })

	assert.True(t, sel.Select(time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)))
	assert.False(t, sel.Select(time.Date(2024, 3, 5, 17, 0, 0, 0, time.UTC)))
	require.Len(t, emitted, 1)

	selected, ok := sel.Selected()
	require.True(t, ok)
	assert.Equal(t, 17, selected.Hour())
}

func TestSelectionExpansionToggles(t *testing.T) {
	sel := NewSelection()
	a, b := day(2024, 3, 5), day(2024, 3, 6)

	sel.ToggleExpand(a)
	sel.ToggleExpand(a)
	_, ok := sel.Expanded()
	assert.False(t, ok)

	sel.ToggleExpand(a)
	sel.ToggleExpand(b)
	got, ok := sel.Expanded()
	require.True(t, ok)
	assert.Equal(t, b, got)
	assert.False(t, sel.IsExpanded(a))
	assert.True(t, sel.IsExpanded(b))
}

func TestSelectTogglesExpansionOfSameDay(t *testing.T) {
	sel := NewSelection()
	a := day(2024, 3, 5)
	sel.Select(a)
	assert.True(t, sel.IsExpanded(a))
	sel.Select(a)
	assert.False(t, sel.IsExpanded(a))
}

func TestExpandedOccurrences(t *testing.T) {
	events := []model.Event{{ID: "a", Start: time.Date(2024, 3, 13, 10, 0, 0, 0, time.UTC)}}
	g := BuildGrid(day(2024, 3, 13), ViewMonth, events, GridOptions{})
	sel := NewSelection()

	assert.Nil(t, sel.ExpandedOccurrences(g))
	sel.Select(day(2024, 3, 13))
	occ := sel.ExpandedOccurrences(g)
	require.Len(t, occ, 1)
	assert.Equal(t, "a", occ[0].ID)
	assert.True(t, sel.WeekExpanded(g.Weeks[2]))
	assert.False(t, sel.WeekExpanded(g.Weeks[0]))
}
