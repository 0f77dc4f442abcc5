package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"peoplepulse/internal/model"
)

func ids(events []model.Event) []string {
	out := make([]string, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.ID)
	}
	return out
}

func TestStoreBroadcastsFullSnapshotOnEveryMutation(t *testing.T) {
	store := NewStore()
	var snapshots [][]string
	cancel := store.Subscribe(func(events []model.Event) {
		snapshots = append(snapshots, ids(events))
	})
	defer cancel()

	store.Add(model.Event{ID: "a", Title: "A", Start: day(2024, 1, 1)})
	store.Add(model.Event{ID: "b", Title: "B", Start: day(2024, 1, 2)})
	store.Delete("a")
	store.ReplaceAll([]model.Event{{ID: "c", Title: "C", Start: day(2024, 1, 3)}})

	assert.Equal(t, [][]string{{}, {"a"}, {"a", "b"}, {"b"}, {"c"}}, snapshots)
}

func TestStoreUpdateReplacesFirstMatchWholesale(t *testing.T) {
	store := NewStore(
		model.Event{ID: "a", Title: "Old", Color: "#fff", Start: day(2024, 1, 1)},
		model.Event{ID: "a", Title: "Twin", Start: day(2024, 1, 2)},
	)

	ok := store.Update(model.Event{ID: "a", Title: "New", Start: day(2024, 2, 1)})
	require.True(t, ok)

	events := store.Events()
	assert.Equal(t, "New", events[0].Title)
	assert.Empty(t, events[0].Color)
	assert.Equal(t, "Twin", events[1].Title)
}

func TestStoreUnknownIDIsSilentNoOp(t *testing.T) {
	store := NewStore(model.Event{ID: "a", Title: "A", Start: day(2024, 1, 1)})
	notified := 0
	store.Subscribe(func([]model.Event) { notified++ })

	assert.False(t, store.Update(model.Event{ID: "missing", Title: "X"}))
	assert.False(t, store.Delete("missing"))
	assert.Equal(t, []string{"a"}, ids(store.Events()))
	assert.Equal(t, 3, notified)
}

func TestStoreDeleteRemovesOnlyFirstMatch(t *testing.T) {
	store := NewStore(
		model.Event{ID: "a", Title: "1"},
		model.Event{ID: "a", Title: "2"},
	)
	require.True(t, store.Delete("a"))
	events := store.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "2", events[0].Title)
}

func TestStoreFilterByTypeDoesNotMutate(t *testing.T) {
	store := NewStore(
		model.Event{ID: "a", Type: "meeting"},
		model.Event{ID: "b", Type: "task"},
		model.Event{ID: "c"},
	)

	assert.Equal(t, []string{"a"}, ids(store.FilterByType("meeting")))
	assert.Equal(t, []string{"a", "b"}, ids(store.FilterByType("meeting", "task")))
	assert.Equal(t, []string{"a", "b", "c"}, ids(store.FilterByType()))
	assert.Empty(t, store.FilterByType(""))
	assert.Equal(t, 3, store.Len())
}

func TestStoreRetainTypeNarrowsCollection(t *testing.T) {
	store := NewStore(
		model.Event{ID: "a", Type: "meeting"},
		model.Event{ID: "b", Type: "task"},
	)
	store.RetainType("task")
	assert.Equal(t, []string{"b"}, ids(store.Events()))
}

func TestStoreReplaceSourceKeepsOtherSources(t *testing.T) {
	store := NewStore(
		model.Event{ID: "m1", Source: model.SourceManual},
		model.Event{ID: "h1", Source: model.SourceHR},
		model.Event{ID: "m2", Source: model.SourceManual},
	)

	store.ReplaceSource(model.SourceHR, []model.Event{{ID: "h2"}, {ID: "h3"}})

	events := store.Events()
	assert.Equal(t, []string{"m1", "m2", "h2", "h3"}, ids(events))
	assert.Equal(t, model.SourceHR, events[3].Source)
}

func TestStoreSnapshotsAreIndependentCopies(t *testing.T) {
	store := NewStore(model.Event{ID: "a", Title: "A"})
	snap := store.Events()
	snap[0].Title = "changed"
	assert.Equal(t, "A", store.Events()[0].Title)
}

func TestStoreCancelStopsNotifications(t *testing.T) {
	store := NewStore()
	calls := 0
	cancel := store.Subscribe(func([]model.Event) { calls++ })
	cancel()
	cancel()
	store.Add(model.Event{ID: "a"})
	assert.Equal(t, 1, calls)
}

func TestDeleteDoesNotTouchMaterializedOccurrences(t *testing.T) {
	store := NewStore(model.Event{ID: "d", Title: "Daily", Start: day(2024, 1, 1), Recurrence: model.RecurrenceDaily})

	cached, ok := store.Occurrences("d", day(2024, 1, 5), 0)
	require.True(t, ok)
	require.Len(t, cached, 5)

	store.Delete("d")

	_, ok = store.Occurrences("d", day(2024, 1, 5), 0)
	assert.False(t, ok)
	assert.Empty(t, store.EventsForDate(day(2024, 1, 3), 0))
	assert.Len(t, cached, 5)
	assert.Equal(t, "d", cached[2].BaseID)
}

func TestEventsForDate(t *testing.T) {
	store := NewStore(
		model.Event{ID: "standup", Type: "meeting", Start: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC), Recurrence: model.RecurrenceDaily},
		model.Event{ID: "report", Type: "task", Start: time.Date(2024, 1, 3, 15, 0, 0, 0, time.UTC)},
		model.Event{ID: "untyped", Start: time.Date(2024, 1, 3, 8, 0, 0, 0, time.UTC)},
	)

	got := store.EventsForDate(day(2024, 1, 3), 0)
	require.Len(t, got, 3)
	assert.Equal(t, "standup", got[0].BaseID)
	assert.True(t, SameDay(day(2024, 1, 3), got[0].Start))

	got = store.EventsForDate(day(2024, 1, 3), 0, "meeting")
	require.Len(t, got, 1)
	assert.Equal(t, "standup", got[0].BaseID)
}
