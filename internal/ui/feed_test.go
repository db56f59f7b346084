package ui

import (
	"fmt"
	"testing"
	"time"

	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/require"

	"github.com/karbon0x/clientdb/internal/entity"
	"github.com/karbon0x/clientdb/internal/pubsub"
	"github.com/karbon0x/clientdb/internal/store"
)

func taskEntity(t *testing.T, id string, fields map[string]any) *entity.Entity {
	t.Helper()
	if fields == nil {
		fields = map[string]any{}
	}
	fields["id"] = id
	return entity.MustNew("id", fields)
}

func feedEvent(typ pubsub.EventType, payload store.ItemEvent) pubsub.Event[store.ItemEvent] {
	return pubsub.Event[store.ItemEvent]{
		Type:      typ,
		Payload:   payload,
		Timestamp: time.Date(2026, 3, 14, 12, 30, 45, 0, time.UTC),
	}
}

func TestEventFeed_AddedLine(t *testing.T) {
	f := newEventFeed(80)
	e := taskEntity(t, "task-1", nil)

	f.Push(feedEvent(pubsub.ItemAdded, store.ItemEvent{Entity: e, Source: pubsub.SourceUser}))

	line := ansi.Strip(f.View(10))
	require.Contains(t, line, "12:30:45")
	require.Contains(t, line, "added")
	require.Contains(t, line, "task-1")
	require.NotContains(t, line, "(sync)")
}

func TestEventFeed_SyncSourceIsMarked(t *testing.T) {
	f := newEventFeed(80)
	e := taskEntity(t, "task-1", nil)

	f.Push(feedEvent(pubsub.ItemRemoved, store.ItemEvent{Entity: e, Source: pubsub.SourceSync}))

	line := ansi.Strip(f.View(10))
	require.Contains(t, line, "removed")
	require.Contains(t, line, "(sync)")
}

func TestEventFeed_UpdateShowsChangedFieldsOnly(t *testing.T) {
	f := newEventFeed(200)
	e := taskEntity(t, "task-1", map[string]any{"status": "closed", "priority": int64(2)})
	before := map[string]any{"id": "task-1", "status": "open", "priority": int64(2)}

	f.Push(feedEvent(pubsub.ItemUpdated, store.ItemEvent{
		Entity:     e,
		DataBefore: before,
		Source:     pubsub.SourceUser,
	}))

	line := ansi.Strip(f.View(10))
	require.Contains(t, line, "updated")
	require.Contains(t, line, "status:")
	require.NotContains(t, line, "priority")
}

func TestEventFeed_WillUpdateIsNotFeedMaterial(t *testing.T) {
	f := newEventFeed(80)
	e := taskEntity(t, "task-1", nil)

	f.Push(feedEvent(pubsub.ItemWillUpdate, store.ItemEvent{Entity: e, Source: pubsub.SourceUser}))

	require.Zero(t, f.Len())
	require.Empty(t, f.View(10))
}

func TestEventFeed_CapacityDropsOldestLines(t *testing.T) {
	f := newEventFeed(200)
	for i := 0; i < feedCapacity+20; i++ {
		e := taskEntity(t, fmt.Sprintf("task-%d", i), nil)
		f.Push(feedEvent(pubsub.ItemAdded, store.ItemEvent{Entity: e, Source: pubsub.SourceUser}))
	}

	require.Equal(t, feedCapacity, f.Len())

	// The 20 oldest lines fall off; task-19 is the newest one dropped.
	all := ansi.Strip(f.View(feedCapacity))
	require.NotContains(t, all, "task-19\n")
	require.Contains(t, all, "task-20")
	require.Contains(t, all, fmt.Sprintf("task-%d", feedCapacity+19))
}

func TestEventFeed_ViewLimitsLineCount(t *testing.T) {
	f := newEventFeed(200)
	for _, id := range []string{"item-w", "item-x", "item-y", "item-z"} {
		f.Push(feedEvent(pubsub.ItemAdded, store.ItemEvent{Entity: taskEntity(t, id, nil), Source: pubsub.SourceUser}))
	}

	view := ansi.Strip(f.View(2))
	require.NotContains(t, view, "item-w")
	require.NotContains(t, view, "item-x")
	require.Contains(t, view, "item-y")
	require.Contains(t, view, "item-z")
}

func TestFormatChanges_NilValueRendersAsCleared(t *testing.T) {
	e := taskEntity(t, "task-1", map[string]any{"assignee": nil})
	before := map[string]any{"id": "task-1", "assignee": "alice"}

	out := ansi.Strip(formatChanges(e, before))

	require.Contains(t, out, "assignee:")
	require.Contains(t, out, "alice")
	require.Contains(t, out, entity.FormatValue(nil))
}
