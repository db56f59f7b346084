package ui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/muesli/reflow/wordwrap"

	"github.com/karbon0x/clientdb/internal/entity"
	"github.com/karbon0x/clientdb/internal/pubsub"
	"github.com/karbon0x/clientdb/internal/store"
)

// feedCapacity bounds the number of retained feed lines.
const feedCapacity = 100

// eventFeed renders the most recent store lifecycle events, newest last.
// Update events show a word diff per changed field.
type eventFeed struct {
	lines []string
	width int
}

func newEventFeed(width int) *eventFeed {
	return &eventFeed{width: width}
}

// SetWidth adjusts the wrap width for subsequently pushed lines.
func (f *eventFeed) SetWidth(width int) {
	f.width = width
}

// Push formats and retains one event.
func (f *eventFeed) Push(ev pubsub.Event[store.ItemEvent]) {
	line := f.format(ev)
	if line == "" {
		return
	}
	if f.width > 4 {
		line = wordwrap.String(line, f.width)
	}
	f.lines = append(f.lines, line)
	if len(f.lines) > feedCapacity {
		f.lines = f.lines[len(f.lines)-feedCapacity:]
	}
}

// View renders the last n feed lines.
func (f *eventFeed) View(n int) string {
	start := len(f.lines) - n
	if start < 0 {
		start = 0
	}
	return strings.Join(f.lines[start:], "\n")
}

// Len returns the number of retained lines.
func (f *eventFeed) Len() int {
	return len(f.lines)
}

func (f *eventFeed) format(ev pubsub.Event[store.ItemEvent]) string {
	stamp := feedTimeStyle.Render(ev.Timestamp.Format("15:04:05"))
	key := rowKeyStyle.Render(ev.Payload.Entity.Key())
	src := ""
	if ev.Payload.Source == pubsub.SourceSync {
		src = feedTimeStyle.Render(" (sync)")
	}

	switch ev.Type {
	case pubsub.ItemAdded:
		return fmt.Sprintf("%s %s %s%s", stamp, feedAddedStyle.Render("added"), key, src)
	case pubsub.ItemRemoved:
		return fmt.Sprintf("%s %s %s%s", stamp, feedRemovedStyle.Render("removed"), key, src)
	case pubsub.ItemUpdated:
		changes := formatChanges(ev.Payload.Entity, ev.Payload.DataBefore)
		if changes == "" {
			return fmt.Sprintf("%s %s %s%s", stamp, feedUpdatedStyle.Render("updated"), key, src)
		}
		return fmt.Sprintf("%s %s %s%s: %s", stamp, feedUpdatedStyle.Render("updated"), key, src, changes)
	default:
		// ItemWillUpdate is a mutation hook, not feed material.
		return ""
	}
}

// formatChanges diffs the entity's current data against the pre-update
// snapshot, one "field: diff" segment per changed field in name order.
func formatChanges(e *entity.Entity, before map[string]any) string {
	current := e.Snapshot()

	fields := make([]string, 0, len(current))
	seen := make(map[string]struct{}, len(current))
	for k := range current {
		fields = append(fields, k)
		seen[k] = struct{}{}
	}
	for k := range before {
		if _, ok := seen[k]; !ok {
			fields = append(fields, k)
		}
	}
	sort.Strings(fields)

	var parts []string
	for _, field := range fields {
		prev, next := before[field], current[field]
		if entity.EqualValues(prev, next) {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s",
			field, diffValues(entity.FormatValue(prev), entity.FormatValue(next))))
	}
	return strings.Join(parts, ", ")
}
