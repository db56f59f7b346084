package ui

import (
	"fmt"
	"strings"

	zone "github.com/lrstanley/bubblezone"
	"github.com/mattn/go-runewidth"

	"github.com/karbon0x/clientdb/internal/entity"
)

// rowZoneID returns the bubblezone id for a list row.
func rowZoneID(key string) string {
	return "row:" + key
}

// renderList renders the entity rows, one line each, zone-marked for mouse
// selection. Long titles are truncated to the pane width.
func renderList(items []*entity.Entity, selected, width, height int) string {
	if len(items) == 0 {
		return helpStyle.Render("no matching entities")
	}

	// Keep the selection visible when the list outgrows the pane.
	start := 0
	if selected >= height {
		start = selected - height + 1
	}
	end := start + height
	if end > len(items) {
		end = len(items)
	}

	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		e := items[i]
		title := ""
		if v, ok := e.Get("title"); ok {
			title = fmt.Sprintf("%v", v)
		}
		status := ""
		if v, ok := e.Get("status"); ok {
			status = fmt.Sprintf("%v", v)
		}

		// Truncate the title before styling; escape sequences would skew
		// the width measurement otherwise.
		avail := width - runewidth.StringWidth(e.Key()) - runewidth.StringWidth(status) - 2
		if avail < 1 {
			avail = 1
		}
		title = runewidth.Truncate(title, avail, "…")

		line := fmt.Sprintf("%s %s %s",
			rowKeyStyle.Render(e.Key()),
			title,
			countStyle.Render(status))

		if i == selected {
			line = selectedRowStyle.Render(line)
		} else {
			line = rowStyle.Render(line)
		}
		lines = append(lines, zone.Mark(rowZoneID(e.Key()), line))
	}
	return strings.Join(lines, "\n")
}
