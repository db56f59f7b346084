package ui

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// valueDiffMaxLength skips word diffing for values longer than this; the
// feed line would be unreadable anyway.
const valueDiffMaxLength = 200

// diffValues renders an inline old/new transition for one changed field.
// Short scalar values get a word-level diff; long or multiline values fall
// back to a plain "old -> new" form.
func diffValues(prev, next string) string {
	if len(prev) > valueDiffMaxLength || len(next) > valueDiffMaxLength ||
		strings.ContainsRune(prev, '\n') || strings.ContainsRune(next, '\n') {
		return diffOldStyle.Render(firstLine(prev)) + " " + diffNewStyle.Render(firstLine(next))
	}

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(prev, next, false)
	diffs = dmp.DiffCleanupSemantic(diffs)

	var b strings.Builder
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			b.WriteString(diffOldStyle.Render(d.Text))
		case diffmatchpatch.DiffInsert:
			b.WriteString(diffNewStyle.Render(d.Text))
		default:
			b.WriteString(d.Text)
		}
	}
	return b.String()
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + "…"
	}
	return s
}
