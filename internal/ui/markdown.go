package ui

import (
	"github.com/charmbracelet/glamour"
)

// noMarginStyle strips document margins so rendered markdown sits flush in
// the detail pane.
const noMarginStyle = `{
	"document": {
		"margin": 0,
		"block_prefix": "",
		"block_suffix": ""
	}
}`

// markdownRenderer wraps glamour with pane-specific configuration.
type markdownRenderer struct {
	renderer *glamour.TermRenderer
	width    int
}

// newMarkdownRenderer creates a renderer wrapping at width using the given
// glamour style name.
func newMarkdownRenderer(width int, style string) (*markdownRenderer, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithStylesFromJSONBytes([]byte(noMarginStyle)),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, err
	}
	return &markdownRenderer{renderer: r, width: width}, nil
}

// Render transforms markdown to styled terminal output.
func (r *markdownRenderer) Render(markdown string) (string, error) {
	return r.renderer.Render(markdown)
}
