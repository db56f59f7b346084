// Package ui implements the terminal browser over a task store: a live
// entity list driven by query views, a markdown detail pane, and an event
// feed fed by the store's broker.
package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

var (
	// Text hierarchy
	textPrimaryColor   = lipgloss.AdaptiveColor{Light: "#1A1A1A", Dark: "#CCCCCC"}
	textSecondaryColor = lipgloss.AdaptiveColor{Light: "#555555", Dark: "#BBBBBB"}
	textMutedColor     = lipgloss.AdaptiveColor{Light: "#888888", Dark: "#696969"}

	// Borders
	borderDefaultColor = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#696969"}
	borderFocusColor   = lipgloss.AdaptiveColor{Light: "#3498DB", Dark: "#54A0FF"}

	// Feed event colors
	addedColor   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}
	updatedColor = lipgloss.AdaptiveColor{Light: "#FECA57", Dark: "#FECA57"}
	removedColor = lipgloss.AdaptiveColor{Light: "#FF6B6B", Dark: "#FF8787"}

	// Word diff colors
	diffOldColor = lipgloss.AdaptiveColor{Light: "#D20F39", Dark: "#F38BA8"}
	diffNewColor = lipgloss.AdaptiveColor{Light: "#40A02B", Dark: "#A6E3A1"}

	selectedRowStyle = lipgloss.NewStyle().Bold(true).
				Foreground(lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#FFFFFF"}).
				Background(lipgloss.AdaptiveColor{Light: "#3498DB", Dark: "#1A5276"})
	rowStyle       = lipgloss.NewStyle().Foreground(textPrimaryColor)
	rowKeyStyle    = lipgloss.NewStyle().Foreground(textSecondaryColor)
	countStyle     = lipgloss.NewStyle().Foreground(textMutedColor)
	activeTabStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	tabStyle       = lipgloss.NewStyle().Foreground(textMutedColor)

	paneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(borderDefaultColor)
	focusedPaneStyle = paneStyle.BorderForeground(borderFocusColor)

	feedTimeStyle    = lipgloss.NewStyle().Foreground(textMutedColor)
	feedAddedStyle   = lipgloss.NewStyle().Foreground(addedColor)
	feedUpdatedStyle = lipgloss.NewStyle().Foreground(updatedColor)
	feedRemovedStyle = lipgloss.NewStyle().Foreground(removedColor)
	diffOldStyle     = lipgloss.NewStyle().Strikethrough(true).Foreground(diffOldColor)
	diffNewStyle     = lipgloss.NewStyle().Foreground(diffNewColor)

	helpStyle = lipgloss.NewStyle().Foreground(textMutedColor)
)

// resolveMarkdownStyle maps the configured markdown style to a glamour style
// name, falling back to terminal background detection when unset.
func resolveMarkdownStyle(configured string) string {
	switch configured {
	case "dark", "light":
		return configured
	}
	if termenv.HasDarkBackground() {
		return "dark"
	}
	return "light"
}
