// Package report renders recorded runs and replay outcomes for people:
// styled terminal text, markdown, or plain text when output is not a
// terminal.
package report

import "github.com/charmbracelet/lipgloss"

// Color palette
var (
	colorPrimary = lipgloss.Color("#7c3aed")
	colorMuted   = lipgloss.Color("#6b7280")
	colorSuccess = lipgloss.Color("#10b981")
	colorError   = lipgloss.Color("#ef4444")
	colorBorder  = lipgloss.Color("#374151")
)

// Base styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary)

	labelStyle = lipgloss.NewStyle().
			Foreground(colorMuted).
			Width(18)

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			MarginTop(1)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1)

	okStyle = lipgloss.NewStyle().
		Foreground(colorSuccess).
		Bold(true)

	failStyle = lipgloss.NewStyle().
			Foreground(colorError).
			Bold(true)
)

// styler applies styles only when color output is enabled.
type styler struct {
	color bool
}

func (s styler) render(style lipgloss.Style, text string) string {
	if !s.color {
		return text
	}
	return style.Render(text)
}

func (s styler) label(text string) string {
	if !s.color {
		return text + ": "
	}
	return labelStyle.Render(text)
}
