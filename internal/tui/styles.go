package tui

import (
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

var (
	accent  = lipgloss.AdaptiveColor{Light: "#5A56E0", Dark: "#7D79F6"}
	subtle  = lipgloss.AdaptiveColor{Light: "#8A8A8A", Dark: "#6C6C6C"}
	danger  = lipgloss.AdaptiveColor{Light: "#D9383A", Dark: "#F25D5F"}
	border  = lipgloss.AdaptiveColor{Light: "#D0D0D0", Dark: "#3C3C3C"}
	surface = lipgloss.AdaptiveColor{Light: "#EDEDED", Dark: "#2A2A2A"}

	titleStyle  = lipgloss.NewStyle().Foreground(accent).Bold(true)
	subtleStyle = lipgloss.NewStyle().Foreground(subtle)
	errorStyle  = lipgloss.NewStyle().Foreground(danger)
)

func tableColumns() []table.Column {
	return []table.Column{
		{Title: " ", Width: 2},
		{Title: "Service", Width: 24},
		{Title: "Status", Width: 14},
		{Title: "PID", Width: 10},
	}
}

func tableStyles() table.Styles {
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(border).
		BorderBottom(true).
		Foreground(accent).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.NoColor{}).
		Background(surface).
		Bold(true)
	return s
}
