package render

import "github.com/charmbracelet/lipgloss"

type styles struct {
	title    lipgloss.Style
	header   lipgloss.Style
	selected lipgloss.Style
	contact  lipgloss.Style
	preview  lipgloss.Style
	online   lipgloss.Style
	offline  lipgloss.Style
	own      lipgloss.Style
	other    lipgloss.Style
	meta     lipgloss.Style
	typing   lipgloss.Style
	warning  lipgloss.Style
	empty    lipgloss.Style
}

func newStyles() styles {
	return styles{
		title:    lipgloss.NewStyle().Bold(true),
		header:   lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		selected: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		contact:  lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		preview:  lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		online:   lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		offline:  lipgloss.NewStyle().Foreground(lipgloss.Color("238")),
		own:      lipgloss.NewStyle().Foreground(lipgloss.Color("159")),
		other:    lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		meta:     lipgloss.NewStyle().Faint(true),
		typing:   lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("245")),
		warning:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		empty:    lipgloss.NewStyle().Faint(true),
	}
}
