package console

import (
	"github.com/charmbracelet/lipgloss"
)

type theme struct {
	Panel     lipgloss.Style
	Title     lipgloss.Style
	Label     lipgloss.Style
	Converted lipgloss.Style
	Skipped   lipgloss.Style
	Missed    lipgloss.Style
	Muted     lipgloss.Style
	Success   lipgloss.Style
	Error     lipgloss.Style
	Hint      lipgloss.Style
}

func newTheme(r *lipgloss.Renderer) theme {
	return theme{
		Panel:     r.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("245")).Padding(0, 1),
		Title:     r.NewStyle().Bold(true).Foreground(lipgloss.Color("69")),
		Label:     r.NewStyle().Foreground(lipgloss.Color("117")),
		Converted: r.NewStyle().Bold(true).Foreground(lipgloss.Color("10")),
		Skipped:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("214")),
		Missed:    r.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
		Muted:     r.NewStyle().Foreground(lipgloss.Color("245")),
		Success:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("10")),
		Error:     r.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		Hint:      r.NewStyle().Foreground(lipgloss.Color("245")),
	}
}
