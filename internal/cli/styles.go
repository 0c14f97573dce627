package cli

import "github.com/charmbracelet/lipgloss"

// lipgloss downgrades automatically on dumb terminals and honors NO_COLOR,
// so these are safe to use unconditionally.
var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	fieldStyle   = lipgloss.NewStyle().Bold(true)
)
