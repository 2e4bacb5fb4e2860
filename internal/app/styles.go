package app

import "github.com/charmbracelet/lipgloss"

// Report colors (Catppuccin Mocha inspired).
var (
	colorPrimary = lipgloss.AdaptiveColor{Light: "#1e66f5", Dark: "#89b4fa"}
	colorSuccess = lipgloss.AdaptiveColor{Light: "#40a02b", Dark: "#a6e3a1"}
	colorWarning = lipgloss.AdaptiveColor{Light: "#df8e1d", Dark: "#f9e2af"}
	colorError   = lipgloss.AdaptiveColor{Light: "#d20f39", Dark: "#f38ba8"}
	colorMuted   = lipgloss.AdaptiveColor{Light: "#6c6f85", Dark: "#6c7086"}
)

type reportStyles struct {
	Title      lipgloss.Style
	Present    lipgloss.Style
	Remediated lipgloss.Style
	Failed     lipgloss.Style
	Unknown    lipgloss.Style
	Missing    lipgloss.Style
	Muted      lipgloss.Style
}

func defaultReportStyles() reportStyles {
	return reportStyles{
		Title:      lipgloss.NewStyle().Bold(true).Foreground(colorPrimary),
		Present:    lipgloss.NewStyle().Foreground(colorSuccess),
		Remediated: lipgloss.NewStyle().Bold(true).Foreground(colorSuccess),
		Failed:     lipgloss.NewStyle().Bold(true).Foreground(colorError),
		Unknown:    lipgloss.NewStyle().Foreground(colorWarning),
		Missing:    lipgloss.NewStyle().Foreground(colorWarning),
		Muted:      lipgloss.NewStyle().Foreground(colorMuted),
	}
}
