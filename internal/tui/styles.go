package tui

import "github.com/charmbracelet/lipgloss"

var (
	CriticalColor = lipgloss.Color("#CC3333") // Dark red
	WarningColor  = lipgloss.Color("#FF8800") // Orange
	GoodColor     = lipgloss.Color("#228B22") // Forest green
	InfoColor     = lipgloss.Color("#4682B4") // Steel blue
	TextColor     = lipgloss.Color("#CCCCCC") // Light gray
	MutedColor    = lipgloss.Color("#888888") // Medium gray
	BorderColor   = lipgloss.Color("#666666") // Dark gray
)

var (
	CriticalStyle = lipgloss.NewStyle().Foreground(CriticalColor).Bold(true)
	WarningStyle  = lipgloss.NewStyle().Foreground(WarningColor).Bold(true)
	GoodStyle     = lipgloss.NewStyle().Foreground(GoodColor).Bold(true)
	InfoStyle     = lipgloss.NewStyle().Foreground(InfoColor)
	MutedStyle    = lipgloss.NewStyle().Foreground(MutedColor)
	TextStyle     = lipgloss.NewStyle().Foreground(TextColor)
)

var (
	TabActiveStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(InfoColor).
			Padding(0, 1).
			Bold(true)

	TabInactiveStyle = lipgloss.NewStyle().
				Foreground(MutedColor).
				Padding(0, 1)

	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(BorderColor).
			Padding(0, 1)

	HeaderStyle = lipgloss.NewStyle().
			Foreground(TextColor).
			Background(lipgloss.Color("#1a1a1a")).
			Bold(true).
			Padding(0, 1)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(CriticalColor).
			Bold(true)
)

// ChangeStyle colours a change kind for display
func ChangeStyle(kind string) lipgloss.Style {
	switch kind {
	case "invalidated":
		return WarningStyle
	case "added":
		return GoodStyle
	case "removed":
		return CriticalStyle
	default:
		return MutedStyle
	}
}

// TruncateString truncates a string to fit within maxWidth
func TruncateString(s string, maxWidth int) string {
	if len(s) <= maxWidth {
		return s
	}
	if maxWidth < 4 {
		return s[:max(maxWidth, 0)]
	}
	return s[:maxWidth-3] + "..."
}
