package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/bryan-buckman/pantry/internal/expiry"
)

// Palette
var (
	colorAccent   = lipgloss.Color("#2f855a")
	colorMuted    = lipgloss.Color("#6b7280")
	colorWarning  = lipgloss.Color("#d69e2e")
	colorCaution  = lipgloss.Color("#ecc94b")
	colorCritical = lipgloss.Color("#e53935")
	colorInfo     = lipgloss.Color("#2196F3")
)

// Styles holds the styled components of the terminal UI.
type Styles struct {
	Title     lipgloss.Style
	Tab       lipgloss.Style
	ActiveTab lipgloss.Style
	Badge     lipgloss.Style
	Selected  lipgloss.Style
	Muted     lipgloss.Style
	Card      lipgloss.Style
	Error     lipgloss.Style
	Success   lipgloss.Style
	Info      lipgloss.Style
	Prompt    lipgloss.Style
	Footer    lipgloss.Style
}

// DefaultStyles returns the standard style set.
func DefaultStyles() Styles {
	return Styles{
		Title:     lipgloss.NewStyle().Bold(true).Foreground(colorAccent),
		Tab:       lipgloss.NewStyle().Padding(0, 1).Foreground(colorMuted),
		ActiveTab: lipgloss.NewStyle().Padding(0, 1).Bold(true).Foreground(lipgloss.Color("#ffffff")).Background(colorAccent),
		Badge:     lipgloss.NewStyle().Bold(true).Foreground(colorCritical),
		Selected:  lipgloss.NewStyle().Bold(true).Foreground(colorAccent),
		Muted:     lipgloss.NewStyle().Foreground(colorMuted),
		Card: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorMuted).
			Padding(0, 2),
		Error:   lipgloss.NewStyle().Foreground(colorCritical),
		Success: lipgloss.NewStyle().Foreground(colorAccent),
		Info:    lipgloss.NewStyle().Foreground(colorInfo),
		Prompt:  lipgloss.NewStyle().Bold(true).Foreground(colorWarning),
		Footer:  lipgloss.NewStyle().Foreground(colorMuted).MarginTop(1),
	}
}

// Level renders an expiry status label in its level colour.
func (s Styles) Level(st expiry.Status) string {
	style := lipgloss.NewStyle()
	switch st.Level {
	case expiry.LevelCritical:
		style = style.Foreground(colorCritical).Bold(true)
	case expiry.LevelWarning:
		style = style.Foreground(colorWarning)
	case expiry.LevelCaution:
		style = style.Foreground(colorCaution)
	default:
		style = style.Foreground(colorAccent)
	}
	return style.Render(st.Label)
}
