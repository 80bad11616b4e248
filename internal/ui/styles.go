package ui

import "github.com/charmbracelet/lipgloss"

// Color palette: one warm accent over greys.
const (
	ColorAccent   = "178" // gold
	ColorAccentLo = "136"
	ColorWhite    = "255"
	ColorGray     = "245"
	ColorDarkGray = "238"
	ColorRed      = "196"
	ColorYellow   = "220"
)

// Styles holds all UI styles for TUI rendering.
type Styles struct {
	Header  lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Dim     lipgloss.Style
	Active  lipgloss.Style
	Label   lipgloss.Style

	Border lipgloss.Style
	Panel  lipgloss.Style

	// Search view
	Tab         lipgloss.Style
	TabSelected lipgloss.Style
	Answer      lipgloss.Style
}

// DefaultStyles returns styled components for TUI mode.
func DefaultStyles() Styles {
	return Styles{
		Header:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorAccent)),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAccent)),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorYellow)),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color(ColorRed)),
		Dim:     lipgloss.NewStyle().Foreground(lipgloss.Color(ColorDarkGray)),
		Active:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorAccent)),
		Label:   lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGray)),

		Border: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorDarkGray)),
		Panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(ColorDarkGray)).
			Padding(0, 1),

		Tab: lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color(ColorGray)),
		TabSelected: lipgloss.NewStyle().Padding(0, 1).Bold(true).
			Foreground(lipgloss.Color(ColorWhite)).
			Background(lipgloss.Color(ColorAccentLo)),
		Answer: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorWhite)),
	}
}

// NoColorStyles returns unstyled components.
func NoColorStyles() Styles {
	plain := lipgloss.NewStyle()
	return Styles{
		Header:      plain.Bold(true),
		Success:     plain,
		Warning:     plain,
		Error:       plain,
		Dim:         plain,
		Active:      plain,
		Label:       plain,
		Border:      plain,
		Panel:       plain.Border(lipgloss.NormalBorder()).Padding(0, 1),
		Tab:         plain.Padding(0, 1),
		TabSelected: plain.Padding(0, 1).Underline(true),
		Answer:      plain,
	}
}

// GetStyles returns the appropriate styles based on color preference.
func GetStyles(noColor bool) Styles {
	if noColor {
		return NoColorStyles()
	}
	return DefaultStyles()
}
