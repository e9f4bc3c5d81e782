// Package termui holds the terminal styles shared by the CLI and the
// interactive session.
package termui

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

// Theme defines the color scheme.
type Theme struct {
	Primary lipgloss.Color
	Dim     lipgloss.Color
	Alert   lipgloss.Color
}

// DefaultTheme is the default green theme.
var DefaultTheme = Theme{
	Primary: lipgloss.Color("#00ff9f"),
	Dim:     lipgloss.Color("#6e7681"),
	Alert:   lipgloss.Color("#ff5f87"),
}

// Styles holds all styles derived from a theme, bound to one output.
type Styles struct {
	Heading lipgloss.Style
	Label   lipgloss.Style
	Help    lipgloss.Style
	Error   lipgloss.Style
}

// NewStyles creates styles for w. Color is dropped automatically when w is
// not a terminal, so piped output stays plain text.
func NewStyles(w io.Writer, t Theme) Styles {
	r := lipgloss.NewRenderer(w)
	return Styles{
		Heading: r.NewStyle().Bold(true).Foreground(t.Primary),
		Label:   r.NewStyle().Bold(true).Foreground(t.Primary),
		Help:    r.NewStyle().Foreground(t.Dim),
		Error:   r.NewStyle().Bold(true).Foreground(t.Alert),
	}
}

// Plain returns unstyled styles, handy for tests and log-only sinks.
func Plain() Styles {
	s := lipgloss.NewStyle()
	return Styles{Heading: s, Label: s, Help: s, Error: s}
}
