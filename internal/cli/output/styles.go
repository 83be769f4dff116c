package output

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/leapstack-labs/mercury/pkg/core"
)

// Styles holds lipgloss styles for text output.
type Styles struct {
	Header1 lipgloss.Style
	Header2 lipgloss.Style
	Bold    lipgloss.Style
	Muted   lipgloss.Style
	Code    lipgloss.Style

	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Info    lipgloss.Style

	StatusPassed lipgloss.Style
	StatusFailed lipgloss.Style
}

// NewStyles creates styles bound to a lipgloss renderer. A renderer with the
// Ascii profile produces plain text.
func NewStyles(r *lipgloss.Renderer) *Styles {
	return &Styles{
		Header1: r.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		Header2: r.NewStyle().Bold(true),
		Bold:    r.NewStyle().Bold(true),
		Muted:   r.NewStyle().Foreground(lipgloss.Color("8")),
		Code:    r.NewStyle().Foreground(lipgloss.Color("14")),

		Success: r.NewStyle().Foreground(lipgloss.Color("10")),
		Warning: r.NewStyle().Foreground(lipgloss.Color("11")),
		Error:   r.NewStyle().Foreground(lipgloss.Color("9")),
		Info:    r.NewStyle().Foreground(lipgloss.Color("14")),

		StatusPassed: r.NewStyle().Bold(true).Foreground(lipgloss.Color("10")),
		StatusFailed: r.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
	}
}

// Severity returns the style for a pattern severity.
func (s *Styles) Severity(sev core.Severity) lipgloss.Style {
	switch sev {
	case core.SeverityFailure:
		return s.Error
	case core.SeverityWarning:
		return s.Warning
	case core.SeverityNotice:
		return s.Info
	default:
		return s.Muted
	}
}

// colorProfile picks the profile for a writer: none when it is not a
// terminal or NO_COLOR is set, otherwise what the environment supports.
func colorProfile(isTTY bool) termenv.Profile {
	if !isTTY || termenv.EnvNoColor() {
		return termenv.Ascii
	}
	return termenv.EnvColorProfile()
}
