package report

import "github.com/charmbracelet/lipgloss"

// =============================================================================
// COLORS
// =============================================================================

var (
	Success     = lipgloss.Color("#8BC34A")
	Destructive = lipgloss.Color("#e53935")
	Warning     = lipgloss.Color("#FFC107")
	Info        = lipgloss.Color("#2196F3")
	Muted       = lipgloss.Color("#9E9E9E")
	Accent      = lipgloss.Color("#00BCD4")
)

// =============================================================================
// STYLES
// =============================================================================

// Styles holds the console styles, bound to one renderer.
type Styles struct {
	Title   lipgloss.Style
	Rule    lipgloss.Style
	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Info    lipgloss.Style
	Muted   lipgloss.Style
	Key     lipgloss.Style
	Header  lipgloss.Style
	Banner  lipgloss.Style
}

// NewStyles creates the styles for r. A renderer over a non-terminal writer
// produces plain text.
func NewStyles(r *lipgloss.Renderer) Styles {
	return Styles{
		Title:   r.NewStyle().Bold(true),
		Rule:    r.NewStyle().Foreground(Muted),
		Success: r.NewStyle().Foreground(Success).Bold(true),
		Error:   r.NewStyle().Foreground(Destructive).Bold(true),
		Warning: r.NewStyle().Foreground(Warning),
		Info:    r.NewStyle().Foreground(Info),
		Muted:   r.NewStyle().Foreground(Muted),
		Key:     r.NewStyle().Foreground(Accent),
		Header:  r.NewStyle().Bold(true),
		Banner: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Accent).
			Padding(0, 2),
	}
}
