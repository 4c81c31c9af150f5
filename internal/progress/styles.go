// Package progress renders a live terminal view of a dedup or merge run:
// a stats panel with bands completed, the last band's counts and the
// running total of detections, a rolling log tail, and an overall
// bands-completed progress bar, built with
// bubbletea + lipgloss.
package progress

import "github.com/charmbracelet/lipgloss"

// Color palette.
var (
	ColorCyan    = lipgloss.Color("#00FFFF")
	ColorMagenta = lipgloss.Color("#FF00FF")
	ColorGreen   = lipgloss.Color("#00FF00")
	ColorYellow  = lipgloss.Color("#FFFF00")
	ColorRed     = lipgloss.Color("#FF0055")

	ColorHeaderBg = lipgloss.Color("#16213E")

	ColorText    = lipgloss.Color("#E0E0E0")
	ColorDimText = lipgloss.Color("#666666")
)

// Style definitions.
var (
	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorCyan).
			Background(ColorHeaderBg).
			Padding(0, 1).
			MarginBottom(1)

	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorMagenta).
			Background(ColorHeaderBg).
			Padding(0, 2)

	PanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorCyan).
			Padding(1, 2).
			MarginRight(1)

	StatsPanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorMagenta).
			Padding(1, 2)

	LogPanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorGreen).
			Padding(0, 1).
			Height(10)

	LabelStyle = lipgloss.NewStyle().
			Foreground(ColorDimText).
			Width(18)

	ValueStyle = lipgloss.NewStyle().
			Foreground(ColorText).
			Bold(true)

	SuccessStyle = lipgloss.NewStyle().Foreground(ColorGreen).Bold(true)
	ErrorStyle   = lipgloss.NewStyle().Foreground(ColorRed).Bold(true)
	InfoStyle    = lipgloss.NewStyle().Foreground(ColorCyan)

	RunningStyle   = lipgloss.NewStyle().Foreground(ColorGreen).Bold(true)
	StoppedStyle   = lipgloss.NewStyle().Foreground(ColorRed).Bold(true)
	CompletedStyle = lipgloss.NewStyle().Foreground(ColorMagenta).Bold(true)

	FooterStyle = lipgloss.NewStyle().Foreground(ColorDimText).MarginTop(1)
	KeyStyle    = lipgloss.NewStyle().Foreground(ColorCyan).Bold(true)
	HelpStyle   = lipgloss.NewStyle().Foreground(ColorDimText)

	ProgressFullStyle  = lipgloss.NewStyle().Foreground(ColorCyan)
	ProgressEmptyStyle = lipgloss.NewStyle().Foreground(ColorDimText)

	SpinnerChars = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
)

// RenderLabel renders a label with consistent styling.
func RenderLabel(label string) string { return LabelStyle.Render(label + ":") }

// RenderLabelValue renders a label-value pair.
func RenderLabelValue(label, value string) string {
	return RenderLabel(label) + " " + ValueStyle.Render(value)
}

// RenderHelp renders a keybinding hint.
func RenderHelp(key, description string) string {
	return KeyStyle.Render("["+key+"]") + " " + HelpStyle.Render(description)
}

// MiniBanner is a compact one-line doubri header; Dashboard.View does not
// render it.
const MiniBanner = "┌─ doubri ──────────────────────────────────────────────────────┐"
