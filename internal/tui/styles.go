package tui

import "github.com/charmbracelet/lipgloss"

// One Dark palette
var (
	ColorFgPrimary = lipgloss.Color("#ABB2BF")
	ColorFgMuted   = lipgloss.Color("#636B78")
	ColorRed       = lipgloss.Color("#E06C75")
	ColorGreen     = lipgloss.Color("#98C379")
	ColorYellow    = lipgloss.Color("#E5C07B")
	ColorBlue      = lipgloss.Color("#61AFEF")
	ColorMagenta   = lipgloss.Color("#C678DD")
	ColorBorder    = lipgloss.Color("#3F4451")
)

var (
	HeaderStyle = lipgloss.NewStyle().
			Foreground(ColorRed).
			Bold(true).
			PaddingLeft(1)

	TabStyle = lipgloss.NewStyle().
			Foreground(ColorFgMuted).
			Padding(0, 1)

	ActiveTabStyle = lipgloss.NewStyle().
			Foreground(ColorMagenta).
			Bold(true).
			Underline(true).
			Padding(0, 1)

	BodyStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(1, 2)

	TitleStyle = lipgloss.NewStyle().
			Foreground(ColorMagenta).
			Bold(true)

	TaskOpenStyle = lipgloss.NewStyle().
			Foreground(ColorFgPrimary)

	TaskDoneStyle = lipgloss.NewStyle().
			Foreground(ColorFgMuted).
			Strikethrough(true)

	SelectedStyle = lipgloss.NewStyle().
			Foreground(ColorBlue).
			Bold(true)

	LabelStyle = lipgloss.NewStyle().
			Foreground(ColorYellow)

	InputPromptStyle = lipgloss.NewStyle().
				Foreground(ColorGreen)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorRed).
			Bold(true)

	SpinnerStyle = lipgloss.NewStyle().
			Foreground(ColorYellow)

	StatusBarStyle = lipgloss.NewStyle().
			Foreground(ColorFgMuted).
			PaddingLeft(1).
			PaddingRight(1)
)
