package ui

import "github.com/charmbracelet/lipgloss"

// Monochrome palette: white on black with grey accents.
const (
	colorFg     = lipgloss.Color("15")
	colorMuted  = lipgloss.Color("244")
	colorFaint  = lipgloss.Color("238")
	colorBubble = lipgloss.Color("235")
	colorError  = lipgloss.Color("203")
	colorWarn   = lipgloss.Color("214")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorFg)

	splashTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(colorFg).
				Padding(1, 4).
				Border(lipgloss.RoundedBorder()).
				BorderForeground(colorFaint)

	mutedStyle = lipgloss.NewStyle().Foreground(colorMuted)
	faintStyle = lipgloss.NewStyle().Foreground(colorFaint)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorFg).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(colorFaint)

	userBubbleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(colorFg).
			Padding(0, 1)

	modelBubbleStyle = lipgloss.NewStyle().
				Foreground(colorFg).
				Background(colorBubble).
				Padding(0, 1)

	sidebarStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, true, false, false).
			BorderForeground(colorFaint).
			Padding(0, 1)

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(colorFg).
			Bold(true)

	buttonStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(colorFg).
			Bold(true).
			Padding(0, 2)

	errorStyle = lipgloss.NewStyle().Foreground(colorError)

	bannerStyle = lipgloss.NewStyle().
			Foreground(colorWarn).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorWarn).
			Padding(0, 1)

	formStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorFaint).
			Padding(1, 2)

	helpStyle = lipgloss.NewStyle().Foreground(colorFaint).MarginTop(1)
)
