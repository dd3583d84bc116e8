package showcase

import "github.com/charmbracelet/lipgloss"

var (
	purple = lipgloss.Color("99")
	cyan   = lipgloss.Color("44")
	green  = lipgloss.Color("76")
	dim    = lipgloss.Color("243")
	faint  = lipgloss.Color("238")
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(purple)
	mutedStyle   = lipgloss.NewStyle().Foreground(dim)
	faintStyle   = lipgloss.NewStyle().Foreground(faint)
	activeStyle  = lipgloss.NewStyle().Foreground(cyan)
	nameStyle    = lipgloss.NewStyle().Bold(true).Foreground(purple)
	successStyle = lipgloss.NewStyle().Foreground(green)

	layerBox = lipgloss.NewStyle().
			Width(12).
			Align(lipgloss.Center)

	currentBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(purple).
			Padding(0, 1)

	sceneStyle = lipgloss.NewStyle().Foreground(faint)
)
