package ui

import "github.com/charmbracelet/lipgloss"

var (
	mintGreen = lipgloss.AdaptiveColor{Light: "#89F0CB", Dark: "#89F0CB"}
	darkGreen = lipgloss.AdaptiveColor{Light: "#1C8760", Dark: "#1C8760"}
	red       = lipgloss.AdaptiveColor{Light: "#FF4672", Dark: "#ED567A"}

	faintFg     = lipgloss.AdaptiveColor{Light: "#656565", Dark: "#7D7D7D"}
	statusBarBg = lipgloss.AdaptiveColor{Light: "#E6E6E6", Dark: "#242424"}

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ECFD65")).
			Background(lipgloss.Color("#5A56E0")).
			Bold(true).
			Padding(0, 1)

	nowPlayingStyle = lipgloss.NewStyle().Bold(true).Render

	controlStyle = lipgloss.NewStyle().
			Foreground(faintFg).
			Render

	activeControlStyle = lipgloss.NewStyle().
				Foreground(mintGreen).
				Bold(true).
				Render

	regionStyle = lipgloss.NewStyle().
			Foreground(darkGreen).
			Render

	statusBarStyle = lipgloss.NewStyle().
			Foreground(faintFg).
			Background(statusBarBg).
			Render

	statusBarMessageStyle = lipgloss.NewStyle().
				Foreground(mintGreen).
				Background(darkGreen).
				Render

	alertStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(red).
			Padding(0, 1).
			Render
)
