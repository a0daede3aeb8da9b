package tui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))

	onStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00FF00")).
			Bold(true)

	offStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#444444"))

	messageStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	countdownStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFD700")).
			Bold(true)

	stringStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00AAFF")).
			Bold(true)

	fretStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFD700")).
			Width(cellWidth)

	lineStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666")).
			Width(cellWidth)

	currentStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#7D56F4")).
			Bold(true).
			Width(cellWidth)
)

func flag(name string, on bool) string {
	if on {
		return onStyle.Render(name + " on")
	}
	return offStyle.Render(name + " off")
}
