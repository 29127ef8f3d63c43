package monitor

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	countStyle = lipgloss.NewStyle().Faint(true)

	labelStyle = lipgloss.NewStyle().Faint(true)
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))

	readyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2")) // green
	startingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6")) // cyan
	localStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("3")) // yellow
	downStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("1")) // red

	helpStyle = lipgloss.NewStyle().Faint(true).MarginTop(1)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("8")).
			Padding(0, 1).
			MarginTop(1)
)
