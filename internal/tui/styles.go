package tui

import "github.com/charmbracelet/lipgloss"

var (
	Primary     = lipgloss.Color("#7C3AED")
	Muted       = lipgloss.Color("#6B7280")
	Destructive = lipgloss.Color("#E53935")
	Success     = lipgloss.Color("#8BC34A")
	Border      = lipgloss.Color("#3F3F46")
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(Primary).
			Padding(0, 1)

	linkStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Background(Primary).MarginRight(2)
	activeLinkStyle = linkStyle.Underline(true).Bold(true)

	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(Primary).MarginBottom(1)
	mutedStyle   = lipgloss.NewStyle().Foreground(Muted)
	errorStyle   = lipgloss.NewStyle().Foreground(Destructive).BorderLeft(true).BorderStyle(lipgloss.ThickBorder()).BorderForeground(Destructive).PaddingLeft(1)
	successStyle = lipgloss.NewStyle().Foreground(Success).BorderLeft(true).BorderStyle(lipgloss.ThickBorder()).BorderForeground(Success).PaddingLeft(1)
	labelStyle   = lipgloss.NewStyle().Bold(true)

	sidebarStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderRight(true).
			BorderForeground(Border).
			PaddingRight(1)

	userBubbleStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Background(Primary).Padding(0, 1)
	assistantBubbleStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(Border).Padding(0, 1)
	failedStyle          = lipgloss.NewStyle().Foreground(Destructive).Italic(true)
)
