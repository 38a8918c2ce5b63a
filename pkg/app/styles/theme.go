package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/kerbaras/adxport/pkg/data"
)

var (
	// Color palette
	Primary    = lipgloss.Color("#FF6B9D")
	Secondary  = lipgloss.Color("#C792EA")
	Success    = lipgloss.Color("#C3E88D")
	Warning    = lipgloss.Color("#FFCB6B")
	Error      = lipgloss.Color("#F07178")
	Info       = lipgloss.Color("#82AAFF")
	Muted      = lipgloss.Color("#546E7A")
	Foreground = lipgloss.Color("#EEFFFF")

	RoundedBorder = lipgloss.RoundedBorder()
)

var (
	TitleStyle = lipgloss.NewStyle().
		Foreground(Primary).
		Bold(true)

	SubtitleStyle = lipgloss.NewStyle().
		Foreground(Secondary).
		Italic(true)

	TextStyle = lipgloss.NewStyle().
		Foreground(Foreground)

	MutedStyle = lipgloss.NewStyle().
		Foreground(Muted)

	// Row under the cursor
	CursorStyle = lipgloss.NewStyle().
		Foreground(Primary).
		Bold(true)

	// Row marked for a batch action
	MarkedStyle = lipgloss.NewStyle().
		Foreground(Success)

	PanelStyle = lipgloss.NewStyle().
		Border(RoundedBorder).
		BorderForeground(Secondary).
		Padding(0, 1)

	StatusDownloading = lipgloss.NewStyle().
		Foreground(Info).
		Bold(true)

	StatusCompleted = lipgloss.NewStyle().
		Foreground(Success).
		Bold(true)

	StatusQueued = lipgloss.NewStyle().
		Foreground(Warning)

	StatusError = lipgloss.NewStyle().
		Foreground(Error).
		Bold(true)

	ProgressBarStyle = lipgloss.NewStyle().
		Foreground(Primary)

	ProgressEmptyStyle = lipgloss.NewStyle().
		Foreground(Muted)

	ActiveTabStyle = lipgloss.NewStyle().
		Foreground(Primary).
		Background(lipgloss.Color("#37474F")).
		Padding(0, 2).
		Bold(true)

	InactiveTabStyle = lipgloss.NewStyle().
		Foreground(Muted).
		Padding(0, 2)

	HelpStyle = lipgloss.NewStyle().
		Foreground(Muted).
		Italic(true)

	InputStyle = lipgloss.NewStyle().
		Border(RoundedBorder).
		BorderForeground(Secondary).
		Padding(0, 1)

	FocusedInputStyle = lipgloss.NewStyle().
		Border(RoundedBorder).
		BorderForeground(Primary).
		Padding(0, 1)
)

func StatusStyle(status data.JobStatus) lipgloss.Style {
	switch status {
	case data.JobInProgress:
		return StatusDownloading
	case data.JobCompleted:
		return StatusCompleted
	case data.JobQueued:
		return StatusQueued
	default:
		return MutedStyle
	}
}
