package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/joescharf/itrack/internal/models"
)

// Theme is the color palette for the board.
type Theme struct {
	Title              lipgloss.Color
	Border             lipgloss.Color
	Faint              lipgloss.Color
	Error              lipgloss.Color
	SelectedBackground lipgloss.Color
	SelectedForeground lipgloss.Color

	StatusOpen       lipgloss.Color
	StatusInProgress lipgloss.Color
	StatusDone       lipgloss.Color

	PriorityLow      lipgloss.Color
	PriorityMedium   lipgloss.Color
	PriorityHigh     lipgloss.Color
	PriorityCritical lipgloss.Color
}

// DefaultTheme suits dark terminals.
var DefaultTheme = Theme{
	Title:              lipgloss.Color("39"),
	Border:             lipgloss.Color("240"),
	Faint:              lipgloss.Color("245"),
	Error:              lipgloss.Color("196"),
	SelectedBackground: lipgloss.Color("237"),
	SelectedForeground: lipgloss.Color("231"),

	StatusOpen:       lipgloss.Color("33"),
	StatusInProgress: lipgloss.Color("214"),
	StatusDone:       lipgloss.Color("42"),

	PriorityLow:      lipgloss.Color("245"),
	PriorityMedium:   lipgloss.Color("252"),
	PriorityHigh:     lipgloss.Color("208"),
	PriorityCritical: lipgloss.Color("196"),
}

func (t Theme) statusColor(s models.IssueStatus) lipgloss.Color {
	switch s {
	case models.IssueStatusInProgress:
		return t.StatusInProgress
	case models.IssueStatusDone:
		return t.StatusDone
	default:
		return t.StatusOpen
	}
}

func (t Theme) priorityColor(p models.IssuePriority) lipgloss.Color {
	switch p {
	case models.IssuePriorityLow:
		return t.PriorityLow
	case models.IssuePriorityHigh:
		return t.PriorityHigh
	case models.IssuePriorityCritical:
		return t.PriorityCritical
	default:
		return t.PriorityMedium
	}
}
