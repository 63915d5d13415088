package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/joescharf/itrack/internal/models"
	"github.com/joescharf/itrack/internal/workflow"
)

// dropdownOption is a single selectable status.
type dropdownOption struct {
	Label string
	Value models.IssueStatus
	Note  string // Shown dimmed when the workflow would reject the move.
}

// statusDropdown is the status menu for one issue. It captures all
// keyboard input while open.
type statusDropdown struct {
	Options []dropdownOption
	Cursor  int
	IssueID string
}

// newStatusDropdown lists every issue status with the cursor on the next
// step of the workflow, or on the current status when there is none.
// Options the workflow would reject stay selectable so the rejection
// reason can be shown.
func newStatusDropdown(issue *models.Issue) *statusDropdown {
	d := &statusDropdown{IssueID: issue.ID}
	focus := issue.Status
	if next, ok := workflow.Issues.Next(issue.Status); ok {
		focus = next
	}
	for i, s := range models.IssueStatuses {
		opt := dropdownOption{Label: string(s), Value: s}
		if dec := workflow.Issues.Check(issue.Status, s); !dec.Allowed {
			opt.Note = "not allowed"
		}
		if s == issue.Status {
			opt.Note = "current"
		}
		if s == focus {
			d.Cursor = i
		}
		d.Options = append(d.Options, opt)
	}
	return d
}

// MoveUp moves the cursor up by one, wrapping to the bottom.
func (d *statusDropdown) MoveUp() {
	d.Cursor--
	if d.Cursor < 0 {
		d.Cursor = len(d.Options) - 1
	}
}

// MoveDown moves the cursor down by one, wrapping to the top.
func (d *statusDropdown) MoveDown() {
	d.Cursor++
	if d.Cursor >= len(d.Options) {
		d.Cursor = 0
	}
}

// Selected returns the highlighted option.
func (d *statusDropdown) Selected() dropdownOption {
	return d.Options[d.Cursor]
}

// Render draws the menu as a bordered box.
func (d *statusDropdown) Render(theme Theme) string {
	var lines []string
	for i, opt := range d.Options {
		marker := "  "
		style := lipgloss.NewStyle()
		if i == d.Cursor {
			marker = "> "
			style = style.Background(theme.SelectedBackground).Foreground(theme.SelectedForeground)
		}
		line := style.Render(marker + opt.Label)
		if opt.Note != "" {
			line += " " + lipgloss.NewStyle().Foreground(theme.Faint).Render("("+opt.Note+")")
		}
		lines = append(lines, line)
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.Border).
		Padding(0, 1).
		Render("Set status\n" + strings.Join(lines, "\n"))
}
