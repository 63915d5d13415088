// Package tui is an interactive terminal board for browsing issues and
// moving them through the status workflow.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/joescharf/itrack/internal/models"
	"github.com/joescharf/itrack/internal/store"
	"github.com/joescharf/itrack/internal/view"
)

// Source is the data access the board needs. *tracker.Service satisfies it.
type Source interface {
	ListIssues(ctx context.Context, filter store.IssueListFilter) ([]*models.Issue, error)
	ChangeIssueStatus(ctx context.Context, id string, requested models.IssueStatus) (*models.Issue, error)
}

// Options configures a Model.
type Options struct {
	ProjectID string // limit the board to one project
	UserEmail string // for the "mine" counter
	PageSize  int
	Now       func() time.Time
}

// issuesLoadedMsg carries the result of a reload.
type issuesLoadedMsg struct {
	issues []*models.Issue
	err    error
}

// statusChangedMsg is sent when a status change call completes.
type statusChangedMsg struct {
	issueID string
	issue   *models.Issue
	err     error
}

// noticeFadeMsg clears the status bar notice.
type noticeFadeMsg struct{}

const noticeFadeDelay = 4 * time.Second

var (
	statusFilters   = append([]string{view.All}, statusStrings()...)
	priorityFilters = append([]string{view.All}, priorityStrings()...)
)

func statusStrings() []string {
	out := make([]string, len(models.IssueStatuses))
	for i, s := range models.IssueStatuses {
		out[i] = string(s)
	}
	return out
}

func priorityStrings() []string {
	out := make([]string, len(models.IssuePriorities))
	for i, p := range models.IssuePriorities {
		out[i] = string(p)
	}
	return out
}

// Model is the bubbletea model for the issue board. It owns the loaded
// issues and all view state.
type Model struct {
	source Source
	opts   Options
	keys   KeyMap
	theme  Theme

	issues  []*models.Issue // as loaded, newest first
	visible view.Page[*models.Issue]

	statusIdx   int
	priorityIdx int
	sort        string
	page        int
	cursor      int // row within the current page

	dropdown *statusDropdown

	loading bool
	notice  string
	err     string

	width  int
	height int
}

// NewModel creates a board reading from source.
func NewModel(source Source, opts Options) Model {
	if opts.PageSize < 1 {
		opts.PageSize = view.DefaultPageSize
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return Model{
		source:  source,
		opts:    opts,
		keys:    DefaultKeyMap,
		theme:   DefaultTheme,
		sort:    view.SortNewest,
		page:    1,
		loading: true,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return m.loadCmd()
}

func (m Model) loadCmd() tea.Cmd {
	source, projectID := m.source, m.opts.ProjectID
	return func() tea.Msg {
		issues, err := source.ListIssues(context.Background(), store.IssueListFilter{ProjectID: projectID})
		return issuesLoadedMsg{issues: issues, err: err}
	}
}

func (m Model) changeStatusCmd(id string, status models.IssueStatus) tea.Cmd {
	source := m.source
	return func() tea.Msg {
		issue, err := source.ChangeIssueStatus(context.Background(), id, status)
		return statusChangedMsg{issueID: id, issue: issue, err: err}
	}
}

func fadeCmd() tea.Cmd {
	return tea.Tick(noticeFadeDelay, func(time.Time) tea.Msg { return noticeFadeMsg{} })
}

// Filter returns the active status and priority filter.
func (m Model) Filter() view.IssueFilter {
	return view.IssueFilter{Status: statusFilters[m.statusIdx], Priority: priorityFilters[m.priorityIdx]}
}

// Visible returns the issues on the current page.
func (m Model) Visible() []*models.Issue { return m.visible.Items }

// Selected returns the issue under the cursor, or nil.
func (m Model) Selected() *models.Issue {
	if m.cursor < 0 || m.cursor >= len(m.visible.Items) {
		return nil
	}
	return m.visible.Items[m.cursor]
}

// refresh recomputes the visible page after any change to issues or
// view state.
func (m *Model) refresh() {
	filtered := view.FilterIssues(m.issues, m.Filter())
	view.SortIssues(filtered, m.sort)
	m.visible = view.Paginate(filtered, m.page, m.opts.PageSize)
	m.page = m.visible.Page
	if m.cursor >= len(m.visible.Items) {
		m.cursor = max(len(m.visible.Items)-1, 0)
	}
}

// resetView returns to the first page after a filter or sort change.
func (m *Model) resetView() {
	m.page = 1
	m.cursor = 0
	m.refresh()
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.dropdown != nil {
			return m.handleDropdownKeys(msg)
		}
		return m.handleKeys(msg)

	case issuesLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err.Error()
			return m, nil
		}
		m.issues = msg.issues
		m.refresh()

	case statusChangedMsg:
		if msg.err != nil {
			// Drop the optimistic change by reloading what the store holds.
			m.err = msg.err.Error()
			m.loading = true
			return m, tea.Batch(m.loadCmd(), fadeCmd())
		}
		m.replace(msg.issue)
		m.notice = fmt.Sprintf("%s moved to %s", shortID(msg.issue.ID), msg.issue.Status)
		m.refresh()
		return m, fadeCmd()

	case noticeFadeMsg:
		m.notice = ""
		m.err = ""

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	}
	return m, nil
}

func (m Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.visible.Items)-1 {
			m.cursor++
		}

	case key.Matches(msg, m.keys.NextPage):
		if m.visible.HasNext() {
			m.page++
			m.cursor = 0
			m.refresh()
		}

	case key.Matches(msg, m.keys.PrevPage):
		if m.visible.HasPrev() {
			m.page--
			m.cursor = 0
			m.refresh()
		}

	case key.Matches(msg, m.keys.CycleStatus):
		m.statusIdx = (m.statusIdx + 1) % len(statusFilters)
		m.resetView()

	case key.Matches(msg, m.keys.CyclePriority):
		m.priorityIdx = (m.priorityIdx + 1) % len(priorityFilters)
		m.resetView()

	case key.Matches(msg, m.keys.ToggleSort):
		if m.sort == view.SortNewest {
			m.sort = view.SortOldest
		} else {
			m.sort = view.SortNewest
		}
		m.resetView()

	case key.Matches(msg, m.keys.ChangeStatus):
		if issue := m.Selected(); issue != nil {
			m.dropdown = newStatusDropdown(issue)
		}

	case key.Matches(msg, m.keys.Reload):
		m.loading = true
		return m, m.loadCmd()
	}
	return m, nil
}

func (m Model) handleDropdownKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.Type == tea.KeyCtrlC:
		return m, tea.Quit

	case key.Matches(msg, m.keys.Dismiss), key.Matches(msg, m.keys.Quit):
		m.dropdown = nil

	case key.Matches(msg, m.keys.Up):
		m.dropdown.MoveUp()

	case key.Matches(msg, m.keys.Down):
		m.dropdown.MoveDown()

	case msg.Type == tea.KeyEnter:
		id, status := m.dropdown.IssueID, m.dropdown.Selected().Value
		m.dropdown = nil
		issue := m.find(id)
		if issue == nil || issue.Status == status {
			return m, nil
		}
		// Show the new status right away; a rejection reloads.
		optimistic := *issue
		optimistic.Status = status
		m.replace(&optimistic)
		m.refresh()
		return m, m.changeStatusCmd(id, status)
	}
	return m, nil
}

func (m Model) find(id string) *models.Issue {
	for _, issue := range m.issues {
		if issue.ID == id {
			return issue
		}
	}
	return nil
}

// replace swaps the loaded copy of updated for the new value.
func (m *Model) replace(updated *models.Issue) {
	for i, issue := range m.issues {
		if issue.ID == updated.ID {
			m.issues[i] = updated
			return
		}
	}
}

func shortID(id string) string {
	if len(id) > 10 {
		return id[len(id)-10:]
	}
	return id
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(m.theme.Title)
	faint := lipgloss.NewStyle().Foreground(m.theme.Faint)

	stats := view.ComputeStats(m.issues, m.opts.UserEmail)
	b.WriteString(titleStyle.Render("itrack"))
	b.WriteString(faint.Render(fmt.Sprintf("  total %d · open %d · high %d · mine %d", stats.Total, stats.Open, stats.High, stats.Mine)))
	b.WriteString("\n")

	f := m.Filter()
	b.WriteString(faint.Render(fmt.Sprintf("status: %s  priority: %s  sort: %s", f.Status, f.Priority, m.sort)))
	b.WriteString("\n\n")

	switch {
	case m.loading && len(m.issues) == 0:
		b.WriteString("Loading issues…\n")
	case len(m.visible.Items) == 0:
		b.WriteString(faint.Render("No issues match the current filters."))
		b.WriteString("\n")
	default:
		b.WriteString(m.renderRows())
	}

	b.WriteString("\n")
	if m.visible.Total > 0 {
		b.WriteString(faint.Render(fmt.Sprintf("Showing %d–%d of %d · page %d/%d",
			m.visible.Start, m.visible.End, m.visible.Total, m.visible.Page, m.visible.TotalPages)))
		b.WriteString("\n")
	}

	if m.dropdown != nil {
		b.WriteString(m.dropdown.Render(m.theme))
		b.WriteString("\n")
	}

	switch {
	case m.err != "":
		b.WriteString(lipgloss.NewStyle().Foreground(m.theme.Error).Render("Error: " + m.err))
		b.WriteString("\n")
	case m.notice != "":
		b.WriteString(m.notice)
		b.WriteString("\n")
	}

	var help []string
	for _, k := range m.keys.ShortHelp() {
		h := k.Help()
		help = append(help, h.Key+" "+h.Desc)
	}
	b.WriteString(faint.Render(strings.Join(help, " · ")))
	return b.String()
}

func (m Model) renderRows() string {
	var b strings.Builder
	now := m.opts.Now()
	for i, issue := range m.visible.Items {
		status := lipgloss.NewStyle().Foreground(m.theme.statusColor(issue.Status)).Width(12).Render(string(issue.Status))
		priority := lipgloss.NewStyle().Foreground(m.theme.priorityColor(issue.Priority)).Width(9).Render(string(issue.Priority))
		assignee := issue.AssignedTo
		if assignee == "" {
			assignee = "-"
		}
		row := fmt.Sprintf("%-10s  %-40s  %s %s %-20s %s",
			shortID(issue.ID),
			truncate(issue.Title, 40),
			priority,
			status,
			truncate(assignee, 20),
			view.TimeAgo(issue.CreatedAt, now),
		)
		if i == m.cursor {
			row = lipgloss.NewStyle().Background(m.theme.SelectedBackground).Foreground(m.theme.SelectedForeground).Render("> " + row)
		} else {
			row = "  " + row
		}
		b.WriteString(row)
		b.WriteString("\n")
	}
	return b.String()
}

// Run starts the board full screen and blocks until the user quits.
func Run(source Source, opts Options) error {
	_, err := tea.NewProgram(NewModel(source, opts), tea.WithAltScreen()).Run()
	return err
}
