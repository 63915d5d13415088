package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/itrack/internal/models"
	"github.com/joescharf/itrack/internal/output"
	"github.com/joescharf/itrack/internal/store"
	"github.com/joescharf/itrack/internal/tracker"
	"github.com/joescharf/itrack/internal/view"
)

// timeNow is replaceable in tests.
var timeNow = time.Now

// issueAddOptions holds the flags of `issue add`.
type issueAddOptions struct {
	Project     string
	Title       string
	Description string
	Priority    string
	Status      string
	AssignedTo  string
	NoProject   bool
}

// issueListOptions holds the flags of `issue list`.
type issueListOptions struct {
	Project  string
	All      bool
	Status   string
	Priority string
	Sort     string
	Page     int
	PageSize int
	Mine     bool
	JSON     bool
}

var (
	issueAddOpts  issueAddOptions
	issueListOpts issueListOptions
	issueConfirm  bool
)

var issueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Manage issues",
	Long:  "File issues, list them page by page, and move them through Open, In Progress and Done.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueListRun(issueListOptions{All: true, Page: 1})
	},
}

var issueAddCmd = &cobra.Command{
	Use:   "add",
	Short: "File a new issue",
	Long: `File a new issue against the current project (or --project).

Before the issue is stored, issues with matching title keywords are listed
so duplicates are easy to spot.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueAddRun(issueAddOpts)
	},
}

var issueListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List issues",
	Long:    "List issues of the current project, or every issue with --all, filtered, sorted and paginated.",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueListRun(issueListOpts)
	},
}

var issueShowCmd = &cobra.Command{
	Use:   "show <issue-id>",
	Short: "Show issue details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueShowRun(args[0])
	},
}

var issueStatusCmd = &cobra.Command{
	Use:   "status <issue-id> <status>",
	Short: "Change an issue's status",
	Long: `Change an issue's status. Issues move forward one step at a time:

  Open -> In Progress -> Done

Skipping In Progress or moving backwards is rejected.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueStatusRun(args[0], args[1])
	},
}

var issueSimilarCmd = &cobra.Command{
	Use:   "similar <title...>",
	Short: "Find issues similar to a title",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueSimilarRun(strings.Join(args, " "))
	},
}

var issueDeleteCmd = &cobra.Command{
	Use:     "delete <issue-id>",
	Aliases: []string{"rm"},
	Short:   "Delete an issue",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueDeleteRun(args[0], issueConfirm)
	},
}

func init() {
	f := issueAddCmd.Flags()
	f.StringVarP(&issueAddOpts.Project, "project", "p", "", "Project name or ID (default: current project)")
	f.BoolVar(&issueAddOpts.NoProject, "no-project", false, "File the issue without a project")
	f.StringVar(&issueAddOpts.Title, "title", "", "Issue title (required)")
	f.StringVar(&issueAddOpts.Description, "desc", "", "Issue description")
	f.StringVar(&issueAddOpts.Priority, "priority", "", "Priority: low, medium, high, critical (default medium)")
	f.StringVar(&issueAddOpts.Status, "status", "", "Initial status (default open)")
	f.StringVar(&issueAddOpts.AssignedTo, "assign", "", "Assignee email")
	_ = issueAddCmd.MarkFlagRequired("title")

	f = issueListCmd.Flags()
	f.StringVarP(&issueListOpts.Project, "project", "p", "", "Project name or ID (default: current project)")
	f.BoolVar(&issueListOpts.All, "all", false, "List issues across all projects")
	f.StringVar(&issueListOpts.Status, "status", "", "Filter by status")
	f.StringVar(&issueListOpts.Priority, "priority", "", "Filter by priority")
	f.StringVar(&issueListOpts.Sort, "sort", view.SortNewest, "Sort order: newest, oldest")
	f.IntVar(&issueListOpts.Page, "page", 1, "Page number")
	f.IntVar(&issueListOpts.PageSize, "page-size", 0, "Issues per page (default page_size)")
	f.BoolVar(&issueListOpts.Mine, "mine", false, "Only issues assigned to the configured user")
	f.BoolVar(&issueListOpts.JSON, "json", false, "Print JSON")

	issueDeleteCmd.Flags().BoolVarP(&issueConfirm, "yes", "y", false, "Delete without confirmation")

	issueCmd.AddCommand(issueAddCmd)
	issueCmd.AddCommand(issueListCmd)
	issueCmd.AddCommand(issueShowCmd)
	issueCmd.AddCommand(issueStatusCmd)
	issueCmd.AddCommand(issueSimilarCmd)
	issueCmd.AddCommand(issueDeleteCmd)
	rootCmd.AddCommand(issueCmd)
}

func issueAddRun(opts issueAddOptions) error {
	user, err := currentUser()
	if err != nil {
		return err
	}
	svc, err := getService()
	if err != nil {
		return err
	}
	ctx := context.Background()

	var projectID, projectName string
	if !opts.NoProject {
		p, err := currentProject(ctx, svc, opts.Project)
		if err != nil {
			return err
		}
		projectID, projectName = p.ID, p.Name
	}

	if similar, err := svc.SimilarIssues(ctx, opts.Title); err != nil {
		ui.Warning("Could not look up similar issues: %v", err)
	} else if len(similar) > 0 {
		ui.Warning("Similar issues already filed:")
		for _, s := range similar {
			fmt.Fprintf(ui.Out, "  %s  %s  %s\n", output.Cyan(shortID(s.ID)), s.Title, output.StatusColor(string(s.Status)))
		}
	}

	in := tracker.NewIssue{
		ProjectID:   projectID,
		Title:       opts.Title,
		Description: opts.Description,
		AssignedTo:  opts.AssignedTo,
		CreatedBy:   user.Email,
	}
	if opts.Priority != "" {
		in.Priority = normalizeStatus(opts.Priority, models.IssuePriorities)
	}
	if opts.Status != "" {
		in.Status = normalizeStatus(opts.Status, models.IssueStatuses)
	}

	if dryRun {
		ui.DryRunMsg("Would file issue: %s", opts.Title)
		return nil
	}

	issue, err := svc.CreateIssue(ctx, in)
	if err != nil {
		return fmt.Errorf("create issue: %w", err)
	}

	if projectName != "" {
		ui.Success("Filed %s in %s: %s", output.Cyan(shortID(issue.ID)), projectName, issue.Title)
	} else {
		ui.Success("Filed %s: %s", output.Cyan(shortID(issue.ID)), issue.Title)
	}
	return nil
}

func issueListRun(opts issueListOptions) error {
	svc, err := getService()
	if err != nil {
		return err
	}
	ctx := context.Background()

	order, err := view.ParseSort(opts.Sort)
	if err != nil {
		return err
	}
	filterBy := view.IssueFilter{
		Status:   string(normalizeStatus(opts.Status, models.IssueStatuses)),
		Priority: string(normalizeStatus(opts.Priority, models.IssuePriorities)),
	}
	if !view.ValidFilter(filterBy.Status, models.IssueStatuses) {
		return fmt.Errorf("%w: unknown status filter %q", tracker.ErrInvalidInput, opts.Status)
	}
	if !view.ValidFilter(filterBy.Priority, models.IssuePriorities) {
		return fmt.Errorf("%w: unknown priority filter %q", tracker.ErrInvalidInput, opts.Priority)
	}

	filter := store.IssueListFilter{}
	if !opts.All {
		p, err := currentProject(ctx, svc, opts.Project)
		if err != nil {
			return err
		}
		filter.ProjectID = p.ID
	}

	issues, err := svc.ListIssues(ctx, filter)
	if err != nil {
		return err
	}

	issues = view.FilterIssues(issues, filterBy)
	if opts.Mine {
		email := configuredUser().Email
		mine := issues[:0]
		for _, issue := range issues {
			if view.AssignedTo(issue, email) {
				mine = append(mine, issue)
			}
		}
		issues = mine
	}
	view.SortIssues(issues, order)

	pageSize := opts.PageSize
	if pageSize < 1 {
		pageSize = viper.GetInt("page_size")
	}
	page := view.Paginate(issues, opts.Page, pageSize)

	if opts.JSON {
		return ui.JSON(page)
	}

	if page.Total == 0 {
		ui.Info("No issues found.")
		return nil
	}

	var names map[string]string
	if opts.All {
		names = projectNames(ctx, svc)
	}
	renderIssueTable(page.Items, names, timeNow())
	fmt.Fprintf(ui.Out, "Showing %d-%d of %d (page %d/%d)\n", page.Start, page.End, page.Total, page.Page, page.TotalPages)
	return nil
}

// renderIssueTable prints issues as a table. A non-nil names map adds a
// project column.
func renderIssueTable(issues []*models.Issue, names map[string]string, now time.Time) {
	headers := []string{"ID", "Title", "Status", "Priority", "Assignee", "Created"}
	if names != nil {
		headers = append([]string{headers[0], "Project"}, headers[1:]...)
	}

	table := ui.Table(headers)
	for _, issue := range issues {
		row := []string{
			shortID(issue.ID),
			issue.Title,
			output.StatusColor(string(issue.Status)),
			output.PriorityColor(string(issue.Priority)),
			issue.AssignedTo,
			view.TimeAgo(issue.CreatedAt, now),
		}
		if names != nil {
			row = append([]string{row[0], names[issue.ProjectID]}, row[1:]...)
		}
		_ = table.Append(row)
	}
	_ = table.Render()
}

func issueShowRun(id string) error {
	svc, err := getService()
	if err != nil {
		return err
	}
	ctx := context.Background()

	issue, err := svc.FindIssue(ctx, id)
	if err != nil {
		return err
	}

	projName := "(none)"
	if issue.ProjectID != "" {
		if p, err := svc.GetProject(ctx, issue.ProjectID); err == nil {
			projName = p.Name
		}
	}

	fmt.Fprintf(ui.Out, "%s  %s\n", output.Cyan(shortID(issue.ID)), issue.Title)
	fmt.Fprintf(ui.Out, "  Project:    %s\n", projName)
	fmt.Fprintf(ui.Out, "  Status:     %s\n", output.StatusColor(string(issue.Status)))
	fmt.Fprintf(ui.Out, "  Priority:   %s\n", output.PriorityColor(string(issue.Priority)))
	if issue.Description != "" {
		fmt.Fprintf(ui.Out, "  Desc:       %s\n", issue.Description)
	}
	if issue.AssignedTo != "" {
		fmt.Fprintf(ui.Out, "  Assignee:   %s\n", issue.AssignedTo)
	}
	fmt.Fprintf(ui.Out, "  Filed by:   %s\n", issue.CreatedBy)
	fmt.Fprintf(ui.Out, "  Created:    %s (%s)\n", issue.CreatedAt.Format(time.RFC3339), view.TimeAgo(issue.CreatedAt, timeNow()))
	fmt.Fprintf(ui.Out, "  Full ID:    %s\n", issue.ID)
	return nil
}

func issueStatusRun(id, rawStatus string) error {
	if _, err := currentUser(); err != nil {
		return err
	}
	svc, err := getService()
	if err != nil {
		return err
	}
	ctx := context.Background()

	issue, err := svc.FindIssue(ctx, id)
	if err != nil {
		return err
	}
	requested := normalizeStatus(rawStatus, models.IssueStatuses)

	if dryRun {
		ui.DryRunMsg("Would move %s from %s to %s", shortID(issue.ID), issue.Status, requested)
		return nil
	}

	from := issue.Status
	updated, err := svc.ChangeIssueStatus(ctx, issue.ID, requested)
	if err != nil {
		return err
	}
	if updated.Status == from {
		ui.Info("%s is already %s", shortID(issue.ID), output.StatusColor(string(from)))
		return nil
	}
	ui.Success("%s: %s -> %s", output.Cyan(shortID(issue.ID)), from, output.StatusColor(string(updated.Status)))
	return nil
}

func issueSimilarRun(title string) error {
	svc, err := getService()
	if err != nil {
		return err
	}

	similar, err := svc.SimilarIssues(context.Background(), title)
	if err != nil {
		return err
	}
	if len(similar) == 0 {
		ui.Info("No similar issues.")
		return nil
	}
	renderIssueTable(similar, nil, timeNow())
	return nil
}

func issueDeleteRun(id string, confirmed bool) error {
	if _, err := currentUser(); err != nil {
		return err
	}
	svc, err := getService()
	if err != nil {
		return err
	}
	ctx := context.Background()

	issue, err := svc.FindIssue(ctx, id)
	if err != nil {
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would delete issue %s: %s", shortID(issue.ID), issue.Title)
		return nil
	}
	if !confirmed {
		return fmt.Errorf("refusing to delete %s without --yes", shortID(issue.ID))
	}

	if err := svc.DeleteIssue(ctx, issue.ID); err != nil {
		return fmt.Errorf("delete issue: %w", err)
	}
	ui.Success("Deleted issue %s: %s", output.Cyan(shortID(issue.ID)), issue.Title)
	return nil
}
