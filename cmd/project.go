package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joescharf/itrack/internal/models"
	"github.com/joescharf/itrack/internal/output"
	"github.com/joescharf/itrack/internal/tracker"
	"github.com/joescharf/itrack/internal/view"
)

var (
	projectDesc    string
	projectNoOpen  bool
	projectAsJSON  bool
	projectConfirm bool
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage projects",
	Long:  "Create, list, open, and move projects through Active, On Hold and Completed.",
}

var projectAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a project",
	Long:  "Create a project owned by the configured user. It starts Active and becomes the current project unless --no-open is given.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return projectAddRun(args[0], projectDesc, !projectNoOpen)
	},
}

var projectListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List projects",
	RunE: func(cmd *cobra.Command, args []string) error {
		return projectListRun(projectAsJSON)
	},
}

var projectShowCmd = &cobra.Command{
	Use:   "show [name]",
	Short: "Show a project and its issues",
	Long:  "Show a project and its issues. Without <name>, shows the current project.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var ref string
		if len(args) > 0 {
			ref = args[0]
		}
		return projectShowRun(ref)
	},
}

var projectOpenCmd = &cobra.Command{
	Use:   "open <name>",
	Short: "Make a project the current project",
	Long:  "Remember a project so issue commands default to it.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return projectOpenRun(args[0])
	},
}

var projectStatusCmd = &cobra.Command{
	Use:   "status <name> <status>",
	Short: "Change a project's status",
	Long: `Change a project's status. Projects move forward one step at a time:

  Active -> On Hold -> Completed

Skipping On Hold or moving backwards is rejected.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return projectStatusRun(args[0], args[1])
	},
}

var projectDeleteCmd = &cobra.Command{
	Use:     "delete <name>",
	Aliases: []string{"rm"},
	Short:   "Delete a project",
	Long:    "Delete a project. Its issues are kept and detached from it.",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return projectDeleteRun(args[0], projectConfirm)
	},
}

func init() {
	projectAddCmd.Flags().StringVar(&projectDesc, "desc", "", "Project description")
	projectAddCmd.Flags().BoolVar(&projectNoOpen, "no-open", false, "Do not make the new project current")

	projectListCmd.Flags().BoolVar(&projectAsJSON, "json", false, "Print JSON")

	projectDeleteCmd.Flags().BoolVarP(&projectConfirm, "yes", "y", false, "Delete without confirmation")

	projectCmd.AddCommand(projectAddCmd)
	projectCmd.AddCommand(projectListCmd)
	projectCmd.AddCommand(projectShowCmd)
	projectCmd.AddCommand(projectOpenCmd)
	projectCmd.AddCommand(projectStatusCmd)
	projectCmd.AddCommand(projectDeleteCmd)
	rootCmd.AddCommand(projectCmd)
}

func projectAddRun(name, desc string, open bool) error {
	user, err := currentUser()
	if err != nil {
		return err
	}
	svc, err := getService()
	if err != nil {
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would create project: %s", name)
		return nil
	}

	p, err := svc.CreateProject(context.Background(), tracker.NewProject{
		Name:        name,
		Description: desc,
		CreatedBy:   user.Email,
		OwnerID:     user.Subject,
	})
	if err != nil {
		return fmt.Errorf("create project: %w", err)
	}

	ui.Success("Created project: %s", output.Cyan(p.Name))
	ui.VerboseLog("ID: %s", p.ID)
	if open {
		if err := stateFile().SetCurrentProject(p.ID); err != nil {
			return err
		}
		ui.Info("Current project is now %s", p.Name)
	}
	return nil
}

func projectListRun(asJSON bool) error {
	svc, err := getService()
	if err != nil {
		return err
	}
	ctx := context.Background()

	projects, err := svc.ListProjects(ctx)
	if err != nil {
		return err
	}
	if asJSON {
		return ui.JSON(projects)
	}

	if len(projects) == 0 {
		ui.Info("No projects yet. Use 'itrack project add <name>' to create one.")
		return nil
	}

	current, _ := stateFile().CurrentProject()
	now := timeNow()

	table := ui.Table([]string{"", "Name", "Status", "Open", "In Progress", "Done", "Created"})
	for _, p := range projects {
		_, issues, err := svc.ProjectIssues(ctx, p.ID)
		if err != nil {
			return err
		}
		counts := countByStatus(issues)

		marker := ""
		if p.ID == current {
			marker = "*"
		}
		_ = table.Append([]string{
			marker,
			output.Cyan(p.Name),
			output.StatusColor(string(p.Status)),
			fmt.Sprintf("%d", counts[models.IssueStatusOpen]),
			fmt.Sprintf("%d", counts[models.IssueStatusInProgress]),
			fmt.Sprintf("%d", counts[models.IssueStatusDone]),
			view.TimeAgo(p.CreatedAt, now),
		})
	}
	_ = table.Render()
	return nil
}

func projectShowRun(ref string) error {
	svc, err := getService()
	if err != nil {
		return err
	}
	ctx := context.Background()

	p, err := currentProject(ctx, svc, ref)
	if err != nil {
		return err
	}
	_, issues, err := svc.ProjectIssues(ctx, p.ID)
	if err != nil {
		return err
	}
	now := timeNow()

	fmt.Fprintf(ui.Out, "%s\n", output.Cyan(p.Name))
	if p.Description != "" {
		fmt.Fprintf(ui.Out, "  Desc:       %s\n", p.Description)
	}
	fmt.Fprintf(ui.Out, "  Status:     %s\n", output.StatusColor(string(p.Status)))
	fmt.Fprintf(ui.Out, "  Owner:      %s\n", p.CreatedBy)
	fmt.Fprintf(ui.Out, "  Created:    %s\n", view.TimeAgo(p.CreatedAt, now))
	fmt.Fprintf(ui.Out, "  ID:         %s\n", p.ID)

	counts := countByStatus(issues)
	fmt.Fprintf(ui.Out, "  Issues:     %d open, %d in progress, %d done\n",
		counts[models.IssueStatusOpen], counts[models.IssueStatusInProgress], counts[models.IssueStatusDone])

	if len(issues) == 0 {
		return nil
	}
	fmt.Fprintln(ui.Out)
	renderIssueTable(issues, nil, now)
	return nil
}

func projectOpenRun(ref string) error {
	svc, err := getService()
	if err != nil {
		return err
	}

	p, err := svc.ResolveProject(context.Background(), ref)
	if err != nil {
		return err
	}
	if err := stateFile().SetCurrentProject(p.ID); err != nil {
		return err
	}
	ui.Success("Current project is now %s", output.Cyan(p.Name))
	return nil
}

func projectStatusRun(ref, rawStatus string) error {
	if _, err := currentUser(); err != nil {
		return err
	}
	svc, err := getService()
	if err != nil {
		return err
	}
	ctx := context.Background()

	p, err := svc.ResolveProject(ctx, ref)
	if err != nil {
		return err
	}
	requested := normalizeStatus(rawStatus, models.ProjectStatuses)

	if dryRun {
		ui.DryRunMsg("Would move %s from %s to %s", p.Name, p.Status, requested)
		return nil
	}

	from := p.Status
	updated, err := svc.ChangeProjectStatus(ctx, p.ID, requested)
	if err != nil {
		return err
	}
	if updated.Status == from {
		ui.Info("%s is already %s", p.Name, output.StatusColor(string(from)))
		return nil
	}
	ui.Success("%s: %s -> %s", output.Cyan(p.Name), from, output.StatusColor(string(updated.Status)))
	return nil
}

func projectDeleteRun(ref string, confirmed bool) error {
	if _, err := currentUser(); err != nil {
		return err
	}
	svc, err := getService()
	if err != nil {
		return err
	}
	ctx := context.Background()

	p, err := svc.ResolveProject(ctx, ref)
	if err != nil {
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would delete project: %s", p.Name)
		return nil
	}
	if !confirmed {
		return fmt.Errorf("refusing to delete %s without --yes", p.Name)
	}

	detached, err := svc.DeleteProject(ctx, p.ID)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}

	sf := stateFile()
	if current, _ := sf.CurrentProject(); current == p.ID {
		if err := sf.SetCurrentProject(""); err != nil {
			ui.Warning("Could not clear current project: %v", err)
		}
	}

	ui.Success("Deleted project: %s", output.Cyan(p.Name))
	if detached > 0 {
		ui.Info("%d issue(s) kept without a project", detached)
	}
	return nil
}

func countByStatus(issues []*models.Issue) map[models.IssueStatus]int {
	counts := make(map[models.IssueStatus]int, len(models.IssueStatuses))
	for _, issue := range issues {
		counts[issue.Status]++
	}
	return counts
}
