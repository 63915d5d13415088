package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joescharf/itrack/internal/models"
	"github.com/joescharf/itrack/internal/output"
	"github.com/joescharf/itrack/internal/store"
	"github.com/joescharf/itrack/internal/view"
)

var statusAsJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the dashboard",
	Long: `Show dashboard counters across all issues and a per-project summary.

Open counts issues not yet Done, High counts unfinished High and Critical
issues, and Mine counts issues assigned to user.email.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return statusRun()
	},
}

func init() {
	statusCmd.Flags().BoolVar(&statusAsJSON, "json", false, "Print the counters as JSON")
	rootCmd.AddCommand(statusCmd)
}

// dashboard is the JSON form of `itrack status`.
type dashboard struct {
	view.Stats
	Projects []projectSummary `json:"projects"`
}

type projectSummary struct {
	ID         string               `json:"id"`
	Name       string               `json:"name"`
	Status     models.ProjectStatus `json:"status"`
	Open       int                  `json:"open"`
	InProgress int                  `json:"inProgress"`
	Done       int                  `json:"done"`
}

func statusRun() error {
	svc, err := getService()
	if err != nil {
		return err
	}
	ctx := context.Background()

	issues, err := svc.ListIssues(ctx, store.IssueListFilter{})
	if err != nil {
		return err
	}
	projects, err := svc.ListProjects(ctx)
	if err != nil {
		return err
	}

	d := dashboard{Stats: view.ComputeStats(issues, configuredUser().Email)}
	byProject := make(map[string][]*models.Issue)
	for _, issue := range issues {
		byProject[issue.ProjectID] = append(byProject[issue.ProjectID], issue)
	}
	for _, p := range projects {
		counts := countByStatus(byProject[p.ID])
		d.Projects = append(d.Projects, projectSummary{
			ID:         p.ID,
			Name:       p.Name,
			Status:     p.Status,
			Open:       counts[models.IssueStatusOpen],
			InProgress: counts[models.IssueStatusInProgress],
			Done:       counts[models.IssueStatusDone],
		})
	}

	if statusAsJSON {
		return ui.JSON(d)
	}

	fmt.Fprintf(ui.Out, "  Total issues:   %d\n", d.Total)
	fmt.Fprintf(ui.Out, "  Open:           %s\n", output.Green(fmt.Sprintf("%d", d.Open)))
	fmt.Fprintf(ui.Out, "  High priority:  %s\n", output.Red(fmt.Sprintf("%d", d.High)))
	if configuredUser().Email != "" {
		fmt.Fprintf(ui.Out, "  Assigned to me: %s\n", output.Cyan(fmt.Sprintf("%d", d.Mine)))
	}

	if len(d.Projects) == 0 {
		fmt.Fprintln(ui.Out)
		ui.Info("No projects yet. Use 'itrack project add <name>' to create one.")
		return nil
	}

	fmt.Fprintln(ui.Out)
	table := ui.Table([]string{"Project", "Status", "Open", "In Progress", "Done"})
	for _, s := range d.Projects {
		_ = table.Append([]string{
			output.Cyan(s.Name),
			output.StatusColor(string(s.Status)),
			fmt.Sprintf("%d", s.Open),
			fmt.Sprintf("%d", s.InProgress),
			fmt.Sprintf("%d", s.Done),
		})
	}
	_ = table.Render()

	if n := len(byProject[""]); n > 0 {
		ui.Info("%d issue(s) without a project", n)
	}
	return nil
}
