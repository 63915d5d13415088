package cmd

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/joescharf/itrack/internal/models"
	"github.com/joescharf/itrack/internal/store"
)

const (
	exportFormatJSON = "json"
	exportFormatCSV  = "csv"
)

var (
	exportFormat  string
	exportOutput  string
	exportProject string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export issues as JSON or CSV",
	Long: `Export issues to stdout or a file.

JSON output contains projects and issues. CSV output has one row per issue.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return exportRun(exportFormat, exportOutput, exportProject)
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", exportFormatJSON, "Output format: json, csv")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Write to file instead of stdout")
	exportCmd.Flags().StringVarP(&exportProject, "project", "p", "", "Only issues of this project")
	rootCmd.AddCommand(exportCmd)
}

// exportDoc is the JSON export layout.
type exportDoc struct {
	ExportedAt time.Time         `json:"exportedAt"`
	Projects   []*models.Project `json:"projects"`
	Issues     []*models.Issue   `json:"issues"`
}

func exportRun(format, path, projectRef string) error {
	if format != exportFormatJSON && format != exportFormatCSV {
		return fmt.Errorf("unknown export format %q (valid: json, csv)", format)
	}

	svc, err := getService()
	if err != nil {
		return err
	}
	ctx := context.Background()

	projects, err := svc.ListProjects(ctx)
	if err != nil {
		return err
	}
	filter := store.IssueListFilter{Oldest: true}
	if projectRef != "" {
		p, err := svc.ResolveProject(ctx, projectRef)
		if err != nil {
			return err
		}
		filter.ProjectID = p.ID
		projects = []*models.Project{p}
	}
	issues, err := svc.ListIssues(ctx, filter)
	if err != nil {
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would export %d issue(s) as %s", len(issues), format)
		return nil
	}

	var w io.Writer = ui.Out
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create export file: %w", err)
		}
		defer f.Close()
		w = f
	}

	switch format {
	case exportFormatCSV:
		err = writeIssuesCSV(w, issues, projects)
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		err = enc.Encode(exportDoc{ExportedAt: timeNow().UTC(), Projects: projects, Issues: issues})
	}
	if err != nil {
		return fmt.Errorf("write export: %w", err)
	}

	if path != "" {
		ui.Success("Exported %d issue(s) to %s", len(issues), path)
	}
	return nil
}

var csvHeader = []string{"id", "project", "title", "description", "status", "priority", "assigned_to", "created_by", "created_at"}

func writeIssuesCSV(w io.Writer, issues []*models.Issue, projects []*models.Project) error {
	names := make(map[string]string, len(projects))
	for _, p := range projects {
		names[p.ID] = p.Name
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, issue := range issues {
		record := []string{
			issue.ID,
			names[issue.ProjectID],
			issue.Title,
			issue.Description,
			string(issue.Status),
			string(issue.Priority),
			issue.AssignedTo,
			issue.CreatedBy,
			issue.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
