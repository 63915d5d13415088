package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/itrack/internal/tui"
)

var (
	tuiProject string
	tuiAll     bool
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the interactive issue board",
	Long: `Open a full-screen issue board for the current project (or --project).

Keys: j/k move, n/p change page, s/f cycle the status and priority filters,
o toggles the sort order, enter changes the selected issue's status, r
reloads and q quits.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return tuiRun(tuiProject, tuiAll)
	},
}

func init() {
	tuiCmd.Flags().StringVarP(&tuiProject, "project", "p", "", "Project name or ID (default: current project)")
	tuiCmd.Flags().BoolVar(&tuiAll, "all", false, "Show issues across all projects")
	rootCmd.AddCommand(tuiCmd)
}

func tuiRun(projectRef string, all bool) error {
	user, err := currentUser()
	if err != nil {
		return err
	}
	svc, err := getService()
	if err != nil {
		return err
	}

	opts := tui.Options{
		UserEmail: user.Email,
		PageSize:  viper.GetInt("page_size"),
	}
	if !all {
		p, err := currentProject(context.Background(), svc, projectRef)
		if err != nil {
			return err
		}
		opts.ProjectID = p.ID
	}
	return tui.Run(svc, opts)
}
