package cmd

import (
	"github.com/spf13/cobra"

	"github.com/joescharf/itrack/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP stdio server",
	Long: `Start an MCP (Model Context Protocol) server on stdio so assistants can
read and update projects and issues. Configure the client with:

  {
    "mcpServers": {
      "itrack": { "command": "itrack", "args": ["mcp"] }
    }
  }

Available tools: itrack_list_projects, itrack_create_project,
itrack_set_project_status, itrack_list_issues, itrack_create_issue,
itrack_set_issue_status, itrack_similar_issues

Tools that create records act as user.id and user.email. Status changes
follow the same forward-only workflow as the CLI.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := getService()
		if err != nil {
			return err
		}
		return mcp.NewServer(svc, configuredUser(), buildVersion).ServeStdio(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
