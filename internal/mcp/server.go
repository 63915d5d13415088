package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/joescharf/itrack/internal/auth"
	"github.com/joescharf/itrack/internal/models"
	"github.com/joescharf/itrack/internal/store"
	"github.com/joescharf/itrack/internal/tracker"
	"github.com/joescharf/itrack/internal/view"
)

// Server exposes the tracker service as MCP tools. Every write is made as
// the configured user.
type Server struct {
	tracker *tracker.Service
	user    auth.Identity
	version string
}

// NewServer creates the MCP server wrapper.
func NewServer(svc *tracker.Service, user auth.Identity, version string) *Server {
	if version == "" {
		version = "dev"
	}
	return &Server{tracker: svc, user: user, version: version}
}

// MCPServer returns a configured mcp-go server with all tools registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer("itrack", s.version, server.WithToolCapabilities(true))

	srv.AddTool(s.listProjectsTool())
	srv.AddTool(s.createProjectTool())
	srv.AddTool(s.setProjectStatusTool())
	srv.AddTool(s.listIssuesTool())
	srv.AddTool(s.createIssueTool())
	srv.AddTool(s.setIssueStatusTool())
	srv.AddTool(s.similarIssuesTool())

	return srv
}

// ServeStdio starts the stdio transport, blocking until ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	stdioServer := server.NewStdioServer(s.MCPServer())
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) requireUser() error {
	if s.user.Subject == "" || s.user.Email == "" {
		return fmt.Errorf("%w: set user.id and user.email in the itrack config", auth.ErrUnauthenticated)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Projects
// ---------------------------------------------------------------------------

// itrack_list_projects
func (s *Server) listProjectsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("itrack_list_projects",
		mcp.WithDescription("List all projects, newest first. Returns a JSON array with id, name, description, status (Active, On Hold, Completed), createdBy and createdAt."),
	)
	return tool, s.handleListProjects
}

func (s *Server) handleListProjects(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projects, err := s.tracker.ListProjects(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list projects: %v", err)), nil
	}
	if projects == nil {
		projects = []*models.Project{}
	}
	return jsonResult(projects)
}

// itrack_create_project
func (s *Server) createProjectTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("itrack_create_project",
		mcp.WithDescription("Create a project. New projects start Active. Returns the created project as JSON."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Project name")),
		mcp.WithString("description", mcp.Description("Project description")),
	)
	return tool, s.handleCreateProject
}

func (s *Server) handleCreateProject(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: name"), nil
	}
	if err := s.requireUser(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	p, err := s.tracker.CreateProject(ctx, tracker.NewProject{
		Name:        name,
		Description: request.GetString("description", ""),
		CreatedBy:   s.user.Email,
		OwnerID:     s.user.Subject,
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to create project: %v", err)), nil
	}
	return jsonResult(p)
}

// itrack_set_project_status
func (s *Server) setProjectStatusTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("itrack_set_project_status",
		mcp.WithDescription("Move a project to a new status. Statuses only move forward (Active, On Hold, Completed) and a project cannot jump from Active straight to Completed."),
		mcp.WithString("project", mcp.Required(), mcp.Description("Project ID or name")),
		mcp.WithString("status", mcp.Required(), mcp.Description("New status"), mcp.Enum("Active", "On Hold", "Completed")),
	)
	return tool, s.handleSetProjectStatus
}

func (s *Server) handleSetProjectStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.requireUser(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	ref, err := request.RequireString("project")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: project"), nil
	}
	status, err := request.RequireString("status")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: status"), nil
	}

	p, err := s.tracker.ResolveProject(ctx, ref)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	p, err = s.tracker.ChangeProjectStatus(ctx, p.ID, models.ProjectStatus(status))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(p)
}

// ---------------------------------------------------------------------------
// Issues
// ---------------------------------------------------------------------------

// itrack_list_issues
func (s *Server) listIssuesTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("itrack_list_issues",
		mcp.WithDescription("List issues, optionally filtered by project, status and priority. Returns a JSON array of issues with id, projectId, title, description, priority, status, assignedTo, createdBy and createdAt."),
		mcp.WithString("project", mcp.Description("Project ID or name to filter by")),
		mcp.WithString("status", mcp.Description("Status filter: Open, In Progress, Done")),
		mcp.WithString("priority", mcp.Description("Priority filter: Low, Medium, High, Critical")),
		mcp.WithString("sort", mcp.Description("newest (default) or oldest")),
	)
	return tool, s.handleListIssues
}

func (s *Server) handleListIssues(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filter := store.IssueListFilter{}

	if ref := request.GetString("project", ""); ref != "" {
		p, err := s.tracker.ResolveProject(ctx, ref)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		filter.ProjectID = p.ID
	}

	order, err := view.ParseSort(request.GetString("sort", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	filter.Oldest = order == view.SortOldest

	issues, err := s.tracker.ListIssues(ctx, filter)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list issues: %v", err)), nil
	}

	issues = view.FilterIssues(issues, view.IssueFilter{
		Status:   request.GetString("status", ""),
		Priority: request.GetString("priority", ""),
	})
	return jsonResult(issues)
}

// itrack_create_issue
func (s *Server) createIssueTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("itrack_create_issue",
		mcp.WithDescription("File a new issue. Call itrack_similar_issues first to avoid duplicates. Returns the created issue as JSON."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Issue title")),
		mcp.WithString("project", mcp.Description("Project ID or name")),
		mcp.WithString("description", mcp.Description("Issue description")),
		mcp.WithString("priority", mcp.Description("Low, Medium (default), High, Critical")),
		mcp.WithString("status", mcp.Description("Initial status: Open (default), In Progress, Done")),
		mcp.WithString("assigned_to", mcp.Description("Assignee")),
	)
	return tool, s.handleCreateIssue
}

func (s *Server) handleCreateIssue(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := request.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: title"), nil
	}
	if err := s.requireUser(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	in := tracker.NewIssue{
		Title:       title,
		Description: request.GetString("description", ""),
		Priority:    models.IssuePriority(request.GetString("priority", "")),
		Status:      models.IssueStatus(request.GetString("status", "")),
		AssignedTo:  request.GetString("assigned_to", ""),
		CreatedBy:   s.user.Email,
	}
	if ref := request.GetString("project", ""); ref != "" {
		p, err := s.tracker.ResolveProject(ctx, ref)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		in.ProjectID = p.ID
	}

	issue, err := s.tracker.CreateIssue(ctx, in)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to create issue: %v", err)), nil
	}
	return jsonResult(issue)
}

// itrack_set_issue_status
func (s *Server) setIssueStatusTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("itrack_set_issue_status",
		mcp.WithDescription("Move an issue to a new status. Statuses only move forward (Open, In Progress, Done) and an issue cannot jump from Open straight to Done."),
		mcp.WithString("issue_id", mcp.Required(), mcp.Description("Issue ID (full ULID or unique prefix)")),
		mcp.WithString("status", mcp.Required(), mcp.Description("New status"), mcp.Enum("Open", "In Progress", "Done")),
	)
	return tool, s.handleSetIssueStatus
}

func (s *Server) handleSetIssueStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.requireUser(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	issueID, err := request.RequireString("issue_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: issue_id"), nil
	}
	status, err := request.RequireString("status")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: status"), nil
	}

	issue, err := s.tracker.FindIssue(ctx, issueID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	issue, err = s.tracker.ChangeIssueStatus(ctx, issue.ID, models.IssueStatus(status))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(issue)
}

// itrack_similar_issues
func (s *Server) similarIssuesTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("itrack_similar_issues",
		mcp.WithDescription("Find up to five existing issues sharing a keyword with a proposed title. Titles shorter than three characters return an empty array."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Proposed issue title")),
	)
	return tool, s.handleSimilarIssues
}

func (s *Server) handleSimilarIssues(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := request.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: title"), nil
	}
	issues, err := s.tracker.SimilarIssues(ctx, title)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to look up similar issues: %v", err)), nil
	}
	if issues == nil {
		issues = []*models.Issue{}
	}
	return jsonResult(issues)
}
