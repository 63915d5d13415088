// Package tracker is the application layer shared by the CLI, TUI, REST API
// and MCP server. It validates input, applies the status workflow, and
// persists changes through a store.Store.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/joescharf/itrack/internal/models"
	"github.com/joescharf/itrack/internal/store"
	"github.com/joescharf/itrack/internal/workflow"
)

// ErrInvalidInput is wrapped by errors caused by missing or malformed input.
// Nothing is written when it is returned.
var ErrInvalidInput = errors.New("invalid input")

func invalid(format string, a ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, a...))
}

// Service coordinates the store and the status workflow.
type Service struct {
	store store.Store
}

// NewService creates a Service backed by s.
func NewService(s store.Store) *Service {
	return &Service{store: s}
}

// NewProject holds the fields a caller supplies when creating a project.
type NewProject struct {
	Name        string
	Description string
	CreatedBy   string // creator email
	OwnerID     string // creator subject
}

// NewIssue holds the fields a caller supplies when filing an issue.
type NewIssue struct {
	ProjectID   string
	Title       string
	Description string
	Priority    models.IssuePriority // default Medium
	Status      models.IssueStatus   // default Open
	AssignedTo  string
	CreatedBy   string
}

// --- Projects ---

// CreateProject validates and stores a new Active project.
func (s *Service) CreateProject(ctx context.Context, in NewProject) (*models.Project, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, invalid("project name is required")
	}
	if in.CreatedBy == "" || in.OwnerID == "" {
		return nil, invalid("a signed-in user is required to create a project")
	}

	p := &models.Project{
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		Status:      models.ProjectStatusActive,
		CreatedBy:   in.CreatedBy,
		OwnerID:     in.OwnerID,
	}
	if err := s.store.CreateProject(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// GetProject returns a project by ID.
func (s *Service) GetProject(ctx context.Context, id string) (*models.Project, error) {
	return s.store.GetProject(ctx, id)
}

// ListProjects returns all projects, newest first.
func (s *Service) ListProjects(ctx context.Context) ([]*models.Project, error) {
	return s.store.ListProjects(ctx)
}

// ChangeProjectStatus moves a project to the requested status if the
// workflow allows it. A rejected transition returns a *workflow.TransitionError
// and leaves the stored project untouched.
func (s *Service) ChangeProjectStatus(ctx context.Context, id string, requested models.ProjectStatus) (*models.Project, error) {
	if !workflow.Projects.Contains(requested) {
		return nil, invalid("unknown %s status %q", workflow.Projects.Kind(), requested)
	}

	p, err := s.store.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := workflow.Projects.Check(p.Status, requested).Err(); err != nil {
		return nil, err
	}
	if p.Status == requested {
		return p, nil
	}

	if err := s.store.UpdateProjectStatus(ctx, id, requested); err != nil {
		return nil, err
	}
	p.Status = requested
	return p, nil
}

// DeleteProject removes a project. Its issues are kept and detached from
// it; the number detached is returned.
func (s *Service) DeleteProject(ctx context.Context, id string) (int64, error) {
	return s.store.DeleteProject(ctx, id)
}

// --- Issues ---

// CreateIssue validates and stores a new issue, deriving its search keywords
// from the title.
func (s *Service) CreateIssue(ctx context.Context, in NewIssue) (*models.Issue, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, invalid("issue title is required")
	}
	if in.CreatedBy == "" {
		return nil, invalid("a signed-in user is required to file an issue")
	}

	priority := in.Priority
	if priority == "" {
		priority = models.IssuePriorityMedium
	}
	if !priority.IsValid() {
		return nil, invalid("unknown priority %q", in.Priority)
	}

	status := in.Status
	if status == "" {
		status = models.IssueStatusOpen
	}
	if !workflow.Issues.Contains(status) {
		return nil, invalid("unknown %s status %q", workflow.Issues.Kind(), in.Status)
	}

	projectID := strings.TrimSpace(in.ProjectID)
	if projectID != "" {
		if _, err := s.store.GetProject(ctx, projectID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, invalid("project %s does not exist", projectID)
			}
			return nil, err
		}
	}

	issue := &models.Issue{
		ProjectID:      projectID,
		Title:          title,
		Description:    strings.TrimSpace(in.Description),
		Priority:       priority,
		Status:         status,
		AssignedTo:     strings.TrimSpace(in.AssignedTo),
		CreatedBy:      in.CreatedBy,
		SearchKeywords: SearchKeywords(title),
	}
	if err := s.store.CreateIssue(ctx, issue); err != nil {
		return nil, err
	}
	return issue, nil
}

// GetIssue returns an issue by ID.
func (s *Service) GetIssue(ctx context.Context, id string) (*models.Issue, error) {
	return s.store.GetIssue(ctx, id)
}

// ListIssues returns issues matching filter.
func (s *Service) ListIssues(ctx context.Context, filter store.IssueListFilter) ([]*models.Issue, error) {
	return s.store.ListIssues(ctx, filter)
}

// ProjectIssues returns the issues filed under a project, newest first. The
// project must exist.
func (s *Service) ProjectIssues(ctx context.Context, projectID string) (*models.Project, []*models.Issue, error) {
	p, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, nil, err
	}
	issues, err := s.store.ListIssues(ctx, store.IssueListFilter{ProjectID: projectID})
	if err != nil {
		return nil, nil, err
	}
	return p, issues, nil
}

// ChangeIssueStatus moves an issue to the requested status if the workflow
// allows it. A rejected transition returns a *workflow.TransitionError and
// leaves the stored issue untouched.
func (s *Service) ChangeIssueStatus(ctx context.Context, id string, requested models.IssueStatus) (*models.Issue, error) {
	if !workflow.Issues.Contains(requested) {
		return nil, invalid("unknown %s status %q", workflow.Issues.Kind(), requested)
	}

	issue, err := s.store.GetIssue(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := workflow.Issues.Check(issue.Status, requested).Err(); err != nil {
		return nil, err
	}
	if issue.Status == requested {
		return issue, nil
	}

	if err := s.store.UpdateIssueStatus(ctx, id, requested); err != nil {
		return nil, err
	}
	issue.Status = requested
	return issue, nil
}

// DeleteIssue removes an issue.
func (s *Service) DeleteIssue(ctx context.Context, id string) error {
	return s.store.DeleteIssue(ctx, id)
}

// SimilarIssues returns up to five stored issues sharing an exact keyword
// with title. Short titles return no results without querying the store.
func (s *Service) SimilarIssues(ctx context.Context, title string) ([]*models.Issue, error) {
	keywords := SimilarityKeywords(title)
	if len(keywords) == 0 {
		return nil, nil
	}
	return s.store.FindIssuesByKeywords(ctx, keywords, maxSimilarResults)
}
