package store

import (
	"context"
	"errors"

	"github.com/joescharf/itrack/internal/models"
)

// ErrNotFound is wrapped by every lookup that matches no row.
var ErrNotFound = errors.New("not found")

// IssueListFilter specifies filters for listing issues. Empty fields match all.
type IssueListFilter struct {
	ProjectID string
	Status    models.IssueStatus
	Priority  models.IssuePriority
	// Oldest orders by creation time ascending instead of newest first.
	Oldest bool
}

// Store defines the persistence interface for itrack.
type Store interface {
	// Projects
	CreateProject(ctx context.Context, p *models.Project) error
	GetProject(ctx context.Context, id string) (*models.Project, error)
	ListProjects(ctx context.Context) ([]*models.Project, error)
	UpdateProjectStatus(ctx context.Context, id string, status models.ProjectStatus) error
	// DeleteProject removes the project and detaches its issues, returning
	// how many issues were detached.
	DeleteProject(ctx context.Context, id string) (int64, error)

	// Issues
	CreateIssue(ctx context.Context, issue *models.Issue) error
	GetIssue(ctx context.Context, id string) (*models.Issue, error)
	ListIssues(ctx context.Context, filter IssueListFilter) ([]*models.Issue, error)
	UpdateIssueStatus(ctx context.Context, id string, status models.IssueStatus) error
	DeleteIssue(ctx context.Context, id string) error
	// FindIssuesByKeywords returns issues whose search keywords contain any of
	// the given tokens, newest first.
	FindIssuesByKeywords(ctx context.Context, keywords []string, limit int) ([]*models.Issue, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
