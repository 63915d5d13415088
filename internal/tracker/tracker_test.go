package tracker

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/itrack/internal/models"
	"github.com/joescharf/itrack/internal/store"
	"github.com/joescharf/itrack/internal/workflow"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })
	return NewService(s)
}

func newIssue(t *testing.T, svc *Service, in NewIssue) *models.Issue {
	t.Helper()
	if in.CreatedBy == "" {
		in.CreatedBy = "ada@example.com"
	}
	issue, err := svc.CreateIssue(context.Background(), in)
	require.NoError(t, err)
	return issue
}

func TestCreateProject(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	p, err := svc.CreateProject(ctx, NewProject{Name: "  website ", CreatedBy: "ada@example.com", OwnerID: "uid-ada"})
	require.NoError(t, err)
	assert.Equal(t, "website", p.Name)
	assert.Equal(t, models.ProjectStatusActive, p.Status)

	_, err = svc.CreateProject(ctx, NewProject{Name: " ", CreatedBy: "ada@example.com", OwnerID: "uid-ada"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.CreateProject(ctx, NewProject{Name: "anon"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	projects, err := svc.ListProjects(ctx)
	require.NoError(t, err)
	assert.Len(t, projects, 1, "rejected projects are not stored")
}

func TestCreateIssue_Defaults(t *testing.T) {
	svc := newTestService(t)

	issue := newIssue(t, svc, NewIssue{Title: "Login page crashes"})
	assert.Equal(t, models.IssueStatusOpen, issue.Status)
	assert.Equal(t, models.IssuePriorityMedium, issue.Priority)
	assert.Equal(t, []string{"login", "page", "crashes"}, issue.SearchKeywords)

	got, err := svc.GetIssue(context.Background(), issue.ID)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", got.CreatedBy)
}

func TestCreateIssue_Validation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   NewIssue
	}{
		{"empty title", NewIssue{Title: "  ", CreatedBy: "a@x"}},
		{"no creator", NewIssue{Title: "Crash"}},
		{"bad priority", NewIssue{Title: "Crash", CreatedBy: "a@x", Priority: "Urgent"}},
		{"bad status", NewIssue{Title: "Crash", CreatedBy: "a@x", Status: "Closed"}},
		{"missing project", NewIssue{Title: "Crash", CreatedBy: "a@x", ProjectID: "nope"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateIssue(ctx, tt.in)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}

	issues, err := svc.ListIssues(ctx, store.IssueListFilter{})
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestChangeIssueStatus(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	issue := newIssue(t, svc, NewIssue{Title: "Crash on save"})

	// Open -> Done skips In Progress.
	_, err := svc.ChangeIssueStatus(ctx, issue.ID, models.IssueStatusDone)
	var te *workflow.TransitionError
	require.ErrorAs(t, err, &te)
	assert.ErrorIs(t, err, workflow.ErrSkipIntermediate)
	got, err := svc.GetIssue(ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, models.IssueStatusOpen, got.Status, "rejected transition leaves status unchanged")

	updated, err := svc.ChangeIssueStatus(ctx, issue.ID, models.IssueStatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, models.IssueStatusInProgress, updated.Status)

	_, err = svc.ChangeIssueStatus(ctx, issue.ID, models.IssueStatusOpen)
	assert.ErrorIs(t, err, workflow.ErrRevert)

	// Same status is a no-op.
	same, err := svc.ChangeIssueStatus(ctx, issue.ID, models.IssueStatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, models.IssueStatusInProgress, same.Status)

	updated, err = svc.ChangeIssueStatus(ctx, issue.ID, models.IssueStatusDone)
	require.NoError(t, err)
	assert.Equal(t, models.IssueStatusDone, updated.Status)

	_, err = svc.ChangeIssueStatus(ctx, issue.ID, "Closed")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.ChangeIssueStatus(ctx, "nope", models.IssueStatusDone)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestChangeProjectStatus(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	p, err := svc.CreateProject(ctx, NewProject{Name: "api", CreatedBy: "ada@example.com", OwnerID: "uid-ada"})
	require.NoError(t, err)

	_, err = svc.ChangeProjectStatus(ctx, p.ID, models.ProjectStatusCompleted)
	assert.ErrorIs(t, err, workflow.ErrSkipIntermediate)
	assert.ErrorContains(t, err, `"Active" cannot move directly to "Completed"`)

	p, err = svc.ChangeProjectStatus(ctx, p.ID, models.ProjectStatusOnHold)
	require.NoError(t, err)
	assert.Equal(t, models.ProjectStatusOnHold, p.Status)

	_, err = svc.ChangeProjectStatus(ctx, p.ID, models.ProjectStatusActive)
	assert.ErrorIs(t, err, workflow.ErrRevert)

	p, err = svc.ChangeProjectStatus(ctx, p.ID, models.ProjectStatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, models.ProjectStatusCompleted, p.Status)

	got, err := svc.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProjectStatusCompleted, got.Status)
}

func TestProjectIssuesAndDelete(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	p, err := svc.CreateProject(ctx, NewProject{Name: "api", CreatedBy: "ada@example.com", OwnerID: "uid-ada"})
	require.NoError(t, err)
	newIssue(t, svc, NewIssue{ProjectID: p.ID, Title: "First"})
	newIssue(t, svc, NewIssue{ProjectID: p.ID, Title: "Second"})
	newIssue(t, svc, NewIssue{Title: "Loose"})

	gotProject, issues, err := svc.ProjectIssues(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "api", gotProject.Name)
	assert.Len(t, issues, 2)

	detached, err := svc.DeleteProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), detached)

	_, _, err = svc.ProjectIssues(ctx, p.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	all, err := svc.ListIssues(ctx, store.IssueListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestDeleteIssue(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	issue := newIssue(t, svc, NewIssue{Title: "Typo in footer"})
	require.NoError(t, svc.DeleteIssue(ctx, issue.ID))
	assert.ErrorIs(t, svc.DeleteIssue(ctx, issue.ID), store.ErrNotFound)
}

func TestSimilarIssues(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	newIssue(t, svc, NewIssue{Title: "Login page crashes"})
	newIssue(t, svc, NewIssue{Title: "Slow login"})
	newIssue(t, svc, NewIssue{Title: "Dark mode"})

	similar, err := svc.SimilarIssues(ctx, "login is broken")
	require.NoError(t, err)
	assert.Len(t, similar, 2)

	none, err := svc.SimilarIssues(ctx, "lo")
	require.NoError(t, err)
	assert.Empty(t, none)

	for i := 0; i < 7; i++ {
		newIssue(t, svc, NewIssue{Title: "Export fails"})
	}
	capped, err := svc.SimilarIssues(ctx, "export")
	require.NoError(t, err)
	assert.Len(t, capped, 5)
}
