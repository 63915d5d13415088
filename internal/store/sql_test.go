package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/itrack/internal/models"
)

func newTestStore(t *testing.T) *SQLStore {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")

	s, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)

	err = s.Migrate(context.Background())
	require.NoError(t, err)

	t.Cleanup(func() { s.Close() })
	return s
}

func TestNewSQLiteStore_CreatesDirectory(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "subdir", "test.db")

	s, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(filepath.Join(dir, "subdir"))
	assert.NoError(t, err, "should create parent directory")
}

func TestMigrate_Idempotent(t *testing.T) {
	s := newTestStore(t)

	// Running migrate again should be a no-op
	err := s.Migrate(context.Background())
	assert.NoError(t, err)
}

func TestOpen_Drivers(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, Config{Path: filepath.Join(t.TempDir(), "x.db")})
	require.NoError(t, err)
	_ = s.Close()

	_, err = Open(ctx, Config{Driver: DriverSQLite})
	assert.ErrorContains(t, err, "db.path")

	_, err = Open(ctx, Config{Driver: DriverPostgres})
	assert.ErrorContains(t, err, "db.dsn")

	_, err = Open(ctx, Config{Driver: "mongo"})
	assert.ErrorContains(t, err, "unknown db driver")
}

func TestRebind(t *testing.T) {
	q := "SELECT a FROM t WHERE x = ? AND y IN (?, ?)"
	assert.Equal(t, q, dialectSQLite.rebind(q))
	assert.Equal(t, "SELECT a FROM t WHERE x = $1 AND y IN ($2, $3)", dialectPostgres.rebind(q))
}

// --- Project CRUD ---

func TestProjectCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := &models.Project{
		Name:        "website",
		Description: "Marketing site",
		Status:      models.ProjectStatusActive,
		CreatedBy:   "ada@example.com",
		OwnerID:     "uid-ada",
	}
	require.NoError(t, s.CreateProject(ctx, p))
	assert.NotEmpty(t, p.ID)
	assert.False(t, p.CreatedAt.IsZero())

	got, err := s.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "website", got.Name)
	assert.Equal(t, "Marketing site", got.Description)
	assert.Equal(t, models.ProjectStatusActive, got.Status)
	assert.Equal(t, "ada@example.com", got.CreatedBy)
	assert.Equal(t, "uid-ada", got.OwnerID)

	require.NoError(t, s.UpdateProjectStatus(ctx, p.ID, models.ProjectStatusOnHold))
	got, err = s.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProjectStatusOnHold, got.Status)

	projects, err := s.ListProjects(ctx)
	require.NoError(t, err)
	assert.Len(t, projects, 1)

	_, err = s.DeleteProject(ctx, p.ID)
	require.NoError(t, err)

	_, err = s.GetProject(ctx, p.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestListProjects_NewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, name := range []string{"first", "second", "third"} {
		p := &models.Project{Name: name, Status: models.ProjectStatusActive, CreatedAt: base.Add(time.Duration(i) * time.Hour)}
		require.NoError(t, s.CreateProject(ctx, p))
	}

	projects, err := s.ListProjects(ctx)
	require.NoError(t, err)
	require.Len(t, projects, 3)
	assert.Equal(t, "third", projects[0].Name)
	assert.Equal(t, "first", projects[2].Name)
}

func TestProjectNotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.UpdateProjectStatus(ctx, "nope", models.ProjectStatusOnHold)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.DeleteProject(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.GetProject(ctx, "nope")
	assert.ErrorContains(t, err, "project not found: nope")
}

func TestDeleteProject_DetachesIssues(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := &models.Project{Name: "api", Status: models.ProjectStatusActive}
	require.NoError(t, s.CreateProject(ctx, p))

	issue := &models.Issue{ProjectID: p.ID, Title: "Broken login", Status: models.IssueStatusOpen, Priority: models.IssuePriorityHigh}
	require.NoError(t, s.CreateIssue(ctx, issue))
	other := &models.Issue{Title: "Unfiled", Status: models.IssueStatusOpen, Priority: models.IssuePriorityLow}
	require.NoError(t, s.CreateIssue(ctx, other))

	detached, err := s.DeleteProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), detached)

	got, err := s.GetIssue(ctx, issue.ID)
	require.NoError(t, err)
	assert.Empty(t, got.ProjectID, "issue should survive without a project")
}

// --- Issue CRUD ---

func TestIssueCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := &models.Project{Name: "api", Status: models.ProjectStatusActive}
	require.NoError(t, s.CreateProject(ctx, p))

	issue := &models.Issue{
		ProjectID:      p.ID,
		Title:          "Login page crashes",
		Description:    "Stack trace on submit",
		Priority:       models.IssuePriorityCritical,
		Status:         models.IssueStatusOpen,
		AssignedTo:     "bob@example.com",
		CreatedBy:      "ada@example.com",
		SearchKeywords: []string{"login", "page", "crashes", "login"},
	}
	require.NoError(t, s.CreateIssue(ctx, issue))
	assert.NotEmpty(t, issue.ID)

	got, err := s.GetIssue(ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ProjectID)
	assert.Equal(t, "Login page crashes", got.Title)
	assert.Equal(t, models.IssuePriorityCritical, got.Priority)
	assert.Equal(t, models.IssueStatusOpen, got.Status)
	assert.Equal(t, "bob@example.com", got.AssignedTo)
	assert.Equal(t, "ada@example.com", got.CreatedBy)
	assert.Equal(t, []string{"crashes", "login", "page"}, got.SearchKeywords)

	require.NoError(t, s.UpdateIssueStatus(ctx, issue.ID, models.IssueStatusInProgress))
	got, err = s.GetIssue(ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, models.IssueStatusInProgress, got.Status)
	assert.Equal(t, "Login page crashes", got.Title, "status update must not touch other fields")

	require.NoError(t, s.DeleteIssue(ctx, issue.ID))
	_, err = s.GetIssue(ctx, issue.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, s.DeleteIssue(ctx, issue.ID), ErrNotFound)
	assert.ErrorIs(t, s.UpdateIssueStatus(ctx, issue.ID, models.IssueStatusDone), ErrNotFound)
}

func TestListIssues_FiltersAndOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	p := &models.Project{Name: "api", Status: models.ProjectStatusActive}
	require.NoError(t, s.CreateProject(ctx, p))

	seed := []*models.Issue{
		{Title: "a", ProjectID: p.ID, Status: models.IssueStatusOpen, Priority: models.IssuePriorityHigh},
		{Title: "b", ProjectID: p.ID, Status: models.IssueStatusDone, Priority: models.IssuePriorityHigh},
		{Title: "c", Status: models.IssueStatusOpen, Priority: models.IssuePriorityLow},
	}
	for i, issue := range seed {
		issue.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, s.CreateIssue(ctx, issue))
	}

	all, err := s.ListIssues(ctx, IssueListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "c", all[0].Title, "newest first by default")

	oldest, err := s.ListIssues(ctx, IssueListFilter{Oldest: true})
	require.NoError(t, err)
	assert.Equal(t, "a", oldest[0].Title)

	byProject, err := s.ListIssues(ctx, IssueListFilter{ProjectID: p.ID})
	require.NoError(t, err)
	assert.Len(t, byProject, 2)

	open, err := s.ListIssues(ctx, IssueListFilter{Status: models.IssueStatusOpen})
	require.NoError(t, err)
	assert.Len(t, open, 2)

	highOpen, err := s.ListIssues(ctx, IssueListFilter{Status: models.IssueStatusOpen, Priority: models.IssuePriorityHigh})
	require.NoError(t, err)
	require.Len(t, highOpen, 1)
	assert.Equal(t, "a", highOpen[0].Title)
}

func TestFindIssuesByKeywords(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	seed := []*models.Issue{
		{Title: "Login page crashes", SearchKeywords: []string{"login", "page", "crashes"}},
		{Title: "Slow login", SearchKeywords: []string{"slow", "login"}},
		{Title: "Dark mode", SearchKeywords: []string{"dark", "mode"}},
	}
	for i, issue := range seed {
		issue.Status = models.IssueStatusOpen
		issue.Priority = models.IssuePriorityMedium
		issue.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, s.CreateIssue(ctx, issue))
	}

	found, err := s.FindIssuesByKeywords(ctx, []string{"login", "crashes"}, 5)
	require.NoError(t, err)
	require.Len(t, found, 2, "an issue matching several keywords appears once")
	assert.Equal(t, "Slow login", found[0].Title)
	assert.Equal(t, "Login page crashes", found[1].Title)

	limited, err := s.FindIssuesByKeywords(ctx, []string{"login"}, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	none, err := s.FindIssuesByKeywords(ctx, []string{"logi"}, 5)
	require.NoError(t, err)
	assert.Empty(t, none, "matching is exact-token only")

	empty, err := s.FindIssuesByKeywords(ctx, nil, 5)
	require.NoError(t, err)
	assert.Nil(t, empty)
}
