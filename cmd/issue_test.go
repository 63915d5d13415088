package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/itrack/internal/auth"
	"github.com/joescharf/itrack/internal/models"
	"github.com/joescharf/itrack/internal/store"
	"github.com/joescharf/itrack/internal/tracker"
	"github.com/joescharf/itrack/internal/workflow"
)

// seedProject creates and opens a project for the signed-in test user.
func seedProject(t *testing.T, name string) {
	t.Helper()
	signIn(t)
	require.NoError(t, projectAddRun(name, "", true))
}

func onlyIssue(t *testing.T) *models.Issue {
	t.Helper()
	issues, err := testService(t).ListIssues(context.Background(), store.IssueListFilter{})
	require.NoError(t, err)
	require.Len(t, issues, 1)
	return issues[0]
}

func TestIssueAdd_Defaults(t *testing.T) {
	testEnv(t)
	seedProject(t, "website")

	require.NoError(t, issueAddRun(issueAddOptions{Title: "  Login page crashes  ", AssignedTo: "bob@example.com"}))

	issue := onlyIssue(t)
	assert.Equal(t, "Login page crashes", issue.Title)
	assert.Equal(t, models.IssueStatusOpen, issue.Status)
	assert.Equal(t, models.IssuePriorityMedium, issue.Priority)
	assert.Equal(t, "ada@example.com", issue.CreatedBy)
	assert.Equal(t, "bob@example.com", issue.AssignedTo)
	assert.NotEmpty(t, issue.ProjectID)
}

func TestIssueAdd_Validation(t *testing.T) {
	testEnv(t)
	seedProject(t, "website")

	err := issueAddRun(issueAddOptions{Title: "Something", Priority: "urgent"})
	assert.ErrorIs(t, err, tracker.ErrInvalidInput)

	err = issueAddRun(issueAddOptions{Title: "   "})
	assert.ErrorIs(t, err, tracker.ErrInvalidInput)

	err = issueAddRun(issueAddOptions{Title: "Something", Project: "missing"})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestIssueAdd_RequiresUser(t *testing.T) {
	testEnv(t)

	err := issueAddRun(issueAddOptions{Title: "Orphan", NoProject: true})
	assert.ErrorIs(t, err, auth.ErrUnauthenticated)
}

func TestIssueAdd_NoProject(t *testing.T) {
	testEnv(t)
	signIn(t)

	require.NoError(t, issueAddRun(issueAddOptions{Title: "Orphan issue", NoProject: true, Status: "in progress", Priority: "low"}))

	issue := onlyIssue(t)
	assert.Empty(t, issue.ProjectID)
	assert.Equal(t, models.IssueStatusInProgress, issue.Status)
	assert.Equal(t, models.IssuePriorityLow, issue.Priority)
}

func TestIssueAdd_WarnsAboutSimilar(t *testing.T) {
	testEnv(t)
	seedProject(t, "website")
	buf := captureOutput(t)

	require.NoError(t, issueAddRun(issueAddOptions{Title: "Login page crashes"}))
	buf.Reset()
	require.NoError(t, issueAddRun(issueAddOptions{Title: "Login is slow"}))

	assert.Contains(t, buf.String(), "Login page crashes")
}

func TestIssueStatus_ForwardOnly(t *testing.T) {
	testEnv(t)
	seedProject(t, "website")
	require.NoError(t, issueAddRun(issueAddOptions{Title: "Login page crashes"}))
	id := onlyIssue(t).ID

	err := issueStatusRun(id, "done")
	var te *workflow.TransitionError
	require.ErrorAs(t, err, &te)
	assert.ErrorIs(t, err, workflow.ErrSkipIntermediate)
	assert.Equal(t, models.IssueStatusOpen, onlyIssue(t).Status, "rejected change is not stored")

	require.NoError(t, issueStatusRun(shortID(id), "in-progress"))
	require.NoError(t, issueStatusRun(id, "Done"))

	err = issueStatusRun(id, "open")
	assert.ErrorIs(t, err, workflow.ErrRevert)
	assert.Contains(t, err.Error(), "cannot revert")

	assert.ErrorIs(t, issueStatusRun(id, "closed"), tracker.ErrInvalidInput)
	assert.Equal(t, models.IssueStatusDone, onlyIssue(t).Status)
}

func TestIssueList_FilterAndPaginate(t *testing.T) {
	testEnv(t)
	seedProject(t, "website")
	for i := 1; i <= 10; i++ {
		priority := "low"
		if i%2 == 0 {
			priority = "high"
		}
		require.NoError(t, issueAddRun(issueAddOptions{Title: fmt.Sprintf("Issue %02d", i), Priority: priority}))
	}
	buf := captureOutput(t)

	require.NoError(t, issueListRun(issueListOptions{Page: 2, PageSize: 4, JSON: true}))
	var page struct {
		Items      []*models.Issue
		Page       int
		TotalPages int
		Total      int
		Start      int
		End        int
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &page))
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, 10, page.Total)
	assert.Equal(t, 5, page.Start)
	assert.Equal(t, 8, page.End)
	assert.Len(t, page.Items, 4)

	buf.Reset()
	require.NoError(t, issueListRun(issueListOptions{Priority: "HIGH", Page: 1, PageSize: 8}))
	out := buf.String()
	assert.Contains(t, out, "Showing 1-5 of 5 (page 1/1)")
	assert.NotContains(t, out, "Issue 01")

	buf.Reset()
	require.NoError(t, issueListRun(issueListOptions{Page: 99, PageSize: 4}))
	assert.Contains(t, buf.String(), "page 1/3", "out-of-range page resets to the first page")

	buf.Reset()
	require.NoError(t, issueListRun(issueListOptions{Status: "done", Page: 1}))
	assert.Contains(t, buf.String(), "No issues found")

	assert.ErrorContains(t, issueListRun(issueListOptions{Sort: "priority"}), "unknown sort")

	buf.Reset()
	require.NoError(t, issueListRun(issueListOptions{Status: "all", Priority: "All", Page: 1, PageSize: 20}))
	assert.Contains(t, buf.String(), "Showing 1-10 of 10")

	err := issueListRun(issueListOptions{Status: "closed", Page: 1})
	assert.ErrorIs(t, err, tracker.ErrInvalidInput)
	assert.ErrorContains(t, err, `unknown status filter "closed"`)
	assert.ErrorIs(t, issueListRun(issueListOptions{Priority: "urgent", Page: 1}), tracker.ErrInvalidInput)
}

func TestIssueList_Mine(t *testing.T) {
	testEnv(t)
	seedProject(t, "website")
	require.NoError(t, issueAddRun(issueAddOptions{Title: "Mine", AssignedTo: "ada@example.com"}))
	require.NoError(t, issueAddRun(issueAddOptions{Title: "Theirs", AssignedTo: "bob@example.com"}))
	buf := captureOutput(t)

	require.NoError(t, issueListRun(issueListOptions{Mine: true, Page: 1}))
	assert.Contains(t, buf.String(), "Mine")
	assert.NotContains(t, buf.String(), "Theirs")
}

func TestIssueSimilar(t *testing.T) {
	testEnv(t)
	seedProject(t, "website")
	require.NoError(t, issueAddRun(issueAddOptions{Title: "Checkout button broken"}))
	buf := captureOutput(t)

	require.NoError(t, issueSimilarRun("checkout fails"))
	assert.Contains(t, buf.String(), "Checkout button broken")

	buf.Reset()
	require.NoError(t, issueSimilarRun("ab"))
	assert.Contains(t, buf.String(), "No similar issues")
}

func TestIssueShowAndDelete(t *testing.T) {
	testEnv(t)
	seedProject(t, "website")
	require.NoError(t, issueAddRun(issueAddOptions{Title: "Broken footer", Description: "Links 404"}))
	id := onlyIssue(t).ID
	buf := captureOutput(t)

	require.NoError(t, issueShowRun(shortID(id)))
	out := buf.String()
	assert.Contains(t, out, "Broken footer")
	assert.Contains(t, out, "Links 404")
	assert.Contains(t, out, "website")

	assert.ErrorContains(t, issueDeleteRun(id, false), "--yes")
	require.NoError(t, issueDeleteRun(id, true))
	assert.ErrorIs(t, issueShowRun(id), store.ErrNotFound)
}

func TestIssueStatusAndDelete_RequireUser(t *testing.T) {
	testEnv(t)
	seedProject(t, "website")
	require.NoError(t, issueAddRun(issueAddOptions{Title: "Broken footer"}))
	id := onlyIssue(t).ID
	signOut(t)

	assert.ErrorIs(t, issueStatusRun(id, "in progress"), auth.ErrUnauthenticated)
	assert.ErrorIs(t, issueDeleteRun(id, true), auth.ErrUnauthenticated)

	issue := onlyIssue(t)
	assert.Equal(t, models.IssueStatusOpen, issue.Status)
}

func TestStatusRun_Dashboard(t *testing.T) {
	testEnv(t)
	seedProject(t, "website")
	require.NoError(t, issueAddRun(issueAddOptions{Title: "Critical bug", Priority: "critical", AssignedTo: "ada@example.com"}))
	require.NoError(t, issueAddRun(issueAddOptions{Title: "Shipped feature", Status: "done", Priority: "high"}))
	require.NoError(t, issueAddRun(issueAddOptions{Title: "Loose end", NoProject: true}))
	buf := captureOutput(t)

	statusAsJSON = true
	defer func() { statusAsJSON = false }()
	require.NoError(t, statusRun())

	var d dashboard
	require.NoError(t, json.Unmarshal(buf.Bytes(), &d))
	assert.Equal(t, 3, d.Total)
	assert.Equal(t, 2, d.Open)
	assert.Equal(t, 1, d.High)
	assert.Equal(t, 1, d.Mine)
	require.Len(t, d.Projects, 1)
	assert.Equal(t, 1, d.Projects[0].Open)
	assert.Equal(t, 1, d.Projects[0].Done)
}
