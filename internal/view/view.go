// Package view holds the list shaping shared by the CLI, TUI and REST API:
// filtering, sorting, pagination and dashboard counts.
package view

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/joescharf/itrack/internal/models"
)

// DefaultPageSize is the number of rows per page when none is configured.
const DefaultPageSize = 8

// All matches every value in a filter.
const All = "All"

// Sort orders.
const (
	SortNewest = "newest"
	SortOldest = "oldest"
)

// IssueFilter selects issues by status and priority. Empty or All fields
// match everything.
type IssueFilter struct {
	Status   string
	Priority string
}

func matches(want, got string) bool {
	return want == "" || strings.EqualFold(want, All) || strings.EqualFold(want, got)
}

// ValidFilter reports whether v is usable as a filter over values: empty,
// All, or one of values ignoring case.
func ValidFilter[T ~string](v string, values []T) bool {
	if v == "" || strings.EqualFold(v, All) {
		return true
	}
	for _, s := range values {
		if strings.EqualFold(string(s), v) {
			return true
		}
	}
	return false
}

// Matches reports whether issue passes the filter.
func (f IssueFilter) Matches(issue *models.Issue) bool {
	return matches(f.Status, string(issue.Status)) && matches(f.Priority, string(issue.Priority))
}

// FilterIssues returns the issues passing f, preserving order.
func FilterIssues(issues []*models.Issue, f IssueFilter) []*models.Issue {
	out := make([]*models.Issue, 0, len(issues))
	for _, issue := range issues {
		if f.Matches(issue) {
			out = append(out, issue)
		}
	}
	return out
}

// ParseSort validates a sort name. Empty means newest.
func ParseSort(s string) (string, error) {
	switch strings.ToLower(s) {
	case "", SortNewest:
		return SortNewest, nil
	case SortOldest:
		return SortOldest, nil
	default:
		return "", fmt.Errorf("unknown sort %q (valid: newest, oldest)", s)
	}
}

// SortIssues orders issues in place by creation time. Ties break on ID so
// the order is stable across reloads.
func SortIssues(issues []*models.Issue, order string) {
	slices.SortStableFunc(issues, func(a, b *models.Issue) int {
		c := a.CreatedAt.Compare(b.CreatedAt)
		if c == 0 {
			c = strings.Compare(a.ID, b.ID)
		}
		if order == SortOldest {
			return c
		}
		return -c
	})
}

// Page is one window of a paginated list.
type Page[T any] struct {
	Items      []T
	Page       int // 1-based
	PageSize   int
	TotalPages int
	Total      int
	Start      int // 1-based index of the first item, 0 when empty
	End        int
}

// Paginate slices items into the requested page. Out-of-range pages reset
// to the first page.
func Paginate[T any](items []T, page, size int) Page[T] {
	if size < 1 {
		size = DefaultPageSize
	}
	total := len(items)
	totalPages := (total + size - 1) / size
	if totalPages == 0 {
		totalPages = 1
	}
	if page < 1 || page > totalPages {
		page = 1
	}

	lo := (page - 1) * size
	hi := min(lo+size, total)
	p := Page[T]{
		Items:      items[lo:hi],
		Page:       page,
		PageSize:   size,
		TotalPages: totalPages,
		Total:      total,
		End:        hi,
	}
	if total > 0 {
		p.Start = lo + 1
	}
	return p
}

// HasPrev reports whether a previous page exists.
func (p Page[T]) HasPrev() bool { return p.Page > 1 }

// HasNext reports whether a following page exists.
func (p Page[T]) HasNext() bool { return p.Page < p.TotalPages }

// Stats are the dashboard counters.
type Stats struct {
	Total int `json:"total"`
	Open  int `json:"open"`
	High  int `json:"high"`
	Mine  int `json:"mine"`
}

// ComputeStats counts issues for the dashboard. Open covers exactly Open
// and In Progress, so a stored status outside the workflow is not counted.
// High covers High and Critical issues that are not Done. Mine counts
// issues assigned to email.
func ComputeStats(issues []*models.Issue, email string) Stats {
	var s Stats
	for _, issue := range issues {
		s.Total++
		if issue.Status == models.IssueStatusOpen || issue.Status == models.IssueStatusInProgress {
			s.Open++
		}
		if issue.Status != models.IssueStatusDone && (issue.Priority == models.IssuePriorityHigh || issue.Priority == models.IssuePriorityCritical) {
			s.High++
		}
		if AssignedTo(issue, email) {
			s.Mine++
		}
	}
	return s
}

// AssignedTo reports whether issue is assigned to the user with the given
// email. Assignees are free text, so the local part of the address also
// matches.
func AssignedTo(issue *models.Issue, email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	assignee := strings.ToLower(strings.TrimSpace(issue.AssignedTo))
	if email == "" || assignee == "" {
		return false
	}
	if assignee == email {
		return true
	}
	local, _, _ := strings.Cut(email, "@")
	return local != "" && strings.Contains(assignee, local)
}

// TimeAgo renders t relative to now.
func TimeAgo(t, now time.Time) string {
	if t.IsZero() || now.Sub(t) < time.Minute {
		return "just now"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}
