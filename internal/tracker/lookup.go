package tracker

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/joescharf/itrack/internal/models"
	"github.com/joescharf/itrack/internal/store"
)

// ErrAmbiguous is wrapped when a name or ID prefix matches more than one record.
var ErrAmbiguous = errors.New("ambiguous reference")

// ResolveProject finds a project by exact ID, then by case-insensitive name.
// A name shared by several projects is rejected with ErrAmbiguous rather
// than picking one.
func (s *Service) ResolveProject(ctx context.Context, ref string) (*models.Project, error) {
	ref = strings.TrimSpace(ref)
	p, err := s.store.GetProject(ctx, ref)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	projects, err := s.store.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	var matches []*models.Project
	for _, p := range projects {
		if strings.EqualFold(p.Name, ref) {
			matches = append(matches, p)
		}
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("project %w: %s", store.ErrNotFound, ref)
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("%w: project name %q matches %d projects, use the ID", ErrAmbiguous, ref, len(matches))
	}
}

// FindIssue finds an issue by full ID or by a unique, case-insensitive ID prefix.
func (s *Service) FindIssue(ctx context.Context, ref string) (*models.Issue, error) {
	ref = strings.TrimSpace(ref)
	issue, err := s.store.GetIssue(ctx, ref)
	if err == nil {
		return issue, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	if ref == "" {
		return nil, fmt.Errorf("issue %w: %s", store.ErrNotFound, ref)
	}

	issues, err := s.store.ListIssues(ctx, store.IssueListFilter{})
	if err != nil {
		return nil, err
	}
	upper := strings.ToUpper(ref)
	var matches []*models.Issue
	for _, issue := range issues {
		if strings.HasPrefix(issue.ID, upper) {
			matches = append(matches, issue)
		}
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("issue %w: %s", store.ErrNotFound, ref)
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("%w: issue ID %s matches %d issues", ErrAmbiguous, ref, len(matches))
	}
}
