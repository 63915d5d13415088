// Package workflow decides which status changes are legal for issues and
// projects. Both kinds share one forward-only rule parameterized by an
// ordered list of statuses.
package workflow

import (
	"errors"
	"fmt"

	"github.com/joescharf/itrack/internal/models"
)

var (
	// ErrSkipIntermediate is matched by transitions that jump from the first
	// status straight to the last one.
	ErrSkipIntermediate = errors.New("must pass through the intermediate state first")

	// ErrRevert is matched by transitions that move backwards.
	ErrRevert = errors.New("cannot revert status")
)

// Ordering is a total order over the statuses of one entity kind.
type Ordering[S ~string] struct {
	kind   string
	levels []S
	ranks  map[S]int
}

// NewOrdering builds an ordering from statuses listed lowest first.
func NewOrdering[S ~string](kind string, levels ...S) Ordering[S] {
	ranks := make(map[S]int, len(levels))
	for i, s := range levels {
		ranks[s] = i + 1
	}
	return Ordering[S]{kind: kind, levels: levels, ranks: ranks}
}

var (
	// Issues orders Open < In Progress < Done.
	Issues = NewOrdering("issue", models.IssueStatuses...)

	// Projects orders Active < On Hold < Completed.
	Projects = NewOrdering("project", models.ProjectStatuses...)
)

// Kind returns the entity kind this ordering applies to.
func (o Ordering[S]) Kind() string { return o.kind }

// rank returns the 1-based position of s, or 0 if s is not in the ordering.
func (o Ordering[S]) rank(s S) int { return o.ranks[s] }

// Contains reports whether s belongs to the ordering.
func (o Ordering[S]) Contains(s S) bool { return o.rank(s) > 0 }

// Next returns the status one rank above s, if any.
func (o Ordering[S]) Next(s S) (S, bool) {
	r := o.rank(s)
	if r == 0 || r >= len(o.levels) {
		var zero S
		return zero, false
	}
	return o.levels[r], true
}

// Decision is the outcome of a transition check.
type Decision struct {
	Allowed bool
	Reason  string
	err     error
}

// Err returns nil for an allowed decision and a *TransitionError otherwise.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return d.err
}

// TransitionError describes a rejected status change.
type TransitionError struct {
	Kind string
	From string
	To   string
	rule error
}

func (e *TransitionError) Error() string {
	if e.rule == ErrSkipIntermediate {
		return fmt.Sprintf("invalid %s transition: %s: %q cannot move directly to %q", e.Kind, e.rule, e.From, e.To)
	}
	return fmt.Sprintf("invalid %s transition: %s from %q to %q", e.Kind, e.rule, e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return e.rule }

// Check decides whether moving from current to requested is allowed.
// Statuses outside the ordering rank as 0.
func (o Ordering[S]) Check(current, requested S) Decision {
	cur, req := o.rank(current), o.rank(requested)

	var rule error
	switch {
	case len(o.levels) > 2 && current == o.levels[0] && requested == o.levels[len(o.levels)-1]:
		rule = ErrSkipIntermediate
	case req < cur:
		rule = ErrRevert
	default:
		return Decision{Allowed: true}
	}

	err := &TransitionError{Kind: o.kind, From: string(current), To: string(requested), rule: rule}
	return Decision{Reason: err.Error(), err: err}
}
