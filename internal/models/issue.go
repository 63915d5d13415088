package models

import "time"

// IssueStatus represents the state of an issue.
type IssueStatus string

const (
	IssueStatusOpen       IssueStatus = "Open"
	IssueStatusInProgress IssueStatus = "In Progress"
	IssueStatusDone       IssueStatus = "Done"
)

// IssueStatuses lists issue statuses in workflow order.
var IssueStatuses = []IssueStatus{IssueStatusOpen, IssueStatusInProgress, IssueStatusDone}

// IssuePriority represents the urgency of an issue.
type IssuePriority string

const (
	IssuePriorityLow      IssuePriority = "Low"
	IssuePriorityMedium   IssuePriority = "Medium"
	IssuePriorityHigh     IssuePriority = "High"
	IssuePriorityCritical IssuePriority = "Critical"
)

// IssuePriorities lists priorities from least to most urgent.
var IssuePriorities = []IssuePriority{IssuePriorityLow, IssuePriorityMedium, IssuePriorityHigh, IssuePriorityCritical}

// IsValid reports whether p is one of the known priorities.
func (p IssuePriority) IsValid() bool {
	switch p {
	case IssuePriorityLow, IssuePriorityMedium, IssuePriorityHigh, IssuePriorityCritical:
		return true
	}
	return false
}

// Issue represents a tracked issue, optionally filed under a project.
type Issue struct {
	ID             string        `json:"id"`
	ProjectID      string        `json:"projectId,omitempty"`
	Title          string        `json:"title"`
	Description    string        `json:"description"`
	Priority       IssuePriority `json:"priority"`
	Status         IssueStatus   `json:"status"`
	AssignedTo     string        `json:"assignedTo,omitempty"`
	CreatedBy      string        `json:"createdBy"`
	SearchKeywords []string      `json:"searchKeywords,omitempty"` // fixed at creation
	CreatedAt      time.Time     `json:"createdAt"`
}
